package httpapi

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/acis-toolkit/internal/acis"
	"github.com/i474232898/acis-toolkit/internal/climate"
	"github.com/i474232898/acis-toolkit/internal/common"
	"github.com/i474232898/acis-toolkit/internal/export"
	"github.com/i474232898/acis-toolkit/internal/store"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *climate.Service) {
	v1 := app.Group("/api/v1")

	v1.Get("/stations/data", func(c *fiber.Ctx) error {
		var q multiQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		result, err := service.MultiStationData(c.UserContext(), climate.MultiStationQuery{
			Sids:     q.Sids,
			Date:     q.Date,
			SDate:    q.SDate,
			EDate:    q.EDate,
			Elems:    q.Elems,
			Interval: q.Interval,
		})
		if err != nil {
			return upstreamError(err)
		}
		return c.JSON(result)
	})

	v1.Get("/stations/:sid/data", func(c *fiber.Ctx) error {
		var q stationQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		result, err := service.StationData(c.UserContext(), climate.StationQuery{
			Sid:      q.Sid,
			SDate:    q.SDate,
			EDate:    q.EDate,
			Elems:    q.Elems,
			Interval: q.Interval,
		})
		if err != nil {
			return upstreamError(err)
		}
		if q.Format == "xlsx" {
			c.Attachment(q.Sid + ".xlsx")
			c.Set(fiber.HeaderContentType, xlsxContentType)
			records := slices.Collect(result.Records())
			if err := export.WriteXLSX(c, result.Elems(), records, result.Meta()); err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "failed to build workbook")
			}
			return nil
		}
		return c.JSON(result)
	})

	v1.Get("/stream/stations", func(c *fiber.Ctx) error {
		var q multiQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		out, err := service.StreamMulti(c.UserContext(), climate.MultiStationQuery{
			Sids:     q.Sids,
			Date:     q.Date,
			Elems:    q.Elems,
			Interval: q.Interval,
		})
		if err != nil {
			return upstreamError(err)
		}
		return c.JSON(out)
	})

	v1.Get("/stream/stations/:sid", func(c *fiber.Ctx) error {
		var q stationQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		out, err := service.StreamStation(c.UserContext(), climate.StationQuery{
			Sid:      q.Sid,
			SDate:    q.SDate,
			EDate:    q.EDate,
			Elems:    q.Elems,
			Interval: q.Interval,
		})
		if err != nil {
			return upstreamError(err)
		}
		return c.JSON(out)
	})

	v1.Get("/jobs/:name/latest", func(c *fiber.Ctx) error {
		snapshot, err := service.GetLatest(c.Params("name"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no data for requested job")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch job data")
		}
		return c.JSON(snapshot)
	})

	v1.Get("/jobs/:name/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		snapshots, err := service.GetRange(req.Job, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no history for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch job history")
		}

		return c.JSON(fiber.Map{
			"job":       req.Job,
			"from":      req.From,
			"to":        req.To,
			"snapshots": snapshots,
		})
	})
}

// ErrorHandler renders every error as a JSON body.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// upstreamError maps ACIS and service errors to HTTP errors. Bad options
// are the caller's fault; anything the server sent back that we could not
// use is a bad gateway.
func upstreamError(err error) error {
	var (
		paramErr    *acis.ParameterError
		intervalErr *acis.InvalidIntervalError
		dateErr     *acis.MissingDateError
		spanErr     *acis.UnboundedSpanError
		requestErr  *acis.RequestError
		resultErr   *acis.ResultError
		payloadErr  *acis.MalformedPayloadError
	)
	switch {
	case errors.As(err, &paramErr), errors.As(err, &intervalErr),
		errors.As(err, &dateErr), errors.As(err, &spanErr),
		errors.Is(err, climate.ErrNoStations):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.As(err, &requestErr):
		if requestErr.StatusCode == 0 || requestErr.StatusCode == fiber.StatusBadRequest {
			return fiber.NewError(fiber.StatusBadRequest, requestErr.Message)
		}
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	case errors.As(err, &resultErr), errors.As(err, &payloadErr):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusGatewayTimeout, "ACIS request timed out")
	}
	return fiber.NewError(fiber.StatusBadGateway, "ACIS request failed")
}

// stationQuery holds the options of the single-station endpoints.
type stationQuery struct {
	Sid      string   `validate:"required"`
	SDate    string   `validate:"required"`
	EDate    string
	Elems    []string `validate:"required,min=1,dive,required"`
	Interval string
	Format   string `validate:"omitempty,oneof=json xlsx"`
}

func (q *stationQuery) bind(c *fiber.Ctx) error {
	q.Sid = c.Params("sid")
	q.SDate = c.Query("sdate")
	q.EDate = c.Query("edate")
	q.Elems = common.SplitList(c.Query("elems"))
	q.Interval = c.Query("interval")
	q.Format = c.Query("format")
	return validate.Struct(q)
}

// multiQuery holds the options of the multi-station endpoints. A single
// date is used when sdate is empty.
type multiQuery struct {
	Sids     []string `validate:"required,min=1,dive,required"`
	Date     string   `validate:"required_without=SDate"`
	SDate    string
	EDate    string   `validate:"required_with=SDate"`
	Elems    []string `validate:"required,min=1,dive,required"`
	Interval string
}

func (q *multiQuery) bind(c *fiber.Ctx) error {
	q.Sids = common.SplitList(c.Query("sids"))
	q.Date = c.Query("date")
	q.SDate = c.Query("sdate")
	q.EDate = c.Query("edate")
	q.Elems = common.SplitList(c.Query("elems"))
	q.Interval = c.Query("interval")
	return validate.Struct(q)
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	Job  string    `validate:"required"`
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	h.Job = c.Params("name")

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
