package acis

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// PeriodOfRecord is the date marker meaning "as far as the station record
// goes" in that direction.
const PeriodOfRecord = "por"

// DateLayout is the date format used by the web services.
const DateLayout = "2006-01-02"

var dateRegex = regexp.MustCompile(`^(\d{4})(?:-?(\d{2}))?(?:-?(\d{2}))?$`)

// ParseDate converts YYYY[-MM[-DD]] into a UTC date. Hyphens are optional,
// a missing month or day defaults to 1.
func ParseDate(s string) (time.Time, error) {
	m := dateRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return time.Time{}, &ParameterError{Param: "date", Message: fmt.Sprintf("invalid date format %q", s)}
	}
	parts := [3]int{0, 1, 1}
	for i, g := range m[1:] {
		if g == "" {
			continue
		}
		n, _ := strconv.Atoi(g)
		parts[i] = n
	}
	y, mo, d := parts[0], parts[1], parts[2]
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != mo || t.Day() != d {
		return time.Time{}, &ParameterError{Param: "date", Message: fmt.Sprintf("date %q out of range", s)}
	}
	return t, nil
}

// FormatDate returns the YYYY-MM-DD form of t.
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%04d-%02d-%02d", t.Year(), int(t.Month()), t.Day())
}

// Marker is one bound of a date span: a calendar date or the period of
// record.
type Marker struct {
	Date time.Time
	POR  bool
}

// ParseMarker accepts "por" (any case) or a date understood by ParseDate.
func ParseMarker(s string) (Marker, error) {
	if strings.EqualFold(strings.TrimSpace(s), PeriodOfRecord) {
		return Marker{POR: true}, nil
	}
	t, err := ParseDate(s)
	if err != nil {
		return Marker{}, err
	}
	return Marker{Date: t}, nil
}

func (m Marker) String() string {
	if m.POR {
		return PeriodOfRecord
	}
	return FormatDate(m.Date)
}

// dateParams builds the date options of a request. A nil edate means a
// single date; a single "por" means the whole period of record.
func dateParams(sdate string, edate *string) (Params, error) {
	start, err := ParseMarker(sdate)
	if err != nil {
		return nil, err
	}
	params := Params{}
	if edate == nil {
		if start.POR {
			params["sdate"] = PeriodOfRecord
			params["edate"] = PeriodOfRecord
		} else {
			params["date"] = start.String()
		}
		return params, nil
	}
	end, err := ParseMarker(*edate)
	if err != nil {
		return nil, err
	}
	params["sdate"] = start.String()
	params["edate"] = end.String()
	return params, nil
}
