package climate

import (
	"time"

	"github.com/i474232898/acis-toolkit/internal/acis"
)

// Job is a configured set of stations fetched on every scheduler run.
// A single station is fetched with StnData, several with MultiStnData.
type Job struct {
	Name         string   `json:"name" validate:"required"`
	Sids         []string `json:"sids" validate:"required,min=1,dive,required"`
	Elems        []string `json:"elems" validate:"required,min=1,dive,required"`
	Interval     string   `json:"interval"`
	LookbackDays int      `json:"lookbackDays" validate:"gte=0"`
}

// Key returns the store key of the job.
func (j Job) Key() string {
	return j.Name
}

// Snapshot is the normalized outcome of one job run.
type Snapshot struct {
	Job       string                         `json:"job"`
	Timestamp time.Time                      `json:"timestamp"` // always UTC
	Kind      string                         `json:"kind"`
	SDate     string                         `json:"sdate"`
	EDate     string                         `json:"edate"`
	Elems     []string                       `json:"elems"`
	Meta      map[acis.SiteID]map[string]any `json:"meta"`
	Records   []acis.Record                  `json:"records"`
}

// StationQuery selects data for one station.
type StationQuery struct {
	Sid      string
	SDate    string
	EDate    string
	Elems    []string
	Interval string
}

// MultiStationQuery selects data for several stations. Date is used when
// SDate is empty.
type MultiStationQuery struct {
	Sids     []string
	Date     string
	SDate    string
	EDate    string
	Elems    []string
	Interval string
}

// StreamedData holds everything decoded from a CSV stream.
type StreamedData struct {
	Kind    string                         `json:"kind"`
	Elems   []string                       `json:"elems"`
	Meta    map[acis.SiteID]map[string]any `json:"meta"`
	Records []acis.Record                  `json:"records"`
}
