package climate

import (
	"slices"
	"time"

	"github.com/i474232898/acis-toolkit/internal/acis"
)

// NewSnapshot captures a normalized result for a job run.
func NewSnapshot(job Job, sdate, edate string, r *acis.Result, ts time.Time) Snapshot {
	records := slices.Collect(r.Records())
	if records == nil {
		records = []acis.Record{}
	}
	return Snapshot{
		Job:       job.Name,
		Timestamp: ts.UTC(),
		Kind:      r.Kind().String(),
		SDate:     sdate,
		EDate:     edate,
		Elems:     r.Elems(),
		Meta:      r.Meta(),
		Records:   records,
	}
}

// Window returns the date range of a job run ending on day: the last
// LookbackDays days before day, and day itself.
func (j Job) Window(day time.Time) (sdate, edate string) {
	end := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, 0, -j.LookbackDays)
	return acis.FormatDate(start), acis.FormatDate(end)
}
