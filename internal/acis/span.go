package acis

import "time"

// DateSpan is the date range of a request. End is nil for a single-date
// request.
type DateSpan struct {
	Start    Marker
	End      *Marker
	Interval Interval
}

// ResolveSpan reads the start date, end date and interval from params. The
// start comes from "sdate" or the legacy "date" key. The interval is taken
// from the first element only since one request shares one interval.
func ResolveSpan(params Params) (DateSpan, error) {
	sdate, ok, err := params.stringValue("sdate")
	if err != nil {
		return DateSpan{}, err
	}
	if !ok {
		sdate, ok, err = params.stringValue("date")
		if err != nil {
			return DateSpan{}, err
		}
		if !ok {
			return DateSpan{}, &MissingDateError{}
		}
	}
	start, err := ParseMarker(sdate)
	if err != nil {
		return DateSpan{}, err
	}
	span := DateSpan{Start: start, Interval: Daily}

	edate, ok, err := params.stringValue("edate")
	if err != nil {
		return DateSpan{}, err
	}
	if ok {
		end, err := ParseMarker(edate)
		if err != nil {
			return DateSpan{}, err
		}
		span.End = &end
	} else if start.POR {
		// "date": "por" covers the whole record.
		end := Marker{POR: true}
		span.End = &end
	}

	if raw, ok := firstElementInterval(params); ok {
		iv, err := ResolveInterval(raw)
		if err != nil {
			return DateSpan{}, err
		}
		span.Interval = iv
	}
	return span, nil
}

func firstElementInterval(params Params) (any, bool) {
	list, ok := params.elementList()
	if !ok || len(list) == 0 {
		return nil, false
	}
	switch e := list[0].(type) {
	case map[string]any:
		v, ok := e["interval"]
		return v, ok && v != nil
	case Element:
		v, ok := e.Options["interval"]
		return v, ok && v != nil
	}
	return nil, false
}

// Expand lists every date of the span, start and end inclusive. Each call
// recomputes the sequence. A span bounded by the period of record cannot be
// expanded; a start after the end yields no dates. A zero interval steps
// daily and a negative one is rejected.
func (s DateSpan) Expand() ([]time.Time, error) {
	if s.Start.POR {
		return nil, &UnboundedSpanError{Bound: "start"}
	}
	end := s.Start
	if s.End != nil {
		end = *s.End
	}
	if end.POR {
		return nil, &UnboundedSpanError{Bound: "end"}
	}
	step := Daily
	if s.Interval != (Interval{}) {
		iv := s.Interval
		var err error
		if step, err = normalizeInterval(iv, iv.Years, iv.Months, iv.Days); err != nil {
			return nil, err
		}
	}

	var dates []time.Time
	for d := s.Start.Date; !d.After(end.Date); d = addStep(d, step) {
		dates = append(dates, d)
	}
	return dates, nil
}

// addStep advances t by one calendar step. Month and year steps clamp the
// day to the end of the target month.
func addStep(t time.Time, step Interval) time.Time {
	if step.Years == 0 && step.Months == 0 {
		return t.AddDate(0, 0, step.Days)
	}
	months := int(t.Month()) - 1 + step.Months + 12*step.Years
	y := t.Year() + months/12
	m := time.Month(months%12 + 1)
	d := t.Day()
	if last := daysIn(y, m); d > last {
		d = last
	}
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, step.Days)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DateRange resolves and expands the span of params into YYYY-MM-DD
// strings.
func DateRange(params Params) ([]string, error) {
	span, err := ResolveSpan(params)
	if err != nil {
		return nil, err
	}
	dates, err := span.Expand()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = FormatDate(d)
	}
	return out, nil
}
