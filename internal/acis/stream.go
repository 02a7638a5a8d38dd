package acis

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"
	"sync"
)

// StreamState tracks a Stream through its single pass.
type StreamState int

const (
	NotConnected StreamState = iota
	HeaderRead
	Streaming
	Closed
)

func (s StreamState) String() string {
	switch s {
	case NotConnected:
		return "not connected"
	case HeaderRead:
		return "header read"
	case Streaming:
		return "streaming"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("StreamState(%d)", int(s))
}

// maxLineSize bounds one CSV line.
const maxLineSize = 1 << 20

// multiMetaFields is the number of leading metadata fields on every
// MultiStnData CSV line: sid, name, state, lon, lat, elev.
const multiMetaFields = 6

var multiLocationKeys = map[string]bool{
	"sids": true, "county": true, "climdiv": true, "cwa": true,
	"basin": true, "state": true, "bbox": true,
}

// Stream builds a CSV StnData or MultiStnData call and decodes the output
// one record at a time. A Stream is single-pass: Records can be ranged over
// once.
type Stream struct {
	kind     Kind
	caller   StreamCaller
	params   Params
	elems    []Element
	interval Interval
	site     SiteID
	meta     map[SiteID]map[string]any
	state    StreamState
	started  bool
}

// NewStnDataStream returns a stream for a single station. The output
// starts with a header line holding the station name.
func NewStnDataStream(c StreamCaller) *Stream {
	return newStream(StnData, c)
}

// NewMultiStnDataStream returns a stream for a set of stations on one
// date. Every line carries the station metadata ahead of its values.
func NewMultiStnDataStream(c StreamCaller) *Stream {
	return newStream(MultiStnData, c)
}

func newStream(kind Kind, c StreamCaller) *Stream {
	return &Stream{
		kind:     kind,
		caller:   c,
		params:   Params{},
		interval: Daily,
		meta:     make(map[SiteID]map[string]any),
	}
}

// Kind returns StnData or MultiStnData.
func (s *Stream) Kind() Kind { return s.kind }

// State returns where the stream is in its single pass.
func (s *Stream) State() StreamState { return s.state }

// Meta returns the site metadata read so far. For MultiStnData it is
// complete only once every record has been read.
func (s *Stream) Meta() map[SiteID]map[string]any { return s.meta }

// Elems returns the annotated aliases of the configured elements.
func (s *Stream) Elems() []string {
	names := make([]string, len(s.elems))
	for i, el := range s.elems {
		names[i] = el.Alias()
	}
	return Annotate(names)
}

// Interval sets the interval shared by all elements. The default is daily.
func (s *Stream) Interval(value any) error {
	iv, err := ResolveInterval(value)
	if err != nil {
		return err
	}
	s.interval = iv
	return nil
}

// AddElement appends an element given as a name, a vX code or an element
// object. Requesting the same element twice is allowed; the aliases are
// annotated.
func (s *Stream) AddElement(v any, opts map[string]any) error {
	el, err := NewElement(v)
	if err != nil {
		return err
	}
	el.Options = mergeOptions(el.Options, opts)
	s.elems = append(s.elems, el)
	return nil
}

// DelElement removes every element with the given alias.
func (s *Stream) DelElement(alias string) {
	kept := s.elems[:0]
	for _, el := range s.elems {
		if el.Alias() != alias {
			kept = append(kept, el)
		}
	}
	s.elems = kept
}

// ClearElements removes all elements.
func (s *Stream) ClearElements() {
	s.elems = nil
}

// Location sets the sites to stream. StnData takes a single "uid" or "sid",
// with uid winning when both are given. MultiStnData takes any of sids,
// county, climdiv, cwa, basin, state or bbox.
func (s *Stream) Location(opts map[string]any) error {
	if s.kind == StnData {
		for _, key := range []string{"uid", "sid"} {
			v, ok := opts[key]
			if !ok || v == nil || fmt.Sprint(v) == "" {
				continue
			}
			delete(s.params, "uid")
			delete(s.params, "sid")
			s.site = SiteID(fmt.Sprint(v))
			s.params[key] = string(s.site)
			return nil
		}
		return &ParameterError{Param: "location", Message: "StnData stream requires uid or sid"}
	}
	if len(opts) == 0 {
		return &ParameterError{Param: "location", Message: "no location given"}
	}
	for key := range opts {
		if !multiLocationKeys[key] {
			return &ParameterError{Param: "location", Message: fmt.Sprintf("unknown location option %q", key)}
		}
	}
	for key, v := range opts {
		s.params[key] = locationValue(v)
	}
	return nil
}

// Dates sets an inclusive date range. Either bound may be "por". Only
// StnData streams accept a range.
func (s *Stream) Dates(sdate, edate string) error {
	if s.kind != StnData {
		return &ParameterError{Param: "dates", Message: "MultiStnData streams accept a single date"}
	}
	p, err := dateParams(sdate, &edate)
	if err != nil {
		return err
	}
	s.setDates(p)
	return nil
}

// Date sets a single date. For StnData "por" means the whole period of
// record.
func (s *Stream) Date(date string) error {
	if s.kind == MultiStnData && strings.EqualFold(strings.TrimSpace(date), PeriodOfRecord) {
		return &ParameterError{Param: "date", Message: "MultiStnData streams need a calendar date"}
	}
	p, err := dateParams(date, nil)
	if err != nil {
		return err
	}
	s.setDates(p)
	return nil
}

func (s *Stream) setDates(p Params) {
	delete(s.params, "date")
	delete(s.params, "sdate")
	delete(s.params, "edate")
	for k, v := range p {
		s.params[k] = v
	}
}

// Params returns the call parameters the stream will send.
func (s *Stream) Params() Params {
	p := s.params.Clone()
	elems := make([]any, len(s.elems))
	for i, el := range s.elems {
		m := el.Param()
		m["interval"] = s.interval.Param()
		elems[i] = m
	}
	p["elems"] = elems
	p["output"] = "csv"
	return p
}

func (s *Stream) validate() error {
	if s.kind == StnData && s.site == "" {
		return &ParameterError{Param: "location", Message: "StnData stream requires uid or sid"}
	}
	if s.kind == MultiStnData {
		if _, ok := s.params["date"]; !ok {
			return &MissingDateError{}
		}
	} else if _, ok := s.params["date"]; !ok {
		if _, ok := s.params["sdate"]; !ok {
			return &MissingDateError{}
		}
	}
	if len(s.elems) == 0 {
		return &ParameterError{Param: "elems", Message: "no elements requested"}
	}
	return nil
}

// Records issues the call and yields one record per data line. The
// response body is closed when the sequence ends, whether the data ran out,
// the consumer stopped early, ctx was cancelled or an error occurred.
// Ranging over Records a second time yields ErrStreamConsumed.
func (s *Stream) Records(ctx context.Context) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		if s.started {
			yield(Record{}, ErrStreamConsumed)
			return
		}
		if err := s.validate(); err != nil {
			yield(Record{}, err)
			return
		}
		s.started = true
		defer func() { s.state = Closed }()

		body, err := s.caller.SubmitStream(ctx, s.kind.Call(), s.Params())
		if err != nil {
			yield(Record{}, err)
			return
		}
		rc := &onceCloser{ReadCloser: body}
		defer rc.Close()
		stop := context.AfterFunc(ctx, func() { _ = rc.Close() })
		defer stop()

		lines := bufio.NewScanner(rc)
		lines.Buffer(make([]byte, 0, 64*1024), maxLineSize)

		if !lines.Scan() {
			if err := scanErr(ctx, lines); err != nil {
				yield(Record{}, err)
			}
			return
		}
		first := trimLine(lines.Text())
		if strings.HasPrefix(first, "error") {
			msg := first
			if _, after, ok := strings.Cut(first, ":"); ok {
				msg = strings.TrimSpace(after)
			}
			yield(Record{}, &RequestError{Message: msg})
			return
		}
		s.state = HeaderRead

		pending := first
		hasPending := true
		if s.kind == StnData {
			s.meta[s.site] = map[string]any{"name": first}
			hasPending = false
		}
		s.state = Streaming

		for {
			var line string
			if hasPending {
				line, hasPending = pending, false
			} else {
				if !lines.Scan() {
					if err := scanErr(ctx, lines); err != nil {
						yield(Record{}, err)
					}
					return
				}
				line = trimLine(lines.Text())
			}
			if err := ctx.Err(); err != nil {
				yield(Record{}, err)
				return
			}

			rec, ok := s.decode(line)
			if !ok {
				if s.kind == MultiStnData {
					return
				}
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// decode turns one data line into a record. It reports false for a line
// that holds no record: a blank StnData line, or a MultiStnData line too
// short to carry site metadata, which ends the stream.
func (s *Stream) decode(line string) (Record, bool) {
	fields := strings.Split(line, ",")
	if s.kind == StnData {
		if line == "" {
			return Record{}, false
		}
		return Record{Site: s.site, Date: fields[0], Values: stringValues(fields[1:])}, true
	}

	if len(fields) < multiMetaFields {
		return Record{}, false
	}
	sid := SiteID(fields[0])
	meta := map[string]any{"name": fields[1], "state": fields[2]}
	if elev, err := strconv.ParseFloat(strings.TrimSpace(fields[5]), 64); err == nil {
		meta["elev"] = elev
	}
	lon, lonErr := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
	lat, latErr := strconv.ParseFloat(strings.TrimSpace(fields[4]), 64)
	if lonErr == nil && latErr == nil {
		meta["ll"] = []float64{lon, lat}
	}
	s.meta[sid] = meta
	date, _ := s.params["date"].(string)
	return Record{Site: sid, Date: date, Values: stringValues(fields[multiMetaFields:])}, true
}

func scanErr(ctx context.Context, lines *bufio.Scanner) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return lines.Err()
}

func trimLine(s string) string {
	return strings.TrimRight(s, " \t\r")
}

func stringValues(fields []string) []any {
	out := make([]any, len(fields))
	for i, f := range fields {
		out[i] = f
	}
	return out
}

func mergeOptions(base, extra map[string]any) map[string]any {
	if len(base) == 0 && len(extra) == 0 {
		return nil
	}
	out := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// locationValue joins list values ("sids": ["okc", "tul"]) into the comma
// form the web services accept.
func locationValue(v any) any {
	switch l := v.(type) {
	case []string:
		return strings.Join(l, ",")
	case []any:
		parts := make([]string, len(l))
		for i, x := range l {
			parts[i] = fmt.Sprint(x)
		}
		return strings.Join(parts, ",")
	}
	return v
}

type onceCloser struct {
	io.ReadCloser
	once sync.Once
	err  error
}

func (c *onceCloser) Close() error {
	c.once.Do(func() { c.err = c.ReadCloser.Close() })
	return c.err
}
