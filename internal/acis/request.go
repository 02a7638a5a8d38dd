package acis

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Request builds the params of a JSON web services call, submits it and
// normalizes the result.
type Request struct {
	kind     Kind
	call     string
	caller   Caller
	params   Params
	elems    []Element
	interval *Interval
	meta     []string
}

func newRequest(kind Kind, c Caller) *Request {
	return &Request{kind: kind, call: kind.Call(), caller: c, params: Params{}}
}

func NewStnMetaRequest(c Caller) *Request { return newRequest(StnMeta, c) }

func NewStnDataRequest(c Caller) *Request { return newRequest(StnData, c) }

func NewMultiStnDataRequest(c Caller) *Request { return newRequest(MultiStnData, c) }

func NewGridDataRequest(c Caller) *Request { return newRequest(GridData, c) }

// NewAreaMetaRequest returns a General call for one area type, e.g.
// "county" or "basin".
func NewAreaMetaRequest(c Caller, area string) *Request {
	r := newRequest(AreaMeta, c)
	r.call = "General/" + strings.Trim(area, "/")
	return r
}

// Kind returns the call shape of the request.
func (r *Request) Kind() Kind { return r.kind }

// Call returns the web services call name.
func (r *Request) Call() string { return r.call }

// Location merges location options ("sid", "uid", "sids", "county",
// "state", "bbox", "loc", ...) into the request. List values are sent in
// comma-separated form.
func (r *Request) Location(opts map[string]any) error {
	if len(opts) == 0 {
		return &ParameterError{Param: "location", Message: "no location given"}
	}
	for key, v := range opts {
		r.params[key] = locationValue(v)
	}
	return nil
}

// Dates sets an inclusive date range. Either bound may be "por".
func (r *Request) Dates(sdate, edate string) error {
	p, err := dateParams(sdate, &edate)
	if err != nil {
		return err
	}
	r.setDates(p)
	return nil
}

// Date sets a single date, or the whole period of record for "por".
func (r *Request) Date(date string) error {
	p, err := dateParams(date, nil)
	if err != nil {
		return err
	}
	r.setDates(p)
	return nil
}

func (r *Request) setDates(p Params) {
	delete(r.params, "date")
	delete(r.params, "sdate")
	delete(r.params, "edate")
	for k, v := range p {
		r.params[k] = v
	}
}

// Interval sets the interval of every element.
func (r *Request) Interval(value any) error {
	iv, err := ResolveInterval(value)
	if err != nil {
		return err
	}
	r.interval = &iv
	return nil
}

// AddElement appends an element given as a name, a vX code or an element
// object, with per-element options such as "smry" or "reduce".
func (r *Request) AddElement(v any, opts map[string]any) error {
	el, err := NewElement(v)
	if err != nil {
		return err
	}
	el.Options = mergeOptions(el.Options, opts)
	r.elems = append(r.elems, el)
	return nil
}

// Elements replaces the element list with plain names or vX codes.
func (r *Request) Elements(elems ...any) error {
	list := make([]Element, 0, len(elems))
	for _, v := range elems {
		el, err := NewElement(v)
		if err != nil {
			return err
		}
		list = append(list, el)
	}
	r.elems = list
	return nil
}

// ClearElements removes all elements.
func (r *Request) ClearElements() { r.elems = nil }

// Metadata sets the metadata fields to return. The identifier used to key
// the result ("uid", or "id" for areas) is always included.
func (r *Request) Metadata(fields ...string) {
	var key string
	switch r.kind {
	case AreaMeta:
		key = "id"
	case StnMeta, StnData, MultiStnData:
		key = "uid"
	}
	meta := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" && !slices.Contains(meta, f) {
			meta = append(meta, f)
		}
	}
	if key != "" && !slices.Contains(meta, key) {
		meta = append(meta, key)
	}
	r.meta = meta
}

// Params returns the params that Submit will send.
func (r *Request) Params() Params {
	p := r.params.Clone()
	if len(r.elems) > 0 {
		elems := make([]any, len(r.elems))
		for i, el := range r.elems {
			m := el.Param()
			if r.interval != nil && r.kind != StnMeta {
				m["interval"] = r.interval.Param()
			}
			elems[i] = m
		}
		p["elems"] = elems
	}
	switch {
	case len(r.meta) > 0:
		p["meta"] = strings.Join(r.meta, ",")
	case r.kind == StnMeta || r.kind == StnData || r.kind == MultiStnData:
		p["meta"] = "uid"
	case r.kind == AreaMeta:
		p["meta"] = "id"
	}
	return p
}

// Submit executes the call and returns the params with the raw result.
func (r *Request) Submit(ctx context.Context) (Query, error) {
	params := r.Params()
	result, err := r.caller.Submit(ctx, r.call, params)
	if err != nil {
		return Query{}, err
	}
	return Query{Params: params, Result: result}, nil
}

// Result submits the request and normalizes the reply.
func (r *Request) Result(ctx context.Context) (*Result, error) {
	q, err := r.Submit(ctx)
	if err != nil {
		return nil, err
	}
	return Normalize(r.kind, q)
}

// SubmitAll runs the requests concurrently and returns their queries in
// the order given. The first error in that order is returned.
func SubmitAll(ctx context.Context, reqs ...*Request) ([]Query, error) {
	queries := make([]Query, len(reqs))
	errs := make([]error, len(reqs))

	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			queries[i], errs[i] = req.Submit(ctx)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("request %d (%s): %w", i, reqs[i].call, err)
		}
	}
	return queries, nil
}
