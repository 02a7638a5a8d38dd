package acis

import (
	"encoding/json"
	"fmt"
	"iter"
	"reflect"
	"slices"
)

// Kind identifies the web services call a result came from.
type Kind int

const (
	StnMeta Kind = iota + 1
	StnData
	MultiStnData
	GridData
	AreaMeta
)

var kindNames = map[Kind]string{
	StnMeta:      "StnMeta",
	StnData:      "StnData",
	MultiStnData: "MultiStnData",
	GridData:     "GridData",
	AreaMeta:     "AreaMeta",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Call returns the web services call name for k. Area metadata comes from
// the General call.
func (k Kind) Call() string {
	if k == AreaMeta {
		return "General"
	}
	return k.String()
}

// Query pairs the params sent to the server with the result it returned.
type Query struct {
	Params Params         `json:"params"`
	Result map[string]any `json:"result"`
}

// SiteID keys metadata, data and summaries: a station uid, an area id, or
// a grid cell ("row,col").
type SiteID string

// GridSite returns the SiteID of a grid cell.
func GridSite(row, col int) SiteID {
	return SiteID(fmt.Sprintf("%d,%d", row, col))
}

// GridPos parses a grid cell SiteID.
func (s SiteID) GridPos() (row, col int, ok bool) {
	if _, err := fmt.Sscanf(string(s), "%d,%d", &row, &col); err != nil {
		return 0, 0, false
	}
	return row, col, true
}

// Record is one normalized data record.
type Record struct {
	Site   SiteID `json:"site"`
	Date   string `json:"date"`
	Values []any  `json:"values"`
}

// Result is a normalized JSON result. The same API serves every Kind;
// metadata-only kinds have no data and no records.
//
// A Result is built once and must not be modified through the maps its
// accessors return.
type Result struct {
	kind  Kind
	elems []string
	sites []SiteID
	meta  map[SiteID]map[string]any
	data  map[SiteID][][]any
	smry  map[SiteID][]any

	// MultiStnData dates, indexed modulo their count.
	dates []string

	// GridData raster shape and number of time steps.
	shape [2]int
	steps int
}

// Normalize builds the Result variant for kind.
func Normalize(kind Kind, q Query) (*Result, error) {
	switch kind {
	case StnMeta:
		return NewStnMetaResult(q)
	case StnData:
		return NewStnDataResult(q)
	case MultiStnData:
		return NewMultiStnDataResult(q)
	case GridData:
		return NewGridDataResult(q)
	case AreaMeta:
		return NewAreaMetaResult(q)
	}
	return nil, fmt.Errorf("acis: unknown result kind %d", int(kind))
}

func newResult(kind Kind, q Query) (*Result, error) {
	if q.Params == nil {
		return nil, &MalformedPayloadError{Field: "params"}
	}
	if q.Result == nil {
		return nil, &MalformedPayloadError{Field: "result"}
	}
	if msg, ok := q.Result["error"]; ok {
		return nil, &ResultError{Message: fmt.Sprint(msg)}
	}
	elems, err := ElementAliases(q.Params)
	if err != nil {
		return nil, err
	}
	return &Result{
		kind:  kind,
		elems: elems,
		meta:  make(map[SiteID]map[string]any),
		data:  make(map[SiteID][][]any),
		smry:  make(map[SiteID][]any),
	}, nil
}

func newDataResult(kind Kind, q Query) (*Result, error) {
	r, err := newResult(kind, q)
	if err != nil {
		return nil, err
	}
	if len(r.elems) == 0 {
		return nil, &ResultError{Message: "no elems found in result"}
	}
	return r, nil
}

// NewStnMetaResult normalizes a StnMeta result keyed by station uid.
func NewStnMetaResult(q Query) (*Result, error) {
	r, err := newResult(StnMeta, q)
	if err != nil {
		return nil, err
	}
	if err := r.keyMetaList(q.Result["meta"], "uid"); err != nil {
		return nil, err
	}
	return r, nil
}

// NewAreaMetaResult normalizes the metadata of an area General call keyed
// by area id.
func NewAreaMetaResult(q Query) (*Result, error) {
	r, err := newResult(AreaMeta, q)
	if err != nil {
		return nil, err
	}
	if err := r.keyMetaList(q.Result["meta"], "id"); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Result) keyMetaList(raw any, key string) error {
	list, ok := toList(raw)
	if !ok {
		return &ResultError{Message: "result does not contain a metadata list"}
	}
	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			return &ResultError{Message: fmt.Sprintf("invalid metadata entry %v", item)}
		}
		id, meta, err := extractID(entry, key)
		if err != nil {
			return err
		}
		r.addSite(id)
		r.meta[id] = meta
	}
	return nil
}

// NewStnDataResult normalizes a single-station StnData result. Records are
// in chronological order, one per data row.
func NewStnDataResult(q Query) (*Result, error) {
	r, err := newDataResult(StnData, q)
	if err != nil {
		return nil, err
	}
	entry, ok := q.Result["meta"].(map[string]any)
	if !ok {
		return nil, &ResultError{Message: "metadata does not contain uid"}
	}
	uid, meta, err := extractID(entry, "uid")
	if err != nil {
		return nil, err
	}
	rows, err := dataRows(q.Result["data"], true)
	if err != nil {
		return nil, err
	}
	r.addSite(uid)
	r.meta[uid] = meta
	r.data[uid] = rows
	r.smry[uid] = summary(q.Result["smry"])
	return r, nil
}

// NewMultiStnDataResult normalizes a MultiStnData result. Site order
// follows the payload.
//
// Rows carry no dates, so the record dates are rebuilt from the request's
// date span: record n of a site gets dates[n mod len(dates)]. This is
// wrong for groupby results, whose rows do not map one-to-one onto span
// dates.
func NewMultiStnDataResult(q Query) (*Result, error) {
	r, err := newDataResult(MultiStnData, q)
	if err != nil {
		return nil, err
	}
	dates, err := DateRange(q.Params)
	if err != nil {
		return nil, err
	}
	r.dates = dates

	sites, ok := toList(q.Result["data"])
	if !ok && q.Result["data"] != nil {
		return nil, &ResultError{Message: "data must be a list of sites"}
	}
	for _, item := range sites {
		site, ok := item.(map[string]any)
		if !ok {
			return nil, &ResultError{Message: fmt.Sprintf("invalid site entry %v", item)}
		}
		entry, _ := site["meta"].(map[string]any)
		uid, meta, err := extractID(entry, "uid")
		if err != nil {
			return nil, err
		}
		raw, hasData := site["data"]
		if hasData && len(dates) == 1 && !isSeries(raw, len(r.elems)) {
			// Single-date requests return a flat row per site.
			raw = []any{raw}
		}
		rows, err := dataRows(raw, false)
		if err != nil {
			return nil, err
		}
		r.addSite(uid)
		r.meta[uid] = meta
		r.data[uid] = rows
		r.smry[uid] = summary(site["smry"])
	}
	return r, nil
}

// isSeries reports whether a single-date data value is already a
// one-step series rather than a flat row of nElems values.
func isSeries(v any, nElems int) bool {
	list, ok := toList(v)
	if !ok || len(list) != 1 {
		return false
	}
	row, ok := toList(list[0])
	return ok && len(row) == nElems
}

func (r *Result) addSite(id SiteID) {
	if _, seen := r.meta[id]; !seen {
		r.sites = append(r.sites, id)
	}
}

// extractID returns the value of key as a SiteID and a copy of entry
// without it. The entry itself is left untouched.
func extractID(entry map[string]any, key string) (SiteID, map[string]any, error) {
	v, ok := entry[key]
	if !ok || v == nil {
		return "", nil, &ResultError{Message: "metadata does not contain " + key}
	}
	meta := make(map[string]any, len(entry))
	for k, val := range entry {
		if k != key {
			meta[k] = val
		}
	}
	return SiteID(fmt.Sprint(v)), meta, nil
}

func dataRows(raw any, dated bool) ([][]any, error) {
	if raw == nil {
		return [][]any{}, nil
	}
	list, ok := toList(raw)
	if !ok {
		return nil, &ResultError{Message: "data must be a list of rows"}
	}
	rows := make([][]any, 0, len(list))
	for _, item := range list {
		row, ok := toList(item)
		if !ok {
			return nil, &ResultError{Message: fmt.Sprintf("invalid data row %v", item)}
		}
		if dated && len(row) == 0 {
			return nil, &ResultError{Message: "data row has no date"}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func summary(raw any) []any {
	if list, ok := toList(raw); ok {
		return list
	}
	return []any{}
}

// toList converts any slice or array into []any.
func toList(v any) ([]any, bool) {
	switch l := v.(type) {
	case nil:
		return nil, false
	case []any:
		return l, true
	case string, json.Number:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// Kind returns the call the result came from.
func (r *Result) Kind() Kind { return r.kind }

// Elems returns the annotated element aliases.
func (r *Result) Elems() []string { return slices.Clone(r.elems) }

// Sites returns the site identifiers in payload order.
func (r *Result) Sites() []SiteID { return slices.Clone(r.sites) }

func (r *Result) Meta() map[SiteID]map[string]any { return r.meta }

func (r *Result) Data() map[SiteID][][]any { return r.data }

func (r *Result) Smry() map[SiteID][]any { return r.smry }

// Shape returns the (rows, cols) of a grid result, (0, 0) for other kinds.
func (r *Result) Shape() (rows, cols int) { return r.shape[0], r.shape[1] }

// Len returns the number of records. For groupby results this is the
// number of groups.
func (r *Result) Len() int {
	if r.kind == GridData {
		return r.shape[0] * r.shape[1] * r.steps
	}
	n := 0
	for _, rows := range r.data {
		n += len(rows)
	}
	return n
}

// Records iterates over all data records. The sequence can be ranged over
// any number of times.
func (r *Result) Records() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		switch r.kind {
		case StnData:
			for _, id := range r.sites {
				for _, row := range r.data[id] {
					if !yield(Record{Site: id, Date: fmt.Sprint(row[0]), Values: row[1:]}) {
						return
					}
				}
			}
		case MultiStnData:
			for _, id := range r.sites {
				for n, row := range r.data[id] {
					if !yield(Record{Site: id, Date: r.dateAt(n), Values: row}) {
						return
					}
				}
			}
		case GridData:
			for step := 0; step < r.steps; step++ {
				for _, id := range r.sites {
					row := r.data[id][step]
					if !yield(Record{Site: id, Date: fmt.Sprint(row[0]), Values: row[1:]}) {
						return
					}
				}
			}
		}
	}
}

func (r *Result) dateAt(n int) string {
	if len(r.dates) == 0 {
		return ""
	}
	return r.dates[n%len(r.dates)]
}

// MarshalJSON renders the normalized result.
func (r *Result) MarshalJSON() ([]byte, error) {
	out := struct {
		Kind  string                    `json:"kind"`
		Elems []string                  `json:"elems"`
		Sites []SiteID                  `json:"sites"`
		Meta  map[SiteID]map[string]any `json:"meta"`
		Data  map[SiteID][][]any        `json:"data,omitempty"`
		Smry  map[SiteID][]any          `json:"smry,omitempty"`
		Shape []int                     `json:"shape,omitempty"`
	}{
		Kind:  r.kind.String(),
		Elems: r.elems,
		Sites: r.sites,
		Meta:  r.meta,
		Data:  r.data,
		Smry:  r.smry,
	}
	if out.Elems == nil {
		out.Elems = []string{}
	}
	if r.kind == GridData {
		out.Shape = []int{r.shape[0], r.shape[1]}
	}
	return json.Marshal(out)
}
