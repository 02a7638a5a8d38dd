package acis

import (
	"fmt"
	"strings"
)

// Params are the call parameters sent to the web services as JSON.
type Params map[string]any

// Clone returns a shallow copy of p with the element list copied as well.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	if elems, ok := p["elems"].([]any); ok {
		copied := make([]any, len(elems))
		for i, e := range elems {
			if m, ok := e.(map[string]any); ok {
				cm := make(map[string]any, len(m))
				for k, v := range m {
					cm[k] = v
				}
				copied[i] = cm
				continue
			}
			copied[i] = e
		}
		out["elems"] = copied
	}
	return out
}

func (p Params) stringValue(key string) (string, bool, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", true, &ParameterError{Param: key, Message: fmt.Sprintf("expected a string, got %T", v)}
	}
	return s, true, nil
}

// elementList returns the requested elements as a generic list. A
// comma-separated string is split into names.
func (p Params) elementList() ([]any, bool) {
	switch v := p["elems"].(type) {
	case nil:
		return nil, false
	case []any:
		return v, true
	case []map[string]any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = e
		}
		return out, true
	case []string:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = e
		}
		return out, true
	case []Element:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = e.Param()
		}
		return out, true
	case string:
		var out []any
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				out = append(out, name)
			}
		}
		return out, true
	}
	return nil, false
}
