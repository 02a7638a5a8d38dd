package acis

import (
	"fmt"
	"maps"
	"strconv"
	"strings"
)

// Element is one requested element, selected by name ("maxt") or by its
// var-major code (vX).
type Element struct {
	Name    string
	VX      int
	Options map[string]any
}

// NewElement builds an Element from a name, a vX code (int or digit string)
// or a decoded element object.
func NewElement(v any) (Element, error) {
	switch e := v.(type) {
	case Element:
		return e, nil
	case string:
		return elementFromName(e)
	case map[string]any:
		opts := make(map[string]any, len(e))
		for k, val := range e {
			if k == "name" || k == "vX" {
				continue
			}
			opts[k] = val
		}
		if name, ok := e["name"]; ok {
			s, ok := name.(string)
			if !ok {
				return Element{}, &ParameterError{Param: "elems", Message: fmt.Sprintf("element name must be a string, got %T", name)}
			}
			el, err := elementFromName(s)
			if err != nil {
				return Element{}, err
			}
			el.Options = opts
			return el, nil
		}
		if code, ok := e["vX"]; ok {
			n, ok := toInt(code)
			if !ok || n <= 0 {
				return Element{}, &ParameterError{Param: "elems", Message: fmt.Sprintf("invalid vX %v", code)}
			}
			return Element{VX: n, Options: opts}, nil
		}
		return Element{}, &ParameterError{Param: "elems", Message: "element needs a name or vX"}
	}
	if n, ok := toInt(v); ok && n > 0 {
		return Element{VX: n}, nil
	}
	return Element{}, &ParameterError{Param: "elems", Message: fmt.Sprintf("unsupported element %v", v)}
}

func elementFromName(name string) (Element, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Element{}, &ParameterError{Param: "elems", Message: "empty element name"}
	}
	if n, err := strconv.Atoi(name); err == nil {
		if n <= 0 {
			return Element{}, &ParameterError{Param: "elems", Message: fmt.Sprintf("invalid vX %d", n)}
		}
		return Element{VX: n}, nil
	}
	return Element{Name: strings.ToLower(name)}, nil
}

// Alias is the element's display name before duplicates are annotated.
func (e Element) Alias() string {
	if e.Name != "" {
		return e.Name
	}
	return "vx" + strconv.Itoa(e.VX)
}

// Param renders the element as a request object.
func (e Element) Param() map[string]any {
	m := make(map[string]any, len(e.Options)+1)
	maps.Copy(m, e.Options)
	if e.Name != "" {
		m["name"] = e.Name
	} else {
		m["vX"] = e.VX
	}
	return m
}

// ElementAliases returns the annotated aliases of the elements in params,
// or nil when params carry no elements.
func ElementAliases(params Params) ([]string, error) {
	list, ok := params.elementList()
	if !ok {
		return nil, nil
	}
	names := make([]string, 0, len(list))
	for _, v := range list {
		el, err := NewElement(v)
		if err != nil {
			return nil, err
		}
		names = append(names, el.Alias())
	}
	return Annotate(names), nil
}
