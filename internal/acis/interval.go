package acis

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Interval is a calendar step. At most one component is non-zero once
// resolved.
type Interval struct {
	Years  int `json:"years"`
	Months int `json:"months"`
	Days   int `json:"days"`
}

var (
	Daily   = Interval{Days: 1}
	Monthly = Interval{Months: 1}
	Yearly  = Interval{Years: 1}
)

var intervalNames = map[string]Interval{
	"dly": Daily,
	"mly": Monthly,
	"yly": Yearly,
}

// ResolveInterval normalizes an interval given as a name ("dly", "mly",
// "yly") or as a (years, months, days) sequence. For a sequence only the
// least significant non-zero component is kept.
func ResolveInterval(value any) (Interval, error) {
	switch v := value.(type) {
	case Interval:
		return normalizeInterval(value, v.Years, v.Months, v.Days)
	case string:
		if iv, ok := intervalNames[strings.ToLower(strings.TrimSpace(v))]; ok {
			return iv, nil
		}
		return Interval{}, &InvalidIntervalError{Value: value, Reason: "unknown interval name"}
	case [3]int:
		return normalizeInterval(value, v[0], v[1], v[2])
	case []int:
		if len(v) != 3 {
			return Interval{}, &InvalidIntervalError{Value: value, Reason: "need (years, months, days)"}
		}
		return normalizeInterval(value, v[0], v[1], v[2])
	case []any:
		if len(v) != 3 {
			return Interval{}, &InvalidIntervalError{Value: value, Reason: "need (years, months, days)"}
		}
		var parts [3]int
		for i, x := range v {
			n, ok := toInt(x)
			if !ok {
				return Interval{}, &InvalidIntervalError{Value: value, Reason: "components must be integers"}
			}
			parts[i] = n
		}
		return normalizeInterval(value, parts[0], parts[1], parts[2])
	case []float64:
		if len(v) != 3 {
			return Interval{}, &InvalidIntervalError{Value: value, Reason: "need (years, months, days)"}
		}
		return ResolveInterval([]any{v[0], v[1], v[2]})
	case []string:
		if len(v) != 3 {
			return Interval{}, &InvalidIntervalError{Value: value, Reason: "need (years, months, days)"}
		}
		return ResolveInterval([]any{v[0], v[1], v[2]})
	}
	// Any other slice or array kind, e.g. []int64 or [3]uint8.
	if list, ok := toList(value); ok {
		if len(list) != 3 {
			return Interval{}, &InvalidIntervalError{Value: value, Reason: "need (years, months, days)"}
		}
		return ResolveInterval(list)
	}
	return Interval{}, &InvalidIntervalError{Value: value, Reason: "unsupported interval type"}
}

func normalizeInterval(value any, yr, mo, da int) (Interval, error) {
	if yr < 0 || mo < 0 || da < 0 {
		return Interval{}, &InvalidIntervalError{Value: value, Reason: "components must not be negative"}
	}
	if da > 0 {
		mo = 0
	}
	if mo > 0 || da > 0 {
		yr = 0
	}
	if yr == 0 && mo == 0 && da == 0 {
		return Interval{}, &InvalidIntervalError{Value: value, Reason: "zero-length step"}
	}
	return Interval{Years: yr, Months: mo, Days: da}, nil
}

// Name returns "dly", "mly" or "yly" for the named intervals.
func (iv Interval) Name() (string, bool) {
	for name, named := range intervalNames {
		if named == iv {
			return name, true
		}
	}
	return "", false
}

// Param renders the interval the way the web services expect it.
func (iv Interval) Param() any {
	if name, ok := iv.Name(); ok {
		return name
	}
	return []int{iv.Years, iv.Months, iv.Days}
}

func (iv Interval) String() string {
	if name, ok := iv.Name(); ok {
		return name
	}
	return strconv.Itoa(iv.Years) + "," + strconv.Itoa(iv.Months) + "," + strconv.Itoa(iv.Days)
}

func toInt(x any) (int, bool) {
	switch n := x.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float32:
		return toInt(float64(n))
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return i, true
	}
	return 0, false
}
