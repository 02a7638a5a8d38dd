package acis

import "strconv"

// Annotate makes repeated names unique by appending a zero-based index.
// Indexes run in reverse, so the last occurrence of a name gets 0:
// (maxt, mint, maxt) becomes (maxt1, mint, maxt0). Unique names are kept
// as they are.
func Annotate(names []string) []string {
	counts := make(map[string]int, len(names))
	for _, name := range names {
		counts[name]++
	}
	out := make([]string, len(names))
	remaining := make(map[string]int, len(counts))
	for i := len(names) - 1; i >= 0; i-- {
		name := names[i]
		if counts[name] < 2 {
			out[i] = name
			continue
		}
		out[i] = name + strconv.Itoa(remaining[name])
		remaining[name]++
	}
	return out
}
