package acis

import (
	"fmt"
	"regexp"
	"strconv"
)

var sidRegex = regexp.MustCompile(`^([^ ]*) (\d+)$`)

// SidTypes maps ACIS SID type codes to network names.
var SidTypes = map[int]string{
	1:  "WBAN",
	2:  "COOP",
	3:  "FAA",
	4:  "WMO",
	5:  "ICAO",
	6:  "GHCN",
	7:  "NWSLI",
	8:  "RCC",
	9:  "ThreadEx",
	10: "CoCoRaHS",
}

// SidsTable keys the identifiers from a station's "sids" metadata by
// network. Each SID is an identifier and its type code separated by a
// space, e.g. "13967 1".
func SidsTable(sids []string) (map[string]string, error) {
	table := make(map[string]string, len(sids))
	for _, sid := range sids {
		m := sidRegex.FindStringSubmatch(sid)
		if m == nil {
			return nil, &ParameterError{Param: "sids", Message: fmt.Sprintf("invalid SID %q", sid)}
		}
		code, _ := strconv.Atoi(m[2])
		network, ok := SidTypes[code]
		if !ok {
			return nil, &ParameterError{Param: "sids", Message: fmt.Sprintf("unknown SID type %s", m[2])}
		}
		table[network] = m[1]
	}
	return table, nil
}
