package export

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/i474232898/acis-toolkit/internal/acis"
)

func TestWriteXLSX(t *testing.T) {
	records := []acis.Record{
		{Site: "17", Date: "2012-01-01", Values: []any{"30", []any{"72", "A"}}},
		{Site: "17", Date: "2012-01-02", Values: []any{"28", "60"}},
	}
	meta := map[acis.SiteID]map[string]any{
		"17": {"name": "OKLAHOMA CITY", "elev": json.Number("1285.0")},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, []string{"mint", "maxt"}, records, meta))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("records")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"site", "date", "mint", "maxt"},
		{"17", "2012-01-01", "30", "[72 A]"},
		{"17", "2012-01-02", "28", "60"},
	}, rows)

	sites, err := f.GetRows("sites")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"site", "elev", "name"},
		{"17", "1285.0", "OKLAHOMA CITY"},
	}, sites)
}
