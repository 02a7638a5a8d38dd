package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/i474232898/acis-toolkit/internal/acis"
)

const (
	recordsSheet = "records"
	sitesSheet   = "sites"
)

// WriteXLSX writes normalized records to a workbook with a "records" sheet
// (site, date, one column per element alias) and a "sites" sheet listing
// the metadata of every site.
func WriteXLSX(w io.Writer, elems []string, records []acis.Record, meta map[acis.SiteID]map[string]any) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", recordsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(sitesSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	header := make([]any, 0, len(elems)+2)
	header = append(header, "site", "date")
	for _, e := range elems {
		header = append(header, e)
	}
	if err := f.SetSheetRow(recordsSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, rec := range records {
		row := make([]any, 0, len(rec.Values)+2)
		row = append(row, string(rec.Site), rec.Date)
		for _, v := range rec.Values {
			row = append(row, cellValue(v))
		}
		if err := f.SetSheetRow(recordsSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}

	if err := writeSites(f, meta); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSites(f *excelize.File, meta map[acis.SiteID]map[string]any) error {
	sites := make([]string, 0, len(meta))
	fieldSet := map[string]bool{}
	for id, m := range meta {
		sites = append(sites, string(id))
		for k := range m {
			fieldSet[k] = true
		}
	}
	sort.Strings(sites)
	fields := make([]string, 0, len(fieldSet))
	for k := range fieldSet {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	header := []any{"site"}
	for _, k := range fields {
		header = append(header, k)
	}
	if err := f.SetSheetRow(sitesSheet, "A1", &header); err != nil {
		return fmt.Errorf("write sites header: %w", err)
	}
	for i, id := range sites {
		row := []any{id}
		for _, k := range fields {
			row = append(row, cellValue(meta[acis.SiteID(id)][k]))
		}
		if err := f.SetSheetRow(sitesSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return fmt.Errorf("write site %s: %w", id, err)
		}
	}
	return nil
}

// cellValue flattens values excelize cannot store natively, such as
// [value, flag] pairs and json.Number.
func cellValue(v any) any {
	switch x := v.(type) {
	case nil:
		return ""
	case string, bool, int, int64, float64:
		return x
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}
