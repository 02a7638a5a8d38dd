package acis

import "fmt"

// NewGridDataResult normalizes a GridData result. Rasters are split into
// cells keyed by GridSite(row, col); a point ("loc") query has scalar
// values and a 1x1 shape. Records run date by date, row-major within a
// date.
func NewGridDataResult(q Query) (*Result, error) {
	r, err := newResult(GridData, q)
	if err != nil {
		return nil, err
	}
	days, err := dataRows(q.Result["data"], true)
	if err != nil {
		return nil, err
	}
	if len(days) == 0 {
		return r, nil
	}

	point := false
	if len(days[0]) < 2 {
		return nil, &ResultError{Message: "grid data row has no values"}
	}
	if raster, ok := toList(days[0][1]); ok {
		if len(raster) == 0 {
			return nil, &ResultError{Message: "empty grid raster"}
		}
		first, ok := toList(raster[0])
		if !ok {
			return nil, &ResultError{Message: "grid raster must be two-dimensional"}
		}
		r.shape = [2]int{len(raster), len(first)}
	} else {
		point = true
		r.shape = [2]int{1, 1}
	}
	r.steps = len(days)

	rows, cols := r.shape[0], r.shape[1]
	for j := 0; j < rows; j++ {
		for i := 0; i < cols; i++ {
			id := GridSite(j, i)
			r.sites = append(r.sites, id)

			series := make([][]any, 0, len(days))
			for _, day := range days {
				rec := make([]any, 0, len(day))
				rec = append(rec, day[0])
				for _, v := range day[1:] {
					cell, err := cellValue(v, j, i, point)
					if err != nil {
						return nil, err
					}
					rec = append(rec, cell)
				}
				series = append(series, rec)
			}
			r.data[id] = series

			meta := map[string]any{}
			if raw, ok := q.Result["meta"].(map[string]any); ok {
				for k, v := range raw {
					cell, err := cellValue(v, j, i, point)
					if err != nil {
						return nil, err
					}
					meta[k] = cell
				}
			}
			r.meta[id] = meta

			smry := []any{}
			if raw, ok := toList(q.Result["smry"]); ok {
				for _, v := range raw {
					cell, err := cellValue(v, j, i, point)
					if err != nil {
						return nil, err
					}
					smry = append(smry, cell)
				}
			}
			r.smry[id] = smry
		}
	}
	return r, nil
}

func cellValue(v any, row, col int, point bool) (any, error) {
	if point {
		return v, nil
	}
	raster, ok := toList(v)
	if !ok || row >= len(raster) {
		return nil, &ResultError{Message: fmt.Sprintf("grid raster has no row %d", row)}
	}
	line, ok := toList(raster[row])
	if !ok || col >= len(line) {
		return nil, &ResultError{Message: fmt.Sprintf("grid raster has no cell %d,%d", row, col)}
	}
	return line[col], nil
}
