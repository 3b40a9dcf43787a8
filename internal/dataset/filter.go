package dataset

import (
	"slices"

	"ml_dashboard/pkg"
)

// DefaultHighCardinalityRatio is the share of distinct values above which
// a column is treated as an identifier and dropped from prediction input.
const DefaultHighCardinalityRatio = 0.5

// FilterForPrediction drops the target column and every high-cardinality
// column from rows. Columns are taken from the first row. A column is
// high-cardinality when it has more than ratio*len(rows) distinct values.
// The excluded column names are returned with the target first.
func FilterForPrediction(rows []pkg.Row, target string, ratio float64) ([]pkg.Row, []string) {
	excluded := []string{target}
	if len(rows) == 0 {
		return []pkg.Row{}, excluded
	}

	columns := rows[0].Keys()
	threshold := ratio * float64(len(rows))
	for _, col := range columns {
		if col == target {
			continue
		}
		distinct := make(map[string]struct{})
		for _, r := range rows {
			distinct[cell(r, col)] = struct{}{}
		}
		if float64(len(distinct)) > threshold {
			excluded = append(excluded, col)
		}
	}

	out := make([]pkg.Row, 0, len(rows))
	for _, r := range rows {
		filtered := pkg.Row{}
		for _, col := range columns {
			if slices.Contains(excluded, col) {
				continue
			}
			if v, ok := r.Get(col); ok {
				filtered.Set(col, v)
			}
		}
		out = append(out, filtered)
	}
	return out, excluded
}
