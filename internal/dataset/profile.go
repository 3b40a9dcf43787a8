package dataset

import (
	"math"
	"strconv"
	"strings"

	"ml_dashboard/pkg"

	"github.com/montanaflynn/stats"
)

// Column types reported in the schema
const (
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeString  = "string"
	TypeEmpty   = "empty"
)

// absentCell stands in for a cell the row does not have. It cannot collide
// with real CSV text.
const absentCell = "\x00absent"

func cell(r pkg.Row, col string) string {
	v, ok := r.Get(col)
	if !ok {
		return absentCell
	}
	return v
}

// Profile computes the schema of the given columns over rows
func Profile(columns []string, rows []pkg.Row) []pkg.ColumnSchema {
	schema := make([]pkg.ColumnSchema, 0, len(columns))
	for _, col := range columns {
		schema = append(schema, profileColumn(col, rows))
	}
	return schema
}

func profileColumn(col string, rows []pkg.Row) pkg.ColumnSchema {
	out := pkg.ColumnSchema{Name: col}
	distinct := make(map[string]struct{})
	var values []string

	for _, r := range rows {
		v := cell(r, col)
		distinct[v] = struct{}{}
		if v == absentCell || v == "" {
			out.MissingCount++
			continue
		}
		values = append(values, v)
	}
	out.UniqueCount = len(distinct)
	out.Type = inferType(values)

	if out.Type == TypeNumber {
		out.Summary = summarize(values)
	}
	return out
}

func inferType(values []string) string {
	if len(values) == 0 {
		return TypeEmpty
	}
	numeric, boolean := true, true
	for _, v := range values {
		v = strings.TrimSpace(v)
		if numeric {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				numeric = false
			}
		}
		if boolean {
			lv := strings.ToLower(v)
			if lv != "true" && lv != "false" {
				boolean = false
			}
		}
		if !numeric && !boolean {
			return TypeString
		}
	}
	if numeric {
		return TypeNumber
	}
	return TypeBoolean
}

// summarize describes the finite values only. NaN and Inf markers keep the
// column numeric but never reach the summary; a column without finite values
// has no summary.
func summarize(values []string) *pkg.NumericSummary {
	data := make(stats.Float64Data, 0, len(values))
	for _, v := range values {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		data = append(data, f)
	}

	mean, err := data.Mean()
	if err != nil {
		return nil
	}
	median, err := data.Median()
	if err != nil {
		return nil
	}
	stdDev, err := data.StandardDeviation()
	if err != nil {
		return nil
	}
	minV, err := data.Min()
	if err != nil {
		return nil
	}
	maxV, err := data.Max()
	if err != nil {
		return nil
	}

	return &pkg.NumericSummary{
		Min:    minV,
		Max:    maxV,
		Mean:   mean,
		Median: median,
		StdDev: stdDev,
	}
}
