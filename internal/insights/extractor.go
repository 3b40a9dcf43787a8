package insights

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"ml_dashboard/pkg"
)

// importancePattern matches "feature (0.42)". Feature names are limited to
// word characters.
var importancePattern = regexp.MustCompile(`(\w+)\s*\(([\d.]+)\)`)

// ExtractFeatureImportance mines (feature, importance) pairs from the
// details of each insight. The first occurrence of a feature wins. When no
// pair survives and insights exist, every match in the first insight is
// returned without de-duplication.
func ExtractFeatureImportance(insights []pkg.Insight) []pkg.FeatureImportance {
	out := []pkg.FeatureImportance{}
	seen := make(map[string]struct{})

	for _, in := range insights {
		for _, m := range importancePattern.FindAllStringSubmatch(in.Details, -1) {
			if _, dup := seen[m[1]]; dup {
				continue
			}
			seen[m[1]] = struct{}{}
			out = append(out, pkg.FeatureImportance{Feature: m[1], Importance: parseImportance(m[2])})
		}
	}

	if len(out) == 0 && len(insights) > 0 {
		for _, m := range importancePattern.FindAllStringSubmatch(insights[0].Details, -1) {
			out = append(out, pkg.FeatureImportance{Feature: m[1], Importance: parseImportance(m[2])})
		}
	}
	return out
}

// parseImportance reads the longest numeric prefix, so "1.2.3" is 1.2.
// A capture with no digits yields NaN.
func parseImportance(s string) float64 {
	if first := strings.IndexByte(s, '.'); first >= 0 {
		if second := strings.IndexByte(s[first+1:], '.'); second >= 0 {
			s = s[:first+1+second]
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// TopN returns the n highest importances, NaN last. n <= 0 keeps all.
// The input is not modified.
func TopN(items []pkg.FeatureImportance, n int) []pkg.FeatureImportance {
	sorted := make([]pkg.FeatureImportance, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Importance, sorted[j].Importance
		if math.IsNaN(a) {
			return false
		}
		if math.IsNaN(b) {
			return true
		}
		return a > b
	})
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
