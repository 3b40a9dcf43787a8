package insights

import (
	"math"
	"testing"

	"ml_dashboard/pkg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractBasic(t *testing.T) {
	got := ExtractFeatureImportance([]pkg.Insight{
		{Insight: "Top features", Details: "age (0.42), income (0.31)"},
	})

	assert.Equal(t, []pkg.FeatureImportance{
		{Feature: "age", Importance: 0.42},
		{Feature: "income", Importance: 0.31},
	}, got)
}

func TestExtractFirstOccurrenceWins(t *testing.T) {
	got := ExtractFeatureImportance([]pkg.Insight{
		{Details: "age (0.42)"},
		{Details: "age (0.10), tenure(0.05)"},
	})

	assert.Equal(t, []pkg.FeatureImportance{
		{Feature: "age", Importance: 0.42},
		{Feature: "tenure", Importance: 0.05},
	}, got)
}

func TestExtractNoMatches(t *testing.T) {
	got := ExtractFeatureImportance([]pkg.Insight{{Details: "no numbers here"}})
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got = ExtractFeatureImportance(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestExtractIgnoresNonWordFeatures(t *testing.T) {
	got := ExtractFeatureImportance([]pkg.Insight{{Details: "credit-score (0.7)"}})

	// only the trailing word run is captured
	require.Len(t, got, 1)
	assert.Equal(t, "score", got[0].Feature)
}

func TestExtractNumericPrefix(t *testing.T) {
	got := ExtractFeatureImportance([]pkg.Insight{{Details: "version (1.2.3), ratio (.5), dots (..)"}})

	require.Len(t, got, 3)
	assert.Equal(t, 1.2, got[0].Importance)
	assert.Equal(t, 0.5, got[1].Importance)
	assert.Equal(t, "dots", got[2].Feature)
	assert.True(t, math.IsNaN(got[2].Importance))
}

func TestTopN(t *testing.T) {
	items := []pkg.FeatureImportance{
		{Feature: "a", Importance: 0.1},
		{Feature: "b", Importance: math.NaN()},
		{Feature: "c", Importance: 0.9},
		{Feature: "d", Importance: 0.5},
	}

	top := TopN(items, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "c", top[0].Feature)
	assert.Equal(t, "d", top[1].Feature)

	all := TopN(items, 0)
	require.Len(t, all, 4)
	assert.Equal(t, "b", all[3].Feature)
	assert.Equal(t, "a", items[0].Feature)
}
