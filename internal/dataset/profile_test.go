package dataset

import (
	"math"
	"strings"
	"testing"

	"ml_dashboard/pkg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfile(t *testing.T) {
	cols := []string{"age", "active", "city", "blank"}
	rows := []pkg.Row{
		pkg.NewRow(cols, []string{"10", "true", "Oslo", ""}),
		pkg.NewRow(cols, []string{"20", "FALSE", "Oslo", ""}),
		pkg.NewRow(cols, []string{"", "true", "Lima", ""}),
		pkg.NewRow(cols[:1], []string{"30"}),
	}

	schema := Profile(cols, rows)
	require.Len(t, schema, 4)

	age := schema[0]
	assert.Equal(t, TypeNumber, age.Type)
	assert.Equal(t, 4, age.UniqueCount)
	assert.Equal(t, 1, age.MissingCount)
	require.NotNil(t, age.Summary)
	assert.Equal(t, 10.0, age.Summary.Min)
	assert.Equal(t, 30.0, age.Summary.Max)
	assert.Equal(t, 20.0, age.Summary.Mean)
	assert.Equal(t, 20.0, age.Summary.Median)

	active := schema[1]
	assert.Equal(t, TypeBoolean, active.Type)
	assert.Equal(t, 1, active.MissingCount, "absent cell counts as missing")
	assert.Equal(t, 3, active.UniqueCount)
	assert.Nil(t, active.Summary)

	assert.Equal(t, TypeString, schema[2].Type)
	assert.Equal(t, TypeEmpty, schema[3].Type)
	assert.Equal(t, 4, schema[3].MissingCount)
	assert.Equal(t, 2, schema[3].UniqueCount)
}

func TestProfileNonFiniteNumbers(t *testing.T) {
	table, err := ParseCSV(strings.NewReader(
		"score,gaps,hex,huge\n"+
			"1,NaN,0x1p-2,1e400\n"+
			"NaN,nan,0x1p1,2\n"+
			"inf,,0x1p0,3\n"+
			"3,Infinity,0x1p-1,4\n"+
			"-Infinity,NaN,0x1p0,5\n"), 0)
	require.NoError(t, err)

	schema := Profile(table.Columns, table.Rows)
	require.Len(t, schema, 4)

	score := schema[0]
	assert.Equal(t, TypeNumber, score.Type)
	require.NotNil(t, score.Summary)
	assert.Equal(t, 1.0, score.Summary.Min)
	assert.Equal(t, 3.0, score.Summary.Max)
	assert.Equal(t, 2.0, score.Summary.Mean)
	assert.Equal(t, 2.0, score.Summary.Median)
	assert.Equal(t, 1.0, score.Summary.StdDev)

	gaps := schema[1]
	assert.Equal(t, TypeNumber, gaps.Type)
	assert.Equal(t, 1, gaps.MissingCount)
	assert.Nil(t, gaps.Summary, "no finite values")

	hex := schema[2]
	assert.Equal(t, TypeNumber, hex.Type)
	require.NotNil(t, hex.Summary)
	assert.Equal(t, 0.25, hex.Summary.Min)
	assert.Equal(t, 2.0, hex.Summary.Max)

	// out of range for float64
	assert.Equal(t, TypeString, schema[3].Type)
	assert.Nil(t, schema[3].Summary)

	for _, col := range schema {
		if col.Summary == nil {
			continue
		}
		for _, v := range []float64{col.Summary.Min, col.Summary.Max, col.Summary.Mean, col.Summary.Median, col.Summary.StdDev} {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "column %s", col.Name)
		}
	}
}
