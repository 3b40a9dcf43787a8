package render

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"ml_dashboard/internal/insights"
	"ml_dashboard/pkg"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

const barWidth = 30

func panel(title, body string) string {
	return PanelStyle.Render(TitleStyle.Render(title) + "\n" + body)
}

func field(label, value string) string {
	if value == "" {
		value = MutedStyle.Render("not set")
	} else {
		value = ValueStyle.Render(value)
	}
	return LabelStyle.Render(label) + value
}

// Status shows the identifiers and the last error of the session
func Status(s pkg.SessionState) string {
	lines := []string{
		field("Session", s.SessionID),
		field("Model", s.ModelID),
		field("Target", s.TargetColumn),
		field("Rows", rowCount(s)),
	}
	if s.Error != "" {
		lines = append(lines, ErrorStyle.Render("Error: "+s.Error))
	}
	return panel("Session", strings.Join(lines, "\n"))
}

func rowCount(s pkg.SessionState) string {
	if s.CSVData == nil {
		return ""
	}
	return strconv.Itoa(len(s.CSVData))
}

// Schema renders the column profile as a table
func Schema(schema []pkg.ColumnSchema) string {
	if len(schema) == 0 {
		return panel("Schema and Profiling", MutedStyle.Render("No dataset uploaded."))
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Column", "Type", "Unique", "Missing", "Mean", "Min", "Max")
	for _, c := range schema {
		mean, minV, maxV := "", "", ""
		if c.Summary != nil {
			mean = formatFloat(c.Summary.Mean)
			minV = formatFloat(c.Summary.Min)
			maxV = formatFloat(c.Summary.Max)
		}
		t.Row(c.Name, c.Type, strconv.Itoa(c.UniqueCount), strconv.Itoa(c.MissingCount), mean, minV, maxV)
	}
	return panel("Schema and Profiling", t.Render())
}

// Metrics lists training metrics sorted by name
func Metrics(metrics map[string]float64) string {
	if len(metrics) == 0 {
		return panel("Metrics", MutedStyle.Render("No model trained."))
	}
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, field(name, formatFloat(metrics[name])))
	}
	return panel("Metrics", strings.Join(lines, "\n"))
}

// Importance draws a horizontal bar per feature, highest first. topN <= 0
// shows every feature.
func Importance(items []pkg.FeatureImportance, topN int) string {
	if len(items) == 0 {
		return panel("Feature Importance", MutedStyle.Render("No feature importance available."))
	}
	top := insights.TopN(items, topN)

	maxV, width := 0.0, 0
	for _, it := range top {
		if !math.IsNaN(it.Importance) && it.Importance > maxV {
			maxV = it.Importance
		}
		width = max(width, lipgloss.Width(it.Feature))
	}

	lines := make([]string, 0, len(top))
	for _, it := range top {
		name := it.Feature + strings.Repeat(" ", width-lipgloss.Width(it.Feature))
		if math.IsNaN(it.Importance) {
			lines = append(lines, name+"  "+MutedStyle.Render("n/a"))
			continue
		}
		n := 0
		if maxV > 0 {
			n = int(math.Round(it.Importance / maxV * barWidth))
		}
		lines = append(lines, fmt.Sprintf("%s  %s %s", name, BarStyle.Render(strings.Repeat("█", n)), formatFloat(it.Importance)))
	}
	return panel("Feature Importance", strings.Join(lines, "\n"))
}

// Insights prints each insight with its details
func Insights(items []pkg.Insight) string {
	if len(items) == 0 {
		return panel("Insights", MutedStyle.Render("No insights loaded."))
	}
	blocks := make([]string, 0, len(items))
	for _, in := range items {
		blocks = append(blocks, ValueStyle.Bold(true).Render(in.Insight)+"\n"+in.Details)
	}
	return panel("Insights", strings.Join(blocks, "\n\n"))
}

// Predictions lists the prediction values by row
func Predictions(p *pkg.PredictionResult) string {
	if p == nil {
		return panel("Predictions", MutedStyle.Render("No predictions yet."))
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Row", "Prediction")
	for i, v := range p.Predictions {
		t.Row(strconv.Itoa(i+1), fmt.Sprint(v))
	}
	return panel("Predictions "+p.PredictionID, t.Render())
}

// Models lists the registry in training order
func Models(models []pkg.ModelRecord) string {
	if len(models) == 0 {
		return panel("Models", MutedStyle.Render("No models trained."))
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "ID", "Name")
	for i, m := range models {
		t.Row(strconv.Itoa(i+1), m.ID, m.Name)
	}
	return panel("Models", t.Render())
}

// Dashboard stacks every panel that has something to show
func Dashboard(s pkg.SessionState, models []pkg.ModelRecord, topN int) string {
	parts := []string{Status(s)}
	if s.Schema != nil {
		parts = append(parts, Schema(s.Schema))
	}
	if s.Metrics != nil {
		parts = append(parts, Metrics(s.Metrics))
	}
	if len(s.FeatureImportance) > 0 {
		parts = append(parts, Importance(s.FeatureImportance, topN))
	}
	if len(s.Insights) > 0 {
		parts = append(parts, Insights(s.Insights))
	}
	if s.Predictions != nil {
		parts = append(parts, Predictions(s.Predictions))
	}
	if len(models) > 0 {
		parts = append(parts, Models(models))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// Success formats a confirmation line
func Success(msg string) string {
	return SuccessStyle.Render(msg)
}

// Failure formats an error line
func Failure(msg string) string {
	return ErrorStyle.Render(msg)
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}
