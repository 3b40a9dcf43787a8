package state

import (
	"maps"
	"slices"

	"ml_dashboard/pkg"
)

// Opt is an optional patch field. The zero value means "leave unchanged".
type Opt[T any] struct {
	Value   T
	Present bool
}

// Set marks v as present in a patch; Set of a zero value clears the field.
func Set[T any](v T) Opt[T] {
	return Opt[T]{Value: v, Present: true}
}

// Patch is a partial SessionState
type Patch struct {
	SessionID         Opt[string]
	ModelID           Opt[string]
	CSVData           Opt[[]pkg.Row]
	Schema            Opt[[]pkg.ColumnSchema]
	TargetColumn      Opt[string]
	Metrics           Opt[map[string]float64]
	Predictions       Opt[*pkg.PredictionResult]
	FeatureImportance Opt[[]pkg.FeatureImportance]
	Insights          Opt[[]pkg.Insight]
	Error             Opt[string]
}

// ErrorPatch sets only the user-visible error
func ErrorPatch(msg string) Patch {
	return Patch{Error: Set(msg)}
}

func apply[T any](dst *T, o Opt[T]) {
	if o.Present {
		*dst = o.Value
	}
}

// Merge overlays the present fields of p onto s. It performs no I/O.
func Merge(s pkg.SessionState, p Patch) pkg.SessionState {
	out := s
	apply(&out.SessionID, p.SessionID)
	apply(&out.ModelID, p.ModelID)
	apply(&out.CSVData, p.CSVData)
	apply(&out.Schema, p.Schema)
	apply(&out.TargetColumn, p.TargetColumn)
	apply(&out.Metrics, p.Metrics)
	apply(&out.Predictions, p.Predictions)
	apply(&out.FeatureImportance, p.FeatureImportance)
	apply(&out.Insights, p.Insights)
	apply(&out.Error, p.Error)
	return Clone(out)
}

// Clone copies the slices and maps of a state so the copy can be handed out
func Clone(s pkg.SessionState) pkg.SessionState {
	out := s
	if s.CSVData != nil {
		out.CSVData = make([]pkg.Row, len(s.CSVData))
		for i, r := range s.CSVData {
			out.CSVData[i] = r.Clone()
		}
	}
	if s.Schema != nil {
		out.Schema = make([]pkg.ColumnSchema, len(s.Schema))
		for i, c := range s.Schema {
			if c.Summary != nil {
				summary := *c.Summary
				c.Summary = &summary
			}
			out.Schema[i] = c
		}
	}
	out.Metrics = maps.Clone(s.Metrics)
	if s.Predictions != nil {
		p := *s.Predictions
		p.Predictions = slices.Clone(p.Predictions)
		out.Predictions = &p
	}
	out.FeatureImportance = slices.Clone(s.FeatureImportance)
	out.Insights = slices.Clone(s.Insights)
	return normalize(out)
}

// normalize keeps the always-present lists non-nil
func normalize(s pkg.SessionState) pkg.SessionState {
	if s.FeatureImportance == nil {
		s.FeatureImportance = []pkg.FeatureImportance{}
	}
	if s.Insights == nil {
		s.Insights = []pkg.Insight{}
	}
	return s
}
