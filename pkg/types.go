package pkg

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Dashboard core types shared by the state store, flows and backend gateway

// Row is one record of a tabular dataset: column name -> raw cell value.
// Column order is kept so that JSON encoding and filtering follow the
// order of the source header.
type Row struct {
	keys   []string
	values map[string]string
}

// NewRow builds a row from parallel key/value slices. Missing values become "".
func NewRow(keys []string, values []string) Row {
	r := Row{}
	for i, k := range keys {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		r.Set(k, v)
	}
	return r
}

// Set assigns a value, appending the column if it is new.
func (r *Row) Set(key, value string) {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value for a column and whether the column is present.
func (r Row) Get(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the columns in insertion order.
func (r Row) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of columns.
func (r Row) Len() int {
	return len(r.keys)
}

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	c := Row{}
	for _, k := range r.keys {
		c.Set(k, r.values[k])
	}
	return c
}

// MarshalJSON encodes the row as an object with keys in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object keeping the key order. Scalar values are
// kept in their textual form; null becomes "".
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("row must be a JSON object")
	}

	*r = Row{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("invalid row key: %v", keyTok)
		}

		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("invalid value for column %q: %w", key, err)
		}
		switch v := raw.(type) {
		case nil:
			r.Set(key, "")
		case string:
			r.Set(key, v)
		case json.Number:
			r.Set(key, v.String())
		case bool:
			r.Set(key, strconv.FormatBool(v))
		default:
			return fmt.Errorf("column %q holds a non-scalar value", key)
		}
	}

	_, err = dec.Token()
	return err
}

// ColumnSchema is the per-column profile computed at upload time
type ColumnSchema struct {
	Name         string          `json:"name"`
	Type         string          `json:"type"`
	UniqueCount  int             `json:"uniqueCount"`
	MissingCount int             `json:"missingCount"`
	Summary      *NumericSummary `json:"summary,omitempty"`
}

// NumericSummary describes a numeric column
type NumericSummary struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"stdDev"`
}

// PredictionResult holds the output of a predict call
type PredictionResult struct {
	PredictionID string `json:"predictionId"`
	Predictions  []any  `json:"predictions"`
}

// FeatureImportance is one chartable (feature, weight) pair
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

type featureImportanceJSON struct {
	Feature    string   `json:"feature"`
	Importance *float64 `json:"importance"`
}

// MarshalJSON writes non-finite importances as null.
func (f FeatureImportance) MarshalJSON() ([]byte, error) {
	out := featureImportanceJSON{Feature: f.Feature}
	if !math.IsNaN(f.Importance) && !math.IsInf(f.Importance, 0) {
		v := f.Importance
		out.Importance = &v
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a null importance back as NaN.
func (f *FeatureImportance) UnmarshalJSON(data []byte) error {
	var in featureImportanceJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	f.Feature = in.Feature
	if in.Importance == nil {
		f.Importance = math.NaN()
	} else {
		f.Importance = *in.Importance
	}
	return nil
}

// Insight is a free-text explanation about a trained model
type Insight struct {
	Insight string `json:"insight"`
	Details string `json:"details"`
}

// ModelRecord is one entry of the model registry
type ModelRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SessionState is the dashboard's single mutable record
type SessionState struct {
	SessionID         string              `json:"sessionId,omitempty"`
	ModelID           string              `json:"modelId,omitempty"`
	CSVData           []Row               `json:"csvData,omitempty"`
	Schema            []ColumnSchema      `json:"schema,omitempty"`
	TargetColumn      string              `json:"targetColumn"`
	Metrics           map[string]float64  `json:"metrics,omitempty"`
	Predictions       *PredictionResult   `json:"predictions,omitempty"`
	FeatureImportance []FeatureImportance `json:"featureImportance"`
	Insights          []Insight           `json:"insights"`
	Error             string              `json:"error"`
}

// EmptySessionState returns the canonical empty state
func EmptySessionState() SessionState {
	return SessionState{
		FeatureImportance: []FeatureImportance{},
		Insights:          []Insight{},
	}
}

// HasColumn reports whether the schema knows the given column.
func (s SessionState) HasColumn(name string) bool {
	for _, c := range s.Schema {
		if c.Name == name {
			return true
		}
	}
	return false
}

// ----------------------------------------------------
// ================ Backend wire types ================

// UploadResponse is returned by POST /upload/
type UploadResponse struct {
	SessionID string `json:"session_id"`
}

// TrainRequest is the body of POST /train/{sessionId}/
type TrainRequest struct {
	TargetColumn string `json:"target_column"`
}

// TrainResponse is returned by POST /train/{sessionId}/
type TrainResponse struct {
	ModelID string             `json:"model_id"`
	Metrics map[string]float64 `json:"metrics"`
}

// PredictRequest is the body of POST /predict/{modelId}/
type PredictRequest struct {
	InputData []Row `json:"input_data"`
}

// PredictResponse is returned by POST /predict/{modelId}/
type PredictResponse struct {
	PredictionID string `json:"prediction_id"`
	Predictions  []any  `json:"predictions"`
}

// SummaryResponse is returned by GET /summary/{modelId}/
type SummaryResponse struct {
	Insights []Insight `json:"insights"`
}

// ErrorResponse is the optional error body of a failed backend call
type ErrorResponse struct {
	Error string `json:"error"`
}
