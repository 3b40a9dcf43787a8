package server

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"ml_dashboard/internal/config"
	"ml_dashboard/internal/nodes"
	"ml_dashboard/internal/state"
	"ml_dashboard/internal/storage"
	"ml_dashboard/pkg"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "ml_dashboard/internal/errors"
)

const salesCSV = "region,units,closed\n" +
	"north,12,yes\n" +
	"south,7,no\n" +
	"north,3,no\n"

type stubBackend struct {
	trainErr error
	rows     []pkg.Row
}

func (b *stubBackend) Upload(_ context.Context, _ string, _ []byte) (*pkg.UploadResponse, error) {
	return &pkg.UploadResponse{SessionID: "s-1"}, nil
}

func (b *stubBackend) Train(_ context.Context, _, _ string) (*pkg.TrainResponse, error) {
	if b.trainErr != nil {
		return nil, b.trainErr
	}
	return &pkg.TrainResponse{ModelID: "m-1", Metrics: map[string]float64{"accuracy": 0.9}}, nil
}

func (b *stubBackend) Predict(_ context.Context, _ string, rows []pkg.Row) (*pkg.PredictResponse, error) {
	b.rows = rows
	return &pkg.PredictResponse{PredictionID: "p-1", Predictions: []any{"yes"}}, nil
}

func (b *stubBackend) Summary(_ context.Context, _ string) (*pkg.SummaryResponse, error) {
	return &pkg.SummaryResponse{Insights: []pkg.Insight{
		{Insight: "Top drivers", Details: "units (0.7), region (0.2)"},
	}}, nil
}

func newTestServer(t *testing.T) (*Server, *stubBackend) {
	t.Helper()
	ctx := context.Background()
	mem := storage.NewMemoryStorage(0)
	backend := &stubBackend{}

	yamlCfg, err := config.LoadConfig(t.TempDir() + "/absent.yaml")
	require.NoError(t, err)

	dash, err := nodes.NewDashboard(ctx, nodes.Deps{
		Store:    state.NewStore(ctx, mem, "state", zerolog.Nop()),
		Registry: state.NewRegistry(ctx, mem, "models", zerolog.Nop()),
		Backend:  backend,
		Config:   config.BuildCoreConfig(yamlCfg).Dashboard,
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)
	return New(dash, zerolog.Nop()), backend
}

func multipartBody(t *testing.T, name, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func do(t *testing.T, s *Server, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) pkg.SessionState {
	t.Helper()
	var st pkg.SessionState
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &st))
	return st
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp pkg.ErrorResponse
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func uploadSales(t *testing.T, s *Server) {
	t.Helper()
	body, ct := multipartBody(t, "sales.csv", salesCSV)
	rec := do(t, s, http.MethodPost, "/api/upload", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-Id"))
}

func TestUploadEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	uploadSales(t, s)

	rec := do(t, s, http.MethodGet, "/api/state", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	st := decodeState(t, rec)
	assert.Equal(t, "s-1", st.SessionID)
	assert.Len(t, st.CSVData, 3)
	assert.Len(t, st.Schema, 3)
}

func TestUploadWithoutFile(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/upload", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decodeError(t, rec))
}

func TestUploadMalformedCSV(t *testing.T) {
	s, _ := newTestServer(t)
	body, ct := multipartBody(t, "bad.csv", "a,b\n\"unterminated,1\n")
	rec := do(t, s, http.MethodPost, "/api/upload", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec), "Failed to parse CSV")
}

func TestTargetEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	uploadSales(t, s)

	rec := do(t, s, http.MethodPut, "/api/target", bytes.NewBufferString(`{"target_column":"closed"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "closed", decodeState(t, rec).TargetColumn)

	rec = do(t, s, http.MethodPut, "/api/target", bytes.NewBufferString(`{"target_column":"nope"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPut, "/api/target", bytes.NewBufferString(`{`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTrainAndModels(t *testing.T) {
	s, _ := newTestServer(t)
	uploadSales(t, s)

	rec := do(t, s, http.MethodPost, "/api/train", bytes.NewBufferString(`{"target_column":"closed"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	st := decodeState(t, rec)
	assert.Equal(t, "m-1", st.ModelID)
	assert.InDelta(t, 0.9, st.Metrics["accuracy"], 1e-9)

	rec = do(t, s, http.MethodGet, "/api/models", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var models []pkg.ModelRecord
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &models))
	require.Len(t, models, 1)
	assert.Equal(t, pkg.ModelRecord{ID: "m-1", Name: "Model for closed"}, models[0])
}

func TestTrainWithoutTarget(t *testing.T) {
	s, _ := newTestServer(t)
	uploadSales(t, s)

	rec := do(t, s, http.MethodPost, "/api/train", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please select a target column.", decodeError(t, rec))
}

func TestTrainBackendFailure(t *testing.T) {
	s, backend := newTestServer(t)
	backend.trainErr = apperrors.External("Target column not found", http.StatusBadRequest, nil)
	uploadSales(t, s)

	rec := do(t, s, http.MethodPost, "/api/train", bytes.NewBufferString(`{"target_column":"closed"}`), "application/json")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Training failed: Target column not found", decodeError(t, rec))

	st := decodeState(t, do(t, s, http.MethodGet, "/api/state", nil, ""))
	assert.Equal(t, "Training failed: Target column not found", st.Error)
}

func TestPredictJSONRows(t *testing.T) {
	s, backend := newTestServer(t)
	uploadSales(t, s)
	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/api/train",
		bytes.NewBufferString(`{"target_column":"closed"}`), "application/json").Code)

	rec := do(t, s, http.MethodPost, "/api/predict",
		bytes.NewBufferString(`{"rows":[{"region":"north","units":5,"closed":"no"},{"region":"north","units":5,"closed":"yes"}]}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	st := decodeState(t, rec)
	require.NotNil(t, st.Predictions)
	assert.Equal(t, "p-1", st.Predictions.PredictionID)

	require.Len(t, backend.rows, 2)
	_, hasTarget := backend.rows[0].Get("closed")
	assert.False(t, hasTarget)
	units, _ := backend.rows[0].Get("units")
	assert.Equal(t, "5", units)
}

func TestPredictMultipart(t *testing.T) {
	s, backend := newTestServer(t)
	uploadSales(t, s)
	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/api/train",
		bytes.NewBufferString(`{"target_column":"closed"}`), "application/json").Code)

	body, ct := multipartBody(t, "new.csv", "region,units\nnorth,4\nnorth,9\n")
	rec := do(t, s, http.MethodPost, "/api/predict", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, backend.rows, 2)
	_, hasUnits := backend.rows[0].Get("units")
	assert.False(t, hasUnits)
}

func TestPredictWithoutModel(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/predict", bytes.NewBufferString(`{"rows":[]}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No model ID available. Please train a model first.", decodeError(t, rec))
}

func TestSummaryAndReset(t *testing.T) {
	s, _ := newTestServer(t)
	uploadSales(t, s)
	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/api/train",
		bytes.NewBufferString(`{"target_column":"closed"}`), "application/json").Code)

	rec := do(t, s, http.MethodPost, "/api/summary", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	st := decodeState(t, rec)
	require.Len(t, st.FeatureImportance, 2)
	assert.Equal(t, "units", st.FeatureImportance[0].Feature)

	rec = do(t, s, http.MethodPost, "/api/reset", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	st = decodeState(t, rec)
	assert.Empty(t, st.SessionID)
	assert.Empty(t, st.CSVData)
	assert.Empty(t, st.TargetColumn)
}

func TestUnknownRoute(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/nothing", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
