package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ml_dashboard/pkg"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "ml_dashboard/internal/errors"
)

// RequestIDHeader correlates a dashboard action with backend logs
const RequestIDHeader = "X-Request-ID"

// Client talks to the analytics backend
type Client struct {
	BaseURL string
	HTTP    *http.Client
	logger  zerolog.Logger
}

// NewClient creates a client for baseURL. A zero timeout means none.
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "gateway").Logger(),
	}
}

// Upload sends the dataset as multipart field "file"
func (c *Client) Upload(ctx context.Context, filename string, data []byte) (*pkg.UploadResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart body: %w", err)
	}

	var out pkg.UploadResponse
	if err := c.do(ctx, http.MethodPost, "/upload/", mw.FormDataContentType(), &body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Train starts training on the uploaded session
func (c *Client) Train(ctx context.Context, sessionID, targetColumn string) (*pkg.TrainResponse, error) {
	var out pkg.TrainResponse
	path := "/train/" + url.PathEscape(sessionID) + "/"
	if err := c.doJSON(ctx, http.MethodPost, path, pkg.TrainRequest{TargetColumn: targetColumn}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Predict scores rows with a trained model
func (c *Client) Predict(ctx context.Context, modelID string, rows []pkg.Row) (*pkg.PredictResponse, error) {
	if rows == nil {
		rows = []pkg.Row{}
	}
	var out pkg.PredictResponse
	path := "/predict/" + url.PathEscape(modelID) + "/"
	if err := c.doJSON(ctx, http.MethodPost, path, pkg.PredictRequest{InputData: rows}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Summary fetches the insights of a trained model
func (c *Client) Summary(ctx context.Context, modelID string) (*pkg.SummaryResponse, error) {
	var out pkg.SummaryResponse
	path := "/summary/" + url.PathEscape(modelID) + "/"
	if err := c.do(ctx, http.MethodGet, path, "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	data, err := sonic.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	return c.do(ctx, method, path, "application/json", bytes.NewReader(data), out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("method", method).Str("path", path).Str("request_id", requestID).Msg("Backend request failed")
		return apperrors.External(err.Error(), 0, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.External("failed to read backend response", resp.StatusCode, err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("Backend request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.External(errorMessage(resp.StatusCode, data), resp.StatusCode, nil)
	}

	if out == nil {
		return nil
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return apperrors.External("invalid response from backend", resp.StatusCode, err)
	}
	return nil
}

// errorMessage prefers the backend's {error} field over the generic text
func errorMessage(status int, body []byte) string {
	var e pkg.ErrorResponse
	if err := sonic.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return fmt.Sprintf("Request failed with status code %d", status)
}
