package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"ml_dashboard/internal/core"
	"ml_dashboard/internal/nodes"
	"ml_dashboard/pkg"

	"github.com/bytedance/sonic"

	apperrors "ml_dashboard/internal/errors"
)

type targetRequest struct {
	TargetColumn string `json:"target_column"`
}

type trainRequest struct {
	TargetColumn string `json:"target_column"`
	Name         string `json:"name"`
}

type predictRequest struct {
	Rows []pkg.Row `json:"rows"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.dash.State())
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.dash.Models())
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, err := readFormFile(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out, err := s.dash.Upload.Execute(r.Context(), core.NodeInput{Upload: file})
	s.writeNodeOutput(w, out, err)
}

func (s *Server) handleTarget(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	next, err := s.dash.SelectTarget(r.Context(), req.TargetColumn)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, next)
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	var req trainRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	out, err := s.dash.Train.Execute(r.Context(), core.NodeInput{
		TargetColumn: req.TargetColumn,
		ModelName:    req.Name,
	})
	s.writeNodeOutput(w, out, err)
}

// handlePredict accepts a multipart file or a JSON body {rows: [...]}
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	input := core.NodeInput{}
	if isMultipart(r) {
		file, err := readFormFile(w, r)
		if err != nil {
			s.writeError(w, err)
			return
		}
		input.PredictFile = file
	} else {
		var req predictRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, err)
			return
		}
		input.PredictRows = req.Rows
	}
	out, err := s.dash.Predict.Execute(r.Context(), input)
	s.writeNodeOutput(w, out, err)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	out, err := s.dash.Summary.Execute(r.Context(), core.NodeInput{})
	s.writeNodeOutput(w, out, err)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.dash.Reset(r.Context()))
}

func (s *Server) writeNodeOutput(w http.ResponseWriter, out core.NodeOutput, err error) {
	if err == nil {
		err = out.Error
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	if out.State != nil {
		s.writeJSON(w, http.StatusOK, out.State)
		return
	}
	s.writeJSON(w, http.StatusOK, s.dash.State())
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	if errors.Is(err, nodes.ErrStale) {
		status = http.StatusConflict
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Int("status", status).Msg("Request failed")
	}
	s.writeJSON(w, status, pkg.ErrorResponse{Error: apperrors.UserMessage(err)})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode response")
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/")
}

func readFormFile(w http.ResponseWriter, r *http.Request) (*core.FileInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	f, header, err := r.FormFile("file")
	if err != nil {
		return nil, apperrors.Validation("Please choose a CSV file to upload.")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, apperrors.Validation("Failed to read the uploaded file.")
	}
	return &core.FileInput{Name: header.Filename, Data: data}, nil
}

// decodeJSON reads an optional JSON body; an empty body leaves v untouched
func decodeJSON(r *http.Request, v any) error {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return apperrors.Validation("Failed to read request body.")
	}
	if len(data) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(data, v); err != nil {
		return apperrors.Parse("Invalid JSON body.", err)
	}
	return nil
}
