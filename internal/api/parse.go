package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"mediminds/internal/gemini"

	"go.uber.org/zap"
)

const missingKeyMessage = "Server configuration error: Gemini API Key is missing."

type parseTextRequest struct {
	Text string `json:"text"`
}

// parseTextHandler validates input before touching the parser, so a missing
// text is a 400 even when the API key is absent.
func (s *Server) parseTextHandler(w http.ResponseWriter, r *http.Request) {
	var req parseTextRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			s.logger.Warn("malformed parse-text body", zap.Error(err))
			writeError(w, http.StatusBadRequest, "Text input is required")
			return
		}
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "Text input is required")
		return
	}

	result, err := s.deps.Parser.ParseText(r.Context(), req.Text)
	if err != nil {
		s.parseFailed(w, "Failed to parse prescription text", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) parseImageHandler(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.deps.MaxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "Image is too large")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.deps.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.deps.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Image is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "No image file uploaded")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No image file uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil || len(data) == 0 {
		writeError(w, http.StatusBadRequest, "No image file uploaded")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}

	result, err := s.deps.Parser.ParseImage(r.Context(), data, mimeType)
	if err != nil {
		s.parseFailed(w, "Failed to parse prescription image", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) parseFailed(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, gemini.ErrMissingAPIKey):
		s.logger.Error("Gemini API key missing")
		writeError(w, http.StatusInternalServerError, missingKeyMessage)
	case errors.Is(err, gemini.ErrNoInput):
		writeError(w, http.StatusBadRequest, "Text input is required")
	default:
		s.logger.Error(msg, zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   msg,
			"details": err.Error(),
		})
	}
}
