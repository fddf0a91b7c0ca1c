package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/dgallion1/docdeck/internal/analyzer"
	"github.com/dgallion1/docdeck/internal/parser"
	"github.com/dgallion1/docdeck/internal/pipeline"
	"github.com/dgallion1/docdeck/internal/template"
)

// formOverhead is allowed on top of MaxUploadBytes for the file and template
// parts plus multipart framing.
const formOverhead = 1024 * 1024

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	// Limit total request size: the document and an optional template.
	r.Body = http.MaxBytesReader(w, r.Body, 2*s.cfg.MaxUploadBytes+formOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			jsonError(w, fmt.Sprintf("upload exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, status, err := s.readUpload(file)
	if err != nil {
		jsonError(w, err.Error(), status)
		return
	}

	// An empty variant defers to the configured default.
	var variant analyzer.Variant
	if v := r.FormValue("variant"); v != "" {
		if variant, err = analyzer.ParseVariant(v); err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	maxTokens := 0
	if v := r.FormValue("max_tokens"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, "max_tokens must be a positive integer", http.StatusBadRequest)
			return
		}
		maxTokens = n
	}

	var profile *template.Profile
	if tf, th, err := r.FormFile("template"); err == nil {
		defer tf.Close()
		profile, status, err = s.readTemplate(tf, th)
		if err != nil {
			jsonError(w, err.Error(), status)
			return
		}
	}

	job := pipeline.NewJob(uuid.NewString(), filename, data, variant)
	job.MaxTokens = maxTokens
	job.Template = profile

	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.log.Info("job queued", "job_id", job.ID, "filename", filename, "bytes", len(data), "template", profile != nil)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":   job.ID,
		"status":   pipeline.StatusQueued,
		"poll_url": fmt.Sprintf("/api/jobs/%s/status", job.ID),
	})
}

// readUpload reads one form file, enforcing MaxUploadBytes.
func (s *Server) readUpload(f multipart.File) ([]byte, int, error) {
	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, http.StatusInternalServerError, errors.New("failed to read file")
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)
	}
	return data, http.StatusOK, nil
}

func (s *Server) readTemplate(f multipart.File, h *multipart.FileHeader) (*template.Profile, int, error) {
	name := sanitizeFilename(h.Filename)
	if strings.ToLower(filepath.Ext(name)) != ".pptx" {
		return nil, http.StatusBadRequest, fmt.Errorf("template must be a .pptx file, got %s", filepath.Ext(name))
	}
	data, status, err := s.readUpload(f)
	if err != nil {
		return nil, status, err
	}
	profile, err := template.Analyze(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("invalid template: %w", err)
	}
	return profile, http.StatusOK, nil
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
