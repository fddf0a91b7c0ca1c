package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docdeck/internal/document"
	"github.com/dgallion1/docdeck/internal/pipeline"
)

const pptxContentType = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job := s.job(w, r)
	if job == nil {
		return
	}
	snap := job.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}

// handleJobAnalysis returns the combined analysis text, the metrics report
// and the slide titles of a completed job.
func (s *Server) handleJobAnalysis(w http.ResponseWriter, r *http.Request) {
	job := s.job(w, r)
	if job == nil {
		return
	}
	out, ok := completed(w, job)
	if !ok {
		return
	}

	failed := out.Analysis.Failed()
	chunkErrors := make([]string, 0, len(failed))
	for _, f := range failed {
		chunkErrors = append(chunkErrors, fmt.Sprintf("chunk %d: %s", f.Index, f.Err))
	}
	resp := map[string]any{
		"job_id":       job.ID,
		"analysis":     out.Analysis.Combined,
		"synthesized":  out.Analysis.Synthesized,
		"report":       out.Report,
		"slides":       out.Titles,
		"chunk_count":  out.ChunkCount,
		"chunk_errors": chunkErrors,
	}
	if out.Analysis.SynthesisErr != nil {
		resp["synthesis_error"] = out.Analysis.SynthesisErr.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleJobDeck streams the generated .pptx.
func (s *Server) handleJobDeck(w http.ResponseWriter, r *http.Request) {
	job := s.job(w, r)
	if job == nil {
		return
	}
	out, ok := completed(w, job)
	if !ok {
		return
	}

	f, err := os.Open(out.DeckPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			jsonError(w, "deck no longer available", http.StatusGone)
			return
		}
		jsonError(w, "failed to open deck", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	name := document.Source{Filename: job.Filename}.Title() + "_analysis.pptx"
	w.Header().Set("Content-Type", pptxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", strings.ReplaceAll(name, `"`, "_")))
	if fi, err := f.Stat(); err == nil {
		w.Header().Set("Content-Length", fmt.Sprint(fi.Size()))
	}
	if _, err := io.Copy(w, f); err != nil {
		s.log.Warn("deck download interrupted", "job_id", job.ID, "error", err)
	}
}

// handleDeleteJob removes a job and its deck file.
func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if !s.orchestrator.DeleteJob(jobID) {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	s.log.Info("job deleted", "job_id", jobID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"job_id": jobID, "deleted": true})
}

func (s *Server) job(w http.ResponseWriter, r *http.Request) *pipeline.Job {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
	}
	return job
}

// completed writes a 409 unless the job has finished successfully.
func completed(w http.ResponseWriter, job *pipeline.Job) (*pipeline.Output, bool) {
	out := job.Result()
	if out == nil {
		snap := job.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{
			"error":  "job not completed",
			"status": snap.Status,
			"errors": snap.Progress.Errors,
		})
		return nil, false
	}
	return out, true
}
