package pipeline

import (
	"context"
	"log/slog"

	"github.com/dgallion1/docdeck/internal/apperr"
	"github.com/dgallion1/docdeck/internal/document"
)

// Worker processes queued jobs through a shared Runner.
type Worker struct {
	runner *Runner
	log    *slog.Logger
}

func NewWorker(runner *Runner, log *slog.Logger) *Worker {
	return &Worker{runner: runner, log: log}
}

// Process runs the pipeline for a job and records the outcome on it.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	out, err := w.runner.Run(ctx, Input{
		Source:    document.Source{Filename: job.Filename, Data: job.FileData()},
		Variant:   job.Variant,
		MaxTokens: job.MaxTokens,
		Template:  job.Template,
		OnStatus: func(s JobStatus) {
			job.SetStatus(s, string(s))
		},
		OnChunked: job.SetTotalChunks,
		ChunkDone: job.ChunkDone,
	})
	if err != nil {
		phase := job.Snapshot().Phase
		log.Error("job failed", "phase", phase, "kind", apperr.KindOf(err), "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, phase)
		return
	}

	job.Complete(out)
	log.Info("job completed", "slides", out.SlideCount, "chunks", out.ChunkCount,
		"chunk_errors", len(out.Analysis.Failed()))
}
