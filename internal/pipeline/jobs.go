package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/dgallion1/docdeck/internal/analyzer"
	"github.com/dgallion1/docdeck/internal/template"
)

// JobStatus represents the state of a deck generation job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusExtracting JobStatus = "extracting"
	StatusChunking   JobStatus = "chunking"
	StatusAnalyzing  JobStatus = "analyzing"
	StatusRendering  JobStatus = "rendering"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Job tracks the state of a single document-to-deck run.
type Job struct {
	mu sync.Mutex

	ID       string           `json:"job_id"`
	Filename string           `json:"filename"`
	Variant  analyzer.Variant `json:"variant"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// MaxTokens overrides the configured chunk size when positive.
	MaxTokens int `json:"-"`
	// Template is the optional reference deck profile.
	Template *template.Profile `json:"-"`

	// Internal: not serialized.
	fileData []byte
	errors   []string
	result   *Output
	removed  bool
}

// Progress tracks processing progress.
type Progress struct {
	TotalChunks    int      `json:"total_chunks"`
	ChunksAnalyzed int      `json:"chunks_analyzed"`
	ChunkErrors    int      `json:"chunk_errors"`
	SlideCount     int      `json:"slide_count"`
	Errors         []string `json:"errors"`
}

// NewJob creates a queued job for an uploaded file.
func NewJob(id, filename string, data []byte, variant analyzer.Variant) *Job {
	now := time.Now()
	return &Job{
		ID:          id,
		Filename:    filename,
		Variant:     variant,
		Status:      StatusQueued,
		Phase:       "queued",
		ContentHash: ContentHashHex(data),
		CreatedAt:   now,
		UpdatedAt:   now,
		fileData:    data,
	}
}

// JobStore is a thread-safe in-memory job registry. Entries expire after
// the TTL or when the store is full; either way the job's deck file is
// removed.
type JobStore struct {
	lru *expirable.LRU[string, *Job]
}

func NewJobStore(size int, ttl time.Duration) *JobStore {
	if size <= 0 {
		size = 1024
	}
	return &JobStore{
		lru: expirable.NewLRU[string, *Job](size, func(_ string, j *Job) { j.release() }, ttl),
	}
}

func (s *JobStore) Put(job *Job) {
	s.lru.Add(job.ID, job)
}

func (s *JobStore) Get(id string) *Job {
	j, _ := s.lru.Get(id)
	return j
}

// Delete removes a job and its deck file. It reports whether the job existed.
func (s *JobStore) Delete(id string) bool {
	return s.lru.Remove(id)
}

// Purge removes every job and its deck file.
func (s *JobStore) Purge() {
	s.lru.Purge()
}

func (s *JobStore) Len() int {
	return s.lru.Len()
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// ChunkDone counts one analyzed chunk. Safe for concurrent use.
func (j *Job) ChunkDone(r analyzer.ChunkResult) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.ChunksAnalyzed++
	if r.Err != nil {
		j.Progress.ChunkErrors++
		j.errors = append(j.errors, fmt.Sprintf("chunk %d: %s", r.Index, r.Err))
		j.Progress.Errors = j.errors
	}
	j.UpdatedAt = time.Now()
}

// SetTotalChunks records total chunk count.
func (j *Job) SetTotalChunks(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalChunks = n
	j.UpdatedAt = time.Now()
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// Complete stores the run output and marks the job completed. The upload
// bytes are dropped. If the job was removed meanwhile, the deck is deleted
// instead of kept.
func (j *Job) Complete(out *Output) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = nil
	if j.removed {
		out.Cleanup()
		return
	}
	j.result = out
	j.Progress.SlideCount = out.SlideCount
	j.Status = StatusCompleted
	j.Phase = "done"
	j.UpdatedAt = time.Now()
}

// Result returns the run output, or nil until the job completes.
func (j *Job) Result() *Output {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

func (j *Job) release() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.removed = true
	j.fileData = nil
	if j.result != nil {
		j.result.Cleanup()
		j.result = nil
	}
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string           `json:"job_id"`
	Filename  string           `json:"filename"`
	Variant   analyzer.Variant `json:"variant"`
	Status    JobStatus        `json:"status"`
	Phase     string           `json:"phase"`
	Progress  Progress         `json:"progress"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	return JobSnapshot{
		ID:       j.ID,
		Filename: j.Filename,
		Variant:  j.Variant,
		Status:   j.Status,
		Phase:    j.Phase,
		Progress: Progress{
			TotalChunks:    j.Progress.TotalChunks,
			ChunksAnalyzed: j.Progress.ChunksAnalyzed,
			ChunkErrors:    j.Progress.ChunkErrors,
			SlideCount:     j.Progress.SlideCount,
			Errors:         errs,
		},
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
