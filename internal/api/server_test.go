package api

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docdeck/internal/config"
	"github.com/dgallion1/docdeck/internal/deck"
	"github.com/dgallion1/docdeck/internal/llm"
	"github.com/dgallion1/docdeck/internal/pipeline"
)

const testKey = "secret"

type stubGenerator struct{ reply string }

func (s stubGenerator) Generate(context.Context, llm.Request) (string, error) {
	return s.reply, nil
}

func testConfig() config.Config {
	return config.Config{
		DocdeckAPIKey:  testKey,
		LLM:            config.LLMConfig{Provider: "openai", Model: "test-model", Temperature: 0.7, MaxOutputTokens: 100},
		Chunking:       config.ChunkingConfig{MaxTokens: 1000, Tokenizer: "estimate"},
		Analysis:       config.AnalysisConfig{Variant: "business", Parallelism: 1, CacheSize: 16, CacheTTL: time.Hour, MetricsPolicy: "regex"},
		WorkerCount:    1,
		MaxQueueSize:   4,
		MaxUploadBytes: 4096,
		JobTTL:         time.Hour,
	}
}

func newTestServer(t *testing.T, cfg config.Config, start bool) *Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	stats := llm.NewLLMStats(time.Hour)
	gen := llm.Instrument(stubGenerator{reply: "Revenue: 100\nGrowth Rate: 5%"}, stats)

	runner, err := pipeline.NewRunner(cfg, gen, log)
	require.NoError(t, err)
	orch := pipeline.NewOrchestrator(cfg, runner, log)
	if start {
		orch.Start(context.Background())
		t.Cleanup(orch.Stop)
	}
	return NewServer(orch, LLMInfo{Provider: "openai", Model: cfg.LLM.Model, Stats: stats}, log, cfg)
}

type part struct {
	field, filename string
	data            []byte
}

func multipartBody(t *testing.T, fields map[string]string, parts ...part) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, p := range parts {
		fw, err := mw.CreateFormFile(p.field, p.filename)
		require.NoError(t, err)
		_, err = fw.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func do(t *testing.T, s *Server, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+testKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

var csvPart = part{field: "file", filename: "q3.csv", data: []byte("metric,value\nRevenue,100\n")}

func submit(t *testing.T, s *Server, fields map[string]string, parts ...part) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, fields, parts...)
	return do(t, s, http.MethodPost, "/api/analyze", body, ct)
}

func TestHealth_NoAuth(t *testing.T) {
	s := newTestServer(t, testConfig(), false)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuth(t *testing.T) {
	s := newTestServer(t, testConfig(), false)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats/llm", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/stats/llm", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "invalid api key", decode(t, rec)["error"])
}

func TestAnalyze_EndToEnd(t *testing.T) {
	s := newTestServer(t, testConfig(), true)

	rec := submit(t, s, map[string]string{"variant": "business"}, csvPart)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	resp := decode(t, rec)
	jobID := resp["job_id"].(string)
	require.Equal(t, "/api/jobs/"+jobID+"/status", resp["poll_url"])

	require.Eventually(t, func() bool {
		req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+jobID+"/status", nil)
		req.Header.Set("Authorization", "Bearer "+testKey)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)
		var snap pipeline.JobSnapshot
		return json.Unmarshal(rec.Body.Bytes(), &snap) == nil && snap.Status == pipeline.StatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	rec = do(t, s, http.MethodGet, "/api/jobs/"+jobID+"/analysis", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	analysis := decode(t, rec)
	require.Equal(t, "Revenue: 100\nGrowth Rate: 5%", analysis["analysis"])
	require.Equal(t, []any{"Document Analysis Report", "Key Metrics Overview", "Percentage Distribution"}, analysis["slides"])

	rec = do(t, s, http.MethodGet, "/api/jobs/"+jobID+"/deck", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, pptxContentType, rec.Header().Get("Content-Type"))
	require.Equal(t, `attachment; filename="q3_analysis.pptx"`, rec.Header().Get("Content-Disposition"))
	_, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	require.NoError(t, err)

	rec = do(t, s, http.MethodGet, "/api/stats/llm", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode(t, rec)
	require.Equal(t, "openai", stats["provider"])
	require.EqualValues(t, 1, stats["stats"].(map[string]any)["count"])

	rec = do(t, s, http.MethodDelete, "/api/jobs/"+jobID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, s, http.MethodGet, "/api/jobs/"+jobID+"/status", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, s, http.MethodDelete, "/api/jobs/"+jobID, nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyze_DeckConflictUntilComplete(t *testing.T) {
	s := newTestServer(t, testConfig(), false)

	rec := submit(t, s, nil, csvPart)
	require.Equal(t, http.StatusAccepted, rec.Code)
	jobID := decode(t, rec)["job_id"].(string)

	rec = do(t, s, http.MethodGet, "/api/jobs/"+jobID+"/deck", nil, "")
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, string(pipeline.StatusQueued), decode(t, rec)["status"])

	rec = do(t, s, http.MethodGet, "/api/jobs/"+jobID+"/analysis", nil, "")
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestAnalyze_Rejections(t *testing.T) {
	cfg := testConfig()
	cfg.MaxUploadBytes = 64
	s := newTestServer(t, cfg, false)

	tests := []struct {
		name   string
		fields map[string]string
		parts  []part
		code   int
	}{
		{"missing file", nil, nil, http.StatusBadRequest},
		{"unsupported format", nil, []part{{"file", "notes.txt", []byte("hi")}}, http.StatusBadRequest},
		{"oversize", nil, []part{{"file", "big.csv", bytes.Repeat([]byte("a,b\n"), 40)}}, http.StatusRequestEntityTooLarge},
		{"unknown variant", map[string]string{"variant": "tennis"}, []part{csvPart}, http.StatusBadRequest},
		{"bad max tokens", map[string]string{"max_tokens": "-5"}, []part{csvPart}, http.StatusBadRequest},
		{"template not pptx", nil, []part{csvPart, {"template", "t.docx", []byte("x")}}, http.StatusBadRequest},
		{"template not a deck", nil, []part{csvPart, {"template", "t.pptx", []byte("not a zip")}}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := submit(t, s, tt.fields, tt.parts...)
			require.Equal(t, tt.code, rec.Code, rec.Body.String())
			require.NotEmpty(t, decode(t, rec)["error"])
		})
	}
}

func TestAnalyze_QueueFull(t *testing.T) {
	cfg := testConfig()
	cfg.MaxQueueSize = 1
	s := newTestServer(t, cfg, false)

	require.Equal(t, http.StatusAccepted, submit(t, s, nil, csvPart).Code)
	rec := submit(t, s, nil, csvPart)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, decode(t, rec)["error"], "queue is full")
}

func samplePPTX(t *testing.T) []byte {
	t.Helper()
	d := deck.Deck{Title: deck.DeckTitle, Slides: []deck.SlideSpec{
		{Layout: deck.LayoutTitle, Title: deck.DeckTitle, Subtitle: "Quarterly"},
		{Layout: deck.LayoutContent, Title: "Executive Summary", Body: []string{"Steady growth."}},
	}}
	var buf bytes.Buffer
	require.NoError(t, deck.NewWriter(deck.DefaultStyle(), nil).Write(context.Background(), d, &buf))
	return buf.Bytes()
}

func TestInspectTemplate(t *testing.T) {
	cfg := testConfig()
	cfg.MaxUploadBytes = 1 << 20
	s := newTestServer(t, cfg, false)

	body, ct := multipartBody(t, nil, part{"file", "brand.pptx", samplePPTX(t)})
	rec := do(t, s, http.MethodPost, "/api/templates/inspect", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode(t, rec)
	profile := resp["profile"].(map[string]any)
	require.EqualValues(t, 2, profile["slide_count"])
	require.Contains(t, resp["prompt"], "Analyze the content and structure it exactly as follows")

	body, ct = multipartBody(t, nil, part{"file", "brand.key", []byte("x")})
	rec = do(t, s, http.MethodPost, "/api/templates/inspect", body, ct)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSanitizeFilename(t *testing.T) {
	require.Equal(t, "q3.csv", sanitizeFilename("../../etc/q3.csv"))
	require.Equal(t, "unnamed", sanitizeFilename(""))
	require.Equal(t, "a_b.csv", sanitizeFilename("a..b.csv"))
}
