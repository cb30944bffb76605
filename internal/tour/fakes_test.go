package tour

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kdimtricp/tourvision/internal/ai"
	"github.com/kdimtricp/tourvision/internal/media"
	"github.com/kdimtricp/tourvision/internal/models"
)

var jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 'J', 'F', 'I', 'F'}

func writeImages(t *testing.T, dir string, names ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), jpegBytes, 0644))
	}
}

// fakeContent answers classification by file name lookup and selection
// with a fixed answer.
type fakeContent struct {
	mu        sync.Mutex
	labels    map[int]string
	fail      map[int]bool
	selection string
	delay     time.Duration
	calls     []ai.ContentRequest
	started   []time.Time
}

func (f *fakeContent) GenerateContent(ctx context.Context, req ai.ContentRequest) (*ai.ContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := len(f.calls)
	f.calls = append(f.calls, req)
	f.started = append(f.started, time.Now())
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	if req.ResponseMIMEType == "application/json" {
		return &ai.ContentResponse{Text: f.selection, Usage: ai.Usage{PromptTokens: 900, CandidateTokens: 10, TotalTokens: 910}}, nil
	}
	if f.fail[n] {
		return nil, &ai.APIError{StatusCode: 500, Body: "internal"}
	}
	return &ai.ContentResponse{Text: f.labels[n], Usage: ai.Usage{PromptTokens: 300, CandidateTokens: 2, TotalTokens: 302}}, nil
}

type fakeVideo struct {
	mu       sync.Mutex
	requests []ai.VideoRequest
	polls    int
	failFor  string
	noVideos bool
}

func (f *fakeVideo) StartGeneration(ctx context.Context, req ai.VideoRequest) (*ai.Operation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failFor != "" && strings.Contains(req.Prompt, f.failFor) {
		return nil, &ai.APIError{StatusCode: 400, Body: "rejected"}
	}
	f.requests = append(f.requests, req)
	return &ai.Operation{Name: fmt.Sprintf("operations/%d", len(f.requests))}, nil
}

func (f *fakeVideo) GetOperation(ctx context.Context, name string) (*ai.Operation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.polls++
	op := &ai.Operation{Name: name, Done: true}
	if !f.noVideos {
		op.Videos = []ai.GeneratedVideo{{Data: []byte("mp4:" + name)}}
	}
	return op, nil
}

func (f *fakeVideo) Download(ctx context.Context, v ai.GeneratedVideo) ([]byte, error) {
	if len(v.Data) == 0 {
		return nil, errors.New("nothing to download")
	}
	return v.Data, nil
}

type fakeStitcher struct {
	requests []media.StitchRequest
	err      error
	// partial writes a truncated output before failing
	partial bool
}

func (f *fakeStitcher) Stitch(ctx context.Context, req media.StitchRequest) error {
	f.requests = append(f.requests, req)
	if f.err != nil {
		if f.partial {
			_ = os.WriteFile(req.Output, []byte("trunc"), 0644)
		}
		return f.err
	}
	return os.WriteFile(req.Output, []byte("final"), 0644)
}

type memTours struct {
	mu    sync.Mutex
	tours map[string]models.Tour
}

func (m *memTours) Create(ctx context.Context, t *models.Tour) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tours == nil {
		m.tours = map[string]models.Tour{}
	}
	m.tours[t.ID] = *t
	return nil
}

func (m *memTours) Update(ctx context.Context, t *models.Tour) error {
	return m.Create(ctx, t)
}

func (m *memTours) get(id string) models.Tour {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tours[id]
}

type memClips struct {
	mu    sync.Mutex
	clips []models.Clip
}

func (m *memClips) Create(ctx context.Context, c *models.Clip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clips = append(m.clips, *c)
	return nil
}

type countingMetrics struct {
	mu    sync.Mutex
	clips map[string]int
	runs  map[string]int
}

func (m *countingMetrics) RecordClip(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clips == nil {
		m.clips = map[string]int{}
	}
	m.clips[status]++
}

func (m *countingMetrics) RecordRun(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runs == nil {
		m.runs = map[string]int{}
	}
	m.runs[status]++
}

type dirPaths struct {
	root string
}

func (p dirPaths) ImageDirFor(code string) string  { return filepath.Join(p.root, "images", code) }
func (p dirPaths) OutputDirFor(code string) string { return filepath.Join(p.root, "output", code) }

type recordedCall struct {
	Process string
	Model   string
	Usage   ai.Usage
}

type captureRecorder struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (c *captureRecorder) Record(ctx context.Context, process, model string, start time.Time, u ai.Usage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, recordedCall{Process: process, Model: model, Usage: u})
}
