package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdimtricp/tourvision/internal/usage"
)

func TestCollector_Write(t *testing.T) {
	c := NewCollector()

	err := c.Write(context.Background(), usage.Record{
		Process:         "Image Classification (1.jpg)",
		Model:           "gemini-2.0-flash",
		Elapsed:         700 * time.Millisecond,
		PromptTokens:    300,
		CandidateTokens: 2,
		TotalTokens:     302,
	})
	require.NoError(t, err)
	require.NoError(t, c.Write(context.Background(), usage.Record{
		Process: "Image Classification (2.jpg)",
		Model:   "gemini-2.0-flash",
	}))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.apiCallsTotal.WithLabelValues("Image Classification", "gemini-2.0-flash")))
	assert.Equal(t, 302.0, testutil.ToFloat64(c.tokensTotal.WithLabelValues("gemini-2.0-flash", "total")))
	assert.Equal(t, 300.0, testutil.ToFloat64(c.tokensTotal.WithLabelValues("gemini-2.0-flash", "prompt")))
}

func TestCollector_RunsAndClips(t *testing.T) {
	c := NewCollector()

	c.RecordClip("generated")
	c.RecordClip("generated")
	c.RecordClip("failed")
	c.RecordRun("completed")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.clipsTotal.WithLabelValues("generated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.clipsTotal.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.runsTotal.WithLabelValues("completed")))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.RecordRun("no_scenes")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `tourvision_runs_total{status="no_scenes"} 1`)
}

func TestProcessKind(t *testing.T) {
	assert.Equal(t, "Image Classification", ProcessKind("Image Classification (living_room.webp)"))
	assert.Equal(t, "Video Generation", ProcessKind("Video Generation (lobby)"))
	assert.Equal(t, "custom", ProcessKind("custom"))
}
