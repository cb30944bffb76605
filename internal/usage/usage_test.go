package usage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kdimtricp/tourvision/internal/ai"
	"github.com/kdimtricp/tourvision/internal/models"
)

type memorySink struct {
	records []Record
	err     error
}

func (m *memorySink) Write(ctx context.Context, rec Record) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}

type memoryStore struct {
	rows []*models.APIUsage
}

func (m *memoryStore) Insert(ctx context.Context, u *models.APIUsage) error {
	m.rows = append(m.rows, u)
	return nil
}

func TestRecorder_FansOutAndSwallowsErrors(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)

	broken := &memorySink{err: errors.New("disk full")}
	good := &memorySink{}
	r := NewRecorder(zap.New(core), broken, good)

	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	r.now = func() time.Time { return now }

	r.ForTour("tour-1", "005").Record(context.Background(),
		ClassificationProcess("1.jpg"), "gemini-2.0-flash",
		now.Add(-1500*time.Millisecond),
		ai.Usage{PromptTokens: 10, CandidateTokens: 1, TotalTokens: 11})

	require.Len(t, good.records, 1)
	rec := good.records[0]
	assert.Equal(t, now, rec.Timestamp)
	assert.Equal(t, "tour-1", rec.TourID)
	assert.Equal(t, "005", rec.PropertyID)
	assert.Equal(t, "Image Classification (1.jpg)", rec.Process)
	assert.Equal(t, 1500*time.Millisecond, rec.Elapsed)
	assert.Equal(t, 11, rec.TotalTokens)

	assert.Equal(t, 1, logs.FilterMessage("failed to record api usage").Len())
}

func TestTourRecorder_NilSafe(t *testing.T) {
	var tr *TourRecorder
	assert.NotPanics(t, func() {
		tr.Record(context.Background(), "p", "m", time.Now(), ai.Usage{})
	})
}

func TestStoreSink(t *testing.T) {
	store := &memoryStore{}
	ts := time.Now()

	require.NoError(t, NewStoreSink(store).Write(context.Background(), Record{
		Timestamp:       ts,
		TourID:          "t",
		PropertyID:      "005",
		Process:         SelectionProcess("kitchen"),
		Model:           "gemini-2.0-flash",
		Elapsed:         time.Second,
		PromptTokens:    900,
		CandidateTokens: 10,
		TotalTokens:     910,
	}))

	require.Len(t, store.rows, 1)
	row := store.rows[0]
	assert.Equal(t, "Image Selection (kitchen)", row.Process)
	assert.Equal(t, "005", row.PropertyCode)
	assert.Equal(t, time.Second, row.Elapsed)
	assert.Equal(t, 910, row.TotalTokens)
	assert.Equal(t, ts, row.CreatedAt)
}

func TestProcessNames(t *testing.T) {
	assert.Equal(t, "Image Classification (a.webp)", ClassificationProcess("a.webp"))
	assert.Equal(t, "Image Selection (lobby)", SelectionProcess("lobby"))
	assert.Equal(t, "Video Generation (lobby)", GenerationProcess("lobby"))
}
