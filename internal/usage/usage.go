package usage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kdimtricp/tourvision/internal/ai"
	"github.com/kdimtricp/tourvision/internal/models"
)

// Record is one provider call as written to the ledger.
type Record struct {
	Timestamp       time.Time
	TourID          string
	PropertyID      string
	Process         string
	Model           string
	Elapsed         time.Duration
	PromptTokens    int
	CandidateTokens int
	TotalTokens     int
}

type Sink interface {
	Write(ctx context.Context, rec Record) error
}

// Recorder fans records out to every sink. Sink failures are logged and
// never returned to the caller.
type Recorder struct {
	sinks  []Sink
	logger *zap.Logger
	now    func() time.Time
}

func NewRecorder(logger *zap.Logger, sinks ...Sink) *Recorder {
	return &Recorder{
		sinks:  sinks,
		logger: logger.With(zap.String("component", "usage")),
		now:    time.Now,
	}
}

// ForTour scopes the recorder to a single pipeline run.
func (r *Recorder) ForTour(tourID, propertyID string) *TourRecorder {
	return &TourRecorder{recorder: r, tourID: tourID, propertyID: propertyID}
}

func (r *Recorder) Write(ctx context.Context, rec Record) {
	for _, sink := range r.sinks {
		if err := sink.Write(ctx, rec); err != nil {
			r.logger.Warn("failed to record api usage",
				zap.String("process", rec.Process),
				zap.Error(err))
		}
	}
}

type TourRecorder struct {
	recorder   *Recorder
	tourID     string
	propertyID string
}

// Record logs a call that started at start and finished now.
func (t *TourRecorder) Record(ctx context.Context, process, model string, start time.Time, u ai.Usage) {
	if t == nil || t.recorder == nil {
		return
	}
	now := t.recorder.now()
	t.recorder.Write(ctx, Record{
		Timestamp:       now,
		TourID:          t.tourID,
		PropertyID:      t.propertyID,
		Process:         process,
		Model:           model,
		Elapsed:         now.Sub(start),
		PromptTokens:    u.PromptTokens,
		CandidateTokens: u.CandidateTokens,
		TotalTokens:     u.TotalTokens,
	})
}

type UsageStore interface {
	Insert(ctx context.Context, u *models.APIUsage) error
}

// StoreSink persists records through the database ledger.
type StoreSink struct {
	store UsageStore
}

func NewStoreSink(store UsageStore) *StoreSink {
	return &StoreSink{store: store}
}

func (s *StoreSink) Write(ctx context.Context, rec Record) error {
	return s.store.Insert(ctx, &models.APIUsage{
		TourID:          rec.TourID,
		PropertyCode:    rec.PropertyID,
		Process:         rec.Process,
		Model:           rec.Model,
		Elapsed:         rec.Elapsed,
		PromptTokens:    rec.PromptTokens,
		CandidateTokens: rec.CandidateTokens,
		TotalTokens:     rec.TotalTokens,
		CreatedAt:       rec.Timestamp,
	})
}

// Process names as they appear in the ledger.
func ClassificationProcess(file string) string { return "Image Classification (" + file + ")" }
func SelectionProcess(label string) string       { return "Image Selection (" + label + ")" }
func GenerationProcess(label string) string      { return "Video Generation (" + label + ")" }
