package tour

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kdimtricp/tourvision/internal/ai"
	"github.com/kdimtricp/tourvision/internal/usage"
)

const ClassificationPrompt = "Identify the primary subject or location. Task: Provide a single-word label (use underscores for multiple words). No adjectives. Return ONLY the word."

// UsageRecorder receives one call per provider request.
type UsageRecorder interface {
	Record(ctx context.Context, process, model string, start time.Time, u ai.Usage)
}

type noopRecorder struct{}

func (noopRecorder) Record(context.Context, string, string, time.Time, ai.Usage) {}

type Classifier struct {
	gen     ai.ContentGenerator
	model   string
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClassifier spaces the starts of consecutive classification calls at
// least interval apart. A call slower than interval is followed by the next
// one without an extra pause.
func NewClassifier(gen ai.ContentGenerator, model string, interval time.Duration, logger *zap.Logger) *Classifier {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Classifier{
		gen:     gen,
		model:   model,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.With(zap.String("component", "classifier")),
	}
}

// Classify labels every image and groups them. Images that fail are logged
// and skipped; only cancellation is returned as an error.
func (c *Classifier) Classify(ctx context.Context, images []Image, rec UsageRecorder) (*Groups, error) {
	if rec == nil {
		rec = noopRecorder{}
	}

	groups := NewGroups()
	for _, img := range images {
		if err := c.limiter.Wait(ctx); err != nil {
			return groups, err
		}

		label, err := c.classifyOne(ctx, img, rec)
		if err != nil {
			if ctx.Err() != nil {
				return groups, ctx.Err()
			}
			c.logger.Error("failed to classify image", zap.String("image", img.Name), zap.Error(err))
			continue
		}

		c.logger.Debug("image classified", zap.String("image", img.Name), zap.String("label", label))
		groups.Add(label, img)
	}

	return groups, nil
}

func (c *Classifier) classifyOne(ctx context.Context, img Image, rec UsageRecorder) (string, error) {
	data, err := img.Read()
	if err != nil {
		return "", err
	}

	start := time.Now()
	resp, err := c.gen.GenerateContent(ctx, ai.ContentRequest{
		Model: c.model,
		Parts: []ai.Part{
			ai.ImagePart(data, ai.DetectImageMIME(data, img.Name)),
			ai.TextPart(ClassificationPrompt),
		},
	})
	if err != nil {
		return "", err
	}
	rec.Record(ctx, usage.ClassificationProcess(img.Name), c.model, start, resp.Usage)

	label := NormalizeLabel(resp.Text)
	if label == "" {
		return "", fmt.Errorf("empty label in response")
	}
	return label, nil
}
