package tour

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kdimtricp/tourvision/internal/ai"
	"github.com/kdimtricp/tourvision/internal/models"
	"github.com/kdimtricp/tourvision/internal/storage"
	"github.com/kdimtricp/tourvision/internal/usage"
)

var ErrNoVideos = errors.New("operation finished without videos")

func PanPrompt(label string) string {
	return fmt.Sprintf("A smooth horizontal panorama pan of this %s.", label)
}

func SelectionPrompt(label string, files []string) string {
	quoted := make([]string, len(files))
	for i, f := range files {
		quoted[i] = "'" + f + "'"
	}
	return fmt.Sprintf("From [%s], select two images for '%s'. Return ONLY JSON list.", strings.Join(quoted, ", "), label)
}

func BridgePrompt(label string) string {
	return fmt.Sprintf("Accurate bridge between frames for %s.", label)
}

type GeneratorConfig struct {
	VisionModel  string
	VideoModel   string
	AspectRatio  string
	PollInterval time.Duration
}

type Generator struct {
	content ai.ContentGenerator
	video   ai.VideoGenerator
	cfg     GeneratorConfig
	logger  *zap.Logger
}

func NewGenerator(content ai.ContentGenerator, video ai.VideoGenerator, cfg GeneratorConfig, logger *zap.Logger) *Generator {
	if cfg.VisionModel == "" {
		cfg.VisionModel = ai.DefaultVisionModel
	}
	if cfg.VideoModel == "" {
		cfg.VideoModel = ai.DefaultVideoModel
	}
	if cfg.AspectRatio == "" {
		cfg.AspectRatio = ai.DefaultAspectRatio
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = ai.DefaultPollInterval
	}
	return &Generator{
		content: content,
		video:   video,
		cfg:     cfg,
		logger:  logger.With(zap.String("component", "generator")),
	}
}

type ClipJob struct {
	PropertyCode string
	Group        SceneGroup
	// FileName defaults to ClipFileName of the group label.
	FileName string
	Store    storage.Storage
	Usage    UsageRecorder
}

type GeneratedClip struct {
	Label string
	Mode  models.ClipMode
	Path  string
}

// ModeFor is the generation path a group of this size takes.
func ModeFor(group SceneGroup) models.ClipMode {
	if len(group.Images) == 1 {
		return models.ClipPan
	}
	return models.ClipBridge
}

// Generate produces one clip for a scene group: a pan over a single image,
// or an interpolation between two selected frames.
func (g *Generator) Generate(ctx context.Context, job ClipJob) (*GeneratedClip, error) {
	if len(job.Group.Images) == 0 {
		return nil, fmt.Errorf("scene %q has no images", job.Group.Label)
	}
	rec := job.Usage
	if rec == nil {
		rec = noopRecorder{}
	}

	label := job.Group.Label
	mode := ModeFor(job.Group)

	var req ai.VideoRequest
	switch mode {
	case models.ClipPan:
		img, err := loadImage(job.Group.Images[0])
		if err != nil {
			return nil, err
		}
		req = ai.VideoRequest{Prompt: PanPrompt(label), Image: img}

	default:
		first, second, err := g.selectPair(ctx, job.Group, rec)
		if err != nil {
			return nil, err
		}
		img1, err := loadImage(first)
		if err != nil {
			return nil, err
		}
		img2, err := loadImage(second)
		if err != nil {
			return nil, err
		}
		req = ai.VideoRequest{Prompt: BridgePrompt(label), Image: img1, LastFrame: &img2}
	}
	req.Model = g.cfg.VideoModel
	req.AspectRatio = g.cfg.AspectRatio

	g.logger.Info("generating clip", zap.String("label", label), zap.String("mode", string(mode)))

	start := time.Now()
	op, err := g.video.StartGeneration(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to start video generation: %w", err)
	}

	op, err = ai.WaitForOperation(ctx, g.video, op, g.cfg.PollInterval)
	if err != nil {
		return nil, err
	}
	rec.Record(ctx, usage.GenerationProcess(label), g.cfg.VideoModel, start, op.Usage)

	if len(op.Videos) == 0 {
		return nil, ErrNoVideos
	}

	data, err := g.video.Download(ctx, op.Videos[0])
	if err != nil {
		return nil, fmt.Errorf("failed to download clip: %w", err)
	}

	name := job.FileName
	if name == "" {
		name = ClipFileName(job.PropertyCode, label)
	}
	path, err := job.Store.SaveFile(name, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	g.logger.Info("clip saved",
		zap.String("label", label),
		zap.String("path", path),
		zap.Duration("elapsed", time.Since(start)))

	return &GeneratedClip{Label: label, Mode: mode, Path: path}, nil
}

func (g *Generator) selectPair(ctx context.Context, group SceneGroup, rec UsageRecorder) (Image, Image, error) {
	parts := make([]ai.Part, 0, len(group.Images)+1)
	for _, img := range group.Images {
		data, err := img.Read()
		if err != nil {
			return Image{}, Image{}, err
		}
		parts = append(parts, ai.ImagePart(data, ai.DetectImageMIME(data, img.Name)))
	}
	parts = append(parts, ai.TextPart(SelectionPrompt(group.Label, group.FileNames())))

	start := time.Now()
	resp, err := g.content.GenerateContent(ctx, ai.ContentRequest{
		Model:            g.cfg.VisionModel,
		Parts:            parts,
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return Image{}, Image{}, fmt.Errorf("failed to select frames: %w", err)
	}
	rec.Record(ctx, usage.SelectionProcess(group.Label), g.cfg.VisionModel, start, resp.Usage)

	first, second, ok := SelectPair(resp.Text, group.Images)
	if !ok {
		g.logger.Warn("unusable frame selection, using first two images",
			zap.String("label", group.Label),
			zap.String("answer", resp.Text))
	}
	return first, second, nil
}

// SelectPair resolves the model's JSON answer to two images of the group.
// It falls back to the first two images and reports ok=false when the
// answer is not a list of exactly two file names from the group.
func SelectPair(answer string, images []Image) (first, second Image, ok bool) {
	fallback := func() (Image, Image, bool) {
		return images[0], images[1], false
	}

	var names []string
	if err := ai.DecodeJSON(answer, &names); err != nil || len(names) != 2 {
		return fallback()
	}

	byName := make(map[string]Image, len(images))
	for _, img := range images {
		byName[img.Name] = img
	}

	a, okA := byName[strings.TrimSpace(names[0])]
	b, okB := byName[strings.TrimSpace(names[1])]
	if !okA || !okB {
		return fallback()
	}
	return a, b, true
}

func loadImage(img Image) (ai.Image, error) {
	data, err := img.Read()
	if err != nil {
		return ai.Image{}, err
	}
	return ai.Image{Data: data, MIMEType: ai.DetectImageMIME(data, img.Name)}, nil
}
