package tour

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kdimtricp/tourvision/internal/media"
	"github.com/kdimtricp/tourvision/internal/models"
	"github.com/kdimtricp/tourvision/internal/storage"
	"github.com/kdimtricp/tourvision/internal/usage"
)

var (
	ErrBusy     = errors.New("a tour run is already in progress")
	ErrNoScenes = errors.New("no scenes classified")
	ErrNoClips  = errors.New("no clips generated")
)

type Stitcher interface {
	Stitch(ctx context.Context, req media.StitchRequest) error
}

type prober interface {
	Probe(ctx context.Context, path string) (float64, error)
}

type TourStore interface {
	Create(ctx context.Context, tour *models.Tour) error
	Update(ctx context.Context, tour *models.Tour) error
}

type ClipStore interface {
	Create(ctx context.Context, clip *models.Clip) error
}

type Metrics interface {
	RecordClip(status string)
	RecordRun(status string)
}

// Paths resolves per-property directories.
type Paths interface {
	ImageDirFor(propertyCode string) string
	OutputDirFor(propertyCode string) string
}

type ServiceConfig struct {
	TargetDuration float64
	Transition     float64
	FPS            int
	Codec          string
	Threads        int
}

type Service struct {
	classifier *Classifier
	generator  *Generator
	stitcher   Stitcher
	tours      TourStore
	clips      ClipStore
	recorder   *usage.Recorder
	metrics    Metrics
	paths      Paths
	cfg        ServiceConfig
	logger     *zap.Logger

	openStore func(dir string) (storage.Storage, error)

	running atomic.Bool
	wg      sync.WaitGroup
}

type ServiceDeps struct {
	Classifier *Classifier
	Generator  *Generator
	Stitcher   Stitcher
	Tours      TourStore
	Clips      ClipStore
	Recorder   *usage.Recorder
	Metrics    Metrics
	Paths      Paths
}

func NewService(deps ServiceDeps, cfg ServiceConfig, logger *zap.Logger) *Service {
	if cfg.TargetDuration <= 0 {
		cfg.TargetDuration = DefaultTargetDuration
	}
	if cfg.Transition < 0 {
		cfg.Transition = DefaultTransition
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 24
	}
	if cfg.Codec == "" {
		cfg.Codec = "libx264"
	}

	return &Service{
		classifier: deps.Classifier,
		generator:  deps.Generator,
		stitcher:   deps.Stitcher,
		tours:      deps.Tours,
		clips:      deps.Clips,
		recorder:   deps.Recorder,
		metrics:    deps.Metrics,
		paths:      deps.Paths,
		cfg:        cfg,
		logger:     logger.With(zap.String("component", "tour")),
		openStore: func(dir string) (storage.Storage, error) {
			return storage.NewLocalStorage(dir)
		},
	}
}

type SceneFailure struct {
	Label string `json:"label"`
	Error string `json:"error"`
}

type Report struct {
	TourID       string            `json:"tour_id"`
	PropertyCode string            `json:"property_code"`
	Status       models.TourStatus `json:"status"`
	Images       int               `json:"images"`
	Scenes       []string          `json:"scenes"`
	ClipDuration float64           `json:"clip_duration"`
	Clips        []string          `json:"clips"`
	Failures     []SceneFailure    `json:"failures,omitempty"`
	FinalPath    string            `json:"final_path,omitempty"`
	Elapsed      time.Duration     `json:"elapsed"`
}

// Running reports whether a run is in progress.
func (s *Service) Running() bool {
	return s.running.Load()
}

// Run executes the whole pipeline for one property and blocks until it ends.
func (s *Service) Run(ctx context.Context, propertyCode string) (*Report, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer s.running.Store(false)

	tour := models.NewTour(propertyCode)
	if err := s.tours.Create(ctx, tour); err != nil {
		return nil, err
	}
	return s.execute(ctx, tour)
}

// Start records a new tour and runs the pipeline in the background.
func (s *Service) Start(ctx context.Context, propertyCode string) (*models.Tour, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}

	tour := models.NewTour(propertyCode)
	if err := s.tours.Create(ctx, tour); err != nil {
		s.running.Store(false)
		return nil, err
	}

	snapshot := *tour

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)

		if _, err := s.execute(ctx, tour); err != nil {
			s.logger.Error("tour run failed", zap.String("tour_id", tour.ID), zap.Error(err))
		}
	}()

	return &snapshot, nil
}

// Wait blocks until background runs have returned.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) execute(ctx context.Context, tour *models.Tour) (*Report, error) {
	start := time.Now()
	logger := s.logger.With(zap.String("tour_id", tour.ID), zap.String("property", tour.PropertyCode))

	report := &Report{
		TourID:       tour.ID,
		PropertyCode: tour.PropertyCode,
		Scenes:       []string{},
		Clips:        []string{},
	}

	finish := func(status models.TourStatus, runErr error) (*Report, error) {
		now := time.Now()
		tour.Status = status
		tour.FinishedAt = &now
		if runErr != nil {
			tour.Error = runErr.Error()
		}

		// the run context may already be cancelled
		if err := s.tours.Update(context.WithoutCancel(ctx), tour); err != nil {
			logger.Warn("failed to persist tour", zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.RecordRun(string(status))
		}

		report.Status = status
		report.Elapsed = now.Sub(start)
		logger.Info("tour finished", zap.String("status", string(status)), zap.Duration("elapsed", report.Elapsed))

		if status == models.TourFailed {
			return report, runErr
		}
		return report, nil
	}

	images, err := ListImages(s.paths.ImageDirFor(tour.PropertyCode))
	if err != nil {
		return finish(models.TourFailed, err)
	}
	report.Images = len(images)

	var rec UsageRecorder = noopRecorder{}
	if s.recorder != nil {
		rec = s.recorder.ForTour(tour.ID, tour.PropertyCode)
	}

	logger.Info("analysing images", zap.Int("count", len(images)))
	groups, err := s.classifier.Classify(ctx, images, rec)
	if err != nil {
		return finish(models.TourFailed, err)
	}

	report.Scenes = groups.Labels()
	if groups.Len() == 0 {
		logger.Warn("no scenes classified, nothing to generate")
		return finish(models.TourNoScenes, ErrNoScenes)
	}

	clipDuration, err := ClipDuration(groups.Len(), s.cfg.TargetDuration, s.cfg.Transition)
	if err != nil {
		return finish(models.TourFailed, err)
	}
	report.ClipDuration = clipDuration
	tour.SceneCount = groups.Len()
	tour.ClipDuration = clipDuration

	logger.Info("scenes planned",
		zap.Strings("labels", report.Scenes),
		zap.Float64("clip_duration", clipDuration))

	store, err := s.openStore(s.paths.OutputDirFor(tour.PropertyCode))
	if err != nil {
		return finish(models.TourFailed, err)
	}

	names := NewClipNames(tour.PropertyCode)
	for _, group := range groups.List() {
		if err := ctx.Err(); err != nil {
			return finish(models.TourFailed, err)
		}

		logger.Info("processing scene", zap.String("label", group.Label), zap.Int("images", len(group.Images)))

		clip := models.NewClip(tour.ID, group.Label, len(group.Images), ModeFor(group))
		generated, err := s.generator.Generate(ctx, ClipJob{
			PropertyCode: tour.PropertyCode,
			Group:        group,
			FileName:     names.Next(group.Label),
			Store:        store,
			Usage:        rec,
		})
		if err != nil {
			if ctx.Err() != nil {
				return finish(models.TourFailed, ctx.Err())
			}
			logger.Error("scene failed", zap.String("label", group.Label), zap.Error(err))
			clip.Status = models.ClipFailed
			clip.Error = err.Error()
			report.Failures = append(report.Failures, SceneFailure{Label: group.Label, Error: err.Error()})
		} else {
			clip.Status = models.ClipGenerated
			clip.Path = generated.Path
			report.Clips = append(report.Clips, generated.Path)
		}

		if err := s.clips.Create(ctx, clip); err != nil {
			logger.Warn("failed to persist clip", zap.String("label", group.Label), zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.RecordClip(string(clip.Status))
		}
	}

	if len(report.Clips) == 0 {
		logger.Warn("no clips generated, skipping stitching")
		return finish(models.TourNoClips, ErrNoClips)
	}

	ordered := OrderClips(report.Clips)
	report.Clips = ordered

	finalPath, err := store.Path(FinalFileName(tour.PropertyCode))
	if err != nil {
		return finish(models.TourFailed, err)
	}

	logger.Info("stitching clips", zap.Int("clips", len(ordered)), zap.String("output", finalPath))
	err = s.stitcher.Stitch(ctx, media.StitchRequest{
		Clips:        ordered,
		Output:       finalPath,
		ClipDuration: clipDuration,
		Transition:   s.cfg.Transition,
		FPS:          s.cfg.FPS,
		Codec:        s.cfg.Codec,
		Threads:      s.cfg.Threads,
	})
	if err != nil {
		if ctx.Err() != nil {
			return finish(models.TourFailed, ctx.Err())
		}
		logger.Error("stitching failed", zap.Error(err))
		// ffmpeg can leave a truncated file behind
		if derr := store.DeleteFile(FinalFileName(tour.PropertyCode)); derr != nil && !errors.Is(derr, fs.ErrNotExist) {
			logger.Warn("failed to remove partial output", zap.Error(derr))
		}
		return finish(models.TourStitchFailed, fmt.Errorf("stitch: %w", err))
	}

	tour.FinalPath = finalPath
	report.FinalPath = finalPath

	if p, ok := s.stitcher.(prober); ok {
		if d, err := p.Probe(ctx, finalPath); err == nil {
			logger.Info("final video written", zap.String("path", finalPath), zap.Float64("duration", d))
		}
	}

	return finish(models.TourCompleted, nil)
}
