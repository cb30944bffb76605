package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/kdimtricp/tourvision/internal/ai"
	"github.com/kdimtricp/tourvision/internal/config"
	"github.com/kdimtricp/tourvision/internal/database"
	"github.com/kdimtricp/tourvision/internal/media"
	"github.com/kdimtricp/tourvision/internal/metrics"
	"github.com/kdimtricp/tourvision/internal/tour"
	"github.com/kdimtricp/tourvision/internal/usage"
)

type pipeline struct {
	db      *database.DB
	service *tour.Service
	metrics *metrics.Collector
}

func (p *pipeline) Close() error {
	return p.db.Close()
}

func buildPipeline(cfg *config.Config, logger *zap.Logger) (*pipeline, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}

	stitcher, err := media.NewStitcher(logger)
	if err != nil {
		return nil, err
	}

	db, err := database.NewDB(database.Config{Path: cfg.Ledger.DatabasePath}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	aiConfig := &ai.Config{
		APIKey:      cfg.Gemini.APIKey,
		BaseURL:     cfg.Gemini.BaseURL,
		VisionModel: cfg.Gemini.VisionModel,
		VideoModel:  cfg.Gemini.VideoModel,
		Timeout:     cfg.Gemini.Timeout,
	}
	gemini := ai.NewGeminiClient(aiConfig)
	veo := ai.NewVeoClient(aiConfig)

	collector := metrics.NewCollector()
	recorder := usage.NewRecorder(logger,
		usage.NewCSVSink(cfg.Ledger.CSVPath),
		usage.NewStoreSink(database.NewUsageRepository(db)),
		collector,
	)

	service := tour.NewService(tour.ServiceDeps{
		Classifier: tour.NewClassifier(gemini, cfg.Gemini.VisionModel, cfg.Pipeline.ClassifyInterval, logger),
		Generator: tour.NewGenerator(gemini, veo, tour.GeneratorConfig{
			VisionModel:  cfg.Gemini.VisionModel,
			VideoModel:   cfg.Gemini.VideoModel,
			AspectRatio:  cfg.Gemini.AspectRatio,
			PollInterval: cfg.Pipeline.PollInterval,
		}, logger),
		Stitcher: stitcher,
		Tours:    database.NewTourRepository(db),
		Clips:    database.NewClipRepository(db),
		Recorder: recorder,
		Metrics:  collector,
		Paths:    cfg,
	}, tour.ServiceConfig{
		TargetDuration: cfg.Pipeline.TargetDuration,
		Transition:     cfg.Pipeline.Transition,
		FPS:            cfg.Pipeline.FPS,
		Codec:          cfg.Pipeline.Codec,
		Threads:        cfg.Pipeline.Threads,
	}, logger)

	return &pipeline{db: db, service: service, metrics: collector}, nil
}
