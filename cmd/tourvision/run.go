package main

import (
	"context"
	"flag"
	"fmt"

	"go.uber.org/zap"
)

func runCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to YAML config file")
	property := fs.String("property", "", "Property code (overrides config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, logger, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if *property != "" {
		cfg.PropertyCode = *property
	}

	p, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	logger.Info("starting tour",
		zap.String("property", cfg.PropertyCode),
		zap.String("images", cfg.ImageDirFor(cfg.PropertyCode)),
		zap.String("output", cfg.OutputDirFor(cfg.PropertyCode)))

	report, err := p.service.Run(ctx, cfg.PropertyCode)
	if err != nil {
		return err
	}

	fmt.Printf("Tour %s for property %s: %s\n", report.TourID, report.PropertyCode, report.Status)
	fmt.Printf("  images: %d  scenes: %d  clips: %d  clip duration: %.3fs\n",
		report.Images, len(report.Scenes), len(report.Clips), report.ClipDuration)
	for _, f := range report.Failures {
		fmt.Printf("  failed scene %s: %s\n", f.Label, f.Error)
	}
	if report.FinalPath != "" {
		fmt.Printf("  final video: %s\n", report.FinalPath)
	}
	return nil
}
