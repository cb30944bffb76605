package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/kdimtricp/tourvision/internal/config"
	"github.com/kdimtricp/tourvision/internal/logging"
)

const usageText = `Usage: tourvision <command> [flags]

Commands:
  run       generate a property tour video (default)
  serve     serve the tour browser and accept runs over HTTP
  usage     print recent API usage from the ledger
  migrate   apply or show ledger migrations

Run "tourvision <command> -h" for command flags.
`

type command func(ctx context.Context, args []string) error

func main() {
	commands := map[string]command{
		"run":     runCommand,
		"serve":   serveCommand,
		"usage":   usageCommand,
		"migrate": migrateCommand,
	}

	args := os.Args[1:]
	name := "run"
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		name, args = args[0], args[1:]
	}

	if name == "help" {
		fmt.Print(usageText)
		return
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", name, usageText)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd(ctx, args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "tourvision %s: %v\n", name, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file named by -config and builds the logger.
func loadConfig(path string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, logger, nil
}
