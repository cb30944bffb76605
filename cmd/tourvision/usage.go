package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kdimtricp/tourvision/internal/database"
	"github.com/kdimtricp/tourvision/internal/usage"
)

func usageCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("usage", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to YAML config file")
	limit := fs.Int("limit", 20, "Number of recent calls to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, logger, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := database.NewDB(database.Config{Path: cfg.Ledger.DatabasePath}, logger)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer db.Close()

	repo := database.NewUsageRepository(db)

	recent, err := repo.Recent(ctx, *limit)
	if err != nil {
		return err
	}
	totals, err := repo.TotalsByModel(ctx)
	if err != nil {
		return err
	}

	if len(recent) == 0 {
		fmt.Println("No API usage recorded yet")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tPROPERTY\tPROCESS\tMODEL\tSECONDS\tPROMPT\tCANDIDATE\tTOTAL")
	for _, u := range recent {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.3f\t%d\t%d\t%d\n",
			u.CreatedAt.Local().Format(usage.TimestampLayout), u.PropertyCode, u.Process, u.Model,
			u.Elapsed.Seconds(), u.PromptTokens, u.CandidateTokens, u.TotalTokens)
	}
	w.Flush()

	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tCALLS\tPROMPT\tCANDIDATE\tTOTAL")
	for _, t := range totals {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n", t.Model, t.Calls, t.PromptTokens, t.CandidateTokens, t.TotalTokens)
	}
	return w.Flush()
}
