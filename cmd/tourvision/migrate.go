package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/kdimtricp/tourvision/internal/database"
)

func migrateCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to YAML config file")
	status := fs.Bool("status", false, "Show migration status only")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, logger, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := database.Open(database.Config{Path: cfg.Ledger.DatabasePath})
	if err != nil {
		return err
	}
	defer db.Close()

	migrator := database.NewMigrator(db.Conn(), logger)

	if *status {
		statuses, err := migrator.Status()
		if err != nil {
			return err
		}

		fmt.Println("Migration Status:")
		fmt.Println("=================")
		for _, s := range statuses {
			state := "pending"
			if s.Applied {
				state = "applied " + s.AppliedAt.Local().Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%s - %s [%s]\n", s.Version, s.Name, state)
		}
		return nil
	}

	fmt.Printf("Running migrations on %s...\n", cfg.Ledger.DatabasePath)
	applied, err := migrator.Run()
	if err != nil {
		return err
	}
	fmt.Printf("Migrations completed successfully! (%d applied)\n", applied)
	return nil
}
