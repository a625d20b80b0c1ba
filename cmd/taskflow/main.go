package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"taskflow/internal/config"
	"taskflow/internal/repository"
	"taskflow/internal/service"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "taskflow",
		Short:         "Taskflow - tasks and categories over HTTP, Telegram and the command line",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(statsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openBoard loads configuration, opens the database and returns an
// initialized controller. The returned func closes the database.
func openBoard(ctx context.Context) (*service.Controller, config.Config, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, cfg, nil, fmt.Errorf("config: %w", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		return nil, cfg, nil, fmt.Errorf("db: %w", err)
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	categoryRepo := repository.NewCategoryRepository(db)
	if cfg.SeedDefaults {
		seeded, err := categoryRepo.EnsureDefaults(ctx)
		if err != nil {
			closeDB()
			return nil, cfg, nil, fmt.Errorf("seed categories: %w", err)
		}
		if seeded {
			log.Println("[info] default categories created")
		}
	}

	ctrl := service.NewController(repository.NewTaskRepository(db), categoryRepo)
	if err := ctrl.Initialize(ctx); err != nil {
		closeDB()
		return nil, cfg, nil, err
	}
	return ctrl, cfg, closeDB, nil
}
