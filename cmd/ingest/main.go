package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"dental-triage-be/internal/bootstrap"
	"dental-triage-be/internal/config"
	"dental-triage-be/internal/model"
	"dental-triage-be/internal/pkg/logger"
	"dental-triage-be/internal/repository/unitofwork"
	"dental-triage-be/internal/service"
	"dental-triage-be/pkg/database"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"
	"gorm.io/gorm"
)

func main() {
	cfg := config.Load()
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	defer sysLogger.Sync()

	app := &cli.Command{
		Name:  "dental-ingest",
		Usage: "Manage the dental triage knowledge base",
		Commands: []*cli.Command{
			cmdIngest(cfg, sysLogger),
			cmdMigrate(cfg),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		color.Red("✗ %v", err)
		os.Exit(1)
	}
}

func openDB(cfg *config.Config, dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = cfg.Database.Connection
	}
	return database.NewGormDBFromDSN(dsn, cfg.IsProduction())
}

func cmdIngest(cfg *config.Config, sysLogger logger.ILogger) *cli.Command {
	var dir, dsn string
	var migrate bool

	return &cli.Command{
		Name:    "ingest",
		Aliases: []string{"i"},
		Usage:   "Chunk, embed and index every .txt/.md file under a directory",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "dir",
				Usage:       "Knowledge-base directory",
				Value:       cfg.App.DataDir,
				Sources:     cli.EnvVars("DENTAL_DATA_DIR"),
				Destination: &dir,
			},
			&cli.StringFlag{
				Name:        "dsn",
				Usage:       "Postgres DSN (defaults to DB_CONNECTION_STRING)",
				Destination: &dsn,
			},
			&cli.BoolFlag{
				Name:        "migrate",
				Usage:       "Run the schema migration first",
				Destination: &migrate,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			db, err := openDB(cfg, dsn)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			if migrate {
				if err := database.Migrate(db, model.KnowledgeChunkIndexes, &model.KnowledgeChunk{}); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
			}

			embedder, err := bootstrap.NewEmbeddingProvider(cfg, sysLogger)
			if err != nil {
				return err
			}
			ingest := service.NewIngestService(unitofwork.NewRepositoryFactory(db), embedder, sysLogger)

			color.Cyan("Indexing %s ...", dir)
			report, err := ingest.Ingest(ctx, dir)
			if errors.Is(err, service.ErrNoDocuments) {
				color.Yellow("No usable documents in %s (%d skipped)", dir, report.Skipped)
				return err
			}
			if err != nil {
				return err
			}

			color.Green("✓ Indexed %d file(s) into %d chunk(s)", report.Files, report.Chunks)
			if report.Skipped > 0 {
				color.Yellow("  skipped %d unreadable or empty file(s)", report.Skipped)
			}
			return nil
		},
	}
}

func cmdMigrate(cfg *config.Config) *cli.Command {
	var dsn string

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Create the knowledge chunk table, extensions and search indexes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "dsn",
				Usage:       "Postgres DSN (defaults to DB_CONNECTION_STRING)",
				Destination: &dsn,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			db, err := openDB(cfg, dsn)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			if err := database.Migrate(db, model.KnowledgeChunkIndexes, &model.KnowledgeChunk{}); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			color.Green("✓ Migration complete")
			return nil
		},
	}
}
