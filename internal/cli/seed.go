package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Rohan-80800/PositLearn-sub001/internal/config"
	"github.com/Rohan-80800/PositLearn-sub001/internal/domain"
	"github.com/Rohan-80800/PositLearn-sub001/internal/infra/memory"
	"github.com/Rohan-80800/PositLearn-sub001/internal/infra/postgres"
)

// NewSeedCmd loads a project into the Postgres catalog.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a project (JSON) into the Postgres catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			project := sampleProject()
			if file != "" {
				project, err = readProject(file)
				if err != nil {
					return err
				}
			}
			project = memory.Normalize(project)

			ctx := cmd.Context()
			if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
				return err
			}
			pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := postgres.NewCatalogLoader(pool).SaveProject(ctx, project); err != nil {
				return err
			}
			logger.Info("project seeded",
				zap.String("projectId", project.ID),
				zap.Int("modules", len(project.Modules)))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "project JSON file (defaults to the built-in sample)")
	return cmd
}

func readProject(path string) (domain.Project, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Project{}, err
	}
	var project domain.Project
	if err := json.Unmarshal(raw, &project); err != nil {
		return domain.Project{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return project, nil
}
