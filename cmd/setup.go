package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/crate/internal/shared"
)

// SetupConfig writes the embedded example config to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	if err := shared.CreateConfigFile(r.configPath); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", r.configPath)
	r.writePlain("✓ Config written to %s\n", r.configPath)
	r.writePlain("Set discogs.consumer_key and discogs.consumer_secret (or %s and %s), then run 'crate auth login'\n",
		shared.EnvConsumerKey, shared.EnvConsumerSecret)
	return nil
}

// SetupDatabase initializes the database and runs migrations.
//
// With the postgres driver the catalog schema is created there as well.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path, "driver", r.config.Database.Driver)

	if err := r.open(ctx); err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}

	statuses, err := shared.Migrations(ctx, r.db)
	if err != nil {
		return err
	}
	applied := 0
	for _, s := range statuses {
		if s.Applied {
			applied++
		}
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	r.writePlain("✓ Database ready at %s (%d/%d migrations applied)\n", r.config.Database.Path, applied, len(statuses))
	if r.pg != nil {
		r.writePlain("✓ Catalog schema ensured on postgres\n")
	}
	return nil
}

// SetupStatus prints every known migration and whether it has been applied.
func (r *Runner) SetupStatus(ctx context.Context, cmd *cli.Command) error {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	statuses, err := shared.Migrations(ctx, db)
	if err != nil {
		return err
	}

	r.writePlainHeader("Migrations")
	for _, s := range statuses {
		mark := "✗"
		if s.Applied {
			mark = "✓"
		}
		r.writePlain("%s %04d %s\n", mark, s.Version, s.Name)
	}
	return nil
}

// SetupRollback reverts the latest applied migration.
func (r *Runner) SetupRollback(ctx context.Context, cmd *cli.Command) error {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := shared.RollbackMigration(ctx, db); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	r.logger.Info("rolled back latest migration", "path", r.config.Database.Path)
	return r.writePlain("✓ Rolled back the latest migration\n")
}
