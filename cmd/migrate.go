package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/familytales/memorybook-api/internal/database"
	"github.com/familytales/memorybook-api/internal/models"
	"github.com/familytales/memorybook-api/pkg/config"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Apply the database schema for the Memory Book API.

Creates or updates the tables backing threads, content items, extracted
text revisions, narration scripts, audio assets, segment maps and the
job queue. Safe to run repeatedly; existing data is preserved.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

// migrationModels lists every persisted model in dependency order.
func migrationModels() []any {
	return []any{
		&models.Thread{},
		&models.ContentItem{},
		&models.ExtractedText{},
		&models.NarrationScript{},
		&models.AudioAsset{},
		&models.SegmentEntry{},
		&models.Job{},
	}
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.Initialize(cfg.Database.Path, cfg.Database.LogQueries)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.AutoMigrate(migrationModels()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Database schema up to date at %s\n", cfg.Database.Path)
	return nil
}
