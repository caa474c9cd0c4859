package sqlcommon

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/hcengineering/platform-sub028/assets"
)

// MigrateOptions parameterizes a schema migration run.
type MigrateOptions struct {
	// Dialect is a goose dialect name ("postgres", "sqlite3").
	Dialect string

	// MigrationDir selects the embedded migration set
	// (assets.PostgresMigrationDir or assets.SqliteMigrationDir).
	MigrationDir string

	// TargetVersion pins the schema version; zero means latest.
	TargetVersion uint

	Verbose bool
}

// Migrate brings the documents schema to the requested version using the
// migrations embedded in assets.
func Migrate(ctx context.Context, db *sql.DB, opts MigrateOptions) error {
	goose.SetLogger(goose.NopLogger())
	goose.SetVerbose(opts.Verbose)
	goose.SetBaseFS(assets.EmbedMigrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(opts.Dialect); err != nil {
		return fmt.Errorf("set dialect %q: %w", opts.Dialect, err)
	}

	currentVersion, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return err
	}

	if opts.TargetVersion == 0 {
		return goose.UpContext(ctx, db, opts.MigrationDir)
	}

	targetInt64Version := int64(opts.TargetVersion)
	switch {
	case targetInt64Version < currentVersion:
		return goose.DownToContext(ctx, db, opts.MigrationDir, targetInt64Version)
	case targetInt64Version > currentVersion:
		return goose.UpToContext(ctx, db, opts.MigrationDir, targetInt64Version)
	default:
		return nil
	}
}
