// Package postgres provides a PostgreSQL based implementation of
// [storage.Adapter].
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver.
	"go.uber.org/zap"

	"github.com/hcengineering/platform-sub028/pkg/storage"
	"github.com/hcengineering/platform-sub028/pkg/storage/sqlcommon"
)

// Datastore is the postgres document store.
type Datastore struct {
	*sqlcommon.Docstore
}

var _ storage.Adapter = (*Datastore)(nil)

// New opens a postgres connection for the given URI and wraps it in a
// document store. The connection is verified with backoff before use.
func New(ctx context.Context, uri string, schema storage.Schema, cfg *sqlcommon.Config) (*Datastore, error) {
	db, err := initDB(uri, cfg)
	if err != nil {
		return nil, err
	}

	if err := sqlcommon.Ping(ctx, db, cfg); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize postgres connection: %w", err)
	}
	cfg.Logger.Info("postgres connection established", zap.String("workspace", cfg.Workspace))

	stbl := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	return &Datastore{
		Docstore: sqlcommon.NewDocstore(db, stbl, schema, cfg, "platform_postgres"),
	}, nil
}

func initDB(uri string, cfg *sqlcommon.Config) (*sql.DB, error) {
	if cfg.Username != "" || cfg.Password != "" {
		parsed, err := url.Parse(uri)
		if err != nil {
			return nil, fmt.Errorf("parse postgres connection uri: %w", err)
		}

		username := cfg.Username
		if username == "" && parsed.User != nil {
			username = parsed.User.Username()
		}
		password := cfg.Password
		if password == "" && parsed.User != nil {
			password, _ = parsed.User.Password()
		}
		parsed.User = url.UserPassword(username, password)
		uri = parsed.String()
	}

	db, err := sql.Open("pgx", uri)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	if cfg.MaxOpenConns != 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns != 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleTime != 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if cfg.ConnMaxLifetime != 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return db, nil
}
