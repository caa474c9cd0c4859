// Package sqlite provides an embedded SQLite implementation of
// [storage.Adapter], suitable for single-node and test deployments.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite" // SQLite driver.

	"github.com/hcengineering/platform-sub028/pkg/storage"
	"github.com/hcengineering/platform-sub028/pkg/storage/sqlcommon"
)

// Datastore is the sqlite document store.
type Datastore struct {
	*sqlcommon.Docstore
}

var _ storage.Adapter = (*Datastore)(nil)

// New opens (or creates) the sqlite database at the given URI and wraps it in
// a document store.
func New(ctx context.Context, uri string, schema storage.Schema, cfg *sqlcommon.Config) (*Datastore, error) {
	db, err := sql.Open("sqlite", prepareURI(uri))
	if err != nil {
		return nil, fmt.Errorf("open sqlite connection: %w", err)
	}

	// A single writer avoids SQLITE_BUSY under concurrent batches.
	db.SetMaxOpenConns(1)

	if err := sqlcommon.Ping(ctx, db, cfg); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite connection: %w", err)
	}

	stbl := sq.StatementBuilder.PlaceholderFormat(sq.Question)
	return &Datastore{
		Docstore: sqlcommon.NewDocstore(db, stbl, schema, cfg, "platform_sqlite"),
	}, nil
}

// prepareURI enables WAL journaling and foreign keys unless the caller
// already pinned pragmas.
func prepareURI(uri string) string {
	uri = strings.TrimPrefix(uri, "sqlite://")
	if strings.Contains(uri, "_pragma") {
		return uri
	}
	sep := "?"
	if strings.Contains(uri, "?") {
		sep = "&"
	}
	return uri + sep + url.Values{
		"_pragma": []string{"journal_mode(WAL)", "busy_timeout(100)"},
	}.Encode()
}
