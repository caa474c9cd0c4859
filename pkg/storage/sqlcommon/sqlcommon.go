// Package sqlcommon holds the SQL plumbing shared by the postgres and sqlite
// adapters: configuration, the document table access layer and the goose
// migrator.
package sqlcommon

import (
	"context"
	"database/sql"
	"math/rand"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/cenkalti/backoff/v4"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"

	"github.com/hcengineering/platform-sub028/pkg/core"
	"github.com/hcengineering/platform-sub028/pkg/logger"
	"github.com/hcengineering/platform-sub028/pkg/storage"
)

var tracer = otel.Tracer("pkg/storage/sqlcommon")

// Config defines the configuration parameters for setting up and managing a
// sql connection.
type Config struct {
	Workspace string
	Username  string
	Password  string
	Logger    logger.Logger

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration

	ConnectTimeout time.Duration

	ExportMetrics bool
}

// DatastoreOption defines a function type used for configuring a Config
// object.
type DatastoreOption func(*Config)

// WithWorkspace returns a DatastoreOption that scopes the adapter to one
// workspace.
func WithWorkspace(workspace string) DatastoreOption {
	return func(cfg *Config) {
		cfg.Workspace = workspace
	}
}

// WithUsername returns a DatastoreOption that sets the username in the Config.
func WithUsername(username string) DatastoreOption {
	return func(cfg *Config) {
		cfg.Username = username
	}
}

// WithPassword returns a DatastoreOption that sets the password in the Config.
func WithPassword(password string) DatastoreOption {
	return func(cfg *Config) {
		cfg.Password = password
	}
}

// WithLogger returns a DatastoreOption that sets the Logger in the Config.
func WithLogger(l logger.Logger) DatastoreOption {
	return func(cfg *Config) {
		cfg.Logger = l
	}
}

// WithMaxOpenConns returns a DatastoreOption that sets the number of maximum
// open connections in the Config.
func WithMaxOpenConns(c int) DatastoreOption {
	return func(cfg *Config) {
		cfg.MaxOpenConns = c
	}
}

// WithMaxIdleConns returns a DatastoreOption that sets the number of maximum
// idle connections in the Config.
func WithMaxIdleConns(c int) DatastoreOption {
	return func(cfg *Config) {
		cfg.MaxIdleConns = c
	}
}

// WithConnMaxIdleTime returns a DatastoreOption that sets the maximum
// idle time of a connection in the Config.
func WithConnMaxIdleTime(d time.Duration) DatastoreOption {
	return func(cfg *Config) {
		cfg.ConnMaxIdleTime = d
	}
}

// WithConnMaxLifetime returns a DatastoreOption that sets the maximum
// lifetime of a connection in the Config.
func WithConnMaxLifetime(d time.Duration) DatastoreOption {
	return func(cfg *Config) {
		cfg.ConnMaxLifetime = d
	}
}

// WithMetrics returns a DatastoreOption that enables DBStats metrics export.
func WithMetrics() DatastoreOption {
	return func(cfg *Config) {
		cfg.ExportMetrics = true
	}
}

// NewConfig returns a Config with defaults applied.
func NewConfig(opts ...DatastoreOption) *Config {
	cfg := &Config{
		Workspace:      "default",
		ConnectTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoopLogger()
	}
	return cfg
}

// Ping verifies the connection with exponential backoff, bounded by the
// configured connect timeout.
func Ping(ctx context.Context, db *sql.DB, cfg *Config) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = cfg.ConnectTimeout
	return backoff.Retry(func() error {
		return db.PingContext(ctx)
	}, backoff.WithContext(policy, ctx))
}

// Docstore implements [storage.Adapter] over a database/sql connection and a
// squirrel statement builder. The postgres and sqlite adapters differ only in
// driver, placeholder format and migration dialect.
//
// Updates are applied read-modify-write: the row is loaded, the operation set
// is applied in Go and the result is upserted. Concurrent writers to the same
// document resolve last-writer-wins, which the pipeline accepts.
type Docstore struct {
	db        *sql.DB
	stbl      sq.StatementBuilderType
	schema    storage.Schema
	workspace string
	logger    logger.Logger

	dbStatsCollector prometheus.Collector

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

var _ storage.Adapter = (*Docstore)(nil)
var _ storage.Provisioner = (*Docstore)(nil)

// NewDocstore wraps an open connection. dbName labels the prometheus DBStats
// collector when metrics export is enabled.
func NewDocstore(db *sql.DB, stbl sq.StatementBuilderType, schema storage.Schema, cfg *Config, dbName string) *Docstore {
	d := &Docstore{
		db:        db,
		stbl:      stbl.RunWith(db),
		schema:    schema,
		workspace: cfg.Workspace,
		logger:    cfg.Logger,
		entropy:   ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
	if cfg.ExportMetrics {
		d.dbStatsCollector = collectors.NewDBStatsCollector(db, dbName)
		if err := prometheus.Register(d.dbStatsCollector); err != nil {
			cfg.Logger.Error("failed to register DBStats collector")
			d.dbStatsCollector = nil
		}
	}
	return d
}

func (d *Docstore) nextSeq() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return ulid.MustNew(ulid.Now(), d.entropy).String()
}

// EnsureDomain is a no-op for SQL stores: the documents table is shared by
// all domains and created by migrations.
func (d *Docstore) EnsureDomain(ctx context.Context, domain core.Domain) error {
	return nil
}

// Tx see [storage.Adapter].Tx.
func (d *Docstore) Tx(ctx context.Context, txes ...core.Tx) ([]core.Result, error) {
	ctx, span := tracer.Start(ctx, "sql.Tx")
	defer span.End()

	results := make([]core.Result, 0, len(txes))
	for _, tx := range txes {
		_, class, ok := core.TargetOf(tx)
		if !ok {
			return nil, storage.UnsupportedTxError(tx)
		}
		domain, ok := d.schema.FindDomain(class)
		if !ok {
			return nil, storage.UnsupportedTxError(tx)
		}

		switch t := tx.(type) {
		case *core.TxCreateDoc:
			doc := core.BuildDoc(t)
			if err := d.upsert(ctx, domain, doc); err != nil {
				return nil, err
			}
			results = append(results, core.Result{Object: doc.Clone(), Matched: true})
		case *core.TxUpdateDoc:
			doc, err := d.loadOne(ctx, domain, t.ObjectID)
			if err != nil {
				return nil, err
			}
			if doc != nil {
				core.ApplyUpdate(doc, t)
				if err := d.upsert(ctx, domain, doc); err != nil {
					return nil, err
				}
			}
			results = append(results, core.Result{Matched: true})
		case *core.TxRemoveDoc:
			if err := d.delete(ctx, domain, t.ObjectID); err != nil {
				return nil, err
			}
			results = append(results, core.Result{Matched: true})
		case *core.TxMixin:
			doc, err := d.loadOne(ctx, domain, t.ObjectID)
			if err != nil {
				return nil, err
			}
			if doc != nil {
				core.ApplyMixin(doc, t)
				if err := d.upsert(ctx, domain, doc); err != nil {
					return nil, err
				}
			}
			results = append(results, core.Result{Matched: true})
		case *core.TxApplyIf:
			return nil, storage.UnsupportedTxError(tx)
		}
	}
	return results, nil
}

// Load see [storage.Adapter].Load.
func (d *Docstore) Load(ctx context.Context, domain core.Domain, ids []core.Ref) ([]*core.Doc, error) {
	ctx, span := tracer.Start(ctx, "sql.Load")
	defer span.End()

	if len(ids) == 0 {
		return nil, nil
	}
	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = string(id)
	}

	rows, err := d.stbl.
		Select(docColumns...).
		From("documents").
		Where(sq.Eq{"workspace": d.workspace, "domain": string(domain), "id": idStrings}).
		QueryContext(ctx)
	if err != nil {
		return nil, handleSQLError(err)
	}
	defer rows.Close()

	return scanDocs(rows)
}

// FindAll see [storage.Adapter].FindAll.
//
// Header-field terms (_id, space, modifiedBy) are pushed into the SQL WHERE
// clause; class derivation and attribute terms are evaluated in Go so the
// matching semantics stay identical to the memory adapter.
func (d *Docstore) FindAll(ctx context.Context, class core.Ref, query core.Query, options *core.FindOptions) ([]*core.Doc, error) {
	ctx, span := tracer.Start(ctx, "sql.FindAll")
	defer span.End()

	domain, ok := d.schema.FindDomain(class)
	if !ok {
		return nil, nil
	}

	stmt := d.stbl.
		Select(docColumns...).
		From("documents").
		Where(sq.Eq{"workspace": d.workspace, "domain": string(domain)})

	residual := core.Query{}
	for field, want := range query {
		column, ok := headerColumn(field)
		if !ok {
			residual[field] = want
			continue
		}
		if in, isIn := want.(core.In); isIn {
			values := make([]any, len(in))
			copy(values, in)
			stmt = stmt.Where(sq.Eq{column: values})
			continue
		}
		stmt = stmt.Where(sq.Eq{column: want})
	}

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, handleSQLError(err)
	}
	defer rows.Close()

	docs, err := scanDocs(rows)
	if err != nil {
		return nil, err
	}

	out := docs[:0]
	for _, doc := range docs {
		if !d.schema.IsDerived(doc.Class, class) {
			continue
		}
		if !core.Matches(doc, residual) {
			continue
		}
		out = append(out, doc)
	}
	return core.ApplyOptions(out, options), nil
}

// Close unregisters metrics. The connection is owned by the caller that
// opened it.
func (d *Docstore) Close() error {
	if d.dbStatsCollector != nil {
		prometheus.Unregister(d.dbStatsCollector)
	}
	return d.db.Close()
}

func (d *Docstore) upsert(ctx context.Context, domain core.Domain, doc *core.Doc) error {
	attrs, err := encodeAttributes(doc.Attributes)
	if err != nil {
		return err
	}
	_, err = d.stbl.
		Insert("documents").
		Columns(docColumns...).
		Values(d.workspace, string(domain), string(doc.ID), string(doc.Class), string(doc.Space),
			string(doc.ModifiedBy), doc.ModifiedOn, d.nextSeq(), attrs).
		Suffix(`ON CONFLICT (workspace, domain, id) DO UPDATE SET
			class = excluded.class,
			space = excluded.space,
			modified_by = excluded.modified_by,
			modified_on = excluded.modified_on,
			attributes = excluded.attributes`).
		ExecContext(ctx)
	return handleSQLError(err)
}

func (d *Docstore) loadOne(ctx context.Context, domain core.Domain, id core.Ref) (*core.Doc, error) {
	docs, err := d.Load(ctx, domain, []core.Ref{id})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}

func (d *Docstore) delete(ctx context.Context, domain core.Domain, id core.Ref) error {
	_, err := d.stbl.
		Delete("documents").
		Where(sq.Eq{"workspace": d.workspace, "domain": string(domain), "id": string(id)}).
		ExecContext(ctx)
	return handleSQLError(err)
}

var docColumns = []string{
	"workspace", "domain", "id", "class", "space", "modified_by", "modified_on", "seq", "attributes",
}

func headerColumn(field string) (string, bool) {
	switch field {
	case "_id":
		return "id", true
	case "space":
		return "space", true
	case "modifiedBy":
		return "modified_by", true
	}
	return "", false
}
