// Package migrate applies the embedded storefront schema migrations.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"time"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"invizible.art/internal/obs"
)

//go:embed sql/*.sql
var embedded embed.FS

// Migrations returns the embedded migration files rooted at their directory.
func Migrations() fs.FS {
	sub, err := fs.Sub(embedded, "sql")
	if err != nil {
		panic(err)
	}
	return sub
}

// Status describes one known migration.
type Status struct {
	Version   int64
	Name      string
	Applied   bool
	AppliedAt time.Time
}

// Manager executes the embedded SQL migrations.
type Manager struct {
	provider *goose.Provider
	log      *zap.Logger
}

// Option configures Manager.
type Option func(*options)

type options struct {
	fsys    fs.FS
	verbose bool
	log     *zap.Logger
}

// WithFS replaces the embedded migrations, mainly for tests.
func WithFS(fsys fs.FS) Option {
	return func(o *options) {
		if fsys != nil {
			o.fsys = fsys
		}
	}
}

// WithVerbose makes goose report every applied statement.
func WithVerbose(v bool) Option {
	return func(o *options) { o.verbose = v }
}

// WithLogger overrides the logger used for migration results.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// NewManager constructs a Manager.
func NewManager(db *sql.DB, opts ...Option) (*Manager, error) {
	if db == nil {
		return nil, errors.New("migrate: nil db")
	}
	o := options{fsys: Migrations(), log: obs.Logger().Named("migrate")}
	for _, opt := range opts {
		opt(&o)
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, o.fsys, goose.WithVerbose(o.verbose))
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Manager{provider: provider, log: o.log}, nil
}

// Up applies all pending migrations.
func (m *Manager) Up(ctx context.Context) error {
	results, err := m.provider.Up(ctx)
	for _, r := range results {
		m.log.Info("migration applied",
			zap.Int64("version", r.Source.Version),
			zap.String("name", path.Base(r.Source.Path)),
			zap.Duration("took", r.Duration))
	}
	if err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// Down rolls back the most recent applied migration.
func (m *Manager) Down(ctx context.Context) error {
	r, err := m.provider.Down(ctx)
	if err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	if r != nil && r.Source != nil {
		m.log.Info("migration rolled back", zap.Int64("version", r.Source.Version), zap.String("name", path.Base(r.Source.Path)))
	}
	return nil
}

// Status returns every known migration ordered by version.
func (m *Manager) Status(ctx context.Context) ([]Status, error) {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate status: %w", err)
	}
	res := make([]Status, 0, len(statuses))
	for _, s := range statuses {
		res = append(res, Status{
			Version:   s.Source.Version,
			Name:      path.Base(s.Source.Path),
			Applied:   s.State == goose.StateApplied,
			AppliedAt: s.AppliedAt,
		})
	}
	return res, nil
}

// Version reports the current schema version.
func (m *Manager) Version(ctx context.Context) (int64, error) {
	return m.provider.GetDBVersion(ctx)
}
