package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/utc"
	_ "github.com/mattn/go-sqlite3"

	"github.com/agentstation/sitecfg/pkg/errors"
	"github.com/agentstation/sitecfg/pkg/sites"
)

//go:embed schema.sql
var schemaSQL string

// listSeparator joins plugin lists into one column; plugin ids and paths never contain it.
const listSeparator = "\n"

// SQLiteStore keeps configurations in a SQLite database. Each Save runs in
// a single transaction.
type SQLiteStore struct {
	db    *sql.DB
	path  string
	limit int
}

// OpenSQLite creates or opens the database at path.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement, so pruning a configuration removes its rows
func OpenSQLite(path string, opts ...Option) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.NewValidationError("store.path", path, "a database file is required")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path, limit: newOptions(opts...).historyLimit}, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Location returns the database path.
func (s *SQLiteStore) Location() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// LoadCurrent reads the configuration marked current.
func (s *SQLiteStore) LoadCurrent(ctx context.Context) (*sites.Configuration, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `SELECT seq FROM configurations WHERE is_current = 1`).Scan(&seq)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewStoreError(errors.StoreOpRead, s.path, err)
	}

	cfg, err := s.load(ctx, seq)
	if err != nil {
		return nil, errors.NewStoreError(errors.StoreOpRead, s.path, err)
	}
	return cfg, nil
}

// History reads saved configurations, newest first.
func (s *SQLiteStore) History(ctx context.Context, limit int) ([]*sites.Configuration, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT seq FROM configurations ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.NewStoreError(errors.StoreOpRead, s.path, err)
	}
	var seqs []int64
	for rows.Next() {
		var seq int64
		if err := rows.Scan(&seq); err != nil {
			_ = rows.Close()
			return nil, errors.NewStoreError(errors.StoreOpRead, s.path, err)
		}
		seqs = append(seqs, seq)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreError(errors.StoreOpRead, s.path, err)
	}

	out := make([]*sites.Configuration, 0, len(seqs))
	for _, seq := range seqs {
		cfg, err := s.load(ctx, seq)
		if err != nil {
			return nil, errors.NewStoreError(errors.StoreOpRead, s.path, err)
		}
		out = append(out, cfg)
	}
	return out, nil
}

// Save inserts cfg, marks it current and prunes history in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, cfg *sites.Configuration) error {
	if err := s.save(ctx, cfg); err != nil {
		return errors.NewStoreError(errors.StoreOpWrite, s.path, err)
	}
	return nil
}

func (s *SQLiteStore) save(ctx context.Context, cfg *sites.Configuration) error {
	digest, err := cfg.Digest()
	if err != nil {
		return err
	}
	rec := cfg.Record()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE configurations SET is_current = 0 WHERE is_current = 1`); err != nil {
		return fmt.Errorf("clear current: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO configurations (id, created_at, digest, is_current)
		VALUES (?, ?, ?, 1)
	`, rec.ID, formatTime(rec.CreatedAt), digest.String())
	if err != nil {
		return fmt.Errorf("insert configuration: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert configuration: %w", err)
	}

	for i, site := range rec.Sites {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sites (configuration_seq, position, location, platform_url, updatable, policy, previous_plugin_path)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, seq, i, site.Location, site.PlatformURL, site.Updatable, string(site.Policy),
			strings.Join(site.PreviousPluginPath, listSeparator)); err != nil {
			return fmt.Errorf("insert site %s: %w", site.Location, err)
		}

		for j, f := range site.Features {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO features (configuration_seq, site_position, position, name, version, url, configured, broken, plugins)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, seq, i, j, f.Name, f.Version, f.URL, f.Configured, f.Broken,
				strings.Join(f.Plugins, listSeparator)); err != nil {
				return fmt.Errorf("insert feature %s@%s: %w", f.Name, f.Version, err)
			}
		}
	}

	for i, a := range rec.Activities {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO activities (configuration_seq, position, action, label, status, date)
			VALUES (?, ?, ?, ?, ?, ?)
		`, seq, i, a.Action, a.Label, a.Status, formatTime(a.Date)); err != nil {
			return fmt.Errorf("insert activity: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM configurations
		WHERE seq NOT IN (SELECT seq FROM configurations ORDER BY seq DESC LIMIT ?)
	`, s.limit); err != nil {
		return fmt.Errorf("prune history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// load reads one configuration by sequence number.
func (s *SQLiteStore) load(ctx context.Context, seq int64) (*sites.Configuration, error) {
	var rec sites.ConfigurationRecord
	var createdAt string
	if err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at FROM configurations WHERE seq = ?`, seq,
	).Scan(&rec.ID, &createdAt); err != nil {
		return nil, fmt.Errorf("read configuration %d: %w", seq, err)
	}
	var err error
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}

	if rec.Sites, err = s.loadSites(ctx, seq); err != nil {
		return nil, err
	}
	if rec.Activities, err = s.loadActivities(ctx, seq); err != nil {
		return nil, err
	}
	return rec.Configuration()
}

func (s *SQLiteStore) loadSites(ctx context.Context, seq int64) ([]sites.SiteRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT location, platform_url, updatable, policy, previous_plugin_path
		FROM sites WHERE configuration_seq = ? ORDER BY position
	`, seq)
	if err != nil {
		return nil, fmt.Errorf("read sites: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []sites.SiteRecord
	for rows.Next() {
		var site sites.SiteRecord
		var policy, pluginPath string
		if err := rows.Scan(&site.Location, &site.PlatformURL, &site.Updatable, &policy, &pluginPath); err != nil {
			return nil, fmt.Errorf("read sites: %w", err)
		}
		site.Policy = sites.PolicyMode(policy)
		site.PreviousPluginPath = splitList(pluginPath)
		out = append(out, site)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read sites: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("read sites: %w", err)
	}

	features, err := s.db.QueryContext(ctx, `
		SELECT site_position, name, version, url, configured, broken, plugins
		FROM features WHERE configuration_seq = ? ORDER BY site_position, position
	`, seq)
	if err != nil {
		return nil, fmt.Errorf("read features: %w", err)
	}
	defer func() { _ = features.Close() }()

	for features.Next() {
		var pos int
		var f sites.FeatureRecord
		var plugins string
		if err := features.Scan(&pos, &f.Name, &f.Version, &f.URL, &f.Configured, &f.Broken, &plugins); err != nil {
			return nil, fmt.Errorf("read features: %w", err)
		}
		if pos < 0 || pos >= len(out) {
			return nil, fmt.Errorf("read features: feature %s@%s references missing site %d", f.Name, f.Version, pos)
		}
		f.Plugins = splitList(plugins)
		out[pos].Features = append(out[pos].Features, f)
	}
	if err := features.Err(); err != nil {
		return nil, fmt.Errorf("read features: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) loadActivities(ctx context.Context, seq int64) ([]sites.ActivityRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT action, label, status, date
		FROM activities WHERE configuration_seq = ? ORDER BY position
	`, seq)
	if err != nil {
		return nil, fmt.Errorf("read activities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []sites.ActivityRecord
	for rows.Next() {
		var a sites.ActivityRecord
		var date string
		if err := rows.Scan(&a.Action, &a.Label, &a.Status, &date); err != nil {
			return nil, fmt.Errorf("read activities: %w", err)
		}
		if a.Date, err = parseTime(date); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func formatTime(t utc.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) (utc.Time, error) {
	t, err := utc.Parse(time.RFC3339Nano, s)
	if err != nil {
		return utc.Time{}, errors.WrapParse("time", s, err)
	}
	return t, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, listSeparator)
}
