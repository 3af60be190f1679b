package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound indicates the requested plugin has no record.
var ErrNotFound = errors.New("plugin not found in store")

// Store manages plugin state persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the state database and applies migrations.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Save upserts a plugin record, preserving installed_at on update.
func (s *Store) Save(ctx context.Context, p *InstalledPlugin) error {
	now := time.Now().UTC()
	if p.InstalledAt.IsZero() {
		p.InstalledAt = now
	}
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO installed_plugins (
            uuid, name, dir_name, url, ref, ref_type, commit_hash,
            version, trust_level, original_url, original_uuid,
            installed_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(uuid) DO UPDATE SET
            name = excluded.name,
            dir_name = excluded.dir_name,
            url = excluded.url,
            ref = excluded.ref,
            ref_type = excluded.ref_type,
            commit_hash = excluded.commit_hash,
            version = excluded.version,
            trust_level = excluded.trust_level,
            original_url = excluded.original_url,
            original_uuid = excluded.original_uuid,
            updated_at = excluded.updated_at`,
		p.UUID, p.Name, p.DirName, p.URL, p.Ref, p.RefType, p.Commit,
		p.Version, p.TrustLevel, p.OriginalURL, p.OriginalUUID,
		p.InstalledAt.Format(time.RFC3339Nano),
		p.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save plugin %s: %w", p.UUID, err)
	}
	return nil
}

// Get returns one plugin record by UUID.
func (s *Store) Get(ctx context.Context, uuid string) (*InstalledPlugin, error) {
	row := s.db.QueryRowContext(ctx, selectPlugins+" WHERE p.uuid = ?", uuid)
	p, err := scanPlugin(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, uuid)
	}
	return p, err
}

// GetByURL returns the plugin installed from url. Callers normalize the URL
// before storing and querying.
func (s *Store) GetByURL(ctx context.Context, url string) (*InstalledPlugin, error) {
	row := s.db.QueryRowContext(ctx, selectPlugins+" WHERE p.url = ?", url)
	p, err := scanPlugin(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: url %s", ErrNotFound, url)
	}
	return p, err
}

// List returns every installed plugin ordered by name.
func (s *Store) List(ctx context.Context) ([]*InstalledPlugin, error) {
	rows, err := s.db.QueryContext(ctx, selectPlugins+" ORDER BY p.name COLLATE NOCASE")
	if err != nil {
		return nil, fmt.Errorf("list plugins: %w", err)
	}
	defer rows.Close()

	var plugins []*InstalledPlugin
	for rows.Next() {
		p, err := scanPlugin(rows)
		if err != nil {
			return nil, err
		}
		plugins = append(plugins, p)
	}
	return plugins, rows.Err()
}

// Delete removes a plugin record. Enabled state goes with it via cascade.
func (s *Store) Delete(ctx context.Context, uuid string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM installed_plugins WHERE uuid = ?", uuid)
	if err != nil {
		return fmt.Errorf("delete plugin %s: %w", uuid, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, uuid)
	}
	return nil
}

// SetEnabled records whether a plugin loads at startup.
func (s *Store) SetEnabled(ctx context.Context, uuid string, enabled bool) error {
	if _, err := s.Get(ctx, uuid); err != nil {
		return err
	}
	var err error
	if enabled {
		_, err = s.db.ExecContext(ctx,
			"INSERT INTO enabled_plugins (uuid) VALUES (?) ON CONFLICT(uuid) DO NOTHING", uuid)
	} else {
		_, err = s.db.ExecContext(ctx, "DELETE FROM enabled_plugins WHERE uuid = ?", uuid)
	}
	if err != nil {
		return fmt.Errorf("set enabled %s: %w", uuid, err)
	}
	return nil
}

// ListEnabled returns the UUIDs of all enabled plugins.
func (s *Store) ListEnabled(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT uuid FROM enabled_plugins ORDER BY uuid")
	if err != nil {
		return nil, fmt.Errorf("list enabled: %w", err)
	}
	defer rows.Close()

	var uuids []string
	for rows.Next() {
		var uuid string
		if err := rows.Scan(&uuid); err != nil {
			return nil, err
		}
		uuids = append(uuids, uuid)
	}
	return uuids, rows.Err()
}

const selectPlugins = `SELECT
    p.uuid, p.name, p.dir_name, p.url, p.ref, p.ref_type, p.commit_hash,
    p.version, p.trust_level, p.original_url, p.original_uuid,
    p.installed_at, p.updated_at,
    e.uuid IS NOT NULL AS enabled
FROM installed_plugins p
LEFT JOIN enabled_plugins e ON e.uuid = p.uuid`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlugin(row rowScanner) (*InstalledPlugin, error) {
	var p InstalledPlugin
	var installedAt, updatedAt string
	err := row.Scan(
		&p.UUID, &p.Name, &p.DirName, &p.URL, &p.Ref, &p.RefType, &p.Commit,
		&p.Version, &p.TrustLevel, &p.OriginalURL, &p.OriginalUUID,
		&installedAt, &updatedAt, &p.Enabled,
	)
	if err != nil {
		return nil, err
	}
	if ts, err := time.Parse(time.RFC3339Nano, installedAt); err == nil {
		p.InstalledAt = ts
	}
	if ts, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		p.UpdatedAt = ts
	}
	return &p, nil
}
