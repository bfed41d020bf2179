// Package registry remembers the roots that were opened recently, so the
// last one can be offered again on the next start.
package registry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-casebook/pkg/handle"
)

const (
	BackendOS  = "os"
	BackendS3  = "s3"
	BackendMem = "mem"
)

// Root is one remembered root directory.
type Root struct {
	Location    string
	Backend     string
	Name        string
	OpenedCount int
	CreatedAt   time.Time
	LastUsed    time.Time
}

// BackendOf infers the backend from a handle location.
func BackendOf(location string) string {
	switch {
	case strings.HasPrefix(location, "s3://"):
		return BackendS3
	case strings.HasPrefix(location, "mem://"):
		return BackendMem
	default:
		return BackendOS
	}
}

// Registry manages recently opened roots
type Registry struct {
	db      *sql.DB
	dataDir string
	now     func() time.Time
}

// NewRegistry opens (creating if needed) roots.db in dataDir
func NewRegistry(dataDir string) (*Registry, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "roots.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	r := &Registry{
		db:      db,
		dataDir: dataDir,
		now:     time.Now,
	}

	if err := r.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize registry: %w", err)
	}

	return r, nil
}

// init creates the database schema
func (r *Registry) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS roots (
		location TEXT PRIMARY KEY,
		backend TEXT NOT NULL,
		name TEXT NOT NULL,
		opened_count INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		last_used TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_roots_last_used ON roots(last_used);
	`

	_, err := r.db.Exec(schema)
	return err
}

// Touch records that the root at location was opened now.
func (r *Registry) Touch(location, name string) error {
	if location == "" {
		return fmt.Errorf("touch root: empty location")
	}

	query := `
	INSERT INTO roots (location, backend, name, opened_count, created_at, last_used)
	VALUES (?, ?, ?, 1, ?, ?)
	ON CONFLICT(location) DO UPDATE SET
		name = excluded.name,
		opened_count = roots.opened_count + 1,
		last_used = excluded.last_used
	`

	now := r.now().UTC()
	_, err := r.db.Exec(query, location, BackendOf(location), name, now, now)
	return err
}

// List returns up to limit roots, most recently used first. A limit of
// zero or less returns them all.
func (r *Registry) List(limit int) ([]*Root, error) {
	query := `
	SELECT location, backend, name, opened_count, created_at, last_used
	FROM roots ORDER BY last_used DESC, location
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roots []*Root
	for rows.Next() {
		root := &Root{}
		if err := rows.Scan(
			&root.Location, &root.Backend, &root.Name,
			&root.OpenedCount, &root.CreatedAt, &root.LastUsed,
		); err != nil {
			return nil, err
		}
		roots = append(roots, root)
	}

	return roots, rows.Err()
}

// Last returns the most recently used root of backend ("" for any), or
// nil when none has been recorded.
func (r *Registry) Last(backend string) (*Root, error) {
	roots, err := r.List(0)
	if err != nil {
		return nil, err
	}
	for _, root := range roots {
		if backend == "" || root.Backend == backend {
			return root, nil
		}
	}
	return nil, nil
}

// Remove forgets a root
func (r *Registry) Remove(location string) error {
	_, err := r.db.Exec("DELETE FROM roots WHERE location = ?", location)
	return err
}

// Close closes the registry database
func (r *Registry) Close() error {
	return r.db.Close()
}

// RememberingPicker records every successfully picked root that can
// describe its location.
type RememberingPicker struct {
	Picker   handle.Picker
	Registry *Registry
	Logger   logrus.FieldLogger
}

func (p *RememberingPicker) PickDirectory(ctx context.Context) (handle.Directory, error) {
	dir, err := p.Picker.PickDirectory(ctx)
	if err != nil || p.Registry == nil {
		return dir, err
	}
	loc, ok := dir.(handle.Locator)
	if !ok {
		return dir, nil
	}
	if err := p.Registry.Touch(loc.Location(), dir.Name()); err != nil && p.Logger != nil {
		p.Logger.WithError(err).WithField("location", loc.Location()).Warn("Failed to remember root")
	}
	return dir, nil
}
