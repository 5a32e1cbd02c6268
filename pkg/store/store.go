// Package store exports synthesized models to a SQLite database so they can
// be queried or diffed between runs.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/jackajackalop/Knitout-3D-Visualizer/pkg/interp"
	"github.com/jackajackalop/Knitout-3D-Visualizer/pkg/objout"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	source   TEXT NOT NULL,
	version  INTEGER NOT NULL,
	rows     INTEGER NOT NULL,
	loops    INTEGER NOT NULL,
	warnings INTEGER NOT NULL,
	created  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS loops (
	run     INTEGER NOT NULL REFERENCES runs(id),
	seq     INTEGER NOT NULL,
	row     INTEGER NOT NULL,
	needle  TEXT NOT NULL,
	idx     INTEGER NOT NULL,
	carrier TEXT NOT NULL,
	PRIMARY KEY (run, seq)
);
CREATE TABLE IF NOT EXISTS points (
	run INTEGER NOT NULL,
	seq INTEGER NOT NULL,
	i   INTEGER NOT NULL,
	x   REAL NOT NULL,
	y   REAL NOT NULL,
	z   REAL NOT NULL,
	PRIMARY KEY (run, seq, i)
);`

// Store is a SQLite model database.
type Store struct {
	db   *sql.DB
	path string
}

// Run summarizes a stored run.
type Run struct {
	ID       int64
	Source   string
	Version  int
	Rows     int
	Loops    int
	Warnings int
	Created  time.Time
}

// Point is one stored control point with its loop metadata.
type Point struct {
	Seq     int
	Row     int
	Needle  string
	Carrier string
	Index   int
	X, Y, Z float64
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		path = "knitout.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// SaveRun stores every loop of res in output order and returns the run id.
func (s *Store) SaveRun(ctx context.Context, source string, res *interp.Result) (id int64, retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	r, err := tx.ExecContext(ctx,
		`INSERT INTO runs (source, version, rows, loops, warnings, created) VALUES (?, ?, ?, ?, ?, ?)`,
		source, res.Version, len(res.Rows()), res.Stats.Loops, len(res.Warnings),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	if id, err = r.LastInsertId(); err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}

	loopStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO loops (run, seq, row, needle, idx, carrier) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare loops: %w", err)
	}
	defer func() { _ = loopStmt.Close() }()
	pointStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO points (run, seq, i, x, y, z) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare points: %w", err)
	}
	defer func() { _ = pointStmt.Close() }()

	seq := 0
	objout.Walk(res.Rows(), func(ref objout.LoopRef) bool {
		if _, err = loopStmt.ExecContext(ctx, id, seq, ref.Row, ref.Needle.String(), ref.Index, ref.Carrier); err != nil {
			err = fmt.Errorf("insert loop %d: %w", seq, err)
			return false
		}
		for i, p := range ref.Points {
			if _, err = pointStmt.ExecContext(ctx, id, seq, i, p.X, p.Y, p.Z); err != nil {
				err = fmt.Errorf("insert point %d/%d: %w", seq, i, err)
				return false
			}
		}
		seq++
		return true
	})
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// Runs lists stored runs, oldest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, version, rows, loops, warnings, created FROM runs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Run
	for rows.Next() {
		var r Run
		var created string
		if err := rows.Scan(&r.ID, &r.Source, &r.Version, &r.Rows, &r.Loops, &r.Warnings, &created); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		r.Created, _ = time.Parse(time.RFC3339, created)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Points returns the control points of a run in output order.
func (s *Store) Points(ctx context.Context, run int64) ([]Point, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.seq, l.row, l.needle, l.carrier, p.i, p.x, p.y, p.z
		FROM loops l JOIN points p ON p.run = l.run AND p.seq = l.seq
		WHERE l.run = ?
		ORDER BY l.seq, p.i`, run)
	if err != nil {
		return nil, fmt.Errorf("select points: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Point
	for rows.Next() {
		var p Point
		if err := rows.Scan(&p.Seq, &p.Row, &p.Needle, &p.Carrier, &p.Index, &p.X, &p.Y, &p.Z); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
