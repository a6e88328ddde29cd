// Package db keeps the launch history in sqlite.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/banshee-data/marbles/internal/launch"
)

type DB struct {
	*sql.DB
	path string
}

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
}

// OpenDB opens path and applies the connection pragmas without migrating.
func OpenDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps the pragmas in force for every query.
	sqlDB.SetMaxOpenConns(1)
	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	return &DB{DB: sqlDB, path: path}, nil
}

// NewDB opens path and migrates it to the latest schema.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(MigrationsFS()); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Launch is one recorded launch request.
type Launch struct {
	ID          string    `json:"id"`
	Hue         float64   `json:"hue"`
	Speed       float64   `json:"speed"`
	FromHighEnd bool      `json:"from_high_end"`
	ReceivedAt  time.Time `json:"received_at"`
}

// RecordLaunch stores an accepted launch. A zero ReceivedAt is stored as
// the current time.
func (db *DB) RecordLaunch(ctx context.Context, e launch.Event) error {
	at := e.ReceivedAt
	if at.IsZero() {
		at = time.Now()
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO launches (launch_id, hue, speed, from_high_end, received_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), e.Hue, e.Speed, e.FromHighEnd, at.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to record launch: %w", err)
	}
	return nil
}

// RecentLaunches returns up to limit launches, newest first.
func (db *DB) RecentLaunches(ctx context.Context, limit int) ([]Launch, error) {
	if limit <= 0 {
		return []Launch{}, nil
	}
	rows, err := db.QueryContext(ctx,
		`SELECT launch_id, hue, speed, from_high_end, received_at
		   FROM launches
		  ORDER BY received_at DESC, rowid DESC
		  LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query launches: %w", err)
	}
	defer rows.Close()

	launches := []Launch{}
	for rows.Next() {
		var l Launch
		var nanos int64
		if err := rows.Scan(&l.ID, &l.Hue, &l.Speed, &l.FromHighEnd, &nanos); err != nil {
			return nil, fmt.Errorf("failed to scan launch: %w", err)
		}
		l.ReceivedAt = time.Unix(0, nanos).UTC()
		launches = append(launches, l)
	}
	return launches, rows.Err()
}

// LaunchCount returns the number of recorded launches.
func (db *DB) LaunchCount(ctx context.Context) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM launches`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count launches: %w", err)
	}
	return n, nil
}

// AttachAdminRoutes mounts tailsql at /debug/tailsql/.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+db.path, db.DB, &tailsql.DBOptions{
		Label: "Launch history",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.HandleFunc("launch-count", "Number of recorded launches", func(w http.ResponseWriter, r *http.Request) {
		n, err := db.LaunchCount(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, "%d\n", n)
	})
	return nil
}
