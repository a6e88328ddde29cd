package db

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/marbles/internal/launch"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "launches.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPragmasApplied(t *testing.T) {
	db := newTestDB(t)

	var journalMode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var busyTimeout int
	require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
	assert.Equal(t, 5000, busyTimeout)

	var synchronous int
	require.NoError(t, db.QueryRow("PRAGMA synchronous").Scan(&synchronous))
	assert.Equal(t, 1, synchronous)
}

// The database records launches on behalf of the ingress.
var _ launch.Recorder = (*DB)(nil)

func TestRecordLaunch(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, db.RecordLaunch(ctx, launch.Event{Hue: 0.25, Speed: 1, FromHighEnd: true, ReceivedAt: base}))
	require.NoError(t, db.RecordLaunch(ctx, launch.Event{Hue: 0.5, Speed: 2, ReceivedAt: base.Add(time.Second)}))
	require.NoError(t, db.RecordLaunch(ctx, launch.Event{Hue: 0.75, Speed: 3, ReceivedAt: base.Add(2 * time.Second)}))

	n, err := db.LaunchCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := db.RecentLaunches(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 0.75, got[0].Hue)
	assert.Equal(t, 3.0, got[0].Speed)
	assert.False(t, got[0].FromHighEnd)
	assert.Equal(t, base.Add(2*time.Second), got[0].ReceivedAt)
	assert.Equal(t, 0.5, got[1].Hue)
	assert.NotEmpty(t, got[0].ID)
	assert.NotEqual(t, got[0].ID, got[1].ID)

	all, err := db.RecentLaunches(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[2].FromHighEnd)
}

func TestRecordLaunch_DefaultsTime(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	before := time.Now().Add(-time.Second)
	require.NoError(t, db.RecordLaunch(ctx, launch.Event{Hue: 0, Speed: 1}))

	got, err := db.RecentLaunches(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].ReceivedAt.After(before))
}

func TestRecentLaunches_Empty(t *testing.T) {
	db := newTestDB(t)
	got, err := db.RecentLaunches(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = db.RecentLaunches(context.Background(), 0)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestRecordLaunch_ClosedDB(t *testing.T) {
	db, err := NewDB(filepath.Join(t.TempDir(), "closed.db"))
	require.NoError(t, err)
	db.Close()
	assert.Error(t, db.RecordLaunch(context.Background(), launch.Event{Speed: 1}))
}

func TestAttachAdminRoutes(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.RecordLaunch(context.Background(), launch.Event{Speed: 1}))

	mux := http.NewServeMux()
	require.NoError(t, db.AttachAdminRoutes(mux))

	req := httptest.NewRequest(http.MethodGet, "/debug/launch-count", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", strings.TrimSpace(rec.Body.String()))

	req = httptest.NewRequest(http.MethodGet, "/debug/tailsql/", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.NotEqual(t, http.StatusNotFound, rec.Code)
}
