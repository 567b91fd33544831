package schedule

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediawiper/internal/apperr"
	"mediawiper/internal/media"
	"mediawiper/internal/wipe"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func testRequest(t *testing.T, dir string, method wipe.Method, exts ...string) wipe.Request {
	t.Helper()
	set, err := media.NewSet(exts...)
	require.NoError(t, err)
	req, err := wipe.NewRequest(dir, method, set, false, false)
	require.NoError(t, err)
	return req
}

func TestStoreRoundTripsEveryField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "schedules.yaml")
	clock := newClock(at("2026-03-10 08:00"))

	s, err := OpenStore(path, clock.Now)
	require.NoError(t, err)

	anchor := at("2026-03-10 09:00")
	req := testRequest(t, t.TempDir(), wipe.MethodDOD, "mp4", ".MKV")
	e, err := s.Add(req, Weekly, anchor)
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	summary := RunSummary{
		FiredAt:               clock.Now(),
		FilesScanned:          5,
		FilesMatched:          3,
		FilesDeleted:          2,
		FilesFailed:           1,
		TotalBytesOverwritten: 123456789,
		Error:                 "",
	}
	e, err = s.RecordFire(e.ID, clock.Now(), summary)
	require.NoError(t, err)

	reloaded, err := OpenStore(path, clock.Now)
	require.NoError(t, err)
	got, err := reloaded.Get(e.ID)
	require.NoError(t, err)

	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, e.Interval, got.Interval)
	assert.Equal(t, e.Enabled, got.Enabled)
	assert.Equal(t, e.Timezone, got.Timezone)
	assert.True(t, e.Anchor.Equal(got.Anchor))
	assert.True(t, e.NextFire.Equal(got.NextFire))
	assert.True(t, e.CreatedAt.Equal(got.CreatedAt))
	require.NotNil(t, got.LastFire)
	assert.True(t, e.LastFire.Equal(*got.LastFire))
	require.NotNil(t, got.LastResult)
	assert.True(t, summary.FiredAt.Equal(got.LastResult.FiredAt))
	assert.Equal(t, summary.FilesFailed, got.LastResult.FilesFailed)
	assert.Equal(t, summary.TotalBytesOverwritten, got.LastResult.TotalBytesOverwritten)
	assert.Equal(t, req.TargetDir, got.Request.TargetDir)
	assert.Equal(t, req.Method, got.Request.Method)
	assert.Equal(t, []string{".mkv", ".mp4"}, got.Request.Extensions.Sorted())
}

func TestStoreReloadDoesNotRecomputeNextFire(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedules.yaml")
	clock := newClock(at("2026-03-10 08:00"))

	s, err := OpenStore(path, clock.Now)
	require.NoError(t, err)
	e, err := s.Add(testRequest(t, t.TempDir(), wipe.MethodNone), Daily, at("2026-03-10 09:00"))
	require.NoError(t, err)

	clock.Advance(72 * time.Hour)
	reloaded, err := OpenStore(path, clock.Now)
	require.NoError(t, err)

	due := reloaded.Due(clock.Now())
	require.Len(t, due, 1)
	assert.True(t, e.NextFire.Equal(due[0].NextFire))
}

func TestStoreOnceRules(t *testing.T) {
	clock := newClock(at("2026-03-10 08:00"))
	s := NewMemoryStore(clock.Now)
	req := testRequest(t, t.TempDir(), wipe.MethodNone)

	_, err := s.Add(req, Once, at("2026-03-10 07:00"))
	assert.True(t, errors.Is(err, apperr.ErrConfiguration))

	e, err := s.Add(req, Once, at("2026-03-10 09:00"))
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	e, err = s.RecordFire(e.ID, clock.Now(), RunSummary{FiredAt: clock.Now()})
	require.NoError(t, err)
	assert.False(t, e.Enabled)
	assert.Equal(t, "done", e.Status())
	assert.Empty(t, s.Due(clock.Now().Add(1000*time.Hour)))

	_, err = s.SetEnabled(e.ID, true)
	assert.True(t, errors.Is(err, apperr.ErrConfiguration))
}

func TestStoreRecordFireRecomputesFromRecordTime(t *testing.T) {
	clock := newClock(at("2026-03-10 08:00"))
	s := NewMemoryStore(clock.Now)

	e, err := s.Add(testRequest(t, t.TempDir(), wipe.MethodNone), Hourly, at("2026-03-10 08:30"))
	require.NoError(t, err)

	clock.Advance(30 * time.Minute)
	firedAt := clock.Now()
	// долгое удаление: запись результата через 3 часа после запуска
	clock.Advance(3*time.Hour + 10*time.Minute)

	e, err = s.RecordFire(e.ID, firedAt, RunSummary{FiredAt: firedAt})
	require.NoError(t, err)
	assert.Equal(t, at("2026-03-10 12:30"), e.NextFire)
	assert.True(t, e.LastFire.Equal(firedAt))
	assert.True(t, e.Enabled)
}

func TestStoreSetEnabledRecomputes(t *testing.T) {
	clock := newClock(at("2026-03-10 08:00"))
	s := NewMemoryStore(clock.Now)

	e, err := s.Add(testRequest(t, t.TempDir(), wipe.MethodNone), Daily, at("2026-03-10 09:00"))
	require.NoError(t, err)

	_, err = s.SetEnabled(e.ID, false)
	require.NoError(t, err)
	assert.Empty(t, s.Due(at("2026-03-20 00:00")))

	clock.Advance(5 * 24 * time.Hour)
	e, err = s.SetEnabled(e.ID, true)
	require.NoError(t, err)
	assert.Equal(t, at("2026-03-15 09:00"), e.NextFire)
}

func TestStoreRemoveAndNotFound(t *testing.T) {
	s := NewMemoryStore(nil)
	e, err := s.Add(testRequest(t, t.TempDir(), wipe.MethodNone), Daily, time.Now().Add(time.Hour))
	require.NoError(t, err)

	require.NoError(t, s.Remove(e.ID))
	assert.Empty(t, s.List())

	_, err = s.Get(e.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Remove(e.ID), ErrNotFound)
	_, err = s.RecordFire(e.ID, time.Now(), RunSummary{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreRefreshSeesOtherWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedules.yaml")
	clock := newClock(at("2026-03-10 08:00"))

	daemon, err := OpenStore(path, clock.Now)
	require.NoError(t, err)
	cli, err := OpenStore(path, clock.Now)
	require.NoError(t, err)

	_, err = cli.Add(testRequest(t, t.TempDir(), wipe.MethodNone), Daily, at("2026-03-10 09:00"))
	require.NoError(t, err)

	reloaded, err := daemon.Refresh()
	require.NoError(t, err)
	assert.True(t, reloaded)
	assert.Len(t, daemon.List(), 1)

	reloaded, err = daemon.Refresh()
	require.NoError(t, err)
	assert.False(t, reloaded)
}

func TestStoreListOrderedByNextFire(t *testing.T) {
	clock := newClock(at("2026-03-10 08:00"))
	s := NewMemoryStore(clock.Now)
	req := testRequest(t, t.TempDir(), wipe.MethodNone)

	late, err := s.Add(req, Daily, at("2026-03-10 20:00"))
	require.NoError(t, err)
	early, err := s.Add(req, Hourly, at("2026-03-10 08:15"))
	require.NoError(t, err)

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, early.ID, list[0].ID)
	assert.Equal(t, late.ID, list[1].ID)
}
