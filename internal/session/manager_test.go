package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seekerlabs/indexscope/internal/bus"
	"github.com/seekerlabs/indexscope/internal/errors"
)

func newTestManager() (*Manager, *bus.Bus) {
	b := bus.New()
	return NewManager(ManagerConfig{Bus: b}), b
}

func TestManagerOpenPublishesOpened(t *testing.T) {
	m, b := newTestManager()
	var events []Opened
	bus.Subscribe(b, func(e Opened) { events = append(events, e) })

	path := newDiskIndex(t, map[string]map[string]interface{}{
		"1": {"content": "hello"},
	})

	r, err := m.Open(context.Background(), path, DirScorch, true)
	require.NoError(t, err)
	defer m.Close()

	require.Len(t, events, 1)
	assert.Equal(t, path, events[0].Path)
	assert.Equal(t, DirScorch, events[0].DirImpl)
	assert.True(t, events[0].ReadOnly)
	assert.Same(t, r, events[0].Reader)

	assert.True(t, m.IsOpen())
	assert.True(t, m.IsReadOnly())
	assert.Equal(t, path, m.Path())
	assert.Same(t, r, m.Reader())
}

func TestManagerOpenValidationErrors(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	_, err := m.Open(ctx, "  ", DirScorch, true)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidPath, errors.GetCode(err))

	_, err = m.Open(ctx, "/tmp/whatever", "niofs", true)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUnknownDirImpl, errors.GetCode(err))

	assert.False(t, m.IsOpen())
}

func TestManagerOpenCancelledContext(t *testing.T) {
	m, _ := newTestManager()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Open(ctx, "/tmp/whatever", DirMem, true)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestManagerOpenSwitchesIndex(t *testing.T) {
	m, b := newTestManager()
	var closed []Closed
	bus.Subscribe(b, func(e Closed) { closed = append(closed, e) })

	first, err := m.Open(context.Background(), "first", DirMem, false)
	require.NoError(t, err)

	second, err := m.Open(context.Background(), "second", DirMem, false)
	require.NoError(t, err)
	defer m.Close()

	require.Len(t, closed, 1)
	assert.Equal(t, "first", closed[0].Path)
	assert.Greater(t, second.Generation(), first.Generation())
	assert.Equal(t, "second", m.Path())
}

func TestManagerCloseWithoutOpen(t *testing.T) {
	m, b := newTestManager()
	var closed []Closed
	bus.Subscribe(b, func(e Closed) { closed = append(closed, e) })

	// Close with nothing open is a no-op, and stays one when repeated.
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.Empty(t, closed)
}

func TestManagerCloseTwice(t *testing.T) {
	m, b := newTestManager()
	var closed []Closed
	bus.Subscribe(b, func(e Closed) { closed = append(closed, e) })

	_, err := m.Open(context.Background(), "scratch", DirMem, true)
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.Len(t, closed, 1)
}

func TestManagerFailedOpenLeavesClosed(t *testing.T) {
	m, _ := newTestManager()
	_, err := m.Open(context.Background(), "scratch", DirMem, true)
	require.NoError(t, err)

	_, err = m.Open(context.Background(), filepath.Join(t.TempDir(), "missing"), DirScorch, true)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeIndexNotFound, errors.GetCode(err))
	assert.False(t, m.IsOpen())
	assert.Nil(t, m.Reader())
}

func TestManagerPathSurvivesClose(t *testing.T) {
	m, _ := newTestManager()
	assert.Empty(t, m.Path())

	_, err := m.Open(context.Background(), "scratch", DirMem, true)
	require.NoError(t, err)
	require.NoError(t, m.Close())

	assert.False(t, m.IsOpen())
	assert.Equal(t, "scratch", m.Path())
}

func TestManagerClosePublishesClosed(t *testing.T) {
	m, b := newTestManager()
	var closed []Closed
	bus.Subscribe(b, func(e Closed) { closed = append(closed, e) })

	_, err := m.Open(context.Background(), "scratch", DirMem, true)
	require.NoError(t, err)
	require.NoError(t, m.Close())

	require.Len(t, closed, 1)
	assert.Equal(t, "scratch", closed[0].Path)
	assert.False(t, m.IsOpen())
	assert.Nil(t, m.Reader())
}

func TestManagerReopenProducesNewGeneration(t *testing.T) {
	m, _ := newTestManager()
	path := newDiskIndex(t, map[string]map[string]interface{}{
		"1": {"content": "hello"},
	})

	first, err := m.Open(context.Background(), path, DirScorch, true)
	require.NoError(t, err)

	second, err := m.Reopen(context.Background())
	require.NoError(t, err)
	defer m.Close()

	assert.NotSame(t, first, second)
	assert.Greater(t, second.Generation(), first.Generation())
	assert.True(t, m.IsReadOnly())
}

func TestManagerReopenAfterClose(t *testing.T) {
	m, _ := newTestManager()
	path := newDiskIndex(t, map[string]map[string]interface{}{
		"1": {"content": "hello"},
	})

	_, err := m.Open(context.Background(), path, DirScorch, true)
	require.NoError(t, err)
	require.NoError(t, m.Close())

	r, err := m.Reopen(context.Background())
	require.NoError(t, err)
	defer m.Close()
	assert.Equal(t, path, r.Path())
}

func TestManagerReopenNothingEverOpened(t *testing.T) {
	m, _ := newTestManager()
	_, err := m.Reopen(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNothingToReopen, errors.GetCode(err))
}

func TestManagerReopenToggledFlipsMode(t *testing.T) {
	m, _ := newTestManager()
	path := newDiskIndex(t, map[string]map[string]interface{}{
		"1": {"content": "hello"},
	})

	_, err := m.Open(context.Background(), path, DirScorch, true)
	require.NoError(t, err)
	require.True(t, m.IsReadOnly())

	_, err = m.ReopenToggled(context.Background())
	require.NoError(t, err)
	defer m.Close()
	assert.False(t, m.IsReadOnly())

	// Toggling again round-trips to read-only and releases the write lock.
	_, err = m.ReopenToggled(context.Background())
	require.NoError(t, err)
	assert.True(t, m.IsReadOnly())

	lk := flock.New(path + ".lock")
	held, err := lk.TryLock()
	require.NoError(t, err)
	assert.True(t, held)
	require.NoError(t, lk.Unlock())
}

func TestManagerWriteLockConflict(t *testing.T) {
	path := newDiskIndex(t, map[string]map[string]interface{}{
		"1": {"content": "hello"},
	})

	m1, _ := newTestManager()
	_, err := m1.Open(context.Background(), path, DirScorch, false)
	require.NoError(t, err)
	defer m1.Close()

	m2, _ := newTestManager()
	_, err = m2.Open(context.Background(), path, DirScorch, false)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeIndexLocked, errors.GetCode(err))
}

func TestManagerReadOnlyNeedsNoLock(t *testing.T) {
	path := newDiskIndex(t, map[string]map[string]interface{}{
		"1": {"content": "hello"},
	})

	m1, _ := newTestManager()
	_, err := m1.Open(context.Background(), path, DirScorch, true)
	require.NoError(t, err)
	defer m1.Close()

	m2, _ := newTestManager()
	_, err = m2.Open(context.Background(), path, DirScorch, true)
	require.NoError(t, err)
	defer m2.Close()
}

func TestReaderSurfaces(t *testing.T) {
	m, _ := newTestManager()
	path := newDiskIndex(t, map[string]map[string]interface{}{
		"1": {"content": "the quick brown fox"},
		"2": {"content": "lazy dogs"},
	})

	r, err := m.Open(context.Background(), path, DirScorch, true)
	require.NoError(t, err)
	defer m.Close()

	n, err := r.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)

	fields, err := r.Fields()
	require.NoError(t, err)
	assert.Contains(t, fields, "content")
}
