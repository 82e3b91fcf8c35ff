package history

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pathnames(locs []Location) []string {
	out := make([]string, len(locs))
	for i, l := range locs {
		out[i] = l.Pathname
	}
	return out
}

func TestMemoryInitial(t *testing.T) {
	m := NewMemory("/users/42?tab=posts#bio")
	loc := m.Location()
	assert.Equal(t, "/users/42", loc.Pathname)
	assert.Equal(t, "tab=posts", loc.Search)
	assert.Equal(t, "bio", loc.Hash)
	assert.Equal(t, "/users/42?tab=posts#bio", loc.URL())

	assert.Equal(t, "/", NewMemory("").Location().Pathname)
	assert.Equal(t, "/", NewMemory("javascript:alert(1)").Location().Pathname)
}

func TestMemoryPushReplace(t *testing.T) {
	m := NewMemory("/")
	require.NoError(t, m.Push("/a", "state-a"))
	require.NoError(t, m.Push("/b", nil))
	require.NoError(t, m.Replace("/c", 3))

	assert.Equal(t, []string{"/", "/a", "/c"}, pathnames(m.Entries()))
	assert.Equal(t, 2, m.Index())
	assert.Equal(t, 3, m.Location().State)
	assert.Equal(t, "state-a", m.Entries()[1].State)
}

func TestMemoryPushDiscardsForwardEntries(t *testing.T) {
	m := NewMemory("/")
	require.NoError(t, m.Push("/a", nil))
	require.NoError(t, m.Push("/b", nil))
	m.Back()
	m.Back()
	require.NoError(t, m.Push("/c", nil))

	assert.Equal(t, []string{"/", "/c"}, pathnames(m.Entries()))
	assert.Equal(t, 1, m.Index())
}

func TestMemoryGo(t *testing.T) {
	m := NewMemory("/")
	require.NoError(t, m.Push("/a", nil))
	require.NoError(t, m.Push("/b", nil))

	var seen []string
	m.Listen(func(l Location) { seen = append(seen, l.Pathname) })

	m.Go(-2)
	assert.Equal(t, "/", m.Location().Pathname)
	m.Go(-1)
	m.Go(5)
	m.Go(0)
	assert.Equal(t, 0, m.Index())
	m.Forward()
	assert.Equal(t, "/a", m.Location().Pathname)

	assert.Equal(t, []string{"/", "/a"}, seen)
}

func TestMemoryRejectsBeforeMutation(t *testing.T) {
	m := NewMemory("/")
	notified := 0
	m.Listen(func(Location) { notified++ })

	err := m.Push("data:text/html,x", nil)
	assert.True(t, errors.Is(err, ErrUnsafeScheme))
	err = m.Replace("", nil)
	assert.True(t, errors.Is(err, ErrEmptyPath))

	assert.Len(t, m.Entries(), 1)
	assert.Equal(t, 0, notified)
}

func TestMemoryListenerOrderAndUnlisten(t *testing.T) {
	m := NewMemory("/")
	var order []string
	stopA := m.Listen(func(Location) { order = append(order, "a") })
	m.Listen(func(Location) { order = append(order, "b") })

	require.NoError(t, m.Push("/x", nil))
	stopA()
	stopA()
	require.NoError(t, m.Push("/y", nil))

	assert.Equal(t, []string{"a", "b", "b"}, order)
}

func TestMemoryListenerPanicRecovered(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	m := NewMemory("/", WithLogger(logger))

	called := false
	m.Listen(func(Location) { panic("boom") })
	m.Listen(func(Location) { called = true })

	require.NoError(t, m.Push("/x", nil))
	assert.True(t, called)
	assert.Contains(t, buf.String(), "history listener panicked")
}

func TestMemoryListenerMayUnlistenDuringNotify(t *testing.T) {
	m := NewMemory("/")
	calls := 0
	var stop func()
	stop = m.Listen(func(Location) {
		calls++
		stop()
	})

	require.NoError(t, m.Push("/x", nil))
	require.NoError(t, m.Push("/y", nil))
	assert.Equal(t, 1, calls)
}
