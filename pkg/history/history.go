package history

import (
	"log/slog"
	"sync"

	"github.com/vango-dev/navkit/pkg/routepath"
)

// Location is a position in a history store.
type Location struct {
	// Pathname is the path portion, always starting with "/".
	Pathname string

	// Search is the query string without the leading "?".
	Search string

	// Hash is the fragment without the leading "#".
	Hash string

	// State is the opaque value attached at push or replace time.
	State any
}

// URL reassembles the location as pathname?search#hash.
func (l Location) URL() string {
	return routepath.Build(l.Pathname, l.Search, l.Hash)
}

// ParseLocation splits a raw path into a Location carrying state.
func ParseLocation(raw string, state any) Location {
	pathname, search, hash := routepath.Split(raw)
	return Location{
		Pathname: routepath.Normalize(pathname),
		Search:   search,
		Hash:     hash,
		State:    state,
	}
}

// Listener receives the new location after it changes.
type Listener func(Location)

// History is a navigable location store.
type History interface {
	// Location returns the current location.
	Location() Location

	// Push appends a new entry after the current one, discarding any
	// forward entries.
	Push(path string, state any) error

	// Replace overwrites the current entry.
	Replace(path string, state any) error

	// Go moves the cursor by delta entries.
	Go(delta int)

	// Back is Go(-1).
	Back()

	// Forward is Go(1).
	Forward()

	// Listen registers fn and returns a function that removes it.
	Listen(fn Listener) (unlisten func())
}

// Option configures a History implementation.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used to report listener panics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// listenerSet is an order-preserving listener registry. onFirst runs when
// the set goes from empty to one listener and onLast when it becomes
// empty again. Hooks run under hooks, never under mu, so a hook may
// notify synchronously.
type listenerSet struct {
	hooks sync.Mutex

	mu      sync.Mutex
	nextID  uint64
	entries []listenerEntry
	logger  *slog.Logger

	onFirst func()
	onLast  func()
}

type listenerEntry struct {
	id uint64
	fn Listener
}

func (s *listenerSet) add(fn Listener) func() {
	s.hooks.Lock()
	defer s.hooks.Unlock()

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.entries = append(s.entries, listenerEntry{id: id, fn: fn})
	first := len(s.entries) == 1
	s.mu.Unlock()

	if first && s.onFirst != nil {
		s.onFirst()
	}

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(id) })
	}
}

func (s *listenerSet) remove(id uint64) {
	s.hooks.Lock()
	defer s.hooks.Unlock()

	s.mu.Lock()
	last := false
	for i, e := range s.entries {
		if e.id == id {
			s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
			last = len(s.entries) == 0
			break
		}
	}
	s.mu.Unlock()

	if last && s.onLast != nil {
		s.onLast()
	}
}

func (s *listenerSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// notify calls every listener registered at the time of the call. The
// lock is not held while listeners run, so a listener may push, listen or
// unlisten.
func (s *listenerSet) notify(loc Location) {
	s.mu.Lock()
	snapshot := make([]listenerEntry, len(s.entries))
	copy(snapshot, s.entries)
	s.mu.Unlock()

	for _, e := range snapshot {
		s.call(e.fn, loc)
	}
}

func (s *listenerSet) call(fn Listener, loc Location) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("history listener panicked",
				"path", loc.Pathname,
				"panic", r,
			)
		}
	}()
	fn(loc)
}
