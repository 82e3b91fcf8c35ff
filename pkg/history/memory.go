package history

import "sync"

// Memory is an in-process History holding an entry stack and a cursor.
type Memory struct {
	mu      sync.Mutex
	entries []Location
	index   int

	listeners *listenerSet
}

var _ History = (*Memory)(nil)

// NewMemory creates a memory history with a single entry for initial. An
// empty or invalid initial path starts at "/".
func NewMemory(initial string, opts ...Option) *Memory {
	o := buildOptions(opts)
	if Validate(initial) != nil {
		initial = "/"
	}
	return &Memory{
		entries:   []Location{ParseLocation(initial, nil)},
		listeners: &listenerSet{logger: o.logger},
	}
}

// Location returns the entry under the cursor.
func (m *Memory) Location() Location {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[m.index]
}

// Push validates path, drops every entry after the cursor and appends a
// new one.
func (m *Memory) Push(path string, state any) error {
	if err := Validate(path); err != nil {
		return err
	}
	loc := ParseLocation(path, state)

	m.mu.Lock()
	m.entries = append(m.entries[:m.index+1], loc)
	m.index = len(m.entries) - 1
	m.mu.Unlock()

	m.listeners.notify(loc)
	return nil
}

// Replace validates path and overwrites the entry under the cursor.
func (m *Memory) Replace(path string, state any) error {
	if err := Validate(path); err != nil {
		return err
	}
	loc := ParseLocation(path, state)

	m.mu.Lock()
	m.entries[m.index] = loc
	m.mu.Unlock()

	m.listeners.notify(loc)
	return nil
}

// Go moves the cursor by delta. A zero delta or a target outside the
// stack is a no-op and notifies nobody.
func (m *Memory) Go(delta int) {
	m.mu.Lock()
	target := m.index + delta
	if delta == 0 || target < 0 || target >= len(m.entries) {
		m.mu.Unlock()
		return
	}
	m.index = target
	loc := m.entries[target]
	m.mu.Unlock()

	m.listeners.notify(loc)
}

// Back moves one entry back.
func (m *Memory) Back() { m.Go(-1) }

// Forward moves one entry forward.
func (m *Memory) Forward() { m.Go(1) }

// Listen registers fn for location changes.
func (m *Memory) Listen(fn Listener) func() {
	return m.listeners.add(fn)
}

// Entries returns a copy of the entry stack.
func (m *Memory) Entries() []Location {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Location, len(m.entries))
	copy(out, m.entries)
	return out
}

// Index returns the cursor position.
func (m *Memory) Index() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}
