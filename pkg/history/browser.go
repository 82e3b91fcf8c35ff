package history

// Browser is a History whose entries live in a Bridge. The native
// subscription is attached when the first listener registers and
// cancelled when the last one leaves.
type Browser struct {
	bridge Bridge

	listeners *listenerSet
	cancel    func()
}

var _ History = (*Browser)(nil)

// NewBrowser creates a history backed by bridge.
func NewBrowser(bridge Bridge, opts ...Option) *Browser {
	o := buildOptions(opts)
	b := &Browser{bridge: bridge}
	b.listeners = &listenerSet{
		logger:  o.logger,
		onFirst: b.attach,
		onLast:  b.detach,
	}
	return b
}

func (b *Browser) attach() {
	b.cancel = b.bridge.Subscribe(b.listeners.notify)
}

func (b *Browser) detach() {
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}

// Location returns the bridge's current location.
func (b *Browser) Location() Location {
	return b.bridge.Location()
}

// Push validates path and pushes it onto the bridge.
func (b *Browser) Push(path string, state any) error {
	if err := Validate(path); err != nil {
		return err
	}
	loc := ParseLocation(path, state)
	if err := b.bridge.PushState(state, loc.URL()); err != nil {
		return err
	}
	b.listeners.notify(loc)
	return nil
}

// Replace validates path and replaces the bridge's current entry.
func (b *Browser) Replace(path string, state any) error {
	if err := Validate(path); err != nil {
		return err
	}
	loc := ParseLocation(path, state)
	if err := b.bridge.ReplaceState(state, loc.URL()); err != nil {
		return err
	}
	b.listeners.notify(loc)
	return nil
}

// Go forwards to the bridge. Listeners hear about the move when the
// bridge reports it.
func (b *Browser) Go(delta int) {
	if delta == 0 {
		return
	}
	b.bridge.Go(delta)
}

// Back moves one entry back.
func (b *Browser) Back() { b.Go(-1) }

// Forward moves one entry forward.
func (b *Browser) Forward() { b.Go(1) }

// Listen registers fn for location changes.
func (b *Browser) Listen(fn Listener) func() {
	return b.listeners.add(fn)
}

// Hash is a History that keeps the logical path in the fragment of the
// bridge's location, leaving the native pathname untouched.
type Hash struct {
	bridge Bridge

	listeners *listenerSet
	cancel    func()
}

var _ History = (*Hash)(nil)

// NewHash creates a fragment-based history backed by bridge.
func NewHash(bridge Bridge, opts ...Option) *Hash {
	o := buildOptions(opts)
	h := &Hash{bridge: bridge}
	h.listeners = &listenerSet{
		logger:  o.logger,
		onFirst: h.attach,
		onLast:  h.detach,
	}
	return h
}

func (h *Hash) attach() {
	h.cancel = h.bridge.Subscribe(func(native Location) {
		h.listeners.notify(fromFragment(native))
	})
}

func (h *Hash) detach() {
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// fromFragment reads the logical location out of a native one. An empty
// fragment is the root path.
func fromFragment(native Location) Location {
	fragment := native.Hash
	if fragment == "" {
		fragment = "/"
	}
	return ParseLocation(fragment, native.State)
}

// Location returns the logical location held in the fragment.
func (h *Hash) Location() Location {
	return fromFragment(h.bridge.Location())
}

// nativeURL keeps the native pathname and query and puts the logical
// location into the fragment.
func (h *Hash) nativeURL(loc Location) string {
	native := h.bridge.Location()
	url := native.Pathname
	if native.Search != "" {
		url += "?" + native.Search
	}
	return url + "#" + loc.URL()
}

// Push validates path and pushes it as the bridge's new fragment.
func (h *Hash) Push(path string, state any) error {
	if err := Validate(path); err != nil {
		return err
	}
	loc := ParseLocation(path, state)
	if err := h.bridge.PushState(state, h.nativeURL(loc)); err != nil {
		return err
	}
	h.listeners.notify(loc)
	return nil
}

// Replace validates path and replaces the bridge's fragment.
func (h *Hash) Replace(path string, state any) error {
	if err := Validate(path); err != nil {
		return err
	}
	loc := ParseLocation(path, state)
	if err := h.bridge.ReplaceState(state, h.nativeURL(loc)); err != nil {
		return err
	}
	h.listeners.notify(loc)
	return nil
}

// Go forwards to the bridge.
func (h *Hash) Go(delta int) {
	if delta == 0 {
		return
	}
	h.bridge.Go(delta)
}

// Back moves one entry back.
func (h *Hash) Back() { h.Go(-1) }

// Forward moves one entry forward.
func (h *Hash) Forward() { h.Go(1) }

// Listen registers fn for location changes.
func (h *Hash) Listen(fn Listener) func() {
	return h.listeners.add(fn)
}
