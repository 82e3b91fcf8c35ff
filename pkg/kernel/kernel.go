package kernel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vango-dev/navkit/pkg/history"
	"github.com/vango-dev/navkit/pkg/routeerr"
	"github.com/vango-dev/navkit/pkg/routepath"
	"github.com/vango-dev/navkit/pkg/router"
)

// State is the kernel lifecycle state.
type State int

const (
	// StateReady means no navigation is being resolved.
	StateReady State = iota

	// StateNavigating means at least one location change is in flight.
	StateNavigating

	// StateDestroyed is terminal.
	StateDestroyed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateNavigating:
		return "navigating"
	case StateDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrSuperseded is returned down the middleware chain when a later
// location change started before this navigation could commit. It is
// never emitted as an error event.
var ErrSuperseded = errors.New("kernel: navigation superseded")

// Kernel is the router state machine. It is safe for concurrent use.
type Kernel struct {
	history history.History
	cache   *router.MatchCache
	logger  *slog.Logger

	base          string
	guardTimeout  time.Duration
	timeoutPolicy TimeoutPolicy

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	routes     []*router.RouteDefinition
	current    *Route
	epoch      uint64
	pending    int
	destroyed  bool
	unlisten   func()
	plugins    []*pluginEntry
	middleware listeners[Middleware]
	before     listeners[BeforeNavigateFunc]
	after      listeners[AfterNavigateFunc]
	errors     listeners[ErrorFunc]
}

// New creates a kernel over h with the given route tree and performs the
// initial match synchronously. The initial match runs no guards. A
// failed initial match is reported to error listeners registered with
// WithErrorListener; New itself never fails.
func New(h history.History, routes []router.RouteDefinition, opts ...Option) *Kernel {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	k := &Kernel{
		history:       h,
		cache:         router.NewMatchCache(cfg.cacheSize),
		logger:        cfg.logger,
		base:          routepath.Normalize(cfg.base),
		guardTimeout:  cfg.guardTimeout,
		timeoutPolicy: cfg.timeoutPolicy,
		ctx:           ctx,
		cancel:        cancel,
		routes:        router.Flatten(routes),
	}
	for _, mw := range cfg.middleware {
		k.middleware.add(mw)
	}
	for _, fn := range cfg.errorHandlers {
		k.errors.add(fn)
	}
	if err := router.Validate(k.routes); err != nil {
		k.logger.Warn("route table contains an invalid pattern", "error", err)
	}

	loc := h.Location()
	if m, logical := k.match(loc); m != nil {
		k.current = newRoute(m, logical)
	} else {
		k.emitError(routeerr.NotFound(logical.Pathname))
	}

	k.unlisten = h.Listen(k.onLocation)
	return k
}

// State reports the lifecycle state.
func (k *Kernel) State() State {
	k.mu.Lock()
	defer k.mu.Unlock()
	switch {
	case k.destroyed:
		return StateDestroyed
	case k.pending > 0:
		return StateNavigating
	default:
		return StateReady
	}
}

// Current returns the committed route, or nil if none has matched.
func (k *Kernel) Current() *Route {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.current
}

// Logger returns the kernel logger.
func (k *Kernel) Logger() *slog.Logger {
	return k.logger
}

// History returns the history the kernel listens to.
func (k *Kernel) History() history.History {
	return k.history
}

// Base returns the normalized mount prefix.
func (k *Kernel) Base() string {
	return k.base
}

// Routes returns the flattened route table in specificity order.
func (k *Kernel) Routes() []*router.RouteDefinition {
	k.mu.Lock()
	routes := k.routes
	k.mu.Unlock()
	return k.cache.Ranked(routes)
}

// CacheStats reports match cache counters.
func (k *Kernel) CacheStats() router.CacheStats {
	return k.cache.Stats()
}

// CacheSize reports the number of cached lookups.
func (k *Kernel) CacheSize() int {
	return k.cache.Size()
}

// SetRoutes replaces the route tree and re-resolves the current location
// against it. An invalid tree is rejected and the old one kept.
func (k *Kernel) SetRoutes(routes []router.RouteDefinition) error {
	flat := router.Flatten(routes)
	if err := router.Validate(flat); err != nil {
		return err
	}

	k.mu.Lock()
	if k.destroyed {
		k.mu.Unlock()
		return routeerr.New(routeerr.CodeDestroyed)
	}
	k.routes = flat
	k.mu.Unlock()

	k.onLocation(k.history.Location())
	return nil
}

// UseMiddleware appends mw to the navigation chain.
func (k *Kernel) UseMiddleware(mw Middleware) (remove func()) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.destroyed {
		return noop
	}
	id := k.middleware.add(mw)
	return k.unsubscriber(func() { k.middleware.remove(id) })
}

// Wait blocks until every in-flight resolution and plugin OnInit has
// returned.
func (k *Kernel) Wait() {
	k.wg.Wait()
}

// match strips the base and looks loc up in the route table. The
// returned location is relative to the base.
func (k *Kernel) match(loc history.Location) (*router.RouteMatch, history.Location) {
	logical := loc
	logical.Pathname = routepath.StripBase(k.base, loc.Pathname)

	k.mu.Lock()
	routes := k.routes
	k.mu.Unlock()

	return k.cache.Match(logical.Pathname, routes), logical
}

// onLocation is the history listener.
func (k *Kernel) onLocation(loc history.Location) {
	k.mu.Lock()
	if k.destroyed {
		k.mu.Unlock()
		return
	}
	k.epoch++
	epoch := k.epoch
	from := k.current
	k.mu.Unlock()

	m, logical := k.match(loc)
	if m == nil {
		k.emitError(routeerr.NotFound(logical.Pathname))
		return
	}

	to := newRoute(m, logical)
	nav := &Navigation{
		ID:       to.NavigationID,
		To:       to,
		From:     from,
		Location: loc,
		Epoch:    epoch,
		Started:  time.Now(),
	}

	k.mu.Lock()
	if k.destroyed {
		k.mu.Unlock()
		return
	}
	k.pending++
	k.wg.Add(1)
	k.mu.Unlock()

	go k.resolve(nav)
}

// resolve runs the middleware chain, guards and commit for nav.
func (k *Kernel) resolve(nav *Navigation) {
	defer k.wg.Done()
	defer func() {
		k.mu.Lock()
		k.pending--
		k.mu.Unlock()
	}()

	k.mu.Lock()
	chain := k.middleware.snapshot()
	k.mu.Unlock()

	err := callHook(func() error {
		return ComposeMiddleware(k.ctx, nav, chain, func(ctx context.Context) error {
			if err := k.runGuards(ctx, nav); err != nil {
				return err
			}
			return k.commit(nav)
		})
	})

	switch {
	case err == nil:
	case errors.Is(err, ErrSuperseded):
		k.logger.Debug("discarding superseded navigation",
			"path", nav.To.Pathname,
			"epoch", nav.Epoch,
		)
	case k.isDestroyed():
	default:
		k.emitError(routeerr.FromError(err, routeerr.CodeMiddleware))
	}
}

// commit makes nav.To current unless a later location change started.
func (k *Kernel) commit(nav *Navigation) error {
	k.mu.Lock()
	if k.destroyed {
		k.mu.Unlock()
		return routeerr.New(routeerr.CodeDestroyed)
	}
	if nav.Epoch != k.epoch {
		k.mu.Unlock()
		return ErrSuperseded
	}
	k.current = nav.To
	fns := k.after.snapshot()
	k.mu.Unlock()

	k.logger.Debug("navigation committed",
		"path", nav.To.Pathname,
		"pattern", nav.To.Path,
		"navigation_id", nav.ID,
	)
	k.emitAfter(fns, nav.To)
	return nil
}

func (k *Kernel) isDestroyed() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.destroyed
}

// Destroy stops the kernel. It unsubscribes from history, drops every
// listener and middleware, runs OnDestroy for each plugin and empties the
// registry. Later calls are no-ops.
func (k *Kernel) Destroy() {
	k.mu.Lock()
	if k.destroyed {
		k.mu.Unlock()
		return
	}
	k.destroyed = true
	unlisten := k.unlisten
	plugins := k.plugins
	k.plugins = nil
	k.unlisten = nil
	k.before.clear()
	k.after.clear()
	k.errors.clear()
	k.middleware.clear()
	k.mu.Unlock()

	k.cancel()
	if unlisten != nil {
		unlisten()
	}
	for _, e := range plugins {
		k.destroyPlugin(e)
	}
	k.logger.Debug("kernel destroyed")
}
