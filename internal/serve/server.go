// Package serve is the HTTP surface of `navkit serve`: one kernel per
// WebSocket connection, a match API, health and metrics endpoints.
package serve

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/vango-dev/navkit/internal/config"
	"github.com/vango-dev/navkit/pkg/history"
	"github.com/vango-dev/navkit/pkg/history/wsbridge"
	"github.com/vango-dev/navkit/pkg/kernel"
	navmw "github.com/vango-dev/navkit/pkg/middleware"
	"github.com/vango-dev/navkit/pkg/routeerr"
	"github.com/vango-dev/navkit/pkg/routepath"
	"github.com/vango-dev/navkit/pkg/router"
)

// DefaultInitTimeout is how long a session waits for the client's init
// frame before resolving the seeded location.
const DefaultInitTimeout = 2 * time.Second

// Options configures a Server.
type Options struct {
	Config *config.Config
	Logger *slog.Logger

	// Registry receives the navkit metrics. Default: a new registry with
	// the Go and process collectors.
	Registry *prometheus.Registry

	// TracerProvider traces navigations. Default: the otel global.
	TracerProvider trace.TracerProvider

	// CheckOrigin is passed to the WebSocket upgrader. Nil keeps the
	// same-origin check.
	CheckOrigin func(*http.Request) bool

	InitTimeout time.Duration
}

// Server hosts navigation sessions.
type Server struct {
	cfg         *config.Config
	logger      *slog.Logger
	registry    *prometheus.Registry
	metrics     *navmw.Metrics
	tracing     kernel.Middleware
	upgrader    *websocket.Upgrader
	initTimeout time.Duration
	cache       *router.MatchCache

	// reload serializes route fan-out with session registration.
	reload sync.Mutex

	mu       sync.Mutex
	defs     []router.RouteDefinition
	gen      uint64
	flat     []*router.RouteDefinition
	sessions map[*kernel.Kernel]struct{}
	wg       sync.WaitGroup
}

// New creates a Server for routes.
func New(routes []router.RouteDefinition, opts Options) *Server {
	if opts.Config == nil {
		opts.Config = config.New()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
		opts.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	if opts.InitTimeout <= 0 {
		opts.InitTimeout = DefaultInitTimeout
	}

	s := &Server{
		cfg:         opts.Config,
		logger:      opts.Logger,
		registry:    opts.Registry,
		metrics:     navmw.NewMetrics(navmw.WithRegistry(opts.Registry)),
		tracing:     navmw.OpenTelemetry(navmw.WithTracerProvider(opts.TracerProvider)),
		upgrader:    wsbridge.NewUpgrader(opts.CheckOrigin),
		initTimeout: opts.InitTimeout,
		cache:       router.NewMatchCache(opts.Config.CacheSize),
		sessions:    make(map[*kernel.Kernel]struct{}),
	}
	s.defs = routes
	s.flat = router.Flatten(routes)
	s.metrics.RegisterCacheStats(s.cache.Stats)
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Get("/api/match", s.handleMatch)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.Get("/ws", s.handleSession)
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// SetRoutes replaces the route table and re-resolves every live session.
func (s *Server) SetRoutes(routes []router.RouteDefinition) {
	s.reload.Lock()
	defer s.reload.Unlock()

	s.mu.Lock()
	s.defs = routes
	s.gen++
	s.flat = router.Flatten(routes)
	kernels := make([]*kernel.Kernel, 0, len(s.sessions))
	for k := range s.sessions {
		kernels = append(kernels, k)
	}
	s.mu.Unlock()

	for _, k := range kernels {
		if err := k.SetRoutes(routes); err != nil {
			s.logger.Warn("route reload rejected by session", "error", err)
		}
	}
	s.logger.Info("routes reloaded", "routes", len(router.Flatten(routes)), "sessions", len(kernels))
}

// Sessions returns the number of live sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Wait blocks until every session has ended.
func (s *Server) Wait() {
	s.wg.Wait()
}

// Match resolves url against the current routes. The configured base is
// stripped first.
func (s *Server) Match(url string) (MatchResult, error) {
	if err := history.Validate(url); err != nil {
		return MatchResult{}, err
	}
	logical := routepath.StripBase(s.cfg.Base, url)

	s.mu.Lock()
	flat := s.flat
	s.mu.Unlock()

	m := s.cache.Match(logical, flat)
	if m == nil {
		pathname, _, _ := routepath.Split(logical)
		return MatchResult{}, routeerr.NotFound(routepath.Normalize(pathname))
	}
	return FromMatch(m, logical), nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.Sessions(),
	})
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	res, err := s.Match(r.URL.Query().Get("url"))
	if err != nil {
		s.metrics.ObserveError(err)
		var re *routeerr.Error
		if !errors.As(err, &re) {
			re = routeerr.FromError(err, routeerr.CodeRouteNotFound)
		}
		status := http.StatusBadRequest
		if errors.Is(err, routeerr.ErrRouteNotFound) {
			status = http.StatusNotFound
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(re.FormatJSON()))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	logger := s.logger.With("request_id", middleware.GetReqID(r.Context()))
	bridge, err := wsbridge.Accept(w, r, s.upgrader,
		wsbridge.WithLogger(logger),
		wsbridge.WithReadLimit(s.cfg.Server.ReadLimit),
		wsbridge.WithPopRate(rate.Limit(s.cfg.Server.PopRate), wsbridge.DefaultPopBurst),
	)
	if err != nil {
		// The upgrader has already replied.
		logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()
	s.run(r.Context(), bridge, logger)
}

func (s *Server) run(ctx context.Context, bridge *wsbridge.Bridge, logger *slog.Logger) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- bridge.Run(ctx) }()

	select {
	case <-bridge.Ready():
	case <-time.After(s.initTimeout):
		logger.Debug("no init frame, using seeded location")
	case err := <-done:
		logger.Debug("session closed before init", "error", err)
		return
	}

	var h history.History
	if s.cfg.Server.Hash {
		h = history.NewHash(bridge, history.WithLogger(logger))
	} else {
		h = history.NewBrowser(bridge, history.WithLogger(logger))
	}

	s.mu.Lock()
	defs, gen := s.defs, s.gen
	s.mu.Unlock()

	opts := append(s.cfg.KernelOptions(),
		kernel.WithLogger(logger),
		kernel.WithMiddleware(s.metrics, s.tracing),
		kernel.WithErrorListener(s.metrics.ObserveError),
		kernel.WithErrorListener(func(err error) {
			logger.Info("routing error", "error", err)
		}),
	)
	k := kernel.New(h, defs, opts...)
	unregister := s.metrics.RegisterCacheStats(k.CacheStats)

	s.register(k, gen)
	logger.Info("session started", "path", bridge.Location().Pathname)

	defer func() {
		s.mu.Lock()
		delete(s.sessions, k)
		s.mu.Unlock()
		k.Destroy()
		unregister()
		logger.Info("session ended")
	}()

	if err := <-done; err != nil {
		logger.Warn("session read failed", "error", err)
	}
}

// register adds k to the live sessions. A kernel built from route
// generation gen is brought up to date if SetRoutes ran in between.
func (s *Server) register(k *kernel.Kernel, gen uint64) {
	s.reload.Lock()
	defer s.reload.Unlock()

	s.mu.Lock()
	s.sessions[k] = struct{}{}
	defs, latest := s.defs, s.gen
	s.mu.Unlock()

	if latest != gen {
		if err := k.SetRoutes(defs); err != nil {
			s.logger.Warn("route reload rejected by session", "error", err)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
