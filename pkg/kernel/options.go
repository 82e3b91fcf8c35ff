package kernel

import (
	"log/slog"
	"time"
)

// DefaultGuardTimeout bounds the guard protocol of one navigation.
const DefaultGuardTimeout = 5 * time.Second

// TimeoutPolicy decides the outcome of a navigation whose guards did not
// settle before the guard timeout.
type TimeoutPolicy int

const (
	// FailOpen allows the navigation and logs a warning.
	FailOpen TimeoutPolicy = iota

	// FailClosed rejects the navigation with a timeout GuardRejected.
	FailClosed
)

// String returns the policy name used in configuration.
func (p TimeoutPolicy) String() string {
	switch p {
	case FailOpen:
		return "fail-open"
	case FailClosed:
		return "fail-closed"
	default:
		return "unknown"
	}
}

// ParseTimeoutPolicy parses "fail-open" or "fail-closed". Anything else
// is FailOpen with ok false.
func ParseTimeoutPolicy(s string) (policy TimeoutPolicy, ok bool) {
	switch s {
	case "fail-open", "open", "":
		return FailOpen, true
	case "fail-closed", "closed":
		return FailClosed, true
	default:
		return FailOpen, false
	}
}

// Option configures a Kernel.
type Option func(*config)

type config struct {
	base          string
	guardTimeout  time.Duration
	timeoutPolicy TimeoutPolicy
	cacheSize     int
	logger        *slog.Logger
	middleware    []Middleware
	errorHandlers []func(error)
}

func defaultConfig() config {
	return config{
		base:          "/",
		guardTimeout:  DefaultGuardTimeout,
		timeoutPolicy: FailOpen,
	}
}

// WithBase sets the mount prefix stripped from incoming locations and
// added to outgoing navigations.
func WithBase(base string) Option {
	return func(c *config) {
		c.base = base
	}
}

// WithGuardTimeout bounds the guard protocol. Non-positive values keep
// the default.
func WithGuardTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.guardTimeout = d
		}
	}
}

// WithTimeoutPolicy sets what happens when guards time out.
func WithTimeoutPolicy(p TimeoutPolicy) Option {
	return func(c *config) {
		c.timeoutPolicy = p
	}
}

// WithCacheSize sets the match cache capacity.
func WithCacheSize(n int) Option {
	return func(c *config) {
		c.cacheSize = n
	}
}

// WithLogger sets the kernel logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithMiddleware appends navigation middleware.
func WithMiddleware(mw ...Middleware) Option {
	return func(c *config) {
		c.middleware = append(c.middleware, mw...)
	}
}

// WithErrorListener registers an error listener before the initial
// match, so a RouteNotFound for the starting location is observable.
func WithErrorListener(fn func(error)) Option {
	return func(c *config) {
		c.errorHandlers = append(c.errorHandlers, fn)
	}
}
