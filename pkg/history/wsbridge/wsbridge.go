// Package wsbridge implements history.Bridge over a WebSocket connection
// to a thin browser client.
//
// The client reports its location with JSON text frames:
//
//	{"op":"init","url":"/users/42?tab=posts","state":null}
//	{"op":"pop","url":"/users/41","state":{"scroll":120}}
//
// and the server drives it with:
//
//	{"op":"push","url":"/users/43","state":null}
//	{"op":"replace","url":"/users/43?tab=likes","state":null}
//	{"op":"go","delta":-1}
package wsbridge

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/vango-dev/navkit/pkg/history"
	"github.com/vango-dev/navkit/pkg/routepath"
)

// Message operations.
const (
	OpInit    = "init"
	OpPop     = "pop"
	OpPush    = "push"
	OpReplace = "replace"
	OpGo      = "go"
)

// Defaults.
const (
	DefaultReadLimit    = 16 * 1024
	DefaultWriteTimeout = 10 * time.Second
	DefaultPopRate      = rate.Limit(20)
	DefaultPopBurst     = 10
)

// Message is a bridge frame in either direction.
type Message struct {
	Op    string `json:"op"`
	URL   string `json:"url,omitempty"`
	State any    `json:"state,omitempty"`
	Delta int    `json:"delta,omitempty"`
}

// ErrClosed is returned by writes after the connection has gone away.
var ErrClosed = errors.New("wsbridge: connection closed")

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// WithPopRate limits how many client pops per second are accepted.
func WithPopRate(r rate.Limit, burst int) Option {
	return func(b *Bridge) {
		b.limiter = rate.NewLimiter(r, burst)
	}
}

// WithReadLimit caps the size of an inbound frame.
func WithReadLimit(n int64) Option {
	return func(b *Bridge) {
		b.readLimit = n
	}
}

// WithWriteTimeout bounds each outbound write.
func WithWriteTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		b.writeTimeout = d
	}
}

// WithInitial sets the location reported before the client's init frame.
func WithInitial(raw string) Option {
	return func(b *Bridge) {
		b.initial = raw
	}
}

// Bridge is a history.Bridge whose native store is a remote client.
type Bridge struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	mu      sync.Mutex
	loc     history.Location
	subs    []subscriber
	nextSub uint64
	closed  bool

	ready     chan struct{}
	readyOnce sync.Once

	limiter      *rate.Limiter
	logger       *slog.Logger
	readLimit    int64
	writeTimeout time.Duration
	initial      string
}

type subscriber struct {
	id uint64
	fn func(history.Location)
}

var _ history.Bridge = (*Bridge)(nil)

// New wraps conn. Call Run to start reading client frames.
func New(conn *websocket.Conn, opts ...Option) *Bridge {
	b := &Bridge{
		conn:         conn,
		ready:        make(chan struct{}),
		limiter:      rate.NewLimiter(DefaultPopRate, DefaultPopBurst),
		readLimit:    DefaultReadLimit,
		writeTimeout: DefaultWriteTimeout,
		initial:      "/",
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	b.loc = history.Location{Pathname: "/"}
	if loc, ok := b.canonical(b.initial, nil); ok {
		b.loc = loc
	}
	return b
}

// NewUpgrader returns an upgrader for bridge endpoints. A nil checkOrigin
// keeps gorilla's same-origin check.
func NewUpgrader(checkOrigin func(*http.Request) bool) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     checkOrigin,
	}
}

// Accept upgrades r and wraps the connection. A "url" query parameter on
// the upgrade request seeds the initial location.
func Accept(w http.ResponseWriter, r *http.Request, up *websocket.Upgrader, opts ...Option) (*Bridge, error) {
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	if initial := r.URL.Query().Get("url"); initial != "" {
		opts = append([]Option{WithInitial(initial)}, opts...)
	}
	return New(conn, opts...), nil
}

// Ready is closed once the client's init frame has been applied.
func (b *Bridge) Ready() <-chan struct{} {
	return b.ready
}

// Run reads client frames until the connection closes or ctx is done.
// A normal close returns nil.
func (b *Bridge) Run(ctx context.Context) error {
	b.conn.SetReadLimit(b.readLimit)

	stop := context.AfterFunc(ctx, func() {
		b.conn.Close()
	})
	defer stop()
	defer b.markClosed()

	for {
		var msg Message
		if err := b.conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				b.logger.Warn("discarding malformed bridge frame", "error", err)
				continue
			}
			b.logger.Error("bridge read error", "error", err)
			return err
		}
		b.handle(msg)
	}
}

func (b *Bridge) handle(msg Message) {
	switch msg.Op {
	case OpInit:
		loc, ok := b.canonical(msg.URL, msg.State)
		if ok {
			b.mu.Lock()
			b.loc = loc
			b.mu.Unlock()
		}
		b.readyOnce.Do(func() { close(b.ready) })

	case OpPop:
		if !b.limiter.Allow() {
			b.logger.Warn("bridge pop rate limited", "url", msg.URL)
			return
		}
		loc, ok := b.canonical(msg.URL, msg.State)
		if !ok {
			return
		}
		b.mu.Lock()
		b.loc = loc
		subs := make([]subscriber, len(b.subs))
		copy(subs, b.subs)
		b.mu.Unlock()
		for _, s := range subs {
			s.fn(loc)
		}

	default:
		b.logger.Warn("unknown bridge op", "op", msg.Op)
	}
}

// canonical parses an untrusted client url. Rejected urls are logged.
func (b *Bridge) canonical(raw string, state any) (history.Location, bool) {
	res, err := routepath.Canonicalize(raw)
	if err != nil {
		b.logger.Warn("rejected client location", "url", raw, "error", err)
		return history.Location{}, false
	}
	return history.Location{
		Pathname: res.Path,
		Search:   res.Search,
		Hash:     res.Hash,
		State:    state,
	}, true
}

func (b *Bridge) markClosed() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}

// Location returns the last location the client reported or the server
// pushed.
func (b *Bridge) Location() history.Location {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loc
}

// PushState tells the client to push url.
func (b *Bridge) PushState(state any, url string) error {
	return b.writeLocation(OpPush, state, url)
}

// ReplaceState tells the client to replace its entry with url.
func (b *Bridge) ReplaceState(state any, url string) error {
	return b.writeLocation(OpReplace, state, url)
}

func (b *Bridge) writeLocation(op string, state any, url string) error {
	if err := b.write(Message{Op: op, URL: url, State: state}); err != nil {
		return err
	}
	b.mu.Lock()
	b.loc = history.ParseLocation(url, state)
	b.mu.Unlock()
	return nil
}

// Go tells the client to move through its history. Write failures are
// logged.
func (b *Bridge) Go(delta int) {
	if err := b.write(Message{Op: OpGo, Delta: delta}); err != nil {
		b.logger.Warn("bridge go failed", "delta", delta, "error", err)
	}
}

func (b *Bridge) write(msg Message) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrClosed
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if b.writeTimeout > 0 {
		b.conn.SetWriteDeadline(time.Now().Add(b.writeTimeout))
	}
	return b.conn.WriteJSON(msg)
}

// Subscribe registers fn for client pops.
func (b *Bridge) Subscribe(fn func(history.Location)) func() {
	b.mu.Lock()
	b.nextSub++
	id := b.nextSub
	b.subs = append(b.subs, subscriber{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	}
}
