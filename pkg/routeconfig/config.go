package routeconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/navkit/pkg/router"
)

// MaxFileSize bounds how many bytes of a route file are read.
const MaxFileSize = 1 << 20

const defaultDebounce = 200 * time.Millisecond

var (
	// ErrNoRoutes is returned for a route file that defines no routes.
	ErrNoRoutes = errors.New("routeconfig: no routes defined")

	// ErrTooLarge is returned when a route file exceeds MaxFileSize.
	ErrTooLarge = errors.New("routeconfig: route file too large")

	// ErrUnknownComponent is returned when a Registry cannot resolve a
	// component name.
	ErrUnknownComponent = errors.New("routeconfig: unknown component")
)

// File is the YAML document layout.
type File struct {
	Routes []Entry `yaml:"routes"`
}

// Entry is one route in a route file.
type Entry struct {
	Path      string         `yaml:"path"`
	Component string         `yaml:"component,omitempty"`
	Meta      map[string]any `yaml:"meta,omitempty"`
	Children  []Entry        `yaml:"children,omitempty"`
}

// Resolver maps a component name to the value handed to the router.
type Resolver interface {
	Resolve(name string) (any, bool)
}

// Registry is a Resolver backed by a map.
type Registry map[string]any

// Resolve implements Resolver.
func (r Registry) Resolve(name string) (any, bool) {
	c, ok := r[name]
	return c, ok
}

// Option configures decoding, loading and watching.
type Option func(*options)

type options struct {
	resolver Resolver
	logger   *slog.Logger
	debounce time.Duration
}

// WithResolver resolves component names while decoding.
func WithResolver(r Resolver) Option {
	return func(o *options) {
		o.resolver = r
	}
}

// WithLogger sets the logger used by Watcher.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithDebounce sets the quiet period a Watcher waits after the last file
// event before reloading.
func WithDebounce(d time.Duration) Option {
	return func(o *options) {
		o.debounce = d
	}
}

func buildOptions(opts []Option) options {
	o := options{debounce: defaultDebounce}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.debounce <= 0 {
		o.debounce = defaultDebounce
	}
	return o
}

// Decode parses a route file. Unknown fields are rejected and every
// pattern must compile.
func Decode(data []byte, opts ...Option) ([]router.RouteDefinition, error) {
	o := buildOptions(opts)

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoRoutes
		}
		return nil, fmt.Errorf("routeconfig: decode: %w", err)
	}
	if len(f.Routes) == 0 {
		return nil, ErrNoRoutes
	}

	defs, err := convert(f.Routes, o.resolver)
	if err != nil {
		return nil, err
	}
	if err := router.Validate(router.Flatten(defs)); err != nil {
		return nil, fmt.Errorf("routeconfig: %w", err)
	}
	return defs, nil
}

func convert(entries []Entry, resolver Resolver) ([]router.RouteDefinition, error) {
	defs := make([]router.RouteDefinition, 0, len(entries))
	for _, e := range entries {
		def := router.RouteDefinition{
			Path: e.Path,
			Meta: e.Meta,
		}
		if e.Component != "" {
			def.Component = e.Component
			if resolver != nil {
				c, ok := resolver.Resolve(e.Component)
				if !ok {
					return nil, fmt.Errorf("%w %q at %s", ErrUnknownComponent, e.Component, e.Path)
				}
				def.Component = c
			}
		}
		if len(e.Children) > 0 {
			children, err := convert(e.Children, resolver)
			if err != nil {
				return nil, err
			}
			def.Children = children
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// Encode renders route definitions as a route file. Components are
// written with %v, so only name-valued components round-trip.
func Encode(defs []router.RouteDefinition) ([]byte, error) {
	f := File{Routes: entries(defs)}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, fmt.Errorf("routeconfig: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("routeconfig: encode: %w", err)
	}
	return buf.Bytes(), nil
}

func entries(defs []router.RouteDefinition) []Entry {
	out := make([]Entry, 0, len(defs))
	for _, def := range defs {
		e := Entry{Path: def.Path, Meta: def.Meta}
		if def.Component != nil {
			e.Component = fmt.Sprint(def.Component)
		}
		if len(def.Children) > 0 {
			e.Children = entries(def.Children)
		}
		out = append(out, e)
	}
	return out
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxFileSize {
		return nil, ErrTooLarge
	}
	return data, nil
}
