package kernel

import (
	"fmt"

	"github.com/vango-dev/navkit/pkg/history"
	"github.com/vango-dev/navkit/pkg/routeerr"
	"github.com/vango-dev/navkit/pkg/routepath"
)

// NavigateOptions configures one Navigate call.
type NavigateOptions struct {
	// Replace replaces the current history entry instead of pushing.
	Replace bool

	// State is attached to the history entry.
	State any

	// Query is merged into the target's query string. Values may be
	// strings, string slices or anything fmt can print; nil values are
	// dropped.
	Query map[string]any
}

// NavigateOption is a functional option for Navigate.
type NavigateOption func(*NavigateOptions)

// WithReplace replaces the current history entry instead of pushing.
func WithReplace() NavigateOption {
	return func(o *NavigateOptions) {
		o.Replace = true
	}
}

// WithState attaches state to the new history entry.
func WithState(state any) NavigateOption {
	return func(o *NavigateOptions) {
		o.State = state
	}
}

// WithQuery adds query parameters to the target.
func WithQuery(query map[string]any) NavigateOption {
	return func(o *NavigateOptions) {
		o.Query = query
	}
}

// Navigate asks history to move to target, prefixed with the mount base.
// It returns nil when history accepted the location. Whether the route
// changes is observed through events and Current.
func (k *Kernel) Navigate(target string, opts ...NavigateOption) error {
	var o NavigateOptions
	for _, opt := range opts {
		opt(&o)
	}

	if k.isDestroyed() {
		k.logger.Warn("navigate called on destroyed kernel", "path", target)
		return routeerr.New(routeerr.CodeDestroyed).WithPath(target)
	}
	if err := history.Validate(target); err != nil {
		return err
	}

	full := routepath.WithBase(k.base, BuildURL(target, o.Query))
	if o.Replace {
		return k.history.Replace(full, o.State)
	}
	return k.history.Push(full, o.State)
}

// BuildURL merges query into target's query string. Keys are sorted so
// the result is deterministic.
func BuildURL(target string, query map[string]any) string {
	if len(query) == 0 {
		return target
	}
	pathname, search, hash := routepath.Split(target)
	q := routepath.ParseSearch(search)
	for key, v := range query {
		switch v := v.(type) {
		case nil:
			continue
		case string:
			q.Set(key, v)
		case []string:
			delete(q, key)
			for _, s := range v {
				q.Add(key, s)
			}
		default:
			q.Set(key, fmt.Sprintf("%v", v))
		}
	}
	return routepath.Build(pathname, routepath.StringifySearch(q), hash)
}

// Back moves history one entry back.
func (k *Kernel) Back() {
	k.Go(-1)
}

// Forward moves history one entry forward.
func (k *Kernel) Forward() {
	k.Go(1)
}

// Go moves history by delta entries. It is a no-op once destroyed.
func (k *Kernel) Go(delta int) {
	if k.isDestroyed() {
		return
	}
	k.history.Go(delta)
}
