package kernel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/vango-dev/navkit/pkg/routeerr"
)

// Plugin extends a Kernel. Install is called exactly once, synchronously
// from Use.
type Plugin interface {
	Name() string
	Version() string
	Install(h Handle) error
}

// Dependent is implemented by plugins that require other plugins to be
// registered first.
type Dependent interface {
	Dependencies() []string
}

// Initializer is implemented by plugins with asynchronous setup. OnInit
// runs on its own goroutine after a successful Install.
type Initializer interface {
	OnInit(ctx context.Context) error
}

// Destroyer is implemented by plugins that release resources on
// Unregister or Destroy.
type Destroyer interface {
	OnDestroy() error
}

// ErrorObserver is implemented by plugins that want their own hook
// failures reported back to them.
type ErrorObserver interface {
	OnError(err error)
}

// Guard is implemented by plugins that take part in the guard protocol.
type Guard interface {
	OnBeforeNavigate(ctx context.Context, to, from *Route) (bool, error)
}

// Handle is the capability surface given to plugins at install time.
// Subscriptions and middleware added through a plugin's Handle are removed
// when the plugin is unregistered.
type Handle interface {
	Navigate(target string, opts ...NavigateOption) error
	Back()
	Forward()
	Go(delta int)
	Use(p Plugin) error
	OnBeforeNavigate(fn BeforeNavigateFunc) (unsubscribe func())
	OnAfterNavigate(fn AfterNavigateFunc) (unsubscribe func())
	OnError(fn ErrorFunc) (unsubscribe func())
	UseMiddleware(mw Middleware) (remove func())
	Current() *Route
	Logger() *slog.Logger
}

var _ Handle = (*Kernel)(nil)

type pluginEntry struct {
	name     string
	plugin   Plugin
	cleanups []func()
}

// pluginHandle is the Handle passed to a plugin. It records every
// subscription so Unregister can undo them.
type pluginHandle struct {
	*Kernel
	entry *pluginEntry
}

func (h *pluginHandle) track(remove func()) func() {
	h.mu.Lock()
	h.entry.cleanups = append(h.entry.cleanups, remove)
	h.mu.Unlock()
	return remove
}

func (h *pluginHandle) OnBeforeNavigate(fn BeforeNavigateFunc) func() {
	return h.track(h.Kernel.OnBeforeNavigate(fn))
}

func (h *pluginHandle) OnAfterNavigate(fn AfterNavigateFunc) func() {
	return h.track(h.Kernel.OnAfterNavigate(fn))
}

func (h *pluginHandle) OnError(fn ErrorFunc) func() {
	return h.track(h.Kernel.OnError(fn))
}

func (h *pluginHandle) UseMiddleware(mw Middleware) func() {
	return h.track(h.Kernel.UseMiddleware(mw))
}

func (h *pluginHandle) Logger() *slog.Logger {
	return h.Kernel.Logger().With("plugin", h.entry.name)
}

// Use registers p and installs it. Dependencies must already be
// registered. Install failures are reported as PluginError events and do
// not undo the registration.
func (k *Kernel) Use(p Plugin) error {
	if p == nil {
		return errors.New("kernel: nil plugin")
	}
	name := p.Name()

	k.mu.Lock()
	if k.destroyed {
		k.mu.Unlock()
		return routeerr.New(routeerr.CodeDestroyed).WithPlugin(name)
	}
	if k.pluginIndex(name) >= 0 {
		k.mu.Unlock()
		return routeerr.DuplicatePlugin(name)
	}
	if d, ok := p.(Dependent); ok {
		for _, dep := range d.Dependencies() {
			if k.pluginIndex(dep) < 0 {
				k.mu.Unlock()
				return routeerr.MissingDependency(name, dep)
			}
		}
	}
	entry := &pluginEntry{name: name, plugin: p}
	k.plugins = append(k.plugins, entry)
	k.mu.Unlock()

	if v := p.Version(); !validVersion(v) {
		k.logger.Warn("plugin version is not valid semver", "plugin", name, "version", v)
	}

	handle := &pluginHandle{Kernel: k, entry: entry}
	if err := callHook(func() error { return p.Install(handle) }); err != nil {
		k.pluginFailed(p, "Install", err)
		return nil
	}
	k.logger.Debug("plugin installed", "plugin", name, "version", p.Version())

	if init, ok := p.(Initializer); ok {
		k.wg.Add(1)
		go func() {
			defer k.wg.Done()
			if err := callHook(func() error { return init.OnInit(k.ctx) }); err != nil {
				k.pluginFailed(p, "OnInit", err)
			}
		}()
	}
	return nil
}

// Unregister removes the named plugin, undoes the subscriptions it made
// through its Handle and runs OnDestroy. It reports whether the plugin
// was registered.
func (k *Kernel) Unregister(name string) bool {
	k.mu.Lock()
	i := k.pluginIndex(name)
	if i < 0 {
		k.mu.Unlock()
		return false
	}
	entry := k.plugins[i]
	k.plugins = slices.Delete(k.plugins, i, i+1)
	cleanups := entry.cleanups
	entry.cleanups = nil
	k.mu.Unlock()

	for _, remove := range cleanups {
		remove()
	}
	k.destroyPlugin(entry)
	return true
}

// Plugins returns registered plugin names in registration order.
func (k *Kernel) Plugins() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	names := make([]string, len(k.plugins))
	for i, e := range k.plugins {
		names[i] = e.name
	}
	return names
}

// Plugin returns the registered plugin with the given name.
func (k *Kernel) Plugin(name string) (Plugin, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if i := k.pluginIndex(name); i >= 0 {
		return k.plugins[i].plugin, true
	}
	return nil, false
}

// pluginIndex must be called with k.mu held.
func (k *Kernel) pluginIndex(name string) int {
	return slices.IndexFunc(k.plugins, func(e *pluginEntry) bool {
		return e.name == name
	})
}

func (k *Kernel) destroyPlugin(entry *pluginEntry) {
	d, ok := entry.plugin.(Destroyer)
	if !ok {
		return
	}
	if err := callHook(d.OnDestroy); err != nil {
		k.logger.Warn("plugin OnDestroy failed", "plugin", entry.name, "error", err)
	}
}

// pluginFailed emits a PluginError and forwards it to the plugin's own
// OnError hook.
func (k *Kernel) pluginFailed(p Plugin, hook string, cause error) *routeerr.Error {
	perr := routeerr.PluginFailed(p.Name(), hook, cause)
	k.emitError(perr)
	k.notifyPlugin(p, perr)
	return perr
}

func (k *Kernel) notifyPlugin(p Plugin, err error) {
	obs, ok := p.(ErrorObserver)
	if !ok {
		return
	}
	_ = callHook(func() error {
		obs.OnError(err)
		return nil
	})
}

// callHook runs fn and converts a panic into an error.
func callHook(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// validVersion accepts semantic versions with or without a leading "v".
func validVersion(v string) bool {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return semver.IsValid(v)
}
