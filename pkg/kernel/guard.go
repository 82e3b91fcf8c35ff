package kernel

import (
	"context"
	"errors"
	"fmt"

	"github.com/vango-dev/navkit/pkg/routeerr"
)

type pluginGuard struct {
	plugin Plugin
	guard  Guard
}

// runGuards evaluates the guard protocol for nav, bounded by the guard
// timeout. A guard that ignores ctx keeps running after the deadline but
// its result is discarded.
func (k *Kernel) runGuards(ctx context.Context, nav *Navigation) error {
	k.mu.Lock()
	listeners := k.before.snapshot()
	var guards []pluginGuard
	for _, e := range k.plugins {
		if g, ok := e.plugin.(Guard); ok {
			guards = append(guards, pluginGuard{plugin: e.plugin, guard: g})
		}
	}
	k.mu.Unlock()

	if len(listeners) == 0 && len(guards) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, k.guardTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- k.evaluateGuards(ctx, nav, listeners, guards)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		// A result that raced the deadline still counts.
		select {
		case err := <-done:
			return err
		default:
		}
		if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ctx.Err()
		}
		timeout := routeerr.GuardTimeout(nav.To, nav.To.Pathname, k.guardTimeout)
		if k.timeoutPolicy == FailClosed {
			return routeerr.GuardRejected(nav.To, nav.To.Pathname, "").Wrap(timeout)
		}
		k.logger.Warn("guard protocol timed out, allowing navigation",
			"path", nav.To.Pathname,
			"timeout", k.guardTimeout,
		)
		return nil
	}
}

// evaluateGuards runs listeners, then plugin guards, strictly in order.
// The first denial or failure stops the protocol.
func (k *Kernel) evaluateGuards(ctx context.Context, nav *Navigation, listeners []BeforeNavigateFunc, guards []pluginGuard) error {
	to, from := nav.To, nav.From

	for _, fn := range listeners {
		ok, err := callGuard(func() (bool, error) { return fn(ctx, to, from) })
		if err != nil {
			return routeerr.GuardRejected(to, to.Pathname, "").Wrap(err)
		}
		if !ok {
			return routeerr.GuardRejected(to, to.Pathname, "")
		}
	}

	for _, g := range guards {
		ok, err := callGuard(func() (bool, error) { return g.guard.OnBeforeNavigate(ctx, to, from) })
		if err != nil {
			perr := routeerr.PluginFailed(g.plugin.Name(), "OnBeforeNavigate", err).
				WithRoute(to).WithPath(to.Pathname)
			if ctx.Err() == nil {
				k.notifyPlugin(g.plugin, perr)
			}
			return perr
		}
		if !ok {
			return routeerr.GuardRejected(to, to.Pathname, g.plugin.Name())
		}
	}
	return nil
}

func callGuard(fn func() (bool, error)) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
