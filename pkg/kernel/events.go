package kernel

import (
	"context"
	"sync"
)

// BeforeNavigateFunc is a guard listener. Returning false rejects the
// navigation; returning an error rejects it and wraps the cause.
type BeforeNavigateFunc func(ctx context.Context, to, from *Route) (bool, error)

// AfterNavigateFunc is called after a Route is committed.
type AfterNavigateFunc func(route *Route)

// ErrorFunc receives routing errors.
type ErrorFunc func(err error)

// listeners is an order-preserving registry. Removal keeps the relative
// order of the remaining entries. It is guarded by the kernel mutex.
type listeners[T any] struct {
	nextID uint64
	items  []listenerItem[T]
}

type listenerItem[T any] struct {
	id uint64
	fn T
}

func (l *listeners[T]) add(fn T) uint64 {
	l.nextID++
	l.items = append(l.items, listenerItem[T]{id: l.nextID, fn: fn})
	return l.nextID
}

func (l *listeners[T]) remove(id uint64) {
	for i, it := range l.items {
		if it.id == id {
			l.items = append(l.items[:i:i], l.items[i+1:]...)
			return
		}
	}
}

func (l *listeners[T]) snapshot() []T {
	out := make([]T, len(l.items))
	for i, it := range l.items {
		out[i] = it.fn
	}
	return out
}

func (l *listeners[T]) clear() {
	l.items = nil
}

func (l *listeners[T]) len() int {
	return len(l.items)
}

func noop() {}

// OnBeforeNavigate registers a guard listener. Listeners run in
// registration order before plugin guards.
func (k *Kernel) OnBeforeNavigate(fn BeforeNavigateFunc) (unsubscribe func()) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.destroyed {
		return noop
	}
	id := k.before.add(fn)
	return k.unsubscriber(func() { k.before.remove(id) })
}

// OnAfterNavigate registers a listener notified after every commit.
func (k *Kernel) OnAfterNavigate(fn AfterNavigateFunc) (unsubscribe func()) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.destroyed {
		return noop
	}
	id := k.after.add(fn)
	return k.unsubscriber(func() { k.after.remove(id) })
}

// OnError registers a listener for routing errors.
func (k *Kernel) OnError(fn ErrorFunc) (unsubscribe func()) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.destroyed {
		return noop
	}
	id := k.errors.add(fn)
	return k.unsubscriber(func() { k.errors.remove(id) })
}

// unsubscriber runs remove under the kernel lock, at most once.
func (k *Kernel) unsubscriber(remove func()) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			k.mu.Lock()
			defer k.mu.Unlock()
			remove()
		})
	}
}

// emitAfter notifies after-navigate listeners. Panics are recovered and
// logged so every listener runs. Dispatch stops once the kernel is destroyed.
func (k *Kernel) emitAfter(fns []AfterNavigateFunc, route *Route) {
	for _, fn := range fns {
		if k.isDestroyed() {
			return
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					k.logger.Error("after-navigate listener panicked",
						"path", route.Pathname,
						"panic", r,
					)
				}
			}()
			fn(route)
		}()
	}
}

// emitError notifies error listeners, unless the kernel is destroyed.
func (k *Kernel) emitError(err error) {
	k.mu.Lock()
	if k.destroyed {
		k.mu.Unlock()
		return
	}
	fns := k.errors.snapshot()
	k.mu.Unlock()

	if len(fns) == 0 {
		k.logger.Warn("unhandled routing error", "error", err)
		return
	}
	k.logger.Debug("routing error", "error", err)
	for _, fn := range fns {
		if k.isDestroyed() {
			return
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					k.logger.Error("error listener panicked", "panic", r)
				}
			}()
			fn(err)
		}()
	}
}
