package core

// hooks.go defines the host-supplied validation hooks and the future type
// every hook invocation goes through.
//
// A hook may do its work inline or in the background. The annotator does not
// care which: it always receives a *Future and awaits it. Inline hooks hand
// back an already-resolved future, background hooks a pending one.

import (
	"context"
	"fmt"
)

// Future is the eventual result of a hook invocation.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Resolved returns a future that is already settled.
func Resolved[T any](value T, err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), value: value, err: err}
	close(f.done)
	return f
}

// Spawn runs fn on its own goroutine and returns a future for its result.
// A panic inside fn settles the future with an error.
func Spawn[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.err = fmt.Errorf("hook panicked: %v", r)
			}
		}()
		f.value, f.err = fn()
	}()
	return f
}

// Await blocks until the future settles or ctx is done. Giving up on the
// context does not stop the underlying work; its result is dropped.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Settled reports whether the result is available without blocking.
func (f *Future[T]) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// RowHook inspects one record. It receives a copy it may change freely and
// the whole working set for context, and returns the record to keep: values
// may be rewritten and errors added or overridden by key. Entries missing
// from the returned map are kept, not dropped.
type RowHook interface {
	HookRow(ctx context.Context, rec Record, all []Record) *Future[Record]
}

// TableHook inspects the whole working set at once, typically for cross-row
// checks. It must return the records in the order it received them. Errors
// merge as for RowHook.
type TableHook interface {
	HookTable(ctx context.Context, records []Record) *Future[[]Record]
}

// RowHookFunc adapts an inline function to RowHook.
type RowHookFunc func(ctx context.Context, rec Record, all []Record) (Record, error)

func (fn RowHookFunc) HookRow(ctx context.Context, rec Record, all []Record) *Future[Record] {
	out, err := fn(ctx, rec, all)
	return Resolved(out, err)
}

// AsyncRowHookFunc adapts a slow function (remote lookup, database check) to
// RowHook by running it in the background.
type AsyncRowHookFunc func(ctx context.Context, rec Record, all []Record) (Record, error)

func (fn AsyncRowHookFunc) HookRow(ctx context.Context, rec Record, all []Record) *Future[Record] {
	return Spawn(func() (Record, error) { return fn(ctx, rec, all) })
}

// TableHookFunc adapts an inline function to TableHook.
type TableHookFunc func(ctx context.Context, records []Record) ([]Record, error)

func (fn TableHookFunc) HookTable(ctx context.Context, records []Record) *Future[[]Record] {
	out, err := fn(ctx, records)
	return Resolved(out, err)
}

// AsyncTableHookFunc adapts a slow function to TableHook.
type AsyncTableHookFunc func(ctx context.Context, records []Record) ([]Record, error)

func (fn AsyncTableHookFunc) HookTable(ctx context.Context, records []Record) *Future[[]Record] {
	return Spawn(func() ([]Record, error) { return fn(ctx, records) })
}

// Hooks bundles the optional hooks of a session.
type Hooks struct {
	Row   RowHook
	Table TableHook
}
