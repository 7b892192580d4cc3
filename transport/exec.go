package transport

import "context"

// op is one transport pipeline, bound to its arguments.
type op[T any] func(ctx context.Context) (T, error)

// block drives o to completion on the calling goroutine.
func block[T any](ctx context.Context, o op[T]) (T, error) {
	return o(ctx)
}

// Future is the pending result of an asynchronous transport call.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// spawn runs o on a new goroutine. release, if set, runs before the future
// is marked done.
func spawn[T any](ctx context.Context, o op[T], release func()) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		if release != nil {
			defer release()
		}
		f.val, f.err = o(ctx)
	}()
	return f
}

// failed returns an already completed future carrying err.
func failed[T any](err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), err: err}
	close(f.done)
	return f
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Ready reports whether the result is available without waiting.
func (f *Future[T]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Await waits for the result or for ctx to end. Abandoning a future does not
// stop the operation; cancel the context it was started with for that.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	default:
	}
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
