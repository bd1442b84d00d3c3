package deviceio

import "time"

// runWithTimeout races fn against a timeout in a single helper goroutine,
// the "one internal timeout-bounded helper thread for uninterruptible
// device decodes" called for in spec.md §5. If fn has not returned by
// timeout, runWithTimeout returns (zero, nil, false) immediately; fn's
// goroutine is left to finish on its own and its result (if any) is
// discarded — the caller must not assume fn has stopped running.
func runWithTimeout[T any](timeout time.Duration, fn func() (T, error)) (T, error, bool) {
	type result struct {
		val T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.val, r.err, true
	case <-time.After(timeout):
		var zero T
		return zero, nil, false
	}
}
