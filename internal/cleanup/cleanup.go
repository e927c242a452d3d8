// Package cleanup runs release hooks (backend clients, log files) once, in
// reverse registration order, on normal exit and on interrupt alike.
package cleanup

import (
	"errors"
	"io"
	"sync"
)

var (
	mu    sync.Mutex
	hooks []func() error
)

// Register adds a cleanup hook executed in LIFO order.
func Register(hook func() error) {
	if hook == nil {
		return
	}
	mu.Lock()
	hooks = append(hooks, hook)
	mu.Unlock()
}

// RegisterCloser registers c.Close.
func RegisterCloser(c io.Closer) {
	if c == nil {
		return
	}
	Register(c.Close)
}

// RunAll executes and clears all registered hooks. Every hook runs even if an
// earlier one fails; the failures are joined.
func RunAll() error {
	mu.Lock()
	local := hooks
	hooks = nil
	mu.Unlock()

	var errs []error
	for i := len(local) - 1; i >= 0; i-- {
		if err := local[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
