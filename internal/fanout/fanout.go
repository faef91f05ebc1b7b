package fanout

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultPerTargetTimeout is the default timeout for each target call.
	DefaultPerTargetTimeout = 10 * time.Second
)

// Func performs the call against a single target.
type Func[T any] func(ctx context.Context, target string) (T, error)

// Result holds the per-target outcome of a fanout. Every target appears in
// exactly one of Values or Errors.
type Result[T any] struct {
	Values map[string]T
	Errors map[string]error
}

// Succeeded returns the targets that answered, sorted.
func (r Result[T]) Succeeded() []string {
	out := make([]string, 0, len(r.Values))
	for t := range r.Values {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Failed returns the targets that errored, sorted.
func (r Result[T]) Failed() []string {
	out := make([]string, 0, len(r.Errors))
	for t := range r.Errors {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Err summarizes the failures, or returns nil when every target answered.
func (r Result[T]) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	failed := r.Failed()
	shown := failed[:min(3, len(failed))]
	parts := make([]error, 0, len(shown))
	for _, t := range shown {
		parts = append(parts, fmt.Errorf("%s: %w", t, r.Errors[t]))
	}
	return fmt.Errorf("%d of %d targets failed: %v", len(failed), len(failed)+len(r.Values), parts)
}

type options struct {
	timeout time.Duration
	limit   int
}

// Opt configures Do.
type Opt func(*options)

// WithTimeout bounds each target call. Zero disables the per-target bound.
func WithTimeout(d time.Duration) Opt {
	return func(o *options) {
		o.timeout = d
	}
}

// WithLimit caps the number of concurrent calls.
func WithLimit(n int) Opt {
	return func(o *options) {
		o.limit = n
	}
}

// Do calls fn once per distinct target in parallel. Duplicate and empty
// targets are ignored. Do returns once every call has returned.
func Do[T any](ctx context.Context, targets []string, fn Func[T], opts ...Opt) Result[T] {
	o := options{timeout: DefaultPerTargetTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	res := Result[T]{
		Values: make(map[string]T),
		Errors: make(map[string]error),
	}
	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, len(targets))
		eg   errgroup.Group
	)
	if o.limit > 0 {
		eg.SetLimit(o.limit)
	}

	for _, target := range targets {
		if target == "" {
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}

		eg.Go(func() error {
			tctx := ctx
			if o.timeout > 0 {
				var cancel context.CancelFunc
				tctx, cancel = context.WithTimeout(ctx, o.timeout)
				defer cancel()
			}
			v, err := fn(tctx, target)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Errors[target] = err
				return nil
			}
			res.Values[target] = v
			return nil
		})
	}
	// calls never return errors to the group; failures live in res.Errors
	_ = eg.Wait()
	return res
}
