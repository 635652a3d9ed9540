package datasource

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kubeagle/kubeagle/internal/diagnostic"
)

// NamespaceStreamConcurrency caps simultaneous per-namespace queries.
// Deliberately smaller than and independent of the global gate.
const NamespaceStreamConcurrency = 4

// transientRetryLimit allows one retry for classified transient errors.
const transientRetryLimit = 1

// PartialFunc receives one namespace's rows as it completes. Completion
// is delivered in arrival order, not namespace order.
type PartialFunc[T any] func(namespace string, rows []T, completed, total int)

type nsResult[T any] struct {
	namespace string
	rows      []T
	err       error
}

// StreamNamespaces fans fetch out over namespaces under the stream cap
// and returns the union of all successful rows.
//
// Behavior:
//   - empty namespace list: one cluster-wide fallback query, no fan-out;
//   - per-namespace errors are warnings, retried once when transient;
//   - onPartial fires for every completion; panics in it are swallowed;
//   - empty union with namespaces present: cluster-wide fallback as a
//     reliability net;
//   - cancellation tears down and awaits all outstanding units, then
//     returns the context error alongside rows already gathered.
func StreamNamespaces[T any](
	ctx context.Context,
	namespaces []string,
	fetch func(ctx context.Context, namespace string) ([]T, error),
	fallback func(ctx context.Context) ([]T, error),
	onPartial PartialFunc[T],
	logger *zap.Logger,
) ([]T, error) {
	if len(namespaces) == 0 {
		return fallback(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(NamespaceStreamConcurrency)

	results := make(chan nsResult[T])
	go func() {
		for _, namespace := range namespaces {
			ns := namespace
			g.Go(func() error {
				rows, err := fetchWithRetry(gctx, ns, fetch)
				select {
				case results <- nsResult[T]{namespace: ns, rows: rows, err: err}:
				case <-gctx.Done():
				}
				// Per-namespace failures never abort the stream.
				return nil
			})
		}
		g.Wait()
		close(results)
	}()

	var union []T
	total := len(namespaces)
	completed := 0
	for res := range results {
		completed++
		if res.err != nil {
			logger.Warn("Namespace fetch failed",
				zap.String("namespace", res.namespace),
				zap.Error(res.err),
			)
		} else {
			union = append(union, res.rows...)
		}
		if onPartial != nil {
			emitPartial(onPartial, res.namespace, res.rows, completed, total, logger)
		}
	}

	if err := ctx.Err(); err != nil {
		return union, err
	}

	if len(union) == 0 {
		// Per-namespace queries can fail or come back empty on large or
		// misconfigured clusters even when the resource exists.
		rows, err := fallback(ctx)
		if err != nil {
			logger.Warn("Cluster-wide fallback query failed", zap.Error(err))
			return union, nil
		}
		return rows, nil
	}
	return union, nil
}

func fetchWithRetry[T any](ctx context.Context, namespace string, fetch func(ctx context.Context, namespace string) ([]T, error)) ([]T, error) {
	var lastErr error
	for attempt := 0; attempt <= transientRetryLimit; attempt++ {
		rows, err := fetch(ctx, namespace)
		if err == nil {
			return rows, nil
		}
		lastErr = err
		if attempt == transientRetryLimit || !diagnostic.IsTransient(err) {
			break
		}
		select {
		case <-time.After(time.Duration(attempt+1) * 150 * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func emitPartial[T any](onPartial PartialFunc[T], namespace string, rows []T, completed, total int, logger *zap.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Partial update callback panicked",
				zap.String("namespace", namespace),
				zap.Any("panic", r),
			)
		}
	}()
	onPartial(namespace, rows, completed, total)
}
