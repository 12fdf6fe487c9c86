// Package util holds small concurrency helpers.
package util

import (
	"context"
	"errors"
	"sync"
)

// Parallel calls fn for every input with at most workerLimit calls running
// at once. Every input is attempted; a failure does not stop the others.
// Inputs not started before ctx ends record ctx's error. The result joins
// the errors in input order, or is nil.
func Parallel[T any](ctx context.Context, inputs []T, workerLimit int, fn func(context.Context, T) error) error {
	if len(inputs) == 0 {
		return nil
	}
	if workerLimit <= 0 {
		workerLimit = 1
	}

	errs := make([]error, len(inputs))
	sem := make(chan struct{}, workerLimit)
	var wg sync.WaitGroup

	for i, item := range inputs {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}
		select {
		case <-ctx.Done():
			errs[i] = ctx.Err()
			continue
		case sem <- struct{}{}:
		}

		i, item := i, item
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			errs[i] = fn(ctx, item)
		}()
	}

	wg.Wait()
	return errors.Join(errs...)
}
