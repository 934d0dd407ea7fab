package runner

import (
	"context"
	"fmt"
	"sync"
)

// parallelResult pairs a result with its original index so
// results can be returned in submission order.
type parallelResult struct {
	index  int
	result *CaseResult
	err    error
}

// runParallel executes cases concurrently with a semaphore
// limiting maxConcurrency goroutines, and so at most that many
// browser sessions. Results are returned in the same order as
// the input cases; cases that never started are omitted.
func runParallel(
	ctx context.Context,
	r *DefaultRunner,
	runID string,
	cases []Case,
	maxConcurrency int,
) ([]*CaseResult, error) {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}

	sem := make(chan struct{}, maxConcurrency)
	resultsCh := make(chan parallelResult, len(cases))

	var wg sync.WaitGroup

	for i, c := range cases {
		wg.Add(1)
		go func(idx int, c Case) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				resultsCh <- parallelResult{
					index: idx,
					err: fmt.Errorf(
						"case %s not started: %w", c.Name, ctx.Err(),
					),
				}
				return
			}

			if err := ctx.Err(); err != nil {
				resultsCh <- parallelResult{
					index: idx,
					err: fmt.Errorf(
						"case %s not started: %w", c.Name, err,
					),
				}
				return
			}

			resultsCh <- parallelResult{
				index:  idx,
				result: r.runCase(ctx, runID, c),
			}
		}(i, c)
	}

	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	ordered := make([]*CaseResult, len(cases))
	var firstErr error

	for pr := range resultsCh {
		if pr.err != nil && firstErr == nil {
			firstErr = pr.err
		}
		ordered[pr.index] = pr.result
	}

	results := make([]*CaseResult, 0, len(cases))
	for _, res := range ordered {
		if res != nil {
			results = append(results, res)
		}
	}

	return results, firstErr
}
