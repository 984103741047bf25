package acquire

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// AcquireAll runs Acquire for every request, at most the configured
// concurrency at a time. Results are returned in request order and one
// failure does not stop the others.
func (a *Acquirer) AcquireAll(ctx context.Context, reqs []Request) []BatchResult {
	results := make([]BatchResult, len(reqs))

	g := new(errgroup.Group)
	if a.concurrency > 0 {
		g.SetLimit(a.concurrency)
	}
	for i, req := range reqs {
		results[i].Request = req
		g.Go(func() error {
			results[i].Result, results[i].Err = a.Acquire(ctx, req.Spec, req.Destination, req.Options)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Failed returns the results that carry an error.
func Failed(results []BatchResult) []BatchResult {
	var out []BatchResult
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}
