// Package resilience provides retry with exponential backoff and a
// concurrency limiter for bounding how many child processes run at once.
//
//	res, err := resilience.Retry(ctx, resilience.DefaultRetryConfig(), func(attempt int) (*process.Result, error) {
//		return adapter.Execute(ctx, cmd, opts)
//	})
package resilience
