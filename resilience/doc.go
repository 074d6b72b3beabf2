// Package resilience retries operations that fail transiently, such as
// the first connection to a data store that is still starting up.
//
//	err := resilience.RetryFunc(ctx, resilience.RetryConfig{
//	    MaxAttempts:    5,
//	    InitialBackoff: time.Second,
//	    Strategy:       resilience.Linear,
//	}, func() error {
//	    return db.PingContext(ctx)
//	})
package resilience
