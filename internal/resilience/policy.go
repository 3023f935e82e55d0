package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy bundles the per-call timeout, the retry budget and a circuit
// breaker into the one transport policy shared by supervisor->specialist
// and specialist->upstream calls.
type Policy struct {
	timeout  time.Duration
	maxTries uint
	base     time.Duration
	breaker  *Breaker
}

// NewPolicy creates a Policy. maxRetries is the number of retries after
// the first attempt; base is the initial backoff interval. breaker may
// be nil to disable circuit breaking (used in tests).
func NewPolicy(timeout time.Duration, maxRetries int, base time.Duration, breaker *Breaker) *Policy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Policy{
		timeout:  timeout,
		maxTries: uint(maxRetries) + 1,
		base:     base,
		breaker:  breaker,
	}
}

// Do runs fn under the policy: each attempt gets its own timeout derived
// from ctx, transient failures are retried with exponential backoff, and
// the whole call is gated by the breaker. Cancellation of ctx stops
// retrying immediately.
func (p *Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	call := func() error {
		_, err := backoff.Retry(ctx, func() (struct{}, error) {
			attemptCtx := ctx
			if p.timeout > 0 {
				var cancel context.CancelFunc
				attemptCtx, cancel = context.WithTimeout(ctx, p.timeout)
				defer cancel()
			}

			err := fn(attemptCtx)
			if err != nil && errors.Is(ctx.Err(), context.Canceled) {
				// The caller gave up; retrying would outlive the cycle.
				return struct{}{}, backoff.Permanent(err)
			}
			return struct{}{}, err
		}, backoff.WithBackOff(p.newBackOff()), backoff.WithMaxTries(p.maxTries))
		return err
	}

	if p.breaker == nil {
		return call()
	}
	return p.breaker.Execute(call)
}

func (p *Policy) newBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	if p.base > 0 {
		bo.InitialInterval = p.base
	}
	return bo
}
