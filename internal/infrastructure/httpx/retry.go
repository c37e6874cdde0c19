package httpx

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// RetryPolicy bounds how often a transient failure is re-issued. It holds
// no state; build one per call or share it freely.
type RetryPolicy struct {
	// MaxAttempts is the total number of calls, including the first.
	// Values below 1 mean a single attempt.
	MaxAttempts int
	BaseDelay   time.Duration
	// Multiplier scales the delay after every failed attempt. Zero means 2.
	Multiplier int
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, Multiplier: 2}
}

// Delay returns the pause before the retry that follows failed attempt n
// (zero-based): BaseDelay * Multiplier^n.
func (p RetryPolicy) Delay(n int) time.Duration {
	m := p.Multiplier
	if m <= 0 {
		m = 2
	}
	d := p.BaseDelay
	for i := 0; i < n; i++ {
		d *= time.Duration(m)
	}
	return d
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Do runs Execute under policy p. Network, timeout and request failures
// are retried after Delay(n); HTTP and decode failures return at once.
// When every attempt fails the result is a KindRetryExhausted error
// wrapping the last failure. A single-attempt policy returns the failure
// unwrapped.
func (x *Executor) Do(ctx context.Context, p RetryPolicy, req Request, out any) error {
	attempts := p.attempts()
	if attempts == 1 {
		return x.Execute(ctx, req, out)
	}
	var last error
	for n := 0; n < attempts; n++ {
		err := x.Execute(ctx, req, out)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !Retryable(KindOf(err)) {
			return err
		}
		last = err
		if n == attempts-1 {
			break
		}

		delay := p.Delay(n)
		x.log.WithFields(logrus.Fields{
			"url":     req.label(),
			"attempt": n + 1,
			"of":      attempts,
			"backoff": delay,
		}).WithError(err).Warn("transient request failure, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-x.clock.After(delay):
		}
	}
	return &Error{
		Kind:     KindRetryExhausted,
		Method:   req.Method,
		URL:      req.label(),
		Attempts: attempts,
		Err:      last,
	}
}
