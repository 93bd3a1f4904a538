package model

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Transient failures are retried a small fixed number of times with
// exponential backoff. The retry budget for the verification loop lives in
// the retry controller; this bound only covers flaky external calls.
const (
	defaultCallAttempts = 3
	defaultInitialWait  = 500 * time.Millisecond
)

type retryClient struct {
	inner    Client
	attempts int
	initial  time.Duration
}

// WithRetry wraps a client so that transient call failures are retried up to
// three times with exponential backoff. Permanent and unsupported failures
// propagate immediately.
func WithRetry(c Client) Client {
	return &retryClient{inner: c, attempts: defaultCallAttempts, initial: defaultInitialWait}
}

func (r *retryClient) Name() string { return r.inner.Name() }

func (r *retryClient) Invoke(ctx context.Context, req Request) (*Response, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.initial
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(r.attempts-1)), ctx)

	var resp *Response
	op := func() error {
		var err error
		resp, err = r.inner.Invoke(ctx, req)
		if err == nil {
			return nil
		}
		if IsTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return resp, nil
}
