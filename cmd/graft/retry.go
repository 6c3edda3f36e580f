package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/cenkalti/backoff/v4"
	"github.com/petasbytes/graft/internal/runner"
)

// submitWithRetry resubmits text after a transport failure, up to retries
// more times. Each failed attempt has already been rolled back by the
// runner, so resending the same text is safe.
func submitWithRetry(ctx context.Context, r *runner.Runner, text string, retries int, b backoff.BackOff, notify backoff.Notify) (runner.TurnUsage, error) {
	var usage runner.TurnUsage
	op := func() error {
		u, err := r.Submit(ctx, text)
		usage = u
		if err == nil {
			return nil
		}
		if !retryable(ctx, err) {
			return backoff.Permanent(err)
		}
		return err
	}
	var err error
	if retries <= 0 {
		err = op()
	} else {
		err = backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx), notify)
	}
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	return usage, err
}

// retryable accepts transport failures other than client errors. Rate
// limits and overload responses are retried.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var te *runner.TransportError
	if !errors.As(err, &te) {
		return false
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		code := apiErr.StatusCode
		return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
	}
	return true
}

// defaultBackOff gives up after two minutes.
func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 20 * time.Second
	b.MaxElapsedTime = 2 * time.Minute
	return b
}
