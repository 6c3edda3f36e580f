package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/cenkalti/backoff/v4"
	"github.com/petasbytes/graft/internal/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryable(t *testing.T) {
	ctx := context.Background()
	transport := func(err error) error { return &runner.TransportError{Op: "open", Err: err} }

	assert.True(t, retryable(ctx, transport(errors.New("connection reset"))))
	assert.True(t, retryable(ctx, transport(&anthropic.Error{StatusCode: 529})))
	assert.True(t, retryable(ctx, transport(&anthropic.Error{StatusCode: 429})))
	assert.False(t, retryable(ctx, transport(&anthropic.Error{StatusCode: 400})))
	assert.False(t, retryable(ctx, runner.ErrBusy))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.False(t, retryable(cancelled, transport(errors.New("connection reset"))))
}

func TestSubmitWithRetry_GivesUp(t *testing.T) {
	var out bytes.Buffer
	ft := &fakeTransport{script: []scripted{openFailure("a"), openFailure("b"), openFailure("c"), textReply("late")}}
	r := newTestSession(t, testApp(&out), ft).runner

	var waits int
	_, err := submitWithRetry(context.Background(), r, "hello", 2, &backoff.ZeroBackOff{}, func(error, time.Duration) { waits++ })

	require.Error(t, err)
	var te *runner.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "transport open: c", err.Error())
	assert.Len(t, ft.requests, 3)
	assert.Equal(t, 2, waits)
	assert.Equal(t, 0, r.Conversation().Len())
}

func TestSubmitWithRetry_NoRetries(t *testing.T) {
	var out bytes.Buffer
	ft := &fakeTransport{script: []scripted{openFailure("down"), textReply("never")}}
	r := newTestSession(t, testApp(&out), ft).runner

	_, err := submitWithRetry(context.Background(), r, "hello", 0, &backoff.ZeroBackOff{}, nil)

	require.Error(t, err)
	assert.Len(t, ft.requests, 1)
}

func TestSubmitWithRetry_Success(t *testing.T) {
	var out bytes.Buffer
	ft := &fakeTransport{script: []scripted{textReply("fine")}}
	r := newTestSession(t, testApp(&out), ft).runner

	usage, err := submitWithRetry(context.Background(), r, "hello", 3, &backoff.ZeroBackOff{}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, usage.Requests)
	assert.EqualValues(t, 7, usage.OutputTokens)
}
