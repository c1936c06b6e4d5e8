package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() *RetryPolicy {
	return &RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), fastPolicy(), func() error {
		calls++
		if calls < 3 {
			return errors.New("connection reset by peer")
		}
		return nil
	}, IsTransientError)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := errors.New("AccessDenied: not authorized")
	err := RetryWithBackoff(context.Background(), fastPolicy(), func() error {
		calls++
		return permanent
	}, IsTransientError)
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetryExhaustion(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), fastPolicy(), func() error {
		calls++
		return errors.New("throttled")
	}, IsTransientError)
	assert.ErrorContains(t, err, "max retries")
	assert.Equal(t, 4, calls)
}

func TestRetryCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, fastPolicy(), func() error {
		return errors.New("timeout")
	}, IsTransientError)
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeAPIError struct{ code string }

func (e *fakeAPIError) Error() string                 { return e.code }
func (e *fakeAPIError) ErrorCode() string             { return e.code }
func (e *fakeAPIError) ErrorMessage() string          { return e.code }
func (e *fakeAPIError) ErrorFault() smithy.ErrorFault { return smithy.FaultServer }

func TestIsTransientError(t *testing.T) {
	assert.False(t, IsTransientError(nil))
	assert.True(t, IsTransientError(errors.New("RequestError: Throttling")))
	assert.True(t, IsTransientError(errors.New("dial tcp: i/o timeout")))
	assert.False(t, IsTransientError(errors.New("NoSuchBucket")))

	assert.True(t, IsTransientError(&fakeAPIError{code: "ThrottlingException"}))
	assert.False(t, IsTransientError(&fakeAPIError{code: "AccessDenied"}))
}
