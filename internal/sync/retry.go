package sync

import (
	"context"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"workshop-client/internal/api"
)

// RetryPolicy is the backoff schedule for transient submission failures:
// delay = min(base * 2^attempt, cap) + jitter in [0, jitterMax).
type RetryPolicy struct {
	Base      time.Duration
	Cap       time.Duration
	JitterMax time.Duration
	// SubmissionAttempts bounds explicit annotation/finding submissions.
	SubmissionAttempts int
	// BackgroundAttempts bounds saves triggered by navigation.
	BackgroundAttempts int
}

// DefaultRetryPolicy matches the backend's contention characteristics:
// 1s base doubling to a 16s cap, up to 1s of jitter, 5 tries for
// submissions and 3 for background saves.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Base:               time.Second,
		Cap:                16 * time.Second,
		JitterMax:          time.Second,
		SubmissionAttempts: 5,
		BackgroundAttempts: 3,
	}
}

// expBackOff implements backoff.BackOff with the doubling-plus-jitter
// schedule above.
type expBackOff struct {
	policy  RetryPolicy
	attempt int
	rnd     *rand.Rand
}

func newExpBackOff(policy RetryPolicy) *expBackOff {
	return &expBackOff{
		policy: policy,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *expBackOff) NextBackOff() time.Duration {
	delay := b.policy.Base
	for i := 0; i < b.attempt && delay < b.policy.Cap; i++ {
		delay *= 2
	}
	if delay > b.policy.Cap {
		delay = b.policy.Cap
	}
	b.attempt++
	if b.policy.JitterMax > 0 {
		delay += time.Duration(b.rnd.Int63n(int64(b.policy.JitterMax)))
	}
	return delay
}

func (b *expBackOff) Reset() {
	b.attempt = 0
}

// run executes op up to attempts times, backing off between tries. Only
// server-classified transient failures (500, 503) are retried; everything
// else stops immediately.
func (p RetryPolicy) run(ctx context.Context, attempts int, logger *zap.Logger, op func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(newExpBackOff(p), uint64(attempts-1)), ctx)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if api.IsTransient(err) {
			logger.Warn("Transient backend error, will retry",
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}
		return backoff.Permanent(err)
	}, bo)
}
