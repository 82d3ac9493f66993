package embedding

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/vecstore/internal/domain"
	"github.com/kailas-cloud/vecstore/internal/metrics"
)

// RetryPolicy bounds how transient provider errors are retried.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy makes four attempts, backing off from 500ms up to 10s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 4, BaseDelay: 500 * time.Millisecond, MaxDelay: 10 * time.Second}
}

// delay returns the backoff before attempt n+1: exponential with full jitter.
func (p RetryPolicy) delay(n int) time.Duration {
	d := p.BaseDelay << n
	if d <= 0 || d > p.MaxDelay {
		d = p.MaxDelay
	}
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(d)) + 1)
}

// ResilientEmbedder paces provider calls with a token bucket and retries
// rate-limit and availability errors. Other errors return immediately.
type ResilientEmbedder struct {
	inner    domain.Embedder
	provider string
	limiter  *rate.Limiter
	policy   RetryPolicy
	sleep    func(ctx context.Context, d time.Duration) error
	logger   *zap.Logger
}

// NewResilientEmbedder wraps inner. rps <= 0 disables pacing. Non-positive
// delays in policy fall back to DefaultRetryPolicy.
func NewResilientEmbedder(
	inner domain.Embedder, provider string, rps float64, policy RetryPolicy, logger *zap.Logger,
) *ResilientEmbedder {
	limit := rate.Inf
	burst := 0
	if rps > 0 {
		limit = rate.Limit(rps)
		burst = max(1, int(rps))
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	def := DefaultRetryPolicy()
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = def.BaseDelay
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = max(def.MaxDelay, policy.BaseDelay)
	}
	return &ResilientEmbedder{
		inner:    inner,
		provider: provider,
		limiter:  rate.NewLimiter(limit, burst),
		policy:   policy,
		sleep:    sleepCtx,
		logger:   logger,
	}
}

// Embed embeds one text with pacing and retries.
func (r *ResilientEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	var out domain.EmbeddingResult
	err := r.do(ctx, func() error {
		res, err := r.inner.Embed(ctx, text)
		out = res
		return err //nolint:wrapcheck // wrapped by do
	})
	return out, err
}

// BatchEmbed embeds texts in one provider call when the inner embedder batches.
func (r *ResilientEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	var out domain.BatchEmbeddingResult
	err := r.do(ctx, func() error {
		res, err := domain.EmbedAll(ctx, r.inner, texts)
		out = res
		return err //nolint:wrapcheck // wrapped by do
	})
	return out, err
}

// HealthCheck forwards to the inner embedder without pacing.
func (r *ResilientEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := r.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}

func (r *ResilientEmbedder) do(ctx context.Context, call func() error) error {
	var err error
	for attempt := range r.policy.MaxAttempts {
		if waitErr := r.limiter.Wait(ctx); waitErr != nil {
			return fmt.Errorf("rate limiter: %w", waitErr)
		}
		err = call()
		if err == nil || !domain.IsRetryable(err) || attempt == r.policy.MaxAttempts-1 {
			break
		}

		d := r.policy.delay(attempt)
		metrics.EmbeddingRetriesTotal.WithLabelValues(r.provider).Inc()
		r.logger.Warn("Retrying embedding request",
			zap.String("provider", r.provider),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", d),
			zap.Error(err),
		)
		if sleepErr := r.sleep(ctx, d); sleepErr != nil {
			return fmt.Errorf("retry wait: %w", sleepErr)
		}
	}
	if err != nil {
		return fmt.Errorf("%s embed: %w", r.provider, err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck // caller wraps
	case <-t.C:
		return nil
	}
}
