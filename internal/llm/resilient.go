package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	llmRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mentoria_llm_requests_total",
			Help: "Total number of LLM calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	llmRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mentoria_llm_request_duration_seconds",
			Help:    "LLM call duration in seconds, retries included",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"operation"},
	)

	llmRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mentoria_llm_retries_total",
			Help: "Total number of LLM call retries",
		},
		[]string{"operation"},
	)
)

// Options bound each upstream call.
type Options struct {
	Timeout         time.Duration
	StreamTimeout   time.Duration
	MaxRetries      int
	InitialInterval time.Duration
}

// DefaultOptions returns a 60s call timeout, a 5m stream timeout and one retry.
func DefaultOptions() Options {
	return Options{
		Timeout:         60 * time.Second,
		StreamTimeout:   5 * time.Minute,
		MaxRetries:      1,
		InitialInterval: 300 * time.Millisecond,
	}
}

// Resilient decorates a Client with per-attempt timeouts, bounded retries and
// metrics. Every failure it returns wraps ErrUpstream.
type Resilient struct {
	next   Client
	opts   Options
	logger *slog.Logger
}

// NewResilient wraps next.
func NewResilient(next Client, opts Options, logger *slog.Logger) *Resilient {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resilient{next: next, opts: opts, logger: logger}
}

func (r *Resilient) policy(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.opts.InitialInterval
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(r.opts.MaxRetries, 0))), ctx)
}

func (r *Resilient) notify(op string) backoff.Notify {
	return func(err error, wait time.Duration) {
		llmRetriesTotal.WithLabelValues(op).Inc()
		r.logger.Warn("llm call failed, retrying", "operation", op, "error", err, "wait", wait)
	}
}

// Complete calls the wrapped client, retrying transient failures.
func (r *Resilient) Complete(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	var text string

	err := backoff.RetryNotify(func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()

		out, err := r.next.Complete(attemptCtx, req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		text = out
		return nil
	}, r.policy(ctx), r.notify("complete"))

	return text, r.finish("complete", start, err)
}

// Stream calls the wrapped client. A retry only happens while no fragment has
// reached onChunk, so callers never see duplicated output.
func (r *Resilient) Stream(ctx context.Context, req Request, onChunk ChunkFunc) (string, error) {
	start := time.Now()
	var (
		text      string
		delivered bool
	)

	err := backoff.RetryNotify(func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, r.opts.StreamTimeout)
		defer cancel()

		out, err := r.next.Stream(attemptCtx, req, func(chunk string) error {
			delivered = true
			return onChunk(chunk)
		})
		if err != nil {
			if ctx.Err() != nil || delivered {
				return backoff.Permanent(err)
			}
			return err
		}
		text = out
		return nil
	}, r.policy(ctx), r.notify("stream"))

	return text, r.finish("stream", start, err)
}

func (r *Resilient) finish(op string, start time.Time, err error) error {
	llmRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		llmRequestsTotal.WithLabelValues(op, "error").Inc()
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	llmRequestsTotal.WithLabelValues(op, "ok").Inc()
	return nil
}
