package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/rhuss/servicedesk/pkg/api"
	"github.com/rhuss/servicedesk/pkg/capability"
	"github.com/rhuss/servicedesk/pkg/observability"
)

// Retryable is implemented by adapter errors that know whether repeating
// the call can succeed.
type Retryable interface {
	Retryable() bool
}

// RetryPolicy configures WithRetry.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt (default 3).
	MaxRetries int
	// InitialInterval is the first backoff delay (default 500ms).
	InitialInterval time.Duration
	// MaxInterval caps a single backoff delay (default 8s).
	MaxInterval time.Duration
}

func (p *RetryPolicy) defaults() {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	} else if p.MaxRetries == 0 {
		p.MaxRetries = 3
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = 500 * time.Millisecond
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = 8 * time.Second
	}
}

type retrying struct {
	inner  Oracle
	policy RetryPolicy
}

// WithRetry wraps o with exponential backoff. A negative MaxRetries
// disables retrying but keeps the error mapping.
//
// Context errors are returned unchanged. Every other failure, once
// retries are exhausted or the error reports itself as not retryable,
// wraps api.ErrOracleUnavailable.
func WithRetry(o Oracle, p RetryPolicy) Oracle {
	p.defaults()
	return &retrying{inner: o, policy: p}
}

func (r *retrying) Name() string { return r.inner.Name() }

func (r *retrying) Infer(ctx context.Context, turns []api.Turn, decls []capability.Declaration) (Response, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.policy.InitialInterval
	eb.MaxInterval = r.policy.MaxInterval
	eb.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(r.policy.MaxRetries)), ctx)

	attempt := 0
	op := func() (Response, error) {
		attempt++
		resp, err := r.inner.Infer(ctx, turns, decls)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		var re Retryable
		if errors.As(err, &re) && !re.Retryable() {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	notify := func(err error, wait time.Duration) {
		observability.OracleRetriesTotal.WithLabelValues(r.inner.Name()).Inc()
		slog.Warn("oracle call failed, retrying",
			"oracle", r.inner.Name(),
			"attempt", attempt,
			"wait", wait,
			"error", err,
		)
	}

	resp, err := backoff.RetryNotifyWithData(op, b, notify)
	if err == nil {
		return resp, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if errors.Is(err, api.ErrOracleUnavailable) {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %s after %d attempt(s): %w", api.ErrOracleUnavailable, r.inner.Name(), attempt, err)
}
