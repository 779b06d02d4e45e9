package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rhuss/servicedesk/pkg/api"
	"github.com/rhuss/servicedesk/pkg/capability"
)

type statusErr struct{ retry bool }

func (e statusErr) Error() string   { return "backend said no" }
func (e statusErr) Retryable() bool { return e.retry }

type countingOracle struct {
	calls    int
	failures int
	err      error
}

func (c *countingOracle) Name() string { return "counting" }

func (c *countingOracle) Infer(context.Context, []api.Turn, []capability.Declaration) (Response, error) {
	c.calls++
	if c.calls <= c.failures {
		return nil, c.err
	}
	return Final{Text: "ok"}, nil
}

var fastPolicy = RetryPolicy{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

func TestWithRetry_RecoversFromTransientErrors(t *testing.T) {
	inner := &countingOracle{failures: 2, err: errors.New("connection reset")}
	o := WithRetry(inner, fastPolicy)

	resp, err := o.Infer(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Infer() error: %v", err)
	}
	if f, ok := resp.(Final); !ok || f.Text != "ok" {
		t.Errorf("resp = %#v", resp)
	}
	if inner.calls != 3 {
		t.Errorf("calls = %d, want 3", inner.calls)
	}
}

func TestWithRetry_ExhaustedBecomesUnavailable(t *testing.T) {
	cause := errors.New("connection refused")
	inner := &countingOracle{failures: 100, err: cause}
	o := WithRetry(inner, fastPolicy)

	_, err := o.Infer(context.Background(), nil, nil)
	if !errors.Is(err, api.ErrOracleUnavailable) {
		t.Fatalf("error = %v, want ErrOracleUnavailable", err)
	}
	if !errors.Is(err, cause) {
		t.Error("cause lost")
	}
	if inner.calls != 4 {
		t.Errorf("calls = %d, want 1 + 3 retries", inner.calls)
	}
}

func TestWithRetry_NonRetryableStopsImmediately(t *testing.T) {
	inner := &countingOracle{failures: 100, err: statusErr{retry: false}}
	o := WithRetry(inner, fastPolicy)

	_, err := o.Infer(context.Background(), nil, nil)
	if !errors.Is(err, api.ErrOracleUnavailable) {
		t.Fatalf("error = %v, want ErrOracleUnavailable", err)
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, want 1", inner.calls)
	}
}

func TestWithRetry_RetryableStatusIsRetried(t *testing.T) {
	inner := &countingOracle{failures: 1, err: statusErr{retry: true}}
	if _, err := WithRetry(inner, fastPolicy).Infer(context.Background(), nil, nil); err != nil {
		t.Fatalf("Infer() error: %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("calls = %d, want 2", inner.calls)
	}
}

func TestWithRetry_ContextErrorReturnedAsIs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	o := WithRetry(Func{ID: "blocking", Fn: func(ctx context.Context, _ []api.Turn, _ []capability.Declaration) (Response, error) {
		cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	}}, fastPolicy)

	_, err := o.Infer(ctx, nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if errors.Is(err, api.ErrOracleUnavailable) {
		t.Error("cancellation must not be reported as unavailable")
	}
}

func TestWithRetry_DisabledRetries(t *testing.T) {
	inner := &countingOracle{failures: 1, err: errors.New("flaky")}
	_, err := WithRetry(inner, RetryPolicy{MaxRetries: -1}).Infer(context.Background(), nil, nil)
	if !errors.Is(err, api.ErrOracleUnavailable) {
		t.Fatalf("error = %v, want ErrOracleUnavailable", err)
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, want 1", inner.calls)
	}
}

func TestResponseVariants(t *testing.T) {
	var responses = []Response{Final{Text: "hi"}, Defer{Requests: []api.CapabilityRequest{{ID: "1", Name: "get-policy"}}}}
	for _, r := range responses {
		switch v := r.(type) {
		case Final:
			if v.Text != "hi" {
				t.Errorf("Final.Text = %q", v.Text)
			}
		case Defer:
			if len(v.Requests) != 1 {
				t.Errorf("Defer.Requests = %v", v.Requests)
			}
		default:
			t.Errorf("unexpected variant %T", r)
		}
	}
}
