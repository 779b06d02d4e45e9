package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rhuss/servicedesk/pkg/api"
	"github.com/rhuss/servicedesk/pkg/capability"
	"github.com/rhuss/servicedesk/pkg/debug"
	"github.com/rhuss/servicedesk/pkg/observability"
	"github.com/rhuss/servicedesk/pkg/oracle"
	"github.com/rhuss/servicedesk/pkg/storage"
)

// run tracks one pass of the loop over a transcript.
type run struct {
	state      State
	iterations int
	log        *slog.Logger
}

func (r *run) advance(to State) error {
	if err := ValidateTransition(r.state, to); err != nil {
		return err
	}
	r.log.Debug("state transition", "from", r.state, "to", to)
	r.state = to
	return nil
}

// Run drives tr until the oracle answers and returns a copy of the final
// assistant turn. Every turn appended along the way stays in tr.
//
// Nothing is appended for a deferral that names an unregistered
// capability, and no result turns are appended for a batch interrupted by
// cancellation.
func (e *Engine) Run(ctx context.Context, tr *api.Transcript) (turn *api.Turn, err error) {
	last, ok := tr.Last()
	if !ok || last.Role != api.RoleUser {
		return nil, ErrNoUserTurn
	}

	r := &run{
		state: AwaitingOracle,
		log:   slog.With("session_id", storage.SessionFrom(ctx), "oracle", e.oracle.Name()),
	}

	observability.ActiveRuns.Inc()
	defer func() {
		observability.ActiveRuns.Dec()
		observability.RunIterations.Observe(float64(r.iterations))
		outcome := outcomeOf(err)
		observability.RunsTotal.WithLabelValues(outcome).Inc()
		r.log.Info("run finished", "outcome", outcome, "iterations", r.iterations, "turns", tr.Len())
	}()

	decls := e.caps.Declarations()
	maxIter := e.cfg.maxIterations()

	for r.iterations < maxIter {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		r.iterations++
		resp, err := e.infer(ctx, tr.Turns(), decls)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}

		switch v := resp.(type) {
		case oracle.Final:
			return e.finish(r, tr, v.Text)

		case oracle.Defer:
			if len(v.Requests) == 0 {
				return e.finish(r, tr, v.Text)
			}
			for _, req := range v.Requests {
				if !e.caps.Has(req.Name) {
					r.log.Warn("oracle requested unknown capability", "capability", req.Name)
					return nil, &api.UnknownCapabilityError{Name: req.Name}
				}
			}
			if err := r.advance(DispatchingCapabilities); err != nil {
				return nil, err
			}
			if err := tr.Append(api.NewDeferralTurn(v.Text, v.Requests)); err != nil {
				return nil, fmt.Errorf("appending deferral: %w", err)
			}

			results, err := e.dispatch(ctx, r, v.Requests)
			if err != nil {
				return nil, err
			}
			for _, res := range results {
				if err := tr.Append(res); err != nil {
					return nil, fmt.Errorf("appending result: %w", err)
				}
			}
			if err := r.advance(AwaitingOracle); err != nil {
				return nil, err
			}

		default:
			return nil, fmt.Errorf("oracle %s returned unexpected response %T", e.oracle.Name(), resp)
		}
	}

	r.log.Warn("iteration budget exhausted", "max_iterations", maxIter)
	return nil, fmt.Errorf("%w: %d oracle calls without a final answer", api.ErrBudgetExceeded, maxIter)
}

func (e *Engine) finish(r *run, tr *api.Transcript, text string) (*api.Turn, error) {
	if err := r.advance(Terminated); err != nil {
		return nil, err
	}
	final := api.NewAssistantTurn(text)
	if err := tr.Append(final); err != nil {
		return nil, fmt.Errorf("appending final turn: %w", err)
	}
	return &final, nil
}

func (e *Engine) infer(ctx context.Context, turns []api.Turn, decls []capability.Declaration) (oracle.Response, error) {
	name := e.oracle.Name()
	start := time.Now()
	resp, err := e.oracle.Infer(ctx, turns, decls)
	observability.OracleLatency.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err != nil {
		observability.OracleRequestsTotal.WithLabelValues(name, "error").Inc()
		return nil, err
	}
	observability.OracleRequestsTotal.WithLabelValues(name, "success").Inc()
	debug.Log("engine", "oracle responded", "oracle", name, "type", fmt.Sprintf("%T", resp), "duration", time.Since(start))
	return resp, nil
}

func outcomeOf(err error) string {
	var unknown *api.UnknownCapabilityError
	switch {
	case err == nil:
		return "final"
	case errors.Is(err, api.ErrBudgetExceeded):
		return "budget_exceeded"
	case errors.As(err, &unknown):
		return "unknown_capability"
	case errors.Is(err, api.ErrOracleUnavailable):
		return "oracle_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}
