package engine

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/rhuss/servicedesk/pkg/api"
	"github.com/rhuss/servicedesk/pkg/observability"
)

// dispatch runs one batch of requests and returns one result turn per
// request, indexed like reqs. Capability failures become error results.
// If ctx is cancelled while the batch runs, no results are returned.
func (e *Engine) dispatch(ctx context.Context, r *run, reqs []api.CapabilityRequest) ([]api.Turn, error) {
	observability.DispatchBatchSize.Observe(float64(len(reqs)))
	r.log.Debug("dispatching capabilities", "count", len(reqs), "parallel", e.cfg.ParallelDispatch)

	results := make([]api.Turn, len(reqs))
	errs := make([]error, len(reqs))

	var g errgroup.Group
	if !e.cfg.ParallelDispatch {
		g.SetLimit(1)
	}
	for i := range reqs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i], errs[i] = e.invoke(ctx, r.log, reqs[i])
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		r.log.Info("dispatch cancelled", "count", len(reqs))
		return nil, err
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return results, nil
}

// invoke runs one request under the capability timeout. Only an
// unregistered name is returned as an error; every other failure is
// folded into an error result turn.
func (e *Engine) invoke(ctx context.Context, log *slog.Logger, req api.CapabilityRequest) (api.Turn, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.capabilityTimeout())
	defer cancel()

	out, err := e.caps.Dispatch(callCtx, req)
	if err == nil {
		return api.NewResultTurn(req, out, false), nil
	}

	var unknown *api.UnknownCapabilityError
	if errors.As(err, &unknown) {
		return api.Turn{}, err
	}

	log.Warn("capability failed",
		"capability", req.Name,
		"request_id", req.ID,
		"error", err,
	)
	return api.NewResultTurn(req, err.Error(), true), nil
}
