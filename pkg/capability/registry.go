package capability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rhuss/servicedesk/pkg/api"
	"github.com/rhuss/servicedesk/pkg/debug"
)

var (
	capabilityExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "servicedesk_capability_executions_total",
			Help: "Total capability executions",
		},
		[]string{"capability", "status"},
	)

	capabilityDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "servicedesk_capability_duration_seconds",
			Help:    "Capability execution duration",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"capability"},
	)
)

func init() {
	prometheus.MustRegister(capabilityExecutions, capabilityDuration)
}

// ErrDuplicate is returned when a capability name is registered twice.
var ErrDuplicate = errors.New("capability already registered")

// CollectorProvider is implemented by capabilities that export their own
// Prometheus metrics.
type CollectorProvider interface {
	Collectors() []prometheus.Collector
}

type entry struct {
	cap    Capability
	decl   Declaration
	schema *jsonschema.Resolved
}

// Registry is the fixed set of capabilities available to the oracle.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]*entry
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Register adds a capability. Names must be unique.
func (r *Registry) Register(c Capability) error {
	decl := c.Declaration()
	if decl.Name == "" {
		return errors.New("register capability: empty name")
	}

	var resolved *jsonschema.Resolved
	if decl.Parameters != nil {
		rs, err := decl.Parameters.Resolve(nil)
		if err != nil {
			return fmt.Errorf("register capability %q: resolving schema: %w", decl.Name, err)
		}
		resolved = rs
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[decl.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicate, decl.Name)
	}
	r.entries[decl.Name] = &entry{cap: c, decl: decl, schema: resolved}
	r.order = append(r.order, decl.Name)

	if cp, ok := c.(CollectorProvider); ok {
		for _, col := range cp.Collectors() {
			if err := prometheus.Register(col); err != nil {
				slog.Debug("collector already registered", "capability", decl.Name, "error", err)
			}
		}
	}

	slog.Info("registered capability", "capability", decl.Name)
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(caps ...Capability) {
	for _, c := range caps {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
}

// Has reports whether a capability with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// Declarations returns the declarations of all capabilities in
// registration order.
func (r *Registry) Declarations() []Declaration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	decls := make([]Declaration, 0, len(r.order))
	for _, name := range r.order {
		decls = append(decls, r.entries[name].decl)
	}
	return decls
}

// Len returns the number of registered capabilities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Dispatch validates and runs a capability request.
//
// An unregistered name yields *api.UnknownCapabilityError. Invalid
// arguments, errors returned by the body and panics yield
// *api.CapabilityExecutionError.
func (r *Registry) Dispatch(ctx context.Context, req api.CapabilityRequest) (output string, err error) {
	r.mu.RLock()
	e, ok := r.entries[req.Name]
	r.mu.RUnlock()

	if !ok {
		return "", &api.UnknownCapabilityError{Name: req.Name}
	}

	args := make(map[string]any, len(req.Arguments))
	for k, v := range req.Arguments {
		args[k] = v
	}

	if err := e.validate(args); err != nil {
		capabilityExecutions.WithLabelValues(req.Name, "invalid").Inc()
		return "", &api.CapabilityExecutionError{Name: req.Name, Err: fmt.Errorf("invalid arguments: %w", err)}
	}

	debug.Log("capabilities", "dispatch", "capability", req.Name, "request_id", req.ID, "args", args)

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("capability panicked",
				"capability", req.Name,
				"request_id", req.ID,
				"panic", rec,
			)
			output = ""
			err = &api.CapabilityExecutionError{Name: req.Name, Err: fmt.Errorf("internal error: %v", rec)}
			capabilityExecutions.WithLabelValues(req.Name, "panic").Inc()
			capabilityDuration.WithLabelValues(req.Name).Observe(time.Since(start).Seconds())
		}
	}()

	output, err = e.cap.Invoke(ctx, args)
	capabilityDuration.WithLabelValues(req.Name).Observe(time.Since(start).Seconds())

	if err != nil {
		capabilityExecutions.WithLabelValues(req.Name, "error").Inc()
		var execErr *api.CapabilityExecutionError
		if errors.As(err, &execErr) {
			return "", err
		}
		return "", &api.CapabilityExecutionError{Name: req.Name, Err: err}
	}

	capabilityExecutions.WithLabelValues(req.Name, "success").Inc()
	return output, nil
}

func (e *entry) validate(args map[string]any) error {
	if e.schema == nil {
		return nil
	}
	if err := e.schema.ApplyDefaults(&args); err != nil {
		return err
	}
	return e.schema.Validate(args)
}

// Close releases resources held by capabilities that implement io.Closer.
// All closers run; their errors are joined.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, name := range r.order {
		if c, ok := r.entries[name].cap.(io.Closer); ok {
			if err := c.Close(); err != nil {
				slog.Warn("failed to close capability", "capability", name, "error", err)
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
			}
		}
	}
	return errors.Join(errs...)
}
