package runner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360/docstreams/conditional"
	"github.com/c360/docstreams/errors"
	"github.com/c360/docstreams/event"
	"github.com/c360/docstreams/middleware"
	"github.com/c360/docstreams/transport"
)

// Handler is the domain logic of a middleware instance. It receives a
// private clone of the inbound event and returns the event to forward
// downstream. Returning a nil event with a nil error terminates the
// chain for this branch without forwarding anything.
type Handler interface {
	Handle(ctx context.Context, evt *event.CloudEvent) (*event.CloudEvent, error)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt *event.CloudEvent) (*event.CloudEvent, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, evt *event.CloudEvent) (*event.CloudEvent, error) {
	return f(ctx, evt)
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics attaches a metric set shared across runners.
func WithMetrics(metrics *Metrics) Option {
	return func(r *Runner) {
		r.metrics = metrics
	}
}

// Runner binds one middleware node to the transport. It subscribes to
// the node's own topic, so producers forward by publishing to the
// consumer node's name.
type Runner struct {
	node      *middleware.Node
	handler   Handler
	transport transport.Transport
	logger    *slog.Logger
	metrics   *Metrics

	mu      sync.Mutex
	started bool
	sub     transport.Subscription
}

// New creates a runner for a node. The handler is the node's domain
// logic; everything around it (parsing, validation, routing, metrics)
// is the runner's job.
func New(node *middleware.Node, handler Handler, tr transport.Transport, opts ...Option) (*Runner, error) {
	if node == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Runner", "New", "node required")
	}
	if handler == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Runner", "New", "handler required")
	}
	if tr == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Runner", "New", "transport required")
	}

	r := &Runner{
		node:      node,
		handler:   handler,
		transport: tr,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("middleware", r.node.Name())
	return r, nil
}

// Name returns the hosted middleware's name.
func (r *Runner) Name() string {
	return r.node.Name()
}

// Start subscribes the runner to its node's topic. Inbound delivery is
// filtered by the middleware's default conditional, so events a source
// could never accept are dropped at the transport.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Runner", "Start", r.Name())
	}
	r.setStatus(StatusStarting)

	policy, err := middleware.DefaultConditional(r.node.Middleware()).Policy()
	if err != nil {
		r.setStatus(StatusFailed)
		return errors.Wrap(err, "Runner", "Start", "compile input policy")
	}

	sub, err := r.transport.Subscribe(r.Name(), policy, r.handle)
	if err != nil {
		r.setStatus(StatusFailed)
		return errors.Wrap(err, "Runner", "Start", "subscribe "+r.Name())
	}

	r.sub = sub
	r.started = true
	r.setStatus(StatusRunning)
	r.logger.Info("runner started")
	return nil
}

// Stop unsubscribes from the transport. In-flight handler invocations
// run to completion; timeout bounds how long Stop itself may take.
func (r *Runner) Stop(timeout time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return errors.WrapInvalid(errors.ErrNotStarted, "Runner", "Stop", r.Name())
	}
	r.setStatus(StatusStopping)

	done := make(chan error, 1)
	go func() { done <- r.sub.Unsubscribe() }()
	select {
	case err := <-done:
		if err != nil {
			r.setStatus(StatusFailed)
			return errors.Wrap(err, "Runner", "Stop", "unsubscribe")
		}
	case <-time.After(timeout):
		r.setStatus(StatusFailed)
		return errors.WrapTransient(errors.ErrDeliveryError, "Runner", "Stop", "unsubscribe timed out")
	}

	r.sub = nil
	r.started = false
	r.setStatus(StatusStopped)
	r.logger.Info("runner stopped")
	return nil
}

// Trigger injects an event directly, bypassing the transport. Source
// middlewares with no upstream producers use this as their entry point.
func (r *Runner) Trigger(ctx context.Context, evt *event.CloudEvent) error {
	if evt == nil {
		return errors.WrapInvalid(errors.ErrInvalidEvent, "Runner", "Trigger", "event required")
	}
	raw, err := evt.ToJSON()
	if err != nil {
		return errors.Wrap(err, "Runner", "Trigger", "encode event")
	}
	return r.handle(ctx, raw, map[string]string{"producer": "trigger"})
}

// handle is the transport delivery callback: parse, validate, invoke
// the handler on a clone, then forward to every matching consumer. A
// returned error fails the delivery so the transport can redeliver.
func (r *Runner) handle(ctx context.Context, data []byte, attrs map[string]string) error {
	r.countReceived()
	start := time.Now()

	evt, err := event.FromJSON(data)
	if err != nil {
		r.countError(err)
		r.logger.Warn("rejecting malformed event", "error", err)
		return err
	}

	logger := r.logger.With("event_id", evt.ID, "chain_id", evt.Data.ChainID)
	logger.Debug("event received", "producer", attrs["producer"], "call_depth", len(evt.Data.CallStack))

	clone, err := evt.Clone()
	if err != nil {
		r.countError(err)
		return err
	}

	out, err := r.handler.Handle(ctx, clone)
	if err != nil {
		wrapped := errors.Wrap(err, "Runner", "handle", r.Name()+" invocation")
		r.countError(wrapped)
		r.countProcessed("error")
		logger.Error("middleware invocation failed", "error", err,
			"class", errors.Classify(wrapped).String())
		return wrapped
	}
	if out == nil {
		r.countProcessed("terminated")
		r.observeDuration(start)
		logger.Debug("chain terminated")
		return nil
	}

	if err := r.checkImmutables(evt, out); err != nil {
		r.countError(err)
		r.countProcessed("error")
		return err
	}

	out.PushCall(r.Name())
	if err := r.forward(ctx, out, logger); err != nil {
		r.countError(err)
		r.countProcessed("error")
		return err
	}

	r.countProcessed("ok")
	r.observeDuration(start)
	return nil
}

// checkImmutables rejects handler output that rewrote fields no
// middleware may touch: the chain id and the original source document.
func (r *Runner) checkImmutables(in, out *event.CloudEvent) error {
	if out.Data.ChainID != in.Data.ChainID {
		return errors.WrapInvalid(errors.ErrInvalidEvent, "Runner", "handle",
			r.Name()+" mutated chainId")
	}
	if out.Data.Source != in.Data.Source {
		return errors.WrapInvalid(errors.ErrInvalidEvent, "Runner", "handle",
			r.Name()+" mutated source document")
	}
	return nil
}

// forward publishes the event to every consumer edge whose conditional
// it satisfies. Publishes run concurrently; any failure fails the whole
// invocation so the transport treats it as undelivered.
func (r *Runner) forward(ctx context.Context, out *event.CloudEvent, logger *slog.Logger) error {
	edges := r.node.Consumers()
	if len(edges) == 0 {
		return nil
	}

	projection, err := out.Project()
	if err != nil {
		return errors.Wrap(err, "Runner", "forward", "project event")
	}
	raw, err := out.ToJSON()
	if err != nil {
		return errors.Wrap(err, "Runner", "forward", "encode event")
	}
	attrs := map[string]string{
		"producer":   r.Name(),
		"chain-id":   out.Data.ChainID,
		"event-type": string(out.Type),
	}

	group, groupCtx := errgroup.WithContext(ctx)
	matched := 0
	for _, edge := range edges {
		ok, err := edge.Conditional.Predicate(projection)
		if err != nil {
			return errors.Wrap(err, "Runner", "forward", "evaluate edge to "+edge.Consumer.Name())
		}
		if !ok {
			continue
		}
		matched++

		consumer := edge.Consumer.Name()
		group.Go(func() error {
			if err := r.transport.Publish(groupCtx, consumer, raw, attrs); err != nil {
				return errors.Wrap(err, "Runner", "forward", "publish to "+consumer)
			}
			r.countPublished(consumer)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	logger.Debug("event forwarded", "edges", len(edges), "matched", matched)
	return nil
}

func (r *Runner) setStatus(status float64) {
	if r.metrics != nil {
		r.metrics.ServiceStatus.WithLabelValues(r.Name()).Set(status)
	}
}

func (r *Runner) countReceived() {
	if r.metrics != nil {
		r.metrics.EventsReceived.WithLabelValues(r.Name()).Inc()
	}
}

func (r *Runner) countProcessed(status string) {
	if r.metrics != nil {
		r.metrics.EventsProcessed.WithLabelValues(r.Name(), status).Inc()
	}
}

func (r *Runner) countPublished(consumer string) {
	if r.metrics != nil {
		r.metrics.EventsPublished.WithLabelValues(r.Name(), consumer).Inc()
	}
}

func (r *Runner) countError(err error) {
	if r.metrics != nil {
		r.metrics.ErrorsTotal.WithLabelValues(r.Name(), errors.Classify(err).String()).Inc()
	}
}

func (r *Runner) observeDuration(start time.Time) {
	if r.metrics != nil {
		r.metrics.ProcessingDuration.WithLabelValues(r.Name()).Observe(time.Since(start).Seconds())
	}
}

// Identity returns a handler that forwards its input unchanged. Useful
// for routing-only middlewares whose behavior lives entirely in their
// edge conditionals.
func Identity() Handler {
	return HandlerFunc(func(_ context.Context, evt *event.CloudEvent) (*event.CloudEvent, error) {
		return evt, nil
	})
}

// SetMarker returns a handler wrapping inner that records whether the
// produced event satisfies cond, for consumption by match and mismatch
// continuations.
func SetMarker(inner Handler, cond *conditional.Conditional) Handler {
	return HandlerFunc(func(ctx context.Context, evt *event.CloudEvent) (*event.CloudEvent, error) {
		out, err := inner.Handle(ctx, evt)
		if err != nil || out == nil {
			return out, err
		}
		projection, err := out.Project()
		if err != nil {
			return nil, err
		}
		ok, err := cond.Predicate(projection)
		if err != nil {
			return nil, err
		}
		if out.Data.Metadata.Custom == nil {
			out.Data.Metadata.Custom = make(map[string]string)
		}
		if ok {
			out.Data.Metadata.Custom["conditional"] = "true"
		} else {
			out.Data.Metadata.Custom["conditional"] = "false"
		}
		return out, nil
	})
}
