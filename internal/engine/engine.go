package engine

import (
	"context"
	"log/slog"
	"reflect"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/recordupdate/internal/result"
)

// tracerName is the instrumentation scope of action spans.
const tracerName = "github.com/roach88/recordupdate/internal/engine"

// Engine executes action trees.
//
// Thread-safety model:
//   - An Engine holds no per-request state and may be shared
//   - Execute walks one tree on the calling goroutine
//
// INVARIANTS:
//   - Children are read only after their parent's Perform returned
//   - A stopping result is returned unchanged; siblings are not attempted
//   - Every executed action yields exactly one Node
type Engine struct {
	logger     *slog.Logger
	clock      Clock
	metrics    *Metrics
	tracer     trace.Tracer
	maxActions int
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithLogger sets the base logger. Node loggers derive from it.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock sets the clock used for elapsed-time measurement.
func WithClock(clock Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithMetrics records per-action timings and outcomes.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithTracer sets the tracer used to open one span per action.
// Default: the global OpenTelemetry tracer provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// WithMaxActions limits the number of actions one request may perform.
// Default: DefaultMaxActions. Zero or less disables the limit.
func WithMaxActions(n int) Option {
	return func(e *Engine) {
		e.maxActions = n
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:     slog.Default(),
		clock:      SystemClock{},
		tracer:     otel.Tracer(tracerName),
		maxActions: DefaultMaxActions,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Node records how one action executed.
type Node struct {
	Name     string         `json:"name"`
	Result   *result.Result `json:"result"`
	Elapsed  time.Duration  `json:"elapsed_ns"`
	Children []*Node        `json:"children,omitempty"`
}

// Execution is the outcome of executing a tree.
type Execution struct {
	// Result is the merged result of the executed tree.
	Result *result.Result `json:"result"`

	// Root is the trace of the executed nodes.
	Root *Node `json:"root"`
}

// Execute runs the tree rooted at action.
//
// On a RuntimeError the returned Execution still carries the partial trace
// so callers can log what ran before the abort.
func (e *Engine) Execute(ctx context.Context, action Action) (*Execution, error) {
	res, node, err := e.execute(ctx, newQuota(e.maxActions), action, "")
	exec := &Execution{Result: res, Root: node}
	if err != nil {
		e.logger.Error("update aborted", "error", err)
		return exec, err
	}
	return exec, nil
}

func (e *Engine) execute(ctx context.Context, q *quota, action Action, parent string) (*result.Result, *Node, error) {
	if isNil(action) {
		return nil, nil, NewNilActionError(parent)
	}
	name := action.Name()
	if err := q.check(name); err != nil {
		return nil, nil, err
	}

	attrs := action.Attrs()
	args := make([]any, 0, len(attrs)+1)
	args = append(args, slog.String("action", name))
	for _, a := range attrs {
		args = append(args, a)
	}
	logger := e.logger.With(args...)
	ctx = ContextWithLogger(ctx, logger)

	ctx, span := e.tracer.Start(ctx, name, trace.WithAttributes(spanAttributes(attrs)...))
	defer span.End()

	start := e.clock.Now()
	res, err := action.Perform(ctx)
	elapsed := e.clock.Now().Sub(start)

	node := &Node{Name: name, Elapsed: elapsed}
	if err != nil {
		e.metrics.failed(name)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, node, wrapActionError(name, err)
	}
	if res == nil {
		e.metrics.failed(name)
		return nil, node, NewNilResultError(name)
	}
	node.Result = res
	e.metrics.observe(name, elapsed, res)
	span.SetAttributes(attribute.String("update.status", string(res.Status)))

	logger.Debug("action performed", "status", res.Status, "elapsed", elapsed)

	if res.Stops() {
		logger.Info("action stopped execution", "status", res.Status, "messages", res.Messages())
		return res, node, nil
	}

	merged := &result.Result{
		Status:          res.Status,
		Entries:         append([]result.Entry(nil), res.Entries...),
		DoubleRecordKey: res.DoubleRecordKey,
	}
	for _, child := range action.Children() {
		childRes, childNode, err := e.execute(ctx, q, child, name)
		if childNode != nil {
			node.Children = append(node.Children, childNode)
		}
		if err != nil {
			return nil, node, err
		}
		merged.Merge(childRes)
		if childRes.Stops() {
			merged.Status = childRes.Status
			return merged, node, nil
		}
	}
	return merged, node, nil
}

func spanAttributes(attrs []slog.Attr) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, attribute.String(a.Key, a.Value.String()))
	}
	return out
}

// isNil reports whether the action is nil, including typed nil pointers.
func isNil(a Action) bool {
	if a == nil {
		return true
	}
	v := reflect.ValueOf(a)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
