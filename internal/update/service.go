package update

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/recordupdate/internal/engine"
	"github.com/roach88/recordupdate/internal/result"
)

// Response is the answer to one request.
type Response struct {
	TrackingID      string         `json:"tracking_id"`
	Status          result.Status  `json:"status"`
	Entries         []result.Entry `json:"entries,omitempty"`
	DoubleRecordKey string         `json:"double_record_key,omitempty"`
	Tree            *engine.Node   `json:"tree,omitempty"`
}

// Messages returns the entry messages in order.
func (r *Response) Messages() []string {
	out := make([]string, 0, len(r.Entries))
	for _, e := range r.Entries {
		out = append(out, e.Message)
	}
	return out
}

// Service runs update requests.
//
// Thread-safety: a Service holds no per-request state. Concurrent requests
// share the Env collaborators, which must be safe for concurrent use.
type Service struct {
	env    *Env
	engine *engine.Engine
	clock  engine.Clock
	ids    engine.IDGenerator
	logger *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithEngine sets the engine executing the trees.
func WithEngine(e *engine.Engine) ServiceOption {
	return func(s *Service) { s.engine = e }
}

// WithClock sets the clock of request timestamps.
func WithClock(c engine.Clock) ServiceOption {
	return func(s *Service) { s.clock = c }
}

// WithIDGenerator sets the generator of tracking ids.
func WithIDGenerator(g engine.IDGenerator) ServiceOption {
	return func(s *Service) { s.ids = g }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service. Every collaborator of env is required.
func NewService(env *Env, opts ...ServiceOption) (*Service, error) {
	if env == nil {
		return nil, fmt.Errorf("update: env is required")
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	s := &Service{
		env:    env,
		clock:  engine.SystemClock{},
		ids:    engine.UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = engine.New(engine.WithLogger(s.logger), engine.WithClock(s.clock))
	}
	return s, nil
}

// Update runs one request.
//
// A runtime error aborts the request. The returned Response then has
// status internal_error and carries the partial tree, and the error is
// returned alongside it.
func (s *Service) Update(ctx context.Context, req *Request) (*Response, error) {
	trackingID := req.TrackingID
	if trackingID == "" {
		trackingID = s.ids.Generate()
	}
	root := NewUpdateRequest(s.env, req, trackingID, s.clock.Now())

	exec, err := s.engine.Execute(ctx, root)
	resp := &Response{TrackingID: trackingID, Tree: exec.Root}
	if err != nil {
		s.logger.Error("update failed", "tracking_id", trackingID, "error", err)
		resp.Status = result.StatusInternalError
		resp.Entries = []result.Entry{{Severity: result.SeverityFatal, Message: err.Error()}}
		return resp, err
	}
	resp.Status = exec.Result.Status
	resp.Entries = exec.Result.Entries
	resp.DoubleRecordKey = exec.Result.DoubleRecordKey
	s.logger.Info("update done", "tracking_id", trackingID, "status", resp.Status)
	return resp, nil
}

// Validate runs the validation part of a request only.
func (s *Service) Validate(ctx context.Context, req *Request) (*Response, error) {
	cp := *req
	if !cp.ValidateOnly() {
		cp.Options = append(append([]string(nil), req.Options...), OptionValidateOnly)
	}
	return s.Update(ctx, &cp)
}
