package update

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/recordupdate/internal/auth"
	"github.com/roach88/recordupdate/internal/engine"
	"github.com/roach88/recordupdate/internal/marc"
	"github.com/roach88/recordupdate/internal/result"
)

// Record packings accepted in a request.
const (
	PackingLines = "lines"
	PackingJSON  = "json"
)

// OptionValidateOnly runs the validation part of a request only.
const OptionValidateOnly = "validate_only"

// Request is one update request as a client sends it.
type Request struct {
	Authentication  *auth.Credentials `json:"authentication,omitempty" yaml:"authentication"`
	Schema          string            `json:"schema" yaml:"schema"`
	RecordPacking   string            `json:"record_packing,omitempty" yaml:"record_packing" validate:"omitempty,oneof=lines json"`
	Record          string            `json:"record" yaml:"record"`
	Options         []string          `json:"options,omitempty" yaml:"options" validate:"dive,oneof=validate_only"`
	DoubleRecordKey string            `json:"double_record_key,omitempty" yaml:"double_record_key"`
	TrackingID      string            `json:"tracking_id,omitempty" yaml:"tracking_id" validate:"omitempty,max=128"`
	ExtraData       *ExtraData        `json:"extra_data,omitempty" yaml:"extra_data"`
}

// ExtraData lets DBC clients choose the queue the update lands on.
type ExtraData struct {
	Provider string `json:"provider,omitempty" yaml:"provider"`
	Priority int    `json:"priority,omitempty" yaml:"priority" validate:"gte=0"`
}

// ValidateOnly reports whether the request asks for validation only.
func (r *Request) ValidateOnly() bool {
	return slices.Contains(r.Options, OptionValidateOnly)
}

// Credentials returns the authentication arguments, empty when absent.
func (r *Request) Credentials() auth.Credentials {
	if r.Authentication == nil {
		return auth.Credentials{}
	}
	return *r.Authentication
}

// DecodeRecord parses the record in its packing. Lines is the default.
func (r *Request) DecodeRecord() (*marc.Record, error) {
	switch r.RecordPacking {
	case "", PackingLines:
		return marc.ParseLines(r.Record)
	case PackingJSON:
		return marc.Decode([]byte(r.Record))
	}
	return nil, fmt.Errorf("unknown record packing %q", r.RecordPacking)
}

var requestValidator = validator.New()

// UpdateRequestAction is the root of every request tree. It verifies the
// request, builds the request context and appends the validation and
// update operations.
type UpdateRequestAction struct {
	base
	request *Request
	now     time.Time
}

// NewUpdateRequest creates the root action of one request.
func NewUpdateRequest(env *Env, req *Request, trackingID string, now time.Time) *UpdateRequestAction {
	return &UpdateRequestAction{
		base:    base{kind: KindUpdateRequest, env: env, rc: RequestContext{trackingID: trackingID, now: now}},
		request: req,
		now:     now,
	}
}

// Attrs implements engine.Action.
func (a *UpdateRequestAction) Attrs() []slog.Attr {
	attrs := []slog.Attr{slog.String("tracking_id", a.rc.TrackingID())}
	if a.request != nil {
		attrs = append(attrs,
			slog.String("group_id", a.request.Credentials().Group),
			slog.String("schema", a.request.Schema),
		)
	}
	return attrs
}

// Context returns the request context built by Perform.
func (a *UpdateRequestAction) Context() RequestContext { return a.rc }

// Perform implements engine.Action.
func (a *UpdateRequestAction) Perform(ctx context.Context) (*result.Result, error) {
	err := requireFields(a.kind).
		check("env", a.env != nil).
		check("request", a.request != nil).
		err()
	if err != nil {
		return nil, err
	}
	logger := engine.Logger(ctx)
	req := a.request

	if message := a.verifyData(); message != "" {
		return failed(message), nil
	}
	rec, err := req.DecodeRecord()
	if err != nil {
		return failed(a.env.msg("sanity.check.failed", err)), nil
	}
	if message := a.sanityCheck(rec); message != "" {
		return failed(message), nil
	}

	creds := req.Credentials()
	group, err := a.env.Rules.LibraryGroup(ctx, creds.Group)
	if err != nil {
		return nil, fmt.Errorf("group of %s: %w", creds.Group, err)
	}

	processed, err := preprocess(ctx, a.env, rec, a.now)
	var pf *preprocessFailure
	if errors.As(err, &pf) {
		return failed(pf.message), nil
	}
	if err != nil {
		return nil, err
	}

	rc := NewRequestContext(a.rc.TrackingID(), creds, req.Schema, processed, group, a.now).
		WithDoubleRecordKey(req.DoubleRecordKey).
		WithValidateOnly(req.ValidateOnly())
	if group.IsDBC() && req.ExtraData != nil {
		rc, err = a.queueOverride(rc, req.ExtraData)
		if err != nil {
			return nil, err
		}
	}
	a.rc = rc
	logger.Info("request accepted", "request", rc, "validate_only", rc.ValidateOnly())

	a.add(newValidateOperation(a.env, rc))
	if !rc.ValidateOnly() {
		a.add(newUpdateOperation(a.env, rc.WithValidated()))
	}
	return result.OK(), nil
}

// verifyData checks the request arguments in order and returns the
// message of the first problem, or "".
func (a *UpdateRequestAction) verifyData() string {
	req := a.request
	group := req.Credentials().Group
	if a.env.Settings.Production && strings.HasPrefix(group, "13") {
		return a.env.msg("agency.is.not.allowed.for.this.instance", group)
	}
	if strings.TrimSpace(req.Record) == "" {
		return a.env.msg("request.record.is.missing")
	}
	if err := requestValidator.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return a.env.msg("request.invalid", strings.Join(fields, ", "))
		}
		return a.env.msg("request.invalid", err)
	}
	return ""
}

// sanityCheck requires a record id and a positive agency.
func (a *UpdateRequestAction) sanityCheck(rec *marc.Record) string {
	if strings.TrimSpace(rec.RecordID()) == "" {
		return a.env.msg("sanity.check.failed", "001a is missing")
	}
	agency, err := strconv.Atoi(rec.AgencyID())
	if err != nil || agency <= 0 {
		return a.env.msg("sanity.check.failed", fmt.Sprintf("001b %q is not an agency", rec.AgencyID()))
	}
	return ""
}

// queueOverride applies the provider and priority a DBC client asked for.
func (a *UpdateRequestAction) queueOverride(rc RequestContext, extra *ExtraData) (RequestContext, error) {
	s := a.env.Settings
	provider := extra.Provider
	if provider != "" && !slices.Contains(s.Providers, provider) {
		return rc, engine.NewInvalidRequestError("unknown queue provider", map[string]string{"provider": provider})
	}
	priority := extra.Priority
	if s.MaxPriority > 0 && priority > s.MaxPriority {
		priority = s.MaxPriority
	}
	return rc.WithQueueOverride(provider, priority), nil
}
