package update

import (
	"log/slog"

	"github.com/roach88/recordupdate/internal/engine"
	"github.com/roach88/recordupdate/internal/marc"
	"github.com/roach88/recordupdate/internal/result"
)

// base carries what every action has: its kind, the environment, the
// request context, the record it works on and the children it appends.
type base struct {
	kind     Kind
	env      *Env
	rc       RequestContext
	record   *marc.Record
	children []engine.Action
}

func newBase(kind Kind, env *Env, rc RequestContext, rec *marc.Record) base {
	return base{kind: kind, env: env, rc: rc, record: rec}
}

// Name implements engine.Action.
func (b *base) Name() string { return b.kind.String() }

// Kind returns the action kind.
func (b *base) Kind() Kind { return b.kind }

// Children implements engine.Action.
func (b *base) Children() []engine.Action { return b.children }

// Attrs implements engine.Action.
func (b *base) Attrs() []slog.Attr {
	attrs := []slog.Attr{slog.String("tracking_id", b.rc.TrackingID())}
	if b.record != nil {
		attrs = append(attrs,
			slog.String("record_id", b.record.RecordID()),
			slog.String("agency_id", b.record.AgencyID()),
		)
	}
	return attrs
}

// Record returns the record the action works on.
func (b *base) Record() *marc.Record { return b.record }

func (b *base) add(actions ...engine.Action) {
	b.children = append(b.children, actions...)
}

// requireBase checks the fields every record action needs.
func (b *base) requireBase() *requirements {
	return requireFields(b.kind).
		check("env", b.env != nil).
		check("record", b.record != nil)
}

// failed is the common business failure result.
func failed(message string) *result.Result {
	return result.Error(result.StatusFailed, message)
}
