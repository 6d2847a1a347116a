package update

import (
	"log/slog"
	"time"

	"github.com/roach88/recordupdate/internal/auth"
	"github.com/roach88/recordupdate/internal/librules"
	"github.com/roach88/recordupdate/internal/marc"
)

// RequestContext is the immutable per-request state shared by every action
// of one tree. The With methods return modified copies.
type RequestContext struct {
	trackingID      string
	credentials     auth.Credentials
	schema          string
	record          *marc.Record
	group           librules.Group
	doubleRecordKey string
	validateOnly    bool
	validated       bool
	provider        string
	priority        int
	created         time.Time
	now             time.Time
}

// NewRequestContext builds the context of one request. The record is
// copied.
func NewRequestContext(trackingID string, creds auth.Credentials, schema string, rec *marc.Record, group librules.Group, now time.Time) RequestContext {
	return RequestContext{
		trackingID:  trackingID,
		credentials: creds,
		schema:      schema,
		record:      rec.Clone(),
		group:       group,
		now:         now,
	}
}

// TrackingID identifies the request in logs and stored records.
func (c RequestContext) TrackingID() string { return c.trackingID }

// Credentials are the authentication arguments of the request.
func (c RequestContext) Credentials() auth.Credentials { return c.credentials }

// GroupID is the acting agency.
func (c RequestContext) GroupID() string { return c.credentials.Group }

// Schema is the validation template name.
func (c RequestContext) Schema() string { return c.schema }

// Record returns a copy of the request record.
func (c RequestContext) Record() *marc.Record { return c.record.Clone() }

// LibraryGroup is the group of the acting agency.
func (c RequestContext) LibraryGroup() librules.Group { return c.group }

// DoubleRecordKey is the key supplied to bypass the duplicate check.
func (c RequestContext) DoubleRecordKey() string { return c.doubleRecordKey }

// ValidateOnly reports whether the request must not write anything.
func (c RequestContext) ValidateOnly() bool { return c.validateOnly }

// Validated reports whether the validation operation of the same request
// runs before the update. The duplicate check then already happened there.
func (c RequestContext) Validated() bool { return c.validated }

// ProviderOverride is the queue provider requested by a DBC client, or "".
func (c RequestContext) ProviderOverride() string { return c.provider }

// PriorityOverride is the queue priority requested by a DBC client, or 0.
func (c RequestContext) PriorityOverride() int { return c.priority }

// Now is the request time, used for record timestamps and production
// checks.
func (c RequestContext) Now() time.Time { return c.now }

// WithRecord returns a copy holding a copy of rec.
func (c RequestContext) WithRecord(rec *marc.Record) RequestContext {
	c.record = rec.Clone()
	return c
}

// WithDoubleRecordKey returns a copy carrying the bypass key.
func (c RequestContext) WithDoubleRecordKey(key string) RequestContext {
	c.doubleRecordKey = key
	return c
}

// WithValidateOnly returns a copy with the validate-only flag set.
func (c RequestContext) WithValidateOnly(v bool) RequestContext {
	c.validateOnly = v
	return c
}

// WithValidated returns a copy marking the request as validated first.
func (c RequestContext) WithValidated() RequestContext {
	c.validated = true
	return c
}

// WithQueueOverride returns a copy with the requested provider and
// priority.
func (c RequestContext) WithQueueOverride(provider string, priority int) RequestContext {
	c.provider = provider
	c.priority = priority
	return c
}

// CreatedOverride is the creation time requested for a new record in
// n55a, or the zero time.
func (c RequestContext) CreatedOverride() time.Time { return c.created }

// WithCreatedOverride returns a copy carrying the requested creation time.
func (c RequestContext) WithCreatedOverride(t time.Time) RequestContext {
	c.created = t
	return c
}

// LogValue implements slog.LogValuer.
func (c RequestContext) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("tracking_id", c.trackingID),
		slog.String("group_id", c.credentials.Group),
		slog.String("schema", c.schema),
		slog.String("library_group", string(c.group)),
	)
}
