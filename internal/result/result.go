// Package result defines the aggregable outcome of an update action.
//
// A Result carries a status and an ordered list of entries. Results from
// child actions are merged into their parent with Merge: entries are
// concatenated, a non-OK status replaces the current one, and a double
// record key is taken when present.
package result

// Status is the closed set of request outcomes.
type Status string

const (
	StatusOK                  Status = "ok"
	StatusFailed              Status = "failed"
	StatusFailedInvalidSchema Status = "failed_invalid_schema"
	StatusValidationError     Status = "validation_error"
	StatusDoubleRecord        Status = "double_record"
	StatusAuthFailed          Status = "auth_failed"
	StatusInternalError       Status = "internal_error"
)

// Severity classifies an entry.
type Severity string

const (
	SeverityError        Severity = "error"
	SeverityWarning      Severity = "warning"
	SeverityFatal        Severity = "fatal"
	SeverityDoubleRecord Severity = "double_record"
)

// Candidate is a probable duplicate of the incoming record.
type Candidate struct {
	PID     string `json:"pid"`
	Message string `json:"message"`
}

// Entry is one message attached to a result.
type Entry struct {
	Severity  Severity   `json:"severity"`
	Message   string     `json:"message"`
	Field     string     `json:"field,omitempty"`
	Subfield  string     `json:"subfield,omitempty"`
	Ordinal   int        `json:"ordinal,omitempty"`
	URL       string     `json:"url,omitempty"`
	Duplicate *Candidate `json:"duplicate,omitempty"`
}

// Result is the outcome of one action, or the merged outcome of a subtree.
type Result struct {
	Status          Status  `json:"status"`
	Entries         []Entry `json:"entries,omitempty"`
	DoubleRecordKey string  `json:"double_record_key,omitempty"`
}

// OK returns an empty successful result.
func OK() *Result {
	return &Result{Status: StatusOK}
}

// WithStatus returns a result with the given status and no entries.
func WithStatus(status Status) *Result {
	return &Result{Status: status}
}

// Error returns a result with one error entry.
func Error(status Status, message string) *Result {
	return &Result{
		Status:  status,
		Entries: []Entry{{Severity: SeverityError, Message: message}},
	}
}

// FieldError returns a result with one error entry located at field/subfield.
func FieldError(status Status, message, field, subfield string) *Result {
	return &Result{
		Status:  status,
		Entries: []Entry{{Severity: SeverityError, Message: message, Field: field, Subfield: subfield}},
	}
}

// Warning returns a successful result carrying one warning entry.
func Warning(message string) *Result {
	return &Result{
		Status:  StatusOK,
		Entries: []Entry{{Severity: SeverityWarning, Message: message}},
	}
}

// Fatal returns a result with one fatal entry.
func Fatal(status Status, message string) *Result {
	return &Result{
		Status:  status,
		Entries: []Entry{{Severity: SeverityFatal, Message: message}},
	}
}

// AuthError returns an auth-failed result. Without a message the generic
// "Authentication error" text is used.
func AuthError(message string) *Result {
	if message == "" {
		message = "Authentication error"
	}
	return Error(StatusAuthFailed, message)
}

// DoubleRecord returns a result with one duplicate candidate entry.
func DoubleRecord(c Candidate) *Result {
	return &Result{
		Status: StatusDoubleRecord,
		Entries: []Entry{{
			Severity:  SeverityDoubleRecord,
			Message:   c.Message,
			Duplicate: &c,
		}},
	}
}

// IsOK reports whether the status is OK.
func (r *Result) IsOK() bool {
	return r != nil && r.Status == StatusOK
}

// HasErrors reports whether any entry is an error or fatal entry.
func (r *Result) HasErrors() bool {
	if r == nil {
		return false
	}
	for _, e := range r.Entries {
		if e.Severity == SeverityError || e.Severity == SeverityFatal {
			return true
		}
	}
	return false
}

// Stops reports whether execution must stop at this result: the status is
// not OK or an error entry is present.
func (r *Result) Stops() bool {
	return !r.IsOK() || r.HasErrors()
}

// Add appends entries.
func (r *Result) Add(entries ...Entry) {
	r.Entries = append(r.Entries, entries...)
}

// Merge folds other into r. Entries are concatenated, a non-OK status
// replaces r's status, and a non-empty double record key is taken.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.Entries = append(r.Entries, other.Entries...)
	if other.DoubleRecordKey != "" {
		r.DoubleRecordKey = other.DoubleRecordKey
	}
	if other.Status != StatusOK && other.Status != "" {
		r.Status = other.Status
	}
}

// Messages returns the entry messages in order.
func (r *Result) Messages() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		out[i] = e.Message
	}
	return out
}

// Candidates returns the duplicate candidates in entry order.
func (r *Result) Candidates() []Candidate {
	if r == nil {
		return nil
	}
	var out []Candidate
	for _, e := range r.Entries {
		if e.Duplicate != nil {
			out = append(out, *e.Duplicate)
		}
	}
	return out
}

// String renders "status" or "status: first message".
func (r *Result) String() string {
	if r == nil {
		return "<nil>"
	}
	if len(r.Entries) == 0 {
		return string(r.Status)
	}
	return string(r.Status) + ": " + r.Entries[0].Message
}
