package harness

import (
	"github.com/roach88/recordupdate/internal/update"
)

// StepResult is the outcome of one flow step.
type StepResult struct {
	Index    int              `json:"index"`
	Response *update.Response `json:"response"`
	Err      string           `json:"error,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Steps holds one entry per flow step, in order.
	Steps []StepResult `json:"steps"`

	// Errors lists the failed expectations. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{Pass: true, Steps: []StepResult{}, Errors: []string{}}
}

// AddError records a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Last returns the response of the last step, or nil.
func (r *Result) Last() *update.Response {
	if len(r.Steps) == 0 {
		return nil
	}
	return r.Steps[len(r.Steps)-1].Response
}

// Names returns the action names of every step's tree in pre-order,
// concatenated.
func (r *Result) Names() []string {
	var out []string
	for _, s := range r.Steps {
		if s.Response != nil && s.Response.Tree != nil {
			out = append(out, s.Response.Tree.Names()...)
		}
	}
	return out
}
