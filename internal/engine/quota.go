package engine

import (
	"errors"
	"fmt"
)

// DefaultMaxActions is the action limit of one request.
const DefaultMaxActions = 10000

// quota counts the actions performed for one request.
//
// Volume and enrichment cascades grow a tree with the number of stored
// children. The quota bounds a request whose tree keeps growing.
type quota struct {
	limit   int
	current int
}

func newQuota(limit int) *quota {
	return &quota{limit: limit}
}

// check counts one action and fails once the limit is passed. A limit of
// zero or less disables the quota.
func (q *quota) check(action string) error {
	q.current++
	if q.limit <= 0 || q.current <= q.limit {
		return nil
	}
	return &QuotaExceededError{Action: action, Actions: q.current, Limit: q.limit}
}

// QuotaExceededError is returned when a request performs more actions
// than the engine allows. It aborts the whole request.
type QuotaExceededError struct {
	Action  string // The action that passed the limit
	Actions int    // Number of actions counted
	Limit   int    // Maximum allowed actions
}

// Error implements the error interface.
func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("request exceeded action quota at %s: %d actions > %d limit",
		e.Action, e.Actions, e.Limit)
}

// IsQuotaExceededError returns true if the error is a QuotaExceededError.
// Uses errors.As to handle wrapped errors.
func IsQuotaExceededError(err error) bool {
	var qe *QuotaExceededError
	return errors.As(err, &qe)
}
