package update

import (
	"context"
	"fmt"

	"github.com/roach88/recordupdate/internal/doublerecord"
	"github.com/roach88/recordupdate/internal/engine"
	"github.com/roach88/recordupdate/internal/marc"
	"github.com/roach88/recordupdate/internal/result"
)

// DoubleRecordFrontendAction asks the duplicate checker about an incoming
// common record. A probable duplicate stops the request with the
// candidates and a key the caller can send back to confirm the update.
type DoubleRecordFrontendAction struct {
	base
}

func newDoubleRecordFrontend(env *Env, rc RequestContext, rec *marc.Record) *DoubleRecordFrontendAction {
	return &DoubleRecordFrontendAction{base: newBase(KindDoubleRecordFrontend, env, rc, rec)}
}

// Perform implements engine.Action.
func (a *DoubleRecordFrontendAction) Perform(ctx context.Context) (*result.Result, error) {
	if err := a.requireBase().err(); err != nil {
		return nil, err
	}
	logger := engine.Logger(ctx)

	verdict, err := a.env.DoubleRecords.Frontend(ctx, a.record)
	if err != nil {
		// The checker being down must not block cataloguing.
		logger.Error("double record frontend check failed", "error", err)
		return result.OK(), nil
	}

	switch verdict.Status {
	case doublerecord.StatusOK:
		return result.OK(), nil
	case doublerecord.StatusDoubleRecord:
		key, err := a.env.Keys.Issue(ctx)
		if err != nil {
			return nil, err
		}
		res := result.WithStatus(result.StatusDoubleRecord)
		for _, c := range verdict.Candidates {
			res.Merge(result.DoubleRecord(c))
		}
		res.DoubleRecordKey = key
		logger.Info("double record found", "candidates", len(verdict.Candidates), "key", key)
		return res, nil
	default:
		message := a.env.msg("internal.double.record.frontend.check.error",
			fmt.Sprintf("%s: %s", verdict.Status, verdict.Message))
		return result.Fatal(result.StatusFailed, message), nil
	}
}

// DoubleRecordCheckingAction hands a stored common record to offline
// duplicate review.
type DoubleRecordCheckingAction struct {
	base
}

func newDoubleRecordChecking(env *Env, rc RequestContext, rec *marc.Record) *DoubleRecordCheckingAction {
	return &DoubleRecordCheckingAction{base: newBase(KindDoubleRecordChecking, env, rc, rec)}
}

// Perform implements engine.Action.
func (a *DoubleRecordCheckingAction) Perform(ctx context.Context) (*result.Result, error) {
	if err := a.requireBase().err(); err != nil {
		return nil, err
	}
	if err := a.env.DoubleRecords.Notify(ctx, a.record); err != nil {
		engine.Logger(ctx).Error("double record notification failed", "error", err)
	}
	return result.OK(), nil
}
