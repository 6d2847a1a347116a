package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/recordupdate/internal/auth"
	"github.com/roach88/recordupdate/internal/classification"
	"github.com/roach88/recordupdate/internal/doublerecord"
	"github.com/roach88/recordupdate/internal/engine"
	"github.com/roach88/recordupdate/internal/librules"
	"github.com/roach88/recordupdate/internal/marc"
	"github.com/roach88/recordupdate/internal/messages"
	"github.com/roach88/recordupdate/internal/result"
	"github.com/roach88/recordupdate/internal/search"
	"github.com/roach88/recordupdate/internal/store"
	"github.com/roach88/recordupdate/internal/testutil"
	"github.com/roach88/recordupdate/internal/update"
	"github.com/roach88/recordupdate/internal/validate"
)

// stubChecker answers every duplicate check with the scenario verdict.
type stubChecker struct {
	verdict doublerecord.Verdict
}

func (c stubChecker) Frontend(context.Context, *marc.Record) (doublerecord.Verdict, error) {
	return c.verdict, nil
}

func (c stubChecker) Notify(context.Context, *marc.Record) error { return nil }

func newStubChecker(s *DoubleRecordStub) stubChecker {
	if s == nil {
		return stubChecker{verdict: doublerecord.Verdict{Status: doublerecord.StatusOK}}
	}
	v := doublerecord.Verdict{Status: s.Status}
	for _, c := range s.Candidates {
		v.Candidates = append(v.Candidates, result.Candidate{PID: c.PID, Message: c.Message})
	}
	return stubChecker{verdict: v}
}

// Run executes a scenario against a fresh in-memory store.
//
// A returned error means the scenario could not run at all. Failed
// expectations are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	now := DefaultNow
	if scenario.Now != nil {
		now = *scenario.Now
	}
	clock := testutil.NewFixedClock(now)

	if _, err := scenario.Setup.Apply(ctx, st, now.AddDate(0, -1, 0)); err != nil {
		return nil, fmt.Errorf("setup: %w", err)
	}

	svc, err := newService(st, scenario, clock)
	if err != nil {
		return nil, err
	}

	res := NewResult()
	var previous *update.Response
	for i, step := range scenario.Flow {
		req := step.Request
		if step.UseKey && previous != nil {
			req.DoubleRecordKey = previous.DoubleRecordKey
		}
		resp, err := svc.Update(ctx, &req)
		sr := StepResult{Index: i, Response: resp}
		if err != nil {
			sr.Err = err.Error()
		}
		res.Steps = append(res.Steps, sr)
		if step.Expect != nil {
			checkExpect(res, i, step.Expect, resp)
		}
		previous = resp
	}

	for i, a := range scenario.Assertions {
		if err := checkAssertion(ctx, st, res, a); err != nil {
			res.AddError(fmt.Sprintf("assertion %d (%s) failed: %v", i, a.Type, err))
		}
	}
	return res, nil
}

func newService(st *store.Store, scenario *Scenario, clock *testutil.FixedClock) (*update.Service, error) {
	templates, err := validate.Default()
	if err != nil {
		return nil, err
	}
	settings := update.DefaultSettings()
	settings.Production = scenario.Production

	env := &update.Env{
		Repo:          st,
		Holdings:      st,
		Rules:         librules.Default(),
		Index:         search.NewStoreIndex(st),
		DoubleRecords: newStubChecker(scenario.DoubleRecord),
		Keys:          doublerecord.NewKeys(st, testutil.NewSequenceGenerator("key"), clock, 0),
		Auth:          auth.New(st),
		Templates:     templates,
		Messages:      messages.Default(),
		Enrichments:   classification.NewBuilder(classification.WithNow(clock.Now)),
		Settings:      settings,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return update.NewService(env,
		update.WithEngine(engine.New(engine.WithLogger(logger), engine.WithClock(clock))),
		update.WithClock(clock),
		update.WithIDGenerator(testutil.NewSequenceGenerator("track")),
		update.WithLogger(logger),
	)
}

func checkExpect(res *Result, i int, want *Expect, resp *update.Response) {
	if resp == nil {
		res.AddError(fmt.Sprintf("flow[%d]: no response", i))
		return
	}
	if want.Status != "" && resp.Status != want.Status {
		res.AddError(fmt.Sprintf("flow[%d]: expected status %s, got %s (%v)", i, want.Status, resp.Status, resp.Messages()))
	}
	got := resp.Messages()
	for _, m := range want.Messages {
		if !slices.Contains(got, m) {
			res.AddError(fmt.Sprintf("flow[%d]: expected message %q, got %q", i, m, got))
		}
	}
	if want.Tree != nil {
		var names []string
		if resp.Tree != nil {
			names = resp.Tree.Names()
		}
		if !slices.Equal(names, want.Tree) {
			res.AddError(fmt.Sprintf("flow[%d]: expected tree %v, got %v", i, want.Tree, names))
		}
	}
}
