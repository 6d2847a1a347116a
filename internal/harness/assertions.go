package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/recordupdate/internal/marc"
	"github.com/roach88/recordupdate/internal/store"
)

// AssertionError is returned when an assertion fails. It carries the
// executed action names for context.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Names    []string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if len(e.Names) > 0 {
		fmt.Fprintf(&buf, "\nExecuted actions:\n")
		for i, name := range e.Names {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, name)
		}
	}
	return buf.String()
}

func checkAssertion(ctx context.Context, st *store.Store, res *Result, a Assertion) error {
	switch a.Type {
	case AssertTreeContains:
		return assertTreeContains(res.Names(), a)
	case AssertTreeOrder:
		return assertTreeOrder(res.Names(), a)
	case AssertTreeCount:
		return assertTreeCount(res.Names(), a)
	case AssertRecordExists, AssertRecordAbsent:
		return assertRecordExists(ctx, st, a)
	case AssertRecordField:
		return assertRecordField(ctx, st, a)
	case AssertQueueContains:
		return assertQueueContains(ctx, st, a)
	case AssertChildren:
		return assertChildren(ctx, st, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func assertTreeContains(names []string, a Assertion) error {
	if slices.Contains(names, a.Action) {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("action %s", a.Action),
		Actual:   "not executed",
		Names:    names,
	}
}

// assertTreeOrder checks that the first executions of the actions appear
// in the given order. Other actions may run in between.
func assertTreeOrder(names []string, a Assertion) error {
	positions := make([]int, len(a.Actions))
	for i, action := range a.Actions {
		positions[i] = slices.Index(names, action)
		if positions[i] < 0 {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("all actions present: %v", a.Actions),
				Actual:   fmt.Sprintf("missing action: %s", action),
				Names:    names,
			}
		}
	}
	for i := 1; i < len(positions); i++ {
		if positions[i-1] >= positions[i] {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("actions in order: %v", a.Actions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					a.Actions[i-1], positions[i-1]+1, a.Actions[i], positions[i]+1),
				Names: names,
			}
		}
	}
	return nil
}

func assertTreeCount(names []string, a Assertion) error {
	count := 0
	for _, name := range names {
		if name == a.Action {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d executions of %s", a.Count, a.Action),
			Actual:   fmt.Sprintf("%d executions", count),
			Names:    names,
		}
	}
	return nil
}

func assertRecordExists(ctx context.Context, st *store.Store, a Assertion) error {
	ok, err := st.Exists(ctx, *a.Record)
	if err != nil {
		return err
	}
	want := a.Type == AssertRecordExists
	if ok == want {
		return nil
	}
	state := map[bool]string{true: "live", false: "absent or deleted"}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("record %s %s", a.Record, state[want]),
		Actual:   state[ok],
	}
}

func assertRecordField(ctx context.Context, st *store.Store, a Assertion) error {
	ok, err := st.ExistsMaybeDeleted(ctx, *a.Record)
	if err != nil {
		return err
	}
	if !ok {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("record %s", a.Record), Actual: "not stored"}
	}
	rec, err := st.FetchContent(ctx, *a.Record)
	if err != nil {
		return err
	}
	got := rec.Values(a.Field, a.Subfield)
	if slices.Contains(got, a.Value) {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%s %s%s = %q", a.Record, a.Field, a.Subfield, a.Value),
		Actual:   fmt.Sprintf("%q", got),
	}
}

func assertQueueContains(ctx context.Context, st *store.Store, a Assertion) error {
	jobs, err := st.ReadQueue(ctx, a.Provider)
	if err != nil {
		return err
	}
	queued := make([]string, 0, len(jobs))
	for _, j := range jobs {
		if j.ID == *a.Record {
			return nil
		}
		queued = append(queued, j.ID.String())
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%s queued for %s", a.Record, a.Provider),
		Actual:   fmt.Sprintf("queue %v", queued),
	}
}

func assertChildren(ctx context.Context, st *store.Store, a Assertion) error {
	children, err := st.Children(ctx, *a.Record)
	if err != nil {
		return err
	}
	want := slices.Clone(a.Records)
	marc.SortIDs(want)
	marc.SortIDs(children)
	if slices.Equal(children, want) {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("children of %s: %v", a.Record, want),
		Actual:   fmt.Sprintf("%v", children),
	}
}
