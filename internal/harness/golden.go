package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders the response of every step: status, messages and the
// executed tree without timing. The output is stable for a scenario since
// runs use a fixed clock and fixed ids.
func Snapshot(name string, res *Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", name)
	for _, step := range res.Steps {
		fmt.Fprintf(&b, "\nstep %d\n", step.Index+1)
		resp := step.Response
		if resp == nil {
			fmt.Fprintf(&b, "error: %s\n", step.Err)
			continue
		}
		fmt.Fprintf(&b, "status: %s\n", resp.Status)
		for _, m := range resp.Messages() {
			fmt.Fprintf(&b, "message: %s\n", m)
		}
		if resp.DoubleRecordKey != "" {
			fmt.Fprintf(&b, "double record key: %s\n", resp.DoubleRecordKey)
		}
		if resp.Tree != nil {
			b.WriteString(resp.Tree.String())
		}
	}
	return []byte(b.String())
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()
	res, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, res)
	return res, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, res *Result) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Snapshot(name, res))
}
