package cli

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/recordupdate/internal/harness"
)

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "load <fixture-file>",
		Short: "Seed the repository from a fixture file",
		Long: `Store the records, relations, holdings and users of a YAML fixture file.

The fixture format is the setup section of a test scenario:

  records:
    - lines: |
        001 00 *a50000001 *b870970
        004 00 *rn *ah
  relations:
    - {from: {id: "50000002", agency: 870970}, to: {id: "50000001", agency: 870970}}
  holdings:
    - {id: "50000001", agencies: [710100]}
  users:
    - {user: cat, group: "010100", password: secret}

Examples:
  recordupdate load --db records.db fixture.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(rootOpts, args[0], cmd)
		},
	}
}

// ReadFixture reads a fixture file. Unknown fields are rejected.
func ReadFixture(path string) (*harness.Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var f harness.Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return &f, nil
}

func runLoad(opts *RootOptions, path string, cmd *cobra.Command) error {
	fixture, err := ReadFixture(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid fixture file", err)
	}
	cfg, err := opts.Config()
	if err != nil {
		return err
	}
	st, lock, err := openStore(cfg, opts.logger())
	if err != nil {
		return err
	}
	defer func() {
		_ = st.Close()
		if lock != nil {
			_ = lock.Unlock()
		}
	}()

	counts, err := fixture.Apply(cmd.Context(), st, time.Now())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to load fixture", err)
	}
	f := opts.formatter(cmd)
	if f.Format == "json" {
		return f.Success(counts)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d records, %d relations, %d holdings, %d users\n",
		counts.Records, counts.Relations, counts.Holdings, counts.Users)
	return nil
}
