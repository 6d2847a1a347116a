package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/recordupdate/internal/engine"
	"github.com/roach88/recordupdate/internal/result"
	"github.com/roach88/recordupdate/internal/update"
)

// UpdateOptions holds flags for the update and validate commands.
type UpdateOptions struct {
	*RootOptions
	Tree   bool // print the executed action tree
	Timing bool // include timings in the tree
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UpdateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update <request-file>",
		Short: "Run one update request",
		Long: `Run one update request against the configured repository.

The request file is YAML or JSON (by extension; "-" reads YAML from stdin)
with the fields authentication, schema, record, record_packing, options,
double_record_key, tracking_id and extra_data.

Exit codes:
  0 - The request succeeded
  1 - The request was rejected (validation, authentication, duplicate)
  2 - Command error (unreadable request, database unavailable)

Examples:
  recordupdate update --db records.db request.yaml
  recordupdate update --db records.db request.yaml --tree
  recordupdate update --db records.db request.json --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(opts, args[0], false, cmd)
		},
	}
	addUpdateFlags(cmd, opts)
	return cmd
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UpdateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <request-file>",
		Short: "Validate a request without storing anything",
		Long: `Run the validation part of a request: user authentication, schema
and record validation, and the duplicate check for library records.
Nothing is written to the repository.

Examples:
  recordupdate validate --db records.db request.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(opts, args[0], true, cmd)
		},
	}
	addUpdateFlags(cmd, opts)
	return cmd
}

func addUpdateFlags(cmd *cobra.Command, opts *UpdateOptions) {
	cmd.Flags().BoolVar(&opts.Tree, "tree", false, "print the executed action tree")
	cmd.Flags().BoolVar(&opts.Timing, "timing", false, "include timings in the tree")
}

// ReadRequest reads a request file. Files ending in .json are JSON, all
// others YAML. "-" reads YAML from r.
func ReadRequest(path string, r io.Reader) (*update.Request, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(r)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read request: %w", err)
	}

	var req update.Request
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &req)
	} else {
		err = yaml.Unmarshal(data, &req)
	}
	if err != nil {
		return nil, fmt.Errorf("parse request: %w", err)
	}
	return &req, nil
}

func runRequest(opts *UpdateOptions, path string, validateOnly bool, cmd *cobra.Command) error {
	req, err := ReadRequest(path, cmd.InOrStdin())
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid request file", err)
	}

	a, err := openApp(opts.RootOptions)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.logger.Error("error closing database", "error", err)
		}
	}()

	run := a.service.Update
	if validateOnly {
		run = a.service.Validate
	}
	resp, runErr := run(cmd.Context(), req)
	if resp == nil {
		return WrapExitError(ExitCommandError, "update failed", runErr)
	}
	if err := writeResponse(opts, cmd, resp); err != nil {
		return err
	}
	if runErr != nil {
		return WrapExitError(ExitCommandError, "update aborted", runErr)
	}
	if resp.Status != result.StatusOK {
		return NewExitError(ExitFailure, fmt.Sprintf("request %s: %s", resp.TrackingID, resp.Status))
	}
	return nil
}

func writeResponse(opts *UpdateOptions, cmd *cobra.Command, resp *update.Response) error {
	f := opts.formatter(cmd)
	if f.Format == "json" {
		out := *resp
		if !opts.Tree {
			out.Tree = nil
		}
		return f.encode(CLIResponse{Status: string(resp.Status), Data: out, TrackingID: resp.TrackingID})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "tracking id: %s\n", resp.TrackingID)
	fmt.Fprintf(w, "status: %s\n", resp.Status)
	for _, e := range resp.Entries {
		fmt.Fprintf(w, "%s: %s\n", e.Severity, describeEntry(e))
	}
	if resp.DoubleRecordKey != "" {
		fmt.Fprintf(w, "double record key: %s\n", resp.DoubleRecordKey)
	}
	if opts.Tree && resp.Tree != nil {
		fmt.Fprintln(w)
		return resp.Tree.Render(w, engine.RenderOptions{Timing: opts.Timing})
	}
	return nil
}

// describeEntry renders an entry with its location and duplicate, if any.
func describeEntry(e result.Entry) string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Field != "" {
		fmt.Fprintf(&b, " (%s%s)", e.Field, e.Subfield)
	}
	if e.Duplicate != nil {
		fmt.Fprintf(&b, " [%s]", e.Duplicate.PID)
	}
	return b.String()
}
