package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roach88/recordupdate/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	LogFormat  string // "json" | "text"
	ConfigFile string

	// Viper holds the configuration keys. Flags of the subcommands bind
	// onto it.
	Viper *viper.Viper

	// Logger is set up by the root command before any subcommand runs.
	Logger *slog.Logger
}

// ValidFormats defines the allowed output and log formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command of the recordupdate CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{Viper: config.New()}

	cmd := &cobra.Command{
		Use:   "recordupdate",
		Short: "Bibliographic record update service",
		Long: `Validate and apply updates to a shared bibliographic record repository.

A request carries a record in the line format. It is authenticated,
validated against a template and executed as a tree of actions that store
the record, keep enrichments and relations consistent and queue the
changed records for downstream processing.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if !slices.Contains(ValidFormats, opts.LogFormat) {
				return fmt.Errorf("invalid log format %q: must be one of %v", opts.LogFormat, ValidFormats)
			}
			opts.Logger = newLogger(cmd.ErrOrStderr(), opts.Verbose, opts.LogFormat)
			slog.SetDefault(opts.Logger)
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.LogFormat, "log-format", "text", "log format (json|text)")
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (YAML)")
	flags.String("db", "", "database DSN, a file path for sqlite3")
	flags.String("driver", "", "database driver (sqlite3|pgx)")
	_ = opts.Viper.BindPFlag(config.KeyDatabaseDSN, flags.Lookup("db"))
	_ = opts.Viper.BindPFlag(config.KeyDatabaseDriver, flags.Lookup("driver"))

	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewLoadCommand(opts))
	cmd.AddCommand(NewUserCommand(opts))
	cmd.AddCommand(NewQueueCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// Config loads the configuration with the global flags applied.
func (o *RootOptions) Config() (*config.Config, error) {
	cfg, err := config.Load(o.Viper, o.ConfigFile)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return cfg, nil
}

// logger returns the configured logger, or a discarding one when the root
// command did not run.
func (o *RootOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newLogger(w io.Writer, verbose bool, format string) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// formatter returns the output formatter of a command.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
