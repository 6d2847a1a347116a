package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/recordupdate/internal/auth"
)

// UserOptions holds flags for the user add command.
type UserOptions struct {
	*RootOptions
	User     string
	Group    string
	Password string
}

// NewUserCommand creates the user command group.
func NewUserCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage the users allowed to send requests",
	}
	cmd.AddCommand(newUserAddCommand(rootOpts))
	return cmd
}

func newUserAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UserOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or replace a user of a group",
		Long: `Store a user with a bcrypt hash of the password. An existing user of
the same group gets the new password.

Examples:
  recordupdate user add --db records.db --user cat --group 010100 --password secret`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserAdd(opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.User, "user", "", "user name (required)")
	cmd.Flags().StringVar(&opts.Group, "group", "", "group (agency) id (required)")
	cmd.Flags().StringVar(&opts.Password, "password", "", "password (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("group")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func runUserAdd(opts *UserOptions, cmd *cobra.Command) error {
	hash, err := auth.HashPassword(opts.Password)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to hash password", err)
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

	if err := st.PutUser(cmd.Context(), opts.User, opts.Group, hash); err != nil {
		return WrapExitError(ExitFailure, "failed to store user", err)
	}
	f := opts.formatter(cmd)
	if f.Format == "json" {
		return f.Success(map[string]string{"user": opts.User, "group": opts.Group})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "User %s added to group %s\n", opts.User, opts.Group)
	return nil
}
