// Package cli implements the notion command: account, workspace, page,
// share, search and chat commands over the API client, plus a line editor
// for page content.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"notionclone/client/internal/api"
	"notionclone/client/internal/logging"
)

const msgPanic = "Something went wrong. Please try again."

type globalFlags struct {
	apiURL     string
	profile    string
	tokenStore string
	verbose    bool
	debugHTTP  bool
}

// Root builds the command tree with a fresh App.
func Root() *cobra.Command {
	return newRoot(&App{})
}

func newRoot(a *App) *cobra.Command {
	flags := &globalFlags{}
	cmd := cobra.Command{
		Use:           "notion",
		Short:         "Command-line client for notion-clone",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd, flags)
		},
	}

	pflags := cmd.PersistentFlags()
	pflags.StringVar(&flags.apiURL, "api-url", "", "Base URL of the API (default from NOTION_API_URL).")
	pflags.StringVar(&flags.profile, "profile", "", "Name of the stored login to use.")
	pflags.StringVar(&flags.tokenStore, "token-store", "", "Where to keep the login: file, redis or memory.")
	pflags.BoolVarP(&flags.verbose, "verbose", "v", false, "Write debug logs to stderr.")
	pflags.BoolVar(&flags.debugHTTP, "debug-http", false, "Dump HTTP requests and responses to stderr.")

	cmd.AddCommand(loginCmd(a))
	cmd.AddCommand(logoutCmd(a))
	cmd.AddCommand(registerCmd(a))
	cmd.AddCommand(whoamiCmd(a))
	cmd.AddCommand(forgotPasswordCmd(a))
	cmd.AddCommand(resetPasswordCmd(a))
	cmd.AddCommand(workspaceCmd(a))
	cmd.AddCommand(pageCmd(a))
	cmd.AddCommand(shareCmd(a))
	cmd.AddCommand(searchCmd(a))
	cmd.AddCommand(chatCmd(a))

	return &cmd
}

// Execute runs the command line and returns the process exit code. A panic
// anywhere below is reported as a generic failure instead of a stack trace.
func Execute(ctx context.Context, version string, args []string) (code int) {
	a := &App{}
	root := newRoot(a)
	root.Version = version
	root.SetArgs(args)

	defer func() {
		if r := recover(); r != nil {
			logging.Get().Error("panic", zap.Any("recovered", r), zap.Stack("stack"))
			_, _ = fmt.Fprintln(root.ErrOrStderr(), msgPanic)
			code = 1
		}
		if err := a.Close(); err != nil {
			logging.Get().Warn("close", zap.Error(err))
		}
		logging.Flush()
	}()

	if err := root.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(root.ErrOrStderr(), errorText(err))
		return 1
	}
	return 0
}

// errorText prefers the user-facing description of client errors and falls
// back to the error text for local failures such as bad flags.
func errorText(err error) string {
	var (
		verr *api.ValidationError
		aerr *api.APIError
		terr *api.TransportError
	)
	switch {
	case errors.As(err, &verr), errors.As(err, &aerr), errors.As(err, &terr),
		errors.Is(err, api.ErrSessionExpired), errors.Is(err, api.ErrNotAuthenticated):
		return api.Describe(err)
	}
	return err.Error()
}
