package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"notionclone/client/internal/api"
)

func loginCmd(a *App) *cobra.Command {
	var email string
	cmd := cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if err := a.promptIfEmpty(&email, "Email: ", out); err != nil {
				return err
			}
			password, err := a.readSecret("Password: ", out)
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			user, err := a.client.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "%s %s (%s)\n", okColor.Sprint("Logged in as"), user.Name(), user.Email)
			return err
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email.")
	return &cmd
}

func logoutCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.session.Authenticated() {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
				return err
			}
			if err := a.client.Logout(cmd.Context()); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return err
		},
	}
}

func registerCmd(a *App) *cobra.Command {
	var in api.RegisterRequest
	cmd := cobra.Command{
		Use:   "register",
		Short: "Create an account.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, p := range []struct {
				value  *string
				prompt string
			}{
				{&in.FirstName, "First name: "},
				{&in.LastName, "Last name: "},
				{&in.Email, "Email: "},
			} {
				if err := a.promptIfEmpty(p.value, p.prompt, out); err != nil {
					return err
				}
			}
			password, err := a.readSecret("Password: ", out)
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			in.Password = password
			msg, err := a.client.Register(cmd.Context(), in)
			if err != nil {
				return err
			}
			if msg == "" {
				msg = "Account created. You can now log in."
			}
			_, err = fmt.Fprintln(out, msg)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.FirstName, "first-name", "", "First name.")
	f.StringVar(&in.LastName, "last-name", "", "Last name.")
	f.StringVar(&in.Email, "email", "", "Account email.")
	return &cmd
}

func whoamiCmd(a *App) *cobra.Command {
	var remote bool
	cmd := cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !a.session.Authenticated() {
				_, err := fmt.Fprintln(out, "Not logged in.")
				return err
			}
			user := a.session.User()
			if remote {
				fresh, err := a.client.Profile(cmd.Context())
				if err != nil {
					return err
				}
				user = fresh.SessionUser()
			}
			_, _ = fmt.Fprintf(out, "%s <%s>\n", user.Name(), user.Email)
			if user.Role != "" {
				_, _ = fmt.Fprintf(out, "Role: %s\n", user.Role)
			}
			if claims, err := a.session.Claims(); err == nil && !claims.ExpiresAt.IsZero() {
				_, _ = fmt.Fprintf(out, "Token expires: %s\n", claims.ExpiresAt.Local().Format(time.RFC1123))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "Reload the profile from the server.")
	return &cmd
}

func forgotPasswordCmd(a *App) *cobra.Command {
	var email string
	cmd := cobra.Command{
		Use:   "forgot-password",
		Short: "Ask the server to email a password reset code.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if err := a.promptIfEmpty(&email, "Email: ", out); err != nil {
				return err
			}
			msg, err := a.client.RequestPasswordReset(cmd.Context(), email)
			if err != nil {
				return err
			}
			if msg == "" {
				msg = "If the account exists, a reset code has been sent."
			}
			_, err = fmt.Fprintln(out, msg)
			return err
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email.")
	return &cmd
}

func resetPasswordCmd(a *App) *cobra.Command {
	var email, otp string
	cmd := cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password with the emailed reset code.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if err := a.promptIfEmpty(&email, "Email: ", out); err != nil {
				return err
			}
			if err := a.promptIfEmpty(&otp, "Reset code: ", out); err != nil {
				return err
			}
			password, err := a.readSecret("New password: ", out)
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			msg, err := a.client.ResetPassword(cmd.Context(), email, otp, password)
			if err != nil {
				return err
			}
			if msg == "" {
				msg = "Password updated. You can now log in."
			}
			_, err = fmt.Fprintln(out, msg)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&email, "email", "", "Account email.")
	f.StringVar(&otp, "code", "", "Reset code from the email.")
	return &cmd
}
