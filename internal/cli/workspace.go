package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"notionclone/client/internal/api"
	"notionclone/client/internal/rbac"
)

var errForbidden = errors.New("you do not have permission to perform this action")

// roleIn looks up the signed-in user's role in a workspace. ok is false when
// the member list could not be read or the user is not listed; callers then
// leave the decision to the server.
func (a *App) roleIn(ctx context.Context, workspaceID string) (role rbac.Role, ok bool) {
	members, err := a.client.Members(ctx, workspaceID)
	if err != nil {
		a.logger.Debug("member lookup failed", zap.String("workspace", workspaceID), zap.Error(err))
		return "", false
	}
	user := a.session.User()
	for _, m := range members {
		if strings.EqualFold(m.Email, user.Email) || (user.ID != "" && m.UserID.String() == user.ID) {
			return rbac.Normalize(m.Role), true
		}
	}
	return "", false
}

// authorize fails locally when the user's role clearly forbids action.
func (a *App) authorize(ctx context.Context, workspaceID string, action rbac.Action) error {
	role, ok := a.roleIn(ctx, workspaceID)
	if ok && !rbac.Can(role, action) {
		return errForbidden
	}
	return nil
}

func workspaceCmd(a *App) *cobra.Command {
	cmd := cobra.Command{
		Use:     "workspace",
		Aliases: []string{"ws"},
		Short:   "Manage workspaces.",
	}
	cmd.AddCommand(workspaceListCmd(a))
	cmd.AddCommand(workspaceShowCmd(a))
	cmd.AddCommand(workspaceCreateCmd(a))
	cmd.AddCommand(workspaceUpdateCmd(a))
	cmd.AddCommand(workspaceDeleteCmd(a))
	cmd.AddCommand(membersCmd(a))
	return &cmd
}

func workspaceListCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List workspaces you belong to.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := a.client.Workspaces(cmd.Context())
			if err != nil {
				return err
			}
			t := newTable(cmd.OutOrStdout(), "ID", "Name", "Personal", "Updated")
			for _, ws := range items {
				t.row(ws.ID, ws.Name, yesNo(ws.Personal), formatTime(ws.UpdatedAt))
			}
			return t.flush()
		},
	}
}

func workspaceShowCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <workspace-id>",
		Short: "Show a workspace and its top-level pages.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := a.client.Workspace(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%s\n", headerColor.Sprint(ws.Name))
			if ws.Description != "" {
				_, _ = fmt.Fprintln(out, ws.Description)
			}
			_, _ = fmt.Fprintf(out, "ID: %s  Personal: %s  Created: %s\n", ws.ID, yesNo(ws.Personal), formatTime(ws.CreatedAt))
			if role, ok := a.roleIn(ctx, ws.ID); ok {
				_, _ = fmt.Fprintf(out, "Your role: %s\n", role)
			}
			pages, err := a.client.ListPages(ctx, ws.ID, "")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(out)
			t := newTable(out, "Page", "Title", "Updated")
			for _, p := range pages {
				t.row(p.ID, p.Title, formatTime(p.UpdatedAt))
			}
			return t.flush()
		},
	}
}

func workspaceCreateCmd(a *App) *cobra.Command {
	var in api.WorkspaceInput
	cmd := cobra.Command{
		Use:   "create",
		Short: "Create a workspace.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.client.CreateWorkspace(cmd.Context(), in)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Created workspace %s (%s)\n", ws.Name, ws.ID)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Name, "name", "", "Workspace name.")
	f.StringVar(&in.Description, "description", "", "Workspace description.")
	f.BoolVar(&in.Personal, "personal", false, "Create a personal workspace.")
	return &cmd
}

func workspaceUpdateCmd(a *App) *cobra.Command {
	var in api.WorkspaceInput
	cmd := cobra.Command{
		Use:   "update <workspace-id>",
		Short: "Rename a workspace or change its description.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.authorize(ctx, args[0], rbac.ActionManageMembers); err != nil {
				return err
			}
			current, err := a.client.Workspace(ctx, args[0])
			if err != nil {
				return err
			}
			f := cmd.Flags()
			if !f.Changed("name") {
				in.Name = current.Name
			}
			if !f.Changed("description") {
				in.Description = current.Description
			}
			in.Personal = current.Personal
			ws, err := a.client.UpdateWorkspace(ctx, args[0], in)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Updated workspace %s\n", ws.Name)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Name, "name", "", "New name.")
	f.StringVar(&in.Description, "description", "", "New description.")
	return &cmd
}

func workspaceDeleteCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <workspace-id>",
		Short: "Delete a workspace and all of its pages.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.authorize(ctx, args[0], rbac.ActionDeleteWorkspace); err != nil {
				return err
			}
			if err := a.client.DeleteWorkspace(ctx, args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Workspace deleted.")
			return err
		},
	}
}

func membersCmd(a *App) *cobra.Command {
	cmd := cobra.Command{
		Use:   "members <workspace-id>",
		Short: "List or manage workspace members.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			members, err := a.client.Members(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			t := newTable(cmd.OutOrStdout(), "User", "Email", "Name", "Role", "Joined")
			for _, m := range members {
				t.row(m.UserID.String(), m.Email, orDash(m.Name), string(rbac.Normalize(m.Role)), formatTime(m.JoinedAt))
			}
			return t.flush()
		},
	}

	var role string
	add := cobra.Command{
		Use:   "add <workspace-id> <email>",
		Short: "Invite a member.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.authorize(ctx, args[0], rbac.ActionManageMembers); err != nil {
				return err
			}
			m, err := a.client.AddMember(ctx, args[0], api.AddMemberRequest{Email: args[1], Role: strings.ToUpper(role)})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Added %s as %s\n", orDash(m.Email), rbac.Normalize(m.Role))
			return err
		},
	}
	add.Flags().StringVar(&role, "role", api.RoleMember, "Role to grant: ADMIN or MEMBER.")

	remove := cobra.Command{
		Use:   "remove <workspace-id> <user-id>",
		Short: "Remove a member.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.authorize(ctx, args[0], rbac.ActionManageMembers); err != nil {
				return err
			}
			if err := a.client.RemoveMember(ctx, args[0], args[1]); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Member removed.")
			return err
		},
	}

	setRole := cobra.Command{
		Use:   "role <workspace-id> <user-id> <role>",
		Short: "Change a member's role.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.authorize(ctx, args[0], rbac.ActionManageMembers); err != nil {
				return err
			}
			m, err := a.client.UpdateMemberRole(ctx, args[0], args[1], args[2])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", orDash(m.Email), rbac.Normalize(m.Role))
			return err
		},
	}

	cmd.AddCommand(&add, &remove, &setRole)
	return &cmd
}
