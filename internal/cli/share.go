package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"notionclone/client/internal/api"
	"notionclone/client/internal/rbac"
)

func shareCmd(a *App) *cobra.Command {
	var permission string
	cmd := cobra.Command{
		Use:   "share <page-id> <email>",
		Short: "Share a page with someone by email.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			page, err := a.client.LoadPage(ctx, args[0])
			if err != nil {
				return err
			}
			if ws := page.WorkspaceRef(); ws != "" {
				if err := a.authorize(ctx, ws, rbac.ActionShare); err != nil {
					return err
				}
			}
			in := api.SharePageRequest{Email: args[1], Permission: strings.ToUpper(permission)}
			shared, err := a.client.SharePage(ctx, args[0], in)
			if err != nil {
				return err
			}
			email := shared.SharedWithEmail
			if email == "" {
				email = in.Email
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Shared %q with %s (%s)\n", page.Title, email, rbac.ForShare(in.Permission))
			return err
		},
	}
	cmd.Flags().StringVarP(&permission, "permission", "p", api.PermissionView, "VIEW or EDIT.")

	list := cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List pages shared with you.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			shares, err := a.client.SharedPages(cmd.Context())
			if err != nil {
				return err
			}
			t := newTable(cmd.OutOrStdout(), "Share", "Page", "Title", "With", "Permission", "Shared")
			for _, s := range shares {
				t.row(s.ID, s.Page.ID, s.Page.Title, s.SharedWithEmail, s.Permission, formatTime(s.SharedAt))
			}
			return t.flush()
		},
	}

	revoke := cobra.Command{
		Use:   "revoke <share-id>",
		Short: "Stop sharing a page.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.RevokeShare(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Share revoked.")
			return err
		},
	}

	cmd.AddCommand(&list, &revoke)
	return &cmd
}

func searchCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search pages and workspaces by title.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.client.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(res.Pages) == 0 && len(res.Workspaces) == 0 {
				_, err = fmt.Fprintln(out, "No results.")
				return err
			}
			t := newTable(out, "Kind", "ID", "Title", "Updated")
			for _, ws := range res.Workspaces {
				t.row("workspace", ws.ID, ws.Name, formatTime(ws.UpdatedAt))
			}
			for _, p := range res.Pages {
				t.row("page", p.ID, p.Title, formatTime(p.UpdatedAt))
			}
			return t.flush()
		},
	}
}
