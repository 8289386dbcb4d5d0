package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"notionclone/client/internal/api"
	"notionclone/client/internal/document"
	"notionclone/client/internal/export"
	"notionclone/client/internal/history"
	"notionclone/client/internal/pagetree"
)

func pageCmd(a *App) *cobra.Command {
	cmd := cobra.Command{
		Use:   "page",
		Short: "Read, write and organize pages.",
	}
	cmd.AddCommand(pageListCmd(a))
	cmd.AddCommand(pageTreeCmd(a))
	cmd.AddCommand(pageShowCmd(a))
	cmd.AddCommand(pageCreateCmd(a))
	cmd.AddCommand(pageDeleteCmd(a))
	cmd.AddCommand(pageMoveCmd(a))
	cmd.AddCommand(pageFavoriteCmd(a))
	cmd.AddCommand(pageFavoritesCmd(a))
	cmd.AddCommand(pageEditCmd(a))
	cmd.AddCommand(pageExportCmd(a))
	cmd.AddCommand(pageHistoryCmd(a))
	cmd.AddCommand(pageRestoreCmd(a))
	cmd.AddCommand(pageImportCmd(a))
	return &cmd
}

func (a *App) history() *history.Store {
	return history.New(a.cfg.HistoryDir, a.session.User().Name())
}

// workspacePages fetches every page of a workspace level by level.
func (a *App) workspacePages(ctx context.Context, workspaceID string) ([]api.Page, error) {
	var all []api.Page
	seen := make(map[string]bool)
	queue := []string{""}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		pages, err := a.client.ListPages(ctx, workspaceID, parent)
		if err != nil {
			return nil, err
		}
		for _, p := range pages {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			if p.ParentID == "" && parent != "" {
				p.ParentID = parent
			}
			all = append(all, p)
			queue = append(queue, p.ID)
		}
	}
	return all, nil
}

func pageListCmd(a *App) *cobra.Command {
	var workspaceID, parentID string
	cmd := cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the pages of a workspace, or the children of a page.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pages, err := a.client.ListPages(cmd.Context(), workspaceID, parentID)
			if err != nil {
				return err
			}
			t := newTable(cmd.OutOrStdout(), "ID", "Title", "Favorite", "Updated")
			for _, p := range pages {
				t.row(p.ID, p.Title, yesNo(p.Favorite), formatTime(p.UpdatedAt))
			}
			return t.flush()
		},
	}
	cmd.Flags().StringVarP(&workspaceID, "workspace", "w", "", "Workspace id.")
	cmd.Flags().StringVar(&parentID, "parent", "", "Only list children of this page.")
	_ = cmd.MarkFlagRequired("workspace")
	return &cmd
}

func pageTreeCmd(a *App) *cobra.Command {
	var workspaceID string
	cmd := cobra.Command{
		Use:   "tree",
		Short: "Show the page hierarchy of a workspace.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pages, err := a.workspacePages(cmd.Context(), workspaceID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range pagetree.Flatten(pagetree.Build(pages)) {
				mark := ""
				if e.Page.Favorite {
					mark = " " + warnColor.Sprint("*")
				}
				_, _ = fmt.Fprintf(out, "%s%s%s  %s\n", strings.Repeat("  ", e.Depth), e.Page.Title, mark, dimColor.Sprint(e.Page.ID))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&workspaceID, "workspace", "w", "", "Workspace id.")
	_ = cmd.MarkFlagRequired("workspace")
	return &cmd
}

func pageShowCmd(a *App) *cobra.Command {
	var format string
	cmd := cobra.Command{
		Use:   "show <page-id>",
		Short: "Print a page as markdown, plain text or raw JSON.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := a.client.LoadPage(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			tree := document.ParseOrEmpty(page.Content)
			switch strings.ToLower(format) {
			case "md", "markdown":
				_, _ = fmt.Fprintf(out, "# %s\n\n", page.Title)
				_, err = io.WriteString(out, export.ToMarkdown(tree))
			case "text", "txt":
				_, err = fmt.Fprintf(out, "%s\n\n%s\n", page.Title, document.PlainText(tree))
			case "json":
				var raw []byte
				raw, err = document.Marshal(tree)
				if err == nil {
					_, err = fmt.Fprintf(out, "%s\n", raw)
				}
			default:
				return fmt.Errorf("unknown format %q (want md, text or json)", format)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "md", "Output format: md, text or json.")
	return &cmd
}

func pageCreateCmd(a *App) *cobra.Command {
	var in api.CreatePageRequest
	cmd := cobra.Command{
		Use:   "create",
		Short: "Create an empty page.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Content = document.EmptyJSON
			page, err := a.client.CreatePage(cmd.Context(), in)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Created page %q (%s)\n", page.Title, page.ID)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVarP(&in.WorkspaceID, "workspace", "w", "", "Workspace id.")
	f.StringVarP(&in.Title, "title", "t", "", "Page title.")
	f.StringVar(&in.ParentID, "parent", "", "Parent page id.")
	f.StringVar(&in.Icon, "icon", "", "Page icon.")
	return &cmd
}

func pageDeleteCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <page-id>",
		Short: "Delete a page and its children.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.DeletePage(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Page deleted.")
			return err
		},
	}
}

func pageMoveCmd(a *App) *cobra.Command {
	var in api.MovePageRequest
	cmd := cobra.Command{
		Use:   "move <page-id>",
		Short: "Move a page under another page or into another workspace.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.ParentID == "" && in.WorkspaceID == "" {
				return errors.New("give --parent, --workspace or both")
			}
			page, err := a.client.MovePage(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Moved %q\n", page.Title)
			return err
		},
	}
	cmd.Flags().StringVar(&in.ParentID, "parent", "", "New parent page id.")
	cmd.Flags().StringVarP(&in.WorkspaceID, "workspace", "w", "", "New workspace id.")
	return &cmd
}

func pageFavoriteCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "favorite <page-id>",
		Short: "Toggle the favorite flag of a page.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := a.client.ToggleFavorite(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			state := "removed from"
			if page.Favorite {
				state = "added to"
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%q %s favorites\n", page.Title, state)
			return err
		},
	}
}

func pageFavoritesCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "favorites",
		Short: "List favorite pages.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pages, err := a.client.Favorites(cmd.Context())
			if err != nil {
				return err
			}
			t := newTable(cmd.OutOrStdout(), "ID", "Title", "Workspace", "Updated")
			for _, p := range pages {
				ws := p.WorkspaceRef()
				if p.Workspace != nil && p.Workspace.Name != "" {
					ws = p.Workspace.Name
				}
				t.row(p.ID, p.Title, orDash(ws), formatTime(p.UpdatedAt))
			}
			return t.flush()
		},
	}
}

func pageExportCmd(a *App) *cobra.Command {
	var format, out string
	cmd := cobra.Command{
		Use:   "export <page-id>",
		Short: "Export a page as html, md, pdf or docx.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			page, err := a.client.LoadPage(ctx, args[0])
			if err != nil {
				return err
			}
			in := export.Page{
				ID:        page.ID,
				Title:     page.Title,
				Doc:       document.ParseOrEmpty(page.Content),
				Author:    a.session.User().Name(),
				UpdatedAt: page.UpdatedAt.Time,
			}
			if page.Workspace != nil {
				in.Workspace = page.Workspace.Name
			}
			res, err := export.New(a.logger.Named("export")).Export(ctx, in, f)
			if err != nil {
				return err
			}
			if out == "-" {
				_, err = cmd.OutOrStdout().Write(res.Data)
				return err
			}
			path := out
			if path == "" {
				path = res.Filename
			} else if fi, statErr := os.Stat(path); statErr == nil && fi.IsDir() {
				path = filepath.Join(path, res.Filename)
			}
			if err := os.WriteFile(path, res.Data, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", path, len(res.Data))
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "md", "Export format: html, md, pdf or docx.")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file or directory; - writes to stdout.")
	return &cmd
}

func pageHistoryCmd(a *App) *cobra.Command {
	var limit int
	cmd := cobra.Command{
		Use:   "history <page-id>",
		Short: "List locally journaled versions of a page.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := a.history().History(args[0], limit)
			if errors.Is(err, history.ErrNoHistory) {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "No local history for this page yet. Versions are recorded while editing.")
				return err
			}
			if err != nil {
				return err
			}
			now := time.Now()
			t := newTable(cmd.OutOrStdout(), "Version", "When", "Message", "Author")
			for _, e := range entries {
				t.row(e.Hash, formatAge(e.CreatedAt, now), e.Message, e.Author)
			}
			return t.flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of versions; 0 lists all.")
	return &cmd
}

func pageRestoreCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <page-id> <version>",
		Short: "Save a journaled version back to the server.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pageID, version := args[0], args[1]
			store := a.history()
			content, err := store.Get(pageID, version)
			if err != nil {
				return err
			}
			tree := content.Tree()
			raw, err := document.Marshal(tree)
			if err != nil {
				return err
			}
			_, err = a.client.UpdatePage(ctx, pageID, api.UpdatePageRequest{
				Title:         content.Title,
				Content:       string(raw),
				ActualContent: document.PlainText(tree),
			})
			if err != nil {
				return err
			}
			if _, _, err := store.Commit(pageID, history.Content{Title: content.Title, Doc: raw}, "restore "+version); err != nil {
				a.logger.Warn("journal restore", zap.String("page", pageID), zap.Error(err))
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Restored %q to version %s\n", content.Title, version)
			return err
		},
	}
}

func pageImportCmd(a *App) *cobra.Command {
	var in api.CreatePageRequest
	cmd := cobra.Command{
		Use:   "import <file.md>",
		Short: "Create a page from a markdown file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			tree := document.FromMarkdown(src)
			if strings.TrimSpace(in.Title) == "" {
				in.Title = importTitle(tree, args[0])
			}
			raw, err := document.Marshal(tree)
			if err != nil {
				return err
			}
			in.Content = string(raw)
			page, err := a.client.CreatePage(cmd.Context(), in)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported %q (%s), %d words\n", page.Title, page.ID, document.WordCount(tree))
			return err
		},
	}
	f := cmd.Flags()
	f.StringVarP(&in.WorkspaceID, "workspace", "w", "", "Workspace id.")
	f.StringVarP(&in.Title, "title", "t", "", "Page title; defaults to the first heading or the file name.")
	f.StringVar(&in.ParentID, "parent", "", "Parent page id.")
	return &cmd
}

// importTitle uses the first heading of the document, or the file name.
func importTitle(tree *document.Tree, path string) string {
	title := ""
	tree.Walk(func(n document.Node, _ int) bool {
		if title != "" {
			return false
		}
		if n.Type == document.TypeHeading {
			title = strings.TrimSpace(tree.TextContent(n.Key))
			return false
		}
		return true
	})
	if title != "" {
		return title
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
