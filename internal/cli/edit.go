package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"notionclone/client/internal/api"
	"notionclone/client/internal/autosave"
	"notionclone/client/internal/document"
	"notionclone/client/internal/editor"
	"notionclone/client/internal/export"
	"notionclone/client/internal/rbac"
	"notionclone/client/internal/session"
)

const editHelp = `Commands:
  type <text>          insert text at the caret
  enter                split the block at the caret
  select <text>        select the first occurrence of text
  end                  move the caret to the end of the page
  title <text>         rename the page
  table [rows cols]    insert a table (3x3 by default)
  addrow | addcol | delrow | delcol
  bold | italic | underline | strike | code
  p | h1 | h2 | h3 | bullet | number | quote | codeblock
  indent | outdent
  save | status | show | help | quit`

var textCommands = map[string]editor.TextFormat{
	"bold":      editor.FormatBold,
	"italic":    editor.FormatItalic,
	"underline": editor.FormatUnderline,
	"strike":    editor.FormatStrikethrough,
	"code":      editor.FormatCode,
}

var blockCommands = map[string]editor.BlockFormat{
	"p":         editor.BlockParagraph,
	"h1":        editor.BlockH1,
	"h2":        editor.BlockH2,
	"h3":        editor.BlockH3,
	"bullet":    editor.BlockBullet,
	"number":    editor.BlockNumber,
	"quote":     editor.BlockQuote,
	"codeblock": editor.BlockCode,
}

var tableCommands = map[string]editor.CommandID{
	"addrow": editor.CommandAddRow,
	"addcol": editor.CommandAddColumn,
	"delrow": editor.CommandDeleteRow,
	"delcol": editor.CommandDeleteColumn,
}

// editSession drives one page through the editor engine, with every change
// picked up by the autosaver.
type editSession struct {
	page   api.Page
	title  string
	editor *editor.Editor
	saver  *autosave.Autosaver
	out    io.Writer
}

func newEditSession(ctx context.Context, page api.Page, readOnly bool, saver autosave.Saver, opts autosave.Options, out io.Writer) *editSession {
	ed := editor.New(document.ParseOrEmpty(page.Content),
		editor.WithLogger(opts.Logger),
		editor.WithReadOnly(readOnly))
	as := autosave.New(ctx, page.ID, ed, saver, opts)
	as.SetInitialTitle(page.Title)
	if !readOnly {
		as.Attach(ed)
	}
	return &editSession{page: page, title: page.Title, editor: ed, saver: as, out: out}
}

// pageSaver sends snapshots as page updates, with the plain text alongside
// for search and chat.
func pageSaver(client *api.Client) autosave.Saver {
	return autosave.SaverFunc(func(ctx context.Context, pageID string, snap autosave.Snapshot) error {
		text := document.PlainText(document.ParseOrEmpty(string(snap.Content)))
		_, err := client.UpdatePage(ctx, pageID, api.UpdatePageRequest{
			Title:         snap.Title,
			Content:       string(snap.Content),
			ActualContent: text,
		})
		return err
	})
}

func (s *editSession) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.out, format, args...)
}

func (s *editSession) dispatch(ctx context.Context, cmd editor.CommandID, payload any) error {
	handled, err := s.editor.Dispatch(ctx, cmd, payload)
	if err != nil {
		return err
	}
	if !handled {
		s.printf("Nothing to do here.\n")
	}
	return nil
}

// exec runs one command line. quit is true when the session should end.
// Errors are for the user; the session keeps going after them.
func (s *editSession) exec(ctx context.Context, line string) (quit bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	if f, ok := textCommands[name]; ok {
		return false, s.dispatch(ctx, editor.CommandFormatText, string(f))
	}
	if f, ok := blockCommands[name]; ok {
		return false, s.dispatch(ctx, editor.CommandFormatBlock, string(f))
	}
	if cmd, ok := tableCommands[name]; ok {
		return false, s.dispatch(ctx, cmd, nil)
	}

	switch name {
	case "type":
		if rest == "" {
			return false, errors.New("usage: type <text>")
		}
		return false, s.dispatch(ctx, editor.CommandInsertText, editor.TextInput{Text: rest})
	case "enter":
		return false, s.dispatch(ctx, editor.CommandInsertParagraph, nil)
	case "table":
		if rest == "" {
			return false, s.dispatch(ctx, editor.CommandInsertTableDefault, nil)
		}
		size, err := parseTableSize(rest)
		if err != nil {
			return false, err
		}
		return false, s.dispatch(ctx, editor.CommandInsertTable, size)
	case "indent":
		return false, s.dispatch(ctx, editor.CommandIndent, nil)
	case "outdent":
		return false, s.dispatch(ctx, editor.CommandOutdent, nil)
	case "select":
		sel, ok := s.find(rest)
		if !ok {
			return false, fmt.Errorf("%q not found", rest)
		}
		return false, s.dispatch(ctx, editor.CommandSetSelection, sel)
	case "end":
		return false, s.dispatch(ctx, editor.CommandSetSelection, editor.EndOf(s.editor.Document()))
	case "title":
		if strings.TrimSpace(rest) == "" {
			return false, errors.New("title is required")
		}
		if s.editor.ReadOnly() {
			return false, editor.ErrReadOnly
		}
		s.title = rest
		s.saver.SetTitle(rest)
		return false, nil
	case "save":
		if err := s.saver.Flush(ctx); err != nil {
			return false, err
		}
		s.printf("Saved.\n")
		return false, nil
	case "status":
		s.status()
		return false, nil
	case "show":
		s.printf("# %s\n\n%s", s.title, export.ToMarkdown(s.editor.Document()))
		return false, nil
	case "help", "?":
		s.printf("%s\n", editHelp)
		return false, nil
	case "quit", "exit", "q":
		return true, nil
	}
	return false, fmt.Errorf("unknown command %q (type help for a list)", name)
}

func (s *editSession) status() {
	state := s.saver.State().String()
	if s.saver.Saving() {
		state = "saving"
	}
	s.printf("Page: %s (%s)\n", s.title, s.page.ID)
	s.printf("State: %s\n", state)
	s.printf("Block: %s\n", s.editor.ActiveBlock())
	if s.editor.ReadOnly() {
		s.printf("Read-only: yes\n")
	}
	if err := s.saver.LastError(); err != nil {
		s.printf("Last save failed: %s\n", errorText(err))
	}
}

// find selects the first occurrence of needle inside a single text node.
func (s *editSession) find(needle string) (editor.Selection, bool) {
	if needle == "" {
		return editor.Selection{}, false
	}
	tree := s.editor.Document()
	for _, k := range tree.TextNodes(tree.Root()) {
		text := tree.Text(k)
		i := strings.Index(text, needle)
		if i < 0 {
			continue
		}
		start := utf8.RuneCountInString(text[:i])
		return editor.Selection{
			Anchor: editor.Point{Key: k, Offset: start},
			Focus:  editor.Point{Key: k, Offset: start + utf8.RuneCountInString(needle)},
		}, true
	}
	return editor.Selection{}, false
}

func (s *editSession) close(ctx context.Context) error {
	return s.saver.Close(ctx)
}

func parseTableSize(arg string) (editor.TableSize, error) {
	fields := strings.Fields(strings.ReplaceAll(strings.ToLower(arg), "x", " "))
	if len(fields) != 2 {
		return editor.TableSize{}, errors.New("usage: table [rows cols]")
	}
	rows, err := strconv.Atoi(fields[0])
	if err != nil {
		return editor.TableSize{}, fmt.Errorf("invalid row count %q", fields[0])
	}
	cols, err := strconv.Atoi(fields[1])
	if err != nil {
		return editor.TableSize{}, fmt.Errorf("invalid column count %q", fields[1])
	}
	return editor.TableSize{Rows: rows, Columns: cols}, nil
}

// runEditor reads commands until quit or EOF. Command errors are reported
// and the loop continues.
func runEditor(ctx context.Context, s *editSession, scanner *bufio.Scanner, out io.Writer) error {
	for {
		_, _ = fmt.Fprintf(out, "%s> ", s.title)
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(out)
			return scanner.Err()
		}
		quit, err := s.exec(ctx, scanner.Text())
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			_, _ = fmt.Fprintln(out, warnColor.Sprint(editErrorText(err)))
		}
		if quit {
			return nil
		}
	}
}

func editErrorText(err error) string {
	switch {
	case errors.Is(err, editor.ErrReadOnly):
		return "This page is read-only."
	case errors.Is(err, editor.ErrTableMinimum):
		return "A table keeps at least one row and one column."
	case errors.Is(err, editor.ErrNoSelection):
		return "Place the caret first (try: end)."
	}
	return errorText(err)
}

// pageRole is the user's role for a page: their workspace role, or the
// permission of a share when they are not a member.
func (a *App) pageRole(ctx context.Context, page api.Page) (rbac.Role, bool) {
	if ws := page.WorkspaceRef(); ws != "" {
		if role, ok := a.roleIn(ctx, ws); ok {
			return role, true
		}
	}
	shares, err := a.client.SharedPages(ctx)
	if err != nil {
		a.logger.Debug("shared page lookup failed", zap.Error(err))
		return "", false
	}
	for _, sh := range shares {
		if sh.Page.ID == page.ID {
			return rbac.ForShare(sh.Permission), true
		}
	}
	return "", false
}

func pageEditCmd(a *App) *cobra.Command {
	var readOnly bool
	cmd := cobra.Command{
		Use:   "edit <page-id>",
		Short: "Edit a page interactively; changes are saved automatically.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			page, err := a.client.LoadPage(ctx, args[0])
			if err != nil {
				return err
			}
			ro := readOnly
			if role, ok := a.pageRole(ctx, page); ok && rbac.ReadOnly(role) {
				ro = true
			}

			errOut := cmd.ErrOrStderr()
			opts := autosave.Options{
				Delay:   a.cfg.AutosaveDelay,
				Journal: a.history(),
				Logger:  a.logger.Named("autosave"),
				OnError: func(err error) {
					_, _ = fmt.Fprintln(errOut, warnColor.Sprint("Failed to auto-save page: "+errorText(err)))
				},
			}
			s := newEditSession(ctx, page, ro, pageSaver(a.client), opts, out)

			refreshCtx, stop := context.WithCancel(ctx)
			defer stop()
			refresher := &session.Refresher{
				Session:  a.session,
				Refresh:  a.client.Refresh,
				Interval: a.cfg.RefreshInterval,
				Logger:   a.logger.Named("refresh"),
			}
			go func() {
				if err := refresher.Run(refreshCtx); err != nil && !errors.Is(err, context.Canceled) {
					a.logger.Warn("session refresh stopped", zap.Error(err))
				}
			}()

			if ro {
				_, _ = fmt.Fprintln(out, dimColor.Sprint("Opened read-only."))
			}
			_, _ = fmt.Fprintln(out, dimColor.Sprint("Type help for commands, quit to leave."))
			runErr := runEditor(ctx, s, bufio.NewScanner(a.input()), out)
			closeErr := s.close(context.WithoutCancel(ctx))
			if closeErr != nil {
				closeErr = fmt.Errorf("final save: %w", closeErr)
			}
			return errors.Join(runErr, closeErr)
		},
	}
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "Open without saving changes.")
	return &cmd
}
