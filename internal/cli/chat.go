package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"notionclone/client/internal/chat"
)

func chatCmd(a *App) *cobra.Command {
	cmd := cobra.Command{
		Use:   "chat",
		Short: "Ask questions about your pages.",
	}
	cmd.AddCommand(chatAskCmd(a))
	cmd.AddCommand(chatSummaryCmd(a))
	cmd.AddCommand(chatIndexCmd(a))
	return &cmd
}

func printEntry(w io.Writer, e chat.Entry, html bool) error {
	text := e.Text
	if html && e.Status == chat.Done {
		rendered, err := e.HTML()
		if err != nil {
			return err
		}
		text = rendered
	}
	_, err := fmt.Fprintln(w, strings.TrimRight(text, "\n"))
	return err
}

func chatAskCmd(a *App) *cobra.Command {
	var pageID string
	var html bool
	cmd := cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question; without one, start an interactive chat.",
		RunE: func(cmd *cobra.Command, args []string) error {
			panel := chat.New(a.client, a.logger.Named("chat"))
			out := cmd.OutOrStdout()
			if len(args) > 0 {
				e, err := panel.Ask(cmd.Context(), pageID, strings.Join(args, " "))
				if err != nil {
					return err
				}
				return printEntry(out, e, html)
			}
			return runChat(cmd.Context(), panel, pageID, bufio.NewScanner(a.input()), out, html)
		},
	}
	cmd.Flags().StringVar(&pageID, "page", "", "Limit the question to one page.")
	cmd.Flags().BoolVar(&html, "html", false, "Print answers rendered as HTML.")
	return &cmd
}

// runChat reads questions line by line until EOF or /quit. Failed answers
// are printed and the loop continues.
func runChat(ctx context.Context, panel *chat.Panel, pageID string, scanner *bufio.Scanner, out io.Writer, html bool) error {
	_, _ = fmt.Fprintln(out, "Ask a question. /summary [short|detailed|bullet-points] summarizes the page, /clear resets, /quit leaves.")
	for {
		_, _ = fmt.Fprint(out, "chat> ")
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var (
			e   chat.Entry
			err error
		)
		switch fields := strings.Fields(line); fields[0] {
		case "/quit", "/exit":
			return nil
		case "/clear":
			panel.Clear()
			continue
		case "/summary":
			kind := ""
			if len(fields) > 1 {
				kind = fields[1]
			}
			e, err = panel.Summarize(ctx, pageID, kind)
		default:
			e, err = panel.Ask(ctx, pageID, line)
		}
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			_, _ = fmt.Fprintln(out, warnColor.Sprint(errorText(err)))
			continue
		}
		if err := printEntry(out, e, html); err != nil {
			return err
		}
	}
}

func chatSummaryCmd(a *App) *cobra.Command {
	var kind string
	var html bool
	cmd := cobra.Command{
		Use:   "summary <page-id>",
		Short: "Summarize a page.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			panel := chat.New(a.client, a.logger.Named("chat"))
			e, err := panel.Summarize(cmd.Context(), args[0], kind)
			if err != nil {
				return err
			}
			return printEntry(cmd.OutOrStdout(), e, html)
		},
	}
	cmd.Flags().StringVar(&kind, "type", chat.SummaryShort, "Summary style: short, detailed or bullet-points.")
	cmd.Flags().BoolVar(&html, "html", false, "Print the summary rendered as HTML.")
	return &cmd
}

func chatIndexCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Rebuild the chat index over your pages.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := a.client.IndexPages(cmd.Context())
			if err != nil {
				return err
			}
			if msg == "" {
				msg = "Pages indexed."
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), msg)
			return err
		},
	}
}
