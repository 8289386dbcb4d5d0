package editor

import (
	"fmt"
	"regexp"
	"strings"

	"notionclone/client/internal/document"
)

type linkMatcher struct {
	pattern *regexp.Regexp
	attrs   func(match string) map[string]any
}

var (
	urlPattern   = regexp.MustCompile(`https?://(?:www\.)?[^\s.]+\.\S{2,}|www\.\S+\.\S{2,}`)
	emailPattern = regexp.MustCompile(`(?:[^<>()\[\]\\.,;:\s@"]+(?:\.[^<>()\[\]\\.,;:\s@"]+)*|".+")@(?:\[[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\]|(?:[a-zA-Z\-0-9]+\.)+[a-zA-Z]{2,})`)
	phonePattern = regexp.MustCompile(`(?:\+\d{1,3}[- ]?)?\(?\d{3}\)?[- ]?\d{3}[- ]?\d{4}`)
	nonDial      = regexp.MustCompile(`[^0-9+]`)
)

// Checked in order; the first match whose end meets the caret wins.
var linkMatchers = []linkMatcher{
	{pattern: urlPattern, attrs: func(m string) map[string]any {
		href := m
		if !strings.HasPrefix(m, "http") {
			href = "https://" + m
		}
		return map[string]any{"href": href, "rel": "noreferrer", "target": "_blank"}
	}},
	{pattern: emailPattern, attrs: func(m string) map[string]any {
		return map[string]any{"href": "mailto:" + m}
	}},
	{pattern: phonePattern, attrs: func(m string) map[string]any {
		return map[string]any{"href": "tel:" + nonDial.ReplaceAllString(m, "")}
	}},
}

// autoLink wraps a URL, email or phone number the user just finished typing
// in a link node. It only fires on a collapsed caret at the end of the match.
// Input arriving one character at a time links as soon as the text matches,
// so typing "a@b.com" links "a@b.co" and leaves "m" outside the link.
func autoLink(s *State, k document.Key) error {
	t := s.Tree
	if t.Closest(t.Parent(k), func(typ document.NodeType) bool { return typ == document.TypeLink }) != document.NoKey {
		return nil
	}
	sel := s.Selection
	if sel.IsNone() || !sel.IsCollapsed() || sel.Focus.Key != k {
		return nil
	}

	text := t.Text(k)
	caret := byteIndex(text, sel.Focus.Offset)
	for _, m := range linkMatchers {
		loc := m.pattern.FindStringIndex(text)
		if loc == nil || loc[1] != caret {
			continue
		}
		match := text[loc[0]:loc[1]]
		marks := t.Marks(k)

		var frags []document.Fragment
		if loc[0] > 0 {
			frags = append(frags, document.Fragment{Type: document.TypeText, Text: text[:loc[0]], Marks: marks})
		}
		frags = append(frags,
			document.Fragment{
				Type:    document.TypeLink,
				Attrs:   m.attrs(match),
				Content: []document.Fragment{{Type: document.TypeText, Text: match, Marks: marks}},
			},
			document.Fragment{Type: document.TypeText, Text: text[loc[1]:], Marks: marks},
		)
		keys, err := t.Replace(k, frags...)
		if err != nil {
			return fmt.Errorf("auto-link: %w", err)
		}
		s.Selection = Caret(keys[len(keys)-1], 0)
		return nil
	}
	return nil
}
