package export

import (
	"fmt"
	"html"
	"strings"

	"notionclone/client/internal/document"
)

// ToHTML renders the document body as an HTML fragment.
func ToHTML(t *document.Tree) string {
	if t == nil {
		return ""
	}
	var b strings.Builder
	for _, k := range t.Children(t.Root()) {
		renderNode(&b, t, k)
	}
	return b.String()
}

func renderNode(b *strings.Builder, t *document.Tree, k document.Key) {
	n, ok := t.Node(k)
	if !ok {
		return
	}
	switch n.Type {
	case document.TypeParagraph:
		wrap(b, t, n, "<p>", "</p>\n")
	case document.TypeHeading:
		level := min(max(document.IntAttr(n.Attrs, "level", 1), 1), 6)
		wrap(b, t, n, fmt.Sprintf("<h%d>", level), fmt.Sprintf("</h%d>\n", level))
	case document.TypeBulletList:
		wrap(b, t, n, "<ul>\n", "</ul>\n")
	case document.TypeOrderedList:
		open := "<ol>\n"
		if start := document.IntAttr(n.Attrs, "start", 1); start != 1 {
			open = fmt.Sprintf("<ol start=\"%d\">\n", start)
		}
		wrap(b, t, n, open, "</ol>\n")
	case document.TypeListItem:
		wrap(b, t, n, "<li>", "</li>\n")
	case document.TypeBlockquote:
		wrap(b, t, n, "<blockquote>\n", "</blockquote>\n")
	case document.TypeCodeBlock:
		open := "<pre><code>"
		if lang := document.StringAttr(n.Attrs, "language"); lang != "" {
			open = fmt.Sprintf("<pre><code class=\"language-%s\">", html.EscapeString(lang))
		}
		b.WriteString(open)
		b.WriteString(html.EscapeString(t.TextContent(k)))
		b.WriteString("</code></pre>\n")
	case document.TypeTable:
		wrap(b, t, n, "<table>\n", "</table>\n")
	case document.TypeTableRow:
		wrap(b, t, n, "<tr>\n", "</tr>\n")
	case document.TypeTableHeader:
		wrap(b, t, n, "<th>", "</th>\n")
	case document.TypeTableCell:
		wrap(b, t, n, "<td>", "</td>\n")
	case document.TypeLink:
		fmt.Fprintf(b, `<a href="%s">`, html.EscapeString(safeHref(document.StringAttr(n.Attrs, "href"))))
		for _, c := range n.Children {
			renderNode(b, t, c)
		}
		b.WriteString("</a>")
	case document.TypeText:
		b.WriteString(renderTextWithMarks(n.Text, n.Marks))
	case document.TypeHardBreak:
		b.WriteString("<br>")
	case document.TypeHorizontalRule:
		b.WriteString("<hr>\n")
	default:
		for _, c := range n.Children {
			renderNode(b, t, c)
		}
	}
}

func wrap(b *strings.Builder, t *document.Tree, n document.Node, open, close string) {
	b.WriteString(open)
	for _, c := range n.Children {
		renderNode(b, t, c)
	}
	b.WriteString(close)
}

// renderTextWithMarks renders text with formatting marks
func renderTextWithMarks(text string, marks []document.Mark) string {
	if text == "" {
		return ""
	}
	out := html.EscapeString(text)

	// Apply marks from outside in
	for i := len(marks) - 1; i >= 0; i-- {
		switch marks[i].Type {
		case "bold":
			out = "<strong>" + out + "</strong>"
		case "italic":
			out = "<em>" + out + "</em>"
		case "code":
			out = "<code>" + out + "</code>"
		case "strike":
			out = "<s>" + out + "</s>"
		case "underline":
			out = "<u>" + out + "</u>"
		case "link":
			href := safeHref(document.StringAttr(marks[i].Attrs, "href"))
			out = fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(href), out)
		}
	}
	return out
}

// safeHref drops script URLs.
func safeHref(href string) string {
	lower := strings.ToLower(strings.TrimSpace(href))
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "data:") || strings.HasPrefix(lower, "vbscript:") {
		return "#"
	}
	return href
}
