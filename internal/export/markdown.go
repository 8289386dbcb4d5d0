package export

import (
	"strconv"
	"strings"

	"notionclone/client/internal/document"
)

// ToMarkdown renders the document as CommonMark with GFM tables and
// strikethrough.
func ToMarkdown(t *document.Tree) string {
	if t == nil {
		return ""
	}
	w := mdWriter{t: t}
	out := w.blocks(t.Children(t.Root()), "\n\n")
	if out == "" {
		return ""
	}
	return out + "\n"
}

type mdWriter struct {
	t *document.Tree
}

func (w mdWriter) blocks(keys []document.Key, sep string) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if s := w.block(k); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, sep)
}

func (w mdWriter) block(k document.Key) string {
	n, ok := w.t.Node(k)
	if !ok {
		return ""
	}
	switch n.Type {
	case document.TypeParagraph:
		return w.inline(n.Children)
	case document.TypeHeading:
		level := min(max(document.IntAttr(n.Attrs, "level", 1), 1), 6)
		return strings.Repeat("#", level) + " " + w.inline(n.Children)
	case document.TypeBulletList, document.TypeOrderedList:
		return w.list(n)
	case document.TypeBlockquote:
		return prefixLines(w.blocks(n.Children, "\n\n"), "> ")
	case document.TypeCodeBlock:
		fence := "```"
		text := w.t.TextContent(k)
		if strings.Contains(text, fence) {
			fence = "~~~"
		}
		return fence + document.StringAttr(n.Attrs, "language") + "\n" + text + "\n" + fence
	case document.TypeHorizontalRule:
		return "---"
	case document.TypeTable:
		return w.table(n)
	}
	return w.blocks(n.Children, "\n\n")
}

func (w mdWriter) list(n document.Node) string {
	start := document.IntAttr(n.Attrs, "start", 1)
	items := make([]string, 0, len(n.Children))
	for i, item := range n.Children {
		marker := "- "
		if n.Type == document.TypeOrderedList {
			marker = strconv.Itoa(start+i) + ". "
		}
		body := w.blocks(w.t.Children(item), "\n")
		items = append(items, marker+indentRest(body, strings.Repeat(" ", len(marker))))
	}
	return strings.Join(items, "\n")
}

func (w mdWriter) table(n document.Node) string {
	rows := make([][]string, 0, len(n.Children))
	width := 0
	for _, row := range n.Children {
		cells := w.t.Children(row)
		line := make([]string, 0, len(cells))
		for _, cell := range cells {
			text := strings.ReplaceAll(w.blocks(w.t.Children(cell), " "), "\n", " ")
			line = append(line, strings.ReplaceAll(text, "|", `\|`))
		}
		width = max(width, len(line))
		rows = append(rows, line)
	}
	if width == 0 {
		return ""
	}
	var b strings.Builder
	for i, row := range rows {
		for len(row) < width {
			row = append(row, "")
		}
		b.WriteString("| " + strings.Join(row, " | ") + " |")
		if i == 0 {
			b.WriteString("\n|" + strings.Repeat(" --- |", width))
		}
		if i < len(rows)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (w mdWriter) inline(keys []document.Key) string {
	var b strings.Builder
	for _, k := range keys {
		n, ok := w.t.Node(k)
		if !ok {
			continue
		}
		switch n.Type {
		case document.TypeText:
			b.WriteString(markText(n.Text, n.Marks))
		case document.TypeLink:
			b.WriteString("[" + w.inline(n.Children) + "](" + document.StringAttr(n.Attrs, "href") + ")")
		case document.TypeHardBreak:
			b.WriteString("  \n")
		default:
			b.WriteString(w.inline(n.Children))
		}
	}
	return b.String()
}

func markText(text string, marks []document.Mark) string {
	if text == "" {
		return ""
	}
	if document.HasMark(marks, "code") {
		text = "`" + text + "`"
	} else {
		text = escapeMarkdown(text)
	}
	for _, m := range marks {
		switch m.Type {
		case "bold":
			text = "**" + text + "**"
		case "italic":
			text = "_" + text + "_"
		case "strike":
			text = "~~" + text + "~~"
		case "underline":
			text = "<u>" + text + "</u>"
		case "link":
			text = "[" + text + "](" + document.StringAttr(m.Attrs, "href") + ")"
		}
	}
	return text
}

var mdEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`)

func escapeMarkdown(s string) string {
	return mdEscaper.Replace(s)
}

func prefixLines(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l == "" {
			lines[i] = strings.TrimRight(prefix, " ")
			continue
		}
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

func indentRest(s, pad string) string {
	lines := strings.Split(s, "\n")
	for i := 1; i < len(lines); i++ {
		if lines[i] != "" {
			lines[i] = pad + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}
