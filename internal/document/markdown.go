package document

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.Strikethrough, extension.Table))

// FromMarkdown converts markdown source into a document tree.
func FromMarkdown(src []byte) *Tree {
	root := markdown.Parser().Parse(text.NewReader(src))
	c := mdConverter{src: src}
	return FromFragment(Fragment{Type: TypeDoc, Content: c.blocks(root)})
}

type mdConverter struct {
	src []byte
}

func (c mdConverter) blocks(parent ast.Node) []Fragment {
	var out []Fragment
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		if f, ok := c.block(n); ok {
			out = append(out, f)
		}
	}
	return out
}

func (c mdConverter) block(n ast.Node) (Fragment, bool) {
	switch n := n.(type) {
	case *ast.Heading:
		return Fragment{
			Type:    TypeHeading,
			Attrs:   map[string]any{"level": float64(n.Level)},
			Content: c.inlines(n, nil),
		}, true
	case *ast.Paragraph, *ast.TextBlock:
		return Fragment{Type: TypeParagraph, Content: c.inlines(n, nil)}, true
	case *ast.List:
		typ := TypeBulletList
		var attrs map[string]any
		if n.IsOrdered() {
			typ = TypeOrderedList
			attrs = map[string]any{"start": float64(n.Start)}
		}
		return Fragment{Type: typ, Attrs: attrs, Content: c.blocks(n)}, true
	case *ast.ListItem:
		return Fragment{Type: TypeListItem, Content: c.blocks(n)}, true
	case *ast.Blockquote:
		return Fragment{Type: TypeBlockquote, Content: c.blocks(n)}, true
	case *ast.FencedCodeBlock:
		f := Fragment{Type: TypeCodeBlock, Content: c.codeLines(n)}
		if lang := n.Language(c.src); len(lang) > 0 {
			f.Attrs = map[string]any{"language": string(lang)}
		}
		return f, true
	case *ast.CodeBlock:
		return Fragment{Type: TypeCodeBlock, Content: c.codeLines(n)}, true
	case *ast.ThematicBreak:
		return Fragment{Type: TypeHorizontalRule}, true
	case *east.Table:
		return c.table(n), true
	}
	return Fragment{}, false
}

func (c mdConverter) table(n *east.Table) Fragment {
	table := Fragment{Type: TypeTable}
	for r := n.FirstChild(); r != nil; r = r.NextSibling() {
		cellType := TypeTableCell
		if _, ok := r.(*east.TableHeader); ok {
			cellType = TypeTableHeader
		}
		row := Fragment{Type: TypeTableRow}
		for cell := r.FirstChild(); cell != nil; cell = cell.NextSibling() {
			row.Content = append(row.Content, Fragment{
				Type:    cellType,
				Content: []Fragment{{Type: TypeParagraph, Content: c.inlines(cell, nil)}},
			})
		}
		table.Content = append(table.Content, row)
	}
	return table
}

func (c mdConverter) codeLines(n ast.Node) []Fragment {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(c.src))
	}
	code := string(bytes.TrimRight(buf.Bytes(), "\n"))
	if code == "" {
		return nil
	}
	return []Fragment{{Type: TypeText, Text: code}}
}

func (c mdConverter) inlines(parent ast.Node, marks []Mark) []Fragment {
	var out []Fragment
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch n := n.(type) {
		case *ast.Text:
			out = appendText(out, string(n.Segment.Value(c.src)), marks)
			if n.HardLineBreak() {
				out = append(out, Fragment{Type: TypeHardBreak})
			} else if n.SoftLineBreak() {
				out = appendText(out, " ", marks)
			}
		case *ast.String:
			out = appendText(out, string(n.Value), marks)
		case *ast.CodeSpan:
			out = append(out, c.inlines(n, withMark(marks, "code"))...)
		case *ast.Emphasis:
			mark := "italic"
			if n.Level >= 2 {
				mark = "bold"
			}
			out = append(out, c.inlines(n, withMark(marks, mark))...)
		case *east.Strikethrough:
			out = append(out, c.inlines(n, withMark(marks, "strike"))...)
		case *ast.Link:
			out = append(out, Fragment{
				Type:    TypeLink,
				Attrs:   map[string]any{"href": string(n.Destination)},
				Content: c.inlines(n, marks),
			})
		case *ast.AutoLink:
			href := string(n.URL(c.src))
			if n.AutoLinkType == ast.AutoLinkEmail {
				href = "mailto:" + href
			}
			out = append(out, Fragment{
				Type:    TypeLink,
				Attrs:   map[string]any{"href": href},
				Content: []Fragment{{Type: TypeText, Text: string(n.Label(c.src)), Marks: marks}},
			})
		default:
			out = append(out, c.inlines(n, marks)...)
		}
	}
	return out
}

// appendText merges adjacent runs that carry the same marks.
func appendText(out []Fragment, s string, marks []Mark) []Fragment {
	if s == "" {
		return out
	}
	if n := len(out); n > 0 && out[n-1].Type == TypeText && sameMarks(out[n-1].Marks, marks) {
		out[n-1].Text += s
		return out
	}
	return append(out, Fragment{Type: TypeText, Text: s, Marks: cloneMarks(marks)})
}

func withMark(marks []Mark, typ string) []Mark {
	if HasMark(marks, typ) {
		return marks
	}
	out := cloneMarks(marks)
	return append(out, Mark{Type: typ})
}

func sameMarks(a, b []Mark) bool {
	if len(a) != len(b) {
		return false
	}
	for _, m := range a {
		if !HasMark(b, m.Type) {
			return false
		}
	}
	return true
}
