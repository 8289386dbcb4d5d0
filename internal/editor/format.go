package editor

import (
	"fmt"

	"notionclone/client/internal/document"
)

var textFormats = map[TextFormat]bool{
	FormatBold:          true,
	FormatItalic:        true,
	FormatUnderline:     true,
	FormatStrikethrough: true,
	FormatCode:          true,
}

// ParseTextFormat accepts the mark names and the "strikethrough" alias.
func ParseTextFormat(s string) (TextFormat, bool) {
	if s == "strikethrough" {
		return FormatStrikethrough, true
	}
	f := TextFormat(s)
	return f, textFormats[f]
}

func toggleMark(marks []document.Mark, typ string) []document.Mark {
	out := make([]document.Mark, 0, len(marks)+1)
	found := false
	for _, m := range marks {
		if m.Type == typ {
			found = true
			continue
		}
		out = append(out, m)
	}
	if !found {
		out = append(out, document.Mark{Type: typ})
	}
	return out
}

type textRange struct {
	key        document.Key
	start, end int
}

// selectedRanges lists the text covered by a range selection in document
// order. It returns nil unless both ends sit on text nodes.
func (s *State) selectedRanges() []textRange {
	t := s.Tree
	a, f := s.Selection.Anchor, s.Selection.Focus
	if t.Type(a.Key) != document.TypeText || t.Type(f.Key) != document.TypeText {
		return nil
	}
	nodes := t.TextNodes(t.Root())
	pos := make(map[document.Key]int, len(nodes))
	for i, k := range nodes {
		pos[k] = i
	}
	if pos[a.Key] > pos[f.Key] || (a.Key == f.Key && a.Offset > f.Offset) {
		a, f = f, a
	}

	var out []textRange
	for i := pos[a.Key]; i <= pos[f.Key]; i++ {
		k := nodes[i]
		r := textRange{key: k, start: 0, end: runeLen(t.Text(k))}
		if k == a.Key {
			r.start = a.Offset
		}
		if k == f.Key {
			r.end = f.Offset
		}
		if r.start < r.end {
			out = append(out, r)
		}
	}
	return out
}

// isolate splits a text node so that [start,end) becomes a node of its own.
func (s *State) isolate(r textRange) (document.Key, error) {
	text := s.Tree.Text(r.key)
	if r.start == 0 && r.end == runeLen(text) {
		return r.key, nil
	}
	marks := s.Tree.Marks(r.key)
	head, rest := splitRunes(text, r.start)
	mid, tail := splitRunes(rest, r.end-r.start)

	var frags []document.Fragment
	if head != "" {
		frags = append(frags, document.Fragment{Type: document.TypeText, Text: head, Marks: marks})
	}
	frags = append(frags, document.Fragment{Type: document.TypeText, Text: mid, Marks: marks})
	if tail != "" {
		frags = append(frags, document.Fragment{Type: document.TypeText, Text: tail, Marks: marks})
	}
	keys, err := s.Tree.Replace(r.key, frags...)
	if err != nil {
		return document.NoKey, err
	}
	if head != "" {
		return keys[1], nil
	}
	return keys[0], nil
}

// formatText toggles a mark over the selected text. On a collapsed caret the
// toggle applies to the next inserted text.
func formatText(s *State, payload any) (Result, error) {
	var f TextFormat
	switch p := payload.(type) {
	case TextFormat:
		f = p
	case string:
		f = TextFormat(p)
	default:
		return Unhandled, payloadError(CommandFormatText, payload)
	}
	f, ok := ParseTextFormat(string(f))
	if !ok {
		return Unhandled, fmt.Errorf("format %q: %w", f, ErrInvalidPayload)
	}
	if s.focusKey() == document.NoKey {
		return Unhandled, ErrNoSelection
	}
	if s.Selection.IsCollapsed() {
		s.pending = append(s.pending, f)
		return HandledStop, nil
	}

	ranges := s.selectedRanges()
	if len(ranges) == 0 {
		return HandledStop, nil
	}
	keys := make([]document.Key, 0, len(ranges))
	for _, r := range ranges {
		k, err := s.isolate(r)
		if err != nil {
			return HandledStop, fmt.Errorf("format text: %w", err)
		}
		keys = append(keys, k)
	}

	all := true
	for _, k := range keys {
		if !document.HasMark(s.Tree.Marks(k), string(f)) {
			all = false
			break
		}
	}
	for _, k := range keys {
		marks := s.Tree.Marks(k)
		has := document.HasMark(marks, string(f))
		if all == has {
			if err := s.Tree.SetMarks(k, toggleMark(marks, string(f))); err != nil {
				return HandledStop, err
			}
		}
	}

	last := keys[len(keys)-1]
	s.Selection = Selection{
		Anchor: Point{Key: keys[0]},
		Focus:  Point{Key: last, Offset: runeLen(s.Tree.Text(last))},
	}
	return HandledStop, nil
}

func formatBlock(s *State, payload any) (Result, error) {
	var f BlockFormat
	switch p := payload.(type) {
	case BlockFormat:
		f = p
	case string:
		f = BlockFormat(p)
	default:
		return Unhandled, payloadError(CommandFormatBlock, payload)
	}

	block := s.textBlock()
	if block == document.NoKey {
		k := s.focusKey()
		if k == document.NoKey {
			return Unhandled, ErrNoSelection
		}
		var err error
		if block, err = s.firstTextBlock(k); err != nil {
			return HandledStop, err
		}
		s.caretInto(block)
	}

	var err error
	switch f {
	case BlockParagraph:
		err = s.setBlock(block, document.TypeParagraph, 0)
	case BlockH1:
		err = s.setBlock(block, document.TypeHeading, 1)
	case BlockH2:
		err = s.setBlock(block, document.TypeHeading, 2)
	case BlockH3:
		err = s.setBlock(block, document.TypeHeading, 3)
	case BlockCode:
		err = s.setBlock(block, document.TypeCodeBlock, 0)
	case BlockBullet:
		err = s.toggleList(block, document.TypeBulletList)
	case BlockNumber:
		err = s.toggleList(block, document.TypeOrderedList)
	case BlockQuote:
		err = s.toggleQuote(block)
	default:
		return Unhandled, fmt.Errorf("block format %q: %w", f, ErrInvalidPayload)
	}
	if err != nil {
		return HandledStop, fmt.Errorf("format block %s: %w", f, err)
	}
	return HandledStop, nil
}

// setBlock converts a text block in place. Applying the active heading or
// code format again turns the block back into a paragraph.
func (s *State) setBlock(block document.Key, typ document.NodeType, level int) error {
	n, _ := s.Tree.Node(block)
	if typ != document.TypeParagraph && n.Type == typ &&
		(typ != document.TypeHeading || document.IntAttr(n.Attrs, "level", 1) == level) {
		typ, level = document.TypeParagraph, 0
	}
	if err := s.Tree.SetType(block, typ); err != nil {
		return err
	}
	var attrs map[string]any
	if typ == document.TypeHeading {
		attrs = map[string]any{"level": float64(level)}
	}
	return s.Tree.SetAttrs(block, attrs)
}

func (s *State) toggleList(block document.Key, typ document.NodeType) error {
	t := s.Tree
	if item := t.Parent(block); t.Type(item) == document.TypeListItem {
		list := t.Parent(item)
		if t.Type(list) == typ {
			return s.unwrap(list, true)
		}
		return t.SetType(list, typ)
	}

	list, err := t.Insert(t.Parent(block), t.Index(block), document.Fragment{
		Type:    typ,
		Content: []document.Fragment{{Type: document.TypeListItem}},
	})
	if err != nil {
		return err
	}
	return t.Move(block, t.Children(list)[0], 0)
}

func (s *State) toggleQuote(block document.Key) error {
	t := s.Tree
	if q := t.Parent(block); t.Type(q) == document.TypeBlockquote {
		return s.unwrap(q, false)
	}
	q, err := t.Insert(t.Parent(block), t.Index(block), document.Fragment{Type: document.TypeBlockquote})
	if err != nil {
		return err
	}
	return t.Move(block, q, 0)
}

// unwrap lifts the content of a container into its parent and removes it.
// For lists the list items are dissolved as well.
func (s *State) unwrap(container document.Key, dissolveItems bool) error {
	t := s.Tree
	parent := t.Parent(container)
	at := t.Index(container)
	for _, child := range t.Children(container) {
		lift := []document.Key{child}
		if dissolveItems && t.Type(child) == document.TypeListItem {
			lift = t.Children(child)
		}
		for _, k := range lift {
			if err := t.Move(k, parent, at); err != nil {
				return err
			}
			at++
		}
	}
	return t.Remove(container)
}

func activeBlock(s *State) BlockFormat {
	t := s.Tree
	block := s.textBlock()
	if block == document.NoKey {
		return BlockParagraph
	}
	switch parent := t.Parent(block); {
	case t.Type(parent) == document.TypeListItem && t.Type(t.Parent(parent)) == document.TypeOrderedList:
		return BlockNumber
	case t.Type(parent) == document.TypeListItem:
		return BlockBullet
	case t.Type(parent) == document.TypeBlockquote:
		return BlockQuote
	}
	n, _ := t.Node(block)
	switch n.Type {
	case document.TypeHeading:
		switch document.IntAttr(n.Attrs, "level", 1) {
		case 1:
			return BlockH1
		case 2:
			return BlockH2
		default:
			return BlockH3
		}
	case document.TypeCodeBlock:
		return BlockCode
	}
	return BlockParagraph
}
