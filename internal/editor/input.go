package editor

import (
	"fmt"

	"notionclone/client/internal/document"
)

func insertText(s *State, payload any) (Result, error) {
	in, ok := payload.(TextInput)
	if !ok {
		return Unhandled, payloadError(CommandInsertText, payload)
	}
	if s.focusKey() == document.NoKey {
		return Unhandled, ErrNoSelection
	}
	if in.Text == "" {
		return HandledStop, nil
	}
	if !s.Selection.IsCollapsed() {
		if err := s.deleteSelection(); err != nil {
			return HandledStop, err
		}
	}

	k, off, err := s.ensureTextAt(s.Selection.Focus)
	if err != nil {
		return HandledStop, err
	}

	if len(s.pending) > 0 {
		return HandledStop, s.insertMarked(k, off, in.Text)
	}

	before, after := splitRunes(s.Tree.Text(k), off)
	if err := s.setText(k, before+in.Text+after); err != nil {
		return HandledStop, err
	}
	s.Selection = Caret(k, off+runeLen(in.Text))
	return HandledStop, nil
}

// insertMarked inserts text as its own node carrying the pending mark toggles.
func (s *State) insertMarked(k document.Key, off int, text string) error {
	marks := s.Tree.Marks(k)
	toggled := marks
	for _, f := range s.pending {
		toggled = toggleMark(toggled, string(f))
	}
	s.pending = nil

	before, after := splitRunes(s.Tree.Text(k), off)
	var frags []document.Fragment
	if before != "" {
		frags = append(frags, document.Fragment{Type: document.TypeText, Text: before, Marks: marks})
	}
	frags = append(frags, document.Fragment{Type: document.TypeText, Text: text, Marks: toggled})
	if after != "" {
		frags = append(frags, document.Fragment{Type: document.TypeText, Text: after, Marks: marks})
	}
	keys, err := s.Tree.Replace(k, frags...)
	if err != nil {
		return fmt.Errorf("insert marked text: %w", err)
	}
	mid := keys[0]
	if before != "" {
		mid = keys[1]
	}
	s.touch(mid)
	s.Selection = Caret(mid, runeLen(text))
	return nil
}

// deleteSelection removes a range inside a single text node. Ranges across
// nodes collapse to the focus without deleting.
func (s *State) deleteSelection() error {
	a, f := s.Selection.Anchor, s.Selection.Focus
	if a.Key != f.Key || s.Tree.Type(a.Key) != document.TypeText {
		s.Selection = Selection{Anchor: f, Focus: f}
		return nil
	}
	lo, hi := a.Offset, f.Offset
	if lo > hi {
		lo, hi = hi, lo
	}
	text := s.Tree.Text(a.Key)
	head, _ := splitRunes(text, lo)
	_, tail := splitRunes(text, hi)
	if err := s.setText(a.Key, head+tail); err != nil {
		return err
	}
	s.Selection = Caret(a.Key, lo)
	return nil
}

// insertParagraph splits the current text block at the caret. Inside a code
// block it inserts a newline; inside a list item it starts a new item.
func insertParagraph(s *State, _ any) (Result, error) {
	if s.focusKey() == document.NoKey {
		return Unhandled, ErrNoSelection
	}
	if !s.Selection.IsCollapsed() {
		if err := s.deleteSelection(); err != nil {
			return HandledStop, err
		}
	}
	k, off, err := s.ensureTextAt(s.Selection.Focus)
	if err != nil {
		return HandledStop, err
	}
	t := s.Tree
	block := t.Closest(k, document.NodeType.IsTextBlock)
	if block == document.NoKey {
		return Unhandled, nil
	}

	before, after := splitRunes(t.Text(k), off)
	if t.Type(block) == document.TypeCodeBlock {
		if err := s.setText(k, before+"\n"+after); err != nil {
			return HandledStop, err
		}
		s.Selection = Caret(k, off+1)
		return HandledStop, nil
	}

	// The inline child of block that holds k; k itself or a link around it.
	inline := k
	for t.Parent(inline) != block {
		inline = t.Parent(inline)
	}
	tail := []document.Fragment{{Type: document.TypeText, Text: after, Marks: t.Marks(k)}}
	siblings := t.Children(block)
	for _, sib := range siblings[t.Index(inline)+1:] {
		tail = append(tail, t.Fragment(sib))
		if err := t.Remove(sib); err != nil {
			return HandledStop, err
		}
	}
	if err := s.setText(k, before); err != nil {
		return HandledStop, err
	}

	next := document.Fragment{Type: document.TypeParagraph, Content: tail}
	parent := t.Parent(block)
	var nk document.Key
	if t.Type(parent) == document.TypeListItem && t.Index(block) == 0 {
		item, err := t.Insert(t.Parent(parent), t.Index(parent)+1, document.Fragment{
			Type:    document.TypeListItem,
			Content: []document.Fragment{next},
		})
		if err != nil {
			return HandledStop, err
		}
		nk = t.Children(item)[0]
	} else {
		if nk, err = t.Insert(parent, t.Index(block)+1, next); err != nil {
			return HandledStop, err
		}
	}
	s.Selection = Caret(t.Children(nk)[0], 0)
	return HandledStop, nil
}

func setSelection(s *State, payload any) (Result, error) {
	sel, ok := payload.(Selection)
	if !ok {
		return Unhandled, payloadError(CommandSetSelection, payload)
	}
	if sel.IsNone() {
		s.Selection = Selection{}
		s.pending = nil
		return HandledStop, nil
	}
	for _, p := range []Point{sel.Anchor, sel.Focus} {
		if !s.Tree.Has(p.Key) {
			return Unhandled, fmt.Errorf("select key %d: %w", p.Key, document.ErrNoNode)
		}
	}
	s.Selection = Selection{Anchor: s.clampPoint(sel.Anchor), Focus: s.clampPoint(sel.Focus)}
	s.pending = nil
	return HandledStop, nil
}
