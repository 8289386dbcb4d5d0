package editor

import (
	"fmt"

	"notionclone/client/internal/document"
)

// State is the mutable editor state handed to command handlers. Handlers run
// with the editor lock held and must not retain the pointer.
type State struct {
	Tree      *document.Tree
	Selection Selection

	maxIndent int
	pending   []TextFormat
	touched   []document.Key
}

// setText rewrites a text node and queues it for text transforms.
func (s *State) setText(k document.Key, text string) error {
	if err := s.Tree.SetText(k, text); err != nil {
		return err
	}
	s.touch(k)
	return nil
}

func (s *State) touch(k document.Key) {
	for _, t := range s.touched {
		if t == k {
			return
		}
	}
	s.touched = append(s.touched, k)
}

// focusKey returns the key under the focus point when it still exists.
func (s *State) focusKey() document.Key {
	if s.Selection.IsNone() || !s.Tree.Has(s.Selection.Focus.Key) {
		return document.NoKey
	}
	return s.Selection.Focus.Key
}

func (s *State) closest(typ document.NodeType) document.Key {
	k := s.focusKey()
	if k == document.NoKey {
		return document.NoKey
	}
	return s.Tree.Closest(k, func(t document.NodeType) bool { return t == typ })
}

func (s *State) textBlock() document.Key {
	k := s.focusKey()
	if k == document.NoKey {
		return document.NoKey
	}
	return s.Tree.Closest(k, document.NodeType.IsTextBlock)
}

// within reports whether the focus sits inside the subtree at k.
func (s *State) within(k document.Key) bool {
	f := s.focusKey()
	if f == document.NoKey {
		return false
	}
	if f == k {
		return true
	}
	for _, a := range s.Tree.Ancestors(f) {
		if a == k {
			return true
		}
	}
	return false
}

// caretInto moves the caret to the start of the first text block under k.
func (s *State) caretInto(k document.Key) {
	target := k
	s.Tree.WalkFrom(k, func(n document.Node, _ int) bool {
		if target != k {
			return false
		}
		if n.Type.IsTextBlock() {
			target = n.Key
			return false
		}
		return true
	})
	if kids := s.Tree.Children(target); len(kids) > 0 && s.Tree.Type(kids[0]) == document.TypeText {
		s.Selection = Caret(kids[0], 0)
		return
	}
	s.Selection = Caret(target, 0)
}

// ensureTextAt resolves p to a text node and rune offset, creating an empty
// paragraph or text node when the point sits on an element.
func (s *State) ensureTextAt(p Point) (document.Key, int, error) {
	t := s.Tree
	switch typ := t.Type(p.Key); {
	case typ == "":
		return document.NoKey, 0, ErrNoSelection
	case typ == document.TypeText:
		return p.Key, clamp(p.Offset, 0, runeLen(t.Text(p.Key))), nil
	}

	block := p.Key
	if !t.Type(block).IsTextBlock() {
		var err error
		if block, err = s.firstTextBlock(block); err != nil {
			return document.NoKey, 0, err
		}
	}
	if kids := t.Children(block); len(kids) > 0 && t.Type(kids[0]) == document.TypeText {
		return kids[0], 0, nil
	}
	k, err := t.Insert(block, 0, document.Fragment{Type: document.TypeText})
	if err != nil {
		return document.NoKey, 0, fmt.Errorf("create text node: %w", err)
	}
	return k, 0, nil
}

func (s *State) firstTextBlock(k document.Key) (document.Key, error) {
	found := document.NoKey
	s.Tree.WalkFrom(k, func(n document.Node, _ int) bool {
		if found != document.NoKey {
			return false
		}
		if n.Type.IsTextBlock() {
			found = n.Key
			return false
		}
		return true
	})
	if found != document.NoKey {
		return found, nil
	}
	return s.Tree.Append(k, document.Fragment{Type: document.TypeParagraph})
}

// insertionPoint returns where a new block goes: after the text block that
// holds the selection, or at the end of the focused container.
func (s *State) insertionPoint() (document.Key, int) {
	t := s.Tree
	k := s.focusKey()
	if k == document.NoKey || k == t.Root() {
		return t.Root(), len(t.Children(t.Root()))
	}
	if block := t.Closest(k, document.NodeType.IsTextBlock); block != document.NoKey {
		return t.Parent(block), t.Index(block) + 1
	}
	return k, len(t.Children(k))
}

// normalize repairs the selection after structural edits removed its nodes.
func (s *State) normalize() {
	if s.Selection.IsNone() {
		return
	}
	if !s.Tree.Has(s.Selection.Focus.Key) {
		s.Selection = endSelection(s.Tree)
		return
	}
	if !s.Tree.Has(s.Selection.Anchor.Key) {
		s.Selection.Anchor = s.Selection.Focus
	}
	s.Selection.Anchor = s.clampPoint(s.Selection.Anchor)
	s.Selection.Focus = s.clampPoint(s.Selection.Focus)
}

func (s *State) clampPoint(p Point) Point {
	if s.Tree.Type(p.Key) == document.TypeText {
		p.Offset = clamp(p.Offset, 0, runeLen(s.Tree.Text(p.Key)))
	} else {
		p.Offset = 0
	}
	return p
}
