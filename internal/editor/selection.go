package editor

import (
	"unicode/utf8"

	"notionclone/client/internal/document"
)

// Point is a position in the document. On a text node Offset counts runes;
// on an element it is always 0 and means "start of this block".
type Point struct {
	Key    document.Key
	Offset int
}

// Selection spans Anchor to Focus. The zero Selection means none.
type Selection struct {
	Anchor Point
	Focus  Point
}

func Caret(k document.Key, offset int) Selection {
	p := Point{Key: k, Offset: offset}
	return Selection{Anchor: p, Focus: p}
}

func (s Selection) IsNone() bool {
	return s.Focus.Key == document.NoKey
}

func (s Selection) IsCollapsed() bool {
	return s.Anchor == s.Focus
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// byteIndex converts a rune offset into a byte offset within s.
func byteIndex(s string, runes int) int {
	if runes <= 0 {
		return 0
	}
	i := 0
	for idx := range s {
		if i == runes {
			return idx
		}
		i++
	}
	return len(s)
}

func splitRunes(s string, at int) (string, string) {
	b := byteIndex(s, at)
	return s[:b], s[b:]
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// endSelection places a caret at the end of the last text in t, or at the
// last text block, or at the root.
func endSelection(t *document.Tree) Selection {
	var lastText, lastBlock document.Key
	t.Walk(func(n document.Node, _ int) bool {
		switch {
		case n.Type == document.TypeText:
			lastText = n.Key
		case n.Type.IsTextBlock():
			lastBlock = n.Key
		}
		return true
	})
	switch {
	case lastText != document.NoKey && (lastBlock == document.NoKey || t.Closest(lastText, document.NodeType.IsTextBlock) == lastBlock):
		return Caret(lastText, runeLen(t.Text(lastText)))
	case lastBlock != document.NoKey:
		return Caret(lastBlock, 0)
	}
	return Caret(t.Root(), 0)
}

// EndOf returns a caret after the last character of t.
func EndOf(t *document.Tree) Selection {
	return endSelection(t)
}
