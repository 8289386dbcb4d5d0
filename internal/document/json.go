package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// EmptyJSON is the canonical serialized empty document.
const EmptyJSON = `{"type":"doc","content":[]}`

var ErrNoRoot = errors.New("document: content has no doc root")

// wireNode is the ProseMirror/TipTap JSON shape pages are persisted in.
type wireNode struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []wireNode     `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
}

// wireDoc keeps "content" present on the root even when it is empty.
type wireDoc struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []wireNode     `json:"content"`
}

// Parse decodes persisted content strictly. The payload must be a JSON
// object whose root node is a doc.
func Parse(data []byte) (*Tree, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, ErrNoRoot
	}
	var root wireNode
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if NodeType(root.Type) != TypeDoc {
		return nil, fmt.Errorf("root type %q: %w", root.Type, ErrNoRoot)
	}
	return FromFragment(root.fragment()), nil
}

// ParseOrEmpty never fails: absent, malformed or rootless content yields the
// empty document.
func ParseOrEmpty(content string) *Tree {
	t, err := Parse([]byte(content))
	if err != nil {
		return New()
	}
	return t
}

// Marshal encodes t in the persisted JSON shape.
func Marshal(t *Tree) ([]byte, error) {
	if t == nil {
		return []byte(EmptyJSON), nil
	}
	root := t.nodes[t.root]
	doc := wireDoc{Type: string(TypeDoc), Attrs: root.Attrs, Content: []wireNode{}}
	for _, c := range root.Children {
		doc.Content = append(doc.Content, toWire(t.Fragment(c)))
	}
	return json.Marshal(doc)
}

// String returns the serialized form stored in a page's content field.
func (t *Tree) String() string {
	b, err := Marshal(t)
	if err != nil {
		return EmptyJSON
	}
	return string(b)
}

func (t *Tree) MarshalJSON() ([]byte, error) {
	return Marshal(t)
}

func (t *Tree) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*t = *parsed
	return nil
}

// fragment converts w into a Fragment. Children without a type, such as null
// entries in content, are skipped.
func (w wireNode) fragment() Fragment {
	f := Fragment{
		Type:  NodeType(w.Type),
		Attrs: w.Attrs,
		Marks: w.Marks,
		Text:  w.Text,
	}
	for _, c := range w.Content {
		if c.Type == "" {
			continue
		}
		f.Content = append(f.Content, c.fragment())
	}
	return f
}

func toWire(f Fragment) wireNode {
	w := wireNode{
		Type:  string(f.Type),
		Attrs: f.Attrs,
		Text:  f.Text,
		Marks: f.Marks,
	}
	for _, c := range f.Content {
		w.Content = append(w.Content, toWire(c))
	}
	return w
}
