package document

import (
	"errors"
	"fmt"
	"strings"
)

type NodeType string

const (
	TypeDoc            NodeType = "doc"
	TypeParagraph      NodeType = "paragraph"
	TypeHeading        NodeType = "heading"
	TypeBulletList     NodeType = "bulletList"
	TypeOrderedList    NodeType = "orderedList"
	TypeListItem       NodeType = "listItem"
	TypeBlockquote     NodeType = "blockquote"
	TypeCodeBlock      NodeType = "codeBlock"
	TypeTable          NodeType = "table"
	TypeTableRow       NodeType = "tableRow"
	TypeTableHeader    NodeType = "tableHeader"
	TypeTableCell      NodeType = "tableCell"
	TypeLink           NodeType = "link"
	TypeText           NodeType = "text"
	TypeHardBreak      NodeType = "hardBreak"
	TypeHorizontalRule NodeType = "horizontalRule"
)

// IsList reports whether t is one of the list container types.
func (t NodeType) IsList() bool {
	return t == TypeBulletList || t == TypeOrderedList
}

// IsTextBlock reports whether t holds inline content directly.
func (t NodeType) IsTextBlock() bool {
	return t == TypeParagraph || t == TypeHeading || t == TypeCodeBlock
}

// IsCell reports whether t is a table cell of either kind.
func (t NodeType) IsCell() bool {
	return t == TypeTableCell || t == TypeTableHeader
}

// Key addresses a node inside a Tree. Keys are never reused within a tree.
type Key int

// NoKey is the zero Key; it never addresses a node.
const NoKey Key = 0

type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Node is a snapshot of one arena entry. Mutating a Node value does not
// change the tree; use the Tree methods for that.
type Node struct {
	Key      Key
	Type     NodeType
	Attrs    map[string]any
	Marks    []Mark
	Text     string
	Parent   Key
	Children []Key
}

// Fragment is a detached subtree used to build a tree or splice nodes into one.
type Fragment struct {
	Type    NodeType
	Attrs   map[string]any
	Marks   []Mark
	Text    string
	Content []Fragment
}

var (
	ErrNoNode        = errors.New("document: node not found")
	ErrRootImmutable = errors.New("document: root node cannot be removed or replaced")
	ErrLeaf          = errors.New("document: text nodes cannot have children")
	ErrIndex         = errors.New("document: child index out of range")
	ErrCycle         = errors.New("document: cannot move a node into its own subtree")
)

// Tree is an arena of nodes addressed by stable keys. A Tree is not safe for
// concurrent use; the editor serializes access to it.
type Tree struct {
	nodes map[Key]*Node
	root  Key
	next  Key
	rev   uint64
}

// New returns an empty document: a doc root with no children.
func New() *Tree {
	t := &Tree{nodes: make(map[Key]*Node)}
	t.root = t.alloc(Fragment{Type: TypeDoc}, NoKey)
	return t
}

// FromFragment builds a tree whose root is f. A fragment that is not a doc
// is wrapped in one.
func FromFragment(f Fragment) *Tree {
	t := &Tree{nodes: make(map[Key]*Node)}
	if f.Type != TypeDoc {
		f = Fragment{Type: TypeDoc, Content: []Fragment{f}}
	}
	t.root = t.build(f, NoKey)
	return t
}

func (t *Tree) alloc(f Fragment, parent Key) Key {
	t.next++
	k := t.next
	t.nodes[k] = &Node{
		Key:    k,
		Type:   f.Type,
		Attrs:  cloneAttrs(f.Attrs),
		Marks:  cloneMarks(f.Marks),
		Text:   f.Text,
		Parent: parent,
	}
	return k
}

func (t *Tree) build(f Fragment, parent Key) Key {
	k := t.alloc(f, parent)
	n := t.nodes[k]
	for _, c := range f.Content {
		n.Children = append(n.Children, t.build(c, k))
	}
	return k
}

func (t *Tree) Root() Key { return t.root }

// Revision increases on every structural or content change.
func (t *Tree) Revision() uint64 { return t.rev }

func (t *Tree) Len() int { return len(t.nodes) }

func (t *Tree) Has(k Key) bool {
	_, ok := t.nodes[k]
	return ok
}

// Node returns a copy of the node at k.
func (t *Tree) Node(k Key) (Node, bool) {
	n, ok := t.nodes[k]
	if !ok {
		return Node{}, false
	}
	cp := *n
	cp.Attrs = cloneAttrs(n.Attrs)
	cp.Marks = cloneMarks(n.Marks)
	cp.Children = append([]Key(nil), n.Children...)
	return cp, true
}

func (t *Tree) Type(k Key) NodeType {
	if n, ok := t.nodes[k]; ok {
		return n.Type
	}
	return ""
}

func (t *Tree) Parent(k Key) Key {
	if n, ok := t.nodes[k]; ok {
		return n.Parent
	}
	return NoKey
}

func (t *Tree) Text(k Key) string {
	if n, ok := t.nodes[k]; ok {
		return n.Text
	}
	return ""
}

func (t *Tree) Attr(k Key, name string) (any, bool) {
	n, ok := t.nodes[k]
	if !ok || n.Attrs == nil {
		return nil, false
	}
	v, ok := n.Attrs[name]
	return v, ok
}

func (t *Tree) Marks(k Key) []Mark {
	if n, ok := t.nodes[k]; ok {
		return cloneMarks(n.Marks)
	}
	return nil
}

func (t *Tree) Children(k Key) []Key {
	if n, ok := t.nodes[k]; ok {
		return append([]Key(nil), n.Children...)
	}
	return nil
}

// Index returns the position of k among its siblings, or -1.
func (t *Tree) Index(k Key) int {
	p, ok := t.nodes[t.Parent(k)]
	if !ok {
		return -1
	}
	for i, c := range p.Children {
		if c == k {
			return i
		}
	}
	return -1
}

// Ancestors lists the parents of k from the nearest up to the root.
func (t *Tree) Ancestors(k Key) []Key {
	var out []Key
	for p := t.Parent(k); p != NoKey; p = t.Parent(p) {
		out = append(out, p)
	}
	return out
}

// Closest returns the nearest node, starting at k itself, that satisfies fn.
func (t *Tree) Closest(k Key, fn func(NodeType) bool) Key {
	for cur := k; cur != NoKey; cur = t.Parent(cur) {
		if fn(t.Type(cur)) {
			return cur
		}
	}
	return NoKey
}

// Walk visits the subtree under the root in document order. Returning false
// from fn skips the node's children.
func (t *Tree) Walk(fn func(n Node, depth int) bool) {
	t.walk(t.root, 0, fn)
}

func (t *Tree) WalkFrom(k Key, fn func(n Node, depth int) bool) {
	if t.Has(k) {
		t.walk(k, 0, fn)
	}
}

func (t *Tree) walk(k Key, depth int, fn func(Node, int) bool) {
	n, _ := t.Node(k)
	if !fn(n, depth) {
		return
	}
	for _, c := range n.Children {
		t.walk(c, depth+1, fn)
	}
}

// TextContent concatenates the text of every text node under k.
func (t *Tree) TextContent(k Key) string {
	var b strings.Builder
	t.WalkFrom(k, func(n Node, _ int) bool {
		b.WriteString(n.Text)
		return true
	})
	return b.String()
}

// TextNodes lists the text nodes under k in document order.
func (t *Tree) TextNodes(k Key) []Key {
	var out []Key
	t.WalkFrom(k, func(n Node, _ int) bool {
		if n.Type == TypeText {
			out = append(out, n.Key)
		}
		return true
	})
	return out
}

// Insert builds f and places it at index among parent's children.
func (t *Tree) Insert(parent Key, index int, f Fragment) (Key, error) {
	p, ok := t.nodes[parent]
	if !ok {
		return NoKey, fmt.Errorf("insert into %d: %w", parent, ErrNoNode)
	}
	if p.Type == TypeText {
		return NoKey, ErrLeaf
	}
	if index < 0 || index > len(p.Children) {
		return NoKey, fmt.Errorf("insert at %d of %d: %w", index, len(p.Children), ErrIndex)
	}
	k := t.build(f, parent)
	p.Children = insertKeys(p.Children, index, k)
	t.rev++
	return k, nil
}

func (t *Tree) Append(parent Key, f Fragment) (Key, error) {
	p, ok := t.nodes[parent]
	if !ok {
		return NoKey, fmt.Errorf("append to %d: %w", parent, ErrNoNode)
	}
	return t.Insert(parent, len(p.Children), f)
}

// Remove detaches k and drops its whole subtree from the arena.
func (t *Tree) Remove(k Key) error {
	n, ok := t.nodes[k]
	if !ok {
		return fmt.Errorf("remove %d: %w", k, ErrNoNode)
	}
	if k == t.root {
		return ErrRootImmutable
	}
	p := t.nodes[n.Parent]
	p.Children = removeKey(p.Children, k)
	t.drop(k)
	t.rev++
	return nil
}

func (t *Tree) drop(k Key) {
	n := t.nodes[k]
	for _, c := range n.Children {
		t.drop(c)
	}
	delete(t.nodes, k)
}

// Replace splices fs into the position held by k and removes k's subtree.
// It returns the keys of the new nodes in order.
func (t *Tree) Replace(k Key, fs ...Fragment) ([]Key, error) {
	n, ok := t.nodes[k]
	if !ok {
		return nil, fmt.Errorf("replace %d: %w", k, ErrNoNode)
	}
	if k == t.root {
		return nil, ErrRootImmutable
	}
	parent := n.Parent
	idx := t.Index(k)
	p := t.nodes[parent]
	p.Children = removeKey(p.Children, k)
	t.drop(k)

	keys := make([]Key, 0, len(fs))
	for i, f := range fs {
		nk := t.build(f, parent)
		p.Children = insertKeys(p.Children, idx+i, nk)
		keys = append(keys, nk)
	}
	t.rev++
	return keys, nil
}

// Move re-parents k under parent at index, keeping k and its subtree's keys.
func (t *Tree) Move(k, parent Key, index int) error {
	n, ok := t.nodes[k]
	if !ok {
		return fmt.Errorf("move %d: %w", k, ErrNoNode)
	}
	if k == t.root {
		return ErrRootImmutable
	}
	dst, ok := t.nodes[parent]
	if !ok {
		return fmt.Errorf("move into %d: %w", parent, ErrNoNode)
	}
	if dst.Type == TypeText {
		return ErrLeaf
	}
	if parent == k || containsKey(t.Ancestors(parent), k) {
		return ErrCycle
	}
	src := t.nodes[n.Parent]
	src.Children = removeKey(src.Children, k)
	if index < 0 || index > len(dst.Children) {
		index = len(dst.Children)
	}
	dst.Children = insertKeys(dst.Children, index, k)
	n.Parent = parent
	t.rev++
	return nil
}

func (t *Tree) SetText(k Key, text string) error {
	n, ok := t.nodes[k]
	if !ok {
		return fmt.Errorf("set text %d: %w", k, ErrNoNode)
	}
	n.Text = text
	t.rev++
	return nil
}

func (t *Tree) SetType(k Key, typ NodeType) error {
	n, ok := t.nodes[k]
	if !ok {
		return fmt.Errorf("set type %d: %w", k, ErrNoNode)
	}
	if k == t.root && typ != TypeDoc {
		return ErrRootImmutable
	}
	n.Type = typ
	t.rev++
	return nil
}

// SetAttrs replaces the attribute set of k. A nil map clears it.
func (t *Tree) SetAttrs(k Key, attrs map[string]any) error {
	n, ok := t.nodes[k]
	if !ok {
		return fmt.Errorf("set attrs %d: %w", k, ErrNoNode)
	}
	n.Attrs = cloneAttrs(attrs)
	t.rev++
	return nil
}

func (t *Tree) SetMarks(k Key, marks []Mark) error {
	n, ok := t.nodes[k]
	if !ok {
		return fmt.Errorf("set marks %d: %w", k, ErrNoNode)
	}
	n.Marks = cloneMarks(marks)
	t.rev++
	return nil
}

// Fragment detaches a deep copy of the subtree at k.
func (t *Tree) Fragment(k Key) Fragment {
	n, ok := t.nodes[k]
	if !ok {
		return Fragment{}
	}
	f := Fragment{
		Type:  n.Type,
		Attrs: cloneAttrs(n.Attrs),
		Marks: cloneMarks(n.Marks),
		Text:  n.Text,
	}
	for _, c := range n.Children {
		f.Content = append(f.Content, t.Fragment(c))
	}
	return f
}

// Clone returns an independent copy that keeps every key.
func (t *Tree) Clone() *Tree {
	cp := &Tree{nodes: make(map[Key]*Node, len(t.nodes)), root: t.root, next: t.next, rev: t.rev}
	for k, n := range t.nodes {
		c := *n
		c.Attrs = cloneAttrs(n.Attrs)
		c.Marks = cloneMarks(n.Marks)
		c.Children = append([]Key(nil), n.Children...)
		cp.nodes[k] = &c
	}
	return cp
}

// Validate reports structural problems: table children that are not rows,
// row children that are not cells, and rows whose cell count differs from
// the first row of their table.
func (t *Tree) Validate() error {
	var errs []error
	t.Walk(func(n Node, _ int) bool {
		switch n.Type {
		case TypeTable:
			width := -1
			for i, r := range n.Children {
				if t.Type(r) != TypeTableRow {
					errs = append(errs, fmt.Errorf("table %d: child %d is %q, want tableRow", n.Key, i, t.Type(r)))
					continue
				}
				cells := len(t.nodes[r].Children)
				if width < 0 {
					width = cells
				} else if cells != width {
					errs = append(errs, fmt.Errorf("table %d: row %d has %d cells, want %d", n.Key, i, cells, width))
				}
			}
		case TypeTableRow:
			for i, c := range n.Children {
				if !t.Type(c).IsCell() {
					errs = append(errs, fmt.Errorf("row %d: child %d is %q, want a cell", n.Key, i, t.Type(c)))
				}
			}
		case TypeText:
			if len(n.Children) > 0 {
				errs = append(errs, fmt.Errorf("text %d: %w", n.Key, ErrLeaf))
			}
		}
		return true
	})
	return errors.Join(errs...)
}

// IntAttr reads a numeric attribute. JSON numbers decode as float64.
func IntAttr(attrs map[string]any, name string, fallback int) int {
	switch v := attrs[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return fallback
}

func StringAttr(attrs map[string]any, name string) string {
	s, _ := attrs[name].(string)
	return s
}

func HasMark(marks []Mark, typ string) bool {
	for _, m := range marks {
		if m.Type == typ {
			return true
		}
	}
	return false
}

func insertKeys(s []Key, i int, k Key) []Key {
	s = append(s, NoKey)
	copy(s[i+1:], s[i:])
	s[i] = k
	return s
}

func removeKey(s []Key, k Key) []Key {
	for i, c := range s {
		if c == k {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

func containsKey(s []Key, k Key) bool {
	for _, c := range s {
		if c == k {
			return true
		}
	}
	return false
}

func cloneAttrs(a map[string]any) map[string]any {
	if a == nil {
		return nil
	}
	out := make(map[string]any, len(a))
	for k, v := range a {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return cloneAttrs(x)
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = cloneValue(x[i])
		}
		return out
	}
	return v
}

func cloneMarks(m []Mark) []Mark {
	if m == nil {
		return nil
	}
	out := make([]Mark, len(m))
	for i := range m {
		out[i] = Mark{Type: m[i].Type, Attrs: cloneAttrs(m[i].Attrs)}
	}
	return out
}
