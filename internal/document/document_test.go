package document

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrEmptyDegradesToEmptyDocument(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"null",
		"not json",
		`{"type":"doc"`,
		`[1,2,3]`,
		`"a string"`,
		`42`,
		`{"type":"paragraph","content":[]}`,
		`{"content":[{"type":"paragraph"}]}`,
	}
	for _, in := range inputs {
		tree := ParseOrEmpty(in)
		require.NotNil(t, tree, "input %q", in)
		assert.Equal(t, TypeDoc, tree.Type(tree.Root()), "input %q", in)
		assert.Empty(t, tree.Children(tree.Root()), "input %q", in)

		out, err := Marshal(tree)
		require.NoError(t, err)
		assert.JSONEq(t, EmptyJSON, string(out), "input %q", in)
	}
}

func TestParseSkipsUntypedChildren(t *testing.T) {
	tree, err := Parse([]byte(`{"type":"doc","content":[null,{"type":"paragraph","content":[{"text":"lost"},{"type":"text","text":"kept"}]},{}]}`))
	require.NoError(t, err)

	children := tree.Children(tree.Root())
	require.Len(t, children, 1)
	assert.Equal(t, TypeParagraph, tree.Type(children[0]))
	assert.Equal(t, "kept", tree.TextContent(children[0]))

	out, err := Marshal(tree)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"kept"}]}]}`, string(out))
}

func TestRoundTripPreservesStructure(t *testing.T) {
	src := Fragment{Type: TypeDoc, Content: []Fragment{
		{Type: TypeHeading, Attrs: map[string]any{"level": float64(2)}, Content: []Fragment{
			{Type: TypeText, Text: "Plan"},
		}},
		{Type: TypeParagraph, Content: []Fragment{
			{Type: TypeText, Text: "plain "},
			{Type: TypeText, Text: "bold", Marks: []Mark{{Type: "bold"}}},
			{Type: TypeLink, Attrs: map[string]any{"href": "https://example.com"}, Content: []Fragment{
				{Type: TypeText, Text: "site", Marks: []Mark{{Type: "italic"}, {Type: "link", Attrs: map[string]any{"href": "x"}}}},
			}},
		}},
		{Type: TypeBulletList, Content: []Fragment{
			{Type: TypeListItem, Content: []Fragment{{Type: TypeParagraph, Content: []Fragment{{Type: TypeText, Text: "one"}}}}},
			{Type: TypeListItem, Content: []Fragment{{Type: TypeParagraph, Content: []Fragment{{Type: TypeText, Text: "two"}}}}},
		}},
		{Type: TypeTable, Content: []Fragment{
			{Type: TypeTableRow, Content: []Fragment{{Type: TypeTableHeader, Content: []Fragment{{Type: TypeParagraph}}}}},
			{Type: TypeTableRow, Content: []Fragment{{Type: TypeTableCell, Content: []Fragment{{Type: TypeParagraph}}}}},
		}},
		{Type: "callout", Attrs: map[string]any{"emoji": "!"}},
	}}

	tree := FromFragment(src)
	data, err := Marshal(tree)
	require.NoError(t, err)

	back, err := Parse(data)
	require.NoError(t, err)

	if diff := cmp.Diff(src, back.Fragment(back.Root()), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRejectsNonDocRoot(t *testing.T) {
	_, err := Parse([]byte(`{"type":"paragraph"}`))
	require.ErrorIs(t, err, ErrNoRoot)

	_, err = Parse([]byte(`null`))
	require.ErrorIs(t, err, ErrNoRoot)
}

func TestUnmarshalJSONField(t *testing.T) {
	var page struct {
		Doc *Tree `json:"doc"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"doc":{"type":"doc","content":[{"type":"paragraph"}]}}`), &page))
	require.NotNil(t, page.Doc)
	assert.Len(t, page.Doc.Children(page.Doc.Root()), 1)
}

func TestReplaceSplicesAtSamePosition(t *testing.T) {
	tree := New()
	p, err := tree.Append(tree.Root(), Fragment{Type: TypeParagraph})
	require.NoError(t, err)
	a, _ := tree.Append(p, Fragment{Type: TypeText, Text: "a"})
	b, _ := tree.Append(p, Fragment{Type: TypeText, Text: "b"})
	c, _ := tree.Append(p, Fragment{Type: TypeText, Text: "c"})

	keys, err := tree.Replace(b, Fragment{Type: TypeText, Text: "x"}, Fragment{Type: TypeText, Text: "y"})
	require.NoError(t, err)
	require.Len(t, keys, 2)

	assert.Equal(t, []Key{a, keys[0], keys[1], c}, tree.Children(p))
	assert.False(t, tree.Has(b))
	assert.Equal(t, "axyc", tree.TextContent(p))
	for _, k := range keys {
		assert.Equal(t, p, tree.Parent(k))
	}
}

func TestKeysStayStableAcrossEdits(t *testing.T) {
	tree := New()
	first, _ := tree.Append(tree.Root(), Fragment{Type: TypeParagraph})
	second, _ := tree.Append(tree.Root(), Fragment{Type: TypeParagraph})
	require.NoError(t, tree.Remove(first))

	third, _ := tree.Append(tree.Root(), Fragment{Type: TypeParagraph})
	assert.NotEqual(t, first, third, "keys must not be reused")
	assert.True(t, tree.Has(second))
	assert.Equal(t, 0, tree.Index(second))
}

func TestMoveRejectsCycles(t *testing.T) {
	tree := New()
	list, _ := tree.Append(tree.Root(), Fragment{Type: TypeBulletList})
	item, _ := tree.Append(list, Fragment{Type: TypeListItem})

	require.ErrorIs(t, tree.Move(list, item, 0), ErrCycle)
	require.ErrorIs(t, tree.Remove(tree.Root()), ErrRootImmutable)
}

func TestCloneIsIndependent(t *testing.T) {
	tree := New()
	p, _ := tree.Append(tree.Root(), Fragment{Type: TypeParagraph})
	txt, _ := tree.Append(p, Fragment{Type: TypeText, Text: "hello"})

	cp := tree.Clone()
	require.NoError(t, tree.SetText(txt, "changed"))

	assert.Equal(t, "hello", cp.Text(txt))
	assert.Equal(t, "changed", tree.Text(txt))
}

func TestValidateReportsRaggedTables(t *testing.T) {
	tree := FromFragment(Fragment{Type: TypeDoc, Content: []Fragment{
		{Type: TypeTable, Content: []Fragment{
			{Type: TypeTableRow, Content: []Fragment{{Type: TypeTableCell}, {Type: TypeTableCell}}},
			{Type: TypeTableRow, Content: []Fragment{{Type: TypeTableCell}}},
			{Type: TypeParagraph},
		}},
	}})
	err := tree.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has 1 cells, want 2")
	assert.Contains(t, err.Error(), `is "paragraph", want tableRow`)

	assert.NoError(t, New().Validate())
}

func TestFromMarkdown(t *testing.T) {
	src := "# Title\n\nSome **bold** and _it_ text with `code`.\n\n- one\n- two\n\n> quoted\n\n```go\nfmt.Println()\n```\n\n---\n\n[site](https://example.com)\n"
	tree := FromMarkdown([]byte(src))

	var types []NodeType
	for _, k := range tree.Children(tree.Root()) {
		types = append(types, tree.Type(k))
	}
	assert.Equal(t, []NodeType{TypeHeading, TypeParagraph, TypeBulletList, TypeBlockquote, TypeCodeBlock, TypeHorizontalRule, TypeParagraph}, types)

	heading, _ := tree.Node(tree.Children(tree.Root())[0])
	assert.Equal(t, 1, IntAttr(heading.Attrs, "level", 0))

	para := tree.Children(tree.Root())[1]
	var bold []string
	for _, k := range tree.TextNodes(para) {
		if HasMark(tree.Marks(k), "bold") {
			bold = append(bold, tree.Text(k))
		}
	}
	assert.Equal(t, []string{"bold"}, bold)

	code, _ := tree.Node(tree.Children(tree.Root())[4])
	assert.Equal(t, "go", StringAttr(code.Attrs, "language"))
	assert.Equal(t, "fmt.Println()", tree.TextContent(code.Key))

	link := tree.Children(tree.Children(tree.Root())[6])[0]
	assert.Equal(t, TypeLink, tree.Type(link))
	href, _ := tree.Attr(link, "href")
	assert.Equal(t, "https://example.com", href)
}

func TestPlainTextAndWordCount(t *testing.T) {
	tree := FromMarkdown([]byte("Hello world\n\n- one item\n"))
	assert.Equal(t, "Hello world\none item", PlainText(tree))
	assert.Equal(t, 4, WordCount(tree))
}
