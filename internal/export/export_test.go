package export

import (
	"context"
	"errors"
	"html/template"
	"strings"
	"testing"

	"notionclone/client/internal/document"
)

func parse(t *testing.T, src string) *document.Tree {
	t.Helper()
	tree, err := document.Parse([]byte(src))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return tree
}

func TestToHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty document",
			input:    `{"type":"doc","content":[]}`,
			expected: "",
		},
		{
			name:     "simple paragraph",
			input:    `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"Hello world"}]}]}`,
			expected: "<p>Hello world</p>",
		},
		{
			name:     "heading with levels",
			input:    `{"type":"doc","content":[{"type":"heading","attrs":{"level":2},"content":[{"type":"text","text":"Section Title"}]}]}`,
			expected: "<h2>Section Title</h2>",
		},
		{
			name:     "bold and italic text",
			input:    `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"both","marks":[{"type":"bold"},{"type":"italic"}]}]}]}`,
			expected: "<p><strong><em>both</em></strong></p>",
		},
		{
			name:     "escapes text",
			input:    `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"a < b & c"}]}]}`,
			expected: "<p>a &lt; b &amp; c</p>",
		},
		{
			name:     "link node",
			input:    `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"link","attrs":{"href":"mailto:ada@example.com"},"content":[{"type":"text","text":"ada@example.com"}]}]}]}`,
			expected: `<a href="mailto:ada@example.com">ada@example.com</a>`,
		},
		{
			name:     "script link is neutralized",
			input:    `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"x","marks":[{"type":"link","attrs":{"href":"javascript:alert(1)"}}]}]}]}`,
			expected: `<a href="#">x</a>`,
		},
		{
			name:     "ordered list start",
			input:    `{"type":"doc","content":[{"type":"orderedList","attrs":{"start":3},"content":[{"type":"listItem","content":[{"type":"paragraph","content":[{"type":"text","text":"three"}]}]}]}]}`,
			expected: "<ol start=\"3\">\n<li><p>three</p>\n</li>\n</ol>",
		},
		{
			name:     "table",
			input:    `{"type":"doc","content":[{"type":"table","content":[{"type":"tableRow","content":[{"type":"tableHeader","content":[{"type":"paragraph","content":[{"type":"text","text":"H"}]}]}]},{"type":"tableRow","content":[{"type":"tableCell","content":[{"type":"paragraph","content":[{"type":"text","text":"C"}]}]}]}]}]}`,
			expected: "<th><p>H</p>\n</th>",
		},
		{
			name:     "code block",
			input:    `{"type":"doc","content":[{"type":"codeBlock","attrs":{"language":"go"},"content":[{"type":"text","text":"if a < b {}"}]}]}`,
			expected: `<pre><code class="language-go">if a &lt; b {}</code></pre>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := strings.TrimSpace(ToHTML(parse(t, tt.input)))
			if !strings.Contains(result, tt.expected) {
				t.Errorf("ToHTML() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestToMarkdown(t *testing.T) {
	doc := parse(t, `{"type":"doc","content":[
		{"type":"heading","attrs":{"level":2},"content":[{"type":"text","text":"Plan"}]},
		{"type":"paragraph","content":[
			{"type":"text","text":"Ship "},
			{"type":"text","text":"today","marks":[{"type":"bold"}]},
			{"type":"text","text":" via "},
			{"type":"link","attrs":{"href":"https://example.com"},"content":[{"type":"text","text":"site"}]}
		]},
		{"type":"bulletList","content":[
			{"type":"listItem","content":[
				{"type":"paragraph","content":[{"type":"text","text":"one"}]},
				{"type":"bulletList","content":[{"type":"listItem","content":[{"type":"paragraph","content":[{"type":"text","text":"nested"}]}]}]}
			]},
			{"type":"listItem","content":[{"type":"paragraph","content":[{"type":"text","text":"two"}]}]}
		]},
		{"type":"blockquote","content":[{"type":"paragraph","content":[{"type":"text","text":"quoted"}]}]},
		{"type":"table","content":[
			{"type":"tableRow","content":[
				{"type":"tableHeader","content":[{"type":"paragraph","content":[{"type":"text","text":"A"}]}]},
				{"type":"tableHeader","content":[{"type":"paragraph","content":[{"type":"text","text":"B"}]}]}
			]},
			{"type":"tableRow","content":[
				{"type":"tableCell","content":[{"type":"paragraph","content":[{"type":"text","text":"1|2"}]}]},
				{"type":"tableCell","content":[{"type":"paragraph"}]}
			]}
		]}
	]}`)

	want := strings.Join([]string{
		"## Plan",
		"",
		"Ship **today** via [site](https://example.com)",
		"",
		"- one",
		"  - nested",
		"- two",
		"",
		"> quoted",
		"",
		"| A | B |",
		"| --- | --- |",
		`| 1\|2 |  |`,
		"",
	}, "\n")
	if got := ToMarkdown(doc); got != want {
		t.Fatalf("ToMarkdown() mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestMarkdownRoundTripThroughImport(t *testing.T) {
	src := "# Title\n\nSome *emphasis* and `code`.\n\n1. first\n2. second\n"
	tree := document.FromMarkdown([]byte(src))
	out := ToMarkdown(tree)
	for _, want := range []string{"# Title", "_emphasis_", "`code`", "1. first", "2. second"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "Hello-World"},
		{"My Document v1.2", "My-Document-v12"},
		{"Special!@#$%Chars", "SpecialChars"},
		{"", "document"},
		{"Very Long Title That Exceeds Fifty Characters Limit", "Very-Long-Title-That-Exceeds-Fifty-Characters-Limi"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := sanitizeFilename(tt.input)
			if result != tt.expected {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello world", "hello%20world"},
		{"test+sign", "test%2Bsign"},
		{"special<>", "special%3C%3E"},
		{"normal-text.txt", "normal-text.txt"},
		{"é", "%C3%A9"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := percentEncodeForDataURL(tt.input)
			if result != tt.expected {
				t.Errorf("percentEncodeForDataURL(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRenderDocumentHTML(t *testing.T) {
	html, err := RenderDocumentHTML(TemplateData{
		Title:       "Test <Page>",
		ContentHTML: template.HTML("<p>This is the content.</p>"),
		Author:      "Test Author",
		Workspace:   "Team Space",
		WordCount:   4,
	})
	if err != nil {
		t.Fatalf("RenderDocumentHTML() error = %v", err)
	}
	if !strings.Contains(html, "Test &lt;Page&gt;") {
		t.Error("title should be escaped")
	}
	if !strings.Contains(html, "<p>This is the content.</p>") {
		t.Error("HTML content should contain unescaped <p> tags")
	}
	for _, want := range []string{"Team Space", "Test Author", "4 words"} {
		if !strings.Contains(html, want) {
			t.Errorf("HTML missing %q", want)
		}
	}
}

func TestExportFormats(t *testing.T) {
	e := New(nil)
	page := Page{ID: "p1", Title: "Weekly Notes", Doc: parse(t, `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"hello"}]}]}`)}

	res, err := e.Export(context.Background(), page, FormatMarkdown)
	if err != nil {
		t.Fatalf("markdown export: %v", err)
	}
	if res.Filename != "Weekly-Notes.md" || string(res.Data) != "# Weekly Notes\n\nhello\n" {
		t.Fatalf("unexpected markdown result %q %q", res.Filename, res.Data)
	}

	res, err = e.Export(context.Background(), page, FormatHTML)
	if err != nil {
		t.Fatalf("html export: %v", err)
	}
	if res.Filename != "Weekly-Notes.html" || !strings.Contains(string(res.Data), "<p>hello</p>") {
		t.Fatalf("unexpected html result %q", res.Filename)
	}

	if _, err := e.Export(context.Background(), page, Format("rtf")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExportReportsMissingTools(t *testing.T) {
	e := New(nil)
	e.lookPath = func(string) (string, error) { return "", errors.New("not found") }
	page := Page{Title: "x"}

	if _, err := e.Export(context.Background(), page, FormatPDF); !errors.Is(err, ErrPDFDependencyMissing) {
		t.Fatalf("expected ErrPDFDependencyMissing, got %v", err)
	}
	if _, err := e.Export(context.Background(), page, FormatDOCX); !errors.Is(err, ErrDOCXDependencyMissing) {
		t.Fatalf("expected ErrDOCXDependencyMissing, got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"markdown": FormatMarkdown, "PDF": FormatPDF, "word": FormatDOCX, "htm": FormatHTML} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("odt"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}
