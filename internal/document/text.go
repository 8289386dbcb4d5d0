package document

import "strings"

// PlainText flattens the document, one line per text block.
func PlainText(t *Tree) string {
	var lines []string
	t.Walk(func(n Node, _ int) bool {
		if n.Type.IsTextBlock() {
			lines = append(lines, t.TextContent(n.Key))
			return false
		}
		return true
	})
	return strings.Join(lines, "\n")
}

func WordCount(t *Tree) int {
	return len(strings.Fields(PlainText(t)))
}
