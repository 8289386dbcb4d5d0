package editor

import (
	"errors"
	"fmt"

	"notionclone/client/internal/document"
)

type CommandID int

const (
	CommandInsertTable CommandID = iota + 1
	CommandInsertTableDefault
	CommandAddRow
	CommandAddColumn
	CommandDeleteRow
	CommandDeleteColumn
	CommandIndent
	CommandOutdent
	CommandFormatText
	CommandFormatBlock
	CommandInsertText
	CommandInsertParagraph
	CommandSetSelection
)

var commandNames = map[CommandID]string{
	CommandInsertTable:        "insert-table",
	CommandInsertTableDefault: "insert-table-default",
	CommandAddRow:             "add-row",
	CommandAddColumn:          "add-column",
	CommandDeleteRow:          "delete-row",
	CommandDeleteColumn:       "delete-column",
	CommandIndent:             "indent",
	CommandOutdent:            "outdent",
	CommandFormatText:         "format-text",
	CommandFormatBlock:        "format-block",
	CommandInsertText:         "insert-text",
	CommandInsertParagraph:    "insert-paragraph",
	CommandSetSelection:       "set-selection",
}

func (c CommandID) String() string {
	if s, ok := commandNames[c]; ok {
		return s
	}
	return fmt.Sprintf("command(%d)", int(c))
}

// mutates reports whether the command can change the document.
func (c CommandID) mutates() bool {
	return c != CommandSetSelection
}

// Result is what a handler reports back to the dispatcher.
type Result int

const (
	// Unhandled lets the next handler run.
	Unhandled Result = iota
	// HandledContinue marks the command handled but keeps dispatching.
	HandledContinue
	// HandledStop marks the command handled and ends dispatch.
	HandledStop
)

func (r Result) String() string {
	switch r {
	case HandledContinue:
		return "handled-continue"
	case HandledStop:
		return "handled-stop"
	default:
		return "unhandled"
	}
}

const (
	PriorityDefault = 0
	PriorityPlugin  = 1
)

// TableSize is the payload of CommandInsertTable. Zero values fall back to
// the default 3x3 table.
type TableSize struct {
	Rows    int
	Columns int
}

// TableTarget is the payload of the row and column commands. A zero Table
// means the table enclosing the selection.
type TableTarget struct {
	Table document.Key
}

// TextInput is the payload of CommandInsertText.
type TextInput struct {
	Text string
}

type TextFormat string

const (
	FormatBold          TextFormat = "bold"
	FormatItalic        TextFormat = "italic"
	FormatUnderline     TextFormat = "underline"
	FormatStrikethrough TextFormat = "strike"
	FormatCode          TextFormat = "code"
)

type BlockFormat string

const (
	BlockParagraph BlockFormat = "paragraph"
	BlockH1        BlockFormat = "h1"
	BlockH2        BlockFormat = "h2"
	BlockH3        BlockFormat = "h3"
	BlockBullet    BlockFormat = "bullet"
	BlockNumber    BlockFormat = "number"
	BlockQuote     BlockFormat = "quote"
	BlockCode      BlockFormat = "code"
)

const DefaultTableSize = 3

var (
	ErrReadOnly       = errors.New("editor: document is read-only")
	ErrTableMinimum   = errors.New("editor: a table keeps at least one row and one column")
	ErrNoSelection    = errors.New("editor: no selection")
	ErrInvalidPayload = errors.New("editor: invalid command payload")
)

func payloadError(cmd CommandID, payload any) error {
	return fmt.Errorf("%s: unexpected payload %T: %w", cmd, payload, ErrInvalidPayload)
}
