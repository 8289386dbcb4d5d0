package editor

import (
	"fmt"

	"notionclone/client/internal/document"
)

func tableFragment(rows, cols int) document.Fragment {
	table := document.Fragment{Type: document.TypeTable}
	for r := 0; r < rows; r++ {
		cellType := document.TypeTableCell
		if r == 0 {
			cellType = document.TypeTableHeader
		}
		table.Content = append(table.Content, rowFragment(cellType, cols))
	}
	return table
}

func rowFragment(cellType document.NodeType, cols int) document.Fragment {
	row := document.Fragment{Type: document.TypeTableRow}
	for c := 0; c < cols; c++ {
		row.Content = append(row.Content, cellFragment(cellType))
	}
	return row
}

func cellFragment(cellType document.NodeType) document.Fragment {
	return document.Fragment{
		Type:    cellType,
		Content: []document.Fragment{{Type: document.TypeParagraph}},
	}
}

func insertTable(s *State, payload any) (Result, error) {
	size, ok := payload.(TableSize)
	if !ok {
		return Unhandled, payloadError(CommandInsertTable, payload)
	}
	return s.insertTable(size)
}

func insertTableDefault(s *State, _ any) (Result, error) {
	return s.insertTable(TableSize{Rows: DefaultTableSize, Columns: DefaultTableSize})
}

func (s *State) insertTable(size TableSize) (Result, error) {
	if s.focusKey() == document.NoKey {
		return Unhandled, nil
	}
	if size.Rows < 0 || size.Columns < 0 {
		return Unhandled, fmt.Errorf("table %dx%d: %w", size.Rows, size.Columns, ErrInvalidPayload)
	}
	if size.Rows == 0 {
		size.Rows = DefaultTableSize
	}
	if size.Columns == 0 {
		size.Columns = DefaultTableSize
	}

	parent, index := s.insertionPoint()
	table, err := s.Tree.Insert(parent, index, tableFragment(size.Rows, size.Columns))
	if err != nil {
		return HandledStop, fmt.Errorf("insert table: %w", err)
	}
	s.caretInto(table)
	return HandledStop, nil
}

// tableFor resolves the table a row or column command targets.
func (s *State) tableFor(cmd CommandID, payload any) (document.Key, error) {
	var target TableTarget
	switch p := payload.(type) {
	case nil:
	case TableTarget:
		target = p
	default:
		return document.NoKey, payloadError(cmd, payload)
	}
	if target.Table != document.NoKey {
		if s.Tree.Type(target.Table) != document.TypeTable {
			return document.NoKey, fmt.Errorf("%s: key %d is not a table: %w", cmd, target.Table, ErrInvalidPayload)
		}
		return target.Table, nil
	}
	return s.closest(document.TypeTable), nil
}

func (s *State) tableWidth(table document.Key) int {
	rows := s.Tree.Children(table)
	if len(rows) == 0 {
		return 0
	}
	return len(s.Tree.Children(rows[0]))
}

func addRow(s *State, payload any) (Result, error) {
	table, err := s.tableFor(CommandAddRow, payload)
	if err != nil || table == document.NoKey {
		return Unhandled, err
	}
	cols := s.tableWidth(table)
	if cols == 0 {
		cols = 1
	}
	if _, err := s.Tree.Append(table, rowFragment(document.TypeTableCell, cols)); err != nil {
		return HandledStop, fmt.Errorf("add row: %w", err)
	}
	return HandledStop, nil
}

func addColumn(s *State, payload any) (Result, error) {
	table, err := s.tableFor(CommandAddColumn, payload)
	if err != nil || table == document.NoKey {
		return Unhandled, err
	}
	rows := s.Tree.Children(table)
	if len(rows) == 0 {
		if _, err := s.Tree.Append(table, rowFragment(document.TypeTableHeader, 1)); err != nil {
			return HandledStop, fmt.Errorf("add column: %w", err)
		}
		return HandledStop, nil
	}
	for _, row := range rows {
		cellType := document.TypeTableCell
		if cells := s.Tree.Children(row); len(cells) > 0 && s.Tree.Type(cells[0]) == document.TypeTableHeader {
			cellType = document.TypeTableHeader
		}
		if _, err := s.Tree.Append(row, cellFragment(cellType)); err != nil {
			return HandledStop, fmt.Errorf("add column: %w", err)
		}
	}
	return HandledStop, nil
}

func deleteRow(s *State, payload any) (Result, error) {
	table, err := s.tableFor(CommandDeleteRow, payload)
	if err != nil || table == document.NoKey {
		return Unhandled, err
	}
	rows := s.Tree.Children(table)
	if len(rows) <= 1 {
		return HandledStop, ErrTableMinimum
	}
	last := rows[len(rows)-1]
	moveCaret := s.within(last)
	if err := s.Tree.Remove(last); err != nil {
		return HandledStop, fmt.Errorf("delete row: %w", err)
	}
	if moveCaret {
		s.caretInto(table)
	}
	return HandledStop, nil
}

func deleteColumn(s *State, payload any) (Result, error) {
	table, err := s.tableFor(CommandDeleteColumn, payload)
	if err != nil || table == document.NoKey {
		return Unhandled, err
	}
	if s.tableWidth(table) <= 1 {
		return HandledStop, ErrTableMinimum
	}
	moveCaret := false
	for _, row := range s.Tree.Children(table) {
		cells := s.Tree.Children(row)
		if len(cells) <= 1 {
			continue
		}
		last := cells[len(cells)-1]
		moveCaret = moveCaret || s.within(last)
		if err := s.Tree.Remove(last); err != nil {
			return HandledStop, fmt.Errorf("delete column: %w", err)
		}
	}
	if moveCaret {
		s.caretInto(table)
	}
	return HandledStop, nil
}
