package editor

import (
	"fmt"

	"notionclone/client/internal/document"
)

// DefaultMaxIndent is the deepest list nesting indent will create.
const DefaultMaxIndent = 4

// listDepth counts the list nodes above k.
func (s *State) listDepth(k document.Key) int {
	depth := 0
	for _, a := range s.Tree.Ancestors(k) {
		if s.Tree.Type(a).IsList() {
			depth++
		}
	}
	return depth
}

func limitIndent(s *State, _ any) (Result, error) {
	item := s.closest(document.TypeListItem)
	if item == document.NoKey {
		return Unhandled, nil
	}
	if s.listDepth(item) >= s.maxIndent {
		return HandledStop, nil
	}
	return Unhandled, nil
}

// indent nests the current item into a sub-list of its previous sibling.
func indent(s *State, _ any) (Result, error) {
	t := s.Tree
	item := s.closest(document.TypeListItem)
	if item == document.NoKey {
		return Unhandled, nil
	}
	list := t.Parent(item)
	idx := t.Index(item)
	if idx <= 0 {
		return HandledStop, nil
	}
	prev := t.Children(list)[idx-1]

	var sub document.Key
	if kids := t.Children(prev); len(kids) > 0 && t.Type(kids[len(kids)-1]) == t.Type(list) {
		sub = kids[len(kids)-1]
	} else {
		listNode, _ := t.Node(list)
		var err error
		sub, err = t.Append(prev, document.Fragment{Type: listNode.Type, Attrs: listNode.Attrs})
		if err != nil {
			return HandledStop, fmt.Errorf("indent: %w", err)
		}
	}
	if err := t.Move(item, sub, len(t.Children(sub))); err != nil {
		return HandledStop, fmt.Errorf("indent: %w", err)
	}
	return HandledStop, nil
}

// nestedList reports the list item and outer list that hold list, if list
// is itself nested inside another list.
func (s *State) nestedList(list document.Key) (parentItem, outer document.Key, ok bool) {
	parentItem = s.Tree.Parent(list)
	if s.Tree.Type(parentItem) != document.TypeListItem {
		return document.NoKey, document.NoKey, false
	}
	outer = s.Tree.Parent(parentItem)
	if !s.Tree.Type(outer).IsList() {
		return document.NoKey, document.NoKey, false
	}
	return parentItem, outer, true
}

func guardOutdent(s *State, _ any) (Result, error) {
	item := s.closest(document.TypeListItem)
	if item == document.NoKey {
		return Unhandled, nil
	}
	if _, _, ok := s.nestedList(s.Tree.Parent(item)); !ok {
		return HandledStop, nil
	}
	return Unhandled, nil
}

// outdent lifts the current item next to the item that contains its list.
func outdent(s *State, _ any) (Result, error) {
	t := s.Tree
	item := s.closest(document.TypeListItem)
	if item == document.NoKey {
		return Unhandled, nil
	}
	list := t.Parent(item)
	parentItem, outer, ok := s.nestedList(list)
	if !ok {
		return HandledStop, nil
	}
	if err := t.Move(item, outer, t.Index(parentItem)+1); err != nil {
		return HandledStop, fmt.Errorf("outdent: %w", err)
	}
	if len(t.Children(list)) == 0 {
		if err := t.Remove(list); err != nil {
			return HandledStop, fmt.Errorf("outdent: %w", err)
		}
	}
	return HandledStop, nil
}
