// Package pagetree arranges a workspace's flat page list into the sidebar
// hierarchy.
package pagetree

import "notionclone/client/internal/api"

type Node struct {
	Page     api.Page
	Children []*Node
}

// Build links pages to their parents, keeping server order among siblings.
// Pages whose parent is missing, or whose parent chain loops, become roots.
func Build(pages []api.Page) []*Node {
	nodes := make(map[string]*Node, len(pages))
	parent := make(map[string]string, len(pages))
	for _, p := range pages {
		if _, dup := nodes[p.ID]; dup {
			continue
		}
		nodes[p.ID] = &Node{Page: p}
		parent[p.ID] = p.ParentID
	}

	var roots []*Node
	seen := make(map[string]bool, len(pages))
	for _, p := range pages {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		n := nodes[p.ID]
		pn, ok := nodes[p.ParentID]
		if !ok || p.ParentID == p.ID || loops(parent, p.ID) {
			roots = append(roots, n)
			continue
		}
		pn.Children = append(pn.Children, n)
	}
	return roots
}

// loops reports whether following parents from id leads back to id.
func loops(parent map[string]string, id string) bool {
	cur := parent[id]
	for i := 0; i <= len(parent) && cur != ""; i++ {
		if cur == id {
			return true
		}
		next, ok := parent[cur]
		if !ok {
			return false
		}
		cur = next
	}
	return cur != ""
}

// Walk visits nodes depth first. Returning false skips the node's children.
func Walk(roots []*Node, fn func(n *Node, depth int) bool) {
	var visit func(ns []*Node, depth int)
	visit = func(ns []*Node, depth int) {
		for _, n := range ns {
			if fn(n, depth) {
				visit(n.Children, depth+1)
			}
		}
	}
	visit(roots, 0)
}

type Entry struct {
	Page  api.Page
	Depth int
}

// Flatten lists the tree in display order.
func Flatten(roots []*Node) []Entry {
	var out []Entry
	Walk(roots, func(n *Node, depth int) bool {
		out = append(out, Entry{Page: n.Page, Depth: depth})
		return true
	})
	return out
}

func Find(roots []*Node, id string) *Node {
	var found *Node
	Walk(roots, func(n *Node, _ int) bool {
		if found != nil {
			return false
		}
		if n.Page.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// Favorites keeps the favorite pages in their original order.
func Favorites(pages []api.Page) []api.Page {
	var out []api.Page
	for _, p := range pages {
		if p.Favorite {
			out = append(out, p)
		}
	}
	return out
}
