package binge

import "gurubase-cli/internal/api"

// TreeNode is one question in a binge map.
type TreeNode struct {
	ID         int         `json:"id" yaml:"id"`
	Text       string      `json:"text" yaml:"text"`
	Slug       string      `json:"slug" yaml:"slug"`
	ParentSlug string      `json:"parent_slug,omitempty" yaml:"parent_slug,omitempty"`
	Children   []*TreeNode `json:"children" yaml:"children,omitempty"`
}

// BuildTree nests a flat graph under its root. The first node without a
// parent is the root; nodes whose parent is missing are dropped along with
// their descendants. Returns nil when there is no root.
func BuildTree(nodes []api.BingeNode) *TreeNode {
	if len(nodes) == 0 {
		return nil
	}

	// First pass: one tree node per id.
	byID := make(map[int]*TreeNode, len(nodes))
	for _, n := range nodes {
		if _, dup := byID[n.ID]; dup {
			continue
		}
		byID[n.ID] = &TreeNode{ID: n.ID, Text: n.Question, Slug: n.Slug, Children: []*TreeNode{}}
	}

	// Second pass: find the root.
	var root *TreeNode
	for _, n := range nodes {
		if n.ParentID == nil {
			root = byID[n.ID]
			break
		}
	}
	if root == nil {
		return nil
	}

	// Third pass: attach children in input order.
	attached := make(map[int]bool, len(nodes))
	for _, n := range nodes {
		if n.ParentID == nil || attached[n.ID] {
			continue
		}
		parent, ok := byID[*n.ParentID]
		if !ok {
			continue
		}
		child := byID[n.ID]
		if child == parent || child == root {
			continue
		}
		child.ParentSlug = parent.Slug
		parent.Children = append(parent.Children, child)
		attached[n.ID] = true
	}
	return root
}

// Walk visits n and its descendants depth-first with their depth.
func (n *TreeNode) Walk(fn func(node *TreeNode, depth int)) {
	n.walk(fn, 0)
}

func (n *TreeNode) walk(fn func(node *TreeNode, depth int), depth int) {
	if n == nil {
		return
	}
	fn(n, depth)
	for _, c := range n.Children {
		c.walk(fn, depth+1)
	}
}

// Count is the number of nodes in the tree.
func (n *TreeNode) Count() int {
	total := 0
	n.Walk(func(*TreeNode, int) { total++ })
	return total
}

// Find returns the node with slug, or nil.
func (n *TreeNode) Find(slug string) *TreeNode {
	var found *TreeNode
	n.Walk(func(node *TreeNode, _ int) {
		if found == nil && node.Slug == slug {
			found = node
		}
	})
	return found
}
