// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package category

import (
	"cmp"
	"slices"
	"strings"

	"github.com/google/uuid"

	"folio/internal/models"
)

// TreeNode is one category in a materialized tree.
type TreeNode struct {
	models.Category
	Depth    int         `json:"depth"`
	Children []*TreeNode `json:"children,omitempty"`
}

// compareCategories orders siblings by name (case-insensitive), then slug,
// then id, so any input order yields the same tree.
func compareCategories(a, b *models.Category) int {
	if c := cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Slug, b.Slug); c != 0 {
		return c
	}
	return cmp.Compare(a.ID.String(), b.ID.String())
}

// index groups a flat category list by id and by parent.
type index struct {
	byID     map[uuid.UUID]*models.Category
	children map[uuid.UUID][]*models.Category
	roots    []*models.Category
	sorted   []*models.Category
}

// newIndex builds the lookup tables used by BuildTree and Descendants.
// A category is a root when it has no parent, when its parent is missing
// from the list, or when it names itself as parent.
func newIndex(categories []models.Category) *index {
	idx := &index{
		byID:     make(map[uuid.UUID]*models.Category, len(categories)),
		children: make(map[uuid.UUID][]*models.Category),
	}
	for i := range categories {
		c := &categories[i]
		idx.byID[c.ID] = c
		idx.sorted = append(idx.sorted, c)
	}
	slices.SortFunc(idx.sorted, compareCategories)

	for _, c := range idx.sorted {
		if c.ParentID == nil || *c.ParentID == c.ID {
			idx.roots = append(idx.roots, c)
			continue
		}
		if _, ok := idx.byID[*c.ParentID]; !ok {
			idx.roots = append(idx.roots, c)
			continue
		}
		idx.children[*c.ParentID] = append(idx.children[*c.ParentID], c)
	}
	return idx
}

// BuildTree turns a flat category list into a forest. Siblings are sorted
// by name ascending, case-insensitive. Categories whose parent is missing
// from the list are placed at the top level. Stored cycles cannot hang the
// walk: each category is emitted once, and members of a cycle that no root
// reaches are promoted to the top level in sort order.
func BuildTree(categories []models.Category) []*TreeNode {
	idx := newIndex(categories)
	visited := make(map[uuid.UUID]bool, len(categories))

	var build func(c *models.Category, depth int) *TreeNode
	build = func(c *models.Category, depth int) *TreeNode {
		visited[c.ID] = true
		node := &TreeNode{Category: *c, Depth: depth}
		for _, child := range idx.children[c.ID] {
			if visited[child.ID] {
				continue
			}
			node.Children = append(node.Children, build(child, depth+1))
		}
		return node
	}

	var forest []*TreeNode
	for _, root := range idx.roots {
		forest = append(forest, build(root, 0))
	}

	// Anything left over sits on a parent cycle.
	var promoted bool
	for _, c := range idx.sorted {
		if !visited[c.ID] {
			forest = append(forest, build(c, 0))
			promoted = true
		}
	}
	if promoted {
		slices.SortFunc(forest, func(a, b *TreeNode) int {
			return compareCategories(&a.Category, &b.Category)
		})
	}
	return forest
}

// Flatten walks a tree depth-first and returns every node in display
// order. Useful for indented <select> options.
func Flatten(tree []*TreeNode) []*TreeNode {
	var out []*TreeNode
	var walk func(nodes []*TreeNode)
	walk = func(nodes []*TreeNode) {
		for _, n := range nodes {
			out = append(out, n)
			walk(n.Children)
		}
	}
	walk(tree)
	return out
}

// Descendants returns the descendant closure of id: every category
// reachable by repeatedly following child links. id itself is only
// included if the stored data already contains a cycle through it.
func Descendants(categories []models.Category, id uuid.UUID) map[uuid.UUID]struct{} {
	children := make(map[uuid.UUID][]uuid.UUID)
	for _, c := range categories {
		if c.ParentID != nil && *c.ParentID != c.ID {
			children[*c.ParentID] = append(children[*c.ParentID], c.ID)
		}
	}

	closure := make(map[uuid.UUID]struct{})
	queue := []uuid.UUID{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range children[cur] {
			if _, seen := closure[child]; seen {
				continue
			}
			closure[child] = struct{}{}
			queue = append(queue, child)
		}
	}
	return closure
}

// IsDescendant reports whether candidate is in the descendant closure of id.
func IsDescendant(categories []models.Category, id, candidate uuid.UUID) bool {
	_, ok := Descendants(categories, id)[candidate]
	return ok
}

// Ancestors returns the chain of parents above id, root first. The walk
// stops at a missing parent or when a stored cycle leads back to a
// category already visited.
func Ancestors(categories []models.Category, id uuid.UUID) []models.Category {
	byID := make(map[uuid.UUID]models.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}

	var chain []models.Category
	seen := map[uuid.UUID]bool{id: true}
	cur, ok := byID[id]
	for ok && cur.ParentID != nil && !seen[*cur.ParentID] {
		seen[*cur.ParentID] = true
		cur, ok = byID[*cur.ParentID]
		if ok {
			chain = append(chain, cur)
		}
	}
	slices.Reverse(chain)
	return chain
}
