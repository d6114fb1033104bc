// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package category

import (
	"slices"

	"github.com/google/uuid"

	"folio/internal/models"
)

// Report lists integrity problems found in stored category rows. Cycles
// can only appear through concurrent updates racing on a shared subtree,
// since nothing below the application enforces them.
type Report struct {
	Total int
	// Orphans reference a parent id that does not exist.
	Orphans []models.Category
	// InCycle are categories that are their own ancestor.
	InCycle []models.Category
}

// Healthy reports whether no problems were found.
func (r *Report) Healthy() bool {
	return len(r.Orphans) == 0 && len(r.InCycle) == 0
}

// Inspect walks every category's ancestor chain and reports orphans and
// cycle members. It never modifies its input.
func Inspect(categories []models.Category) *Report {
	byID := make(map[uuid.UUID]*models.Category, len(categories))
	for i := range categories {
		byID[categories[i].ID] = &categories[i]
	}

	report := &Report{Total: len(categories)}
	for _, c := range categories {
		if c.ParentID != nil {
			if _, ok := byID[*c.ParentID]; !ok {
				report.Orphans = append(report.Orphans, c)
				continue
			}
		}
		if onCycle(byID, c.ID) {
			report.InCycle = append(report.InCycle, c)
		}
	}

	sortByName := func(a, b models.Category) int { return compareCategories(&a, &b) }
	slices.SortFunc(report.Orphans, sortByName)
	slices.SortFunc(report.InCycle, sortByName)
	return report
}

// onCycle follows parent links from id and reports whether the walk comes
// back to id. Walks that reach a root, a missing parent, or a cycle not
// containing id stop early.
func onCycle(byID map[uuid.UUID]*models.Category, id uuid.UUID) bool {
	seen := map[uuid.UUID]bool{}
	cur := byID[id]
	for cur != nil && cur.ParentID != nil {
		parent := *cur.ParentID
		if parent == id {
			return true
		}
		if seen[parent] {
			return false
		}
		seen[parent] = true
		cur = byID[parent]
	}
	return false
}
