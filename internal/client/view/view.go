// Package view derives what the list, map and stats panels show from the
// cached collection. It never mutates the collection.
package view

import (
	"sort"
	"strings"

	"greenalgeria-api/internal/models"
)

// ListCap is the maximum number of rows rendered in the list panel. The
// map still plots every matching entry.
const ListCap = 50

type SortOrder string

const (
	SortRecent SortOrder = "recent"
	SortName   SortOrder = "nom"
	SortType   SortOrder = "type"
)

// Filter narrows and orders the collection for display.
type Filter struct {
	// Query matches case-insensitively against name, address and species.
	Query string
	// Type, when set, keeps only entries of that exact species.
	Type string
	Sort SortOrder
}

// Apply returns the entries matching the filter, ordered per f.Sort.
// SortRecent is the default: newest first by creation time, regardless of
// the order imports and syncs left the collection in.
func Apply(entries []*models.Contribution, f Filter) []*models.Contribution {
	query := strings.ToLower(strings.TrimSpace(f.Query))

	out := make([]*models.Contribution, 0, len(entries))
	for _, e := range entries {
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		if query != "" && !matchesQuery(e, query) {
			continue
		}
		out = append(out, e)
	}

	switch f.Sort {
	case SortName:
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Nom) < strings.ToLower(out[j].Nom)
		})
	case SortType:
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Type) < strings.ToLower(out[j].Type)
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt > out[j].CreatedAt
		})
	}
	return out
}

func matchesQuery(e *models.Contribution, query string) bool {
	return strings.Contains(strings.ToLower(e.Nom), query) ||
		strings.Contains(strings.ToLower(e.Adresse), query) ||
		strings.Contains(strings.ToLower(e.Type), query)
}

// Rows caps the filtered entries to what the list panel renders.
func Rows(filtered []*models.Contribution) []*models.Contribution {
	if len(filtered) <= ListCap {
		return filtered
	}
	return filtered[:ListCap]
}

// Stats summarizes the collection. Entries, TotalTrees and DistinctTypes
// always cover the full collection regardless of any active filter;
// Visible counts the current filter's matches.
type Stats struct {
	Entries       int
	TotalTrees    int
	DistinctTypes int
	Visible       int
}

func ComputeStats(all, filtered []*models.Contribution) Stats {
	types := make(map[string]struct{})
	total := 0
	for _, e := range all {
		total += e.Quantite
		if e.Type != "" {
			types[e.Type] = struct{}{}
		}
	}
	return Stats{
		Entries:       len(all),
		TotalTrees:    total,
		DistinctTypes: len(types),
		Visible:       len(filtered),
	}
}
