package model

import (
	"net/url"
	"strconv"
	"strings"
)

// SortKey selects the ordering of a task listing.
type SortKey string

const (
	SortDefault   SortKey = ""
	SortDueDate   SortKey = "due_date"
	SortPriority  SortKey = "priority"
	SortCreatedAt SortKey = "created_at"
)

// TaskFilter describes a task listing. Every field is optional; a nil field
// places no constraint on the result.
type TaskFilter struct {
	// Search matches title, description or category name, case-insensitively.
	Search *string
	// CategoryID matches the task's category exactly. Zero never matches a
	// stored category.
	CategoryID *uint
	// Priority matches exactly. Values outside low/medium/high match nothing.
	Priority *Priority
	// Completed matches the completion flag.
	Completed *bool
	Sort      SortKey
}

// ParseTaskFilter builds a filter from query parameters
// (search, category, priority, completed, sort_by).
//
// Empty values are treated as absent. Unknown sort_by values fall back to the
// default ordering; an unknown priority or a non-numeric category is kept so
// that the listing comes back empty instead of failing.
func ParseTaskFilter(values url.Values) TaskFilter {
	var f TaskFilter

	if s := values.Get("search"); s != "" {
		f.Search = &s
	}

	if raw := strings.TrimSpace(values.Get("category")); raw != "" {
		var id uint
		if n, err := strconv.ParseUint(raw, 10, 64); err == nil {
			id = uint(n)
		}
		f.CategoryID = &id
	}

	if raw := values.Get("priority"); raw != "" {
		p := Priority(raw)
		f.Priority = &p
	}

	if values.Has("completed") {
		completed := strings.EqualFold(values.Get("completed"), "true")
		f.Completed = &completed
	}

	switch key := SortKey(values.Get("sort_by")); key {
	case SortDueDate, SortPriority, SortCreatedAt:
		f.Sort = key
	}

	return f
}
