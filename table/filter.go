package table

import "sort"

// FilterType controls the selection cardinality of a filter and the widget a
// renderer draws for it.
type FilterType string

const (
	Checkbox     FilterType = "checkbox"
	Radio        FilterType = "radio"
	Select       FilterType = "select"
	SelectSearch FilterType = "select-search"
)

// Single reports whether the filter keeps at most one selected value.
func (ft FilterType) Single() bool {
	return ft == Radio || ft == Select
}

// FilterConfig describes one filterable dimension of T.
type FilterConfig[T any] struct {
	ID    string
	Label string
	// Accessor extracts the values of item that this filter matches against.
	Accessor   func(item T) []string
	Type       FilterType
	BadgeClass string
	// API is the remote option source of a select-search filter.
	API string
}

// One adapts a single valued accessor.
func One[T any](fn func(item T) string) func(item T) []string {
	return func(item T) []string {
		return []string{fn(item)}
	}
}

// Selections holds the selected values per filter id, in selection order.
type Selections map[string][]string

// Clone returns a deep copy.
func (s Selections) Clone() Selections {
	out := make(Selections, len(s))
	for id, values := range s {
		out[id] = append([]string(nil), values...)
	}
	return out
}

// Total is the number of selected values across all filters.
func (s Selections) Total() int {
	total := 0
	for _, values := range s {
		total += len(values)
	}
	return total
}

// Has reports whether value is selected for filter id.
func (s Selections) Has(id, value string) bool {
	for _, v := range s[id] {
		if v == value {
			return true
		}
	}
	return false
}

// ApplyFilters returns the items that match term and every non-empty
// selection. Order is preserved. A nil searchFn matches every item.
func ApplyFilters[T any](items []T, configs []FilterConfig[T], selections Selections, term string, searchFn func(item T, term string) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if term != "" && searchFn != nil && !searchFn(item, term) {
			continue
		}
		if !matchesSelections(item, configs, selections) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func matchesSelections[T any](item T, configs []FilterConfig[T], selections Selections) bool {
	for i := range configs {
		selected := selections[configs[i].ID]
		if len(selected) == 0 {
			continue
		}
		hit := false
		for _, value := range configs[i].Accessor(item) {
			if contains(selected, value) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

// UniqueValues collects the sorted, de-duplicated accessor values of every
// filter over items.
func UniqueValues[T any](items []T, configs []FilterConfig[T]) map[string][]string {
	out := make(map[string][]string, len(configs))
	for i := range configs {
		seen := make(map[string]struct{})
		values := []string{}
		for _, item := range items {
			for _, v := range configs[i].Accessor(item) {
				if _, ok := seen[v]; ok {
					continue
				}
				seen[v] = struct{}{}
				values = append(values, v)
			}
		}
		sort.Strings(values)
		out[configs[i].ID] = values
	}
	return out
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
