package table

// DefaultPageSize is the page size of a new engine.
const DefaultPageSize = 10

// SearchConfig describes the free text search of a table.
type SearchConfig[T any] struct {
	Placeholder string
	// Value is the initial search term.
	Value string
	// OnChange is called with every new search term.
	OnChange func(term string)
	// SearchFn decides whether item matches term. Matching rules are up to
	// the caller.
	SearchFn func(item T, term string) bool
}

// Engine holds the client side filter, search and pagination state of one
// table. It is not safe for concurrent use.
type Engine[T any] struct {
	items      []T
	configs    []FilterConfig[T]
	search     SearchConfig[T]
	term       string
	selections Selections
	page       int
	pageSize   int

	// rev is bumped whenever items, selections or the term change.
	rev         uint64
	itemsRev    uint64
	filteredRev uint64
	filtered    []T
	uniqueRev   uint64
	unique      map[string][]string
}

// EngineOption customises a new engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	pageSize int
	page     int
}

// WithPageSize sets the initial page size.
func WithPageSize(n int) EngineOption {
	return func(o *engineOptions) {
		o.pageSize = n
	}
}

// WithPage sets the initial page. It is clamped like SetPage.
func WithPage(n int) EngineOption {
	return func(o *engineOptions) {
		o.page = n
	}
}

// NewEngine creates an engine over items with empty selections.
func NewEngine[T any](items []T, configs []FilterConfig[T], search SearchConfig[T], opts ...EngineOption) *Engine[T] {
	o := engineOptions{pageSize: DefaultPageSize, page: 1}
	for _, opt := range opts {
		opt(&o)
	}
	e := &Engine[T]{
		items:      items,
		configs:    configs,
		search:     search,
		term:       search.Value,
		selections: make(Selections, len(configs)),
		page:       1,
		pageSize:   normalizePageSize(o.pageSize),
		rev:        1,
		itemsRev:   1,
	}
	for i := range configs {
		e.selections[configs[i].ID] = []string{}
	}
	e.SetPage(o.page)
	return e
}

// SetItems replaces the collection. Selections survive and the page is
// clamped to the new result set.
func (e *Engine[T]) SetItems(items []T) {
	e.items = items
	e.rev++
	e.itemsRev = e.rev
	e.clampPage()
}

// Items returns the unfiltered collection.
func (e *Engine[T]) Items() []T {
	return e.items
}

// Configs returns the filter configs the engine was built with.
func (e *Engine[T]) Configs() []FilterConfig[T] {
	return e.configs
}

func (e *Engine[T]) config(id string) (*FilterConfig[T], bool) {
	for i := range e.configs {
		if e.configs[i].ID == id {
			return &e.configs[i], true
		}
	}
	return nil, false
}

// Toggle adds value to the selection of filterID, or removes it when already
// selected. Radio and select filters switch to value or clear. Unknown ids
// are ignored.
func (e *Engine[T]) Toggle(filterID, value string) {
	cfg, ok := e.config(filterID)
	if !ok {
		return
	}
	current := e.selections[filterID]
	switch {
	case contains(current, value) && cfg.Type.Single():
		e.selections[filterID] = []string{}
	case contains(current, value):
		next := make([]string, 0, len(current)-1)
		for _, v := range current {
			if v != value {
				next = append(next, v)
			}
		}
		e.selections[filterID] = next
	case cfg.Type.Single():
		e.selections[filterID] = []string{value}
	default:
		e.selections[filterID] = append(append(make([]string, 0, len(current)+1), current...), value)
	}
	e.changed()
}

// SetSingle replaces the selection of filterID with value. An empty value
// clears the filter.
func (e *Engine[T]) SetSingle(filterID, value string) {
	if _, ok := e.config(filterID); !ok {
		return
	}
	if value == "" {
		e.selections[filterID] = []string{}
	} else {
		e.selections[filterID] = []string{value}
	}
	e.changed()
}

// Set replaces the selection of filterID with values. Duplicates are dropped
// and single value filters keep only the first value.
func (e *Engine[T]) Set(filterID string, values []string) {
	cfg, ok := e.config(filterID)
	if !ok {
		return
	}
	next := dedupe(values)
	if cfg.Type.Single() && len(next) > 1 {
		next = next[:1]
	}
	e.selections[filterID] = next
	e.changed()
}

// Clear empties the selection of filterID.
func (e *Engine[T]) Clear(filterID string) {
	if _, ok := e.config(filterID); !ok {
		return
	}
	e.selections[filterID] = []string{}
	e.changed()
}

// ClearAll empties every selection and the search term.
func (e *Engine[T]) ClearAll() {
	for i := range e.configs {
		e.selections[e.configs[i].ID] = []string{}
	}
	if e.term != "" {
		e.term = ""
		e.notifySearch()
	}
	e.changed()
}

// SetSearchTerm stores term and notifies the search config.
func (e *Engine[T]) SetSearchTerm(term string) {
	if term == e.term {
		return
	}
	e.term = term
	e.notifySearch()
	e.changed()
}

func (e *Engine[T]) notifySearch() {
	if e.search.OnChange != nil {
		e.search.OnChange(e.term)
	}
}

// SearchTerm returns the current search term.
func (e *Engine[T]) SearchTerm() string {
	return e.term
}

// SearchPlaceholder returns the placeholder of the search config.
func (e *Engine[T]) SearchPlaceholder() string {
	return e.search.Placeholder
}

// SetPage moves to page n, clamped into [1, TotalPages].
func (e *Engine[T]) SetPage(n int) {
	e.page = clamp(n, 1, e.TotalPages())
}

// SetPageSize changes the page size and returns to the first page.
func (e *Engine[T]) SetPageSize(n int) {
	e.pageSize = normalizePageSize(n)
	e.page = 1
}

// Page returns the current 1-based page.
func (e *Engine[T]) Page() int {
	e.clampPage()
	return e.page
}

// PageSize returns the current page size.
func (e *Engine[T]) PageSize() int {
	return e.pageSize
}

// Selections returns a copy of the current selections.
func (e *Engine[T]) Selections() Selections {
	return e.selections.Clone()
}

// Selected returns the selected values of filterID.
func (e *Engine[T]) Selected(filterID string) []string {
	return append([]string(nil), e.selections[filterID]...)
}

// TotalSelectedFilters is the number of selected values across all filters.
func (e *Engine[T]) TotalSelectedFilters() int {
	return e.selections.Total()
}

// Filtered returns every item that passes the search term and selections.
func (e *Engine[T]) Filtered() []T {
	if e.filteredRev != e.rev {
		e.filtered = ApplyFilters(e.items, e.configs, e.selections, e.term, e.search.SearchFn)
		e.filteredRev = e.rev
	}
	return e.filtered[:len(e.filtered):len(e.filtered)]
}

// TotalItems is the number of filtered items.
func (e *Engine[T]) TotalItems() int {
	return len(e.Filtered())
}

// TotalPages is max(1, ceil(TotalItems / PageSize)).
func (e *Engine[T]) TotalPages() int {
	return TotalPages(e.TotalItems(), e.pageSize)
}

// Paginated returns the filtered items of the current page. The slice is
// capped so appending to it never writes into the cached result.
func (e *Engine[T]) Paginated() []T {
	filtered := e.Filtered()
	start, end := window(e.Page(), e.pageSize, len(filtered))
	return filtered[start:end:end]
}

// UniqueFilterValues returns, per filter id, every value found in the
// unfiltered collection. Options do not narrow as other filters apply.
func (e *Engine[T]) UniqueFilterValues() map[string][]string {
	if e.uniqueRev != e.itemsRev || e.unique == nil {
		e.unique = UniqueValues(e.items, e.configs)
		e.uniqueRev = e.itemsRev
	}
	return e.unique
}

func (e *Engine[T]) changed() {
	e.rev++
	e.page = 1
}

func (e *Engine[T]) clampPage() {
	e.page = clamp(e.page, 1, e.TotalPages())
}

func normalizePageSize(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
