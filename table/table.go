package table

// DefaultNoResultsMessage is shown when the current page is empty.
const DefaultNoResultsMessage = "No results found matching your filters."

// Table binds columns, filters and search to exactly one Mode.
type Table[T any] struct {
	Columns           []Column[T]
	Filters           []FilterConfig[T]
	PageSizeOptions   []int
	NoResultsMessage  string
	SearchPlaceholder string
	// OnSort receives every sort change. Sorting the data is up to the
	// caller; the table only tracks the header state.
	OnSort func(column int, direction SortDirection)

	mode Mode[T]
	sort Sort
}

// NewClientTable builds a table whose engine filters and paginates items.
func NewClientTable[T any](items []T, columns []Column[T], filters []FilterConfig[T], search SearchConfig[T], opts ...EngineOption) *Table[T] {
	return &Table[T]{
		Columns:           columns,
		Filters:           filters,
		PageSizeOptions:   DefaultPageSizeOptions,
		NoResultsMessage:  DefaultNoResultsMessage,
		SearchPlaceholder: search.Placeholder,
		mode:              ClientSide[T]{Engine: NewEngine(items, filters, search, opts...)},
		sort:              NoSort,
	}
}

// NewServerTable builds a table over a page the caller already fetched.
func NewServerTable[T any](columns []Column[T], filters []FilterConfig[T], server ServerSide[T]) *Table[T] {
	if server.PageSize < 1 {
		server.PageSize = DefaultPageSize
	}
	if server.Page < 1 {
		server.Page = 1
	}
	return &Table[T]{
		Columns:          columns,
		Filters:          filters,
		PageSizeOptions:  DefaultPageSizeOptions,
		NoResultsMessage: DefaultNoResultsMessage,
		mode:             server,
		sort:             NoSort,
	}
}

// Mode returns the mode the table was built with.
func (t *Table[T]) Mode() Mode[T] {
	return t.mode
}

// Engine returns the engine of a client side table.
func (t *Table[T]) Engine() (*Engine[T], bool) {
	cs, ok := t.mode.(ClientSide[T])
	if !ok {
		return nil, false
	}
	return cs.Engine, true
}

// Sort returns the current sort state.
func (t *Table[T]) Sort() Sort {
	return t.sort
}

// SetSort restores a sort state, e.g. from request parameters.
func (t *Table[T]) SetSort(s Sort) {
	if s.Column < 0 || s.Column >= len(t.Columns) || !t.Columns[s.Column].Sortable || s.Direction == Unsorted {
		t.sort = NoSort
		return
	}
	t.sort = s
}

// ToggleSort advances the sort state of a sortable column and reports it to
// OnSort. Clicks on other columns are ignored.
func (t *Table[T]) ToggleSort(column int) Sort {
	if column < 0 || column >= len(t.Columns) || !t.Columns[column].Sortable {
		return t.sort
	}
	t.sort = t.sort.Toggle(column)
	if t.OnSort != nil {
		t.OnSort(column, t.sort.DirectionOf(column))
	}
	return t.sort
}

// PageChange requests page n.
func (t *Table[T]) PageChange(n int) {
	switch m := t.mode.(type) {
	case ClientSide[T]:
		m.Engine.SetPage(n)
	case ServerSide[T]:
		if m.OnPageChange != nil {
			m.OnPageChange(clamp(n, 1, TotalPages(m.TotalItems, m.PageSize)))
		}
	}
}

// PageSizeChange requests page size n.
func (t *Table[T]) PageSizeChange(n int) {
	switch m := t.mode.(type) {
	case ClientSide[T]:
		m.Engine.SetPageSize(n)
	case ServerSide[T]:
		if m.OnPageSizeChange != nil {
			m.OnPageSizeChange(normalizePageSize(n))
		}
	}
}

// ClearFilters clears every selection and the search term.
func (t *Table[T]) ClearFilters() {
	switch m := t.mode.(type) {
	case ClientSide[T]:
		m.Engine.ClearAll()
	case ServerSide[T]:
		if m.OnClearFilters != nil {
			m.OnClearFilters()
		}
	}
}
