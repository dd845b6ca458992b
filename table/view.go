package table

// HeaderCell is one column header.
type HeaderCell struct {
	Label     string `json:"label"`
	Class     string `json:"class,omitempty"`
	Sortable  bool   `json:"sortable"`
	SortField string `json:"sortField,omitempty"`
	Direction string `json:"direction,omitempty"`
}

// Badge is one active filter value.
type Badge struct {
	FilterID string `json:"filterId"`
	Label    string `json:"label"`
	Value    string `json:"value"`
	Class    string `json:"class,omitempty"`
}

// FilterOptions lists what a filter widget offers and what it has selected.
type FilterOptions struct {
	ID       string     `json:"id"`
	Label    string     `json:"label"`
	Type     FilterType `json:"type"`
	API      string     `json:"api,omitempty"`
	Options  []string   `json:"options"`
	Selected []string   `json:"selected"`
}

// SearchState is the search box of a view.
type SearchState struct {
	Placeholder string `json:"placeholder"`
	Term        string `json:"term"`
}

// View is the fully resolved state of a table for one render.
type View[T any] struct {
	Headers              []HeaderCell    `json:"headers"`
	Items                []T             `json:"items"`
	Rows                 [][]string      `json:"rows"`
	Empty                bool            `json:"empty"`
	EmptyMessage         string          `json:"emptyMessage,omitempty"`
	Search               SearchState     `json:"search"`
	Filters              []FilterOptions `json:"filters"`
	Badges               []Badge         `json:"badges"`
	TotalSelectedFilters int             `json:"totalSelectedFilters"`
	ShowClearAll         bool            `json:"showClearAll"`
	Pagination           PageControls    `json:"pagination"`
	ServerSide           bool            `json:"serverSide"`
}

// View resolves the current state of the table.
func (t *Table[T]) View() View[T] {
	var (
		items      []T
		selections Selections
		options    map[string][]string
		pc         PageControls
		search     SearchState
		server     bool
	)

	switch m := t.mode.(type) {
	case ClientSide[T]:
		e := m.Engine
		items = e.Paginated()
		selections = e.selections
		options = e.UniqueFilterValues()
		pc = NewPageControls(e.Page(), e.PageSize(), e.TotalItems(), t.PageSizeOptions)
		search = SearchState{Placeholder: t.SearchPlaceholder, Term: e.SearchTerm()}
	case ServerSide[T]:
		items = m.Data
		selections = m.Selections
		options = UniqueValues(m.Data, t.Filters)
		for id, values := range m.Options {
			options[id] = values
		}
		pc = NewPageControls(m.Page, m.PageSize, m.TotalItems, t.PageSizeOptions)
		search = SearchState{Placeholder: t.SearchPlaceholder, Term: m.SearchTerm}
		server = true
	}

	v := View[T]{
		Headers:              t.headers(),
		Items:                items,
		Rows:                 make([][]string, 0, len(items)),
		Empty:                len(items) == 0,
		Search:               search,
		Filters:              make([]FilterOptions, 0, len(t.Filters)),
		Badges:               []Badge{},
		TotalSelectedFilters: selections.Total(),
		Pagination:           pc,
		ServerSide:           server,
	}
	if v.Empty {
		v.EmptyMessage = t.NoResultsMessage
		if v.EmptyMessage == "" {
			v.EmptyMessage = DefaultNoResultsMessage
		}
	}
	for _, item := range items {
		row := make([]string, len(t.Columns))
		for i := range t.Columns {
			row[i] = t.Columns[i].Cell(item)
		}
		v.Rows = append(v.Rows, row)
	}
	for i := range t.Filters {
		f := &t.Filters[i]
		selected := append([]string{}, selections[f.ID]...)
		opts := options[f.ID]
		if opts == nil {
			opts = []string{}
		}
		v.Filters = append(v.Filters, FilterOptions{
			ID:       f.ID,
			Label:    f.Label,
			Type:     f.Type,
			API:      f.API,
			Options:  opts,
			Selected: selected,
		})
		for _, value := range selected {
			v.Badges = append(v.Badges, Badge{FilterID: f.ID, Label: f.Label, Value: value, Class: f.BadgeClass})
		}
	}
	v.ShowClearAll = len(v.Badges) > 0 || search.Term != ""
	return v
}

func (t *Table[T]) headers() []HeaderCell {
	headers := make([]HeaderCell, len(t.Columns))
	for i := range t.Columns {
		c := &t.Columns[i]
		headers[i] = HeaderCell{
			Label:     c.Header,
			Class:     c.Class,
			Sortable:  c.Sortable,
			SortField: c.SortField,
		}
		if c.Sortable {
			headers[i].Direction = t.sort.DirectionOf(i).String()
		}
	}
	return headers
}
