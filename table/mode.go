package table

// Mode is either ClientSide or ServerSide.
type Mode[T any] interface {
	isMode()
}

// ClientSide tables filter and paginate the full collection in an Engine.
type ClientSide[T any] struct {
	Engine *Engine[T]
}

func (ClientSide[T]) isMode() {}

// ServerSide tables show a page the caller fetched itself. The caller owns
// search, selections and paging; the table only reports requested changes
// through the callbacks.
type ServerSide[T any] struct {
	// Data is the current page as returned by the remote source.
	Data       []T
	Page       int
	PageSize   int
	TotalItems int
	// Selections are the caller owned filter selections, used for badges.
	Selections Selections
	// Options are the selectable values per filter id. Filters without an
	// entry get the distinct values of Data.
	Options    map[string][]string
	SearchTerm string

	OnPageChange     func(page int)
	OnPageSizeChange func(pageSize int)
	OnClearFilters   func()
}

func (ServerSide[T]) isMode() {}
