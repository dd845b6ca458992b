package table

// SortDirection is the state of a sortable column.
type SortDirection int

const (
	Unsorted SortDirection = iota
	Ascending
	Descending
)

// Next cycles unsorted -> ascending -> descending -> unsorted.
func (d SortDirection) Next() SortDirection {
	switch d {
	case Unsorted:
		return Ascending
	case Ascending:
		return Descending
	default:
		return Unsorted
	}
}

func (d SortDirection) String() string {
	switch d {
	case Ascending:
		return "asc"
	case Descending:
		return "desc"
	default:
		return ""
	}
}

// ParseSortDirection maps "asc" and "desc" to a direction; anything else is
// Unsorted.
func ParseSortDirection(s string) SortDirection {
	switch s {
	case "asc", "ASC":
		return Ascending
	case "desc", "DESC":
		return Descending
	default:
		return Unsorted
	}
}

// Sort is the sort state of a table. Column is -1 when unsorted.
type Sort struct {
	Column    int
	Direction SortDirection
}

// NoSort is the initial sort state.
var NoSort = Sort{Column: -1}

// Toggle returns the state after clicking column: a new column starts
// ascending, the active column advances one step.
func (s Sort) Toggle(column int) Sort {
	if column != s.Column || s.Direction == Unsorted {
		return Sort{Column: column, Direction: Ascending}
	}
	next := s.Direction.Next()
	if next == Unsorted {
		return NoSort
	}
	return Sort{Column: column, Direction: next}
}

// DirectionOf returns the direction shown on column.
func (s Sort) DirectionOf(column int) SortDirection {
	if s.Column != column {
		return Unsorted
	}
	return s.Direction
}
