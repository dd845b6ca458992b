package render

import (
	"strings"
	"testing"

	"github.com/cloudfinch-harshad/rampart/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	Name   string
	Status string
}

func TestTable(t *testing.T) {
	view := table.View[row]{
		Headers: []table.HeaderCell{
			{Label: "Name", Sortable: true, Direction: "asc"},
			{Label: "Status", Sortable: true, Direction: ""},
		},
		Items:                []row{{"Acme", "Pending"}, {"Globex Corporation", "Completed"}},
		Rows:                 [][]string{{"Acme", "Pending"}, {"Globex Corporation", "Completed"}},
		Search:               table.SearchState{Term: "co"},
		Badges:               []table.Badge{{FilterID: "status", Label: "Status", Value: "PENDING"}},
		TotalSelectedFilters: 1,
		Pagination:           table.NewPageControls(2, 2, 5, nil),
	}

	out := Table(view, "Vendors")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 8)
	assert.Equal(t, "Vendors", strings.TrimSpace(lines[0]))
	assert.Equal(t, "Search: co", lines[1])
	assert.Equal(t, "Filters (1): [Status: PENDING]", lines[2])
	assert.Contains(t, lines[3], "Name ▲")
	assert.Contains(t, lines[3], "|")
	assert.NotContains(t, lines[3], "▼")
	assert.Equal(t, strings.Repeat("-", len([]rune(lines[4]))), lines[4])
	assert.Contains(t, lines[6], "Globex Corporation")
	assert.Equal(t, "Showing 3-4 of 5 · Page 2 of 3", lines[7])

	// columns line up
	assert.Equal(t, strings.Index(lines[5], "|"), strings.Index(lines[6], "|"))
}

func TestTable_Empty(t *testing.T) {
	view := table.View[row]{
		Headers:      []table.HeaderCell{{Label: "Name"}},
		Empty:        true,
		EmptyMessage: table.DefaultNoResultsMessage,
		Pagination:   table.NewPageControls(1, 10, 0, nil),
	}
	out := Table(view, "")
	assert.Contains(t, out, table.DefaultNoResultsMessage)
	assert.Contains(t, out, "Showing 0-0 of 0 · Page 1 of 1")
	assert.NotContains(t, out, "Search:")
	assert.NotContains(t, out, "Filters")
}

func TestFooter(t *testing.T) {
	assert.Equal(t, "Showing 0-0 of 0 · Page 1 of 1", Footer(table.PageControls{Page: 1}))
	assert.Equal(t, "Showing 11-20 of 42 · Page 2 of 5", Footer(table.NewPageControls(2, 10, 42, nil)))
}
