package api

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cloudfinch-harshad/rampart/database"
	"github.com/cloudfinch-harshad/rampart/logger"
	"github.com/cloudfinch-harshad/rampart/table"
)

const (
	FilterStatus   = "status"
	FilterDeadline = "deadline"

	DeadlineOverdue  = "overdue"
	DeadlineUpcoming = "upcoming"

	vendorSearchPlaceholder = "Search vendors..."
)

// TableQuery is the table state carried in query parameters:
// search, filter.<id> (repeatable), page, pageSize, sortField and
// sortDirection.
type TableQuery struct {
	Search        string
	Filters       map[string][]string
	Page          int
	PageSize      int
	SortField     string
	SortDirection table.SortDirection
}

func ParseTableQuery(values url.Values, defaultPageSize int) TableQuery {
	q := TableQuery{
		Search:        strings.TrimSpace(values.Get("search")),
		Filters:       make(map[string][]string),
		Page:          1,
		PageSize:      defaultPageSize,
		SortField:     values.Get("sortField"),
		SortDirection: table.ParseSortDirection(values.Get("sortDirection")),
	}
	if n, err := strconv.Atoi(values.Get("page")); err == nil {
		q.Page = n
	}
	if n, err := strconv.Atoi(values.Get("pageSize")); err == nil {
		q.PageSize = n
	}
	for key, vals := range values {
		if id := strings.TrimPrefix(key, "filter."); id != key && id != "" {
			for _, v := range vals {
				for _, part := range strings.Split(v, ",") {
					if part = strings.TrimSpace(part); part != "" {
						q.Filters[id] = append(q.Filters[id], part)
					}
				}
			}
		}
	}
	return q
}

// Values encodes q back into query parameters.
func (q TableQuery) Values() url.Values {
	values := url.Values{}
	if q.Search != "" {
		values.Set("search", q.Search)
	}
	ids := make([]string, 0, len(q.Filters))
	for id := range q.Filters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		for _, v := range q.Filters[id] {
			values.Add("filter."+id, v)
		}
	}
	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		values.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	if q.SortField != "" && q.SortDirection != table.Unsorted {
		values.Set("sortField", q.SortField)
		values.Set("sortDirection", q.SortDirection.String())
	}
	return values
}

// VendorColumns are the columns of the vendor management table.
func VendorColumns() []table.Column[database.VendorJson] {
	return []table.Column[database.VendorJson]{
		{Header: "Vendor Name", Field: "vendorName", Class: "w-1/6", Sortable: true, SortField: "vendorName"},
		{Header: "Email", Field: "vendorEmail", Class: "w-1/6", Sortable: true, SortField: "vendorEmail"},
		{Header: "Contact", Field: "contactName", Class: "w-1/8", Sortable: true, SortField: "contactName"},
		{Header: "Phone", Field: "contactNumber", Class: "w-1/8"},
		{Header: "Access Code", Field: "accessCode", Class: "w-1/12"},
		{Header: "Deadline", Field: "deadlineDate", Class: "w-1/12", Sortable: true, SortField: "deadlineDate"},
		{Header: "Status", Class: "w-1/12", Sortable: true, SortField: "completionStatus",
			Renderer: table.RenderFunc[database.VendorJson](func(v database.VendorJson) string {
				return StatusLabel(v.CompletionStatus)
			})},
		{Header: "Submitted", Field: "submittedDate", Class: "w-1/12", Sortable: true, SortField: "submittedDate"},
	}
}

// StatusLabel turns PENDING into Pending and IN_PROGRESS into In Progress.
func StatusLabel(status string) string {
	words := strings.Split(strings.ToLower(status), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// DeadlineState is overdue when the deadline day passed without a completed
// submission, the same rule the reminder job uses.
func DeadlineState(v database.VendorJson, now time.Time) string {
	if v.CompletionStatus != database.StatusCompleted && database.DeadlinePassed(v.DeadlineDate, now) {
		return DeadlineOverdue
	}
	return DeadlineUpcoming
}

// VendorFilters are the status checkbox and the deadline radio filter.
func VendorFilters(now time.Time) []table.FilterConfig[database.VendorJson] {
	return []table.FilterConfig[database.VendorJson]{
		{
			ID:         FilterStatus,
			Label:      "Status",
			Type:       table.Checkbox,
			BadgeClass: "bg-blue-100 text-blue-800",
			Accessor:   table.One(func(v database.VendorJson) string { return v.CompletionStatus }),
		},
		{
			ID:         FilterDeadline,
			Label:      "Deadline",
			Type:       table.Radio,
			BadgeClass: "bg-amber-100 text-amber-800",
			Accessor: table.One(func(v database.VendorJson) string {
				return DeadlineState(v, now)
			}),
		},
	}
}

// SearchVendor matches the term against name, email, contact and access code,
// ignoring case and accents.
func SearchVendor(v database.VendorJson, term string) bool {
	return logger.ContainsFold(term, v.VendorName, v.VendorEmail, v.ContactName, v.AccessCode)
}

func sortColumn(columns []table.Column[database.VendorJson], field string) int {
	for i := range columns {
		if columns[i].Sortable && columns[i].SortField == field {
			return i
		}
	}
	return -1
}

// NewVendorTable builds the client side vendor table over vendors and applies
// q to it.
func NewVendorTable(vendors []database.Vendor, q TableQuery, now time.Time, pageSizeOptions []int) *table.Table[database.VendorJson] {
	rows := make([]database.VendorJson, len(vendors))
	for i := range vendors {
		rows[i] = vendors[i].Json()
	}
	columns := VendorColumns()
	col := sortColumn(columns, q.SortField)
	if col >= 0 && q.SortDirection != table.Unsorted {
		sortRows(rows, columns[col], q.SortDirection)
	}

	t := table.NewClientTable(rows, columns, VendorFilters(now), table.SearchConfig[database.VendorJson]{
		Placeholder: vendorSearchPlaceholder,
		SearchFn:    SearchVendor,
	})
	if len(pageSizeOptions) > 0 {
		t.PageSizeOptions = pageSizeOptions
	}
	if col >= 0 {
		t.SetSort(table.Sort{Column: col, Direction: q.SortDirection})
	}
	applyQuery(t, q)
	return t
}

func applyQuery(t *table.Table[database.VendorJson], q TableQuery) {
	e, ok := t.Engine()
	if !ok {
		return
	}
	for id, values := range q.Filters {
		e.Set(id, values)
	}
	e.SetSearchTerm(q.Search)
	if q.PageSize > 0 {
		t.PageSizeChange(q.PageSize)
	}
	t.PageChange(q.Page)
}

func sortRows(rows []database.VendorJson, col table.Column[database.VendorJson], dir table.SortDirection) {
	key := func(v database.VendorJson) string {
		if col.Field != "" {
			return strings.ToLower(table.FieldString(v, col.Field))
		}
		return strings.ToLower(table.FieldString(v, col.SortField))
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if dir == table.Descending {
			return key(rows[i]) > key(rows[j])
		}
		return key(rows[i]) < key(rows[j])
	})
}

// NewRemoteVendorTable wraps one page fetched from filter-brsr-vendors in a
// server side table.
func NewRemoteVendorTable(page []database.VendorJson, total int, q TableQuery, now time.Time, pageSizeOptions []int) *table.Table[database.VendorJson] {
	selections := table.Selections{FilterStatus: append([]string{}, q.Filters[FilterStatus]...)}
	t := table.NewServerTable(VendorColumns(), VendorFilters(now)[:1], table.ServerSide[database.VendorJson]{
		Data:       page,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalItems: total,
		Selections: selections,
		Options:    map[string][]string{FilterStatus: database.Statuses},
		SearchTerm: q.Search,
	})
	t.SearchPlaceholder = vendorSearchPlaceholder
	if len(pageSizeOptions) > 0 {
		t.PageSizeOptions = pageSizeOptions
	}
	if col := sortColumn(t.Columns, q.SortField); col >= 0 {
		t.SetSort(table.Sort{Column: col, Direction: q.SortDirection})
	}
	return t
}
