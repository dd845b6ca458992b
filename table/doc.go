// Package table provides the search, filter and pagination engine behind every
// list screen of the dashboard, plus the presentation contract a renderer
// consumes.
//
// # Engine
//
// [Engine] owns a search term, one selection set per [FilterConfig] and a
// pagination cursor over an in-memory collection:
//
//	e := table.NewEngine(vendors, filters, table.SearchConfig[Vendor]{SearchFn: match})
//	e.Toggle("status", "COMPLETED")
//	e.SetPage(2)
//	rows := e.Paginated()
//
// An item passes when it matches the search term and, for every filter with a
// non-empty selection, at least one of its accessor values is selected. Every
// selection change resets the page to 1 and the page is always kept inside
// [1, TotalPages].
//
// # Modes
//
// A [Table] runs in exactly one [Mode]: [ClientSide] wraps an [Engine] that
// filters and slices the full collection, [ServerSide] carries a page that the
// caller already fetched together with its own page, page size and total.
// The mode is chosen by the constructor ([NewClientTable] or [NewServerTable])
// and never changes for the lifetime of the table.
//
// # View
//
// [Table.View] resolves columns, badges and pagination controls into a [View]
// that can be encoded as JSON or drawn by a terminal renderer.
package table
