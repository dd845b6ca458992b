package table

// DefaultPageSizeOptions are the page sizes offered by the pagination controls.
var DefaultPageSizeOptions = []int{10, 20, 50, 100}

// maxPageLinks is the number of page numbers shown before ellipsis kicks in.
const maxPageLinks = 5

// TotalPages returns max(1, ceil(total / pageSize)).
func TotalPages(total, pageSize int) int {
	if pageSize < 1 {
		pageSize = 1
	}
	pages := (total + pageSize - 1) / pageSize
	if pages < 1 {
		return 1
	}
	return pages
}

// window returns the slice bounds of page inside a collection of total items.
func window(page, pageSize, total int) (int, int) {
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	if start < 0 {
		start = 0
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return start, end
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// PageLink is one entry of the page number strip.
type PageLink struct {
	Number   int  `json:"number,omitempty"`
	Ellipsis bool `json:"ellipsis,omitempty"`
	Current  bool `json:"current,omitempty"`
}

// PageNumbers returns the page strip for page out of totalPages: all pages
// when there are at most five, otherwise the first and last page around a
// window of the current one separated by ellipsis.
func PageNumbers(page, totalPages int) []PageLink {
	if totalPages < 1 {
		totalPages = 1
	}
	page = clamp(page, 1, totalPages)

	var numbers []int
	switch {
	case totalPages <= maxPageLinks:
		for i := 1; i <= totalPages; i++ {
			numbers = append(numbers, i)
		}
	case page <= 3:
		numbers = []int{1, 2, 3, 4, 0, totalPages}
	case page >= totalPages-2:
		numbers = []int{1, 0, totalPages - 3, totalPages - 2, totalPages - 1, totalPages}
	default:
		numbers = []int{1, 0, page - 1, page, page + 1, 0, totalPages}
	}

	links := make([]PageLink, 0, len(numbers))
	for _, n := range numbers {
		if n == 0 {
			links = append(links, PageLink{Ellipsis: true})
			continue
		}
		links = append(links, PageLink{Number: n, Current: n == page})
	}
	return links
}

// PageControls is everything a renderer needs to draw pagination.
type PageControls struct {
	Page            int        `json:"page"`
	PageSize        int        `json:"pageSize"`
	TotalItems      int        `json:"totalItems"`
	TotalPages      int        `json:"totalPages"`
	From            int        `json:"from"`
	To              int        `json:"to"`
	HasPrev         bool       `json:"hasPrev"`
	HasNext         bool       `json:"hasNext"`
	PageSizeOptions []int      `json:"pageSizeOptions"`
	Pages           []PageLink `json:"pages"`
}

// NewPageControls derives the controls for page of pageSize over total items.
// The page is clamped for display only.
func NewPageControls(page, pageSize, total int, options []int) PageControls {
	if pageSize < 1 {
		pageSize = 1
	}
	if len(options) == 0 {
		options = DefaultPageSizeOptions
	}
	totalPages := TotalPages(total, pageSize)
	page = clamp(page, 1, totalPages)
	start, end := window(page, pageSize, total)

	pc := PageControls{
		Page:            page,
		PageSize:        pageSize,
		TotalItems:      total,
		TotalPages:      totalPages,
		To:              end,
		HasPrev:         page > 1,
		HasNext:         page < totalPages,
		PageSizeOptions: append([]int(nil), options...),
		Pages:           PageNumbers(page, totalPages),
	}
	if total > 0 {
		pc.From = start + 1
	}
	return pc
}
