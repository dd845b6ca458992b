// Package render draws table views for the terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/cloudfinch-harshad/rampart/table"
)

type Styles struct {
	Title  lipgloss.Style
	Header lipgloss.Style
	Body   lipgloss.Style
	Muted  lipgloss.Style
	Badge  lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")),
		Header: lipgloss.NewStyle().Bold(true),
		Body:   lipgloss.NewStyle(),
		Muted:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Badge:  lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")),
	}
}

// Table renders view with the default styles.
func Table[T any](view table.View[T], title string) string {
	return TableWith(view, title, DefaultStyles())
}

// TableWith renders the title, the search term and active filters, the
// current page of rows and a pagination footer.
func TableWith[T any](view table.View[T], title string, styles Styles) string {
	var sb strings.Builder

	if title != "" {
		sb.WriteString(styles.Title.Render(title))
		sb.WriteString("\n")
	}
	if view.Search.Term != "" {
		sb.WriteString(styles.Muted.Render("Search: "))
		sb.WriteString(view.Search.Term)
		sb.WriteString("\n")
	}
	if len(view.Badges) > 0 {
		sb.WriteString(styles.Muted.Render(fmt.Sprintf("Filters (%d): ", view.TotalSelectedFilters)))
		badges := make([]string, len(view.Badges))
		for i := range view.Badges {
			badges[i] = styles.Badge.Render("[" + view.Badges[i].Label + ": " + view.Badges[i].Value + "]")
		}
		sb.WriteString(strings.Join(badges, " "))
		sb.WriteString("\n")
	}

	headers := make([]string, len(view.Headers))
	for i := range view.Headers {
		headers[i] = view.Headers[i].Label + arrow(view.Headers[i].Direction)
	}

	colWidths := make([]int, len(headers))
	for i, h := range headers {
		colWidths[i] = lipgloss.Width(h)
	}
	for _, row := range view.Rows {
		for i, cell := range row {
			if i < len(colWidths) && lipgloss.Width(cell) > colWidths[i] {
				colWidths[i] = lipgloss.Width(cell)
			}
		}
	}
	// lipgloss widths include the padding
	for i := range colWidths {
		colWidths[i] += 2
	}

	headerStyle := styles.Header.Copy().Padding(0, 1)
	rowStyle := styles.Body.Copy().Padding(0, 1)
	sep := styles.Muted.Render("|")

	for i, h := range headers {
		sb.WriteString(headerStyle.Width(colWidths[i]).Render(h))
		if i < len(headers)-1 {
			sb.WriteString(sep)
		}
	}
	sb.WriteString("\n")

	totalWidth := len(headers) - 1
	for _, w := range colWidths {
		totalWidth += w
	}
	if totalWidth < 0 {
		totalWidth = 0
	}
	sb.WriteString(styles.Muted.Render(strings.Repeat("-", totalWidth)))
	sb.WriteString("\n")

	if view.Empty {
		sb.WriteString(styles.Muted.Render(view.EmptyMessage))
		sb.WriteString("\n")
	}
	for _, row := range view.Rows {
		for i, cell := range row {
			if i >= len(colWidths) {
				break
			}
			sb.WriteString(rowStyle.Width(colWidths[i]).Render(cell))
			if i < len(row)-1 && i < len(colWidths)-1 {
				sb.WriteString(sep)
			}
		}
		sb.WriteString("\n")
	}

	sb.WriteString(styles.Muted.Render(Footer(view.Pagination)))
	sb.WriteString("\n")
	return sb.String()
}

// Footer is the one line pagination summary.
func Footer(pc table.PageControls) string {
	pages := pc.TotalPages
	if pages < 1 {
		pages = 1
	}
	return fmt.Sprintf("Showing %d-%d of %d · Page %d of %d", pc.From, pc.To, pc.TotalItems, pc.Page, pages)
}

func arrow(direction string) string {
	switch direction {
	case "asc":
		return " ▲"
	case "desc":
		return " ▼"
	}
	return ""
}
