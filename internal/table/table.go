// Package table renders typed rows as an HTML table from column descriptors,
// with optional pagination controls driven by backend-supplied links.
package table

import (
	"bytes"
	"html"
	"html/template"
	"io"

	"portal/internal/models"
)

// DefaultEmpty is shown in the single body row of an empty table.
const DefaultEmpty = "No hay resultados."

// Column describes one table column. Without Render the cell shows the raw
// value found at Key on the row. Export, when set, is used by ExportXLSX.
type Column[T any] struct {
	Key    string
	Header string
	Render func(row T) template.HTML
	Export func(row T) string
}

// Pagination mirrors the backend page metadata. OnPageChange receives the
// literal URL of an activated link.
type Pagination struct {
	From         int
	To           int
	Total        int
	Links        []models.PageLink
	OnPageChange func(url string)
}

// FromPage copies the pagination metadata of a backend page.
func FromPage[T any](page *models.Page[T]) *Pagination {
	if page == nil {
		return nil
	}
	return &Pagination{
		From:  page.From,
		To:    page.To,
		Total: page.Total,
		Links: page.Links,
	}
}

// Activate handles a user selecting link. Links without a URL (nil or empty)
// render disabled and never call OnPageChange. Reports whether navigation was
// requested.
func (p *Pagination) Activate(link models.PageLink) bool {
	if p == nil || link.URL == nil || *link.URL == "" {
		return false
	}
	if p.OnPageChange != nil {
		p.OnPageChange(*link.URL)
	}
	return true
}

// Table is a pure function of its fields: rendering twice yields the same markup.
type Table[T any] struct {
	Columns    []Column[T]
	Rows       []T
	Pagination *Pagination
	// Empty overrides DefaultEmpty.
	Empty string
	// PageHref maps a backend page URL to the href rendered in the page.
	// Identity when nil.
	PageHref func(url string) string
	Class    string
}

type linkView struct {
	Href   string
	Label  string
	Active bool
}

type paginationView struct {
	From, To, Total int
	Links           []linkView
}

type tableView struct {
	Class      string
	Headers    []string
	Rows       [][]template.HTML
	Span       int
	Empty      string
	Pagination *paginationView
}

var tableTmpl = template.Must(template.New("table").Parse(`<div class="table-wrapper">
<table class="{{.Class}}">
<thead><tr>{{range .Headers}}<th scope="col">{{.}}</th>{{end}}</tr></thead>
<tbody>
{{- range .Rows}}
<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{- else}}
<tr class="empty"><td colspan="{{$.Span}}">{{$.Empty}}</td></tr>
{{- end}}
</tbody>
</table>
{{- with .Pagination}}
<nav class="pagination" aria-label="Paginación">
<p class="summary">Mostrando {{.From}} a {{.To}} de {{.Total}} resultados</p>
{{- if .Links}}
<ul>{{range .Links}}<li>{{if .Href}}<a href="{{.Href}}"{{if .Active}} class="active" aria-current="page"{{end}}>{{.Label}}</a>{{else}}<span class="{{if .Active}}active{{else}}disabled{{end}}" aria-disabled="true">{{.Label}}</span>{{end}}</li>{{end}}</ul>
{{- end}}
</nav>
{{- end}}
</div>
`))

func (t Table[T]) view() tableView {
	headers := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		headers[i] = col.Header
	}

	rows := make([][]template.HTML, 0, len(t.Rows))
	for _, row := range t.Rows {
		cells := make([]template.HTML, len(t.Columns))
		for i, col := range t.Columns {
			cells[i] = cell(col, row)
		}
		rows = append(rows, cells)
	}

	empty := t.Empty
	if empty == "" {
		empty = DefaultEmpty
	}

	span := len(t.Columns)
	if span == 0 {
		span = 1
	}

	return tableView{
		Class:      t.Class,
		Headers:    headers,
		Rows:       rows,
		Span:       span,
		Empty:      empty,
		Pagination: t.paginationView(),
	}
}

func (t Table[T]) paginationView() *paginationView {
	p := t.Pagination
	if p == nil {
		return nil
	}

	href := t.PageHref
	if href == nil {
		href = func(url string) string { return url }
	}

	links := make([]linkView, 0, len(p.Links))
	for _, l := range p.Links {
		lv := linkView{Label: html.UnescapeString(l.Label), Active: l.Active}
		if l.URL != nil && *l.URL != "" {
			lv.Href = href(*l.URL)
		}
		links = append(links, lv)
	}

	return &paginationView{From: p.From, To: p.To, Total: p.Total, Links: links}
}

func cell[T any](col Column[T], row T) template.HTML {
	if col.Render != nil {
		return col.Render(row)
	}
	return template.HTML(template.HTMLEscapeString(Value(row, col.Key)))
}

// Render writes the table markup to w.
func (t Table[T]) Render(w io.Writer) error {
	return tableTmpl.Execute(w, t.view())
}

// HTML renders the table for embedding in a page template.
func (t Table[T]) HTML() (template.HTML, error) {
	var buf bytes.Buffer
	if err := t.Render(&buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
