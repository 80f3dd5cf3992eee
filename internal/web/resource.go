package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"portal/internal/backend"
	"portal/internal/events"
	"portal/internal/models"
	"portal/internal/table"

	"github.com/rs/zerolog"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// registrar is a page family mounted on the router.
type registrar interface {
	register(mux *http.ServeMux)
	summary(ctx context.Context) entitySummary
}

type entitySummary struct {
	Path  string
	Title string
	Total int
	Err   string
}

type rowAction struct {
	Label string
	Href  string
	Class string
}

// resource wires list, form, delete and export pages for one backend collection.
type resource[T any] struct {
	s        *Server
	entity   string
	title    string
	singular string
	feminine bool
	columns  []table.Column[T]
	id       func(T) int64
	label    func(T) string
	values   func(T) url.Values
	form     formSpec
	// prefill seeds the create form from the query string.
	prefill func(r *http.Request) (url.Values, error)
	// actions adds row links after edit and delete.
	actions func(T) []rowAction
	links   []navItem
}

// redirectError sends the user elsewhere with an error flash instead of a page.
type redirectError struct {
	to  string
	err error
}

func (e *redirectError) Error() string { return e.err.Error() }
func (e *redirectError) Unwrap() error { return e.err }

type listPage struct {
	Title      string
	CreateHref string
	ExportHref string
	Links      []navItem
	Table      template.HTML
}

type confirmPage struct {
	Title   string
	Message string
	Action  string
	Cancel  string
}

func (res *resource[T]) register(mux *http.ServeMux) {
	base := "/" + res.entity
	mux.HandleFunc("GET "+base, res.handleList)
	mux.HandleFunc("GET "+base+"/export.xlsx", res.handleExport)
	mux.HandleFunc("GET "+base+"/create", res.handleCreate)
	mux.HandleFunc("POST "+base, res.handleStore)
	mux.HandleFunc("GET "+base+"/{id}/edit", res.handleEdit)
	mux.HandleFunc("PUT "+base+"/{id}", res.handleUpdate)
	mux.HandleFunc("GET "+base+"/{id}/delete", res.handleConfirmDelete)
	mux.HandleFunc("DELETE "+base+"/{id}", res.handleDestroy)
}

func (res *resource[T]) summary(ctx context.Context) entitySummary {
	sum := entitySummary{Path: "/" + res.entity, Title: res.title}
	page, err := backend.List[T](ctx, res.s.backend, res.entity, url.Values{"per_page": {"1"}})
	if err != nil {
		sum.Err = errorMessage(err)
		return sum
	}
	sum.Total = page.Total
	return sum
}

func (res *resource[T]) path(parts ...string) string {
	return "/" + strings.Join(append([]string{res.entity}, parts...), "/")
}

// done builds "Sala creada." / "Equipo creado.".
func (res *resource[T]) done(stem string) string {
	suffix := "o"
	if res.feminine {
		suffix = "a"
	}
	return res.singular + " " + stem + suffix + "."
}

func (res *resource[T]) pageHref(link string) string {
	return res.path() + "?page=" + url.QueryEscape(link)
}

// fetch loads the requested page. ?page carries an opaque backend link taken
// from a previous page; any other parameter is passed through as a filter.
func (res *resource[T]) fetch(r *http.Request) (*models.Page[T], error) {
	ctx := r.Context()
	query := r.URL.Query()
	link := query.Get("page")
	if link == "" {
		return backend.List[T](ctx, res.s.backend, res.entity, query)
	}

	var (
		page *models.Page[T]
		err  error
	)
	pager := &table.Pagination{OnPageChange: func(target string) {
		page, err = backend.FollowPage[T](ctx, res.s.backend, res.entity, target)
	}}
	pager.Activate(models.PageLink{URL: &link})
	return page, err
}

func (res *resource[T]) listColumns() []table.Column[T] {
	cols := append([]table.Column[T](nil), res.columns...)
	return append(cols, table.Column[T]{
		Header: "Acciones",
		Render: func(row T) template.HTML {
			id := idString(res.id(row))
			links := []rowAction{
				{Label: "Editar", Href: res.path(id, "edit"), Class: "edit"},
				{Label: "Eliminar", Href: res.path(id, "delete"), Class: "danger"},
			}
			if res.actions != nil {
				links = append(links, res.actions(row)...)
			}
			return actionLinks(links)
		},
	})
}

func actionLinks(links []rowAction) template.HTML {
	var b strings.Builder
	b.WriteString(`<div class="actions">`)
	for _, a := range links {
		fmt.Fprintf(&b, `<a class="btn %s" href="%s">%s</a>`,
			template.HTMLEscapeString(a.Class),
			template.HTMLEscapeString(a.Href),
			template.HTMLEscapeString(a.Label))
	}
	b.WriteString(`</div>`)
	return template.HTML(b.String())
}

func (res *resource[T]) handleList(w http.ResponseWriter, r *http.Request) {
	page, err := res.fetch(r)
	if err != nil {
		res.s.renderError(w, r, err, "/")
		return
	}

	tbl := table.Table[T]{
		Columns:    res.listColumns(),
		Rows:       page.Data,
		Pagination: table.FromPage(page),
		PageHref:   res.pageHref,
		Class:      "data-table",
	}
	markup, err := tbl.HTML()
	if err != nil {
		res.s.renderPlain(w, r, err)
		return
	}

	export := res.path("export.xlsx")
	if r.URL.RawQuery != "" {
		export += "?" + r.URL.RawQuery
	}

	res.s.render(w, r, http.StatusOK, "list", res.title, listPage{
		Title:      res.title,
		CreateHref: res.path("create"),
		ExportHref: export,
		Links:      res.links,
		Table:      markup,
	})
}

func (res *resource[T]) handleExport(w http.ResponseWriter, r *http.Request) {
	page, err := res.fetch(r)
	if err != nil {
		res.s.renderError(w, r, err, res.path())
		return
	}

	var buf bytes.Buffer
	if err := table.ExportXLSX(&buf, res.title, res.columns, page.Data); err != nil {
		res.s.renderPlain(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.xlsx"`, res.entity))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}

func (res *resource[T]) createPage() formPage {
	prefix := "Nuevo "
	if res.feminine {
		prefix = "Nueva "
	}
	return formPage{
		Title:  prefix + strings.ToLower(res.singular),
		Action: res.path(),
		Method: http.MethodPost,
		Cancel: res.path(),
	}
}

func (res *resource[T]) editPage(id int64) formPage {
	return formPage{
		Title:  "Editar " + strings.ToLower(res.singular),
		Action: res.path(idString(id)),
		Method: http.MethodPut,
		Cancel: res.path(),
	}
}

func (res *resource[T]) showForm(w http.ResponseWriter, r *http.Request, status int, page formPage, values url.Values, errs models.FieldErrors, extra ...models.Flash) {
	if values == nil {
		values = url.Values{}
	}
	if err := res.form.fill(r.Context(), &page, values, errs); err != nil {
		var rerr *redirectError
		if errors.As(err, &rerr) {
			res.s.flash(r, models.FlashError, errorMessage(rerr.err))
			res.s.redirect(w, r, rerr.to)
			return
		}
		res.s.renderError(w, r, err, res.path())
		return
	}
	res.s.render(w, r, status, "form", page.Title, page, extra...)
}

// failed re-renders the submitted form: inline errors for 422, a toast otherwise.
func (res *resource[T]) failed(w http.ResponseWriter, r *http.Request, page formPage, values url.Values, err error) {
	toast := models.Flash{Kind: models.FlashError, Message: errorMessage(err)}
	if verr, ok := backend.AsValidation(err); ok {
		res.showForm(w, r, http.StatusUnprocessableEntity, page, values, verr.Fields, toast)
		return
	}
	zerolog.Ctx(r.Context()).Warn().Err(err).Str("entity", res.entity).Msg("submit failed")
	res.showForm(w, r, statusFor(err), page, values, nil, toast)
}

func (res *resource[T]) handleCreate(w http.ResponseWriter, r *http.Request) {
	values := url.Values{}
	if res.prefill != nil {
		v, err := res.prefill(r)
		if err != nil {
			var rerr *redirectError
			if errors.As(err, &rerr) {
				res.s.flash(r, models.FlashError, errorMessage(rerr.err))
				res.s.redirect(w, r, rerr.to)
				return
			}
			res.s.renderError(w, r, err, res.path())
			return
		}
		values = v
	}
	res.showForm(w, r, http.StatusOK, res.createPage(), values, nil)
}

func submitted(r *http.Request) (url.Values, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	values := url.Values{}
	for k, v := range r.PostForm {
		if k == "_method" {
			continue
		}
		values[k] = append([]string(nil), v...)
	}
	return values, nil
}

func (res *resource[T]) handleStore(w http.ResponseWriter, r *http.Request) {
	values, err := submitted(r)
	if err != nil {
		res.s.renderStatus(w, r, http.StatusBadRequest, "El formulario enviado no es válido.")
		return
	}
	res.form.normalize(values)

	if err := backend.Create(r.Context(), res.s.backend, res.entity, res.form.payload(values)); err != nil {
		res.failed(w, r, res.createPage(), values, err)
		return
	}

	res.s.publish(r, events.EventEntityCreated, res.entity, 0)
	res.s.flash(r, models.FlashSuccess, res.done("cread"))
	res.s.redirect(w, r, res.path())
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

func (res *resource[T]) handleEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		res.s.renderError(w, r, backend.ErrNotFound, res.path())
		return
	}
	item, err := backend.Get[T](r.Context(), res.s.backend, res.entity, id)
	if err != nil {
		res.s.renderError(w, r, err, res.path())
		return
	}
	res.showForm(w, r, http.StatusOK, res.editPage(id), res.values(*item), nil)
}

func (res *resource[T]) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		res.s.renderError(w, r, backend.ErrNotFound, res.path())
		return
	}
	values, err := submitted(r)
	if err != nil {
		res.s.renderStatus(w, r, http.StatusBadRequest, "El formulario enviado no es válido.")
		return
	}
	res.form.normalize(values)

	if err := backend.Update(r.Context(), res.s.backend, res.entity, id, res.form.payload(values)); err != nil {
		res.failed(w, r, res.editPage(id), values, err)
		return
	}

	res.s.publish(r, events.EventEntityUpdated, res.entity, id)
	res.s.flash(r, models.FlashSuccess, res.done("actualizad"))
	res.s.redirect(w, r, res.path())
}

func (res *resource[T]) handleConfirmDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		res.s.renderError(w, r, backend.ErrNotFound, res.path())
		return
	}
	item, err := backend.Get[T](r.Context(), res.s.backend, res.entity, id)
	if err != nil {
		res.s.renderError(w, r, err, res.path())
		return
	}

	res.s.render(w, r, http.StatusOK, "confirm", "Confirmar eliminación", confirmPage{
		Title:   "Eliminar " + strings.ToLower(res.singular),
		Message: fmt.Sprintf("¿Seguro que desea eliminar «%s»? Esta acción no se puede deshacer.", res.label(*item)),
		Action:  res.path(idString(id)),
		Cancel:  res.path(),
	})
}

func (res *resource[T]) handleDestroy(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		res.s.renderError(w, r, backend.ErrNotFound, res.path())
		return
	}

	if err := backend.Delete(r.Context(), res.s.backend, res.entity, id); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Str("entity", res.entity).Int64("id", id).Msg("delete failed")
		res.s.flash(r, models.FlashError, errorMessage(err))
		res.s.redirect(w, r, res.path())
		return
	}

	res.s.publish(r, events.EventEntityDeleted, res.entity, id)
	res.s.flash(r, models.FlashSuccess, res.done("eliminad"))
	res.s.redirect(w, r, res.path())
}

func (s *Server) publish(r *http.Request, eventType, entity string, id int64) {
	if s.events == nil {
		return
	}
	payload := events.EntityEventPayload{
		Entity:    entity,
		ID:        id,
		At:        s.now(),
		RequestID: requestIDFrom(r.Context()),
	}
	if err := s.events.PublishJSON(eventType, payload); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Str("event", eventType).Msg("publish event")
	}
}
