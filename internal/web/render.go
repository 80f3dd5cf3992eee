package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"portal/internal/format"
	"portal/internal/models"

	"github.com/rs/zerolog"
)

//go:embed templates/*.html templates/portal.css
var templateFS embed.FS

var pageNames = []string{"dashboard", "list", "form", "confirm", "calendar", "error"}

type pages struct {
	byName map[string]*template.Template
}

var funcs = template.FuncMap{
	"date":      format.Date,
	"hhmm":      format.Time,
	"join":      strings.Join,
	"dayDate":   func(t time.Time) string { return t.Format("02/01") },
	"clock":     func(t time.Time) string { return t.Format(models.TimeLayout) },
	"detailKey": detailKey,
}

func loadPages() (*pages, error) {
	base, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, err
	}

	p := &pages{byName: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(templateFS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		p.byName[name] = t
	}
	return p, nil
}

type navItem struct {
	Path  string
	Label string
}

var navigation = []navItem{
	{Path: "/" + models.EntityRooms, Label: "Salas"},
	{Path: "/" + models.EntityEquipment, Label: "Equipos"},
	{Path: "/" + models.EntityReservations, Label: "Reservas"},
	{Path: "/reservas/calendario", Label: "Calendario"},
	{Path: "/" + models.EntityTrainers, Label: "Capacitadores"},
	{Path: "/" + models.EntityResponsibles, Label: "Responsables"},
	{Path: "/" + models.EntityUsageControls, Label: "Controles de uso"},
	{Path: "/" + models.EntityUsers, Label: "Usuarios"},
	{Path: "/" + models.EntityRoles, Label: "Roles"},
}

type pageData struct {
	App       string
	Title     string
	Nav       []navItem
	Active    string
	Flashes   []models.Flash
	RequestID string
	Content   any
}

func activeNav(path string) string {
	if path == "/reservas/calendario" {
		return path
	}
	seg := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 2)[0]
	return "/" + seg
}

// render pops pending flashes, appends extra ones and writes the page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name, title string, content any, extra ...models.Flash) {
	t, ok := s.pages.byName[name]
	if !ok {
		s.renderPlain(w, r, fmt.Errorf("unknown page %q", name))
		return
	}

	data := pageData{
		App:       s.cfg.App.Name,
		Title:     title,
		Nav:       navigation,
		Active:    activeNav(r.URL.Path),
		Flashes:   append(s.popFlashes(r), extra...),
		RequestID: requestIDFrom(r.Context()),
		Content:   content,
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		s.renderPlain(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderPlain(w http.ResponseWriter, r *http.Request, err error) {
	zerolog.Ctx(r.Context()).Error().Err(err).Msg("render page")
	http.Error(w, "Ocurrió un error inesperado.", http.StatusInternalServerError)
}

type errorPage struct {
	Status  int
	Message string
	Back    string
}

func (s *Server) renderStatus(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.render(w, r, status, "error", "Error", errorPage{Status: status, Message: message, Back: "/"})
}

// renderError answers with the page matching err.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error, back string) {
	status := statusFor(err)
	log := zerolog.Ctx(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	} else {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("request rejected")
	}
	s.render(w, r, status, "error", "Error", errorPage{Status: status, Message: errorMessage(err), Back: back})
}

func (s *Server) redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func (s *Server) handleStylesheet(w http.ResponseWriter, r *http.Request) {
	css, err := templateFS.ReadFile("templates/portal.css")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(css)
}
