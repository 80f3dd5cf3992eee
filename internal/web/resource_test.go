package web

import (
	"bytes"
	"encoding/json"
	"html"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"portal/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func roomRows() []map[string]any {
	return []map[string]any{
		{"id": 1, "nombre": "Sala <A>", "capacidad": 20, "ubicacion": "Piso 1"},
		{"id": 2, "nombre": "Sala B", "capacidad": 8, "ubicacion": nil},
	}
}

func TestList_RendersTableAndPagination(t *testing.T) {
	p := newTestPortal(t)
	next := p.backend.url("/api/salas?page=2")
	p.backend.reply("GET /api/salas", http.StatusOK, page(roomRows(), map[string]any{
		"total": 12, "from": 1, "to": 2,
		"links": []map[string]any{
			{"url": nil, "label": "&laquo; Anterior", "active": false},
			{"url": p.backend.url("/api/salas?page=1"), "label": "1", "active": true},
			{"url": next, "label": "2", "active": false},
			{"url": next, "label": "Siguiente &raquo;", "active": false},
		},
	}))

	rec := p.do(http.MethodGet, "/salas", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, `<th scope="col">Nombre</th>`)
	assert.Contains(t, body, "Sala &lt;A&gt;", "raw values are escaped")
	assert.Contains(t, body, "Mostrando 1 a 2 de 12 resultados")
	assert.Contains(t, body, `aria-disabled="true">« Anterior</span>`)
	assert.Contains(t, body, `aria-current="page"`)
	assert.Contains(t, body, html.EscapeString("/salas?page="+url.QueryEscape(next)))
	assert.Contains(t, body, `href="/salas/1/edit"`)
	assert.Contains(t, body, `href="/salas/2/delete"`)
	assert.Contains(t, body, `href="/reservas/calendario?sala_id=1"`)
	assert.Less(t, strings.Index(body, "Sala &lt;A&gt;"), strings.Index(body, "Sala B"), "row order is kept")
}

func TestList_EmptyShowsNoResultsRow(t *testing.T) {
	p := newTestPortal(t)
	p.backend.reply("GET /api/responsables", http.StatusOK, page([]any{}, map[string]any{"total": 0, "from": 0, "to": 0}))

	rec := p.do(http.MethodGet, "/responsables", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<tr class="empty"><td colspan="4">No hay resultados.</td></tr>`)
}

func TestList_FollowsBackendPageLink(t *testing.T) {
	p := newTestPortal(t)
	p.backend.reply("GET /api/salas", http.StatusOK, page(roomRows(), nil))

	link := p.backend.url("/api/salas?page=3")
	rec := p.do(http.MethodGet, "/salas?page="+url.QueryEscape(link), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	call, ok := p.backend.find(http.MethodGet, "/api/salas")
	require.True(t, ok)
	assert.Equal(t, "3", call.Query.Get("page"))
}

func TestList_RejectsForeignPageLink(t *testing.T) {
	p := newTestPortal(t)
	rec := p.do(http.MethodGet, "/salas?page="+url.QueryEscape("http://evil.example/api/salas?page=2"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "El enlace de paginación no es válido.")
}

func TestList_BackendDown(t *testing.T) {
	p := newTestPortal(t)
	p.backend.reply("GET /api/salas", http.StatusInternalServerError, map[string]any{"message": "db down"})

	rec := p.do(http.MethodGet, "/salas", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "El servidor respondió con un error (500).")
}

func TestStore_SuccessRedirectsWithFlashAndEvent(t *testing.T) {
	p := newTestPortal(t)
	p.backend.reply("POST /api/salas", http.StatusCreated, map[string]any{"id": 9})
	p.backend.reply("GET /api/salas", http.StatusOK, page(roomRows(), nil))

	var published []events.EntityEventPayload
	p.bus.Subscribe(events.EventEntityCreated, func(e *events.Event) error {
		var payload events.EntityEventPayload
		require.NoError(t, json.Unmarshal(e.Payload, &payload))
		published = append(published, payload)
		return nil
	})

	rec := p.do(http.MethodPost, "/salas", url.Values{
		"nombre":    {" Sala Nueva "},
		"capacidad": {"15"},
		"ubicacion": {"Anexo"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/salas", rec.Header().Get("Location"))

	call, ok := p.backend.find(http.MethodPost, "/api/salas")
	require.True(t, ok)
	assert.Equal(t, "Sala Nueva", call.Body["nombre"])
	assert.Equal(t, float64(15), call.Body["capacidad"])

	require.Len(t, published, 1)
	assert.Equal(t, "salas", published[0].Entity)
	assert.True(t, testNow.Equal(published[0].At))

	rec = p.do(http.MethodGet, "/salas", nil)
	assert.Contains(t, rec.Body.String(), `<div class="toast toast-success">Sala creada.</div>`)

	rec = p.do(http.MethodGet, "/salas", nil)
	assert.NotContains(t, rec.Body.String(), "Sala creada.", "flashes are shown once")
}

func TestStore_ValidationErrorRerendersForm(t *testing.T) {
	p := newTestPortal(t)
	p.backend.reply("POST /api/salas", http.StatusUnprocessableEntity, map[string]any{
		"message": "Los datos no son válidos.",
		"errors": map[string]any{
			"nombre":    "El nombre es obligatorio.",
			"capacidad": []string{"La capacidad debe ser un número.", "La capacidad mínima es 1."},
			"extra":     "Campo desconocido.",
		},
	})

	rec := p.do(http.MethodPost, "/salas", url.Values{"nombre": {""}, "capacidad": {"muchos"}, "ubicacion": {"Piso 3"}})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, "El nombre es obligatorio.")
	assert.Contains(t, body, "La capacidad mínima es 1.")
	assert.Contains(t, body, "Campo desconocido.")
	assert.Contains(t, body, `value="Piso 3"`, "old input is kept")
	assert.Contains(t, body, `value="muchos"`)
	assert.Contains(t, body, "Los datos no son válidos.")

	call, ok := p.backend.find(http.MethodPost, "/api/salas")
	require.True(t, ok)
	assert.Equal(t, "muchos", call.Body["capacidad"], "unparseable numbers reach the backend as typed")
}

func TestStore_ConflictShowsToastAndKeepsForm(t *testing.T) {
	p := newTestPortal(t)
	p.backend.reply("POST /api/responsables", http.StatusConflict, map[string]any{"message": "Ya existe"})

	rec := p.do(http.MethodPost, "/responsables", url.Values{"nombre": {"Ana"}, "area": {"RRHH"}})
	assert.Equal(t, http.StatusConflict, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "toast-error")
	assert.Contains(t, body, "La operación entra en conflicto con datos existentes.")
	assert.Contains(t, body, `value="Ana"`)
}

func TestCreateForm_LoadsSelectOptions(t *testing.T) {
	p := newTestPortal(t)
	p.backend.reply("GET /api/salas", http.StatusOK, page(roomRows(), nil))

	rec := p.do(http.MethodGet, "/equipos/create", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Nuevo equipo")
	assert.Contains(t, body, `<option value="2">Sala B</option>`)
	assert.Contains(t, body, `<option value="fuera_de_servicio">Fuera de servicio</option>`)
}

func TestEdit_PrefillsAndUpdatesThroughOverride(t *testing.T) {
	p := newTestPortal(t)
	p.backend.reply("GET /api/equipos/4", http.StatusOK, map[string]any{"data": map[string]any{
		"id": 4, "marca": "Lenovo", "modelo": "T14", "estado_inicial": "bueno",
		"fecha_adquisicion": "2023-05-02", "fecha_baja": nil, "sala_id": 2,
	}})
	p.backend.reply("GET /api/salas", http.StatusOK, page(roomRows(), nil))
	p.backend.reply("PUT /api/equipos/4", http.StatusOK, map[string]any{})

	rec := p.do(http.MethodGet, "/equipos/4/edit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `value="Lenovo"`)
	assert.Contains(t, body, `<option value="2" selected>Sala B</option>`)
	assert.Contains(t, body, `<option value="bueno" selected>Bueno</option>`)
	assert.Contains(t, body, `name="_method" value="PUT"`)

	rec = p.do(http.MethodPost, "/equipos/4", url.Values{
		"_method":           {"PUT"},
		"marca":             {"Lenovo"},
		"modelo":            {"T14 Gen 2"},
		"estado_inicial":    {"bueno"},
		"fecha_adquisicion": {"2023-05-02"},
		"fecha_baja":        {""},
		"sala_id":           {"2"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	call, ok := p.backend.find(http.MethodPut, "/api/equipos/4")
	require.True(t, ok)
	assert.Equal(t, "T14 Gen 2", call.Body["modelo"])
	assert.Equal(t, float64(2), call.Body["sala_id"])
	assert.Contains(t, call.Body, "fecha_baja")
	assert.Nil(t, call.Body["fecha_baja"])
	assert.NotContains(t, call.Body, "_method")

	rec = p.do(http.MethodGet, "/equipos/4/edit", nil)
	assert.Contains(t, rec.Body.String(), "Equipo actualizado.")
}

func TestEdit_NotFound(t *testing.T) {
	p := newTestPortal(t)
	assert.Equal(t, http.StatusNotFound, p.do(http.MethodGet, "/salas/77/edit", nil).Code)
	assert.Equal(t, http.StatusNotFound, p.do(http.MethodGet, "/salas/abc/edit", nil).Code)
}

func TestTrainerForm_FormatsDNIAndPhone(t *testing.T) {
	p := newTestPortal(t)
	p.backend.reply("POST /api/capacitadores", http.StatusCreated, map[string]any{})

	rec := p.do(http.MethodPost, "/capacitadores", url.Values{
		"nombre":   {"Ana"},
		"apellido": {"Pérez"},
		"dni":      {"12345678"},
		"telefono": {"(11) 2345 6789"},
		"email":    {"ana@example.org"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	call, ok := p.backend.find(http.MethodPost, "/api/capacitadores")
	require.True(t, ok)
	assert.Equal(t, "12.345.678", call.Body["dni"])
	assert.Equal(t, "112-345-6789", call.Body["telefono"])
}

func TestTrainerForm_ShowsHintsOnError(t *testing.T) {
	p := newTestPortal(t)
	p.backend.reply("POST /api/capacitadores", http.StatusUnprocessableEntity, map[string]any{
		"errors": map[string]any{"email": "El correo no es válido."},
	})

	rec := p.do(http.MethodPost, "/capacitadores", url.Values{
		"nombre": {"Ana"}, "apellido": {"Pérez"}, "dni": {"1234"}, "telefono": {"11234"}, "email": {"ana-at-example"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Formato esperado: XXX-XXX-XXXX.")
	assert.Contains(t, body, "El correo no parece válido")
	assert.Contains(t, body, `value="1.234"`)
}

func TestDelete_ConfirmAndDestroy(t *testing.T) {
	p := newTestPortal(t)
	p.backend.reply("GET /api/responsables/3", http.StatusOK, map[string]any{"id": 3, "nombre": "Marta", "area": "Sistemas"})
	p.backend.reply("DELETE /api/responsables/3", http.StatusNoContent, nil)
	p.backend.reply("GET /api/responsables", http.StatusOK, page([]any{}, nil))

	var deleted int
	p.bus.Subscribe(events.EventEntityDeleted, func(*events.Event) error { deleted++; return nil })

	rec := p.do(http.MethodGet, "/responsables/3/delete", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "«Marta»")
	assert.Contains(t, rec.Body.String(), `name="_method" value="DELETE"`)

	rec = p.do(http.MethodPost, "/responsables/3", url.Values{"_method": {"DELETE"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	_, ok := p.backend.find(http.MethodDelete, "/api/responsables/3")
	assert.True(t, ok)
	assert.Equal(t, 1, deleted)

	rec = p.do(http.MethodGet, "/responsables", nil)
	assert.Contains(t, rec.Body.String(), "Responsable eliminado.")
}

func TestDestroy_FailureFlashesError(t *testing.T) {
	p := newTestPortal(t)
	p.backend.reply("DELETE /api/salas/1", http.StatusConflict, map[string]any{"message": "tiene reservas"})
	p.backend.reply("GET /api/salas", http.StatusOK, page(roomRows(), nil))

	rec := p.do(http.MethodPost, "/salas/1", url.Values{"_method": {"DELETE"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = p.do(http.MethodGet, "/salas", nil)
	assert.Contains(t, rec.Body.String(), `toast-error">La operación entra en conflicto con datos existentes.`)
}

func TestExport_WritesWorkbookWithoutActionColumn(t *testing.T) {
	p := newTestPortal(t)
	p.backend.reply("GET /api/salas", http.StatusOK, page(roomRows(), nil))

	rec := p.do(http.MethodGet, "/salas/export.xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `salas.xlsx`)

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Salas")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"#", "Nombre", "Capacidad", "Ubicación"}, rows[0])
	assert.Equal(t, "Sala <A>", rows[1][1])
}

func TestUsers_PasswordOmittedWhenEmpty(t *testing.T) {
	p := newTestPortal(t)
	p.backend.reply("PUT /api/usuarios/5", http.StatusOK, map[string]any{})

	rec := p.do(http.MethodPost, "/usuarios/5", url.Values{
		"_method":  {"PUT"},
		"name":     {"Admin"},
		"email":    {"admin@example.org"},
		"password": {""},
		"roles":    {"1", "3"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	call, ok := p.backend.find(http.MethodPut, "/api/usuarios/5")
	require.True(t, ok)
	assert.NotContains(t, call.Body, "password")
	assert.Equal(t, []any{float64(1), float64(3)}, call.Body["roles"])
}
