package web

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"portal/internal/backend"
	"portal/internal/format"
	"portal/internal/models"
	"portal/internal/table"
)

var usageDetailFields = []string{"equipo_id", "estado_post_uso", "bateria", "acciones"}

type usageRow struct {
	Index    int
	EquipoID string
	Label    string
	Estado   string
	Bateria  string
	Acciones string
	Errors   []string
}

type usageView struct {
	ReservaID  string
	Reserva    *models.Reservation
	Rows       []usageRow
	Conditions []Option
}

// detailKey names the input of one equipment row, e.g. detalles[12][bateria].
func detailKey(equipoID, field string) string {
	return "detalles[" + equipoID + "][" + field + "]"
}

func reservationLabel(r models.Reservation) string {
	parts := []string{format.Date(r.Fecha), format.Time(r.HoraInicio)}
	if name := r.RoomName(); name != "" {
		parts = append(parts, name)
	}
	if r.Solicitante != "" {
		parts = append(parts, r.Solicitante)
	}
	return strings.Join(parts, " · ")
}

// usageForm lists one post-use row per equipment of the reservation's room.
type usageForm struct {
	s *Server
}

func (f usageForm) fill(ctx context.Context, page *formPage, values url.Values, errs models.FieldErrors) error {
	s := f.s
	rid := strings.TrimSpace(values.Get("reserva_id"))
	if rid == "" {
		opts, err := collectOptions(s, models.EntityReservations, nil, func(r models.Reservation) Option {
			return Option{Value: idString(r.ID), Label: reservationLabel(r)}
		})(ctx)
		if err != nil {
			return err
		}
		page.Picker = &pickerView{
			Action:  "/" + models.EntityUsageControls + "/create",
			Name:    "reserva_id",
			Label:   "Reserva",
			Options: opts,
		}
		return nil
	}

	id, err := strconv.ParseInt(rid, 10, 64)
	if err != nil {
		return &redirectError{to: "/" + models.EntityUsageControls + "/create", err: backend.ErrNotFound}
	}
	reservation, err := backend.Get[models.Reservation](ctx, s.backend, models.EntityReservations, id)
	if err != nil {
		return err
	}

	equipment, err := backend.Collect[models.Equipment](ctx, s.backend, models.EntityEquipment,
		url.Values{"sala_id": {idString(reservation.SalaID)}}, s.cfg.Backend.MaxOptionPages)
	if err != nil {
		return err
	}

	view := &usageView{ReservaID: rid, Reserva: reservation, Conditions: conditionOptions()}
	for _, e := range equipment {
		if e.SalaID != reservation.SalaID {
			continue
		}
		key := idString(e.ID)
		row := usageRow{
			Index:    len(view.Rows),
			EquipoID: key,
			Label:    e.Label(),
			Estado:   values.Get(detailKey(key, "estado_post_uso")),
			Bateria:  values.Get(detailKey(key, "bateria")),
			Acciones: values.Get(detailKey(key, "acciones")),
		}
		for _, field := range usageDetailFields {
			row.Errors = append(row.Errors, errs[fmt.Sprintf("detalles.%d.%s", row.Index, field)]...)
		}
		view.Rows = append(view.Rows, row)
	}
	page.Usage = view

	for _, name := range errs.Fields() {
		if !strings.HasPrefix(name, "detalles.") {
			page.Errors = append(page.Errors, errs[name]...)
		}
	}
	return nil
}

func (f usageForm) normalize(values url.Values) {
	for key, v := range values {
		for i := range v {
			v[i] = strings.TrimSpace(v[i])
		}
		values[key] = v
	}
}

// payload keeps the order of the rendered rows so backend errors like
// detalles.2.bateria land on the right row.
func (f usageForm) payload(values url.Values) any {
	detalles := make([]map[string]any, 0, len(values["equipo_ids"]))
	for _, eid := range values["equipo_ids"] {
		detail := map[string]any{
			"equipo_id":       scalar(eid, true),
			"estado_post_uso": values.Get(detailKey(eid, "estado_post_uso")),
			"acciones":        values.Get(detailKey(eid, "acciones")),
		}
		if b := values.Get(detailKey(eid, "bateria")); b != "" {
			detail["bateria"] = scalar(b, true)
		} else {
			detail["bateria"] = nil
		}
		detalles = append(detalles, detail)
	}
	return map[string]any{
		"reserva_id": scalar(values.Get("reserva_id"), true),
		"detalles":   detalles,
	}
}

func (s *Server) usageControls() *resource[models.UsageControl] {
	return &resource[models.UsageControl]{
		s:        s,
		entity:   models.EntityUsageControls,
		title:    "Controles de uso",
		singular: "Control de uso",
		columns: []table.Column[models.UsageControl]{
			{Key: "id", Header: "#"},
			{
				Header: "Reserva",
				Render: func(u models.UsageControl) template.HTML {
					if u.Reserva == nil {
						return esc("#" + idString(u.ReservaID))
					}
					return esc(reservationLabel(*u.Reserva))
				},
				Export: func(u models.UsageControl) string {
					if u.Reserva == nil {
						return idString(u.ReservaID)
					}
					return reservationLabel(*u.Reserva)
				},
			},
			{Key: "reserva.solicitante", Header: "Solicitante"},
			{
				Header: "Equipos revisados",
				Render: func(u models.UsageControl) template.HTML { return esc(strconv.Itoa(len(u.Detalles))) },
				Export: func(u models.UsageControl) string { return strconv.Itoa(len(u.Detalles)) },
			},
		},
		id:    func(u models.UsageControl) int64 { return u.ID },
		label: func(u models.UsageControl) string { return "Control de uso #" + idString(u.ID) },
		values: func(u models.UsageControl) url.Values {
			v := url.Values{"reserva_id": {idString(u.ReservaID)}}
			for _, d := range u.Detalles {
				key := idString(d.EquipoID)
				v.Set(detailKey(key, "estado_post_uso"), d.EstadoPostUso)
				bateria := ""
				if d.Bateria != nil {
					bateria = strconv.Itoa(*d.Bateria)
				}
				v.Set(detailKey(key, "bateria"), bateria)
				v.Set(detailKey(key, "acciones"), d.Acciones)
			}
			return v
		},
		form: usageForm{s: s},
		prefill: func(r *http.Request) (url.Values, error) {
			v := url.Values{}
			if rid := r.URL.Query().Get("reserva_id"); rid != "" {
				v.Set("reserva_id", rid)
			}
			return v, nil
		},
	}
}
