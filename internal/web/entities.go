package web

import (
	"context"
	"html/template"
	"net/url"
	"strconv"
	"strings"

	"portal/internal/backend"
	"portal/internal/format"
	"portal/internal/models"
	"portal/internal/table"
)

func (s *Server) resources() []registrar {
	return []registrar{
		s.rooms(),
		s.equipment(),
		s.reservations(),
		s.trainers(),
		s.responsibles(),
		s.usageControls(),
		s.users(),
		s.roles(),
	}
}

func esc(s string) template.HTML {
	return template.HTML(template.HTMLEscapeString(s))
}

func collectOptions[T any](s *Server, entity string, query url.Values, option func(T) Option) optionSource {
	return func(ctx context.Context) ([]Option, error) {
		rows, err := backend.Collect[T](ctx, s.backend, entity, query, s.cfg.Backend.MaxOptionPages)
		if err != nil {
			return nil, err
		}
		opts := make([]Option, 0, len(rows))
		for _, row := range rows {
			opts = append(opts, option(row))
		}
		return opts, nil
	}
}

func (s *Server) roomOptions() optionSource {
	return collectOptions(s, models.EntityRooms, nil, func(r models.Room) Option {
		return Option{Value: idString(r.ID), Label: r.Nombre}
	})
}

func (s *Server) rooms() *resource[models.Room] {
	return &resource[models.Room]{
		s:        s,
		entity:   models.EntityRooms,
		title:    "Salas",
		singular: "Sala",
		feminine: true,
		columns: []table.Column[models.Room]{
			{Key: "id", Header: "#"},
			{Key: "nombre", Header: "Nombre"},
			{Key: "capacidad", Header: "Capacidad"},
			{Key: "ubicacion", Header: "Ubicación"},
		},
		id:    func(r models.Room) int64 { return r.ID },
		label: func(r models.Room) string { return r.Nombre },
		values: func(r models.Room) url.Values {
			return url.Values{
				"nombre":    {r.Nombre},
				"capacidad": {strconv.Itoa(r.Capacidad)},
				"ubicacion": {r.Ubicacion},
			}
		},
		form: fieldForm{fields: []Field{
			{Name: "nombre", Label: "Nombre", Type: inputText, Required: true},
			{Name: "capacidad", Label: "Capacidad", Type: inputNumber, Required: true, Integer: true},
			{Name: "ubicacion", Label: "Ubicación", Type: inputText},
		}},
		actions: func(r models.Room) []rowAction {
			return []rowAction{{Label: "Calendario", Href: "/reservas/calendario?sala_id=" + idString(r.ID)}}
		},
	}
}

func (s *Server) equipment() *resource[models.Equipment] {
	return &resource[models.Equipment]{
		s:        s,
		entity:   models.EntityEquipment,
		title:    "Equipos",
		singular: "Equipo",
		columns: []table.Column[models.Equipment]{
			{Key: "id", Header: "#"},
			{Key: "marca", Header: "Marca"},
			{Key: "modelo", Header: "Modelo"},
			{Key: "sistema_operativo", Header: "Sistema operativo"},
			{Key: "estado_inicial", Header: "Estado inicial"},
			{Key: "estado_final", Header: "Estado final"},
			{
				Key:    "fecha_adquisicion",
				Header: "Adquisición",
				Render: func(e models.Equipment) template.HTML { return esc(format.Date(e.FechaAdquisicion)) },
			},
			{
				Key:    "fecha_baja",
				Header: "Baja",
				Render: func(e models.Equipment) template.HTML {
					if e.FechaBaja == nil {
						return "—"
					}
					return esc(format.Date(*e.FechaBaja))
				},
			},
			{Key: "sala.nombre", Header: "Sala"},
		},
		id:    func(e models.Equipment) int64 { return e.ID },
		label: func(e models.Equipment) string { return e.Label() },
		values: func(e models.Equipment) url.Values {
			v := url.Values{
				"marca":             {e.Marca},
				"modelo":            {e.Modelo},
				"sistema_operativo": {e.SistemaOperativo},
				"estado_inicial":    {e.EstadoInicial},
				"estado_final":      {e.EstadoFinal},
				"fecha_adquisicion": {e.FechaAdquisicion},
				"sala_id":           {idString(e.SalaID)},
			}
			if e.FechaBaja != nil {
				v.Set("fecha_baja", *e.FechaBaja)
			}
			return v
		},
		form: fieldForm{
			fields: []Field{
				{Name: "marca", Label: "Marca", Type: inputText, Required: true},
				{Name: "modelo", Label: "Modelo", Type: inputText, Required: true},
				{Name: "sistema_operativo", Label: "Sistema operativo", Type: inputText},
				{Name: "estado_inicial", Label: "Estado inicial", Type: inputSelect, Required: true, Options: conditionOptions()},
				{Name: "estado_final", Label: "Estado final", Type: inputSelect, Options: conditionOptions()},
				{Name: "fecha_adquisicion", Label: "Fecha de adquisición", Type: inputDate, Required: true},
				{Name: "fecha_baja", Label: "Fecha de baja", Type: inputDate, Nullable: true},
				{Name: "sala_id", Label: "Sala", Type: inputSelect, Required: true, Integer: true},
			},
			options: map[string]optionSource{"sala_id": s.roomOptions()},
		},
	}
}

func trainerNames(r models.Reservation) string {
	names := make([]string, 0, len(r.Capacitadores))
	for _, t := range r.Capacitadores {
		names = append(names, t.FullName())
	}
	return strings.Join(names, ", ")
}

func (s *Server) reservations() *resource[models.Reservation] {
	return &resource[models.Reservation]{
		s:        s,
		entity:   models.EntityReservations,
		title:    "Reservas",
		singular: "Reserva",
		feminine: true,
		columns: []table.Column[models.Reservation]{
			{Key: "id", Header: "#"},
			{Key: "sala.nombre", Header: "Sala"},
			{Key: "solicitante", Header: "Solicitante"},
			{Key: "area", Header: "Área"},
			{
				Key:    "fecha",
				Header: "Fecha",
				Render: func(r models.Reservation) template.HTML { return esc(format.Date(r.Fecha)) },
				Export: func(r models.Reservation) string { return format.Date(r.Fecha) },
			},
			{
				Header: "Horario",
				Render: func(r models.Reservation) template.HTML {
					return esc(format.Time(r.HoraInicio) + " – " + format.Time(r.HoraFin))
				},
				Export: func(r models.Reservation) string { return format.Time(r.HoraInicio) + " - " + format.Time(r.HoraFin) },
			},
			{Key: "cantidad_equipos", Header: "Equipos"},
			{
				Header: "Capacitadores",
				Render: func(r models.Reservation) template.HTML { return esc(trainerNames(r)) },
				Export: trainerNames,
			},
		},
		id: func(r models.Reservation) int64 { return r.ID },
		label: func(r models.Reservation) string {
			return strings.TrimSpace(r.RoomName() + " " + format.Date(r.Fecha) + " " + format.Time(r.HoraInicio))
		},
		values: func(r models.Reservation) url.Values {
			v := url.Values{
				"sala_id":          {idString(r.SalaID)},
				"solicitante":      {r.Solicitante},
				"area":             {r.Area},
				"fecha":            {r.Fecha},
				"hora_inicio":      {format.Time(r.HoraInicio)},
				"hora_fin":         {format.Time(r.HoraFin)},
				"cantidad_equipos": {strconv.Itoa(r.CantidadEquipos)},
			}
			for _, id := range r.TrainerIDs() {
				v.Add("capacitadores", idString(id))
			}
			return v
		},
		form: fieldForm{
			fields: []Field{
				{Name: "sala_id", Label: "Sala", Type: inputSelect, Required: true, Integer: true},
				{Name: "solicitante", Label: "Solicitante", Type: inputText, Required: true},
				{Name: "area", Label: "Área", Type: inputText, Required: true},
				{Name: "fecha", Label: "Fecha", Type: inputDate, Required: true},
				{Name: "hora_inicio", Label: "Hora de inicio", Type: inputTime, Required: true},
				{Name: "hora_fin", Label: "Hora de fin", Type: inputTime, Required: true},
				{Name: "cantidad_equipos", Label: "Cantidad de equipos", Type: inputNumber, Integer: true},
				{Name: "capacitadores", Label: "Capacitadores", Type: inputMultiSelect},
			},
			options: map[string]optionSource{
				"sala_id": s.roomOptions(),
				"capacitadores": collectOptions(s, models.EntityTrainers, nil, func(t models.Trainer) Option {
					return Option{Value: idString(t.ID), Label: t.FullName()}
				}),
			},
		},
		prefill: s.prefillReservation,
		actions: func(r models.Reservation) []rowAction {
			return []rowAction{{Label: "Control de uso", Href: "/controles-uso/create?reserva_id=" + idString(r.ID)}}
		},
		links: []navItem{{Path: "/reservas/calendario", Label: "Ver calendario"}},
	}
}

func (s *Server) trainers() *resource[models.Trainer] {
	return &resource[models.Trainer]{
		s:        s,
		entity:   models.EntityTrainers,
		title:    "Capacitadores",
		singular: "Capacitador",
		columns: []table.Column[models.Trainer]{
			{Key: "id", Header: "#"},
			{Key: "nombre", Header: "Nombre"},
			{Key: "apellido", Header: "Apellido"},
			{
				Key:    "dni",
				Header: "DNI",
				Render: func(t models.Trainer) template.HTML { return esc(format.DNI(t.DNI)) },
				Export: func(t models.Trainer) string { return format.DNI(t.DNI) },
			},
			{Key: "telefono", Header: "Teléfono"},
			{Key: "email", Header: "Correo"},
		},
		id:    func(t models.Trainer) int64 { return t.ID },
		label: func(t models.Trainer) string { return t.FullName() },
		values: func(t models.Trainer) url.Values {
			return url.Values{
				"nombre":   {t.Nombre},
				"apellido": {t.Apellido},
				"dni":      {format.DNI(t.DNI)},
				"telefono": {format.Phone(t.Telefono)},
				"email":    {t.Email},
			}
		},
		form: fieldForm{fields: []Field{
			{Name: "nombre", Label: "Nombre", Type: inputText, Required: true},
			{Name: "apellido", Label: "Apellido", Type: inputText, Required: true},
			{Name: "dni", Label: "DNI", Type: inputText, Required: true, Format: formatDNI, Placeholder: "12.345.678"},
			{Name: "telefono", Label: "Teléfono", Type: inputTel, Format: formatPhone, Placeholder: "XXX-XXX-XXXX"},
			{Name: "email", Label: "Correo electrónico", Type: inputEmail},
		}},
	}
}

func (s *Server) responsibles() *resource[models.ResponsiblePerson] {
	return &resource[models.ResponsiblePerson]{
		s:        s,
		entity:   models.EntityResponsibles,
		title:    "Responsables",
		singular: "Responsable",
		columns: []table.Column[models.ResponsiblePerson]{
			{Key: "id", Header: "#"},
			{Key: "nombre", Header: "Nombre"},
			{Key: "area", Header: "Área"},
		},
		id:    func(p models.ResponsiblePerson) int64 { return p.ID },
		label: func(p models.ResponsiblePerson) string { return p.Nombre },
		values: func(p models.ResponsiblePerson) url.Values {
			return url.Values{"nombre": {p.Nombre}, "area": {p.Area}}
		},
		form: fieldForm{fields: []Field{
			{Name: "nombre", Label: "Nombre", Type: inputText, Required: true},
			{Name: "area", Label: "Área", Type: inputText, Required: true},
		}},
	}
}

func (s *Server) users() *resource[models.User] {
	return &resource[models.User]{
		s:        s,
		entity:   models.EntityUsers,
		title:    "Usuarios",
		singular: "Usuario",
		columns: []table.Column[models.User]{
			{Key: "id", Header: "#"},
			{Key: "name", Header: "Nombre"},
			{Key: "email", Header: "Correo"},
			{
				Header: "Roles",
				Render: func(u models.User) template.HTML { return esc(strings.Join(u.RoleNames(), ", ")) },
				Export: func(u models.User) string { return strings.Join(u.RoleNames(), ", ") },
			},
		},
		id:    func(u models.User) int64 { return u.ID },
		label: func(u models.User) string { return u.Name },
		values: func(u models.User) url.Values {
			v := url.Values{"name": {u.Name}, "email": {u.Email}}
			for _, role := range u.Roles {
				v.Add("roles", idString(role.ID))
			}
			return v
		},
		form: fieldForm{
			fields: []Field{
				{Name: "name", Label: "Nombre", Type: inputText, Required: true},
				{Name: "email", Label: "Correo electrónico", Type: inputEmail, Required: true},
				{Name: "password", Label: "Contraseña", Type: inputPassword, OmitEmpty: true,
					Placeholder: "Dejar vacío para no cambiarla"},
				{Name: "roles", Label: "Roles", Type: inputMultiSelect},
			},
			options: map[string]optionSource{
				"roles": collectOptions(s, models.EntityRoles, nil, func(r models.Role) Option {
					return Option{Value: idString(r.ID), Label: r.Name}
				}),
			},
		},
	}
}

func (s *Server) roles() *resource[models.Role] {
	return &resource[models.Role]{
		s:        s,
		entity:   models.EntityRoles,
		title:    "Roles",
		singular: "Rol",
		columns: []table.Column[models.Role]{
			{Key: "id", Header: "#"},
			{Key: "name", Header: "Nombre"},
			{
				Header: "Permisos",
				Render: func(r models.Role) template.HTML { return esc(strings.Join(r.PermissionNames(), ", ")) },
				Export: func(r models.Role) string { return strings.Join(r.PermissionNames(), ", ") },
			},
		},
		id:    func(r models.Role) int64 { return r.ID },
		label: func(r models.Role) string { return r.Name },
		values: func(r models.Role) url.Values {
			v := url.Values{"name": {r.Name}}
			for _, p := range r.Permissions {
				v.Add("permissions", idString(p.ID))
			}
			return v
		},
		form: fieldForm{
			fields: []Field{
				{Name: "name", Label: "Nombre", Type: inputText, Required: true},
				{Name: "permissions", Label: "Permisos", Type: inputMultiSelect},
			},
			options: map[string]optionSource{
				"permissions": collectOptions(s, models.EntityPermissions, nil, func(p models.Permission) Option {
					return Option{Value: idString(p.ID), Label: p.Name}
				}),
			},
		},
	}
}
