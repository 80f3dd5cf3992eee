package models

import (
	"fmt"
	"strings"
	"time"
)

type Trainer struct {
	ID       int64  `json:"id"`
	Nombre   string `json:"nombre"`
	Apellido string `json:"apellido"`
	DNI      string `json:"dni"`
	Telefono string `json:"telefono"`
	Email    string `json:"email"`
}

// FullName returns "Nombre Apellido".
func (t Trainer) FullName() string {
	return strings.TrimSpace(t.Nombre + " " + t.Apellido)
}

type Reservation struct {
	ID              int64     `json:"id"`
	SalaID          int64     `json:"sala_id"`
	Sala            *Room     `json:"sala,omitempty"`
	Solicitante     string    `json:"solicitante"`
	Area            string    `json:"area"`
	Fecha           string    `json:"fecha"`
	HoraInicio      string    `json:"hora_inicio"`
	HoraFin         string    `json:"hora_fin"`
	CantidadEquipos int       `json:"cantidad_equipos"`
	Capacitadores   []Trainer `json:"capacitadores,omitempty"`
}

// Start resolves fecha + hora_inicio in loc.
func (r Reservation) Start(loc *time.Location) (time.Time, error) {
	return ParseDateTime(r.Fecha, r.HoraInicio, loc)
}

// End resolves fecha + hora_fin in loc.
func (r Reservation) End(loc *time.Location) (time.Time, error) {
	return ParseDateTime(r.Fecha, r.HoraFin, loc)
}

// RoomName returns the nested room name, or "" when the room was not joined.
func (r Reservation) RoomName() string {
	if r.Sala == nil {
		return ""
	}
	return r.Sala.Nombre
}

// TrainerIDs lists the ids of the linked trainers.
func (r Reservation) TrainerIDs() []int64 {
	ids := make([]int64, 0, len(r.Capacitadores))
	for _, t := range r.Capacitadores {
		ids = append(ids, t.ID)
	}
	return ids
}

type UsageDetail struct {
	EquipoID      int64      `json:"equipo_id"`
	Equipo        *Equipment `json:"equipo,omitempty"`
	EstadoPostUso string     `json:"estado_post_uso"`
	// Bateria is nil when the battery level was not recorded.
	Bateria       *int       `json:"bateria"`
	Acciones      string     `json:"acciones"`
}

type UsageControl struct {
	ID        int64         `json:"id"`
	ReservaID int64         `json:"reserva_id"`
	Reserva   *Reservation  `json:"reserva,omitempty"`
	Detalles  []UsageDetail `json:"detalles,omitempty"`
}

// ParseDateTime combines a YYYY-MM-DD date with an HH:MM or HH:MM:SS clock.
func ParseDateTime(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	clock = strings.TrimSpace(clock)
	if len(clock) > len(TimeLayout) {
		clock = clock[:len(TimeLayout)]
	}
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, strings.TrimSpace(date)+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q %q: %w", date, clock, err)
	}
	return t, nil
}
