package web

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"portal/internal/backend"
	"portal/internal/calendar"
	"portal/internal/models"

	"github.com/rs/zerolog"
)

type cellView struct {
	calendar.Slot
	// Href opens the prefilled reservation form; empty when not selectable.
	Href string
}

type rowView struct {
	Label string
	Cells []cellView
}

type legendItem struct {
	Label string
	Color string
}

type calendarPage struct {
	Rooms     []Option
	RoomID    string
	Days      []calendar.Day
	Rows      []rowView
	Events    []calendar.Event
	PrevHref  string
	NextHref  string
	TodayHref string
	Legend    []legendItem
	Invalid   int
}

func calendarHref(roomID string, week time.Time) string {
	q := url.Values{"semana": {week.Format(models.DateLayout)}}
	if roomID != "" {
		q.Set("sala_id", roomID)
	}
	return "/reservas/calendario?" + q.Encode()
}

func slotHref(roomID string, slot calendar.Slot) string {
	q := url.Values{
		"fecha":       {slot.Start.Format(models.DateLayout)},
		"hora_inicio": {slot.Start.Format(models.TimeLayout)},
		"hora_fin":    {slot.End.Format(models.TimeLayout)},
	}
	if roomID != "" {
		q.Set("sala_id", roomID)
	}
	return "/reservas/create?" + q.Encode()
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	loc := s.calendar.Location
	now := s.now().In(loc)
	query := r.URL.Query()

	day := now
	if raw := query.Get("semana"); raw != "" {
		parsed, err := time.ParseInLocation(models.DateLayout, raw, loc)
		if err != nil {
			s.renderStatus(w, r, http.StatusBadRequest, "La semana indicada no es una fecha válida.")
			return
		}
		day = parsed
	}

	rooms, err := backend.Collect[models.Room](ctx, s.backend, models.EntityRooms, nil, s.cfg.Backend.MaxOptionPages)
	if err != nil {
		s.renderError(w, r, err, "/reservas")
		return
	}

	page := calendarPage{}
	for _, room := range rooms {
		page.Rooms = append(page.Rooms, Option{Value: idString(room.ID), Label: room.Nombre})
	}

	page.RoomID = query.Get("sala_id")
	if page.RoomID == "" && len(rooms) > 0 {
		page.RoomID = idString(rooms[0].ID)
	}

	weekStart := calendar.WeekStart(day, loc)
	var reservations []models.Reservation
	if roomID, err := strconv.ParseInt(page.RoomID, 10, 64); err == nil {
		filter := url.Values{
			"sala_id":     {page.RoomID},
			"fecha_desde": {weekStart.Format(models.DateLayout)},
			"fecha_hasta": {weekStart.AddDate(0, 0, 6).Format(models.DateLayout)},
		}
		all, err := backend.Collect[models.Reservation](ctx, s.backend, models.EntityReservations, filter, s.cfg.Backend.MaxOptionPages)
		if err != nil {
			s.renderError(w, r, err, "/reservas")
			return
		}
		for _, res := range all {
			if res.SalaID == roomID {
				reservations = append(reservations, res)
			}
		}
	}

	week, err := calendar.BuildWeek(s.calendar, now, day, reservations)
	if err != nil {
		s.renderPlain(w, r, err)
		return
	}
	if len(week.Invalid) > 0 {
		zerolog.Ctx(ctx).Warn().Int("count", len(week.Invalid)).Msg("reservations with unreadable times skipped")
	}

	page.Days = week.Days
	page.Events = week.Events
	page.Invalid = len(week.Invalid)
	page.PrevHref = calendarHref(page.RoomID, week.Prev)
	page.NextHref = calendarHref(page.RoomID, week.Next)
	page.TodayHref = calendarHref(page.RoomID, calendar.WeekStart(now, loc))
	for _, state := range []calendar.State{calendar.StateFinished, calendar.StateOngoing, calendar.StateUpcoming} {
		page.Legend = append(page.Legend, legendItem{Label: state.Label(), Color: state.Color()})
	}
	for _, row := range week.Rows {
		rv := rowView{Label: row.Label}
		for _, slot := range row.Cells {
			cv := cellView{Slot: slot}
			if slot.Selectable && page.RoomID != "" {
				cv.Href = slotHref(page.RoomID, slot)
			}
			rv.Cells = append(rv.Cells, cv)
		}
		page.Rows = append(page.Rows, rv)
	}

	s.render(w, r, http.StatusOK, "calendar", "Calendario de reservas", page)
}

// prefillReservation seeds the reservation form from a calendar pick. A pick
// that cannot be booked sends the user back to the calendar.
func (s *Server) prefillReservation(r *http.Request) (url.Values, error) {
	query := r.URL.Query()
	values := url.Values{}
	for _, key := range []string{"sala_id", "fecha", "hora_inicio", "hora_fin"} {
		if v := query.Get(key); v != "" {
			values.Set(key, v)
		}
	}

	date, start, end := values.Get("fecha"), values.Get("hora_inicio"), values.Get("hora_fin")
	if date == "" && start == "" && end == "" {
		return values, nil
	}

	if _, err := calendar.CheckSelection(s.calendar, s.now(), date, start, end); err != nil {
		back := url.Values{}
		if sala := values.Get("sala_id"); sala != "" {
			back.Set("sala_id", sala)
		}
		if _, perr := time.Parse(models.DateLayout, date); perr == nil {
			back.Set("semana", date)
		}
		to := "/reservas/calendario"
		if len(back) > 0 {
			to += "?" + back.Encode()
		}
		return nil, &redirectError{to: to, err: err}
	}
	return values, nil
}
