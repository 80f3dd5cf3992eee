// Package calendar lays reservations out on a weekly slot grid and decides which
// slots a user may pick. Conflict detection stays with the backend.
package calendar

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"portal/internal/models"
)

var (
	ErrInvalidSlot  = errors.New("invalid slot")
	ErrInvalidRange = errors.New("end must be after start")
	ErrPastSlot     = errors.New("slot is in the past")
	ErrOutsideHours = errors.New("slot is outside working hours")
)

type Config struct {
	DayStart    string // HH:MM
	DayEnd      string // HH:MM
	SlotMinutes int
	Location    *time.Location
}

func (c Config) withDefaults() Config {
	if c.DayStart == "" {
		c.DayStart = "07:00"
	}
	if c.DayEnd == "" {
		c.DayEnd = "21:00"
	}
	if c.SlotMinutes <= 0 {
		c.SlotMinutes = 30
	}
	if c.Location == nil {
		c.Location = time.Local
	}
	return c
}

// bounds returns the working hours of the given day.
func (c Config) bounds(day time.Time) (time.Time, time.Time, error) {
	date := day.Format(models.DateLayout)
	start, err := models.ParseDateTime(date, c.DayStart, c.Location)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("day_start: %w", err)
	}
	end, err := models.ParseDateTime(date, c.DayEnd, c.Location)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("day_end: %w", err)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("day_end %s must be after day_start %s", c.DayEnd, c.DayStart)
	}
	return start, end, nil
}

type State string

const (
	StateFinished State = "finished"
	StateOngoing  State = "ongoing"
	StateUpcoming State = "upcoming"
)

// StateAt classifies [start, end) against now.
func StateAt(start, end, now time.Time) State {
	switch {
	case !end.After(now):
		return StateFinished
	case !start.After(now):
		return StateOngoing
	default:
		return StateUpcoming
	}
}

func (s State) Color() string {
	switch s {
	case StateFinished:
		return "#9ca3af"
	case StateOngoing:
		return "#16a34a"
	default:
		return "#2563eb"
	}
}

func (s State) Label() string {
	switch s {
	case StateFinished:
		return "Finalizada"
	case StateOngoing:
		return "En curso"
	default:
		return "Próxima"
	}
}

// Event is a reservation placed on the time axis.
type Event struct {
	Reservation models.Reservation
	Start       time.Time
	End         time.Time
	Title       string
	State       State
	Color       string
}

// NewEvent resolves the reservation times in loc and colors it by state.
func NewEvent(r models.Reservation, loc *time.Location, now time.Time) (Event, error) {
	start, err := r.Start(loc)
	if err != nil {
		return Event{}, fmt.Errorf("reservation %d: %w", r.ID, err)
	}
	end, err := r.End(loc)
	if err != nil {
		return Event{}, fmt.Errorf("reservation %d: %w", r.ID, err)
	}
	if !end.After(start) {
		return Event{}, fmt.Errorf("reservation %d: %w", r.ID, ErrInvalidRange)
	}

	title := r.Solicitante
	if room := r.RoomName(); room != "" {
		title = room + " – " + r.Solicitante
	}

	state := StateAt(start, end, now)
	return Event{
		Reservation: r,
		Start:       start,
		End:         end,
		Title:       title,
		State:       state,
		Color:       state.Color(),
	}, nil
}

func (e Event) overlaps(start, end time.Time) bool {
	return e.Start.Before(end) && e.End.After(start)
}

type Slot struct {
	Start      time.Time
	End        time.Time
	Past       bool
	Events     []Event
	Selectable bool
}

type Day struct {
	Date  time.Time
	Today bool
	Slots []Slot
}

var weekdayNames = [...]string{"Domingo", "Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado"}

// Name returns the Spanish weekday name.
func (d Day) Name() string {
	return weekdayNames[d.Date.Weekday()]
}

// Row is one time band across the seven days, for table-shaped templates.
type Row struct {
	Label string
	Cells []Slot
}

type Week struct {
	Start   time.Time
	Prev    time.Time
	Next    time.Time
	Days    []Day
	Rows    []Row
	Events  []Event
	Invalid []models.Reservation
}

// WeekStart returns Monday 00:00 of the week containing t, in loc.
func WeekStart(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	offset := int(t.Weekday()) - 1
	if offset < 0 {
		offset = 6 // Sunday closes a Monday-first week
	}
	return time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, loc)
}

// BuildWeek places reservations on the week containing day. Reservations whose
// times cannot be resolved are returned in Week.Invalid instead of failing.
func BuildWeek(cfg Config, now, day time.Time, reservations []models.Reservation) (Week, error) {
	cfg = cfg.withDefaults()
	start := WeekStart(day, cfg.Location)

	week := Week{
		Start: start,
		Prev:  start.AddDate(0, 0, -7),
		Next:  start.AddDate(0, 0, 7),
	}

	for _, r := range reservations {
		ev, err := NewEvent(r, cfg.Location, now)
		if err != nil {
			week.Invalid = append(week.Invalid, r)
			continue
		}
		if ev.overlaps(start, week.Next) {
			week.Events = append(week.Events, ev)
		}
	}

	slotLen := time.Duration(cfg.SlotMinutes) * time.Minute
	today := now.In(cfg.Location).Format(models.DateLayout)

	for i := 0; i < 7; i++ {
		date := start.AddDate(0, 0, i)
		open, closeAt, err := cfg.bounds(date)
		if err != nil {
			return Week{}, err
		}

		d := Day{Date: date, Today: date.Format(models.DateLayout) == today}
		for s := open; !s.Add(slotLen).After(closeAt); s = s.Add(slotLen) {
			slot := Slot{Start: s, End: s.Add(slotLen)}
			slot.Past = !slot.End.After(now)
			for _, ev := range week.Events {
				if ev.overlaps(slot.Start, slot.End) {
					slot.Events = append(slot.Events, ev)
				}
			}
			// A running slot is not past but cannot be picked: CheckSelection
			// rejects starts before now.
			slot.Selectable = !slot.Start.Before(now) && len(slot.Events) == 0
			d.Slots = append(d.Slots, slot)
		}
		week.Days = append(week.Days, d)
	}

	week.Rows = buildRows(week.Days)

	return week, nil
}

// buildRows lines the days up by clock time, so a day with fewer slots (a DST
// change) leaves a gap instead of shifting its cells under the wrong label.
// Clock times a day lacks are filled with an empty past slot.
func buildRows(days []Day) []Row {
	var labels []string
	seen := make(map[string]bool)
	byDay := make([]map[string]Slot, len(days))
	for i, d := range days {
		byDay[i] = make(map[string]Slot, len(d.Slots))
		for _, slot := range d.Slots {
			label := slot.Start.Format(models.TimeLayout)
			byDay[i][label] = slot
			if !seen[label] {
				seen[label] = true
				labels = append(labels, label)
			}
		}
	}
	sort.Strings(labels)

	rows := make([]Row, 0, len(labels))
	for _, label := range labels {
		row := Row{Label: label, Cells: make([]Slot, 0, len(days))}
		for i := range days {
			slot, ok := byDay[i][label]
			if !ok {
				slot = Slot{Past: true}
			}
			row.Cells = append(row.Cells, slot)
		}
		rows = append(rows, row)
	}
	return rows
}

// Selection is a validated interactive pick.
type Selection struct {
	Start time.Time
	End   time.Time
}

// CheckSelection rejects obviously invalid picks: unparseable values, empty or
// reversed ranges, past starts and ranges outside working hours.
func CheckSelection(cfg Config, now time.Time, date, start, end string) (Selection, error) {
	cfg = cfg.withDefaults()

	from, err := models.ParseDateTime(date, start, cfg.Location)
	if err != nil {
		return Selection{}, fmt.Errorf("%w: %v", ErrInvalidSlot, err)
	}
	to, err := models.ParseDateTime(date, end, cfg.Location)
	if err != nil {
		return Selection{}, fmt.Errorf("%w: %v", ErrInvalidSlot, err)
	}
	if !to.After(from) {
		return Selection{}, ErrInvalidRange
	}
	if from.Before(now) {
		return Selection{}, ErrPastSlot
	}

	open, closeAt, err := cfg.bounds(from)
	if err != nil {
		return Selection{}, err
	}
	if from.Before(open) || to.After(closeAt) {
		return Selection{}, ErrOutsideHours
	}

	return Selection{Start: from, End: to}, nil
}
