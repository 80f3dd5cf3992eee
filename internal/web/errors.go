package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"portal/internal/backend"
	"portal/internal/calendar"
)

// errorMessage is the single place where errors become user-facing text.
func errorMessage(err error) string {
	if err == nil {
		return ""
	}

	if verr, ok := backend.AsValidation(err); ok {
		if verr.Message != "" {
			return verr.Message
		}
		return "Revise los campos marcados."
	}

	var serr *backend.StatusError
	var nerr net.Error
	switch {
	case errors.Is(err, backend.ErrNotFound):
		return "El registro no existe o fue eliminado."
	case errors.Is(err, backend.ErrConflict):
		return "La operación entra en conflicto con datos existentes."
	case errors.Is(err, backend.ErrUnavailable):
		return "El servicio no está disponible. Intente nuevamente en unos minutos."
	case errors.Is(err, backend.ErrForeignLink):
		return "El enlace de paginación no es válido."
	case errors.Is(err, calendar.ErrPastSlot):
		return "No se puede reservar un horario que ya pasó."
	case errors.Is(err, calendar.ErrInvalidRange):
		return "La hora de fin debe ser posterior a la hora de inicio."
	case errors.Is(err, calendar.ErrOutsideHours):
		return "El horario elegido está fuera del horario de atención."
	case errors.Is(err, calendar.ErrInvalidSlot):
		return "El horario elegido no es válido."
	case errors.As(err, &serr):
		switch serr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return "No tiene permiso para realizar esta acción."
		case http.StatusTooManyRequests:
			return "Demasiadas solicitudes. Espere un momento e intente nuevamente."
		}
		return fmt.Sprintf("El servidor respondió con un error (%d).", serr.Code)
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &nerr):
		return "No se pudo contactar al servidor."
	}
	return "Ocurrió un error inesperado."
}

// statusFor picks the HTTP status the portal answers with for err.
func statusFor(err error) int {
	if _, ok := backend.AsValidation(err); ok {
		return http.StatusUnprocessableEntity
	}

	var serr *backend.StatusError
	switch {
	case errors.Is(err, backend.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, backend.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, backend.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, backend.ErrForeignLink),
		errors.Is(err, calendar.ErrPastSlot),
		errors.Is(err, calendar.ErrInvalidRange),
		errors.Is(err, calendar.ErrOutsideHours),
		errors.Is(err, calendar.ErrInvalidSlot):
		return http.StatusBadRequest
	case errors.As(err, &serr):
		if serr.Code >= 400 && serr.Code < 500 {
			return serr.Code
		}
	}
	return http.StatusBadGateway
}
