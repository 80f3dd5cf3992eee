package web

import (
	"net/http"

	"portal/internal/models"

	"github.com/rs/zerolog"
)

// flash queues a notification for the next rendered page of this session.
func (s *Server) flash(r *http.Request, kind, message string) {
	sid := sessionFrom(r.Context())
	if sid == "" {
		return
	}
	if err := s.flashes.Push(r.Context(), sid, models.Flash{Kind: kind, Message: message}); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("push flash")
	}
}

func (s *Server) popFlashes(r *http.Request) []models.Flash {
	sid := sessionFrom(r.Context())
	if sid == "" {
		return nil
	}
	flashes, err := s.flashes.Pop(r.Context(), sid)
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("pop flashes")
		return nil
	}
	return flashes
}
