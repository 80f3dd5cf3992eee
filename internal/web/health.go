package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

const readyTimeout = 2 * time.Second

type dashboardPage struct {
	Entities []entitySummary
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	resources := s.resources()
	summaries := make([]entitySummary, len(resources))

	var wg sync.WaitGroup
	for i, res := range resources {
		wg.Add(1)
		go func(i int, res registrar) {
			defer wg.Done()
			summaries[i] = res.summary(r.Context())
		}(i, res)
	}
	wg.Wait()

	s.render(w, r, http.StatusOK, "dashboard", "Inicio", dashboardPage{Entities: summaries})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz pings every dependency; any failure makes the portal not ready.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	checks := make(map[string]string, len(names))
	for _, name := range names {
		if err := s.checks[name].Ping(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	writeJSON(w, status, map[string]any{"status": state, "checks": checks})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}
