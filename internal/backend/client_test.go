package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"portal/internal/config"
	"portal/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	logger := zerolog.Nop()
	c, err := NewClient(config.BackendConfig{
		BaseURL:    ts.URL + "/api",
		APIKey:     "key",
		APIExtra:   "extra",
		Timeout:    2 * time.Second,
		HealthPath: "/up",
		Breaker: config.BreakerConfig{
			MaxRequests:         1,
			Interval:            time.Minute,
			Timeout:             time.Minute,
			ConsecutiveFailures: 2,
		},
	}, &logger)
	require.NoError(t, err)
	return c, ts
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestNewClient_RejectsRelativeURL(t *testing.T) {
	logger := zerolog.Nop()
	_, err := NewClient(config.BackendConfig{BaseURL: "/api"}, &logger)
	assert.Error(t, err)
}

func TestList_SendsHeadersAndQuery(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/salas", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		assert.Equal(t, "extra", r.Header.Get("x-api-extra"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		writeJSON(w, http.StatusOK, map[string]any{
			"data":         []map[string]any{{"id": 1, "nombre": "Sala A", "capacidad": 20}},
			"current_page": 2,
			"per_page":     10,
			"total":        11,
			"from":         11,
			"to":           11,
			"links": []map[string]any{
				{"url": nil, "label": "&laquo; Anterior", "active": false},
				{"url": "http://x/api/salas?page=1", "label": "1", "active": false},
			},
		})
	}))

	page, err := List[models.Room](context.Background(), c, models.EntityRooms, url.Values{"page": {"2"}})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Sala A", page.Data[0].Nombre)
	assert.Equal(t, 11, page.Total)
	assert.Nil(t, page.Links[0].URL)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "validation with mixed encodings",
			status: http.StatusUnprocessableEntity,
			body:   `{"message":"Datos inválidos","errors":{"nombre":"requerido","capacidad":["numérico","mínimo 1"]}}`,
			check: func(t *testing.T, err error) {
				verr, ok := AsValidation(err)
				require.True(t, ok)
				assert.Equal(t, "Datos inválidos", verr.Message)
				assert.Equal(t, []string{"requerido"}, verr.Fields["nombre"])
				assert.Equal(t, []string{"numérico", "mínimo 1"}, verr.Fields["capacidad"])
			},
		},
		{
			name:   "not found",
			status: http.StatusNotFound,
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrNotFound) },
		},
		{
			name:   "conflict",
			status: http.StatusConflict,
			body:   `{"message":"La sala ya está reservada"}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrConflict)
				assert.Contains(t, err.Error(), "ya está reservada")
			},
		},
		{
			name:   "forbidden",
			status: http.StatusForbidden,
			body:   `{"error":"sin permiso"}`,
			check: func(t *testing.T, err error) {
				var serr *StatusError
				require.True(t, errors.As(err, &serr))
				assert.Equal(t, http.StatusForbidden, serr.Code)
				assert.Equal(t, "sin permiso", serr.Message)
			},
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			check: func(t *testing.T, err error) {
				var serr *StatusError
				require.True(t, errors.As(err, &serr))
				assert.Equal(t, http.StatusInternalServerError, serr.Code)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			err := Create(context.Background(), c, models.EntityRooms, map[string]any{"nombre": ""})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		err := Delete(ctx, c, models.EntityRooms, 1)
		var serr *StatusError
		require.True(t, errors.As(err, &serr))
	}

	err := Delete(ctx, c, models.EntityRooms, 1)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(2), calls.Load(), "open breaker must not reach the backend")
}

func TestBreakerIgnoresValidationErrors(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": map[string]any{"nombre": "requerido"}})
	}))

	for i := 0; i < 5; i++ {
		err := Create(context.Background(), c, models.EntityRooms, map[string]any{})
		_, ok := AsValidation(err)
		require.True(t, ok, "attempt %d: %v", i, err)
	}
}

func TestCreateUpdateDelete(t *testing.T) {
	type seen struct {
		method, path string
		body         map[string]any
	}
	var got []seen
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := seen{method: r.Method, path: r.URL.Path}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&s.body)
		}
		if r.Method != http.MethodDelete {
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		}
		got = append(got, s)
		writeJSON(w, http.StatusOK, map[string]any{"message": "ok"})
	}))

	ctx := context.Background()
	require.NoError(t, Create(ctx, c, models.EntityTrainers, map[string]any{"nombre": "Ana"}))
	require.NoError(t, Update(ctx, c, models.EntityTrainers, 7, map[string]any{"nombre": "Ana María"}))
	require.NoError(t, Delete(ctx, c, models.EntityTrainers, 7))

	require.Len(t, got, 3)
	assert.Equal(t, http.MethodPost, got[0].method)
	assert.Equal(t, "/api/capacitadores", got[0].path)
	assert.Equal(t, "Ana", got[0].body["nombre"])
	assert.Equal(t, http.MethodPut, got[1].method)
	assert.Equal(t, "/api/capacitadores/7", got[1].path)
	assert.Equal(t, http.MethodDelete, got[2].method)
	assert.Equal(t, "/api/capacitadores/7", got[2].path)
}

func TestGet_AcceptsEnvelopeAndBareObject(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/salas/1":
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"id": 1, "nombre": "Envuelta"}})
		case "/api/salas/2":
			writeJSON(w, http.StatusOK, map[string]any{"id": 2, "nombre": "Suelta"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	ctx := context.Background()
	room, err := Get[models.Room](ctx, c, models.EntityRooms, 1)
	require.NoError(t, err)
	assert.Equal(t, "Envuelta", room.Nombre)

	room, err = Get[models.Room](ctx, c, models.EntityRooms, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), room.ID)

	_, err = Get[models.Room](ctx, c, models.EntityRooms, 3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFollowPage_RejectsForeignLinks(t *testing.T) {
	c, ts := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": []any{}, "current_page": 3})
	}))

	ctx := context.Background()
	page, err := FollowPage[models.Room](ctx, c, models.EntityRooms, ts.URL+"/api/salas?page=3")
	require.NoError(t, err)
	assert.Equal(t, 3, page.CurrentPage)

	page, err = FollowPage[models.Room](ctx, c, models.EntityRooms, "/api/salas?page=3")
	require.NoError(t, err)
	assert.Equal(t, 3, page.CurrentPage)

	for _, link := range []string{
		"http://evil.example/api/salas?page=2",
		ts.URL + "/admin",
		"",
	} {
		_, err := FollowPage[models.Room](ctx, c, models.EntityRooms, link)
		assert.ErrorIs(t, err, ErrForeignLink, link)
	}
}

func TestCollect_FollowsNextLinksUpToLimit(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := 1
		if p := r.URL.Query().Get("page"); p != "" {
			_, _ = fmt.Sscanf(p, "%d", &n)
		}
		body := map[string]any{
			"data":         []map[string]any{{"id": n, "nombre": fmt.Sprintf("Sala %d", n)}},
			"current_page": n,
		}
		if n < 5 {
			body["next_page_url"] = fmt.Sprintf("%s/api/salas?page=%d", srv.URL, n+1)
		}
		writeJSON(w, http.StatusOK, body)
	}))
	t.Cleanup(srv.Close)

	logger := zerolog.Nop()
	c, err := NewClient(config.BackendConfig{BaseURL: srv.URL + "/api"}, &logger)
	require.NoError(t, err)

	rows, err := Collect[models.Room](context.Background(), c, models.EntityRooms, nil, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Sala 3", rows[2].Nombre)

	rows, err = Collect[models.Room](context.Background(), c, models.EntityRooms, nil, 10)
	require.NoError(t, err)
	assert.Len(t, rows, 5)
}

func TestPing(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/up" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	assert.NoError(t, c.Ping(context.Background()))
}
