// Package backend talks to the REST backend that owns every entity.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"portal/internal/config"
	"portal/internal/logging"
	"portal/internal/metrics"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

const maxErrorBody = 64 << 10

// Client is a thin HTTP client over the backend collections. It never retries.
type Client struct {
	base       *url.URL
	apiKey     string
	apiExtra   string
	healthPath string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *zerolog.Logger
}

// NewClient builds a client from config. The base URL must be absolute.
func NewClient(cfg config.BackendConfig, logger *zerolog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend base url %q must be absolute", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	log := logging.Component(logger, "backend")
	return &Client{
		base:       base,
		apiKey:     cfg.APIKey,
		apiExtra:   cfg.APIExtra,
		healthPath: cfg.HealthPath,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    newBreaker("backend", cfg.Breaker, log),
		logger:     log,
	}, nil
}

// endpoint joins the base URL with escaped path segments.
func (c *Client) endpoint(segments ...string) string {
	u := *c.base
	parts := []string{strings.TrimRight(u.Path, "/")}
	for _, s := range segments {
		parts = append(parts, url.PathEscape(s))
	}
	u.Path = strings.Join(parts, "/")
	u.RawPath = ""
	return u.String()
}

func (c *Client) entityURL(entity string, query url.Values) string {
	endpoint := c.endpoint(entity)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	return endpoint
}

func (c *Client) itemURL(entity string, id int64) string {
	return c.endpoint(entity, strconv.FormatInt(id, 10))
}

// resolveLink accepts backend-issued pagination links only. Relative links are
// resolved against the base URL.
func (c *Client) resolveLink(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || raw == "" {
		return "", fmt.Errorf("%w: %q", ErrForeignLink, raw)
	}
	u = c.base.ResolveReference(u)
	if !strings.EqualFold(u.Scheme, c.base.Scheme) || !strings.EqualFold(u.Host, c.base.Host) {
		return "", fmt.Errorf("%w: %q", ErrForeignLink, raw)
	}
	if !strings.HasPrefix(u.Path, strings.TrimRight(c.base.Path, "/")+"/") {
		return "", fmt.Errorf("%w: %q", ErrForeignLink, raw)
	}
	return u.String(), nil
}

type response struct {
	status int
	body   []byte
}

// do sends one request. Only transport errors and 5xx answers count against
// the circuit breaker; 4xx are the caller's business.
func (c *Client) do(ctx context.Context, entity, method, endpoint string, body any, out any) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, entity, err)
		}
		payload = data
	}

	start := time.Now()
	res, err := c.breaker.Execute(func() (any, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return nil, err
		}
		c.addHeaders(req, payload != nil)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		r := &response{status: resp.StatusCode, body: data}
		if resp.StatusCode >= http.StatusInternalServerError {
			return r, &StatusError{Code: resp.StatusCode, Message: errorMessage(data)}
		}
		return r, nil
	})
	dur := time.Since(start)

	status := 0
	if r, ok := res.(*response); ok && r != nil {
		status = r.status
	}
	metrics.ObserveBackend(entity, method, status, dur)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.logger.Warn().Str("entity", entity).Str("method", method).Msg("backend unavailable, breaker open")
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		c.logger.Error().Err(err).Str("entity", entity).Str("method", method).Dur("duration", dur).Msg("backend request failed")
		var serr *StatusError
		if errors.As(err, &serr) {
			return serr
		}
		return fmt.Errorf("%s %s: %w", method, entity, err)
	}

	c.logger.Debug().Str("entity", entity).Str("method", method).Int("status", status).Dur("duration", dur).Msg("backend request")
	return decodeResponse(res.(*response), out)
}

func decodeResponse(r *response, out any) error {
	switch {
	case r.status == http.StatusUnprocessableEntity:
		verr := &ValidationError{}
		if err := json.Unmarshal(r.body, verr); err != nil {
			return &StatusError{Code: r.status, Message: "unreadable validation payload"}
		}
		return verr
	case r.status == http.StatusNotFound:
		return ErrNotFound
	case r.status == http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrConflict, errorMessage(r.body))
	case r.status >= http.StatusMultipleChoices:
		return &StatusError{Code: r.status, Message: errorMessage(r.body)}
	}

	if out == nil || len(bytes.TrimSpace(r.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage extracts {"message": "..."} from an error body, if present.
func errorMessage(body []byte) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

func (c *Client) addHeaders(req *http.Request, hasBody bool) {
	req.Header.Set("Accept", "application/json")
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	if c.apiExtra != "" {
		req.Header.Set("x-api-extra", c.apiExtra)
	}
}

// Ping checks the backend health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	endpoint := c.base.ResolveReference(&url.URL{Path: c.healthPath}).String()
	if strings.HasPrefix(c.healthPath, "http") {
		endpoint = c.healthPath
	}
	return c.do(ctx, "health", http.MethodGet, endpoint, nil, nil)
}
