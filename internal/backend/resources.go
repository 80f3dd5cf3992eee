package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"portal/internal/models"
)

// List fetches the first page of a collection.
func List[T any](ctx context.Context, c *Client, entity string, query url.Values) (*models.Page[T], error) {
	var page models.Page[T]
	if err := c.do(ctx, entity, http.MethodGet, c.entityURL(entity, query), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// FollowPage fetches the page behind a backend-issued pagination link.
func FollowPage[T any](ctx context.Context, c *Client, entity, link string) (*models.Page[T], error) {
	endpoint, err := c.resolveLink(link)
	if err != nil {
		return nil, err
	}
	var page models.Page[T]
	if err := c.do(ctx, entity, http.MethodGet, endpoint, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Collect walks next_page_url links and gathers at most maxPages pages of rows.
// It is meant for filling selects, not for listing.
func Collect[T any](ctx context.Context, c *Client, entity string, query url.Values, maxPages int) ([]T, error) {
	if maxPages <= 0 {
		maxPages = models.DefaultMaxOptionPages
	}

	page, err := List[T](ctx, c, entity, query)
	if err != nil {
		return nil, err
	}
	rows := append([]T(nil), page.Data...)

	for fetched := 1; fetched < maxPages && page.NextPageURL != nil && *page.NextPageURL != ""; fetched++ {
		page, err = FollowPage[T](ctx, c, entity, *page.NextPageURL)
		if err != nil {
			return nil, fmt.Errorf("collect %s page %d: %w", entity, fetched+1, err)
		}
		rows = append(rows, page.Data...)
	}
	return rows, nil
}

// Get fetches one record. Both {"data": {...}} envelopes and bare objects are accepted.
func Get[T any](ctx context.Context, c *Client, entity string, id int64) (*T, error) {
	var raw json.RawMessage
	if err := c.do(ctx, entity, http.MethodGet, c.itemURL(entity, id), nil, &raw); err != nil {
		return nil, err
	}
	return unwrap[T](raw)
}

func unwrap[T any](raw json.RawMessage) (*T, error) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Data) > 0 && envelope.Data[0] == '{' {
		raw = envelope.Data
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &out, nil
}

// Create posts a new record.
func Create(ctx context.Context, c *Client, entity string, payload any) error {
	return c.do(ctx, entity, http.MethodPost, c.entityURL(entity, nil), payload, nil)
}

// Update replaces the record with the given id.
func Update(ctx context.Context, c *Client, entity string, id int64, payload any) error {
	return c.do(ctx, entity, http.MethodPut, c.itemURL(entity, id), payload, nil)
}

// Delete removes the record with the given id.
func Delete(ctx context.Context, c *Client, entity string, id int64) error {
	return c.do(ctx, entity, http.MethodDelete, c.itemURL(entity, id), nil, nil)
}
