package domain

import (
	"context"

	"portal/internal/models"
)

// FlashRepository keeps pending notifications per browser session.
// Pop returns and clears them in push order.
type FlashRepository interface {
	Push(ctx context.Context, sessionID string, flash models.Flash) error
	Pop(ctx context.Context, sessionID string) ([]models.Flash, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// HealthChecker is anything readiness depends on.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
