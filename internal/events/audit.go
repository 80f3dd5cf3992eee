package events

import (
	"encoding/json"
	"fmt"

	"portal/internal/metrics"

	"github.com/rs/zerolog"
)

// SubscribeAudit logs every entity event and counts it per entity and action.
func SubscribeAudit(bus *EventBus, logger *zerolog.Logger) {
	for _, eventType := range EntityTypes {
		bus.Subscribe(eventType, func(event *Event) error {
			var payload EntityEventPayload
			if err := json.Unmarshal(event.Payload, &payload); err != nil {
				return fmt.Errorf("decode %s payload: %w", event.Type, err)
			}

			action := Action(event.Type)
			metrics.IncEntityChange(payload.Entity, action)
			logger.Info().
				Str("event", event.Type).
				Str("entity", payload.Entity).
				Int64("id", payload.ID).
				Str("request_id", payload.RequestID).
				Time("at", payload.At).
				Msgf("%s %s", payload.Entity, action)
			return nil
		})
	}
}
