package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// BroadcastEvent implements the broadcast port: it marshals the payload and
// fans it out to every connected observer under the given event type.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal observer event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Envelope{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
