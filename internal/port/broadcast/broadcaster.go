// Package broadcast defines the port for pushing real-time progress events
// to connected clients.
package broadcast

import "context"

// Broadcaster sends a typed event to every connected client.
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}
