// Package dashboard bridges the engine's status stream onto the
// WebSocket server.
package dashboard

import (
	"context"
	"log"

	"github.com/avasilenko/pocketledger/internal/status"
)

// Handler subscribes to the status broadcaster and forwards every
// update to the dashboard server.
type Handler struct {
	server *Server
	logger *log.Logger
}

// NewHandler creates a handler bound to a dashboard server.
func NewHandler(server *Server, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{server: server, logger: logger}
}

// Run pumps status updates from the broadcaster into the server until
// ctx is cancelled or the subscription closes.
func (h *Handler) Run(ctx context.Context, bc *status.Broadcaster) {
	updates, cancel := bc.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-updates:
			if !ok {
				return
			}
			h.server.BroadcastStatus(st)
		}
	}
}
