package messenger

import (
	"log/slog"

	"github.com/amqp-messenger/messenger/internal/debug"
)

// RegisterLogger configures the messenger's debug logger with h.
//
// By default the logger uses a no-op handler and produces no log events.
// Transport and engine faults logged this way are never surfaced to the
// caller directly — see ERROR HANDLING DESIGN.
func RegisterLogger(h slog.Handler) {
	debug.RegisterLogger(h)
}
