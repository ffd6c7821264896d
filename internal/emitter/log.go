package emitter

import (
	"context"
	"log/slog"

	"github.com/vietddude/epicmint/internal/core/domain"
)

// LogEmitter writes events to the structured log.
type LogEmitter struct {
	log *slog.Logger
}

func NewLogEmitter(log *slog.Logger) *LogEmitter {
	if log == nil {
		log = slog.Default()
	}
	return &LogEmitter{log: log.With("component", "emitter")}
}

func (e *LogEmitter) Emit(ctx context.Context, event *domain.Event) error {
	attrs := []any{"id", event.ID, "chain", event.ChainID, "contract", event.Contract}
	if m := event.Minted; m != nil {
		attrs = append(attrs, "from", m.From, "token_id", m.TokenID, "tx", m.TxHash)
	}
	e.log.InfoContext(ctx, "[EVENT] "+string(event.EventType), attrs...)
	return nil
}

func (e *LogEmitter) Close() error { return nil }
