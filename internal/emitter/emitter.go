// Package emitter delivers "token minted" events to external sinks.
package emitter

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/epicmint/internal/core/domain"
)

// Emitter defines the interface for emitting application events
type Emitter interface {
	// Emit sends a single event
	Emit(ctx context.Context, event *domain.Event) error

	// Close closes the emitter connection
	Close() error
}

// NewMintedEvent wraps a contract notification into an event.
func NewMintedEvent(chainID domain.ChainID, contract string, m domain.TokenMinted) *domain.Event {
	minted := m
	return &domain.Event{
		ID:        uuid.NewString(),
		EventType: domain.EventTypeTokenMinted,
		ChainID:   chainID,
		Contract:  contract,
		Minted:    &minted,
		EmittedAt: time.Now().UTC(),
	}
}
