package domain

import "time"

// TokenMinted is the contract's "token minted" notification. TokenID has
// already been narrowed from the uint256 wire form.
type TokenMinted struct {
	From        string `json:"from"`
	TokenID     uint64 `json:"token_id"`
	TxHash      string `json:"tx_hash,omitempty"`
	BlockNumber uint64 `json:"block_number,omitempty"`
	LogIndex    uint   `json:"log_index,omitempty"`
}

// Event represents an emitted application event
type Event struct {
	ID        string         `json:"id"`
	EventType EventType      `json:"event_type"`
	ChainID   ChainID        `json:"chain_id"`
	Contract  string         `json:"contract"`
	Minted    *TokenMinted   `json:"minted,omitempty"`
	EmittedAt time.Time      `json:"emitted_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type EventType string

const (
	EventTypeTokenMinted EventType = "token_minted"
)
