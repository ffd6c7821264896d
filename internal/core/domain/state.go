package domain

// SessionPhase is the Session Tracker's lifecycle position.
type SessionPhase string

const (
	PhaseUninitialized SessionPhase = "uninitialized"
	PhaseChecking      SessionPhase = "checking"
	PhaseDisconnected  SessionPhase = "disconnected"
	PhaseConnected     SessionPhase = "connected"
)

// ConnectivityState is the Session Tracker's observable state.
type ConnectivityState struct {
	ProviderPresent bool         `json:"provider_present"`
	Account         string       `json:"account"`
	Network         ChainID      `json:"network,omitempty"`
	ExpectedNetwork ChainID      `json:"expected_network"`
	Phase           SessionPhase `json:"phase"`
	Error           *StateError  `json:"error,omitempty"`
	IsBusy          bool         `json:"is_busy"`
}

// Connected reports whether an account is adopted and the network matches.
func (s ConnectivityState) Connected() bool {
	return s.Account != "" && s.Error == nil
}

type MintStatus string

const (
	MintStatusIdle       MintStatus = "idle"
	MintStatusSubmitting MintStatus = "submitting"
	MintStatusMining     MintStatus = "mining"
	MintStatusMinted     MintStatus = "minted"
	MintStatusFailed     MintStatus = "failed"
)

// InFlight reports whether a mint transaction is being submitted or mined.
func (s MintStatus) InFlight() bool {
	return s == MintStatusSubmitting || s == MintStatusMining
}

// MintState is the Mint Coordinator's observable state. MintedTokenID is
// non-nil exactly when Status is MintStatusMinted.
type MintState struct {
	Bound           bool        `json:"bound"`
	BoundAccount    string      `json:"bound_account,omitempty"`
	ContractAddress string      `json:"contract_address,omitempty"`
	Status          MintStatus  `json:"status"`
	MintedTokenID   *uint64     `json:"minted_token_id,omitempty"`
	LastTxHash      string      `json:"last_tx_hash,omitempty"`
	Error           *StateError `json:"error,omitempty"`
}
