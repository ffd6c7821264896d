package domain

// Snapshot is the combined state handed to presentation layers.
type Snapshot struct {
	Session ConnectivityState `json:"session"`
	Mint    MintState         `json:"mint"`
	View    View              `json:"view"`

	ExpectedNetwork string `json:"expected_network"`
	TokenURL        string `json:"token_url,omitempty"`
	CollectionURL   string `json:"collection_url,omitempty"`
	TxURL           string `json:"tx_url,omitempty"`
}
