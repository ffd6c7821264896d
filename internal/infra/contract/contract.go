// Package contract binds the EpicNFT contract to a signing account.
package contract

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/vietddude/epicmint/internal/core/domain"
)

// Factory constructs signing-capable contract handles.
type Factory interface {
	// Bind fails if the address, ABI or signer is invalid
	Bind(address, abiJSON, signer string) (Handle, error)
}

// Handle is a contract bound to one signer.
type Handle interface {
	// TotalMinted returns the number of tokens minted so far
	TotalMinted(ctx context.Context) (*big.Int, error)

	// Mint submits the minting transaction from the signer
	Mint(ctx context.Context) (PendingTransaction, error)

	// WatchMinted delivers "token minted" notifications until unsubscribed
	WatchMinted(handler func(domain.TokenMinted)) Subscription
}

// PendingTransaction is a submitted transaction awaiting inclusion.
type PendingTransaction interface {
	Hash() string

	// Wait blocks until the transaction is mined or ctx is done
	Wait(ctx context.Context) (*Receipt, error)
}

// Receipt is the outcome of a mined transaction.
type Receipt struct {
	TxHash      string
	BlockNumber uint64
	Status      uint64
	Minted      []domain.TokenMinted
}

// Succeeded reports whether the transaction executed without reverting.
func (r *Receipt) Succeeded() bool {
	return r.Status == 1
}

type Subscription interface {
	Unsubscribe()
}

// Config holds contract settings.
type Config struct {
	Address             string        `yaml:"address"`
	RPCURL              string        `yaml:"rpc_url"` // defaults to the wallet endpoint
	ABIPath             string        `yaml:"abi_path"`
	SupplyCeiling       uint64        `yaml:"supply_ceiling"`
	TotalMintedMethod   string        `yaml:"total_minted_method"`
	MintMethod          string        `yaml:"mint_method"`
	MintedEvent         string        `yaml:"minted_event"`
	PollInterval        time.Duration `yaml:"poll_interval"`
	ExplorerTxURL       string        `yaml:"explorer_tx_url"`
	MarketplaceAssetURL string        `yaml:"marketplace_asset_url"`
	CollectionURL       string        `yaml:"collection_url"`
}

// LoadABI returns the ABI descriptor for cfg: the embedded EpicNFT ABI, or
// the file at ABIPath. Files may hold a bare ABI array or a compiler
// artifact with an "abi" field.
func LoadABI(cfg Config) (string, error) {
	if cfg.ABIPath == "" {
		return EpicNFTABI, nil
	}
	data, err := os.ReadFile(cfg.ABIPath)
	if err != nil {
		return "", fmt.Errorf("failed to read abi file: %w", err)
	}

	var artifact struct {
		ABI json.RawMessage `json:"abi"`
	}
	if err := json.Unmarshal(data, &artifact); err == nil && len(artifact.ABI) > 0 {
		return string(artifact.ABI), nil
	}
	return string(data), nil
}

// TokenURL returns the marketplace link for a minted token, or "" when no
// marketplace is configured.
func (c Config) TokenURL(tokenID uint64) string {
	if c.MarketplaceAssetURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/%d", c.MarketplaceAssetURL, c.Address, tokenID)
}

// TxURL returns the explorer link for a transaction hash.
func (c Config) TxURL(hash string) string {
	if c.ExplorerTxURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s", c.ExplorerTxURL, hash)
}
