package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v2"

	"github.com/vietddude/epicmint/internal/core/domain"
	"github.com/vietddude/epicmint/internal/infra/contract"
)

const (
	DefaultPort            = 8080
	DefaultExpectedChainID = domain.ChainIDRinkeby
	DefaultContractAddress = "0x5A8Ece51ACEeABfAb2D5f0a648273AC632Ca6AED"
	DefaultSupplyCeiling   = 50
	DefaultPollInterval    = 2 * time.Second
	DefaultTimeout         = 30 * time.Second
	DefaultChannel         = "epicmint:events"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *AppConfig {
	var cfg AppConfig
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Network.ExpectedChainID == "" {
		cfg.Network.ExpectedChainID = DefaultExpectedChainID
	}
	cfg.Network.ExpectedChainID = domain.NormalizeChainID(string(cfg.Network.ExpectedChainID))

	if cfg.Wallet.PollInterval == 0 {
		cfg.Wallet.PollInterval = DefaultPollInterval
	}
	if cfg.Wallet.Timeout == 0 {
		cfg.Wallet.Timeout = DefaultTimeout
	}

	c := &cfg.Contract
	if c.Address == "" {
		c.Address = DefaultContractAddress
	}
	if c.RPCURL == "" {
		c.RPCURL = cfg.Wallet.URL
	}
	if c.SupplyCeiling == 0 {
		c.SupplyCeiling = DefaultSupplyCeiling
	}
	if c.TotalMintedMethod == "" {
		c.TotalMintedMethod = contract.DefaultTotalMintedMethod
	}
	if c.MintMethod == "" {
		c.MintMethod = contract.DefaultMintMethod
	}
	if c.MintedEvent == "" {
		c.MintedEvent = contract.DefaultMintedEvent
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}

	if cfg.Emitter.Type == "" {
		cfg.Emitter.Type = EmitterLog
	}
	if cfg.Emitter.Channel == "" {
		cfg.Emitter.Channel = DefaultChannel
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// Validate reports configuration defects. An expected network outside the
// known chain table is fatal.
func (c *AppConfig) Validate() error {
	if !c.Network.ExpectedChainID.Known() {
		return fmt.Errorf("unknown expected chain id %q", c.Network.ExpectedChainID)
	}
	if !common.IsHexAddress(c.Contract.Address) {
		return fmt.Errorf("invalid contract address %q", c.Contract.Address)
	}
	switch c.Emitter.Type {
	case EmitterLog, EmitterNone:
	case EmitterRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("emitter %q requires redis.url", c.Emitter.Type)
		}
	default:
		return fmt.Errorf("unknown emitter type %q", c.Emitter.Type)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}
