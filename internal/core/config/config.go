package config

import (
	"github.com/vietddude/epicmint/internal/core/domain"
	"github.com/vietddude/epicmint/internal/infra/contract"
	redisclient "github.com/vietddude/epicmint/internal/infra/redis"
	"github.com/vietddude/epicmint/internal/infra/wallet"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Network  NetworkConfig      `yaml:"network"`
	Wallet   wallet.Config      `yaml:"wallet"`
	Contract contract.Config    `yaml:"contract"`
	Emitter  EmitterConfig      `yaml:"emitter"`
	Redis    redisclient.Config `yaml:"redis"`
	Logging  LoggingConfig      `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// NetworkConfig names the network the session must be connected to.
type NetworkConfig struct {
	ExpectedChainID domain.ChainID `yaml:"expected_chain_id"`
}

// EmitterConfig selects where "token minted" events are sent.
type EmitterConfig struct {
	Type    string `yaml:"type"`    // log, redis, none
	Channel string `yaml:"channel"` // redis channel
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

const (
	EmitterLog   = "log"
	EmitterRedis = "redis"
	EmitterNone  = "none"
)
