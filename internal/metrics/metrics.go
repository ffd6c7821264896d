package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RPCCallsTotal tracks JSON-RPC calls per endpoint and method
	RPCCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "epicmint_rpc_calls_total",
			Help: "Total number of JSON-RPC calls",
		},
		[]string{"endpoint", "method"},
	)

	// RPCErrorsTotal tracks JSON-RPC failures per endpoint and method
	RPCErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "epicmint_rpc_errors_total",
			Help: "Total number of JSON-RPC errors",
		},
		[]string{"endpoint", "method", "error_type"},
	)

	// RPCLatency tracks JSON-RPC call latency
	RPCLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "epicmint_rpc_latency_seconds",
			Help:    "JSON-RPC call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	// SessionErrorsTotal counts connectivity errors surfaced as state
	SessionErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "epicmint_session_errors_total",
			Help: "Total number of connectivity errors by kind",
		},
		[]string{"kind"},
	)

	// SessionConnected is 1 while an account is adopted on the expected network
	SessionConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "epicmint_session_connected",
			Help: "Whether the wallet session is connected to the expected network",
		},
	)

	// MintAttemptsTotal counts mint attempts by outcome
	MintAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "epicmint_mint_attempts_total",
			Help: "Total number of mint attempts by outcome",
		},
		[]string{"outcome"},
	)

	// TokensMintedTotal counts observed "token minted" notifications
	TokensMintedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "epicmint_tokens_minted_total",
			Help: "Total number of token minted notifications observed",
		},
	)
)
