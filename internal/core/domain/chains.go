package domain

import "strings"

// ChainID is an EIP-155 chain identifier in the 0x-prefixed hex form that
// wallet providers return from eth_chainId.
type ChainID string

const (
	ChainIDMainnet ChainID = "0x1"
	ChainIDRopsten ChainID = "0x3"
	ChainIDRinkeby ChainID = "0x4"
	ChainIDGoerli  ChainID = "0x5"
	ChainIDKovan   ChainID = "0x2a"
)

// ChainIDToName maps the supported chain ids to their display names.
var ChainIDToName = map[ChainID]string{
	ChainIDMainnet: "Ethereum Main Network (Mainnet)",
	ChainIDRopsten: "Ropsten Test Network",
	ChainIDRinkeby: "Rinkeby Test Network",
	ChainIDGoerli:  "Goerli Test Network",
	ChainIDKovan:   "Kovan Test Network",
}

// NormalizeChainID lowercases and trims a raw chain id so that "0x2A" and
// "0x2a" compare equal.
func NormalizeChainID(raw string) ChainID {
	return ChainID(strings.ToLower(strings.TrimSpace(raw)))
}

// Known reports whether the chain id is in ChainIDToName.
func (c ChainID) Known() bool {
	_, ok := ChainIDToName[c]
	return ok
}

// Name returns the display name, or the raw id for unknown chains.
func (c ChainID) Name() string {
	if name, ok := ChainIDToName[c]; ok {
		return name
	}
	return string(c)
}
