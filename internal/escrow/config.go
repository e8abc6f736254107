// Package escrow provides typed instruction builders, account derivation,
// state decoding, and address validation for the escrow program.
package escrow

import "github.com/gagliardetto/solana-go"

// Cluster identifies a Solana cluster.
type Cluster string

const (
	ClusterMainnet Cluster = "mainnet-beta"
	ClusterDevnet  Cluster = "devnet"
)

// Escrow program deployments per cluster.
var (
	MainnetProgramID = solana.MustPublicKeyFromBase58("2n3B2KDMNTr5UKaCSxNrWogsske8yV9CeTGJRnjL8gmT")
	DevnetProgramID  = solana.MustPublicKeyFromBase58("CKDqhBWLRB3WdZNp4PC91CJNMGcZ6ctoChcvuBr7uQX")
)

// USDC mint addresses. USDC is the reference settlement token at 6 decimals.
var (
	MainnetUSDCMint = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	DevnetUSDCMint  = solana.MustPublicKeyFromBase58("4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU")
)

// Protocol fee collector token accounts per cluster.
var (
	MainnetFeeCollector = solana.MustPublicKeyFromBase58("HHFXmtwrXot9hWTv27gUMrEKxwhgzs9u824o9tW1vgSr")
	DevnetFeeCollector  = solana.MustPublicKeyFromBase58("9U41chPv49vCze7EcW9fXptZMiHVvY5iBBsxdMWoqvYE")
)

// Default public RPC endpoints.
const (
	MainnetRPCEndpoint = "https://api.mainnet-beta.solana.com"
	MainnetWSEndpoint  = "wss://api.mainnet-beta.solana.com"
	DevnetRPCEndpoint  = "https://api.devnet.solana.com"
	DevnetWSEndpoint   = "wss://api.devnet.solana.com"
)

// Config is an immutable description of one escrow program deployment.
// Callers construct it once and pass it explicitly; there is no process-wide
// registry.
type Config struct {
	Cluster      Cluster
	ProgramID    solana.PublicKey
	USDCMint     solana.PublicKey
	FeeCollector solana.PublicKey
	RPCEndpoint  string
	WSEndpoint   string
}

// MainnetConfig returns the mainnet-beta deployment config.
func MainnetConfig() Config {
	return Config{
		Cluster:      ClusterMainnet,
		ProgramID:    MainnetProgramID,
		USDCMint:     MainnetUSDCMint,
		FeeCollector: MainnetFeeCollector,
		RPCEndpoint:  MainnetRPCEndpoint,
		WSEndpoint:   MainnetWSEndpoint,
	}
}

// DevnetConfig returns the devnet deployment config.
func DevnetConfig() Config {
	return Config{
		Cluster:      ClusterDevnet,
		ProgramID:    DevnetProgramID,
		USDCMint:     DevnetUSDCMint,
		FeeCollector: DevnetFeeCollector,
		RPCEndpoint:  DevnetRPCEndpoint,
		WSEndpoint:   DevnetWSEndpoint,
	}
}

// ConfigForCluster returns the built-in config for a cluster.
func ConfigForCluster(cluster Cluster) (Config, bool) {
	switch cluster {
	case ClusterMainnet:
		return MainnetConfig(), true
	case ClusterDevnet:
		return DevnetConfig(), true
	default:
		return Config{}, false
	}
}
