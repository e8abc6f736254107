// escrowctl builds unsigned escrow transactions and inspects escrow state.
// It never holds a private key; output is base64 for an external wallet to
// sign and submit.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/big"
	"os"
	"time"

	"github.com/gagliardetto/solana-go"

	"solana-escrow-kit/internal/amount"
	"solana-escrow-kit/internal/chain"
	"solana-escrow-kit/internal/escrow"
)

const usage = `Usage: escrowctl <command> [flags]

Commands:
  derive    Derive escrow state and vault addresses
  validate  Validate a base58 address (optionally as a PDA)
  parse     Parse a decimal amount into base units
  format    Format base units as a decimal amount
  split     Preview the fee/payout split for an amount
  init      Build an unsigned initialize transaction
  deposit   Build an unsigned deposit transaction
  release   Build an unsigned release transaction
  refund    Build an unsigned refund transaction
  cancel    Build an unsigned cancel transaction
  state     Fetch and print an escrow state account

Run 'escrowctl <command> -h' for command flags.
`

func main() {
	logger := log.New(os.Stderr, "[escrowctl] ", log.LstdFlags)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "derive":
		err = cmdDerive(os.Args[2:])
	case "validate":
		err = cmdValidate(os.Args[2:])
	case "parse":
		err = cmdParse(os.Args[2:])
	case "format":
		err = cmdFormat(os.Args[2:])
	case "split":
		err = cmdSplit(os.Args[2:])
	case "init":
		err = cmdInit(os.Args[2:])
	case "deposit":
		err = cmdDeposit(os.Args[2:])
	case "release":
		err = cmdRelease(os.Args[2:])
	case "refund":
		err = cmdRefund(os.Args[2:])
	case "cancel":
		err = cmdCancel(os.Args[2:])
	case "state":
		err = cmdState(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		logger.Fatalf("Error: %v", err)
	}
}

// clusterFlags adds the shared cluster/program flags to a flag set.
func clusterFlags(fs *flag.FlagSet) (cluster, programID, rpcEndpoint *string) {
	cluster = fs.String("cluster", "devnet", "Solana cluster: mainnet-beta or devnet")
	programID = fs.String("program-id", "", "Escrow program ID (overrides the cluster default)")
	rpcEndpoint = fs.String("rpc-endpoint", "", "Solana RPC endpoint (overrides the cluster default)")
	return
}

// resolveConfig builds the deployment config from the shared flags.
func resolveConfig(cluster, programID, rpcEndpoint string) (escrow.Config, error) {
	cfg, ok := escrow.ConfigForCluster(escrow.Cluster(cluster))
	if !ok {
		return escrow.Config{}, fmt.Errorf("unknown cluster: %s", cluster)
	}
	if programID != "" {
		pk, err := solana.PublicKeyFromBase58(programID)
		if err != nil {
			return escrow.Config{}, fmt.Errorf("invalid --program-id: %w", err)
		}
		cfg.ProgramID = pk
	}
	if rpcEndpoint != "" {
		cfg.RPCEndpoint = rpcEndpoint
	}
	return cfg, nil
}

// parseKey parses a required base58 public key flag.
func parseKey(name, value string) (solana.PublicKey, error) {
	if value == "" {
		return solana.PublicKey{}, fmt.Errorf("--%s is required", name)
	}
	pk, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return pk, nil
}

// parseAmountFlag parses a decimal amount flag into base units.
func parseAmountFlag(value string, decimals int) (*big.Int, error) {
	if value == "" {
		return nil, fmt.Errorf("--amount is required")
	}
	v, err := amount.ParseDecimal(value, decimals)
	if err != nil {
		return nil, fmt.Errorf("invalid --amount: %w", err)
	}
	return v, nil
}

// fetchBlockhash gets a recent blockhash for transaction building.
func fetchBlockhash(cfg escrow.Config) (solana.Hash, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client := chain.NewRPCClient(cfg.RPCEndpoint)
	bh, err := client.GetLatestBlockhash(ctx)
	if err != nil {
		return solana.Hash{}, err
	}
	return bh.Hash, nil
}

// printUnsignedTx builds, serializes, and prints an unsigned transaction.
func printUnsignedTx(cfg escrow.Config, ix solana.Instruction, feePayer solana.PublicKey) error {
	blockhash, err := fetchBlockhash(cfg)
	if err != nil {
		return err
	}

	tx, err := escrow.BuildUnsignedTx([]solana.Instruction{ix}, blockhash, feePayer)
	if err != nil {
		return err
	}

	b64, err := tx.Base64()
	if err != nil {
		return err
	}
	msg, err := tx.MessageBase64()
	if err != nil {
		return err
	}

	fmt.Printf("fee payer:   %s\n", tx.FeePayer)
	fmt.Printf("blockhash:   %s\n", blockhash)
	fmt.Printf("message:     %s\n", msg)
	fmt.Printf("transaction: %s\n", b64)
	return nil
}

func cmdDerive(args []string) error {
	fs := flag.NewFlagSet("derive", flag.ExitOnError)
	cluster, programID, rpcEndpoint := clusterFlags(fs)
	initializer := fs.String("initializer", "", "Initializer public key")
	seedStr := fs.String("seed", "", "Escrow seed as a UUID (random if omitted)")
	fs.Parse(args)

	cfg, err := resolveConfig(*cluster, *programID, *rpcEndpoint)
	if err != nil {
		return err
	}
	init, err := parseKey("initializer", *initializer)
	if err != nil {
		return err
	}

	seed := escrow.NewSeed()
	if *seedStr != "" {
		seed, err = escrow.SeedFromString(*seedStr)
		if err != nil {
			return err
		}
	}

	state, vault, stateBump, vaultBump, err := escrow.DeriveAccounts(cfg.ProgramID, init, seed)
	if err != nil {
		return err
	}

	fmt.Printf("seed:  %s\n", escrow.SeedString(seed))
	fmt.Printf("state: %s (bump %d)\n", state, stateBump)
	fmt.Printf("vault: %s (bump %d)\n", vault, vaultBump)
	return nil
}

func cmdValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	address := fs.String("address", "", "Base58 address to validate")
	pda := fs.Bool("pda", false, "Require the address to be off-curve (a PDA)")
	fs.Parse(args)

	if *address == "" {
		return fmt.Errorf("--address is required")
	}

	var err error
	if *pda {
		err = escrow.ValidatePDA(*address)
	} else {
		err = escrow.ValidateAddress(*address)
	}
	if err != nil {
		return err
	}

	fmt.Println("valid")
	return nil
}

func cmdParse(args []string) error {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	value := fs.String("value", "", "Decimal amount, e.g. 1.5")
	decimals := fs.Int("decimals", amount.DefaultDecimals, "Token decimals")
	fs.Parse(args)

	if *value == "" {
		return fmt.Errorf("--value is required")
	}
	base, err := amount.ParseDecimal(*value, *decimals)
	if err != nil {
		return err
	}

	fmt.Println(base.String())
	return nil
}

func cmdFormat(args []string) error {
	fs := flag.NewFlagSet("format", flag.ExitOnError)
	value := fs.String("value", "", "Amount in base units")
	decimals := fs.Int("decimals", amount.DefaultDecimals, "Token decimals")
	fs.Parse(args)

	if *value == "" {
		return fmt.Errorf("--value is required")
	}
	base, err := amount.Normalize(*value)
	if err != nil {
		return err
	}

	fmt.Println(amount.FormatDecimal(base, *decimals))
	return nil
}

func cmdSplit(args []string) error {
	fs := flag.NewFlagSet("split", flag.ExitOnError)
	value := fs.String("amount", "", "Decimal amount to split")
	decimals := fs.Int("decimals", amount.DefaultDecimals, "Token decimals")
	feeBps := fs.Int64("fee-bps", 0, "Fee rate in basis points [0, 10000]")
	fs.Parse(args)

	base, err := parseAmountFlag(*value, *decimals)
	if err != nil {
		return err
	}

	fee, payout, err := amount.SplitByBps(base, *feeBps)
	if err != nil {
		return err
	}

	fmt.Printf("total:  %s (%s base units)\n", amount.FormatDecimal(base, *decimals), base)
	fmt.Printf("fee:    %s (%s base units)\n", amount.FormatDecimal(fee, *decimals), fee)
	fmt.Printf("payout: %s (%s base units)\n", amount.FormatDecimal(payout, *decimals), payout)
	return nil
}

func cmdInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	cluster, programID, rpcEndpoint := clusterFlags(fs)
	initializer := fs.String("initializer", "", "Initializer public key (fee payer)")
	beneficiary := fs.String("beneficiary", "", "Beneficiary public key")
	arbiter := fs.String("arbiter", "", "Arbiter public key")
	mint := fs.String("mint", "", "Settlement token mint (cluster USDC if omitted)")
	value := fs.String("amount", "", "Decimal amount to escrow")
	decimals := fs.Int("decimals", amount.DefaultDecimals, "Token decimals")
	feeBps := fs.Int64("fee-bps", 0, "Fee rate in basis points [0, 10000]")
	seedStr := fs.String("seed", "", "Escrow seed as a UUID (random if omitted)")
	fs.Parse(args)

	cfg, err := resolveConfig(*cluster, *programID, *rpcEndpoint)
	if err != nil {
		return err
	}

	params := escrow.InitializeParams{FeeBps: *feeBps}
	if params.Initializer, err = parseKey("initializer", *initializer); err != nil {
		return err
	}
	if params.Beneficiary, err = parseKey("beneficiary", *beneficiary); err != nil {
		return err
	}
	if params.Arbiter, err = parseKey("arbiter", *arbiter); err != nil {
		return err
	}
	params.Mint = cfg.USDCMint
	if *mint != "" {
		if params.Mint, err = parseKey("mint", *mint); err != nil {
			return err
		}
	}
	if params.Amount, err = parseAmountFlag(*value, *decimals); err != nil {
		return err
	}

	params.Seed = escrow.NewSeed()
	if *seedStr != "" {
		if params.Seed, err = escrow.SeedFromString(*seedStr); err != nil {
			return err
		}
	}

	ix, err := escrow.NewInitializeInstruction(cfg, params)
	if err != nil {
		return err
	}

	state, vault, _, _, err := escrow.DeriveAccounts(cfg.ProgramID, params.Initializer, params.Seed)
	if err != nil {
		return err
	}
	fmt.Printf("seed:  %s\n", escrow.SeedString(params.Seed))
	fmt.Printf("state: %s\n", state)
	fmt.Printf("vault: %s\n", vault)

	return printUnsignedTx(cfg, ix, params.Initializer)
}

func cmdDeposit(args []string) error {
	fs := flag.NewFlagSet("deposit", flag.ExitOnError)
	cluster, programID, rpcEndpoint := clusterFlags(fs)
	initializer := fs.String("initializer", "", "Initializer public key (fee payer)")
	initializerToken := fs.String("initializer-token", "", "Initializer's SPL token account")
	state := fs.String("state", "", "Escrow state address")
	vault := fs.String("vault", "", "Escrow vault address")
	value := fs.String("amount", "", "Decimal amount to deposit")
	decimals := fs.Int("decimals", amount.DefaultDecimals, "Token decimals")
	fs.Parse(args)

	cfg, err := resolveConfig(*cluster, *programID, *rpcEndpoint)
	if err != nil {
		return err
	}

	var params escrow.DepositParams
	if params.Initializer, err = parseKey("initializer", *initializer); err != nil {
		return err
	}
	if params.InitializerToken, err = parseKey("initializer-token", *initializerToken); err != nil {
		return err
	}
	if params.State, err = parseKey("state", *state); err != nil {
		return err
	}
	if params.Vault, err = parseKey("vault", *vault); err != nil {
		return err
	}
	if params.Amount, err = parseAmountFlag(*value, *decimals); err != nil {
		return err
	}

	ix, err := escrow.NewDepositInstruction(cfg, params)
	if err != nil {
		return err
	}
	return printUnsignedTx(cfg, ix, params.Initializer)
}

func cmdRelease(args []string) error {
	fs := flag.NewFlagSet("release", flag.ExitOnError)
	cluster, programID, rpcEndpoint := clusterFlags(fs)
	arbiter := fs.String("arbiter", "", "Arbiter public key (fee payer)")
	stateAddr := fs.String("state", "", "Escrow state address")
	beneficiaryToken := fs.String("beneficiary-token", "", "Beneficiary's SPL token account")
	decimals := fs.Int("decimals", amount.DefaultDecimals, "Token decimals, for display only")
	fs.Parse(args)

	cfg, err := resolveConfig(*cluster, *programID, *rpcEndpoint)
	if err != nil {
		return err
	}

	var params escrow.ReleaseParams
	if params.Arbiter, err = parseKey("arbiter", *arbiter); err != nil {
		return err
	}
	if params.State, err = parseKey("state", *stateAddr); err != nil {
		return err
	}
	if params.BeneficiaryToken, err = parseKey("beneficiary-token", *beneficiaryToken); err != nil {
		return err
	}

	// The split is computed from on-chain state so the preview matches what
	// the program will execute.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client := chain.NewRPCClient(cfg.RPCEndpoint)
	state, err := chain.FetchEscrowState(ctx, client, cfg.ProgramID, params.State)
	if err != nil {
		return fmt.Errorf("fetch escrow state: %w", err)
	}
	params.Vault = state.Vault

	ix, amounts, err := escrow.NewReleaseInstruction(cfg, state, params)
	if err != nil {
		return err
	}

	fmt.Printf("fee:    %s (%s base units)\n", amount.FormatDecimal(amounts.Fee, *decimals), amounts.Fee)
	fmt.Printf("payout: %s (%s base units)\n", amount.FormatDecimal(amounts.Payout, *decimals), amounts.Payout)

	return printUnsignedTx(cfg, ix, params.Arbiter)
}

func cmdRefund(args []string) error {
	fs := flag.NewFlagSet("refund", flag.ExitOnError)
	cluster, programID, rpcEndpoint := clusterFlags(fs)
	arbiter := fs.String("arbiter", "", "Arbiter public key (fee payer)")
	state := fs.String("state", "", "Escrow state address")
	vault := fs.String("vault", "", "Escrow vault address")
	initializerToken := fs.String("initializer-token", "", "Initializer's SPL token account")
	fs.Parse(args)

	cfg, err := resolveConfig(*cluster, *programID, *rpcEndpoint)
	if err != nil {
		return err
	}

	var params escrow.RefundParams
	if params.Arbiter, err = parseKey("arbiter", *arbiter); err != nil {
		return err
	}
	if params.State, err = parseKey("state", *state); err != nil {
		return err
	}
	if params.Vault, err = parseKey("vault", *vault); err != nil {
		return err
	}
	if params.InitializerToken, err = parseKey("initializer-token", *initializerToken); err != nil {
		return err
	}

	ix, err := escrow.NewRefundInstruction(cfg, params)
	if err != nil {
		return err
	}
	return printUnsignedTx(cfg, ix, params.Arbiter)
}

func cmdCancel(args []string) error {
	fs := flag.NewFlagSet("cancel", flag.ExitOnError)
	cluster, programID, rpcEndpoint := clusterFlags(fs)
	initializer := fs.String("initializer", "", "Initializer public key (fee payer)")
	state := fs.String("state", "", "Escrow state address")
	vault := fs.String("vault", "", "Escrow vault address")
	fs.Parse(args)

	cfg, err := resolveConfig(*cluster, *programID, *rpcEndpoint)
	if err != nil {
		return err
	}

	var params escrow.CancelParams
	if params.Initializer, err = parseKey("initializer", *initializer); err != nil {
		return err
	}
	if params.State, err = parseKey("state", *state); err != nil {
		return err
	}
	if params.Vault, err = parseKey("vault", *vault); err != nil {
		return err
	}

	ix, err := escrow.NewCancelInstruction(cfg, params)
	if err != nil {
		return err
	}
	return printUnsignedTx(cfg, ix, params.Initializer)
}

func cmdState(args []string) error {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	cluster, programID, rpcEndpoint := clusterFlags(fs)
	stateAddr := fs.String("state", "", "Escrow state address")
	decimals := fs.Int("decimals", amount.DefaultDecimals, "Token decimals, for display only")
	fs.Parse(args)

	cfg, err := resolveConfig(*cluster, *programID, *rpcEndpoint)
	if err != nil {
		return err
	}
	address, err := parseKey("state", *stateAddr)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client := chain.NewRPCClient(cfg.RPCEndpoint)
	state, err := chain.FetchEscrowState(ctx, client, cfg.ProgramID, address)
	if err != nil {
		return fmt.Errorf("fetch escrow state: %w", err)
	}

	fee, payout, err := state.Split()
	if err != nil {
		return err
	}

	fmt.Printf("address:     %s\n", address)
	fmt.Printf("status:      %s\n", state.Status)
	fmt.Printf("initializer: %s\n", state.Initializer)
	fmt.Printf("beneficiary: %s\n", state.Beneficiary)
	fmt.Printf("arbiter:     %s\n", state.Arbiter)
	fmt.Printf("mint:        %s\n", state.Mint)
	fmt.Printf("vault:       %s\n", state.Vault)
	fmt.Printf("seed:        %s\n", escrow.SeedString(state.Seed))
	fmt.Printf("amount:      %s (%s base units)\n", amount.FormatDecimal(state.AmountBase(), *decimals), state.AmountBase())
	fmt.Printf("fee bps:     %d\n", state.FeeBps)
	fmt.Printf("fee:         %s\n", amount.FormatDecimal(fee, *decimals))
	fmt.Printf("payout:      %s\n", amount.FormatDecimal(payout, *decimals))
	fmt.Printf("created at:  %s\n", time.Unix(state.CreatedAt, 0).UTC().Format(time.RFC3339))

	bal, err := chain.FetchVaultBalance(ctx, client, state.Vault)
	if err == nil {
		fmt.Printf("vault bal:   %s\n", amount.FormatDecimal(bal.Amount, bal.Decimals))
	}
	return nil
}
