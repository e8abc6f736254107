package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"

	"solana-escrow-kit/internal/chain"
	"solana-escrow-kit/internal/escrow"
	"solana-escrow-kit/internal/observability"
	"solana-escrow-kit/internal/storage"
	"solana-escrow-kit/internal/storage/memory"
	"solana-escrow-kit/internal/storage/migrations"
	pgstore "solana-escrow-kit/internal/storage/postgres"
)

func main() {
	// Parse flags
	cluster := flag.String("cluster", "devnet", "Solana cluster: mainnet-beta or devnet")
	programID := flag.String("program-id", "", "Escrow program ID (overrides the cluster default)")
	wsEndpoint := flag.String("ws-endpoint", "", "Solana WebSocket endpoint (overrides the cluster default)")
	addresses := flag.String("addresses", "", "Comma-separated escrow state addresses to watch")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	migrate := flag.Bool("migrate", false, "Apply schema migrations on startup")
	commitment := flag.String("commitment", "confirmed", "Commitment level for notifications")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[watch] ", log.LstdFlags|log.Lshortfile)

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	cfg, ok := escrow.ConfigForCluster(escrow.Cluster(*cluster))
	if !ok {
		logger.Fatalf("Unknown cluster: %s", *cluster)
	}
	if *programID != "" {
		pk, err := solana.PublicKeyFromBase58(*programID)
		if err != nil {
			logger.Fatalf("Invalid --program-id: %v", err)
		}
		cfg.ProgramID = pk
	}
	if *wsEndpoint != "" {
		cfg.WSEndpoint = *wsEndpoint
	}

	watched, err := parseAddresses(*addresses)
	if err != nil {
		logger.Fatalf("Invalid --addresses: %v", err)
	}
	if len(watched) == 0 {
		logger.Fatal("No escrow addresses specified. Use --addresses")
	}
	logger.Printf("Watching %d escrow account(s) on %s", len(watched), cfg.Cluster)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	err = run(ctx, logger, cfg, watched, *postgresDSN, *useMemory, *migrate, *commitment)

	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// parseAddresses validates and parses the comma-separated address list.
func parseAddresses(s string) ([]solana.PublicKey, error) {
	var result []solana.PublicKey
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if err := escrow.ValidateAddress(part); err != nil {
			return nil, fmt.Errorf("%s: %w", part, err)
		}
		pk, err := solana.PublicKeyFromBase58(part)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", part, err)
		}
		result = append(result, pk)
	}
	return result, nil
}

// run subscribes to every watched account and persists decoded transitions
// until the context is cancelled.
func run(ctx context.Context, logger *log.Logger, cfg escrow.Config, watched []solana.PublicKey, postgresDSN string, useMemory, migrate bool, commitment string) error {
	// Require --postgres-dsn unless --use-memory is explicitly set
	if !useMemory && postgresDSN == "" {
		return fmt.Errorf("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	var store storage.EscrowRecordStore = memory.NewEscrowRecordStore()

	if !useMemory {
		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		if migrate {
			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}
			logger.Println("Migrations applied")
		}

		store = pgstore.NewEscrowRecordStore(pool)
	}

	watcherCfg := chain.DefaultWatcherConfig()
	watcherCfg.Commitment = commitment

	watcher, err := chain.NewAccountWatcher(ctx, cfg.WSEndpoint, &watcherCfg)
	if err != nil {
		return fmt.Errorf("connect to websocket: %w", err)
	}
	defer watcher.Close()

	var wg sync.WaitGroup
	for _, address := range watched {
		ch, err := watcher.Watch(ctx, address)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", address, err)
		}
		logger.Printf("Subscribed to %s", address)

		wg.Add(1)
		go func(address solana.PublicKey, ch <-chan chain.AccountUpdate) {
			defer wg.Done()
			consume(ctx, logger, store, address, ch)
		}(address, ch)
	}
	observability.SetWatchedAccounts(len(watched))

	logger.Println("Watching for escrow updates...")
	<-ctx.Done()

	// Close unblocks the consumers by closing their channels.
	watcher.Close()
	wg.Wait()

	return ctx.Err()
}

// consume decodes and stores updates for one watched escrow account.
func consume(ctx context.Context, logger *log.Logger, store storage.EscrowRecordStore, address solana.PublicKey, ch <-chan chain.AccountUpdate) {
	for update := range ch {
		observability.RecordAccountUpdate(uint64(update.Slot))

		state, err := escrow.DecodeState(update.Data)
		if err != nil {
			observability.RecordDecodeError(decodeErrorType(err))
			logger.Printf("Decode error for %s at slot %d: %v", address, update.Slot, err)
			continue
		}

		record := escrow.NewRecord(update.Address, update.Slot, state)
		if err := store.Insert(ctx, record); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				observability.RecordDuplicate()
				continue
			}
			logger.Printf("Store error for %s at slot %d: %v", address, update.Slot, err)
			continue
		}

		observability.RecordStored(record.ObservedAt)
		logger.Printf("Stored %s slot=%d status=%s amount=%s", record.Address, record.Slot, record.Status, record.Amount)
	}
}

// decodeErrorType maps a decode failure to a metric label.
func decodeErrorType(err error) string {
	switch {
	case errors.Is(err, escrow.ErrNotEscrowAccount):
		return "wrong_discriminator"
	case errors.Is(err, escrow.ErrStateTooShort):
		return "truncated"
	default:
		return "other"
	}
}
