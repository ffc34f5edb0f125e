package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/sheikh-saqib/transfer-ledger/internal/api"
	"github.com/sheikh-saqib/transfer-ledger/internal/chain"
	"github.com/sheikh-saqib/transfer-ledger/internal/config"
	"github.com/sheikh-saqib/transfer-ledger/internal/events/kafka"
	"github.com/sheikh-saqib/transfer-ledger/internal/events/local"
	interfaces "github.com/sheikh-saqib/transfer-ledger/internal/interfaces"
	"github.com/sheikh-saqib/transfer-ledger/internal/ledger"
	"github.com/sheikh-saqib/transfer-ledger/internal/logging"
	"github.com/sheikh-saqib/transfer-ledger/internal/node"
	"github.com/sheikh-saqib/transfer-ledger/internal/storage/boltdb"
	"github.com/sheikh-saqib/transfer-ledger/internal/storage/memory"
	"github.com/sheikh-saqib/transfer-ledger/internal/storage/postgres"
)

type store interface {
	interfaces.RecordStore
	interfaces.EntryStore
}

type closers []io.Closer

func (c closers) Close() {
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i].Close(); err != nil {
			log.Error().Err(err).Msg("Close failed")
		}
	}
}

func main() {
	envFile := flag.String("env", "", "Path to a .env file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logFile := logging.Setup(cfg.Logging)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	err = run(cfg, quit)
	logFile.Close()
	if err != nil {
		log.Fatal().Err(err).Msg("Node failed")
	}
}

// run serves the node until quit fires or the listener fails. Everything it
// opens is closed before it returns.
func run(cfg *config.Config, quit <-chan os.Signal) error {
	log.Info().Str("storage", cfg.Storage.Driver).Msg("Starting transfer ledger node")

	contractAddr, err := cfg.Ledger.Contract()
	if err != nil {
		return err
	}
	gasPrice, err := cfg.Chain.GasPrice()
	if err != nil {
		return err
	}
	allocations, err := cfg.Chain.Allocations()
	if err != nil {
		return err
	}

	ctx := context.Background()
	var cleanup closers
	defer cleanup.Close()

	st, err := openStore(ctx, cfg.Storage, &cleanup)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	publisher := newPublisher(cfg.Kafka, &cleanup)

	native := chain.NewNative(st, publisher)
	records, err := ledger.NewLedger(ctx, st, publisher, ledger.WithMaxPageSize(cfg.Ledger.MaxPageSize))
	if err != nil {
		return fmt.Errorf("initialise record ledger: %w", err)
	}

	n := node.New(native, gasPrice)
	n.Deploy(contractAddr, records)
	log.Info().Str("contract", contractAddr.Hex()).Msg("Record ledger deployed")

	// Genesis transfers hash the same on every start, so re-funding a
	// persistent store is a no-op.
	for _, a := range allocations {
		if _, err := native.Fund(ctx, a.Address, a.Amount); err != nil {
			return fmt.Errorf("fund genesis account %s: %w", a.Address.Hex(), err)
		}
		log.Info().Str("address", a.Address.Hex()).Str("amount", a.Amount.Dec()).Msg("Funded genesis account")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewRouter(api.NewHandler(n)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("serve %s: %w", cfg.Server.Addr, err)
	case <-quit:
	}

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
	return nil
}

func openStore(ctx context.Context, cfg config.StorageConfig, cleanup *closers) (store, error) {
	switch cfg.Driver {
	case "bolt":
		s, err := boltdb.Open(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		*cleanup = append(*cleanup, s)
		return s, nil

	case "postgres":
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		*cleanup = append(*cleanup, db)
		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return postgres.NewPostgresLedgerStore(db), nil

	default:
		return memory.NewMemoryLedgerStore(), nil
	}
}

// newPublisher returns a kafka publisher when brokers are configured. Without
// brokers events stay in process and are logged at debug level.
func newPublisher(cfg config.KafkaConfig, cleanup *closers) interfaces.EventPublisher {
	if len(cfg.Brokers) > 0 {
		p := kafka.NewPublisher(cfg.Brokers, cfg.TopicPrefix)
		*cleanup = append(*cleanup, p)
		log.Info().Strs("brokers", cfg.Brokers).Msg("Publishing events to kafka")
		return p
	}

	p := local.NewPublisher()
	msgs, unsubscribe := p.Subscribe(64)
	*cleanup = append(*cleanup, closerFunc(func() error { unsubscribe(); return nil }))
	go func() {
		for m := range msgs {
			log.Debug().Str("topic", m.Topic).Interface("event", m.Event).Msg("Event")
		}
	}()
	return p
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
