package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/inconshreveable/log15"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"

	"github.com/ava-labs/avalanchego/database/manager"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/ava-labs/avalanchego/version"

	"github.com/lattica-labs/execution-engine/api"
	"github.com/lattica-labs/execution-engine/chainconfig"
	"github.com/lattica-labs/execution-engine/chainstore"
	"github.com/lattica-labs/execution-engine/engine"
	"github.com/lattica-labs/execution-engine/events"
	"github.com/lattica-labs/execution-engine/forks"
	"github.com/lattica-labs/execution-engine/metrics"
	"github.com/lattica-labs/execution-engine/receipts"
	"github.com/lattica-labs/execution-engine/vm"
)

var (
	// Version is the build-reported version, formatted the way
	// timestampvm/vm.go's own Version constant is printed by -version.
	Version = version.NewDefaultVersion(0, 1, 0)
)

func main() {
	v, err := getViper()
	if err != nil {
		fmt.Printf("couldn't get config: %s\n", err)
		os.Exit(1)
	}

	if v.GetBool(versionKey) {
		fmt.Printf("execution-engine@%s\n", Version)
		os.Exit(0)
	}

	level, err := log.LvlFromString(v.GetString(logLevelKey))
	if err != nil {
		fmt.Printf("invalid %s: %s\n", logLevelKey, err)
		os.Exit(1)
	}
	log.Root().SetHandler(log.LvlFilterHandler(level, log.StreamHandler(os.Stderr, log.TerminalFormat())))

	if err := run(v); err != nil {
		log.Error("execution-engine exited with an error", "err", err)
		os.Exit(1)
	}
}

// openDBManager builds the top-level database.manager the store,
// receipts index, and any future prefixed sub-databases share, the way
// main/process/process.go picks between manager.New (on-disk) and an
// in-memory manager depending on config.
func openDBManager(v *viper.Viper) (manager.Manager, error) {
	if v.GetBool(inMemoryDBKey) || v.GetString(dbDirKey) == "" {
		return manager.NewMemDB(version.DefaultVersion1_0_0), nil
	}
	return manager.NewLevelDB(v.GetString(dbDirKey), nil, logging.NoLog{}, version.DefaultVersion1_0_0)
}

func run(v *viper.Viper) error {
	dbManager, err := openDBManager(v)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer dbManager.Close()

	registry := prometheus.NewRegistry()

	genesis := &chainstore.Header{Number: 0}
	genesisBlock, err := chainstore.NewBlock(genesis, nil)
	if err != nil {
		return fmt.Errorf("building genesis block: %w", err)
	}

	store, err := chainstore.New(dbManager.Current().Database, genesisBlock, registry)
	if err != nil {
		return fmt.Errorf("opening chainstore: %w", err)
	}

	receiptsMgr := receipts.NewManager(dbManager.NewPrefixDBManager([]byte("receipts")).Current().Database)

	backend := vm.NewStub(genesisBlock.Header.StateRoot)

	table := forks.NewTable("genesis",
		forks.Activation{Name: "genesis", Consensus: forks.ConsensusPoW},
	)
	cfg := chainconfig.New(table, &chainconfig.Genesis{
		StateRoot:     genesisBlock.Header.StateRoot,
		Difficulty:    big.NewInt(1),
		InitialBalances: map[ids.ShortID]*big.Int{},
	})

	m, err := metrics.New(registry)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	eng := engine.New(store, backend, receiptsMgr, cfg, events.NewBus(), m, engine.Config{
		NumBlocksPerIteration: v.GetUint64(numBlocksKey),
		StatsInterval:         v.GetDuration(statsIntervalKey),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := eng.Open(ctx); err != nil {
		return fmt.Errorf("opening engine: %w", err)
	}
	if err := eng.Start(ctx); err != nil {
		return fmt.Errorf("starting engine: %w", err)
	}

	srv, err := api.Serve(v.GetString(listenAddrKey), eng)
	if err != nil {
		return fmt.Errorf("starting api server: %w", err)
	}
	log.Info("execution-engine listening", "addr", srv.Addr())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")
	if err := srv.Close(); err != nil {
		log.Warn("api server shutdown error", "err", err)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	return eng.Stop(stopCtx)
}
