// Command hostd runs a demo host around the spot orderbook engine: it
// replays any durably logged actions, serves the read-only indexer and
// action-submission API (which appends each committed action to the
// pebble-backed log), and saves a state snapshot and hash-chain tip every
// 30 seconds. Everything named here —
// ingress, sequencing, signature verification, identity resolution — sits
// outside the pure engine core (§1); this is one possible host, not part
// of the core contract.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hyle-spot/spotbook/params"
	"github.com/hyle-spot/spotbook/pkg/api"
	"github.com/hyle-spot/spotbook/pkg/engine"
	"github.com/hyle-spot/spotbook/pkg/engine/action"
	"github.com/hyle-spot/spotbook/pkg/engine/types"
	"github.com/hyle-spot/spotbook/pkg/storage"
	"github.com/hyle-spot/spotbook/pkg/util"
)

func main() {
	cfg := params.LoadFromEnv("")

	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = "data/hostd.log"
	}
	logger, err := util.NewLoggerWithFile(logFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", logFile)

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		sugar.Fatalw("storage_open_failed", "err", err)
	}
	defer store.Close()

	eng := engine.New()
	replayed, err := replay(eng, store)
	if err != nil {
		sugar.Fatalw("replay_failed", "err", err)
	}
	sugar.Infow("replay_complete", "actions", replayed, "sequence", eng.Sequence())
	sugar.Infow("seed_config", "tokens", cfg.Seed.Tokens, "pairs", cfg.Seed.Pairs)

	server := api.NewServer(eng, store, cfg.Seed, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		sugar.Infow("api_server_starting", "addr", cfg.API.ListenAddr)
		if err := server.Start(cfg.API.ListenAddr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sugar.Info("hostd_shutting_down")
			return
		case <-ticker.C:
			hash := eng.StateHash()
			if err := store.SaveTip(eng.Sequence(), hash); err != nil {
				sugar.Warnw("save_tip_failed", "err", err)
				continue
			}
			if err := store.SaveSnapshot(eng.Sequence(), eng.Snapshot()); err != nil {
				sugar.Warnw("save_snapshot_failed", "err", err)
			}
		}
	}
}

// replay rebuilds engine state from the durable action log. It returns the
// number of actions successfully replayed.
func replay(eng *engine.Engine, store *storage.Store) (int, error) {
	actions, err := store.LoadActions()
	if err != nil {
		return 0, err
	}
	for i, entry := range actions {
		a, err := action.Decode(entry.Raw)
		if err != nil {
			return i, err
		}
		if _, err := eng.Apply(types.User(entry.Caller), a); err != nil {
			return i, err
		}
	}
	return len(actions), nil
}
