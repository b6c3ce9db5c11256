package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	match "github.com/oxygenfuel/contract"
	"github.com/oxygenfuel/contract/api"
	"github.com/oxygenfuel/contract/config"
	"github.com/oxygenfuel/contract/protocol"
	"github.com/oxygenfuel/contract/publisher"
	"github.com/oxygenfuel/contract/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := config.NewLogger(cfg.App)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	os.Exit(finish(logger, run(cfg, logger)))
}

// finish logs the outcome of run and flushes logger, returning the exit code.
func finish(logger *zap.Logger, err error) int {
	code := 0
	if err != nil {
		logger.Error("orderbookd stopped", zap.Error(err))
		code = 1
	}
	_ = logger.Sync()
	return code
}

func run(cfg *config.Config, logger *zap.Logger) error {
	match.SetLogger(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slogLevel(cfg.App.LogLevel)})))

	st, err := store.Open(cfg.Store.DataDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("failed to close store", zap.Error(err))
		}
	}()

	// publication: websocket hub and optionally kafka, both behind the ring buffer
	hub := api.NewHub(logger)
	targets := []match.PublishLog{hub}
	var kafkaPub *publisher.KafkaPublishLog
	if cfg.Kafka.Enabled {
		kafkaPub = publisher.NewKafkaPublishLog(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger.Named("kafka"))
		targets = append(targets, kafkaPub)
	}
	async := match.NewAsyncPublishLog(match.NewMultiPublishLog(targets...), cfg.App.RingSize)

	engine := match.NewEngine(async)
	stats, err := store.Recover(engine, st)
	if err != nil {
		return err
	}
	logger.Info("engine recovered",
		zap.Uint64("snapshot_seq_id", stats.SnapshotSeqID),
		zap.Int("replayed", stats.Replayed),
		zap.Int("rejected", stats.Rejected),
		zap.Uint64("last_cmd_seq_id", engine.LastCmdSeqID()),
	)

	srv := api.NewServer(engine, st, hub, logger, api.Options{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		SnapshotEvery:  cfg.Store.SnapshotEvery,
	})

	if cfg.Pair.Bootstrap() && !engine.Pair().Initialized {
		decimals := cfg.Pair.PriceDecimals
		_, err := srv.Submit(protocol.CmdInit, &protocol.InitCommand{
			BaseAsset:     cfg.Pair.BaseAsset,
			QuoteAsset:    cfg.Pair.QuoteAsset,
			PriceDecimals: &decimals,
		}, map[string]string{"source": "bootstrap"})
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.HTTP.Addr)
	}()

	select {
	case err = <-errCh:
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownTimeout)*time.Second)
	defer cancel()

	var errs []error
	errs = append(errs, err)
	errs = append(errs, srv.Shutdown(shutdownCtx))
	errs = append(errs, async.Shutdown(shutdownCtx))
	if kafkaPub != nil {
		errs = append(errs, kafkaPub.Close())
	}
	if err := st.SaveSnapshot(engine.Snapshot()); err != nil {
		errs = append(errs, err)
	} else {
		logger.Info("final snapshot saved", zap.Uint64("seq_id", engine.LastCmdSeqID()))
	}
	return errors.Join(errs...)
}

func slogLevel(level string) slog.Level {
	l, err := zapcore.ParseLevel(level)
	if err != nil {
		return slog.LevelInfo
	}
	switch {
	case l <= zapcore.DebugLevel:
		return slog.LevelDebug
	case l == zapcore.InfoLevel:
		return slog.LevelInfo
	case l == zapcore.WarnLevel:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
