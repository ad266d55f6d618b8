package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/betbot/wfmtrader/internal/controlplane/server"
	"github.com/betbot/wfmtrader/internal/eelog"
	"github.com/betbot/wfmtrader/internal/notify"
	"github.com/betbot/wfmtrader/internal/risk"
	"github.com/betbot/wfmtrader/internal/services"
	"github.com/betbot/wfmtrader/pkg/shutdown"
	"github.com/betbot/wfmtrader/pkg/syncgroup"
)

func runCmd() *cobra.Command {
	var noControl bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the trading loop, log watcher and control API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrader(commandContext(cmd), noControl)
		},
	}
	cmd.Flags().BoolVar(&noControl, "no-control", false, "do not start the control API")
	return cmd
}

func runTrader(parent context.Context, noControl bool) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	cfg := a.cfg

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sm := shutdown.NewManager(15 * time.Second)
	// handlers run in reverse registration order
	sm.OnShutdown("app", func(context.Context) error {
		a.Close()
		return nil
	})

	trader := services.NewLiveTrader(services.LiveTraderDeps{
		Analyzer:  a.analyzer,
		Engine:    a.engine,
		Inventory: a.store,
		Settings:  a.settings,
		Notifier:  a.notifier,
		Events:    a.hub,
		Breaker: risk.NewCircuitBreaker(risk.CircuitBreakerConfig{
			MaxConsecutiveErrors: int64(cfg.LiveTrader.MaxConsecutiveErrors),
		}),
		Status:   a.state.NewStore("live_trader", "status"),
		Interval: cfg.LiveTrader.Interval,
	})
	sm.OnShutdown("live_trader", func(ctx context.Context) error {
		trader.Stop()
		done := trader.Done()
		if done == nil {
			return nil
		}
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})

	scraper := services.NewPriceScraper(services.PriceScraperDeps{
		Source:    a.market,
		Sink:      a.store,
		Events:    a.hub,
		Items:     cfg.Scraper.Items,
		Retention: cfg.Scraper.Retention,
	})

	var watcher *eelog.Watcher
	if cfg.EELog.Path != "" {
		whisperURL, ping := cfg.WhisperWebhook()
		whisper := notify.NewWebhook(notify.StaticURL(whisperURL))
		withdrawer := eelog.NewWithdrawer(eelog.WithdrawerDeps{
			Stock:    a.store,
			Orders:   a.market,
			Catalog:  a.market,
			Notifier: a.notifier,
			Waker:    trader,
			Ping:     ping,
		})
		watcher = eelog.NewWatcher(eelog.WatcherConfig{
			Path:         cfg.EELog.Path,
			PollInterval: cfg.EELog.PollInterval,
			Events:       a.hub,
		},
			eelog.NewConversationDetector(notify.Multi{notify.Log{}, whisper}, a.hub, ping),
			eelog.NewTradeDetector(withdrawer, a.hub),
		)
		sm.OnShutdown("eelog", func(ctx context.Context) error {
			watcher.Stop()
			whisper.Flush()
			return nil
		})
	}

	if !noControl {
		deps := server.Deps{
			Trader:   trader,
			Book:     a.engine.Book(),
			Settings: a.settings,
			Events:   a.hub,
			Ledger:   a.store,
			Scraper:  scraper,
		}
		if watcher != nil {
			deps.Watcher = watcher
		}
		srv, err := server.New(ctx, server.Config{Listen: cfg.Control.Listen}, deps)
		if err != nil {
			return err
		}
		if err := srv.Start(); err != nil {
			return err
		}
		sm.OnShutdown("control", srv.Shutdown)
	}

	group := syncgroup.NewSyncGroup()
	if cfg.LiveTrader.AutoStart {
		trader.Start(ctx)
	}
	if watcher != nil && cfg.EELog.Enabled {
		watcher.Start(ctx)
	}
	if cfg.LiveTrader.AutoStart {
		// the first pass needs a warm cache
		group.Go("price_scraper", func() error {
			_, err := scraper.Run(ctx)
			if err != nil && ctx.Err() == nil {
				log.Warnf("initial price scrape failed: %v", err)
			}
			return nil
		})
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		log.Infof("received %s, shutting down", sig)
	case <-ctx.Done():
	}

	cancel()
	if err := group.Wait(); err != nil {
		log.Warnf("background task error: %v", err)
	}
	shutdownCtx, done := context.WithTimeout(context.Background(), 20*time.Second)
	defer done()
	return sm.Shutdown(shutdownCtx)
}
