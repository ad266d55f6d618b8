package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/betbot/wfmtrader/internal/analytics"
	"github.com/betbot/wfmtrader/internal/notify"
	"github.com/betbot/wfmtrader/internal/ports"
	"github.com/betbot/wfmtrader/internal/store"
	"github.com/betbot/wfmtrader/internal/strategycore/brain"
	"github.com/betbot/wfmtrader/pkg/config"
	"github.com/betbot/wfmtrader/pkg/logger"
	"github.com/betbot/wfmtrader/pkg/persistence"
	"github.com/betbot/wfmtrader/pkg/secretstore"
	"github.com/betbot/wfmtrader/pkg/sdk/wfm"
)

var log = logrus.WithField("module", "main")

// app holds the collaborators every subcommand shares.
type app struct {
	cfg      *config.Config
	store    *store.Store
	market   *wfm.Client
	settings *config.SettingsState
	state    *persistence.JSONFileService
	analyzer *analytics.Analyzer
	engine   *brain.Engine
	notifier ports.Notifier
	hub      *notify.Hub
	webhook  *notify.Webhook
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		OutputFile: cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, nil
}

func openSecrets(cfg *config.Config, readOnly bool) (*secretstore.Store, error) {
	var key []byte
	if raw := os.Getenv("WFM_SECRET_KEY"); raw != "" {
		k, err := secretstore.ParseKey(raw)
		if err != nil {
			return nil, err
		}
		key = k
	}
	return secretstore.Open(secretstore.OpenOptions{
		Path:          cfg.Store.SecretPath,
		EncryptionKey: key,
		ReadOnly:      readOnly,
	})
}

// session resolves the marketplace identity: config values win over the
// stored session.
func session(cfg *config.Config) (secretstore.Session, error) {
	sess := secretstore.Session{JWT: cfg.Market.JWT, IngameName: cfg.Market.IngameName}
	if sess.JWT != "" && sess.IngameName != "" {
		return sess, nil
	}
	if _, err := os.Stat(cfg.Store.SecretPath); err != nil {
		return sess, nil
	}
	sec, err := openSecrets(cfg, true)
	if err != nil {
		return sess, fmt.Errorf("open secret store: %w", err)
	}
	defer sec.Close()
	stored, err := sec.Session()
	if err != nil {
		if errors.Is(err, secretstore.ErrNoSession) {
			return sess, nil
		}
		return sess, err
	}
	if sess.JWT == "" {
		sess.JWT = stored.JWT
	}
	if sess.IngameName == "" {
		sess.IngameName = stored.IngameName
	}
	return sess, nil
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	sess, err := session(cfg)
	if err != nil {
		return nil, err
	}
	if sess.JWT == "" {
		log.Warn("no marketplace session configured; order calls will be rejected")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Store.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := store.Open(cfg.Store.DBPath)
	if err != nil {
		return nil, err
	}

	market := wfm.NewClient(wfm.Options{
		BaseURL:           cfg.Market.BaseURL,
		Platform:          cfg.Market.Platform,
		Language:          cfg.Market.Language,
		RequestsPerSecond: cfg.Market.RequestsPerSecond,
		Timeout:           cfg.Market.Timeout,
		ItemCacheTTL:      cfg.Market.ItemCacheTTL,
		JWT:               sess.JWT,
		IngameName:        sess.IngameName,
	})

	state := persistence.NewJSONFileService(cfg.Store.DataDir)
	settings := config.NewSettingsState(cfg.LiveTrader.Settings, state.NewStore("live_trader", "settings"), cfg.LiveTrader.LockWait)
	if err := settings.Restore(context.Background()); err != nil {
		log.Warnf("restore saved settings: %v", err)
	}

	hub := notify.NewHub()
	webhook := notify.NewWebhook(func() string {
		s, err := settings.Snapshot(context.Background())
		if err != nil {
			return ""
		}
		return s.Webhook
	})
	notifier := notify.Multi{notify.Log{}, webhook}

	engine := brain.New(brain.Deps{
		Orders:                 market,
		Inventory:              db,
		Catalog:                market,
		Notifier:               notifier,
		Events:                 hub,
		Identity:               market,
		UndercutNotifyInterval: 10 * time.Minute,
	})

	return &app{
		cfg:      cfg,
		store:    db,
		market:   market,
		settings: settings,
		state:    state,
		analyzer: analytics.NewAnalyzer(db),
		engine:   engine,
		notifier: notifier,
		hub:      hub,
		webhook:  webhook,
	}, nil
}

func (a *app) Close() {
	a.webhook.Flush()
	a.hub.Close()
	a.market.Close()
	if err := a.store.Close(); err != nil {
		log.Warnf("close store: %v", err)
	}
}
