package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/managerd/internal/chat"
	"github.com/fyrsmithlabs/managerd/internal/config"
	"github.com/fyrsmithlabs/managerd/internal/dashboard"
	"github.com/fyrsmithlabs/managerd/internal/deadline"
	"github.com/fyrsmithlabs/managerd/internal/entity"
	"github.com/fyrsmithlabs/managerd/internal/gateway"
	"github.com/fyrsmithlabs/managerd/internal/kvstore"
	"github.com/fyrsmithlabs/managerd/internal/notify"
	"github.com/fyrsmithlabs/managerd/internal/session"
)

// Build constructs and loads every service described by cfg. The returned
// cleanup stops the deadline monitor and closes network connections; it is
// safe to call once.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Registry, func() error, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var closers []func() error
	cleanup := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}
	fail := func(err error) (Registry, func() error, error) {
		_ = cleanup()
		return nil, nil, err
	}

	kv, closeKV, err := OpenStore(ctx, cfg.Storage)
	if err != nil {
		return fail(err)
	}
	if closeKV != nil {
		closers = append(closers, closeKV)
	}

	provider, err := NewProvider(cfg.Provider)
	if err != nil {
		return fail(err)
	}
	agency := cfg.Assistant.AgencyName
	loc := cfg.Location()
	gw, err := gateway.NewService(provider, logger.Named("gateway"),
		gateway.WithAgencyName(agency),
		gateway.WithLocation(loc),
	)
	if err != nil {
		return fail(err)
	}

	notifyOpts := []notify.Option{notify.WithTTL(cfg.Notify.TTL)}
	if cfg.Events.NATSURL != "" {
		pub, err := notify.ConnectNATSPublisher(cfg.Events.NATSURL, cfg.Events.Subject)
		if err != nil {
			return fail(fmt.Errorf("connect event publisher: %w", err))
		}
		closers = append(closers, pub.Close)
		notifyOpts = append(notifyOpts, notify.WithPublisher(pub))
	}
	notifier := notify.New(logger.Named("notify"), notifyOpts...)

	var pusher notify.Pusher
	if cfg.Telegram.BotToken.IsSet() {
		pusher = notify.NewTelegram(notify.TelegramConfig{
			BotToken: cfg.Telegram.BotToken.Value(),
			BaseURL:  cfg.Telegram.BaseURL,
		})
	} else {
		logger.Info("telegram bot token not set, push disabled")
	}
	push := notify.NewPushChannel(pusher, kv, logger.Named("push"))
	if err := push.Load(ctx); err != nil {
		return fail(err)
	}

	entities, err := entity.NewStore(kv, logger.Named("entity"))
	if err != nil {
		return fail(err)
	}
	if err := entities.Load(ctx); err != nil {
		return fail(err)
	}

	monitor, err := deadline.NewMonitor(entities, notifier, push, logger.Named("deadline"),
		deadline.WithInterval(cfg.Deadline.Interval),
		deadline.WithWindow(cfg.Deadline.Window),
		deadline.WithLocation(loc),
	)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, func() error { monitor.Stop(); return nil })

	orchestrator, err := chat.New(chat.Deps{
		Gateway:  gw,
		Entities: entities,
		Alerter:  notifier,
		Pusher:   push,
		Store:    kv,
		Logger:   logger.Named("chat"),
	}, chat.WithAgencyName(agency))
	if err != nil {
		return fail(err)
	}
	if err := orchestrator.Load(ctx); err != nil {
		return fail(err)
	}

	gate, err := session.NewGate(session.Config{
		Passphrase: cfg.Auth.Passphrase.Value(),
		Store:      kv,
		Credential: gw,
		Monitor:    monitor,
		Alerter:    notifier,
		Logger:     logger.Named("session"),
	})
	if err != nil {
		return fail(err)
	}
	if err := gate.Load(ctx); err != nil {
		return fail(err)
	}

	reg := NewRegistry(Options{
		Store:      kv,
		Gateway:    gw,
		Notifier:   notifier,
		Push:       push,
		Entities:   entities,
		Monitor:    monitor,
		Chat:       orchestrator,
		Session:    gate,
		Selection:  dashboard.NewSelection(),
		AgencyName: agency,
		Location:   loc,
	})
	logger.Info("services ready",
		zap.String("storage", cfg.Storage.Backend),
		zap.String("provider", gw.ProviderName()),
		zap.Bool("authenticated", gate.Authenticated()),
	)
	return reg, cleanup, nil
}

// OpenStore opens the configured key-value backend. The returned close
// function is nil for backends without a connection.
func OpenStore(ctx context.Context, cfg config.StorageConfig) (kvstore.Store, func() error, error) {
	switch cfg.Backend {
	case config.StorageMemory:
		return kvstore.NewMemory(), nil, nil
	case config.StorageFile:
		s, err := kvstore.NewFile(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open file store: %w", err)
		}
		return s, nil, nil
	case config.StorageNATS:
		s, err := kvstore.ConnectNATS(ctx, cfg.NATSURL, cfg.Bucket)
		if err != nil {
			return nil, nil, fmt.Errorf("open nats store: %w", err)
		}
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

// NewProvider creates the configured LLM provider.
func NewProvider(cfg config.ProviderConfig) (gateway.Provider, error) {
	switch cfg.Name {
	case config.ProviderOpenAI:
		return gateway.NewOpenAIProvider(gateway.OpenAIConfig{
			APIKey:          cfg.APIKey.Value(),
			BaseURL:         cfg.BaseURL,
			Model:           cfg.Model,
			SearchModel:     cfg.SearchModel,
			ImageModel:      cfg.ImageModel,
			TranscribeModel: cfg.TranscribeModel,
			RateLimit:       float64(cfg.RateLimit),
		})
	case config.ProviderOllama:
		return gateway.NewOllamaProvider(gateway.OllamaConfig{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		})
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.Name)
}
