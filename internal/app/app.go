// Package app wires storage, the remote client and the services together.
package app

import (
	"errors"
	"fmt"

	"taxtracker/internal/client"
	"taxtracker/internal/config"
	"taxtracker/internal/database"
	"taxtracker/internal/metrics"
	"taxtracker/internal/repository"
	"taxtracker/internal/service"
	"taxtracker/internal/session"
	"taxtracker/internal/storage"
	"taxtracker/internal/websocket"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type Options struct {
	// Registerer receives the prometheus collectors; nil keeps them private
	Registerer prometheus.Registerer
	// Notifications creates the websocket hub and publishes events to it
	Notifications bool
}

// App holds the wired dependencies (Repository -> Service)
type App struct {
	Config  config.Config
	Log     *zap.Logger
	Storage storage.Storage
	Store   *session.Store
	Client  *client.Client
	Rules   repository.RulesetRepository
	Metrics *metrics.Metrics
	Hub     *websocket.Hub

	Sessions     service.SessionService
	Calculations service.CalculationService
	History      service.HistoryService

	closers []func() error
}

func New(cfg config.Config, log *zap.Logger, opts Options) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{Config: cfg, Log: log}

	backend, closer, err := OpenStorage(cfg, log)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}
	a.Storage = backend
	a.Store = session.NewStore(backend, log.Named("session"))

	a.Rules, err = repository.NewRulesetRepository(cfg.RulesetFile)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("load rulesets: %w", err)
	}

	a.Metrics = metrics.New(opts.Registerer)

	var events service.EventPublisher
	if opts.Notifications {
		a.Hub = websocket.NewHub(log.Named("ws"), a.Metrics.HubClients)
		events = a.Hub
	}

	store := a.Store
	a.Client = client.New(cfg.APIBaseURL,
		client.WithTimeout(cfg.HTTPTimeout),
		client.WithLogger(log.Named("client")),
		client.WithTokenSource(store.AuthToken),
		client.WithUnauthorizedHandler(func() {
			if err := store.ClearIdentity(); err != nil {
				log.Warn("failed to clear session after 401", zap.Error(err))
			}
		}),
	)

	submit := service.NewRecordSync(a.Client, store, log.Named("sync"),
		service.WithSubmitTimeout(cfg.SubmitTimeout),
		service.WithEvents(events),
		service.WithMetrics(a.Metrics),
	)

	a.Sessions = service.NewSessionService(a.Client, store, events, log.Named("session"))
	a.Calculations = service.NewCalculationService(a.Rules, store, submit, events, a.Metrics, log.Named("calc"))
	a.History = service.NewHistoryService(a.Client, store, events, log.Named("history"))

	return a, nil
}

// OpenStorage opens the backend named by cfg.StorageDriver. The returned
// closer may be nil.
func OpenStorage(cfg config.Config, log *zap.Logger) (storage.Storage, func() error, error) {
	switch cfg.StorageDriver {
	case config.DriverMemory, "":
		return storage.NewMemory(), nil, nil
	case config.DriverSQLite:
		s, err := storage.OpenSQLite(cfg.SQLitePath, cfg.Namespace)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		return s, s.Close, nil
	case config.DriverPostgres:
		db, err := database.NewConnection(cfg.DB.DSN(), log)
		if err != nil {
			return nil, nil, fmt.Errorf("database connection failed: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		log.Info("connected to PostgreSQL")
		return repository.NewEntryStore(db, cfg.Namespace, log.Named("entries")), sqlDB.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: STORAGE_DRIVER %q", config.ErrInvalidConfig, cfg.StorageDriver)
	}
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
