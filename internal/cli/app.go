package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gofrs/flock"
	"go.opentelemetry.io/otel"

	"github.com/roach88/recordupdate/internal/auth"
	"github.com/roach88/recordupdate/internal/classification"
	"github.com/roach88/recordupdate/internal/config"
	"github.com/roach88/recordupdate/internal/doublerecord"
	"github.com/roach88/recordupdate/internal/engine"
	"github.com/roach88/recordupdate/internal/librules"
	"github.com/roach88/recordupdate/internal/messages"
	"github.com/roach88/recordupdate/internal/search"
	"github.com/roach88/recordupdate/internal/store"
	"github.com/roach88/recordupdate/internal/update"
	"github.com/roach88/recordupdate/internal/validate"
)

// app is an opened repository with the update service built on it.
type app struct {
	cfg     *config.Config
	store   *store.Store
	lock    *flock.Flock
	service *update.Service
	metrics *engine.Metrics
	logger  *slog.Logger
}

// openStore opens the configured store. A file-backed SQLite store is
// locked for the lifetime of the app so two commands never write the same
// file.
func openStore(cfg *config.Config, logger *slog.Logger) (*store.Store, *flock.Flock, error) {
	var lock *flock.Flock
	if cfg.FileBacked() {
		lock = flock.New(cfg.Database.DSN + ".lock")
		locked, err := lock.TryLock()
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "failed to lock database", err)
		}
		if !locked {
			return nil, nil, NewExitError(ExitCommandError, fmt.Sprintf("database %s is in use by another process", cfg.Database.DSN))
		}
	}
	logger.Debug("opening database", "driver", cfg.Database.Driver, "dsn", cfg.Database.DSN)
	st, err := store.OpenDSN(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		if lock != nil {
			_ = lock.Unlock()
		}
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, lock, nil
}

// openApp loads the configuration, opens the store and builds the update
// service.
func openApp(opts *RootOptions) (*app, error) {
	cfg, err := opts.Config()
	if err != nil {
		return nil, err
	}
	logger := opts.logger()
	st, lock, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, store: st, lock: lock, logger: logger}
	if err := a.build(); err != nil {
		_ = a.Close()
		return nil, WrapExitError(ExitCommandError, "failed to build update service", err)
	}
	return a, nil
}

func (a *app) build() error {
	cfg := a.cfg

	rules, err := librules.LoadFile(cfg.Rules.File)
	if err != nil {
		return err
	}
	catalog, err := messages.LoadFile(cfg.Messages.File)
	if err != nil {
		return err
	}
	templates, err := loadTemplates(cfg.Templates.Dir)
	if err != nil {
		return err
	}

	var index search.Index = search.NewStoreIndex(a.store)
	if cfg.Search.URL != "" {
		index = search.NewClient(cfg.Search.URL,
			search.WithHTTPClient(&http.Client{Timeout: cfg.Search.Timeout}),
			search.WithLogger(a.logger),
		)
	}
	var checker doublerecord.Checker = doublerecord.NewLocalChecker(index, a.logger)
	if cfg.DoubleRecord.URL != "" {
		checker = doublerecord.NewClient(cfg.DoubleRecord.URL, &http.Client{Timeout: cfg.DoubleRecord.Timeout}, a.logger)
	}

	clock := engine.SystemClock{}
	env := &update.Env{
		Repo:          a.store,
		Holdings:      a.store,
		Rules:         rules,
		Index:         index,
		DoubleRecords: checker,
		Keys:          doublerecord.NewKeys(a.store, engine.UUIDv7Generator{}, clock, cfg.DoubleRecord.KeyTTL),
		Auth:          auth.New(a.store),
		Templates:     templates,
		Messages:      catalog,
		Enrichments:   classification.NewBuilder(),
		Settings:      cfg.UpdateSettings(),
	}

	a.metrics = engine.NewMetrics(cfg.Metrics.Namespace)
	eng := engine.New(
		engine.WithLogger(a.logger),
		engine.WithClock(clock),
		engine.WithMetrics(a.metrics),
		engine.WithTracer(otel.Tracer("github.com/roach88/recordupdate")),
	)
	a.service, err = update.NewService(env,
		update.WithEngine(eng),
		update.WithClock(clock),
		update.WithLogger(a.logger),
	)
	return err
}

func loadTemplates(dir string) (*validate.Registry, error) {
	if dir == "" {
		return validate.Default()
	}
	return validate.LoadDir(dir)
}

// Close closes the store and releases the lock.
func (a *app) Close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.lock != nil {
		errs = append(errs, a.lock.Unlock())
	}
	return errors.Join(errs...)
}
