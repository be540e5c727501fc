// Package app wires settings into a running identifier service: logging,
// datastore, repositories, concept resolution, metrics and telemetry.
package app

import (
	"fmt"
	"time"

	"github.com/fieldarchive/unitlabel/internal/buildinfo"
	"github.com/fieldarchive/unitlabel/internal/concept"
	"github.com/fieldarchive/unitlabel/internal/conf"
	"github.com/fieldarchive/unitlabel/internal/datastore"
	"github.com/fieldarchive/unitlabel/internal/datastore/repository"
	"github.com/fieldarchive/unitlabel/internal/errors"
	"github.com/fieldarchive/unitlabel/internal/httpclient"
	"github.com/fieldarchive/unitlabel/internal/identifier"
	"github.com/fieldarchive/unitlabel/internal/logger"
	"github.com/fieldarchive/unitlabel/internal/observability"
)

const telemetryFlushTimeout = 2 * time.Second

// App holds the wired components. Close releases them.
type App struct {
	Settings *conf.Settings
	Log      logger.Logger
	DB       datastore.Manager
	Metrics  *observability.Metrics
	Service  *identifier.Service

	central    *logger.CentralLogger
	httpClient *httpclient.Client
	telemetry  bool
}

// New builds the application from settings. The schema is migrated before
// the service is returned.
func New(settings *conf.Settings, info *buildinfo.Info) (*App, error) {
	if settings.Debug {
		settings.Logging.DefaultLevel = string(logger.LogLevelDebug)
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = string(logger.LogLevelDebug)
		}
	}

	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(central)

	a := &App{
		Settings: settings,
		Log:      central.Module("app"),
		central:  central,
	}
	if err := a.init(info); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(info *buildinfo.Info) error {
	settings := a.Settings

	if err := errors.InitSentry(settings.Telemetry.SentryDSN, settings.Telemetry.Environment, info.Release()); err != nil {
		a.Log.Warn("telemetry disabled", logger.Error(err))
	} else {
		a.telemetry = settings.Telemetry.SentryDSN != ""
	}

	db, err := datastore.NewManager(&settings.Database, a.central.Module("datastore"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	a.DB = db
	if err := db.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	a.Metrics, err = observability.NewMetrics()
	if err != nil {
		return err
	}

	resolver, err := a.newResolver()
	if err != nil {
		return err
	}

	prefix := db.TablePrefix()
	counters := repository.NewCounterRepository(db.DB(), prefix,
		repository.WithRetryConfig(repository.RetryConfig{
			MaxAttempts: settings.Allocation.StoreRetries,
			Backoff:     settings.Allocation.StoreBackoff,
		}),
		repository.WithRetryRecorder(a.Metrics.Allocation),
		repository.WithCounterLogger(a.central.Module("datastore")),
	)

	a.Service = identifier.NewService(identifier.Dependencies{
		Counters:  counters,
		Snapshots: repository.NewSnapshotRepository(db.DB(), prefix),
		Labels:    repository.NewLabelIndexRepository(db.DB(), prefix),
		Concepts:  resolver,
	}, identifier.ConfigFromSettings(settings),
		identifier.WithLogger(a.central.Module("identifier")),
		identifier.WithMetrics(a.Metrics.Allocation),
	)

	a.Log.Info("application initialized",
		logger.String("version", info.GetVersion()),
		logger.String("database", db.Dialect()),
		logger.String("location", db.Path()))
	return nil
}

// newResolver builds the concept resolver chain: the local registry first,
// then the remote thesaurus behind a cache when one is configured.
func (a *App) newResolver() (concept.Resolver, error) {
	cs := &a.Settings.Concepts

	registry, err := concept.NewRegistryFromSettings(cs)
	if err != nil {
		return nil, fmt.Errorf("failed to load concept types: %w", err)
	}
	if cs.RemoteURL == "" {
		if registry.Len() == 0 {
			a.Log.Warn("no concept types configured, every allocation will be rejected")
		}
		return registry, nil
	}

	a.httpClient = httpclient.New(&httpclient.Config{DefaultTimeout: cs.RequestTimeout})
	remote, err := concept.NewRemoteResolver(cs.RemoteURL, a.httpClient, a.central.Module("concept"),
		concept.WithRateLimit(cs.RateLimit, cs.RateBurst))
	if err != nil {
		return nil, err
	}
	return concept.Chain{registry, concept.NewCachingResolver(remote, cs.CacheTTL)}, nil
}

// Close releases the database, HTTP client, telemetry and log file.
func (a *App) Close() error {
	var errs []error
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	if a.httpClient != nil {
		a.httpClient.Close()
	}
	if a.telemetry {
		errors.FlushTelemetry(telemetryFlushTimeout)
	}
	if a.central != nil {
		if err := a.central.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close log: %w", err))
		}
	}
	return errors.Join(errs...)
}
