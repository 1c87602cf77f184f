package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/litescript/ls-skyline/internal/acquire"
	"github.com/litescript/ls-skyline/internal/api"
	"github.com/litescript/ls-skyline/internal/astro"
	"github.com/litescript/ls-skyline/internal/config"
	"github.com/litescript/ls-skyline/internal/logging"
	"github.com/litescript/ls-skyline/internal/publish"
	"github.com/litescript/ls-skyline/internal/storage"
	"github.com/litescript/ls-skyline/internal/theme"
)

// newLogger builds the process logger. The TUI owns the terminal, so it
// logs only to a file, or nowhere when no file is configured.
func newLogger(cfg *config.Config, tui bool) (*logging.Logger, error) {
	level := logging.ParseLevel(cfg.Log.Level)
	if verbose {
		level = logging.LevelDebug
	}
	if cfg.Log.File != "" {
		return logging.NewFile(cfg.Log.File, level)
	}
	if tui {
		return logging.Discard(), nil
	}
	return logging.New(level), nil
}

// openStore opens the database when storage is enabled. Failure is logged
// and the program carries on without persistence.
func openStore(cfg *config.Config, log *logging.Logger) *storage.Store {
	if !cfg.Storage.Enabled {
		return nil
	}
	store, err := storage.Open(cfg.Storage.Path, log.With("storage"))
	if err != nil {
		log.Warn("Storage disabled: %v", err)
		return nil
	}
	log.Info("Database opened at %s", cfg.Storage.Path)
	return store
}

// buildAcquirer wires every configured source into an Acquirer.
func buildAcquirer(cfg *config.Config, log *logging.Logger, store *storage.Store) *acquire.Acquirer {
	opts := []acquire.Option{
		acquire.WithLogger(log.With("acquire")),
		acquire.WithDeviceTimeout(cfg.Location.GPSTimeout),
		acquire.WithStageTimeout(cfg.Weather.Timeout),
	}

	if cfg.Location.GPSDAddr != "" {
		opts = append(opts, acquire.WithDevice(acquire.NewGPSD(cfg.Location.GPSDAddr,
			acquire.WithGPSDTimeout(cfg.Location.GPSTimeout),
			acquire.WithFixMaxAge(cfg.Location.MaxAge),
		)))
	}
	if cfg.Location.IPLookup {
		opts = append(opts, acquire.WithIPLocator(acquire.NewIPAPIClient()))
	}
	if cfg.Location.ReverseGeocode {
		opts = append(opts, acquire.WithGeocoder(acquire.NewNominatimClient()))
	}
	if loc, ok := cfg.FallbackLocation(); ok {
		opts = append(opts, acquire.WithFallbackLocation(loc))
	}

	httpOpts := []acquire.ClientOption{acquire.WithTimeout(cfg.Weather.Timeout)}
	switch cfg.Weather.Provider {
	case config.ProviderOpenMeteo:
		opts = append(opts, acquire.WithWeather(acquire.NewOpenMeteoClient(httpOpts...)))
	default:
		opts = append(opts, acquire.WithWeather(acquire.NewOpenWeatherClient(cfg.Weather.APIKey, httpOpts...)))
	}

	if cfg.Sun.Online {
		opts = append(opts, acquire.WithSunTimes(acquire.NewSunriseSunsetClient(acquire.WithTimeout(cfg.Sun.Timeout))))
	}

	if store != nil {
		opts = append(opts,
			acquire.WithSunCache(store),
			acquire.WithObserver(store.ObserveEnvironment),
		)
	}
	return acquire.New(opts...)
}

// app holds the long-lived components shared by the TUI and serve.
type app struct {
	cfg       *config.Config
	log       *logging.Logger
	store     *storage.Store
	acquirer  *acquire.Acquirer
	manager   *theme.Manager
	publisher *publish.Publisher
	server    *api.Server
	jobs      *cron.Cron

	mu        sync.Mutex
	listeners []func(theme.Snapshot)

	publishCh chan theme.Snapshot
	wg        sync.WaitGroup
}

func newApp(ctx context.Context, cfg *config.Config, log *logging.Logger) *app {
	a := &app{
		cfg:       cfg,
		log:       log,
		publishCh: make(chan theme.Snapshot, 8),
	}
	a.store = openStore(cfg, log)
	a.acquirer = buildAcquirer(cfg, log, a.store)

	mopts := []theme.Option{
		theme.WithLogger(log.With("theme")),
		theme.WithOnChange(a.dispatch),
	}
	if a.store != nil {
		mopts = append(mopts, theme.WithStore(a.store))
	}
	a.manager = theme.NewManager(cfg.ThemeConfig(), a.acquirer, mopts...)

	pub, err := publish.NewPublisher(publish.Config{
		Enabled:     cfg.MQTT.Enabled,
		Broker:      cfg.MQTT.Broker,
		ClientID:    cfg.MQTT.ClientID,
		Username:    cfg.MQTT.Username,
		Password:    cfg.MQTT.Password,
		TopicPrefix: cfg.MQTT.TopicPrefix,
	}, log.With("mqtt"))
	if err != nil {
		log.Warn("MQTT disabled: %v", err)
		pub, _ = publish.NewPublisher(publish.Config{}, log)
	}
	a.publisher = pub

	if cfg.API.Enabled {
		sc := api.ServerConfig{
			Addr:       cfg.API.Addr,
			Controller: a.manager,
			Logger:     log.With("api"),
		}
		if a.store != nil {
			sc.History = a.store
		}
		a.server = api.NewServer(ctx, sc)
	}
	return a
}

// listen registers fn for every theme change. Listeners must not block.
func (a *app) listen(fn func(theme.Snapshot)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}

func (a *app) dispatch(s theme.Snapshot) {
	a.mu.Lock()
	listeners := append([]func(theme.Snapshot){}, a.listeners...)
	a.mu.Unlock()
	for _, fn := range listeners {
		fn(s)
	}
	if a.publisher.Enabled() {
		select {
		case a.publishCh <- s:
		default:
			a.log.Debug("MQTT publish queue full, dropping version %d", s.Version)
		}
	}
}

// start launches background work: smart mode if configured, the MQTT
// worker, housekeeping jobs and the API server.
func (a *app) start(ctx context.Context) error {
	if a.publisher.Enabled() {
		a.wg.Add(1)
		go a.publishLoop(ctx)
		a.publishCh <- a.manager.Snapshot()
	}

	if a.store != nil {
		a.jobs = cron.New(cron.WithChain(cron.Recover(cron.PrintfLogger(a.log))))
		if _, err := a.jobs.AddFunc("@daily", a.pruneSunCache); err != nil {
			return fmt.Errorf("schedule cache pruning: %w", err)
		}
		a.jobs.Start()
		a.pruneSunCache()
	}

	if a.server != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.server.Start(); err != nil {
				a.log.Error("API server error: %v", err)
			}
		}()
	}

	if err := a.manager.Start(ctx); err != nil {
		if errors.Is(err, theme.ErrNoResolver) {
			return err
		}
		a.log.Warn("Smart mode unavailable: %v", err)
	}
	return nil
}

func (a *app) publishLoop(ctx context.Context) {
	defer a.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-a.publishCh:
			if err := a.publisher.PublishSnapshot(s, time.Now()); err != nil {
				a.log.Warn("MQTT publish failed: %v", err)
			}
		}
	}
}

func (a *app) pruneSunCache() {
	n, err := a.store.PruneSunWindows(astro.DateKey(time.Now().AddDate(0, 0, -1)))
	if err != nil {
		a.log.Warn("Sun cache prune failed: %v", err)
		return
	}
	if n > 0 {
		a.log.Debug("Pruned %d stale sun windows", n)
	}
}

// close stops everything started by start. ctx must already be cancelled
// or the MQTT worker keeps running.
func (a *app) close() {
	a.manager.Close()

	if a.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.server.Stop(shutdownCtx); err != nil {
			a.log.Warn("API shutdown: %v", err)
		}
		cancel()
	}
	if a.jobs != nil {
		<-a.jobs.Stop().Done()
	}

	a.wg.Wait()
	a.publisher.Close()

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "close database: %v\n", err)
		}
	}
}
