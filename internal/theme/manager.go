package theme

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/litescript/ls-skyline/internal/acquire"
	"github.com/litescript/ls-skyline/internal/astro"
	"github.com/litescript/ls-skyline/internal/catalog"
	"github.com/litescript/ls-skyline/internal/logging"
)

// ErrNoResolver is returned by EnableSmart when the manager has no resolver.
var ErrNoResolver = errors.New("smart mode needs an environment resolver")

// Resolver produces environment results for SMART mode.
type Resolver interface {
	Resolve(ctx context.Context) acquire.Result
}

// Config holds configuration for the theme manager.
type Config struct {
	Selection       Selection
	Smart           bool
	RefreshSchedule string
	ErrorTTL        time.Duration
	ResolveTimeout  time.Duration
	ConfigError     string
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Selection:       DefaultSelection(),
		RefreshSchedule: "@every 10m",
		ErrorTTL:        5 * time.Second,
		ResolveTimeout:  30 * time.Second,
	}
}

// Manager owns mode, selection and the last resolved environment.
type Manager struct {
	mu sync.RWMutex

	cfg      Config
	resolver Resolver
	store    SelectionStore
	log      *logging.Logger
	now      func() time.Time
	onChange []func(Snapshot)

	mode        Mode
	sel         Selection
	weather     catalog.Category
	env         *acquire.Environment
	window      astro.SunWindow
	loading     bool
	lastErr     string
	errAt       time.Time
	configErr   string
	lastRefresh time.Time
	version     uint64

	// SMART bookkeeping. generation is bumped on every mode change so a
	// result from an earlier SMART session is discarded.
	generation uint64
	smartCtx   context.Context
	cancel     context.CancelFunc
	cron       *cron.Cron
	closed     bool
	wg         sync.WaitGroup
}

// Option configures a Manager.
type Option func(*Manager)

// WithOnChange registers fn to be called after every state change.
func WithOnChange(fn func(Snapshot)) Option {
	return func(m *Manager) { m.onChange = append(m.onChange, fn) }
}

// WithStore persists the preference across runs.
func WithStore(s SelectionStore) Option {
	return func(m *Manager) { m.store = s }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// NewManager creates a manager in MANUAL mode. A stored preference, if any,
// replaces the configured selection. Call Start to enter SMART mode when
// configured or remembered.
func NewManager(cfg Config, resolver Resolver, opts ...Option) *Manager {
	def := DefaultConfig()
	if cfg.RefreshSchedule == "" {
		cfg.RefreshSchedule = def.RefreshSchedule
	}
	if cfg.ErrorTTL <= 0 {
		cfg.ErrorTTL = def.ErrorTTL
	}
	if cfg.ResolveTimeout <= 0 {
		cfg.ResolveTimeout = def.ResolveTimeout
	}
	if cfg.Selection.Validate() != nil {
		cfg.Selection = def.Selection
	}

	m := &Manager{
		cfg:       cfg,
		resolver:  resolver,
		log:       logging.Discard(),
		now:       time.Now,
		mode:      ModeManual,
		sel:       cfg.Selection,
		configErr: cfg.ConfigError,
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.store != nil {
		pref, ok, err := m.store.LoadPreference()
		switch {
		case err != nil:
			m.log.Warn("load preference: %v", err)
		case ok && pref.Selection.Validate() == nil:
			m.sel = pref.Selection
			m.cfg.Smart = pref.Mode == ModeSmart
		}
	}
	return m
}

// Start enters SMART mode if configured to.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.RLock()
	smart := m.cfg.Smart
	m.mu.RUnlock()
	if !smart {
		return nil
	}
	return m.EnableSmart(ctx)
}

// Mode returns the current mode.
func (m *Manager) Mode() Mode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mode
}

// SetSelection stores a manual choice. In SMART mode the choice is kept
// for later and the scene is unaffected.
func (m *Manager) SetSelection(sel Selection) error {
	if err := sel.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	if m.sel == sel {
		m.mu.Unlock()
		return nil
	}
	m.sel = sel
	m.version++
	m.mu.Unlock()

	m.persist()
	m.notify()
	return nil
}

// SetWeather changes only the weather of the manual choice.
func (m *Manager) SetWeather(c catalog.Category) error {
	m.mu.RLock()
	sel := m.sel
	m.mu.RUnlock()
	sel.Weather = c
	return m.SetSelection(sel)
}

// SetTimeOfDay changes only the time of day of the manual choice.
func (m *Manager) SetTimeOfDay(t astro.TimeOfDay) error {
	m.mu.RLock()
	sel := m.sel
	m.mu.RUnlock()
	sel.TimeOfDay = t
	return m.SetSelection(sel)
}

// EnableSmart switches MANUAL to SMART, starts an immediate resolve and
// schedules periodic refreshes. It is a no-op when already SMART.
func (m *Manager) EnableSmart(ctx context.Context) error {
	if m.resolver == nil {
		return ErrNoResolver
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errors.New("theme manager is closed")
	}
	if m.mode == ModeSmart {
		m.mu.Unlock()
		return nil
	}

	m.generation++
	gen := m.generation

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(m.log))))
	if _, err := c.AddFunc(m.cfg.RefreshSchedule, func() { m.resolve(gen) }); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("refresh schedule %q: %w", m.cfg.RefreshSchedule, err)
	}

	m.smartCtx, m.cancel = context.WithCancel(ctx)
	m.cron = c
	m.mode = ModeSmart
	m.version++
	m.wg.Add(1)
	m.mu.Unlock()

	c.Start()
	m.log.Info("smart mode on, refresh %s", m.cfg.RefreshSchedule)

	m.persist()
	m.notify()

	go func() {
		defer m.wg.Done()
		m.resolve(gen)
	}()
	return nil
}

// DisableSmart switches SMART to MANUAL. Scheduled refreshes stop, any
// in-flight resolve is cancelled and its result dropped, and the resolved
// location and sun window are cleared.
func (m *Manager) DisableSmart() {
	m.mu.Lock()
	if m.mode != ModeSmart {
		m.mu.Unlock()
		return
	}
	m.stopSmartLocked()
	m.mode = ModeManual
	m.weather = ""
	m.env = nil
	m.window = astro.SunWindow{}
	m.lastErr = ""
	m.version++
	m.mu.Unlock()

	m.log.Info("smart mode off")
	m.persist()
	m.notify()
}

// ToggleSmart flips the mode.
func (m *Manager) ToggleSmart(ctx context.Context) error {
	if m.Mode() == ModeSmart {
		m.DisableSmart()
		return nil
	}
	return m.EnableSmart(ctx)
}

// Refresh starts a resolve now. It returns false in MANUAL mode.
func (m *Manager) Refresh() bool {
	m.mu.Lock()
	if m.mode != ModeSmart || m.closed {
		m.mu.Unlock()
		return false
	}
	gen := m.generation
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		m.resolve(gen)
	}()
	return true
}

// Close stops scheduled work and waits for in-flight resolves.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	jobs := m.stopSmartLocked()
	m.mu.Unlock()

	<-jobs.Done()
	m.wg.Wait()
}

// stopSmartLocked ends the SMART session. The returned context is done
// once running scheduled jobs have returned.
func (m *Manager) stopSmartLocked() context.Context {
	m.generation++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.loading = false
	if m.cron == nil {
		done, cancel := context.WithCancel(context.Background())
		cancel()
		return done
	}
	jobs := m.cron.Stop()
	m.cron = nil
	return jobs
}

// resolve runs one acquisition for SMART session gen. Only one resolve is
// in flight at a time.
func (m *Manager) resolve(gen uint64) {
	m.mu.Lock()
	if m.generation != gen || m.mode != ModeSmart || m.loading {
		m.mu.Unlock()
		return
	}
	m.loading = true
	m.version++
	ctx := m.smartCtx
	m.mu.Unlock()
	m.notify()

	rctx, cancel := context.WithTimeout(ctx, m.cfg.ResolveTimeout)
	res := m.resolver.Resolve(rctx)
	cancel()

	m.mu.Lock()
	if m.generation != gen || m.mode != ModeSmart {
		m.mu.Unlock()
		m.log.Debug("dropping stale resolve result")
		return
	}
	m.apply(res)
	m.mu.Unlock()
	m.notify()
}

// apply folds a resolve result into state. Caller holds the lock.
func (m *Manager) apply(res acquire.Result) {
	now := m.now()
	m.loading = false
	m.lastRefresh = now
	m.version++

	if res.Err != nil {
		m.lastErr = res.Err.Error()
		m.errAt = now
		if m.window.IsZero() {
			m.window = res.Env.Window
		}
		m.log.Warn("resolve: %v", res.Err)
		return
	}

	env := res.Env
	if m.env != nil {
		// Keep what the last good pass knew about stages that failed now.
		if !env.HasLocation && m.env.HasLocation {
			env.Location, env.HasLocation = m.env.Location, true
		}
		if !env.HasWeather && m.env.HasWeather {
			env.Condition, env.HasWeather = m.env.Condition, true
		}
	}
	m.env = &env
	m.window = env.Window
	if c, ok := env.Weather(); ok {
		m.weather = c
	}
	m.lastErr = ""

	if errors.Is(res.Partial, acquire.ErrMissingAPIKey) {
		m.configErr = "weather API key is not set; set OPENWEATHER_API_KEY"
	}
}

// Snapshot returns a consistent copy of the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	s := Snapshot{
		Mode:        m.mode,
		Selection:   m.sel,
		Weather:     m.sel.Weather,
		Loading:     m.loading,
		LastRefresh: m.lastRefresh,
		Version:     m.version,
	}
	if m.mode != ModeSmart {
		return s
	}

	if m.weather != "" {
		s.Weather = m.weather
	}
	s.Window = m.window
	s.ConfigError = m.configErr
	if m.lastErr != "" && m.now().Sub(m.errAt) < m.cfg.ErrorTTL {
		s.LastError = m.lastErr
	}
	if m.env != nil {
		env := *m.env
		env.Warnings = append([]string(nil), m.env.Warnings...)
		if env.HasLocation {
			loc := env.Location
			if loc.Coordinates != nil {
				c := *loc.Coordinates
				loc.Coordinates = &c
			}
			s.Location = &loc
			env.Location = loc
		}
		s.Environment = &env
	}
	return s
}

func (m *Manager) notify() {
	if len(m.onChange) == 0 {
		return
	}
	snap := m.Snapshot()
	for _, fn := range m.onChange {
		fn(snap)
	}
}

func (m *Manager) persist() {
	if m.store == nil {
		return
	}
	m.mu.RLock()
	pref := Preference{Selection: m.sel, Mode: m.mode}
	m.mu.RUnlock()
	if err := m.store.SavePreference(pref); err != nil {
		m.log.Warn("save preference: %v", err)
	}
}
