// Package glass composes the off-screen browser: engine provider, core
// service, state store and event bus.
package glass

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pkt.systems/glass/core"
	"pkt.systems/glass/internal/appconfig"
	"pkt.systems/glass/internal/cdpengine"
	"pkt.systems/glass/internal/eventbus"
	"pkt.systems/glass/internal/gesture"
	"pkt.systems/glass/internal/persist"
	"pkt.systems/glass/internal/workpool"
	"pkt.systems/glass/schema"
	"pkt.systems/pslog"
)

// Host runs the browser core loop against an engine provider.
type Host interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error
	Service() core.Service
	Events() *eventbus.Bus
}

// HostConfig configures the compositor.
type HostConfig struct {
	Browser  schema.BrowserConfig
	Engine   appconfig.EngineConfig
	Gesture  gesture.Config
	StateDir string
	// TickInterval paces the host loop. Zero uses the core default.
	TickInterval time.Duration
	// Workers bounds background saves and history searches. Zero uses GOMAXPROCS.
	Workers int
}

// ConfigFromApp maps the application config onto the host config.
func ConfigFromApp(cfg appconfig.Config) HostConfig {
	return HostConfig{
		Browser:      cfg.BrowserConfig(),
		Engine:       cfg.Engine,
		Gesture:      cfg.GestureSettings(),
		StateDir:     cfg.StateDir,
		TickInterval: cfg.TickInterval(),
		Workers:      2,
	}
}

// HostDeps captures dependencies required to build the host.
type HostDeps struct {
	// Engines starts tab engines. Nil starts headless Chrome.
	Engines   core.EngineProvider
	EventSink core.EventSink
	Logger    pslog.Logger
}

// New constructs a host. It claims the state directory; a second host on the
// same directory fails with persist.ErrLocked.
func New(cfg HostConfig, deps HostDeps) (Host, error) {
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}

	var store *persist.Store
	if cfg.StateDir != "" {
		s, err := persist.NewStoreWithLogger(cfg.StateDir, logger)
		if err != nil {
			return nil, err
		}
		if err := s.Lock(); err != nil {
			return nil, err
		}
		store = s
	}

	engines := deps.Engines
	if engines == nil {
		engines = cdpengine.NewProvider(cfg.Engine, logger)
	}

	pool := workpool.New(pslog.ContextWithLogger(context.Background(), logger), cfg.Workers)
	bus := eventbus.New(logger)

	service, err := core.NewService(cfg.Browser, core.ServiceDeps{
		Engines:      engines,
		Store:        store,
		Pool:         pool,
		EventSink:    fanout(deps.EventSink, bus),
		Logger:       logger,
		Gesture:      cfg.Gesture,
		TickInterval: cfg.TickInterval,
	})
	if err != nil {
		_ = pool.Close(context.Background())
		if store != nil {
			_ = store.Unlock()
		}
		return nil, err
	}

	return &host{
		cfg:     cfg,
		service: service,
		store:   store,
		pool:    pool,
		bus:     bus,
		logger:  logger,
	}, nil
}

type host struct {
	cfg     HostConfig
	service core.Service
	store   *persist.Store
	pool    *workpool.Pool
	bus     *eventbus.Bus
	logger  pslog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	errCh   chan error
	started bool
	stopped bool
}

func (h *host) Service() core.Service {
	return h.service
}

func (h *host) Events() *eventbus.Bus {
	return h.bus
}

// Start restores the saved session and runs the host loop in the background.
func (h *host) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	h.mu.Lock()
	if h.started {
		h.mu.Unlock()
		pslog.Ctx(ctx).Warn("host start rejected", "reason", "already started")
		return errors.New("host already started")
	}
	h.ctx, h.cancel = context.WithCancel(ctx)
	h.errCh = make(chan error, 1)
	h.started = true
	runCtx, cancel, errCh := h.ctx, h.cancel, h.errCh
	h.mu.Unlock()

	log := h.logger
	log.Info("host start",
		"state_dir", h.cfg.StateDir,
		"view_width", h.cfg.Browser.ViewWidth,
		"view_height", h.cfg.Browser.ViewHeight,
		"restore", h.cfg.Browser.RestoreSession,
	)
	restored, err := h.service.RestoreSession(runCtx)
	if err != nil {
		log.Error("host session restore failed", "restored", restored, "err", err)
		cancel()
		err = fmt.Errorf("restore session: %w", err)
		errCh <- err
		return err
	}
	if restored > 0 {
		log.Info("host session restored", "tabs", restored)
	}

	go func() {
		err := h.service.Run(runCtx)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, schema.ErrServiceClosed) {
			log.Error("host loop failed", "err", err)
			errCh <- err
			return
		}
		errCh <- nil
	}()
	return nil
}

// Wait blocks until the host loop stops.
func (h *host) Wait() error {
	h.mu.Lock()
	errCh := h.errCh
	started := h.started
	h.mu.Unlock()
	if !started {
		return errors.New("host not started")
	}
	err := <-errCh
	errCh <- err
	return err
}

// Stop saves the session, closes every tab and the engine provider, and
// releases the state directory.
func (h *host) Stop(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return nil
	}
	h.stopped = true
	cancel := h.cancel
	h.mu.Unlock()

	log := h.logger
	log.Info("host stop requested")
	var errs []error
	if err := h.service.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close service: %w", err))
	}
	if cancel != nil {
		cancel()
	}
	if err := h.pool.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close pool: %w", err))
	}
	if h.store != nil {
		if err := h.store.Unlock(); err != nil {
			errs = append(errs, fmt.Errorf("unlock state: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		log.Warn("host stop completed with errors", "err", err)
		return err
	}
	log.Info("host stopped")
	return nil
}
