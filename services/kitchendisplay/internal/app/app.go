package app

import (
	"context"
	"time"

	"github.com/appetiteclub/comandas/pkg"
	"github.com/appetiteclub/comandas/pkg/event"
	"github.com/appetiteclub/comandas/services/kitchendisplay/internal/kitchen"
	"github.com/appetiteclub/comandas/services/kitchendisplay/internal/mongo"
	"github.com/aquamarinepk/aqm"
	aqmevents "github.com/aquamarinepk/aqm/events"
	"github.com/aquamarinepk/aqm/middleware"
)

const (
	AppName      = "kitchendisplay"
	AppVersion   = "0.1.0"
	AppNamespace = "COMANDAS"
)

// App encapsulates the kitchen display service
type App struct {
	config *aqm.Config
	logger aqm.Logger
	micro  *aqm.Micro
	engine *kitchen.Engine
}

// New creates a new kitchen display application
func New(config *aqm.Config, logger aqm.Logger) (*App, error) {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &App{
		config: config,
		logger: logger,
	}, nil
}

// Initialize wires the order source, local cache, event bus, sync engine
// and HTTP handler into a micro service.
func (a *App) Initialize(ctx context.Context) error {
	source, err := NewOrderSource(a.config)
	if err != nil {
		return err
	}

	store, err := NewStore(a.config, a.logger)
	if err != nil {
		return err
	}

	interval, err := PollInterval(a.config)
	if err != nil {
		return err
	}

	var lifecycles []interface{}
	if repo, ok := store.(*mongo.SnapshotRepo); ok {
		lifecycles = append(lifecycles, repo)
	}

	// Event bus is optional; without it displays only see each other's
	// changes on the next poll.
	var eventPublisher aqmevents.Publisher
	var peerSubscriber *pkg.NATSSubscriber
	if enabled(a.config, "nats.enabled") {
		natsURL := a.config.GetStringOrDef("nats.url", defaultNATSURL)

		if enabled(a.config, "nats.stream.enabled") {
			stream, err := pkg.NewNATSStream(pkg.NATSStreamConfig{
				URL:        natsURL,
				StreamName: "COMANDAS_EVENTS",
				Topic:      event.ComandasTopic,
				MaxAge:     24 * time.Hour,
			})
			if err != nil {
				return err
			}
			a.logger.Info("NATS stream initialized for persistent events")
			eventPublisher = stream
			lifecycles = append(lifecycles, aqm.LifecycleHooks{
				OnStop: func(context.Context) error { return stream.Close() },
			})
		} else {
			publisher, err := pkg.NewNATSPublisher(natsURL)
			if err != nil {
				return err
			}
			eventPublisher = publisher
			lifecycles = append(lifecycles, aqm.LifecycleHooks{
				OnStop: func(context.Context) error { return publisher.Close() },
			})
		}

		peerSubscriber, err = pkg.NewNATSSubscriber(natsURL)
		if err != nil {
			return err
		}
	}

	a.engine = kitchen.NewEngine(source, store, eventPublisher, a.logger, kitchen.WithPollInterval(interval))

	broadcaster := kitchen.NewBroadcaster(a.logger)
	a.engine.AddListener(broadcaster)

	handler := kitchen.NewHandler(a.engine, broadcaster, a.config, a.logger)

	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger: a.logger,
	})

	// Warm from the local cache after the store is up and before the first
	// poll lands.
	lifecycles = append(lifecycles, aqm.LifecycleHooks{
		OnStart: func(ctx context.Context) error {
			if err := a.engine.Warm(ctx); err != nil {
				a.logger.Info("failed to warm comandas", "error", err)
			}
			return nil
		},
	})
	lifecycles = append(lifecycles, a.engine, broadcaster)

	if peerSubscriber != nil {
		lifecycles = append(lifecycles,
			kitchen.NewPeerSubscriber(peerSubscriber, a.engine, a.logger),
			aqm.LifecycleHooks{
				OnStop: func(context.Context) error { return peerSubscriber.Close() },
			},
		)
	}

	options := []aqm.Option{
		aqm.WithConfig(a.config),
		aqm.WithLogger(a.logger),
		aqm.WithHTTPMiddleware(stack...),
		aqm.WithHTTPServerModules("web.port", handler),
		aqm.WithLifecycle(lifecycles...),
		aqm.WithHealthChecks(AppName),
	}

	a.micro = aqm.NewMicro(options...)
	return nil
}

// Engine returns the sync engine once Initialize has run.
func (a *App) Engine() *kitchen.Engine {
	return a.engine
}

// Run starts the application
func (a *App) Run(ctx context.Context) error {
	a.logger.Infof("Starting %s(%s)", AppName, AppVersion)
	if err := a.micro.Run(ctx); err != nil {
		return err
	}
	a.logger.Infof("%s(%s) stopped", AppName, AppVersion)
	return nil
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	// Lifecycle cleanup is handled by aqm.Micro
	return nil
}
