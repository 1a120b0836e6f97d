package daemon

import (
	"context"
	"time"

	"github.com/matheus3301/storechat/internal/api"
	"github.com/matheus3301/storechat/internal/archive"
	"github.com/matheus3301/storechat/internal/bus"
	"github.com/matheus3301/storechat/internal/chat"
	"github.com/matheus3301/storechat/internal/clock"
	"github.com/matheus3301/storechat/internal/config"
	"github.com/matheus3301/storechat/internal/directory"
	"github.com/matheus3301/storechat/internal/dispatch"
	"github.com/matheus3301/storechat/internal/httpapi"
	"github.com/matheus3301/storechat/internal/instance"
	"github.com/matheus3301/storechat/internal/lock"
	"github.com/matheus3301/storechat/internal/logging"
	"github.com/matheus3301/storechat/internal/metrics"
	"github.com/matheus3301/storechat/internal/relay"
	"github.com/matheus3301/storechat/internal/status"
	"github.com/matheus3301/storechat/internal/window"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved instance configuration passed to the fx module.
type Params struct {
	InstanceName string
	SocketPath   string // optional override for testing; empty = use default
	Config       *config.Config
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	if p.Config == nil {
		p.Config = config.Default()
	}
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideClock,
			provideDirectory,
			provideDispatcher,
			provideStore,
			provideWindows,
			provideArchive,
			provideRecorder,
			provideRelay,
			provideChatService,
			provideGateway,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(instance.LogPath(p.InstanceName), p.InstanceName, p.Config.Log.Level)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := instance.EnsureDir(p.InstanceName); err != nil {
		return nil, err
	}
	logger.Info("acquiring instance lock", zap.String("instance", p.InstanceName))
	l, err := lock.Acquire(instance.Dir(p.InstanceName))
	if err != nil {
		return nil, err
	}
	logger.Info("instance lock acquired")
	return l, nil
}

func provideClock() clock.Clock {
	return clock.Real{}
}

func provideDirectory(p Params, clk clock.Clock) directory.Directory {
	return contactsFromConfig(p.Config.Contacts, clk.Now())
}

// contactsFromConfig returns the configured contacts, or the built-in set when none are configured.
func contactsFromConfig(cfgs []config.ContactConfig, now time.Time) directory.Static {
	if len(cfgs) == 0 {
		return directory.Default(now)
	}
	out := make(directory.Static, 0, len(cfgs))
	for _, c := range cfgs {
		out = append(out, directory.Contact{
			ID:          c.ID,
			Name:        c.Name,
			Avatar:      c.Avatar,
			Online:      c.Online,
			LastSeen:    c.LastSeen,
			UnreadCount: c.UnreadCount,
		})
	}
	return out
}

func provideDispatcher(p Params, clk clock.Clock, logger *zap.Logger) *dispatch.Dispatcher {
	cfg := dispatch.Config{
		MinDelay: p.Config.Chat.ReplyMinDelay.Duration,
		MaxDelay: p.Config.Chat.ReplyMaxDelay.Duration,
		Replies:  p.Config.Chat.Replies,
	}
	return dispatch.New(cfg, clk, dispatch.SystemRand{}, logger.Named("dispatch"))
}

func provideStore(dir directory.Directory, disp *dispatch.Dispatcher, clk clock.Clock, b *bus.Bus, logger *zap.Logger) *chat.Store {
	return chat.NewStore(dir, disp, clk, b, logger.Named("chat"))
}

func provideWindows(p Params, store *chat.Store, b *bus.Bus, logger *zap.Logger) *window.Manager {
	return window.NewManager(p.Config.Chat.MaxWindows, store, b, logger.Named("window"))
}

// provideArchive opens the transcript archive, or returns nil when it is disabled.
func provideArchive(p Params, logger *zap.Logger) (*archive.DB, error) {
	if !p.Config.Archive.Enabled {
		return nil, nil
	}
	dbPath := instance.ArchivePath(p.InstanceName)
	db, err := archive.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("archive initialized", zap.String("path", dbPath))
	return db, nil
}

func provideRecorder(db *archive.DB, b *bus.Bus, logger *zap.Logger) *archive.Recorder {
	if db == nil {
		return nil
	}
	return archive.NewRecorder(db, b, logger.Named("archive"))
}

// provideRelay connects to Redis when an address is configured.
func provideRelay(p Params, b *bus.Bus, logger *zap.Logger) (*relay.Relay, *redis.Client, error) {
	rc := p.Config.Redis
	if rc.Addr == "" {
		return nil, nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := relay.Dial(ctx, relay.Options{Addr: rc.Addr, Password: rc.Password, DB: rc.DB})
	if err != nil {
		return nil, nil, err
	}
	logger.Info("redis relay connected", zap.String("addr", rc.Addr), zap.String("channel", rc.Channel))
	return relay.New(client, b, rc.Channel, p.InstanceName, logger.Named("relay")), client, nil
}

func provideChatService(p Params, store *chat.Store, windows *window.Manager, m *status.Machine, b *bus.Bus, db *archive.DB) *api.ChatService {
	var arc api.Archive
	if db != nil {
		arc = db
	}
	return api.NewChatService(p.InstanceName, store, windows, m, b, arc)
}

// provideGateway builds the HTTP gateway, or returns nil when no address is configured.
func provideGateway(p Params, svc *api.ChatService, b *bus.Bus, logger *zap.Logger) *httpapi.Server {
	hc := p.Config.HTTP
	if hc.Addr == "" {
		return nil
	}
	cfg := httpapi.Config{
		Addr:           hc.Addr,
		SendRate:       hc.SendRateLimit,
		SendBurst:      hc.SendBurst,
		AllowedOrigins: hc.AllowedOrigins,
	}
	return httpapi.New(cfg, svc, b, p.InstanceName, logger.Named("http"))
}

type lifecycleParams struct {
	fx.In

	// Lock comes first so a second daemon fails before touching the socket.
	Lock     *lock.Lock
	Server   *Server
	Service  *api.ChatService
	Machine  *status.Machine
	Bus      *bus.Bus
	Store    *chat.Store
	Archive  *archive.DB
	Recorder *archive.Recorder
	Relay    *relay.Relay
	Redis    *redis.Client
	Gateway  *httpapi.Server
	Logger   *zap.Logger
}

func registerLifecycle(lc fx.Lifecycle, d lifecycleParams) {
	ctx, cancel := context.WithCancel(context.Background())
	logger := d.Logger

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			metrics.Watch(ctx, d.Bus)
			if d.Recorder != nil {
				d.Recorder.Start(ctx)
			}
			if d.Relay != nil {
				d.Relay.Start(ctx)
			}

			if err := d.Machine.Transition(status.Seeding); err != nil {
				return err
			}
			d.Store.Initialize()

			go func() {
				if err := d.Server.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()
			if d.Gateway != nil {
				go func() {
					if err := d.Gateway.Start(); err != nil {
						logger.Error("http gateway error", zap.Error(err))
						_ = d.Machine.Transition(status.Error)
					}
				}()
			}

			return d.Machine.Transition(status.Ready)
		},
		OnStop: func(stopCtx context.Context) error {
			_ = d.Machine.Transition(status.Stopping)
			d.Store.StopReplies()
			if d.Gateway != nil {
				if err := d.Gateway.Stop(stopCtx); err != nil {
					logger.Warn("error stopping http gateway", zap.Error(err))
				}
			}
			d.Service.Shutdown()
			d.Server.Stop(stopCtx)

			cancel()
			if d.Recorder != nil {
				d.Recorder.Stop()
			}
			if d.Relay != nil {
				d.Relay.Stop()
			}
			if d.Redis != nil {
				_ = d.Redis.Close()
			}
			if d.Archive != nil {
				_ = d.Archive.Close()
			}
			_ = d.Machine.Transition(status.Stopped)
			if err := d.Lock.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
