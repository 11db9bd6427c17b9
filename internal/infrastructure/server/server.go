package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	apihttp "github.com/GriffinCanCode/AgentOS/push/internal/api/http"
	"github.com/GriffinCanCode/AgentOS/push/internal/api/middleware"
	"github.com/GriffinCanCode/AgentOS/push/internal/domain/app"
	"github.com/GriffinCanCode/AgentOS/push/internal/domain/push"
	"github.com/GriffinCanCode/AgentOS/push/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/push/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/push/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/push/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/push/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/push/internal/store"
	"github.com/GriffinCanCode/AgentOS/push/internal/transport"
	"github.com/GriffinCanCode/AgentOS/push/internal/transport/datagram"
	"github.com/GriffinCanCode/AgentOS/push/internal/transport/kafka"
	"github.com/GriffinCanCode/AgentOS/push/internal/transport/mqtt"
	redistransport "github.com/GriffinCanCode/AgentOS/push/internal/transport/redis"
	"github.com/GriffinCanCode/AgentOS/push/internal/transport/socket"
	"github.com/GriffinCanCode/AgentOS/push/internal/transport/ws"
)

// ServiceName is reported by the gRPC health service
const ServiceName = "pushd"

// Server wraps the HTTP server and dependencies
type Server struct {
	router   http.Handler
	ctrl     *push.Controller
	apps     *app.Manager
	tree     store.Tree
	health   *health.Server
	tracer   *tracing.Tracer
	registry *prometheus.Registry
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Development: cfg.Logging.Development})
	if err != nil {
		if cfg.Logging.Development {
			logger = logging.NewDevelopment()
		} else {
			logger = logging.NewDefault()
		}
	}

	logger.Info("Initializing pushd",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("health_addr", cfg.Server.HealthAddr),
		zap.String("store", cfg.Store.Backend),
	)

	reg := monitoring.NewRegistry()
	metrics := monitoring.NewMetrics(reg)
	tracer := tracing.New(ServiceName, logger.Component("trace"))

	tree, err := OpenTree(cfg.Store, logger.Component("store"))
	if err != nil {
		tracer.Close()
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Backend, err)
	}
	conns := store.NewConnectionStore(tree, cfg.Store.Root, store.WithLogger(logger.Component("connections")))

	spawner, err := newSpawner(cfg.Launcher, logger.Component("spawner"))
	if err != nil {
		tree.Close()
		tracer.Close()
		return nil, err
	}
	breakers := resilience.NewGroup(resilience.Settings{
		Timeout: cfg.Launcher.BreakerTimeout,
		ReadyToTrip: func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= cfg.Launcher.BreakerThreshold
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("launch breaker state changed",
				zap.String("target", name), zap.Stringer("from", from), zap.Stringer("to", to))
		},
	})
	apps := app.NewManager(spawner, app.WithBreakers(breakers), app.WithLogger(logger.Component("apps")))

	drivers := NewDrivers(cfg.Transport, logger.Logger)
	logger.Info("Transports enabled", zap.Strings("schemes", drivers.Schemes()))

	ctrl := push.NewController(conns, drivers, apps, push.Options{
		Logger:       logger.Component("push"),
		Metrics:      metrics,
		Tracer:       tracer,
		SignalBuffer: cfg.Transport.SignalBuffer,
	})

	grants := apihttp.NewGrants(cfg.Transport.RestrictedSchemes, cfg.Transport.GrantToken)
	handlers := apihttp.NewHandlers(ctrl, apps, grants, metrics, logger.Component("http"))

	routerCfg := apihttp.RouterConfig{
		Development: cfg.Logging.Development,
		CORSOrigins: cfg.CORS.AllowedOrigins,
		Registry:    reg,
		Tracer:      tracer,
	}
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		routerCfg.RateLimit = &rl
	}

	logger.Info("Server initialized successfully")

	return &Server{
		router:   apihttp.NewRouter(handlers, routerCfg),
		ctrl:     ctrl,
		apps:     apps,
		tree:     tree,
		health:   health.NewServer(),
		tracer:   tracer,
		registry: reg,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}, nil
}

// Controller exposes the push controller
func (s *Server) Controller() *push.Controller { return s.ctrl }

// Handler exposes the HTTP router
func (s *Server) Handler() http.Handler { return s.router }

// Run restores persisted registrations, applies the manifest and serves
// until ctx is done or a component fails.
func (s *Server) Run(ctx context.Context) error {
	res, err := s.ctrl.Bootstrap(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	s.logger.Info("Bootstrap complete", zap.Int("restored", res.Restored), zap.Int("skipped", res.Skipped))

	if path := s.config.Manifest.Path; path != "" {
		m, err := push.LoadManifest(path)
		if err != nil {
			s.logger.Warn("Failed to load manifest", zap.String("path", path), zap.Error(err))
		} else {
			s.ctrl.ApplyManifest(ctx, m)
		}
	}

	// bind before starting anything so a failed bind leaves nothing running
	httpLis, err := net.Listen("tcp", s.config.Server.Addr())
	if err != nil {
		return fmt.Errorf("http listener: %w", err)
	}
	var healthLis net.Listener
	if s.config.Server.HealthAddr != "" {
		healthLis, err = net.Listen("tcp", s.config.Server.HealthAddr)
		if err != nil {
			_ = httpLis.Close()
			return fmt.Errorf("health listener: %w", err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		s.metrics.RunUptime(ctx)
		return nil
	})

	if s.config.Manifest.Watch {
		w := push.NewManifestWatcher(s.config.Manifest.Path, func(ctx context.Context, m *push.Manifest) {
			s.ctrl.ApplyManifest(ctx, m)
		}, s.logger.Component("manifest"))
		g.Go(func() error { return w.Run(ctx) })
	}

	httpSrv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		s.logger.Info("Starting HTTP server", zap.String("addr", httpLis.Addr().String()))
		if err := httpSrv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	var grpcSrv *grpc.Server
	if healthLis != nil {
		grpcSrv = grpc.NewServer(grpc.UnaryInterceptor(tracing.GRPCUnaryInterceptor(s.tracer)))
		healthpb.RegisterHealthServer(grpcSrv, s.health)
		s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
		g.Go(func() error {
			s.logger.Info("Starting health server", zap.String("addr", healthLis.Addr().String()))
			if err := grpcSrv.Serve(healthLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("health server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		s.health.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("HTTP shutdown incomplete", zap.Error(err))
		}
		if grpcSrv != nil {
			grpcSrv.GracefulStop()
		}
		return nil
	})

	return g.Wait()
}

// Close releases reservations and closes the store. Persisted records are
// kept so the next start restores them.
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	s.ctrl.Shutdown()
	s.tracer.Close()
	if err := s.tree.Close(); err != nil {
		s.logger.Error("Failed to close store", zap.Error(err))
		return fmt.Errorf("failed to close store: %w", err)
	}

	s.logger.Sync()
	return nil
}

// NewDrivers builds the transport factory with every scheme not disabled
func NewDrivers(cfg config.TransportConfig, logger *zap.Logger) *transport.Drivers {
	all := []transport.Driver{
		socket.New(cfg.PendingDepth, logger.Named("socket")),
		datagram.New(cfg.PendingDepth, logger.Named("datagram")),
		ws.New(cfg.PendingDepth, logger.Named("ws")),
		mqtt.New(cfg.PendingDepth, logger.Named("mqtt")),
		kafka.New(cfg.PendingDepth, logger.Named("kafka")),
		redistransport.New(cfg.PendingDepth, logger.Named("redis")),
	}

	drivers := transport.NewDrivers()
	for _, drv := range all {
		if slices.Contains(cfg.Disabled, drv.Scheme()) {
			continue
		}
		drivers.Register(drv)
	}
	return drivers
}

func newSpawner(cfg config.LauncherConfig, logger *zap.Logger) (app.Spawner, error) {
	if cfg.Mode == "exec" {
		sp, err := app.NewExecSpawner(cfg.Command, logger)
		if err != nil {
			return nil, fmt.Errorf("launcher: %w", err)
		}
		return sp, nil
	}
	return app.NewLogSpawner(logger), nil
}
