package app

import (
	"context"
	"crypto/rand"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xenking/denim-store/db"
	"github.com/xenking/denim-store/internal/cart"
	"github.com/xenking/denim-store/internal/catalog"
	"github.com/xenking/denim-store/internal/domain/checkout"
	"github.com/xenking/denim-store/internal/domain/order"
	"github.com/xenking/denim-store/internal/domain/promo"
	"github.com/xenking/denim-store/internal/handler"
	"github.com/xenking/denim-store/internal/session"
	"github.com/xenking/denim-store/internal/storage/file"
	"github.com/xenking/denim-store/internal/storage/memory"
	"github.com/xenking/denim-store/internal/storage/postgres"
	"github.com/xenking/denim-store/internal/storage/redis"
	"github.com/xenking/denim-store/pkg/health"
	"github.com/xenking/denim-store/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application. m is usually
// the *app.Telemetry of go-faster/sdk.
func Run(ctx context.Context, lg *zap.Logger, m httpmiddleware.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage.Driver),
	)

	products, err := loadCatalog(cfg.CatalogFile)
	if err != nil {
		return err
	}
	lg.Info("Catalog loaded", zap.Int("products", products.Len()))

	// PostgreSQL pool + migrations, when configured.
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "create db pool")
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
	}

	snapshots, closeStorage, err := openStorage(ctx, cfg.Storage, pool)
	if err != nil {
		return errors.Wrapf(err, "open %s storage", cfg.Storage.Driver)
	}
	defer closeStorage()
	storage := cart.NewTracedStorage(snapshots, m.TracerProvider())

	// Health check service.
	healthSvc := health.New(health.WithLogger(lg.Named("health")))
	healthSvc.AddReadinessCheck("storage", 5*time.Second, health.PingCheck(storage))
	if pool != nil && cfg.Storage.Driver != DriverPostgres {
		healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	}
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc-pause", time.Second, health.GCMaxPauseCheck(time.Second))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	orders, promos, err := openRepositories(pool)
	if err != nil {
		return err
	}

	// Domain services.
	var payments checkout.PaymentValidator = checkout.PresenceValidator{}
	if cfg.Checkout.LuhnCheck {
		payments = checkout.LuhnValidator{Now: time.Now}
	}
	checkoutSvc, err := checkout.NewService(orders, promo.NewRepoValidator(promos), payments, m.MeterProvider())
	if err != nil {
		return errors.Wrap(err, "create checkout service")
	}

	cartMetrics, err := cart.NewMetrics(m.MeterProvider())
	if err != nil {
		return errors.Wrap(err, "create cart metrics")
	}

	secret, err := sessionSecret(cfg.Session.Secret, lg)
	if err != nil {
		return err
	}
	sessions := session.NewRegistry(
		session.Config{IdleTTL: cfg.Session.IdleTTL},
		session.NewSigner(secret),
		storage,
		cartMetrics,
		lg.Named("session"),
	)
	go sessions.Run(ctx, cfg.Session.SweepInterval)

	// HTTP handlers.
	h := handler.NewHandler(
		handler.Config{
			CookieName:   cfg.Session.CookieName,
			SecureCookie: cfg.Session.SecureCookie,
			CookieMaxAge: cfg.Session.CookieMaxAge,
		},
		products,
		sessions,
		checkoutSvc,
		orders,
	)

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	h.Register(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		// Requests inherit the root logger but outlive its cancellation while
		// draining.
		BaseContext: func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", handler.TokenHeader},
				ExposeHeaders:    []string{handler.TokenHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:        cfg.RateLimit.Max,
				Window:     cfg.RateLimit.Window,
				TrustProxy: cfg.RateLimit.TrustProxy,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("denim-store", m),
			httpmiddleware.LogRequests(),
			httpmiddleware.Labeler(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	data := db.Products
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, errors.Wrap(err, "read catalog file")
		}
	}
	c, err := catalog.Load(data)
	if err != nil {
		return nil, errors.Wrap(err, "load catalog")
	}
	return c, nil
}

// openStorage returns the configured cart snapshot backend and a func
// releasing it. The postgres driver reuses pool.
func openStorage(ctx context.Context, cfg StorageConfig, pool *pgxpool.Pool) (cart.Storage, func(), error) {
	noop := func() {}
	switch cfg.Driver {
	case DriverMemory:
		return memory.NewSnapshots(), noop, nil
	case DriverFile:
		s, err := file.New(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	case DriverRedis:
		client, err := redis.NewClient(ctx, redis.Options{
			URL:      cfg.RedisURL,
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, err
		}
		return redis.New(client, cfg.TTL), func() { _ = client.Close() }, nil
	case DriverPostgres:
		if pool == nil {
			return nil, nil, errors.New("database URL is not configured")
		}
		return postgres.NewSnapshotRepository(pool), noop, nil
	default:
		return nil, nil, errors.Errorf("unknown driver %q", cfg.Driver)
	}
}

// openRepositories returns durable order and promo repositories when a
// database is configured, and in-memory ones seeded with the default promo
// codes otherwise.
func openRepositories(pool *pgxpool.Pool) (order.Repository, promo.Repository, error) {
	if pool != nil {
		return postgres.NewOrderRepository(pool), postgres.NewPromoRepository(pool), nil
	}
	rules, err := promo.DecodeRules(db.Promos)
	if err != nil {
		return nil, nil, errors.Wrap(err, "load default promo codes")
	}
	return memory.NewOrders(), memory.NewPromos(rules...), nil
}

// sessionSecret returns the configured token secret or a random one. Tokens
// signed with a random secret do not survive a restart.
func sessionSecret(configured string, lg *zap.Logger) ([]byte, error) {
	if configured != "" {
		return []byte(configured), nil
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, errors.Wrap(err, "generate session secret")
	}
	lg.Warn("Session secret is not set, cart tokens will not survive a restart")
	return secret, nil
}
