package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/trimslot/trimslot/pkg/authz"
	"github.com/trimslot/trimslot/pkg/config"
	"github.com/trimslot/trimslot/pkg/credentials"
	"github.com/trimslot/trimslot/pkg/httputil"
	"github.com/trimslot/trimslot/pkg/identity"
	"github.com/trimslot/trimslot/pkg/observability"
	"github.com/trimslot/trimslot/pkg/policy"
	"github.com/trimslot/trimslot/pkg/revocation"
	"github.com/trimslot/trimslot/pkg/storage/postgres"
	"github.com/trimslot/trimslot/pkg/tenant"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).
			WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	ctx := context.Background()

	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		logger.WithError(err).Error("failed to connect to database")
		os.Exit(1)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		logger.WithError(err).Error("failed to run migrations")
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	// Stores.
	principals := identity.NewStore(db)
	grantStore := policy.NewStore(db)

	durable := revocation.NewPostgresStore(db)
	var revocations revocation.Store = durable

	checker := observability.NewHealthChecker(db, nil)
	if cfg.Redis.URL != "" {
		redisClient, err := postgres.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			logger.WithError(err).Error("failed to connect to redis")
			os.Exit(1)
		}
		defer redisClient.Close()
		revocations = revocation.NewCachedStore(revocations, redisClient)
		checker = observability.NewHealthChecker(db, redisClient)
		logger.Info("revocation cache enabled")
	}
	if cfg.Observability.MetricsEnabled {
		revocations = revocation.WithMetrics(revocations, revocation.NewMetrics(registry))
	}

	if _, err := principals.BootstrapSuperAdmin(ctx); err != nil {
		logger.WithError(err).Error("failed to bootstrap super admin")
		os.Exit(1)
	}

	// One registrar records issued tokens into the same durable store the
	// gate checks, so logout-everywhere can enumerate them.
	signer, err := credentials.NewSigner([]byte(cfg.Auth.TokenSecret), cfg.Auth.TokenTTL, registrarFor(revocations))
	if err != nil {
		logger.WithError(err).Error("failed to create token signer")
		os.Exit(1)
	}

	// Manifest defaults seed every store opened through the tenant service.
	var defaults tenant.FeatureDefaulter
	if cfg.Policy.ManifestPath != "" {
		manifest, err := policy.LoadManifest(cfg.Policy.ManifestPath)
		if err != nil {
			logger.WithError(err).Error("failed to load feature manifest")
			os.Exit(1)
		}
		defaults = policy.NewDefaulter(manifest, grantStore)
		logger.WithField("path", cfg.Policy.ManifestPath).Info("feature manifest loaded")
	}

	orgs := tenant.NewService(db, principals, durable, defaults)
	principals.SetEmployeeLimiter(orgs)
	grantCache := policy.NewGrantCache(grantStore, cfg.Policy.GrantCacheSize, cfg.Policy.GrantCacheTTL)

	var gateMetrics *authz.Metrics
	if cfg.Observability.MetricsEnabled {
		gateMetrics = authz.NewMetrics(registry)
	}
	gate := authz.NewGate(revocations, grantCache, logger, gateMetrics)
	authn := authz.NewAuthenticator(signer, principals)
	admin := authz.NewAdminHandlers(gate, revocations, principals, grantStore, orgs, grantCache)

	router := buildRouter(cfg, logger, metrics, gate, authn, admin, orgs)

	compactor := revocation.NewCompactor(revocations, cfg.Revocation.CompactionInterval, logger)
	compactorCtx, cancelCompactor := context.WithCancel(ctx)
	compactor.Start(compactorCtx)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, checker)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	var group errgroup.Group
	group.Go(func() error {
		logger.WithField("addr", server.Addr).Info("starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("starting health server")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	shutdown := observability.NewShutdownManager(logger, server, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})
	shutdown.RegisterShutdownFunc(func(context.Context) error {
		cancelCompactor()
		compactor.Stop()
		return nil
	})

	if err := shutdown.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("shutdown failed")
	}
	if err := group.Wait(); err != nil {
		logger.WithError(err).Error("server exited with error")
		os.Exit(1)
	}
}

func buildRouter(
	cfg *config.Config,
	logger *observability.Logger,
	metrics *observability.Metrics,
	gate *authz.Gate,
	authn *authz.Authenticator,
	admin *authz.AdminHandlers,
	orgs *tenant.Service,
) *mux.Router {
	router := mux.NewRouter()

	router.Use(
		httputil.RecoveryMiddleware,
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware,
		httputil.MaxBytesMiddleware(1<<20),
	)
	if metrics != nil {
		router.Use(observability.HTTPMetricsMiddleware(metrics))
	}
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(observability.WithLogger(r.Context(), logger)))
		})
	})

	api := router.PathPrefix("/api/v1").Subrouter()

	// Administrative surface: super admins and organization admins only.
	adminRouter := api.PathPrefix("/admin").Subrouter()
	adminRouter.Use(authn.Middleware)
	adminRouter.Use(gate.Require(authz.RouteSpec{
		Capability: identity.CapOrgSettingsWrite,
	}, orgs))
	admin.Register(adminRouter)

	// Example gate-protected tenant resource.
	appointments := api.PathPrefix("/orgs/{slug}/appointments").Subrouter()
	appointments.Use(authn.Middleware)
	appointments.Use(gate.Require(authz.RouteSpec{
		Capability: identity.CapAppointmentRead,
		OrgSlugVar: "slug",
	}, orgs))
	appointments.HandleFunc("", listAppointments).Methods(http.MethodGet)

	return router
}

// listAppointments is a placeholder resource handler behind the gate; it
// reports the effective scope the gate resolved.
func listAppointments(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, map[string]interface{}{
		"appointments": []interface{}{},
		"generated_at": time.Now().UTC(),
	})
}

// registrarFor unwraps the store chain to its registrar surface
func registrarFor(store revocation.Store) revocation.Registrar {
	if registrar, ok := store.(revocation.Registrar); ok {
		return registrar
	}
	return nil
}
