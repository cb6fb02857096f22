package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erp/acct/internal/bootstrap"
	"github.com/erp/acct/internal/infrastructure/auth"
	"github.com/erp/acct/internal/infrastructure/config"
	"github.com/erp/acct/internal/infrastructure/logger"
	"github.com/erp/acct/internal/infrastructure/telemetry"
	"github.com/erp/acct/internal/interfaces/http/apidoc"
	"github.com/erp/acct/internal/interfaces/http/handler"
	"github.com/erp/acct/internal/interfaces/http/middleware"
	"github.com/erp/acct/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

//	@title			Accounting API
//	@version		1.0
//	@description	Recurring billing, payment and credit reconciliation, and reporting.

//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: logger.DefaultTimeFormat,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providers, err := telemetry.Setup(ctx, cfg.Telemetry, cfg.App.Name, log)
	if err != nil {
		log.Fatal("Failed to set up telemetry", zap.Error(err))
	}
	defer func() {
		if err := providers.Shutdown(context.Background()); err != nil {
			log.Error("Telemetry shutdown failed", zap.Error(err))
		}
	}()
	log = providers.BridgeLogger(log, cfg.App.Name)

	log.Info("Starting accounting service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.Bool("telemetry", providers.IsEnabled()),
	)

	app, err := bootstrap.Build(ctx, cfg, log, bootstrap.WithMeter(providers.Meter("acct")))
	if err != nil {
		log.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Error("Error releasing resources", zap.Error(err))
		}
	}()

	if app.Relay != nil {
		go func() {
			if err := app.Relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Change relay stopped", zap.Error(err))
			}
		}()
	}

	pool, trigger, err := app.NewScheduler()
	if err != nil {
		log.Fatal("Failed to create scheduler", zap.Error(err))
	}
	if cfg.Scheduler.Enabled {
		if err := pool.Start(ctx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		if err := trigger.Start(ctx); err != nil {
			log.Fatal("Failed to start recurring trigger", zap.Error(err))
		}
	} else {
		log.Info("Recurring scheduler disabled")
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	// Order matters: request id first so every later layer can log it
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.App.Name,
		Enabled:     providers.IsEnabled(),
		SkipPaths:   []string{"/health"},
	})...)
	engine.Use(middleware.HTTPMetrics(providers.Meter("http.server")))
	secure := middleware.SecurityConfig{ExemptPrefixes: []string{"/swagger/"}}
	if cfg.App.Env == "production" {
		secure.HSTSMaxAge = 365 * 24 * time.Hour
	}
	engine.Use(middleware.SecureWithConfig(secure))
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	engine.Use(middleware.CORSWithConfig(corsCfg))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	middleware.SetupValidator()

	systemHandler := handler.NewSystemHandler(telemetry.ServiceVersion)
	if db := app.Backend.Database; db != nil {
		systemHandler.AddCheck("database", func(context.Context) error { return db.Ping() })
	}
	if app.Redis != nil {
		rdb := app.Redis
		systemHandler.AddCheck("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}
	engine.GET("/health", systemHandler.Health)

	jwtService := auth.NewJWTService(cfg.JWT)
	changes := handler.NewChangeStreamHandler(app.Feed, handler.WithStreamLogger(log.Named("sse")))

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(middleware.RequestTimeout(cfg.HTTP.RequestTimeout, r.BasePath()+"/changes")).
		Use(middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
			JWTService: jwtService,
			Logger:     log,
		}))
	if cfg.HTTP.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateLimitWindow)
		defer limiter.Stop()
		r.Use(middleware.RateLimit(limiter))
	}

	r.Register(router.AccountingRoutes(router.AccountingHandlers{
		Recurring:    handler.NewRecurringHandler(app.Recurring),
		Invoices:     handler.NewInvoiceHandler(app.Ledger, app.Recon),
		Quotations:   handler.NewQuotationHandler(app.Ledger, app.Recon),
		Transactions: handler.NewTransactionHandler(app.Ledger),
		Credits:      handler.NewCreditNoteHandler(app.Credits),
		Reports:      handler.NewReportHandler(app.Reports, app.Recon),
		Changes:      changes,
	})...)
	r.Register(router.NewDomainGroup("system", "/system").GET("/info", systemHandler.GetSystemInfo))
	r.Setup()

	if cfg.HTTP.SwaggerEnabled {
		apidoc.Register("swagger", apidoc.New(r, apidoc.Info{
			Title:       "Accounting API",
			Description: "Recurring billing, payment and credit reconciliation, and reporting.",
			Version:     telemetry.ServiceVersion,
		}))
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
		log.Info("API browser enabled", zap.String("path", "/swagger/index.html"))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Open change streams never finish on their own
	changes.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := trigger.Stop(shutdownCtx); err != nil {
		log.Error("Recurring trigger did not stop cleanly", zap.Error(err))
	}
	if err := pool.Stop(shutdownCtx); err != nil {
		log.Error("Scheduler did not stop cleanly", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
