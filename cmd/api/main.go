package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "taxtracker/api/swagger" // swagger docs
	"taxtracker/internal/app"
	"taxtracker/internal/config"
	"taxtracker/internal/handler"
	"taxtracker/internal/logger"
	"taxtracker/internal/middleware"
	"taxtracker/internal/session"
	"taxtracker/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           Tax Tracker Companion API
// @version         1.0
// @description     Local companion service for the tax tracker: tax calculation, session and record sync.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load(config.DefaultEnvFile)
	if err != nil {
		panic(err)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Env: cfg.Env, Service: "taxtracker-api"})
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a, err := app.New(cfg, log, app.Options{Registerer: registry, Notifications: true})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	// Set up WebSocket Hub
	go a.Hub.Run(ctx)

	if cfg.Env == logger.ProductionEnv {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log.Named("http")))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", middleware.HeaderRequestID}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	expired := func(token string) bool { return session.TokenExpired(token, time.Now()) }
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(a.Hub, c, a.Store.AuthToken, expired)
	})

	requireSession := middleware.RequireSession(a.Store, log.Named("auth"))
	api := router.Group("")
	handler.NewSessionHandler(a.Sessions, requireSession).RegisterRoutes(api)
	handler.NewCalculationHandler(a.Calculations, requireSession).RegisterRoutes(api)
	handler.NewRecordHandler(a.History, requireSession).RegisterRoutes(api)
	handler.NewRulesetHandler(a.Rules).RegisterRoutes(api)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.String("storage", cfg.StorageDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
