package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vitalwatch/internal/config"
	"vitalwatch/internal/middleware"
	"vitalwatch/internal/routes"
	"vitalwatch/internal/services"

	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", "vitalwatch.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	gin.SetMode(cfg.Server.GinMode)

	storage, err := services.NewFileStorage(cfg.Storage.Dir)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}

	engine := services.InitHistoryEngine(services.EngineOptions{
		Polling: cfg.PollingConfig(),
	})

	persistence := services.NewPersistenceManager(storage, engine, services.PersistenceOptions{
		BatchSize:     cfg.Storage.BatchSize,
		FlushInterval: cfg.FlushInterval(),
	})
	engine.AttachPersistence(persistence)
	engine.Restore(persistence)

	var source services.Source
	switch cfg.Source.Kind {
	case "local":
		source = services.NewLocalSource(cfg.Source.DiskPath)
		log.Printf("[SOURCE] Sampling local host (disk: %s)", cfg.Source.DiskPath)
	default:
		source = services.NewHTTPSource(cfg.Source.BaseURL, cfg.SourceTimeout())
		log.Printf("[SOURCE] Polling %s", cfg.Source.BaseURL)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := services.NewScheduler(source, engine)
	engine.AttachScheduler(scheduler)
	scheduler.Start(ctx, cfg.PollingConfig().Interval())

	persistDone := make(chan struct{})
	go func() {
		defer close(persistDone)
		persistence.Run(ctx)
	}()

	services.InitWebSocketHub(engine, cfg.PushInterval())

	middleware.SetAllowedOrigins(cfg.Server.AllowedOrigins)

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.IPWhitelistMiddleware(middleware.NewIPWhitelist(cfg.Server.AllowedIPs)))
	r.Use(middleware.RateLimitMiddleware(middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)))

	routes.RegisterHistoryRoutes(r)
	routes.RegisterWebSocketRoutes(r)

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Listening on %s", cfg.Server.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	services.StopWebSocketHub()
	scheduler.Stop()
	<-persistDone
}
