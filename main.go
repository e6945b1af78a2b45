package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"vibelymap/internal/api"
	"vibelymap/internal/auth"
	"vibelymap/internal/batch"
	"vibelymap/internal/constants"
	"vibelymap/internal/filter"
	"vibelymap/internal/photos"
	"vibelymap/internal/places"
	"vibelymap/internal/prompts"
	"vibelymap/internal/search"
	"vibelymap/internal/tagcache"
	"vibelymap/internal/vision"
	"vibelymap/pkg/config"
	"vibelymap/pkg/container"
	"vibelymap/pkg/database"
	"vibelymap/pkg/events"
	"vibelymap/pkg/health"
	"vibelymap/pkg/logging"
	metricsPkg "vibelymap/pkg/metrics"
	"vibelymap/pkg/monitoring"
)

func main() {
	// Build container and register providers
	c := container.New()

	// Config (singleton)
	_ = c.Provide(func() *config.Config { return config.Load() }, true)

	// Logger (singleton)
	_ = c.Provide(func(cfg *config.Config) (*logging.Logger, error) {
		lc := logging.DefaultLogConfig()
		lc.Level = logging.ParseLevel(cfg.LogLevel)
		lc.Format = cfg.LogFormat
		lc.FilePath = cfg.LogFile
		lc.EnableFile = cfg.EnableFileLogging
		return logging.NewLogger(lc)
	}, true)

	// Tag cache (singleton). Empty REDIS_URL means disabled, not fatal.
	_ = c.Provide(func(cfg *config.Config, lg *logging.Logger) (tagcache.Store, error) {
		store, err := tagcache.NewRedisStore(cfg.RedisURL, lg)
		if err != nil {
			return nil, err
		}
		store.SetTTL(time.Duration(cfg.CacheTTLDays) * 24 * time.Hour)
		return store, nil
	}, true)

	// Venue source (singleton)
	_ = c.Provide(func(cfg *config.Config, lg *logging.Logger) (*places.Client, error) {
		return places.NewClient(cfg.GoogleMapsAPIKey, lg)
	}, true)

	// Prompts manager with optional external overrides
	_ = c.Provide(func(cfg *config.Config) (*prompts.Manager, error) {
		return prompts.NewManager(cfg.PromptDir)
	}, true)

	// Photo normalizer (singleton)
	_ = c.Provide(func(cfg *config.Config, lg *logging.Logger) *photos.Normalizer {
		n := photos.NewNormalizer(lg)
		n.SetMaxPerVenue(cfg.PhotoMaxPerVenue)
		return n
	}, true)

	// Vision providers in fallback order: OpenAI first, Gemini second.
	_ = c.Provide(func(cfg *config.Config, lg *logging.Logger) []*vision.Provider {
		var providers []*vision.Provider
		if cfg.OpenAIAPIKey != "" {
			providers = append(providers, vision.NewProvider(vision.ProviderConfig{
				Name:    "openai",
				APIKey:  cfg.OpenAIAPIKey,
				Model:   cfg.OpenAIModel,
				Timeout: cfg.VisionTimeout,
			}, lg))
		}
		if cfg.GeminiAPIKey != "" {
			providers = append(providers, vision.NewProvider(vision.ProviderConfig{
				Name:    "gemini",
				APIKey:  cfg.GeminiAPIKey,
				BaseURL: cfg.GeminiBaseURL,
				Model:   cfg.GeminiModel,
				Timeout: cfg.VisionTimeout,
			}, lg))
		}
		return providers
	}, true)

	// Analyzer and orchestrator (singletons)
	_ = c.Provide(func(n *photos.Normalizer, store tagcache.Store, pm *prompts.Manager, cfg *config.Config, lg *logging.Logger) *vision.Analyzer {
		a := vision.NewAnalyzer(n, store, pm, lg)
		a.ApplyConfig(cfg.VisionTemperature, cfg.VisionMaxTokens)
		return a
	}, true)
	_ = c.Provide(func(providers []*vision.Provider, a *vision.Analyzer, store tagcache.Store, lg *logging.Logger) *vision.Orchestrator {
		return vision.NewOrchestrator(providers, a, store, lg)
	}, true)

	// Batch scheduler (singleton)
	_ = c.Provide(func(orch *vision.Orchestrator, store tagcache.Store, cfg *config.Config, lg *logging.Logger) *batch.Scheduler {
		s := batch.NewScheduler(orch, store, lg)
		s.ApplyConfig(cfg.BatchGroupSize, cfg.BatchStagger)
		return s
	}, true)

	// Search service (singleton)
	_ = c.Provide(func(pc *places.Client, sched *batch.Scheduler, lg *logging.Logger) *search.Service {
		return search.NewService(pc, sched, filter.NewMatcher(), lg)
	}, true)

	// Resolve config early for validation and monitoring setup
	var cfg *config.Config
	if err := c.Resolve(&cfg); err != nil {
		log.Fatal("config resolve:", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("config validation: ", err)
	}
	monitoring.EnableProfiling(cfg.ProfilingEnabled)
	log.Println("Starting ambiance tagging service")

	var lg *logging.Logger
	if err := c.Resolve(&lg); err != nil {
		log.Fatal("logger resolve:", err)
	}
	defer lg.Close()

	// Audit store is optional; without DATABASE_URL history is disabled.
	var eventStore *events.SQLEventStore
	var db *database.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.NewWithOptions(cfg.DatabaseURL, database.Options{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifetime) * time.Minute,
			ConnMaxIdleTime: time.Duration(cfg.DBConnMaxIdleTime) * time.Minute,
			ReadTimeout:     cfg.DBReadTimeout,
			WriteTimeout:    cfg.DBWriteTimeout,
		})
		if err != nil {
			log.Fatal("database init: ", err)
		}
		defer db.Close()
		eventStore, err = events.NewSQLEventStore(db)
		if err != nil {
			log.Fatal("event store init: ", err)
		}
	} else {
		log.Println("DATABASE_URL not set; analysis history disabled")
	}

	// Resolve runtime dependencies
	var (
		store tagcache.Store
		orch  *vision.Orchestrator
		sched *batch.Scheduler
		svc   *search.Service
		pc    *places.Client
	)
	for _, target := range []interface{}{&store, &orch, &sched, &svc, &pc} {
		if err := c.Resolve(target); err != nil {
			log.Fatal("resolve: ", err)
		}
	}
	if orch.ProviderCount() == 0 {
		log.Fatal("no vision provider configured; set OPENAI_API_KEY or GEMINI_API_KEY")
	}
	if eventStore != nil {
		sched.SetEventStore(eventStore)
		api.SetEventStore(eventStore)
	}

	// Start config watcher for hot-reload of pacing and vision knobs
	cw := config.NewWatcher(time.Duration(cfg.ConfigReloadIntervalSeconds) * time.Second)
	cw.Start()
	defer cw.Close()
	chgCh := cw.Subscribe()
	var analyzer *vision.Analyzer
	if err := c.Resolve(&analyzer); err != nil {
		log.Fatal("analyzer resolve: ", err)
	}
	go func() {
		for chg := range chgCh {
			if chg.Err != nil {
				log.Printf("Config reload failed: %v", chg.Err)
				continue
			}
			sched.ApplyConfig(chg.New.BatchGroupSize, chg.New.BatchStagger)
			analyzer.ApplyConfig(chg.New.VisionTemperature, chg.New.VisionMaxTokens)
			log.Printf("Config applied. Changed fields: %v", chg.Fields)
		}
	}()

	// Graceful shutdown context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Received shutdown signal, initiating graceful shutdown...")
		cancel()
	}()

	// Admin token auth
	adminResolver := auth.NewAdminResolver(cfg.AdminConfigPath)
	adminMW := auth.NewAdminAuthMiddleware(adminResolver, api.RenderUnauthorized)

	// HTTP routing
	router := api.NewRouter(api.Deps{
		Search:    svc,
		Scheduler: sched,
		Orch:      orch,
		Cache:     store,
		Places:    pc,
		Events:    eventStore,
		Log:       lg,
	}, adminMW)

	var reqMetrics *monitoring.Metrics
	if cfg.MetricsEnabled {
		reqMetrics = monitoring.NewMetrics(512)
		router.Use(monitoring.Middleware(reqMetrics))
	}

	server := &http.Server{Addr: ":" + cfg.Port, Handler: router}

	// Health server with per-dependency checkers
	hm := health.NewHealthManager(health.HealthConfig{
		Timeout: constants.HealthTimeoutDefault,
		Version: "1.0.0",
	}, lg)
	hm.RegisterChecker(health.NewPingHealthChecker("tag_cache", func(ctx context.Context) error {
		if !store.Available() {
			return nil // disabled cache is healthy by definition
		}
		_, _ = store.Get(ctx, "health-probe")
		return nil
	}))
	if db != nil {
		hm.RegisterChecker(health.NewDatabaseHealthChecker(db.Conn(), "audit_db"))
	}
	hm.RegisterChecker(health.NewSchedulerHealthChecker("batch_scheduler", func() interface{} {
		return sched.GetStats()
	}))
	healthServer := health.NewHealthServer(hm, ":"+cfg.HealthCheckPort, cfg.HealthCheckPath, lg)
	_ = healthServer.Start()

	var adminServer *http.Server
	if cfg.ProfilingEnabled || cfg.MetricsEnabled {
		adminMux := http.NewServeMux()
		if cfg.ProfilingEnabled {
			monitoring.RegisterPprof(adminMux)
		}
		if cfg.MetricsEnabled {
			adminMux.Handle(cfg.MetricsPath, metricsPkg.Handler())
			if reqMetrics != nil && cfg.MetricsPath != "/metrics.json" {
				adminMux.Handle("/metrics.json", monitoring.MetricsHandler(reqMetrics))
			}
		}
		adminServer = &http.Server{Addr: ":" + cfg.ProfilingPort, Handler: adminMux}
		go func() {
			log.Printf("Admin server (pprof/metrics) starting on port %s", cfg.ProfilingPort)
			if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("Admin HTTP server error: %v", err)
			}
		}()
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error:", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), constants.GracefulShutdownTimeoutDefault)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	if adminServer != nil {
		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Admin HTTP server shutdown error: %v", err)
		}
	}
	if err := healthServer.Stop(shutdownCtx); err != nil {
		log.Printf("Health server shutdown error: %v", err)
	}
	log.Println("Application shutdown complete")
}
