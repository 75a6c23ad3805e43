package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agentforge/internal/agents"
	"agentforge/internal/api"
	"agentforge/internal/config"
	"agentforge/internal/database"
	"agentforge/internal/logging"
	"agentforge/internal/models"
	"agentforge/internal/monitoring"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

var version = "dev"

var (
	configFile  = flag.String("config", "configs/config.yaml", "Path to configuration file")
	port        = flag.Int("port", 0, "API server port (overrides config)")
	metricsPort = flag.Int("metrics-port", 0, "Metrics server port (overrides config)")
	checkModel  = flag.Bool("check-provider", false, "Send a test prompt to the generation provider and exit")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *metricsPort != 0 {
		cfg.Metrics.Port = *metricsPort
	}

	logger := logging.Init(logging.Config{
		Format:    cfg.Log.Format,
		Level:     cfg.Log.Level,
		Component: "agentforge",
	})
	gin.SetMode(cfg.Server.Mode)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	registry := models.NewModelRegistry(cfg.Generation)
	if *checkModel {
		checkProvider(ctx, registry, logger)
		return
	}

	composer, err := initializeComposer(cfg, registry)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize composer")
	}
	synthesizer := agents.NewSynthesizer(cfg.Deployment.EndpointBase, cfg.Deployment.DashboardBase)

	// The registry only exists when a database is configured; a nil store
	// must stay a nil interface.
	var store api.Registry
	if cfg.Database.Driver != "" {
		agentStore, err := database.NewAgentStore(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize database")
		}
		defer agentStore.Close()
		store = agentStore
	}

	var metrics *monitoring.MetricsCollector
	if cfg.Metrics.Enabled {
		metrics = monitoring.NewMetricsCollector()
	}

	agentAPI := api.NewAgentAPI(composer, synthesizer, store, metrics, api.Config{
		Version:        version,
		Provider:       registry.ProviderName(),
		EnforceOrigin:  cfg.Registry.EnforceOrigin,
		JWTSecret:      cfg.Auth.JWTSecret,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         logging.WithComponent("api"),
	})
	defer agentAPI.Events.Close()

	if metrics != nil {
		go startMetricsServer(ctx, cfg.Metrics, metrics, logger)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           agentAPI.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info().Msg("Shutting down server...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("API server shutdown error")
		}
	}()

	logger.Info().
		Int("port", cfg.Server.Port).
		Str("provider", registry.ProviderName()).
		Int("templates", composer.Catalog().Len()).
		Bool("registry", store != nil).
		Msg("Starting AgentForge API server")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("API server error")
	}
}

func initializeComposer(cfg *config.Config, registry *models.ModelRegistry) (*agents.Composer, error) {
	catalog := agents.DefaultCatalog()
	if cfg.Catalog.Path != "" {
		loaded, err := agents.LoadCatalogFile(cfg.Catalog.Path)
		if err != nil {
			return nil, err
		}
		catalog = loaded
	}

	opts := []agents.Option{agents.WithLogger(logging.WithComponent("composer"))}

	generator, err := registry.Generator()
	if err != nil {
		return nil, err
	}
	if generator != nil {
		opts = append(opts, agents.WithGenerator(generator, cfg.Generation.Timeout))
	}

	return agents.NewComposer(catalog, opts...), nil
}

func checkProvider(ctx context.Context, registry *models.ModelRegistry, logger zerolog.Logger) {
	ok, err := registry.TestProvider(ctx)
	if err != nil || !ok {
		logger.Fatal().Err(err).Str("provider", registry.ProviderName()).Msg("Provider check failed")
	}
	logger.Info().Str("provider", registry.ProviderName()).Msg("Provider is responding")
}

func startMetricsServer(ctx context.Context, cfg config.MetricsConfig, metrics *monitoring.MetricsCollector, logger zerolog.Logger) {
	metricsRouter := gin.New()
	metricsRouter.Use(gin.Recovery())
	metricsRouter.GET(cfg.Path, gin.WrapH(metrics.Handler()))

	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           metricsRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info().Int("port", cfg.Port).Str("path", cfg.Path).Msg("Starting metrics server")
	if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("Metrics server error")
	}
}
