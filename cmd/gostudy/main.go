package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/basket/go-study/internal/config"
	"github.com/basket/go-study/internal/cron"
	"github.com/basket/go-study/internal/engine"
	"github.com/basket/go-study/internal/gateway"
	otelPkg "github.com/basket/go-study/internal/otel"
	"github.com/basket/go-study/internal/persistence"
	"github.com/basket/go-study/internal/planner"
	"github.com/basket/go-study/internal/search"
	"github.com/basket/go-study/internal/telemetry"
)

// Version is set via ldflags at build time: -ldflags "-X main.Version=..."
var Version = "v0.1-dev"

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage of %s:

  %s                  Start the study planner server
  %s -version         Print version and exit

FLAGS:
`, os.Args[0], os.Args[0], os.Args[0])
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
ENVIRONMENT VARIABLES:
  GOSTUDY_HOME        Data directory (default: ~/.gostudy)
  GOSTUDY_BIND_ADDR   Listen address override
  GEMINI_API_KEY      Required for the Gemini provider

EXAMPLES:
  Start the server:   %s
  Custom bind:        GOSTUDY_BIND_ADDR=0.0.0.0:8490 %s
`, os.Args[0], os.Args[0])
}

func main() {
	loadDotEnv(".env")

	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Usage = printUsage
	flag.Parse()
	if *showVersion {
		fmt.Println(Version)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fatalStartup(nil, "E_CONFIG_LOAD", err)
	}

	logger, closer, err := telemetry.NewLogger(cfg.HomeDir, cfg.LogLevel)
	if err != nil {
		fatalStartup(nil, "E_LOGGER_INIT", err)
	}
	defer closer.Close()
	slog.SetDefault(logger)
	logger.Info("startup phase", "phase", "config_loaded", "version", Version)

	// OpenTelemetry traces (no-op when disabled).
	otelProvider, err := otelPkg.Init(ctx, otelPkg.Config{
		Enabled:     cfg.Telemetry.Enabled,
		Exporter:    cfg.Telemetry.Exporter,
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		SampleRate:  cfg.Telemetry.SampleRate,
	})
	if err != nil {
		fatalStartup(logger, "E_OTEL_INIT", err)
	}
	defer otelProvider.Shutdown(context.Background())

	store, err := persistence.Open(config.DBPath(cfg.HomeDir))
	if err != nil {
		fatalStartup(logger, "E_STORE_OPEN", err)
	}
	defer store.Close()
	logger.Info("startup phase", "phase", "schema_migrated")

	llmProvider, llmModel, llmAPIKey := cfg.ResolveLLMConfig()
	session := engine.NewSession()
	brain := engine.NewGenkitBrain(ctx, session, engine.BrainConfig{
		Provider:                 llmProvider,
		Model:                    llmModel,
		APIKey:                   llmAPIKey,
		Persona:                  cfg.Persona,
		AgentName:                cfg.AgentName,
		SearchProviders:          []search.Provider{search.NewDDGProvider()},
		SearchMaxResults:         cfg.Search.MaxResults,
		OpenAICompatibleProvider: cfg.LLM.OpenAICompatibleProvider,
		OpenAICompatibleBaseURL:  cfg.LLM.OpenAICompatibleBaseURL,
	})

	plannerSvc := planner.NewService(store, brain, logger)

	// PERSONA.md hot-reload.
	confWatcher := config.NewWatcher(cfg.HomeDir, logger)
	if err := confWatcher.Start(ctx); err != nil {
		fatalStartup(logger, "E_CONFIG_WATCHER_START", err)
	}
	go func() {
		for ev := range confWatcher.Events() {
			if filepath.Base(ev.Path) != "PERSONA.md" {
				continue
			}
			data, err := os.ReadFile(ev.Path)
			if err != nil {
				logger.Warn("PERSONA.md reload failed", "error", err)
				continue
			}
			brain.UpdatePersona(string(data))
			logger.Info("PERSONA.md hot-reloaded")
		}
	}()

	// Retention scheduler.
	retention := cron.NewScheduler(cron.Config{
		Store:             store,
		Logger:            logger,
		Schedule:          cfg.Retention.Schedule,
		ChatDays:          cfg.Retention.ChatDays,
		CompletedTaskDays: cfg.Retention.CompletedTaskDays,
	})
	if err := retention.Start(ctx); err != nil {
		fatalStartup(logger, "E_RETENTION_SCHEDULE", err)
	}
	defer retention.Stop()

	gw := gateway.New(gateway.Config{
		Store:             store,
		Assistant:         brain,
		Planner:           plannerSvc,
		Logger:            logger,
		AgentName:         cfg.AgentName,
		CORS:              cfg.CORS,
		ConfigFingerprint: cfg.Fingerprint(),
		Tracer:            otelProvider.Tracer,
	})

	server := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: gw.Handler(),
	}
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("gateway listening", "addr", cfg.BindAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		logger.Error("gateway server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	logger.Info("shutdown complete")
}

func fatalStartup(logger *slog.Logger, reasonCode string, err error) {
	message := ""
	if err != nil {
		message = err.Error()
	}
	if logger != nil {
		logger.Error("startup failure", "reason_code", reasonCode, "error", message)
	} else {
		fmt.Fprintf(
			os.Stderr,
			`{"timestamp":"%s","level":"ERROR","component":"runtime","msg":"startup failure","reason_code":%q,"error":%q}`+"\n",
			time.Now().UTC().Format(time.RFC3339Nano),
			reasonCode,
			message,
		)
	}
	os.Exit(1)
}

func loadDotEnv(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		eq := strings.Index(line, "=")
		if eq <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		val := strings.TrimSpace(line[eq+1:])
		if key == "" || os.Getenv(key) != "" {
			continue
		}
		_ = os.Setenv(key, val)
	}
}
