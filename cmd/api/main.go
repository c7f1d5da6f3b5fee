package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	partfinder "github.com/zombar/partfinder"
	"github.com/zombar/partfinder/api"
)

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	// Setup structured logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("partfinder service initializing", "version", "1.0.0")

	defaultPort := getEnv("PORT", "8080")
	defaultConfigPath := getEnv("CONFIG_PATH", "")
	defaultDetailFetches := getEnv("MAX_DETAIL_FETCHES", "")
	defaultFetchRPS := getEnv("FETCH_RPS", "0")

	port := flag.String("port", defaultPort, "Server port")
	configPath := flag.String("config", defaultConfigPath, "Optional YAML pipeline config overlay")
	fetchRPS := flag.Float64("fetch-rps", 0, "Outbound fetch rate cap, 0 disables")
	disableCORS := flag.Bool("disable-cors", false, "Disable CORS")
	flag.Parse()

	cfg := partfinder.DefaultConfig()
	if *configPath != "" {
		loaded, err := partfinder.LoadConfig(*configPath)
		if err != nil {
			logger.Error("failed to load config", "path", *configPath, "error", err)
			os.Exit(1)
		}
		cfg = loaded
		logger.Info("pipeline config loaded", "path", *configPath)
	}

	if defaultDetailFetches != "" {
		n, err := strconv.Atoi(defaultDetailFetches)
		if err != nil || n < 0 {
			logger.Warn("invalid MAX_DETAIL_FETCHES value, keeping default",
				"provided", defaultDetailFetches,
				"default", cfg.MaxDetailFetches,
			)
		} else {
			cfg.MaxDetailFetches = n
		}
	}

	if *fetchRPS > 0 {
		cfg.FetchRPS = *fetchRPS
	} else if rps, err := strconv.ParseFloat(defaultFetchRPS, 64); err == nil && rps > 0 {
		cfg.FetchRPS = rps
	}

	aggregator := partfinder.New(cfg, nil, nil)

	serverConfig := api.DefaultConfig()
	serverConfig.Addr = ":" + *port
	serverConfig.AllowedImageHosts = cfg.AllowedImageHosts
	serverConfig.CORSEnabled = !*disableCORS

	server := api.NewServer(serverConfig, aggregator)

	// Start server in a goroutine
	go func() {
		logger.Info("partfinder service starting",
			"port", *port,
			"max_detail_fetches", cfg.MaxDetailFetches,
			"max_image_probes", cfg.MaxImageProbes,
			"fetch_rps", cfg.FetchRPS,
			"allowed_image_hosts", cfg.AllowedImageHosts,
		)

		if err := server.Start(); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	logger.Info("shutting down gracefully")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
