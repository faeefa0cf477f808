// Package main provides the entry point for the stratus weather bot.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ewhitt/stratus/internal/chat"
	"github.com/ewhitt/stratus/internal/config"
	"github.com/ewhitt/stratus/internal/conversation"
	"github.com/ewhitt/stratus/internal/gateway"
	"github.com/ewhitt/stratus/internal/session"
	"github.com/ewhitt/stratus/internal/weather"
)

// shutdownTimeout bounds graceful shutdown of the gateway and sessions.
const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(runMain())
}

func runMain() int {
	console := flag.Bool("console", false, "run a single conversation on the local terminal")
	flag.Parse()

	if os.Getenv("STRATUS_DEBUG") == "1" {
		slog.SetLogLoggerLevel(slog.LevelDebug)
		log.Println("Debug logging enabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Shutting down gracefully...")
		cancel()
	}()

	if err := run(ctx, config.Load(), *console); err != nil {
		log.Printf("Error: %v", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, cfg *config.Config, console bool) error {
	engine, err := conversation.NewEngine(buildWeatherClient(cfg))
	if err != nil {
		return fmt.Errorf("building engine: %w", err)
	}

	if console {
		return engine.Run(ctx, chat.NewConsole())
	}
	return serve(ctx, cfg, engine)
}

// buildWeatherClient assembles the open-meteo client with a geocode
// cache in front of it.
func buildWeatherClient(cfg *config.Config) weather.Client {
	return weather.NewCachingClient(
		weather.NewOpenMeteo(
			weather.WithEndpoints(cfg.GeocodeURL, cfg.ForecastURL),
			weather.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		),
		cfg.GeocodeCacheSize,
	)
}

// serve runs the websocket gateway until ctx is canceled.
func serve(ctx context.Context, cfg *config.Config, engine *conversation.Engine) error {
	gw := gateway.NewServer()

	manager, err := session.NewManager(engine, gw,
		session.WithLimiter(session.NewLimiter(
			cfg.StartRateCapacity, cfg.StartRateRefill, cfg.StartRatePeriod)),
		session.WithIdleTimeout(cfg.SessionIdleTimeout),
	)
	if err != nil {
		return fmt.Errorf("building session manager: %w", err)
	}
	gw.Attach(manager)

	go manager.ReapIdle(ctx, cfg.ReapInterval)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           gw.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("Listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("gateway server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	if err := manager.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("session shutdown: %w", err)
	}

	log.Println("Shutdown complete")
	return nil
}
