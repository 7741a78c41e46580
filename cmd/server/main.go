package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mediagate/internal/adapters/ffmpeg"
	"mediagate/internal/adapters/handlers"
	"mediagate/internal/adapters/opengraph"
	"mediagate/internal/adapters/ytdlp"
	"mediagate/internal/adapters/youtube"
	"mediagate/internal/config"
	"mediagate/internal/core/ports"
	"mediagate/internal/core/services"
)

func main() {
	configPath := flag.String("config", "config.json", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	httpClient := &http.Client{Timeout: 0} // streaming bodies must outlive any fixed timeout

	// 1. Adapters (driven)
	extractors := []ports.Extractor{
		youtube.New(httpClient),
		ytdlp.New(cfg.YtDlpPath, cfg.Headers, httpClient),
		opengraph.New(cfg.Headers, httpClient),
	}
	processor := ffmpeg.NewProcessor(cfg.FFmpegPath)

	// 2. Core services
	relay := services.NewRelay(processor, cfg.TempDir,
		cfg.ConnectTimeout.Duration(), cfg.IdleTimeout.Duration())
	gateway := services.NewGateway(extractors, relay, cfg.MaxConcurrent,
		cfg.ExtractTimeout.Duration(), cfg.RequestTimeout.Duration())

	// 3. Adapter (driving)
	handler := handlers.NewHTTPHandler(gateway, cfg.RatePerSecond, cfg.RateBurst)

	mux := http.NewServeMux()
	handler.Register(mux)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Println("shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("Server starting on port %d...", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
