package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/cardfolio/cardscan/internal/config"
	"github.com/cardfolio/cardscan/internal/lookup"
	"github.com/cardfolio/cardscan/internal/ocr"
	"github.com/cardfolio/cardscan/internal/scan"
	"github.com/cardfolio/cardscan/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := ""

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version", "-v", "version":
			fmt.Printf("cardscan %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			usage()
			return
		case "--config", "-c":
			if i+1 >= len(args) {
				log.Fatal("--config requires a path")
			}
			i++
			configPath = args[i]
		default:
			fmt.Fprintf(os.Stderr, "unknown argument %q\n\n", args[i])
			usage()
			os.Exit(2)
		}
	}

	// A missing .env is fine; explicit environment still applies.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: could not load .env: %v", err)
	}

	if configPath == "" {
		configPath = os.Getenv("CARDSCAN_CONFIG")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("configuration: %v", err)
	}

	logger := log.New(os.Stdout, "", log.LstdFlags)
	ctx := context.Background()

	engine, err := ocr.New(ctx, cfg.Engine.Backend, cfg.EngineOptions())
	if err != nil {
		log.Fatalf("recognition engine: %v", err)
	}
	if engine.Available() {
		logger.Printf("recognition engine %s ready", engine.Name())
	} else {
		logger.Printf("warning: recognition engine %s unavailable; scans will answer with an explicit reason", engine.Name())
	}

	var resolver *lookup.Client
	if cfg.Lookup.Enabled {
		resolver, err = lookup.New(cfg.LookupOptions(), logger)
		if err != nil {
			log.Fatalf("lookup client: %v", err)
		}
		logger.Printf("card lookup enabled (%.0f req/s, cache %d)",
			cfg.Lookup.RequestsPerSecond, cfg.Lookup.CacheSize)
	} else {
		logger.Printf("card lookup disabled; responses carry recognized names only")
	}

	pipeline := scan.New(engine, cfg.ScanOptions(), logger)
	srv := server.New(pipeline, resolver, Version, logger)

	logger.Printf("cardscan %s listening on %s", Version, cfg.Listen)
	logger.Printf("  POST http://%s/api/scan/card    - Scan a single-card photo", cfg.Listen)
	logger.Printf("  POST http://%s/api/scan/binder  - Scan a 3x3 binder page", cfg.Listen)
	logger.Printf("  GET  http://%s/api/scan/status  - Recognition backend status", cfg.Listen)
	logger.Printf("  GET  http://%s/health           - Health check", cfg.Listen)

	if err := http.ListenAndServe(cfg.Listen, srv.Routes()); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func usage() {
	fmt.Println("cardscan - trading card scanning service")
	fmt.Println()
	fmt.Println("Usage: cardscan [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config, -c PATH    Read configuration from a YAML file")
	fmt.Println("  --version, -v        Print version information")
	fmt.Println("  --help, -h           Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  CARDSCAN_CONFIG             Config file path (same as --config)")
	fmt.Println("  CARDSCAN_LISTEN             HTTP bind address (default :8085)")
	fmt.Println("  CARDSCAN_ENGINE             tesseract | rekognition")
	fmt.Println("  CARDSCAN_TESSERACT_LANG     Tesseract language (default eng)")
	fmt.Println("  AWS_REGION                  Region for the Rekognition backend")
	fmt.Println("  CARDSCAN_LOOKUP             Enable card-database lookup (default true)")
	fmt.Println("  CARDSCAN_WORKERS            Binder worker pool size")
	fmt.Println()
	fmt.Println("Build with -tags ocr to compile the local Tesseract backend.")
}
