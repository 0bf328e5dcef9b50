package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/bioinformaticstoolsmith/identity/pkg/api/rest"
	"github.com/bioinformaticstoolsmith/identity/pkg/config"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version and exit")
		showHelp    = flag.Bool("help", false, "show help and exit")
		configFile  = flag.String("config", "", "path to configuration file (optional)")
		host        = flag.String("host", "", "REST server host (overrides config/env)")
		port        = flag.Int("port", 0, "REST server port (overrides config/env)")
		modelPath   = flag.String("model", "", "trained model path (overrides config/env)")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("Identity Toolchain Server v%s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	if *showHelp {
		showUsage()
		os.Exit(0)
	}

	printBanner()

	cfg := loadConfig(*configFile)

	if *host != "" {
		cfg.REST.Host = *host
	}
	if *port > 0 {
		cfg.REST.Port = *port
	}
	if *modelPath != "" {
		cfg.Model.Path = *modelPath
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if !cfg.REST.Enabled {
		log.Fatal("REST server is disabled in configuration; nothing to start")
	}

	log.Println("Initializing identity toolchain server...")
	restServer, err := rest.NewServer(rest.FromRESTConfig(cfg.REST), cfg)
	if err != nil {
		log.Fatalf("Failed to create REST server: %v", err)
	}

	printStartupInfo(cfg)

	errChan := make(chan error, 1)
	go func() {
		if err := restServer.Start(); err != nil {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	log.Println("Server is ready. Press Ctrl+C to stop.")
	select {
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
	case err := <-errChan:
		log.Printf("Server error: %v", err)
	}

	log.Println("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := restServer.Stop(ctx); err != nil {
		log.Printf("Error stopping REST server: %v", err)
	}

	log.Println("Server stopped. Goodbye!")
}

func loadConfig(configFile string) *config.Config {
	if configFile != "" {
		log.Printf("Warning: config file support not yet implemented, using environment variables")
	}
	return config.LoadFromEnv()
}

func printBanner() {
	banner := `
╔═══════════════════════════════════════════════════════════╗
║                                                           ║
║   _____    _             _   _ _                          ║
║  |_   _|__| | ___ _ __  | |_(_) |_ _   _                   ║
║    | |/ _ \ |/ _ \ '_ \ | __| | __| | | |                  ║
║    | |  __/ |  __/ | | || |_| | |_| |_| |                  ║
║    |_|\___|_|\___|_| |_| \__|_|\__|\__, |                  ║
║                                    |___/                   ║
║                                                           ║
║   Sequence Identity Prediction & Clustering                ║
║                                                           ║
╚═══════════════════════════════════════════════════════════╝
`
	fmt.Println(banner)
	fmt.Printf("Version: %s (commit: %s)\n\n", version, commit)
}

func printStartupInfo(cfg *config.Config) {
	fmt.Println("\n╔════════════════════════════════════════════════════════╗")
	fmt.Println("║            REST API Configuration                      ║")
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Printf("║ Address:          %-35s ║\n", fmt.Sprintf("%s:%d", cfg.REST.Host, cfg.REST.Port))
	fmt.Printf("║ Auth Enabled:     %-35v ║\n", cfg.REST.AuthEnabled)
	fmt.Printf("║ CORS Enabled:     %-35v ║\n", cfg.REST.CORSEnabled)
	fmt.Printf("║ Rate Limiting:    %-35v ║\n", cfg.REST.RateLimitEnabled)
	if cfg.REST.RateLimitEnabled {
		fmt.Printf("║ Rate:             %-35s ║\n", fmt.Sprintf("%.1f req/s (burst: %d)", cfg.REST.RateLimitPerSec, cfg.REST.RateLimitBurst))
	}
	fmt.Printf("║ API Docs:         %-35s ║\n", fmt.Sprintf("http://%s:%d/docs", cfg.REST.Host, cfg.REST.Port))
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Println("║               Scoring Configuration                    ║")
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Printf("║ k-mer width:      %-35d ║\n", cfg.Scoring.K)
	fmt.Printf("║ Threshold:        %-35.2f ║\n", cfg.Scoring.Threshold)
	fmt.Printf("║ Fast exact mode:  %-35v ║\n", cfg.Scoring.FastExactMode)
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Println("║               Model Configuration                      ║")
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Printf("║ Path:             %-35s ║\n", cfg.Model.Path)
	fmt.Println("╚════════════════════════════════════════════════════════╝")
	fmt.Println()
}

func showUsage() {
	fmt.Println("Identity Toolchain Server - sequence identity prediction and clustering")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  identity-server [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -help             Show this help message")
	fmt.Println("  -version          Show version information")
	fmt.Println("  -config PATH      Accepted but ignored; configuration comes from IDENTITY_* environment variables")
	fmt.Println("  -host HOST        REST server host (default: 0.0.0.0)")
	fmt.Println("  -port PORT        REST server port (default: 8080)")
	fmt.Println("  -model PATH       Trained model file path")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  IDENTITY_REST_ENABLED      Enable the REST server (true/false)")
	fmt.Println("  IDENTITY_REST_HOST         REST server host")
	fmt.Println("  IDENTITY_REST_PORT         REST server port")
	fmt.Println("  IDENTITY_AUTH_ENABLED      Enable JWT auth (true/false)")
	fmt.Println("  IDENTITY_JWT_SECRET        JWT signing secret")
	fmt.Println("  IDENTITY_RATE_LIMIT_PER_SEC  Requests per second per client")
	fmt.Println("  IDENTITY_K                 k-mer width")
	fmt.Println("  IDENTITY_THRESHOLD         Identity threshold")
	fmt.Println("  IDENTITY_FAST_EXACT        Enable fast exact-match scoring")
	fmt.Println("  IDENTITY_MODEL_PATH        Trained model file path")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  # Start with default configuration")
	fmt.Println("  identity-server")
	fmt.Println()
	fmt.Println("  # Start on a custom port with a specific model")
	fmt.Println("  identity-server -port 9090 -model ./trained.model")
	fmt.Println()
	fmt.Println("  # Start with environment variables")
	fmt.Println("  IDENTITY_REST_PORT=9090 identity-server")
	fmt.Println()
}
