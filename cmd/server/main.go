// Package main provides the medscan triage API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/medscan/medscan/internal/api"
	"github.com/medscan/medscan/internal/auth"
	"github.com/medscan/medscan/internal/classify"
	"github.com/medscan/medscan/internal/database"
	"github.com/medscan/medscan/internal/interpret"
	"github.com/medscan/medscan/internal/prediction"
	"github.com/medscan/medscan/internal/storage"
)

func main() {
	var (
		port        = flag.String("port", getEnv("PORT", "8080"), "Server port")
		migrateOnly = flag.Bool("migrate", false, "Run migrations and exit")
		migrateDown = flag.Bool("migrate-down", false, "Roll back all migrations and exit")
	)
	flag.Parse()

	// Database is optional: without it predictions still run, they are
	// just not recorded and quota is not enforced.
	var db *database.DB
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL != "" {
		if *migrateDown {
			if err := database.MigrateDown(dbURL); err != nil {
				log.Fatalf("Rollback failed: %v", err)
			}
			log.Println("Rollback complete")
			return
		}

		log.Println("Running database migrations...")
		if err := database.Migrate(dbURL); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations complete")

		if *migrateOnly {
			return
		}

		var err error
		db, err = database.New(context.Background(), dbURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
	} else {
		log.Println("DATABASE_URL not set, running without persistence")
		if *migrateOnly || *migrateDown {
			log.Fatal("DATABASE_URL is required to run migrations")
		}
	}

	// Auth verifier
	issuerURL := os.Getenv("AUTH_ISSUER_URL")
	if issuerURL == "" {
		log.Fatal("AUTH_ISSUER_URL is required (e.g., https://yourapp.kinde.com)")
	}
	authVerifier, err := auth.NewVerifier(auth.Config{
		IssuerURL: issuerURL,
		Audience:  os.Getenv("AUTH_AUDIENCE"),
	})
	if err != nil {
		log.Fatalf("Failed to create auth verifier: %v", err)
	}
	defer authVerifier.Close()

	// Model configuration and classification backend
	configs, err := loadConfigs()
	if err != nil {
		log.Fatalf("Failed to load model config: %v", err)
	}
	backend, closeBackend, err := newBackend(configs)
	if err != nil {
		log.Fatalf("Failed to create classification backend: %v", err)
	}
	defer closeBackend()
	registry := classify.NewRegistry(configs, backend)

	// LLM enrichment providers, tried in order
	enricher := interpret.NewEnricher(enrichmentProviders()...)

	// Local blob storage for uploaded images
	uploadsDir := getEnv("MEDSCAN_UPLOADS_DIR", "uploads")
	blobs, err := storage.NewLocal(uploadsDir, "/uploads/")
	if err != nil {
		log.Fatalf("Failed to create upload storage: %v", err)
	}

	var records prediction.RecordStore
	if db != nil {
		records = db
	}
	orchestrator := prediction.New(registry, enricher, records, blobs)

	// Create API server
	server := api.NewServer(api.Config{
		DB:           db,
		AuthVerifier: authVerifier,
		Orchestrator: orchestrator,
		UploadsDir:   blobs.Dir(),
		DevMode:      getEnv("MEDSCAN_ENV", "production") == "development",
		RateLimit:    envFloat("MEDSCAN_RATE_LIMIT"),
		RateBurst:    envInt("MEDSCAN_RATE_BURST"),
	})
	defer server.Close()

	// Create HTTP server. The write timeout covers classification plus
	// enrichment retries, so it is much longer than the read timeout.
	addr := fmt.Sprintf(":%s", *port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}

	log.Println("Server stopped")
}

// loadConfigs returns the model registry configuration, merging an optional
// YAML file over the built-in defaults.
func loadConfigs() (map[classify.ModelType]classify.ModelConfig, error) {
	path := os.Getenv("MEDSCAN_MODELS")
	if path == "" {
		return classify.DefaultConfigs(), nil
	}
	return classify.LoadConfigs(path)
}

// newBackend selects the classification backend from MEDSCAN_BACKEND:
// "onnx" runs local model files and fails hard when they are missing,
// "remote" fetches artifacts over HTTP with a mock fallback, and "demo"
// (the default) needs no model files at all.
func newBackend(configs map[classify.ModelType]classify.ModelConfig) (classify.Backend, func(), error) {
	switch mode := getEnv("MEDSCAN_BACKEND", "demo"); mode {
	case "onnx":
		b := classify.NewONNXBackend(configs)
		return b, b.Close, nil
	case "remote":
		b, err := classify.NewRemoteBackend(configs, getEnv("MEDSCAN_MODEL_CACHE", "models"))
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	case "demo":
		log.Println("Using demo backend: results are heuristic, not real inference")
		return classify.NewDemoBackend(configs), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q (expected onnx, remote, or demo)", mode)
	}
}

// enrichmentProviders builds the LLM client chain from whichever API keys
// are configured. Order matters: the first provider is tried first.
func enrichmentProviders() []interpret.Client {
	var providers []interpret.Client
	if key := getEnv("GEMINI_API_KEY", os.Getenv("GOOGLE_API_KEY")); key != "" {
		providers = append(providers, interpret.NewGoogleClient(key, os.Getenv("GEMINI_MODEL")))
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		providers = append(providers, interpret.NewOpenAIClient(key, os.Getenv("OPENAI_MODEL")))
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		providers = append(providers, interpret.NewAnthropicClient(key, os.Getenv("ANTHROPIC_MODEL")))
	}
	if len(providers) == 0 {
		log.Println("No LLM API keys configured, interpretations will use templates")
	}
	return providers
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envFloat(key string) float64 {
	v, _ := strconv.ParseFloat(os.Getenv(key), 64)
	return v
}

func envInt(key string) int {
	v, _ := strconv.Atoi(os.Getenv(key))
	return v
}
