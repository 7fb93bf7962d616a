package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Roan215/Atlas-Frontend/internal/admission"
	"github.com/Roan215/Atlas-Frontend/internal/api"
	"github.com/Roan215/Atlas-Frontend/internal/backend"
	"github.com/Roan215/Atlas-Frontend/internal/billing"
	"github.com/Roan215/Atlas-Frontend/internal/config"
	"github.com/Roan215/Atlas-Frontend/internal/discharge"
	"github.com/Roan215/Atlas-Frontend/internal/feed"
	"github.com/Roan215/Atlas-Frontend/internal/journal"
	"github.com/Roan215/Atlas-Frontend/internal/prefs"
	"github.com/Roan215/Atlas-Frontend/internal/triage"
)

func main() {
	log.Println("Starting ATLAS intake service...")

	// Load configuration
	cfg := loadConfig()

	// Open the local preference store
	store, err := prefs.Open(cfg.Prefs.DataPath, cfg.Prefs.DefaultTheme)
	if err != nil {
		log.Fatalf("Failed to open preference store: %v", err)
	}
	defer store.Close()

	// Hospital backend client
	client := backend.NewClient(&backend.ClientConfig{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.Timeout,
	})

	// Event journal
	jrnl := journal.New(&cfg.Journal)

	// Live feed synchronizer
	sync := feed.NewSynchronizer(client, cfg.Feed.RefreshInterval)
	if facilityID, ok := store.Facility(); ok {
		sync.SetFacility(facilityID)
		log.Printf("Restored facility %d from preferences", facilityID)
	}

	// Workflow components
	classifier := triage.NewClassifier(client, sync, jrnl)
	billingEngine := billing.NewEngine(client, jrnl, decimal.NewFromFloat(cfg.Billing.TransportFee))
	coordinator := discharge.NewCoordinator(client, billingEngine, sync, jrnl, cfg.Discharge.ConfirmationWindow)
	intake := admission.NewService(client, jrnl)

	// Start background components
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := jrnl.Start(ctx); err != nil {
		log.Fatalf("Failed to start journal: %v", err)
	}

	if err := sync.Start(ctx); err != nil {
		log.Fatalf("Failed to start feed synchronizer: %v", err)
	}

	// Create API server
	server := api.NewServer(cfg, api.Components{
		Backend:    client,
		Feed:       sync,
		Classifier: classifier,
		Billing:    billingEngine,
		Discharge:  coordinator,
		Admission:  intake,
		Prefs:      store,
		Journal:    jrnl,
	})

	// Start HTTP server
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("ATLAS API listening on port %d", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down ATLAS...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	sync.Stop()
	jrnl.Stop()

	log.Println("ATLAS stopped")
}

func loadConfig() *config.Config {
	configPath := os.Getenv("ATLAS_CONFIG")
	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			log.Printf("Failed to load config from %s: %v, using defaults", configPath, err)
			return config.LoadFromEnv()
		}
		return cfg
	}
	return config.LoadFromEnv()
}
