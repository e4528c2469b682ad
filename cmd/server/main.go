package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"house-search/internal/api"
	"house-search/internal/config"
	"house-search/internal/db"
	"house-search/internal/scraper"
)

func main() {
	cfg := config.Load()

	// Parse command line flags
	port := flag.Int("port", cfg.Port, "Port to listen on")
	dbPath := flag.String("db", cfg.DBPath, "Path to SQLite database")
	flag.Parse()

	// Default database path
	if *dbPath == "" {
		cwd, _ := os.Getwd()
		*dbPath = filepath.Join(cwd, "data", "house-search.db")
	}
	log.Printf("Database path: %s", *dbPath)

	// Initialize database
	database, err := db.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// The server shares the scraper pipeline for on-demand scrapes and
	// listing checks; its limits come from config, not flags.
	sc := scraper.DefaultConfig()
	sc.Workers = cfg.Workers
	sc.Delay = cfg.RequestDelay
	fetcher := scraper.NewFetcher(cfg.RequestTimeout, cfg.RetryAttempts, cfg.RetryBackoff)
	s := scraper.New(database, fetcher, sc)

	// Create router
	router := api.NewRouter(database, s, api.HandlerConfig{
		ListingFreshness: cfg.ListingFreshness,
	})

	// Start server
	addr := fmt.Sprintf(":%d", *port)
	log.Printf("Starting server on http://localhost%s", addr)

	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
