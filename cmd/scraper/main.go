package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"house-search/internal/config"
	"house-search/internal/db"
	"house-search/internal/scraper"
)

func main() {
	cfg := config.Load()

	// Parse command line flags
	dbPath := flag.String("db", cfg.DBPath, "Path to SQLite database")
	postcodes := flag.String("postcodes", "", "Comma-separated postcodes to scrape (e.g. \"SW1A 1AA,EC1A 1BB\")")
	maxPages := flag.Int("pages", 1, "Maximum listing pages per postcode")
	maxProps := flag.Int("max", 50, "Maximum properties per postcode")
	workers := flag.Int("workers", cfg.Workers, "Number of concurrent workers")
	delay := flag.Duration("delay", cfg.RequestDelay, "Delay between detail page requests")
	details := flag.Bool("details", false, "Visit each property's detail page")
	floorplans := flag.Bool("floorplans", false, "Extract floorplan image URLs (implies -details)")
	freshness := flag.Int("freshness", cfg.FreshnessDays, "Skip postcodes scraped within this many days (0 to disable)")
	useBrowser := flag.Bool("browser", cfg.UseBrowser, "Use headless browser for fetching")
	headless := flag.Bool("headless", cfg.Headless, "Run browser in headless mode (set false to see browser)")
	flag.Parse()

	if *postcodes == "" {
		log.Fatal("No postcodes given; use -postcodes \"SW1A 1AA,EC1A 1BB\"")
	}
	var targets []string
	for _, pc := range strings.Split(*postcodes, ",") {
		if pc = strings.TrimSpace(pc); pc != "" {
			targets = append(targets, pc)
		}
	}

	// Determine database path
	if *dbPath == "" {
		cwd, _ := os.Getwd()
		*dbPath = filepath.Join(cwd, "data", "house-search.db")
	}
	log.Printf("Using database: %s", *dbPath)

	// Initialize database
	database, err := db.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// Configure scraper
	sc := scraper.DefaultConfig()
	sc.MaxPages = *maxPages
	sc.MaxProperties = *maxProps
	sc.Workers = *workers
	sc.Delay = *delay
	sc.Details = *details || *floorplans
	sc.Floorplans = *floorplans
	sc.FreshnessDays = *freshness
	sc.UseBrowser = *useBrowser
	sc.Headless = *headless

	fetcher := scraper.NewFetcher(cfg.RequestTimeout, cfg.RetryAttempts, cfg.RetryBackoff)
	s := scraper.New(database, fetcher, sc)

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received interrupt signal, shutting down...")
		cancel()
	}()

	log.Printf("Scraping %d postcodes...", len(targets))
	startTime := time.Now()

	if err := s.Run(ctx, targets); err != nil {
		if ctx.Err() == context.Canceled {
			log.Println("Scraper cancelled by user")
		} else {
			log.Fatalf("Scraper failed: %v", err)
		}
	}

	log.Printf("Scraping completed in %s", time.Since(startTime))
}
