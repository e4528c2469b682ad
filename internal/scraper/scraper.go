package scraper

import (
	"context"
	"log"
	"sync"
	"time"

	"house-search/internal/db"
)

// Config holds scraper configuration
type Config struct {
	MaxPages      int
	MaxProperties int
	Workers       int
	Delay         time.Duration
	Details       bool // visit each detail page instead of the listing fast path
	Floorplans    bool
	FreshnessDays int
	UseBrowser    bool
	Headless      bool
}

// DefaultConfig returns default scraper settings
func DefaultConfig() Config {
	return Config{
		MaxPages:      1,
		MaxProperties: 50,
		Workers:       1,
		Delay:         250 * time.Millisecond,
		FreshnessDays: 7,
		Headless:      true,
	}
}

// Scraper orchestrates postcode scraping and persistence. Each worker
// runs the full fetch→decode→extract pipeline serially for one postcode
// at a time; parallelism only exists across postcodes.
type Scraper struct {
	db     *db.DB
	config Config
	rm     *Rightmove
}

// New creates a new Scraper instance
func New(database *db.DB, fetcher *Fetcher, config Config) *Scraper {
	return &Scraper{
		db:     database,
		config: config,
		rm:     NewRightmove(fetcher),
	}
}

// Rightmove exposes the underlying site scraper
func (s *Scraper) Rightmove() *Rightmove {
	return s.rm
}

// Run scrapes all given postcodes and saves the results. Cancellation is
// checked between postcodes and between detail pages, never mid-fetch.
func (s *Scraper) Run(ctx context.Context, postcodes []string) error {
	log.Println("Starting scraper...")
	startTime := time.Now()

	if s.config.UseBrowser {
		browser := NewBrowser(s.config.Headless)
		if err := browser.Start(); err != nil {
			return err
		}
		defer browser.Stop()
		s.rm.SetBrowser(browser)
	}

	workers := s.config.Workers
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan string)
	var wg sync.WaitGroup
	var mu sync.Mutex
	totalSaved := 0

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for postcode := range jobs {
				saved := s.scrapePostcode(ctx, postcode)
				mu.Lock()
				totalSaved += saved
				mu.Unlock()
			}
		}()
	}

	var cancelled bool
	for _, postcode := range postcodes {
		select {
		case <-ctx.Done():
			cancelled = true
		case jobs <- postcode:
		}
		if cancelled {
			break
		}
	}
	close(jobs)
	wg.Wait()

	log.Printf("Scraping complete: %d properties saved in %s", totalSaved, time.Since(startTime))
	if cancelled {
		return ctx.Err()
	}
	return nil
}

// ScrapeOne scrapes a single postcode on demand with explicit limits,
// ignoring the freshness window. Returns the number of properties saved.
func (s *Scraper) ScrapeOne(ctx context.Context, postcode string, pages, maxProperties int, details bool) int {
	override := s.config
	override.MaxPages = pages
	override.MaxProperties = maxProperties
	override.Details = details
	override.FreshnessDays = 0

	runner := &Scraper{db: s.db, config: override, rm: s.rm}
	return runner.scrapePostcode(ctx, postcode)
}

// scrapePostcode runs the pipeline for one postcode and persists the
// results. Returns the number of properties saved. Failures on a single
// property never abort the rest of the batch.
func (s *Scraper) scrapePostcode(ctx context.Context, postcode string) int {
	if s.config.FreshnessDays > 0 {
		window := time.Duration(s.config.FreshnessDays) * 24 * time.Hour
		fresh, count, err := s.db.IsPostcodeFresh(postcode, window)
		if err != nil {
			log.Printf("Freshness check failed for %s: %v", postcode, err)
		} else if fresh {
			log.Printf("Skipping %s (fresh, %d properties)", postcode, count)
			return 0
		}
	}

	if s.config.Details {
		return s.scrapeWithDetails(ctx, postcode)
	}
	return s.scrapeFromListing(ctx, postcode)
}

func (s *Scraper) scrapeFromListing(ctx context.Context, postcode string) int {
	props := s.rm.ScrapePostcode(ctx, postcode, s.config.MaxProperties, s.config.MaxPages)

	saved := 0
	for i := range props {
		if props[i].Address == "" {
			continue
		}
		if _, err := s.db.SaveListing(&props[i]); err != nil {
			log.Printf("Failed to save %s: %v", props[i].Address, err)
			continue
		}
		saved++
	}
	return saved
}

func (s *Scraper) scrapeWithDetails(ctx context.Context, postcode string) int {
	urls := s.rm.PostcodeURLs(ctx, postcode, s.config.MaxProperties, s.config.MaxPages)

	saved := 0
	for i, url := range urls {
		select {
		case <-ctx.Done():
			return saved
		default:
		}
		if i > 0 && s.config.Delay > 0 {
			time.Sleep(s.config.Delay)
		}

		prop := s.rm.ScrapeDetail(ctx, url, s.config.Floorplans)
		if prop == nil || prop.Address == "" {
			continue
		}
		if _, err := s.db.SaveListing(prop); err != nil {
			log.Printf("Failed to save %s: %v", prop.Address, err)
			continue
		}
		saved++
	}

	log.Printf("Scraped %d properties from %d detail pages for postcode %s", saved, len(urls), postcode)
	return saved
}
