package scraper

import (
	"context"
	"log"
	"time"

	"github.com/go-resty/resty/v2"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// Fetcher performs HTTP GETs with exponential backoff. Failures never
// surface as errors: after the configured attempts are exhausted the
// caller gets ok=false and is expected to treat the page as "no data"
// rather than abort its batch.
type Fetcher struct {
	client   *resty.Client
	attempts int
	backoff  time.Duration

	// replaced in tests to count backoff sleeps
	sleep func(time.Duration)
}

// NewFetcher creates a Fetcher with the given per-request timeout,
// attempt count and base backoff.
func NewFetcher(timeout time.Duration, attempts int, backoff time.Duration) *Fetcher {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", userAgent)
	client.SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	client.SetHeader("Accept-Language", "en-GB,en;q=0.9")

	return &Fetcher{
		client:   client,
		attempts: attempts,
		backoff:  backoff,
		sleep:    time.Sleep,
	}
}

// Get fetches a URL, retrying rate limits and transport errors with
// backoff backoff*2^(attempt-1). Returns the body and ok=true on success.
func (f *Fetcher) Get(ctx context.Context, url string) (string, bool) {
	for attempt := 1; attempt <= f.attempts; attempt++ {
		resp, err := f.client.R().SetContext(ctx).Get(url)

		switch {
		case err != nil:
			if attempt < f.attempts {
				wait := f.backoff * (1 << (attempt - 1))
				log.Printf("Request failed for %s: %v. Retrying in %s (attempt %d/%d)",
					url, err, wait, attempt, f.attempts)
				f.sleep(wait)
			} else {
				log.Printf("Request failed for %s after %d attempts: %v", url, f.attempts, err)
			}

		case resp.StatusCode() == 429:
			wait := f.backoff * (1 << (attempt - 1))
			log.Printf("Rate limited (429) on %s, waiting %s (attempt %d/%d)",
				url, wait, attempt, f.attempts)
			if attempt < f.attempts {
				f.sleep(wait)
			}

		case resp.StatusCode() >= 400:
			if attempt < f.attempts {
				wait := f.backoff * (1 << (attempt - 1))
				log.Printf("HTTP %d on %s. Retrying in %s (attempt %d/%d)",
					resp.StatusCode(), url, wait, attempt, f.attempts)
				f.sleep(wait)
			} else {
				log.Printf("HTTP %d on %s after %d attempts", resp.StatusCode(), url, f.attempts)
			}

		default:
			return string(resp.Body()), true
		}
	}
	return "", false
}
