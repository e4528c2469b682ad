package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"house-search/internal/config"
	"house-search/internal/db"
	"house-search/internal/parse"
)

func main() {
	// Sub-commands
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	os.Args = os.Args[1:] // Shift args for flag parsing

	switch cmd {
	case "normalize":
		normalizeSales()
	case "stats":
		printStats()
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: tools <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  normalize   Re-derive numeric price and ISO date columns from raw sale strings")
	fmt.Println("  stats       Print database counts")
}

func openDB() *db.DB {
	cfg := config.Load()
	dbPath := flag.String("db", cfg.DBPath, "Path to SQLite database")
	flag.Parse()

	if *dbPath == "" {
		cwd, _ := os.Getwd()
		*dbPath = filepath.Join(cwd, "data", "house-search.db")
	}

	database, err := db.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	return database
}

// normalizeSales rewrites every sale's derived columns from the raw
// strings. Useful after a parser fix: the originals are kept verbatim so
// this is always safe to re-run.
func normalizeSales() {
	database := openDB()
	defer database.Close()

	sales, err := database.ListSales()
	if err != nil {
		log.Fatalf("Failed to list sales: %v", err)
	}

	updated, unparsed := 0, 0
	for _, s := range sales {
		var priceNum, dateISO any
		if n, ok := parse.ParsePriceToInt(s.Price); ok {
			priceNum = n
		} else if s.Price != "" {
			unparsed++
		}
		if iso, ok := parse.ParseDateToISO(s.DateSold); ok {
			dateISO = iso
		}

		if err := database.UpdateSaleNormalized(s.ID, priceNum, dateISO); err != nil {
			log.Printf("Failed to update sale %d: %v", s.ID, err)
			continue
		}
		updated++
	}

	log.Printf("Normalized %d sales (%d prices unparseable)", updated, unparsed)
}

func printStats() {
	database := openDB()
	defer database.Close()

	props, err := database.GetPropertyCount()
	if err != nil {
		log.Fatalf("Failed to count properties: %v", err)
	}
	sales, err := database.ListSales()
	if err != nil {
		log.Fatalf("Failed to list sales: %v", err)
	}

	withISO, withPrice := 0, 0
	for _, s := range sales {
		if s.DateSoldISO.Valid {
			withISO++
		}
		if s.PriceNumeric.Valid {
			withPrice++
		}
	}

	fmt.Printf("Properties: %d\n", props)
	fmt.Printf("Sales:      %d (%d with ISO date, %d with numeric price)\n", len(sales), withISO, withPrice)
}
