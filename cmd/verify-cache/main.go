package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"market-reconcile/internal/config"
	"market-reconcile/internal/data"
)

func main() {
	var (
		cfgPath   = flag.String("config", "", "Path to YAML config (optional)")
		cacheRoot = flag.String("cache-root", "", "Override cache_root")
		year      = flag.Int("year", 0, "Year whose manifest is verified (default: config year)")
	)
	flag.Parse()

	cfg, err := config.LoadWith(*cfgPath, config.Overrides{Year: *year, CacheRoot: *cacheRoot}, os.Getenv)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Year == 0 {
		log.Fatal("--year is required when the config sets none")
	}

	path := data.ManifestPath(cfg.CacheRoot, cfg.Year)
	m, err := data.LoadManifest(path)
	if err != nil {
		log.Fatalf("Failed to load manifest %s: %v", path, err)
	}

	fmt.Printf("Verifying %d day files of %d (build %s, updated %s)\n", len(m.Days), m.Year, m.BuildID, m.UpdatedAt)
	problems := data.VerifyManifest(m)
	for _, p := range problems {
		fmt.Printf("  %s  %-18s %s\n", p.Date, p.Reason, p.File)
	}
	if len(problems) > 0 {
		fmt.Printf("%d problems found; rebuild the year to refresh the cache\n", len(problems))
		os.Exit(1)
	}
	fmt.Println("Cache matches manifest")
}
