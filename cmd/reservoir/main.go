// reservoir reports Lake Mead's level and recent trend from USGS daily
// values, caching readings locally for offline runs.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/MrSnakeDoc/hometools/internal/logger"
	"github.com/MrSnakeDoc/hometools/internal/usgs"
	"github.com/MrSnakeDoc/hometools/internal/version"
)

func main() {
	var (
		refresh     bool
		cachePath   string
		days        int
		jsonOut     bool
		verbose     bool
		showVersion bool
	)

	pflag.BoolVar(&refresh, "refresh", false, "fetch fresh data even when a cache exists")
	pflag.StringVar(&cachePath, "cache", defaultCachePath(), "cache file location")
	pflag.IntVar(&days, "days", 90, "days of history to fetch")
	pflag.BoolVar(&jsonOut, "json", false, "emit JSON instead of text")
	pflag.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	pflag.BoolVar(&showVersion, "version", false, "print version and exit")
	pflag.Parse()

	if showVersion {
		fmt.Println(version.String("reservoir"))
		return
	}

	_ = godotenv.Load()

	level := "warn"
	if verbose {
		level = "debug"
	}
	log := logger.New(level, true)

	readings, fromCache, err := loadReadings(refresh, cachePath, days, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reservoir: %v\n", err)
		os.Exit(1)
	}

	trend, err := usgs.Summarize(readings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reservoir: %v\n", err)
		os.Exit(1)
	}

	if jsonOut {
		printJSON(trend, fromCache)
		return
	}

	source := "USGS"
	if fromCache {
		source = "cache: " + cachePath
	}
	fmt.Printf("Lake Mead at Hoover Dam (%s)\n\n", source)
	fmt.Printf("  Latest:   %.2f ft on %s (%.1f%% of operating range)\n",
		trend.Latest.ElevationFt, trend.Latest.Date.Format("2006-01-02"), trend.Latest.PctCapacity())
	fmt.Printf("  Range:    %.2f to %.2f ft over %d days\n", trend.MinFt, trend.MaxFt, trend.Days)
	fmt.Printf("  Average:  %.2f ft\n", trend.AvgFt)
	fmt.Printf("  Change:   %+.2f ft (%+.2f ft/yr trend)\n", trend.ChangeFt, trend.SlopeFtPerYr)
	if trend.OneYearDelta != nil {
		fmt.Printf("  1 year:   %+.2f ft\n", *trend.OneYearDelta)
	}
	if trend.TenYearDelta != nil {
		fmt.Printf("  10 years: %+.2f ft\n", *trend.TenYearDelta)
	}
}

// loadReadings prefers the network, falls back to cache, and refreshes the
// cache after every successful fetch.
func loadReadings(refresh bool, cachePath string, days int, log logger.Logger) ([]usgs.Reading, bool, error) {
	if !refresh {
		if readings, err := usgs.LoadCache(cachePath); err == nil {
			return readings, true, nil
		}
	}

	client := usgs.NewClient(log)
	readings, err := client.FetchDailyValues(context.Background(), days)
	if err != nil {
		// Offline: any cache beats nothing.
		if cached, cacheErr := usgs.LoadCache(cachePath); cacheErr == nil {
			log.Warn("using stale cache, fetch failed", logger.Error(err))
			return cached, true, nil
		}
		return nil, false, err
	}

	if err := usgs.SaveCache(cachePath, readings); err != nil {
		log.Warn("failed to update cache", logger.Error(err))
	}
	return readings, false, nil
}

func defaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "lakemead_cache.csv"
	}
	return filepath.Join(home, ".cache", "hometools", "lakemead.csv")
}

func printJSON(trend usgs.Trend, fromCache bool) {
	out := struct {
		Date        string   `json:"date"`
		ElevationFt float64  `json:"elevation_ft"`
		PctCapacity float64  `json:"pct_capacity"`
		MinFt       float64  `json:"min_ft"`
		MaxFt       float64  `json:"max_ft"`
		AvgFt       float64  `json:"avg_ft"`
		ChangeFt    float64  `json:"change_ft"`
		SlopeFtYr   float64  `json:"slope_ft_per_year"`
		OneYear     *float64 `json:"one_year_delta_ft"`
		TenYear     *float64 `json:"ten_year_delta_ft"`
		Days        int      `json:"days"`
		FromCache   bool     `json:"from_cache"`
	}{
		Date:        trend.Latest.Date.Format("2006-01-02"),
		ElevationFt: trend.Latest.ElevationFt,
		PctCapacity: trend.Latest.PctCapacity(),
		MinFt:       trend.MinFt,
		MaxFt:       trend.MaxFt,
		AvgFt:       trend.AvgFt,
		ChangeFt:    trend.ChangeFt,
		SlopeFtYr:   trend.SlopeFtPerYr,
		OneYear:     trend.OneYearDelta,
		TenYear:     trend.TenYearDelta,
		Days:        trend.Days,
		FromCache:   fromCache,
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(out)
}
