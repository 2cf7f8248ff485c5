package usgs

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/MrSnakeDoc/hometools/internal/utils"
)

// SaveCache writes readings as a two-column CSV (date, elevation_ft) so
// later runs can work offline.
func SaveCache(path string, readings []Reading) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating cache file: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"date", "elevation_ft"}); err != nil {
		_ = f.Close()
		return err
	}
	for _, reading := range readings {
		if err := w.Write([]string{
			reading.Date.Format("2006-01-02"),
			strconv.FormatFloat(reading.ElevationFt, 'f', 2, 64),
		}); err != nil {
			_ = f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// LoadCache reads a CSV written by SaveCache.
func LoadCache(path string) ([]Reading, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer utils.Close(f)

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading cache %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("cache %s is empty", path)
	}

	readings := make([]Reading, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) < 2 {
			return nil, fmt.Errorf("cache %s row %d is malformed", path, i+2)
		}
		date, err := time.Parse("2006-01-02", row[0])
		if err != nil {
			return nil, fmt.Errorf("cache %s row %d: bad date %q", path, i+2, row[0])
		}
		elevation, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("cache %s row %d: bad elevation %q", path, i+2, row[1])
		}
		readings = append(readings, Reading{Date: date, ElevationFt: elevation})
	}
	return readings, nil
}
