// Package usgs reads Lake Mead daily levels from the USGS water services
// API, caches them locally, and summarizes the recent trend.
package usgs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/MrSnakeDoc/hometools/internal/logger"
	"github.com/MrSnakeDoc/hometools/internal/utils"
)

const (
	// Lake Mead at Hoover Dam.
	siteID      = "09421000"
	parameterCd = "00054"

	deadPoolFt = 895.0
	fullPoolFt = 1229.0
)

// Reading is one daily level observation.
type Reading struct {
	Date        time.Time
	ElevationFt float64
}

// PctCapacity maps the reading onto percent of the operating range.
func (r Reading) PctCapacity() float64 {
	pct := (r.ElevationFt - deadPoolFt) / (fullPoolFt - deadPoolFt) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// Client fetches daily values from the USGS NWIS service.
type Client struct {
	BaseURL string // test override; empty means the public service
	client  *http.Client
	logger  logger.Logger
}

func NewClient(log logger.Logger) *Client {
	return &Client{
		client: &http.Client{Timeout: 30 * time.Second},
		logger: log,
	}
}

// FetchDailyValues returns readings for the last `days` days, oldest first.
func (c *Client) FetchDailyValues(ctx context.Context, days int) ([]Reading, error) {
	base := c.BaseURL
	if base == "" {
		base = "https://waterservices.usgs.gov"
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)
	endpoint := fmt.Sprintf(
		"%s/nwis/dv/?format=json&sites=%s&parameterCd=%s&startDT=%s&endDT=%s",
		base, siteID, parameterCd,
		start.Format("2006-01-02"), end.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("USGS request failed: %w", err)
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("USGS returned status %d", resp.StatusCode)
	}

	var body struct {
		Value struct {
			TimeSeries []struct {
				Values []struct {
					Value []struct {
						Value    string `json:"value"`
						DateTime string `json:"dateTime"`
					} `json:"value"`
				} `json:"values"`
			} `json:"timeSeries"`
		} `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding USGS response: %w", err)
	}
	if len(body.Value.TimeSeries) == 0 || len(body.Value.TimeSeries[0].Values) == 0 {
		return nil, fmt.Errorf("USGS returned no time series for site %s", siteID)
	}

	var readings []Reading
	for _, point := range body.Value.TimeSeries[0].Values[0].Value {
		elevation, err := strconv.ParseFloat(point.Value, 64)
		if err != nil {
			c.logger.Warn("skipping non-numeric USGS value", logger.String("value", point.Value))
			continue
		}
		date, err := time.Parse("2006-01-02T15:04:05.000", point.DateTime)
		if err != nil {
			// Some responses carry date-only stamps.
			date, err = time.Parse("2006-01-02", point.DateTime)
			if err != nil {
				c.logger.Warn("skipping undated USGS value", logger.String("dateTime", point.DateTime))
				continue
			}
		}
		readings = append(readings, Reading{Date: date, ElevationFt: elevation})
	}
	if len(readings) == 0 {
		return nil, fmt.Errorf("USGS returned no usable readings")
	}

	sort.Slice(readings, func(i, j int) bool { return readings[i].Date.Before(readings[j].Date) })
	return readings, nil
}

// Trend summarizes a run of readings. Delta pointers are nil when the data
// does not reach back far enough.
type Trend struct {
	Latest        Reading
	MinFt         float64
	MaxFt         float64
	AvgFt         float64
	ChangeFt      float64 // latest minus oldest
	Days          int
	SlopeFtPerYr  float64  // least-squares slope over the window
	OneYearDelta  *float64 // latest minus the reading closest to a year ago
	TenYearDelta  *float64
}

// Summarize computes trend statistics over readings sorted oldest first.
func Summarize(readings []Reading) (Trend, error) {
	if len(readings) == 0 {
		return Trend{}, fmt.Errorf("no readings to summarize")
	}

	trend := Trend{
		Latest: readings[len(readings)-1],
		MinFt:  readings[0].ElevationFt,
		MaxFt:  readings[0].ElevationFt,
		Days:   len(readings),
	}

	var sum float64
	for _, reading := range readings {
		sum += reading.ElevationFt
		if reading.ElevationFt < trend.MinFt {
			trend.MinFt = reading.ElevationFt
		}
		if reading.ElevationFt > trend.MaxFt {
			trend.MaxFt = reading.ElevationFt
		}
	}
	trend.AvgFt = sum / float64(len(readings))
	trend.ChangeFt = trend.Latest.ElevationFt - readings[0].ElevationFt
	trend.SlopeFtPerYr = slopeFtPerYear(readings)
	trend.OneYearDelta = deltaOverYears(readings, 1)
	trend.TenYearDelta = deltaOverYears(readings, 10)
	return trend, nil
}

// slopeFtPerYear fits elevation against days-since-first by least squares
// and scales the slope to feet per year.
func slopeFtPerYear(readings []Reading) float64 {
	if len(readings) < 2 {
		return 0
	}

	origin := readings[0].Date
	var sumX, sumY, sumXY, sumXX float64
	for _, reading := range readings {
		x := reading.Date.Sub(origin).Hours() / 24
		y := reading.ElevationFt
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	n := float64(len(readings))
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	slopePerDay := (n*sumXY - sumX*sumY) / denom
	return slopePerDay * 365.25
}

// deltaOverYears compares the latest reading against the one closest to
// `years` ago, requiring the data to reach at least 90% of the way back.
func deltaOverYears(readings []Reading, years int) *float64 {
	latest := readings[len(readings)-1]
	target := latest.Date.AddDate(-years, 0, 0)

	span := latest.Date.Sub(readings[0].Date)
	want := latest.Date.Sub(target)
	if span < want*9/10 {
		return nil
	}

	closest := readings[0]
	best := absDuration(closest.Date.Sub(target))
	for _, reading := range readings[1:] {
		if d := absDuration(reading.Date.Sub(target)); d < best {
			best = d
			closest = reading
		}
	}

	delta := latest.ElevationFt - closest.ElevationFt
	return &delta
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
