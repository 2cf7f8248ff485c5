package indicators

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/hometools/internal/config"
	"github.com/MrSnakeDoc/hometools/internal/logger"
	"github.com/MrSnakeDoc/hometools/internal/usgs"
	"github.com/MrSnakeDoc/hometools/internal/utils"
)

const fetchTimeout = 15 * time.Second

// Fetcher pulls live readings from the public data sources. Base URLs are
// fields so tests can point them at local servers; the zero values are the
// real endpoints.
type Fetcher struct {
	cfg      *config.Score
	client   *http.Client
	logger   logger.Logger
	progress io.Writer
	usgs     *usgs.Client

	nwsBase     string
	airNowBase  string
	epaBases    []string
	droughtBase []string
	riseBase    string
	blsBase     string
	censusBase  string
	eiaBase     string
	fredBase    string
}

// NewFetcher builds a live fetcher. Progress lines go to w; pass
// io.Discard for quiet runs.
func NewFetcher(cfg *config.Score, log logger.Logger, w io.Writer) *Fetcher {
	return &Fetcher{
		cfg:      cfg,
		client:   &http.Client{Timeout: fetchTimeout},
		logger:   log,
		progress: w,
		usgs:     usgs.NewClient(log),

		nwsBase:    "https://api.weather.gov",
		airNowBase: "https://www.airnowapi.org",
		epaBases: []string{
			"https://data.epa.gov/efservice",
			"https://enviro.epa.gov/efservice",
		},
		droughtBase: []string{
			"https://usdmdataservices.unl.edu",
			"https://droughtmonitor.unl.edu",
		},
		riseBase:   "https://data.usbr.gov",
		blsBase:    "https://api.bls.gov",
		censusBase: "https://api.census.gov",
		eiaBase:    "https://api.eia.gov",
		fredBase:   "https://api.stlouisfed.org",
	}
}

func (f *Fetcher) ok(format string, args ...any) {
	fmt.Fprintf(f.progress, "  ✅ "+format+"\n", args...)
}

func (f *Fetcher) skip(source string, err error) {
	fmt.Fprintf(f.progress, "  ⚠️  %s unavailable: %v\n", source, err)
	f.logger.Warn("indicator source unavailable",
		logger.String("source", source),
		logger.Error(err))
}

// getJSON performs a GET and decodes the JSON body into out.
func (f *Fetcher) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "hometools-healthscore (github.com/MrSnakeDoc/hometools)")
	return f.doJSON(req, out)
}

func (f *Fetcher) doJSON(req *http.Request, out any) error {
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d from %s", resp.StatusCode, req.URL.Host)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", req.URL.Host, err)
	}
	return nil
}
