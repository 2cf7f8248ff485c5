package indicators

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// FetchEnvironment gathers every environmental reading. Failed sources are
// reported and left nil.
func (f *Fetcher) FetchEnvironment(ctx context.Context) *Environment {
	env := &Environment{}

	if air, err := f.fetchAirQuality(ctx); err != nil {
		f.skip("Air quality", err)
	} else {
		env.Air = air
		f.ok("Air quality: AQI %.0f (%s)", air.AQI, air.Category)
	}

	if weather, err := f.fetchWeather(ctx); err != nil {
		f.skip("Weather", err)
	} else {
		env.Weather = weather
		f.ok("Weather: %.0f°F, %s", weather.TempF, weather.Forecast)
	}

	if water, err := f.fetchWater(ctx); err != nil {
		f.skip("Water supply", err)
	} else {
		env.Water = water
		f.ok("Lake Mead: %.1fft (%.1f%% of operating range)", water.ElevationFt, water.PctCapacity)
	}

	if uv, err := f.fetchUV(ctx); err != nil {
		f.skip("UV index", err)
	} else {
		env.UV = uv
		f.ok("UV index: %.1f", uv.Index)
	}

	if drought, err := f.fetchDrought(ctx); err != nil {
		f.skip("Drought status", err)
	} else {
		env.Drought = drought
		f.ok("Drought: %s covering %.1f%% of the county", drought.Category, drought.PctArea)
	}

	if alerts, err := f.fetchAlerts(ctx); err != nil {
		f.skip("Weather alerts", err)
	} else {
		env.Alerts = alerts
		f.ok("Active alerts: %d", alerts.Count)
	}

	return env
}

// fetchAirQuality reads the current AQI from AirNow, preferring the PM2.5
// observation when several pollutants are reported.
func (f *Fetcher) fetchAirQuality(ctx context.Context) (*AirQuality, error) {
	if f.cfg.AirNowKey == "" {
		return nil, fmt.Errorf("AIRNOW_API_KEY is not set")
	}

	endpoint := fmt.Sprintf(
		"%s/aq/observation/zipCode/current/?format=application/json&zipCode=%s&API_KEY=%s",
		f.airNowBase, url.QueryEscape(f.cfg.ZipCode), url.QueryEscape(f.cfg.AirNowKey))

	var observations []struct {
		AQI       float64 `json:"AQI"`
		Parameter string  `json:"ParameterName"`
		Category  struct {
			Name string `json:"Name"`
		} `json:"Category"`
	}
	if err := f.getJSON(ctx, endpoint, &observations); err != nil {
		return nil, err
	}
	if len(observations) == 0 {
		return nil, fmt.Errorf("no observations for ZIP %s", f.cfg.ZipCode)
	}

	chosen := observations[0]
	for _, obs := range observations {
		if strings.EqualFold(obs.Parameter, "PM2.5") {
			chosen = obs
			break
		}
	}
	return &AirQuality{
		AQI:       chosen.AQI,
		Category:  chosen.Category.Name,
		Pollutant: chosen.Parameter,
	}, nil
}

// fetchWeather resolves the NWS forecast for the configured point: the
// points endpoint yields the office's forecast URL, whose first period is
// the current outlook.
func (f *Fetcher) fetchWeather(ctx context.Context) (*Weather, error) {
	pointURL := fmt.Sprintf("%s/points/%.4f,%.4f", f.nwsBase, f.cfg.Lat, f.cfg.Lon)

	var point struct {
		Properties struct {
			Forecast string `json:"forecast"`
		} `json:"properties"`
	}
	if err := f.getJSON(ctx, pointURL, &point); err != nil {
		return nil, err
	}
	if point.Properties.Forecast == "" {
		return nil, fmt.Errorf("no forecast URL for point %.4f,%.4f", f.cfg.Lat, f.cfg.Lon)
	}

	var forecast struct {
		Properties struct {
			Periods []struct {
				Temperature   float64 `json:"temperature"`
				ShortForecast string  `json:"shortForecast"`
			} `json:"periods"`
		} `json:"properties"`
	}
	if err := f.getJSON(ctx, point.Properties.Forecast, &forecast); err != nil {
		return nil, err
	}
	if len(forecast.Properties.Periods) == 0 {
		return nil, fmt.Errorf("forecast has no periods")
	}

	period := forecast.Properties.Periods[0]
	return &Weather{TempF: period.Temperature, Forecast: period.ShortForecast}, nil
}

// fetchWater reads the latest Lake Mead elevation, trying Reclamation's
// RISE API first and falling back to USGS daily values.
func (f *Fetcher) fetchWater(ctx context.Context) (*Water, error) {
	water, riseErr := f.fetchWaterRISE(ctx)
	if riseErr == nil {
		return water, nil
	}

	readings, err := f.usgs.FetchDailyValues(ctx, 14)
	if err != nil {
		return nil, fmt.Errorf("RISE: %v; USGS: %w", riseErr, err)
	}
	latest := readings[len(readings)-1]
	return &Water{ElevationFt: latest.ElevationFt, PctCapacity: latest.PctCapacity()}, nil
}

func (f *Fetcher) fetchWaterRISE(ctx context.Context) (*Water, error) {
	now := time.Now().UTC()
	endpoint := fmt.Sprintf(
		"%s/rise/api/result?itemId=6123&after=%s&before=%s&order=ASC",
		f.riseBase,
		now.AddDate(0, 0, -14).Format("2006-01-02"),
		now.Format("2006-01-02"))

	var resp struct {
		Data []struct {
			Attributes struct {
				Result float64 `json:"result"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := f.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no elevation results in the last two weeks")
	}

	elevation := resp.Data[len(resp.Data)-1].Attributes.Result
	return &Water{ElevationFt: elevation, PctCapacity: pctCapacity(elevation)}, nil
}

// fetchUV asks EPA Envirofacts for today's UV index, trying each mirror.
func (f *Fetcher) fetchUV(ctx context.Context) (*UV, error) {
	var lastErr error
	for _, base := range f.epaBases {
		endpoint := fmt.Sprintf("%s/getEnvirofactsUVDAILY/ZIP/%s/json", base, url.PathEscape(f.cfg.ZipCode))

		var rows []struct {
			UVIndex any `json:"UV_INDEX"`
		}
		if err := f.getJSON(ctx, endpoint, &rows); err != nil {
			lastErr = err
			continue
		}
		if len(rows) == 0 {
			lastErr = fmt.Errorf("no UV rows for ZIP %s", f.cfg.ZipCode)
			continue
		}

		// The service returns the index as a string or a number depending
		// on the mirror.
		idx, err := anyToFloat(rows[0].UVIndex)
		if err != nil {
			lastErr = err
			continue
		}
		return &UV{Index: idx}, nil
	}
	return nil, lastErr
}

// droughtCategories from worst to mildest.
var droughtCategories = []string{"D4", "D3", "D2", "D1", "D0"}

// fetchDrought reads the Drought Monitor county statistics and reports the
// worst category with nonzero area coverage.
func (f *Fetcher) fetchDrought(ctx context.Context) (*Drought, error) {
	now := time.Now().UTC()
	query := url.Values{
		"aoi":            {"32003"}, // Clark County, NV FIPS
		"startdate":      {now.AddDate(0, 0, -30).Format("1/2/2006")},
		"enddate":        {now.Format("1/2/2006")},
		"statisticsType": {"1"},
	}

	var lastErr error
	for _, base := range f.droughtBase {
		endpoint := fmt.Sprintf(
			"%s/api/CountyStatistics/GetDroughtSeverityStatisticsByAreaPercent?%s",
			base, query.Encode())

		var rows []map[string]any
		if err := f.getJSON(ctx, endpoint, &rows); err != nil {
			lastErr = err
			continue
		}
		if len(rows) == 0 {
			lastErr = fmt.Errorf("no drought statistics returned")
			continue
		}

		latest := rows[len(rows)-1]
		for _, category := range droughtCategories {
			raw, ok := latest[category]
			if !ok {
				continue
			}
			pct, err := anyToFloat(raw)
			if err != nil || pct <= 0 {
				continue
			}
			return &Drought{Category: category, PctArea: pct}, nil
		}
		return &Drought{Category: "none", PctArea: 0}, nil
	}
	return nil, lastErr
}

// fetchAlerts lists active NWS alerts for Nevada and keeps the ones that
// mention Clark County.
func (f *Fetcher) fetchAlerts(ctx context.Context) (*Alerts, error) {
	endpoint := f.nwsBase + "/alerts/active?area=NV"

	var resp struct {
		Features []struct {
			Properties struct {
				AreaDesc string `json:"areaDesc"`
				Event    string `json:"event"`
				Headline string `json:"headline"`
			} `json:"properties"`
		} `json:"features"`
	}
	if err := f.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}

	alerts := &Alerts{}
	for _, feature := range resp.Features {
		if !strings.Contains(feature.Properties.AreaDesc, "Clark") {
			continue
		}
		alerts.Count++
		headline := feature.Properties.Headline
		if headline == "" {
			headline = feature.Properties.Event
		}
		alerts.Headlines = append(alerts.Headlines, headline)
	}
	return alerts, nil
}

func anyToFloat(v any) (float64, error) {
	switch value := v.(type) {
	case float64:
		return value, nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(value), 64)
	default:
		return 0, fmt.Errorf("unexpected numeric type %T", v)
	}
}
