package indicators

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrSnakeDoc/hometools/internal/config"
	"github.com/MrSnakeDoc/hometools/internal/logger"
)

func testFetcher(cfg *config.Score) *Fetcher {
	if cfg == nil {
		cfg = &config.Score{
			AirNowKey: "test-key",
			EIAKey:    "DEMO_KEY",
			FredKey:   "fred-key",
			ZipCode:   "89052",
			Lat:       36.0611,
			Lon:       -115.1747,
		}
	}
	return NewFetcher(cfg, logger.Nop(), io.Discard)
}

func TestPctCapacity(t *testing.T) {
	tests := []struct {
		elevation float64
		want      float64
	}{
		{elevation: 895, want: 0},
		{elevation: 1229, want: 100},
		{elevation: 1062, want: 50},
		{elevation: 800, want: 0},
		{elevation: 1300, want: 100},
	}
	for _, tt := range tests {
		if got := pctCapacity(tt.elevation); got != tt.want {
			t.Errorf("pctCapacity(%v) = %v, want %v", tt.elevation, got, tt.want)
		}
	}
}

func TestFetchAirQualityPrefersPM25(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("zipCode") != "89052" {
			t.Errorf("zipCode = %q", r.URL.Query().Get("zipCode"))
		}
		_, _ = w.Write([]byte(`[
			{"AQI": 61, "ParameterName": "O3", "Category": {"Name": "Moderate"}},
			{"AQI": 42, "ParameterName": "PM2.5", "Category": {"Name": "Good"}}
		]`))
	}))
	defer server.Close()

	f := testFetcher(nil)
	f.airNowBase = server.URL

	air, err := f.fetchAirQuality(context.Background())
	if err != nil {
		t.Fatalf("fetchAirQuality() error: %v", err)
	}
	if air.AQI != 42 || air.Pollutant != "PM2.5" || air.Category != "Good" {
		t.Errorf("air = %+v", air)
	}
}

func TestFetchAirQualityNeedsKey(t *testing.T) {
	f := testFetcher(&config.Score{ZipCode: "89052"})
	if _, err := f.fetchAirQuality(context.Background()); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestFetchWeatherFollowsForecastURL(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/points/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"properties": {"forecast": "` + server.URL + `/gridpoints/VEF/forecast"}}`))
	})
	mux.HandleFunc("/gridpoints/VEF/forecast", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"properties": {"periods": [
			{"temperature": 104, "shortForecast": "Sunny"},
			{"temperature": 85, "shortForecast": "Clear"}
		]}}`))
	})

	f := testFetcher(nil)
	f.nwsBase = server.URL

	weather, err := f.fetchWeather(context.Background())
	if err != nil {
		t.Fatalf("fetchWeather() error: %v", err)
	}
	if weather.TempF != 104 || weather.Forecast != "Sunny" {
		t.Errorf("weather = %+v", weather)
	}
}

func TestFetchUVFallsBackToMirror(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer dead.Close()

	alive := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"UV_INDEX": "7"}]`))
	}))
	defer alive.Close()

	f := testFetcher(nil)
	f.epaBases = []string{dead.URL, alive.URL}

	uv, err := f.fetchUV(context.Background())
	if err != nil {
		t.Fatalf("fetchUV() error: %v", err)
	}
	if uv.Index != 7 {
		t.Errorf("Index = %v, want 7", uv.Index)
	}
}

func TestFetchWaterFallsBackToUSGS(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer dead.Close()

	usgsServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"value": {"timeSeries": [{"values": [{"value": [
			{"value": "1067.50", "dateTime": "2026-06-03T00:00:00.000"}
		]}]}]}}`))
	}))
	defer usgsServer.Close()

	f := testFetcher(nil)
	f.riseBase = dead.URL
	f.usgs.BaseURL = usgsServer.URL

	water, err := f.fetchWater(context.Background())
	if err != nil {
		t.Fatalf("fetchWater() error: %v", err)
	}
	if water.ElevationFt != 1067.5 {
		t.Errorf("ElevationFt = %v, want 1067.5", water.ElevationFt)
	}
}

func TestFetchDroughtPicksWorstCategory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("aoi") != "32003" {
			t.Errorf("aoi = %q", r.URL.Query().Get("aoi"))
		}
		_, _ = w.Write([]byte(`[
			{"D0": 100, "D1": 80, "D2": 20.5, "D3": 0, "D4": 0}
		]`))
	}))
	defer server.Close()

	f := testFetcher(nil)
	f.droughtBase = []string{server.URL}

	drought, err := f.fetchDrought(context.Background())
	if err != nil {
		t.Fatalf("fetchDrought() error: %v", err)
	}
	if drought.Category != "D2" || drought.PctArea != 20.5 {
		t.Errorf("drought = %+v, want D2 at 20.5%%", drought)
	}
}

func TestFetchAlertsFiltersCounty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"features": [
			{"properties": {"areaDesc": "Clark; Nye", "event": "Excessive Heat Warning", "headline": "Heat warning until Friday"}},
			{"properties": {"areaDesc": "Washoe", "event": "Wind Advisory", "headline": "Windy up north"}}
		]}`))
	}))
	defer server.Close()

	f := testFetcher(nil)
	f.nwsBase = server.URL

	alerts, err := f.fetchAlerts(context.Background())
	if err != nil {
		t.Fatalf("fetchAlerts() error: %v", err)
	}
	if alerts.Count != 1 {
		t.Fatalf("Count = %d, want 1", alerts.Count)
	}
	if alerts.Headlines[0] != "Heat warning until Friday" {
		t.Errorf("headline = %q", alerts.Headlines[0])
	}
}

func TestFetchBLSComputesYearOverYearGrowth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"status": "REQUEST_SUCCEEDED",
			"Results": {"series": [
				{"seriesID": "LAUCN320030000000003", "data": [
					{"year": "2026", "period": "M06", "value": "5.6"}
				]},
				{"seriesID": "SMU32298200000000001", "data": [
					{"year": "2026", "period": "M06", "value": "1120.0"},
					{"year": "2026", "period": "M05", "value": "1118.0"},
					{"year": "2025", "period": "M06", "value": "1095.5"}
				]},
				{"seriesID": "SMU32298207000000001", "data": [
					{"year": "2026", "period": "M06", "value": "291.3"}
				]},
				{"seriesID": "CUURS400SA0", "data": [
					{"year": "2026", "period": "M06", "value": "322.5"}
				]}
			]}
		}`))
	}))
	defer server.Close()

	f := testFetcher(nil)
	f.blsBase = server.URL

	econ := &Economy{}
	if err := f.fetchBLS(context.Background(), econ); err != nil {
		t.Fatalf("fetchBLS() error: %v", err)
	}
	if econ.UnemploymentRate == nil || *econ.UnemploymentRate != 5.6 {
		t.Errorf("UnemploymentRate = %v", econ.UnemploymentRate)
	}
	if econ.JobGrowth == nil || *econ.JobGrowth != 24.5 {
		t.Errorf("JobGrowth = %v, want 24.5", econ.JobGrowth)
	}
	if econ.HospitalityJobs == nil || *econ.HospitalityJobs != 291.3 {
		t.Errorf("HospitalityJobs = %v", econ.HospitalityJobs)
	}
	if econ.CPI == nil || *econ.CPI != 322.5 {
		t.Errorf("CPI = %v", econ.CPI)
	}
}

func TestFetchCensus(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/data/2022/acs/acs5", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[["B01003_001E","state","county"],["2265461","32","003"]]`))
	})
	mux.HandleFunc("/data/2023/acs/acs1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[["B25077_001E","B25064_001E","state","county"],["425000","1550","32","003"]]`))
	})

	f := testFetcher(nil)
	f.censusBase = server.URL

	econ := &Economy{}
	if err := f.fetchCensus(context.Background(), econ); err != nil {
		t.Fatalf("fetchCensus() error: %v", err)
	}
	if econ.Population == nil || *econ.Population != 2265461 {
		t.Errorf("Population = %v", econ.Population)
	}
	if econ.HomeValue == nil || *econ.HomeValue != 425000 {
		t.Errorf("HomeValue = %v", econ.HomeValue)
	}
	if econ.MedianRent == nil || *econ.MedianRent != 1550 {
		t.Errorf("MedianRent = %v", econ.MedianRent)
	}
}

func TestFetchGasPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response": {"data": [{"value": "3.89"}]}}`))
	}))
	defer server.Close()

	f := testFetcher(nil)
	f.eiaBase = server.URL

	price, err := f.fetchGasPrice(context.Background())
	if err != nil {
		t.Fatalf("fetchGasPrice() error: %v", err)
	}
	if *price != 3.89 {
		t.Errorf("price = %v, want 3.89", *price)
	}
}

func TestFetchMortgageRate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"observations": [{"value": "6.85"}]}`))
	}))
	defer server.Close()

	f := testFetcher(nil)
	f.fredBase = server.URL

	rate, err := f.fetchMortgageRate(context.Background())
	if err != nil {
		t.Fatalf("fetchMortgageRate() error: %v", err)
	}
	if *rate != 6.85 {
		t.Errorf("rate = %v, want 6.85", *rate)
	}
}

func TestFetchEnvironmentToleratesFailures(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer dead.Close()

	f := testFetcher(nil)
	f.nwsBase = dead.URL
	f.airNowBase = dead.URL
	f.epaBases = []string{dead.URL}
	f.droughtBase = []string{dead.URL}
	f.riseBase = dead.URL
	f.usgs.BaseURL = dead.URL

	env := f.FetchEnvironment(context.Background())
	if env == nil {
		t.Fatal("FetchEnvironment() = nil")
	}
	if env.Air != nil || env.Weather != nil || env.Water != nil || env.UV != nil || env.Drought != nil || env.Alerts != nil {
		t.Errorf("expected all-nil environment, got %+v", env)
	}
}
