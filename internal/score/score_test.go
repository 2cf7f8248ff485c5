package score

import (
	"encoding/json"
	"testing"

	"github.com/MrSnakeDoc/hometools/internal/indicators"
)

func f(v float64) *float64 { return &v }

func assertScore(t *testing.T, name string, got *float64, want float64) {
	t.Helper()
	if got == nil {
		t.Fatalf("%s = nil, want %v", name, want)
	}
	if *got != want {
		t.Errorf("%s = %v, want %v", name, *got, want)
	}
}

func TestAirQualityScore(t *testing.T) {
	tests := []struct {
		aqi  float64
		want float64
	}{
		{aqi: 0, want: 100},
		{aqi: 42, want: 74.8},
		{aqi: 100, want: 40},
		{aqi: 200, want: 0}, // clamped
	}
	for _, tt := range tests {
		assertScore(t, "AirQualityScore", AirQualityScore(tt.aqi), tt.want)
	}
}

func TestHeatComfortScore(t *testing.T) {
	tests := []struct {
		temp float64
		want float64
	}{
		{temp: 65, want: 100},
		{temp: 80, want: 100},
		{temp: 72, want: 100},
		{temp: 55, want: 80},   // 100 - 10*2
		{temp: 100, want: 70},  // 100 - 20*1.5
		{temp: 10, want: 0},    // clamped
		{temp: 115, want: 47.5},
	}
	for _, tt := range tests {
		assertScore(t, "HeatComfortScore", HeatComfortScore(tt.temp), tt.want)
	}
}

func TestUVScore(t *testing.T) {
	tests := []struct {
		uv   float64
		want float64
	}{
		{uv: 1, want: 100},
		{uv: 2, want: 100},
		{uv: 3, want: 80},
		{uv: 5, want: 60},
		{uv: 6, want: 50},
		{uv: 7, want: 40},
		{uv: 9, want: 20},
		{uv: 10, want: 10},
		{uv: 11, want: 5},
		{uv: 15, want: 5}, // floor
	}
	for _, tt := range tests {
		assertScore(t, "UVScore", UVScore(tt.uv), tt.want)
	}
}

func TestEconomicScores(t *testing.T) {
	assertScore(t, "UnemploymentScore(3)", UnemploymentScore(3), 100)
	assertScore(t, "UnemploymentScore(10)", UnemploymentScore(10), 0)
	assertScore(t, "UnemploymentScore(5.6)", UnemploymentScore(5.6), 62.9)

	assertScore(t, "JobGrowthScore(0)", JobGrowthScore(0), 50)
	assertScore(t, "JobGrowthScore(30)", JobGrowthScore(30), 100)
	assertScore(t, "JobGrowthScore(-30)", JobGrowthScore(-30), 0)

	assertScore(t, "HospitalityScore(290)", HospitalityScore(290), 100)
	assertScore(t, "HospitalityScore(145)", HospitalityScore(145), 50)

	assertScore(t, "CostOfLivingScore(300)", CostOfLivingScore(300), 100)
	assertScore(t, "CostOfLivingScore(340)", CostOfLivingScore(340), 0)

	assertScore(t, "HousingScore(250000)", HousingScore(250000), 100)
	assertScore(t, "HousingScore(600000)", HousingScore(600000), 20)

	assertScore(t, "GasPriceScore(3)", GasPriceScore(3), 100)
	assertScore(t, "GasPriceScore(5)", GasPriceScore(5), 0)

	assertScore(t, "MortgageScore(5)", MortgageScore(5), 100)
	assertScore(t, "MortgageScore(8)", MortgageScore(8), 10)
}

func TestDroughtAndAlerts(t *testing.T) {
	assertScore(t, "DroughtScore(35)", DroughtScore(35), 65)
	assertScore(t, "AlertsScore(0)", AlertsScore(0), 100)
	assertScore(t, "AlertsScore(2)", AlertsScore(2), 70)
	assertScore(t, "AlertsScore(10)", AlertsScore(10), 0)
}

func TestEnvironmentSkipsMissingIndicators(t *testing.T) {
	env := &indicators.Environment{
		Air:     &indicators.AirQuality{AQI: 42, Category: "Good"},
		Weather: &indicators.Weather{TempF: 72, Forecast: "Sunny"},
		// Water, UV, Drought, Alerts missing.
	}

	report := Environment(env)
	if len(report.Indicators) != 6 {
		t.Fatalf("got %d indicators, want 6", len(report.Indicators))
	}

	// 74.8*0.25 + 100*0.20 over weight 0.45 => 86 after rounding.
	assertScore(t, "Overall", report.Overall, 86)

	for _, ind := range report.Indicators {
		switch ind.Key {
		case "air_quality":
			assertScore(t, "air_quality", ind.Score, 74.8)
		case "heat_comfort":
			assertScore(t, "heat_comfort", ind.Score, 100)
		default:
			if ind.Score != nil {
				t.Errorf("%s score = %v, want nil", ind.Key, *ind.Score)
			}
		}
	}
}

func TestEnvironmentAllMissing(t *testing.T) {
	report := Environment(&indicators.Environment{})
	if report.Overall != nil {
		t.Errorf("Overall = %v, want nil", *report.Overall)
	}
}

func TestEconomyDemoValues(t *testing.T) {
	report := Economy(indicators.DemoEconomy())
	if report.Overall == nil {
		t.Fatal("Overall = nil")
	}
	for _, ind := range report.Indicators {
		if ind.Score == nil {
			t.Errorf("%s score = nil with full demo data", ind.Key)
		}
	}
}

func TestComposite(t *testing.T) {
	tests := []struct {
		name      string
		env, econ *float64
		want      *float64
	}{
		{name: "both", env: f(80), econ: f(60), want: f(70)},
		{name: "env only", env: f(80), want: f(80)},
		{name: "econ only", econ: f(60), want: f(60)},
		{name: "neither", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Composite(tt.env, tt.econ)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("Composite() = %v, want %v", got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("Composite() = %v, want %v", *got, *tt.want)
			}
		})
	}
}

func TestGrade(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{score: 95, want: "A"},
		{score: 90, want: "A"},
		{score: 89.9, want: "B"},
		{score: 75, want: "B"},
		{score: 60, want: "C"},
		{score: 40, want: "D"},
		{score: 39.9, want: "F"},
	}
	for _, tt := range tests {
		if got := Grade(tt.score); got != tt.want {
			t.Errorf("Grade(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestReportMarshalJSON(t *testing.T) {
	report := Environment(indicators.DemoEnvironment())
	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded struct {
		Overall    *float64                   `json:"overall"`
		Grade      *string                    `json:"grade"`
		Indicators map[string]json.RawMessage `json:"indicators"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Overall == nil || decoded.Grade == nil {
		t.Fatalf("decoded = %+v", decoded)
	}
	if len(decoded.Indicators) != 6 {
		t.Errorf("got %d indicators, want 6", len(decoded.Indicators))
	}
}
