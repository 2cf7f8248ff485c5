// Package indicators fetches the raw environmental and economic readings
// the health score is computed from. Every fetch is independently
// tolerant: a failed source leaves its field nil and never aborts the run.
package indicators

// AirQuality is the current AQI observation for the configured ZIP.
type AirQuality struct {
	AQI       float64
	Category  string
	Pollutant string
}

// Weather is the leading forecast period for the configured point.
type Weather struct {
	TempF    float64
	Forecast string
}

// Water is the reservoir level backing the regional water supply.
type Water struct {
	ElevationFt float64
	PctCapacity float64
}

// UV is today's ultraviolet index for the configured ZIP.
type UV struct {
	Index float64
}

// Drought is the worst active drought category and its area coverage.
type Drought struct {
	Category string // "D4" down to "D0", or "none"
	PctArea  float64
}

// Alerts is the set of active weather alerts touching the county.
type Alerts struct {
	Count     int
	Headlines []string
}

// Environment groups every environmental reading. Nil fields mean the
// source was unavailable.
type Environment struct {
	Air     *AirQuality
	Weather *Weather
	Water   *Water
	UV      *UV
	Drought *Drought
	Alerts  *Alerts
}

// Economy groups every economic reading. Nil fields mean the source was
// unavailable. Employment figures are in thousands of jobs.
type Economy struct {
	UnemploymentRate *float64 // percent
	JobGrowth        *float64 // year-over-year change in total nonfarm jobs
	HospitalityJobs  *float64 // leisure and hospitality employment
	ConstructionJobs *float64 // construction employment
	CPI              *float64 // CPI-U index, West region
	HomeValue        *float64 // median home value, dollars
	MedianRent       *float64 // median gross rent, dollars per month
	Population       *float64 // county population
	GasPrice         *float64 // regular gasoline, dollars per gallon
	MortgageRate     *float64 // 30-year fixed, percent
}

func ptr(v float64) *float64 { return &v }

// DemoEnvironment returns plausible canned readings for offline runs.
func DemoEnvironment() *Environment {
	return &Environment{
		Air:     &AirQuality{AQI: 42, Category: "Good", Pollutant: "PM2.5"},
		Weather: &Weather{TempF: 74, Forecast: "Sunny"},
		Water:   &Water{ElevationFt: 1067.5, PctCapacity: pctCapacity(1067.5)},
		UV:      &UV{Index: 6},
		Drought: &Drought{Category: "D1", PctArea: 35},
		Alerts:  &Alerts{Count: 0},
	}
}

// DemoEconomy returns plausible canned readings for offline runs.
func DemoEconomy() *Economy {
	return &Economy{
		UnemploymentRate: ptr(5.6),
		JobGrowth:        ptr(18.4),
		HospitalityJobs:  ptr(291.3),
		ConstructionJobs: ptr(78.2),
		CPI:              ptr(322.5),
		HomeValue:        ptr(425000),
		MedianRent:       ptr(1550),
		Population:       ptr(2265461),
		GasPrice:         ptr(3.89),
		MortgageRate:     ptr(6.85),
	}
}

// Lake Mead storage bounds: dead pool at 895ft, full pool at 1229ft.
const (
	deadPoolFt = 895.0
	fullPoolFt = 1229.0
)

// pctCapacity maps a surface elevation onto percent of operating range.
func pctCapacity(elevationFt float64) float64 {
	pct := (elevationFt - deadPoolFt) / (fullPoolFt - deadPoolFt) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
