// Package score converts raw indicator readings into 0-100 scores,
// weights them into category totals, and grades the result. Every function
// here is pure; all I/O lives in the indicators package.
package score

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/MrSnakeDoc/hometools/internal/indicators"
)

// Indicator is one scored reading. Score is nil when the source was
// unavailable; Raw keeps a display string of the underlying value.
type Indicator struct {
	Key    string
	Label  string
	Score  *float64
	Raw    string
	Weight float64
}

// Report is a weighted category of indicators. Overall is nil when every
// indicator is nil.
type Report struct {
	Name       string
	Indicators []Indicator
	Overall    *float64
}

// MarshalJSON flattens the report into {"overall": x, "grade": "B",
// "indicators": {key: {...}}}.
func (r Report) MarshalJSON() ([]byte, error) {
	type jsonIndicator struct {
		Label  string   `json:"label"`
		Score  *float64 `json:"score"`
		Raw    string   `json:"raw"`
		Weight float64  `json:"weight"`
	}

	out := struct {
		Overall    *float64                 `json:"overall"`
		Grade      *string                  `json:"grade"`
		Indicators map[string]jsonIndicator `json:"indicators"`
	}{
		Overall:    r.Overall,
		Indicators: make(map[string]jsonIndicator, len(r.Indicators)),
	}
	if r.Overall != nil {
		grade := Grade(*r.Overall)
		out.Grade = &grade
	}
	for _, ind := range r.Indicators {
		out.Indicators[ind.Key] = jsonIndicator{
			Label:  ind.Label,
			Score:  ind.Score,
			Raw:    ind.Raw,
			Weight: ind.Weight,
		}
	}
	return json.Marshal(out)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func scored(v float64) *float64 {
	r := round1(clamp(v))
	return &r
}

// AirQualityScore maps AQI onto 0-100: an AQI of 0 is perfect and scores
// fall off at 0.6 points per AQI point.
func AirQualityScore(aqi float64) *float64 {
	return scored(100 - aqi*0.6)
}

// HeatComfortScore treats 65-80F as ideal, penalizing cold harder than heat.
func HeatComfortScore(tempF float64) *float64 {
	switch {
	case tempF >= 65 && tempF <= 80:
		return scored(100)
	case tempF < 65:
		return scored(100 - (65-tempF)*2)
	default:
		return scored(100 - (tempF-80)*1.5)
	}
}

// WaterSupplyScore is the reservoir's percent of operating range.
func WaterSupplyScore(pctCapacity float64) *float64 {
	return scored(pctCapacity)
}

// UVScore steps down through the UV index bands.
func UVScore(uv float64) *float64 {
	switch {
	case uv <= 2:
		return scored(100)
	case uv <= 5:
		return scored(90 - (uv-2)*10)
	case uv <= 7:
		return scored(60 - (uv-5)*10)
	case uv <= 10:
		return scored(40 - (uv-7)*10)
	default:
		return scored(math.Max(5, 10-(uv-10)*5))
	}
}

// DroughtScore penalizes by the worst category's area coverage.
func DroughtScore(pctArea float64) *float64 {
	return scored(100 - pctArea)
}

// AlertsScore deducts 15 points per active alert.
func AlertsScore(count int) *float64 {
	return scored(100 - 15*float64(count))
}

// UnemploymentScore maps 3% to 100 and 10% to 0.
func UnemploymentScore(rate float64) *float64 {
	return scored(100 - (rate-3)*100/7)
}

// JobGrowthScore centers on 50 for flat employment; +-30k jobs a year
// spans the rest of the scale.
func JobGrowthScore(deltaThousands float64) *float64 {
	return scored(50 + deltaThousands*50/30)
}

// HospitalityScore measures leisure and hospitality employment against a
// 290k-job baseline.
func HospitalityScore(jobsThousands float64) *float64 {
	return scored(jobsThousands / 290 * 100)
}

// CostOfLivingScore maps a West-region CPI of 300 to 100 and 340 to 0.
func CostOfLivingScore(cpi float64) *float64 {
	return scored(100 - (cpi-300)*100/40)
}

// HousingScore maps a $250k median home to 100, losing 80 points across
// the next $350k.
func HousingScore(homeValue float64) *float64 {
	return scored(100 - (homeValue-250000)/350000*80)
}

// GasPriceScore maps $3.00/gal to 100 and $5.00/gal to 0.
func GasPriceScore(price float64) *float64 {
	return scored(100 - (price-3.0)/2.0*100)
}

// MortgageScore maps a 5% rate to 100, losing 90 points across the next
// three points.
func MortgageScore(rate float64) *float64 {
	return scored(100 - (rate-5.0)/3.0*90)
}

// Environment scores every environmental indicator and weights them into
// a category total.
func Environment(env *indicators.Environment) Report {
	report := Report{Name: "Environment"}

	air := Indicator{Key: "air_quality", Label: "Air Quality", Weight: 0.25}
	if env.Air != nil {
		air.Score = AirQualityScore(env.Air.AQI)
		air.Raw = fmt.Sprintf("AQI %.0f (%s)", env.Air.AQI, env.Air.Category)
	}

	heat := Indicator{Key: "heat_comfort", Label: "Heat Comfort", Weight: 0.20}
	if env.Weather != nil {
		heat.Score = HeatComfortScore(env.Weather.TempF)
		heat.Raw = fmt.Sprintf("%.0f°F, %s", env.Weather.TempF, env.Weather.Forecast)
	}

	water := Indicator{Key: "water_supply", Label: "Water Supply", Weight: 0.20}
	if env.Water != nil {
		water.Score = WaterSupplyScore(env.Water.PctCapacity)
		water.Raw = fmt.Sprintf("Lake Mead %.1fft", env.Water.ElevationFt)
	}

	uv := Indicator{Key: "uv_exposure", Label: "UV Exposure", Weight: 0.15}
	if env.UV != nil {
		uv.Score = UVScore(env.UV.Index)
		uv.Raw = fmt.Sprintf("UV index %.1f", env.UV.Index)
	}

	drought := Indicator{Key: "drought", Label: "Drought", Weight: 0.10}
	if env.Drought != nil {
		drought.Score = DroughtScore(env.Drought.PctArea)
		drought.Raw = fmt.Sprintf("%s over %.1f%% of county", env.Drought.Category, env.Drought.PctArea)
	}

	alerts := Indicator{Key: "alerts", Label: "Weather Alerts", Weight: 0.10}
	if env.Alerts != nil {
		alerts.Score = AlertsScore(env.Alerts.Count)
		alerts.Raw = fmt.Sprintf("%d active", env.Alerts.Count)
	}

	report.Indicators = []Indicator{air, heat, water, uv, drought, alerts}
	report.Overall = weightedAverage(report.Indicators)
	return report
}

// Economy scores every economic indicator and weights them into a
// category total.
func Economy(econ *indicators.Economy) Report {
	report := Report{Name: "Economy"}

	unemployment := Indicator{Key: "unemployment", Label: "Unemployment", Weight: 0.20}
	if econ.UnemploymentRate != nil {
		unemployment.Score = UnemploymentScore(*econ.UnemploymentRate)
		unemployment.Raw = fmt.Sprintf("%.1f%%", *econ.UnemploymentRate)
	}

	growth := Indicator{Key: "job_growth", Label: "Job Growth", Weight: 0.20}
	if econ.JobGrowth != nil {
		growth.Score = JobGrowthScore(*econ.JobGrowth)
		growth.Raw = fmt.Sprintf("%+.1fk jobs YoY", *econ.JobGrowth)
	}

	hospitality := Indicator{Key: "hospitality_strength", Label: "Hospitality Strength", Weight: 0.15}
	if econ.HospitalityJobs != nil {
		hospitality.Score = HospitalityScore(*econ.HospitalityJobs)
		hospitality.Raw = fmt.Sprintf("%.1fk jobs", *econ.HospitalityJobs)
	}

	col := Indicator{Key: "cost_of_living", Label: "Cost of Living", Weight: 0.15}
	if econ.CPI != nil {
		col.Score = CostOfLivingScore(*econ.CPI)
		col.Raw = fmt.Sprintf("CPI %.1f", *econ.CPI)
	}

	housing := Indicator{Key: "housing", Label: "Housing Affordability", Weight: 0.15}
	if econ.HomeValue != nil {
		housing.Score = HousingScore(*econ.HomeValue)
		housing.Raw = fmt.Sprintf("$%.0f median home", *econ.HomeValue)
	}

	gas := Indicator{Key: "gas_prices", Label: "Gas Prices", Weight: 0.05}
	if econ.GasPrice != nil {
		gas.Score = GasPriceScore(*econ.GasPrice)
		gas.Raw = fmt.Sprintf("$%.2f/gal", *econ.GasPrice)
	}

	mortgage := Indicator{Key: "mortgage", Label: "Mortgage Rates", Weight: 0.10}
	if econ.MortgageRate != nil {
		mortgage.Score = MortgageScore(*econ.MortgageRate)
		mortgage.Raw = fmt.Sprintf("%.2f%%", *econ.MortgageRate)
	}

	report.Indicators = []Indicator{unemployment, growth, hospitality, col, housing, gas, mortgage}
	report.Overall = weightedAverage(report.Indicators)
	return report
}

// weightedAverage combines available scores, renormalizing weights so
// missing indicators neither count as zero nor dilute the rest. Returns
// nil when nothing is available.
func weightedAverage(inds []Indicator) *float64 {
	var sum, weight float64
	for _, ind := range inds {
		if ind.Score == nil {
			continue
		}
		sum += *ind.Score * ind.Weight
		weight += ind.Weight
	}
	if weight == 0 {
		return nil
	}
	avg := round1(sum / weight)
	return &avg
}

// Composite averages the two category totals, or passes through whichever
// exists. Nil when both are missing.
func Composite(env, econ *float64) *float64 {
	switch {
	case env != nil && econ != nil:
		c := round1(0.5**env + 0.5**econ)
		return &c
	case env != nil:
		c := round1(*env)
		return &c
	case econ != nil:
		c := round1(*econ)
		return &c
	default:
		return nil
	}
}

// Grade buckets a 0-100 score into a letter.
func Grade(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 75:
		return "B"
	case score >= 60:
		return "C"
	case score >= 40:
		return "D"
	default:
		return "F"
	}
}
