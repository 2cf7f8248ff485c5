package indicators

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// BLS series for the Las Vegas metro and Clark County.
const (
	seriesUnemployment = "LAUCN320030000000003" // county unemployment rate
	seriesTotalNonfarm = "SMU32298200000000001" // metro total nonfarm, thousands
	seriesHospitality  = "SMU32298207000000001" // metro leisure and hospitality
	seriesConstruction = "SMU32298202000000001" // metro construction
	seriesCPIWest      = "CUURS400SA0"          // CPI-U, West region
)

// FetchEconomy gathers every economic reading. Failed sources are reported
// and left nil.
func (f *Fetcher) FetchEconomy(ctx context.Context) *Economy {
	econ := &Economy{}

	if err := f.fetchBLS(ctx, econ); err != nil {
		f.skip("BLS employment data", err)
	}
	if err := f.fetchCensus(ctx, econ); err != nil {
		f.skip("Census housing data", err)
	}

	if gas, err := f.fetchGasPrice(ctx); err != nil {
		f.skip("Gas prices", err)
	} else {
		econ.GasPrice = gas
		f.ok("Gas price: $%.2f/gal", *gas)
	}

	if rate, err := f.fetchMortgageRate(ctx); err != nil {
		f.skip("Mortgage rates", err)
	} else {
		econ.MortgageRate = rate
		f.ok("30-year mortgage: %.2f%%", *rate)
	}

	return econ
}

type blsObservation struct {
	Year  string `json:"year"`
	Value string `json:"value"`
	// Period is "M01".."M12" for monthly series.
	Period string `json:"period"`
}

// fetchBLS pulls all employment series in one v1 timeseries request.
// Job growth is the year-over-year change of total nonfarm employment,
// comparing the latest month against the same month a year earlier.
func (f *Fetcher) fetchBLS(ctx context.Context, econ *Economy) error {
	year := time.Now().Year()
	payload, err := json.Marshal(map[string]any{
		"seriesid":  []string{seriesUnemployment, seriesTotalNonfarm, seriesHospitality, seriesConstruction, seriesCPIWest},
		"startyear": strconv.Itoa(year - 1),
		"endyear":   strconv.Itoa(year),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		f.blsBase+"/publicAPI/v1/timeseries/data/", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp struct {
		Status  string `json:"status"`
		Results struct {
			Series []struct {
				SeriesID string           `json:"seriesID"`
				Data     []blsObservation `json:"data"`
			} `json:"series"`
		} `json:"Results"`
	}
	if err := f.doJSON(req, &resp); err != nil {
		return err
	}
	if resp.Status != "REQUEST_SUCCEEDED" {
		return fmt.Errorf("BLS request status %q", resp.Status)
	}

	for _, series := range resp.Results.Series {
		if len(series.Data) == 0 {
			continue
		}
		latest, err := strconv.ParseFloat(series.Data[0].Value, 64)
		if err != nil {
			continue
		}

		switch series.SeriesID {
		case seriesUnemployment:
			econ.UnemploymentRate = &latest
			f.ok("Unemployment: %.1f%%", latest)
		case seriesTotalNonfarm:
			if prior := sameMonthPriorYear(series.Data); prior != nil {
				growth := latest - *prior
				econ.JobGrowth = &growth
				f.ok("Job growth: %+.1fk jobs year over year", growth)
			}
		case seriesHospitality:
			econ.HospitalityJobs = &latest
			f.ok("Hospitality employment: %.1fk jobs", latest)
		case seriesConstruction:
			econ.ConstructionJobs = &latest
		case seriesCPIWest:
			econ.CPI = &latest
			f.ok("CPI (West): %.1f", latest)
		}
	}
	return nil
}

// sameMonthPriorYear finds the observation one year before the newest one.
// BLS data arrives newest first.
func sameMonthPriorYear(data []blsObservation) *float64 {
	latest := data[0]
	latestYear, err := strconv.Atoi(latest.Year)
	if err != nil {
		return nil
	}
	want := strconv.Itoa(latestYear - 1)

	for _, obs := range data[1:] {
		if obs.Year == want && obs.Period == latest.Period {
			if v, err := strconv.ParseFloat(obs.Value, 64); err == nil {
				return &v
			}
			return nil
		}
	}
	return nil
}

// fetchCensus reads county population from the 2022 5-year ACS and
// housing figures from the latest 1-year ACS.
func (f *Fetcher) fetchCensus(ctx context.Context, econ *Economy) error {
	const county = "county:003" // Clark
	const state = "state:32"    // Nevada

	popURL := fmt.Sprintf("%s/data/2022/acs/acs5?get=B01003_001E&for=%s&in=%s",
		f.censusBase, url.QueryEscape(county), url.QueryEscape(state))
	if values, err := f.censusRow(ctx, popURL, 1); err != nil {
		f.skip("Census population", err)
	} else {
		econ.Population = &values[0]
		f.ok("Population: %.0f", values[0])
	}

	housingURL := fmt.Sprintf("%s/data/2023/acs/acs1?get=B25077_001E,B25064_001E&for=%s&in=%s",
		f.censusBase, url.QueryEscape(county), url.QueryEscape(state))
	values, err := f.censusRow(ctx, housingURL, 2)
	if err != nil {
		return err
	}
	econ.HomeValue = &values[0]
	econ.MedianRent = &values[1]
	f.ok("Median home value: $%.0f, median rent: $%.0f/mo", values[0], values[1])
	return nil
}

// censusRow parses the ACS response shape: a header row followed by one
// data row whose leading cells are the requested variables.
func (f *Fetcher) censusRow(ctx context.Context, endpoint string, n int) ([]float64, error) {
	var rows [][]string
	if err := f.getJSON(ctx, endpoint, &rows); err != nil {
		return nil, err
	}
	if len(rows) < 2 || len(rows[1]) < n {
		return nil, fmt.Errorf("unexpected census response shape")
	}

	values := make([]float64, n)
	for i := 0; i < n; i++ {
		v, err := strconv.ParseFloat(rows[1][i], 64)
		if err != nil {
			return nil, fmt.Errorf("non-numeric census value %q", rows[1][i])
		}
		values[i] = v
	}
	return values, nil
}

// fetchGasPrice reads the latest weekly regular-gasoline price for the
// West Coast district (PADD 5) from EIA's v2 API.
func (f *Fetcher) fetchGasPrice(ctx context.Context) (*float64, error) {
	endpoint := fmt.Sprintf(
		"%s/v2/petroleum/pri/gnd/data/?api_key=%s&frequency=weekly"+
			"&data[0]=value&facets[product][]=EPM0&facets[duoarea][]=R50"+
			"&sort[0][column]=period&sort[0][direction]=desc&length=1",
		f.eiaBase, url.QueryEscape(f.cfg.EIAKey))

	var resp struct {
		Response struct {
			Data []struct {
				Value any `json:"value"`
			} `json:"data"`
		} `json:"response"`
	}
	if err := f.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	if len(resp.Response.Data) == 0 {
		return nil, fmt.Errorf("no gasoline price rows")
	}

	price, err := anyToFloat(resp.Response.Data[0].Value)
	if err != nil {
		return nil, err
	}
	return &price, nil
}

// fetchMortgageRate reads the latest 30-year fixed rate from FRED.
func (f *Fetcher) fetchMortgageRate(ctx context.Context) (*float64, error) {
	if f.cfg.FredKey == "" {
		return nil, fmt.Errorf("FRED_API_KEY is not set")
	}

	endpoint := fmt.Sprintf(
		"%s/fred/series/observations?series_id=MORTGAGE30US&api_key=%s"+
			"&file_type=json&sort_order=desc&limit=1",
		f.fredBase, url.QueryEscape(f.cfg.FredKey))

	var resp struct {
		Observations []struct {
			Value string `json:"value"`
		} `json:"observations"`
	}
	if err := f.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	if len(resp.Observations) == 0 {
		return nil, fmt.Errorf("no observations returned")
	}

	rate, err := strconv.ParseFloat(resp.Observations[0].Value, 64)
	if err != nil {
		return nil, fmt.Errorf("non-numeric rate %q", resp.Observations[0].Value)
	}
	return &rate, nil
}
