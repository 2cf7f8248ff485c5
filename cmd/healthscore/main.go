// healthscore pulls environmental and economic indicators for the
// Henderson, NV area, scores them 0-100, and prints a graded dashboard.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/MrSnakeDoc/hometools/internal/config"
	"github.com/MrSnakeDoc/hometools/internal/display"
	"github.com/MrSnakeDoc/hometools/internal/indicators"
	"github.com/MrSnakeDoc/hometools/internal/logger"
	"github.com/MrSnakeDoc/hometools/internal/score"
	"github.com/MrSnakeDoc/hometools/internal/version"
)

func main() {
	var (
		demo        bool
		jsonOut     bool
		envOnly     bool
		econOnly    bool
		verbose     bool
		showVersion bool
	)

	pflag.BoolVar(&demo, "demo", false, "use canned readings, no network calls")
	pflag.BoolVar(&jsonOut, "json", false, "emit JSON instead of the dashboard")
	pflag.BoolVar(&envOnly, "env-only", false, "environmental indicators only")
	pflag.BoolVar(&econOnly, "econ-only", false, "economic indicators only")
	pflag.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	pflag.BoolVar(&showVersion, "version", false, "print version and exit")
	pflag.Parse()

	if showVersion {
		fmt.Println(version.String("healthscore"))
		return
	}
	if envOnly && econOnly {
		fmt.Fprintln(os.Stderr, "--env-only and --econ-only are mutually exclusive")
		os.Exit(2)
	}

	_ = godotenv.Load()

	level := "warn"
	if verbose {
		level = "debug"
	}
	log := logger.New(level, true)
	cfg := config.LoadScore()

	var progress io.Writer = os.Stderr
	if jsonOut {
		progress = io.Discard
	}

	var env *indicators.Environment
	var econ *indicators.Economy

	if demo {
		if !econOnly {
			env = indicators.DemoEnvironment()
		}
		if !envOnly {
			econ = indicators.DemoEconomy()
		}
	} else {
		fetcher := indicators.NewFetcher(cfg, log, progress)
		ctx := context.Background()
		if !econOnly {
			fmt.Fprintln(progress, "Fetching environmental indicators...")
			env = fetcher.FetchEnvironment(ctx)
		}
		if !envOnly {
			fmt.Fprintln(progress, "Fetching economic indicators...")
			econ = fetcher.FetchEconomy(ctx)
		}
	}

	var envReport, econReport *score.Report
	if env != nil {
		r := score.Environment(env)
		envReport = &r
	}
	if econ != nil {
		r := score.Economy(econ)
		econReport = &r
	}

	var envOverall, econOverall *float64
	if envReport != nil {
		envOverall = envReport.Overall
	}
	if econReport != nil {
		econOverall = econReport.Overall
	}
	composite := score.Composite(envOverall, econOverall)

	if jsonOut {
		printJSON(envReport, econReport, composite)
		return
	}

	color := term.IsTerminal(int(os.Stdout.Fd()))
	r := display.NewRenderer(os.Stdout, color)
	r.Header("Henderson, NV", time.Now())
	if envReport != nil {
		r.Section(*envReport)
	}
	if econReport != nil {
		r.Section(*econReport)
	}
	r.Composite(composite)
	r.Footer(demo)
}

func printJSON(envReport, econReport *score.Report, composite *float64) {
	out := struct {
		GeneratedAt time.Time     `json:"generated_at"`
		Environment *score.Report `json:"environment,omitempty"`
		Economy     *score.Report `json:"economy,omitempty"`
		Composite   *float64      `json:"composite"`
		Grade       *string       `json:"grade"`
	}{
		GeneratedAt: time.Now().UTC(),
		Environment: envReport,
		Economy:     econReport,
		Composite:   composite,
	}
	if composite != nil {
		grade := score.Grade(*composite)
		out.Grade = &grade
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "healthscore: %v\n", err)
		os.Exit(1)
	}
}
