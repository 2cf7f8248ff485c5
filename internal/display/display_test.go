package display

import (
	"strings"
	"testing"
	"time"

	"github.com/MrSnakeDoc/hometools/internal/indicators"
	"github.com/MrSnakeDoc/hometools/internal/score"
)

func TestSectionRendersBarsAndMissingData(t *testing.T) {
	env := &indicators.Environment{
		Air: &indicators.AirQuality{AQI: 42, Category: "Good"},
	}
	report := score.Environment(env)

	var buf strings.Builder
	r := NewRenderer(&buf, false)
	r.Section(report)
	out := buf.String()

	if !strings.Contains(out, "ENVIRONMENT") {
		t.Errorf("missing section title:\n%s", out)
	}
	if !strings.Contains(out, "74.8") {
		t.Errorf("missing air quality score:\n%s", out)
	}
	if !strings.Contains(out, "unavailable") {
		t.Errorf("missing indicators should render as unavailable:\n%s", out)
	}
	if strings.Contains(out, "\033[") {
		t.Errorf("color disabled but ANSI codes present:\n%s", out)
	}
}

func TestCompositeBox(t *testing.T) {
	var buf strings.Builder
	r := NewRenderer(&buf, false)
	v := 82.5
	r.Composite(&v)
	out := buf.String()

	if !strings.Contains(out, "OVERALL: 82.5 / 100") || !strings.Contains(out, "GRADE B") {
		t.Errorf("composite box = %q", out)
	}

	buf.Reset()
	r.Composite(nil)
	if !strings.Contains(buf.String(), "No data") {
		t.Errorf("nil composite = %q", buf.String())
	}
}

func TestHeaderAndFooter(t *testing.T) {
	var buf strings.Builder
	r := NewRenderer(&buf, false)
	r.Header("Henderson, NV", time.Date(2026, 6, 15, 8, 30, 0, 0, time.UTC))
	r.Footer(true)
	out := buf.String()

	if !strings.Contains(out, "HENDERSON, NV HEALTH SCORE") {
		t.Errorf("missing title:\n%s", out)
	}
	if !strings.Contains(out, "Demo mode") {
		t.Errorf("missing demo footer:\n%s", out)
	}
}

func TestColorEnabled(t *testing.T) {
	var buf strings.Builder
	r := NewRenderer(&buf, true)
	v := 90.0
	r.Composite(&v)
	if !strings.Contains(buf.String(), "\033[32m") {
		t.Errorf("expected green ANSI code for a 90 score:\n%q", buf.String())
	}
}
