// Package display renders score reports as a colored terminal dashboard.
package display

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/MrSnakeDoc/hometools/internal/score"
)

const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
)

const barWidth = 20

// Renderer writes the dashboard. Color can be disabled for plain pipes.
type Renderer struct {
	w     io.Writer
	color bool
}

func NewRenderer(w io.Writer, color bool) *Renderer {
	return &Renderer{w: w, color: color}
}

func (r *Renderer) paint(code, s string) string {
	if !r.color {
		return s
	}
	return code + s + reset
}

// scoreColor picks the bar and grade color for a score.
func (r *Renderer) scoreColor(s float64) string {
	switch {
	case s >= 75:
		return green
	case s >= 50:
		return yellow
	default:
		return red
	}
}

// Header prints the dashboard title block.
func (r *Renderer) Header(location string, now time.Time) {
	line := strings.Repeat("═", 58)
	fmt.Fprintln(r.w, r.paint(cyan, line))
	fmt.Fprintf(r.w, "  %s\n", r.paint(bold, fmt.Sprintf("%s HEALTH SCORE", strings.ToUpper(location))))
	fmt.Fprintf(r.w, "  %s\n", r.paint(dim, now.Format("Monday, January 2, 2006 3:04 PM")))
	fmt.Fprintln(r.w, r.paint(cyan, line))
}

// Section prints one category: its overall line then a bar per indicator.
func (r *Renderer) Section(report score.Report) {
	fmt.Fprintf(r.w, "\n%s", r.paint(bold, "  "+strings.ToUpper(report.Name)))
	if report.Overall != nil {
		grade := score.Grade(*report.Overall)
		fmt.Fprintf(r.w, "  %s\n",
			r.paint(r.scoreColor(*report.Overall), fmt.Sprintf("%.1f (%s)", *report.Overall, grade)))
	} else {
		fmt.Fprintf(r.w, "  %s\n", r.paint(dim, "no data"))
	}

	for _, ind := range report.Indicators {
		r.indicator(ind)
	}
}

func (r *Renderer) indicator(ind score.Indicator) {
	label := fmt.Sprintf("%-22s", ind.Label)
	if ind.Score == nil {
		fmt.Fprintf(r.w, "  %s %s %s\n",
			label,
			r.paint(dim, "["+strings.Repeat("·", barWidth)+"]"),
			r.paint(dim, "unavailable"))
		return
	}

	filled := int(*ind.Score / 100 * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	fmt.Fprintf(r.w, "  %s %s %5.1f  %s\n",
		label,
		r.paint(r.scoreColor(*ind.Score), "["+bar+"]"),
		*ind.Score,
		r.paint(dim, ind.Raw))
}

// Composite prints the boxed overall score and grade.
func (r *Renderer) Composite(composite *float64) {
	fmt.Fprintln(r.w)
	if composite == nil {
		fmt.Fprintf(r.w, "  %s\n", r.paint(dim, "No data available to compute an overall score."))
		return
	}

	grade := score.Grade(*composite)
	text := fmt.Sprintf("  OVERALL: %.1f / 100   GRADE %s  ", *composite, grade)
	border := strings.Repeat("─", len([]rune(text)))
	color := r.scoreColor(*composite)

	fmt.Fprintf(r.w, "  %s\n", r.paint(color, "┌"+border+"┐"))
	fmt.Fprintf(r.w, "  %s%s%s\n", r.paint(color, "│"), r.paint(bold, text), r.paint(color, "│"))
	fmt.Fprintf(r.w, "  %s\n", r.paint(color, "└"+border+"┘"))
}

// Footer prints the data source attribution line.
func (r *Renderer) Footer(demo bool) {
	fmt.Fprintln(r.w)
	if demo {
		fmt.Fprintf(r.w, "  %s\n", r.paint(yellow, "Demo mode: canned readings, no network calls made."))
		return
	}
	fmt.Fprintf(r.w, "  %s\n", r.paint(dim,
		"Sources: AirNow, NWS, USBR, EPA, US Drought Monitor, BLS, Census, EIA, FRED"))
}
