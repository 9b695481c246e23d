// Package forecast renders an analysis as plain text for terminals, the HTTP
// API and chat notifications.
package forecast

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/qwerty2498888/maxpowertrading/internal/analytics"
)

var sessionLabels = map[analytics.SessionPhase]string{
	analytics.SessionPreMarket:  "pre-market",
	analytics.SessionOpen:       "market open",
	analytics.SessionAfterHours: "after hours",
	analytics.SessionClosed:     "market closed",
}

var flipLabels = map[analytics.FlipDirection]string{
	analytics.PositiveToNegative: "positive to negative",
	analytics.NegativeToPositive: "negative to positive",
}

// Price formats a price with thousands separators and two decimals.
func Price(v float64) string {
	return humanize.CommafWithDigits(v, 2)
}

func span(l analytics.ConsolidatedLevel) string {
	if l.Low == l.High {
		return Price(l.Low)
	}
	return Price(l.Low) + "-" + Price(l.High)
}

// Headline is the one-line summary used as a notification title.
func Headline(r *analytics.AnalysisResult) string {
	parts := []string{analytics.DisplayTicker(r.Ticker), r.Regime.Describe()}
	if r.KeySupport != nil {
		parts = append(parts, "S "+span(r.KeySupport.Level))
	}
	if r.KeyResistance != nil {
		parts = append(parts, "R "+span(r.KeyResistance.Level))
	}
	return strings.Join(parts, " | ")
}

// Render produces the full text forecast.
func Render(r *analytics.AnalysisResult) string {
	var sb strings.Builder

	ticker := analytics.DisplayTicker(r.Ticker)
	sb.WriteString(fmt.Sprintf("%s forecast", ticker))
	if !r.AsOf.IsZero() {
		sb.WriteString(fmt.Sprintf(" (%s, %s)", r.AsOf.Format("2006-01-02 15:04 MST"), sessionLabels[r.Session]))
	}
	sb.WriteString("\n")

	if len(r.Snapshot.Expirations) > 0 {
		sb.WriteString(fmt.Sprintf("Expirations: %s\n", strings.Join(r.Snapshot.Expirations, ", ")))
	}
	if r.Snapshot.Spot != nil {
		sb.WriteString(fmt.Sprintf("Spot: %s\n", Price(*r.Snapshot.Spot)))
	}
	sb.WriteString(fmt.Sprintf("Regime: %s\n", r.Regime.Describe()))

	if r.Snapshot.Empty() {
		sb.WriteString("\nNo option data available.\n")
		return sb.String()
	}

	if r.GammaFlip != nil {
		sb.WriteString(fmt.Sprintf("Gamma flip: %s (%s)\n", Price(r.GammaFlip.Strike), flipLabels[r.GammaFlip.Direction]))
	}
	if r.KeyResistance != nil {
		sb.WriteString(fmt.Sprintf("Key resistance: %s\n", describe(*r.KeyResistance)))
	}
	if r.KeySupport != nil {
		sb.WriteString(fmt.Sprintf("Key support: %s\n", describe(*r.KeySupport)))
	}

	if len(r.ScoredLevels) > 0 {
		sb.WriteString("\nLevels:\n")
		// highest first reads naturally on a price ladder
		for i := len(r.ScoredLevels) - 1; i >= 0; i-- {
			l := r.ScoredLevels[i]
			side := "S"
			if l.Level.Side == analytics.SideResistance {
				side = "R"
			}
			factors := make([]string, len(l.ConfirmingFactors))
			for j, f := range l.ConfirmingFactors {
				factors[j] = string(f)
			}
			sb.WriteString(fmt.Sprintf("  %s %-21s %3d%% %-8s %s\n",
				side, span(l.Level), l.Confidence, l.Strength, strings.Join(factors, ", ")))
		}
	}

	sb.WriteString("\n")
	sb.WriteString(summaryLine(r.Summary))
	sb.WriteString("\n")
	return sb.String()
}

func describe(l analytics.ScoredLevel) string {
	return fmt.Sprintf("%s (zone %s-%s), confidence %d%% %s",
		span(l.Level), Price(l.ZoneLow), Price(l.ZoneHigh), l.Confidence, l.Strength)
}

func summaryLine(s analytics.Summary) string {
	var parts []string
	if s.MaxPainStrike != nil {
		parts = append(parts, "Max pain: "+Price(*s.MaxPainStrike))
	}
	if s.PutCallOIRatio != nil {
		parts = append(parts, fmt.Sprintf("P/C OI: %.2f", *s.PutCallOIRatio))
	}
	if s.TotalNetGex != nil {
		parts = append(parts, "Net GEX: "+humanize.CommafWithDigits(*s.TotalNetGex, 1))
	}
	parts = append(parts, "OI: "+humanize.Comma(s.TotalCallOI)+" calls / "+humanize.Comma(s.TotalPutOI)+" puts")
	return strings.Join(parts, " | ")
}
