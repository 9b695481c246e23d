package notify

import (
	"fmt"
	"strings"

	"github.com/qwerty2498888/maxpowertrading/internal/analytics"
	"github.com/qwerty2498888/maxpowertrading/internal/forecast"
)

// FormatForecastTitle creates the notification title for a forecast.
func FormatForecastTitle(r *analytics.AnalysisResult) string {
	return forecast.Headline(r)
}

// FormatForecastMessage creates the forecast notification body.
func FormatForecastMessage(r *analytics.AnalysisResult) string {
	return strings.TrimRight(forecast.Render(r), "\n")
}

// FormatFailureTitle creates the failure notification title.
func FormatFailureTitle(ticker string) string {
	return fmt.Sprintf("Forecast Failed: %s", analytics.DisplayTicker(ticker))
}

// FormatFailureMessage creates a failure notification body.
func FormatFailureMessage(ticker string, err error) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Ticker: %s\n", analytics.DisplayTicker(ticker)))
	if err != nil {
		sb.WriteString(fmt.Sprintf("Error: %v", err))
	}

	return sb.String()
}
