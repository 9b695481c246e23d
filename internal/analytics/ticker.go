package analytics

import "strings"

// providerSymbols maps index short names to the provider's caret-prefixed codes.
var providerSymbols = map[string]string{
	"SPX": "^SPX",
	"NDX": "^NDX",
	"RUT": "^RUT",
	"VIX": "^VIX",
	"XSP": "^XSP",
	"DJX": "^DJX",
}

// NormalizeTicker maps a user supplied symbol to the data provider symbol.
// Unmapped symbols pass through uppercased.
func NormalizeTicker(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if mapped, ok := providerSymbols[s]; ok {
		return mapped
	}
	return s
}

// DisplayTicker strips the provider prefix for rendering.
func DisplayTicker(symbol string) string {
	return strings.TrimPrefix(NormalizeTicker(symbol), "^")
}
