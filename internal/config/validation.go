package config

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/qwerty2498888/maxpowertrading/internal/analytics"
)

var tickerPattern = regexp.MustCompile(`^\^?[A-Z][A-Z0-9.\-]{0,9}$`)

// InvalidClassRef is a ticker mapped to a class that does not exist
type InvalidClassRef struct {
	Ticker string
	Class  string
}

// InvalidClassField is a class tunable outside its allowed range
type InvalidClassField struct {
	Class  string
	Field  string
	Reason string
}

// ValidationErrors collects all validation errors
type ValidationErrors struct {
	InvalidTickers   []string
	InvalidClasses   []string
	InvalidClassRefs []InvalidClassRef
	InvalidFields    []InvalidClassField
}

// HasErrors returns true if any validation errors exist
func (e *ValidationErrors) HasErrors() bool {
	return len(e.InvalidTickers) > 0 || len(e.InvalidClasses) > 0 ||
		len(e.InvalidClassRefs) > 0 || len(e.InvalidFields) > 0
}

// Error formats all validation errors into a clear message
func (e *ValidationErrors) Error() string {
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")

	if len(e.InvalidTickers) > 0 {
		sb.WriteString("\nInvalid tickers:\n")
		for _, t := range e.InvalidTickers {
			sb.WriteString(fmt.Sprintf("  - %q\n", t))
		}
	}

	if len(e.InvalidClasses) > 0 {
		sb.WriteString("\nUnknown instrument classes:\n")
		for _, c := range e.InvalidClasses {
			sb.WriteString(fmt.Sprintf("  - %s\n", c))
		}
		sb.WriteString(fmt.Sprintf("\nValid classes: %s\n", validClassList()))
	}

	if len(e.InvalidClassRefs) > 0 {
		sb.WriteString("\nInvalid ticker/class mappings:\n")
		for _, r := range e.InvalidClassRefs {
			sb.WriteString(fmt.Sprintf("  - %s -> %s (valid classes: %s)\n", r.Ticker, r.Class, validClassList()))
		}
	}

	if len(e.InvalidFields) > 0 {
		sb.WriteString("\nInvalid class settings:\n")
		for _, f := range e.InvalidFields {
			sb.WriteString(fmt.Sprintf("  - %s.%s: %s\n", f.Class, f.Field, f.Reason))
		}
	}

	return sb.String()
}

// ValidateInstruments checks tickers, class definitions and the ticker/class mapping
func ValidateInstruments(tickers []string, classes map[string]analytics.InstrumentClassConfig, mapping map[string]string) error {
	errs := &ValidationErrors{}

	for _, ticker := range tickers {
		if !tickerPattern.MatchString(analytics.NormalizeTicker(ticker)) {
			errs.InvalidTickers = append(errs.InvalidTickers, ticker)
		}
	}

	names := make([]string, 0, len(classes))
	for name := range classes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !validClasses[Class(name)] {
			errs.InvalidClasses = append(errs.InvalidClasses, name)
			continue
		}
		validateClassFields(errs, name, classes[name])
	}

	refs := make([]string, 0, len(mapping))
	for ticker := range mapping {
		refs = append(refs, ticker)
	}
	sort.Strings(refs)
	for _, ticker := range refs {
		if !validClasses[Class(mapping[ticker])] {
			errs.InvalidClassRefs = append(errs.InvalidClassRefs, InvalidClassRef{
				Ticker: strings.ToUpper(ticker),
				Class:  mapping[ticker],
			})
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateClassFields(errs *ValidationErrors, name string, c analytics.InstrumentClassConfig) {
	check := func(field string, v, limit float64) {
		if v < 0 || v > limit {
			errs.InvalidFields = append(errs.InvalidFields, InvalidClassField{
				Class:  name,
				Field:  field,
				Reason: fmt.Sprintf("%g outside [0, %g]", v, limit),
			})
		}
	}

	if c.WindowBand <= 0 || c.WindowBand >= 1 {
		errs.InvalidFields = append(errs.InvalidFields, InvalidClassField{
			Class:  name,
			Field:  "window_band",
			Reason: fmt.Sprintf("%g outside (0, 1)", c.WindowBand),
		})
	}
	check("resistance_zone_lower_pct", c.ResistanceZoneLowerPct, 1)
	check("resistance_zone_upper_pct", c.ResistanceZoneUpperPct, 1)
	check("support_zone_lower_pct", c.SupportZoneLowerPct, 1)
	check("support_zone_upper_pct", c.SupportZoneUpperPct, 1)
	if c.MergeTolerance <= 0 {
		errs.InvalidFields = append(errs.InvalidFields, InvalidClassField{
			Class:  name,
			Field:  "merge_tolerance",
			Reason: "must be > 0",
		})
	}
}

func validClassList() string {
	names := make([]string, 0, len(validClasses))
	for c := range validClasses {
		names = append(names, string(c))
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
