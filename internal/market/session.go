// Package market supplies the clock and price context around an option chain:
// NYSE session times and intraday indicators.
package market

import (
	"sort"
	"time"
	_ "time/tzdata"

	"github.com/scmhub/calendar"

	"github.com/qwerty2498888/maxpowertrading/internal/analytics"
)

const dateLayout = "2006-01-02"

// Session knows regular trading hours on the NYSE calendar.
type Session struct {
	location   *time.Location
	nyse       *calendar.Calendar
	openHour   int
	openMinute int
	closeHour  int
}

func NewSession() *Session {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return &Session{
		location:   loc,
		nyse:       calendar.XNYS(),
		openHour:   9,
		openMinute: 30,
		closeHour:  16,
	}
}

// Location returns the exchange timezone
func (s *Session) Location() *time.Location {
	return s.location
}

// IsMarketDay checks if the given date is a trading day (not weekend/holiday)
func (s *Session) IsMarketDay(date string) bool {
	// Parse as noon in the exchange timezone to ensure correct date matching
	t, err := time.ParseInLocation("2006-01-02 15:04:05", date+" 12:00:00", s.location)
	if err != nil {
		return false
	}
	return s.nyse.IsBusinessDay(t)
}

// NowContext describes now relative to the regular session of its exchange date.
// Non-trading days carry zero open and close times.
func (s *Session) NowContext(now time.Time) analytics.NowContext {
	local := now.In(s.location)
	ctx := analytics.NowContext{CurrentTime: local}

	if !s.nyse.IsBusinessDay(local) {
		return ctx
	}

	y, m, d := local.Date()
	ctx.MarketOpenTime = time.Date(y, m, d, s.openHour, s.openMinute, 0, 0, s.location)
	ctx.MarketCloseTime = time.Date(y, m, d, s.closeHour, 0, 0, 0, s.location)
	return ctx
}

// Today returns the exchange date of now in YYYY-MM-DD format.
func (s *Session) Today(now time.Time) string {
	return now.In(s.location).Format(dateLayout)
}

// NearestExpiration picks the first expiration on or after today's exchange
// date. When every expiration has passed the latest one is returned.
func (s *Session) NearestExpiration(expirations []string, now time.Time) string {
	if len(expirations) == 0 {
		return ""
	}
	sorted := append([]string(nil), expirations...)
	sort.Strings(sorted)

	today := s.Today(now)
	for _, exp := range sorted {
		if exp >= today {
			return exp
		}
	}
	return sorted[len(sorted)-1]
}
