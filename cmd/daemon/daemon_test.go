package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qwerty2498888/maxpowertrading/internal/analytics"
	"github.com/qwerty2498888/maxpowertrading/internal/recorder"
)

func fixedScheduler(t *testing.T, slots []string, at string) *Scheduler {
	t.Helper()
	s := NewScheduler(slots, "America/New_York")
	now, err := time.ParseInLocation("2006-01-02 15:04", at, s.Location())
	require.NoError(t, err)
	s.now = func() time.Time { return now }
	return s
}

func TestScheduler_Slots(t *testing.T) {
	slots := []string{"15:30", "09:45", "12:00"}

	s := fixedScheduler(t, slots, "2025-01-17 12:00")
	assert.Equal(t, "12:00", s.DueSlot())
	assert.Equal(t, "12:00", s.LatestSlot())

	s = fixedScheduler(t, slots, "2025-01-17 14:10")
	assert.Empty(t, s.DueSlot())
	assert.Equal(t, "12:00", s.LatestSlot())

	s = fixedScheduler(t, slots, "2025-01-17 08:00")
	assert.Empty(t, s.LatestSlot(), "no slot before the first")
	assert.True(t, s.IsTime("08:00"))
	assert.False(t, s.IsTime(""))
}

func TestScheduler_IsMarketDay(t *testing.T) {
	s := NewScheduler(nil, "America/New_York")

	tests := map[string]bool{
		"2025-01-17": true,  // Friday
		"2025-01-18": false, // Saturday
		"2025-01-20": false, // Martin Luther King Jr. Day
		"bogus":      false,
	}
	for date, want := range tests {
		assert.Equal(t, want, s.IsMarketDay(date), date)
	}
}

func TestParseClock(t *testing.T) {
	h, m, err := parseClock("09:45")
	require.NoError(t, err)
	assert.Equal(t, 9, h)
	assert.Equal(t, 45, m)

	_, _, err = parseClock("9.45")
	assert.Error(t, err)
}

func TestLoadDaemonConfig(t *testing.T) {
	t.Setenv("DAEMON_FORECAST_TIMES", " 09:45 , 15:30,")
	t.Setenv("DAEMON_RUN_ON_STARTUP", "false")

	cfg, err := LoadDaemonConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"09:45", "15:30"}, cfg.ForecastTimes)
	assert.False(t, cfg.RunOnStartup)

	t.Setenv("DAEMON_RECORD_TIME", "25:00")
	_, err = LoadDaemonConfig()
	assert.Error(t, err, "invalid record time")
}

func TestRunTracker_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", ".daemon-state")

	tracker := NewRunTracker(path)
	assert.False(t, tracker.AlreadyDone(jobForecast, "2025-01-17 12:00"), "fresh tracker should have no runs")
	require.NoError(t, tracker.MarkDone(jobForecast, "2025-01-17 12:00"))
	require.NoError(t, tracker.MarkDone(jobRecord, "2025-01-17"))

	reloaded := NewRunTracker(path)
	assert.True(t, reloaded.AlreadyDone(jobForecast, "2025-01-17 12:00"))
	assert.True(t, reloaded.AlreadyDone(jobRecord, "2025-01-17"))
	assert.False(t, reloaded.AlreadyDone(jobForecast, "2025-01-17 15:30"))
}

type fakeAnalyzer struct {
	failFor map[string]bool
}

func (f *fakeAnalyzer) Analyze(_ context.Context, ticker string, _ []string) (*analytics.AnalysisResult, error) {
	if f.failFor[ticker] {
		return nil, errors.New("no chain")
	}
	return &analytics.AnalysisResult{Ticker: ticker}, nil
}

type fakeNotifier struct {
	forecasts []string
	failures  []string
	err       error
}

func (f *fakeNotifier) SendForecast(_ context.Context, r *analytics.AnalysisResult) error {
	if f.err != nil {
		return f.err
	}
	f.forecasts = append(f.forecasts, r.Ticker)
	return nil
}

func (f *fakeNotifier) SendFailure(_ context.Context, ticker string, _ error) error {
	f.failures = append(f.failures, ticker)
	return nil
}

func TestRunForecasts(t *testing.T) {
	n := &fakeNotifier{}
	sent := runForecasts(context.Background(), &fakeAnalyzer{failFor: map[string]bool{"QQQ": true}},
		n, []string{"SPX", "QQQ", "SPY"}, zap.NewNop())

	assert.Equal(t, 2, sent)
	assert.Equal(t, []string{"SPX", "SPY"}, n.forecasts)
	assert.Equal(t, []string{"QQQ"}, n.failures)
}

func TestRunForecastSlot_MarksDoneOnlyWhenSent(t *testing.T) {
	s := fixedScheduler(t, []string{"12:00"}, "2025-01-17 12:00")
	tracker := NewRunTracker(filepath.Join(t.TempDir(), ".daemon-state"))

	failing := &fakeNotifier{err: errors.New("ntfy down")}
	runForecastSlot(context.Background(), "12:00", &fakeAnalyzer{}, failing, []string{"SPX"}, s, tracker, zap.NewNop())
	assert.False(t, tracker.AlreadyDone(jobForecast, "2025-01-17 12:00"), "nothing was delivered")

	runForecastSlot(context.Background(), "12:00", &fakeAnalyzer{}, &fakeNotifier{}, []string{"SPX"}, s, tracker, zap.NewNop())
	assert.True(t, tracker.AlreadyDone(jobForecast, "2025-01-17 12:00"))
}

type fakeRecorder struct {
	result *recorder.Result
}

func (f *fakeRecorder) Record(_ context.Context, _ []string, _ int) (*recorder.Result, error) {
	return f.result, nil
}

func TestRunRecording(t *testing.T) {
	s := fixedScheduler(t, nil, "2025-01-17 16:15")
	tracker := NewRunTracker(filepath.Join(t.TempDir(), ".daemon-state"))

	err := runRecording(context.Background(), &fakeRecorder{result: &recorder.Result{Date: "2025-01-17"}},
		[]string{"SPX"}, 3, s, tracker, zap.NewNop())
	assert.ErrorIs(t, err, errNothingRecorded)

	err = runRecording(context.Background(), &fakeRecorder{result: &recorder.Result{Date: "2025-01-17", Recorded: 1}},
		[]string{"SPX"}, 3, s, tracker, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, tracker.AlreadyDone(jobRecord, "2025-01-17"))
}
