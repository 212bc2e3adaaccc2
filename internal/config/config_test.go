package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/sensorchart/internal/chart"
	"codeberg.org/mutker/sensorchart/internal/config"
	"codeberg.org/mutker/sensorchart/internal/errors"
	"codeberg.org/mutker/sensorchart/internal/measurement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Setenv("SENSORCHART_CONFIG", "")
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sensorchart.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
log_level = "debug"

[chart]
sensor = "AA:BB:CC:DD:EE:FF"
variants = ["temperature", "humidity/dew_point_celsius", "co2"]
history_hours = 6
show_stats = false
poll_interval = 30

[units]
temperature = "fahrenheit"

[downsampling]
threshold = 500
bucket_minutes = 5
max_points = 1200

[storage]
path = "/tmp/measurements.db"
retention_days = 90

[mqtt]
broker = "localhost:1883"
`)

	cfg, err := config.Load([]string{"--config", path})
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.GetLogLevel())
	assert.Equal(t, 30, cfg.GetPollInterval())
	assert.Equal(t, 90, cfg.GetRetentionDays())
	assert.False(t, cfg.IsShowStats())
	assert.Equal(t, path, cfg.File())

	s, err := cfg.ChartSettings()
	require.NoError(t, err)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", s.SensorID)
	assert.Equal(t, 6, s.HistoryHours)
	assert.Equal(t, []measurement.Variant{
		{Kind: measurement.KindTemperature, Unit: measurement.UnitFahrenheit},
		{Kind: measurement.KindHumidity, Unit: measurement.UnitDewPointCelsius},
		{Kind: measurement.KindCO2, Unit: measurement.UnitPPM},
	}, s.Variants)

	h := cfg.History()
	assert.Equal(t, 500, h.Threshold)
	assert.Equal(t, 5, h.BucketMinutes)
	assert.Equal(t, 1200, h.MaxPoints)

	st := cfg.Storage()
	assert.Equal(t, "/tmp/measurements.db", st.DBPath)
	assert.True(t, st.Persist)

	mqtt, ok := cfg.MQTT()
	assert.True(t, ok)
	assert.Equal(t, "localhost:1883", mqtt.Broker)
	assert.Equal(t, "sensors/+/measurements", mqtt.Topic)

	_, ok = cfg.AMQP()
	assert.False(t, ok)
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := config.Load(nil)
	require.NoError(t, err)

	assert.Equal(t, config.DefaultLogLevel, cfg.GetLogLevel())
	assert.Equal(t, config.DefaultPollInterval, cfg.GetPollInterval())
	assert.Equal(t, config.DefaultVariants, cfg.Chart.Variants)
	assert.Equal(t, config.DefaultHistoryHours, cfg.Chart.HistoryHours)
	assert.True(t, cfg.IsShowStats())
	assert.Empty(t, cfg.File())

	h := cfg.History()
	assert.Equal(t, 1000, h.Threshold)
	assert.Equal(t, 15, h.BucketMinutes)
	assert.Equal(t, 3000, h.MaxPoints)

	_, ok := cfg.MQTT()
	assert.False(t, ok)

	_, err = cfg.ChartSettings()
	assert.True(t, errors.HasCode(err, chart.ErrInvalidSettings), "a sensor is required to chart")
}

func TestPrecedence(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
[chart]
sensor = "from-file"
history_hours = 12
`)
	t.Setenv("SENSORCHART_CONFIG", path)
	t.Setenv("SENSORCHART_CHART_HISTORY_HOURS", "48")

	cfg, err := config.Load([]string{"--sensor", "from-flag"})
	require.NoError(t, err)
	assert.Equal(t, "from-flag", cfg.Chart.Sensor)
	assert.Equal(t, 48, cfg.Chart.HistoryHours)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		args    []string
		code    errors.ErrorCode
	}{
		{name: "invalid toml", content: "This is not a valid TOML file", code: errors.ErrReadConfig},
		{name: "invalid log level", content: `log_level = "invalid"`, code: errors.ErrInvalidLogLevel},
		{name: "invalid unit", content: "[units]\npressure = \"bar\"", code: errors.ErrInvalidUnit},
		{name: "invalid variant", content: "[chart]\nvariants = [\"co2/percent\"]", code: errors.ErrInvalidUnit},
		{name: "no variants", content: "[chart]\nvariants = []", code: errors.ErrInvalidConfig},
		{name: "negative poll interval", args: []string{"--poll-interval=-1"}, code: errors.ErrInvalidInterval},
		{name: "qos", args: []string{"--mqtt-qos", "3"}, code: errors.ErrInvalidConfig},
		{name: "max points", args: []string{"--max-points", "1"}, code: errors.ErrInvalidConfig},
		{name: "unknown flag", args: []string{"--refresh-rate", "80"}, code: errors.ErrBindFlags},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			args := tt.args
			if tt.content != "" {
				args = append([]string{"--config", writeConfig(t, tt.content)}, args...)
			}

			_, err := config.Load(args)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	isolate(t)

	_, err := config.Load([]string{"--config", filepath.Join(t.TempDir(), "missing.toml")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to read config file")
}

func TestWatch(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "[chart]\nsensor = \"first\"\n")

	cfg, err := config.Load([]string{"--config", path})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan config.Provider, 4)
	require.NoError(t, cfg.Watch(ctx, func(p config.Provider) { changed <- p }))

	require.NoError(t, os.WriteFile(path, []byte("[chart]\nsensor = \"second\"\n"), 0o600))

	select {
	case p := <-changed:
		s, err := p.ChartSettings()
		require.NoError(t, err)
		assert.Equal(t, "second", s.SensorID)
	case <-time.After(5 * time.Second):
		t.Fatal("configuration change not observed")
	}
}

func TestWatchWithoutFile(t *testing.T) {
	isolate(t)

	cfg, err := config.Load(nil)
	require.NoError(t, err)

	err = cfg.Watch(context.Background(), func(config.Provider) {})
	assert.True(t, errors.HasCode(err, errors.ErrInvalidOperation))
}

func TestLogLevel(t *testing.T) {
	assert.True(t, config.LogLevelWarning.IsValid())
	assert.False(t, config.LogLevel("verbose").IsValid())
	assert.Equal(t, "error", config.LogLevelError.String())
}
