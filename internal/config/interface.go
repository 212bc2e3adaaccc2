package config

import (
	"context"

	"codeberg.org/mutker/sensorchart/internal/chart"
	"codeberg.org/mutker/sensorchart/internal/delivery"
	"codeberg.org/mutker/sensorchart/internal/history"
	"codeberg.org/mutker/sensorchart/internal/storage"
)

// Provider defines the interface for accessing configuration values.
// A Provider is immutable; a changed file yields a new Provider through
// Watch.
type Provider interface {
	// ChartSettings returns what the chart view shows
	ChartSettings() (chart.Settings, error)

	// IsShowStats returns whether visible-range statistics are reported
	IsShowStats() bool

	// GetPollInterval returns the fallback poll interval in seconds
	GetPollInterval() int

	// GetLogLevel returns the configured logging level
	GetLogLevel() string

	// GetRetentionDays returns how long records are kept. Zero keeps
	// them forever.
	GetRetentionDays() int

	History() history.Config
	Storage() storage.Config

	// MQTT returns the gateway source settings and whether it is enabled
	MQTT() (delivery.MQTTConfig, bool)

	// AMQP returns the cloud sync source settings and whether it is enabled
	AMQP() (delivery.AMQPConfig, bool)
}

// Watcher enables live configuration updates
type Watcher interface {
	// Watch starts watching the configuration file. The callback is
	// called with each valid new configuration.
	Watch(ctx context.Context, callback func(Provider)) error
}

// LogLevel represents valid logging levels
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// IsValid returns whether the log level is valid
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError:
		return true
	default:
		return false
	}
}

// String implements the Stringer interface
func (l LogLevel) String() string {
	return string(l)
}
