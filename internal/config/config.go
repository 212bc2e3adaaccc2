package config

import (
	"context"
	"os"
	"strings"

	"codeberg.org/mutker/sensorchart/internal/chart"
	"codeberg.org/mutker/sensorchart/internal/delivery"
	"codeberg.org/mutker/sensorchart/internal/errors"
	"codeberg.org/mutker/sensorchart/internal/history"
	"codeberg.org/mutker/sensorchart/internal/logger"
	"codeberg.org/mutker/sensorchart/internal/measurement"
	"codeberg.org/mutker/sensorchart/internal/storage"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix     = "SENSORCHART"
	envConfigFile = "SENSORCHART_CONFIG"
	configName    = "sensorchart"

	DefaultLogLevel     = string(LogLevelInfo)
	DefaultHistoryHours = 24
	DefaultPollInterval = 60
)

var DefaultVariants = []string{"temperature", "humidity", "pressure"}

type Config struct {
	LogLevel     string             `mapstructure:"log_level"`
	Chart        ChartConfig        `mapstructure:"chart"`
	Units        UnitConfig         `mapstructure:"units"`
	Downsampling DownsamplingConfig `mapstructure:"downsampling"`
	Store        StorageConfig      `mapstructure:"storage"`
	MQTTSource   MQTTConfig         `mapstructure:"mqtt"`
	AMQPSource   AMQPConfig         `mapstructure:"amqp"`

	v *viper.Viper
}

type ChartConfig struct {
	Sensor string `mapstructure:"sensor"`
	// Variants are "kind" or "kind/unit" entries. A bare temperature,
	// humidity or pressure kind takes its unit from UnitConfig.
	Variants     []string `mapstructure:"variants"`
	HistoryHours int      `mapstructure:"history_hours"`
	ShowAll      bool     `mapstructure:"show_all"`
	ShowStats    bool     `mapstructure:"show_stats"`
	PollInterval int      `mapstructure:"poll_interval"`
}

type UnitConfig struct {
	Temperature string `mapstructure:"temperature"`
	Humidity    string `mapstructure:"humidity"`
	Pressure    string `mapstructure:"pressure"`
}

type DownsamplingConfig struct {
	Threshold     int `mapstructure:"threshold"`
	BucketMinutes int `mapstructure:"bucket_minutes"`
	MaxPoints     int `mapstructure:"max_points"`
}

type StorageConfig struct {
	Path          string `mapstructure:"path"`
	BackupDir     string `mapstructure:"backup_dir"`
	RetentionDays int    `mapstructure:"retention_days"`
	BatchSize     int    `mapstructure:"batch_size"`
	BatchTimeout  int    `mapstructure:"batch_timeout"`
	Persist       bool   `mapstructure:"persist"`
}

type MQTTConfig struct {
	Broker string `mapstructure:"broker"`
	Topic  string `mapstructure:"topic"`
	QoS    int    `mapstructure:"qos"`
}

type AMQPConfig struct {
	URL        string `mapstructure:"url"`
	Exchange   string `mapstructure:"exchange"`
	RoutingKey string `mapstructure:"routing_key"`
	Queue      string `mapstructure:"queue"`
}

type flagDef struct {
	key   string
	name  string
	value any
	usage string
}

func flagDefs() []flagDef {
	hc := history.DefaultConfig()
	sc := storage.DefaultConfig()
	mc := delivery.DefaultMQTTConfig()
	ac := delivery.DefaultAMQPConfig()

	return []flagDef{
		{"log_level", "log-level", DefaultLogLevel, "Log level (debug, info, warning, error)"},
		{"chart.sensor", "sensor", "", "Sensor ID to chart"},
		{"chart.variants", "variants", DefaultVariants, "Charted variants as kind or kind/unit"},
		{"chart.history_hours", "history-hours", DefaultHistoryHours, "Hours of history to load"},
		{"chart.show_all", "show-all", false, "Load the whole history without downsampling"},
		{"chart.show_stats", "show-stats", true, "Report visible-range statistics"},
		{"chart.poll_interval", "poll-interval", DefaultPollInterval, "Fallback poll interval in seconds (0 disables)"},
		{"units.temperature", "temperature-unit", string(measurement.UnitCelsius), "Temperature unit"},
		{"units.humidity", "humidity-unit", string(measurement.UnitRelativeHumidity), "Humidity unit"},
		{"units.pressure", "pressure-unit", string(measurement.UnitHectopascal), "Pressure unit"},
		{"downsampling.threshold", "downsample-threshold", hc.Threshold, "Record count that switches to downsampled loads"},
		{"downsampling.bucket_minutes", "bucket-minutes", hc.BucketMinutes, "Minimum downsampling bucket width in minutes"},
		{"downsampling.max_points", "max-points", hc.MaxPoints, "Maximum points of a downsampled load"},
		{"storage.path", "db", sc.DBPath, "Path to the measurement database"},
		{"storage.backup_dir", "backup-dir", "", "Directory for schema migration backups"},
		{"storage.retention_days", "retention-days", 0, "Days of records to keep (0 keeps all)"},
		{"storage.batch_size", "batch-size", sc.BatchSize, "Buffered records per write batch"},
		{"storage.batch_timeout", "batch-timeout", sc.BatchTimeout, "Write batch flush interval in seconds"},
		{"storage.persist", "persist", sc.Persist, "Persist live records"},
		{"mqtt.broker", "mqtt-broker", "", "MQTT broker host:port (empty disables)"},
		{"mqtt.topic", "mqtt-topic", mc.Topic, "MQTT topic filter"},
		{"mqtt.qos", "mqtt-qos", int(mc.QoS), "MQTT subscription QoS"},
		{"amqp.url", "amqp-url", "", "AMQP URL (empty disables)"},
		{"amqp.exchange", "amqp-exchange", ac.Exchange, "AMQP exchange"},
		{"amqp.routing_key", "amqp-routing-key", ac.RoutingKey, "AMQP routing key"},
		{"amqp.queue", "amqp-queue", "", "AMQP queue (empty declares an exclusive queue)"},
	}
}

// Load reads the configuration from flags, environment and the TOML file,
// in that order of precedence, and validates it.
func Load(args []string) (*Config, error) {
	errFactory := errors.New()

	fs := pflag.NewFlagSet(configName, pflag.ContinueOnError)
	configFile := fs.String("config", os.Getenv(envConfigFile), "Path to the configuration file")

	defs := flagDefs()
	for _, d := range defs {
		switch value := d.value.(type) {
		case string:
			fs.String(d.name, value, d.usage)
		case int:
			fs.Int(d.name, value, d.usage)
		case bool:
			fs.Bool(d.name, value, d.usage)
		case []string:
			fs.StringSlice(d.name, value, d.usage)
		}
	}

	if err := fs.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	for _, d := range defs {
		if err := v.BindPFlag(d.key, fs.Lookup(d.name)); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigType("toml")
	if *configFile != "" {
		v.SetConfigFile(*configFile)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath("/etc")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || *configFile != "" {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err).WithMessage("Failed to read config file")
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{v: v}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.New().Wrap(errors.ErrReadConfig, err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	errFactory := errors.New()

	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}
	if c.Chart.HistoryHours < 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "history hours must not be negative")
	}
	if c.Chart.PollInterval < 0 {
		return errFactory.New(errors.ErrInvalidInterval)
	}
	if c.Store.RetentionDays < 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "retention days must not be negative")
	}
	if c.MQTTSource.QoS < 0 || c.MQTTSource.QoS > 2 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "mqtt qos must be 0, 1 or 2")
	}

	if _, err := c.variants(); err != nil {
		return err
	}
	if err := c.History().Validate(); err != nil {
		return err
	}
	return c.Storage().Validate()
}

// variants parses the charted variants, applying the unit preferences to
// bare temperature, humidity and pressure kinds.
func (c *Config) variants() ([]measurement.Variant, error) {
	errFactory := errors.New()

	preferred := map[measurement.Kind]measurement.Unit{
		measurement.KindTemperature: measurement.Unit(c.Units.Temperature),
		measurement.KindHumidity:    measurement.Unit(c.Units.Humidity),
		measurement.KindPressure:    measurement.Unit(c.Units.Pressure),
	}
	for kind, unit := range preferred {
		if v := (measurement.Variant{Kind: kind, Unit: unit}); !v.Valid() {
			return nil, errFactory.WithData(errors.ErrInvalidUnit, v.String())
		}
	}

	variants := make([]measurement.Variant, 0, len(c.Chart.Variants))
	for _, s := range c.Chart.Variants {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if unit, ok := preferred[measurement.Kind(s)]; ok {
			variants = append(variants, measurement.Variant{Kind: measurement.Kind(s), Unit: unit})
			continue
		}
		v, err := measurement.ParseVariant(s)
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	if len(variants) == 0 {
		return nil, errFactory.WithMessage(errors.ErrInvalidConfig, "at least one variant is required")
	}
	return variants, nil
}

func (c *Config) ChartSettings() (chart.Settings, error) {
	variants, err := c.variants()
	if err != nil {
		return chart.Settings{}, err
	}
	s := chart.Settings{
		SensorID:     c.Chart.Sensor,
		Variants:     variants,
		HistoryHours: c.Chart.HistoryHours,
		ShowAll:      c.Chart.ShowAll,
	}
	return s, s.Validate()
}

func (c *Config) IsShowStats() bool     { return c.Chart.ShowStats }
func (c *Config) GetPollInterval() int  { return c.Chart.PollInterval }
func (c *Config) GetLogLevel() string   { return c.LogLevel }
func (c *Config) GetRetentionDays() int { return c.Store.RetentionDays }

func (c *Config) History() history.Config {
	return history.Config{
		Threshold:     c.Downsampling.Threshold,
		BucketMinutes: c.Downsampling.BucketMinutes,
		MaxPoints:     c.Downsampling.MaxPoints,
	}
}

func (c *Config) Storage() storage.Config {
	cfg := storage.DefaultConfig()
	cfg.DBPath = c.Store.Path
	cfg.BackupDir = c.Store.BackupDir
	cfg.BatchSize = c.Store.BatchSize
	cfg.BatchTimeout = c.Store.BatchTimeout
	cfg.Persist = c.Store.Persist
	return cfg
}

func (c *Config) MQTT() (delivery.MQTTConfig, bool) {
	cfg := delivery.DefaultMQTTConfig()
	cfg.Broker = c.MQTTSource.Broker
	cfg.Topic = c.MQTTSource.Topic
	cfg.QoS = byte(c.MQTTSource.QoS)
	return cfg, cfg.Broker != ""
}

func (c *Config) AMQP() (delivery.AMQPConfig, bool) {
	cfg := delivery.DefaultAMQPConfig()
	cfg.URL = c.AMQPSource.URL
	cfg.Exchange = c.AMQPSource.Exchange
	cfg.RoutingKey = c.AMQPSource.RoutingKey
	cfg.Queue = c.AMQPSource.Queue
	return cfg, cfg.URL != ""
}

// File returns the configuration file in use, if any.
func (c *Config) File() string {
	if c.v == nil {
		return ""
	}
	return c.v.ConfigFileUsed()
}

// Watch reloads the configuration when its file changes. Invalid changes
// are logged and skipped. Callbacks stop once ctx is done.
func (c *Config) Watch(ctx context.Context, callback func(Provider)) error {
	if c.File() == "" {
		return errors.New().WithMessage(errors.ErrInvalidOperation, "no configuration file to watch")
	}

	c.v.OnConfigChange(func(e fsnotify.Event) {
		if ctx.Err() != nil {
			return
		}
		next, err := decode(c.v)
		if err != nil {
			logger.Warn().Err(err).Str("file", e.Name).Msg("Ignoring invalid configuration change")
			return
		}
		logger.Info().Str("file", e.Name).Msg("Configuration reloaded")
		callback(next)
	})
	c.v.WatchConfig()

	return nil
}
