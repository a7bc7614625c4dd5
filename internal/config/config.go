package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/alarm-clock/internal/logger"
)

// Config holds the settings shared by the CLI and the daemon.
type Config struct {
	// LogLevel is the minimum level of log messages.
	LogLevel string `yaml:"log_level,omitempty"`
	// Timezone is the IANA zone alarms without their own zone are resolved in.
	Timezone string `yaml:"timezone,omitempty"`
	// Store selects where alarms are persisted.
	Store StoreConfig `yaml:"store"`
	// Playback configures sources and the audio output.
	Playback PlaybackConfig `yaml:"playback"`
	// Stream configures the remote streaming provider.
	Stream StreamConfig `yaml:"stream,omitempty"`
	// Control configures the daemon's gRPC control endpoint.
	Control ControlConfig `yaml:"control"`
	// MQTT configures the playback state publisher. Empty broker disables it.
	MQTT MQTTConfig `yaml:"mqtt,omitempty"`
	// Metrics configures the Prometheus endpoint. Empty address disables it.
	Metrics MetricsConfig `yaml:"metrics,omitempty"`
	// Sentry configures escalation of scheduling failures. Empty DSN disables it.
	Sentry SentryConfig `yaml:"sentry,omitempty"`
	// Scheduler tunes re-arm retries.
	Scheduler SchedulerConfig `yaml:"scheduler,omitempty"`
}

// StoreConfig selects the alarm repository.
type StoreConfig struct {
	// Driver is "file" (YAML) or "sqlite".
	Driver string `yaml:"driver"`
	// Path is the YAML file or the SQLite database path.
	Path string `yaml:"path"`
}

// PlaybackConfig configures the playback controller and local sources.
type PlaybackConfig struct {
	// PrepareTimeout bounds how long a source may take to become ready.
	PrepareTimeout time.Duration `yaml:"prepare_timeout"`
	// SoundsDir holds additional <name>.wav tones.
	SoundsDir string `yaml:"sounds_dir,omitempty"`
	// Output is "auto", "device", "bell" or "silent".
	Output string `yaml:"output"`
	// DefaultTone is used by the CLI when no tone is given.
	DefaultTone string `yaml:"default_tone"`
	// RingDuration is how long an alarm sounds when it has no duration of its own.
	RingDuration time.Duration `yaml:"ring_duration"`
}

// StreamConfig configures the streaming provider client.
type StreamConfig struct {
	// Endpoint is the base URL of the provider's playback API.
	Endpoint string `yaml:"endpoint,omitempty"`
	// Device identifies the speaker the provider should play on.
	Device string `yaml:"device,omitempty"`
	// Token is the bearer token. ALARM_CLOCK_STREAM_TOKEN overrides it.
	Token string `yaml:"token,omitempty"`
}

// ControlConfig configures the daemon control channel.
type ControlConfig struct {
	// Address is the host:port the daemon listens on.
	Address string `yaml:"address"`
	// Timeout bounds every control call made by the CLI.
	Timeout time.Duration `yaml:"timeout"`
}

// MQTTConfig configures the observer publisher.
type MQTTConfig struct {
	// Broker is the broker URL, for example tcp://localhost:1883.
	Broker string `yaml:"broker,omitempty"`
	// ClientID identifies the daemon to the broker.
	ClientID string `yaml:"client_id,omitempty"`
	// TopicPrefix is prepended to every topic.
	TopicPrefix string `yaml:"topic_prefix,omitempty"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Address is the host:port /metrics is served on.
	Address string `yaml:"address,omitempty"`
}

// SentryConfig configures error escalation.
type SentryConfig struct {
	// DSN is the project DSN. ALARM_CLOCK_SENTRY_DSN overrides it.
	DSN string `yaml:"dsn,omitempty"`
	// Environment tags every event.
	Environment string `yaml:"environment,omitempty"`
}

// SchedulerConfig tunes the trigger scheduler.
type SchedulerConfig struct {
	// RetryMaxElapsed bounds how long a failed arm is retried.
	RetryMaxElapsed time.Duration `yaml:"retry_max_elapsed,omitempty"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "alarm-clock-settings.yaml"
	// DefaultStoreFilename is the default path of the YAML alarm store.
	DefaultStoreFilename = "alarm-clock-alarms.yaml"
	// DefaultSQLiteFilename is the default path of the SQLite alarm store.
	DefaultSQLiteFilename = "alarm-clock.db"
	// DefaultPIDFilename is where the daemon records its process id.
	DefaultPIDFilename = "alarm-clock.pid"
	// DefaultControlAddress is the default gRPC control address.
	DefaultControlAddress = "127.0.0.1:7450"
	// DefaultTimeout is the default duration of control calls.
	DefaultTimeout = 5 * time.Second
	// DefaultPrepareTimeout bounds source preparation.
	DefaultPrepareTimeout = 5 * time.Second
	// DefaultRingDuration is how long an alarm sounds before it stops by itself.
	DefaultRingDuration = 30 * time.Second
	// DefaultRetryMaxElapsed bounds arm retries.
	DefaultRetryMaxElapsed = 30 * time.Second
	// DefaultTopicPrefix is the MQTT topic prefix.
	DefaultTopicPrefix = "alarm-clock"
	// DefaultClientID is the MQTT client id.
	DefaultClientID = "alarm-clock"
	// DefaultToneName is the tone used when none is configured.
	DefaultToneName = "default"
	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// StoreDriverFile keeps alarms in a YAML file.
	StoreDriverFile = "file"
	// StoreDriverSQLite keeps alarms in a SQLite database.
	StoreDriverSQLite = "sqlite"

	// OutputAuto uses the audio device and falls back to the terminal bell.
	OutputAuto = "auto"
	// OutputDevice uses the audio device only.
	OutputDevice = "device"
	// OutputBell rings the terminal bell.
	OutputBell = "bell"
	// OutputSilent discards audio.
	OutputSilent = "silent"

	// EnvStreamToken overrides Stream.Token.
	EnvStreamToken = "ALARM_CLOCK_STREAM_TOKEN"
	// EnvSentryDSN overrides Sentry.DSN.
	EnvSentryDSN = "ALARM_CLOCK_SENTRY_DSN"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errUnknownDriver is returned for an unsupported store driver.
	errUnknownDriver = errors.New("unknown store driver")
	// errUnknownOutput is returned for an unsupported playback output.
	errUnknownOutput = errors.New("unknown playback output")
	// errInvalidRingDuration is returned for a negative ring duration.
	errInvalidRingDuration = errors.New("ring duration must not be negative")
)

// Default returns a configuration with every default filled in.
func Default() *Config {
	cfg := new(Config)

	// Defaults never fail validation.
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates it.
// A missing file yields the defaults so the CLI works out of the box.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	var cfg Config

	contents, err := os.ReadFile(filepath.Clean(path))

	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read settings: %w", err)
	default:
		if err = yaml.Unmarshal(contents, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	}

	applyEnv(&cfg)

	if err = Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions, the file may carry tokens.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the settings and fills defaults for omitted fields.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}

	if cfg.Timezone != "" && cfg.Timezone != "Local" {
		if _, err := time.LoadLocation(cfg.Timezone); err != nil {
			return fmt.Errorf("invalid timezone: %w", err)
		}
	}

	if err := validateStore(&cfg.Store); err != nil {
		return err
	}

	if err := validatePlayback(&cfg.Playback); err != nil {
		return err
	}

	if cfg.Stream.Endpoint != "" {
		if _, err := url.ParseRequestURI(cfg.Stream.Endpoint); err != nil {
			return fmt.Errorf("invalid stream endpoint: %w", err)
		}
	}

	if cfg.Control.Address == "" {
		cfg.Control.Address = DefaultControlAddress
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.Control.Address); err != nil {
		return fmt.Errorf("invalid control address: %w", err)
	}

	if cfg.Control.Timeout <= 0 {
		cfg.Control.Timeout = DefaultTimeout
	}

	if cfg.MQTT.Broker != "" {
		if _, err := url.Parse(cfg.MQTT.Broker); err != nil {
			return fmt.Errorf("invalid mqtt broker: %w", err)
		}
	}

	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = DefaultClientID
	}

	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = DefaultTopicPrefix
	}

	if cfg.Scheduler.RetryMaxElapsed <= 0 {
		cfg.Scheduler.RetryMaxElapsed = DefaultRetryMaxElapsed
	}

	return nil
}

func validateStore(store *StoreConfig) error {
	if store.Driver == "" {
		store.Driver = StoreDriverFile
	}

	switch store.Driver {
	case StoreDriverFile:
		if store.Path == "" {
			store.Path = DefaultStoreFilename
		}
	case StoreDriverSQLite:
		if store.Path == "" {
			store.Path = DefaultSQLiteFilename
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownDriver, store.Driver)
	}

	return nil
}

func validatePlayback(playback *PlaybackConfig) error {
	if playback.PrepareTimeout <= 0 {
		playback.PrepareTimeout = DefaultPrepareTimeout
	}

	if playback.RingDuration < 0 {
		return fmt.Errorf("%w: %s", errInvalidRingDuration, playback.RingDuration)
	}

	if playback.RingDuration == 0 {
		playback.RingDuration = DefaultRingDuration
	}

	if playback.Output == "" {
		playback.Output = OutputAuto
	}

	switch playback.Output {
	case OutputAuto, OutputDevice, OutputBell, OutputSilent:
	default:
		return fmt.Errorf("%w: %q", errUnknownOutput, playback.Output)
	}

	if playback.DefaultTone == "" {
		playback.DefaultTone = DefaultToneName
	}

	return nil
}

// Location resolves the configured default timezone.
func (c *Config) Location() *time.Location {
	if c == nil || c.Timezone == "" || strings.EqualFold(c.Timezone, "Local") {
		return time.Local
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}

	return loc
}

// PIDFile returns the path of the daemon's pid file, next to the alarm store.
func (c *Config) PIDFile() string {
	return filepath.Join(filepath.Dir(c.Store.Path), DefaultPIDFilename)
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvStreamToken); v != "" {
		cfg.Stream.Token = v
	}

	if v := os.Getenv(EnvSentryDSN); v != "" {
		cfg.Sentry.DSN = v
	}
}
