// Package config loads the scheduler configuration from an optional
// config.json / config.toml file overlaid with bare environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/seat-scheduler/internal/domain/reservation"
	"github.com/example/seat-scheduler/internal/infrastructure/crypto"
	"github.com/example/seat-scheduler/internal/infrastructure/httpx"
	"github.com/example/seat-scheduler/internal/infrastructure/istasyon"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

const configName = "config"

const (
	KeyUsername       = "USERNAME"
	KeyPassword       = "PASSWORD"
	KeyTelegramID     = "TELEGRAM_ID"
	KeyTelegramToken  = "TELEGRAM_TOKEN"
	KeyStationID      = "STATION_ID"
	KeyEntryTime      = "ENTRY_TIME"
	KeyExitTime       = "EXIT_TIME"
	KeySeats          = "SEATS"
	KeyBaseURL        = "BASE_URL"
	KeyWindowDays     = "WINDOW_DAYS"
	KeyHTTPTimeout    = "HTTP_TIMEOUT"
	KeyRetryAttempts  = "RETRY_ATTEMPTS"
	KeyRetryBaseDelay = "RETRY_BASE_DELAY"
	KeyUTCOffsetHours = "UTC_OFFSET_HOURS"
	KeyLogFile        = "LOG_FILE"
	KeyLogLevel       = "LOG_LEVEL"
	KeyCredEncKey     = "CRED_ENC_KEY"
)

var keys = []string{
	KeyUsername, KeyPassword, KeyTelegramID, KeyTelegramToken,
	KeyStationID, KeyEntryTime, KeyExitTime, KeySeats, KeyBaseURL,
	KeyWindowDays, KeyHTTPTimeout, KeyRetryAttempts, KeyRetryBaseDelay,
	KeyUTCOffsetHours, KeyLogFile, KeyLogLevel, KeyCredEncKey,
}

var ErrMissingCredentials = errors.New("USERNAME and PASSWORD are required")

type Config struct {
	Username string
	Password string

	TelegramID    string
	TelegramToken string

	StationID string
	EntryTime string
	ExitTime  string
	Seats     []int

	BaseURL        string
	WindowDays     int
	HTTPTimeout    time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration
	UTCOffsetHours int

	LogFile  string
	LogLevel string

	CredEncKey string

	// Source is the config file that was read, empty when none was found.
	Source string
}

func Defaults() Config {
	return Config{
		StationID:      "61a23dd5572db",
		EntryTime:      "11:00",
		ExitTime:       "23:00",
		Seats:          []int{34, 32, 37, 38, 32, 1},
		BaseURL:        istasyon.DefaultBaseURL,
		WindowDays:     7,
		HTTPTimeout:    httpx.DefaultTimeout,
		RetryAttempts:  3,
		RetryBaseDelay: time.Second,
		UTCOffsetHours: 3,
		LogFile:        "seatsched.log",
		LogLevel:       "info",
	}
}

// Load reads path, or config.{json,toml,...} from the working directory
// when path is empty, then applies environment overrides and opens sealed
// secrets. The result is not validated.
func Load(path string) (Config, error) {
	v := viper.New()
	d := Defaults()
	v.SetDefault(KeyStationID, d.StationID)
	v.SetDefault(KeyEntryTime, d.EntryTime)
	v.SetDefault(KeyExitTime, d.ExitTime)
	v.SetDefault(KeySeats, d.Seats)
	v.SetDefault(KeyBaseURL, d.BaseURL)
	v.SetDefault(KeyWindowDays, d.WindowDays)
	v.SetDefault(KeyHTTPTimeout, d.HTTPTimeout.String())
	v.SetDefault(KeyRetryAttempts, d.RetryAttempts)
	v.SetDefault(KeyRetryBaseDelay, d.RetryBaseDelay.String())
	v.SetDefault(KeyUTCOffsetHours, d.UTCOffsetHours)
	v.SetDefault(KeyLogFile, d.LogFile)
	v.SetDefault(KeyLogLevel, d.LogLevel)

	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	seats, err := parseSeats(v.Get(KeySeats))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", KeySeats, err)
	}
	timeout, err := cast.ToDurationE(v.Get(KeyHTTPTimeout))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", KeyHTTPTimeout, err)
	}
	backoff, err := cast.ToDurationE(v.Get(KeyRetryBaseDelay))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", KeyRetryBaseDelay, err)
	}

	cfg := Config{
		Username:       strings.TrimSpace(v.GetString(KeyUsername)),
		Password:       v.GetString(KeyPassword),
		TelegramID:     strings.TrimSpace(v.GetString(KeyTelegramID)),
		TelegramToken:  strings.TrimSpace(v.GetString(KeyTelegramToken)),
		StationID:      strings.TrimSpace(v.GetString(KeyStationID)),
		EntryTime:      strings.TrimSpace(v.GetString(KeyEntryTime)),
		ExitTime:       strings.TrimSpace(v.GetString(KeyExitTime)),
		Seats:          seats,
		BaseURL:        strings.TrimSpace(v.GetString(KeyBaseURL)),
		WindowDays:     v.GetInt(KeyWindowDays),
		HTTPTimeout:    timeout,
		RetryAttempts:  v.GetInt(KeyRetryAttempts),
		RetryBaseDelay: backoff,
		UTCOffsetHours: v.GetInt(KeyUTCOffsetHours),
		LogFile:        strings.TrimSpace(v.GetString(KeyLogFile)),
		LogLevel:       strings.ToLower(strings.TrimSpace(v.GetString(KeyLogLevel))),
		CredEncKey:     strings.TrimSpace(v.GetString(KeyCredEncKey)),
		Source:         v.ConfigFileUsed(),
	}
	if err := cfg.openSecrets(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) openSecrets() error {
	var a *crypto.AEAD
	if c.CredEncKey != "" {
		var err error
		if a, err = crypto.NewFromBase64(c.CredEncKey); err != nil {
			return err
		}
	}
	var err error
	if c.Password, err = a.Open(c.Password); err != nil {
		return fmt.Errorf("%s: %w", KeyPassword, err)
	}
	if c.TelegramToken, err = a.Open(c.TelegramToken); err != nil {
		return fmt.Errorf("%s: %w", KeyTelegramToken, err)
	}
	return nil
}

// parseSeats accepts a list (from a file) or a comma separated string
// (from the environment).
func parseSeats(raw any) ([]int, error) {
	if s, ok := raw.(string); ok {
		var out []int
		for _, part := range strings.Split(s, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := cast.ToIntE(part)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		return out, nil
	}
	if items, ok := raw.([]any); ok {
		out := make([]int, 0, len(items))
		for _, it := range items {
			n, err := cast.ToIntE(it)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		return out, nil
	}
	return cast.ToIntSliceE(raw)
}

func (c Config) Validate() error {
	if c.Username == "" || c.Password == "" {
		return ErrMissingCredentials
	}
	if (c.TelegramID == "") != (c.TelegramToken == "") {
		return fmt.Errorf("%s and %s must be set together", KeyTelegramID, KeyTelegramToken)
	}
	if c.StationID == "" {
		return fmt.Errorf("%s is required", KeyStationID)
	}
	entry, err := time.Parse("15:04", c.EntryTime)
	if err != nil {
		return fmt.Errorf("%s must be HH:MM, got %q", KeyEntryTime, c.EntryTime)
	}
	exit, err := time.Parse("15:04", c.ExitTime)
	if err != nil {
		return fmt.Errorf("%s must be HH:MM, got %q", KeyExitTime, c.ExitTime)
	}
	if !entry.Before(exit) {
		return fmt.Errorf("%s must be before %s", KeyEntryTime, KeyExitTime)
	}
	if len(c.Seats) == 0 {
		return fmt.Errorf("%s must list at least one seat", KeySeats)
	}
	for _, s := range c.Seats {
		if s <= 0 {
			return fmt.Errorf("%s: invalid seat %d", KeySeats, s)
		}
	}
	if c.WindowDays < 1 {
		return fmt.Errorf("%s must be at least 1", KeyWindowDays)
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("%s must be at least 1", KeyRetryAttempts)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("%s must be positive", KeyHTTPTimeout)
	}
	if c.RetryBaseDelay < 0 {
		return fmt.Errorf("%s must not be negative", KeyRetryBaseDelay)
	}
	if c.UTCOffsetHours < -12 || c.UTCOffsetHours > 14 {
		return fmt.Errorf("%s out of range: %d", KeyUTCOffsetHours, c.UTCOffsetHours)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%s: %w", KeyLogLevel, err)
	}
	return nil
}

func (c Config) TelegramEnabled() bool { return c.TelegramID != "" && c.TelegramToken != "" }

// Location is the fixed-offset zone all wall-clock decisions are made in.
func (c Config) Location() *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+d", c.UTCOffsetHours), c.UTCOffsetHours*3600)
}

func (c Config) Template() reservation.Template {
	return reservation.Template{StationID: c.StationID, EntryTime: c.EntryTime, ExitTime: c.ExitTime}
}

func (c Config) RetryPolicy() httpx.RetryPolicy {
	return httpx.RetryPolicy{MaxAttempts: c.RetryAttempts, BaseDelay: c.RetryBaseDelay, Multiplier: 2}
}
