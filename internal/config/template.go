package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultTemplatePath = "config.toml"
	templateFileMode    = 0o600
	tempFilePattern     = ".config-*.toml.tmp"
)

var ErrTemplateExists = errors.New("config file already exists")

type templateSchema struct {
	Username       string `toml:"USERNAME"`
	Password       string `toml:"PASSWORD"`
	TelegramID     string `toml:"TELEGRAM_ID"`
	TelegramToken  string `toml:"TELEGRAM_TOKEN"`
	StationID      string `toml:"STATION_ID"`
	EntryTime      string `toml:"ENTRY_TIME"`
	ExitTime       string `toml:"EXIT_TIME"`
	Seats          []int  `toml:"SEATS"`
	BaseURL        string `toml:"BASE_URL"`
	WindowDays     int    `toml:"WINDOW_DAYS"`
	HTTPTimeout    string `toml:"HTTP_TIMEOUT"`
	RetryAttempts  int    `toml:"RETRY_ATTEMPTS"`
	RetryBaseDelay string `toml:"RETRY_BASE_DELAY"`
	UTCOffsetHours int    `toml:"UTC_OFFSET_HOURS"`
	LogFile        string `toml:"LOG_FILE"`
	LogLevel       string `toml:"LOG_LEVEL"`
}

// WriteTemplate writes a TOML config holding the defaults and empty
// credentials. An existing file is only replaced when force is set.
func WriteTemplate(path string, force bool) error {
	if path == "" {
		path = DefaultTemplatePath
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrTemplateExists, path)
		}
	}

	d := Defaults()
	data, err := toml.Marshal(templateSchema{
		StationID:      d.StationID,
		EntryTime:      d.EntryTime,
		ExitTime:       d.ExitTime,
		Seats:          d.Seats,
		BaseURL:        d.BaseURL,
		WindowDays:     d.WindowDays,
		HTTPTimeout:    d.HTTPTimeout.String(),
		RetryAttempts:  d.RetryAttempts,
		RetryBaseDelay: d.RetryBaseDelay.String(),
		UTCOffsetHours: d.UTCOffsetHours,
		LogFile:        d.LogFile,
		LogLevel:       d.LogLevel,
	})
	if err != nil {
		return fmt.Errorf("encode config template: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	tempFile, err := os.CreateTemp(dir, tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp config file: %w", err)
	}
	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp config file: %w", err)
	}
	if err := tempFile.Chmod(templateFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp config file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp config file: %w", err)
	}
	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("replace config file: %w", err)
	}
	cleanup = false
	return nil
}
