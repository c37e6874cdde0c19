// Package logging builds the process logger: a text log file at the
// configured level with warnings and errors mirrored to stderr.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Options struct {
	// File is appended to. Empty means log straight to Stderr.
	File   string
	Level  string
	Stderr io.Writer
}

// New returns the logger and a close func for its file.
func New(opts Options) (*logrus.Logger, func() error, error) {
	level := logrus.InfoLevel
	if opts.Level != "" {
		var err error
		if level, err = logrus.ParseLevel(opts.Level); err != nil {
			return nil, nil, err
		}
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		DisableColors: true,
	})
	logger.SetLevel(level)

	if opts.File == "" {
		logger.SetOutput(stderr)
		return logger, func() error { return nil }, nil
	}

	f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger.SetOutput(f)
	logger.AddHook(&mirrorHook{out: stderr, formatter: &logrus.TextFormatter{FullTimestamp: true}})
	return logger, f.Close, nil
}

// NewRunID tags every line of one run.
func NewRunID() string { return uuid.NewString() }

// WithRun scopes logger to a fresh run id.
func WithRun(logger logrus.FieldLogger) (*logrus.Entry, string) {
	id := NewRunID()
	return logger.WithField("run_id", id), id
}

type mirrorHook struct {
	out       io.Writer
	formatter logrus.Formatter
}

func (h *mirrorHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel}
}

func (h *mirrorHook) Fire(e *logrus.Entry) error {
	b, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	_, err = h.out.Write(b)
	return err
}
