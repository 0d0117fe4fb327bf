package main

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	guestalbum "github.com/goliatone/go-guestalbum"
	"github.com/goliatone/go-guestalbum/config"
)

// logrusLogger adapts logrus to guestalbum.Logger.
type logrusLogger struct {
	entry *logrus.Entry
}

var _ guestalbum.Logger = logrusLogger{}

func (l logrusLogger) Debug(format string, args ...any) { l.entry.Debugf(format, args...) }
func (l logrusLogger) Info(format string, args ...any)  { l.entry.Infof(format, args...) }
func (l logrusLogger) Warn(format string, args ...any)  { l.entry.Warnf(format, args...) }
func (l logrusLogger) Error(format string, args ...any) { l.entry.Errorf(format, args...) }

func (l logrusLogger) named(component string) guestalbum.Logger {
	return logrusLogger{entry: l.entry.WithField("component", component)}
}

// newLogger builds the CLI logger. Logs go to stderr so command output on
// stdout stays machine readable. A configured file is rotated by lumberjack.
func newLogger(cfg config.Log, stderr io.Writer) (logrusLogger, io.Closer, error) {
	base := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return logrusLogger{}, nil, err
	}
	base.SetLevel(level)

	if cfg.JSON {
		base.SetFormatter(&logrus.JSONFormatter{})
	} else {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	var closer io.Closer = nopCloser{}
	if stderr == nil {
		stderr = os.Stderr
	}
	base.SetOutput(stderr)

	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		}
		base.SetOutput(rotator)
		closer = rotator
	}

	return logrusLogger{entry: logrus.NewEntry(base).WithField("app", "guestalbum")}, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
