// Package logger: process-wide logger setup so every module logs with one level and format
package logger

import (
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var defaultLogger atomic.Pointer[logrus.Logger]

// Options mirrors the LOG_* configuration.
type Options struct {
	Level  string
	Format string // json|text
	File   string // optional rotating file in addition to stderr

	// Production forces JSON output whatever Format says.
	Production bool
}

// Setup builds the process logger and makes it the default.
func Setup(o Options) *logrus.Logger {
	l := logrus.New()
	lvl, err := logrus.ParseLevel(strings.ToLower(o.Level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	if o.Production || strings.EqualFold(o.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	var out io.Writer = os.Stderr
	if o.File != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     14,
			Compress:   true,
		})
	}
	l.SetOutput(out)
	defaultLogger.Store(l)
	return l
}

// L returns the default logger, falling back to an info-level text logger.
func L() *logrus.Logger {
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	return Setup(Options{})
}
