package config

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	logg = newLogger(LoggingConfig{Level: "info", Format: "json"})
)

// Logger returns the process-wide logger.
func Logger() *logrus.Logger {
	return logg
}

// SetupLogger replaces the process-wide logger with one built from cfg.
func SetupLogger(cfg LoggingConfig) *logrus.Logger {
	logg = newLogger(cfg)
	return logg
}

func newLogger(cfg LoggingConfig) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)

	if strings.EqualFold(cfg.Format, "text") {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	return l
}

// LogError logs err with the module/function context fields used across the app.
func LogError(logger *logrus.Logger, moduleName string, funcName string, context string, data any, err error) {
	fields := logrus.Fields{
		"module":   moduleName,
		"funcName": funcName,
		"context":  context,
	}
	if data != nil {
		fields["data"] = data
	}
	logger.WithFields(fields).Error(err.Error())
}
