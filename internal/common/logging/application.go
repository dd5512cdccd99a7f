package logging

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/weaveworks/promrus"
)

const RFC3339Milli = "2006-01-02T15:04:05.000Z07:00"

// ConfigureApplicationLogging sets up the standard logrus logger for a long-running application.
func ConfigureApplicationLogging(config Config) error {
	if err := config.validate(); err != nil {
		return err
	}
	level, err := parseLogLevel(config.Level)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	log.SetOutput(os.Stdout)
	log.SetFormatter(newFormatter(config.Format))

	if config.CountByLevel {
		hook, err := promrus.NewPrometheusHook()
		if err != nil {
			return errors.WithMessage(err, "error creating prometheus log hook")
		}
		log.AddHook(hook)
	}
	return nil
}

// ConfigureCommandLineLogging sets up logging suitable for a command line tool, i.e., plain messages on stdout.
func ConfigureCommandLineLogging() {
	log.SetFormatter(new(CommandLineFormatter))
	log.SetOutput(os.Stdout)
}

func newFormatter(format string) log.Formatter {
	if strings.ToLower(format) == "json" {
		return &log.JSONFormatter{TimestampFormat: RFC3339Milli}
	}
	return &log.TextFormatter{FullTimestamp: true, TimestampFormat: RFC3339Milli}
}
