// Package logging configures the shared logrus instance.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds the application logger. Invalid levels fall back to info.
func New(level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
		log.Warnf("invalid log level %q, using info", level)
	}
	log.SetLevel(parsed)

	return log
}
