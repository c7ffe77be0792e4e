package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Setup configures the global logrus logger. An unknown level falls back to
// info and is reported once the logger is ready.
func Setup(level string, json bool, out io.Writer) {
	if out != nil {
		logrus.SetOutput(out)
	}
	if json {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logrus.SetLevel(parsed)
	if err != nil {
		logrus.WithField("level", level).Warn("unknown log level, using info")
	}
}

// For returns an entry tagged with the component name.
func For(component string) *logrus.Entry {
	return logrus.WithField("component", component)
}
