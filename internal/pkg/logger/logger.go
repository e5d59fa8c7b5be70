package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New builds the process logger. Production and staging emit JSON, everything
// else gets human-readable text.
func New(level, env string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		l.SetLevel(logrus.InfoLevel)
		l.Warnf("invalid log level %q, defaulting to info", level)
	} else {
		l.SetLevel(lvl)
	}

	switch strings.ToLower(env) {
	case "production", "staging":
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	}
	return l
}

// Discard returns a logger that drops everything. Used as the zero value for optional loggers.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// CronAdapter satisfies cron.Logger on top of logrus.
type CronAdapter struct {
	Log logrus.FieldLogger
}

func (a CronAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.Log.WithFields(kvFields(keysAndValues)).Debug(msg)
}

func (a CronAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	a.Log.WithFields(kvFields(keysAndValues)).WithError(err).Error(msg)
}

func kvFields(kv []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			continue
		}
		f[k] = kv[i+1]
	}
	return f
}
