package logging

import (
	"io"
	"strings"

	"github.com/michaelquigley/pfxlog"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const trimPrefix = "github.com/hanpama/graphgate/"

// Init installs the process-wide logger. format is "text" (pfxlog's
// prefixed formatter) or "json".
func Init(level, format string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	pfxlog.GlobalInit(lvl, pfxlog.DefaultOptions().SetTrimPrefix(trimPrefix))
	switch strings.ToLower(format) {
	case "", "text":
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return errors.Errorf("unknown log format %q", format)
	}
	return nil
}

// ParseLevel accepts logrus level names; empty means info.
func ParseLevel(level string) (logrus.Level, error) {
	if level == "" {
		return logrus.InfoLevel, nil
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid log level %q", level)
	}
	return lvl, nil
}

// SetOutput redirects the global logger, mostly for tests.
func SetOutput(w io.Writer) { logrus.SetOutput(w) }
