package hooks

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

// quietLogger returns a logger that discards everything.
func quietLogger(t *testing.T) *logrus.Entry {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.DebugLevel)
	return logrus.NewEntry(logger)
}
