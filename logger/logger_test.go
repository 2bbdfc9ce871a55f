package logger_test

import (
	"bytes"
	"io"
	"log"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xy-planning-network/relay/logger"
)

var (
	logLevelRegexp = regexp.MustCompile(`\[[A-Z]+\]`)
	fpRegexp       = regexp.MustCompile(`logger_test\.go:\d+`)
)

func newTestLogger(w io.Writer) *log.Logger {
	return log.New(w, "", 0)
}

func TestRelayLoggerRespectsLevel(t *testing.T) {
	// Arrange
	buf := new(bytes.Buffer)
	l := logger.New(logger.WithLogger(newTestLogger(buf)), logger.WithLevel(logger.LogLevelWarn))

	// Act
	l.Debug("quiet", nil)
	l.Info("quiet", nil)
	l.Warn("loud", nil)

	// Assert
	out := buf.String()
	require.NotContains(t, out, "quiet")
	require.Contains(t, out, "loud")
	require.Regexp(t, logLevelRegexp, out)
	require.Regexp(t, fpRegexp, out)
}

func TestNewLogLevel(t *testing.T) {
	require.Equal(t, logger.LogLevelDebug, logger.NewLogLevel("DEBUG"))
	require.Equal(t, logger.LogLevelFatal, logger.NewLogLevel("FATAL"))
	require.Equal(t, logger.LogLevelUnk, logger.NewLogLevel("nonsense"))
}
