package util

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Operator/debug log. Structured console output on stderr so it never
// interleaves with the interactive UI on stdout.
var logger = zerolog.New(zerolog.ConsoleWriter{
	Out:        os.Stderr,
	TimeFormat: "02 Jan 15:04:05",
}).Level(zerolog.InfoLevel).With().Timestamp().Logger()

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}

// Leveled logging functions. All output goes to stderr.

func LogDebug(format string, args ...interface{}) {
	logger.Debug().Msg(fmt.Sprintf(format, args...))
}

func LogInfo(format string, args ...interface{}) {
	logger.Info().Msg(fmt.Sprintf(format, args...))
}

func LogWarning(format string, args ...interface{}) {
	logger.Warn().Msg(fmt.Sprintf(format, args...))
}

func LogError(format string, args ...interface{}) {
	logger.Error().Msg(fmt.Sprintf(format, args...))
}

// EnableDebug configures the logger to show debug messages.
func EnableDebug() {
	logger = logger.Level(zerolog.DebugLevel)
}
