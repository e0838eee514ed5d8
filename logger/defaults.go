package logger

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"sync"

	"github.com/rs/zerolog"
)

type DefaultLogger struct{}

var Default Logger = &DefaultLogger{}

var (
	once   sync.Once
	logger zerolog.Logger
)

// base initialises the zerolog logger exactly once. The level comes from
// LOG_LEVEL (default info); DEBUG=true is kept as a shorthand for debug level.
func base() *zerolog.Logger {
	once.Do(func() {
		level := zerolog.InfoLevel
		if env := os.Getenv("LOG_LEVEL"); env != "" {
			if parsed, err := zerolog.ParseLevel(env); err == nil {
				level = parsed
			}
		}
		if os.Getenv("DEBUG") == "true" {
			level = zerolog.DebugLevel
		}

		var out io.Writer = zerolog.ConsoleWriter{Out: os.Stdout}
		logger = zerolog.New(out).Level(level).With().Timestamp().Logger()
	})
	return &logger
}

var urlRegex = regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9+.-]*:\/\/[a-zA-Z0-9+%/.\-:_?&=#@+]+`)

func cleanString(text string) string {
	return urlRegex.ReplaceAllString(text, "[redacted url]")
}

func safeLogf(format string, v ...any) string {
	safeString := fmt.Sprintf(format, v...)
	if os.Getenv("SAFE_LOGS") == "true" {
		return cleanString(safeString)
	}
	return safeString
}

func (*DefaultLogger) Log(format string) {
	base().Info().Msg(safeLogf("%s", format))
}

func (*DefaultLogger) Logf(format string, v ...any) {
	base().Info().Msg(safeLogf(format, v...))
}

func (*DefaultLogger) Debug(format string) {
	base().Debug().Msg(safeLogf("%s", format))
}

func (*DefaultLogger) Debugf(format string, v ...any) {
	base().Debug().Msg(safeLogf(format, v...))
}

func (*DefaultLogger) Error(format string) {
	base().Error().Msg(safeLogf("%s", format))
}

func (*DefaultLogger) Errorf(format string, v ...any) {
	base().Error().Msg(safeLogf(format, v...))
}

func (*DefaultLogger) Warn(format string) {
	base().Warn().Msg(safeLogf("%s", format))
}

func (*DefaultLogger) Warnf(format string, v ...any) {
	base().Warn().Msg(safeLogf(format, v...))
}

func (*DefaultLogger) Fatal(format string) {
	base().Fatal().Msg(safeLogf("%s", format))
}

func (*DefaultLogger) Fatalf(format string, v ...any) {
	base().Fatal().Msg(safeLogf(format, v...))
}
