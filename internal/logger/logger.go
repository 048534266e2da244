package logger

import (
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var Global = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Configured from the environment rather than flags so cobra keeps full
// ownership of the command line:
//
//	FILA_LOG_LEVEL  debug|info|warn|error (default info)
//	FILA_LOG_OUTPUT stderr|stdout|json    (default stderr, console format)
func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if lvl := os.Getenv("FILA_LOG_LEVEL"); lvl != "" {
		if parsed, err := zerolog.ParseLevel(lvl); err == nil {
			zerolog.SetGlobalLevel(parsed)
		}
	}

	zerolog.ErrorStackMarshaler = func(err error) interface{} {
		if err == nil {
			return nil
		}
		type stackTracer interface {
			StackTrace() errors.StackTrace
		}
		if st, ok := err.(stackTracer); ok {
			return st.StackTrace()
		}
		return nil
	}

	switch os.Getenv("FILA_LOG_OUTPUT") {
	case "stdout":
		Global = Global.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	case "json":
		// Leave the raw JSON writer in place.
	default:
		Global = Global.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
