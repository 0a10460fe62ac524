package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New returns the process logger. dev gets a human readable console writer.
func New(env, service string) zerolog.Logger {
	return newLogger(os.Stdout, env, service)
}

func newLogger(w io.Writer, env, service string) zerolog.Logger {
	if env == "dev" || env == "development" {
		w = zerolog.ConsoleWriter{Out: w, NoColor: true}
	}
	return zerolog.New(w).With().Timestamp().Str("service", service).Logger()
}
