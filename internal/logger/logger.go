package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup installs the global logger. Debug mode writes human-readable lines
// at debug level; otherwise JSON at info level.
func Setup(debug bool) {
	SetupWriter(os.Stdout, debug)
}

func SetupWriter(w io.Writer, debug bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	if debug {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}
