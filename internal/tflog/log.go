// Package tflog provides the process-wide structured logger used by the
// compiler passes and the buffer pool to trace what they do.
package tflog

import (
	"os"

	"github.com/rs/zerolog"
	logger "github.com/rs/zerolog/log"
)

// Log is the package-level logger, console-formatted with caller info.
var Log = logger.With().Caller().Logger().Output(zerolog.ConsoleWriter{Out: os.Stderr})

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
}
