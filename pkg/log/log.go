package log

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultPerms = 0o0600

//nolint:gochecknoglobals
var loggerSetTimeFormat sync.Once

// Logger extends zerolog's Logger.
type Logger struct {
	zerolog.Logger
}

// NewLogger returns the main logger, writing to stdout when output is empty.
func NewLogger(level, output string) Logger {
	loggerSetTimeFormat.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano
	})

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		panic(err)
	}

	zerolog.SetGlobalLevel(lvl)

	var log zerolog.Logger

	if output == "" {
		log = zerolog.New(os.Stdout)
	} else {
		file, err := os.OpenFile(output, os.O_APPEND|os.O_WRONLY|os.O_CREATE, defaultPerms)
		if err != nil {
			panic(err)
		}

		log = zerolog.New(file)
	}

	return Logger{Logger: log.With().Caller().Timestamp().Logger()}
}

// NewAuditLogger returns the logger recording every keep/delete decision;
// nil means auditing is disabled.
func NewAuditLogger(level, output string) *Logger {
	if output == "" {
		return nil
	}

	loggerSetTimeFormat.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano
	})

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		panic(err)
	}

	zerolog.SetGlobalLevel(lvl)

	auditFile, err := os.OpenFile(output, os.O_APPEND|os.O_WRONLY|os.O_CREATE, defaultPerms)
	if err != nil {
		panic(err)
	}

	auditLog := zerolog.New(auditFile)

	return &Logger{Logger: auditLog.With().Timestamp().Logger()}
}
