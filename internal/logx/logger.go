package logx

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const Production = "production"

type Options struct {
	Environment string
	Debug       bool
}

// Init configures the global logger. Production logs JSON at info level,
// anything else gets a console writer with caller info.
func Init(opts Options) {
	if opts.Environment == Production {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger().Level(zerolog.InfoLevel)
	} else {
		log.Logger = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Caller().Logger()
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}
	if opts.Debug {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	}
}

// With returns a child logger tagged with component.
func With(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}

func Debug() *zerolog.Event {
	return log.Debug()
}

func Info() *zerolog.Event {
	return log.Info()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

func Error() *zerolog.Event {
	return log.Error()
}
