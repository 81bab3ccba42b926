package logutil

import (
	"io"
	"os"

	"cloud.google.com/go/compute/metadata"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ConfigureLogger sets up the global logger on stderr so stdout only
// carries the converted trees. Unknown levels fall back to info.
func ConfigureLogger(level string) {
	configureLogger(os.Stderr, level, metadata.OnGCE())
}

func configureLogger(w io.Writer, level string, onGCE bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if onGCE {
		log.Logger = zerolog.New(w).With().Timestamp().Logger().Hook(ErrorHook{})
	} else {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	}
	log.Logger = log.Sample(LevelSampler{Level: lvl})
	if err != nil {
		log.Warn().Str("level", level).Msg("unknown log level, using info")
	}
}

type ErrorHook struct{}

func (h ErrorHook) Run(e *zerolog.Event, level zerolog.Level, _ string) {
	e.Str("severity", level.String())
}

// LevelSampler drops events below Level.
type LevelSampler struct {
	Level zerolog.Level
}

func (l LevelSampler) Sample(lvl zerolog.Level) bool {
	return lvl >= l.Level
}
