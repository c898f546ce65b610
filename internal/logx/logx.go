package logx

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type ctxKey string

const loggerKey ctxKey = "logger"

type Config struct {
	Level  string    `koanf:"level"`
	Format string    `koanf:"format"`
	Output io.Writer `koanf:"-"`
}

var base = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init configures the process logger. Format "console" gives human readable
// output, anything else emits JSON lines.
func Init(cfg Config) {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339
	base = zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Logger returns the process logger.
func Logger() *zerolog.Logger {
	return &base
}

// Component returns a child logger tagged with the component name.
func Component(name string) *zerolog.Logger {
	l := base.With().Str("component", name).Logger()
	return &l
}

func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

func FromContext(ctx context.Context) *zerolog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zerolog.Logger); ok {
		return logger
	}
	return &base
}
