package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New creates a zerolog.Logger configured for the runtime environment.
// Inside CodeBuild or Lambda it writes JSON; in a terminal it uses console
// format. LOG_LEVEL overrides the default info level.
func New() zerolog.Logger {
	return NewWithWriter(os.Stdout)
}

func NewWithWriter(out io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if parsed, err := zerolog.ParseLevel(v); err == nil {
			level = parsed
		}
	}

	if !structured() {
		out = zerolog.ConsoleWriter{Out: out}
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger()
}

func structured() bool {
	return os.Getenv("CODEBUILD_BUILD_ID") != "" || os.Getenv("AWS_LAMBDA_RUNTIME_API") != ""
}
