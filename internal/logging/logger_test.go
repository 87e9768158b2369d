package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_JSONInCodeBuild(t *testing.T) {
	t.Setenv("CODEBUILD_BUILD_ID", "cicd:1234")
	t.Setenv("LOG_LEVEL", "debug")

	var buf bytes.Buffer
	logger := NewWithWriter(&buf)
	logger.Debug().Str("service", "acme").Msg("validated")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "acme", entry["service"])
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
}

func TestNewWithWriter_Console(t *testing.T) {
	t.Setenv("CODEBUILD_BUILD_ID", "")
	t.Setenv("AWS_LAMBDA_RUNTIME_API", "")
	t.Setenv("LOG_LEVEL", "not-a-level")

	var buf bytes.Buffer
	logger := NewWithWriter(&buf)
	logger.Info().Msg("synth")

	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
	assert.Contains(t, buf.String(), "synth")
	assert.False(t, json.Valid(buf.Bytes()))
}
