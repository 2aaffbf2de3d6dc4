package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")

	logger, err := NewLogger(Options{Service: "minishop-fashion", Env: "test", File: path})
	require.NoError(t, err)

	logger.Info("hello")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"service":"minishop-fashion"`)
}

func TestNewLogger_RejectsUnknownLevel(t *testing.T) {
	_, err := NewLogger(Options{Service: "svc", Level: "loud"})
	assert.Error(t, err)
}
