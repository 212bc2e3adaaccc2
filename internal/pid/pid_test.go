package pid_test

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"codeberg.org/mutker/sensorchart/internal/errors"
	"codeberg.org/mutker/sensorchart/internal/pid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sensorchart.pid")

	require.NoError(t, pid.Write(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))

	// Rewriting our own PID file is not a conflict.
	require.NoError(t, pid.Write(path))

	require.NoError(t, pid.Remove(path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	require.NoError(t, pid.Remove(path))
}

func TestWriteAlreadyRunning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sensorchart.pid")
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(os.Getppid())), 0o600))

	running, err := pid.Running(path)
	require.NoError(t, err)
	assert.True(t, running)

	err = pid.Write(path)
	assert.True(t, errors.HasCode(err, errors.ErrAlreadyRunning))
}

func TestWriteStale(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{name: "garbage", contents: "not a pid"},
		{name: "negative", contents: "-4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "sensorchart.pid")
			require.NoError(t, os.WriteFile(path, []byte(tt.contents), 0o600))

			require.NoError(t, pid.Write(path))
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))
		})
	}
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, "sensorchart.pid", filepath.Base(pid.DefaultPath()))
}
