package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsDefinitionFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"a.cue", true},
		{"a.yaml", true},
		{"A.YML", true},
		{"defs/a.json", true},
		{"a.txt", false},
		{"cue", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDefinitionFile(tt.path))
		})
	}
}

func TestLoadFile_CUE(t *testing.T) {
	defs, err := LoadFile(filepath.Join("testdata", "alert.cue"))
	require.NoError(t, err)
	require.Len(t, defs, 1)

	c := defs[0]
	assert.Equal(t, "error_alert", c.ID)
	assert.Equal(t, "error", c.On)
	assert.True(t, c.Interrupts)
	require.Len(t, c.Steps, 2)
	assert.Equal(t, "playSound", c.Steps[1].OnArrive[0].Action)
	assert.Empty(t, Validate(c))
}

func TestLoadFiles_Order(t *testing.T) {
	defs, err := LoadFiles(
		filepath.Join("testdata", "dispatch.yaml"),
		filepath.Join("testdata", "alert.cue"),
		filepath.Join("testdata", "extras.json"),
	)
	require.NoError(t, err)
	require.Len(t, defs, 3)
	assert.Equal(t, "task_dispatch", defs[0].ID)
	assert.Equal(t, "error_alert", defs[1].ID)
	assert.Equal(t, "fatal_shake", defs[2].ID)
	assert.Empty(t, ValidateAll(defs))
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadFile_Unsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "defs.toml")
	require.NoError(t, os.WriteFile(path, []byte("x = 1"), 0o644))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported definition file")
}

func TestLoadFile_CUEError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.cue")
	require.NoError(t, os.WriteFile(path, []byte(`choreography: x: {steps: []}`), 0o644))

	_, err := LoadFile(path)
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "on", ce.Field)
}
