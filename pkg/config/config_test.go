package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/SapphireAmoeba5/rasm/pkg/config"
	"github.com/SapphireAmoeba5/rasm/pkg/linker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScript_DefaultWhenNothingSupplied(t *testing.T) {
	steps, err := config.LoadScript("")
	require.NoError(t, err)
	assert.Equal(t, linker.DefaultScript(), steps)
}

func TestLoadScript_FromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- .entry\n- .text\n- \"*\"\n"), 0o644))

	steps, err := config.LoadScript(path)
	require.NoError(t, err)
	require.Len(t, steps, 3)
	assert.Equal(t, ".entry", steps[0].Name)
	assert.True(t, steps[2].Wildcard())
}

func TestLoadScript_EmptyYAMLFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.yaml")
	require.NoError(t, os.WriteFile(path, []byte("[]\n"), 0o644))

	_, err := config.LoadScript(path)
	assert.ErrorIs(t, err, config.ErrEmptyScript)
}

func TestLoadScript_WrongShapeFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.yaml")
	require.NoError(t, os.WriteFile(path, []byte("entry: true\n"), 0o644))

	_, err := config.LoadScript(path)
	assert.ErrorIs(t, err, config.ErrInvalidScript)
}
