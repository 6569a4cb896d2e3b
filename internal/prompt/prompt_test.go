package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("compacts product info into the template", func(t *testing.T) {
		path := filepath.Join(dir, "product-info.json")
		require.NoError(t, os.WriteFile(path, []byte("{\n  \"name\": \"RoboMaid X2000\",\n  \"battery\": \"4 hours\"\n}\n"), 0o600))

		got, err := Load(path, "RoboMaid Assistant", "")
		require.NoError(t, err)

		assert.Contains(t, got, "You are RoboMaid Assistant")
		assert.Contains(t, got, `{"name":"RoboMaid X2000","battery":"4 hours"}`)
		assert.Contains(t, got, "Don't make up information")
	})

	t.Run("missing file falls back to empty object", func(t *testing.T) {
		got, err := Load(filepath.Join(dir, "nope.json"), "RoboMaid Assistant", "")
		require.NoError(t, err)
		assert.Contains(t, got, "Product Information:\n{}\n")
	})

	t.Run("invalid JSON falls back to empty object", func(t *testing.T) {
		path := filepath.Join(dir, "broken.json")
		require.NoError(t, os.WriteFile(path, []byte("{name:"), 0o600))

		got, err := Load(path, "RoboMaid Assistant", "")
		require.NoError(t, err)
		assert.Contains(t, got, "Product Information:\n{}\n")
	})

	t.Run("override wins", func(t *testing.T) {
		got, err := Load(filepath.Join(dir, "nope.json"), "ignored", "Answer in haiku.")
		require.NoError(t, err)
		assert.Equal(t, "Answer in haiku.", got)
	})
}
