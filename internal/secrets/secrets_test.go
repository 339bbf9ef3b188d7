package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSecret(t *testing.T) {
	t.Run("file wins over env", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "key")
		require.NoError(t, os.WriteFile(path, []byte("  from-file\n"), 0o600))
		t.Setenv("WW_TEST_KEY_FILE", path)
		t.Setenv("WW_TEST_KEY", "from-env")

		v, err := GetSecret("WW_TEST_KEY", "default")
		require.NoError(t, err)
		assert.Equal(t, "from-file", v)
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv("WW_TEST_KEY", "from-env")
		v, err := GetSecret("WW_TEST_KEY", "default")
		require.NoError(t, err)
		assert.Equal(t, "from-env", v)
	})

	t.Run("default", func(t *testing.T) {
		v, err := GetSecret("WW_TEST_UNSET", "default")
		require.NoError(t, err)
		assert.Equal(t, "default", v)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Setenv("WW_TEST_KEY_FILE", filepath.Join(t.TempDir(), "nope"))
		_, err := GetSecret("WW_TEST_KEY", "")
		assert.Error(t, err)
		assert.Equal(t, "fallback", GetOptionalSecret("WW_TEST_KEY", "fallback"))
	})
}
