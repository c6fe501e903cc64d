package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPersistentServerID_Override(t *testing.T) {
	assert.Equal(t, "node-1", GetPersistentServerID("node-1", t.TempDir()))
}

func TestGetPersistentServerID_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".server_id"), []byte("chisa-saved\n"), 0644))

	assert.Equal(t, "chisa-saved", GetPersistentServerID("", dir))
}

func TestPanicIfNeeded(t *testing.T) {
	assert.NotPanics(t, func() { PanicIfNeeded(nil) })
	assert.Panics(t, func() { PanicIfNeeded(assert.AnError) })
}
