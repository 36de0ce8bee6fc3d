package database

import (
	"clipwatch/logger"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	logger.SetOutput(io.Discard)
	require.NoError(t, InitDB(filepath.Join(t.TempDir(), "clipwatch-test.db")))
	t.Cleanup(func() { CloseDB() })
}
