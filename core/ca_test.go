package core

import (
	"clipwatch/logger"
	"crypto/x509"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndLoadCA(t *testing.T) {
	logger.SetOutput(io.Discard)
	dir := t.TempDir()
	certPath := filepath.Join(dir, "ca", "ca.crt")
	keyPath := filepath.Join(dir, "ca", "ca.key")

	require.NoError(t, GenerateAndSaveCA(certPath, keyPath))

	info, err := os.Stat(keyPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	ca, err := LoadCA(certPath, keyPath)
	require.NoError(t, err)
	require.NotNil(t, ca.Leaf)
	assert.True(t, ca.Leaf.IsCA)
	assert.Equal(t, caCommonName, ca.Leaf.Subject.CommonName)
	assert.NotZero(t, ca.Leaf.KeyUsage&x509.KeyUsageCertSign)
}

func TestLoadCAErrors(t *testing.T) {
	logger.SetOutput(io.Discard)
	dir := t.TempDir()

	_, err := LoadCA(filepath.Join(dir, "missing.crt"), filepath.Join(dir, "missing.key"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.crt")
	require.NoError(t, os.WriteFile(bad, []byte("not pem"), 0600))
	_, err = LoadCA(bad, bad)
	assert.Error(t, err)
}
