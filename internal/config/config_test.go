package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "vecstore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "default", cfg.Namespace)
	assert.Equal(t, BackendLocal, cfg.Store.Backend)
	assert.Equal(t, "vecstore_data", cfg.Store.Dir)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
namespace: chunks
store:
  backend: minio
  bucket: snapshots
  endpoint: localhost:9000
  access_key: minioadmin
  secure: true
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "chunks", cfg.Namespace)
	assert.Equal(t, BackendMinIO, cfg.Store.Backend)
	assert.Equal(t, "snapshots", cfg.Store.Bucket)
	assert.Equal(t, "localhost:9000", cfg.Store.Endpoint)
	assert.Equal(t, "minioadmin", cfg.Store.AccessKey)
	assert.True(t, cfg.Store.Secure)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeConfig(t, `
namespace: from-file
store:
  backend: s3
  bucket: file-bucket
  region: eu-west-1
`)

	t.Setenv("VECSTORE_NAMESPACE", "from-env")
	t.Setenv("VECSTORE_STORE_BUCKET", "env-bucket")
	t.Setenv("VECSTORE_STORE_ACCESS_KEY", "env-key")

	cfg, err := Load(path, map[string]any{"store.bucket": "flag-bucket"})
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Namespace)
	assert.Equal(t, "flag-bucket", cfg.Store.Bucket)
	assert.Equal(t, "eu-west-1", cfg.Store.Region)
	assert.Equal(t, "env-key", cfg.Store.AccessKey)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]any
	}{
		{"unknown backend", map[string]any{"store.backend": "ftp"}},
		{"s3 without bucket", map[string]any{"store.backend": "s3"}},
		{"minio without endpoint", map[string]any{"store.backend": "minio", "store.bucket": "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load("", tt.overrides)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "namespace", envKey("VECSTORE_NAMESPACE"))
	assert.Equal(t, "store.bucket", envKey("VECSTORE_STORE_BUCKET"))
	assert.Equal(t, "store.secret_key", envKey("VECSTORE_STORE_SECRET_KEY"))
}
