package gcp

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopesAreReadOnlyForDriveAndSheets(t *testing.T) {
	assert.Contains(t, Scopes, "https://www.googleapis.com/auth/spreadsheets.readonly")
	assert.Contains(t, Scopes, "https://www.googleapis.com/auth/drive.readonly")
	assert.Contains(t, Scopes, "https://www.googleapis.com/auth/devstorage.read_write")
}

func TestNewHTTPClientMissingFile(t *testing.T) {
	_, err := NewHTTPClient(context.Background(), filepath.Join(t.TempDir(), "missing.json"), "")
	require.ErrorContains(t, err, "read service account file")
}

func TestNewHTTPClientInvalidCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sa.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"authorized_user"}`), 0o600))

	_, err := NewHTTPClient(context.Background(), path, "")
	require.ErrorContains(t, err, "parse service account credentials")
}

func TestNewServices(t *testing.T) {
	svcs, err := NewServices(context.Background(), http.DefaultClient)
	require.NoError(t, err)
	assert.NotNil(t, svcs.Sheets)
	assert.NotNil(t, svcs.Drive)
	assert.NotNil(t, svcs.Storage)
}
