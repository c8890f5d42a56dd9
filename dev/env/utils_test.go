package devenv

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePath(t *testing.T) {
	path, err := ResolvePath("records.db")
	require.NoError(t, err)
	require.Equal(t, "records.db", path)

	root, err := GetWorkspaceRoot()
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(root, "go.mod"))

	path, err = ResolvePath("<dev_state>/http/dumps")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "dev", ".state", "http", "dumps"), path)
	require.DirExists(t, filepath.Join(root, "dev", ".state"))
}
