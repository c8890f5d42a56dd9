package archive

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

func writeZip(t testing.TB, path string, entries map[string]string) {
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for name, contents := range entries {
		entry, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		_, err = entry.Write([]byte(contents))
		if err != nil {
			t.Fatal(err)
		}
	}
	err = w.Close()
	if err != nil {
		t.Fatal(err)
	}
}

func readFile(t testing.TB, path string) string {
	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(contents)
}

func TestExtract(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "export.zip")
	writeZip(t, archivePath, map[string]string{
		"a.xml":        "<Raiz/>",
		"b.csv":        "IdPedido;Situacao",
		"nested/c.xml": "<Raiz></Raiz>",
	})

	output := filepath.Join(dir, "out", "download_xml")

	for i := 0; i < 2; i++ {
		result, err := Extract(archivePath, output)
		require.NoError(t, err)
		require.Equal(t, output, result)

		require.Equal(t, "<Raiz/>", readFile(t, filepath.Join(output, "a.xml")))
		require.Equal(t, "IdPedido;Situacao", readFile(t, filepath.Join(output, "b.csv")))
		require.Equal(t, "<Raiz></Raiz>", readFile(t, filepath.Join(output, "nested", "c.xml")))

		entries, err := os.ReadDir(output)
		require.NoError(t, err)
		require.Len(t, entries, 3)
	}
}

func TestExtractOverwrites(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "export.zip")
	writeZip(t, archivePath, map[string]string{"a.xml": "new"})

	output := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(output, 0777))
	require.NoError(t, os.WriteFile(filepath.Join(output, "a.xml"), []byte("old contents that are longer"), 0644))

	_, err := Extract(archivePath, output)
	require.NoError(t, err)
	require.Equal(t, "new", readFile(t, filepath.Join(output, "a.xml")))
}

func TestExtractCorrupt(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "broken.zip")
	require.NoError(t, os.WriteFile(archivePath, []byte("definitely not a zip"), 0644))

	_, err := Extract(archivePath, filepath.Join(dir, "out"))
	var archiveErr *Error
	require.True(t, errors.As(err, &archiveErr))
	require.Equal(t, archivePath, archiveErr.Path)

	_, err = Extract(filepath.Join(dir, "missing.zip"), filepath.Join(dir, "out"))
	require.True(t, errors.As(err, &archiveErr))
	require.True(t, errors.Is(err, os.ErrNotExist))
}
