package archive

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
)

// Error reports an archive that could not be read or extracted.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("archive %s: %s", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Extract unpacks every entry of the zip at archivePath into outputDir,
// keeping the relative paths stored in the archive. outputDir (and its
// parents) is created when missing, extracting twice into the same place
// overwrites the previous files.
//
// Entry names are not checked for "../" components, archives must come
// from a trusted source.
func Extract(archivePath, outputDir string) (string, error) {
	err := os.MkdirAll(outputDir, 0777)
	if err != nil {
		return "", err
	}

	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", &Error{Path: archivePath, Err: err}
	}
	defer reader.Close()

	for _, entry := range reader.File {
		err = extractEntry(entry, outputDir)
		if err != nil {
			return "", &Error{Path: archivePath, Err: fmt.Errorf("entry %s: %w", entry.Name, err)}
		}
	}

	slog.Debug(
		"extracted archive",
		"archive", archivePath,
		"output", outputDir,
		"entries", len(reader.File),
	)
	return outputDir, nil
}

func extractEntry(entry *zip.File, outputDir string) error {
	target := filepath.Join(outputDir, filepath.FromSlash(entry.Name))

	if entry.FileInfo().IsDir() {
		return os.MkdirAll(target, 0777)
	}
	err := os.MkdirAll(filepath.Dir(target), 0777)
	if err != nil {
		return err
	}

	src, err := entry.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	mode := entry.Mode().Perm()
	if mode == 0 {
		mode = 0644
	}
	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, src)
	closeErr := dst.Close()
	if err != nil {
		return err
	}
	return closeErr
}
