// utils/archive.go - Compressed container packaging for stored documents
package utils

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrEntryNotFound is returned when a named entry is absent from a container.
var ErrEntryNotFound = errors.New("archive entry not found")

// maxEntryBytes caps how much of a single entry a preview may extract.
const maxEntryBytes = 25 * 1024 * 1024

// IsArchive reports whether the path looks like a compressed container.
func IsArchive(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".zip")
}

// PackFile compresses one file into a zip container at destPath. The entry
// keeps the source's base name.
func PackFile(srcPath, destPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dest, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer dest.Close()

	zw := zip.NewWriter(dest)
	entry, err := zw.Create(filepath.Base(srcPath))
	if err != nil {
		zw.Close()
		return err
	}
	if _, err := io.Copy(entry, src); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// ListEntries returns the file entries of a container, directories skipped.
func ListEntries(path string) ([]string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	defer r.Close()

	var names []string
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		names = append(names, f.Name)
	}
	return names, nil
}

// ExtractEntry decompresses one named entry from a container.
func ExtractEntry(path, name string) ([]byte, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != name || f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		content, err := io.ReadAll(io.LimitReader(rc, maxEntryBytes))
		if err != nil {
			return nil, err
		}
		return content, nil
	}
	return nil, fmt.Errorf("%w: %s in %s", ErrEntryNotFound, name, path)
}
