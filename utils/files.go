// utils/files.go - Blob storage path helpers
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// UploadRoot returns the blob storage root directory.
func UploadRoot() string {
	root := os.Getenv("UPLOAD_PATH")
	if root == "" {
		root = "./uploads"
	}
	return root
}

// SanitizeFilename strips any path components and unsafe characters so the
// name is safe to join under the upload root.
func SanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	safe := unsafeFilenameChars.ReplaceAllString(base, "_")
	safe = strings.Trim(safe, "._")
	if safe == "" {
		safe = "file"
	}
	return safe
}

// StorageDir is the directory holding one protocol's uploaded files.
func StorageDir(protocolID string) string {
	return filepath.Join(UploadRoot(), SanitizeFilename(protocolID))
}

// StoragePath derives the blob location for an upload from the protocol and
// the original filename.
func StoragePath(protocolID, filename string) string {
	return filepath.Join(StorageDir(protocolID), SanitizeFilename(filename))
}

// UniquePath returns fullPath, or a -1/-2/... suffixed variant when a file
// already exists there.
func UniquePath(fullPath string) string {
	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		return fullPath
	}
	ext := filepath.Ext(fullPath)
	stem := strings.TrimSuffix(fullPath, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
