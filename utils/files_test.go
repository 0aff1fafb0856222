package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"consent.pdf":             "consent.pdf",
		"../../../etc/passwd":     "passwd",
		"..\\..\\windows\\sys.db": "sys.db",
		"my report (final).pdf":   "my_report_final_.pdf",
		"日本語.pdf":                 "pdf",
		"...":                     "file",
		"":                        "file",
	}
	for in, want := range cases {
		if got := SanitizeFilename(in); got != want {
			t.Fatalf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStoragePathStaysUnderUploadRoot(t *testing.T) {
	t.Setenv("UPLOAD_PATH", "/srv/uploads")

	got := StoragePath("P1", "../../escape.pdf")
	want := filepath.Join("/srv/uploads", "P1", "escape.pdf")
	if got != want {
		t.Fatalf("StoragePath = %q, want %q", got, want)
	}
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "consent.pdf")

	if got := UniquePath(path); got != path {
		t.Fatalf("fresh path changed: %q", got)
	}

	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	first := UniquePath(path)
	if first != filepath.Join(dir, "consent-1.pdf") {
		t.Fatalf("first collision = %q", first)
	}

	if err := os.WriteFile(first, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	second := UniquePath(path)
	if second != filepath.Join(dir, "consent-2.pdf") {
		t.Fatalf("second collision = %q", second)
	}
}
