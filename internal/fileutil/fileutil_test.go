package fileutil

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteAtomic(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "nested", "out.html")

	err := WriteAtomic(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "<html></html>")
		return err
	})
	if err != nil {
		t.Fatalf("WriteAtomic failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if string(got) != "<html></html>" {
		t.Errorf("content = %q, want %q", got, "<html></html>")
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only the output file, found %d entries", len(entries))
	}
}

func TestWriteAtomic_RenderFailureKeepsOldFile(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "out.bio")
	if err := os.WriteFile(path, []byte("old"), 0644); err != nil {
		t.Fatalf("failed to seed file: %v", err)
	}

	boom := errors.New("render failed")
	err := WriteAtomic(path, func(w io.Writer) error {
		io.WriteString(w, "partial")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WriteAtomic error = %v, want %v", err, boom)
	}

	got, _ := os.ReadFile(path)
	if string(got) != "old" {
		t.Errorf("existing file was modified: %q", got)
	}
	entries, _ := os.ReadDir(tempDir)
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestWriteFileAtomic_RenameError(t *testing.T) {
	tempDir := t.TempDir()
	orig := osRename
	osRename = func(string, string) error { return errors.New("rename refused") }
	defer func() { osRename = orig }()

	path := filepath.Join(tempDir, "out.txt")
	if err := WriteFileAtomic(path, []byte("x"), 0644); err == nil {
		t.Fatal("expected an error")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("output should not exist after a failed rename")
	}
	entries, _ := os.ReadDir(tempDir)
	if len(entries) != 0 {
		t.Errorf("temp file left behind: %d entries", len(entries))
	}
}

func TestCopyFile(t *testing.T) {
	tempDir := t.TempDir()

	srcPath := filepath.Join(tempDir, "com_style.css")
	if err := os.WriteFile(srcPath, []byte("mark { color: red }"), 0600); err != nil {
		t.Fatalf("failed to create source file: %v", err)
	}

	dstPath := filepath.Join(tempDir, "html", "com_style.css")
	if err := CopyFile(srcPath, dstPath); err != nil {
		t.Fatalf("CopyFile failed: %v", err)
	}

	got, err := os.ReadFile(dstPath)
	if err != nil {
		t.Fatalf("failed to read destination file: %v", err)
	}
	if string(got) != "mark { color: red }" {
		t.Errorf("content mismatch: got %q", got)
	}
	info, _ := os.Stat(dstPath)
	if info.Mode().Perm() != 0600 {
		t.Errorf("permissions = %v, want 0600", info.Mode().Perm())
	}
}

func TestCopyFile_NonexistentSource(t *testing.T) {
	tempDir := t.TempDir()
	if err := CopyFile("/nonexistent/file", filepath.Join(tempDir, "dst.txt")); err == nil {
		t.Error("expected error for nonexistent source")
	}
}
