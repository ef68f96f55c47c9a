// Package validation checks names and files that come from exports, remote
// stores and the command line before they reach the file system.
//
// Volume and element ids are used to build output file names, so an id read
// from a foreign export must never be able to escape the output folder.
package validation

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/FocuswithJustin/horae/core/errors"
)

// MaxFilenameLength is the longest file name accepted.
const MaxFilenameLength = 255

// Filename checks that name can be used as a single path element.
func Filename(name string) error {
	reason := ""
	switch {
	case name == "":
		reason = "empty name"
	case len(name) > MaxFilenameLength:
		reason = "name too long"
	case name == "." || name == "..":
		reason = "reserved name"
	case strings.ContainsAny(name, `/\`):
		reason = "path separator not allowed"
	case strings.HasPrefix(name, "-"):
		reason = "name cannot start with a hyphen"
	default:
		for _, r := range name {
			if unicode.IsControl(r) {
				reason = "control character not allowed"
				break
			}
		}
	}
	if reason != "" {
		return errors.NewValidation("filename", reason+": "+strings.ToValidUTF8(name, "?"))
	}
	return nil
}

// Join returns dir/name after checking name with Filename.
func Join(dir, name string) (string, error) {
	if err := Filename(name); err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// Within resolves rel under base and rejects paths that leave it.
func Within(base, rel string) (string, error) {
	if rel == "" {
		return "", errors.NewValidation("path", "empty path")
	}
	clean := filepath.Clean(rel)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errors.NewValidation("path", "path escapes "+base+": "+rel)
	}
	return filepath.Join(base, clean), nil
}

// Kind is a file content type recognised from its first bytes.
type Kind string

const (
	KindSQLite  Kind = "sqlite"
	KindZip     Kind = "zip" // also XLSX workbooks
	KindXZ      Kind = "xz"
	KindXML     Kind = "xml"
	KindJSON    Kind = "json"
	KindText    Kind = "text"
	KindUnknown Kind = "unknown"
)

var signatures = []struct {
	kind  Kind
	magic []byte
}{
	{KindSQLite, []byte("SQLite format 3\x00")},
	{KindZip, []byte{0x50, 0x4b, 0x03, 0x04}},
	{KindXZ, []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}},
}

// Sniff classifies the first bytes of a file.
func Sniff(head []byte) Kind {
	for _, sig := range signatures {
		if bytes.HasPrefix(head, sig.magic) {
			return sig.kind
		}
	}
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(head, []byte("\xef\xbb\xbf")), " \t\r\n")
	if !isLikelyText(head) {
		return KindUnknown
	}
	switch {
	case bytes.HasPrefix(trimmed, []byte("<")):
		return KindXML
	case bytes.HasPrefix(trimmed, []byte("{")), bytes.HasPrefix(trimmed, []byte("[")):
		return KindJSON
	default:
		return KindText
	}
}

// SniffFile classifies the file at path.
func SniffFile(path string) (Kind, error) {
	f, err := os.Open(path)
	if err != nil {
		return KindUnknown, errors.NewIO("open", path, err)
	}
	defer f.Close()
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return KindUnknown, errors.NewIO("read", path, err)
	}
	return Sniff(head[:n]), nil
}

// Expect checks that the file at path holds content of kind want.
func Expect(path string, want Kind) error {
	got, err := SniffFile(path)
	if err != nil {
		return err
	}
	if got != want {
		return errors.NewValidation("file", path+" is "+string(got)+", not "+string(want))
	}
	return nil
}

// isLikelyText reports whether buf has no NUL byte and at most 5% control
// bytes other than whitespace.
func isLikelyText(buf []byte) bool {
	if len(buf) == 0 || bytes.IndexByte(buf, 0) >= 0 {
		return false
	}
	control := 0
	for _, b := range buf {
		if b < 0x20 && b != '\t' && b != '\n' && b != '\r' {
			control++
		}
	}
	return float64(control)/float64(len(buf)) <= 0.05
}
