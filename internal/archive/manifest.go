package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// ManifestName is the name of the manifest entry, always first in a bundle.
const ManifestName = "manifest.json"

// ManifestVersion is the version written by Pack.
const ManifestVersion = "1"

// Manifest lists the files of a result bundle.
type Manifest struct {
	Version   string      `json:"version"`
	Tool      string      `json:"tool,omitempty"`
	CreatedAt string      `json:"created_at,omitempty"`
	Files     []FileEntry `json:"files"`
}

// FileEntry is one bundled file, its path relative to the packed directory.
type FileEntry struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
	BLAKE3 string `json:"blake3"`
}

// Lookup returns the entry for a relative path.
func (m *Manifest) Lookup(path string) (FileEntry, bool) {
	for _, f := range m.Files {
		if f.Path == path {
			return f, true
		}
	}
	return FileEntry{}, false
}

// HashResult contains both SHA-256 and BLAKE3 digests of some content.
type HashResult struct {
	Size   int64
	SHA256 string
	BLAKE3 string
}

// Hash reads r to the end and returns its digests.
func Hash(r io.Reader) (HashResult, error) {
	s := sha256.New()
	b := blake3.New()
	n, err := io.Copy(io.MultiWriter(s, b), r)
	if err != nil {
		return HashResult{}, err
	}
	return HashResult{
		Size:   n,
		SHA256: hex.EncodeToString(s.Sum(nil)),
		BLAKE3: hex.EncodeToString(b.Sum(nil)),
	}, nil
}

func hashFile(path string) (HashResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return HashResult{}, err
	}
	defer f.Close()
	return Hash(f)
}
