// Package archive packs result folders into verifiable .tar.xz bundles and
// reads them back. Reading also accepts .tar.gz.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/horae/core/errors"
)

// Reader wraps a tar.Reader with automatic decompression handling.
type Reader struct {
	*tar.Reader
	file         *os.File
	decompressor io.Closer
}

// NewReader creates a new archive reader for the given path.
// It automatically detects and handles .tar.gz and .tar.xz compression.
func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}

	var reader io.Reader = f
	var decompressor io.Closer

	switch {
	case strings.HasSuffix(path, ".tar.xz"):
		xzr, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("xz reader: %w", err)
		}
		reader = xzr
	case strings.HasSuffix(path, ".tar.gz"):
		gzr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		reader = gzr
		decompressor = gzr
	default:
		f.Close()
		return nil, errors.NewValidation("archive", "unsupported archive format: "+path)
	}

	return &Reader{
		Reader:       tar.NewReader(reader),
		file:         f,
		decompressor: decompressor,
	}, nil
}

// Close closes the archive reader and any underlying decompressors.
func (r *Reader) Close() error {
	var first error
	if r.decompressor != nil {
		first = r.decompressor.Close()
	}
	if err := r.file.Close(); err != nil && first == nil {
		first = err
	}
	return first
}

// Visitor is a callback function for iterating archive entries.
// Return true to stop iteration, false to continue.
type Visitor func(header *tar.Header, content io.Reader) (stop bool, err error)

// Iterate walks through all entries in the archive, calling the visitor for each.
func (r *Reader) Iterate(visitor Visitor) error {
	for {
		header, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}

		stop, err := visitor(header, r)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}

// IterateBundle opens an archive and iterates through its entries.
func IterateBundle(path string, visitor Visitor) error {
	r, err := NewReader(path)
	if err != nil {
		return err
	}
	defer r.Close()
	return r.Iterate(visitor)
}

// ReadFile reads a specific file from the archive.
func ReadFile(archivePath, filename string) ([]byte, error) {
	var content []byte
	found := false
	err := IterateBundle(archivePath, func(header *tar.Header, r io.Reader) (bool, error) {
		if header.Name != filename {
			return false, nil
		}
		found = true
		var err error
		content, err = io.ReadAll(r)
		return true, err
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.NewNotFound("bundle entry", filename)
	}
	return content, nil
}

// ReadManifest returns the manifest of a bundle.
func ReadManifest(archivePath string) (*Manifest, error) {
	data, err := ReadFile(archivePath, ManifestName)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &errors.ParseError{Format: "JSON", Path: archivePath + ":" + ManifestName, Message: err.Error(), Err: err}
	}
	return &m, nil
}

// Verify checks every entry of a bundle against its manifest. The manifest
// must be the first entry; files missing from either side, size or digest
// mismatches are reported as inconsistencies.
func Verify(archivePath string) (*Manifest, error) {
	var m *Manifest
	seen := make(map[string]bool)
	index := 0
	err := IterateBundle(archivePath, func(header *tar.Header, r io.Reader) (bool, error) {
		defer func() { index++ }()
		if index == 0 {
			if header.Name != ManifestName {
				return true, errors.NewConsistency(0, "", "first entry is "+header.Name+", not "+ManifestName)
			}
			data, err := io.ReadAll(r)
			if err != nil {
				return true, err
			}
			m = &Manifest{}
			if err := json.Unmarshal(data, m); err != nil {
				return true, &errors.ParseError{Format: "JSON", Path: ManifestName, Message: err.Error(), Err: err}
			}
			return false, nil
		}
		if header.Typeflag != tar.TypeReg {
			return false, nil
		}
		want, ok := m.Lookup(header.Name)
		if !ok {
			return true, errors.NewConsistency(index, "", header.Name+" is not in the manifest")
		}
		got, err := Hash(r)
		if err != nil {
			return true, errors.Wrapf(err, "read %s", header.Name)
		}
		switch {
		case got.Size != want.Size:
			return true, errors.NewConsistency(index, "", fmt.Sprintf("%s has %d bytes, manifest says %d", header.Name, got.Size, want.Size))
		case got.SHA256 != want.SHA256:
			return true, errors.NewConsistency(index, "", header.Name+" SHA-256 mismatch")
		case got.BLAKE3 != want.BLAKE3:
			return true, errors.NewConsistency(index, "", header.Name+" BLAKE3 mismatch")
		}
		seen[header.Name] = true
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.NewConsistency(0, "", "empty bundle")
	}
	for _, f := range m.Files {
		if !seen[f.Path] {
			return nil, errors.NewConsistency(index, "", f.Path+" is listed but missing")
		}
	}
	return m, nil
}
