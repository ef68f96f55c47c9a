package archive

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/horae/core/errors"
	"github.com/FocuswithJustin/horae/internal/fileutil"
)

// xzNewWriter is a variable to allow testing of compressor errors.
var xzNewWriter = func(w io.Writer) (io.WriteCloser, error) {
	return xz.NewWriter(w)
}

// Pack bundles every regular file under srcDir into a .tar.xz at dstPath.
// The manifest is written first, then the files in lexical order. Entry
// names are relative to srcDir with forward slashes. The archive is
// published atomically.
func Pack(srcDir, dstPath, tool string) (*Manifest, error) {
	info, err := os.Stat(srcDir)
	if err != nil {
		return nil, errors.NewIO("stat", srcDir, err)
	}
	if !info.IsDir() {
		return nil, errors.NewValidation("source", srcDir+" is not a directory")
	}
	absDst, _ := filepath.Abs(dstPath)

	now := time.Now().UTC().Truncate(time.Second)
	m := &Manifest{Version: ManifestVersion, Tool: tool, CreatedAt: now.Format(time.RFC3339)}
	var paths []string
	err = filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if abs, _ := filepath.Abs(path); abs == absDst {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == ManifestName {
			return nil
		}
		h, err := hashFile(path)
		if err != nil {
			return errors.NewIO("read", path, err)
		}
		m.Files = append(m.Files, FileEntry{Path: rel, Size: h.Size, SHA256: h.SHA256, BLAKE3: h.BLAKE3})
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "walk "+srcDir)
	}

	manifestData, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "serialize manifest")
	}

	err = fileutil.WriteAtomic(dstPath, func(w io.Writer) error {
		zw, err := xzNewWriter(w)
		if err != nil {
			return errors.Wrap(err, "xz writer")
		}
		tw := tar.NewWriter(zw)
		if err := writeEntry(tw, ManifestName, now, int64(len(manifestData)), bytes.NewReader(manifestData)); err != nil {
			return errors.Wrap(err, "write manifest")
		}
		for i, path := range paths {
			if err := copyEntry(tw, m.Files[i], path, now); err != nil {
				return err
			}
		}
		if err := tw.Close(); err != nil {
			return errors.Wrap(err, "close tar")
		}
		return zw.Close()
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func copyEntry(tw *tar.Writer, entry FileEntry, path string, mod time.Time) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.NewIO("open", path, err)
	}
	defer f.Close()
	if err := writeEntry(tw, entry.Path, mod, entry.Size, f); err != nil {
		return errors.Wrapf(err, "write %s", entry.Path)
	}
	return nil
}

func writeEntry(tw *tar.Writer, name string, mod time.Time, size int64, r io.Reader) error {
	header := &tar.Header{
		Name:     name,
		Mode:     0644,
		Size:     size,
		ModTime:  mod,
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	_, err := io.CopyN(tw, r, size)
	return err
}
