package main

import (
	"fmt"
	"io"
	"os"

	"github.com/FocuswithJustin/horae/internal/archive"
	"github.com/FocuswithJustin/horae/internal/validation"
)

// PackCmd bundles an output folder into a tar.xz archive whose manifest
// records the size and digests of every file.
type PackCmd struct {
	Dir string `arg:"" help:"Folder to bundle" type:"existingdir"`
	Out string `required:"" help:"Archive path (.tar.xz)" type:"path"`

	out io.Writer
}

func (c *PackCmd) Run() error {
	m, err := archive.Pack(c.Dir, c.Out, "horae "+version)
	if err != nil {
		return err
	}
	fmt.Fprintf(writerOr(c.out), "Packed %d files into %s\n", len(m.Files), c.Out)
	return nil
}

// VerifyCmd checks a bundle against its manifest.
type VerifyCmd struct {
	Path string `arg:"" help:"Archive path" type:"existingfile"`

	out io.Writer
}

func (c *VerifyCmd) Run() error {
	if err := validation.Expect(c.Path, validation.KindXZ); err != nil {
		return err
	}
	m, err := archive.Verify(c.Path)
	if err != nil {
		return err
	}
	w := writerOr(c.out)
	fmt.Fprintf(w, "%s: %d files verified", c.Path, len(m.Files))
	if m.Tool != "" {
		fmt.Fprintf(w, " (packed by %s)", m.Tool)
	}
	fmt.Fprintln(w)
	return nil
}

func writerOr(w io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return os.Stdout
}
