package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/FocuswithJustin/horae/core/bio"
	"github.com/FocuswithJustin/horae/core/errors"
	"github.com/FocuswithJustin/horae/core/eval"
	"github.com/FocuswithJustin/horae/core/layout"
	"github.com/FocuswithJustin/horae/core/locate"
	"github.com/FocuswithJustin/horae/core/transcript"
	"github.com/FocuswithJustin/horae/internal/dump"
	"github.com/FocuswithJustin/horae/internal/fileutil"
	"github.com/FocuswithJustin/horae/internal/logging"
	"github.com/FocuswithJustin/horae/internal/pagexml"
	"github.com/FocuswithJustin/horae/internal/validation"
)

// ExportCmd exports volumes from an Arkindex SQLite export.
//
// For each volume it writes <id>.csv (page id and paragraph text of every
// page) or, with --output-format txt, the line-level volume text <id>.txt
// with its character table <id>_table.csv. Fully annotated volumes also get
// true_<id>.bio and line_<id>.txt built from their text segments.
type ExportCmd struct {
	Database string   `arg:"" help:"Arkindex SQLite export" type:"existingfile"`
	Out      string   `required:"" help:"Output folder" type:"path"`
	Volumes  []string `name:"volume" help:"Volume ids to export (default: all)"`
	Format   string   `name:"output-format" help:"Volume text format" enum:"csv,txt" default:"csv"`

	FullyAnnotated bool   `name:"fully-annotated" help:"Write BIO ground truth from text segments"`
	Filter         string `name:"liturgical-function" help:"Keep only text segments whose name contains this (case sensitive)"`
	Normalize      bool   `help:"Normalize words of the ground truth"`
	TextSegment    bool   `name:"text-segment" help:"Write the text segment presence matrix"`
	MetadataVolume bool   `name:"metadata-volume" help:"Write metadata_volume.csv (id, name)"`
}

func (c *ExportCmd) Run(g *Globals) error {
	ctx := context.Background()
	if err := validation.Expect(c.Database, validation.KindSQLite); err != nil {
		return err
	}
	exp, err := dump.Open(c.Database)
	if err != nil {
		return err
	}
	defer exp.Close()
	if err := os.MkdirAll(c.Out, 0755); err != nil {
		return errors.NewIO("mkdir", c.Out, err)
	}

	ids := c.Volumes
	if len(ids) == 0 {
		vols, err := exp.Volumes(ctx)
		if err != nil {
			return err
		}
		for _, v := range vols {
			ids = append(ids, v.ID)
		}
	}

	sum := g.runner("export").Run(ctx, ids, func(ctx context.Context, id string) error {
		return c.exportVolume(logging.WithVolume(ctx, id), exp, id)
	})
	if err := g.finish(sum); err != nil {
		return err
	}

	if c.TextSegment {
		m, err := exp.PresenceMatrix(ctx, c.Filter, ids...)
		if err != nil {
			return err
		}
		if err := fileutil.WriteAtomic(filepath.Join(c.Out, segmentMatrixName(c.Filter)), func(w io.Writer) error {
			return eval.WriteMatrix(w, m)
		}); err != nil {
			return err
		}
	}
	if c.MetadataVolume {
		records := [][]string{{"id", "name"}}
		for _, id := range ids {
			v, err := exp.Volume(ctx, id)
			if err != nil {
				logging.DocumentSkipped(ctx, id, err.Error())
				continue
			}
			records = append(records, []string{v.ID, v.Name})
		}
		if err := fileutil.WriteAtomic(filepath.Join(c.Out, "metadata_volume.csv"), func(w io.Writer) error {
			return writeCSV(w, records)
		}); err != nil {
			return err
		}
	}
	return nil
}

func segmentMatrixName(filter string) string {
	if filter == "" {
		return "complete_text_segment.csv"
	}
	return strings.ReplaceAll(filter, " ", "_") + "_text_segment.csv"
}

func (c *ExportCmd) exportVolume(ctx context.Context, exp *dump.Export, id string) error {
	if err := validation.Filename(id); err != nil {
		return err
	}
	if _, err := exp.Volume(ctx, id); err != nil {
		return err
	}
	d, err := exp.DigitizationType(ctx, id)
	if err != nil {
		return err
	}

	switch c.Format {
	case "txt":
		pages, err := exp.VolumePages(ctx, id)
		if err != nil {
			return err
		}
		vol, err := transcript.Build(pages, d)
		if err != nil {
			return err
		}
		if err := writeVolumeText(c.Out, id, vol); err != nil {
			return err
		}
	default:
		if err := c.writePageCSV(ctx, exp, id, d); err != nil {
			return err
		}
	}

	if c.FullyAnnotated {
		lines, err := exp.LabeledLines(ctx, id, c.Filter)
		if err != nil {
			return err
		}
		tokens := bio.TagWords(dump.Units(lines, c.Normalize))
		if err := fileutil.WriteAtomic(filepath.Join(c.Out, "true_"+id+".bio"), func(w io.Writer) error {
			return bio.Write(w, tokens)
		}); err != nil {
			return err
		}
		if err := fileutil.WriteAtomic(filepath.Join(c.Out, "line_"+id+".txt"), func(w io.Writer) error {
			var b strings.Builder
			for _, word := range bio.Words(tokens) {
				b.WriteString(word)
				b.WriteByte(' ')
			}
			_, err := io.WriteString(w, b.String())
			return err
		}); err != nil {
			return err
		}
	}
	logging.InfoContext(ctx, "volume exported", "digitization", string(d))
	return nil
}

func (c *ExportCmd) writePageCSV(ctx context.Context, exp *dump.Export, id string, d layout.Digitization) error {
	pages, err := exp.Pages(ctx, id)
	if err != nil {
		return err
	}
	records := [][]string{{"page_id", "transcription"}}
	for _, p := range pages {
		text, err := exp.PageText(ctx, p.ID, d)
		if err != nil {
			return err
		}
		records = append(records, []string{p.ID, text})
	}
	return fileutil.WriteAtomic(filepath.Join(c.Out, id+".csv"), func(w io.Writer) error {
		return writeCSV(w, records)
	})
}

// writeVolumeText writes <id>.txt and its character table <id>_table.csv.
func writeVolumeText(dir, id string, vol *transcript.Volume) error {
	if err := fileutil.WriteFileAtomic(filepath.Join(dir, id+".txt"), []byte(vol.Text), 0644); err != nil {
		return err
	}
	return fileutil.WriteAtomic(filepath.Join(dir, id+"_table.csv"), func(w io.Writer) error {
		return locate.WriteCSV(w, vol.Table)
	})
}

// PageCmd builds a volume text from PAGE XML files, one file per page, taken
// in file name order.
type PageCmd struct {
	Dir          string `arg:"" help:"Folder of PAGE XML files" type:"existingdir"`
	Out          string `required:"" help:"Output folder" type:"path"`
	ID           string `name:"id" help:"Volume id (default: folder name)"`
	Digitization string `help:"single_page or double_page" default:"single_page"`
}

func (c *PageCmd) Run(g *Globals) error {
	d, err := layout.ParseDigitization(c.Digitization)
	if err != nil {
		return err
	}
	pages, err := pagexml.ReadDir(c.Dir)
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		return errors.NewNotFound("PAGE XML file", c.Dir)
	}
	vol, err := transcript.Build(pages, d)
	if err != nil {
		return err
	}
	id := c.ID
	if id == "" {
		id = filepath.Base(filepath.Clean(c.Dir))
	}
	if err := validation.Filename(id); err != nil {
		return err
	}
	if err := os.MkdirAll(c.Out, 0755); err != nil {
		return errors.NewIO("mkdir", c.Out, err)
	}
	if err := writeVolumeText(c.Out, id, vol); err != nil {
		return err
	}
	logging.Info("volume exported", "volume", id, "pages", len(pages), "characters", len(vol.Table))
	return nil
}
