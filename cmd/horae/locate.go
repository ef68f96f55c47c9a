package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/FocuswithJustin/horae/core/errors"
	"github.com/FocuswithJustin/horae/core/locate"
	"github.com/FocuswithJustin/horae/internal/fileutil"
	"github.com/FocuswithJustin/horae/internal/logging"
	"github.com/FocuswithJustin/horae/internal/matches"
)

// LocateCmd maps the matches of <volume>.json back to the pages they were
// transcribed from, using the <volume>_table.csv written by export and page.
// It writes <volume>_entities.csv with one row per page a match touches.
type LocateCmd struct {
	Matches        []string `arg:"" help:"Match files or folders of <volume>.json" type:"path"`
	Tables         string   `required:"" help:"Folder holding the <volume>_table.csv character tables" type:"existingdir"`
	Out            string   `required:"" help:"Output folder" type:"path"`
	Transcriptions string   `help:"CSV of page_id,transcription_id; pages not listed use their own id" type:"existingfile"`
	Metadata       string   `help:"Heurist metadata CSV mapping reference files to h-tags" type:"existingfile"`
	Extend         bool     `help:"Widen matches to the whole reference text" default:"true" negatable:""`
}

var entityHeader = []string{"label", "transcription_id", "offset", "length", "lines"}

func (c *LocateCmd) Run(g *Globals) error {
	files, err := collect(c.Matches, ".json")
	if err != nil {
		return err
	}
	lib, err := loadLibrary(c.Metadata, "")
	if err != nil {
		return err
	}
	transcriptions, err := readVolumeNames(c.Transcriptions)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.Out, 0755); err != nil {
		return errors.NewIO("mkdir", c.Out, err)
	}
	transcriptionOf := func(pageID string) (string, bool) {
		if id, ok := transcriptions[pageID]; ok {
			return id, true
		}
		return pageID, c.Transcriptions == ""
	}
	label := refLabel(lib)

	sum := g.runner("locate").Run(context.Background(), files, func(ctx context.Context, path string) error {
		id := trimExt(path)
		ctx = logging.WithVolume(ctx, id)
		results, err := matches.ReadFile(path)
		if err != nil {
			return err
		}
		table, err := readTable(filepath.Join(c.Tables, id+"_table.csv"))
		if err != nil {
			return err
		}

		records := [][]string{entityHeader}
		for _, span := range matches.Spans(results, len(table), c.Extend, label) {
			if span.Len() == 0 {
				continue
			}
			segs, err := table.Remap(span)
			if err != nil {
				return err
			}
			ents, err := locate.Entities(segs, span.Label, transcriptionOf)
			if err != nil {
				return err
			}
			lines := strings.Join(table.Elements(span), " ")
			for _, e := range ents {
				records = append(records, []string{e.EntityID, e.TranscriptionID, strconv.Itoa(e.Offset), strconv.Itoa(e.Length), lines})
			}
		}
		logging.InfoContext(ctx, "matches located", "entities", len(records)-1, "pages", len(table.Pages()))
		return fileutil.WriteAtomic(filepath.Join(c.Out, id+"_entities.csv"), func(w io.Writer) error {
			return writeCSV(w, records)
		})
	})
	return g.finish(sum)
}

func readTable(path string) (locate.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("character table", path)
		}
		return nil, errors.NewIO("open", path, err)
	}
	defer f.Close()
	t, err := locate.ReadCSV(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return t, nil
}
