package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/FocuswithJustin/horae/core/bio"
	"github.com/FocuswithJustin/horae/core/errors"
	"github.com/FocuswithJustin/horae/core/render"
	"github.com/FocuswithJustin/horae/internal/fileutil"
	"github.com/FocuswithJustin/horae/internal/logging"
	"github.com/FocuswithJustin/horae/internal/matches"
)

// TagCmd projects the matches of <volume>.json onto the words of
// <volume>.txt and writes one BIO file per volume.
type TagCmd struct {
	Matches    []string `arg:"" help:"Match files or folders of <volume>.json" type:"path"`
	Texts      string   `required:"" help:"Folder holding the <volume>.txt volume texts" type:"existingdir"`
	Out        string   `required:"" help:"Output folder" type:"path"`
	Metadata   string   `help:"Heurist metadata CSV mapping reference files to h-tags" type:"existingfile"`
	Extend     bool     `help:"Widen matches to the whole reference text" default:"true" negatable:""`
	Merge      bool     `help:"Merge adjacent spans with the same label"`
	Params     string   `help:"Matcher settings (threshold, cutoff, ngrams, min-distance) recorded in output names, e.g. 3550"`
	Stylesheet string   `help:"Also render <name>.html linking this stylesheet" placeholder:"CSS"`
}

func (c *TagCmd) Run(g *Globals) error {
	files, err := collect(c.Matches, ".json")
	if err != nil {
		return err
	}
	lib, err := loadLibrary(c.Metadata, "")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.Out, 0755); err != nil {
		return errors.NewIO("mkdir", c.Out, err)
	}
	label := refLabel(lib)
	date := time.Now().Format("2006-01-02")

	byVolume := make(map[string]string, len(files))
	ids := make([]string, 0, len(files))
	for _, f := range files {
		id := trimExt(f)
		byVolume[id] = f
		ids = append(ids, id)
	}

	sum := g.runner("tag").Run(context.Background(), ids, func(ctx context.Context, id string) error {
		ctx = logging.WithVolume(ctx, id)
		results, err := matches.ReadFile(byVolume[id])
		if err != nil {
			return err
		}
		textPath := filepath.Join(c.Texts, id+".txt")
		data, err := os.ReadFile(textPath)
		if err != nil {
			if os.IsNotExist(err) {
				return errors.NewNotFound("volume text", textPath)
			}
			return errors.NewIO("read", textPath, err)
		}
		text := string(data)

		spans := matches.Spans(results, utf8.RuneCountInString(text), c.Extend, label)
		tokens, overlaps := bio.FromCharSpans(text, spans)
		if c.Merge {
			tokens = bio.MergeAdjacent(tokens)
		}
		name := c.outputName(id, date)
		if err := fileutil.WriteAtomic(filepath.Join(c.Out, name+".bio"), func(w io.Writer) error {
			return render.WriteBIO(w, tokens)
		}); err != nil {
			return err
		}
		if c.Stylesheet != "" {
			r := render.Renderer{Stylesheet: c.Stylesheet}
			if err := fileutil.WriteAtomic(filepath.Join(c.Out, name+".html"), func(w io.Writer) error {
				return r.Volume(w, render.VolumeInfo{ID: id}, tokens)
			}); err != nil {
				return err
			}
		}
		logging.InfoContext(ctx, "volume tagged", "matches", len(spans), "overlaps", overlaps, "words", len(tokens))
		return nil
	})
	return g.finish(sum)
}

// outputName follows line_<params>_<date>_<volume> so that render picks the
// settings and volume back up from the file name.
func (c *TagCmd) outputName(id, date string) string {
	if c.Params == "" {
		return "line_" + id
	}
	return "line_" + c.Params + "_" + date + "_" + id
}
