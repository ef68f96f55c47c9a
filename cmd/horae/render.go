package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"unicode/utf8"

	"github.com/FocuswithJustin/horae/core/errors"
	"github.com/FocuswithJustin/horae/core/reftext"
	"github.com/FocuswithJustin/horae/core/render"
	"github.com/FocuswithJustin/horae/internal/fileutil"
	"github.com/FocuswithJustin/horae/internal/logging"
	"github.com/FocuswithJustin/horae/internal/matches"
)

// PageFlags are shared by the commands writing HTML pages.
type PageFlags struct {
	Out        string `required:"" help:"Output folder" type:"path"`
	Metadata   string `help:"Heurist metadata CSV used for hover titles" type:"existingfile"`
	References string `help:"Folder of reference texts shown on hover" type:"existingdir"`
	Volumes    string `help:"Volume names CSV (id, name), e.g. metadata_volume.csv" type:"existingfile"`
	Stylesheet string `help:"Stylesheet linked from every page; a local file is copied into the output folder" default:"com_style.css"`
}

func (f *PageFlags) setup() (render.Renderer, *reftext.Library, map[string]string, error) {
	var r render.Renderer
	lib, err := loadLibrary(f.Metadata, f.References)
	if err != nil {
		return r, nil, nil, err
	}
	names, err := readVolumeNames(f.Volumes)
	if err != nil {
		return r, nil, nil, err
	}
	if err := os.MkdirAll(f.Out, 0755); err != nil {
		return r, nil, nil, errors.NewIO("mkdir", f.Out, err)
	}
	r.Stylesheet = f.Stylesheet
	if info, err := os.Stat(f.Stylesheet); err == nil && !info.IsDir() {
		// a local stylesheet is copied next to the pages
		name := filepath.Base(f.Stylesheet)
		dst := filepath.Join(f.Out, name)
		if !samePath(f.Stylesheet, dst) {
			if err := fileutil.CopyFile(f.Stylesheet, dst); err != nil {
				return r, nil, nil, errors.NewIO("copy", f.Stylesheet, err)
			}
		}
		r.Stylesheet = name
	}
	if lib != nil {
		r.Refs = lib
	}
	return r, lib, names, nil
}

func samePath(a, b string) bool {
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(b)
	return err1 == nil && err2 == nil && aa == bb
}

func (f *PageFlags) volume(names map[string]string, id string) render.VolumeInfo {
	return render.VolumeInfo{ID: id, Name: names[id]}
}

// RenderCmd writes one highlighted page per BIO file.
type RenderCmd struct {
	Files []string `arg:"" help:"BIO files or folders" type:"path"`
	PageFlags `embed:""`
}

func (c *RenderCmd) Run(g *Globals) error {
	files, err := collect(c.Files, ".bio")
	if err != nil {
		return err
	}
	r, _, names, err := c.setup()
	if err != nil {
		return err
	}
	sum := g.runner("render").Run(context.Background(), files, func(ctx context.Context, path string) error {
		tokens, err := readBIO(path)
		if err != nil {
			return err
		}
		vol := c.volume(names, render.VolumeID(path))
		return fileutil.WriteAtomic(filepath.Join(c.Out, trimExt(path)+".html"), func(w io.Writer) error {
			return r.Volume(w, vol, tokens)
		})
	})
	return g.finish(sum)
}

// CompareCmd pairs ground truth and matched BIO files by volume id and
// renders each pair side by side.
type CompareCmd struct {
	Truth string `arg:"" help:"Ground truth BIO file or folder" type:"path"`
	Pred  string `arg:"" help:"Matched BIO file or folder" type:"path"`
	PageFlags `embed:""`
}

func (c *CompareCmd) Run(g *Globals) error {
	truthFiles, err := collect([]string{c.Truth}, ".bio")
	if err != nil {
		return err
	}
	predFiles, err := collect([]string{c.Pred}, ".bio")
	if err != nil {
		return err
	}
	r, _, names, err := c.setup()
	if err != nil {
		return err
	}
	pairs := pairByVolume(truthFiles, predFiles)

	sum := g.runner("compare").Run(context.Background(), sortedKeys(pairs), func(ctx context.Context, id string) error {
		p := pairs[id]
		if p.truth == "" || p.pred == "" {
			return errors.NewNotFound("volume pair", id)
		}
		truth, err := readBIO(p.truth)
		if err != nil {
			return err
		}
		pred, err := readBIO(p.pred)
		if err != nil {
			return err
		}
		var params *render.Params
		if ps, ok := render.ParseParams(p.pred); ok {
			params = &ps
		}
		return fileutil.WriteAtomic(filepath.Join(c.Out, "compare_"+id+".html"), func(w io.Writer) error {
			return r.Compare(w, c.volume(names, id), params, truth, pred)
		})
	})
	return g.finish(sum)
}

type bioPair struct{ truth, pred string }

// pairByVolume keys files by the volume id ending their names.
func pairByVolume(truth, pred []string) map[string]bioPair {
	pairs := make(map[string]bioPair)
	for _, f := range truth {
		id := render.VolumeID(f)
		p := pairs[id]
		p.truth = f
		pairs[id] = p
	}
	for _, f := range pred {
		id := render.VolumeID(f)
		p := pairs[id]
		p.pred = f
		pairs[id] = p
	}
	return pairs
}

// MatchViewCmd renders the raw character matches of <volume>.json over
// <volume>.txt, with the matched reference passage on hover.
type MatchViewCmd struct {
	Matches []string `arg:"" help:"Match files or folders of <volume>.json" type:"path"`
	Texts   string   `required:"" help:"Folder holding the <volume>.txt volume texts" type:"existingdir"`
	PageFlags `embed:""`
}

func (c *MatchViewCmd) Run(g *Globals) error {
	files, err := collect(c.Matches, ".json")
	if err != nil {
		return err
	}
	r, lib, names, err := c.setup()
	if err != nil {
		return err
	}
	label := refLabel(lib)
	sum := g.runner("matchview").Run(context.Background(), files, func(ctx context.Context, path string) error {
		id := trimExt(path)
		ctx = logging.WithVolume(ctx, id)
		results, err := matches.ReadFile(path)
		if err != nil {
			return err
		}
		textPath := filepath.Join(c.Texts, id+".txt")
		data, err := os.ReadFile(textPath)
		if err != nil {
			return errors.NewNotFound("volume text", textPath)
		}
		text := string(data)
		var overlaps int
		err = fileutil.WriteAtomic(filepath.Join(c.Out, "matches_"+id+".html"), func(w io.Writer) error {
			n, err := r.MatchView(w, c.volume(names, id), nil, text, matches.CharMatches(results, label))
			overlaps = n
			return err
		})
		if err != nil {
			return err
		}
		logging.InfoContext(ctx, "matches rendered", "overlaps", overlaps, "characters", utf8.RuneCountInString(text))
		return nil
	})
	return g.finish(sum)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
