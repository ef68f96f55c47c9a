// Command horae prepares books of hours for text matching and turns the
// matches back into annotations: BIO files, HTML pages, evaluation reports
// and Arkindex entities.
package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/horae/core/bio"
	"github.com/FocuswithJustin/horae/core/errors"
	"github.com/FocuswithJustin/horae/core/reftext"
	"github.com/FocuswithJustin/horae/internal/batch"
	"github.com/FocuswithJustin/horae/internal/logging"
)

const version = "0.1.0"

// Globals are the flags shared by every command.
type Globals struct {
	LogLevel    string `name:"log-level" help:"Log level (debug, info, warn, error)" default:"info"`
	LogFormat   string `name:"log-format" help:"Log format (text, json)" default:"text"`
	Workers     int    `help:"Documents processed at once" default:"4"`
	MetricsFile string `name:"metrics-file" help:"Write run metrics to this node_exporter textfile" type:"path"`

	metrics *batch.Metrics
}

// AfterApply configures logging once flags are parsed.
func (g *Globals) AfterApply() error {
	logging.InitLogger(logging.ParseLevel(g.LogLevel), logging.ParseFormat(g.LogFormat))
	return nil
}

// runner returns a batch runner for op, recording metrics when a metrics
// file was requested.
func (g *Globals) runner(op string) *batch.Runner {
	if g.MetricsFile != "" && g.metrics == nil {
		g.metrics = batch.NewMetrics()
	}
	return &batch.Runner{Operation: op, Workers: g.Workers, Metrics: g.metrics}
}

// finish writes the metrics file and turns failed documents into an error.
func (g *Globals) finish(sum batch.Summary) error {
	if g.metrics != nil {
		if err := g.metrics.WriteToTextfile(g.MetricsFile); err != nil {
			return err
		}
	}
	if !sum.OK() {
		return fmt.Errorf("%s: %d of %d documents failed", sum.Operation, sum.Failed, sum.Total)
	}
	return nil
}

// CLI defines the command-line interface for horae.
var CLI struct {
	Globals

	Export    ExportCmd    `cmd:"" help:"Export volume texts and labels from an Arkindex SQLite export"`
	Page      PageCmd      `cmd:"" help:"Export a volume text from a folder of PAGE XML files"`
	Tag       TagCmd       `cmd:"" help:"Turn text-matcher results into BIO files"`
	Render    RenderCmd    `cmd:"" help:"Render BIO files as highlighted HTML"`
	Compare   CompareCmd   `cmd:"" help:"Render ground truth and matched BIO files side by side"`
	Matchview MatchViewCmd `cmd:"" name:"matchview" help:"Render character-level matches over a volume text"`
	Eval      EvalGroup    `cmd:"" help:"Score predictions against ground truth"`
	Stats     StatsCmd     `cmd:"" help:"Describe a set of reference texts"`
	Locate    LocateCmd    `cmd:"" help:"Map matches back to page transcriptions"`
	Push      PushCmd      `cmd:"" help:"Publish matches to Arkindex"`
	Seed      SeedCmd      `cmd:"" help:"Create the Arkindex classes and entities of the reference texts"`
	Cleanup   CleanupCmd   `cmd:"" help:"Remove pushed transcriptions, segments and classifications from Arkindex"`
	Pack      PackCmd      `cmd:"" help:"Bundle an output folder into a verifiable archive"`
	Verify    VerifyCmd    `cmd:"" help:"Check every file of a bundle against its manifest"`
	Version   VersionCmd   `cmd:"" help:"Print version information"`
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("horae version %s\n", version)
	return nil
}

// collect expands paths into the files with extension ext, walking folders
// recursively. Results are sorted.
func collect(paths []string, ext string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, errors.NewIO("open", p, err)
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && filepath.Ext(path) == ext {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, errors.NewIO("walk", p, err)
		}
	}
	sort.Strings(out)
	return out, nil
}

// loadLibrary loads the reference library when a metadata file is given.
func loadLibrary(metadata, texts string) (*reftext.Library, error) {
	if metadata == "" {
		return nil, nil
	}
	return reftext.Load(metadata, texts)
}

// refLabel maps a reference file name to the h-tag used in BIO files. Without
// a library, or for a file the library does not know, the name is kept.
func refLabel(lib *reftext.Library) func(string) string {
	return func(ref string) string {
		if lib == nil {
			return ref
		}
		if e, ok := lib.ByID(ref); ok && e.HTag() != "" {
			return e.HTag()
		}
		return ref
	}
}

func readBIO(path string) ([]bio.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	defer f.Close()
	tokens, err := bio.Read(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return tokens, nil
}

// readVolumeNames reads an id,name CSV such as metadata_volume.csv.
func readVolumeNames(path string) (map[string]string, error) {
	names := make(map[string]string)
	if path == "" {
		return names, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	defer f.Close()
	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, &errors.ParseError{Format: "CSV", Path: path, Message: err.Error(), Err: err}
	}
	for i, rec := range records {
		if len(rec) < 2 || (i == 0 && rec[0] == "id") {
			continue
		}
		names[rec[0]] = rec[1]
	}
	return names, nil
}

func writeCSV(w io.Writer, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(records); err != nil {
		return errors.NewIO("write", "", err)
	}
	return nil
}

// trimExt returns the base name of path without its extension.
func trimExt(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("horae"),
		kong.Description("Books of hours text matching toolkit"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Bind(&CLI.Globals),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
