package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/FocuswithJustin/horae/core/reftext"
	"github.com/FocuswithJustin/horae/internal/arkindex"
	"github.com/FocuswithJustin/horae/internal/logging"
)

// ArkindexFlags select the Arkindex instance and corpus.
type ArkindexFlags struct {
	URL    string `name:"url" help:"Arkindex base URL" env:"ARKINDEX_API_URL" required:""`
	Token  string `help:"Arkindex API token" env:"ARKINDEX_API_TOKEN" required:""`
	Corpus string `required:"" help:"Corpus id"`
}

func (f *ArkindexFlags) client() (*arkindex.Client, error) {
	if err := arkindex.ValidateID("corpus", f.Corpus); err != nil {
		return nil, err
	}
	return arkindex.NewClient(f.URL, f.Token)
}

// PushCmd publishes the matches of every volume of a corpus: page
// transcriptions, one text segment per match with its entities, and the
// classifications of the segment and its lines. Matches are read from
// <volume>.json files.
type PushCmd struct {
	ArkindexFlags `embed:""`
	Matches       string   `required:"" help:"Folder of <volume>.json match files" type:"existingdir"`
	Volumes       []string `name:"volume" help:"Volume ids to push (default: every element of --type)"`
	Type          string   `help:"Element type of the volumes" default:"volume"`

	out io.Writer
}

func (c *PushCmd) Run(g *Globals) error {
	ctx := context.Background()
	client, err := c.client()
	if err != nil {
		return err
	}
	p := &arkindex.Pusher{Client: client, Corpus: c.Corpus, Matcher: arkindex.DirMatcher{Dir: c.Matches}}
	if err := p.Prepare(ctx); err != nil {
		return err
	}
	ids := c.Volumes
	if len(ids) == 0 {
		vols, err := p.Volumes(ctx, c.Type)
		if err != nil {
			return err
		}
		for _, v := range vols {
			ids = append(ids, v.ID)
		}
	}

	var (
		mu    sync.Mutex
		total arkindex.PushStats
	)
	sum := g.runner("push").Run(ctx, ids, func(ctx context.Context, id string) error {
		st, err := p.PushVolume(logging.WithVolume(ctx, id), id)
		mu.Lock()
		total.Add(st)
		mu.Unlock()
		return err
	})

	w := writerOr(c.out)
	fmt.Fprintf(w, "Pages: %d, transcriptions: %d, matches: %d, segments: %d, entities: %d, classifications: %d, failed calls: %d\n",
		total.Pages, total.Transcriptions, total.Matches, total.Segments, total.Entities, total.Classifications, total.Failures)
	return g.finish(sum)
}

// SeedCmd creates one ML class per Heurist metadata entry and one entity
// per reference text, plus the Beginning and Inside markers.
type SeedCmd struct {
	ArkindexFlags `embed:""`
	Metadata      string `required:"" help:"Heurist metadata CSV" type:"existingfile"`
	References    string `required:"" help:"Folder of reference texts" type:"existingdir"`

	out io.Writer
}

func (c *SeedCmd) Run() error {
	client, err := c.client()
	if err != nil {
		return err
	}
	lib, err := reftext.Load(c.Metadata, c.References)
	if err != nil {
		return err
	}
	s := &arkindex.Seeder{Client: client, Corpus: c.Corpus}
	st, err := s.Seed(context.Background(), lib)
	if err != nil {
		return err
	}
	w := writerOr(c.out)
	fmt.Fprintf(w, "Classes created: %d, entities created: %d, already present: %d, failed: %d\n",
		st.Classes, st.Entities, st.Existing, st.Failures)
	if st.Failures > 0 {
		return fmt.Errorf("seed: %d calls failed", st.Failures)
	}
	return nil
}

// CleanupCmd removes what push created so a corpus can be pushed again.
type CleanupCmd struct {
	ArkindexFlags `embed:""`
	Type          string `help:"Element type of the volumes" default:"volume"`
	Entities      bool   `help:"Also delete the entities of the corpus"`

	out io.Writer
}

func (c *CleanupCmd) Run(g *Globals) error {
	ctx := context.Background()
	client, err := c.client()
	if err != nil {
		return err
	}
	cl := &arkindex.Cleaner{Client: client, Corpus: c.Corpus, Entities: c.Entities}
	vols, err := client.ListElements(ctx, c.Corpus, c.Type)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(vols))
	for _, v := range vols {
		ids = append(ids, v.ID)
	}

	var (
		mu    sync.Mutex
		total arkindex.CleanupStats
	)
	sum := g.runner("cleanup").Run(ctx, ids, func(ctx context.Context, id string) error {
		st, err := cl.CleanVolume(logging.WithVolume(ctx, id), id)
		mu.Lock()
		total.Add(st)
		mu.Unlock()
		return err
	})
	st, err := cl.CleanCorpus(ctx)
	total.Add(st)

	fmt.Fprintf(writerOr(c.out), "Transcriptions: %d, classifications rejected: %d, metadata: %d, entities: %d, failed calls: %d\n",
		total.Transcriptions, total.Classifications, total.Metadata, total.Entities, total.Failures)
	if err != nil {
		return err
	}
	return g.finish(sum)
}
