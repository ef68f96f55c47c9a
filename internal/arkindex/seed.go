package arkindex

import (
	"context"

	"github.com/FocuswithJustin/horae/core/errors"
	"github.com/FocuswithJustin/horae/core/reftext"
	"github.com/FocuswithJustin/horae/internal/logging"
)

// EntityType is the type given to reference-text entities.
const EntityType = "misc"

// SeedStats counts what a seed created.
type SeedStats struct {
	Classes  int
	Entities int
	Existing int
	Failures int
}

// Seeder creates the ML classes and entities the pusher relies on: one
// class per Heurist metadata entry, one entity per entry with a reference
// text, and the Beginning and Inside markers. Names already present in the
// corpus are left alone.
type Seeder struct {
	Client *Client
	Corpus string
}

// Seed creates the classes and entities of lib.
func (s *Seeder) Seed(ctx context.Context, lib *reftext.Library) (SeedStats, error) {
	var st SeedStats
	classes, err := s.Client.ListCorpusMLClasses(ctx, s.Corpus)
	if err != nil {
		return st, errors.Wrap(err, "list corpus classes")
	}
	ents, err := s.Client.ListCorpusEntities(ctx, s.Corpus)
	if err != nil {
		return st, errors.Wrap(err, "list corpus entities")
	}
	haveClass := make(map[string]bool, len(classes))
	for _, c := range classes {
		haveClass[c.Name] = true
	}
	haveEntity := make(map[string]bool, len(ents))
	for _, e := range ents {
		haveEntity[e.Name] = true
	}

	class := func(name string) {
		if haveClass[name] {
			st.Existing++
			return
		}
		if _, err := s.Client.CreateMLClass(ctx, s.Corpus, name); err != nil {
			st.Failures++
			return
		}
		haveClass[name] = true
		st.Classes++
		logging.InfoContext(ctx, "class created", "name", name)
	}
	entity := func(e Entity) {
		if haveEntity[e.Name] {
			st.Existing++
			return
		}
		e.Corpus = s.Corpus
		if e.Type == "" {
			e.Type = EntityType
		}
		if _, err := s.Client.CreateEntity(ctx, e); err != nil {
			st.Failures++
			return
		}
		haveEntity[e.Name] = true
		st.Entities++
		logging.InfoContext(ctx, "entity created", "name", e.Name)
	}

	for _, e := range lib.Entries() {
		class(e.Name)
		text, ok := lib.Text(e.ID)
		if !ok {
			logging.DocumentSkipped(ctx, e.ID, "no reference text")
			continue
		}
		entity(Entity{
			Name: e.Name,
			Metas: map[string]string{
				"text":        text,
				"heurist_id":  e.HeuristID,
				"arkindex_id": e.ID,
			},
		})
	}
	for _, marker := range []string{BeginningClass, InsideClass} {
		class(marker)
		entity(Entity{Name: marker, Metas: map[string]string{"text": marker + " marker"}})
	}
	return st, nil
}
