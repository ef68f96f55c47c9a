package arkindex

import (
	"context"

	"github.com/FocuswithJustin/horae/core/bio"
	"github.com/FocuswithJustin/horae/core/errors"
	"github.com/FocuswithJustin/horae/core/layout"
	"github.com/FocuswithJustin/horae/core/locate"
	"github.com/FocuswithJustin/horae/core/transcript"
	"github.com/FocuswithJustin/horae/internal/logging"
	"github.com/FocuswithJustin/horae/internal/matches"
	"github.com/FocuswithJustin/horae/internal/validation"
)

// Names of the marker classes put on the lines a match covers.
const (
	BeginningClass = "Beginning"
	InsideClass    = "Inside"
)

// Element types created or read by the pusher.
const (
	TypePage        = "page"
	TypeTextLine    = "text_line"
	TypeTextSegment = "text_segment"
)

// DigitizationMetadata names the volume metadata holding its digitization
// type.
const DigitizationMetadata = "Digitization Type"

// Matcher finds reference texts in the text of a volume.
type Matcher interface {
	Match(ctx context.Context, volumeID, text string, refs []Entity) ([]matches.Result, error)
}

// PushStats counts what a push created.
type PushStats struct {
	Pages           int
	Transcriptions  int
	Matches         int
	Segments        int
	Entities        int
	Classifications int
	Failures        int
}

// Add accumulates o into s.
func (s *PushStats) Add(o PushStats) {
	s.Pages += o.Pages
	s.Transcriptions += o.Transcriptions
	s.Matches += o.Matches
	s.Segments += o.Segments
	s.Entities += o.Entities
	s.Classifications += o.Classifications
	s.Failures += o.Failures
}

// Pusher writes text-matcher results onto the volumes of a corpus. Failed
// API calls are logged and counted; they never stop a volume.
type Pusher struct {
	Client  *Client
	Corpus  string
	Matcher Matcher

	entities []Entity
	byID     map[string]Entity
	byName   map[string]Entity
	classes  map[string]string
}

// Prepare loads the entities and classes of the corpus. It must be called
// before PushVolume.
func (p *Pusher) Prepare(ctx context.Context) error {
	ents, err := p.Client.ListCorpusEntities(ctx, p.Corpus)
	if err != nil {
		return errors.Wrap(err, "list corpus entities")
	}
	classes, err := p.Client.ListCorpusMLClasses(ctx, p.Corpus)
	if err != nil {
		return errors.Wrap(err, "list corpus classes")
	}
	p.entities = nil
	p.byID = make(map[string]Entity, len(ents))
	p.byName = make(map[string]Entity, len(ents))
	for _, e := range ents {
		if e.Name == BeginningClass || e.Name == InsideClass {
			continue
		}
		p.entities = append(p.entities, e)
		p.byID[e.ID] = e
		if _, dup := p.byName[e.Name]; !dup {
			p.byName[e.Name] = e
		}
	}
	p.classes = make(map[string]string, len(classes))
	for _, c := range classes {
		p.classes[c.Name] = c.ID
	}
	return nil
}

// Volumes lists the elements of the corpus to push to.
func (p *Pusher) Volumes(ctx context.Context, typ string) ([]Element, error) {
	return p.Client.ListElements(ctx, p.Corpus, typ)
}

// Digitization reads the digitization type of a volume from its metadata.
func (p *Pusher) Digitization(ctx context.Context, volumeID string) (layout.Digitization, error) {
	md, err := p.Client.ListElementMetaData(ctx, volumeID)
	if err != nil {
		return "", errors.Wrapf(err, "metadata of %s", volumeID)
	}
	for _, m := range md {
		if m.Name == DigitizationMetadata {
			return layout.ParseDigitization(m.Value)
		}
	}
	return "", errors.NewNotFound("digitization type", volumeID)
}

// Transcribe reads the text lines of every page of a volume and assembles
// the volume text. It also returns the outline of every line.
func (p *Pusher) Transcribe(ctx context.Context, volumeID string) (*transcript.Volume, map[string]layout.Polygon, error) {
	d, err := p.Digitization(ctx, volumeID)
	if err != nil {
		return nil, nil, err
	}
	pages, err := p.Client.ListElementChildren(ctx, volumeID, TypePage)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "pages of %s", volumeID)
	}

	outlines := make(map[string]layout.Polygon)
	tp := make([]transcript.Page, 0, len(pages))
	for i, pg := range pages {
		ts, err := p.Client.ListTranscriptions(ctx, pg.ID, true, TypeTextLine)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "lines of page %s", pg.ID)
		}
		page := transcript.Page{ID: pg.ID, Ordering: i}
		for _, t := range ts {
			poly := t.Element.Outline()
			outlines[t.Element.ID] = poly
			page.Lines = append(page.Lines, transcript.Line{ID: t.Element.ID, Text: t.Text, Polygon: poly})
		}
		tp = append(tp, page)
	}
	vol, err := transcript.Build(tp, d)
	if err != nil {
		return nil, nil, err
	}
	return vol, outlines, nil
}

func (p *Pusher) entity(label string) (Entity, bool) {
	if e, ok := p.byID[label]; ok {
		return e, true
	}
	e, ok := p.byName[label]
	return e, ok
}

// PushVolume transcribes a volume, creates its page transcriptions, runs
// the matcher and records every match as a text segment, transcription
// entities and line classifications.
func (p *Pusher) PushVolume(ctx context.Context, volumeID string) (PushStats, error) {
	var st PushStats
	if p.byID == nil {
		return st, errors.NewValidation("pusher", "Prepare was not called")
	}
	ctx = logging.WithVolume(ctx, volumeID)

	vol, outlines, err := p.Transcribe(ctx, volumeID)
	if err != nil {
		return st, err
	}
	st.Pages = len(vol.Pages)

	transcriptions := make(map[string]string, len(vol.Pages))
	for _, pt := range vol.Pages {
		id, err := p.Client.CreateTranscription(ctx, pt.PageID, pt.Text)
		if err != nil {
			st.Failures++
			continue
		}
		transcriptions[pt.PageID] = id
		st.Transcriptions++
	}
	transcriptionOf := func(pageID string) (string, bool) {
		id, ok := transcriptions[pageID]
		return id, ok
	}

	results, err := p.Matcher.Match(ctx, volumeID, vol.Text, p.entities)
	if err != nil {
		return st, errors.Wrapf(err, "match %s", volumeID)
	}

	for _, r := range results {
		ent, ok := p.entity(r.Label())
		if !ok {
			logging.WarnContext(ctx, "unknown reference", "ref", r.Ref)
			st.Failures++
			continue
		}
		classID := p.classes[ent.Name]
		for i := range r.LocationsA {
			span := r.Extend(i, len(vol.Table))
			if span.Len() == 0 {
				continue
			}
			st.Matches++
			p.pushMatch(ctx, &st, vol.Table, span, ent, classID, outlines, transcriptionOf)
		}
	}

	logging.InfoContext(ctx, "volume pushed",
		"pages", st.Pages,
		"matches", st.Matches,
		"entities", st.Entities,
		"failures", st.Failures,
	)
	return st, nil
}

func (p *Pusher) pushMatch(ctx context.Context, st *PushStats, table locate.Table, span bio.Span,
	ent Entity, classID string, outlines map[string]layout.Polygon, transcriptionOf func(string) (string, bool)) {
	segs, err := table.Remap(span)
	if err != nil {
		logging.WarnContext(ctx, "match not remapped", "entity", ent.Name, "start", span.Start, "error", err.Error())
		st.Failures++
		return
	}
	lines := table.Elements(span)
	var outline layout.Polygon
	if len(lines) > 0 {
		outline = outlines[lines[0]]
	}

	segID, err := p.Client.CreateElement(ctx, NewElement{
		Type:    TypeTextSegment,
		Name:    ent.Name,
		Corpus:  p.Corpus,
		Parent:  segs[0].PageID,
		Polygon: FromLayout(outline),
	})
	if err != nil {
		st.Failures++
	} else {
		st.Segments++
		p.classify(ctx, st, segID, classID)
	}

	ents, err := locate.Entities(segs, ent.ID, transcriptionOf)
	if err != nil {
		logging.WarnContext(ctx, "match not anchored", "entity", ent.Name, "error", err.Error())
		st.Failures++
	}
	for _, te := range ents {
		err := p.Client.CreateTranscriptionEntity(ctx, te.TranscriptionID, TranscriptionEntity{
			Entity: te.EntityID,
			Offset: te.Offset,
			Length: te.Length,
		})
		if err != nil {
			st.Failures++
			continue
		}
		st.Entities++
	}

	for i, line := range lines {
		marker := InsideClass
		if i == 0 {
			marker = BeginningClass
		}
		p.classify(ctx, st, line, classID)
		p.classify(ctx, st, line, p.classes[marker])
	}
}

func (p *Pusher) classify(ctx context.Context, st *PushStats, elementID, classID string) {
	if classID == "" {
		return
	}
	if err := p.Client.CreateClassification(ctx, elementID, classID); err != nil {
		st.Failures++
		return
	}
	st.Classifications++
}

// DirMatcher reads precomputed matcher output from Dir/<volume id>.json.
type DirMatcher struct {
	Dir string
}

// Match implements Matcher. The volume id names the file, so it must be a
// plain file name.
func (m DirMatcher) Match(_ context.Context, volumeID, _ string, _ []Entity) ([]matches.Result, error) {
	path, err := validation.Join(m.Dir, volumeID+".json")
	if err != nil {
		return nil, err
	}
	return matches.ReadFile(path)
}
