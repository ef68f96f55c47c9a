package arkindex

import (
	"context"
	"strings"

	"github.com/FocuswithJustin/horae/core/errors"
	"github.com/FocuswithJustin/horae/internal/logging"
)

// EntityMetadata is the text line metadata that older pushes used to carry
// the matched entity.
const EntityMetadata = "entity"

// CleanupStats counts what a cleanup removed.
type CleanupStats struct {
	Transcriptions  int
	Classifications int
	Metadata        int
	Entities        int
	Segments        bool
	Failures        int
}

// Add accumulates o into s.
func (s *CleanupStats) Add(o CleanupStats) {
	s.Transcriptions += o.Transcriptions
	s.Classifications += o.Classifications
	s.Metadata += o.Metadata
	s.Entities += o.Entities
	s.Segments = s.Segments || o.Segments
	s.Failures += o.Failures
}

// Cleaner undoes a push so a corpus can be pushed again. Page
// transcriptions are removed volume by volume; classifications, text
// segments and entity metadata can only be removed corpus-wide. Entities
// are kept unless Entities is set, since a seed created them.
type Cleaner struct {
	Client   *Client
	Corpus   string
	Entities bool
}

// CleanVolume deletes the transcriptions of every page of a volume.
func (c *Cleaner) CleanVolume(ctx context.Context, volumeID string) (CleanupStats, error) {
	var st CleanupStats
	pages, err := c.Client.ListElementChildren(ctx, volumeID, TypePage)
	if err != nil {
		return st, errors.Wrapf(err, "list pages of %s", volumeID)
	}
	for _, page := range pages {
		trs, err := c.Client.ListTranscriptions(ctx, page.ID, false, TypePage)
		if err != nil {
			logging.WarnContext(ctx, "transcriptions not listed", "page", page.ID, "error", err.Error())
			st.Failures++
			continue
		}
		for _, tr := range trs {
			if err := c.Client.DestroyTranscription(ctx, tr.ID); err != nil {
				st.Failures++
				continue
			}
			st.Transcriptions++
		}
	}
	return st, nil
}

// CleanCorpus rejects the classifications of every text line, deletes the
// text segments and the entity metadata of the lines, then the entities
// when asked to.
func (c *Cleaner) CleanCorpus(ctx context.Context) (CleanupStats, error) {
	var st CleanupStats
	if err := ValidateID("corpus", c.Corpus); err != nil {
		return st, err
	}

	lines, err := c.Client.ListElementsWithClasses(ctx, c.Corpus, TypeTextLine)
	if err != nil {
		return st, errors.Wrap(err, "list text lines")
	}
	for _, line := range lines {
		for _, cl := range line.Classes {
			if cl.State == "rejected" {
				continue
			}
			if err := c.Client.RejectClassification(ctx, cl.ID); err != nil {
				st.Failures++
				continue
			}
			st.Classifications++
		}
	}

	if err := c.Client.DestroyElements(ctx, c.Corpus, TypeTextSegment); err != nil {
		logging.WarnContext(ctx, "text segments not deleted", "error", err.Error())
		st.Failures++
	} else {
		st.Segments = true
	}

	for _, line := range lines {
		metas, err := c.Client.ListElementMetaData(ctx, line.ID)
		if err != nil {
			st.Failures++
			continue
		}
		for _, m := range metas {
			if !strings.EqualFold(m.Name, EntityMetadata) {
				continue
			}
			if err := c.Client.DestroyMetaData(ctx, m.ID); err != nil {
				st.Failures++
				continue
			}
			st.Metadata++
		}
	}

	if c.Entities {
		ents, err := c.Client.ListCorpusEntities(ctx, c.Corpus)
		if err != nil {
			return st, errors.Wrap(err, "list corpus entities")
		}
		for _, e := range ents {
			if err := c.Client.DestroyEntity(ctx, e.ID); err != nil {
				st.Failures++
				continue
			}
			st.Entities++
		}
	}
	logging.InfoContext(ctx, "corpus cleaned", "corpus", c.Corpus,
		"classifications", st.Classifications, "metadata", st.Metadata, "entities", st.Entities)
	return st, nil
}
