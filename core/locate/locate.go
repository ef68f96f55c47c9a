// Package locate maps positions of a flat volume text back to the page and
// line they were transcribed from.
//
// A Table holds one Location per character of the volume text. Remap turns a
// half-open span over that text into one Segment per page it touches, which is
// the shape a remote store expects for transcription entities.
package locate

import (
	"fmt"

	"github.com/FocuswithJustin/horae/core/bio"
	"github.com/FocuswithJustin/horae/core/errors"
)

// Location is where one character of the volume text comes from.
type Location struct {
	PageID    string
	Offset    int    // character offset inside the page transcription
	ElementID string // text line the character belongs to
}

// Table maps every index of a flat sequence to its source location.
type Table []Location

// Segment is the part of a span that lies on a single page.
type Segment struct {
	PageID string
	Offset int
	Length int
}

// Validate checks that every page run starts at offset 0 and advances by
// exactly one character per index.
func (t Table) Validate() error {
	for i, loc := range t {
		if loc.PageID == "" {
			return errors.NewConsistency(i, "", "missing page id")
		}
		if i == 0 || t[i-1].PageID != loc.PageID {
			if loc.Offset != 0 {
				return errors.NewConsistency(i, loc.PageID, fmt.Sprintf("page starts at offset %d", loc.Offset))
			}
			continue
		}
		if want := t[i-1].Offset + 1; loc.Offset != want {
			return errors.NewConsistency(i, loc.PageID, fmt.Sprintf("offset jumps from %d to %d", t[i-1].Offset, loc.Offset))
		}
	}
	return nil
}

// Remap splits span into per-page segments.
//
// A new segment opens whenever the page changes between two consecutive
// indices; continuation pages start at offset 0. Each segment's length is the
// distance between the first and last offsets it covers plus one, so the
// lengths always add up to span.Len() and a single-character span yields a
// segment of length 1.
func (t Table) Remap(span bio.Span) ([]Segment, error) {
	if span.Start < 0 || span.Start >= len(t) {
		return nil, errors.NewRange("location table", span.Start, 0, len(t))
	}
	if span.End <= span.Start || span.End > len(t) {
		return nil, errors.NewRange("location table", span.End, span.Start+1, len(t)+1)
	}

	var out []Segment
	first := t[span.Start]
	for i := span.Start; i < span.End; i++ {
		cur := t[i]
		last := i == span.End-1
		if !last {
			next := t[i+1]
			if next.PageID == cur.PageID {
				if next.Offset != cur.Offset+1 {
					return nil, errors.NewConsistency(i+1, next.PageID, fmt.Sprintf("offset jumps from %d to %d", cur.Offset, next.Offset))
				}
				continue
			}
			if next.Offset != 0 {
				return nil, errors.NewConsistency(i+1, next.PageID, fmt.Sprintf("continuation page starts at offset %d", next.Offset))
			}
		}
		out = append(out, Segment{
			PageID: cur.PageID,
			Offset: first.Offset,
			Length: cur.Offset - first.Offset + 1,
		})
		if !last {
			first = t[i+1]
		}
	}
	return out, nil
}

// Elements returns the distinct line ids touched by span, in text order.
// Indices outside the table are ignored.
func (t Table) Elements(span bio.Span) []string {
	var out []string
	seen := make(map[string]bool)
	for i := max(span.Start, 0); i < span.End && i < len(t); i++ {
		id := t[i].ElementID
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Pages returns the distinct page ids of the table in order.
func (t Table) Pages() []string {
	var out []string
	for i, loc := range t {
		if i == 0 || t[i-1].PageID != loc.PageID {
			out = append(out, loc.PageID)
		}
	}
	return out
}

// TranscriptionEntity anchors an entity inside one page transcription.
type TranscriptionEntity struct {
	TranscriptionID string
	EntityID        string
	Offset          int
	Length          int
}

// Entities converts segments to transcription entities. transcriptionOf
// resolves the transcription created for a page; a page without one is
// reported as a *errors.NotFoundError.
func Entities(segments []Segment, entityID string, transcriptionOf func(pageID string) (string, bool)) ([]TranscriptionEntity, error) {
	out := make([]TranscriptionEntity, 0, len(segments))
	for _, s := range segments {
		tid, ok := transcriptionOf(s.PageID)
		if !ok {
			return nil, errors.NewNotFound("page transcription", s.PageID)
		}
		out = append(out, TranscriptionEntity{
			TranscriptionID: tid,
			EntityID:        entityID,
			Offset:          s.Offset,
			Length:          s.Length,
		})
	}
	return out, nil
}
