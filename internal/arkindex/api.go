package arkindex

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/FocuswithJustin/horae/core/errors"
	"github.com/FocuswithJustin/horae/core/layout"
)

// Polygon is a polygon as the API encodes it: [[x, y], ...].
type Polygon [][2]float64

// Layout converts p to a layout.Polygon, dropping a repeated closing point.
func (p Polygon) Layout() layout.Polygon {
	out := make(layout.Polygon, 0, len(p))
	for _, pt := range p {
		out = append(out, layout.Point{X: pt[0], Y: pt[1]})
	}
	if n := len(out); n > 1 && out[0] == out[n-1] {
		out = out[:n-1]
	}
	return out
}

// FromLayout converts a layout.Polygon for a request body, closing the ring.
func FromLayout(p layout.Polygon) Polygon {
	out := make(Polygon, 0, len(p)+1)
	for _, pt := range p {
		out = append(out, [2]float64{pt.X, pt.Y})
	}
	if len(p) > 0 {
		out = append(out, [2]float64{p[0].X, p[0].Y})
	}
	return out
}

// Zone is the image area of an element in older API versions.
type Zone struct {
	Polygon Polygon `json:"polygon"`
}

// Element is an element as listed by the API. Classes is only filled by
// ListElementsWithClasses.
type Element struct {
	ID      string           `json:"id"`
	Type    string           `json:"type"`
	Name    string           `json:"name"`
	Polygon Polygon          `json:"polygon,omitempty"`
	Zone    *Zone            `json:"zone,omitempty"`
	Classes []Classification `json:"classes,omitempty"`
}

// Classification is an ML class attached to an element.
type Classification struct {
	ID      string  `json:"id"`
	MLClass MLClass `json:"ml_class"`
	State   string  `json:"state,omitempty"`
}

// Outline returns the element polygon wherever the API put it.
func (e Element) Outline() layout.Polygon {
	if len(e.Polygon) > 0 {
		return e.Polygon.Layout()
	}
	if e.Zone != nil {
		return e.Zone.Polygon.Layout()
	}
	return nil
}

// Transcription is a transcription with the element it belongs to.
type Transcription struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence,omitempty"`
	Element    Element  `json:"element"`
}

// Entity is a corpus entity. Reference texts keep their text in
// Metas["text"].
type Entity struct {
	ID     string            `json:"id,omitempty"`
	Name   string            `json:"name"`
	Type   string            `json:"type"`
	Corpus string            `json:"corpus,omitempty"`
	Metas  map[string]string `json:"metas,omitempty"`
}

// MLClass is a classification class of a corpus.
type MLClass struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// MetaData is a metadata entry of an element.
type MetaData struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewElement is the body of CreateElement.
type NewElement struct {
	Type    string  `json:"type"`
	Name    string  `json:"name"`
	Corpus  string  `json:"corpus"`
	Parent  string  `json:"parent,omitempty"`
	Polygon Polygon `json:"polygon,omitempty"`
}

// TranscriptionEntity anchors an entity in a transcription.
type TranscriptionEntity struct {
	Entity string `json:"entity"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`
}

type created struct {
	ID string `json:"id"`
}

// ListElements lists the elements of a corpus with the given type.
func (c *Client) ListElements(ctx context.Context, corpusID, typ string) ([]Element, error) {
	if err := ValidateID("corpus", corpusID); err != nil {
		return nil, err
	}
	q := url.Values{}
	if typ != "" {
		q.Set("type", typ)
	}
	return Paginate[Element](ctx, c, "corpus/"+corpusID+"/elements/", q)
}

// ListElementsWithClasses is ListElements with the classifications of each
// element.
func (c *Client) ListElementsWithClasses(ctx context.Context, corpusID, typ string) ([]Element, error) {
	if err := ValidateID("corpus", corpusID); err != nil {
		return nil, err
	}
	q := url.Values{"with_classes": {"true"}}
	if typ != "" {
		q.Set("type", typ)
	}
	return Paginate[Element](ctx, c, "corpus/"+corpusID+"/elements/", q)
}

// ListElementChildren lists the direct children of an element with the given
// type.
func (c *Client) ListElementChildren(ctx context.Context, elementID, typ string) ([]Element, error) {
	if err := ValidateID("element", elementID); err != nil {
		return nil, err
	}
	q := url.Values{}
	if typ != "" {
		q.Set("type", typ)
	}
	return Paginate[Element](ctx, c, "elements/"+elementID+"/children/", q)
}

// ListTranscriptions lists the transcriptions of an element and, when
// recursive, of its descendants of elementType.
func (c *Client) ListTranscriptions(ctx context.Context, elementID string, recursive bool, elementType string) ([]Transcription, error) {
	if err := ValidateID("element", elementID); err != nil {
		return nil, err
	}
	q := url.Values{}
	if recursive {
		q.Set("recursive", strconv.FormatBool(recursive))
	}
	if elementType != "" {
		q.Set("element_type", elementType)
	}
	return Paginate[Transcription](ctx, c, "element/"+elementID+"/transcriptions/", q)
}

// ListCorpusEntities lists every entity of a corpus.
func (c *Client) ListCorpusEntities(ctx context.Context, corpusID string) ([]Entity, error) {
	if err := ValidateID("corpus", corpusID); err != nil {
		return nil, err
	}
	return Paginate[Entity](ctx, c, "corpus/"+corpusID+"/entities/", nil)
}

// ListCorpusMLClasses lists every ML class of a corpus.
func (c *Client) ListCorpusMLClasses(ctx context.Context, corpusID string) ([]MLClass, error) {
	if err := ValidateID("corpus", corpusID); err != nil {
		return nil, err
	}
	return Paginate[MLClass](ctx, c, "corpus/"+corpusID+"/classes/", nil)
}

// ListElementMetaData lists the metadata of an element.
func (c *Client) ListElementMetaData(ctx context.Context, elementID string) ([]MetaData, error) {
	if err := ValidateID("element", elementID); err != nil {
		return nil, err
	}
	var out []MetaData
	// this endpoint is not paginated
	err := c.do(ctx, http.MethodGet, "element/"+elementID+"/metadata/", nil, nil, &out)
	return out, err
}

// CreateTranscription adds a transcription to an element and returns its id.
func (c *Client) CreateTranscription(ctx context.Context, elementID, text string) (string, error) {
	if err := ValidateID("element", elementID); err != nil {
		return "", err
	}
	var res created
	err := c.do(ctx, http.MethodPost, "element/"+elementID+"/transcription/", nil,
		map[string]any{"text": text}, &res)
	return res.ID, err
}

// CreateTranscriptionEntity anchors an entity inside a transcription.
func (c *Client) CreateTranscriptionEntity(ctx context.Context, transcriptionID string, te TranscriptionEntity) error {
	if err := ValidateID("transcription", transcriptionID); err != nil {
		return err
	}
	if err := ValidateID("entity", te.Entity); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "transcription/"+transcriptionID+"/entity/", nil, te, nil)
}

// CreateClassification classifies an element with an ML class.
func (c *Client) CreateClassification(ctx context.Context, elementID, classID string) error {
	if err := ValidateID("element", elementID); err != nil {
		return err
	}
	if err := ValidateID("ml_class", classID); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "classifications/", nil,
		map[string]string{"element": elementID, "ml_class": classID}, nil)
}

// CreateElement creates an element and returns its id.
func (c *Client) CreateElement(ctx context.Context, el NewElement) (string, error) {
	if err := ValidateID("corpus", el.Corpus); err != nil {
		return "", err
	}
	if el.Parent != "" {
		if err := ValidateID("parent", el.Parent); err != nil {
			return "", err
		}
	}
	var res created
	err := c.do(ctx, http.MethodPost, "elements/", url.Values{"slim_output": {"true"}}, el, &res)
	return res.ID, err
}

// CreateEntity creates an entity and returns its id.
func (c *Client) CreateEntity(ctx context.Context, e Entity) (string, error) {
	if err := ValidateID("corpus", e.Corpus); err != nil {
		return "", err
	}
	var res created
	err := c.do(ctx, http.MethodPost, "entity/", nil, e, &res)
	return res.ID, err
}

// CreateMLClass creates an ML class in a corpus and returns its id.
func (c *Client) CreateMLClass(ctx context.Context, corpusID, name string) (string, error) {
	if err := ValidateID("corpus", corpusID); err != nil {
		return "", err
	}
	var res created
	err := c.do(ctx, http.MethodPost, "corpus/"+corpusID+"/classes/", nil, MLClass{Name: name}, &res)
	return res.ID, err
}

// DestroyTranscription deletes a transcription and its entity anchors.
func (c *Client) DestroyTranscription(ctx context.Context, id string) error {
	if err := ValidateID("transcription", id); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, "transcription/"+id+"/", nil, nil, nil)
}

// DestroyElements deletes every element of a corpus with the given type.
// The server runs the deletion asynchronously.
func (c *Client) DestroyElements(ctx context.Context, corpusID, typ string) error {
	if err := ValidateID("corpus", corpusID); err != nil {
		return err
	}
	if typ == "" {
		return errors.NewValidation("type", "refusing to delete every element of a corpus")
	}
	return c.do(ctx, http.MethodDelete, "corpus/"+corpusID+"/elements/", url.Values{"type": {typ}}, nil, nil)
}

// DestroyEntity deletes an entity.
func (c *Client) DestroyEntity(ctx context.Context, id string) error {
	if err := ValidateID("entity", id); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, "entity/"+id+"/", nil, nil, nil)
}

// DestroyMetaData deletes a metadata entry.
func (c *Client) DestroyMetaData(ctx context.Context, id string) error {
	if err := ValidateID("metadata", id); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, "metadata/"+id+"/", nil, nil, nil)
}

// RejectClassification marks a classification as rejected.
func (c *Client) RejectClassification(ctx context.Context, id string) error {
	if err := ValidateID("classification", id); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, "classifications/"+id+"/reject/", nil, nil, nil)
}
