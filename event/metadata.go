package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/c360/docstreams/errors"
	"github.com/c360/docstreams/pointer"
)

// Kind tags the document family a metadata properties block describes.
type Kind string

// Document kinds. The set is closed: consumers switch exhaustively on
// these values instead of probing string-keyed attribute bags.
const (
	KindText      Kind = "text"
	KindImage     Kind = "image"
	KindVideo     Kind = "video"
	KindAudio     Kind = "audio"
	KindComposite Kind = "composite"
)

// knownKinds is the set accepted during deserialization.
var knownKinds = map[Kind]struct{}{
	KindText:      {},
	KindImage:     {},
	KindVideo:     {},
	KindAudio:     {},
	KindComposite: {},
}

// Dimensions describes pixel dimensions of visual media.
type Dimensions struct {
	Width  int64 `json:"width"`
	Height int64 `json:"height"`
}

// TextAttributes carries metadata specific to textual documents. Large
// derived artifacts (embeddings, part-of-speech tags) live behind
// pointers so they stay out of the message bus.
type TextAttributes struct {
	Pages      int64           `json:"pages,omitempty"`
	Words      int64           `json:"words,omitempty"`
	Encoding   string          `json:"encoding,omitempty"`
	Embeddings *pointer.Handle `json:"embeddings,omitempty"`
	Pos        *pointer.Handle `json:"pos,omitempty"`
}

// ImageAttributes carries metadata specific to image documents.
type ImageAttributes struct {
	Dimensions *Dimensions     `json:"dimensions,omitempty"`
	Format     string          `json:"format,omitempty"`
	Hashes     map[string]string `json:"hashes,omitempty"`
	Embeddings *pointer.Handle `json:"embeddings,omitempty"`
}

// VideoAttributes carries metadata specific to video documents.
type VideoAttributes struct {
	Resolution *Dimensions `json:"resolution,omitempty"`
	Duration   float64     `json:"duration,omitempty"`
	FPS        float64     `json:"fps,omitempty"`
	Codec      string      `json:"codec,omitempty"`
}

// AudioAttributes carries metadata specific to audio documents.
type AudioAttributes struct {
	Duration   float64         `json:"duration,omitempty"`
	SampleRate int64           `json:"sampleRate,omitempty"`
	Channels   int64           `json:"channels,omitempty"`
	Codec      string          `json:"codec,omitempty"`
	Embeddings *pointer.Handle `json:"embeddings,omitempty"`
}

// CompositeAttributes carries metadata for container documents such as
// archives that bundle multiple nested documents.
type CompositeAttributes struct {
	Count int64  `json:"count,omitempty"`
	Type  string `json:"type,omitempty"`
}

// Properties is the kind-tagged union of per-kind attributes. Kind
// names the primary slot; sibling slots populated by earlier
// processing stages are preserved so enrichment never destroys what
// another stage recorded.
type Properties struct {
	Kind      Kind                 `json:"kind"`
	Text      *TextAttributes      `json:"text,omitempty"`
	Image     *ImageAttributes     `json:"image,omitempty"`
	Video     *VideoAttributes     `json:"video,omitempty"`
	Audio     *AudioAttributes     `json:"audio,omitempty"`
	Composite *CompositeAttributes `json:"composite,omitempty"`
}

// UnmarshalJSON validates the kind tag while decoding.
func (p *Properties) UnmarshalJSON(data []byte) error {
	type alias Properties
	var decoded alias
	if err := json.Unmarshal(data, &decoded); err != nil {
		return errors.WrapInvalid(err, "Properties", "UnmarshalJSON", "decode properties")
	}
	if _, ok := knownKinds[decoded.Kind]; !ok {
		return errors.WrapInvalid(errors.ErrUnknownKind, "Properties", "UnmarshalJSON",
			fmt.Sprintf("kind %q", decoded.Kind))
	}
	*p = Properties(decoded)
	return nil
}

// Attributes returns the slot named by the kind tag.
func (p *Properties) Attributes() (any, error) {
	switch p.Kind {
	case KindText:
		return p.Text, nil
	case KindImage:
		return p.Image, nil
	case KindVideo:
		return p.Video, nil
	case KindAudio:
		return p.Audio, nil
	case KindComposite:
		return p.Composite, nil
	default:
		return nil, errors.WrapInvalid(errors.ErrUnknownKind, "Properties", "Attributes",
			fmt.Sprintf("kind %q", p.Kind))
	}
}

// Metadata is the structured, enrichable description of a document.
// Middlewares add to it as the document moves through a pipeline.
type Metadata struct {
	Title       string            `json:"title,omitempty"`
	Description string            `json:"description,omitempty"`
	CreatedAt   *time.Time        `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time        `json:"updatedAt,omitempty"`
	Authors     []string          `json:"authors,omitempty"`
	Keywords    []string          `json:"keywords,omitempty"`
	Topics      []string          `json:"topics,omitempty"`
	Classes     []string          `json:"classes,omitempty"`
	Language    string            `json:"language,omitempty"`
	Publisher   string            `json:"publisher,omitempty"`
	Ontology    *pointer.Handle   `json:"ontology,omitempty"`
	Properties  *Properties       `json:"properties,omitempty"`
	Custom      map[string]string `json:"custom,omitempty"`
}

// Merge folds other into m. Fields already set on m win; list fields
// union in declaration order; per-kind attribute slots merge field by
// field so no sibling kind's attributes are dropped.
func (m *Metadata) Merge(other Metadata) {
	if m.Title == "" {
		m.Title = other.Title
	}
	if m.Description == "" {
		m.Description = other.Description
	}
	if m.CreatedAt == nil {
		m.CreatedAt = other.CreatedAt
	}
	if m.UpdatedAt == nil {
		m.UpdatedAt = other.UpdatedAt
	}
	if m.Language == "" {
		m.Language = other.Language
	}
	if m.Publisher == "" {
		m.Publisher = other.Publisher
	}
	if m.Ontology == nil {
		m.Ontology = other.Ontology
	}

	m.Authors = unionStrings(m.Authors, other.Authors)
	m.Keywords = unionStrings(m.Keywords, other.Keywords)
	m.Topics = unionStrings(m.Topics, other.Topics)
	m.Classes = unionStrings(m.Classes, other.Classes)

	if len(other.Custom) > 0 {
		if m.Custom == nil {
			m.Custom = make(map[string]string, len(other.Custom))
		}
		for key, value := range other.Custom {
			if _, exists := m.Custom[key]; !exists {
				m.Custom[key] = value
			}
		}
	}

	if other.Properties != nil {
		if m.Properties == nil {
			m.Properties = &Properties{}
		}
		m.Properties.merge(*other.Properties)
	}
}

// merge folds other into p, slot by slot. The existing kind tag wins.
func (p *Properties) merge(other Properties) {
	if p.Kind == "" {
		p.Kind = other.Kind
	}

	if p.Text == nil {
		p.Text = other.Text
	} else if other.Text != nil {
		mergeText(p.Text, *other.Text)
	}
	if p.Image == nil {
		p.Image = other.Image
	} else if other.Image != nil {
		mergeImage(p.Image, *other.Image)
	}
	if p.Video == nil {
		p.Video = other.Video
	} else if other.Video != nil {
		mergeVideo(p.Video, *other.Video)
	}
	if p.Audio == nil {
		p.Audio = other.Audio
	} else if other.Audio != nil {
		mergeAudio(p.Audio, *other.Audio)
	}
	if p.Composite == nil {
		p.Composite = other.Composite
	} else if other.Composite != nil {
		mergeComposite(p.Composite, *other.Composite)
	}
}

func mergeText(dst *TextAttributes, src TextAttributes) {
	if dst.Pages == 0 {
		dst.Pages = src.Pages
	}
	if dst.Words == 0 {
		dst.Words = src.Words
	}
	if dst.Encoding == "" {
		dst.Encoding = src.Encoding
	}
	if dst.Embeddings == nil {
		dst.Embeddings = src.Embeddings
	}
	if dst.Pos == nil {
		dst.Pos = src.Pos
	}
}

func mergeImage(dst *ImageAttributes, src ImageAttributes) {
	if dst.Dimensions == nil {
		dst.Dimensions = src.Dimensions
	}
	if dst.Format == "" {
		dst.Format = src.Format
	}
	if dst.Embeddings == nil {
		dst.Embeddings = src.Embeddings
	}
	if len(src.Hashes) > 0 {
		if dst.Hashes == nil {
			dst.Hashes = make(map[string]string, len(src.Hashes))
		}
		for algo, digest := range src.Hashes {
			if _, exists := dst.Hashes[algo]; !exists {
				dst.Hashes[algo] = digest
			}
		}
	}
}

func mergeVideo(dst *VideoAttributes, src VideoAttributes) {
	if dst.Resolution == nil {
		dst.Resolution = src.Resolution
	}
	if dst.Duration == 0 {
		dst.Duration = src.Duration
	}
	if dst.FPS == 0 {
		dst.FPS = src.FPS
	}
	if dst.Codec == "" {
		dst.Codec = src.Codec
	}
}

func mergeAudio(dst *AudioAttributes, src AudioAttributes) {
	if dst.Duration == 0 {
		dst.Duration = src.Duration
	}
	if dst.SampleRate == 0 {
		dst.SampleRate = src.SampleRate
	}
	if dst.Channels == 0 {
		dst.Channels = src.Channels
	}
	if dst.Codec == "" {
		dst.Codec = src.Codec
	}
	if dst.Embeddings == nil {
		dst.Embeddings = src.Embeddings
	}
}

func mergeComposite(dst *CompositeAttributes, src CompositeAttributes) {
	if dst.Count == 0 {
		dst.Count = src.Count
	}
	if dst.Type == "" {
		dst.Type = src.Type
	}
}

func unionStrings(existing, incoming []string) []string {
	if len(incoming) == 0 {
		return existing
	}
	seen := make(map[string]struct{}, len(existing))
	for _, v := range existing {
		seen[v] = struct{}{}
	}
	for _, v := range incoming {
		if _, ok := seen[v]; !ok {
			existing = append(existing, v)
			seen[v] = struct{}{}
		}
	}
	return existing
}
