// internal/block/block.go
//
// Typed content blocks for the page composer.
//
// Context
// -------
// A page's content is an ordered list of Blocks.  Each Block carries a
// stable ID (assigned once, survives reordering), a type tag from a closed
// enumeration, and a property payload whose concrete shape depends on the
// type.  Blocks have no lifecycle of their own; they live inside a version
// snapshot and are serialized inline as JSON.
//
// The payload is a tagged union over the known types.  Stored content from
// an older or newer schema may carry a type we do not recognize; such
// blocks keep their raw payload in UnknownProps so a later round-trip
// writes back exactly what was read.  Unknown types are a warning on the
// read path, never an error.
//
// Notes
// -----
//   - Property structs stay shallow on purpose; deep shape validation would
//     force content migrations on every schema tweak.
//   - Oxford commas, two spaces after periods.
package block

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

//
// Type enumeration
//

// Type tags a block with its renderer family.
type Type string

const (
	TypeHero      Type = "hero"
	TypeTextImage Type = "text-image"
	TypeGallery   Type = "gallery"
	TypePostsFeed Type = "posts-feed"
	TypeCTA       Type = "cta"
)

// Types lists every recognized block type in presentation order.
var Types = []Type{TypeHero, TypeTextImage, TypeGallery, TypePostsFeed, TypeCTA}

// Known reports whether t is part of the closed enumeration.
func Known(t Type) bool {
	switch t {
	case TypeHero, TypeTextImage, TypeGallery, TypePostsFeed, TypeCTA:
		return true
	}
	return false
}

//
// Block
//

// Block is one unit of page content.  Exactly one of the *Props fields is
// non-nil for known types; UnknownProps holds the raw payload otherwise.
type Block struct {
	ID   string
	Type Type

	Hero      *HeroProps
	TextImage *TextImageProps
	Gallery   *GalleryProps
	PostsFeed *PostsFeedProps
	CTA       *CTAProps

	// UnknownProps preserves the payload of unrecognized types verbatim.
	UnknownProps json.RawMessage
}

// New returns a fresh block of the given type with its canonical default
// properties and a newly minted ID.  Unknown types get an empty payload.
func New(t Type) Block {
	b := Block{ID: uuid.NewString(), Type: t}
	switch t {
	case TypeHero:
		b.Hero = &HeroProps{Title: "New Hero Section", Subtitle: "Add your subtitle here"}
	case TypeTextImage:
		b.TextImage = &TextImageProps{Heading: "New Heading", Text: "Add your content here", ImagePosition: "right"}
	case TypeGallery:
		b.Gallery = &GalleryProps{Images: []string{}}
	case TypePostsFeed:
		b.PostsFeed = &PostsFeedProps{Limit: 3}
	case TypeCTA:
		b.CTA = &CTAProps{Title: "Call to Action", ButtonLabel: "Get Started", ButtonLink: "#"}
	default:
		b.UnknownProps = json.RawMessage(`{}`)
	}
	return b
}

// Valid reports whether the block's type is recognized.  Property shapes
// are intentionally not checked.
func Valid(b Block) bool { return Known(b.Type) }

// Clone returns a deep copy so a snapshot can never alias a working copy.
func (b Block) Clone() Block {
	out := b
	switch {
	case b.Hero != nil:
		v := *b.Hero
		out.Hero = &v
	case b.TextImage != nil:
		v := *b.TextImage
		out.TextImage = &v
	case b.Gallery != nil:
		v := *b.Gallery
		v.Images = append([]string(nil), b.Gallery.Images...)
		out.Gallery = &v
	case b.PostsFeed != nil:
		v := *b.PostsFeed
		out.PostsFeed = &v
	case b.CTA != nil:
		v := *b.CTA
		out.CTA = &v
	}
	if b.UnknownProps != nil {
		out.UnknownProps = append(json.RawMessage(nil), b.UnknownProps...)
	}
	return out
}

// CloneList deep-copies an ordered block list.
func CloneList(in []Block) []Block {
	if in == nil {
		return nil
	}
	out := make([]Block, len(in))
	for i, b := range in {
		out[i] = b.Clone()
	}
	return out
}

//
// JSON codec
//

// envelope is the wire shape: {"id": …, "type": …, "props": {…}}.
type envelope struct {
	ID    string          `json:"id,omitempty"`
	Type  Type            `json:"type"`
	Props json.RawMessage `json:"props"`
}

// MarshalJSON flattens the union into the envelope form.
func (b Block) MarshalJSON() ([]byte, error) {
	var props any
	switch {
	case b.Hero != nil:
		props = b.Hero
	case b.TextImage != nil:
		props = b.TextImage
	case b.Gallery != nil:
		props = b.Gallery
	case b.PostsFeed != nil:
		props = b.PostsFeed
	case b.CTA != nil:
		props = b.CTA
	case b.UnknownProps != nil:
		return json.Marshal(envelope{ID: b.ID, Type: b.Type, Props: b.UnknownProps})
	default:
		props = struct{}{}
	}
	raw, err := json.Marshal(props)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{ID: b.ID, Type: b.Type, Props: raw})
}

// UnmarshalJSON hydrates the union.  Unrecognized types land in
// UnknownProps with a warning so legacy content survives untouched.
func (b *Block) UnmarshalJSON(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("block: decode envelope: %w", err)
	}

	*b = Block{ID: env.ID, Type: env.Type}
	props := env.Props
	if props == nil {
		props = json.RawMessage(`{}`)
	}

	switch env.Type {
	case TypeHero:
		b.Hero = new(HeroProps)
		return json.Unmarshal(props, b.Hero)
	case TypeTextImage:
		b.TextImage = new(TextImageProps)
		return json.Unmarshal(props, b.TextImage)
	case TypeGallery:
		b.Gallery = new(GalleryProps)
		return json.Unmarshal(props, b.Gallery)
	case TypePostsFeed:
		b.PostsFeed = new(PostsFeedProps)
		return json.Unmarshal(props, b.PostsFeed)
	case TypeCTA:
		b.CTA = new(CTAProps)
		return json.Unmarshal(props, b.CTA)
	default:
		zap.S().Warnw("unknown block type, passing through", "type", env.Type)
		b.UnknownProps = append(json.RawMessage(nil), props...)
		return nil
	}
}
