// internal/block/props.go
//
// Property payloads, one struct per block type.  Field names and defaults
// mirror the editor's palette; omitempty keeps stored snapshots compact.
package block

// HeroProps renders a full-width banner with optional background image.
type HeroProps struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	Image    string `json:"image,omitempty"`
}

// TextImageProps is a two-column text block with an image on either side.
type TextImageProps struct {
	Heading       string `json:"heading"`
	Text          string `json:"text"`
	Image         string `json:"image,omitempty"`
	ImagePosition string `json:"imagePosition,omitempty"` // "left" or "right"
}

// GalleryProps is an ordered image grid.
type GalleryProps struct {
	Images []string `json:"images"`
}

// PostsFeedProps embeds the tenant's most recent blog posts.
type PostsFeedProps struct {
	Limit    int    `json:"limit"`
	Category string `json:"category,omitempty"`
}

// CTAProps is a call-to-action banner with one button.
type CTAProps struct {
	Title       string `json:"title"`
	ButtonLabel string `json:"buttonLabel"`
	ButtonLink  string `json:"buttonLink"`
}
