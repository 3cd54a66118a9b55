package captionsvc

import "context"

// CaptionBox is one text slot on a meme template.
type CaptionBox struct {
	Text string `json:"text"`
}

// CaptionClient defines the interface for rendering captioned templates via
// the captioning proxy. The returned URL feeds the rasterizer as a source;
// the export pipeline itself never talks to the proxy.
type CaptionClient interface {
	// Caption renders the template with the given text boxes and returns
	// the URL of the rendered image.
	Caption(ctx context.Context, templateID string, boxes []CaptionBox) (string, error)
}
