package domain

import (
	"fmt"
	"image"
	"strings"
)

// SourceKind discriminates the variants of an ImageSource.
type SourceKind int

const (
	SourceNone SourceKind = iota
	SourceURL
	SourceDataURI
	SourceImage
)

func (k SourceKind) String() string {
	switch k {
	case SourceURL:
		return "url"
	case SourceDataURI:
		return "data-uri"
	case SourceImage:
		return "image"
	default:
		return "none"
	}
}

// ImageSource is a tagged union over the ways an export source can be
// referenced: a fetchable URL, an inline data URI, or an already-decoded
// image. It is immutable once constructed and carries no ownership beyond
// the export call it is passed into.
type ImageSource struct {
	kind    SourceKind
	url     string
	dataURI string
	img     image.Image
}

// NewURLSource creates an ImageSource referencing a fetchable URL.
func NewURLSource(url string) ImageSource {
	return ImageSource{kind: SourceURL, url: url} //nolint:exhaustruct
}

// NewDataURISource creates an ImageSource from an inline data URI.
func NewDataURISource(uri string) ImageSource {
	return ImageSource{kind: SourceDataURI, dataURI: uri} //nolint:exhaustruct
}

// NewImageSource creates an ImageSource from an already-decoded image.
func NewImageSource(img image.Image) ImageSource {
	return ImageSource{kind: SourceImage, img: img} //nolint:exhaustruct
}

// Kind returns the variant of the source.
func (s ImageSource) Kind() SourceKind {
	return s.kind
}

// URL returns the source URL. Only meaningful for SourceURL.
func (s ImageSource) URL() string {
	return s.url
}

// DataURI returns the inline data URI. Only meaningful for SourceDataURI.
func (s ImageSource) DataURI() string {
	return s.dataURI
}

// Image returns the decoded image. Only meaningful for SourceImage.
func (s ImageSource) Image() image.Image {
	return s.img
}

// IsZero reports whether the source is empty.
func (s ImageSource) IsZero() bool {
	switch s.kind {
	case SourceURL:
		return s.url == ""
	case SourceDataURI:
		return s.dataURI == ""
	case SourceImage:
		return s.img == nil
	default:
		return true
	}
}

// Identity returns a stable, human-debuggable identity string for the source.
// For data URIs only a prefix and suffix of the payload contribute, so two
// visually identical URIs may share an identity. This is collision-tolerant
// on purpose: the identity feeds a non-cryptographic cache key.
func (s ImageSource) Identity() string {
	switch s.kind {
	case SourceURL:
		return "url:" + s.url
	case SourceDataURI:
		const window = 64

		uri := s.dataURI
		if len(uri) <= 2*window {
			return fmt.Sprintf("data:%d:%s", len(uri), uri)
		}

		return fmt.Sprintf("data:%d:%s..%s", len(uri), uri[:window], uri[len(uri)-window:])
	case SourceImage:
		if s.img == nil {
			return ""
		}

		bounds := s.img.Bounds()

		return fmt.Sprintf("image:%dx%d:%p", bounds.Dx(), bounds.Dy(), s.img)
	default:
		return ""
	}
}

// Descriptor returns a short description of the source suitable for logs.
func (s ImageSource) Descriptor() string {
	id := s.Identity()
	if idx := strings.IndexByte(id, ':'); idx >= 0 {
		id = id[:min(len(id), idx+48)]
	}

	return s.kind.String() + "(" + id + ")"
}
