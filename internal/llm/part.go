package llm

import (
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrInvalidRequest indicates a request that must not be sent, such as an
// empty turn or a turn carrying more than one image.
var ErrInvalidRequest = errors.New("invalid LLM request")

// Part is one unit of a multimodal turn: either text or an inline image.
// Exactly one of Text and Image is set.
type Part struct {
	Text  string
	Image *Image
}

// Image is inline image data forwarded to the provider untouched.
type Image struct {
	MIMEType string
	Data     []byte
}

// Base64 returns the image bytes in standard base64 encoding.
func (i *Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// DataURL returns the image as a data: URL.
func (i *Image) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", i.MIMEType, i.Base64())
}

// TextPart builds a text part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// ImagePart builds an inline image part.
func ImagePart(mimeType string, data []byte) Part {
	return Part{Image: &Image{MIMEType: mimeType, Data: data}}
}

// IsImage reports whether the part carries an image.
func (p Part) IsImage() bool {
	return p.Image != nil
}

// ValidateParts checks the shape of a single turn: at least one part, no
// empty parts, and at most one image.
func ValidateParts(parts []Part) error {
	if len(parts) == 0 {
		return fmt.Errorf("%w: no content parts", ErrInvalidRequest)
	}
	images := 0
	for i, p := range parts {
		switch {
		case p.Image != nil && p.Text != "":
			return fmt.Errorf("%w: part %d has both text and image", ErrInvalidRequest, i)
		case p.Image != nil:
			if len(p.Image.Data) == 0 {
				return fmt.Errorf("%w: part %d has an empty image", ErrInvalidRequest, i)
			}
			images++
		case p.Text == "":
			return fmt.Errorf("%w: part %d is empty", ErrInvalidRequest, i)
		}
	}
	if images > 1 {
		return fmt.Errorf("%w: %d images in one turn, at most 1 allowed", ErrInvalidRequest, images)
	}
	return nil
}
