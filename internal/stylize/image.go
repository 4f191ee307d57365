package stylize

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

// Dimensions decodes a still payload and returns its intrinsic size.
func Dimensions(data []byte) (width, height int, err error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("undecodable image payload: %w", err)
	}
	bounds := img.Bounds()
	return bounds.Dx(), bounds.Dy(), nil
}

// BoundStill re-encodes a still so its longest edge is at most maxEdge,
// preserving aspect ratio. Stills already within the bound pass through
// untouched; maxEdge <= 0 disables the bound.
func BoundStill(data []byte, maxEdge int) ([]byte, error) {
	if maxEdge <= 0 {
		return data, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	if bounds.Dx() <= maxEdge && bounds.Dy() <= maxEdge {
		return data, nil
	}

	shrunk := resize.Thumbnail(uint(maxEdge), uint(maxEdge), img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := png.Encode(&buf, shrunk); err != nil {
		return nil, fmt.Errorf("failed to re-encode still: %w", err)
	}
	return buf.Bytes(), nil
}
