// Package imaging shrinks photos before they are written to the remote store.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"math"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	DefaultMaxSide = 800
	DefaultQuality = 70
)

var ErrInvalidImage = errors.New("invalid image")

// Normalizer downsamples images so that the longer side is at most MaxSide,
// keeping the aspect ratio, and re-encodes them as JPEG at Quality. It has no
// state besides its settings and is safe for concurrent use.
type Normalizer struct {
	MaxSide int
	Quality int
}

func NewNormalizer() *Normalizer {
	return &Normalizer{MaxSide: DefaultMaxSide, Quality: DefaultQuality}
}

// Normalize decodes a JPEG, PNG or WebP image and returns its normalized
// JPEG encoding. Undecodable input yields ErrInvalidImage.
func (n *Normalizer) Normalize(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidImage)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	b := src.Bounds()
	w, h := TargetSize(b.Dx(), b.Dy(), n.maxSide())
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("%w: empty bounds", ErrInvalidImage)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	// JPEG has no alpha; transparent pixels come out white.
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: n.quality()}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return out.Bytes(), nil
}

// NormalizeDataURL is Normalize for a base64 data URL.
func (n *Normalizer) NormalizeDataURL(dataURL string) ([]byte, error) {
	_, data, err := DecodeDataURL(dataURL)
	if err != nil {
		return nil, err
	}
	return n.Normalize(data)
}

func (n *Normalizer) maxSide() int {
	if n.MaxSide <= 0 {
		return DefaultMaxSide
	}
	return n.MaxSide
}

func (n *Normalizer) quality() int {
	if n.Quality <= 0 || n.Quality > 100 {
		return DefaultQuality
	}
	return n.Quality
}

// TargetSize scales (w, h) down so that neither side exceeds maxSide.
// Dimensions already within bounds are returned unchanged.
func TargetSize(w, h, maxSide int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	if w <= maxSide && h <= maxSide {
		return w, h
	}
	if w >= h {
		nh := int(math.Round(float64(h) * float64(maxSide) / float64(w)))
		return maxSide, max(nh, 1)
	}
	nw := int(math.Round(float64(w) * float64(maxSide) / float64(h)))
	return max(nw, 1), maxSide
}

// EncodeDataURL renders data as a base64 data URL of the given media type.
func EncodeDataURL(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL splits a base64 data URL into its media type and payload.
func DecodeDataURL(dataURL string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", nil, fmt.Errorf("%w: not a data url", ErrInvalidImage)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("%w: malformed data url", ErrInvalidImage)
	}
	mediaType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("%w: data url is not base64", ErrInvalidImage)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return mediaType, data, nil
}
