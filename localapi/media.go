package localapi

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

const (
	maxBannerWidth = 1200
	jpegQuality    = 80
)

// Banner is an image field as the content API serves it.
type Banner struct {
	URL        string     `json:"url"`
	Alt        string     `json:"alt,omitempty"`
	Dimensions Dimensions `json:"dimensions"`
}

type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Media writes processed images into a directory served under baseURL.
type Media struct {
	dir     string
	baseURL string
}

// NewMedia returns a Media writing to dir. baseURL is the public prefix,
// e.g. "http://localhost:4000/media".
func NewMedia(dir, baseURL string) *Media {
	return &Media{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

// Import reads the image at src, resizes it and stores it as name.jpg.
func (m *Media) Import(src, name string) (Banner, error) {
	f, err := os.Open(src)
	if err != nil {
		return Banner{}, err
	}
	defer f.Close()

	data, w, h, err := processImage(f, maxBannerWidth)
	if err != nil {
		return Banner{}, fmt.Errorf("%s: %w", src, err)
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return Banner{}, err
	}
	filename := name + ".jpg"
	if err := os.WriteFile(filepath.Join(m.dir, filename), data, 0o644); err != nil {
		return Banner{}, err
	}
	return Banner{
		URL:        m.baseURL + "/" + filename,
		Dimensions: Dimensions{Width: w, Height: h},
	}, nil
}

// processImage decodes src, scales it down to maxWidth when wider, and
// encodes it as JPEG.
func processImage(src io.Reader, maxWidth int) ([]byte, int, int, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxWidth {
		newH := h * maxWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w, h = maxWidth, newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, 0, 0, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), w, h, nil
}
