// Package imaging holds the single resize and recompress loop shared by the
// local image store, the WhatsApp preview endpoints and the maintenance
// commands.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// maxPixels rejects decompression bombs before allocating the frame.
const maxPixels = 40_000_000

type Mode int

const (
	// Contain scales the whole image into the box and pads with white.
	Contain Mode = iota
	// Cover fills the box and crops the overflow around the center.
	Cover
)

type Size struct {
	W, H int
}

// Options drives Optimize. Sizes are tried in order; within each size the
// JPEG quality walks from Quality down to MinQuality by Step.
type Options struct {
	Sizes      []Size
	Mode       Mode
	MaxBytes   int
	Quality    int
	MinQuality int
	Step       int
}

type Attempt struct {
	Size    Size
	Quality int
	Bytes   int
}

type Result struct {
	Data         []byte
	Size         Size
	Quality      int
	WithinBudget bool
	Attempts     []Attempt
}

var (
	// PreviewProfile targets the 1.91:1 social preview card.
	PreviewProfile = Options{
		Sizes:      []Size{{1200, 630}, {800, 420}},
		Mode:       Contain,
		MaxBytes:   300 * 1024,
		Quality:    85,
		MinQuality: 50,
		Step:       10,
	}
	SquareProfile = Options{
		Sizes:      []Size{{800, 800}, {600, 600}},
		Mode:       Cover,
		MaxBytes:   300 * 1024,
		Quality:    85,
		MinQuality: 50,
		Step:       10,
	}
	ThumbnailProfile = Options{
		Sizes:      []Size{{600, 600}},
		Mode:       Cover,
		MaxBytes:   150 * 1024,
		Quality:    80,
		MinQuality: 50,
		Step:       10,
	}
)

var ErrTooLarge = errors.New("image dimensions too large")

func (o Options) validate() error {
	if len(o.Sizes) == 0 {
		return errors.New("no target sizes")
	}
	for _, s := range o.Sizes {
		if s.W <= 0 || s.H <= 0 {
			return fmt.Errorf("invalid target size %dx%d", s.W, s.H)
		}
	}
	if o.Quality < 1 || o.Quality > 100 || o.MinQuality < 1 || o.MinQuality > o.Quality {
		return fmt.Errorf("invalid quality range %d..%d", o.MinQuality, o.Quality)
	}
	if o.Step <= 0 {
		return errors.New("step must be positive")
	}
	if o.MaxBytes <= 0 {
		return errors.New("byte ceiling must be positive")
	}
	return nil
}

// Decode reads JPEG, PNG, GIF or WebP and returns the format name.
func Decode(data []byte) (image.Image, string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode config: %w", err)
	}
	if cfg.Width*cfg.Height > maxPixels {
		return nil, "", fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return img, format, nil
}

// Optimize decodes data and runs OptimizeImage.
func Optimize(data []byte, opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return OptimizeImage(img, opts)
}

// OptimizeImage returns the first encoding that fits opts.MaxBytes. When no
// size fits even at the quality floor, the smallest encoding produced is
// returned with WithinBudget false.
func OptimizeImage(img image.Image, opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	res := &Result{}
	var best []byte
	var bestAttempt Attempt

	for _, size := range opts.Sizes {
		canvas := Fit(img, size, opts.Mode)
		q := opts.Quality
		for {
			data, err := encodeJPEG(canvas, q)
			if err != nil {
				return nil, err
			}
			attempt := Attempt{Size: size, Quality: q, Bytes: len(data)}
			res.Attempts = append(res.Attempts, attempt)

			if len(data) <= opts.MaxBytes {
				res.Data, res.Size, res.Quality, res.WithinBudget = data, size, q, true
				return res, nil
			}
			if best == nil || len(data) < len(best) {
				best, bestAttempt = data, attempt
			}
			if q == opts.MinQuality {
				break
			}
			q -= opts.Step
			if q < opts.MinQuality {
				q = opts.MinQuality
			}
		}
	}

	res.Data, res.Size, res.Quality = best, bestAttempt.Size, bestAttempt.Quality
	return res, nil
}

// Fit renders img onto a size.W x size.H canvas with a white background.
func Fit(img image.Image, size Size, mode Mode) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size.W, size.H))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	sb := img.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	if sw == 0 || sh == 0 {
		return dst
	}

	scaleW := float64(size.W) / float64(sw)
	scaleH := float64(size.H) / float64(sh)

	switch mode {
	case Cover:
		scale := max(scaleW, scaleH)
		cw := int(float64(size.W) / scale)
		ch := int(float64(size.H) / scale)
		x0 := sb.Min.X + (sw-cw)/2
		y0 := sb.Min.Y + (sh-ch)/2
		src := image.Rect(x0, y0, x0+cw, y0+ch)
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, src, xdraw.Over, nil)
	default:
		scale := min(scaleW, scaleH)
		w := max(1, int(float64(sw)*scale+0.5))
		h := max(1, int(float64(sh)*scale+0.5))
		x0 := (size.W - w) / 2
		y0 := (size.H - h) / 2
		xdraw.CatmullRom.Scale(dst, image.Rect(x0, y0, x0+w, y0+h), img, sb, xdraw.Over, nil)
	}
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg q%d: %w", quality, err)
	}
	return buf.Bytes(), nil
}
