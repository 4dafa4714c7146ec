package payload

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	"letterscribe/internal/pagerange"
	"letterscribe/internal/services"
)

// DefaultInstructionTemplate is the trailing user instruction. The single %s
// receives the ordered page list.
const DefaultInstructionTemplate = "Transcribe these letter pages, in the following order: %s"

const pngMIMEType = "image/png"

// Image is one page image in request order.
type Image struct {
	Page     int
	Name     string
	MIMEType string
	Data     []byte
}

// Payload is the ordered multimodal content for one group: every page image
// followed by exactly one instruction.
type Payload struct {
	Pages       []int
	Images      []Image
	Instruction string
}

// Size returns the total image byte count.
func (p Payload) Size() int {
	total := 0
	for _, img := range p.Images {
		total += len(img.Data)
	}
	return total
}

// MissingImageError reports a page whose image file is absent.
type MissingImageError struct {
	Page int
	Name string
	Path string
}

func (e *MissingImageError) Error() string {
	return fmt.Sprintf("page %d: image %s not found at %s", e.Page, e.Name, e.Path)
}

// Is lets callers match against services.ErrMissingImage.
func (e *MissingImageError) Is(target error) bool {
	return target == services.ErrMissingImage
}

// ImageFileName returns the conventional file name for a page: page-07.png.
func ImageFileName(page int) string {
	return fmt.Sprintf("page-%02d.png", page)
}

// Assembler resolves page images inside one project image directory.
type Assembler struct {
	imageDir     string
	template     string
	maxDimension int
}

// Option customizes the assembler.
type Option func(*Assembler)

// WithInstructionTemplate overrides the trailing instruction template. It must
// contain exactly one %s verb.
func WithInstructionTemplate(template string) Option {
	return func(a *Assembler) {
		if strings.TrimSpace(template) != "" {
			a.template = template
		}
	}
}

// WithMaxDimension downscales images whose longest side exceeds px. Zero
// disables scaling.
func WithMaxDimension(px int) Option {
	return func(a *Assembler) {
		if px > 0 {
			a.maxDimension = px
		}
	}
}

// NewAssembler constructs an assembler reading from imageDir.
func NewAssembler(imageDir string, opts ...Option) *Assembler {
	a := &Assembler{imageDir: imageDir, template: DefaultInstructionTemplate}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ImageDir returns the directory images are resolved against.
func (a *Assembler) ImageDir() string {
	return a.imageDir
}

// Assemble builds the payload for pages, preserving their order. The first
// missing image aborts assembly with a MissingImageError.
func (a *Assembler) Assemble(pages []int) (Payload, error) {
	out := Payload{
		Pages:  append([]int(nil), pages...),
		Images: make([]Image, 0, len(pages)),
	}
	for _, page := range pages {
		name := ImageFileName(page)
		path := filepath.Join(a.imageDir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return Payload{}, &MissingImageError{Page: page, Name: name, Path: path}
			}
			return Payload{}, fmt.Errorf("read %s: %w", name, err)
		}
		if a.maxDimension > 0 {
			data, err = downscale(data, a.maxDimension)
			if err != nil {
				return Payload{}, fmt.Errorf("downscale %s: %w", name, err)
			}
		}
		out.Images = append(out.Images, Image{
			Page:     page,
			Name:     name,
			MIMEType: pngMIMEType,
			Data:     data,
		})
	}
	out.Instruction = fmt.Sprintf(a.template, pagerange.Format(pages))
	return out, nil
}

// downscale shrinks a PNG so its longest side is at most maxDim. Images that
// already fit are returned untouched.
func downscale(data []byte, maxDim int) ([]byte, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	longest := max(cfg.Width, cfg.Height)
	if longest <= maxDim {
		return data, nil
	}

	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	width := cfg.Width * maxDim / longest
	height := cfg.Height * maxDim / longest
	dst := image.NewRGBA(image.Rect(0, 0, max(width, 1), max(height, 1)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
