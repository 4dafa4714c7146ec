package payload_test

import (
	"bytes"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"letterscribe/internal/payload"
	"letterscribe/internal/services"
	"letterscribe/internal/testsupport"
)

func writePage(t *testing.T, dir string, page int, content []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, payload.ImageFileName(page)), content, 0o644); err != nil {
		t.Fatalf("write page %d: %v", page, err)
	}
}

func TestImageFileNameZeroPads(t *testing.T) {
	cases := map[int]string{1: "page-01.png", 7: "page-07.png", 12: "page-12.png", 123: "page-123.png"}
	for page, want := range cases {
		if got := payload.ImageFileName(page); got != want {
			t.Fatalf("ImageFileName(%d) = %q, want %q", page, got, want)
		}
	}
}

func TestAssemblePreservesPageOrder(t *testing.T) {
	dir := t.TempDir()
	for _, page := range []int{2, 3, 10} {
		writePage(t, dir, page, []byte{byte(page)})
	}

	a := payload.NewAssembler(dir)
	got, err := a.Assemble([]int{10, 2, 3})
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	if len(got.Images) != 3 {
		t.Fatalf("expected 3 images, got %d", len(got.Images))
	}
	var order []int
	for _, img := range got.Images {
		order = append(order, int(img.Data[0]))
		if img.MIMEType != "image/png" {
			t.Fatalf("unexpected mime type %q", img.MIMEType)
		}
	}
	if !reflect.DeepEqual(order, []int{10, 2, 3}) {
		t.Fatalf("image order = %v", order)
	}
	want := "Transcribe these letter pages, in the following order: [10, 2, 3]"
	if got.Instruction != want {
		t.Fatalf("instruction = %q, want %q", got.Instruction, want)
	}
	if got.Size() != 3 {
		t.Fatalf("unexpected size %d", got.Size())
	}
}

func TestAssembleMissingImage(t *testing.T) {
	dir := t.TempDir()
	writePage(t, dir, 6, []byte("x"))

	_, err := payload.NewAssembler(dir).Assemble([]int{6, 7, 8})
	if !errors.Is(err, services.ErrMissingImage) {
		t.Fatalf("expected ErrMissingImage, got %v", err)
	}
	var missing *payload.MissingImageError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingImageError, got %T", err)
	}
	if missing.Name != "page-07.png" || missing.Page != 7 {
		t.Fatalf("unexpected missing image %+v", missing)
	}
}

func TestAssembleCustomTemplate(t *testing.T) {
	dir := t.TempDir()
	writePage(t, dir, 1, []byte("x"))
	got, err := payload.NewAssembler(dir, payload.WithInstructionTemplate("Order: %s")).Assemble([]int{1})
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	if got.Instruction != "Order: [1]" {
		t.Fatalf("instruction = %q", got.Instruction)
	}
}

func TestAssembleDownscalesLargeImages(t *testing.T) {
	dir := t.TempDir()
	writePage(t, dir, 1, testsupport.PNG(t, 400, 200))
	writePage(t, dir, 2, testsupport.PNG(t, 50, 40))

	got, err := payload.NewAssembler(dir, payload.WithMaxDimension(100)).Assemble([]int{1, 2})
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	large, err := png.DecodeConfig(bytes.NewReader(got.Images[0].Data))
	if err != nil {
		t.Fatalf("decode scaled image: %v", err)
	}
	if large.Width != 100 || large.Height != 50 {
		t.Fatalf("scaled size = %dx%d, want 100x50", large.Width, large.Height)
	}
	small, err := png.DecodeConfig(bytes.NewReader(got.Images[1].Data))
	if err != nil {
		t.Fatalf("decode small image: %v", err)
	}
	if small.Width != 50 || small.Height != 40 {
		t.Fatalf("small image should be untouched, got %dx%d", small.Width, small.Height)
	}
}
