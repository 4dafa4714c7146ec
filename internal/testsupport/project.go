package testsupport

import (
	"fmt"
	"path/filepath"
	"testing"
)

// Project is a prepared letters project on disk.
type Project struct {
	Dir      string
	PDFPath  string
	ImageDir string
	PlanPath string
}

// ProjectOption customizes NewProject.
type ProjectOption func(*projectBuilder)

type projectBuilder struct {
	name     string
	plan     string
	pages    []int
	pdfPages int
	rawPDF   string
	size     int
}

// WithName changes the PDF base name (default "letters").
func WithName(name string) ProjectOption {
	return func(b *projectBuilder) { b.name = name }
}

// WithPlan sets the group plan contents.
func WithPlan(plan string) ProjectOption {
	return func(b *projectBuilder) { b.plan = plan }
}

// WithPages sets which page images are rendered.
func WithPages(pages ...int) ProjectOption {
	return func(b *projectBuilder) { b.pages = pages }
}

// WithRawPDF writes content instead of a parseable PDF.
func WithRawPDF(content string) ProjectOption {
	return func(b *projectBuilder) { b.rawPDF = content }
}

// WithImageSize sets the rendered page size in pixels.
func WithImageSize(px int) ProjectOption {
	return func(b *projectBuilder) { b.size = px }
}

// NewProject lays out <dir>/<name>.pdf, <dir>/temp_<name>/page-NN.png and
// <dir>/pages_<name>.txt inside dir. The defaults are pages 1-3 and the plan
// "1-2\n3\n".
func NewProject(t testing.TB, dir string, opts ...ProjectOption) Project {
	t.Helper()
	b := &projectBuilder{name: "letters", plan: "1-2\n3\n", pages: []int{1, 2, 3}, size: 8}
	for _, opt := range opts {
		opt(b)
	}
	b.pdfPages = len(b.pages)

	p := Project{
		Dir:      dir,
		PDFPath:  filepath.Join(dir, b.name+".pdf"),
		ImageDir: filepath.Join(dir, "temp_"+b.name),
		PlanPath: filepath.Join(dir, "pages_"+b.name+".txt"),
	}
	if b.rawPDF != "" {
		WriteFile(t, p.PDFPath, b.rawPDF)
	} else {
		WriteFile(t, p.PDFPath, string(MinimalPDF(b.pdfPages)))
	}
	for _, page := range b.pages {
		WritePNG(t, filepath.Join(p.ImageDir, fmt.Sprintf("page-%02d.png", page)), b.size, b.size)
	}
	WriteFile(t, p.PlanPath, b.plan)
	return p
}
