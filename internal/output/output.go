package output

import (
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"letterscribe/internal/fileutil"
)

const (
	filePrefix      = "ocr_"
	fileExtension   = ".md"
	reasoningSuffix = ".reasoning.md"
	fileMode        = 0o644
)

// FileName returns the artifact name for a group transcribed by modelKey,
// e.g. ocr_25fl_pages_02_03_10.md. Page order is preserved.
func FileName(modelKey string, pages []int) string {
	parts := make([]string, len(pages))
	for i, page := range pages {
		parts[i] = fmt.Sprintf("%02d", page)
	}
	return filePrefix + modelKey + "_pages_" + strings.Join(parts, "_") + fileExtension
}

// ReasoningFileName returns the sidecar name holding model reasoning for an artifact.
func ReasoningFileName(artifact string) string {
	return strings.TrimSuffix(artifact, fileExtension) + reasoningSuffix
}

// Writer persists transcriptions into a project's output directory.
type Writer struct {
	dir string
}

// NewWriter returns a writer targeting dir, which must already exist.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Path returns where the artifact for pages would be written.
func (w *Writer) Path(modelKey string, pages []int) string {
	return filepath.Join(w.dir, FileName(modelKey, pages))
}

// Write stores text as the artifact for pages, replacing any previous run's
// file. The text is normalized to NFC.
func (w *Writer) Write(modelKey string, pages []int, text string) (string, error) {
	path := w.Path(modelKey, pages)
	if err := fileutil.WriteFileAtomic(path, []byte(norm.NFC.String(text)), fileMode); err != nil {
		return "", fmt.Errorf("write transcription: %w", err)
	}
	return path, nil
}

// WriteReasoning stores thought summaries beside the artifact. Nothing is
// written when thoughts is empty.
func (w *Writer) WriteReasoning(modelKey string, pages []int, thoughts []string) (string, error) {
	if len(thoughts) == 0 {
		return "", nil
	}
	path := filepath.Join(w.dir, ReasoningFileName(FileName(modelKey, pages)))
	body := strings.Join(thoughts, "\n\n---\n\n") + "\n"
	if err := fileutil.WriteFileAtomic(path, []byte(norm.NFC.String(body)), fileMode); err != nil {
		return "", fmt.Errorf("write reasoning: %w", err)
	}
	return path, nil
}
