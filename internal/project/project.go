package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"letterscribe/internal/services"
)

const (
	imageDirPrefix = "temp_"
	planPrefix     = "pages_"
	planExtension  = ".txt"
	lockFileName   = ".letterscribe.lock"
)

// Layout is the on-disk arrangement derived from a source PDF path.
type Layout struct {
	PDFPath string
	// Name is the PDF file name without its extension.
	Name      string
	Dir       string
	ImageDir  string
	PlanPath  string
	OutputDir string
}

// NotInitializedError lists the project inputs that are absent.
type NotInitializedError struct {
	Missing []string
}

func (e *NotInitializedError) Error() string {
	return fmt.Sprintf("project not correctly initialized; missing %s", strings.Join(e.Missing, ", "))
}

// Is lets callers match against services.ErrProjectNotInitialized.
func (e *NotInitializedError) Is(target error) bool {
	return target == services.ErrProjectNotInitialized
}

// Resolve derives the project layout for pdfPath. A non-empty planOverride
// replaces the default pages_<name>.txt beside the PDF.
func Resolve(pdfPath, planOverride string) (Layout, error) {
	pdfPath = strings.TrimSpace(pdfPath)
	if pdfPath == "" {
		return Layout{}, services.Wrap(services.ErrConfiguration, "project", "resolve", "pdf path required", nil)
	}
	abs, err := filepath.Abs(pdfPath)
	if err != nil {
		return Layout{}, services.Wrap(services.ErrConfiguration, "project", "resolve", "absolute pdf path", err)
	}
	dir := filepath.Dir(abs)
	base := filepath.Base(abs)
	name := strings.TrimSuffix(base, filepath.Ext(base))

	layout := Layout{
		PDFPath:  abs,
		Name:     name,
		Dir:      dir,
		ImageDir: filepath.Join(dir, imageDirPrefix+name),
		PlanPath: filepath.Join(dir, planPrefix+name+planExtension),
	}
	layout.OutputDir = layout.ImageDir
	if override := strings.TrimSpace(planOverride); override != "" {
		planAbs, err := filepath.Abs(override)
		if err != nil {
			return Layout{}, services.Wrap(services.ErrConfiguration, "project", "resolve", "absolute plan path", err)
		}
		layout.PlanPath = planAbs
	}
	return layout, nil
}

// Check verifies the PDF, image directory and plan file exist. Every missing
// input is reported at once.
func (l Layout) Check() error {
	var missing []string
	if info, err := os.Stat(l.PDFPath); err != nil || info.IsDir() {
		missing = append(missing, l.PDFPath)
	}
	if info, err := os.Stat(l.ImageDir); err != nil || !info.IsDir() {
		missing = append(missing, l.ImageDir)
	}
	if info, err := os.Stat(l.PlanPath); err != nil || info.IsDir() {
		missing = append(missing, l.PlanPath)
	}
	if len(missing) > 0 {
		return &NotInitializedError{Missing: missing}
	}
	return nil
}

// LockPath returns the advisory lock file guarding the project.
func (l Layout) LockPath() string {
	return filepath.Join(l.ImageDir, lockFileName)
}

// Lock is a held project lock.
type Lock struct {
	lock *flock.Flock
}

// Lock takes the project's advisory lock without blocking. A second run over
// the same project fails with services.ErrProjectLocked.
func (l Layout) Lock() (*Lock, error) {
	fl := flock.New(l.LockPath())
	ok, err := fl.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "project", "lock", "acquire project lock", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrProjectLocked, "project", "lock", "another run holds "+l.LockPath(), nil)
	}
	return &Lock{lock: fl}, nil
}

// Release unlocks and removes the lock file.
func (k *Lock) Release() error {
	if k == nil || k.lock == nil {
		return nil
	}
	path := k.lock.Path()
	if err := k.lock.Unlock(); err != nil {
		return fmt.Errorf("release project lock: %w", err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove project lock: %w", err)
	}
	return nil
}
