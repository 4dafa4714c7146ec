package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sys/unix"

	"letterscribe/internal/payload"
	"letterscribe/internal/plan"
	"letterscribe/internal/transcription"
)

// HealthChecker is satisfied by remote transcription clients that can verify
// credentials and model availability without spending a generation request.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckWritableParent verifies that path can be created: either it exists as a
// writable directory or its nearest existing ancestor is writable.
func CheckWritableParent(name, path string) Result {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return CheckDirectoryAccess(name, path)
	}
	dir := filepath.Dir(path)
	for {
		info, err := os.Stat(dir)
		if err == nil {
			if !info.IsDir() {
				return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s is not a directory)", path, dir)}
			}
			if err := unix.Access(dir, unix.W_OK|unix.X_OK); err != nil {
				return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s not writable: %v)", path, dir, err)}
			}
			return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: no existing ancestor)", path)}
		}
		dir = parent
	}
}

// CheckPDF verifies that the source PDF opens and reports its page count.
func CheckPDF(path string) Result {
	const name = "Source PDF"
	pages, err := CountPages(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d pages)", path, pages)}
}

// CountPages returns the number of pages in the PDF at path.
func CountPages(path string) (pages int, err error) {
	defer func() {
		// The PDF reader panics on some malformed cross-reference tables.
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()
	file, reader, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	defer file.Close()
	return reader.NumPage(), nil
}

// CheckPlan loads the group plan and reports how many groups it holds.
func CheckPlan(path string) (*plan.Plan, Result) {
	const name = "Group plan"
	p, err := plan.Load(path)
	if err != nil {
		return nil, Result{Name: name, Detail: err.Error()}
	}
	return p, Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d groups)", path, p.Len())}
}

// CheckImages verifies that every page referenced by the plan has a rendered
// image in imageDir. A missing image would otherwise abort the run mid-way.
func CheckImages(imageDir string, p *plan.Plan) Result {
	const name = "Page images"
	if p == nil {
		return Result{Name: name, Detail: "no plan loaded"}
	}
	seen := make(map[int]struct{})
	var missing []string
	total := 0
	for _, group := range p.Groups() {
		for _, page := range group.Pages {
			if _, ok := seen[page]; ok {
				continue
			}
			seen[page] = struct{}{}
			total++
			file := payload.ImageFileName(page)
			if _, err := os.Stat(filepath.Join(imageDir, file)); err != nil {
				missing = append(missing, file)
			}
		}
	}
	if len(missing) > 0 {
		detail := strings.Join(missing, ", ")
		if len(missing) > 5 {
			detail = strings.Join(missing[:5], ", ") + fmt.Sprintf(" and %d more", len(missing)-5)
		}
		return Result{Name: name, Detail: fmt.Sprintf("missing %s", detail)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d pages present", total)}
}

// CheckAPIKey reports whether a Gemini API key was resolved.
func CheckAPIKey(key string) Result {
	const name = "Gemini API key"
	if strings.TrimSpace(key) == "" {
		return Result{Name: name, Detail: "missing (set GEMINI_API_KEY or gemini.api_key)"}
	}
	return Result{Name: name, Passed: true, Detail: "configured"}
}

// CheckModel verifies that the model is reachable with the configured key.
// It uses a 30-second timeout and a single attempt.
func CheckModel(ctx context.Context, model transcription.Model, checker HealthChecker) Result {
	name := fmt.Sprintf("Model %s", model.Key)
	if checker == nil {
		return Result{Name: name, Detail: "client unavailable"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := checker.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeRemoteError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable", model.Name)}
}

func summarizeRemoteError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (API unreachable)"
	}
	return err.Error()
}
