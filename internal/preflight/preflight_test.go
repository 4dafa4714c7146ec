package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"letterscribe/internal/project"
	"letterscribe/internal/testsupport"
	"letterscribe/internal/transcription"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckWritableParent_MissingLeaf(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b")
	result := CheckWritableParent("out", path)
	if !result.Passed || !strings.Contains(result.Detail, "will be created") {
		t.Fatalf("expected creatable path, got %+v", result)
	}
}

func TestCheckWritableParent_FileInTheWay(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckWritableParent("out", filepath.Join(blocker, "child"))
	if result.Passed {
		t.Fatalf("expected failure when ancestor is a file, got %+v", result)
	}
}

func TestCountPages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "letters.pdf")
	if err := os.WriteFile(path, testsupport.MinimalPDF(3), 0o644); err != nil {
		t.Fatal(err)
	}
	pages, err := CountPages(path)
	if err != nil {
		t.Fatalf("CountPages returned error: %v", err)
	}
	if pages != 3 {
		t.Fatalf("expected 3 pages, got %d", pages)
	}
	if result := CheckPDF(path); !result.Passed || !strings.Contains(result.Detail, "3 pages") {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCheckPDF_NotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "letters.pdf")
	if err := os.WriteFile(path, []byte("plain text"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckPDF(path); result.Passed {
		t.Fatalf("expected failure for non-pdf, got %+v", result)
	}
}

func TestCheckImagesReportsMissing(t *testing.T) {
	dir := t.TempDir()
	planPath := filepath.Join(dir, "pages.txt")
	if err := os.WriteFile(planPath, []byte("1-2\n7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"page-01.png", "page-02.png"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("png"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	p, planResult := CheckPlan(planPath)
	if !planResult.Passed || !strings.Contains(planResult.Detail, "2 groups") {
		t.Fatalf("unexpected plan result %+v", planResult)
	}
	result := CheckImages(dir, p)
	if result.Passed || !strings.Contains(result.Detail, "page-07.png") {
		t.Fatalf("expected page-07.png missing, got %+v", result)
	}
}

func TestCheckAPIKey(t *testing.T) {
	if CheckAPIKey("  ").Passed {
		t.Fatal("expected blank key to fail")
	}
	if !CheckAPIKey("k").Passed {
		t.Fatal("expected key to pass")
	}
}

type stubChecker struct{ err error }

func (s stubChecker) HealthCheck(context.Context) error { return s.err }

func TestCheckModel(t *testing.T) {
	model, _ := transcription.LookupModel("25f")
	if result := CheckModel(context.Background(), model, stubChecker{}); !result.Passed {
		t.Fatalf("expected pass, got %+v", result)
	}
	result := CheckModel(context.Background(), model, stubChecker{err: context.DeadlineExceeded})
	if result.Passed || !strings.Contains(result.Detail, "timed out") {
		t.Fatalf("expected timeout summary, got %+v", result)
	}
	result = CheckModel(context.Background(), model, stubChecker{err: errors.New("bad key")})
	if result.Passed || result.Detail != "bad key" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestRunAllSkipsRemoteWithoutKey(t *testing.T) {
	fixture := testsupport.NewProject(t, t.TempDir(), testsupport.WithPlan("1\n"), testsupport.WithPages(1))
	layout, err := project.Resolve(fixture.PDFPath, "")
	if err != nil {
		t.Fatal(err)
	}

	model, _ := transcription.LookupModel("")
	results := RunAll(context.Background(), Input{
		Layout:  layout,
		Model:   model,
		Checker: stubChecker{err: errors.New("should not be called")},
	})
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Gemini API key" {
		t.Fatalf("expected only the API key check to fail, got %+v", failed)
	}
	for _, r := range results {
		if strings.HasPrefix(r.Name, "Model ") {
			t.Fatalf("remote check should be skipped without key: %+v", r)
		}
	}
}

func TestRunAllRunsRemoteCheckWithKey(t *testing.T) {
	fixture := testsupport.NewProject(t, t.TempDir())
	layout, err := project.Resolve(fixture.PDFPath, "")
	if err != nil {
		t.Fatal(err)
	}
	model, _ := transcription.LookupModel("3fp")
	results := RunAll(context.Background(), Input{
		Layout:    layout,
		Model:     model,
		APIKey:    "k",
		LedgerDir: filepath.Join(t.TempDir(), "ledger"),
		Checker:   stubChecker{},
	})
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("expected all checks to pass, got %+v", failed)
	}
	last := results[len(results)-1]
	if last.Name != "Model 3fp" || !last.Passed {
		t.Fatalf("expected remote check last, got %+v", last)
	}
}
