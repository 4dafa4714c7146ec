package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"letterscribe/internal/testsupport"
)

type cliTestEnv struct {
	baseDir    string
	pdfPath    string
	imageDir   string
	configPath string
	calls      *atomic.Int32
}

// setupCLITestEnv prepares a project with pages 1-3 and a fake Gemini
// endpoint. fail lists zero-based request numbers that should get HTTP 400.
func setupCLITestEnv(t *testing.T, fail ...int32) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Chdir(base)

	calls := &atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := calls.Add(1) - 1
		for _, f := range fail {
			if f == call {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_, _ = io.WriteString(w, `{"error": {"code": 400, "message": "bad image", "status": "INVALID_ARGUMENT"}}`)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"candidates": [{"content": {"role": "model", "parts": [{"text": "letter %d"}]}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 10, "candidatesTokenCount": 2, "totalTokenCount": 12}}`, call)
	}))
	t.Cleanup(server.Close)

	fixture := testsupport.NewProject(t, base, testsupport.WithPlan("1-2\n\n3\n"), testsupport.WithRawPDF("not really a pdf"))
	testsupport.WriteFile(t, filepath.Join(base, "system_instruction.md"), "You transcribe letters.")

	configPath := filepath.Join(base, "config.toml")
	testsupport.WriteFile(t, configPath, fmt.Sprintf("[gemini]\nbase_url = %q\ntimeout_seconds = 5\n", server.URL))

	return &cliTestEnv{baseDir: base, pdfPath: fixture.PDFPath, imageDir: fixture.ImageDir, configPath: configPath, calls: calls}
}

func (e *cliTestEnv) run(args ...string) (string, string, error) {
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestTranscribeWritesEachGroup(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, stderr, err := env.run("transcribe", env.pdfPath, "--cooldown", "10ms")
	if err != nil {
		t.Fatalf("transcribe failed: %v\nstderr: %s", err, stderr)
	}
	first, err := os.ReadFile(filepath.Join(env.imageDir, "ocr_25fl_pages_01_02.md"))
	if err != nil || string(first) != "letter 0" {
		t.Fatalf("unexpected first artifact %q (%v)", first, err)
	}
	second, err := os.ReadFile(filepath.Join(env.imageDir, "ocr_25fl_pages_03.md"))
	if err != nil || string(second) != "letter 1" {
		t.Fatalf("unexpected second artifact %q (%v)", second, err)
	}
	if !strings.Contains(stdout, "done") || strings.Contains(stdout, "Resume with") {
		t.Fatalf("unexpected summary:\n%s", stdout)
	}
	if !strings.Contains(stderr, "transcription saved") {
		t.Fatalf("expected progress logs on stderr, got:\n%s", stderr)
	}

	usage, _, err := env.run("usage")
	if err != nil {
		t.Fatalf("usage failed: %v", err)
	}
	if strings.Count(usage, "success") != 2 {
		t.Fatalf("expected two ledger rows, got:\n%s", usage)
	}
}

func TestTranscribeSkipsGroups(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, stderr, err := env.run("transcribe", env.pdfPath, "--skip", "0", "--model", "25f"); err != nil {
		t.Fatalf("transcribe failed: %v\nstderr: %s", err, stderr)
	}
	if env.calls.Load() != 1 {
		t.Fatalf("expected one request, got %d", env.calls.Load())
	}
	if _, err := os.Stat(filepath.Join(env.imageDir, "ocr_25f_pages_03.md")); err != nil {
		t.Fatalf("expected group 1 artifact: %v", err)
	}
	if _, err := os.Stat(filepath.Join(env.imageDir, "ocr_25f_pages_01_02.md")); !os.IsNotExist(err) {
		t.Fatal("skipped group must not be written")
	}
}

func TestTranscribeAbortPrintsResumeHint(t *testing.T) {
	env := setupCLITestEnv(t, 1)

	stdout, _, err := env.run("transcribe", env.pdfPath, "--cooldown", "10ms")
	if err == nil || !strings.Contains(err.Error(), "group 1") {
		t.Fatalf("expected abort at group 1, got %v", err)
	}
	if !strings.Contains(stdout, "--skip 0") {
		t.Fatalf("expected resume hint, got:\n%s", stdout)
	}
}

func TestTranscribeRequiresPreparedProject(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.Remove(filepath.Join(env.baseDir, "pages_letters.txt")); err != nil {
		t.Fatal(err)
	}
	_, _, err := env.run("transcribe", env.pdfPath)
	if err == nil || !strings.Contains(err.Error(), "pages_letters.txt") {
		t.Fatalf("expected missing plan error, got %v", err)
	}
	if env.calls.Load() != 0 {
		t.Fatal("no request should be sent")
	}
}

func TestTranscribeRejectsUnknownModel(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := env.run("transcribe", env.pdfPath, "--model", "gpt"); err == nil {
		t.Fatal("expected unsupported model error")
	}
}

func TestStatusReportsChecks(t *testing.T) {
	env := setupCLITestEnv(t)
	stdout, _, err := env.run("status", env.pdfPath)
	if err == nil {
		t.Fatal("expected failure for an unreadable PDF")
	}
	for _, want := range []string{"== Project letters ==", "Source PDF:", "[ERROR]", "Page images:", "3 pages present", "Gemini API key:", "Daily requests:"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("missing %q in status output:\n%s", want, stdout)
		}
	}
}

func TestModelsListsKeys(t *testing.T) {
	env := setupCLITestEnv(t)
	stdout, _, err := env.run("models")
	if err != nil {
		t.Fatalf("models failed: %v", err)
	}
	for _, want := range []string{"25fl", "gemini-2.5-flash-lite", "3fp", "gemini-3-flash-preview"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("missing %q in:\n%s", want, stdout)
		}
	}
}

func TestParseSkip(t *testing.T) {
	got, err := parseSkip([]string{"0", "2"}, []string{"5"}, true)
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(got) != "[0 2 5]" {
		t.Fatalf("unexpected indices %v", got)
	}
	if got, _ := parseSkip([]string{"1 3"}, nil, true); fmt.Sprint(got) != "[1 3]" {
		t.Fatalf("unexpected indices for quoted list %v", got)
	}
	if _, err := parseSkip(nil, []string{"other.pdf"}, false); err == nil {
		t.Fatal("expected error for extra positional args without --skip")
	}
	if _, err := parseSkip([]string{"-1"}, nil, true); err == nil {
		t.Fatal("expected error for negative index")
	}
}
