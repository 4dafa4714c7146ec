package preflight

import (
	"context"

	"letterscribe/internal/project"
	"letterscribe/internal/transcription"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Input gathers what RunAll needs to evaluate a project.
type Input struct {
	Layout    project.Layout
	Model     transcription.Model
	APIKey    string
	LedgerDir string
	// Checker is optional; when nil the remote model check is skipped.
	Checker HealthChecker
}

// RunAll executes all applicable preflight checks for a project.
func RunAll(ctx context.Context, in Input) []Result {
	results := []Result{
		CheckPDF(in.Layout.PDFPath),
		CheckDirectoryAccess("Image directory", in.Layout.ImageDir),
	}

	p, planResult := CheckPlan(in.Layout.PlanPath)
	results = append(results, planResult)
	if p != nil {
		results = append(results, CheckImages(in.Layout.ImageDir, p))
	}

	results = append(results, CheckWritableParent("Output directory", in.Layout.OutputDir))
	if in.LedgerDir != "" {
		results = append(results, CheckWritableParent("Ledger directory", in.LedgerDir))
	}

	key := CheckAPIKey(in.APIKey)
	results = append(results, key)
	if key.Passed && in.Checker != nil {
		results = append(results, CheckModel(ctx, in.Model, in.Checker))
	}
	return results
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
