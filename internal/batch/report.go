package batch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"letterscribe/internal/pagerange"
	"letterscribe/internal/services"
	"letterscribe/internal/transcription"
)

// Status is the terminal state of one group within a run.
type Status string

const (
	StatusDone         Status = "done"
	StatusSkipped      Status = "skipped"
	StatusFailed       Status = "failed"
	StatusNotAttempted Status = "not_attempted"
)

// GroupOutcome describes what happened to one group.
type GroupOutcome struct {
	Index         int
	Pages         []int
	Status        Status
	OutputPath    string
	ReasoningPath string
	Attempts      int
	Elapsed       time.Duration
	Usage         transcription.Usage
	Err           error
}

// Report summarizes a run. It is returned on success and on abort.
type Report struct {
	RunID    string
	ModelKey string
	Outcomes []GroupOutcome
	Requests int
	Elapsed  time.Duration
	// Abort is set when the run stopped before the end of the plan.
	Abort *AbortError
}

// Aborted reports whether the run stopped early.
func (r Report) Aborted() bool {
	return r.Abort != nil
}

// Count returns how many groups ended with status.
func (r Report) Count(status Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Failed lists the groups whose request failed.
func (r Report) Failed() []GroupOutcome {
	var failed []GroupOutcome
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			failed = append(failed, o)
		}
	}
	return failed
}

// ResumeSkip returns the group indices a rerun can skip: every group that was
// transcribed in this run plus every group that was already skipped.
func (r Report) ResumeSkip() []int {
	var indices []int
	for _, o := range r.Outcomes {
		if o.Status == StatusDone || o.Status == StatusSkipped {
			indices = append(indices, o.Index)
		}
	}
	sort.Ints(indices)
	return indices
}

// ResumeHint renders ResumeSkip as a --skip flag, or "" when nothing can be
// skipped or nothing is left to do.
func (r Report) ResumeHint() string {
	if r.Count(StatusFailed) == 0 && r.Count(StatusNotAttempted) == 0 {
		return ""
	}
	indices := r.ResumeSkip()
	if len(indices) == 0 {
		return ""
	}
	parts := make([]string, len(indices))
	for i, idx := range indices {
		parts[i] = strconv.Itoa(idx)
	}
	return "--skip " + strings.Join(parts, ",")
}

// AbortError names the group that stopped the run and why.
type AbortError struct {
	GroupIndex int
	Pages      []int
	Kind       string
	Err        error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("run aborted at group %d (pages %s, %s): %v", e.GroupIndex, pagerange.Format(e.Pages), e.Kind, e.Err)
}

func (e *AbortError) Unwrap() error { return e.Err }

// failureKind labels err for reports, logs and ledger entries.
func failureKind(err error) string {
	var remote *transcription.RemoteError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &remote):
		return string(remote.Kind)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return services.Kind(err)
	}
}
