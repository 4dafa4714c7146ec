package batch

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"letterscribe/internal/ledger"
	"letterscribe/internal/logging"
	"letterscribe/internal/pacing"
	"letterscribe/internal/payload"
	"letterscribe/internal/services"
	"letterscribe/internal/transcription"
)

// Assembler builds the request payload for one group.
type Assembler interface {
	Assemble(pages []int) (payload.Payload, error)
}

// Writer persists transcriptions.
type Writer interface {
	Write(modelKey string, pages []int, text string) (string, error)
	WriteReasoning(modelKey string, pages []int, thoughts []string) (string, error)
}

// Ledger records every request and answers the trailing daily count.
type Ledger interface {
	Record(ctx context.Context, entry ledger.Entry) (int64, error)
	CountSince(ctx context.Context, modelKey string, since time.Time) (int, error)
}

// Config is the per-run configuration. It is built once by the caller and
// never mutated by the runner.
type Config struct {
	Model             transcription.Model
	SystemInstruction string
	// Skip holds zero-based group indices to leave untouched.
	Skip map[int]struct{}
	// ContinueOnError records remote failures and moves on instead of
	// aborting the run.
	ContinueOnError bool
	// RateLimitRetries is how many extra attempts a rate-limited group gets.
	RateLimitRetries  int
	Verbose           bool
	SaveReasoning     bool
	EnforceDailyLimit bool
}

// Deps are the collaborators of a run. Ledger, Logger, Now and RunID are
// optional.
type Deps struct {
	Assembler Assembler
	Client    transcription.Client
	Pacer     pacing.Policy
	Writer    Writer
	Ledger    Ledger
	Logger    *slog.Logger
	Now       func() time.Time
	RunID     string
}

// Runner dispatches the groups of a plan strictly in order, one request at a
// time.
type Runner struct {
	cfg       Config
	assembler Assembler
	client    transcription.Client
	pacer     pacing.Policy
	writer    Writer
	ledger    Ledger
	logger    *slog.Logger
	now       func() time.Time
	runID     string
}

// NewRunner validates the configuration and dependencies.
func NewRunner(cfg Config, deps Deps) (*Runner, error) {
	var missing []string
	if deps.Assembler == nil {
		missing = append(missing, "assembler")
	}
	if deps.Client == nil {
		missing = append(missing, "client")
	}
	if deps.Pacer == nil {
		missing = append(missing, "pacer")
	}
	if deps.Writer == nil {
		missing = append(missing, "writer")
	}
	if len(missing) > 0 {
		return nil, services.Wrap(services.ErrConfiguration, "batch", "new runner", "missing "+strings.Join(missing, ", "), nil)
	}
	if strings.TrimSpace(cfg.Model.Key) == "" || strings.TrimSpace(cfg.Model.Name) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "batch", "new runner", "model required", nil)
	}
	if cfg.RateLimitRetries < 0 {
		return nil, services.Wrap(services.ErrConfiguration, "batch", "new runner", "rate limit retries must be >= 0", nil)
	}

	r := &Runner{
		cfg:       cfg,
		assembler: deps.Assembler,
		client:    deps.Client,
		pacer:     deps.Pacer,
		writer:    deps.Writer,
		ledger:    deps.Ledger,
		logger:    logging.NewComponentLogger(deps.Logger, "batch"),
		now:       deps.Now,
		runID:     strings.TrimSpace(deps.RunID),
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.runID == "" {
		r.runID = uuid.NewString()
	}
	return r, nil
}

// RunID identifies the run in logs and ledger entries.
func (r *Runner) RunID() string {
	return r.runID
}

func (r *Runner) skipped(index int) bool {
	if r.cfg.Skip == nil {
		return false
	}
	_, ok := r.cfg.Skip[index]
	return ok
}

// continuable reports whether the continue policy may move past err. Only
// failures returned by the service qualify; cancellation, quota exhaustion
// and local errors carry no RemoteError and always abort.
func continuable(err error) bool {
	var remote *transcription.RemoteError
	return errors.As(err, &remote)
}

// SkipSet builds the skip lookup from a list of group indices.
func SkipSet(indices []int) map[int]struct{} {
	set := make(map[int]struct{}, len(indices))
	for _, idx := range indices {
		set[idx] = struct{}{}
	}
	return set
}
