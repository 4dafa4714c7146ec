package transcription

import (
	"context"
	"fmt"
	"strings"
	"time"

	"letterscribe/internal/payload"
	"letterscribe/internal/services"
)

// Client is the remote transcription capability. Implementations return a
// *RemoteError for every non-success, including a well-formed response that
// carries no candidates.
type Client interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

// Request is one group's transcription call.
type Request struct {
	// Model is the provider model name (gemini-2.5-flash), not the shorthand key.
	Model             string
	SystemInstruction string
	Payload           payload.Payload
}

// Usage carries token accounting reported by the service.
type Usage struct {
	PromptTokens    int64
	CandidateTokens int64
	ThoughtTokens   int64
	TotalTokens     int64
}

// Result is a successful transcription.
type Result struct {
	Text         string
	Usage        Usage
	Thoughts     []string
	FinishReason string
	// Blocked is set when the candidate finished because of safety filters.
	Blocked      bool
	ModelVersion string
	// Raw holds the full response body for verbose diagnostics.
	Raw []byte
}

// FailureKind classifies a remote failure.
type FailureKind string

const (
	FailureTransport   FailureKind = "transport"
	FailureRateLimited FailureKind = "rate_limited"
	FailureEmpty       FailureKind = "empty_result"
	FailureBlocked     FailureKind = "blocked"
	FailureStatus      FailureKind = "http_status"
)

// RemoteError is the single failure type returned by Client implementations.
type RemoteError struct {
	Kind       FailureKind
	StatusCode int
	// RetryAfter is the server-suggested wait for rate-limited responses.
	RetryAfter time.Duration
	Detail     string
	// Raw holds the response body when one was received.
	Raw []byte
	Err error
}

func (e *RemoteError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "transcription request failed (%s", e.Kind)
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, ", http %d", e.StatusCode)
	}
	b.WriteString(")")
	if detail := strings.TrimSpace(e.Detail); detail != "" {
		b.WriteString(": ")
		b.WriteString(detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Is lets callers match against services.ErrRemoteRequest.
func (e *RemoteError) Is(target error) bool {
	return target == services.ErrRemoteRequest
}

// RateLimited reports whether the failure is a 429-equivalent signal.
func (e *RemoteError) RateLimited() bool {
	return e != nil && e.Kind == FailureRateLimited
}
