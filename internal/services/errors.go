package services

import (
	"errors"
	"fmt"
	"strings"
)

// Failure markers shared by every component. Typed errors in the owning
// packages report one of these through errors.Is.
var (
	ErrMalformedRange        = errors.New("malformed page range")
	ErrPlanNotFound          = errors.New("group plan not found")
	ErrProjectNotInitialized = errors.New("project not initialized")
	ErrMissingImage          = errors.New("page image missing")
	ErrRemoteRequest         = errors.New("remote request failed")
	ErrQuotaExhausted        = errors.New("daily request quota exhausted")
	ErrConfiguration         = errors.New("configuration error")
	ErrUnsupportedModel      = errors.New("unsupported model")
	ErrProjectLocked         = errors.New("project locked by another run")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker. The marker should be one of the exported
// sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrConfiguration
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short label for the first marker found in err's chain.
// Used for structured logs and abort reports.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedRange):
		return "malformed_range"
	case errors.Is(err, ErrPlanNotFound):
		return "plan_not_found"
	case errors.Is(err, ErrProjectNotInitialized):
		return "project_not_initialized"
	case errors.Is(err, ErrMissingImage):
		return "missing_image"
	case errors.Is(err, ErrQuotaExhausted):
		return "quota_exhausted"
	case errors.Is(err, ErrRemoteRequest):
		return "remote_request"
	case errors.Is(err, ErrUnsupportedModel):
		return "unsupported_model"
	case errors.Is(err, ErrProjectLocked):
		return "project_locked"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return "unknown"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
