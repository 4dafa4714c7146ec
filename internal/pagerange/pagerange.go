// Package pagerange expands compact page-range strings such as "2-5,10,7-9"
// into ordered page-index sequences.
//
// Token order is preserved and nothing is sorted or deduplicated across
// tokens, so letters scanned out of order can be described directly.
package pagerange

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"letterscribe/internal/services"
)

// MaxRangeSpan caps the number of pages a single start-end token may expand to.
const MaxRangeSpan = 10000

// MalformedRangeError reports a range string that cannot be expanded.
type MalformedRangeError struct {
	Spec   string
	Token  string
	Reason string
}

func (e *MalformedRangeError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("malformed page range %q: %s", e.Spec, e.Reason)
	}
	return fmt.Sprintf("malformed page range %q: token %q: %s", e.Spec, e.Token, e.Reason)
}

// Is lets callers match against services.ErrMalformedRange.
func (e *MalformedRangeError) Is(target error) bool {
	return target == services.ErrMalformedRange
}

// Parse converts spec into page indices. Single tokens yield one page;
// "start-end" tokens yield start..end inclusive in ascending order.
func Parse(spec string) ([]int, error) {
	trimmed := strings.TrimSpace(spec)
	if trimmed == "" {
		return nil, &MalformedRangeError{Spec: spec, Reason: "empty range"}
	}

	var pages []int
	for _, raw := range strings.Split(trimmed, ",") {
		token := strings.TrimSpace(raw)
		if token == "" {
			return nil, &MalformedRangeError{Spec: spec, Token: raw, Reason: "empty token"}
		}
		if !strings.Contains(token, "-") {
			page, err := parsePage(token)
			if err != nil {
				return nil, &MalformedRangeError{Spec: spec, Token: token, Reason: err.Error()}
			}
			pages = append(pages, page)
			continue
		}

		bounds := strings.Split(token, "-")
		if len(bounds) != 2 {
			return nil, &MalformedRangeError{Spec: spec, Token: token, Reason: "expected start-end"}
		}
		start, err := parsePage(bounds[0])
		if err != nil {
			return nil, &MalformedRangeError{Spec: spec, Token: token, Reason: "start: " + err.Error()}
		}
		end, err := parsePage(bounds[1])
		if err != nil {
			return nil, &MalformedRangeError{Spec: spec, Token: token, Reason: "end: " + err.Error()}
		}
		if start > end {
			return nil, &MalformedRangeError{Spec: spec, Token: token, Reason: fmt.Sprintf("start %d is after end %d", start, end)}
		}
		if end-start >= MaxRangeSpan {
			return nil, &MalformedRangeError{Spec: spec, Token: token, Reason: fmt.Sprintf("range too large (more than %d pages)", MaxRangeSpan)}
		}
		for page := start; ; page++ {
			pages = append(pages, page)
			if page == end {
				break
			}
		}
	}
	return pages, nil
}

func parsePage(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, errors.New("missing number")
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", value)
	}
	if n < 0 {
		return 0, fmt.Errorf("%d is negative", n)
	}
	return n, nil
}

// Format renders pages the way they are embedded in prompts and logs: a
// bracketed, comma separated list such as "[2, 3, 10]".
func Format(pages []int) string {
	parts := make([]string, len(pages))
	for i, page := range pages {
		parts[i] = strconv.Itoa(page)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
