package transcription

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"letterscribe/internal/services"
)

// Model is one supported remote model, addressed on the command line by Key.
// Key is also embedded in output file names.
type Model struct {
	Key  string
	Name string
	// RequestsPerMinute and RequestsPerDay are free-tier hints; zero means unknown.
	RequestsPerMinute int
	RequestsPerDay    int
	Note              string
}

// DefaultModelKey is used when no model is selected.
const DefaultModelKey = "25fl"

var models = map[string]Model{
	"25fl": {Key: "25fl", Name: "gemini-2.5-flash-lite", RequestsPerMinute: 10, RequestsPerDay: 20, Note: "cheap, adequate OCR, weaker at following instructions"},
	"25f":  {Key: "25f", Name: "gemini-2.5-flash", RequestsPerMinute: 5, RequestsPerDay: 20, Note: "cheap, better than lite"},
	"25p":  {Key: "25p", Name: "gemini-2.5-pro", Note: "expensive, may not be available on the free tier"},
	"3fp":  {Key: "3fp", Name: "gemini-3-flash-preview", RequestsPerMinute: 5, RequestsPerDay: 20, Note: "preview"},
}

// LookupModel resolves a shorthand key.
func LookupModel(key string) (Model, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		key = DefaultModelKey
	}
	m, ok := models[key]
	if !ok {
		return Model{}, fmt.Errorf("%w %q (supported: %s)", services.ErrUnsupportedModel, key, strings.Join(ModelKeys(), ", "))
	}
	return m, nil
}

// ModelKeys returns the supported keys sorted alphabetically.
func ModelKeys() []string {
	keys := make([]string, 0, len(models))
	for key := range models {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Models returns every supported model sorted by key.
func Models() []Model {
	out := make([]Model, 0, len(models))
	for _, key := range ModelKeys() {
		out = append(out, models[key])
	}
	return out
}

// MinInterval derives the spacing between requests that keeps a run under
// the model's per-minute limit. Zero when the limit is unknown.
func (m Model) MinInterval() time.Duration {
	if m.RequestsPerMinute <= 0 {
		return 0
	}
	return time.Minute / time.Duration(m.RequestsPerMinute)
}
