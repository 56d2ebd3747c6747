package pipeline

import (
	"strings"

	"github.com/IshaanNene/gameharvest/internal/extract"
	"github.com/IshaanNene/gameharvest/internal/types"
)

// HTMLSanitizeMiddleware strips HTML tags from text fields that still carry
// markup. Fields that are already plain text are only whitespace-collapsed,
// so literal "<", ">" and entity-like text survive unchanged.
type HTMLSanitizeMiddleware struct{}

func NewHTMLSanitizeMiddleware() *HTMLSanitizeMiddleware {
	return &HTMLSanitizeMiddleware{}
}

func (m *HTMLSanitizeMiddleware) Name() string { return "html_sanitize" }

func (m *HTMLSanitizeMiddleware) Process(rec *types.DetailRecord) (*types.DetailRecord, error) {
	for _, s := range textFields(rec) {
		*s = m.clean(*s)
	}
	for i := range rec.Features {
		rec.Features[i] = m.clean(rec.Features[i])
	}
	for i := range rec.Tags {
		rec.Tags[i] = m.clean(rec.Tags[i])
	}
	return rec, nil
}

func (m *HTMLSanitizeMiddleware) clean(s string) string {
	if s == "" {
		return s
	}
	if extract.HasMarkup(s) {
		return extract.StripTags(s)
	}
	return strings.Join(strings.Fields(s), " ")
}

// ListCleanMiddleware removes empty and repeated entries from the feature
// and tag lists and caps their length.
type ListCleanMiddleware struct {
	Max int
}

func (m *ListCleanMiddleware) Name() string { return "list_clean" }

func (m *ListCleanMiddleware) Process(rec *types.DetailRecord) (*types.DetailRecord, error) {
	rec.Features = m.clean(rec.Features)
	rec.Tags = m.clean(rec.Tags)
	return rec, nil
}

func (m *ListCleanMiddleware) clean(vals []string) []string {
	seen := make(map[string]bool, len(vals))
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
		if m.Max > 0 && len(out) == m.Max {
			break
		}
	}
	return out
}
