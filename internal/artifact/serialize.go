package artifact

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/IshaanNene/gameharvest/internal/types"
)

// Serialize renders records as a TypeScript array literal. Field order is
// fixed and every string is escaped, so the same records always produce
// the same bytes.
func Serialize(records []types.TargetGameRecord) string {
	if len(records) == 0 {
		return "[]"
	}

	var b strings.Builder
	b.WriteString("[\n")
	for i, r := range records {
		b.WriteString("  {\n")
		field(&b, "id", strconv.Itoa(r.ID))
		field(&b, "title", quote(r.Title))
		field(&b, "image", quote(r.Image))
		field(&b, "description", quote(r.Description))
		field(&b, "features", stringArray(r.Features))
		field(&b, "isNew", strconv.FormatBool(r.IsNew))
		field(&b, "iframe", templateLiteral(r.Iframe))
		field(&b, "controls", controlArray(r.Controls))
		field(&b, "category", quote(r.Category))
		field(&b, "playCount", strconv.Itoa(r.PlayCount))
		field(&b, "likes", strconv.Itoa(r.Likes))
		field(&b, "favorites", strconv.Itoa(r.Favorites))
		b.WriteString("    duration: ")
		b.WriteString(quote(r.Duration))
		b.WriteString("\n  }")
		if i < len(records)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString("]")
	return b.String()
}

func field(b *strings.Builder, name, value string) {
	b.WriteString("    ")
	b.WriteString(name)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString(",\n")
}

// quote returns s as a double-quoted string literal with JSON escaping.
// Markup characters are left readable.
func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return strconv.Quote(s)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

var templateEscaper = strings.NewReplacer("\\", "\\\\", "`", "\\`", "${", "\\${")

func templateLiteral(s string) string {
	return "`" + templateEscaper.Replace(s) + "`"
}

func stringArray(vals []string) string {
	if len(vals) == 0 {
		return "[]"
	}
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = quote(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func controlArray(controls []types.Control) string {
	if len(controls) == 0 {
		return "[]"
	}
	parts := make([]string, len(controls))
	for i, c := range controls {
		parts[i] = "{ key: " + quote(c.Key) + ", action: " + quote(c.Action) + " }"
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
