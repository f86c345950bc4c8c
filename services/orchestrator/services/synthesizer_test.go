package services

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizePayloadTruncatesLongStrings(t *testing.T) {
	long := strings.Repeat("a", 600)
	got := sanitizePayload(map[string]any{"abstract": long, "title": "short"})
	m, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("expected map, got %T", got)
	}
	abstract, _ := m["abstract"].(string)
	if len(abstract) != sanitizeMaxTextLen+len(truncationMarker) {
		t.Errorf("unexpected truncated length %d", len(abstract))
	}
	if !strings.HasSuffix(abstract, truncationMarker) {
		t.Errorf("missing truncation marker: %q", abstract[len(abstract)-20:])
	}
	if m["title"] != "short" {
		t.Errorf("short strings must pass through, got %v", m["title"])
	}
}

func TestSanitizePayloadBoundaryString(t *testing.T) {
	exact := strings.Repeat("b", sanitizeMaxTextLen)
	got := sanitizePayload(map[string]any{"v": exact}).(map[string]any)
	if got["v"] != exact {
		t.Error("a string exactly at the limit must not be truncated")
	}
}

func TestSanitizePayloadTruncatesOnRuneBoundary(t *testing.T) {
	// Each é is two bytes; a byte-indexed cut would split one in half.
	long := strings.Repeat("é", 600)
	got := sanitizePayload(map[string]any{"abstract": long}).(map[string]any)
	abstract, _ := got["abstract"].(string)
	if !utf8.ValidString(abstract) {
		t.Fatal("truncated string must stay valid UTF-8")
	}
	if !strings.HasSuffix(abstract, truncationMarker) {
		t.Errorf("missing truncation marker: %q", abstract[len(abstract)-20:])
	}
	kept := strings.TrimSuffix(abstract, truncationMarker)
	if utf8.RuneCountInString(kept) != sanitizeMaxTextLen {
		t.Errorf("expected %d runes kept, got %d", sanitizeMaxTextLen, utf8.RuneCountInString(kept))
	}
	exact := strings.Repeat("é", sanitizeMaxTextLen)
	if got := sanitizePayload(exact); got != exact {
		t.Error("a string exactly at the rune limit must not be truncated")
	}
}

func TestSanitizePayloadLimitsLists(t *testing.T) {
	rows := make([]map[string]any, 40)
	for i := range rows {
		rows[i] = map[string]any{"i": i}
	}
	got, ok := sanitizePayload(rows).([]any)
	if !ok {
		t.Fatalf("expected list, got %T", sanitizePayload(rows))
	}
	if len(got) != sanitizeMaxItems {
		t.Errorf("expected %d items, got %d", sanitizeMaxItems, len(got))
	}
	first := got[0].(map[string]any)
	if first["i"] != 0 {
		t.Errorf("list order must be preserved, got %v", first["i"])
	}
}

func TestSanitizePayloadRecursesNested(t *testing.T) {
	nested := map[string]any{
		"rows": []any{
			map[string]any{"abstract": strings.Repeat("c", 1000)},
		},
	}
	got := sanitizePayload(nested).(map[string]any)
	inner := got["rows"].([]any)[0].(map[string]any)
	abstract := inner["abstract"].(string)
	if !strings.HasSuffix(abstract, truncationMarker) {
		t.Error("nested strings must be truncated too")
	}
}

func TestSanitizePayloadScalars(t *testing.T) {
	if got := sanitizePayload(42); got != 42 {
		t.Errorf("scalars must pass through, got %v", got)
	}
	if got := sanitizePayload(nil); got != nil {
		t.Errorf("nil must pass through, got %v", got)
	}
}
