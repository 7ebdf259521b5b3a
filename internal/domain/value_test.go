package domain

import (
	"encoding/json"
	"testing"
)

func TestValueOf_Kinds(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Kind
	}{
		{"string", "hello", KindString},
		{"number", 3.14, KindNumber},
		{"int", 7, KindNumber},
		{"bool", true, KindBool},
		{"string slice", []string{"a", "b"}, KindStringList},
		{"any slice of strings", []any{"a", "b"}, KindStringList},
		{"mixed slice", []any{"a", 1.0}, KindArray},
		{"object", map[string]any{"k": "v"}, KindObject},
		{"nil", nil, KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValueOf(tt.in).Kind(); got != tt.want {
				t.Errorf("ValueOf(%v).Kind() = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestValue_RoundTripJSON(t *testing.T) {
	m := MetadataOf(map[string]any{
		"title": "Intro",
		"year":  2023.0,
		"tags":  []any{"net", "mm"},
		"draft": false,
	})
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back map[string]any
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back["title"] != "Intro" || back["year"] != 2023.0 || back["draft"] != false {
		t.Errorf("unexpected round trip: %v", back)
	}
}

func TestMetadata_Str(t *testing.T) {
	m := MetadataOf(map[string]any{"title": "Intro", "year": 2023.0})
	if s, ok := m.Str("title"); !ok || s != "Intro" {
		t.Errorf("Str(title) = %q, %v", s, ok)
	}
	if _, ok := m.Str("year"); ok {
		t.Error("Str(year) should report false for a number")
	}
	if _, ok := m.Str("missing"); ok {
		t.Error("Str(missing) should report false")
	}
}

func TestMergeKind(t *testing.T) {
	tests := []struct {
		prev, next, want Kind
	}{
		{KindString, KindString, KindString},
		{KindUnknown, KindNumber, KindNumber},
		{KindNumber, KindUnknown, KindNumber},
		{KindArray, KindStringList, KindStringList},
		{KindStringList, KindObject, KindStringList},
		{KindString, KindNumber, KindString}, // first observation stands
	}
	for _, tt := range tests {
		if got := MergeKind(tt.prev, tt.next); got != tt.want {
			t.Errorf("MergeKind(%s, %s) = %s, want %s", tt.prev, tt.next, got, tt.want)
		}
	}
}

func TestHit_DocumentKey(t *testing.T) {
	h := Hit{ID: "chunk-1", Fields: map[string]any{"document_number": "P1234", "url": "https://x"}}
	if got := h.DocumentKey(); got != "P1234" {
		t.Errorf("DocumentKey = %q, want P1234", got)
	}

	h = Hit{ID: "chunk-2", Fields: map[string]any{"url": "https://x"}}
	if got := h.DocumentKey(); got != "https://x" {
		t.Errorf("DocumentKey = %q, want url fallback", got)
	}

	h = Hit{ID: "chunk-3", Fields: map[string]any{}}
	if got := h.DocumentKey(); got != "chunk-3" {
		t.Errorf("DocumentKey = %q, want hit id fallback", got)
	}
	if h.HasDocumentIdentifier() {
		t.Error("HasDocumentIdentifier should be false without identifier fields")
	}
}

func TestHit_ContentAndMetadata(t *testing.T) {
	h := Hit{ID: "c", Fields: map[string]any{ContentField: "body", "title": "T"}}
	if h.Content() != "body" {
		t.Errorf("Content = %q", h.Content())
	}
	m := h.Metadata()
	if m.Has(ContentField) {
		t.Error("metadata should exclude the content field")
	}
	if s, _ := m.Str("title"); s != "T" {
		t.Errorf("metadata title = %q", s)
	}
}

func TestRoundScore(t *testing.T) {
	if got := RoundScore(0.123456); got != 0.1235 {
		t.Errorf("RoundScore = %v", got)
	}
	if got := RoundScore(0.1); got != 0.1 {
		t.Errorf("RoundScore = %v", got)
	}
}
