package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/valpere/bhasha/internal"
	"github.com/valpere/bhasha/internal/orchestrator"
)

var _ orchestrator.Cache = (*Store)(nil)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_New(t *testing.T) {
	s := newTestStore(t)

	if s == nil {
		t.Fatal("expected non-nil store")
	}
}

func TestStore_New_InvalidPath(t *testing.T) {
	_, err := New("/nonexistent/path/test.db")
	if err == nil {
		t.Error("expected error for invalid path")
	}
}

func TestStore_SaveDetection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.SaveDetection(ctx, internal.DetectionRecord{
		Text:     "aap kaise ho",
		Selected: "en",
		Detected: "hi",
		Method:   "exclusive",
		Service:  "heuristic",
		Fallback: true,
	})
	if err != nil {
		t.Fatalf("SaveDetection failed: %v", err)
	}
	if id == "" {
		t.Error("expected generated id")
	}

	records, err := s.ListDetections(ctx, 0)
	if err != nil {
		t.Fatalf("ListDetections failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	r := records[0]
	if r.ID != id || r.Detected != "hi" || r.Selected != "en" || !r.Fallback || r.Method != "exclusive" {
		t.Errorf("unexpected record %+v", r)
	}
}

func TestStore_ListDetections_OrderAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, lang := range []string{"hi", "ta", "gu"} {
		_, err := s.SaveDetection(ctx, internal.DetectionRecord{
			Text:      lang,
			Selected:  "en",
			Detected:  lang,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("SaveDetection failed: %v", err)
		}
	}

	records, err := s.ListDetections(ctx, 2)
	if err != nil {
		t.Fatalf("ListDetections failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Detected != "gu" || records[1].Detected != "ta" {
		t.Errorf("expected newest first, got %s, %s", records[0].Detected, records[1].Detected)
	}
}

func TestStore_GetCachedDetection_Miss(t *testing.T) {
	s := newTestStore(t)

	lang, service, found, err := s.GetCachedDetection(context.Background(), "vanakkam")
	if err != nil {
		t.Errorf("GetCachedDetection failed: %v", err)
	}
	if found {
		t.Error("expected not found for uncached text")
	}
	if lang != "" || service != "" {
		t.Errorf("expected empty values, got %q/%q", lang, service)
	}
}

func TestStore_GetCachedDetection_Hit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveCachedDetection(ctx, "Vanakkam Nandri", "ta", "openai"); err != nil {
		t.Fatalf("SaveCachedDetection failed: %v", err)
	}

	// Keys are case- and whitespace-insensitive.
	lang, service, found, err := s.GetCachedDetection(ctx, "  vanakkam nandri ")
	if err != nil {
		t.Errorf("GetCachedDetection failed: %v", err)
	}
	if !found {
		t.Fatal("expected to find cached detection")
	}
	if lang != "ta" || service != "openai" {
		t.Errorf("got %q/%q", lang, service)
	}

	entries, err := s.ListCache(ctx)
	if err != nil {
		t.Fatalf("ListCache failed: %v", err)
	}
	if len(entries) != 1 || entries[0].UsageCount != 2 {
		t.Errorf("expected usage count 2, got %+v", entries)
	}
}

func TestStore_GetCachedDetection_NFC(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// U+0958 decomposes to KA + NUKTA under NFC.
	if err := s.Remember(ctx, "\u0958", "hi", "lingua"); err != nil {
		t.Fatalf("Remember failed: %v", err)
	}
	_, _, found, err := s.Lookup(ctx, "\u0915\u093c")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if !found {
		t.Error("expected NFC-equivalent text to hit the cache")
	}
}

func TestStore_SaveCachedDetection_Replace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveCachedDetection(ctx, "kem cho", "hi", "ollama"); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveCachedDetection(ctx, "kem cho", "gu", "openai"); err != nil {
		t.Fatal(err)
	}

	lang, service, _, _ := s.GetCachedDetection(ctx, "kem cho")
	if lang != "gu" || service != "openai" {
		t.Errorf("expected replaced entry, got %q/%q", lang, service)
	}

	entries, _ := s.ListCache(ctx)
	if len(entries) != 1 {
		t.Errorf("expected 1 entry, got %d", len(entries))
	}
}

func TestStore_InvalidateCache(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveCachedDetection(ctx, "namaskaram", "te", "google"); err != nil {
		t.Fatalf("SaveCachedDetection failed: %v", err)
	}

	entries, err := s.ListCache(ctx)
	if err != nil {
		t.Fatalf("ListCache failed: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected at least one entry")
	}

	if err := s.InvalidateCache(ctx, entries[0].ID); err != nil {
		t.Fatalf("InvalidateCache failed: %v", err)
	}

	_, _, found, err := s.GetCachedDetection(ctx, "namaskaram")
	if err != nil {
		t.Errorf("GetCachedDetection failed: %v", err)
	}
	if found {
		t.Error("expected not found for invalidated entry")
	}

	if err := s.InvalidateCache(ctx, "missing"); err == nil {
		t.Error("expected error for unknown id")
	}
}

func TestStore_DeleteCache(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.SaveCachedDetection(ctx, "nenu", "te", "google")
	entries, _ := s.ListCache(ctx)

	if err := s.DeleteCache(ctx, entries[0].ID); err != nil {
		t.Fatalf("DeleteCache failed: %v", err)
	}

	entries, _ = s.ListCache(ctx)
	if len(entries) != 0 {
		t.Errorf("expected empty cache, got %d entries", len(entries))
	}

	if err := s.DeleteCache(ctx, "missing"); err == nil {
		t.Error("expected error for unknown id")
	}
}

func TestStore_ClearCache(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.SaveCachedDetection(ctx, "one", "en", "google")
	s.SaveCachedDetection(ctx, "two", "en", "google")

	n, err := s.ClearCache(ctx)
	if err != nil {
		t.Fatalf("ClearCache failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 deleted, got %d", n)
	}
}

func TestStore_Stats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.SaveCachedDetection(ctx, "kem cho", "gu", "openai")
	s.SaveCachedDetection(ctx, "vanakkam", "ta", "openai")
	s.GetCachedDetection(ctx, "kem cho")

	entries, _ := s.ListCache(ctx)
	for _, e := range entries {
		if e.Text == "vanakkam" {
			s.InvalidateCache(ctx, e.ID)
		}
	}

	s.SaveDetection(ctx, internal.DetectionRecord{Text: "kem cho", Selected: "en", Detected: "gu"})
	s.SaveDetection(ctx, internal.DetectionRecord{Text: "aap", Selected: "en", Detected: "hi", Fallback: true})
	s.SaveDetection(ctx, internal.DetectionRecord{Text: "kaise", Selected: "en", Detected: "hi", Fallback: true})

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	if stats.TotalEntries != 2 {
		t.Errorf("TotalEntries = %d, want 2", stats.TotalEntries)
	}
	if stats.ActiveEntries != 1 || stats.InvalidEntries != 1 {
		t.Errorf("Active/Invalid = %d/%d, want 1/1", stats.ActiveEntries, stats.InvalidEntries)
	}
	if stats.TotalUsage != 3 {
		t.Errorf("TotalUsage = %d, want 3", stats.TotalUsage)
	}
	if stats.Detections != 3 || stats.Fallbacks != 2 {
		t.Errorf("Detections/Fallbacks = %d/%d, want 3/2", stats.Detections, stats.Fallbacks)
	}
	if stats.ByLanguage["hi"] != 2 || stats.ByLanguage["gu"] != 1 {
		t.Errorf("unexpected ByLanguage %v", stats.ByLanguage)
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Hello ", "hello"},
		{"\u0958", "\u0915\u093c"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := normalizeText(tt.in); got != tt.want {
			t.Errorf("normalizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
