package retouch_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/montanaflynn/retouch"
)

func TestRecordPassthrough(t *testing.T) {
	line := `{"brand":"Acme","name":"Anvil","image_url":"https://example.com/a.jpg","sku":"A-1","tags":["heavy","iron"]}`

	var rec retouch.Record
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec.Brand != "Acme" || rec.Name != "Anvil" || rec.ImageURL != "https://example.com/a.jpg" {
		t.Fatalf("known fields not decoded: %+v", rec)
	}
	if _, ok := rec.Extra["sku"]; !ok {
		t.Fatalf("passthrough field sku lost")
	}

	out, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var roundTrip map[string]any
	if err := json.Unmarshal(out, &roundTrip); err != nil {
		t.Fatalf("re-unmarshal: %v", err)
	}
	if roundTrip["sku"] != "A-1" {
		t.Fatalf("sku did not survive round trip: %v", roundTrip)
	}
	if tags, ok := roundTrip["tags"].([]any); !ok || len(tags) != 2 {
		t.Fatalf("tags did not survive round trip: %v", roundTrip["tags"])
	}
}

func TestReadRecords(t *testing.T) {
	input := strings.Join([]string{
		`{"brand":"Acme","name":"Anvil","image_url":"https://example.com/a.jpg"}`,
		``,
		`not json`,
		`{"brand":"Acme","name":"Rocket"}`,
		`{"brand":"Globex","name":"Widget","image_url":"https://example.com/w.png"}`,
	}, "\n")

	records, bad, err := retouch.ReadRecords(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[1].Brand != "Globex" {
		t.Fatalf("wrong record order: %+v", records)
	}

	// Line 3 is malformed; line 4 is missing image_url.
	if len(bad) != 2 {
		t.Fatalf("expected 2 bad lines, got %d: %v", len(bad), bad)
	}
	if bad[0].Line != 3 {
		t.Fatalf("bad line number = %d", bad[0].Line)
	}
	if bad[1].Line != 4 || retouch.GetErrorCode(bad[1].Err) != retouch.InvalidArgument {
		t.Fatalf("missing image_url not flagged: %v", bad[1])
	}
}

func TestReadRecordsOversizedLine(t *testing.T) {
	input := strings.Join([]string{
		`{"brand":"Acme","name":"Anvil","image_url":"https://example.com/a.jpg"}`,
		`{"brand":"Acme","name":"Poster","notes":"` + strings.Repeat("x", retouch.MaxRecordBytes) + `"}`,
		`{"brand":"Globex","name":"Widget","image_url":"https://example.com/w.png"}`,
	}, "\n")

	records, bad, err := retouch.ReadRecords(strings.NewReader(input))
	if err != nil {
		t.Fatalf("oversized line must not abort the read: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[1].Brand != "Globex" {
		t.Fatalf("record after the oversized line lost: %+v", records)
	}
	if len(bad) != 1 || bad[0].Line != 2 {
		t.Fatalf("oversized line not isolated: %v", bad)
	}
	if retouch.GetErrorCode(bad[0].Err) != retouch.InvalidArgument {
		t.Fatalf("oversized line code = %v", retouch.GetErrorCode(bad[0].Err))
	}
}

func TestWriteManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")

	results := []retouch.Result{
		{
			Record: retouch.Record{
				Brand:    "Acme",
				Name:     "Anvil",
				ImageURL: "https://example.com/a.jpg",
				Extra:    map[string]json.RawMessage{"sku": json.RawMessage(`"A-1"`)},
			},
			LocalPath:   filepath.Join(dir, "001_acme-anvil.png"),
			Backend:     "mock",
			GeneratedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
			S3Key:       "retouch/001_acme-anvil.png",
		},
	}
	if err := retouch.WriteManifest(path, results); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var entries []map[string]any
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("manifest is not a JSON array: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	for _, key := range []string{"brand", "name", "image_url", "sku", "local_path", "backend", "generated_at", "s3_key"} {
		if _, ok := entry[key]; !ok {
			t.Fatalf("manifest entry missing %q: %v", key, entry)
		}
	}
	if entry["generated_at"] != "2026-08-01T12:00:00Z" {
		t.Fatalf("generated_at = %v", entry["generated_at"])
	}

	t.Run("empty run writes empty array", func(t *testing.T) {
		path := filepath.Join(dir, "empty.json")
		if err := retouch.WriteManifest(path, nil); err != nil {
			t.Fatalf("write: %v", err)
		}
		data, _ := os.ReadFile(path)
		if strings.TrimSpace(string(data)) != "[]" {
			t.Fatalf("expected empty array, got %s", data)
		}
	})
}
