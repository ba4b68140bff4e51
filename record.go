package retouch

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Record is one product line from the input catalog. Unknown JSON keys are
// preserved in Extra and re-emitted verbatim on the manifest entry.
type Record struct {
	Brand    string
	Name     string
	ImageURL string
	Extra    map[string]json.RawMessage
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for key, raw := range fields {
		var dst *string
		switch key {
		case "brand":
			dst = &r.Brand
		case "name":
			dst = &r.Name
		case "image_url":
			dst = &r.ImageURL
		default:
			if r.Extra == nil {
				r.Extra = make(map[string]json.RawMessage)
			}
			r.Extra[key] = raw
			continue
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
	}
	return nil
}

func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(r.Extra)+3)
	for key, raw := range r.Extra {
		out[key] = raw
	}
	for key, val := range map[string]string{
		"brand":     r.Brand,
		"name":      r.Name,
		"image_url": r.ImageURL,
	} {
		raw, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		out[key] = raw
	}
	return json.Marshal(out)
}

// LineError reports a catalog line that could not be decoded. The line is
// skipped; the rest of the catalog is still returned.
type LineError struct {
	Line int
	Err  error
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e LineError) Unwrap() error {
	return e.Err
}

// MaxRecordBytes caps a single catalog line. Longer lines are reported as
// LineErrors, like any other bad line.
const MaxRecordBytes = 4 * 1024 * 1024

// ReadRecords decodes a line-delimited JSON catalog. Blank lines are
// skipped. Malformed or oversized lines are collected as LineErrors rather
// than aborting the read. The returned error is non-nil only when reading
// itself fails.
func ReadRecords(r io.Reader) ([]Record, []LineError, error) {
	var (
		records []Record
		bad     []LineError
	)

	reader := bufio.NewReaderSize(r, 64*1024)
	line := 0
	for {
		raw, readErr := reader.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return nil, nil, fmt.Errorf("read catalog: %w", readErr)
		}
		if raw != "" {
			line++
			switch text := strings.TrimSpace(raw); {
			case len(raw) > MaxRecordBytes:
				bad = append(bad, LineError{Line: line, Err: NewError(InvalidArgument, fmt.Sprintf("line exceeds %d bytes", MaxRecordBytes))})
			case text == "":
				// blank line
			default:
				var rec Record
				if err := json.Unmarshal([]byte(text), &rec); err != nil {
					bad = append(bad, LineError{Line: line, Err: err})
				} else if rec.ImageURL == "" {
					bad = append(bad, LineError{Line: line, Err: NewError(InvalidArgument, "missing image_url")})
				} else {
					records = append(records, rec)
				}
			}
		}
		if readErr == io.EOF {
			break
		}
	}

	return records, bad, nil
}

// ReadRecordsFile reads a catalog from disk. See ReadRecords.
func ReadRecordsFile(path string) ([]Record, []LineError, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return ReadRecords(f)
}

// Result is a manifest entry: the input record plus where its enhanced
// image ended up.
type Result struct {
	Record
	LocalPath   string
	Backend     string
	GeneratedAt time.Time
	S3Key       string
}

func (res Result) MarshalJSON() ([]byte, error) {
	base, err := res.Record.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(base, &out); err != nil {
		return nil, err
	}

	extra := map[string]any{
		"local_path":   res.LocalPath,
		"backend":      res.Backend,
		"generated_at": res.GeneratedAt.UTC().Format(time.RFC3339),
	}
	if res.S3Key != "" {
		extra["s3_key"] = res.S3Key
	}
	for key, val := range extra {
		raw, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		out[key] = raw
	}
	return json.Marshal(out)
}

// WriteManifest writes the run's results as a single JSON array. An empty
// run still produces a valid (empty) array.
func WriteManifest(path string, results []Result) error {
	if results == nil {
		results = []Result{}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
