package retouch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Fetcher is the download seam, implemented by Downloader.
type Fetcher interface {
	FetchImage(ctx context.Context, url string) (Image, error)
}

// Uploader mirrors enhanced images to remote storage. Optional.
type Uploader interface {
	Upload(ctx context.Context, key string, img Image) (string, error)
}

// RunnerConfig configures a batch run.
type RunnerConfig struct {
	OutDir         string
	ManifestPath   string // default: <OutDir>/manifest.json
	Limit          int    // 0 means the whole catalog
	PromptTemplate string // default: DefaultPromptTemplate
	Model          string // optional backend model override
	Uploader       Uploader
	Logger         *slog.Logger
}

// Runner processes catalog records one at a time: download, enhance, save.
// A failed record is logged and skipped; the batch continues.
type Runner struct {
	backend Backend
	fetch   Fetcher
	cfg     RunnerConfig
	log     *slog.Logger
}

// Summary reports how a run went.
type Summary struct {
	Processed int
	Failed    int
	Results   []Result
}

// NewRunner builds a Runner. fetcher may be nil, in which case a default
// Downloader is used.
func NewRunner(backend Backend, fetcher Fetcher, cfg RunnerConfig) *Runner {
	if fetcher == nil {
		fetcher = &Downloader{}
	}
	if cfg.PromptTemplate == "" {
		cfg.PromptTemplate = DefaultPromptTemplate
	}
	if cfg.OutDir == "" {
		cfg.OutDir = "out"
	}
	if cfg.ManifestPath == "" {
		cfg.ManifestPath = filepath.Join(cfg.OutDir, "manifest.json")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		backend: backend,
		fetch:   fetcher,
		cfg:     cfg,
		log:     logger,
	}
}

// Run processes records sequentially and writes the manifest when done.
// The returned error reflects setup or manifest problems; per-record
// failures only show up in the Summary.
func (r *Runner) Run(ctx context.Context, records []Record) (Summary, error) {
	if err := os.MkdirAll(r.cfg.OutDir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("create output dir: %w", err)
	}

	if r.cfg.Limit > 0 && r.cfg.Limit < len(records) {
		records = records[:r.cfg.Limit]
	}

	summary := Summary{}
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		res, err := r.processOne(ctx, i, rec)
		if err != nil {
			summary.Failed++
			r.log.Warn("record failed",
				slog.Int("index", i+1),
				slog.String("brand", rec.Brand),
				slog.String("name", rec.Name),
				slog.String("code", string(GetErrorCode(err))),
				slog.String("error", err.Error()),
			)
			continue
		}

		summary.Processed++
		summary.Results = append(summary.Results, res)
		r.log.Info("record enhanced",
			slog.Int("index", i+1),
			slog.String("brand", rec.Brand),
			slog.String("name", rec.Name),
			slog.String("path", res.LocalPath),
		)
	}

	if err := WriteManifest(r.cfg.ManifestPath, summary.Results); err != nil {
		return summary, err
	}
	r.log.Info("batch done",
		slog.Int("processed", summary.Processed),
		slog.Int("failed", summary.Failed),
		slog.String("manifest", r.cfg.ManifestPath),
	)
	return summary, nil
}

func (r *Runner) processOne(ctx context.Context, index int, rec Record) (Result, error) {
	source, err := r.fetch.FetchImage(ctx, rec.ImageURL)
	if err != nil {
		return Result{}, fmt.Errorf("fetch %s: %w", rec.ImageURL, err)
	}

	result, err := r.backend.Enhance(ctx, EnhanceRequest{
		Prompt: BuildPrompt(r.cfg.PromptTemplate, rec),
		Source: source,
		Model:  r.cfg.Model,
	})
	if err != nil {
		return Result{}, fmt.Errorf("enhance: %w", err)
	}

	name := fmt.Sprintf("%03d_%s%s", index+1, slug(rec.Brand+" "+rec.Name), ExtensionForMIME(result.Image.MIME))
	path := filepath.Join(r.cfg.OutDir, name)
	if err := os.WriteFile(path, result.Image.Data, 0o644); err != nil {
		return Result{}, fmt.Errorf("write %s: %w", path, err)
	}

	out := Result{
		Record:      rec,
		LocalPath:   path,
		Backend:     r.backend.Name(),
		GeneratedAt: time.Now(),
	}

	if r.cfg.Uploader != nil {
		key, err := r.cfg.Uploader.Upload(ctx, name, result.Image)
		if err != nil {
			// The local file is the source of truth; a missed mirror
			// upload should not fail the record.
			r.log.Warn("s3 upload failed", slog.String("key", name), slog.String("error", err.Error()))
		} else {
			out.S3Key = key
		}
	}

	return out, nil
}

// slug normalizes a product label into a filesystem-safe name.
func slug(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "product"
	}
	if len(out) > 60 {
		out = strings.Trim(out[:60], "-")
	}
	return out
}
