// Retouch reads a line-delimited JSON catalog of product records, downloads
// each record's source image, submits it to an image-generation backend
// (OpenAI or Gemini), and writes the enhanced images plus a JSON manifest.
//
// Usage:
//
//	retouch -input products.jsonl -out-dir out
//	retouch -input products.jsonl -backend gemini -limit 10
//
// Without -backend the tool shows an interactive menu to pick the backend
// and an optional batch limit.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/montanaflynn/retouch"
	"github.com/montanaflynn/retouch/providers/gemini"
	"github.com/montanaflynn/retouch/providers/openai"
)

func main() {
	var (
		inputFlag      = flag.String("input", "products.jsonl", "line-delimited JSON catalog of product records")
		outDirFlag     = flag.String("out-dir", "out", "directory for enhanced images")
		manifestFlag   = flag.String("manifest", "", "manifest path (default: <out-dir>/manifest.json)")
		backendFlag    = flag.String("backend", "", "backend to use: openai or gemini (interactive menu if empty)")
		limitFlag      = flag.Int("limit", 0, "max records to process (0 = all)")
		modelFlag      = flag.String("model", "", "backend model override")
		promptFileFlag = flag.String("prompt-file", "", "prompt template file (two %s verbs: brand, name)")
		logFormatFlag  = flag.String("log-format", "text", "log format: text or json")
		debugFlag      = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *debugFlag {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if *logFormatFlag == "json" {
		handler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	logger := slog.New(handler)

	if err := run(context.Background(), logger, options{
		input:      *inputFlag,
		outDir:     *outDirFlag,
		manifest:   *manifestFlag,
		backend:    *backendFlag,
		limit:      *limitFlag,
		model:      *modelFlag,
		promptFile: *promptFileFlag,
	}); err != nil {
		logger.Error("retouch failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

type options struct {
	input      string
	outDir     string
	manifest   string
	backend    string
	limit      int
	model      string
	promptFile string
}

func run(ctx context.Context, logger *slog.Logger, opts options) error {
	cfg := loadConfig()
	if opts.model == "" {
		opts.model = cfg.Model
	}

	records, bad, err := retouch.ReadRecordsFile(opts.input)
	if err != nil {
		return err
	}
	for _, lineErr := range bad {
		logger.Warn("skipping bad catalog line", slog.Int("line", lineErr.Line), slog.String("error", lineErr.Err.Error()))
	}
	if len(records) == 0 {
		return fmt.Errorf("no usable records in %s", opts.input)
	}
	logger.Info("catalog loaded", slog.String("input", opts.input), slog.Int("records", len(records)))

	backendName := opts.backend
	if backendName == "" {
		// One scanner for both prompts; a fresh scanner per prompt
		// would drop answers it already buffered.
		scanner := bufio.NewScanner(os.Stdin)
		backendName, err = chooseBackend(scanner, os.Stdout)
		if err != nil {
			return fmt.Errorf("backend selection: %w", err)
		}
		if opts.limit == 0 {
			opts.limit, err = chooseLimit(scanner, os.Stdout)
			if err != nil {
				return fmt.Errorf("limit selection: %w", err)
			}
		}
	} else {
		parsed, ok := parseBackendChoice(backendName)
		if !ok {
			return fmt.Errorf("unknown backend %q (want openai or gemini)", backendName)
		}
		backendName = parsed
	}

	backend, err := newBackend(ctx, backendName, logger)
	if err != nil {
		return err
	}
	if closer, ok := backend.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	promptTemplate := ""
	if opts.promptFile != "" {
		data, err := os.ReadFile(opts.promptFile)
		if err != nil {
			return fmt.Errorf("read prompt file: %w", err)
		}
		promptTemplate = string(data)
	}

	var uploader retouch.Uploader
	if cfg.S3Bucket != "" {
		s3up, err := retouch.NewS3Uploader(ctx, cfg.S3Bucket, cfg.AWSRegion, cfg.S3Prefix)
		if err != nil {
			return err
		}
		uploader = s3up
		logger.Info("s3 mirror enabled", slog.String("bucket", cfg.S3Bucket))
	}

	fetcher := &retouch.Downloader{
		Timeout:  cfg.HTTPTimeout,
		MaxBytes: int64(cfg.MaxImageMB) * 1024 * 1024,
	}

	runner := retouch.NewRunner(backend, fetcher, retouch.RunnerConfig{
		OutDir:         opts.outDir,
		ManifestPath:   opts.manifest,
		Limit:          opts.limit,
		PromptTemplate: promptTemplate,
		Model:          opts.model,
		Uploader:       uploader,
		Logger:         logger,
	})

	summary, err := runner.Run(ctx, records)
	if err != nil {
		return err
	}

	fmt.Printf("Done: %d enhanced, %d failed.\n", summary.Processed, summary.Failed)
	return nil
}

func newBackend(ctx context.Context, name string, logger *slog.Logger) (retouch.Backend, error) {
	switch name {
	case backendOpenAI:
		return openai.New(openai.WithLogger(logger))
	case backendGemini:
		return gemini.New(ctx, gemini.WithLogger(logger))
	default:
		return nil, fmt.Errorf("unknown backend %q", name)
	}
}
