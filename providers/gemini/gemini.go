// Package gemini provides a Google Gemini implementation of retouch.Backend.
// The source product image is sent inline alongside the prompt, and the
// enhanced image comes back as an inline blob part in the response
// candidates.
//
// The backend uses the GEMINI_API_KEY environment variable when no key is
// provided via WithAPIKey or WithAPIKeyFromEnv.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/montanaflynn/retouch"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultModelName is the Gemini image model used when no override is provided.
const DefaultModelName = "gemini-2.5-flash-image"

// ErrAPIKeyRequired is returned when no API key is configured.
var ErrAPIKeyRequired = errors.New("gemini: API key required (set GEMINI_API_KEY or use WithAPIKey/WithAPIKeyFromEnv)")

// Option configures the Gemini backend.
type Option func(*settings)

type settings struct {
	apiKey    string
	apiKeySet bool
	model     string
	logger    *slog.Logger
}

// WithAPIKey sets the API key to use.
func WithAPIKey(key string) Option {
	return func(s *settings) {
		s.apiKeySet = true
		s.apiKey = key
	}
}

// WithAPIKeyFromEnv reads the API key from the given environment variable.
func WithAPIKeyFromEnv(env string) Option {
	return func(s *settings) {
		s.apiKeySet = true
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			s.apiKey = v
		}
	}
}

// WithModel overrides the default image model.
func WithModel(model string) Option {
	return func(s *settings) {
		if model != "" {
			s.model = model
		}
	}
}

// WithLogger sets a custom logger for backend-level logs.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// Backend is a Gemini-backed implementation of retouch.Backend.
type Backend struct {
	client *genai.Client
	model  string
	log    *slog.Logger
}

// New constructs a Gemini backend using functional options.
func New(ctx context.Context, opts ...Option) (*Backend, error) {
	cfg := settings{
		model:  DefaultModelName,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	switch {
	case cfg.apiKeySet && cfg.apiKey == "":
		return nil, ErrAPIKeyRequired
	case !cfg.apiKeySet && cfg.apiKey == "":
		cfg.apiKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
		if cfg.apiKey == "" {
			return nil, ErrAPIKeyRequired
		}
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.apiKey))
	if err != nil {
		return nil, fmt.Errorf("new gemini client: %w", err)
	}

	return &Backend{
		client: client,
		model:  cfg.model,
		log:    cfg.logger,
	}, nil
}

// Close releases the underlying API client.
func (b *Backend) Close() error {
	return b.client.Close()
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return "gemini"
}

// Enhance generates an enhanced product image from the request's source
// image and prompt.
func (b *Backend) Enhance(ctx context.Context, req retouch.EnhanceRequest) (retouch.EnhanceResult, error) {
	if req.Prompt == "" {
		return retouch.EnhanceResult{}, retouch.NewError(retouch.InvalidArgument, "prompt must not be empty").WithBackend(b.Name())
	}
	if len(req.Source.Data) == 0 {
		return retouch.EnhanceResult{}, retouch.NewError(retouch.InvalidArgument, "source image is empty").WithBackend(b.Name())
	}

	modelName := req.Model
	if modelName == "" {
		modelName = b.model
	}

	b.log.Debug("gemini enhance request",
		slog.String("model", modelName),
		slog.Int("source_bytes", len(req.Source.Data)),
	)

	model := b.client.GenerativeModel(modelName)
	resp, err := model.GenerateContent(ctx,
		genai.Text(req.Prompt),
		genai.ImageData(imageFormat(req.Source.MIME), req.Source.Data),
	)
	if err != nil {
		return retouch.EnhanceResult{}, fmt.Errorf("gemini enhance: %w", err)
	}

	img, text, ok := extractImage(resp)
	if !ok {
		if text != "" {
			return retouch.EnhanceResult{}, retouch.NewError(retouch.Refused, text).WithBackend(b.Name())
		}
		return retouch.EnhanceResult{}, retouch.NewError(retouch.Unavailable, "response contained no image").WithBackend(b.Name())
	}

	b.log.Debug("gemini enhance response", slog.Int("image_bytes", len(img.Data)), slog.String("mime", img.MIME))

	return retouch.EnhanceResult{Image: img, Raw: resp}, nil
}

// extractImage scans the response envelope for the first inline image blob.
// It also collects any text parts, so a refusal can carry the model's
// explanation.
func extractImage(resp *genai.GenerateContentResponse) (retouch.Image, string, bool) {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			switch p := part.(type) {
			case genai.Blob:
				mime := p.MIMEType
				if mime == "" {
					mime = retouch.SniffImageMIME(p.Data)
				}
				return retouch.Image{Data: p.Data, MIME: mime}, "", true
			case genai.Text:
				text.WriteString(string(p))
			}
		}
	}
	return retouch.Image{}, strings.TrimSpace(text.String()), false
}

// imageFormat converts an image MIME type to the bare format name genai
// expects (e.g. "image/jpeg" -> "jpeg").
func imageFormat(mime string) string {
	format := strings.TrimPrefix(strings.ToLower(mime), "image/")
	if format == "" || strings.Contains(format, "/") {
		return "png"
	}
	return format
}
