// Package openai provides an OpenAI implementation of retouch.Backend.
// It drives the Responses API with the image_generation tool: the source
// product image goes in as a data-URL input part, and the enhanced image
// comes back base64-encoded in image_generation_call output items.
//
// The backend uses the OPENAI_API_KEY environment variable when no key is
// provided via WithAPIKey or WithAPIKeyFromEnv.
package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/montanaflynn/retouch"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
)

const (
	// DefaultModelName is the Responses model that hosts the tool call.
	DefaultModelName = shared.ChatModelGPT5_1
	// DefaultImageModelName is the image model invoked by the tool.
	DefaultImageModelName = openai.ImageModelGPTImage1
)

// ErrAPIKeyRequired is returned when no API key is configured.
var ErrAPIKeyRequired = errors.New("openai: API key required (set OPENAI_API_KEY or use WithAPIKey/WithAPIKeyFromEnv)")

// Option configures the OpenAI backend.
type Option func(*settings)

type settings struct {
	apiKey     string
	apiKeySet  bool
	model      string
	imageModel string
	imgFormat  ImageFormat
	imgSize    ImageSize
	logger     *slog.Logger
}

// WithAPIKey sets the API key explicitly.
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

// WithModel overrides the Responses model hosting the tool call.
func WithModel(model string) Option {
	return func(s *settings) {
		if model != "" {
			s.model = model
		}
	}
}

// WithImageModel overrides the image model invoked by the tool.
func WithImageModel(model string) Option {
	return func(s *settings) {
		if model != "" {
			s.imageModel = model
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

// ImageFormat enumerates supported output formats.
type ImageFormat string

const (
	ImageFormatPNG  ImageFormat = "png"
	ImageFormatJPEG ImageFormat = "jpeg"
	ImageFormatWEBP ImageFormat = "webp"
)

// WithImageFormat sets the output format (default png).
func WithImageFormat(f ImageFormat) Option {
	return func(s *settings) {
		if f != "" {
			s.imgFormat = f
		}
	}
}

// ImageSize enumerates supported output sizes.
type ImageSize string

const (
	ImageSizeAuto      ImageSize = "auto"
	ImageSize1024x1024 ImageSize = "1024x1024"
	ImageSize1536x1024 ImageSize = "1536x1024"
	ImageSize1024x1536 ImageSize = "1024x1536"
)

// WithImageSize sets the output size (default auto).
func WithImageSize(size ImageSize) Option {
	return func(s *settings) {
		if size != "" {
			s.imgSize = size
		}
	}
}

// Backend is an OpenAI-backed implementation of retouch.Backend.
type Backend struct {
	client     openai.Client
	model      string
	imageModel string
	imgFormat  ImageFormat
	imgSize    ImageSize
	log        *slog.Logger
}

// New constructs an OpenAI backend using functional options.
func New(opts ...Option) (*Backend, error) {
	cfg := settings{
		model:      DefaultModelName,
		imageModel: DefaultImageModelName,
		imgFormat:  ImageFormatPNG,
		imgSize:    ImageSizeAuto,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	switch {
	case cfg.apiKeySet && cfg.apiKey == "":
		return nil, ErrAPIKeyRequired
	case !cfg.apiKeySet && cfg.apiKey == "":
		cfg.apiKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
		if cfg.apiKey == "" {
			return nil, ErrAPIKeyRequired
		}
	}

	cl := openai.NewClient(option.WithAPIKey(cfg.apiKey))

	return &Backend{
		client:     cl,
		model:      cfg.model,
		imageModel: cfg.imageModel,
		imgFormat:  cfg.imgFormat,
		imgSize:    cfg.imgSize,
		log:        cfg.logger,
	}, nil
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return "openai"
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

	model := req.Model
	if model == "" {
		model = b.model
	}

	b.log.Debug("openai enhance request",
		slog.String("model", model),
		slog.String("image_model", b.imageModel),
		slog.Int("source_bytes", len(req.Source.Data)),
	)

	params := responses.ResponseNewParams{
		Model: shared.ChatModel(model),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{toResponseInput(req)},
		},
		Tools: []responses.ToolUnionParam{
			{
				OfImageGeneration: &responses.ToolImageGenerationParam{
					Type:          "image_generation",
					Model:         b.imageModel,
					OutputFormat:  string(b.imgFormat),
					Background:    "auto",
					Moderation:    "auto",
					Quality:       "auto",
					Size:          string(b.imgSize),
					PartialImages: param.NewOpt(int64(0)),
				},
			},
		},
	}

	resp, err := b.client.Responses.New(ctx, params)
	if err != nil {
		return retouch.EnhanceResult{}, fmt.Errorf("openai enhance: %w", err)
	}

	img, ok := extractImage(resp, string(b.imgFormat))
	if !ok {
		if text := strings.TrimSpace(resp.OutputText()); text != "" {
			return retouch.EnhanceResult{}, retouch.NewError(retouch.Refused, text).WithBackend(b.Name())
		}
		return retouch.EnhanceResult{}, retouch.NewError(retouch.Unavailable, "response contained no image").WithBackend(b.Name())
	}

	b.log.Debug("openai enhance response", slog.Int("image_bytes", len(img.Data)), slog.String("mime", img.MIME))

	return retouch.EnhanceResult{Image: img, Raw: resp}, nil
}

// toResponseInput flattens the prompt and source image into a single user
// message for the Responses API.
func toResponseInput(req retouch.EnhanceRequest) responses.ResponseInputItemUnionParam {
	mime := req.Source.MIME
	if mime == "" {
		mime = "image/png"
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(req.Source.Data))

	content := responses.ResponseInputMessageContentListParam{
		responses.ResponseInputContentUnionParam{
			OfInputText: &responses.ResponseInputTextParam{
				Text: req.Prompt,
			},
		},
		responses.ResponseInputContentUnionParam{
			OfInputImage: &responses.ResponseInputImageParam{
				Detail:   responses.ResponseInputImageDetailAuto,
				ImageURL: openai.String(dataURL),
			},
		},
	}

	return responses.ResponseInputItemUnionParam{
		OfMessage: &responses.EasyInputMessageParam{
			Role:    responses.EasyInputMessageRoleUser,
			Type:    responses.EasyInputMessageTypeMessage,
			Content: responses.EasyInputMessageContentUnionParam{OfInputItemContentList: content},
		},
	}
}

// extractImage pulls the first generated image out of the response
// envelope. Image bytes arrive base64-encoded on image_generation_call
// output items.
func extractImage(resp *responses.Response, outputFormat string) (retouch.Image, bool) {
	if resp == nil {
		return retouch.Image{}, false
	}
	for _, item := range resp.Output {
		if item.Type != "image_generation_call" || item.Result == "" {
			continue
		}
		buf, err := base64.StdEncoding.DecodeString(item.Result)
		if err != nil {
			continue
		}
		mime := retouch.SniffImageMIME(buf)
		if mime == "" {
			mime = mimeFromFormat(outputFormat)
		}
		return retouch.Image{Data: buf, MIME: mime}, true
	}
	return retouch.Image{}, false
}

func mimeFromFormat(format string) string {
	switch strings.ToLower(format) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "webp":
		return "image/webp"
	default:
		return "image/png"
	}
}
