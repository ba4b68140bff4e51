// Package retouch turns a catalog of product records into enhanced product
// images. Each record names a source image URL; the batch runner downloads
// the source, submits it with an enhancement prompt to a multimodal
// image-generation backend (OpenAI or Gemini), and writes the returned image
// plus a manifest of the successful records.
//
// Example usage:
//
//	backend, _ := openai.New()
//	runner := retouch.NewRunner(backend, retouch.RunnerConfig{OutDir: "out"})
//	summary, _ := runner.Run(ctx, records)
//
// Backend implementations live in sub-packages:
//
//   - providers/openai - OpenAI Responses API backend
//   - providers/gemini - Google Gemini backend
//   - providers/mock - test double
package retouch

import (
	"context"
	"fmt"
	"strings"
)

//
// Backend
//

// Image is a decoded image payload with its MIME type.
type Image struct {
	Data []byte
	MIME string
}

// EnhanceRequest carries one product image and the prompt describing the
// desired enhancement.
type EnhanceRequest struct {
	Prompt string
	Source Image
	Model  string // optional model override
}

// EnhanceResult holds the first image decoded from a backend's response
// envelope, plus the raw response for debugging.
type EnhanceResult struct {
	Image Image
	Raw   any
}

// Backend generates an enhanced image from a source image and prompt.
type Backend interface {
	Name() string
	Enhance(ctx context.Context, req EnhanceRequest) (EnhanceResult, error)
}

//
// Prompt
//

// DefaultPromptTemplate is the enhancement prompt when no prompt file is
// supplied. It is formatted with the record's brand and name.
const DefaultPromptTemplate = `Create a clean, professional studio product photo of this %s %s.
Keep the product exactly as shown; do not alter its shape, color, branding, or text.
Place it on a neutral seamless background with soft, even lighting and a subtle shadow.`

// BuildPrompt fills template with the record's brand and name. The template
// must contain two %s verbs (brand, then name).
func BuildPrompt(template string, rec Record) string {
	brand := strings.TrimSpace(rec.Brand)
	name := strings.TrimSpace(rec.Name)
	if brand == "" {
		brand = "unbranded"
	}
	if name == "" {
		name = "product"
	}
	return fmt.Sprintf(template, brand, name)
}

//
// MIME helpers
//

// SniffImageMIME detects image MIME type from magic bytes.
// It supports PNG, JPEG, GIF, and WebP formats.
func SniffImageMIME(data []byte) string {
	if len(data) < 4 {
		return ""
	}

	if string(data[0:4]) == "\x89PNG" {
		return "image/png"
	}
	if data[0] == 0xFF && data[1] == 0xD8 {
		return "image/jpeg"
	}
	if len(data) >= 6 && (string(data[0:6]) == "GIF87a" || string(data[0:6]) == "GIF89a") {
		return "image/gif"
	}
	if len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP" {
		return "image/webp"
	}

	return ""
}

// ExtensionForMIME maps an image MIME type to a file extension, defaulting
// to .png for anything unrecognized.
func ExtensionForMIME(mime string) string {
	switch strings.ToLower(mime) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
