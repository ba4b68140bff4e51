// Package mock provides a test double implementation of retouch.Backend.
// It's designed for testing code that depends on a backend without making
// actual API calls.
//
// Example usage:
//
//	backend := &mock.Backend{}
//	backend.EnhanceFn = func(ctx context.Context, req retouch.EnhanceRequest) (retouch.EnhanceResult, error) {
//		return retouch.EnhanceResult{
//			Image: retouch.Image{Data: []byte("fake"), MIME: "image/png"},
//		}, nil
//	}
package mock

import (
	"context"

	"github.com/montanaflynn/retouch"
)

// Backend is a test double for retouch.Backend. Configure the function
// fields to control behavior.
type Backend struct {
	EnhanceFn func(ctx context.Context, req retouch.EnhanceRequest) (retouch.EnhanceResult, error)
	NameVal   string
}

// Name returns the backend name.
func (m *Backend) Name() string {
	if m.NameVal != "" {
		return m.NameVal
	}
	return "mock"
}

// Enhance implements retouch.Backend.
func (m *Backend) Enhance(ctx context.Context, req retouch.EnhanceRequest) (retouch.EnhanceResult, error) {
	if m.EnhanceFn == nil {
		return retouch.EnhanceResult{}, retouch.NewError(retouch.Internal, "mock EnhanceFn not set").WithBackend("mock")
	}
	return m.EnhanceFn(ctx, req)
}
