package ports

import (
	"context"

	"go.trai.ch/greenroom/internal/core/domain"
)

// Backend submits build descriptions to BuildKit.
//
//go:generate go run go.uber.org/mock/mockgen -source=backend.go -destination=mocks/mock_backend.go -package=mocks
type Backend interface {
	// Build runs the request and exports the target stage into req.OutputDir.
	//
	// Infrastructure failures wrap domain.ErrBackendExecution; failed cache exports wrap
	// domain.ErrCacheTransfer.
	Build(ctx context.Context, req *domain.BuildRequest) (*domain.BuildReport, error)
}

// BuilderManager owns the lifecycle of the builder builds are submitted to.
type BuilderManager interface {
	// Ensure returns a usable builder handle, creating or recreating the managed builder if needed.
	Ensure(ctx context.Context) (*domain.BuilderHandle, error)

	// Remove deletes the managed builder, keeping its state unless purge is set.
	Remove(ctx context.Context, purge bool) error
}
