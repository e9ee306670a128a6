// Package ports defines the core interfaces for the application.
package ports

import (
	"context"
	"io"

	"go.trai.ch/greenroom/internal/core/domain"
)

// Executor defines the interface for running host processes.
//
//go:generate go run go.uber.org/mock/mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Execute runs the command, streaming its output to stdout and stderr.
	//
	// It returns the exit code of the process. A non-zero exit code is not an error;
	// the error is reserved for processes that could not be started or were killed.
	Execute(ctx context.Context, cmd *domain.Command, stdout, stderr io.Writer) (int, error)
}
