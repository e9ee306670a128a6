package ports

import "context"

// ImageResolver talks to container registries.
//
//go:generate go run go.uber.org/mock/mockgen -source=image_resolver.go -destination=mocks/mock_image_resolver.go -package=mocks
type ImageResolver interface {
	// Pin returns ref with its current manifest digest appended.
	Pin(ctx context.Context, ref string) (string, error)

	// Reachable returns the subset of refs whose manifests can be fetched, preserving order.
	Reachable(ctx context.Context, refs []string) []string
}
