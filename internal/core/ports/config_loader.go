package ports

import "go.trai.ch/greenroom/internal/core/domain"

// ConfigLoader defines the interface for loading the wrapper configuration.
//
//go:generate go run go.uber.org/mock/mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load resolves the configuration for the given working directory and environment
	// ("KEY=VALUE" entries). Anchors are directories searched for the config file before cwd.
	Load(cwd string, env []string, anchors ...string) (*domain.Config, error)
}
