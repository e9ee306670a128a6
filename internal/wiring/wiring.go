// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/greenroom/internal/adapters/buildx"
	_ "go.trai.ch/greenroom/internal/adapters/config"
	_ "go.trai.ch/greenroom/internal/adapters/fs"
	_ "go.trai.ch/greenroom/internal/adapters/logger"
	_ "go.trai.ch/greenroom/internal/adapters/records"
	_ "go.trai.ch/greenroom/internal/adapters/registry"
	_ "go.trai.ch/greenroom/internal/adapters/shell"
	_ "go.trai.ch/greenroom/internal/adapters/telemetry"
	// Register app and engine nodes.
	_ "go.trai.ch/greenroom/internal/app"
	_ "go.trai.ch/greenroom/internal/engine/pipeline"
)
