package app

import "go.trai.ch/greenroom/internal/core/ports"

// Components groups the objects the entry point needs.
type Components struct {
	App    *App
	Logger ports.Logger
}
