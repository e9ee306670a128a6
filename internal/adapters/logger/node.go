package logger

import (
	"context"
	"io"

	"github.com/grindlemire/graft"
	"go.trai.ch/greenroom/internal/adapters/config"
	"go.trai.ch/greenroom/internal/core/domain"
	"go.trai.ch/greenroom/internal/core/ports"
)

// NodeID is the unique identifier for the logger Graft node.
const NodeID graft.ID = "adapter.logger"

func init() {
	graft.Register(graft.Node[ports.Logger]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.NodeID},
		Run: func(ctx context.Context) (ports.Logger, error) {
			cfg, err := graft.Dep[*domain.Config](ctx)
			if err != nil {
				return nil, err
			}
			if cfg.LogPath == "" {
				return New(io.Discard, cfg.LogLevel), nil
			}
			return Open(cfg.LogPath, cfg.LogLevel)
		},
	})
}
