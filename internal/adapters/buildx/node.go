package buildx

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/greenroom/internal/adapters/config"
	"go.trai.ch/greenroom/internal/adapters/logger"
	"go.trai.ch/greenroom/internal/adapters/registry"
	"go.trai.ch/greenroom/internal/adapters/shell"
	"go.trai.ch/greenroom/internal/core/domain"
	"go.trai.ch/greenroom/internal/core/ports"
)

const (
	// BackendNodeID is the unique identifier for the build backend Graft node.
	BackendNodeID graft.ID = "adapter.buildx.backend"
	// ManagerNodeID is the unique identifier for the builder manager Graft node.
	ManagerNodeID graft.ID = "adapter.buildx.manager"
)

func init() {
	graft.Register(graft.Node[ports.Backend]{
		ID:        BackendNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.NodeID, shell.NodeID, logger.NodeID},
		Run: func(ctx context.Context) (ports.Backend, error) {
			cfg, err := graft.Dep[*domain.Config](ctx)
			if err != nil {
				return nil, err
			}
			exec, err := graft.Dep[ports.Executor](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewBackend(cfg, exec, log), nil
		},
	})

	graft.Register(graft.Node[ports.BuilderManager]{
		ID:        ManagerNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.NodeID, shell.NodeID, registry.NodeID, logger.NodeID},
		Run: func(ctx context.Context) (ports.BuilderManager, error) {
			cfg, err := graft.Dep[*domain.Config](ctx)
			if err != nil {
				return nil, err
			}
			exec, err := graft.Dep[ports.Executor](ctx)
			if err != nil {
				return nil, err
			}
			images, err := graft.Dep[ports.ImageResolver](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewManager(cfg, exec, images, log), nil
		},
	})
}
