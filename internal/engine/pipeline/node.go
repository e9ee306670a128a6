package pipeline

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/greenroom/internal/adapters/buildx"    //nolint:depguard // Wired in engine wiring
	"go.trai.ch/greenroom/internal/adapters/config"    //nolint:depguard // Wired in engine wiring
	"go.trai.ch/greenroom/internal/adapters/fs"        //nolint:depguard // Wired in engine wiring
	"go.trai.ch/greenroom/internal/adapters/logger"    //nolint:depguard // Wired in engine wiring
	"go.trai.ch/greenroom/internal/adapters/records"   //nolint:depguard // Wired in engine wiring
	"go.trai.ch/greenroom/internal/adapters/registry"  //nolint:depguard // Wired in engine wiring
	"go.trai.ch/greenroom/internal/adapters/shell"     //nolint:depguard // Wired in engine wiring
	"go.trai.ch/greenroom/internal/adapters/telemetry" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/greenroom/internal/core/domain"
	"go.trai.ch/greenroom/internal/core/ports"
)

// NodeID is the unique identifier for the pipeline Graft node.
const NodeID graft.ID = "engine.pipeline"

func init() {
	graft.Register(graft.Node[*Pipeline]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			records.NodeID,
			fs.HasherNodeID,
			registry.NodeID,
			buildx.ManagerNodeID,
			buildx.BackendNodeID,
			shell.NodeID,
			telemetry.TracerNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Pipeline, error) {
			cfg, err := graft.Dep[*domain.Config](ctx)
			if err != nil {
				return nil, err
			}

			store, err := graft.Dep[ports.RecordStore](ctx)
			if err != nil {
				return nil, err
			}

			tree, err := graft.Dep[ports.SourceTree](ctx)
			if err != nil {
				return nil, err
			}

			images, err := graft.Dep[ports.ImageResolver](ctx)
			if err != nil {
				return nil, err
			}

			builders, err := graft.Dep[ports.BuilderManager](ctx)
			if err != nil {
				return nil, err
			}

			backend, err := graft.Dep[ports.Backend](ctx)
			if err != nil {
				return nil, err
			}

			executor, err := graft.Dep[ports.Executor](ctx)
			if err != nil {
				return nil, err
			}

			tracer, err := graft.Dep[ports.Tracer](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return New(cfg, store, tree, images, builders, backend, executor, tracer, log), nil
		},
	})
}
