package registry

import (
	"context"

	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/grindlemire/graft"
	"go.trai.ch/greenroom/internal/adapters/logger"
	"go.trai.ch/greenroom/internal/build"
	"go.trai.ch/greenroom/internal/core/domain"
	"go.trai.ch/greenroom/internal/core/ports"
)

// NodeID is the unique identifier for the image resolver Graft node.
const NodeID graft.ID = "adapter.image_resolver"

func init() {
	graft.Register(graft.Node[ports.ImageResolver]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.ImageResolver, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewResolver(log, WithRemoteOptions(remote.WithUserAgent(domain.AppName+"/"+build.Version))), nil
		},
	})
}
