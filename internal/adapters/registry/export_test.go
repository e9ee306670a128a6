package registry

import (
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/remote"
)

// SetHead replaces the manifest HEAD request used by r.
func SetHead(r *Resolver, head func(ref name.Reference, options ...remote.Option) (*v1.Descriptor, error)) {
	r.head = head
}
