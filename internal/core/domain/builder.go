package domain

import "go.trai.ch/zerr"

// BuilderState is the lifecycle state of the managed BuildKit builder.
type BuilderState string

const (
	BuilderAbsent     BuilderState = "absent"
	BuilderCreating   BuilderState = "creating"
	BuilderCurrent    BuilderState = "current"
	BuilderStale      BuilderState = "stale"
	BuilderRecreating BuilderState = "recreating"
)

var builderTransitions = map[BuilderState][]BuilderState{
	BuilderAbsent:     {BuilderCreating},
	BuilderCreating:   {BuilderCurrent, BuilderStale},
	BuilderCurrent:    {BuilderStale},
	BuilderStale:      {BuilderRecreating},
	BuilderRecreating: {BuilderCurrent, BuilderAbsent},
}

// BuilderHandle identifies the builder a build is submitted to, together with
// the cache endpoints registered on it.
type BuilderHandle struct {
	Name      string
	State     BuilderState
	Image     string
	Managed   bool
	CacheFrom []string
	CacheTo   []string
}

// Transition moves the handle to the next state if the move is allowed.
func (h *BuilderHandle) Transition(to BuilderState) error {
	for _, next := range builderTransitions[h.State] {
		if next == to {
			h.State = to
			return nil
		}
	}
	err := zerr.With(zerr.Wrap(ErrInvalidBuilderTransition, "builder state change rejected"), "from", string(h.State))
	return zerr.With(err, "to", string(to))
}

// Usable reports whether builds may be submitted to the handle.
func (h *BuilderHandle) Usable() bool {
	return h.State == BuilderCurrent
}
