package domain

import "strings"

// Command is a host process to run.
type Command struct {
	Path  string
	Args  []string
	Env   []string
	Dir   string
	Stdin []byte
}

// BuildRequest is everything the backend needs to run one build description.
type BuildRequest struct {
	Dockerfile []byte
	Contexts   map[string]Context
	Target     string
	OutputDir  string
	Builder    *BuilderHandle
	Network    Network
}

// Vertex is the final state of one backend build vertex.
type Vertex struct {
	Name   string
	Status VertexStatus
}

// BuildReport summarises a finished backend build.
type BuildReport struct {
	Vertices []Vertex
}

// StageEvent decides whether the named stage ran or was served from cache.
// A stage counts as fresh only if every one of its vertices was cached.
func (r *BuildReport) StageEvent(stage string) UnitEvent {
	prefix := "[" + stage + " "
	seen := false
	for _, v := range r.Vertices {
		if !strings.HasPrefix(v.Name, prefix) && v.Name != "["+stage+"]" {
			continue
		}
		seen = true
		if v.Status != VertexStatusCached {
			return UnitEventCompiling
		}
	}
	if !seen {
		return UnitEventCompiling
	}
	return UnitEventFresh
}
