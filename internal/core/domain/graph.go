// Package domain contains the core domain models of the compile sandbox.
package domain

import (
	"iter"
	"maps"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// BuildGraph is an arena of stages keyed by name. Stages refer to each other only by name.
type BuildGraph struct {
	stages   map[string]Stage
	contexts map[string]Context
	target   string
	order    []string
}

// NewBuildGraph creates a new empty BuildGraph.
func NewBuildGraph() *BuildGraph {
	return &BuildGraph{
		stages:   make(map[string]Stage),
		contexts: make(map[string]Context),
	}
}

// Add adds a stage to the graph. Adding an identical stage twice is a no-op;
// a different stage under an existing name is a naming collision.
func (g *BuildGraph) Add(s *Stage) error {
	if existing, ok := g.stages[s.Name]; ok {
		if existing.Equal(s) {
			return nil
		}
		return zerr.With(zerr.Wrap(ErrNamingCollision, "stage already defined with different content"), "stage", s.Name)
	}
	g.stages[s.Name] = *s
	g.order = nil
	return nil
}

// AddContext registers a named external context under the same collision rules as stages.
func (g *BuildGraph) AddContext(name string, c Context) error {
	if existing, ok := g.contexts[name]; ok {
		if existing == c {
			return nil
		}
		return zerr.With(zerr.Wrap(ErrNamingCollision, "context already defined with different value"), "context", name)
	}
	g.contexts[name] = c
	return nil
}

// Merge adds every stage and context of a persisted stage set.
func (g *BuildGraph) Merge(set *StageSet) error {
	for _, name := range SortedContextNames(set.Contexts) {
		if err := g.AddContext(name, set.Contexts[name]); err != nil {
			return err
		}
	}
	for i := range set.Stages {
		if err := g.Add(&set.Stages[i]); err != nil {
			return err
		}
	}
	return nil
}

// SetTarget names the stage whose filesystem is exported.
func (g *BuildGraph) SetTarget(name string) {
	g.target = name
}

// Target returns the exported stage name.
func (g *BuildGraph) Target() string {
	return g.target
}

// Stage returns the stage with the given name.
func (g *BuildGraph) Stage(name string) (Stage, bool) {
	s, ok := g.stages[name]
	return s, ok
}

// Len returns the number of stages.
func (g *BuildGraph) Len() int {
	return len(g.stages)
}

// Contexts returns a copy of the external contexts.
func (g *BuildGraph) Contexts() map[string]Context {
	return maps.Clone(g.contexts)
}

// Validate checks that every reference resolves and that the stages are acyclic.
// It computes a topological order in which ties are broken by name, so the order
// only depends on the graph content.
func (g *BuildGraph) Validate() error {
	order := make([]string, 0, len(g.stages))
	visited := make(map[string]int) // 0: unvisited, 1: visiting, 2: visited
	var path []string

	var visit func(u string) error
	visit = func(u string) error {
		visited[u] = 1
		path = append(path, u)

		stage := g.stages[u]
		refs := stage.References()
		slices.Sort(refs)
		for _, ref := range refs {
			if _, isContext := g.contexts[ref]; isContext {
				continue
			}
			if _, exists := g.stages[ref]; !exists {
				return zerr.With(zerr.With(zerr.Wrap(ErrStageNotFound, "dangling stage reference"), "stage", u), "reference", ref)
			}
			if visited[ref] == 1 {
				return g.buildCycleError(path, ref)
			}
			if visited[ref] == 0 {
				if err := visit(ref); err != nil {
					return err
				}
			}
		}

		visited[u] = 2
		path = path[:len(path)-1]
		order = append(order, u)
		return nil
	}

	for _, name := range slices.Sorted(maps.Keys(g.stages)) {
		if visited[name] == 0 {
			if err := visit(name); err != nil {
				return err
			}
		}
	}

	if g.target != "" {
		if _, ok := g.stages[g.target]; !ok {
			return zerr.With(zerr.Wrap(ErrStageNotFound, "target stage missing"), "stage", g.target)
		}
	}

	g.order = order
	return nil
}

// buildCycleError constructs an error with cycle path metadata.
func (g *BuildGraph) buildCycleError(path []string, dep string) error {
	startIdx := slices.Index(path, dep)
	cycle := append(slices.Clone(path[startIdx:]), dep)
	return zerr.With(zerr.Wrap(ErrCycleDetected, "stage cycle"), "cycle", strings.Join(cycle, " -> "))
}

// Walk returns an iterator that yields stages in topological order.
// It assumes Validate() has been called and returned nil.
func (g *BuildGraph) Walk() iter.Seq[Stage] {
	return func(yield func(Stage) bool) {
		for _, name := range g.order {
			if !yield(g.stages[name]) {
				return
			}
		}
	}
}
