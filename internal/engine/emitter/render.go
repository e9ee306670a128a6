package emitter

import (
	"strings"

	"go.trai.ch/greenroom/internal/core/domain"
)

// Description is a rendered build description.
type Description struct {
	Dockerfile []byte
	// Contexts are the external contexts the Dockerfile references.
	Contexts map[string]domain.Context
	Target   string
}

// Render writes the graph as a Dockerfile. Only stages the target needs are written,
// in topological order with ties broken by name, so equal graphs render identically.
func Render(g *domain.BuildGraph) (*Description, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	needed := reachable(g)
	contexts := g.Contexts()
	used := make(map[string]domain.Context)

	var b strings.Builder
	b.WriteString("# syntax=" + domain.DockerfileSyntax + "\n")
	for s := range g.Walk() {
		if !needed[s.Name] {
			continue
		}
		for _, ref := range s.References() {
			if c, ok := contexts[ref]; ok {
				used[ref] = c
			}
		}
		b.WriteString("\n")
		writeStage(&b, &s)
	}

	return &Description{
		Dockerfile: []byte(b.String()),
		Contexts:   used,
		Target:     g.Target(),
	}, nil
}

// reachable returns the stages the target depends on, the target included.
func reachable(g *domain.BuildGraph) map[string]bool {
	seen := make(map[string]bool)
	queue := []string{g.Target()}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if seen[name] {
			continue
		}
		s, ok := g.Stage(name)
		if !ok {
			continue
		}
		seen[name] = true
		queue = append(queue, s.References()...)
	}
	return seen
}

func writeStage(b *strings.Builder, s *domain.Stage) {
	b.WriteString("FROM " + s.From + " AS " + s.Name + "\n")
	if s.Workdir != "" {
		b.WriteString("WORKDIR " + s.Workdir + "\n")
	}
	for _, v := range s.Env {
		b.WriteString("ENV " + v.Name + "=" + envQuote(v.Value) + "\n")
	}

	if s.Script == "" {
		for _, m := range s.Mounts {
			b.WriteString("COPY --from=" + m.From)
			for _, x := range m.Excludes {
				b.WriteString(" --exclude=" + x)
			}
			b.WriteString(" " + jsonArray(m.Source, m.Target) + "\n")
		}
		return
	}

	b.WriteString("RUN")
	switch s.Network {
	case domain.NetworkNone, domain.NetworkHost:
		b.WriteString(" --network=" + string(s.Network))
	}
	for _, m := range s.Mounts {
		b.WriteString(" --mount=" + mountSpec(m))
	}
	b.WriteString(" " + s.Script + "\n")
}

// mountSpec formats a bind mount. Fields holding a comma or quote are CSV-quoted.
func mountSpec(m domain.Mount) string {
	fields := []string{
		"type=bind",
		"from=" + m.From,
		"source=" + m.Source,
		"target=" + m.Target,
	}
	if m.Writable {
		fields = append(fields, "rw")
	}
	for i, f := range fields {
		if strings.ContainsAny(f, ",\" ") {
			fields[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
		}
	}
	return strings.Join(fields, ",")
}

// ContextNames returns the names of the contexts in d, sorted.
func (d *Description) ContextNames() []string {
	return domain.SortedContextNames(d.Contexts)
}
