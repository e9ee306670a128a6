package buildx

import (
	"bufio"
	"bytes"
	"encoding/json"
	"slices"
	"strings"

	"github.com/moby/buildkit/client"
	"go.trai.ch/greenroom/internal/core/domain"
)

// progress accumulates the vertex updates of a `--progress=rawjson` stream, where every
// line is one encoded client.SolveStatus, and keeps the lines that are not.
type progress struct {
	order    []string
	vertices map[string]*client.Vertex
	text     []string
}

func newProgress() *progress {
	return &progress{vertices: make(map[string]*client.Vertex)}
}

// parse consumes a complete stderr stream.
func (p *progress) parse(data []byte) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		p.line(scanner.Bytes())
	}
}

func (p *progress) line(line []byte) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return
	}
	if trimmed[0] == '{' {
		var status client.SolveStatus
		if err := json.Unmarshal(trimmed, &status); err == nil {
			for _, v := range status.Vertexes {
				if v != nil {
					p.update(v)
				}
			}
			return
		}
	}
	p.text = append(p.text, string(trimmed))
}

// update merges a vertex update. Later updates only ever add information.
func (p *progress) update(v *client.Vertex) {
	key := v.Digest.String()
	if key == "" {
		key = v.Name
	}
	existing, ok := p.vertices[key]
	if !ok {
		p.order = append(p.order, key)
		p.vertices[key] = v
		return
	}
	if v.Name != "" {
		existing.Name = v.Name
	}
	if v.Started != nil {
		existing.Started = v.Started
	}
	if v.Completed != nil {
		existing.Completed = v.Completed
	}
	if v.Cached {
		existing.Cached = true
	}
	if v.Error != "" {
		existing.Error = v.Error
	}
}

// report returns the final state of every vertex in first-seen order.
func (p *progress) report() *domain.BuildReport {
	report := &domain.BuildReport{Vertices: make([]domain.Vertex, 0, len(p.order))}
	for _, key := range p.order {
		v := p.vertices[key]
		report.Vertices = append(report.Vertices, domain.Vertex{Name: v.Name, Status: vertexStatus(v)})
	}
	return report
}

func vertexStatus(v *client.Vertex) domain.VertexStatus {
	switch {
	case v.Error != "":
		return domain.VertexStatusFailed
	case v.Cached:
		return domain.VertexStatusCached
	case v.Completed != nil:
		return domain.VertexStatusCompleted
	default:
		return domain.VertexStatusRunning
	}
}

// errors returns the failed vertices' messages followed by the plain text lines.
func (p *progress) errors() []string {
	var lines []string
	for _, key := range p.order {
		v := p.vertices[key]
		if v.Error != "" {
			lines = append(lines, v.Name+": "+v.Error)
		}
	}
	return append(lines, p.text...)
}

// cacheExportFailed reports whether the failure happened while exporting cache.
func (p *progress) cacheExportFailed() bool {
	for _, key := range p.order {
		v := p.vertices[key]
		if v.Error != "" && isCacheExport(v.Name) {
			return true
		}
	}
	return slices.ContainsFunc(p.text, isCacheExport)
}

func isCacheExport(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "exporting cache") || strings.Contains(s, "cache export") ||
		strings.Contains(s, "export cache")
}

// tail returns the last n lines joined by newlines.
func tail(lines []string, n int) string {
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// textTail returns the last n lines of raw output.
func textTail(data []byte, n int) string {
	return tail(strings.Split(strings.TrimRight(string(data), "\n"), "\n"), n)
}
