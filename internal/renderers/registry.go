package renderers

import (
	"context"

	"github.com/dejo1307/frontdoc/internal/facts"
)

// Renderer turns a documentation report into output artifacts. Renderers
// only read the report.
type Renderer interface {
	Name() string
	Render(ctx context.Context, report *facts.DocumentationReport) ([]facts.Artifact, error)
}

// Registry keeps renderers in registration order, one per name.
type Registry struct {
	renderers []Renderer
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds rnd. A renderer registered under an existing name replaces
// the earlier one in place.
func (r *Registry) Register(rnd Renderer) {
	for i, existing := range r.renderers {
		if existing.Name() == rnd.Name() {
			r.renderers[i] = rnd
			return
		}
	}
	r.renderers = append(r.renderers, rnd)
}

// Enabled returns the renderers whose name passes enabled, in registration
// order.
func (r *Registry) Enabled(enabled func(name string) bool) []Renderer {
	var out []Renderer
	for _, rnd := range r.renderers {
		if enabled(rnd.Name()) {
			out = append(out, rnd)
		}
	}
	return out
}
