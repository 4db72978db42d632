// Package explainers derives insights across the per-repository results of
// a run. Explainers never change facts.
package explainers

import (
	"context"

	"github.com/dejo1307/frontdoc/internal/facts"
)

// Explainer produces insights from the results of one run.
type Explainer interface {
	Name() string
	Explain(ctx context.Context, results []*facts.AnalysisResult) ([]facts.Insight, error)
}

// Registry keeps explainers in registration order, one per name.
type Registry struct {
	byName map[string]int
	list   []Explainer
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// Register adds exp, replacing an explainer already registered under the
// same name.
func (r *Registry) Register(exp Explainer) {
	if i, ok := r.byName[exp.Name()]; ok {
		r.list[i] = exp
		return
	}
	r.byName[exp.Name()] = len(r.list)
	r.list = append(r.list, exp)
}

// Enabled returns the explainers whose name passes enabled.
func (r *Registry) Enabled(enabled func(name string) bool) []Explainer {
	var out []Explainer
	for _, exp := range r.list {
		if enabled(exp.Name()) {
			out = append(out, exp)
		}
	}
	return out
}
