package explainers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dejo1307/frontdoc/internal/facts"
)

type stubExplainer struct {
	name  string
	title string
}

func (s stubExplainer) Name() string { return s.name }

func (s stubExplainer) Explain(context.Context, []*facts.AnalysisResult) ([]facts.Insight, error) {
	return []facts.Insight{{Title: s.title}}, nil
}

func TestRegistry_ReplacesByNameAndFilters(t *testing.T) {
	r := NewRegistry()
	r.Register(stubExplainer{name: "cycles", title: "old"})
	r.Register(stubExplainer{name: "layers"})
	r.Register(stubExplainer{name: "cycles", title: "new"})

	all := r.Enabled(func(string) bool { return true })
	if assert.Len(t, all, 2) {
		assert.Equal(t, "cycles", all[0].Name())
		got, err := all[0].Explain(context.Background(), nil)
		assert.NoError(t, err)
		assert.Equal(t, "new", got[0].Title)
	}

	only := r.Enabled(func(name string) bool { return name == "layers" })
	if assert.Len(t, only, 1) {
		assert.Equal(t, "layers", only[0].Name())
	}
}
