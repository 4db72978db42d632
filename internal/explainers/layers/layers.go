package layers

import (
	"context"
	"fmt"
	"strings"

	"github.com/dejo1307/frontdoc/internal/facts"
)

// Name is the explainer identifier.
const Name = "layers"

// LayerExplainer classifies frontend files into layers and reports imports
// that point from an inner layer to an outer one.
type LayerExplainer struct{}

// New creates a new LayerExplainer.
func New() *LayerExplainer {
	return &LayerExplainer{}
}

func (e *LayerExplainer) Name() string {
	return Name
}

// layerDef defines how a layer is detected from directory names.
type layerDef struct {
	Name     string
	Patterns []string
	Level    int // Lower level = inner/shared, higher = outer/route
}

var frontendLayers = []layerDef{
	{Name: "pages", Patterns: []string{"pages", "app", "routes", "views", "screens"}, Level: 3},
	{Name: "components", Patterns: []string{"components", "ui", "widgets"}, Level: 2},
	{Name: "hooks", Patterns: []string{"hooks", "services", "store", "stores", "context", "providers"}, Level: 1},
	{Name: "lib", Patterns: []string{"lib", "utils", "helpers", "types", "shared"}, Level: 0},
}

// repoLayers is the layer assignment of one repository's files.
type repoLayers struct {
	files      map[string]*layerDef
	order      []string // classified files, first-seen
	used       map[string]bool
	candidates int
}

// Explain reports the detected layer layout of each repository with
// components and every inner-to-outer import between component files.
func (e *LayerExplainer) Explain(ctx context.Context, results []*facts.AnalysisResult) ([]facts.Insight, error) {
	var insights []facts.Insight
	for _, r := range results {
		if err := ctx.Err(); err != nil {
			return insights, err
		}
		if len(r.Components) == 0 {
			continue
		}
		rl := classify(r)
		confidence, ok := rl.confidence()
		if !ok {
			continue
		}
		insights = append(insights, layoutInsight(r.Repository, rl, confidence))
		insights = append(insights, detectViolations(r, rl)...)
	}
	return insights, nil
}

// classify assigns a layer to every page and component file.
func classify(r *facts.AnalysisResult) *repoLayers {
	rl := &repoLayers{files: make(map[string]*layerDef), used: make(map[string]bool)}
	seen := make(map[string]bool)
	add := func(file string) {
		if file == "" || seen[file] {
			return
		}
		seen[file] = true
		rl.candidates++
		if def := layerOf(file); def != nil {
			rl.files[file] = def
			rl.order = append(rl.order, file)
			rl.used[def.Name] = true
		}
	}
	for _, p := range r.Pages {
		add(p.File)
	}
	for _, c := range r.Components {
		add(c.File)
	}
	return rl
}

// confidence blends file coverage with layer coverage. A layout needs at
// least two layers and a confidence of 0.2.
func (rl *repoLayers) confidence() (float64, bool) {
	if rl.candidates == 0 || len(rl.files) == 0 {
		return 0, false
	}
	coverage := float64(len(rl.files)) / float64(rl.candidates)
	layerCoverage := float64(len(rl.used)) / float64(len(frontendLayers))
	c := min(coverage*0.6+layerCoverage*0.4, 1.0)
	if c < 0.2 || len(rl.used) < 2 {
		return c, false
	}
	return c, true
}

func layoutInsight(repo string, rl *repoLayers, confidence float64) facts.Insight {
	var names []string
	for _, def := range frontendLayers {
		if rl.used[def.Name] {
			names = append(names, def.Name)
		}
	}
	evidence := make([]facts.Evidence, 0, len(rl.order))
	for _, file := range rl.order {
		evidence = append(evidence, facts.Evidence{
			Repo:   repo,
			File:   file,
			Detail: fmt.Sprintf("%s maps to layer %q", file, rl.files[file].Name),
		})
	}
	return facts.Insight{
		Title: fmt.Sprintf("Frontend layers in %s: %s", repo, strings.Join(names, ", ")),
		Description: fmt.Sprintf("Classified %d of %d page and component files into %d layers with %.0f%% confidence.",
			len(rl.files), rl.candidates, len(names), confidence*100),
		Confidence: confidence,
		Evidence:   evidence,
		Actions: []string{
			"Keep new components inside the detected layer structure",
		},
	}
}

// detectViolations reports component imports from a lower level to a higher one.
func detectViolations(r *facts.AnalysisResult, rl *repoLayers) []facts.Insight {
	var insights []facts.Insight
	seen := make(map[[2]string]bool)
	for _, c := range r.Components {
		source, ok := rl.files[c.File]
		if !ok {
			continue
		}
		for _, target := range c.Imports {
			targetDef, ok := rl.files[target]
			if !ok || source.Level >= targetDef.Level {
				continue
			}
			key := [2]string{c.File, target}
			if seen[key] {
				continue
			}
			seen[key] = true

			insights = append(insights, facts.Insight{
				Title: fmt.Sprintf("Layer violation in %s: %s -> %s", r.Repository, source.Name, targetDef.Name),
				Description: fmt.Sprintf(
					"%s (layer: %s, level %d) imports %s (layer: %s, level %d). "+
						"Shared layers should not depend on route-level code.",
					c.File, source.Name, source.Level,
					target, targetDef.Name, targetDef.Level,
				),
				Confidence: 0.8,
				Evidence: []facts.Evidence{
					{Repo: r.Repository, File: c.File, Fact: c.ID, Detail: fmt.Sprintf("import of %s", target)},
				},
				Actions: []string{
					"Move the imported component into the components layer",
					"Pass route-specific content in through props or children",
				},
			})
		}
	}
	return insights
}

// layerOf matches directory names from the innermost outwards, so
// src/app/components/Button.tsx is a component rather than a page.
func layerOf(file string) *layerDef {
	parts := strings.Split(strings.ToLower(file), "/")
	parts = parts[:len(parts)-1]
	for i := len(parts) - 1; i >= 0; i-- {
		for j := range frontendLayers {
			for _, p := range frontendLayers[j].Patterns {
				if parts[i] == p {
					return &frontendLayers[j]
				}
			}
		}
	}
	return nil
}
