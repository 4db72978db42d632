package cycles

import (
	"context"
	"fmt"
	"strings"

	"github.com/dejo1307/frontdoc/internal/facts"
)

// Name is the explainer identifier.
const Name = "cycles"

// CycleExplainer detects cyclic imports between component files using
// Tarjan's SCC algorithm.
type CycleExplainer struct{}

// New creates a new CycleExplainer.
func New() *CycleExplainer {
	return &CycleExplainer{}
}

func (e *CycleExplainer) Name() string {
	return Name
}

// Explain builds one import graph per repository and reports every strongly
// connected component with more than one file, plus self-imports.
func (e *CycleExplainer) Explain(ctx context.Context, results []*facts.AnalysisResult) ([]facts.Insight, error) {
	var insights []facts.Insight
	for _, r := range results {
		if err := ctx.Err(); err != nil {
			return insights, err
		}
		g := buildImportGraph(r.Components)
		for _, scc := range tarjanSCC(g) {
			if len(scc) == 1 && !g.selfLoop(scc[0]) {
				continue
			}
			insights = append(insights, cycleInsight(r.Repository, scc))
		}
	}
	return insights, nil
}

func cycleInsight(repo string, scc []string) facts.Insight {
	cyclePath := strings.Join(scc, " -> ") + " -> " + scc[0]
	evidence := make([]facts.Evidence, 0, len(scc))
	for _, file := range scc {
		evidence = append(evidence, facts.Evidence{
			Repo:   repo,
			File:   file,
			Detail: fmt.Sprintf("%s is part of the cycle", file),
		})
	}
	return facts.Insight{
		Title:       fmt.Sprintf("Cyclic component import in %s (%d files)", repo, len(scc)),
		Description: fmt.Sprintf("These component files import each other: %s.", cyclePath),
		Confidence:  1.0,
		Evidence:    evidence,
		Actions: []string{
			"Move the shared piece into its own component file",
			"Pass the child in as a prop instead of importing it",
		},
	}
}

// importGraph is an adjacency list keyed by repo-relative file. order keeps
// first-seen node order so results are deterministic.
type importGraph struct {
	order []string
	edges map[string][]string
}

func (g *importGraph) selfLoop(v string) bool {
	for _, w := range g.edges[v] {
		if w == v {
			return true
		}
	}
	return false
}

// buildImportGraph links component files to the component files they import.
// Imports of files that declare no component are not tracked.
func buildImportGraph(components []facts.ComponentInfo) *importGraph {
	g := &importGraph{edges: make(map[string][]string)}
	known := make(map[string]bool)
	for _, c := range components {
		if c.File == "" || known[c.File] {
			continue
		}
		known[c.File] = true
		g.order = append(g.order, c.File)
	}

	seen := make(map[[2]string]bool)
	for _, c := range components {
		for _, target := range c.Imports {
			if !known[target] {
				continue
			}
			key := [2]string{c.File, target}
			if seen[key] {
				continue
			}
			seen[key] = true
			g.edges[c.File] = append(g.edges[c.File], target)
		}
	}
	return g
}

// tarjanSCC returns the strongly connected components of g. Members of each
// component are listed in discovery order.
func tarjanSCC(g *importGraph) [][]string {
	var (
		index    int
		stack    []string
		onStack  = make(map[string]bool)
		indices  = make(map[string]int)
		lowlinks = make(map[string]int)
		sccs     [][]string
	)

	var strongConnect func(v string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlinks[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.edges[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlinks[v] = min(lowlinks[v], lowlinks[w])
			} else if onStack[w] {
				lowlinks[v] = min(lowlinks[v], indices[w])
			}
		}

		// Root of an SCC
		if lowlinks[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			// Popped in reverse discovery order.
			for i, j := 0, len(scc)-1; i < j; i, j = i+1, j-1 {
				scc[i], scc[j] = scc[j], scc[i]
			}
			sccs = append(sccs, scc)
		}
	}

	for _, v := range g.order {
		if _, visited := indices[v]; !visited {
			strongConnect(v)
		}
	}
	return sccs
}
