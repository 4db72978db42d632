// Package diagrams synthesizes bounded node/edge graphs from analysis results.
package diagrams

import (
	"fmt"

	"github.com/dejo1307/frontdoc/internal/config"
	"github.com/dejo1307/frontdoc/internal/facts"
)

// Diagram concerns.
const (
	ConcernNavigation = "navigation"
	ConcernComponents = "components"
	ConcernDataFlow   = "dataflow"
	ConcernOperations = "operations"
	ConcernCrossRepo  = "crossrepo"
)

// Synthesizer builds one diagram per concern and repository.
type Synthesizer struct {
	limits config.DiagramLimits
}

// New creates a synthesizer. Non-positive limits fall back to the defaults.
func New(limits config.DiagramLimits) *Synthesizer {
	def := config.DefaultDiagramLimits()
	if limits.NavigationEdges <= 0 {
		limits.NavigationEdges = def.NavigationEdges
	}
	if limits.DependencyEdges <= 0 {
		limits.DependencyEdges = def.DependencyEdges
	}
	if limits.DataFlowEdges <= 0 {
		limits.DataFlowEdges = def.DataFlowEdges
	}
	if limits.OperationEdges <= 0 {
		limits.OperationEdges = def.OperationEdges
	}
	if limits.CrossRepoEdges <= 0 {
		limits.CrossRepoEdges = def.CrossRepoEdges
	}
	return &Synthesizer{limits: limits}
}

// Synthesize returns the diagrams for results in report order, followed by
// the cross-repository diagram. Diagrams without nodes are omitted.
func (s *Synthesizer) Synthesize(results []*facts.AnalysisResult, cross facts.CrossRepoAnalysis) []facts.Diagram {
	var out []facts.Diagram
	keep := func(d facts.Diagram) {
		if len(d.Nodes) > 0 {
			out = append(out, d)
		}
	}
	for _, r := range results {
		if r == nil {
			continue
		}
		keep(s.Navigation(r))
		keep(s.Components(r))
		keep(s.DataFlow(r))
		keep(s.Operations(r))
	}
	if len(results) > 1 {
		keep(s.CrossRepo(results, cross))
	}
	return out
}

// ID returns the identifier of a repository diagram.
func ID(repo, concern string) string {
	return repo + "/" + concern
}

// Navigation links pages to the routes they navigate to.
func (s *Synthesizer) Navigation(r *facts.AnalysisResult) facts.Diagram {
	b := newBuilder(ID(r.Repository, ConcernNavigation), "Page navigation", ConcernNavigation, r.Repository, s.limits.NavigationEdges)
	for _, p := range r.Pages {
		b.node(p.Route, p.Route, p.Kind)
	}
	for _, p := range r.Pages {
		for _, l := range p.Links {
			if l == p.Route {
				continue
			}
			b.connect(ref{p.Route, p.Route, p.Kind}, ref{l, l, "link"}, "")
		}
	}
	return b.diagram()
}

// Components links components to the known components they render.
func (s *Synthesizer) Components(r *facts.AnalysisResult) facts.Diagram {
	b := newBuilder(ID(r.Repository, ConcernComponents), "Component hierarchy", ConcernComponents, r.Repository, s.limits.DependencyEdges)
	known := make(map[string]bool, len(r.Components))
	for _, c := range r.Components {
		known[c.Name] = true
	}
	for _, c := range r.Components {
		b.node(c.Name, c.Name, c.Type)
		for _, child := range c.Children {
			if known[child] && child != c.Name {
				b.connect(ref{c.Name, c.Name, c.Type}, ref{child, child, ""}, "")
			}
		}
	}
	return b.diagram()
}

// DataFlow draws every data flow from its source to its sink, labeled by hook.
func (s *Synthesizer) DataFlow(r *facts.AnalysisResult) facts.Diagram {
	b := newBuilder(ID(r.Repository, ConcernDataFlow), "Data flow", ConcernDataFlow, r.Repository, s.limits.DataFlowEdges)
	for _, f := range r.DataFlows {
		b.connect(ref{f.From, f.From, f.Type}, ref{f.To, f.To, f.Type}, f.Hook)
	}
	return b.diagram()
}

// Operations links components to the GraphQL operations they use.
func (s *Synthesizer) Operations(r *facts.AnalysisResult) facts.Diagram {
	b := newBuilder(ID(r.Repository, ConcernOperations), "GraphQL operations", ConcernOperations, r.Repository, s.limits.OperationEdges)
	types := make(map[string]string, len(r.Operations))
	for _, op := range r.Operations {
		if op.Type == facts.OpFragment {
			continue
		}
		types[op.Name] = op.Type
		b.node("op:"+op.Name, op.Name, op.Type)
	}
	for _, f := range r.DataFlows {
		if f.Type != facts.FlowGraphQL || f.Operation == "" || f.Component == "" {
			continue
		}
		typ, ok := types[f.Operation]
		if !ok {
			continue
		}
		b.connect(ref{"component:" + f.Component, f.Component, "component"}, ref{"op:" + f.Operation, f.Operation, typ}, typ)
	}
	return b.diagram()
}

// CrossRepo draws repositories and the links between them.
func (s *Synthesizer) CrossRepo(results []*facts.AnalysisResult, cross facts.CrossRepoAnalysis) facts.Diagram {
	b := newBuilder(ConcernCrossRepo, "Cross-repository links", ConcernCrossRepo, "", s.limits.CrossRepoEdges)
	for _, r := range results {
		if r != nil {
			b.node(r.Repository, label(r), r.Kind)
		}
	}
	for _, l := range cross.Links {
		b.connect(ref{l.From, l.From, ""}, ref{l.To, l.To, ""}, l.Subject)
	}
	return b.diagram()
}

func label(r *facts.AnalysisResult) string {
	if r.DisplayName != "" {
		return r.DisplayName
	}
	return r.Repository
}

// builder assigns node identifiers in first-seen order and enforces the
// edge bound of one diagram.
type builder struct {
	d     facts.Diagram
	ids   map[string]string
	edges map[facts.DiagramEdge]bool
	limit int
}

func newBuilder(id, title, concern, repo string, limit int) *builder {
	return &builder{
		d:     facts.Diagram{ID: id, Title: title, Concern: concern, Repository: repo},
		ids:   make(map[string]string),
		edges: make(map[facts.DiagramEdge]bool),
		limit: limit,
	}
}

// node returns the identifier for key, adding the node on first use.
func (b *builder) node(key, label, group string) string {
	if id, ok := b.ids[key]; ok {
		return id
	}
	id := fmt.Sprintf("n%d", len(b.d.Nodes)+1)
	b.ids[key] = id
	b.d.Nodes = append(b.d.Nodes, facts.DiagramNode{ID: id, Label: label, Group: group})
	return id
}

// ref names a node by semantic key, label and group.
type ref struct {
	key, label, group string
}

// connect adds a distinct edge between two nodes, creating them as needed.
// Once the bound is hit further edges are counted as dropped and their
// nodes are not added.
func (b *builder) connect(from, to ref, label string) {
	fromID, fromOK := b.ids[from.key]
	toID, toOK := b.ids[to.key]
	if fromOK && toOK && b.edges[facts.DiagramEdge{From: fromID, To: toID, Label: label}] {
		return
	}
	if len(b.d.Edges) >= b.limit {
		b.d.Dropped++
		return
	}
	e := facts.DiagramEdge{From: b.node(from.key, from.label, from.group), To: b.node(to.key, to.label, to.group), Label: label}
	b.edges[e] = true
	b.d.Edges = append(b.d.Edges, e)
}

func (b *builder) diagram() facts.Diagram {
	return b.d
}
