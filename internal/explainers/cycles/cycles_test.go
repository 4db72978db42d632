package cycles

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/dejo1307/frontdoc/internal/facts"
)

// --- helpers ---

// graphOf builds component facts where each key file imports the listed files.
func graphOf(order []string, imports map[string][]string) []facts.ComponentInfo {
	var out []facts.ComponentInfo
	for _, file := range order {
		out = append(out, facts.ComponentInfo{Name: file, File: file, Imports: imports[file]})
	}
	return out
}

// --- Tarjan's SCC tests ---

func TestTarjanSCC_KnownGraphs(t *testing.T) {
	tests := []struct {
		name  string
		order []string
		edges map[string][]string
		want  [][]string // non-trivial SCCs in discovery order
	}{
		{
			name: "empty graph",
		},
		{
			name:  "single node no edges",
			order: []string{"A"},
		},
		{
			name:  "simple cycle A<->B",
			order: []string{"A", "B"},
			edges: map[string][]string{"A": {"B"}, "B": {"A"}},
			want:  [][]string{{"A", "B"}},
		},
		{
			name:  "triangle A->B->C->A",
			order: []string{"A", "B", "C"},
			edges: map[string][]string{"A": {"B"}, "B": {"C"}, "C": {"A"}},
			want:  [][]string{{"A", "B", "C"}},
		},
		{
			name:  "two disjoint cycles",
			order: []string{"A", "B", "C", "D"},
			edges: map[string][]string{"A": {"B"}, "B": {"A"}, "C": {"D"}, "D": {"C"}},
			want:  [][]string{{"A", "B"}, {"C", "D"}},
		},
		{
			name:  "chain no cycle A->B->C",
			order: []string{"A", "B", "C"},
			edges: map[string][]string{"A": {"B"}, "B": {"C"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := buildImportGraph(graphOf(tt.order, tt.edges))
			var got [][]string
			for _, scc := range tarjanSCC(g) {
				if len(scc) > 1 {
					got = append(got, scc)
				}
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("cycles = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildImportGraph_IgnoresUnknownTargets(t *testing.T) {
	comps := []facts.ComponentInfo{
		{Name: "Header", File: "src/Header.tsx", Imports: []string{"src/Logo.tsx", "src/theme.ts"}},
		{Name: "Logo", File: "src/Logo.tsx"},
		// Second component in the same file must not duplicate the node.
		{Name: "HeaderMenu", File: "src/Header.tsx", Imports: []string{"src/Logo.tsx"}},
	}
	g := buildImportGraph(comps)

	if want := []string{"src/Header.tsx", "src/Logo.tsx"}; !reflect.DeepEqual(g.order, want) {
		t.Errorf("order = %v, want %v", g.order, want)
	}
	if want := []string{"src/Logo.tsx"}; !reflect.DeepEqual(g.edges["src/Header.tsx"], want) {
		t.Errorf("edges = %v, want %v", g.edges["src/Header.tsx"], want)
	}
}

// --- Explainer tests ---

func TestExplain_ReportsCyclesPerRepository(t *testing.T) {
	results := []*facts.AnalysisResult{
		{
			Repository: "web",
			Components: graphOf([]string{"src/List.tsx", "src/Item.tsx", "src/Empty.tsx"}, map[string][]string{
				"src/List.tsx": {"src/Item.tsx", "src/Empty.tsx"},
				"src/Item.tsx": {"src/List.tsx"},
			}),
		},
		{
			Repository: "admin",
			Components: graphOf([]string{"src/Tree.tsx"}, map[string][]string{
				"src/Tree.tsx": {"src/Tree.tsx"},
			}),
		},
		{
			Repository: "api",
		},
	}

	insights, err := New().Explain(context.Background(), results)
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if len(insights) != 2 {
		t.Fatalf("expected 2 insights, got %d: %+v", len(insights), insights)
	}

	web := insights[0]
	if !strings.Contains(web.Title, "web") || !strings.Contains(web.Title, "2 files") {
		t.Errorf("title = %q", web.Title)
	}
	if !strings.Contains(web.Description, "src/List.tsx -> src/Item.tsx -> src/List.tsx") {
		t.Errorf("description = %q", web.Description)
	}
	if len(web.Evidence) != 2 || web.Evidence[0].Repo != "web" {
		t.Errorf("evidence = %+v", web.Evidence)
	}
	if web.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", web.Confidence)
	}

	if !strings.Contains(insights[1].Title, "admin") || !strings.Contains(insights[1].Title, "1 files") {
		t.Errorf("self-import title = %q", insights[1].Title)
	}
}

func TestExplain_Deterministic(t *testing.T) {
	results := []*facts.AnalysisResult{{
		Repository: "web",
		Components: graphOf([]string{"a.tsx", "b.tsx", "c.tsx", "d.tsx"}, map[string][]string{
			"a.tsx": {"b.tsx"}, "b.tsx": {"a.tsx"},
			"c.tsx": {"d.tsx"}, "d.tsx": {"c.tsx"},
		}),
	}}

	first, err := New().Explain(context.Background(), results)
	if err != nil {
		t.Fatal(err)
	}
	for range 10 {
		again, _ := New().Explain(context.Background(), results)
		if !reflect.DeepEqual(first, again) {
			t.Fatal("explain output is not deterministic")
		}
	}
}

func TestExplain_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().Explain(ctx, []*facts.AnalysisResult{{Repository: "web"}}); err == nil {
		t.Error("expected context error")
	}
}
