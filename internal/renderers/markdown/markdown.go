// Package markdown renders a documentation report as markdown pages with
// mermaid diagrams.
package markdown

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/dejo1307/frontdoc/internal/facts"
)

// Name is the renderer identifier used in configuration.
const Name = "markdown"

// Renderer writes README.md plus one page per repository.
type Renderer struct{}

// New creates a markdown renderer.
func New() *Renderer {
	return &Renderer{}
}

func (r *Renderer) Name() string {
	return Name
}

// Render produces the index page and the per-repository pages.
func (r *Renderer) Render(_ context.Context, report *facts.DocumentationReport) ([]facts.Artifact, error) {
	if report == nil {
		return nil, fmt.Errorf("nil report")
	}

	out := []facts.Artifact{{
		Name:    "README.md",
		Content: []byte(renderIndex(report)),
		Type:    "text/markdown",
	}}
	for _, rr := range report.Repositories {
		if rr.Result == nil {
			continue
		}
		out = append(out, facts.Artifact{
			Name:    FileName(rr.Result.Repository),
			Content: []byte(renderRepository(report, rr)),
			Type:    "text/markdown",
		})
	}
	return out, nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileName returns the page name of a repository.
func FileName(repo string) string {
	name := strings.Trim(unsafeName.ReplaceAllString(repo, "-"), "-.")
	if name == "" || strings.EqualFold(name, "README") {
		name = "repository-" + name
	}
	return name + ".md"
}

func renderIndex(report *facts.DocumentationReport) string {
	var sb strings.Builder
	sb.WriteString("# Architecture Documentation\n\n")
	fmt.Fprintf(&sb, "Generated %s in %s (run `%s`).\n\n", report.GeneratedAt.UTC().Format(time.RFC3339), report.Duration, report.RunID)

	sb.WriteString("## Repositories\n\n")
	if len(report.Repositories) == 0 {
		sb.WriteString("_No repositories analyzed._\n\n")
	} else {
		sb.WriteString("| Repository | Kind | Version | Revision | Pages | Components | Operations | API calls | Endpoints | Models |\n")
		sb.WriteString("|------------|------|---------|----------|-------|------------|------------|-----------|-----------|--------|\n")
		for _, rr := range report.Repositories {
			res := rr.Result
			if res == nil {
				continue
			}
			s := rr.Summary
			fmt.Fprintf(&sb, "| [%s](%s) | %s | %s | `%s` | %d | %d | %d | %d | %d | %d |\n",
				label(res), FileName(res.Repository), res.Kind, res.Version, shortRevision(res.Revision),
				s.Pages, s.Components, s.Operations, s.APICalls, s.Endpoints, s.Models)
		}
		sb.WriteString("\n")
	}

	sb.WriteString(renderCrossRepo(report))
	sb.WriteString(renderInsights(report.Insights))
	return sb.String()
}

// maxEvidence bounds the evidence bullets listed under one insight.
const maxEvidence = 10

func renderInsights(insights []facts.Insight) string {
	if len(insights) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("## Insights\n\n")
	for _, in := range insights {
		fmt.Fprintf(&sb, "### %s\n\n", in.Title)
		fmt.Fprintf(&sb, "%s (confidence: %.0f%%)\n\n", in.Description, in.Confidence*100)
		for i, ev := range in.Evidence {
			if i == maxEvidence {
				fmt.Fprintf(&sb, "- _%d more_\n", len(in.Evidence)-maxEvidence)
				break
			}
			fmt.Fprintf(&sb, "- `%s/%s`: %s\n", ev.Repo, ev.File, ev.Detail)
		}
		if len(in.Actions) > 0 {
			if len(in.Evidence) > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString("Suggested actions:\n")
			for _, a := range in.Actions {
				fmt.Fprintf(&sb, "- %s\n", a)
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func renderCrossRepo(report *facts.DocumentationReport) string {
	cross := report.CrossRepo
	if len(cross.Links) == 0 && len(cross.SharedTypes) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("## Cross-Repository Links\n\n")
	if len(cross.SharedTypes) > 0 {
		shared := append([]string(nil), cross.SharedTypes...)
		sort.Strings(shared)
		fmt.Fprintf(&sb, "Shared GraphQL operations: %s\n\n", codeList(shared))
	}
	if len(cross.Links) > 0 {
		sb.WriteString("| Type | From | To | Description |\n")
		sb.WriteString("|------|------|----|-------------|\n")
		for _, l := range cross.Links {
			fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", l.Type, l.From, l.To, cell(l.Description))
		}
		sb.WriteString("\n")
	}
	if len(cross.Connections) > 0 {
		fmt.Fprintf(&sb, "%d frontend to backend endpoint connections.\n\n", len(cross.Connections))
	}
	for _, d := range report.Diagrams {
		if d.Repository == "" {
			sb.WriteString(renderDiagram(d))
		}
	}
	return sb.String()
}

func renderRepository(report *facts.DocumentationReport, rr facts.RepositoryReport) string {
	res := rr.Result
	s := rr.Summary

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", label(res))
	fmt.Fprintf(&sb, "- Kind: %s\n- Version: %s\n- Revision: `%s`\n- Analyzed: %s\n",
		res.Kind, res.Version, res.Revision, res.Timestamp.UTC().Format(time.RFC3339))
	if rr.Cached {
		sb.WriteString("- Reused from cache\n")
	}
	sb.WriteString("\n## Summary\n\n")
	sb.WriteString("| Pages | Authenticated | Public | Components | Queries | Mutations | Data flows |\n")
	sb.WriteString("|-------|---------------|--------|------------|---------|-----------|------------|\n")
	fmt.Fprintf(&sb, "| %d | %d | %d | %d | %d | %d | %d |\n\n",
		s.Pages, s.AuthenticatedPages, s.PublicPages, s.Components, s.Queries, s.Mutations, s.DataFlows)

	sb.WriteString(renderPages(res.Pages))
	sb.WriteString(renderAPICalls(res.APICalls, s))
	sb.WriteString(renderEndpoints(res.Endpoints))
	sb.WriteString(renderModels(res.Models))

	for _, d := range report.Diagrams {
		if d.Repository == res.Repository {
			sb.WriteString(renderDiagram(d))
		}
	}
	return sb.String()
}

func renderPages(pages []facts.PageInfo) string {
	if len(pages) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("## Pages\n\n")
	sb.WriteString("| Route | Kind | Router | Auth | File |\n")
	sb.WriteString("|-------|------|--------|------|------|\n")
	for _, p := range pages {
		fmt.Fprintf(&sb, "| `%s` | %s | %s | %s | `%s:%d` |\n", p.Route, p.Kind, p.Router, yesNo(p.RequiresAuth), p.File, p.Line)
	}
	sb.WriteString("\n")
	return sb.String()
}

func renderAPICalls(calls []facts.APICall, s facts.Summary) string {
	if len(calls) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("## API Calls\n\n")

	categories := make([]string, 0, len(s.CallsByCategory))
	for c := range s.CallsByCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	for _, c := range categories {
		fmt.Fprintf(&sb, "- %s: %d\n", c, s.CallsByCategory[c])
	}
	fmt.Fprintf(&sb, "- Authenticated: %d\n- Unresolved URLs: %d\n\n", s.AuthenticatedCalls, s.PlaceholderCalls)

	sb.WriteString("| Method | URL | Category | Function | Auth | File |\n")
	sb.WriteString("|--------|-----|----------|----------|------|------|\n")
	for _, c := range calls {
		fmt.Fprintf(&sb, "| %s | `%s` | %s | `%s` | %s | `%s:%d` |\n",
			c.Method, cell(c.URL), c.Category, c.Function, yesNo(c.RequiresAuth), c.File, c.Line)
	}
	sb.WriteString("\n")
	return sb.String()
}

func renderEndpoints(eps []facts.APIEndpoint) string {
	if len(eps) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("## API Endpoints\n\n")
	sb.WriteString("| Method | Path | Handler | Framework | Auth | File |\n")
	sb.WriteString("|--------|------|---------|-----------|------|------|\n")
	for _, ep := range eps {
		fmt.Fprintf(&sb, "| %s | `%s` | `%s` | %s | %s | `%s:%d` |\n",
			ep.Method, ep.Path, ep.Handler, ep.Framework, yesNo(ep.RequiresAuth), ep.File, ep.Line)
	}
	sb.WriteString("\n")
	return sb.String()
}

func renderModels(models []facts.ModelInfo) string {
	if len(models) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("## Models\n\n")
	sb.WriteString("| Name | Kind | Source | Fields | File |\n")
	sb.WriteString("|------|------|--------|--------|------|\n")
	for _, m := range models {
		fmt.Fprintf(&sb, "| `%s` | %s | %s | %d | `%s:%d` |\n", m.Name, m.Kind, m.Source, len(m.Fields), m.File, m.Line)
	}
	sb.WriteString("\n")
	return sb.String()
}

func renderDiagram(d facts.Diagram) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", d.Title)
	sb.WriteString("```mermaid\n")
	sb.WriteString(Mermaid(d))
	sb.WriteString("```\n\n")
	if d.Dropped > 0 {
		fmt.Fprintf(&sb, "_%d more edges not shown._\n\n", d.Dropped)
	}
	return sb.String()
}

// Mermaid returns the flowchart source of a diagram.
func Mermaid(d facts.Diagram) string {
	var sb strings.Builder
	sb.WriteString("flowchart LR\n")
	for _, n := range d.Nodes {
		fmt.Fprintf(&sb, "  %s[\"%s\"]\n", n.ID, escape(n.Label))
	}
	for _, e := range d.Edges {
		if e.Label != "" {
			fmt.Fprintf(&sb, "  %s -->|\"%s\"| %s\n", e.From, escape(e.Label), e.To)
		} else {
			fmt.Fprintf(&sb, "  %s --> %s\n", e.From, e.To)
		}
	}
	return sb.String()
}

func escape(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func codeList(ss []string) string {
	quoted := make([]string, len(ss))
	for i, s := range ss {
		quoted[i] = "`" + s + "`"
	}
	return strings.Join(quoted, ", ")
}

func label(r *facts.AnalysisResult) string {
	if r.DisplayName != "" {
		return r.DisplayName
	}
	return r.Repository
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
