package facts

import "time"

// Cross-repo link types.
const (
	LinkGraphQLOperation = "graphql-operation"
	LinkEndpoint         = "frontend-backend"
)

// CrossRepoLink relates facts observed in two repositories.
type CrossRepoLink struct {
	Type        string `json:"type"`
	From        string `json:"from"`
	To          string `json:"to"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
}

// EndpointConnection pairs a page-declaring repository with an endpoint it may call.
type EndpointConnection struct {
	Frontend string `json:"frontend"`
	Backend  string `json:"backend"`
	Method   string `json:"method"`
	Path     string `json:"path"`
}

// CrossRepoAnalysis is the linker output.
type CrossRepoAnalysis struct {
	SharedTypes []string             `json:"shared_types"`
	Links       []CrossRepoLink      `json:"links"`
	Connections []EndpointConnection `json:"connections"`
}

// Summary holds derived counts for one repository.
type Summary struct {
	Pages              int            `json:"pages"`
	AuthenticatedPages int            `json:"authenticated_pages"`
	PublicPages        int            `json:"public_pages"`
	Components         int            `json:"components"`
	Operations         int            `json:"graphql_operations"`
	Queries            int            `json:"queries"`
	Mutations          int            `json:"mutations"`
	APICalls           int            `json:"api_calls"`
	AuthenticatedCalls int            `json:"authenticated_api_calls"`
	PlaceholderCalls   int            `json:"placeholder_api_calls"`
	CallsByCategory    map[string]int `json:"api_calls_by_category,omitempty"`
	DataFlows          int            `json:"data_flows"`
	Endpoints          int            `json:"api_endpoints"`
	Models             int            `json:"models"`
}

// Summarize derives the summary counts of a result.
func Summarize(r *AnalysisResult) Summary {
	s := Summary{
		Pages:      len(r.Pages),
		Components: len(r.Components),
		Operations: len(r.Operations),
		APICalls:   len(r.APICalls),
		DataFlows:  len(r.DataFlows),
		Endpoints:  len(r.Endpoints),
		Models:     len(r.Models),
	}
	for _, p := range r.Pages {
		if p.RequiresAuth {
			s.AuthenticatedPages++
		} else {
			s.PublicPages++
		}
	}
	for _, op := range r.Operations {
		switch op.Type {
		case OpQuery:
			s.Queries++
		case OpMutation:
			s.Mutations++
		}
	}
	for _, c := range r.APICalls {
		if c.RequiresAuth {
			s.AuthenticatedCalls++
		}
		if c.Placeholder {
			s.PlaceholderCalls++
		}
		if s.CallsByCategory == nil {
			s.CallsByCategory = make(map[string]int)
		}
		s.CallsByCategory[c.Category]++
	}
	return s
}

// RepositoryReport wraps one repository's result with its summary.
type RepositoryReport struct {
	Result  *AnalysisResult `json:"result"`
	Summary Summary         `json:"summary"`
	Cached  bool            `json:"cached"`
}

// DiagramNode is a node in a synthesized diagram.
type DiagramNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Group string `json:"group,omitempty"`
}

// DiagramEdge is a directed edge between two diagram nodes.
type DiagramEdge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label,omitempty"`
}

// Diagram is a bounded graph for one concern.
type Diagram struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	Concern    string        `json:"concern"`
	Repository string        `json:"repository,omitempty"`
	Nodes      []DiagramNode `json:"nodes"`
	Edges      []DiagramEdge `json:"edges"`
	Dropped    int           `json:"dropped_edges,omitempty"`
}

// DocumentationReport is the immutable output of one orchestrator run.
type DocumentationReport struct {
	RunID        string             `json:"run_id"`
	GeneratedAt  time.Time          `json:"generated_at"`
	Duration     string             `json:"duration"`
	Repositories []RepositoryReport `json:"repositories"`
	CrossRepo    CrossRepoAnalysis  `json:"cross_repo"`
	Diagrams     []Diagram          `json:"diagrams"`
	Insights     []Insight          `json:"insights,omitempty"`
}

// Results returns the analysis results in report order.
func (d *DocumentationReport) Results() []*AnalysisResult {
	out := make([]*AnalysisResult, 0, len(d.Repositories))
	for _, r := range d.Repositories {
		out = append(out, r.Result)
	}
	return out
}

// Diagram returns the diagram with the given id, or nil.
func (d *DocumentationReport) Diagram(id string) *Diagram {
	for i := range d.Diagrams {
		if d.Diagrams[i].ID == id {
			return &d.Diagrams[i]
		}
	}
	return nil
}

// Insight is a finding derived from the facts of one or more repositories.
type Insight struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Confidence  float64    `json:"confidence"` // 0.0 - 1.0
	Evidence    []Evidence `json:"evidence"`
	Actions     []string   `json:"suggested_actions,omitempty"`
}

// Evidence links an insight back to concrete files and facts.
type Evidence struct {
	Repo   string `json:"repo,omitempty"`
	File   string `json:"file,omitempty"`
	Fact   string `json:"fact,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Artifact represents a generated output file.
type Artifact struct {
	Name    string `json:"name"`
	Content []byte `json:"-"`
	Type    string `json:"type"`
}
