package facts

import (
	"fmt"
	"time"
)

// Fact kinds, used for IDs, summaries and the query index.
const (
	KindPage      = "page"
	KindAPICall   = "api-call"
	KindOperation = "graphql-operation"
	KindComponent = "component"
	KindDataFlow  = "data-flow"
	KindEndpoint  = "api-endpoint"
	KindModel     = "model"
)

// Unknown is the sentinel used for unresolvable metadata and scopes.
const Unknown = "unknown"

// GraphQL operation types.
const (
	OpQuery        = "query"
	OpMutation     = "mutation"
	OpSubscription = "subscription"
	OpFragment     = "fragment"
)

// Data flow types.
const (
	FlowGraphQL = "graphql"
	FlowREST    = "rest"
	FlowContext = "context"
	FlowStore   = "store"
)

// PageInfo is a routed page or layout.
type PageInfo struct {
	ID           string   `json:"id"`
	Route        string   `json:"route"`
	File         string   `json:"file"`
	Line         int      `json:"line"`
	Component    string   `json:"component,omitempty"`
	Router       string   `json:"router"`
	Kind         string   `json:"kind"`
	Params       []string `json:"params,omitempty"`
	RequiresAuth bool     `json:"requires_auth"`
	Links        []string `json:"links,omitempty"`
}

// APICall is an outgoing HTTP request site.
type APICall struct {
	ID           string `json:"id"`
	Method       string `json:"method"`
	URL          string `json:"url"`
	Mechanism    string `json:"mechanism"`
	Function     string `json:"function"`
	File         string `json:"file"`
	Line         int    `json:"line"`
	RequiresAuth bool   `json:"requires_auth"`
	Category     string `json:"category"`
	Placeholder  bool   `json:"placeholder,omitempty"`
}

// GraphQLOperation is a named query, mutation, subscription or fragment.
type GraphQLOperation struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	File      string   `json:"file"`
	Line      int      `json:"line"`
	Binding   string   `json:"binding,omitempty"`
	Variables []string `json:"variables,omitempty"`
}

// ComponentInfo is a UI component declaration.
type ComponentInfo struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	File     string   `json:"file"`
	Line     int      `json:"line"`
	Exported bool     `json:"exported"`
	Props    []string `json:"props,omitempty"`
	Hooks    []string `json:"hooks,omitempty"`
	Children []string `json:"children,omitempty"`
	Imports  []string `json:"imports,omitempty"`
}

// DataFlow is a directed movement of data between a source and a component.
type DataFlow struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	From      string `json:"from"`
	To        string `json:"to"`
	Component string `json:"component"`
	Hook      string `json:"hook"`
	Operation string `json:"operation,omitempty"`
	File      string `json:"file"`
	Line      int    `json:"line"`
}

// APIEndpoint is a server-side route declaration.
type APIEndpoint struct {
	ID           string `json:"id"`
	Method       string `json:"method"`
	Path         string `json:"path"`
	Handler      string `json:"handler,omitempty"`
	Framework    string `json:"framework"`
	File         string `json:"file"`
	Line         int    `json:"line"`
	RequiresAuth bool   `json:"requires_auth"`
}

// ModelInfo is a data model or schema type.
type ModelInfo struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Kind   string   `json:"kind"`
	Source string   `json:"source,omitempty"`
	File   string   `json:"file"`
	Line   int      `json:"line"`
	Fields []string `json:"fields,omitempty"`
}

// AnalysisResult is one repository's fact bag. Extractors return partial
// results with only the identity fields left empty.
type AnalysisResult struct {
	Repository  string    `json:"repository"`
	DisplayName string    `json:"display_name,omitempty"`
	Kind        string    `json:"kind,omitempty"`
	Version     string    `json:"version"`
	Revision    string    `json:"revision"`
	Timestamp   time.Time `json:"timestamp"`

	Pages      []PageInfo         `json:"pages"`
	APICalls   []APICall          `json:"api_calls"`
	Operations []GraphQLOperation `json:"graphql_operations"`
	Components []ComponentInfo    `json:"components"`
	DataFlows  []DataFlow         `json:"data_flows"`
	Endpoints  []APIEndpoint      `json:"api_endpoints"`
	Models     []ModelInfo        `json:"models"`
}

// FactCount returns the total number of facts across all kinds.
func (r *AnalysisResult) FactCount() int {
	if r == nil {
		return 0
	}
	return len(r.Pages) + len(r.APICalls) + len(r.Operations) + len(r.Components) +
		len(r.DataFlows) + len(r.Endpoints) + len(r.Models)
}

// Merge concatenates each fact kind across parts in argument order.
// Nil parts are skipped. No deduplication is performed.
func Merge(parts ...*AnalysisResult) *AnalysisResult {
	out := &AnalysisResult{}
	for _, p := range parts {
		if p == nil {
			continue
		}
		out.Pages = append(out.Pages, p.Pages...)
		out.APICalls = append(out.APICalls, p.APICalls...)
		out.Operations = append(out.Operations, p.Operations...)
		out.Components = append(out.Components, p.Components...)
		out.DataFlows = append(out.DataFlows, p.DataFlows...)
		out.Endpoints = append(out.Endpoints, p.Endpoints...)
		out.Models = append(out.Models, p.Models...)
	}
	return out
}

// IDs returns every fact identifier in the result, in kind then sequence order.
func (r *AnalysisResult) IDs() []string {
	ids := make([]string, 0, r.FactCount())
	for _, f := range r.Pages {
		ids = append(ids, f.ID)
	}
	for _, f := range r.APICalls {
		ids = append(ids, f.ID)
	}
	for _, f := range r.Operations {
		ids = append(ids, f.ID)
	}
	for _, f := range r.Components {
		ids = append(ids, f.ID)
	}
	for _, f := range r.DataFlows {
		ids = append(ids, f.ID)
	}
	for _, f := range r.Endpoints {
		ids = append(ids, f.ID)
	}
	for _, f := range r.Models {
		ids = append(ids, f.ID)
	}
	return ids
}

// NewID builds a fact identifier scoped to the producing extractor.
// Optional qualifiers disambiguate several facts at one source position.
func NewID(extractor, kind, file string, line, col int, qualifiers ...string) string {
	id := fmt.Sprintf("%s:%s:%s:%d:%d", extractor, kind, file, line, col)
	for _, q := range qualifiers {
		if q != "" {
			id += ":" + q
		}
	}
	return id
}
