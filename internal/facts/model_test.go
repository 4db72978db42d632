package facts

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func partA() *AnalysisResult {
	return &AnalysisResult{
		Pages:    []PageInfo{{ID: "a:page:1", Route: "/"}},
		APICalls: []APICall{{ID: "a:call:1", URL: "/api/a"}},
	}
}

func partB() *AnalysisResult {
	return &AnalysisResult{
		APICalls:   []APICall{{ID: "b:call:1", URL: "/api/b"}},
		Operations: []GraphQLOperation{{ID: "b:op:1", Name: "GetUser"}},
	}
}

func partC() *AnalysisResult {
	return &AnalysisResult{
		Components: []ComponentInfo{{ID: "c:comp:1", Name: "Card"}},
		APICalls:   []APICall{{ID: "c:call:1", URL: "/api/a"}},
		Models:     []ModelInfo{{ID: "c:model:1", Name: "UserModel"}},
	}
}

func TestMerge_PreservesInvocationOrder(t *testing.T) {
	merged := Merge(partA(), partB(), nil, partC())

	require.Len(t, merged.APICalls, 3)
	assert.Equal(t, "a:call:1", merged.APICalls[0].ID)
	assert.Equal(t, "b:call:1", merged.APICalls[1].ID)
	assert.Equal(t, "c:call:1", merged.APICalls[2].ID)
	assert.Equal(t, 7, merged.FactCount())
}

func TestMerge_NoDeduplication(t *testing.T) {
	dup := &AnalysisResult{APICalls: []APICall{{ID: "x", URL: "/api/a"}}}
	merged := Merge(dup, dup)
	assert.Len(t, merged.APICalls, 2)
}

func TestMerge_OrderIndependentSetsPerKind(t *testing.T) {
	abc := Merge(partA(), partB(), partC())
	cab := Merge(partC(), partA(), partB())

	sorted := func(r *AnalysisResult) []string {
		ids := r.IDs()
		sort.Strings(ids)
		return ids
	}
	assert.Equal(t, sorted(abc), sorted(cab))
	assert.NotEqual(t, abc.APICalls[0].ID, cab.APICalls[0].ID, "sequence order follows invocation order")
}

func TestNewID(t *testing.T) {
	assert.Equal(t, "apicalls:api-call:src/a.ts:3:7", NewID("apicalls", KindAPICall, "src/a.ts", 3, 7))
	assert.Equal(t, "graphql:graphql-operation:q.graphql:1:0:GetUser", NewID("graphql", KindOperation, "q.graphql", 1, 0, "", "GetUser"))
}

func TestSummarize(t *testing.T) {
	r := sampleResult("web")
	r.APICalls = append(r.APICalls,
		APICall{ID: "x", Category: "Dynamic", Placeholder: true, RequiresAuth: true},
		APICall{ID: "y", Category: "Internal API"},
	)
	r.Operations = append(r.Operations, GraphQLOperation{ID: "m", Type: OpMutation})

	s := Summarize(r)
	assert.Equal(t, 2, s.Pages)
	assert.Equal(t, 1, s.AuthenticatedPages)
	assert.Equal(t, 1, s.PublicPages)
	assert.Equal(t, 3, s.APICalls)
	assert.Equal(t, 1, s.AuthenticatedCalls)
	assert.Equal(t, 1, s.PlaceholderCalls)
	assert.Equal(t, 2, s.CallsByCategory["Internal API"])
	assert.Equal(t, 1, s.Queries)
	assert.Equal(t, 1, s.Mutations)
}

func TestReport_DiagramLookup(t *testing.T) {
	rep := &DocumentationReport{Diagrams: []Diagram{{ID: "navigation-web"}, {ID: "crossrepo"}}}
	require.NotNil(t, rep.Diagram("crossrepo"))
	assert.Nil(t, rep.Diagram("missing"))
}
