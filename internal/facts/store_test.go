package facts

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"
)

// --- helpers ---

func sampleResult(repo string) *AnalysisResult {
	return &AnalysisResult{
		Repository: repo,
		Pages: []PageInfo{
			{ID: "pages:page:app/page.tsx:1:0", Route: "/", File: "app/page.tsx", Line: 1, Router: "app", Kind: "page"},
			{ID: "pages:page:app/admin/page.tsx:1:0", Route: "/admin", File: "app/admin/page.tsx", Line: 1, Router: "app", Kind: "page", RequiresAuth: true},
		},
		APICalls: []APICall{
			{ID: "apicalls:api-call:lib/api.ts:4:9", Method: "GET", URL: "/api/users", File: "lib/api.ts", Line: 4, Category: "Internal API"},
		},
		Operations: []GraphQLOperation{
			{ID: "graphql:graphql-operation:gql/user.ts:3:2:GetUser", Name: "GetUser", Type: OpQuery, File: "gql/user.ts", Line: 3},
		},
		Components: []ComponentInfo{
			{ID: "components:component:components/UserCard.tsx:5:0", Name: "UserCard", File: "components/UserCard.tsx", Line: 5, Exported: true},
		},
	}
}

// --- tests ---

func TestEntries_FlattensAllKinds(t *testing.T) {
	ee := Entries(sampleResult("web"))
	if len(ee) != 5 {
		t.Fatalf("Entries returned %d, want 5", len(ee))
	}
	for _, e := range ee {
		if e.Repo != "web" {
			t.Errorf("entry %s has repo %q, want web", e.ID, e.Repo)
		}
	}
	if ee[2].Name != "GET /api/users" {
		t.Errorf("api call entry name = %q", ee[2].Name)
	}
}

func TestAdd_IndexesAllMaps(t *testing.T) {
	s := NewStore()
	s.Add(Entry{Kind: KindComponent, ID: "c1", Name: "UserCard", Repo: "web", File: "components/UserCard.tsx"})

	if got := s.ByKind(KindComponent); len(got) != 1 || got[0].Name != "UserCard" {
		t.Errorf("ByKind = %v", got)
	}
	if got := s.ByFile("components/UserCard.tsx"); len(got) != 1 {
		t.Errorf("ByFile = %v", got)
	}
	if got := s.ByName("UserCard"); len(got) != 1 {
		t.Errorf("ByName = %v", got)
	}
	if got := s.ByRepo("web"); len(got) != 1 {
		t.Errorf("ByRepo = %v", got)
	}
}

func TestAdd_EmptyFileAndNameNotIndexed(t *testing.T) {
	s := NewStore()
	s.Add(Entry{Kind: KindModel})

	if got := s.ByKind(KindModel); len(got) != 1 {
		t.Fatalf("ByKind(model) = %d entries, want 1", len(got))
	}
	if got := s.ByFile(""); len(got) != 0 {
		t.Errorf("ByFile('') = %d entries, want 0", len(got))
	}
	if got := s.ByName(""); len(got) != 0 {
		t.Errorf("ByName('') = %d entries, want 0", len(got))
	}
}

func TestQuery_Filters(t *testing.T) {
	s := NewStore()
	s.Add(Entries(sampleResult("web"))...)
	s.Add(Entries(sampleResult("admin"))...)

	tests := []struct {
		name string
		opts QueryOpts
		want int
	}{
		{"everything", QueryOpts{}, 10},
		{"by kind", QueryOpts{Kind: KindPage}, 4},
		{"by repo", QueryOpts{Repo: "admin"}, 5},
		{"kind and repo", QueryOpts{Kind: KindPage, Repo: "web"}, 2},
		{"name substring case-insensitive", QueryOpts{Name: "getuser"}, 2},
		{"file prefix", QueryOpts{FilePrefix: "app/"}, 4},
		{"exact file", QueryOpts{File: "lib/api.ts"}, 2},
		{"prop", QueryOpts{Kind: KindPage, Prop: "requires_auth", PropValue: "true"}, 2},
		{"prop without value", QueryOpts{Prop: "category"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, total := s.Query(tt.opts)
			if total != tt.want {
				t.Errorf("Query(%+v) total = %d, want %d", tt.opts, total, tt.want)
			}
		})
	}
}

func TestQuery_Pagination(t *testing.T) {
	s := NewStore()
	for i := 0; i < 20; i++ {
		s.Add(Entry{Kind: KindComponent, ID: fmt.Sprintf("c%d", i), Name: fmt.Sprintf("C%d", i)})
	}

	page, total := s.Query(QueryOpts{Offset: 5, Limit: 10})
	if total != 20 {
		t.Errorf("total = %d, want 20", total)
	}
	if len(page) != 10 || page[0].Name != "C5" {
		t.Errorf("page = %d entries starting at %v", len(page), page[0].Name)
	}

	page, _ = s.Query(QueryOpts{Offset: 50})
	if page != nil {
		t.Errorf("offset past end returned %d entries", len(page))
	}
}

func TestQuery_LimitClamping(t *testing.T) {
	s := NewStore()
	for i := 0; i < 600; i++ {
		s.Add(Entry{Kind: KindComponent, ID: fmt.Sprintf("c%d", i)})
	}
	if got, _ := s.Query(QueryOpts{}); len(got) != 100 {
		t.Errorf("default limit returned %d, want 100", len(got))
	}
	if got, _ := s.Query(QueryOpts{Limit: 1000}); len(got) != 500 {
		t.Errorf("clamped limit returned %d, want 500", len(got))
	}
}

func TestLoadReport_ReplacesContents(t *testing.T) {
	s := NewStore()
	s.Add(Entry{Kind: KindModel, ID: "stale", Name: "Stale"})
	s.LoadReport(&DocumentationReport{Repositories: []RepositoryReport{{Result: sampleResult("web")}, {Result: nil}}})
	if s.Count() != 5 {
		t.Errorf("Count = %d, want 5", s.Count())
	}
	if got := s.ByName("Stale"); len(got) != 0 {
		t.Error("stale entry survived LoadReport")
	}
}

func TestNames_DistinctInOrder(t *testing.T) {
	s := NewStore()
	s.Add(Entry{Name: "b"}, Entry{Name: "a"}, Entry{Name: "b"}, Entry{})
	got := strings.Join(s.Names(), ",")
	if got != "b,a" {
		t.Errorf("Names = %q, want b,a", got)
	}
}

func TestJSONL_RoundTrip(t *testing.T) {
	s := NewStore()
	s.Add(Entries(sampleResult("web"))...)

	var buf bytes.Buffer
	if err := s.WriteJSONL(&buf); err != nil {
		t.Fatalf("WriteJSONL: %v", err)
	}
	if lines := strings.Count(buf.String(), "\n"); lines != 5 {
		t.Errorf("wrote %d lines, want 5", lines)
	}

	s2 := NewStore()
	if err := s2.ReadJSONL(&buf); err != nil {
		t.Fatalf("ReadJSONL: %v", err)
	}
	if s2.Count() != 5 {
		t.Errorf("round trip count = %d, want 5", s2.Count())
	}
	if got := s2.ByKind(KindOperation); len(got) != 1 || got[0].Props["type"] != OpQuery {
		t.Errorf("operation entry after round trip = %v", got)
	}
}

func TestJSONL_SkipsEmptyLines(t *testing.T) {
	s := NewStore()
	input := "{\"kind\":\"page\",\"id\":\"p1\",\"name\":\"/\"}\n\n\n{\"kind\":\"page\",\"id\":\"p2\",\"name\":\"/a\"}\n"
	if err := s.ReadJSONL(strings.NewReader(input)); err != nil {
		t.Fatalf("ReadJSONL: %v", err)
	}
	if s.Count() != 2 {
		t.Errorf("Count = %d, want 2", s.Count())
	}
}

func TestClear_ResetsIndexes(t *testing.T) {
	s := NewStore()
	s.Add(Entries(sampleResult("web"))...)
	s.Clear()
	if s.Count() != 0 || len(s.ByKind(KindPage)) != 0 || len(s.ByRepo("web")) != 0 {
		t.Error("Clear did not reset the store")
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			s.Add(Entry{Kind: KindComponent, ID: fmt.Sprintf("c%d", i), Name: fmt.Sprintf("C%d", i)})
		}(i)
		go func() {
			defer wg.Done()
			_, _ = s.Query(QueryOpts{Kind: KindComponent})
		}()
	}
	wg.Wait()
	if s.Count() != 10 {
		t.Errorf("Count = %d, want 10", s.Count())
	}
}
