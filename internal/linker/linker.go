// Package linker correlates facts across independently analyzed repositories.
package linker

import (
	"fmt"

	"github.com/dejo1307/frontdoc/internal/facts"
)

// Link returns the cross-repository analysis of results, which must be in
// report order. Ties are broken by that order, never alphabetically.
func Link(results []*facts.AnalysisResult) facts.CrossRepoAnalysis {
	var out facts.CrossRepoAnalysis
	linkOperations(results, &out)
	linkEndpoints(results, &out)
	return out
}

// linkOperations groups GraphQL operations by name. A name seen in more than
// one repository becomes a shared type and a link between the first two
// repositories that declared it.
func linkOperations(results []*facts.AnalysisResult, out *facts.CrossRepoAnalysis) {
	var names []string
	repos := make(map[string][]string)
	for _, r := range results {
		if r == nil {
			continue
		}
		for _, op := range r.Operations {
			if op.Name == "" {
				continue
			}
			seen := repos[op.Name]
			if contains(seen, r.Repository) {
				continue
			}
			if len(seen) == 0 {
				names = append(names, op.Name)
			}
			repos[op.Name] = append(seen, r.Repository)
		}
	}

	for _, name := range names {
		rs := repos[name]
		if len(rs) < 2 {
			continue
		}
		out.SharedTypes = append(out.SharedTypes, name)
		out.Links = append(out.Links, facts.CrossRepoLink{
			Type:        facts.LinkGraphQLOperation,
			From:        rs[0],
			To:          rs[1],
			Subject:     name,
			Description: fmt.Sprintf("GraphQL operation %s is declared in both %s and %s", name, rs[0], rs[1]),
		})
	}
}

// linkEndpoints connects every repository with pages to every other
// repository with endpoints, one connection per declared endpoint.
func linkEndpoints(results []*facts.AnalysisResult, out *facts.CrossRepoAnalysis) {
	var frontends, backends []*facts.AnalysisResult
	for _, r := range results {
		if r == nil {
			continue
		}
		if len(r.Pages) > 0 {
			frontends = append(frontends, r)
		}
		if len(r.Endpoints) > 0 {
			backends = append(backends, r)
		}
	}

	for _, fe := range frontends {
		for _, be := range backends {
			if fe.Repository == be.Repository {
				continue
			}
			for _, ep := range be.Endpoints {
				out.Connections = append(out.Connections, facts.EndpointConnection{
					Frontend: fe.Repository,
					Backend:  be.Repository,
					Method:   ep.Method,
					Path:     ep.Path,
				})
			}
			out.Links = append(out.Links, facts.CrossRepoLink{
				Type:        facts.LinkEndpoint,
				From:        fe.Repository,
				To:          be.Repository,
				Subject:     fmt.Sprintf("%d endpoints", len(be.Endpoints)),
				Description: fmt.Sprintf("%s pages may call the %d endpoints declared by %s", fe.Repository, len(be.Endpoints), be.Repository),
			})
		}
	}
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
