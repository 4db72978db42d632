package apicalls

import "strings"

// Categories assigned to API calls.
const (
	CategoryGraphQL       = "GraphQL"
	CategoryInternalAPI   = "Internal API"
	CategoryExternalAPI   = "External API"
	CategoryInternalRoute = "Internal Route"
	CategoryDynamic       = "Dynamic"
	CategoryUnclassified  = "Unclassified"
)

// provider is a known third-party service recognized by its host.
type provider struct {
	host     string
	category string
}

// providers are matched before any generic rule.
var providers = []provider{
	{"api.stripe.com", "Stripe"},
	{"stripe.com", "Stripe"},
	{"api.github.com", "GitHub"},
	{"github.com", "GitHub"},
	{"firebaseio.com", "Firebase"},
	{"firebase.googleapis.com", "Firebase"},
	{"identitytoolkit.googleapis.com", "Firebase"},
	{"supabase.co", "Supabase"},
	{"auth0.com", "Auth0"},
	{"googleapis.com", "Google APIs"},
	{"sentry.io", "Sentry"},
}

// rule is one row of the classification table.
type rule struct {
	category string
	match    func(url string, placeholder bool) bool
}

// rules are evaluated in order; the first match wins, so more specific
// signatures come first.
var rules = []rule{
	{CategoryDynamic, func(_ string, placeholder bool) bool {
		return placeholder
	}},
	{CategoryGraphQL, func(u string, _ bool) bool {
		return strings.Contains(pathOf(u), "/graphql")
	}},
	{CategoryInternalAPI, func(u string, _ bool) bool {
		if isAbsolute(u) {
			return false
		}
		return u == "/api" || strings.HasPrefix(u, "/api?") || strings.Contains(u, "/api/")
	}},
	{CategoryExternalAPI, func(u string, _ bool) bool {
		return isAbsolute(u)
	}},
	{CategoryInternalRoute, func(u string, _ bool) bool {
		return strings.HasPrefix(u, "/")
	}},
}

// Classify assigns a category to a URL or URL pattern. Placeholder URLs are
// never classified as concrete endpoints unless they name a known provider.
func Classify(url string, placeholder bool) string {
	lower := strings.ToLower(url)
	if host := hostOf(lower); host != "" {
		for _, p := range providers {
			if host == p.host || strings.HasSuffix(host, "."+p.host) {
				return p.category
			}
		}
	}
	for _, r := range rules {
		if r.match(lower, placeholder) {
			return r.category
		}
	}
	return CategoryUnclassified
}

func isAbsolute(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") || strings.Contains(u, " http://") || strings.Contains(u, " https://")
}

// hostOf returns the host of the first absolute URL in u without userinfo
// or port, or "".
func hostOf(u string) string {
	i := strings.Index(u, "://")
	if i < 0 {
		return ""
	}
	rest := u[i+3:]
	if j := strings.IndexAny(rest, "/?#"); j >= 0 {
		rest = rest[:j]
	}
	if j := strings.LastIndex(rest, "@"); j >= 0 {
		rest = rest[j+1:]
	}
	if j := strings.LastIndex(rest, ":"); j >= 0 {
		rest = rest[:j]
	}
	return rest
}

// pathOf strips the scheme and host from an absolute URL.
func pathOf(u string) string {
	i := strings.Index(u, "://")
	if i < 0 {
		return u
	}
	rest := u[i+3:]
	if j := strings.Index(rest, "/"); j >= 0 {
		return rest[j:]
	}
	return ""
}
