package pages

import (
	"path"
	"strings"
)

// Router names.
const (
	RouterApp         = "app"
	RouterPages       = "pages"
	RouterReactRouter = "react-router"
)

// Page kinds.
const (
	KindPage   = "page"
	KindLayout = "layout"
)

// fileRoute is a route derived from a file's location in a Next.js project.
type fileRoute struct {
	route  string
	router string
	kind   string
	params []string
}

// detectRoute checks if a file path corresponds to a Next.js page or layout.
// API handlers (app/**/route.*, pages/api/**) are endpoints, not pages.
func detectRoute(relFile string) (fileRoute, bool) {
	parts := strings.Split(relFile, "/")
	fileName := parts[len(parts)-1]
	baseName := strings.TrimSuffix(fileName, path.Ext(fileName))

	// App Router: app/**/page.tsx, app/**/layout.tsx
	for i, p := range parts[:len(parts)-1] {
		if p != "app" || !routerRoot(parts[:i]) {
			continue
		}
		if baseName != "page" && baseName != "layout" {
			return fileRoute{}, false
		}
		var segs []string
		for _, s := range parts[i+1 : len(parts)-1] {
			// Route groups and parallel route slots do not appear in the URL.
			if isRouteGroup(s) || strings.HasPrefix(s, "@") || strings.HasPrefix(s, "_") {
				continue
			}
			segs = append(segs, s)
		}
		return fileRoute{
			route:  "/" + strings.Join(segs, "/"),
			router: RouterApp,
			kind:   baseName,
			params: dynamicParams(segs),
		}, true
	}

	// Pages Router: pages/**/*.tsx
	for i, p := range parts[:len(parts)-1] {
		if p != "pages" || !routerRoot(parts[:i]) {
			continue
		}
		remaining := parts[i+1:]
		// Skip _app, _document, _error
		if strings.HasPrefix(baseName, "_") {
			return fileRoute{}, false
		}
		if len(remaining) > 1 && remaining[0] == "api" {
			return fileRoute{}, false
		}

		segs := append([]string(nil), remaining[:len(remaining)-1]...)
		if baseName != "index" {
			segs = append(segs, baseName)
		}
		return fileRoute{
			route:  "/" + strings.Join(segs, "/"),
			router: RouterPages,
			kind:   KindPage,
			params: dynamicParams(segs),
		}, true
	}

	return fileRoute{}, false
}

// routerRoot reports whether the directories leading to an app/ or pages/
// directory allow it to be a Next.js router root (the repository root or src/).
func routerRoot(prefix []string) bool {
	return len(prefix) == 0 || (len(prefix) == 1 && prefix[0] == "src")
}

func isRouteGroup(seg string) bool {
	return strings.HasPrefix(seg, "(") && strings.HasSuffix(seg, ")")
}

// dynamicParams returns the parameter names of [id], [...slug] and
// [[...slug]] segments.
func dynamicParams(segs []string) []string {
	var params []string
	for _, s := range segs {
		if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
			continue
		}
		name := strings.Trim(s, "[]")
		name = strings.TrimPrefix(name, "...")
		if name != "" {
			params = append(params, name)
		}
	}
	return params
}

// routerParams returns the parameter names of a react-router path.
func routerParams(route string) []string {
	var params []string
	for _, s := range strings.Split(route, "/") {
		switch {
		case strings.HasPrefix(s, ":"):
			params = append(params, strings.TrimSuffix(strings.TrimPrefix(s, ":"), "?"))
		case s == "*":
			params = append(params, "*")
		}
	}
	return params
}

// joinRoute resolves a nested react-router path against its parent.
func joinRoute(parent, child string) string {
	if strings.HasPrefix(child, "/") || parent == "" {
		return child
	}
	if child == "" {
		return parent
	}
	return strings.TrimSuffix(parent, "/") + "/" + child
}
