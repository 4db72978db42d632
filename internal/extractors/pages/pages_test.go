package pages

import (
	"context"
	"reflect"
	"testing"

	"github.com/dejo1307/frontdoc/internal/config"
	"github.com/dejo1307/frontdoc/internal/extractors/extractortest"
	"github.com/dejo1307/frontdoc/internal/facts"
)

// --- helpers ---

func extractAll(t *testing.T, kind string, files map[string]string) []facts.PageInfo {
	t.Helper()
	repo := extractortest.NewRepo(t, kind, files)
	res, err := New().Extract(context.Background(), repo)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	return res.Pages
}

func findPage(pp []facts.PageInfo, route string) (facts.PageInfo, bool) {
	for _, p := range pp {
		if p.Route == route {
			return p, true
		}
	}
	return facts.PageInfo{}, false
}

// --- Route detection tests ---

func TestDetectRoute_AppRouter(t *testing.T) {
	tests := []struct {
		name       string
		file       string
		wantRoute  string
		wantKind   string
		wantParams []string
	}{
		{"root page", "src/app/page.tsx", "/", "page", nil},
		{"nested page", "app/about/page.tsx", "/about", "page", nil},
		{"dynamic segment", "src/app/users/[id]/page.tsx", "/users/[id]", "page", []string{"id"}},
		{"catch-all", "app/docs/[...slug]/page.jsx", "/docs/[...slug]", "page", []string{"slug"}},
		{"route group", "app/(marketing)/pricing/page.tsx", "/pricing", "page", nil},
		{"layout", "src/app/layout.tsx", "/", "layout", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := detectRoute(tt.file)
			if !ok {
				t.Fatal("expected route, got none")
			}
			if got.route != tt.wantRoute {
				t.Errorf("route = %q, want %q", got.route, tt.wantRoute)
			}
			if got.kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", got.kind, tt.wantKind)
			}
			if got.router != RouterApp {
				t.Errorf("router = %q, want app", got.router)
			}
			if !reflect.DeepEqual(got.params, tt.wantParams) {
				t.Errorf("params = %v, want %v", got.params, tt.wantParams)
			}
		})
	}
}

func TestDetectRoute_PagesRouter(t *testing.T) {
	tests := []struct {
		name      string
		file      string
		wantRoute string
	}{
		{"index page", "pages/index.tsx", "/"},
		{"about page", "pages/about.tsx", "/about"},
		{"dynamic", "src/pages/users/[id].tsx", "/users/[id]"},
		{"nested index", "pages/blog/index.js", "/blog"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := detectRoute(tt.file)
			if !ok {
				t.Fatal("expected route, got none")
			}
			if got.route != tt.wantRoute {
				t.Errorf("route = %q, want %q", got.route, tt.wantRoute)
			}
			if got.router != RouterPages {
				t.Errorf("router = %q, want pages", got.router)
			}
		})
	}
}

func TestDetectRoute_SkipsNonPages(t *testing.T) {
	for _, file := range []string{
		"pages/_app.tsx",
		"pages/_document.tsx",
		"pages/api/hello.ts",
		"app/api/users/route.ts",
		"app/loading.tsx",
		"src/components/Button.tsx",
		"src/features/app/page.tsx",
	} {
		if got, ok := detectRoute(file); ok {
			t.Errorf("detectRoute(%q) should not be a page, got %+v", file, got)
		}
	}
}

// --- Full extraction tests ---

func TestExtract_NextJSPage(t *testing.T) {
	pp := extractAll(t, config.KindNextJS, map[string]string{
		"app/dashboard/page.tsx": `import Link from "next/link";
import { redirect } from "next/navigation";
import { getServerSession } from "next-auth";

export default async function DashboardPage() {
  const session = await getServerSession();
  if (!session) redirect("/login");
  return <Link href="/settings">Settings</Link>;
}`,
		"app/page.tsx": `export default function Home() {
  return <a href="/dashboard">Go</a>;
}`,
	})

	if len(pp) != 2 {
		t.Fatalf("got %d pages, want 2: %+v", len(pp), pp)
	}

	dash, ok := findPage(pp, "/dashboard")
	if !ok {
		t.Fatal("expected /dashboard page")
	}
	if dash.Component != "DashboardPage" {
		t.Errorf("component = %q, want DashboardPage", dash.Component)
	}
	if !dash.RequiresAuth {
		t.Error("dashboard should require auth")
	}
	if !reflect.DeepEqual(dash.Links, []string{"/login", "/settings"}) {
		t.Errorf("links = %v", dash.Links)
	}
	if dash.Line != 5 {
		t.Errorf("line = %d, want 5", dash.Line)
	}

	home, ok := findPage(pp, "/")
	if !ok {
		t.Fatal("expected / page")
	}
	if home.RequiresAuth {
		t.Error("home should be public")
	}
	if !reflect.DeepEqual(home.Links, []string{"/dashboard"}) {
		t.Errorf("links = %v", home.Links)
	}
}

func TestExtract_NextJSLayoutOnlyForNextKind(t *testing.T) {
	files := map[string]string{
		"app/layout.tsx": `export default function RootLayout({ children }) { return <html>{children}</html>; }`,
	}
	if pp := extractAll(t, config.KindReact, files); len(pp) != 0 {
		t.Errorf("react repo should not use file routing, got %+v", pp)
	}
	pp := extractAll(t, config.KindNextJS, files)
	if len(pp) != 1 || pp[0].Kind != KindLayout {
		t.Errorf("expected one layout, got %+v", pp)
	}
}

func TestExtract_ReactRouterJSX(t *testing.T) {
	pp := extractAll(t, config.KindReact, map[string]string{
		"tsconfig.json": `{"compilerOptions": {"baseUrl": ".", "paths": {"@/*": ["src/*"]}}}`,
		"src/App.tsx": `import { Routes, Route } from "react-router-dom";
import Users from "@/pages/Users";
import { RequireAuth } from "./auth";

export function App() {
  return (
    <Routes>
      <Route path="/" element={<Home />} />
      <Route path="/admin" element={<RequireAuth><Layout /></RequireAuth>}>
        <Route path="users" element={<Users />} />
        <Route path="users/:userId" element={<UserDetail />} />
      </Route>
    </Routes>
  );
}

function Home() {
  return <Link to="/admin/users">Users</Link>;
}
`,
		"src/pages/Users.tsx": `export default function Users() {
  const navigate = useNavigate();
  return <button onClick={() => navigate("/admin/users/new")}>New</button>;
}`,
	})

	tests := []struct {
		route     string
		component string
		auth      bool
		links     []string
		params    []string
	}{
		{"/", "Home", false, []string{"/admin/users"}, nil},
		{"/admin", "Layout", true, nil, nil},
		{"/admin/users", "Users", true, []string{"/admin/users/new"}, nil},
		{"/admin/users/:userId", "UserDetail", true, nil, []string{"userId"}},
	}
	if len(pp) != len(tests) {
		t.Fatalf("got %d pages, want %d: %+v", len(pp), len(tests), pp)
	}
	for _, tt := range tests {
		p, ok := findPage(pp, tt.route)
		if !ok {
			t.Errorf("missing page %s", tt.route)
			continue
		}
		if p.Router != RouterReactRouter {
			t.Errorf("%s: router = %q", tt.route, p.Router)
		}
		if p.Component != tt.component {
			t.Errorf("%s: component = %q, want %q", tt.route, p.Component, tt.component)
		}
		if p.RequiresAuth != tt.auth {
			t.Errorf("%s: requires auth = %v, want %v", tt.route, p.RequiresAuth, tt.auth)
		}
		if !reflect.DeepEqual(p.Links, tt.links) {
			t.Errorf("%s: links = %v, want %v", tt.route, p.Links, tt.links)
		}
		if !reflect.DeepEqual(p.Params, tt.params) {
			t.Errorf("%s: params = %v, want %v", tt.route, p.Params, tt.params)
		}
	}
}

func TestExtract_ReactRouterObjects(t *testing.T) {
	pp := extractAll(t, config.KindReact, map[string]string{
		"src/router.jsx": `import { createBrowserRouter } from "react-router-dom";
const Settings = lazy(() => import("./routes/Settings"));

export const router = createBrowserRouter([
  {
    path: "/",
    element: <Root />,
    children: [
      { index: true, element: <Landing /> },
      { path: "settings", element: <Settings /> },
    ],
  },
]);
`,
		"src/routes/Settings.jsx": `export default function Settings() {
  return <NavLink to="/settings/profile">Profile</NavLink>;
}`,
	})

	if len(pp) != 3 {
		t.Fatalf("got %d pages, want 3: %+v", len(pp), pp)
	}
	settings, ok := findPage(pp, "/settings")
	if !ok {
		t.Fatal("expected /settings page")
	}
	if settings.Component != "Settings" {
		t.Errorf("component = %q", settings.Component)
	}
	if !reflect.DeepEqual(settings.Links, []string{"/settings/profile"}) {
		t.Errorf("links = %v, want lazy component links", settings.Links)
	}

	var landing int
	for _, p := range pp {
		if p.Component == "Landing" {
			landing++
			if p.Route != "/" {
				t.Errorf("index route = %q, want /", p.Route)
			}
		}
	}
	if landing != 1 {
		t.Errorf("expected one index page, got %d", landing)
	}
}

func TestExtract_IDsUnique(t *testing.T) {
	pp := extractAll(t, config.KindNextJS, map[string]string{
		"app/page.tsx":       `export default function A() { return null }`,
		"app/layout.tsx":     `export default function L() { return null }`,
		"app/about/page.tsx": `export default function B() { return null }`,
	})
	seen := map[string]bool{}
	for _, p := range pp {
		if seen[p.ID] {
			t.Errorf("duplicate id %s", p.ID)
		}
		seen[p.ID] = true
	}
}

func TestSupports(t *testing.T) {
	e := New()
	if !e.Supports(config.KindNextJS) || !e.Supports(config.KindReact) {
		t.Error("pages should support nextjs and react")
	}
	if e.Supports(config.KindNodeAPI) || e.Supports(config.KindGoAPI) {
		t.Error("pages should not support API repositories")
	}
}
