package endpoints

import (
	"context"
	"testing"

	"github.com/dejo1307/frontdoc/internal/config"
	"github.com/dejo1307/frontdoc/internal/extractors/extractortest"
	"github.com/dejo1307/frontdoc/internal/facts"
)

// --- helpers ---

func extractAll(t *testing.T, kind string, files map[string]string) []facts.APIEndpoint {
	t.Helper()
	repo := extractortest.NewRepo(t, kind, files)
	res, err := New().Extract(context.Background(), repo)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	return res.Endpoints
}

func findEndpoint(eps []facts.APIEndpoint, method, path string) (facts.APIEndpoint, bool) {
	for _, e := range eps {
		if e.Method == method && e.Path == path {
			return e, true
		}
	}
	return facts.APIEndpoint{}, false
}

func TestGoRoutes_GorillaMux_HandleFuncWithMethods(t *testing.T) {
	eps := extractAll(t, config.KindGoAPI, map[string]string{
		"internal/server/routes.go": `package server

import (
	"net/http"
	"github.com/gorilla/mux"
)

func SetupRoutes() {
	router := mux.NewRouter()
	router.HandleFunc("/api/users", GetUsers).Methods("GET")
	router.HandleFunc("/api/users", CreateUser).Methods("POST")
	router.HandleFunc("/api/users/{id}", GetUser).Methods("GET", "HEAD")
	_ = router
}

func GetUsers(w http.ResponseWriter, r *http.Request)   {}
func CreateUser(w http.ResponseWriter, r *http.Request) {}
func GetUser(w http.ResponseWriter, r *http.Request)    {}
`,
	})

	if len(eps) != 4 {
		t.Fatalf("expected 4 endpoints, got %d: %+v", len(eps), eps)
	}

	e, ok := findEndpoint(eps, "GET", "/api/users")
	if !ok {
		t.Fatal("expected endpoint for GET /api/users")
	}
	if e.Handler != "GetUsers" {
		t.Errorf("handler = %q, want GetUsers", e.Handler)
	}
	if e.Framework != FrameworkGorilla {
		t.Errorf("framework = %q, want %s", e.Framework, FrameworkGorilla)
	}
	if e.Line != 10 {
		t.Errorf("line = %d, want 10", e.Line)
	}

	get, ok1 := findEndpoint(eps, "GET", "/api/users/{id}")
	head, ok2 := findEndpoint(eps, "HEAD", "/api/users/{id}")
	if !ok1 || !ok2 {
		t.Fatal("expected one endpoint per method of /api/users/{id}")
	}
	if get.ID == head.ID {
		t.Errorf("methods at one registration share ID %s", get.ID)
	}
}

func TestGoRoutes_GorillaMux_Subrouter(t *testing.T) {
	eps := extractAll(t, config.KindGoAPI, map[string]string{
		"internal/server/routes.go": `package server

import (
	"github.com/gorilla/mux"
)

func SetupRoutes() {
	router := mux.NewRouter()
	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.HandleFunc("/users", GetUsers).Methods("GET")

	settingsRouter := apiRouter.PathPrefix("/settings").Subrouter()
	settingsRouter.HandleFunc("/profile", GetProfile).Methods("GET")
	router.HandleFunc("/health", Health)
}
`,
	})

	if _, ok := findEndpoint(eps, "GET", "/api/users"); !ok {
		t.Error("expected endpoint for GET /api/users (with prefix)")
	}
	if _, ok := findEndpoint(eps, "GET", "/api/settings/profile"); !ok {
		t.Error("expected endpoint for GET /api/settings/profile (nested subrouter)")
	}
	if _, ok := findEndpoint(eps, MethodAll, "/health"); !ok {
		t.Error("expected ALL /health for HandleFunc without Methods")
	}
}

func TestGoRoutes_GorillaMux_AuthMiddleware(t *testing.T) {
	eps := extractAll(t, config.KindGoAPI, map[string]string{
		"internal/server/routes.go": `package server

import "github.com/gorilla/mux"

func SetupRoutes(m *Middleware) {
	router := mux.NewRouter()
	router.HandleFunc("/login", Login).Methods("POST")

	private := router.PathPrefix("/api").Subrouter()
	private.Use(m.RequireAuth)
	private.HandleFunc("/me", Me).Methods("GET")

	admin := private.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/stats", Stats).Methods("GET")

	router.Use(loggingMiddleware)
	router.HandleFunc("/public", Public).Methods("GET")
}
`,
	})

	tests := []struct {
		method, path string
		auth         bool
	}{
		{"POST", "/login", false},
		{"GET", "/api/me", true},
		{"GET", "/api/admin/stats", true},
		{"GET", "/public", false},
	}
	for _, tt := range tests {
		e, ok := findEndpoint(eps, tt.method, tt.path)
		if !ok {
			t.Errorf("missing %s %s", tt.method, tt.path)
			continue
		}
		if e.RequiresAuth != tt.auth {
			t.Errorf("%s %s: RequiresAuth = %v, want %v", tt.method, tt.path, e.RequiresAuth, tt.auth)
		}
	}
}

func TestGoRoutes_Chi(t *testing.T) {
	eps := extractAll(t, config.KindGoAPI, map[string]string{
		"cmd/server/main.go": `package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func main() {
	r := chi.NewRouter()
	r.Get("/api/users", GetUsers)
	r.Post("/api/users", CreateUser)
	r.Delete("/api/users/{id}", DeleteUser)
	r.Method("PUT", "/api/users/{id}", UpdateUser)

	r.Route("/api/orders", func(r chi.Router) {
		r.Use(jwtauth.Authenticator)
		r.Get("/", ListOrders)
		r.Get("/{orderID}", GetOrder)
	})

	r.Group(func(g chi.Router) {
		g.Get("/status", Status)
	})

	r.With(RequireAuth).Get("/account", Account)

	http.ListenAndServe(":8080", r)
}
`,
	})

	tests := []struct {
		method, path, handler string
		auth                  bool
	}{
		{"GET", "/api/users", "GetUsers", false},
		{"POST", "/api/users", "CreateUser", false},
		{"DELETE", "/api/users/{id}", "DeleteUser", false},
		{"PUT", "/api/users/{id}", "UpdateUser", false},
		{"GET", "/api/orders", "ListOrders", true},
		{"GET", "/api/orders/{orderID}", "GetOrder", true},
		{"GET", "/status", "Status", false},
		{"GET", "/account", "Account", true},
	}
	if len(eps) != len(tests) {
		t.Errorf("expected %d endpoints, got %d: %+v", len(tests), len(eps), eps)
	}
	for _, tt := range tests {
		e, ok := findEndpoint(eps, tt.method, tt.path)
		if !ok {
			t.Errorf("missing %s %s", tt.method, tt.path)
			continue
		}
		if e.Handler != tt.handler {
			t.Errorf("%s %s: handler = %q, want %q", tt.method, tt.path, e.Handler, tt.handler)
		}
		if e.RequiresAuth != tt.auth {
			t.Errorf("%s %s: RequiresAuth = %v, want %v", tt.method, tt.path, e.RequiresAuth, tt.auth)
		}
		if e.Framework != FrameworkChi {
			t.Errorf("framework = %q, want chi", e.Framework)
		}
	}
}

func TestGoRoutes_NetHTTP(t *testing.T) {
	eps := extractAll(t, config.KindGoAPI, map[string]string{
		"cmd/main.go": `package main

import "net/http"

func main() {
	http.HandleFunc("/health", healthHandler)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/{id}", h.GetUser)
	mux.Handle("POST api.example.com/users", requireAuth(http.HandlerFunc(h.CreateUser)))
}
`,
	})

	if e, ok := findEndpoint(eps, MethodAll, "/health"); !ok || e.Framework != FrameworkNetHTTP {
		t.Errorf("expected net/http endpoint for /health, got %+v", eps)
	}
	if e, ok := findEndpoint(eps, "GET", "/users/{id}"); !ok || e.Handler != "h.GetUser" {
		t.Errorf("expected GET /users/{id} handled by h.GetUser, got %+v", e)
	}
	e, ok := findEndpoint(eps, "POST", "/users")
	if !ok {
		t.Fatal("expected POST /users with the host qualifier dropped")
	}
	if e.Handler != "h.CreateUser" || !e.RequiresAuth {
		t.Errorf("wrapped handler = %q auth=%v, want h.CreateUser auth=true", e.Handler, e.RequiresAuth)
	}
}

func TestGoRoutes_NoRoutes(t *testing.T) {
	eps := extractAll(t, config.KindGoAPI, map[string]string{
		"pkg/util.go": `package util

func Add(a, b int) int {
	return a + b
}
`,
		"pkg/util_test.go": `package util

import "net/http"

func TestX() { http.HandleFunc("/test-only", nil) }
`,
	})
	if len(eps) != 0 {
		t.Errorf("expected 0 endpoints, got %d: %+v", len(eps), eps)
	}
}

func TestGoRoutes_ConditionalRegistration(t *testing.T) {
	eps := extractAll(t, config.KindGoAPI, map[string]string{
		"internal/server/routes.go": `package server

import "github.com/gorilla/mux"

func SetupRoutes(h *Handler, beta bool) {
	router := mux.NewRouter()
	if h != nil {
		router.HandleFunc("/api/feature", h.GetFeature).Methods("GET")
	} else if beta {
		router.HandleFunc("/api/beta", h.Beta).Methods("GET")
	} else {
		router.HandleFunc("/api/legacy", h.Legacy).Methods("GET")
	}
}
`,
	})

	for _, p := range []string{"/api/feature", "/api/beta", "/api/legacy"} {
		if _, ok := findEndpoint(eps, "GET", p); !ok {
			t.Errorf("expected GET %s inside if/else blocks", p)
		}
	}
}

func TestGoRoutes_UnparseableFileIsSkipped(t *testing.T) {
	eps := extractAll(t, config.KindGoAPI, map[string]string{
		"broken.go": "package main\n\nfunc {",
		"ok.go": `package main

import "net/http"

func main() { http.HandleFunc("/ok", ok) }
`,
	})
	if len(eps) != 1 || eps[0].Path != "/ok" {
		t.Errorf("expected only /ok, got %+v", eps)
	}
}

func TestSplitPattern(t *testing.T) {
	tests := []struct {
		in, method, path string
	}{
		{"/users", MethodAll, "/users"},
		{"GET /users/{id}", "GET", "/users/{id}"},
		{"post example.com/x", "POST", "/x"},
		{"example.com/", MethodAll, "/"},
	}
	for _, tt := range tests {
		m, p := splitPattern(tt.in)
		if m != tt.method || p != tt.path {
			t.Errorf("splitPattern(%q) = %q, %q; want %q, %q", tt.in, m, p, tt.method, tt.path)
		}
	}
}
