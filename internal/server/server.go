package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/agext/levenshtein"
	"github.com/dejo1307/frontdoc/internal/config"
	"github.com/dejo1307/frontdoc/internal/engine"
	"github.com/dejo1307/frontdoc/internal/facts"
	"github.com/dejo1307/frontdoc/internal/netutil"
	"github.com/dejo1307/frontdoc/internal/renderers/markdown"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// portAttempts bounds how many ports RunHTTP probes after the requested one.
const portAttempts = 20

// Server wraps the MCP server and connects it to the documentation engine.
type Server struct {
	mcp *mcp.Server
	eng *engine.Engine
	cfg *config.Config
}

// New creates a new MCP server wired to the given engine.
func New(eng *engine.Engine, cfg *config.Config) (*Server, error) {
	if eng == nil {
		return nil, errors.New("server: nil engine")
	}
	if cfg == nil {
		cfg = eng.Config()
	}
	s := &Server{
		eng: eng,
		cfg: cfg,
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "frontdoc",
		Version: "0.1.0",
	}, nil)
	s.registerResources()
	s.registerTools()

	return s, nil
}

// Run starts the MCP server on the stdio transport.
func (s *Server) Run(ctx context.Context) error {
	log.Println("[server] starting MCP server on stdio transport")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns a streamable HTTP handler serving this MCP server.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcp
	}, nil)
}

// RunHTTP serves the MCP server over streamable HTTP on the first free port
// at or after port. It returns when ctx is cancelled or the listener fails.
func (s *Server) RunHTTP(ctx context.Context, host string, port int) error {
	ln, err := netutil.ListenAvailable(host, port, portAttempts)
	if err != nil {
		return err
	}
	return s.serveHTTP(ctx, ln, port)
}

// serveHTTP serves on an already bound listener until ctx is cancelled.
func (s *Server) serveHTTP(ctx context.Context, ln net.Listener, requested int) error {
	if bound := netutil.Port(ln); bound != requested {
		log.Printf("[server] port %d is busy, using %d", requested, bound)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[server] starting MCP server on http://%s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Println("[server] shutting down HTTP transport")
		return srv.Shutdown(shutdownCtx)
	}
}

// registerResources adds MCP resources for the generated report.
func (s *Server) registerResources() {
	s.mcp.AddResource(&mcp.Resource{
		URI:         "frontdoc://report",
		Name:        "Documentation Report",
		Description: "The full documentation report of the last run as JSON",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		content, err := s.eng.GetArtifact(engine.ReportFile)
		if err != nil {
			return nil, fmt.Errorf("no report available: %w (run generate_report first)", err)
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{URI: req.Params.URI, Text: string(content), MIMEType: "application/json"},
			},
		}, nil
	})

	s.mcp.AddResource(&mcp.Resource{
		URI:         "frontdoc://summary",
		Name:        "Report Summary",
		Description: "Per-repository counts and cross-repository links of the last run",
		MIMEType:    "text/markdown",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		report := s.eng.Report()
		if report == nil {
			return nil, fmt.Errorf("no report available: %w (run generate_report first)", engine.ErrNoReport)
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{URI: req.Params.URI, Text: summaryText(report), MIMEType: "text/markdown"},
			},
		}, nil
	})
}

type generateReportArgs struct {
	Write *bool `json:"write,omitempty" jsonschema:"Write artifacts to the configured output directory (default true)"`
}

type queryFactsArgs struct {
	Kind       string `json:"kind,omitempty" jsonschema:"Filter by fact kind: page, api-call, graphql-operation, component, data-flow, api-endpoint, or model"`
	Repo       string `json:"repo,omitempty" jsonschema:"Filter by repository name"`
	File       string `json:"file,omitempty" jsonschema:"Filter by exact repository-relative file path"`
	FilePrefix string `json:"file_prefix,omitempty" jsonschema:"Filter by file path prefix (e.g. src/app/)"`
	Name       string `json:"name,omitempty" jsonschema:"Filter by name using case-insensitive substring match"`
	Prop       string `json:"prop,omitempty" jsonschema:"Filter by property name (e.g. category, router, framework)"`
	PropValue  string `json:"prop_value,omitempty" jsonschema:"Filter by property value (requires prop to be set)"`
	Offset     int    `json:"offset,omitempty" jsonschema:"Number of results to skip"`
	Limit      int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default 100, max 500)"`
}

type getDiagramArgs struct {
	ID string `json:"id" jsonschema:"Diagram id, e.g. web/navigation or crossrepo"`
}

type showSourceArgs struct {
	Name         string `json:"name,omitempty" jsonschema:"Exact fact name to look up (e.g. a component, operation or model name)"`
	Repo         string `json:"repo,omitempty" jsonschema:"Repository name (required with file, optional filter with name)"`
	File         string `json:"file,omitempty" jsonschema:"Repository-relative file path"`
	Line         int    `json:"line,omitempty" jsonschema:"Line to center on (default 1)"`
	ContextLines int    `json:"context_lines,omitempty" jsonschema:"Number of source lines to show around the line (default 30)"`
}

// registerTools adds MCP tools for report generation and querying.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "generate_report",
		Description: "Analyze every configured repository, link them, synthesize diagrams and render the documentation. Returns a summary of the run.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args generateReportArgs) (*mcp.CallToolResult, any, error) {
		report, err := s.eng.Generate(ctx)
		if err != nil {
			return errorResult(fmt.Sprintf("report generation failed: %v", err)), nil, nil
		}

		if args.Write == nil || *args.Write {
			if err := s.eng.WriteArtifacts(); err != nil {
				log.Printf("[server] warning: failed to write artifacts: %v", err)
			}
		}

		text := fmt.Sprintf("Report %s generated in %s.\n\n%s\nRead frontdoc://report for the full JSON.",
			report.RunID, report.Duration, summaryText(report))
		return textResult(text), nil, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "query_facts",
		Description: "Query extracted facts by kind, repository, file, name or property. Returns matching facts as JSON.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args queryFactsArgs) (*mcp.CallToolResult, any, error) {
		store := s.eng.Store()
		if store.Count() == 0 {
			return errorResult("No facts available. Run generate_report first."), nil, nil
		}

		results, total := store.Query(facts.QueryOpts{
			Kind:       args.Kind,
			Repo:       args.Repo,
			File:       args.File,
			FilePrefix: args.FilePrefix,
			Name:       args.Name,
			Prop:       args.Prop,
			PropValue:  args.PropValue,
			Offset:     args.Offset,
			Limit:      args.Limit,
		})

		if total == 0 && args.Repo != "" && len(store.ByRepo(args.Repo)) == 0 {
			return errorResult(fmt.Sprintf("Unknown repository %q. Known repositories: %s", args.Repo, strings.Join(s.repositoryNames(), ", "))), nil, nil
		}
		if total == 0 && args.Kind != "" && len(store.ByKind(args.Kind)) == 0 {
			return errorResult(fmt.Sprintf("No facts of kind %q. Known kinds: %s", args.Kind, strings.Join(factKinds, ", "))), nil, nil
		}
		if total == 0 && args.Name != "" {
			text := fmt.Sprintf("No facts matching name %q.", args.Name)
			if sugg := suggestNames(store.Names(), args.Name, 5); len(sugg) > 0 {
				text += "\n\nDid you mean:\n- " + strings.Join(sugg, "\n- ")
			}
			return textResult(text), nil, nil
		}

		text, err := formatEntries(results, total, args.Offset)
		if err != nil {
			return errorResult(fmt.Sprintf("failed to marshal results: %v", err)), nil, nil
		}
		return textResult(text), nil, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_diagram",
		Description: "Return one synthesized diagram by id as JSON together with its mermaid rendering.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args getDiagramArgs) (*mcp.CallToolResult, any, error) {
		report := s.eng.Report()
		if report == nil {
			return errorResult("No report available. Run generate_report first."), nil, nil
		}
		if args.ID == "" {
			return errorResult("id is required. Available diagrams: " + strings.Join(diagramIDs(report), ", ")), nil, nil
		}
		d := report.Diagram(args.ID)
		if d == nil {
			return errorResult(fmt.Sprintf("No diagram %q. Available diagrams: %s", args.ID, strings.Join(diagramIDs(report), ", "))), nil, nil
		}

		data, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return errorResult(fmt.Sprintf("failed to marshal diagram: %v", err)), nil, nil
		}
		text := fmt.Sprintf("```json\n%s\n```\n\n```mermaid\n%s```\n", data, markdown.Mermaid(*d))
		return textResult(text), nil, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "show_source",
		Description: "Show source code for facts found by exact name, or for a file and line in one of the configured repositories. Returns the source with surrounding context lines.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args showSourceArgs) (*mcp.CallToolResult, any, error) {
		text, err := s.showSource(args)
		if err != nil {
			return errorResult(err.Error()), nil, nil
		}
		return textResult(text), nil, nil
	})
}

// maxSourceFacts bounds how many facts show_source prints for one name.
const maxSourceFacts = 5

// showSource renders source windows either for the facts with the given
// exact name or for one repository file.
func (s *Server) showSource(args showSourceArgs) (string, error) {
	contextLines := args.ContextLines
	if contextLines <= 0 {
		contextLines = 30
	}

	if args.Name == "" {
		if args.Repo == "" || args.File == "" {
			return "", errors.New("name, or repo and file, are required")
		}
		absFile, err := s.sourcePath(args.Repo, args.File)
		if err != nil {
			return "", err
		}
		line := max(args.Line, 1)
		source, err := readSourceWindow(absFile, line, contextLines)
		if err != nil {
			return "", fmt.Errorf("could not read source: %v", err)
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "### %s/%s:%d\n\n```%s\n%s```\n", args.Repo, args.File, line, fenceLanguage(args.File), source)
		var inFile []facts.Entry
		for _, e := range s.eng.Store().ByFile(args.File) {
			if e.Repo == args.Repo {
				inFile = append(inFile, e)
			}
		}
		if len(inFile) > 0 {
			sb.WriteString("\nFacts in this file:\n")
			for _, e := range inFile {
				fmt.Fprintf(&sb, "- %s `%s` (line %d)\n", e.Kind, e.Name, e.Line)
			}
		}
		return sb.String(), nil
	}

	var targets []facts.Entry
	for _, e := range s.eng.Store().ByName(args.Name) {
		if e.File == "" || (args.Repo != "" && e.Repo != args.Repo) {
			continue
		}
		targets = append(targets, e)
	}
	if len(targets) == 0 {
		msg := fmt.Sprintf("No facts named %q", args.Name)
		if sugg := suggestNames(s.eng.Store().Names(), args.Name, maxSourceFacts); len(sugg) > 0 {
			msg += ". Did you mean: " + strings.Join(sugg, ", ")
		}
		return "", errors.New(msg)
	}
	if len(targets) > maxSourceFacts {
		targets = targets[:maxSourceFacts]
	}

	var sb strings.Builder
	for i, e := range targets {
		if i > 0 {
			sb.WriteString("\n---\n\n")
		}
		fmt.Fprintf(&sb, "### %s\n", e.Name)
		fmt.Fprintf(&sb, "Kind: %s  Repository: %s  File: %s  Line: %d\n\n", e.Kind, e.Repo, e.File, e.Line)

		absFile, err := s.sourcePath(e.Repo, e.File)
		if err != nil {
			fmt.Fprintf(&sb, "_Could not read source: %v_\n", err)
			continue
		}
		source, err := readSourceWindow(absFile, max(e.Line, 1), contextLines)
		if err != nil {
			fmt.Fprintf(&sb, "_Could not read source: %v_\n", err)
			continue
		}
		fmt.Fprintf(&sb, "```%s\n%s```\n", fenceLanguage(e.File), source)
	}
	return sb.String(), nil
}

// factKinds lists the kinds accepted by query_facts.
var factKinds = []string{
	facts.KindPage, facts.KindAPICall, facts.KindOperation, facts.KindComponent,
	facts.KindDataFlow, facts.KindEndpoint, facts.KindModel,
}

func (s *Server) repositoryNames() []string {
	names := make([]string, 0, len(s.cfg.Repositories))
	for _, r := range s.cfg.Repositories {
		names = append(names, r.Name)
	}
	return names
}

// sourcePath maps a repository name and relative file to an absolute path
// inside that repository's root.
func (s *Server) sourcePath(repo, rel string) (string, error) {
	for _, r := range s.cfg.Repositories {
		if r.Name != repo {
			continue
		}
		root, err := filepath.Abs(r.Path)
		if err != nil {
			return "", fmt.Errorf("invalid repository path: %v", err)
		}
		abs := filepath.Join(root, filepath.FromSlash(rel))
		if inside, err := filepath.Rel(root, abs); err != nil || inside == ".." || strings.HasPrefix(inside, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("file %q is outside repository %s", rel, repo)
		}
		return abs, nil
	}
	return "", fmt.Errorf("unknown repository %q", repo)
}

// summaryText renders per-repository counts and cross-repository links.
func summaryText(report *facts.DocumentationReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Repositories: %d\n\n", len(report.Repositories))
	for _, rr := range report.Repositories {
		r := rr.Result
		name := r.Repository
		if r.DisplayName != "" && r.DisplayName != r.Repository {
			name = fmt.Sprintf("%s (%s)", r.DisplayName, r.Repository)
		}
		cached := ""
		if rr.Cached {
			cached = " [cached]"
		}
		fmt.Fprintf(&sb, "- %s%s: %d pages, %d components, %d GraphQL operations, %d API calls, %d data flows, %d endpoints, %d models\n",
			name, cached, rr.Summary.Pages, rr.Summary.Components, rr.Summary.Operations,
			rr.Summary.APICalls, rr.Summary.DataFlows, rr.Summary.Endpoints, rr.Summary.Models)
	}

	cross := report.CrossRepo
	if len(cross.SharedTypes) > 0 {
		fmt.Fprintf(&sb, "\nShared GraphQL operations: %s\n", strings.Join(cross.SharedTypes, ", "))
	}
	if len(cross.Links) > 0 {
		sb.WriteString("\nCross-repository links:\n")
		for _, l := range cross.Links {
			fmt.Fprintf(&sb, "- %s -> %s (%s): %s\n", l.From, l.To, l.Type, l.Subject)
		}
	}
	if len(cross.Connections) > 0 {
		fmt.Fprintf(&sb, "\nFrontend/backend endpoint connections: %d\n", len(cross.Connections))
	}
	if len(report.Diagrams) > 0 {
		fmt.Fprintf(&sb, "\nDiagrams: %s\n", strings.Join(diagramIDs(report), ", "))
	}
	if len(report.Insights) > 0 {
		sb.WriteString("\nInsights:\n")
		for _, in := range report.Insights {
			fmt.Fprintf(&sb, "- %s\n", in.Title)
		}
	}
	return sb.String()
}

func diagramIDs(report *facts.DocumentationReport) []string {
	ids := make([]string, 0, len(report.Diagrams))
	for _, d := range report.Diagrams {
		ids = append(ids, d.ID)
	}
	return ids
}

// formatEntries marshals a page of query results with a paging footer.
func formatEntries(entries []facts.Entry, total, offset int) (string, error) {
	if entries == nil {
		entries = []facts.Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", err
	}
	text := string(data)
	if offset < 0 {
		offset = 0
	}
	if shown := len(entries); offset+shown < total || offset > 0 {
		text += fmt.Sprintf("\n\n... (showing %d-%d of %d results, use offset to page)", min(offset+1, total), offset+shown, total)
	}
	return text, nil
}

// suggestNames returns up to n known names closest to query by normalized
// edit distance. Names that are too far away are not suggested.
func suggestNames(names []string, query string, n int) []string {
	q := strings.ToLower(query)
	type scored struct {
		name  string
		score float64
	}
	var candidates []scored
	for _, name := range names {
		lower := strings.ToLower(name)
		maxLen := max(len(q), len(lower))
		if maxLen == 0 {
			continue
		}
		score := 1 - float64(levenshtein.Distance(q, lower, nil))/float64(maxLen)
		if score < 0.4 {
			continue
		}
		candidates = append(candidates, scored{name, score})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.name)
	}
	return out
}

// readSourceWindow reads lines from a file centered around the given line number.
func readSourceWindow(absFile string, centerLine, contextLines int) (string, error) {
	data, err := os.ReadFile(absFile)
	if err != nil {
		return "", err
	}

	lines := strings.Split(string(data), "\n")
	startLine := max(centerLine-contextLines/2, 1)
	endLine := min(centerLine+contextLines/2, len(lines))
	if startLine > endLine {
		return "", fmt.Errorf("line %d is past the end of the file (%d lines)", centerLine, len(lines))
	}

	var sb strings.Builder
	for i := startLine; i <= endLine; i++ {
		fmt.Fprintf(&sb, "%4d│ %s\n", i, lines[i-1])
	}
	return sb.String(), nil
}

func fenceLanguage(file string) string {
	switch filepath.Ext(file) {
	case ".ts", ".mts", ".cts":
		return "ts"
	case ".tsx":
		return "tsx"
	case ".js", ".mjs", ".cjs":
		return "js"
	case ".jsx":
		return "jsx"
	case ".go":
		return "go"
	case ".graphql", ".gql":
		return "graphql"
	case ".sql":
		return "sql"
	}
	return ""
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}
