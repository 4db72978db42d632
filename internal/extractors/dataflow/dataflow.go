// Package dataflow extracts how data reaches components: GraphQL and REST
// hooks, React context and global stores.
package dataflow

import (
	"context"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dejo1307/frontdoc/internal/config"
	"github.com/dejo1307/frontdoc/internal/extractors"
	"github.com/dejo1307/frontdoc/internal/extractors/graphql"
	"github.com/dejo1307/frontdoc/internal/extractors/jsast"
	"github.com/dejo1307/frontdoc/internal/facts"
)

// Name is the analyzer name.
const Name = "dataflow"

// Extractor finds data flows into and out of components.
type Extractor struct{}

// New creates a data flow extractor.
func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Name() string { return Name }

// Supports reports whether kind has UI components.
func (e *Extractor) Supports(kind string) bool {
	return kind == config.KindNextJS || kind == config.KindReact || kind == config.KindLibrary
}

// Extract returns the data flows of the repository. GraphQL hooks that pass a
// document binding are mapped to the operation bound to that name anywhere in
// the repository.
func (e *Extractor) Extract(ctx context.Context, repo *extractors.Repository) (*facts.AnalysisResult, error) {
	res, err := jsast.ForEachFile(ctx, repo, Name, jsast.SourceFiles(repo.Files), func(f *jsast.File) (*facts.AnalysisResult, error) {
		return &facts.AnalysisResult{
			DataFlows:  fileFlows(f),
			Operations: graphql.FileOperations(f),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	resolveBindings(res.DataFlows, res.Operations)
	return &facts.AnalysisResult{DataFlows: res.DataFlows}, nil
}

// graphqlHooks maps Apollo and urql hooks to whether data flows out of the
// component (mutations) rather than into it.
var graphqlHooks = map[string]bool{
	"useQuery":           false,
	"useLazyQuery":       false,
	"useSuspenseQuery":   false,
	"useBackgroundQuery": false,
	"useSubscription":    false,
	"useMutation":        true,
}

var restHooks = map[string]bool{
	"useSWR":           true,
	"useSWRImmutable":  true,
	"useSWRInfinite":   true,
	"useInfiniteQuery": true,
	"useQueries":       true,
}

var storeHooks = map[string]bool{
	"useSelector":    true,
	"useAppSelector": true,
	"useStore":       true,
	"useAtom":        true,
	"useAtomValue":   true,
	"useRecoilValue": true,
	"useRecoilState": true,
}

// pendingPrefix marks a graphql flow whose operation is still a binding name.
const pendingPrefix = "\x00"

// fileFlows returns the data flows of one file. GraphQL flows that reference
// a document by binding carry the binding until resolved.
func fileFlows(f *jsast.File) []facts.DataFlow {
	imports := jsast.Imports(f.Root, f.Src)
	var out []facts.DataFlow
	jsast.Walk(f.Root, func(n *sitter.Node) bool {
		if n.Kind() != "call_expression" {
			return true
		}
		hook := strings.TrimPrefix(jsast.CalleeName(n, f.Src), "React.")
		if !jsast.IsHookName(hook) {
			return true
		}
		owner := jsast.ContainingFunction(n, f.Src)
		if !jsast.IsPascalCase(owner) && !jsast.IsHookName(owner) {
			return true
		}
		flow, ok := classify(n, hook, imports[hook], f.Src)
		if !ok {
			return true
		}
		flow.ID = facts.NewID(Name, facts.KindDataFlow, f.Path, jsast.Line(n), jsast.Col(n), hook)
		flow.Component = owner
		flow.Hook = hook
		flow.File = f.Path
		flow.Line = jsast.Line(n)
		if flow.From == "" {
			flow.From = owner
		}
		if flow.To == "" {
			flow.To = owner
		}
		out = append(out, flow)
		return true
	})
	return out
}

// classify recognizes a hook call. From or To are left empty where the
// owning component goes.
func classify(call *sitter.Node, hook, importedFrom string, src []byte) (facts.DataFlow, bool) {
	args := jsast.Args(call)
	var first *sitter.Node
	if len(args) > 0 {
		first = args[0]
	}

	switch {
	case hook == "useContext":
		if first == nil {
			return facts.DataFlow{}, false
		}
		return facts.DataFlow{Type: facts.FlowContext, From: jsast.NormalizeMember(jsast.Text(first, src))}, true

	case storeHooks[hook]:
		return facts.DataFlow{Type: facts.FlowStore, From: storeSource(first, src)}, true

	case restHooks[hook]:
		return facts.DataFlow{Type: facts.FlowREST, From: restKey(first, src)}, true
	}

	outgoing, isGraphQLHook := graphqlHooks[hook]
	if !isGraphQLHook {
		return facts.DataFlow{}, false
	}
	if first == nil {
		return facts.DataFlow{}, false
	}
	if !isGraphQLCall(first, importedFrom, src) {
		key := restKey(first, src)
		if outgoing {
			return facts.DataFlow{Type: facts.FlowREST, To: key}, true
		}
		return facts.DataFlow{Type: facts.FlowREST, From: key}, true
	}

	op := documentOperation(first, src)
	flow := facts.DataFlow{Type: facts.FlowGraphQL, Operation: op}
	if outgoing {
		flow.To = op
	} else {
		flow.From = op
	}
	return flow, true
}

// isGraphQLCall distinguishes Apollo/urql hooks from react-query hooks of
// the same name, by import source first and argument shape second.
func isGraphQLCall(first *sitter.Node, importedFrom string, src []byte) bool {
	switch {
	case strings.Contains(importedFrom, "react-query") || strings.Contains(importedFrom, "@tanstack/"):
		return false
	case strings.Contains(importedFrom, "apollo") || strings.Contains(importedFrom, "urql"):
		return true
	}
	switch first.Kind() {
	case "call_expression":
		return jsast.CalleeName(first, src) == "gql" || jsast.CalleeName(first, src) == "graphql"
	case "identifier", "member_expression":
		return looksLikeDocument(jsast.Text(first, src))
	}
	return false
}

// looksLikeDocument reports whether an identifier names a GraphQL document:
// GET_USER, userQuery, UpdateUserDocument.
func looksLikeDocument(name string) bool {
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	if name != "" && strings.ToUpper(name) == name {
		return true
	}
	for _, suffix := range []string{"Query", "Mutation", "Subscription", "Document", "Gql", "GQL"} {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// documentOperation returns the operation of an inline document, or the
// pending binding name of a referenced one.
func documentOperation(first *sitter.Node, src []byte) string {
	if first.Kind() == "call_expression" {
		var name string
		jsast.Walk(first, func(n *sitter.Node) bool {
			if n.Kind() == "template_string" && name == "" {
				name = inlineOperationName(jsast.Text(n, src))
			}
			return name == ""
		})
		if name != "" {
			return name
		}
		return facts.Unknown
	}
	return pendingPrefix + jsast.NormalizeMember(jsast.Text(first, src))
}

// inlineOperationName reads the name from the header of an inline document.
func inlineOperationName(doc string) string {
	fields := strings.FieldsFunc(doc, func(r rune) bool {
		return r == ' ' || r == '\n' || r == '\t' || r == '\r' || r == '`' || r == '(' || r == '{'
	})
	for i := 0; i+1 < len(fields); i++ {
		switch fields[i] {
		case "query", "mutation", "subscription":
			return fields[i+1]
		}
	}
	return ""
}

// restKey names the resource behind a REST hook: the literal key or URL, the
// queryKey of an options object, or a bracketed placeholder.
func restKey(first *sitter.Node, src []byte) string {
	if first == nil {
		return facts.Unknown
	}
	switch first.Kind() {
	case "string", "template_string":
		if s, ok := jsast.StringValue(first, src); ok {
			return s
		}
		return jsast.TemplatePattern(first, src)
	case "array":
		if el := jsast.NamedChildren(first); len(el) > 0 {
			return restKey(el[0], src)
		}
	case "object":
		for _, k := range []string{"queryKey", "mutationKey", "url"} {
			if v := jsast.ObjectProperty(first, src, k); v != nil {
				return restKey(v, src)
			}
		}
		if fn := jsast.ObjectProperty(first, src, "mutationFn"); fn != nil {
			return "[" + jsast.NormalizeMember(jsast.Text(fn, src)) + "]"
		}
		return facts.Unknown
	case "arrow_function", "function_expression":
		return "[" + facts.Unknown + "]"
	}
	return "[" + jsast.NormalizeMember(jsast.Text(first, src)) + "]"
}

// storeSource names the store slice a selector reads: store.user for
// state => state.user.name, the selector name otherwise.
func storeSource(sel *sitter.Node, src []byte) string {
	if sel == nil {
		return "store"
	}
	if sel.Kind() == "arrow_function" {
		param := jsast.Text(sel.ChildByFieldName("parameter"), src)
		if param == "" {
			if ps := jsast.NamedChildren(sel.ChildByFieldName("parameters")); len(ps) > 0 {
				param = jsast.Text(ps[0], src)
				if i := strings.Index(param, ":"); i >= 0 {
					param = strings.TrimSpace(param[:i])
				}
			}
		}
		body := jsast.NormalizeMember(jsast.Text(sel.ChildByFieldName("body"), src))
		if param != "" && strings.HasPrefix(body, param+".") {
			slice := strings.TrimPrefix(body, param+".")
			if i := strings.IndexAny(slice, ".[("); i >= 0 {
				slice = slice[:i]
			}
			return "store." + slice
		}
		return "store"
	}
	return "store:" + jsast.NormalizeMember(jsast.Text(sel, src))
}

// resolveBindings replaces pending binding names with the operation bound to
// them. The first binding seen in file order wins; unknown bindings become
// [BINDING] placeholders.
func resolveBindings(flows []facts.DataFlow, ops []facts.GraphQLOperation) {
	bound := map[string]string{}
	for _, op := range ops {
		if op.Binding == "" || op.Type == facts.OpFragment {
			continue
		}
		if _, ok := bound[op.Binding]; !ok {
			bound[op.Binding] = op.Name
		}
	}

	for i := range flows {
		f := &flows[i]
		if !strings.HasPrefix(f.Operation, pendingPrefix) {
			continue
		}
		binding := strings.TrimPrefix(f.Operation, pendingPrefix)
		name, ok := bound[binding]
		if !ok {
			if j := strings.LastIndex(binding, "."); j >= 0 {
				name, ok = bound[binding[j+1:]]
			}
		}
		if !ok {
			name = "[" + binding + "]"
		}
		if f.From == f.Operation {
			f.From = name
		}
		if f.To == f.Operation {
			f.To = name
		}
		f.Operation = name
	}
}
