package apicalls

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dejo1307/frontdoc/internal/extractors/jsast"
)

// callSite is a recognized request call before its URL is rendered.
type callSite struct {
	method    string
	mechanism string
	url       *sitter.Node
	options   []*sitter.Node
}

// shape recognizes one family of request calls.
type shape struct {
	name    string
	extract func(call *sitter.Node, callee string, src []byte) (callSite, bool)
}

// shapes are tried in order; the first that recognizes a call wins.
var shapes = []shape{
	{"fetch", fetchCall},
	{"client-verb", clientVerbCall},
	{"callable-client", callableClientCall},
	{"swr", swrCall},
	{"nuxt-fetch", nuxtFetchCall},
}

// match recognizes call as an API request.
func match(call *sitter.Node, src []byte) (callSite, bool) {
	callee := jsast.CalleeName(call, src)
	if callee == "" {
		return callSite{}, false
	}
	for _, s := range shapes {
		if site, ok := s.extract(call, callee, src); ok {
			return site, true
		}
	}
	return callSite{}, false
}

var httpVerbs = map[string]bool{
	"get":     true,
	"post":    true,
	"put":     true,
	"patch":   true,
	"delete":  true,
	"head":    true,
	"options": true,
}

// clients are receivers whose verb methods issue HTTP requests.
var clients = map[string]bool{
	"axios":      true,
	"api":        true,
	"apiClient":  true,
	"http":       true,
	"httpClient": true,
	"client":     true,
	"ky":         true,
	"got":        true,
	"request":    true,
	"superagent": true,
	"$http":      true,
	"instance":   true,
}

// callableClients can be invoked directly with a URL or a config object.
var callableClients = map[string]bool{
	"axios": true,
	"ky":    true,
	"got":   true,
}

// fetch(url, {method, headers})
func fetchCall(call *sitter.Node, callee string, src []byte) (callSite, bool) {
	if callee != "fetch" && callee != "window.fetch" && callee != "globalThis.fetch" && callee != "self.fetch" {
		return callSite{}, false
	}
	args := jsast.Args(call)
	if len(args) == 0 {
		return callSite{}, false
	}
	site := callSite{method: "GET", mechanism: "fetch", url: args[0]}
	if len(args) > 1 {
		site.options = args[1:]
		site.method = methodOption(args[1], src, "GET")
	}
	return site, true
}

// axios.get(url, config), axios.post(url, body, config), this.http.get(url)
func clientVerbCall(call *sitter.Node, _ string, src []byte) (callSite, bool) {
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Kind() != "member_expression" {
		return callSite{}, false
	}
	verb := jsast.Text(fn.ChildByFieldName("property"), src)
	if !httpVerbs[verb] {
		return callSite{}, false
	}
	obj := fn.ChildByFieldName("object")
	if obj == nil {
		return callSite{}, false
	}
	switch obj.Kind() {
	case "identifier", "member_expression", "this":
	default:
		return callSite{}, false
	}
	receiver := jsast.NormalizeMember(jsast.Text(obj, src))
	if i := strings.LastIndex(receiver, "."); i >= 0 {
		receiver = receiver[i+1:]
	}
	if !clients[receiver] {
		return callSite{}, false
	}
	args := jsast.Args(call)
	if len(args) == 0 {
		return callSite{}, false
	}
	return callSite{
		method:    strings.ToUpper(verb),
		mechanism: receiver,
		url:       args[0],
		options:   args[1:],
	}, true
}

// axios({url, method}), axios(url, {method}), ky(url)
func callableClientCall(call *sitter.Node, callee string, src []byte) (callSite, bool) {
	if !callableClients[callee] {
		return callSite{}, false
	}
	args := jsast.Args(call)
	if len(args) == 0 {
		return callSite{}, false
	}
	if args[0].Kind() == "object" {
		url := jsast.ObjectProperty(args[0], src, "url")
		if url == nil {
			return callSite{}, false
		}
		return callSite{
			method:    methodOption(args[0], src, "GET"),
			mechanism: callee,
			url:       url,
			options:   args,
		}, true
	}
	site := callSite{method: "GET", mechanism: callee, url: args[0], options: args[1:]}
	if len(args) > 1 {
		site.method = methodOption(args[1], src, "GET")
	}
	return site, true
}

// useSWR(key, fetcher), useSWRImmutable(key)
func swrCall(call *sitter.Node, callee string, _ []byte) (callSite, bool) {
	if callee != "useSWR" && callee != "useSWRImmutable" && callee != "useSWRInfinite" {
		return callSite{}, false
	}
	args := jsast.Args(call)
	if len(args) == 0 {
		return callSite{}, false
	}
	return callSite{method: "GET", mechanism: "swr", url: args[0], options: args[1:]}, true
}

// useFetch(url, opts), $fetch(url, opts), ofetch(url, opts)
func nuxtFetchCall(call *sitter.Node, callee string, src []byte) (callSite, bool) {
	if callee != "useFetch" && callee != "$fetch" && callee != "ofetch" && callee != "useLazyFetch" {
		return callSite{}, false
	}
	args := jsast.Args(call)
	if len(args) == 0 {
		return callSite{}, false
	}
	site := callSite{method: "GET", mechanism: callee, url: args[0], options: args[1:]}
	if len(args) > 1 {
		site.method = methodOption(args[1], src, "GET")
	}
	return site, true
}

// methodOption reads the method property of a request options object.
// A method that is not a literal is reported as UNKNOWN.
func methodOption(opts *sitter.Node, src []byte, def string) string {
	m := jsast.ObjectProperty(opts, src, "method")
	if m == nil {
		return def
	}
	if s, ok := jsast.StringValue(m, src); ok && s != "" {
		return strings.ToUpper(s)
	}
	return "UNKNOWN"
}
