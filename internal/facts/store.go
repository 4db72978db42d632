package facts

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// Entry is a kind-agnostic view of one fact, used for querying.
type Entry struct {
	Kind  string            `json:"kind"`
	ID    string            `json:"id"`
	Name  string            `json:"name"`
	Repo  string            `json:"repo"`
	File  string            `json:"file,omitempty"`
	Line  int               `json:"line,omitempty"`
	Props map[string]string `json:"props,omitempty"`
}

// Entries flattens a result into query entries.
func Entries(r *AnalysisResult) []Entry {
	repo := r.Repository
	out := make([]Entry, 0, r.FactCount())
	for _, f := range r.Pages {
		out = append(out, Entry{Kind: KindPage, ID: f.ID, Name: f.Route, Repo: repo, File: f.File, Line: f.Line,
			Props: map[string]string{"router": f.Router, "kind": f.Kind, "component": f.Component, "requires_auth": strconv.FormatBool(f.RequiresAuth)}})
	}
	for _, f := range r.APICalls {
		out = append(out, Entry{Kind: KindAPICall, ID: f.ID, Name: f.Method + " " + f.URL, Repo: repo, File: f.File, Line: f.Line,
			Props: map[string]string{"method": f.Method, "url": f.URL, "mechanism": f.Mechanism, "function": f.Function, "category": f.Category, "requires_auth": strconv.FormatBool(f.RequiresAuth)}})
	}
	for _, f := range r.Operations {
		out = append(out, Entry{Kind: KindOperation, ID: f.ID, Name: f.Name, Repo: repo, File: f.File, Line: f.Line,
			Props: map[string]string{"type": f.Type, "binding": f.Binding}})
	}
	for _, f := range r.Components {
		out = append(out, Entry{Kind: KindComponent, ID: f.ID, Name: f.Name, Repo: repo, File: f.File, Line: f.Line,
			Props: map[string]string{"type": f.Type, "exported": strconv.FormatBool(f.Exported), "children": strings.Join(f.Children, ",")}})
	}
	for _, f := range r.DataFlows {
		out = append(out, Entry{Kind: KindDataFlow, ID: f.ID, Name: f.From + " -> " + f.To, Repo: repo, File: f.File, Line: f.Line,
			Props: map[string]string{"type": f.Type, "hook": f.Hook, "component": f.Component, "operation": f.Operation}})
	}
	for _, f := range r.Endpoints {
		out = append(out, Entry{Kind: KindEndpoint, ID: f.ID, Name: f.Method + " " + f.Path, Repo: repo, File: f.File, Line: f.Line,
			Props: map[string]string{"method": f.Method, "path": f.Path, "framework": f.Framework, "handler": f.Handler, "requires_auth": strconv.FormatBool(f.RequiresAuth)}})
	}
	for _, f := range r.Models {
		out = append(out, Entry{Kind: KindModel, ID: f.ID, Name: f.Name, Repo: repo, File: f.File, Line: f.Line,
			Props: map[string]string{"kind": f.Kind, "source": f.Source, "fields": strings.Join(f.Fields, ",")}})
	}
	return out
}

// Store provides in-memory indexing and querying of report entries.
type Store struct {
	mu      sync.RWMutex
	entries []Entry

	byKind map[string][]int
	byFile map[string][]int
	byName map[string][]int
	byRepo map[string][]int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		byKind: make(map[string][]int),
		byFile: make(map[string][]int),
		byName: make(map[string][]int),
		byRepo: make(map[string][]int),
	}
}

// LoadReport replaces the store contents with the entries of a report.
func (s *Store) LoadReport(report *DocumentationReport) {
	s.Clear()
	for _, r := range report.Repositories {
		if r.Result != nil {
			s.Add(Entries(r.Result)...)
		}
	}
}

// Add adds entries to the store.
func (s *Store) Add(ee ...Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range ee {
		idx := len(s.entries)
		s.entries = append(s.entries, e)
		s.byKind[e.Kind] = append(s.byKind[e.Kind], idx)
		if e.File != "" {
			s.byFile[e.File] = append(s.byFile[e.File], idx)
		}
		if e.Name != "" {
			s.byName[e.Name] = append(s.byName[e.Name], idx)
		}
		if e.Repo != "" {
			s.byRepo[e.Repo] = append(s.byRepo[e.Repo], idx)
		}
	}
}

// All returns all entries in the store.
func (s *Store) All() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]Entry, len(s.entries))
	copy(result, s.entries)
	return result
}

// Count returns the number of entries in the store.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// ByKind returns all entries of the given kind.
func (s *Store) ByKind(kind string) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectByIndex(s.byKind[kind])
}

// ByFile returns all entries for the given file.
func (s *Store) ByFile(file string) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectByIndex(s.byFile[file])
}

// ByName returns all entries with the given exact name.
func (s *Store) ByName(name string) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectByIndex(s.byName[name])
}

// ByRepo returns all entries for the given repository.
func (s *Store) ByRepo(repo string) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectByIndex(s.byRepo[repo])
}

// Names returns the distinct entry names, in first-seen order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool, len(s.byName))
	var out []string
	for _, e := range s.entries {
		if e.Name != "" && !seen[e.Name] {
			seen[e.Name] = true
			out = append(out, e.Name)
		}
	}
	return out
}

// QueryOpts holds the query filters. Filters across dimensions are AND-combined.
type QueryOpts struct {
	Kind       string // exact kind
	Repo       string // exact repository name
	File       string // exact file
	FilePrefix string // file path prefix
	Name       string // substring of name
	Prop       string // property name
	PropValue  string // property value (requires Prop)
	Offset     int    // number of results to skip
	Limit      int    // max results (0 = default 100, max 500)
}

// Query returns entries matching opts along with the total count of matches
// before offset/limit are applied.
func (s *Store) Query(opts QueryOpts) ([]Entry, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []Entry
	for _, e := range s.entries {
		if opts.Kind != "" && e.Kind != opts.Kind {
			continue
		}
		if opts.Repo != "" && e.Repo != opts.Repo {
			continue
		}
		if opts.File != "" && e.File != opts.File {
			continue
		}
		if opts.FilePrefix != "" && !strings.HasPrefix(e.File, opts.FilePrefix) {
			continue
		}
		if opts.Name != "" && !strings.Contains(strings.ToLower(e.Name), strings.ToLower(opts.Name)) {
			continue
		}
		if opts.Prop != "" {
			v, ok := e.Props[opts.Prop]
			if !ok {
				continue
			}
			if opts.PropValue != "" && v != opts.PropValue {
				continue
			}
		}
		matched = append(matched, e)
	}

	total := len(matched)

	if opts.Offset > 0 {
		if opts.Offset >= len(matched) {
			return nil, total
		}
		matched = matched[opts.Offset:]
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}

	return matched, total
}

// Clear removes all entries from the store.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.byKind = make(map[string][]int)
	s.byFile = make(map[string][]int)
	s.byName = make(map[string][]int)
	s.byRepo = make(map[string][]int)
}

// WriteJSONL writes all entries as JSONL to the given writer.
func (s *Store) WriteJSONL(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	enc := json.NewEncoder(w)
	for _, e := range s.entries {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("encoding entry %q: %w", e.ID, err)
		}
	}
	return nil
}

// ReadJSONL reads entries from a JSONL reader and adds them to the store.
func (s *Store) ReadJSONL(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return fmt.Errorf("decoding entry: %w", err)
		}
		s.Add(e)
	}
	return scanner.Err()
}

func (s *Store) collectByIndex(indices []int) []Entry {
	result := make([]Entry, 0, len(indices))
	for _, idx := range indices {
		if idx < len(s.entries) {
			result = append(result, s.entries[idx])
		}
	}
	return result
}
