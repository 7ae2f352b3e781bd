package derived

import (
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/briarlane/duscape/internal/node"
)

// Matcher is a compiled name matcher reused across every node visited
// during a search (§4.5: "the compiled matcher is reused across
// nodes").
type Matcher interface {
	Match(name string) bool
}

// SearchOptions controls compilation of a Matcher (§4.5, §6.3).
type SearchOptions struct {
	CaseSensitive bool
	WholePhrase   bool
	// Regex selects a regular-expression matcher; otherwise pattern is
	// treated as a shell glob (filepath.Match semantics).
	Regex bool
}

// CompileMatcher builds a Matcher for pattern per opts.
func CompileMatcher(pattern string, opts SearchOptions) (Matcher, error) {
	if opts.Regex {
		expr := pattern
		if opts.WholePhrase {
			expr = "^(?:" + expr + ")$"
		}
		if !opts.CaseSensitive {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, err
		}
		return regexMatcher{re}, nil
	}
	return globMatcher{pattern: pattern, opts: opts}, nil
}

type regexMatcher struct{ re *regexp.Regexp }

func (m regexMatcher) Match(name string) bool { return m.re.MatchString(name) }

type globMatcher struct {
	pattern string
	opts    SearchOptions
}

func (m globMatcher) Match(name string) bool {
	pattern, candidate := m.pattern, name
	if !m.opts.CaseSensitive {
		pattern = strings.ToLower(pattern)
		candidate = strings.ToLower(candidate)
	}
	if m.opts.WholePhrase {
		ok, _ := filepath.Match(pattern, candidate)
		return ok
	}
	ok, _ := filepath.Match("*"+pattern+"*", candidate)
	return ok
}

// SearchResults holds weak references to every matching node found by a
// completed Search, per invariant 1 (§3.2.1).
type SearchResults struct {
	mu   sync.Mutex
	refs []node.WeakRef
}

// Search enumerates the live tree rooted at root with a depth-first
// stack (§4.5), matching each node's name against m, and returns the
// results. Traversal takes a read lock on each node's children only for
// the instant it snapshots them (via node.Children), never across the
// whole walk, so it can run concurrently with scanner/watcher mutation.
func Search(root *node.Node, m Matcher) *SearchResults {
	res := &SearchResults{}
	stack := []*node.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if m.Match(n.Name) {
			res.refs = append(res.refs, node.NewWeakRef(n))
		}
		stack = append(stack, n.Children()...)
	}
	return res
}

// Live returns the currently valid matches, dropping any detached since
// the search ran.
func (r *SearchResults) Live() []*node.Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*node.Node, 0, len(r.refs))
	kept := r.refs[:0]
	for _, ref := range r.refs {
		if n, ok := ref.Get(); ok {
			kept = append(kept, ref)
			out = append(out, n)
		}
	}
	r.refs = kept
	return out
}

// Remove detaches target from the result set; invoked by the hint bus
// on NodeRemoved (§4.5: "it is detached from the results via the hint
// bus").
func (r *SearchResults) Remove(target *node.Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs = removeRef(r.refs, target)
}
