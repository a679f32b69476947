// Package ignore decides which notes the scanner skips.
//
// Patterns use gitignore syntax (https://git-scm.com/docs/gitignore) and come
// from three places: the notes.exclude config list, and .gitignore and
// .notedexignore files found in the notes tree.
//
//	m := ignore.New()
//	m.Add("drafts/")
//	m.Add("*.tmp.md")
//	m.Add("!drafts/keep.md")
//
//	if m.Match("drafts/idea.md", false) {
//	    // skipped
//	}
package ignore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// FileNames lists the ignore files read from every scanned directory,
// in the order their rules are applied.
var FileNames = []string{".gitignore", ".notedexignore"}

// Matcher holds compiled patterns. It is safe for concurrent use.
type Matcher struct {
	mu    sync.RWMutex
	rules []rule
}

type rule struct {
	re       *regexp.Regexp
	negate   bool
	dirOnly  bool
	anchored bool
	base     string // slash-separated directory the rule is scoped to
}

// New creates an empty Matcher.
func New() *Matcher {
	return &Matcher{}
}

// Compile builds a Matcher from a list of patterns.
func Compile(patterns []string) *Matcher {
	m := New()
	for _, p := range patterns {
		m.Add(p)
	}
	return m
}

// Len returns the number of compiled rules.
func (m *Matcher) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rules)
}

// Add compiles one pattern that applies to the whole tree.
func (m *Matcher) Add(pattern string) {
	m.AddUnder(pattern, "")
}

// AddUnder compiles one pattern scoped to the base directory (slash
// separated, relative to the notes root). Blank lines and comments are
// ignored.
func (m *Matcher) AddUnder(pattern, base string) {
	r, ok := parse(pattern)
	if !ok {
		return
	}
	r.base = filepath.ToSlash(base)

	m.mu.Lock()
	m.rules = append(m.rules, r)
	m.mu.Unlock()
}

// AddFile reads every pattern of an ignore file, scoped to base.
func (m *Matcher) AddFile(path, base string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open ignore file: %w", err)
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		m.AddUnder(sc.Text(), base)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read ignore file %s: %w", path, err)
	}
	return nil
}

// Match reports whether the relative path is ignored. The last matching
// rule wins, so a later "!pattern" can re-include a path.
func (m *Matcher) Match(path string, isDir bool) bool {
	path = filepath.ToSlash(path)

	m.mu.RLock()
	defer m.mu.RUnlock()

	ignored := false
	for _, r := range m.rules {
		if r.match(path, isDir) {
			ignored = !r.negate
		}
	}
	return ignored
}

func parse(pattern string) (rule, bool) {
	// "\ " at the end keeps a trailing space.
	keepSpace := strings.HasSuffix(pattern, `\ `)
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || strings.HasPrefix(pattern, "#") {
		return rule{}, false
	}

	var r rule
	switch {
	case strings.HasPrefix(pattern, `\#`), strings.HasPrefix(pattern, `\!`):
		pattern = pattern[1:]
	case strings.HasPrefix(pattern, "!"):
		r.negate = true
		pattern = pattern[1:]
	}

	if keepSpace && strings.HasSuffix(pattern, `\`) {
		pattern = strings.TrimSuffix(pattern, `\`) + " "
	}
	if strings.HasSuffix(pattern, "/") {
		r.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}
	if strings.HasPrefix(pattern, "/") {
		r.anchored = true
		pattern = strings.TrimPrefix(pattern, "/")
	}
	// "doc/frotz" is relative to the ignore file's directory.
	if strings.Contains(pattern, "/") && !strings.HasPrefix(pattern, "*") {
		r.anchored = true
	}
	if pattern == "" {
		return rule{}, false
	}

	re, err := regexp.Compile("^" + toRegex(pattern) + "$")
	if err != nil {
		return rule{}, false
	}
	r.re = re
	return r, true
}

func (r rule) match(path string, isDir bool) bool {
	if r.base != "" && r.base != "." {
		rel, ok := strings.CutPrefix(path, r.base+"/")
		if !ok {
			return false
		}
		path = rel
	}

	parts := strings.Split(path, "/")
	last := len(parts) - 1

	if r.anchored {
		if r.re.MatchString(path) {
			return !r.dirOnly || isDir
		}
		if r.dirOnly {
			for i := range parts[:last] {
				if r.re.MatchString(strings.Join(parts[:i+1], "/")) {
					return true
				}
			}
		}
		return false
	}

	if r.dirOnly {
		for i, part := range parts {
			if r.re.MatchString(part) {
				return i < last || isDir
			}
		}
		return false
	}

	if r.re.MatchString(path) {
		return true
	}
	for _, part := range parts {
		if r.re.MatchString(part) {
			return true
		}
	}
	return false
}

// toRegex converts a glob to a regular expression body.
func toRegex(glob string) string {
	var b strings.Builder
	for i := 0; i < len(glob); i++ {
		c := glob[i]
		switch c {
		case '*':
			if i+1 < len(glob) && glob[i+1] == '*' {
				if i+2 < len(glob) && glob[i+2] == '/' {
					b.WriteString("(?:.*/)?")
					i += 2
					continue
				}
				if i == 0 || glob[i-1] == '/' {
					b.WriteString(".*")
					i++
					continue
				}
			}
			b.WriteString("[^/]*")
		case '?':
			b.WriteString("[^/]")
		case '[':
			end := strings.IndexByte(glob[i+1:], ']')
			if end < 0 {
				b.WriteString(`\[`)
				continue
			}
			b.WriteString(glob[i : i+end+2])
			i += end + 1
		case '\\':
			if i+1 < len(glob) {
				i++
				b.WriteString(regexp.QuoteMeta(string(glob[i])))
			} else {
				b.WriteString(`\\`)
			}
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	return b.String()
}
