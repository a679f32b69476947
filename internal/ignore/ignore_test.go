package ignore

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_Match(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		path    string
		isDir   bool
		want    bool
	}{
		{name: "exact name", pattern: "todo.md", path: "todo.md", want: true},
		{name: "exact name nested", pattern: "todo.md", path: "a/b/todo.md", want: true},
		{name: "other name", pattern: "todo.md", path: "done.md", want: false},
		{name: "star suffix", pattern: "*.tmp.md", path: "x.tmp.md", want: true},
		{name: "star does not cross dirs", pattern: "a*b.md", path: "a/b.md", want: false},
		{name: "question mark", pattern: "day?.md", path: "day1.md", want: true},
		{name: "question mark one char", pattern: "day?.md", path: "day12.md", want: false},
		{name: "char class", pattern: "v[0-9].md", path: "v3.md", want: true},
		{name: "double star prefix", pattern: "**/archive", path: "2023/archive", isDir: true, want: true},
		{name: "double star suffix", pattern: "drafts/**", path: "drafts/x/y.md", want: true},
		{name: "double star suffix outside", pattern: "drafts/**", path: "other/drafts/y.md", want: false},
		{name: "double star middle", pattern: "a/**/z.md", path: "a/b/c/z.md", want: true},
		{name: "double star middle zero dirs", pattern: "a/**/z.md", path: "a/z.md", want: true},
		{name: "rooted", pattern: "/inbox", path: "inbox", isDir: true, want: true},
		{name: "rooted not nested", pattern: "/inbox", path: "x/inbox", isDir: true, want: false},
		{name: "dir only matches dir", pattern: "drafts/", path: "drafts", isDir: true, want: true},
		{name: "dir only skips file", pattern: "drafts/", path: "drafts", isDir: false, want: false},
		{name: "dir only matches contents", pattern: "drafts/", path: "notes/drafts/a.md", want: true},
		{name: "inner slash anchors", pattern: "doc/old.md", path: "x/doc/old.md", want: false},
		{name: "escaped hash", pattern: `\#tag.md`, path: "#tag.md", want: true},
		{name: "escaped bang", pattern: `\!wow.md`, path: "!wow.md", want: true},
		{name: "dot is literal", pattern: "a.md", path: "abmd", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			m.Add(tt.pattern)
			assert.Equal(t, tt.want, m.Match(tt.path, tt.isDir))
		})
	}
}

func TestMatcher_NegationLastRuleWins(t *testing.T) {
	// Given: everything under drafts ignored except one note
	m := Compile([]string{"drafts/**", "!drafts/keep.md"})

	// Then: the re-included note is not ignored
	assert.True(t, m.Match("drafts/idea.md", false))
	assert.False(t, m.Match("drafts/keep.md", false))
}

func TestMatcher_CommentsAndBlanksSkipped(t *testing.T) {
	m := Compile([]string{"", "   ", "# comment", "[]"})

	assert.Equal(t, 0, m.Len())
	assert.False(t, m.Match("# comment", false))
}

func TestMatcher_AddUnder_ScopesToBase(t *testing.T) {
	m := New()
	m.AddUnder("*.md", "journal")

	assert.True(t, m.Match("journal/day.md", false))
	assert.True(t, m.Match("journal/2024/day.md", false))
	assert.False(t, m.Match("day.md", false))
	assert.False(t, m.Match("journalx/day.md", false))
}

func TestMatcher_AddFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".notedexignore")
	require.NoError(t, os.WriteFile(path, []byte("# private notes\nprivate-*.md\n\n/scratch.md\n"), 0o644))

	m := New()
	require.NoError(t, m.AddFile(path, ""))

	assert.Equal(t, 2, m.Len())
	assert.True(t, m.Match("private-diary.md", false))
	assert.True(t, m.Match("scratch.md", false))
	assert.False(t, m.Match("sub/scratch.md", false))
}

func TestMatcher_AddFile_Missing(t *testing.T) {
	err := New().AddFile(filepath.Join(t.TempDir(), ".gitignore"), "")

	assert.Error(t, err)
}

func TestMatcher_ConcurrentUse(t *testing.T) {
	m := New()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.Add("*.bak")
		}()
		go func() {
			defer wg.Done()
			_ = m.Match("x.bak", false)
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, m.Len())
	assert.True(t, m.Match("x.bak", false))
}
