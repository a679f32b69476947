package render

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nerrors "github.com/Aman-CERP/notedex/internal/errors"
	"github.com/Aman-CERP/notedex/internal/index"
)

// twoNoteIndexes builds the indexes for:
//
//	a.md  Title: A  Created: 20240101 09:15  Tags: foo bar
//	b.md  Title: B  Created: 20240102 08:00  Tags: bar
func twoNoteIndexes() (tags, dates *index.InvertedIndex) {
	tags, dates = index.New(), index.New()

	tags.AddMany([]string{"foo", "bar"}, "a", "A", "")
	dates.Add("20240101", "a", "A", "09:15")

	tags.AddMany([]string{"bar"}, "b", "B", "")
	dates.Add("20240102", "b", "B", "08:00")
	return tags, dates
}

func TestTagPage(t *testing.T) {
	refs := []index.DocumentRef{
		{DocumentID: "z", Title: "Zed"},
		{DocumentID: "a", Title: "Ay"},
	}

	doc := TagPage("go", refs)

	assert.Equal(t, "go.md", doc.Name)
	assert.Equal(t, "---\nTitle: go\n---\n\n#list\n[[z|Zed]]\n[[a|Ay]]\n", doc.Content)
}

func TestDatePage_SortsByTime(t *testing.T) {
	// Given: postings inserted out of time order
	refs := []index.DocumentRef{
		{DocumentID: "n1", Title: "Nine", SortField: "09:00"},
		{DocumentID: "n2", Title: "Early", SortField: "07:30"},
		{DocumentID: "n3", Title: "Noon", SortField: "12:15"},
	}

	// When: rendering the date page
	doc := DatePage("20240101", refs)

	// Then: lines are ordered by time of day and the input is untouched
	want := "---\nTitle: 20240101\n---\n\n#list\n" +
		"[[n2|07:30|Early]]\n" +
		"[[n1|09:00|Nine]]\n" +
		"[[n3|12:15|Noon]]\n"
	assert.Equal(t, want, doc.Content)
	assert.Equal(t, "n1", refs[0].DocumentID)
}

func TestDatePage_EqualTimesKeepInsertionOrder(t *testing.T) {
	refs := []index.DocumentRef{
		{DocumentID: "second", Title: "S", SortField: "10:00"},
		{DocumentID: "untimed", Title: "U", SortField: ""},
		{DocumentID: "first", Title: "F", SortField: "10:00"},
	}

	doc := DatePage("1", refs)

	assert.Equal(t, "---\nTitle: 1\n---\n\n#list\n[[untimed||U]]\n[[second|10:00|S]]\n[[first|10:00|F]]\n", doc.Content)
}

func TestTagCounts_FrequencyOrder(t *testing.T) {
	// Given: a:3, b:5, c:1
	ix := index.New()
	for i := 0; i < 3; i++ {
		ix.Add("a", "d", "D", "")
	}
	for i := 0; i < 5; i++ {
		ix.Add("b", "d", "D", "")
	}
	ix.Add("c", "d", "D", "")

	// When: counting
	counts := TagCounts(ix)

	// Then: most used first
	assert.Equal(t, []string{"b(5)", "a(3)", "c(1)"}, TagTokens(counts))
}

func TestTagCounts_TiesOrderedByKey(t *testing.T) {
	ix := index.New()
	for _, k := range []string{"zeta", "alpha", "mid", "mid"} {
		ix.Add(k, "d", "D", "")
	}

	assert.Equal(t, []string{"mid(2)", "alpha(1)", "zeta(1)"}, TagTokens(TagCounts(ix)))
}

func TestDateCounts_NumericDescending(t *testing.T) {
	ix := index.New()
	ix.Add("9", "d", "D", "")
	ix.Add("20240101", "d", "D", "")
	ix.Add("100", "d", "D", "")
	ix.Add("100", "e", "E", "")

	counts, err := DateCounts(ix)

	require.NoError(t, err)
	assert.Equal(t, []string{"[[20240101]](1)", "[[100]](2)", "[[9]](1)"}, DateTokens(counts))
}

func TestDateCounts_InvalidKeyIsFatal(t *testing.T) {
	ix := index.New()
	ix.Add("20240101", "d", "D", "")
	ix.Add("march", "e", "E", "")

	_, err := DateCounts(ix)

	require.Error(t, err)
	assert.Equal(t, nerrors.ErrCodeInvalidDateKey, nerrors.GetCode(err))
	assert.True(t, nerrors.IsFatal(err))
}

func TestMasterIndex_TwoNotes(t *testing.T) {
	tags, dates := twoNoteIndexes()

	doc, err := MasterIndex(tags, dates, DefaultOptions())

	require.NoError(t, err)
	assert.Equal(t, MasterIndexName, doc.Name)
	want := "---\nTitle: index\n---\n\n" +
		"# Tags\n" +
		"bar(2)  foo(1)  \n" +
		"\n" +
		"# Dates\n" +
		"[[20240102]](1)  [[20240101]](1)  \n" +
		"\n"
	assert.Equal(t, want, doc.Content)
}

func TestMasterIndex_Empty(t *testing.T) {
	doc, err := MasterIndex(index.New(), index.New(), DefaultOptions())

	require.NoError(t, err)
	assert.Equal(t, "---\nTitle: index\n---\n\n# Tags\n\n# Dates\n\n", doc.Content)
}

func TestBuild_TwoNotes(t *testing.T) {
	tags, dates := twoNoteIndexes()

	set, err := Build(tags, dates, DefaultOptions())

	require.NoError(t, err)
	var names []string
	for _, doc := range set.Documents() {
		names = append(names, doc.Name)
	}
	assert.Equal(t, []string{"bar.md", "foo.md", "20240101.md", "20240102.md", "index.md"}, names)
	assert.Empty(t, set.Collisions)

	assert.Equal(t, "---\nTitle: bar\n---\n\n#list\n[[a|A]]\n[[b|B]]\n", set.Pages[0].Content)
	assert.Equal(t, "---\nTitle: 20240102\n---\n\n#list\n[[b|08:00|B]]\n", set.Pages[3].Content)
}

func TestBuild_BadDateAbortsBeforeAnyDocument(t *testing.T) {
	tags, dates := twoNoteIndexes()
	dates.Add("March", "c", "C", "")

	set, err := Build(tags, dates, DefaultOptions())

	require.Error(t, err)
	assert.Nil(t, set)
	assert.Equal(t, nerrors.ErrCodeInvalidDateKey, nerrors.GetCode(err))
}

func TestBuild_ReportsCollisions(t *testing.T) {
	tags, dates := index.New(), index.New()
	tags.Add("index", "a", "A", "")
	tags.Add("20240101", "a", "A", "")
	dates.Add("20240101", "a", "A", "09:00")

	set, err := Build(tags, dates, DefaultOptions())

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"20240101.md", "index.md"}, set.Collisions)
}

func TestBuild_EscapingKeyIsFatal(t *testing.T) {
	tests := []string{"../up", "a/b", "/abs"}

	for _, key := range tests {
		t.Run(key, func(t *testing.T) {
			tags := index.New()
			tags.Add(key, "a", "A", "")

			_, err := Build(tags, index.New(), DefaultOptions())

			require.Error(t, err)
			assert.Equal(t, nerrors.ErrCodeInvalidKeyPath, nerrors.GetCode(err))
			assert.True(t, nerrors.IsFatal(err))
		})
	}
}

func TestWriter_Write(t *testing.T) {
	// Given: an output directory with a stale page
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.md"), []byte("old"), 0o644))
	w := NewWriter(dir)

	docs := []Document{
		{Name: "go.md", Content: "new go"},
		{Name: "index.md", Content: "master"},
	}

	// When: writing
	written, err := w.Write(context.Background(), docs)

	// Then: both files hold the new content
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "go.md"), filepath.Join(dir, "index.md")}, written)

	data, err := os.ReadFile(filepath.Join(dir, "go.md"))
	require.NoError(t, err)
	assert.Equal(t, "new go", string(data))
	assert.Equal(t, dir, w.Dir())
}

func TestWriter_InvalidNameWritesNothing(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	_, err := w.Write(context.Background(), []Document{
		{Name: "ok.md", Content: "x"},
		{Name: "../escape.md", Content: "y"},
	})

	require.Error(t, err)
	assert.Equal(t, nerrors.ErrCodeInvalidKeyPath, nerrors.GetCode(err))
	_, statErr := os.Stat(filepath.Join(dir, "ok.md"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriter_MissingDirectoryIsFatal(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	w := NewWriter(dir)

	_, err := w.Write(context.Background(), []Document{{Name: "a.md", Content: "x"}})

	require.Error(t, err)
	ne, ok := nerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, nerrors.ErrCodeOutputWrite, ne.Code)
	assert.Equal(t, filepath.Join(dir, "a.md"), ne.Details["path"])
	assert.True(t, nerrors.IsFatal(err))
}

func TestWriter_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	written, err := NewWriter(t.TempDir()).Write(ctx, []Document{{Name: "a.md", Content: "x"}})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, written)
}
