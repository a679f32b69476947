package header

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nerrors "github.com/Aman-CERP/notedex/internal/errors"
)

const fullNote = `---
Title: Go Generics
Modified: 20240102
Created: 20240101 09:15
Tags: go Generics  notes
body text
`

func TestParse_FullHeader(t *testing.T) {
	// Given: a note with a complete header
	// When: parsing it
	res, err := Parse(strings.NewReader(fullNote), "generics")

	// Then: every field is extracted
	require.NoError(t, err)
	assert.Equal(t, OutcomeRecord, res.Outcome)

	rec := res.Record
	assert.Equal(t, "generics", rec.DocumentID)
	assert.Equal(t, "Go Generics", rec.Title)
	assert.True(t, rec.HasCreated)
	assert.Equal(t, "20240101", rec.CreatedDate)
	assert.Equal(t, "09:15", rec.CreatedTime)
	assert.Equal(t, []string{"go", "Generics", "notes"}, rec.Tags)
	assert.Empty(t, rec.Warnings)
}

func TestParse_GeneratedPage(t *testing.T) {
	// Given: a page written by a previous run
	page := "---\nTitle: go\n---\n\n#list\n[[a|A]]\n"

	// When: parsing it
	res, err := Parse(strings.NewReader(page), "go")

	// Then: it is reported as generated and carries no data
	require.NoError(t, err)
	assert.Equal(t, OutcomeGenerated, res.Outcome)
	assert.False(t, res.Record.HasCreated)
	assert.Empty(t, res.Record.Tags)
}

func TestParse_CreatedWithoutTokensIsFatal(t *testing.T) {
	note := "---\nTitle: x\n\nCreated:   \nTags: a\n"

	_, err := Parse(strings.NewReader(note), "x")

	require.Error(t, err)
	assert.Equal(t, nerrors.ErrCodeMissingCreated, nerrors.GetCode(err))
	assert.True(t, nerrors.IsFatal(err))
}

func TestParse_CreatedDateOnly(t *testing.T) {
	note := "---\nTitle: x\n\nCreated: 20240101\nTags: a\n"

	res, err := Parse(strings.NewReader(note), "x")

	require.NoError(t, err)
	assert.True(t, res.Record.HasCreated)
	assert.Equal(t, "20240101", res.Record.CreatedDate)
	assert.Equal(t, "", res.Record.CreatedTime)
}

func TestParse_MissingFieldsAreWarnings(t *testing.T) {
	tests := []struct {
		name        string
		note        string
		wantCreated bool
		wantTags    []string
		wantTitle   string
		wantCodes   []string
	}{
		{
			name:        "missing tags still allows date",
			note:        "---\nTitle: T\n\nCreated: 20240101 10:00\nLabels: a b\n",
			wantCreated: true,
			wantTitle:   "T",
			wantCodes:   []string{nerrors.ErrCodeMissingField},
		},
		{
			name:      "missing created keeps tags",
			note:      "---\nTitle: T\n\nWhen: today\nTags: a b\n",
			wantTags:  []string{"a", "b"},
			wantTitle: "T",
			wantCodes: []string{nerrors.ErrCodeMissingField},
		},
		{
			name:        "missing title",
			note:        "---\nName: T\n\nCreated: 1 2\nTags: a\n",
			wantCreated: true,
			wantTags:    []string{"a"},
			wantCodes:   []string{nerrors.ErrCodeMissingField},
		},
		{
			name:        "empty tags line",
			note:        "---\nTitle: T\n\nCreated: 1 2\nTags:\n",
			wantCreated: true,
			wantTitle:   "T",
			wantCodes:   []string{nerrors.ErrCodeMissingField},
		},
		{
			name:        "short header keeps what was found",
			note:        "---\nTitle: T\n\nCreated: 20240101 08:00\n",
			wantCreated: true,
			wantTitle:   "T",
			wantCodes:   []string{nerrors.ErrCodeShortHeader},
		},
		{
			name:      "empty file",
			note:      "",
			wantCodes: []string{nerrors.ErrCodeShortHeader},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Parse(strings.NewReader(tt.note), "doc")
			require.NoError(t, err)

			rec := res.Record
			assert.Equal(t, tt.wantCreated, rec.HasCreated)
			assert.Equal(t, tt.wantTags, rec.Tags)
			assert.Equal(t, tt.wantTitle, rec.Title)

			var codes []string
			for _, w := range rec.Warnings {
				codes = append(codes, nerrors.GetCode(w))
			}
			assert.Equal(t, tt.wantCodes, codes)
		})
	}
}

func TestParse_OnlyFirstFiveLinesRead(t *testing.T) {
	// Given: a Tags line below the header region
	note := "---\nTitle: T\n\nCreated: 1 2\nbody\nTags: late\n"

	res, err := Parse(strings.NewReader(note), "doc")

	require.NoError(t, err)
	assert.Empty(t, res.Record.Tags)
}

func TestParse_CRLFLineEndings(t *testing.T) {
	note := "---\r\nTitle: Windows Note\r\n\r\nCreated: 20240101 07:30\r\nTags: win\r\n"

	res, err := Parse(strings.NewReader(note), "win")

	require.NoError(t, err)
	assert.Equal(t, "Windows Note", res.Record.Title)
	assert.Equal(t, "07:30", res.Record.CreatedTime)
	assert.Equal(t, []string{"win"}, res.Record.Tags)
}

func TestParse_LongTagsLine(t *testing.T) {
	// Given: a Tags line far longer than a default scanner buffer
	note := "---\nTitle: Long\n\nCreated: 20240103 10:00\nTags: big" +
		strings.Repeat(" ", 70000) + "trail\n"

	// When: parsing it
	res, err := Parse(strings.NewReader(note), "long")

	// Then: every field is extracted
	require.NoError(t, err)
	assert.Equal(t, "20240103", res.Record.CreatedDate)
	assert.Equal(t, []string{"big", "trail"}, res.Record.Tags)
	assert.Empty(t, res.Record.Warnings)
}

func TestParse_LastLineWithoutNewline(t *testing.T) {
	res, err := Parse(strings.NewReader("---\nTitle: T\n\nCreated: 1 2\nTags: a b"), "doc")

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, res.Record.Tags)
	assert.Empty(t, res.Record.Warnings)
}

func TestParse_ReadFailureKeepsParsedFields(t *testing.T) {
	// Given: a reader that fails after the Created line
	r := io.MultiReader(
		strings.NewReader("---\nTitle: Cut\n\nCreated: 20240103 10:00\n"),
		iotest.ErrReader(errors.New("device gone")),
	)

	// When: parsing it
	res, err := Parse(r, "cut")

	// Then: the date survives and the failure is a read warning
	require.NoError(t, err)
	assert.True(t, res.Record.HasCreated)
	assert.Equal(t, "20240103", res.Record.CreatedDate)
	require.Len(t, res.Record.Warnings, 1)
	assert.Equal(t, nerrors.ErrCodeFileRead, nerrors.GetCode(res.Record.Warnings[0]))
	assert.ErrorContains(t, res.Record.Warnings[0], "device gone")
}

func TestDocumentID(t *testing.T) {
	assert.Equal(t, "note", DocumentID("/a/b/note.md"))
	assert.Equal(t, "my.note", DocumentID("my.note.md"))
	assert.Equal(t, "plain", DocumentID("plain"))
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "generics.md")
	require.NoError(t, os.WriteFile(path, []byte(fullNote), 0o644))

	res, err := ParseFile(path)

	require.NoError(t, err)
	assert.Equal(t, "generics", res.Record.DocumentID)
	assert.Equal(t, "Go Generics", res.Record.Title)
}

func TestParseFile_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.md")

	_, err := ParseFile(path)

	require.Error(t, err)
	ne, ok := nerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, path, ne.Details["path"])
	assert.False(t, nerrors.IsFatal(err))
}

func TestParseFile_FatalCarriesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.md")
	require.NoError(t, os.WriteFile(path, []byte("---\nTitle: x\n\nCreated:\n"), 0o644))

	_, err := ParseFile(path)

	require.Error(t, err)
	ne, ok := nerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, nerrors.ErrCodeMissingCreated, ne.Code)
	assert.Equal(t, path, ne.Details["path"])
}
