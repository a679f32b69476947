package render

import (
	"path/filepath"

	nerrors "github.com/Aman-CERP/notedex/internal/errors"
	"github.com/Aman-CERP/notedex/internal/index"
)

// Set is the complete output of one run, built in memory before anything
// is written.
type Set struct {
	// Pages holds tag pages followed by date pages, each group in key order.
	Pages []Document

	// Index is the master index. It is written after every page.
	Index Document

	// Collisions lists document names produced more than once. The last
	// writer wins: dates over tags, the master index over both.
	Collisions []string
}

// Documents returns every document in write order.
func (s *Set) Documents() []Document {
	docs := make([]Document, 0, len(s.Pages)+1)
	docs = append(docs, s.Pages...)
	return append(docs, s.Index)
}

// Build renders every page and the master index. It fails before returning
// any document if a date key is not numeric or a key cannot be used as a
// file name inside the output directory.
func Build(tags, dates *index.InvertedIndex, opts Options) (*Set, error) {
	master, err := MasterIndex(tags, dates, opts)
	if err != nil {
		return nil, err
	}

	set := &Set{Index: master}
	set.Pages = append(set.Pages, TagPages(tags)...)
	set.Pages = append(set.Pages, DatePages(dates)...)

	seen := make(map[string]bool, len(set.Pages)+1)
	for _, doc := range set.Documents() {
		if err := ValidateName(doc.Name); err != nil {
			return nil, err
		}
		if seen[doc.Name] {
			set.Collisions = append(set.Collisions, doc.Name)
		}
		seen[doc.Name] = true
	}
	return set, nil
}

// ValidateName checks that a document name stays inside the output directory.
func ValidateName(name string) error {
	if !filepath.IsLocal(name) || filepath.Base(name) != name {
		return nerrors.New(nerrors.ErrCodeInvalidKeyPath,
			"key cannot be used as a page name", nil).
			WithDetail("name", name).
			WithSuggestion("remove path separators and '..' from tags and dates")
	}
	return nil
}
