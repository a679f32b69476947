// Package render turns populated inverted indexes into the generated
// documents: one page per key and the master index.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Aman-CERP/notedex/internal/index"
)

// PageExt is the extension of every generated document.
const PageExt = ".md"

// ListMarker precedes the cross-reference lines of a key page.
const ListMarker = "#list"

// Document is one generated file: its name inside the output directory and
// its full content.
type Document struct {
	Name    string
	Content string
}

// pageHeader writes the front matter shared by key pages and the master index.
func pageHeader(b *strings.Builder, title string) {
	fmt.Fprintf(b, "---\nTitle: %s\n---\n\n", title)
}

// TagPage renders the page for one tag. Postings keep insertion order.
func TagPage(key string, refs []index.DocumentRef) Document {
	var b strings.Builder
	pageHeader(&b, key)
	b.WriteString(ListMarker + "\n")
	for _, ref := range refs {
		fmt.Fprintf(&b, "[[%s|%s]]\n", ref.DocumentID, ref.Title)
	}
	return Document{Name: key + PageExt, Content: b.String()}
}

// DatePage renders the page for one date. Postings are ordered by time of day
// (byte-wise on SortField); notes created at the same time keep insertion
// order.
func DatePage(key string, refs []index.DocumentRef) Document {
	sorted := make([]index.DocumentRef, len(refs))
	copy(sorted, refs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SortField < sorted[j].SortField
	})

	var b strings.Builder
	pageHeader(&b, key)
	b.WriteString(ListMarker + "\n")
	for _, ref := range sorted {
		fmt.Fprintf(&b, "[[%s|%s|%s]]\n", ref.DocumentID, ref.SortField, ref.Title)
	}
	return Document{Name: key + PageExt, Content: b.String()}
}

// TagPages renders one page per tag in key order.
func TagPages(ix *index.InvertedIndex) []Document {
	return pages(ix, TagPage)
}

// DatePages renders one page per date in key order.
func DatePages(ix *index.InvertedIndex) []Document {
	return pages(ix, DatePage)
}

func pages(ix *index.InvertedIndex, page func(string, []index.DocumentRef) Document) []Document {
	keys := ix.SortedKeys()
	docs := make([]Document, 0, len(keys))
	for _, key := range keys {
		refs, _ := ix.Postings(key)
		docs = append(docs, page(key, refs))
	}
	return docs
}
