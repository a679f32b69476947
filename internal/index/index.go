// Package index provides the inverted index that maps a normalized key
// (a tag or a date) to the notes carrying it.
package index

import (
	"sort"
	"strings"
	"sync"
)

// DocumentRef is a single posting: one note filed under one key.
type DocumentRef struct {
	// DocumentID is the note's file name without extension.
	DocumentID string

	// Title is the note's human-readable heading.
	Title string

	// SortField is key-specific extra data. Empty for tag postings,
	// the time of day for date postings.
	SortField string
}

// InvertedIndex maps keys to ordered posting lists.
// It is safe for concurrent use; concurrent Add calls are serialized.
type InvertedIndex struct {
	mu       sync.RWMutex
	keys     map[string]struct{}
	postings map[string][]DocumentRef
}

// New creates an empty InvertedIndex.
func New() *InvertedIndex {
	return &InvertedIndex{
		keys:     make(map[string]struct{}),
		postings: make(map[string][]DocumentRef),
	}
}

// Normalize trims surrounding whitespace and lower-cases a raw key.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Add files a document under rawKey. Keys that normalize to the empty
// string are dropped silently.
func (ix *InvertedIndex) Add(rawKey, documentID, title, sortField string) {
	key := Normalize(rawKey)
	if key == "" {
		return
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.keys[key] = struct{}{}
	ix.postings[key] = append(ix.postings[key], DocumentRef{
		DocumentID: documentID,
		Title:      title,
		SortField:  sortField,
	})
}

// AddMany calls Add once per raw key, in order. sortField describes the
// document, so it is the same for every key.
func (ix *InvertedIndex) AddMany(rawKeys []string, documentID, title, sortField string) {
	for _, k := range rawKeys {
		ix.Add(k, documentID, title, sortField)
	}
}

// Postings returns a copy of the posting list for rawKey in insertion order.
// ok is false when the key was never inserted.
func (ix *InvertedIndex) Postings(rawKey string) (refs []DocumentRef, ok bool) {
	key := Normalize(rawKey)

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	list, ok := ix.postings[key]
	if !ok {
		return nil, false
	}
	refs = make([]DocumentRef, len(list))
	copy(refs, list)
	return refs, true
}

// Count returns the number of postings for rawKey, 0 if absent.
func (ix *InvertedIndex) Count(rawKey string) int {
	key := Normalize(rawKey)

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.postings[key])
}

// Keys returns a copy of the key set.
func (ix *InvertedIndex) Keys() map[string]struct{} {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	out := make(map[string]struct{}, len(ix.keys))
	for k := range ix.keys {
		out[k] = struct{}{}
	}
	return out
}

// SortedKeys returns every key in lexicographic order.
func (ix *InvertedIndex) SortedKeys() []string {
	ix.mu.RLock()
	out := make([]string, 0, len(ix.keys))
	for k := range ix.keys {
		out = append(out, k)
	}
	ix.mu.RUnlock()

	sort.Strings(out)
	return out
}

// Len returns the number of distinct keys.
func (ix *InvertedIndex) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.keys)
}
