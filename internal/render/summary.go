package render

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	nerrors "github.com/Aman-CERP/notedex/internal/errors"
	"github.com/Aman-CERP/notedex/internal/index"
)

// MasterIndexName is the file name of the master index.
const MasterIndexName = "index" + PageExt

// Default column layout of the master index sections.
const (
	DefaultTagColumns  = 5
	DefaultDateColumns = 7
)

// Options controls the column layout of the master index.
type Options struct {
	Tags  ColumnFormatter
	Dates ColumnFormatter
}

// DefaultOptions returns 5 tag columns and 7 date columns, both padded by 2.
func DefaultOptions() Options {
	return Options{
		Tags:  NewColumnFormatter(DefaultTagColumns),
		Dates: NewColumnFormatter(DefaultDateColumns),
	}
}

// KeyCount pairs a key with the number of postings filed under it.
type KeyCount struct {
	Key   string
	Count int
}

// TagCounts returns every tag with its count, most used first.
// Equal counts are ordered by key.
func TagCounts(ix *index.InvertedIndex) []KeyCount {
	counts := make([]KeyCount, 0, ix.Len())
	for _, key := range ix.SortedKeys() {
		counts = append(counts, KeyCount{Key: key, Count: ix.Count(key)})
	}
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	return counts
}

// DateCounts returns every date with its count, newest first by numeric
// value. Keys that parse to the same value are ordered by key. A key that is
// not an unsigned integer fails with ErrCodeInvalidDateKey.
func DateCounts(ix *index.InvertedIndex) ([]KeyCount, error) {
	type dated struct {
		KeyCount
		value uint64
	}

	keys := ix.SortedKeys()
	all := make([]dated, 0, len(keys))
	for _, key := range keys {
		v, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return nil, nerrors.New(nerrors.ErrCodeInvalidDateKey,
				fmt.Sprintf("date %q is not a number", key), err).
				WithDetail("date", key).
				WithSuggestion("write the Created line as 'Created: YYYYMMDD HH:MM'")
		}
		all = append(all, dated{KeyCount: KeyCount{Key: key, Count: ix.Count(key)}, value: v})
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].value > all[j].value
	})

	counts := make([]KeyCount, len(all))
	for i, d := range all {
		counts[i] = d.KeyCount
	}
	return counts, nil
}

// TagTokens renders tag counts as "key(count)".
func TagTokens(counts []KeyCount) []string {
	tokens := make([]string, len(counts))
	for i, c := range counts {
		tokens[i] = fmt.Sprintf("%s(%d)", c.Key, c.Count)
	}
	return tokens
}

// DateTokens renders date counts as "[[date]](count)".
func DateTokens(counts []KeyCount) []string {
	tokens := make([]string, len(counts))
	for i, c := range counts {
		tokens[i] = fmt.Sprintf("[[%s]](%d)", c.Key, c.Count)
	}
	return tokens
}

// MasterIndex renders index.md from both indexes.
func MasterIndex(tags, dates *index.InvertedIndex, opts Options) (Document, error) {
	dateCounts, err := DateCounts(dates)
	if err != nil {
		return Document{}, err
	}

	var b strings.Builder
	pageHeader(&b, "index")

	b.WriteString("# Tags\n")
	b.WriteString(opts.Tags.Format(TagTokens(TagCounts(tags))))
	b.WriteString("\n")

	b.WriteString("# Dates\n")
	b.WriteString(opts.Dates.Format(DateTokens(dateCounts)))
	b.WriteString("\n")

	return Document{Name: MasterIndexName, Content: b.String()}, nil
}
