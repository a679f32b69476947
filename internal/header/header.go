// Package header extracts the fixed-line header from a note.
//
// A note starts with a five-line header:
//
//	---
//	Title: <title>
//	<anything but a fence>
//	Created: <date> <time>
//	Tags: <tag> <tag> ...
//
// Pages generated by notedex itself carry a closing "---" fence on line 2;
// they are reported as generated and never indexed.
package header

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	nerrors "github.com/Aman-CERP/notedex/internal/errors"
)

// HeaderLines is the number of lines read from the top of a note.
const HeaderLines = 5

// Line positions and prefixes of the header fields.
const (
	titleLine   = 1
	fenceLine   = 2
	createdLine = 3
	tagsLine    = 4

	titlePrefix   = "Title: "
	fencePrefix   = "---"
	createdPrefix = "Created:"
	tagsPrefix    = "Tags:"
)

// Record is the structured header of one note.
type Record struct {
	// DocumentID is the file name without extension.
	DocumentID string

	// Title is the text after "Title: ", empty when the line is missing.
	Title string

	// CreatedDate is the first token of the Created line.
	CreatedDate string

	// CreatedTime is the second token of the Created line, empty if absent.
	CreatedTime string

	// HasCreated reports whether a Created line was found.
	HasCreated bool

	// Tags are the whitespace-separated tokens of the Tags line.
	Tags []string

	// Warnings lists recoverable problems found while parsing.
	Warnings []error
}

// Outcome classifies the result of parsing one note.
type Outcome int

const (
	// OutcomeRecord means the note produced a (possibly partial) record.
	OutcomeRecord Outcome = iota
	// OutcomeGenerated means the note is a page generated by a previous run.
	OutcomeGenerated
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeRecord:
		return "record"
	case OutcomeGenerated:
		return "generated"
	default:
		return "unknown"
	}
}

// Result is returned by Parse.
type Result struct {
	Outcome Outcome
	Record  Record
}

// MalformedFunc is called for every note rejected as generated, with the
// path it was read from. Returning an error aborts the run.
type MalformedFunc func(path string) error

// DocumentID derives the document identifier from a file path by dropping
// the directory and the extension.
func DocumentID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Parse reads up to HeaderLines lines from r.
// Missing or mismatched fields become warnings on the record. A Created
// line without any token is a fatal error. Lines have no length limit; a
// read failure keeps the fields parsed before it and adds a warning.
func Parse(r io.Reader, documentID string) (Result, error) {
	res := Result{Outcome: OutcomeRecord, Record: Record{DocumentID: documentID}}
	rec := &res.Record

	br := bufio.NewReader(r)
	lineNo := 0
	for lineNo < HeaderLines {
		line, err := readLine(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			rec.Warnings = append(rec.Warnings, nerrors.New(nerrors.ErrCodeFileRead,
				fmt.Sprintf("note %q could not be read past line %d", documentID, lineNo), err).
				WithDetail("lines", fmt.Sprintf("%d", lineNo)))
			return res, nil
		}

		switch lineNo {
		case titleLine:
			if title, ok := strings.CutPrefix(line, titlePrefix); ok {
				rec.Title = title
			} else {
				rec.Warnings = append(rec.Warnings, missingField(documentID, "Title", lineNo))
			}
		case fenceLine:
			if strings.HasPrefix(line, fencePrefix) {
				res.Outcome = OutcomeGenerated
				return res, nil
			}
		case createdLine:
			if rest, ok := strings.CutPrefix(line, createdPrefix); ok {
				fields := strings.Fields(rest)
				if len(fields) == 0 {
					return res, nerrors.New(nerrors.ErrCodeMissingCreated,
						fmt.Sprintf("note %q has a Created line without date or time", documentID), nil).
						WithSuggestion("write the header as 'Created: <date> <time>'")
				}
				rec.HasCreated = true
				rec.CreatedDate = fields[0]
				if len(fields) > 1 {
					rec.CreatedTime = fields[1]
				}
			} else {
				rec.Warnings = append(rec.Warnings, missingField(documentID, "Created", lineNo))
			}
		case tagsLine:
			if rest, ok := strings.CutPrefix(line, tagsPrefix); ok {
				if tags := strings.Fields(rest); len(tags) > 0 {
					rec.Tags = tags
				} else {
					rec.Warnings = append(rec.Warnings, nerrors.New(nerrors.ErrCodeMissingField,
						fmt.Sprintf("note %q has an empty Tags line", documentID), nil))
				}
			} else {
				rec.Warnings = append(rec.Warnings, missingField(documentID, "Tags", lineNo))
			}
		}
		lineNo++
	}
	if lineNo < HeaderLines {
		rec.Warnings = append(rec.Warnings, nerrors.New(nerrors.ErrCodeShortHeader,
			fmt.Sprintf("note %q has only %d header lines", documentID, lineNo), nil).
			WithDetail("lines", fmt.Sprintf("%d", lineNo)))
	}

	return res, nil
}

// ParseFile opens path and parses its header. The returned error carries
// the path.
func ParseFile(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		code := nerrors.ErrCodeFileNotFound
		if os.IsPermission(err) {
			code = nerrors.ErrCodeFilePermission
		}
		return Result{}, nerrors.New(code, "cannot open note", err).WithPath(path)
	}
	defer func() { _ = f.Close() }()

	res, err := Parse(f, DocumentID(path))
	if err != nil {
		if ne, ok := nerrors.As(err); ok {
			return res, ne.WithPath(path)
		}
		return res, nerrors.New(nerrors.ErrCodeFileRead, "cannot read note", err).WithPath(path)
	}
	return res, nil
}

// readLine returns the next line without its line ending. A final line
// without a newline is returned as is; io.EOF is returned only once the
// input is exhausted.
func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	if err != nil {
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r"), nil
}

func missingField(documentID, field string, line int) error {
	return nerrors.New(nerrors.ErrCodeMissingField,
		fmt.Sprintf("note %q has no %s field on line %d", documentID, field, line+1), nil).
		WithDetail("field", field)
}
