// Package overview implements negotiation and parsing of NNTP overview
// data: the LIST OVERVIEW.FMT descriptor and the tab-delimited records
// returned by OVER and XOVER.
package overview

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidFormat     = errors.New("nntp: invalid overview format")
	ErrMissingHeaderName = errors.New("nntp: extended overview field missing header-name prefix")
	ErrBadArticleNumber  = errors.New("nntp: bad article number in overview record")
)

// defaultFields are the seven fields every conforming server reports first,
// in this exact order (RFC 3977 section 8.4).
var defaultFields = [...]string{
	"subject",
	"from",
	"date",
	"message-id",
	"references",
	":bytes",
	":lines",
}

// aliases maps pre-standard spellings of the two metadata items to their
// canonical names.
var aliases = map[string]string{
	"bytes": ":bytes",
	"lines": ":lines",
}

// Format is an ordered overview field descriptor. Names beginning with ":"
// are metadata items synthesized by the server; all others are article
// headers.
type Format []string

// Default returns the canonical seven-field descriptor.
func Default() Format {
	f := make(Format, len(defaultFields))
	copy(f, defaultFields[:])
	return f
}

// IsMetadata reports whether the descriptor entry at index i names a
// metadata item rather than an article header.
func (f Format) IsMetadata(i int) bool {
	return i < len(f) && strings.HasPrefix(f[i], ":")
}

// ParseFormat normalizes and validates the payload of LIST OVERVIEW.FMT.
// The first seven normalized entries must equal the canonical defaults;
// entries past the seventh must be article headers.
func ParseFormat(lines []string) (Format, error) {
	f := make(Format, 0, len(lines))
	for _, line := range lines {
		name := normalizeField(line)
		if name == "" {
			continue
		}
		f = append(f, name)
	}

	if len(f) < len(defaultFields) {
		return nil, fmt.Errorf("%w: only %d fields", ErrInvalidFormat, len(f))
	}
	for i, want := range defaultFields {
		if f[i] != want {
			return nil, fmt.Errorf("%w: field %d is %q, want %q", ErrInvalidFormat, i, f[i], want)
		}
	}
	for i := len(defaultFields); i < len(f); i++ {
		if strings.HasPrefix(f[i], ":") {
			return nil, fmt.Errorf("%w: metadata item %q after the default fields", ErrInvalidFormat, f[i])
		}
	}
	return f, nil
}

// normalizeField reduces one LIST OVERVIEW.FMT line to a descriptor entry.
func normalizeField(line string) string {
	line = strings.TrimRight(line, " \t\r")
	if line == "" {
		return ""
	}

	var name string
	if line[0] == ':' {
		// Metadata entry, e.g. ":bytes" or ":bytes:".
		rest := line[1:]
		if i := strings.IndexByte(rest, ':'); i >= 0 {
			rest = rest[:i]
		}
		name = ":" + rest
	} else {
		// Header entry, e.g. "Subject:" or "Xref:full".
		name = line
		if i := strings.IndexByte(line, ':'); i >= 0 {
			name = line[:i]
		}
	}

	name = strings.ToLower(name)
	if canonical, ok := aliases[name]; ok {
		name = canonical
	}
	return name
}

// HeaderDecoder decodes a raw header value (RFC 2047 words and the like)
// into a display string. It is applied to extended header fields only; the
// seven default fields are delivered raw.
type HeaderDecoder func(raw string) string

// Record is one parsed overview line: an article number and the field
// values keyed by descriptor entry name.
type Record struct {
	Number int64
	Fields map[string]string
}

// Get returns the value of the named field, or "" when absent.
func (r *Record) Get(name string) string {
	return r.Fields[strings.ToLower(name)]
}

// ParseRecord parses a single tab-delimited overview line against format.
// Fields past the descriptor length are discarded; extended header fields
// must echo their header name, which is stripped.
func ParseRecord(line string, format Format, decode HeaderDecoder) (Record, error) {
	parts := strings.Split(line, "\t")

	number, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %q", ErrBadArticleNumber, parts[0])
	}

	rec := Record{Number: number, Fields: make(map[string]string, len(format))}
	values := parts[1:]
	for i, name := range format {
		if i >= len(values) {
			break
		}
		value := values[i]
		if i >= len(defaultFields) && !format.IsMetadata(i) {
			value, err = stripHeaderName(name, value)
			if err != nil {
				return Record{}, err
			}
			if decode != nil {
				value = decode(value)
			}
		}
		rec.Fields[name] = value
	}
	return rec, nil
}

// ParseRecords parses an OVER/XOVER payload. Empty lines produced by CRLF
// boundary noise are skipped.
func ParseRecords(lines []string, format Format, decode HeaderDecoder) ([]Record, error) {
	records := make([]Record, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, err := ParseRecord(line, format, decode)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// stripHeaderName removes the "Name: " echo an extended header field
// carries in overview records.
func stripHeaderName(name, value string) (string, error) {
	if value == "" {
		// Servers leave extended fields blank for articles lacking the
		// header; there is no prefix to strip.
		return "", nil
	}
	prefix := name + ":"
	if len(value) < len(prefix) || !strings.EqualFold(value[:len(prefix)], prefix) {
		return "", fmt.Errorf("%w: field %q value %q", ErrMissingHeaderName, name, value)
	}
	rest := value[len(prefix):]
	if !strings.HasPrefix(rest, " ") {
		return "", fmt.Errorf("%w: field %q value %q", ErrMissingHeaderName, name, value)
	}
	return rest[1:], nil
}
