package magpie

import (
	"bytes"
	stdio "io"
	"strings"
)

// Header is a single article header field.
type Header struct {
	Name  string
	Value string
}

// Headers is an ordered list of article header fields. Order is preserved
// as received; RFC 3977 says nothing about duplicate fields being
// equivalent to a joined value, so duplicates are kept separate.
type Headers []Header

// Get returns the first value of the named header, matched
// case-insensitively, or "" when absent.
func (h Headers) Get(name string) string {
	for i := range h {
		if strings.EqualFold(h[i].Name, name) {
			return h[i].Value
		}
	}
	return ""
}

// Has reports whether the named header is present.
func (h Headers) Has(name string) bool {
	for i := range h {
		if strings.EqualFold(h[i].Name, name) {
			return true
		}
	}
	return false
}

// Article is a news article: its headers and body, plus the article number
// and message-id reported by the server when the article was retrieved.
type Article struct {
	Number    int64
	MessageID string
	Headers   Headers
	Body      []byte
}

// parseArticleLines splits an ARTICLE payload at the first blank line and
// parses the header section. Folded headers (continuation lines beginning
// with whitespace) are unfolded with a single space.
func parseArticleLines(lines []string) (Headers, []byte) {
	sep := -1
	for i, line := range lines {
		if line == "" {
			sep = i
			break
		}
	}

	var headerLines, bodyLines []string
	if sep < 0 {
		// No blank line: the payload is all headers (HEAD) or the
		// article is malformed; either way there is no body.
		headerLines = lines
	} else {
		headerLines = lines[:sep]
		bodyLines = lines[sep+1:]
	}

	headers := parseHeaderLines(headerLines)

	if bodyLines == nil {
		return headers, nil
	}
	var body bytes.Buffer
	for _, line := range bodyLines {
		body.WriteString(line)
		body.WriteString("\r\n")
	}
	return headers, body.Bytes()
}

// parseHeaderLines parses "Name: value" header lines, preserving order.
func parseHeaderLines(lines []string) Headers {
	headers := make(Headers, 0, len(lines))

	var currentName, currentValue string
	for _, line := range lines {
		if line == "" {
			continue
		}

		if line[0] == ' ' || line[0] == '\t' {
			// Continuation of the previous header (folded per RFC 5322).
			if currentName != "" {
				currentValue += " " + strings.TrimSpace(line)
			}
			continue
		}

		if currentName != "" {
			headers = append(headers, Header{Name: currentName, Value: currentValue})
		}

		if name, value, found := strings.Cut(line, ":"); found {
			currentName = strings.TrimSpace(name)
			currentValue = strings.TrimSpace(value)
		} else {
			// Malformed header line, skip it
			currentName = ""
			currentValue = ""
		}
	}

	if currentName != "" {
		headers = append(headers, Header{Name: currentName, Value: currentValue})
	}

	return headers
}

// WriteTo writes the article in wire-ready text form: headers, a blank
// separator line, and the body. Dot-stuffing is not applied here; POST and
// IHAVE stuff the stream as it is written to the wire.
func (a *Article) WriteTo(w stdio.Writer) (int64, error) {
	var buf bytes.Buffer
	for _, h := range a.Headers {
		buf.WriteString(h.Name)
		buf.WriteString(": ")
		buf.WriteString(h.Value)
		buf.WriteString("\r\n")
	}
	buf.WriteString("\r\n")
	buf.Write(a.Body)

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// reader returns the article's wire-ready text form as a stream.
func (a *Article) reader() stdio.Reader {
	var buf bytes.Buffer
	a.WriteTo(&buf)
	return &buf
}
