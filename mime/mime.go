// Package mime provides header decoding helpers for NNTP overview and
// article header values.
package mime

import (
	stdmime "mime"
	"strings"
)

// DecodeHeader decodes RFC 2047 encoded words in a header value. Input that
// does not decode cleanly is returned unchanged; a header digest is more
// useful raw than lost.
func DecodeHeader(raw string) string {
	if !strings.Contains(raw, "=?") {
		return raw
	}
	dec := &stdmime.WordDecoder{}
	decoded, err := dec.DecodeHeader(raw)
	if err != nil {
		return raw
	}
	return decoded
}
