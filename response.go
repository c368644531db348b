package magpie

import "fmt"

// Response represents a parsed NNTP server reply: the status line, and for
// long replies the dot-terminated payload that followed it.
type Response struct {
	Code    NNTPCode
	Message string   // text after the status code
	Raw     string   // full status line as received
	Lines   []string // multi-line payload; nil for short replies
}

// IsInformational returns true for 1xx codes.
func (r *Response) IsInformational() bool {
	return r.Code >= 100 && r.Code < 200
}

// IsSuccess returns true for 2xx codes.
func (r *Response) IsSuccess() bool {
	return r.Code >= 200 && r.Code < 300
}

// IsIntermediate returns true for 3xx codes (send article, password
// required, proceed with TLS).
func (r *Response) IsIntermediate() bool {
	return r.Code >= 300 && r.Code < 400
}

// IsTransientError returns true for 4xx codes.
func (r *Response) IsTransientError() bool {
	return r.Code >= 400 && r.Code < 500
}

// IsPermanentError returns true for 5xx codes.
func (r *Response) IsPermanentError() bool {
	return r.Code >= 500 && r.Code < 600
}

// Err returns the reply as an error if it indicates failure.
func (r *Response) Err() error {
	if !r.IsTransientError() && !r.IsPermanentError() {
		return nil
	}
	return &NNTPError{
		Code:    r.Code,
		Message: r.Message,
		Line:    r.Raw,
	}
}

// parseResponseLine parses a reply status line: three ASCII digits followed
// by a space (or end of line) and the reply text.
func parseResponseLine(line string) (*Response, error) {
	if len(line) < 3 {
		return nil, ProtocolError(fmt.Sprintf("short status line %q", line))
	}

	code := 0
	for i := 0; i < 3; i++ {
		d := line[i]
		if d < '0' || d > '9' {
			return nil, ProtocolError(fmt.Sprintf("malformed status line %q", line))
		}
		code = code*10 + int(d-'0')
	}
	if len(line) > 3 && line[3] != ' ' {
		return nil, ProtocolError(fmt.Sprintf("malformed status line %q", line))
	}
	if code < 100 || code > 599 {
		return nil, ProtocolError(fmt.Sprintf("status code %d out of range", code))
	}

	message := ""
	if len(line) > 4 {
		message = line[4:]
	}

	return &Response{
		Code:    NNTPCode(code),
		Message: message,
		Raw:     line,
	}, nil
}

// isLongReply reports whether code admits a multi-line payload. extra names
// a code that is long for the issued command only (211 after LISTGROUP).
func isLongReply(code, extra NNTPCode) bool {
	if extra != 0 && code == extra {
		return true
	}
	return longReplyCodes[code]
}
