package magpie

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Posting errors.
var (
	ErrNoFrom       = errors.New("nntp: article has no From header")
	ErrNoNewsgroups = errors.New("nntp: article has no Newsgroups header")
	ErrNoSubject    = errors.New("nntp: article has no Subject header")
)

// articleDateLayout is the RFC 5322 date form news articles carry.
const articleDateLayout = "Mon, 02 Jan 2006 15:04:05 -0700"

// ArticleBuilder assembles an article for posting. Missing Message-ID and
// Date headers are generated at Build time.
type ArticleBuilder struct {
	headers Headers
	body    []byte
	domain  string
	err     error
}

// NewArticleBuilder creates a new ArticleBuilder.
func NewArticleBuilder() *ArticleBuilder {
	return &ArticleBuilder{}
}

// From sets the From header.
func (b *ArticleBuilder) From(address string) *ArticleBuilder {
	return b.Header("From", address)
}

// Newsgroups sets the Newsgroups header.
func (b *ArticleBuilder) Newsgroups(groups ...string) *ArticleBuilder {
	if len(groups) == 0 {
		b.fail(ErrNoNewsgroups)
		return b
	}
	return b.Header("Newsgroups", strings.Join(groups, ","))
}

// Subject sets the Subject header.
func (b *ArticleBuilder) Subject(subject string) *ArticleBuilder {
	return b.Header("Subject", subject)
}

// References sets the References header for a follow-up article.
func (b *ArticleBuilder) References(messageIDs ...string) *ArticleBuilder {
	return b.Header("References", strings.Join(messageIDs, " "))
}

// MessageID sets an explicit Message-ID, overriding generation.
func (b *ArticleBuilder) MessageID(id string) *ArticleBuilder {
	if !strings.HasPrefix(id, "<") || !strings.HasSuffix(id, ">") {
		id = "<" + id + ">"
	}
	return b.Header("Message-ID", id)
}

// MessageIDDomain sets the domain used when generating a Message-ID.
// Default is "magpie.invalid".
func (b *ArticleBuilder) MessageIDDomain(domain string) *ArticleBuilder {
	b.domain = domain
	return b
}

// Header appends an arbitrary header field.
func (b *ArticleBuilder) Header(name, value string) *ArticleBuilder {
	if strings.ContainsAny(name, "\r\n:") || strings.ContainsAny(value, "\r\n") {
		b.fail(fmt.Errorf("%w: header %q", ErrInvalidArgument, name))
		return b
	}
	b.headers = append(b.headers, Header{Name: name, Value: value})
	return b
}

// Body sets the article body.
func (b *ArticleBuilder) Body(body string) *ArticleBuilder {
	b.body = []byte(body)
	return b
}

// BodyBytes sets the article body from a byte slice.
func (b *ArticleBuilder) BodyBytes(body []byte) *ArticleBuilder {
	b.body = body
	return b
}

func (b *ArticleBuilder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Build validates the required headers and produces the article. A
// Message-ID is generated from a ULID when none was supplied; likewise the
// Date header.
func (b *ArticleBuilder) Build() (*Article, error) {
	if b.err != nil {
		return nil, b.err
	}
	if !b.headers.Has("From") {
		return nil, ErrNoFrom
	}
	if !b.headers.Has("Newsgroups") {
		return nil, ErrNoNewsgroups
	}
	if !b.headers.Has("Subject") {
		return nil, ErrNoSubject
	}

	headers := make(Headers, len(b.headers))
	copy(headers, b.headers)

	if !headers.Has("Message-ID") {
		domain := b.domain
		if domain == "" {
			domain = "magpie.invalid"
		}
		id := fmt.Sprintf("<%s@%s>", ulid.Make().String(), domain)
		headers = append(headers, Header{Name: "Message-ID", Value: id})
	}
	if !headers.Has("Date") {
		headers = append(headers, Header{Name: "Date", Value: time.Now().UTC().Format(articleDateLayout)})
	}

	return &Article{
		MessageID: headers.Get("Message-ID"),
		Headers:   headers,
		Body:      b.body,
	}, nil
}
