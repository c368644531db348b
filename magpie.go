// Package magpie provides an RFC-compliant NNTP client library for Go.
//
// Magpie is designed for building news readers, binary downloaders, and
// feed tooling with a focus on protocol correctness: strict line framing,
// dot-stuffed multi-line payloads, capability tracking, and in-band TLS
// upgrade over an established connection.
//
// # Features
//
//   - Full RFC 3977 reader command set plus the deployed pre-standard
//     extensions: XOVER, XHDR, XGTITLE, XSECRET
//   - STARTTLS (RFC 4642) and implicit TLS (NNTPS) with strict upgrade
//     semantics
//   - AUTHINFO USER/PASS authentication (RFC 4643)
//   - Capability cache with automatic invalidation after MODE READER,
//     authentication, and TLS upgrade
//   - LIST OVERVIEW.FMT negotiation with validation and alias
//     normalization; tab-delimited overview parsing
//   - Dot-stuffing on POST/IHAVE and un-stuffing on retrieval
//   - Wire tracing and structured logging with slog integration
//
// # Quick Start
//
// Connect, select a group, and fetch an overview range:
//
//	client := magpie.NewClient(nil)
//	if err := client.Dial("news.example.com:119"); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Quit()
//
//	group, err := client.SelectGroup("misc.test")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	records, err := client.Over(group.First, group.Last)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, rec := range records {
//	    fmt.Println(rec.Number, rec.Get("subject"))
//	}
//
// # One-call Session Setup
//
// The Dialer bundles connect, TLS negotiation, reader mode, and login:
//
//	dialer := magpie.NewDialer("news.example.com", 0)
//	dialer.TLSMode = magpie.TLSModeStartTLSRequired
//	dialer.Username = "alice"
//	dialer.Password = "s3cret"
//	dialer.ReaderMode = true
//
//	client, err := dialer.Dial()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Quit()
//
// # Posting
//
// Build an article and post it; a Message-ID is generated when absent:
//
//	article, err := magpie.NewArticleBuilder().
//	    From("alice@example.com").
//	    Newsgroups("misc.test").
//	    Subject("hello").
//	    Body("first post\n").
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := client.Post(article); err != nil {
//	    log.Fatal(err)
//	}
//
// # Concurrency
//
// A Client is single-owner. Commands are atomic on the wire; a command
// issued while another is awaiting its response fails with
// ErrCommandInFlight instead of being queued, so wire traffic always
// matches call order.
//
// # RFC Compliance
//
// Magpie implements the following RFCs:
//
//   - RFC 3977: Network News Transfer Protocol
//   - RFC 4642: Using TLS with NNTP
//   - RFC 4643: NNTP Extension for Authentication
//   - RFC 2980: Common NNTP Extensions (XOVER, XHDR, XGTITLE)
package magpie
