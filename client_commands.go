package magpie

import (
	"bytes"
	"fmt"
	stdio "io"
	"strconv"
	"strings"
	"time"

	magpieio "github.com/synqronlabs/magpie/io"
	"github.com/synqronlabs/magpie/overview"
)

// ArticleRef identifies an article for HEAD, BODY, ARTICLE, STAT, and OVER:
// by number in the selected group, by message-id, or the currently selected
// article. The zero value refers to the current article.
type ArticleRef struct {
	number    int64
	messageID string
}

// ByNumber refers to an article by its number in the selected group.
func ByNumber(n int64) ArticleRef {
	return ArticleRef{number: n}
}

// ByMessageID refers to an article by message-id. Angle brackets are added
// when missing.
func ByMessageID(id string) ArticleRef {
	if !strings.HasPrefix(id, "<") || !strings.HasSuffix(id, ">") {
		id = "<" + id + ">"
	}
	return ArticleRef{messageID: id}
}

// CurrentArticle refers to the currently selected article.
func CurrentArticle() ArticleRef {
	return ArticleRef{}
}

// arg renders the reference as a command argument; "" for the current
// article.
func (r ArticleRef) arg() string {
	switch {
	case r.messageID != "":
		return r.messageID
	case r.number > 0:
		return strconv.FormatInt(r.number, 10)
	}
	return ""
}

func (r ArticleRef) String() string {
	if a := r.arg(); a != "" {
		return a
	}
	return "(current)"
}

// verbWithRef appends the optional article spec to a command verb.
func verbWithRef(verb string, ref ArticleRef) string {
	if a := ref.arg(); a != "" {
		return verb + " " + a
	}
	return verb
}

// rangeArg renders an article number range. last == 0 leaves the range
// open-ended.
func rangeArg(first, last int64) string {
	if last == 0 {
		return fmt.Sprintf("%d-", first)
	}
	return fmt.Sprintf("%d-%d", first, last)
}

// Group is the state of a newsgroup as reported by GROUP or LISTGROUP.
type Group struct {
	Raw   string // full status line
	Count int64
	First int64
	Last  int64
	Name  string
}

// Stat is the article number / message-id pair reported by STAT, NEXT,
// LAST, and the 22x replies to HEAD, BODY, and ARTICLE.
type Stat struct {
	Raw       string
	Number    int64
	MessageID string
}

// ActiveGroup is one line of LIST ACTIVE or NEWGROUPS output.
type ActiveGroup struct {
	Name   string
	High   int64
	Low    int64
	Status string
}

// GroupTitle is one line of LIST NEWSGROUPS or XGTITLE output.
type GroupTitle struct {
	Name  string
	Title string
}

// HeaderValue is one line of XHDR or HDR output. Malformed lines keep
// their raw text with empty Article and Value.
type HeaderValue struct {
	Article string // article number or message-id token
	Value   string
	Raw     string
}

// ---- group selection ----

// SelectGroup selects a newsgroup and returns its article counts. The
// group name is reported lowercase.
func (c *Client) SelectGroup(name string) (Group, error) {
	if err := c.beginCommand(); err != nil {
		return Group{}, err
	}
	defer c.endCommand()

	resp, err := c.cmd("GROUP %s", name)
	if err != nil {
		return Group{}, err
	}
	if err := expect(resp, "211", CodeGroupSelected); err != nil {
		return Group{}, err
	}
	return parseGroupStatus(resp)
}

// ListGroup selects a newsgroup and returns its article numbers. An empty
// name reuses the selected group. This is the one command for which a 211
// reply carries a multi-line payload.
func (c *Client) ListGroup(name string) (Group, []int64, error) {
	if err := c.beginCommand(); err != nil {
		return Group{}, nil, err
	}
	defer c.endCommand()

	verb := "LISTGROUP"
	if name != "" {
		verb += " " + name
	}
	resp, err := c.longCmd(CodeGroupSelected, verb)
	if err != nil {
		return Group{}, nil, err
	}
	if resp.Code != CodeGroupSelected {
		return Group{}, nil, &ReplyError{Code: resp.Code, Line: resp.Raw, Want: "211"}
	}

	group, err := parseGroupStatus(resp)
	if err != nil {
		return Group{}, nil, err
	}

	numbers := make([]int64, 0, len(resp.Lines))
	for _, line := range resp.Lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		n, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return Group{}, nil, &DataError{Reason: "bad article number in LISTGROUP", Detail: line}
		}
		numbers = append(numbers, n)
	}
	return group, numbers, nil
}

func parseGroupStatus(resp *Response) (Group, error) {
	fields := strings.Fields(resp.Message)
	if len(fields) < 4 {
		return Group{}, &DataError{Reason: "bad group status line", Detail: resp.Raw}
	}

	var nums [3]int64
	for i := range nums {
		n, err := strconv.ParseInt(fields[i], 10, 64)
		if err != nil {
			return Group{}, &DataError{Reason: "bad group status line", Detail: resp.Raw, Err: err}
		}
		nums[i] = n
	}

	return Group{
		Raw:   resp.Raw,
		Count: nums[0],
		First: nums[1],
		Last:  nums[2],
		Name:  strings.ToLower(fields[3]),
	}, nil
}

// ---- article selection ----

func (c *Client) statLike(verb string, ref ArticleRef) (Stat, error) {
	if err := c.beginCommand(); err != nil {
		return Stat{}, err
	}
	defer c.endCommand()

	resp, err := c.cmd("%s", verbWithRef(verb, ref))
	if err != nil {
		return Stat{}, err
	}
	if err := expect(resp, "223", CodeArticleSelected); err != nil {
		return Stat{}, err
	}
	return parseArticleStatus(resp)
}

// Stat checks the existence of an article and reports its number and
// message-id without transferring it.
func (c *Client) Stat(ref ArticleRef) (Stat, error) {
	return c.statLike("STAT", ref)
}

// Next selects the next article in the group.
func (c *Client) Next() (Stat, error) {
	return c.statLike("NEXT", CurrentArticle())
}

// Last selects the previous article in the group.
func (c *Client) Last() (Stat, error) {
	return c.statLike("LAST", CurrentArticle())
}

// parseArticleStatus parses the "n <message-id>" tokens of a 22x reply.
func parseArticleStatus(resp *Response) (Stat, error) {
	fields := strings.Fields(resp.Message)
	if len(fields) < 2 {
		return Stat{}, &DataError{Reason: "bad article status line", Detail: resp.Raw}
	}
	n, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Stat{}, &DataError{Reason: "bad article status line", Detail: resp.Raw, Err: err}
	}
	return Stat{Raw: resp.Raw, Number: n, MessageID: fields[1]}, nil
}

// ---- article retrieval ----

// GetArticle retrieves headers and body. The payload is split at the first
// blank line; headers are parsed as "Name: value" pairs in order.
func (c *Client) GetArticle(ref ArticleRef) (*Article, error) {
	if err := c.beginCommand(); err != nil {
		return nil, err
	}
	defer c.endCommand()

	resp, err := c.longCmd(0, "%s", verbWithRef("ARTICLE", ref))
	if err != nil {
		return nil, err
	}
	if resp.Code != CodeArticleFollows {
		return nil, &ReplyError{Code: resp.Code, Line: resp.Raw, Want: "220"}
	}
	stat, err := parseArticleStatus(resp)
	if err != nil {
		return nil, err
	}

	headers, body := parseArticleLines(resp.Lines)
	return &Article{
		Number:    stat.Number,
		MessageID: stat.MessageID,
		Headers:   headers,
		Body:      body,
	}, nil
}

// GetHead retrieves only the headers of an article.
func (c *Client) GetHead(ref ArticleRef) (*Article, error) {
	if err := c.beginCommand(); err != nil {
		return nil, err
	}
	defer c.endCommand()

	resp, err := c.longCmd(0, "%s", verbWithRef("HEAD", ref))
	if err != nil {
		return nil, err
	}
	if resp.Code != CodeHeadFollows {
		return nil, &ReplyError{Code: resp.Code, Line: resp.Raw, Want: "221"}
	}
	stat, err := parseArticleStatus(resp)
	if err != nil {
		return nil, err
	}

	headers, _ := parseArticleLines(resp.Lines)
	return &Article{
		Number:    stat.Number,
		MessageID: stat.MessageID,
		Headers:   headers,
	}, nil
}

// GetBody retrieves only the body of an article.
func (c *Client) GetBody(ref ArticleRef) (*Article, error) {
	var buf bytes.Buffer
	stat, err := c.BodyTo(ref, &buf)
	if err != nil {
		return nil, err
	}
	return &Article{
		Number:    stat.Number,
		MessageID: stat.MessageID,
		Body:      buf.Bytes(),
	}, nil
}

// BodyTo streams the body of an article into w, one CRLF-terminated line
// per write.
func (c *Client) BodyTo(ref ArticleRef, w stdio.Writer) (Stat, error) {
	if err := c.beginCommand(); err != nil {
		return Stat{}, err
	}
	defer c.endCommand()

	resp, err := c.longCmdTo(w, 0, "%s", verbWithRef("BODY", ref))
	if err != nil {
		return Stat{}, err
	}
	if resp.Code != CodeBodyFollows {
		return Stat{}, &ReplyError{Code: resp.Code, Line: resp.Raw, Want: "222"}
	}
	return parseArticleStatus(resp)
}

// ---- listings ----

// List lists the active newsgroups, optionally filtered by a wildmat
// pattern.
func (c *Client) List(pattern string) ([]ActiveGroup, error) {
	verb := "LIST"
	if pattern != "" {
		verb = "LIST ACTIVE " + pattern
	}
	return c.listActive(verb, CodeListFollows)
}

// NewGroups lists groups created since the given time. The client always
// emits four-digit years.
func (c *Client) NewGroups(since time.Time) ([]ActiveGroup, error) {
	date, tod := formatDateTime(since)
	return c.listActive(fmt.Sprintf("NEWGROUPS %s %s", date, tod), CodeNewGroupsFollow)
}

func (c *Client) listActive(verb string, code NNTPCode) ([]ActiveGroup, error) {
	if err := c.beginCommand(); err != nil {
		return nil, err
	}
	defer c.endCommand()

	resp, err := c.longCmd(0, "%s", verb)
	if err != nil {
		return nil, err
	}
	if resp.Code != code {
		return nil, &ReplyError{Code: resp.Code, Line: resp.Raw, Want: strconv.Itoa(int(code))}
	}

	groups := make([]ActiveGroup, 0, len(resp.Lines))
	for _, line := range resp.Lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		g, err := parseActiveLine(line)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// parseActiveLine parses "name high low status".
func parseActiveLine(line string) (ActiveGroup, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return ActiveGroup{}, &DataError{Reason: "bad active group line", Detail: line}
	}
	high, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return ActiveGroup{}, &DataError{Reason: "bad active group line", Detail: line, Err: err}
	}
	low, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return ActiveGroup{}, &DataError{Reason: "bad active group line", Detail: line, Err: err}
	}
	g := ActiveGroup{Name: fields[0], High: high, Low: low}
	if len(fields) > 3 {
		g.Status = fields[3]
	}
	return g, nil
}

// ListNewsgroups lists group descriptions matching a wildmat pattern.
func (c *Client) ListNewsgroups(pattern string) ([]GroupTitle, error) {
	verb := "LIST NEWSGROUPS"
	if pattern != "" {
		verb += " " + pattern
	}
	return c.listTitles(verb, CodeListFollows)
}

// XGTitle lists group descriptions via the pre-standard XGTITLE command.
func (c *Client) XGTitle(pattern string) ([]GroupTitle, error) {
	verb := "XGTITLE"
	if pattern != "" {
		verb += " " + pattern
	}
	return c.listTitles(verb, CodeXGTitleFollows)
}

func (c *Client) listTitles(verb string, code NNTPCode) ([]GroupTitle, error) {
	if err := c.beginCommand(); err != nil {
		return nil, err
	}
	defer c.endCommand()

	resp, err := c.longCmd(0, "%s", verb)
	if err != nil {
		return nil, err
	}
	if resp.Code != code {
		return nil, &ReplyError{Code: resp.Code, Line: resp.Raw, Want: strconv.Itoa(int(code))}
	}

	titles := make([]GroupTitle, 0, len(resp.Lines))
	for _, line := range resp.Lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		name, title := line, ""
		if i := strings.IndexAny(line, " \t"); i >= 0 {
			name, title = line[:i], strings.TrimSpace(line[i:])
		}
		titles = append(titles, GroupTitle{Name: name, Title: title})
	}
	return titles, nil
}

// NewNews lists message-ids of articles posted to matching groups since the
// given time. Duplicates are dropped, order preserved.
func (c *Client) NewNews(group string, since time.Time) ([]string, error) {
	if err := c.beginCommand(); err != nil {
		return nil, err
	}
	defer c.endCommand()

	date, tod := formatDateTime(since)
	resp, err := c.longCmd(0, "NEWNEWS %s %s %s", group, date, tod)
	if err != nil {
		return nil, err
	}
	if resp.Code != CodeNewNewsFollows {
		return nil, &ReplyError{Code: resp.Code, Line: resp.Raw, Want: "230"}
	}

	seen := make(map[string]bool, len(resp.Lines))
	ids := make([]string, 0, len(resp.Lines))
	for _, line := range resp.Lines {
		id := strings.TrimSpace(line)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// ---- server date ----

// Date returns the server's clock. The reply must carry exactly fourteen
// digits; anything else is a DataError and the session remains usable.
func (c *Client) Date() (time.Time, error) {
	if err := c.beginCommand(); err != nil {
		return time.Time{}, err
	}
	defer c.endCommand()

	resp, err := c.cmd("DATE")
	if err != nil {
		return time.Time{}, err
	}
	if err := expect(resp, "111", CodeDate); err != nil {
		return time.Time{}, err
	}
	return ParseDateStamp(strings.TrimSpace(resp.Message))
}

// ---- header digests ----

// XHdr returns the named header for a range of articles. HDR is preferred
// when the server advertises it.
func (c *Client) XHdr(field string, first, last int64) ([]HeaderValue, error) {
	return c.hdr(field, rangeArg(first, last))
}

// XHdrArticle returns the named header for a single article.
func (c *Client) XHdrArticle(field string, ref ArticleRef) ([]HeaderValue, error) {
	return c.hdr(field, ref.arg())
}

func (c *Client) hdr(field, arg string) ([]HeaderValue, error) {
	if err := c.beginCommand(); err != nil {
		return nil, err
	}
	defer c.endCommand()

	if err := c.ensureCaps(); err != nil {
		return nil, err
	}

	verb, code := "XHDR", CodeHeadFollows
	if c.capCached(CapHdr) {
		verb, code = "HDR", CodeHeadersFollow
	}
	cmdline := verb + " " + field
	if arg != "" {
		cmdline += " " + arg
	}

	resp, err := c.longCmd(0, "%s", cmdline)
	if err != nil {
		return nil, err
	}
	if resp.Code != code {
		return nil, &ReplyError{Code: resp.Code, Line: resp.Raw, Want: strconv.Itoa(int(code))}
	}

	values := make([]HeaderValue, 0, len(resp.Lines))
	for _, line := range resp.Lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		hv := HeaderValue{Raw: line}
		if article, value, found := strings.Cut(line, " "); found {
			hv.Article = article
			hv.Value = value
		}
		values = append(values, hv)
	}
	return values, nil
}

// ---- overview ----

// Over returns overview records for a range of article numbers. last == 0
// leaves the range open-ended. OVER is used when the server advertises it,
// XOVER otherwise.
func (c *Client) Over(first, last int64) ([]overview.Record, error) {
	return c.over(rangeArg(first, last))
}

// OverArticle returns the overview record for a single article, or the
// current one for the zero ArticleRef.
func (c *Client) OverArticle(ref ArticleRef) ([]overview.Record, error) {
	return c.over(ref.arg())
}

func (c *Client) over(arg string) ([]overview.Record, error) {
	if err := c.beginCommand(); err != nil {
		return nil, err
	}
	defer c.endCommand()

	if err := c.ensureCaps(); err != nil {
		return nil, err
	}

	format, err := c.overviewFormat()
	if err != nil {
		return nil, err
	}

	verb := "XOVER"
	if c.capCached(CapOver) {
		verb = "OVER"
	}
	if arg != "" {
		verb += " " + arg
	}

	resp, err := c.longCmd(0, "%s", verb)
	if err != nil {
		return nil, err
	}
	if resp.Code != CodeOverviewFollows {
		return nil, &ReplyError{Code: resp.Code, Line: resp.Raw, Want: "224"}
	}

	records, err := overview.ParseRecords(resp.Lines, format, c.headerDecoder())
	if err != nil {
		return nil, &DataError{Reason: "bad overview record", Err: err}
	}
	return records, nil
}

// overviewFormat returns the session's overview descriptor, negotiating it
// via LIST OVERVIEW.FMT on first need. A server that rejects the command
// gets the canonical default. The cache survives STARTTLS and login; the
// wire semantics of the fields do not change. Called with the command
// reservation held.
func (c *Client) overviewFormat() (overview.Format, error) {
	c.mu.Lock()
	cached := c.overviewFmt
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	resp, err := c.longCmd(0, "LIST OVERVIEW.FMT")
	if err != nil {
		switch err.(type) {
		case *NNTPError, *ReplyError:
			format := overview.Default()
			c.mu.Lock()
			c.overviewFmt = format
			c.mu.Unlock()
			return format, nil
		}
		return nil, err
	}

	format, err := overview.ParseFormat(resp.Lines)
	if err != nil {
		// A malformed descriptor is not cached; the invariant is that a
		// cached descriptor always passed validation.
		return nil, &DataError{Reason: "invalid overview format", Err: err}
	}

	c.mu.Lock()
	c.overviewFmt = format
	c.mu.Unlock()
	return format, nil
}

// ---- posting ----

// Post posts an article. The body is dot-stuffed on the wire and every
// line is CRLF-terminated regardless of the source line endings.
func (c *Client) Post(a *Article) error {
	return c.PostReader(a.reader())
}

// PostReader posts an article from its wire-text form.
func (c *Client) PostReader(r stdio.Reader) error {
	return c.send("POST", CodeSendArticle, CodePostAccepted, r)
}

// IHave offers an article to the server by message-id.
func (c *Client) IHave(a *Article) error {
	if a.MessageID == "" {
		return fmt.Errorf("%w: IHAVE requires a message-id", ErrInvalidArgument)
	}
	return c.IHaveReader(a.MessageID, a.reader())
}

// IHaveReader offers an article from its wire-text form.
func (c *Client) IHaveReader(messageID string, r stdio.Reader) error {
	return c.send("IHAVE "+messageID, CodeSendTransfer, CodeTransferAccepted, r)
}

func (c *Client) send(verb string, proceed, accepted NNTPCode, r stdio.Reader) error {
	if err := c.beginCommand(); err != nil {
		return err
	}
	defer c.endCommand()

	resp, err := c.cmd("%s", verb)
	if err != nil {
		return err
	}
	if err := expect(resp, strconv.Itoa(int(proceed)), proceed); err != nil {
		return err
	}

	if c.config.WriteTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	}
	if err := magpieio.WriteDotBody(c.writer, r); err != nil {
		return c.ioFailure(err)
	}

	final, err := c.readResponseLine()
	if err != nil {
		return err
	}
	return expect(final, strconv.Itoa(int(accepted)), accepted)
}

// ---- miscellany ----

// Help returns the server's help text.
func (c *Client) Help() ([]string, error) {
	if err := c.beginCommand(); err != nil {
		return nil, err
	}
	defer c.endCommand()

	resp, err := c.longCmd(0, "HELP")
	if err != nil {
		return nil, err
	}
	if resp.Code != CodeHelpFollows {
		return nil, &ReplyError{Code: resp.Code, Line: resp.Raw, Want: "100"}
	}
	return resp.Lines, nil
}

// Slave informs the server that this connection feeds a subsidiary server.
func (c *Client) Slave() error {
	if err := c.beginCommand(); err != nil {
		return err
	}
	defer c.endCommand()

	resp, err := c.cmd("SLAVE")
	if err != nil {
		return err
	}
	return expect(resp, "202", CodeSlaveNoted)
}

// RawCommand sends a raw command line and returns the reply. When the
// status code admits a multi-line payload, the payload is read into the
// response; the wire stays synchronized.
func (c *Client) RawCommand(command string) (*Response, error) {
	if err := c.beginCommand(); err != nil {
		return nil, err
	}
	defer c.endCommand()

	resp, err := c.cmd("%s", command)
	if err != nil {
		return nil, err
	}
	if isLongReply(resp.Code, 0) {
		if c.config.ReadTimeout > 0 {
			c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		}
		lines, err := magpieio.ReadDotLines(c.reader, MaxLineLength)
		if err != nil {
			return nil, c.ioFailure(err)
		}
		resp.Lines = lines
	}
	return resp, nil
}
