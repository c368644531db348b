package magpie

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	stdio "io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	magpieio "github.com/synqronlabs/magpie/io"
	"github.com/synqronlabs/magpie/mime"
	"github.com/synqronlabs/magpie/overview"
	"github.com/synqronlabs/magpie/utils"
)

// ClientConfig holds configuration for the NNTP client.
type ClientConfig struct {
	// TLSConfig is used for implicit TLS and STARTTLS. nil enables the
	// default verification against the dialed hostname.
	TLSConfig *tls.Config

	// ReaderMode requests reader mode at connect time: if the server does
	// not advertise the READER capability, MODE READER is sent after the
	// greeting.
	ReaderMode bool

	// HeaderDecoder decodes extended overview header values. nil means
	// RFC 2047 decoding via the mime package.
	HeaderDecoder overview.HeaderDecoder

	// DialFunc overrides how the TCP connection is established (SOCKS
	// proxies, pre-resolved addresses). nil means a plain net.Dialer.
	DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration

	// Logger receives connection lifecycle events. nil disables logging.
	Logger *slog.Logger

	Debug       bool
	DebugWriter stdio.Writer
}

// DefaultClientConfig returns a ClientConfig with sensible defaults.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		ConnectTimeout: 30 * time.Second,
		ReadTimeout:    5 * time.Minute,
		WriteTimeout:   5 * time.Minute,
	}
}

// Client is an NNTP client. A Client is stateful and single-owner: it holds
// the connection, the capability cache, and the TLS and authentication
// state, and commands must be serialized. The selected group and current
// article are tracked by the server, not by the Client. A command issued while another is awaiting its response fails
// with ErrCommandInFlight rather than being queued, so wire traffic always
// matches call order.
type Client struct {
	config *ClientConfig

	mu       sync.Mutex
	conn     net.Conn
	reader   *bufio.Reader
	writer   *bufio.Writer
	inFlight bool
	closed   bool
	broken   bool

	serverName     string
	banner         string
	postingAllowed bool
	connected      bool
	tlsActive      bool
	authenticated  bool

	// readerAfterAuth records a 480 reply to MODE READER: the transition
	// is retried after authentication succeeds.
	readerAfterAuth bool

	caps           map[string][]string // nil: unknown; empty: server has none
	version        int
	implementation string

	overviewFmt overview.Format
}

// NewClient creates a new NNTP client.
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultClientConfig()
	}
	return &Client{
		config:  config,
		version: 1,
	}
}

// Dial connects to the NNTP server (e.g., "news.example.com:119").
func (c *Client) Dial(address string) error {
	return c.DialContext(context.Background(), address)
}

// DialContext connects to the NNTP server with a context. The greeting is
// read and validated, capabilities are loaded, and reader mode is resolved
// per the configuration before DialContext returns.
func (c *Client) DialContext(ctx context.Context, address string) error {
	if err := c.beginDial(); err != nil {
		return err
	}
	defer c.endCommand()

	address = c.prepareAddress(address, DefaultPort)

	conn, err := c.dialRaw(ctx, address)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	return c.start(conn, false)
}

// DialTLS connects using implicit TLS (typically port 563).
func (c *Client) DialTLS(address string) error {
	return c.DialTLSContext(context.Background(), address)
}

// DialTLSContext connects using implicit TLS with a context.
func (c *Client) DialTLSContext(ctx context.Context, address string) error {
	if err := c.beginDial(); err != nil {
		return err
	}
	defer c.endCommand()

	address = c.prepareAddress(address, DefaultTLSPort)

	conn, err := c.dialRaw(ctx, address)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	tlsConn := tls.Client(conn, c.tlsConfigFor(c.serverName))
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return fmt.Errorf("TLS handshake failed: %w", err)
	}

	return c.start(tlsConn, true)
}

// beginDial reserves the client for the connect sequence.
func (c *Client) beginDial() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	if c.conn != nil {
		return fmt.Errorf("nntp: already connected to %s", c.serverName)
	}
	if c.inFlight {
		return ErrCommandInFlight
	}
	c.inFlight = true
	return nil
}

// prepareAddress fills in the default port and records the hostname for
// TLS verification.
func (c *Client) prepareAddress(address string, defaultPort int) string {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		host = address
		address = net.JoinHostPort(address, strconv.Itoa(defaultPort))
	}
	c.mu.Lock()
	c.serverName = host
	c.mu.Unlock()
	return address
}

func (c *Client) dialRaw(ctx context.Context, address string) (net.Conn, error) {
	if c.config.DialFunc != nil {
		return c.config.DialFunc(ctx, "tcp", address)
	}
	dialer := &net.Dialer{Timeout: c.connectTimeout()}
	return dialer.DialContext(ctx, "tcp", address)
}

func (c *Client) connectTimeout() time.Duration {
	if c.config.ConnectTimeout > 0 {
		return c.config.ConnectTimeout
	}
	return 30 * time.Second
}

// start attaches the connection, validates the greeting, loads the
// capability cache, and resolves reader mode. Called with the dial
// reservation held.
func (c *Client) start(conn net.Conn, viaTLS bool) error {
	c.mu.Lock()
	c.conn = conn
	c.reader = bufio.NewReader(conn)
	c.writer = bufio.NewWriter(conn)
	c.tlsActive = viaTLS
	c.broken = false
	c.mu.Unlock()

	fail := func(err error) error {
		conn.Close()
		c.mu.Lock()
		c.conn = nil
		c.reader = nil
		c.writer = nil
		c.connected = false
		c.mu.Unlock()
		return err
	}

	resp, err := c.readResponseLine()
	if err != nil {
		return fail(fmt.Errorf("failed to read greeting: %w", err))
	}
	if resp.Code != CodePostingAllowed && resp.Code != CodePostingProhibited {
		if err := resp.Err(); err != nil {
			return fail(err)
		}
		return fail(&ReplyError{Code: resp.Code, Line: resp.Raw, Want: "200 or 201 greeting"})
	}

	c.mu.Lock()
	c.banner = resp.Message
	c.postingAllowed = resp.Code == CodePostingAllowed
	c.connected = true
	c.mu.Unlock()

	if err := c.reloadCapabilities(); err != nil {
		return fail(err)
	}

	if c.config.ReaderMode && !c.capCached(CapReader) {
		if err := c.modeReader(); err != nil {
			return fail(err)
		}
	}

	if c.config.Logger != nil {
		remote := conn.RemoteAddr()
		if ip, err := utils.GetIPFromAddr(remote); err == nil {
			c.config.Logger.Info("nntp connected", "server", c.serverName, "ip", ip.String(), "tls", viaTLS)
		} else {
			c.config.Logger.Info("nntp connected", "server", c.serverName, "tls", viaTLS)
		}
	}

	return nil
}

// ---- command serialization ----

// beginCommand reserves the wire for one command exchange. A second call
// before the first response has been collected fails immediately; it is
// never written to the wire.
func (c *Client) beginCommand() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	if c.conn == nil {
		return ErrNoConnection
	}
	if c.broken {
		return ErrSessionBroken
	}
	if c.inFlight {
		return ErrCommandInFlight
	}
	c.inFlight = true
	return nil
}

func (c *Client) endCommand() {
	c.mu.Lock()
	c.inFlight = false
	c.mu.Unlock()
}

// markBroken renders the session unusable and closes the transport. The
// wire cannot be resynchronized once framing has been lost.
func (c *Client) markBroken() {
	c.mu.Lock()
	c.broken = true
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// ---- wire primitives (command reservation held) ----

func (c *Client) trace(dir, line string) {
	if c.config.Debug && c.config.DebugWriter != nil {
		fmt.Fprintf(c.config.DebugWriter, "%s %s\n", dir, line)
	}
}

// writeLine writes one command line. Arguments were formatted by the
// caller; the line must be ASCII and free of control characters.
func (c *Client) writeLine(line string) error {
	if utils.ContainsNonASCII(line) || utils.ContainsCTL(line) {
		return fmt.Errorf("%w: %q", ErrInvalidArgument, line)
	}

	c.trace("C:", line)

	if c.config.WriteTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	}

	if _, err := c.writer.WriteString(line + "\r\n"); err != nil {
		return c.ioFailure(err)
	}
	if err := c.writer.Flush(); err != nil {
		return c.ioFailure(err)
	}
	return nil
}

// readLine reads one framed line from the transport.
func (c *Client) readLine() (string, error) {
	if c.config.ReadTimeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	}
	line, err := magpieio.ReadLine(c.reader, MaxLineLength)
	if err != nil {
		return "", c.ioFailure(err)
	}
	c.trace("S:", line)
	return line, nil
}

// ioFailure classifies a transport error and renders the session unusable.
func (c *Client) ioFailure(err error) error {
	c.markBroken()
	switch {
	case errors.Is(err, os.ErrDeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, magpieio.ErrLineTooLong):
		return ProtocolError("line too long")
	case errors.Is(err, magpieio.ErrUnexpectedEOF):
		return ProtocolError("unexpected end of stream")
	}
	return err
}

// readResponseLine reads and parses one reply status line.
func (c *Client) readResponseLine() (*Response, error) {
	line, err := c.readLine()
	if err != nil {
		return nil, err
	}
	resp, err := parseResponseLine(line)
	if err != nil {
		c.markBroken()
		return nil, err
	}
	return resp, nil
}

// cmd writes a command line and reads the reply status line.
func (c *Client) cmd(format string, args ...any) (*Response, error) {
	if err := c.writeLine(fmt.Sprintf(format, args...)); err != nil {
		return nil, err
	}
	return c.readResponseLine()
}

// expect validates a short reply against the command's admitted codes.
func expect(resp *Response, want string, codes ...NNTPCode) error {
	if err := resp.Err(); err != nil {
		return err
	}
	for _, code := range codes {
		if resp.Code == code {
			return nil
		}
	}
	return &ReplyError{Code: resp.Code, Line: resp.Raw, Want: want}
}

// longCmd writes a command and reads a reply with a dot-terminated payload.
// The payload is read only when the status code admits one; extra names a
// code that is long for this command alone (211 after LISTGROUP).
func (c *Client) longCmd(extra NNTPCode, format string, args ...any) (*Response, error) {
	resp, err := c.cmd(format, args...)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	if !isLongReply(resp.Code, extra) {
		return nil, &ReplyError{Code: resp.Code, Line: resp.Raw, Want: "multi-line reply"}
	}

	if c.config.ReadTimeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	}
	lines, err := magpieio.ReadDotLines(c.reader, MaxLineLength)
	if err != nil {
		return nil, c.ioFailure(err)
	}
	resp.Lines = lines
	return resp, nil
}

// longCmdTo streams a dot-terminated payload into w instead of collecting
// lines, appending CRLF per line.
func (c *Client) longCmdTo(w stdio.Writer, extra NNTPCode, format string, args ...any) (*Response, error) {
	resp, err := c.cmd(format, args...)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	if !isLongReply(resp.Code, extra) {
		return nil, &ReplyError{Code: resp.Code, Line: resp.Raw, Want: "multi-line reply"}
	}

	if c.config.ReadTimeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	}
	if _, err := magpieio.CopyDotLines(c.reader, w, MaxLineLength); err != nil {
		return nil, c.ioFailure(err)
	}
	return resp, nil
}

// ---- capabilities ----

// reloadCapabilities re-issues CAPABILITIES and replaces the cache. A
// server rejecting the command (pre-RFC 3977) yields an empty, known cache.
// Called with the command reservation held.
func (c *Client) reloadCapabilities() error {
	resp, err := c.longCmd(0, "CAPABILITIES")
	if err != nil {
		var nntpErr *NNTPError
		var replyErr *ReplyError
		if errors.As(err, &nntpErr) || errors.As(err, &replyErr) {
			c.setCaps(map[string][]string{})
			return nil
		}
		return err
	}

	caps := make(map[string][]string, len(resp.Lines))
	for _, line := range resp.Lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		// The first token is the capability label; the rest are its
		// arguments, preserved verbatim.
		caps[strings.ToUpper(fields[0])] = fields[1:]
	}
	c.setCaps(caps)
	return nil
}

func (c *Client) setCaps(caps map[string][]string) {
	version := 1
	if args, ok := caps[CapVersion]; ok && len(args) > 0 {
		if v, err := strconv.Atoi(args[0]); err == nil {
			version = v
		}
	}
	implementation := strings.Join(caps[CapImplementation], " ")

	c.mu.Lock()
	c.caps = caps
	c.version = version
	if implementation != "" {
		c.implementation = implementation
	}
	c.mu.Unlock()
}

// invalidateCaps drops the capability cache. The next query re-issues
// CAPABILITIES on the wire.
func (c *Client) invalidateCaps() {
	c.mu.Lock()
	c.caps = nil
	c.mu.Unlock()
}

// capCached consults the cache without touching the wire.
func (c *Client) capCached(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.caps == nil {
		return false
	}
	_, ok := c.caps[strings.ToUpper(name)]
	return ok
}

// ensureCaps loads the capability cache if it has been invalidated.
// Called with the command reservation held.
func (c *Client) ensureCaps() error {
	c.mu.Lock()
	absent := c.caps == nil
	c.mu.Unlock()
	if absent {
		return c.reloadCapabilities()
	}
	return nil
}

// Capabilities returns the server's capability map, querying the server if
// the cache has been invalidated. The returned map is a copy.
func (c *Client) Capabilities() (map[string][]string, error) {
	if err := c.beginCommand(); err != nil {
		return nil, err
	}
	defer c.endCommand()

	if err := c.ensureCaps(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	caps := make(map[string][]string, len(c.caps))
	for name, args := range c.caps {
		caps[name] = append([]string(nil), args...)
	}
	return caps, nil
}

// HasCapability reports whether the cached capability set advertises name.
// It does not touch the wire; use Capabilities to refresh the cache.
func (c *Client) HasCapability(name string) bool {
	return c.capCached(name)
}

// ---- mode reader ----

// modeReader performs the MODE READER transition. Called with the command
// reservation held.
func (c *Client) modeReader() error {
	resp, err := c.cmd("MODE READER")
	if err != nil {
		return err
	}

	switch resp.Code {
	case CodePostingAllowed, CodePostingProhibited:
		c.mu.Lock()
		c.postingAllowed = resp.Code == CodePostingAllowed
		c.readerAfterAuth = false
		c.mu.Unlock()
		c.invalidateCaps()
		return c.reloadCapabilities()
	case CodeAuthRequired:
		// The server wants authentication first; retry after Login.
		c.mu.Lock()
		c.readerAfterAuth = true
		c.mu.Unlock()
		return nil
	}
	if err := resp.Err(); err != nil {
		return err
	}
	return &ReplyError{Code: resp.Code, Line: resp.Raw, Want: "200, 201, or 480"}
}

// ModeReader switches the server to reader mode and reloads capabilities.
func (c *Client) ModeReader() error {
	if err := c.beginCommand(); err != nil {
		return err
	}
	defer c.endCommand()
	return c.modeReader()
}

// ---- lifecycle ----

// Quit sends QUIT and closes the connection. The transport is closed
// regardless of the reply outcome.
func (c *Client) Quit() error {
	if err := c.beginCommand(); err != nil {
		if errors.Is(err, ErrSessionBroken) {
			return c.Close()
		}
		return err
	}

	if err := c.writeLine("QUIT"); err == nil {
		// Best effort; some servers drop the connection without a 205.
		c.readResponseLine()
	}
	c.endCommand()

	if c.config.Logger != nil {
		c.config.Logger.Info("nntp session closed", "server", c.serverName)
	}
	return c.Close()
}

// Close closes the connection. Repeated calls are no-ops.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.connected = false
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.reader = nil
	c.writer = nil
	return err
}

// ---- accessors ----

// Banner returns the welcome banner captured at connect.
func (c *Client) Banner() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.banner
}

// PostingAllowed reports whether the greeting (or the latest MODE READER
// reply) advertised posting permission.
func (c *Client) PostingAllowed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.postingAllowed
}

// Connected reports whether the greeting has been read and validated.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected && c.conn != nil && !c.broken
}

// TLSActive reports whether the transport is TLS-wrapped.
func (c *Client) TLSActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tlsActive
}

// Authenticated reports whether AUTHINFO completed successfully.
func (c *Client) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

// Version returns the protocol version advertised by CAPABILITIES,
// defaulting to 1.
func (c *Client) Version() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// Implementation returns the server's IMPLEMENTATION string, if any.
func (c *Client) Implementation() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.implementation
}

// headerDecoder returns the configured overview header decoder.
func (c *Client) headerDecoder() overview.HeaderDecoder {
	if c.config.HeaderDecoder != nil {
		return c.config.HeaderDecoder
	}
	return mime.DecodeHeader
}

func (c *Client) tlsConfigFor(host string) *tls.Config {
	tlsConfig := c.config.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{}
	}
	if tlsConfig.ServerName == "" {
		tlsConfig = tlsConfig.Clone()
		tlsConfig.ServerName = host
	}
	return tlsConfig
}
