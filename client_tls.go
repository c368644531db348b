package magpie

import (
	"bufio"
	"crypto/tls"
	"fmt"
)

// StartTLS upgrades the connection to TLS (RFC 4642). It must run before
// authentication; servers refuse the upgrade afterwards. On 382 the byte
// stream is wrapped in place: the framer's read-ahead must be empty, and
// any plaintext the server sent after the 382 reply fails the session. A
// failed handshake is not recoverable; the session is closed.
func (c *Client) StartTLS() error {
	if err := c.beginCommand(); err != nil {
		return err
	}
	defer c.endCommand()

	c.mu.Lock()
	active, authed := c.tlsActive, c.authenticated
	c.mu.Unlock()
	if active {
		return ErrTLSAlreadyActive
	}
	if authed {
		return ErrTLSAfterAuth
	}

	resp, err := c.cmd("STARTTLS")
	if err != nil {
		return err
	}
	if err := expect(resp, "382", CodeContinueTLS); err != nil {
		// The transport is untouched; the session continues in plaintext.
		return err
	}

	// No bytes may be buffered across the upgrade boundary. Anything the
	// framer read past the 382 line would be plaintext injected into the
	// handshake.
	if n := c.reader.Buffered(); n > 0 {
		c.markBroken()
		return ProtocolError(fmt.Sprintf("%d plaintext bytes after STARTTLS reply", n))
	}

	tlsConn := tls.Client(c.conn, c.tlsConfigFor(c.serverName))
	if err := tlsConn.Handshake(); err != nil {
		// A partial upgrade leaves the wire in an unknowable state.
		c.markBroken()
		return fmt.Errorf("TLS handshake failed: %w", err)
	}

	c.mu.Lock()
	c.conn = tlsConn
	c.reader = bufio.NewReader(tlsConn)
	c.writer = bufio.NewWriter(tlsConn)
	c.tlsActive = true
	c.mu.Unlock()

	if c.config.Logger != nil {
		c.config.Logger.Info("nntp TLS established", "server", c.serverName)
	}

	// The capability set changes once TLS is up (STARTTLS disappears,
	// AUTHINFO may appear).
	c.invalidateCaps()
	return c.reloadCapabilities()
}
