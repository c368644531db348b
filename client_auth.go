package magpie

// Login authenticates with AUTHINFO USER/PASS (RFC 4643). Some servers
// accept the username alone; password is only sent when the server asks for
// it with 381. After success the capability cache is invalidated and
// reloaded, and a deferred MODE READER transition is retried.
func (c *Client) Login(username, password string) error {
	if err := c.beginCommand(); err != nil {
		return err
	}
	defer c.endCommand()

	c.mu.Lock()
	already := c.authenticated
	c.mu.Unlock()
	if already {
		return ErrAlreadyAuthenticated
	}

	resp, err := c.cmd("AUTHINFO USER %s", username)
	if err != nil {
		return err
	}

	switch resp.Code {
	case CodeAuthAccepted:
		// Accepted on the username alone.
	case CodePasswordRequired:
		if password == "" {
			return &ReplyError{Code: resp.Code, Line: resp.Raw, Want: "281 (no password available)"}
		}
		passResp, err := c.cmd("AUTHINFO PASS %s", password)
		if err != nil {
			return err
		}
		if passResp.Code != CodeAuthAccepted {
			// Whatever the code class, a rejected password is terminal:
			// RFC 4643 forbids reusing the exchange.
			return &NNTPError{
				Code:           passResp.Code,
				Message:        passResp.Message,
				Line:           passResp.Raw,
				forcePermanent: true,
			}
		}
	default:
		if err := resp.Err(); err != nil {
			return err
		}
		return &ReplyError{Code: resp.Code, Line: resp.Raw, Want: "281 or 381"}
	}

	c.mu.Lock()
	c.authenticated = true
	deferred := c.readerAfterAuth
	c.mu.Unlock()

	if c.config.Logger != nil {
		c.config.Logger.Info("nntp authenticated", "server", c.serverName, "user", username)
	}

	// The server may expose a different command set now; the reload must
	// finish before Login returns.
	c.invalidateCaps()
	if err := c.reloadCapabilities(); err != nil {
		return err
	}

	if deferred && !c.capCached(CapReader) {
		if err := c.modeReader(); err != nil {
			return err
		}
	}
	return nil
}

// XSecret performs the pre-standard XSECRET exchange some servers keep
// alongside AUTHINFO.
func (c *Client) XSecret(username, password string) error {
	if err := c.beginCommand(); err != nil {
		return err
	}
	defer c.endCommand()

	resp, err := c.cmd("XSECRET %s %s", username, password)
	if err != nil {
		return err
	}
	if err := expect(resp, "290", CodeXSecretAccepted); err != nil {
		return err
	}

	c.mu.Lock()
	c.authenticated = true
	c.mu.Unlock()

	c.invalidateCaps()
	return c.reloadCapabilities()
}
