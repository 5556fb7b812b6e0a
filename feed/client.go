package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/herdlabs/herd/journal"
)

// Client subscribes to a feed server and decodes broadcast entries.
// Entries arrive on the Entries channel until the connection drops or
// Close is called; the channel is closed either way.
type Client struct {
	conn    net.Conn
	codec   journal.Codec
	logger  *slog.Logger
	entries chan journal.Entry
	closed  atomic.Bool
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientLogger sets the logger for the client.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithClientCodec sets the codec used to decode broadcast entries. It must
// match the server's codec. Defaults to JSON.
func WithClientCodec(codec journal.Codec) ClientOption {
	return func(c *Client) { c.codec = codec }
}

// WithClientBuffer sets the Entries channel buffer.
func WithClientBuffer(n int) ClientOption {
	return func(c *Client) { c.entries = make(chan journal.Entry, n) }
}

// Dial connects to a feed server at url (ws:// or wss://) and starts
// reading entries.
func Dial(ctx context.Context, url string, opts ...ClientOption) (*Client, error) {
	conn, _, _, err := ws.Dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("herd/feed: dial %q: %w", url, err)
	}

	c := &Client{
		conn:    conn,
		codec:   &journal.JSONCodec{},
		logger:  slog.Default(),
		entries: make(chan journal.Entry, 64),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.readLoop()
	return c, nil
}

// Entries returns the channel of decoded entries. It is closed when the
// connection ends.
func (c *Client) Entries() <-chan journal.Entry { return c.entries }

// Close terminates the connection. Safe to call repeatedly.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) readLoop() {
	defer close(c.entries)

	for {
		data, err := wsutil.ReadServerText(c.conn)
		if err != nil {
			if !c.closed.Load() {
				c.logger.Debug("feed client read ended", slog.String("error", err.Error()))
			}
			return
		}

		e, decErr := c.codec.Decode(data)
		if decErr != nil {
			c.logger.Warn("feed client skipping undecodable entry",
				slog.String("error", decErr.Error()),
			)
			continue
		}
		c.entries <- *e
	}
}
