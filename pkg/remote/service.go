// Package remote talks to a scanner_api console over WebSocket.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/NotCoffee418/uniden_interface/pkg/api"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var ErrClientClosed = errors.New("remote console closed")

// Dialer connects to a console, retrying with capped exponential backoff.
type Dialer struct {
	MaxRetries       int
	BaseRetryDelay   time.Duration
	MaxRetryDelay    time.Duration
	HandshakeTimeout time.Duration
	// Reply deadline for each command.
	ReplyTimeout time.Duration
}

func DefaultDialer() *Dialer {
	return &Dialer{
		MaxRetries:       10,
		BaseRetryDelay:   2 * time.Second,
		MaxRetryDelay:    60 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		ReplyTimeout:     5 * time.Second,
	}
}

type Client struct {
	mu           sync.Mutex
	conn         *websocket.Conn
	replyTimeout time.Duration
	closed       bool
}

// ConsoleURL builds the console address for host, which may be host:port or a full ws:// URL.
func ConsoleURL(host string) string {
	if u, err := url.Parse(host); err == nil && (u.Scheme == "ws" || u.Scheme == "wss") {
		if u.Path == "" {
			u.Path = "/ws"
		}
		return u.String()
	}
	u := url.URL{Scheme: "ws", Host: host, Path: "/ws"}
	return u.String()
}

// RetryDelay is the wait before attempt number retry (1 based).
func (d *Dialer) RetryDelay(retry int) time.Duration {
	if retry < 1 {
		return 0
	}
	delay := d.BaseRetryDelay
	for i := 1; i < retry; i++ {
		delay *= 2
		if delay >= d.MaxRetryDelay {
			return d.MaxRetryDelay
		}
	}
	if delay > d.MaxRetryDelay {
		return d.MaxRetryDelay
	}
	return delay
}

// Dial connects to the console on host. It gives up after MaxRetries failed
// attempts or when ctx is done.
func (d *Dialer) Dial(ctx context.Context, host string) (*Client, error) {
	target := ConsoleURL(host)
	wsDialer := *websocket.DefaultDialer
	wsDialer.HandshakeTimeout = d.HandshakeTimeout

	attempts := max(d.MaxRetries, 1)
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			retryDelay := d.RetryDelay(attempt)
			log.Info().
				Dur("delay", retryDelay).
				Int("attempt", attempt+1).
				Int("max", attempts).
				Msg("Retrying console connection")
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				return nil, errors.Join(ctx.Err(), lastErr)
			}
		}

		log.Debug().Str("url", target).Msg("Connecting to console")
		conn, _, err := wsDialer.DialContext(ctx, target, nil)
		if err == nil {
			log.Info().Str("url", target).Msg("Connected to console")
			return &Client{conn: conn, replyTimeout: d.ReplyTimeout}, nil
		}
		lastErr = err
		log.Warn().Err(err).Str("url", target).Msg("Console connection failed")
		if ctx.Err() != nil {
			return nil, errors.Join(ctx.Err(), lastErr)
		}
	}
	return nil, fmt.Errorf("connect %s: max retries (%d) reached: %w", target, attempts, lastErr)
}

// Execute sends one command line and waits for its reply.
// Scanner failures are reported in the reply, not as an error.
func (c *Client) Execute(line string) (*api.ConsoleReply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClientClosed
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
		return nil, fmt.Errorf("send %q: %w", line, err)
	}

	if c.replyTimeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.replyTimeout))
	}
	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("read reply to %q: %w", line, err)
		}
		if messageType != websocket.TextMessage {
			log.Debug().Int("type", messageType).Msg("Ignoring non-text console message")
			continue
		}
		reply, err := api.ConsoleReplyFromJsonBytes(message)
		if err != nil {
			return nil, fmt.Errorf("parse reply %q: %w", string(message), err)
		}
		return reply, nil
	}
}

// Close sends a close frame and drops the connection. Calling it twice is harmless.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	err := c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	if err != nil {
		log.Debug().Err(err).Msg("Error sending close message")
	}
	return c.conn.Close()
}
