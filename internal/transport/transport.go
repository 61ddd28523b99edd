// Package transport is the messaging collaborator: a websocket client
// connection to the game server. Outbound envelopes are written as JSON
// frames; inbound frames are decoded into named events and published on
// the event bus. There is no automatic reconnect or retry; a dropped
// connection is surfaced as a ConnState event and the operator decides.
package transport

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"gamemon/internal/domain"
	"gamemon/internal/eventbus"
	"gamemon/internal/protocol"
)

// Client is a websocket connection to the server's monitor endpoint.
type Client struct {
	bus eventbus.EventBus
	url string

	mu   sync.Mutex
	conn *websocket.Conn
	done chan struct{}
}

// New creates a client for the given websocket URL.
func New(url string, bus eventbus.EventBus) *Client {
	return &Client{bus: bus, url: url}
}

// Connect dials the server and starts the read loop.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return fmt.Errorf("transport: already connected")
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("transport: dial %s: %w", c.url, err)
	}

	c.conn = conn
	c.done = make(chan struct{})
	go c.readLoop(conn, c.done)

	c.bus.Publish(domain.ConnStateEvent{Connected: true})
	return nil
}

// Send writes one envelope. Exactly one frame per call, no retry.
func (c *Client) Send(env protocol.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("transport: not connected")
	}
	if err := c.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("transport: write: %w", err)
	}
	return nil
}

// Close shuts the connection down.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	done := c.done
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	err := conn.Close()
	if done != nil {
		<-done
	}
	return err
}

func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.conn == nil
			c.conn = nil
			c.mu.Unlock()

			if !closed {
				log.Printf("Transport: read failed: %v", err)
				c.bus.Publish(domain.ConnStateEvent{Connected: false, Err: err})
			} else {
				c.bus.Publish(domain.ConnStateEvent{Connected: false})
			}
			return
		}

		in, err := protocol.DecodeInbound(raw)
		if err != nil {
			log.Printf("Transport: dropping frame: %v", err)
			continue
		}

		c.bus.Publish(domain.InboundReceivedEvent{Name: in.Text, Data: in.Data})
	}
}
