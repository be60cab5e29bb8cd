// Package messaging publishes session lifecycle events over NATS so other
// service instances can react to session writes (cache invalidation, audit
// trails). Publishing is best-effort: a failed publish is logged and never
// fails the originating request.
package messaging

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS subject patterns for session lifecycle events.
const (
	SubjectSessionSaved   = "session.saved"   // + .<session_id>
	SubjectSessionDeleted = "session.deleted" // + .<session_id>
)

// Config holds NATS connection settings.
type Config struct {
	URL           string        // nats://localhost:4222
	Name          string        // client name for identification
	ReconnectWait time.Duration // time between reconnect attempts
	MaxReconnects int           // max reconnect attempts (-1 for infinite)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:           "nats://localhost:4222",
		Name:          "starchd",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1, // infinite reconnects
	}
}

// Client wraps the NATS connection and implements session.Events.
type Client struct {
	conn *nats.Conn
}

// Event is the JSON payload attached to session lifecycle subjects.
type Event struct {
	ID string `json:"id"`
	At int64  `json:"at"` // unix timestamp
}

// NewClient connects to NATS with the given config and returns a ready
// client. It returns an error if the initial connection fails.
func NewClient(config Config) (*Client, error) {
	opts := []nats.Option{
		nats.Name(config.Name),
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(config.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("[nats] disconnected: %v", err)
			} else {
				log.Printf("[nats] disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[nats] reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Printf("[nats] connection closed")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	log.Printf("[nats] connected to %s", nc.ConnectedUrl())

	return &Client{conn: nc}, nil
}

// SessionSaved publishes a session.saved.<id> event.
func (c *Client) SessionSaved(id string) {
	c.publish(SubjectSessionSaved, id)
}

// SessionDeleted publishes a session.deleted.<id> event.
func (c *Client) SessionDeleted(id string) {
	c.publish(SubjectSessionDeleted, id)
}

func (c *Client) publish(subject, id string) {
	data, err := json.Marshal(Event{ID: id, At: time.Now().Unix()})
	if err != nil {
		log.Printf("[nats] marshal event for %s: %v", subject, err)
		return
	}
	if err := c.conn.Publish(subject+"."+id, data); err != nil {
		log.Printf("[nats] publish %s failed: %v", subject, err)
	}
}

// Close flushes pending publishes and closes the connection.
func (c *Client) Close() {
	if err := c.conn.Flush(); err != nil {
		log.Printf("[nats] flush on close: %v", err)
	}
	c.conn.Close()
}
