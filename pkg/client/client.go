// Package client is the remote side of the queue protocol: a thin wrapper
// that sends one request and blocks for one response per call, over a single
// persistent connection.
package client

import (
	"encoding/json"
	"net"

	"github.com/pkg/errors"

	"github.com/jnfrati/fila/internal/queue"
	"github.com/jnfrati/fila/internal/wire"
)

// Role strings accepted by Register.
const (
	RoleProducer = wire.RoleProducer
	RoleConsumer = wire.RoleConsumer
)

type Client struct {
	conn *wire.Conn
}

// Client can stand in for a local queue in a worker.
var _ queue.Client[json.RawMessage] = (*Client)(nil)

// Dial connects to a queue server. A refused connection is returned as an
// error; callers that have no queue without it should treat it as fatal.
func Dial(addr string) (*Client, error) {
	raw, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "connect to queue server at %s", addr)
	}
	return &Client{conn: wire.NewConn(raw)}, nil
}

// Wrap builds a client over an already established connection.
func Wrap(raw net.Conn) *Client {
	return &Client{conn: wire.NewConn(raw)}
}

// Register declares this client's role and name. Must be the first call on a
// new connection; the server acks it explicitly.
func (c *Client) Register(role, name string) error {
	if !wire.ValidRole(role) {
		return errors.Errorf("invalid role %q", role)
	}

	resp, err := c.roundTrip(wire.Request{Type: role, Name: name})
	if err != nil {
		return err
	}
	if resp.Status != wire.StatusOK {
		return errors.Errorf("registration rejected: %s", resp.Message)
	}
	return nil
}

func (c *Client) Put(item json.RawMessage) error {
	if item == nil {
		item = json.RawMessage("null")
	}

	resp, err := c.roundTrip(wire.Request{Command: wire.CommandPut, Item: item})
	if err != nil {
		return err
	}
	if resp.Status != wire.StatusOK {
		return errors.Errorf("put rejected: %s", resp.Message)
	}
	return nil
}

func (c *Client) Get() (json.RawMessage, error) {
	resp, err := c.roundTrip(wire.Request{Command: wire.CommandGet})
	if err != nil {
		return nil, err
	}
	if resp.Status != wire.StatusOK {
		return nil, errors.Errorf("get rejected: %s", resp.Message)
	}
	return resp.Item, nil
}

// Done tells the server this client is finished; the server closes the
// session after acking.
func (c *Client) Done() error {
	resp, err := c.roundTrip(wire.Request{Command: wire.CommandDone})
	if err != nil {
		return err
	}
	if resp.Status != wire.StatusOK {
		return errors.Errorf("done rejected: %s", resp.Message)
	}
	return nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) roundTrip(req wire.Request) (wire.Response, error) {
	if err := c.conn.WriteRequest(req); err != nil {
		return wire.Response{}, err
	}
	return c.conn.ReadResponse()
}
