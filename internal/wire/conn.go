package wire

import (
	"bufio"
	"encoding/json"
	"net"

	"github.com/pkg/errors"
)

// Conn frames wire messages over a net.Conn. Reads and writes are not
// individually locked; the protocol is request/response per connection so
// there is never more than one of each in flight.
type Conn struct {
	raw net.Conn
	enc *json.Encoder
	dec *json.Decoder
}

func NewConn(raw net.Conn) *Conn {
	return &Conn{
		raw: raw,
		enc: json.NewEncoder(raw),
		dec: json.NewDecoder(bufio.NewReader(raw)),
	}
}

func (c *Conn) WriteRequest(req Request) error {
	return errors.Wrap(c.enc.Encode(req), "write request")
}

func (c *Conn) ReadRequest() (Request, error) {
	var req Request
	if err := c.dec.Decode(&req); err != nil {
		return Request{}, errors.Wrap(err, "read request")
	}
	return req, nil
}

func (c *Conn) WriteResponse(resp Response) error {
	return errors.Wrap(c.enc.Encode(resp), "write response")
}

func (c *Conn) ReadResponse() (Response, error) {
	var resp Response
	if err := c.dec.Decode(&resp); err != nil {
		return Response{}, errors.Wrap(err, "read response")
	}
	return resp, nil
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.raw.RemoteAddr()
}

func (c *Conn) Close() error {
	return c.raw.Close()
}
