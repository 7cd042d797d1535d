package transport

import (
	"io"
	"net"
	"time"

	"github.com/gorilla/websocket"
)

// wsConn presents a *websocket.Conn as a net.Conn byte stream. Each Write
// becomes one binary message; Read drains binary messages in order. The
// frame codec on top never depends on message boundaries.
type wsConn struct {
	conn *websocket.Conn
	r    io.Reader // current partially-read message, nil between messages
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{conn: conn}
}

func (c *wsConn) Read(p []byte) (int, error) {
	for {
		if c.r == nil {
			typ, r, err := c.conn.NextReader()
			if err != nil {
				return 0, translateWSError(err)
			}
			if typ != websocket.BinaryMessage {
				continue
			}
			c.r = r
		}

		n, err := c.r.Read(p)
		if err == io.EOF {
			c.r = nil
			if n == 0 {
				continue
			}
			err = nil
		}
		return n, err
	}
}

func (c *wsConn) Write(p []byte) (int, error) {
	if err := c.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, translateWSError(err)
	}
	return len(p), nil
}

// translateWSError maps the close handshake onto io.EOF so WebSocket
// teardown and TCP teardown look identical to the frame codec.
func translateWSError(err error) error {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return io.EOF
	}
	return err
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

func (c *wsConn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

func (c *wsConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *wsConn) SetDeadline(t time.Time) error {
	if err := c.conn.SetReadDeadline(t); err != nil {
		return err
	}
	return c.conn.SetWriteDeadline(t)
}

func (c *wsConn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

func (c *wsConn) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}
