package notify

import (
	"context"
	"net"
	"time"

	"github.com/gobwas/ws/wsutil"
)

const writeTimeout = 5 * time.Second

// WSConn adapts a server-side WebSocket connection to Conn.
type WSConn struct {
	conn net.Conn
}

func NewWSConn(conn net.Conn) *WSConn {
	return &WSConn{conn: conn}
}

func (c *WSConn) WriteMessage(ctx context.Context, data []byte) error {
	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return wsutil.WriteServerText(c.conn, data)
}

func (c *WSConn) Close() error {
	return c.conn.Close()
}
