package transport

import (
	"context"
	"fmt"
	"net"

	"github.com/gorilla/websocket"
)

// Dial establishes the channel from the client side. addr is "host:port"
// in either mode; ws selects WebSocket mode, which must match the server.
// A refused or unreachable server fails immediately — there is no retry.
func Dial(ctx context.Context, addr string, ws bool) (*Link, error) {
	if ws {
		return dialWS(ctx, addr)
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return NewLink(conn), nil
}

func dialWS(ctx context.Context, addr string) (*Link, error) {
	url := fmt.Sprintf("ws://%s%s", addr, wsPath)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	return NewLink(newWSConn(conn)), nil
}
