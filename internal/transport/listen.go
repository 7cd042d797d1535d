package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// wsPath is the upgrade endpoint in WebSocket mode.
const wsPath = "/tunnel"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// PeerListener is the server side of channel establishment. It accepts
// exactly one peer for the lifetime of the process; once that peer is in,
// the listening socket closes and later connection attempts are refused.
type PeerListener struct {
	ln net.Listener
	ws bool

	mu     sync.Mutex
	taken  bool                 // winner handed out; every later upgrade is refused
	connCh chan *websocket.Conn // capacity 1; holds the winning peer
}

// NewPeerListener binds addr. The socket is opened with SO_REUSEADDR so a
// restarted endpoint can reclaim its port from sockets in TIME_WAIT.
func NewPeerListener(addr string, ws bool) (*PeerListener, error) {
	lc := net.ListenConfig{Control: reuseAddr}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", addr, err)
	}

	pl := &PeerListener{
		ln:     ln,
		ws:     ws,
		connCh: make(chan *websocket.Conn, 1),
	}
	if ws {
		pl.serveWS()
	}
	return pl, nil
}

// Addr returns the bound address, useful when addr requested port 0.
func (pl *PeerListener) Addr() net.Addr {
	return pl.ln.Addr()
}

// Close releases the listening socket. An established Link is unaffected.
func (pl *PeerListener) Close() error {
	return pl.ln.Close()
}

// AwaitLink blocks until the peer connects or ctx is cancelled. On success
// the listening socket is closed before returning: the channel is exclusive
// and no further peers are entertained.
func (pl *PeerListener) AwaitLink(ctx context.Context) (*Link, error) {
	if pl.ws {
		return pl.awaitWS(ctx)
	}

	// Unblock Accept when ctx is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			pl.ln.Close()
		case <-done:
		}
	}()

	conn, err := pl.ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to accept peer: %w", err)
	}
	pl.ln.Close()

	return NewLink(conn), nil
}

// serveWS runs the one-shot upgrade server on the bound socket.
func (pl *PeerListener) serveWS() {
	mux := http.NewServeMux()
	mux.HandleFunc(wsPath, pl.handleWS)
	go func() {
		_ = http.Serve(pl.ln, mux)
	}()
}

func (pl *PeerListener) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	// Only the first peer wins. The taken flag covers upgrades that finish
	// after the winner was handed out, when connCh is empty again.
	pl.mu.Lock()
	if pl.taken {
		pl.mu.Unlock()
		rejectWS(conn)
		return
	}
	select {
	case pl.connCh <- conn:
		pl.mu.Unlock()
	default:
		pl.mu.Unlock()
		rejectWS(conn)
	}
}

// rejectWS turns away a superfluous peer with a policy close.
func rejectWS(conn *websocket.Conn) {
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "tunnel already connected"))
	conn.Close()
}

func (pl *PeerListener) awaitWS(ctx context.Context) (*Link, error) {
	select {
	case conn := <-pl.connCh:
		pl.ln.Close()

		// A straggler may have parked in connCh before taken was set;
		// with capacity 1 there is at most one.
		pl.mu.Lock()
		pl.taken = true
		var stray *websocket.Conn
		select {
		case stray = <-pl.connCh:
		default:
		}
		pl.mu.Unlock()
		if stray != nil {
			rejectWS(stray)
		}

		return NewLink(newWSConn(conn)), nil

	case <-ctx.Done():
		pl.ln.Close()
		return nil, ctx.Err()
	}
}
