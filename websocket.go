package esmerald

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketHandler serves one upgraded connection. Returning nil closes the
// connection normally; an error closes it with an internal error code.
type WebSocketHandler func(ctx context.Context, ws *WebSocket) error

// WebSocketGateway binds a path to a websocket handler. It is served on GET
// and never appears in the OpenAPI document.
type WebSocketGateway struct {
	path     string
	handle   WebSocketHandler
	upgrader websocket.Upgrader

	readTimeout  time.Duration
	writeTimeout time.Duration
}

// WebSocketOption configures a WebSocketGateway.
type WebSocketOption func(*WebSocketGateway)

// WithWebSocketReadTimeout sets the deadline applied to every read.
func WithWebSocketReadTimeout(d time.Duration) WebSocketOption {
	return func(g *WebSocketGateway) {
		g.readTimeout = d
	}
}

// WithWebSocketWriteTimeout sets the deadline applied to every write.
func WithWebSocketWriteTimeout(d time.Duration) WebSocketOption {
	return func(g *WebSocketGateway) {
		g.writeTimeout = d
	}
}

// WithWebSocketCheckOrigin sets the origin check for upgrades. The default
// only accepts same-origin requests.
func WithWebSocketCheckOrigin(fn func(r *http.Request) bool) WebSocketOption {
	return func(g *WebSocketGateway) {
		g.upgrader.CheckOrigin = fn
	}
}

// NewWebSocketGateway creates a websocket endpoint at path.
func NewWebSocketGateway(path string, h WebSocketHandler, opts ...WebSocketOption) *WebSocketGateway {
	g := &WebSocketGateway{
		path:   path,
		handle: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		readTimeout:  60 * time.Second,
		writeTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Path returns the gateway path.
func (g *WebSocketGateway) Path() string { return g.path }

func (*WebSocketGateway) isRoute() {}

func (g *WebSocketGateway) handler(env *handlerEnv) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := g.upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already answered the client.
			env.logger.DebugContext(r.Context(), "websocket upgrade failed", "path", r.URL.Path, "error", err)
			return
		}

		ws := &WebSocket{
			Request:      r,
			conn:         conn,
			readTimeout:  g.readTimeout,
			writeTimeout: g.writeTimeout,
		}

		err = g.handle(r.Context(), ws)
		switch {
		case err == nil, isCloseError(err):
			ws.Close(websocket.CloseNormalClosure, "")
		default:
			env.logger.ErrorContext(r.Context(), "websocket handler failed", "path", r.URL.Path, "error", err)
			ws.Close(websocket.CloseInternalServerErr, http.StatusText(http.StatusInternalServerError))
		}
	})
}

func isCloseError(err error) bool {
	var ce *websocket.CloseError
	return errors.As(err, &ce)
}

// WebSocket is an upgraded connection handed to a WebSocketHandler. Writes
// are safe for concurrent use; reads belong to a single goroutine.
type WebSocket struct {
	// Request is the upgrade request.
	Request *http.Request

	conn         *websocket.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

// ReadJSON reads the next message and decodes it into v.
func (ws *WebSocket) ReadJSON(v any) error {
	ws.setReadDeadline()
	return ws.conn.ReadJSON(v)
}

// ReadText reads the next message as text.
func (ws *WebSocket) ReadText() (string, error) {
	ws.setReadDeadline()
	_, b, err := ws.conn.ReadMessage()
	return string(b), err
}

// WriteJSON encodes v as a text message.
func (ws *WebSocket) WriteJSON(v any) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.setWriteDeadline()
	return ws.conn.WriteJSON(v)
}

// WriteText writes s as a text message.
func (ws *WebSocket) WriteText(s string) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.setWriteDeadline()
	return ws.conn.WriteMessage(websocket.TextMessage, []byte(s))
}

// Close sends a close frame with code and reason and closes the connection.
// Closing twice is a no-op.
func (ws *WebSocket) Close(code int, reason string) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.closed {
		return
	}
	ws.closed = true
	ws.setWriteDeadline()
	_ = ws.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
	_ = ws.conn.Close()
}

func (ws *WebSocket) setReadDeadline() {
	if ws.readTimeout > 0 {
		_ = ws.conn.SetReadDeadline(time.Now().Add(ws.readTimeout))
	}
}

func (ws *WebSocket) setWriteDeadline() {
	if ws.writeTimeout > 0 {
		_ = ws.conn.SetWriteDeadline(time.Now().Add(ws.writeTimeout))
	}
}
