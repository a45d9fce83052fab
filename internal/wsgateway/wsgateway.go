// Package wsgateway adapts a gorilla/websocket connection into the
// net.Conn a Session reads its line protocol from, so browser-based
// clients can speak audiompd without a raw TCP socket (spec.md §6's
// wire protocol carried over an alternate transport).
package wsgateway

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/bken/audiompd/internal/command"
	"github.com/bken/audiompd/internal/eventloop"
	"github.com/bken/audiompd/internal/instance"
	"github.com/bken/audiompd/internal/session"
)

// Gateway upgrades HTTP requests to websocket connections and hands each
// one to a new Session, mirroring the teacher's ws.Handler shape.
type Gateway struct {
	inst     *instance.Instance
	loop     *eventloop.Loop
	upgrader websocket.Upgrader
}

// New creates a Gateway whose sessions attach to inst's default
// partition and run on loop.
func New(inst *instance.Instance, loop *eventloop.Loop) *Gateway {
	return &Gateway{
		inst: inst,
		loop: loop,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
	}
}

// Register binds the websocket route on an Echo router.
func (g *Gateway) Register(e *echo.Echo) {
	e.GET("/ws", g.handleUpgrade)
}

func (g *Gateway) handleUpgrade(c echo.Context) error {
	remote := c.RealIP()
	conn, err := g.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error("wsgateway upgrade failed", "remote", remote, "err", err)
		return err
	}
	slog.Info("wsgateway connected", "remote", remote)

	part := g.inst.DefaultPartition()
	sess := session.New(wrapConn(conn), g.loop, g.inst, part, command.PermRead|command.PermAdd)
	go func() {
		sess.Serve()
		slog.Info("wsgateway disconnected", "remote", remote)
	}()
	return nil
}

// wrapConn returns conn framed as a net.Conn, so it satisfies what
// Session.Serve expects: a byte stream it can read lines off of and
// write responses to, oblivious to the websocket message framing
// underneath.
func wrapConn(conn *websocket.Conn) net.Conn {
	return &wsConn{Conn: conn}
}

// wsConn presents one websocket connection as a net.Conn by
// concatenating successive binary/text messages into a flat byte
// stream on Read, and wrapping each Write in its own message.
type wsConn struct {
	*websocket.Conn
	reader io.Reader
}

func (c *wsConn) Read(b []byte) (int, error) {
	for {
		if c.reader != nil {
			n, err := c.reader.Read(b)
			if err == io.EOF {
				c.reader = nil
				if n > 0 {
					return n, nil
				}
				continue
			}
			return n, err
		}
		_, r, err := c.Conn.NextReader()
		if err != nil {
			return 0, translateCloseError(err)
		}
		c.reader = r
	}
}

func (c *wsConn) Write(b []byte) (int, error) {
	if err := c.Conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (c *wsConn) Close() error                       { return c.Conn.Close() }
func (c *wsConn) LocalAddr() net.Addr                 { return c.Conn.LocalAddr() }
func (c *wsConn) RemoteAddr() net.Addr                { return c.Conn.RemoteAddr() }
func (c *wsConn) SetDeadline(t time.Time) error       { return c.Conn.SetReadDeadline(t) }
func (c *wsConn) SetReadDeadline(t time.Time) error   { return c.Conn.SetReadDeadline(t) }
func (c *wsConn) SetWriteDeadline(t time.Time) error  { return c.Conn.SetWriteDeadline(t) }

func translateCloseError(err error) error {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return io.EOF
	}
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return io.EOF
	}
	return err
}
