package cdp

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto"
	"github.com/gorilla/websocket"
	"github.com/mailru/easyjson/jwriter"
	"github.com/oxtoacart/bpool"

	"github.com/revature/scopecheck/log"
)

const (
	wsHandshakeTimeout = 10 * time.Second
	wsBufferSize       = 1 << 20
	wsCloseTimeout     = time.Second
	writeBufPoolSize   = 8
)

type connection struct {
	ws      *websocket.Conn
	logger  *log.Logger
	bufPool *bpool.BufferPool

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func newConnection(ctx context.Context, wsURL string, logger *log.Logger) (*connection, error) {
	wd := &websocket.Dialer{
		HandshakeTimeout: wsHandshakeTimeout,
		ReadBufferSize:   wsBufferSize,
		WriteBufferSize:  wsBufferSize,
		Proxy:            http.ProxyFromEnvironment,
	}
	ws, resp, err := wd.DialContext(ctx, wsURL, http.Header{})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to %q: %w", wsURL, err)
	}

	return &connection{
		ws:      ws,
		logger:  logger,
		bufPool: bpool.NewBufferPool(writeBufPoolSize),
	}, nil
}

func (c *connection) read() ([]byte, error) {
	_, buf, err := c.ws.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("reading CDP message: %w", err)
	}
	return buf, nil
}

func (c *connection) writeMessage(msg *cdproto.Message) error {
	var w jwriter.Writer
	msg.MarshalEasyJSON(&w)
	if err := w.Error; err != nil {
		return fmt.Errorf("marshaling CDP message %q: %w", msg.Method, err)
	}

	buf := c.bufPool.Get()
	defer c.bufPool.Put(buf)
	if _, err := w.DumpTo(buf); err != nil {
		return fmt.Errorf("encoding CDP message %q: %w", msg.Method, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.logger.Tracef("cdp:send", "-> %s", buf.Bytes())
	if err := c.ws.WriteMessage(websocket.TextMessage, buf.Bytes()); err != nil {
		return fmt.Errorf("writing CDP message %q: %w", msg.Method, err)
	}

	return nil
}

// Close sends a close frame and closes the underlying connection.
func (c *connection) Close() error {
	c.closeOnce.Do(func() {
		_ = c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(wsCloseTimeout),
		)
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}
