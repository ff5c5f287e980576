package cdp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/mailru/easyjson"

	"github.com/revature/scopecheck/cdp/domains"
	"github.com/revature/scopecheck/log"
)

var _ cdp.Executor = &Client{}

// ErrConnectionClosed is returned by Execute once the CDP connection is gone.
var ErrConnectionClosed = errors.New("CDP connection closed")

// Client manages CDP communication with the browser.
type Client struct {
	logger *log.Logger

	Browser domains.Browser
	Page    domains.Page
	Runtime domains.Runtime
	Target  domains.Target

	conn  *connection
	wsURL string
	msgID int64

	msgSubsMu sync.Mutex
	msgSubs   map[int64]chan *cdproto.Message

	watcher *eventWatcher

	errMu sync.Mutex
	err   error
	done  chan struct{}
}

// NewClient returns a new Client that is unusable until a CDP connection is
// established with Connect().
func NewClient(logger *log.Logger) *Client {
	c := &Client{
		logger:  logger,
		msgSubs: make(map[int64]chan *cdproto.Message),
		watcher: newEventWatcher(logger),
		done:    make(chan struct{}),
	}

	c.Browser = domains.NewBrowser(c)
	c.Page = domains.NewPage(c)
	c.Runtime = domains.NewRuntime(c)
	c.Target = domains.NewTarget(c)

	return c
}

// Connect to the browser that exposes a CDP API at wsURL.
func (c *Client) Connect(ctx context.Context, wsURL string) (err error) {
	if c.wsURL != "" {
		return fmt.Errorf("CDP connection already established to %q", c.wsURL)
	}

	if c.conn, err = newConnection(ctx, wsURL, c.logger); err != nil {
		return err
	}
	c.logger.Debugf("cdp", "established CDP connection to %q", wsURL)
	c.wsURL = wsURL

	go c.recvLoop()

	return nil
}

// Close closes the CDP connection and waits for the receive loop to exit.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	<-c.done

	return err
}

// Done is closed once the CDP connection is lost or closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that ended the receive loop, if any.
func (c *Client) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// Execute implements cdp.Executor and performs a synchronous send and
// receive. Commands are routed to the session stored in ctx, if any.
func (c *Client) Execute(ctx context.Context, method string, params easyjson.Marshaler, res easyjson.Unmarshaler) error {
	if c.conn == nil {
		return fmt.Errorf("executing %s: %w", method, ErrConnectionClosed)
	}
	c.logger.Debugf("cdp:Client:Execute", "wsURL:%q method:%q", c.wsURL, method)

	var buf []byte
	if params != nil {
		var err error
		if buf, err = easyjson.Marshal(params); err != nil {
			return fmt.Errorf("marshaling %s params: %w", method, err)
		}
	}
	msg := &cdproto.Message{
		ID:     atomic.AddInt64(&c.msgID, 1),
		Method: cdproto.MethodType(method),
		Params: buf,
	}
	// Without a session ID the message is for the browser target.
	if sid := GetSessionID(ctx); sid != "" {
		msg.SessionID = target.SessionID(sid)
	}

	respCh := make(chan *cdproto.Message, 1)
	c.msgSubsMu.Lock()
	c.msgSubs[msg.ID] = respCh
	c.msgSubsMu.Unlock()
	defer func() {
		c.msgSubsMu.Lock()
		delete(c.msgSubs, msg.ID)
		c.msgSubsMu.Unlock()
	}()

	if err := c.conn.writeMessage(msg); err != nil {
		return err
	}

	select {
	case resp := <-respCh:
		if resp.Error != nil {
			return fmt.Errorf("executing %s: %w", method, resp.Error)
		}
		if res != nil && len(resp.Result) > 0 {
			if err := easyjson.Unmarshal(resp.Result, res); err != nil {
				return fmt.Errorf("unmarshaling %s result: %w", method, err)
			}
		}
		return nil
	case <-c.done:
		return fmt.Errorf("executing %s: %w", method, ErrConnectionClosed)
	case <-ctx.Done():
		return fmt.Errorf("executing %s: %w", method, ctx.Err())
	}
}

// Subscribe returns a channel that will be notified when the provided CDP
// events are received for the session stored in ctx, and a cancellation
// function that will unsubscribe and close the channel.
func (c *Client) Subscribe(ctx context.Context, events ...cdproto.MethodType) (<-chan *Event, func()) {
	return c.watcher.subscribe(GetSessionID(ctx), events...)
}

func (c *Client) recvLoop() {
	defer close(c.done)

	for {
		buf, err := c.conn.read()
		if err != nil {
			c.errMu.Lock()
			c.err = err
			c.errMu.Unlock()
			c.logger.Debugf("cdp:Client:recvLoop", "wsURL:%q err:%v", c.wsURL, err)
			return
		}
		c.logger.Tracef("cdp:recv", "<- %s", buf)

		var msg cdproto.Message
		if err := easyjson.Unmarshal(buf, &msg); err != nil {
			c.logger.Errorf("cdp:Client:recvLoop", "unmarshaling CDP message: %v", err)
			continue
		}

		if msg.Method != "" {
			c.handleEvent(&msg)
			continue
		}

		c.msgSubsMu.Lock()
		ch, ok := c.msgSubs[msg.ID]
		c.msgSubsMu.Unlock()
		if !ok {
			c.logger.Debugf("cdp:Client:recvLoop", "no waiter for message id:%d", msg.ID)
			continue
		}
		ch <- &msg
	}
}

func (c *Client) handleEvent(msg *cdproto.Message) {
	ev, err := cdproto.UnmarshalMessage(msg)
	if err != nil {
		// Unknown events are expected from browsers newer than cdproto.
		c.logger.Tracef("cdp:Client:handleEvent", "skipping %s: %v", msg.Method, err)
		return
	}
	c.watcher.notify(&Event{
		Name:      msg.Method,
		Data:      ev,
		SessionID: string(msg.SessionID),
	})
}
