package infrastructure

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yourusername/dyt-client/internal/domain"
	"go.uber.org/zap"
)

const closeWriteTimeout = time.Second

// WebSocketDialer opens progress channels at ws(s)://host/ws/{task_id}
type WebSocketDialer struct {
	baseURL *url.URL
	dialer  *websocket.Dialer
	logger  *zap.Logger
}

// NewWebSocketDialer derives the websocket endpoint from the service base URL
func NewWebSocketDialer(config *domain.ServiceConfig, logger *zap.Logger) (*WebSocketDialer, error) {
	u, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid service base url: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported service url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/")

	return &WebSocketDialer{
		baseURL: u,
		dialer: &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: config.RequestTimeout,
		},
		logger: logger,
	}, nil
}

// Endpoint returns the channel URL of a task
func (d *WebSocketDialer) Endpoint(taskID string) string {
	u := *d.baseURL
	u.Path = u.Path + "/ws/" + url.PathEscape(taskID)
	return u.String()
}

// Dial opens the progress channel of a task
func (d *WebSocketDialer) Dial(ctx context.Context, taskID string) (domain.ProgressChannel, error) {
	endpoint := d.Endpoint(taskID)

	conn, resp, err := d.dialer.DialContext(ctx, endpoint, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &domain.TransportError{Op: "dial " + endpoint, Err: err}
	}

	d.logger.Debug("Progress channel opened", zap.String("task_id", taskID))

	ch := &webSocketChannel{
		taskID: taskID,
		conn:   conn,
		frames: make(chan frame),
		done:   make(chan struct{}),
		logger: d.logger,
	}
	go ch.readLoop()
	return ch, nil
}

type frame struct {
	data []byte
	err  error
}

// webSocketChannel is one open progress channel. A reader goroutine
// feeds frames so Next can honor its context.
type webSocketChannel struct {
	taskID string
	conn   *websocket.Conn
	frames chan frame
	done   chan struct{}
	logger *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

func (c *webSocketChannel) readLoop() {
	defer close(c.frames)
	for {
		_, data, err := c.conn.ReadMessage()
		select {
		case c.frames <- frame{data: data, err: err}:
		case <-c.done:
			return
		}
		if err != nil {
			return
		}
	}
}

// Next blocks until the next event arrives. Unknown statuses come back
// as *domain.UnknownStatusError and leave the channel usable.
func (c *webSocketChannel) Next(ctx context.Context) (domain.ProgressEvent, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.done:
			return nil, &domain.TransportError{Op: "read", Err: net.ErrClosed}
		case f, ok := <-c.frames:
			if !ok {
				return nil, &domain.TransportError{Op: "read", Err: io.EOF}
			}
			if f.err != nil {
				return nil, &domain.TransportError{Op: "read", Err: f.err}
			}

			event, err := domain.ParseProgressMessage(f.data)
			if err != nil {
				if _, unknown := err.(*domain.UnknownStatusError); unknown {
					return nil, err
				}
				c.logger.Warn("Skipping malformed progress message",
					zap.String("task_id", c.taskID),
					zap.ByteString("data", f.data),
					zap.Error(err))
				continue
			}
			return event, nil
		}
	}
}

// Close releases the connection; closing twice is a no-op
func (c *webSocketChannel) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		deadline := time.Now().Add(closeWriteTimeout)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		c.closeErr = c.conn.Close()
		c.logger.Debug("Progress channel closed", zap.String("task_id", c.taskID))
	})
	return c.closeErr
}
