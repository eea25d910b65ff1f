package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"sharecast/internal/logger"
)

// ErrChannelClosed is returned by Send and Next once a channel has closed.
var ErrChannelClosed = errors.New("channel closed")

// Channel is an ordered, reliable, message-framing duplex connection to the
// relay server. Frames sent on one side arrive on the other in send order for
// the lifetime of the connection.
type Channel interface {
	// Send writes one frame. Returns ErrChannelClosed if the channel is
	// closed or closes while writing.
	Send(ctx context.Context, frame []byte) error

	// Next blocks until the next inbound frame arrives. Frames buffered
	// before close are still delivered in order; after that Next returns
	// ErrChannelClosed.
	Next(ctx context.Context) ([]byte, error)

	// Done is closed when the channel closes, by either side.
	Done() <-chan struct{}

	// Close tears the channel down. Safe to call multiple times.
	Close() error
}

// DialFunc opens a channel to a relay endpoint.
type DialFunc func(ctx context.Context, url string) (Channel, error)

// Dial opens a websocket-backed channel.
func Dial(ctx context.Context, url string) (Channel, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return NewWebsocketChannel(conn), nil
}

// NewWebsocketChannel wraps an established websocket connection as a Channel.
// It takes ownership of the connection.
func NewWebsocketChannel(conn *websocket.Conn) Channel {
	ch := &wsChannel{
		conn:    conn,
		inbound: make(chan []byte, 64),
		done:    make(chan struct{}),
	}
	go ch.readPump()
	return ch
}

type wsChannel struct {
	conn    *websocket.Conn
	inbound chan []byte
	done    chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func (c *wsChannel) readPump() {
	defer c.shutdown()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Debugf("[channel] read error: %v", err)
			}
			return
		}
		select {
		case c.inbound <- data:
		case <-c.done:
			return
		}
	}
}

func (c *wsChannel) Send(ctx context.Context, frame []byte) error {
	select {
	case <-c.done:
		return ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.shutdown()
		return ErrChannelClosed
	}
	return nil
}

func (c *wsChannel) Next(ctx context.Context) ([]byte, error) {
	// Drain frames that arrived before a close so ordering survives teardown.
	select {
	case frame := <-c.inbound:
		return frame, nil
	default:
	}

	select {
	case frame := <-c.inbound:
		return frame, nil
	case <-c.done:
		return nil, ErrChannelClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *wsChannel) Done() <-chan struct{} { return c.done }

func (c *wsChannel) Close() error {
	c.shutdown()
	return nil
}

func (c *wsChannel) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}
