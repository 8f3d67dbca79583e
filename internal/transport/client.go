package transport

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/san-kum/frictionlab/internal/world"
	"go.uber.org/zap"
)

// Client is a world reached over a websocket connection. Calls are
// serialized: each request waits for its response before the next is sent.
type Client struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
	log    *zap.Logger
}

var (
	_ world.World               = (*Client)(nil)
	_ world.DescriptorRegistrar = (*Client)(nil)
)

func Dial(ctx context.Context, url string, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &Client{conn: conn, log: log.Named("client")}, nil
}

func (c *Client) call(ctx context.Context, req Request) (Response, error) {
	req.ID = uuid.NewString()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return Response{}, world.ErrClosed
	}

	deadline, _ := ctx.Deadline()
	c.conn.SetWriteDeadline(deadline)
	c.conn.SetReadDeadline(deadline)
	defer func() {
		c.conn.SetWriteDeadline(time.Time{})
		c.conn.SetReadDeadline(time.Time{})
	}()

	if err := c.conn.WriteJSON(req); err != nil {
		return Response{}, fmt.Errorf("send %s: %w", req.Op, err)
	}
	var resp Response
	if err := c.conn.ReadJSON(&resp); err != nil {
		return Response{}, fmt.Errorf("receive %s: %w", req.Op, err)
	}
	if resp.ID != req.ID {
		return Response{}, fmt.Errorf("response id %q does not match request %q", resp.ID, req.ID)
	}
	if resp.Code != "" {
		return resp, &RemoteError{Code: resp.Code, Message: resp.Error}
	}
	return resp, nil
}

func (c *Client) RegisterEntity(ctx context.Context, path string, pose world.Pose, name string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", world.ErrMalformed, err)
	}
	return c.RegisterDescriptor(ctx, data, pose, name)
}

func (c *Client) RegisterDescriptor(ctx context.Context, data []byte, pose world.Pose, name string) error {
	_, err := c.call(ctx, Request{Op: OpRegister, Entity: name, Descriptor: data, Pose: encodePose(pose)})
	return err
}

func (c *Client) EntityNames(ctx context.Context) ([]string, error) {
	resp, err := c.call(ctx, Request{Op: OpNames})
	if err != nil {
		return nil, err
	}
	return resp.Names, nil
}

func (c *Client) Entity(ctx context.Context, name string) (world.Entity, error) {
	if _, err := c.call(ctx, Request{Op: OpEntity, Entity: name}); err != nil {
		return nil, err
	}
	return &remoteEntity{client: c, name: name}, nil
}

func (c *Client) Advance(ctx context.Context, steps int) error {
	_, err := c.call(ctx, Request{Op: OpAdvance, Steps: steps})
	return err
}

// Close ends the connection. The remote world stays up.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.conn.Close()
}

type remoteEntity struct {
	client *Client
	name   string
}

func (e *remoteEntity) Name() string { return e.name }

func (e *remoteEntity) LinkNames(ctx context.Context) ([]string, error) {
	resp, err := e.client.call(ctx, Request{Op: OpLinks, Entity: e.name})
	if err != nil {
		return nil, err
	}
	return resp.Names, nil
}

func (e *remoteEntity) Link(ctx context.Context, name string) (world.Link, error) {
	if _, err := e.client.call(ctx, Request{Op: OpLink, Entity: e.name, Link: name}); err != nil {
		return nil, err
	}
	return &remoteLink{client: e.client, entity: e.name, name: name}, nil
}

type remoteLink struct {
	client *Client
	entity string
	name   string
}

func (l *remoteLink) Name() string { return l.name }

func (l *remoteLink) ApplyWorldForce(ctx context.Context, f mgl64.Vec3, duration float64) error {
	_, err := l.client.call(ctx, Request{Op: OpForce, Entity: l.entity, Link: l.name, Force: f, Duration: duration})
	return err
}

func (l *remoteLink) Position(ctx context.Context) (mgl64.Vec3, error) {
	return l.vector(ctx, OpPosition)
}

func (l *remoteLink) LinearVelocity(ctx context.Context) (mgl64.Vec3, error) {
	return l.vector(ctx, OpVelocity)
}

func (l *remoteLink) vector(ctx context.Context, op Op) (mgl64.Vec3, error) {
	resp, err := l.client.call(ctx, Request{Op: op, Entity: l.entity, Link: l.name})
	if err != nil {
		return mgl64.Vec3{}, err
	}
	return resp.Vector, nil
}
