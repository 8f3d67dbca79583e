package transport

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/frictionlab/internal/urdf"
	"github.com/san-kum/frictionlab/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func serve(t *testing.T) (*Client, *Server) {
	t.Helper()
	sandbox := world.NewSandbox(world.DefaultSandboxConfig(), nil)
	srv := NewServer(sandbox, nil)
	ts := httptest.NewServer(srv)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		client.Close()
		srv.Close()
		ts.Close()
		sandbox.Close()
	})
	return client, srv
}

func descriptor(t *testing.T, mu float64) []byte {
	t.Helper()
	robot, err := urdf.NewCube(urdf.CubeParams{Mass: 0.5, Edge: 0.5, Color: urdf.Blue, Friction: mu})
	require.NoError(t, err)
	data, err := robot.Marshal()
	require.NoError(t, err)
	return data
}

func TestRemoteWorldRoundTrip(t *testing.T) {
	ctx := context.Background()
	client, _ := serve(t)

	require.NoError(t, client.RegisterDescriptor(ctx, descriptor(t, 0), world.NewPose(0, -2, 0.25), "cube_0"))
	require.NoError(t, client.RegisterDescriptor(ctx, descriptor(t, 100), world.NewPose(0, -1, 0.25), "cube_1"))

	names, err := client.EntityNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{world.GroundName, "cube_0", "cube_1"}, names)

	e, err := client.Entity(ctx, "cube_0")
	require.NoError(t, err)
	links, err := e.LinkNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{urdf.LinkName}, links)

	slider, err := e.Link(ctx, urdf.LinkName)
	require.NoError(t, err)
	sticky := mustLink(t, client, "cube_1")

	require.NoError(t, slider.ApplyWorldForce(ctx, mgl64.Vec3{20, 0, 0}, 0.2))
	require.NoError(t, sticky.ApplyWorldForce(ctx, mgl64.Vec3{20, 0, 0}, 0.2))
	require.NoError(t, client.Advance(ctx, 1000))

	pos, err := slider.Position(ctx)
	require.NoError(t, err)
	assert.Greater(t, pos.X(), 0.0)
	assert.InDelta(t, -2, pos.Y(), 1e-12)

	v, err := slider.LinearVelocity(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 8, v.X(), 1e-6)

	pos, err = sticky.Position(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0, pos.X(), 1e-12)
}

func TestRemoteRegisterFromFile(t *testing.T) {
	ctx := context.Background()
	client, _ := serve(t)

	sess, err := world.Open(client, nil)
	require.NoError(t, err)
	defer sess.Close()

	path, err := sess.WriteDescriptor("cube_0", descriptor(t, 1))
	require.NoError(t, err)
	require.NoError(t, sess.World().RegisterEntity(ctx, path, world.NewPose(1, 2, 0.25), "cube_0"))

	pos, err := mustLink(t, client, "cube_0").Position(ctx)
	require.NoError(t, err)
	assert.Equal(t, mgl64.Vec3{1, 2, 0.25}, pos)
}

func mustLink(t *testing.T, c *Client, entity string) world.Link {
	t.Helper()
	ctx := context.Background()
	e, err := c.Entity(ctx, entity)
	require.NoError(t, err)
	l, err := e.Link(ctx, urdf.LinkName)
	require.NoError(t, err)
	return l
}

func TestRemoteErrorsMapToWorldErrors(t *testing.T) {
	ctx := context.Background()
	client, _ := serve(t)
	require.NoError(t, client.RegisterDescriptor(ctx, descriptor(t, 1), world.NewPose(0, 0, 0.25), "cube_0"))

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"unknown entity", func() error {
			_, err := client.Entity(ctx, "nope")
			return err
		}, world.ErrNotFound},
		{"unknown link", func() error {
			e, err := client.Entity(ctx, "cube_0")
			if err != nil {
				return err
			}
			_, err = e.Link(ctx, "wheel")
			return err
		}, world.ErrNotFound},
		{"duplicate", func() error {
			return client.RegisterDescriptor(ctx, descriptor(t, 1), world.NewPose(0, 1, 0.25), "cube_0")
		}, world.ErrRegistrationConflict},
		{"malformed", func() error {
			return client.RegisterDescriptor(ctx, []byte("<robot"), world.NewPose(0, 1, 0.25), "junk")
		}, world.ErrMalformed},
		{"negative steps", func() error {
			return client.Advance(ctx, -5)
		}, world.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var remote *RemoteError
			assert.ErrorAs(t, err, &remote)
		})
	}
}

func TestClientClosed(t *testing.T) {
	client, _ := serve(t)
	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	_, err := client.EntityNames(context.Background())
	assert.ErrorIs(t, err, world.ErrClosed)
}

func TestSessionServerWorldPerConnection(t *testing.T) {
	ctx := context.Background()

	var (
		mu     sync.Mutex
		worlds []*world.Sandbox
	)
	srv := NewSessionServer(func(context.Context) (world.World, error) {
		sb := world.NewSandbox(world.DefaultSandboxConfig(), nil)
		mu.Lock()
		worlds = append(worlds, sb)
		mu.Unlock()
		return sb, nil
	}, nil)
	ts := httptest.NewServer(srv)
	defer ts.Close()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")

	for range 2 {
		client, err := Dial(ctx, url, nil)
		require.NoError(t, err)
		require.NoError(t, client.RegisterDescriptor(ctx, descriptor(t, 0), world.NewPose(0, -2, 0.25), "cube_0"))

		names, err := client.EntityNames(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{world.GroundName, "cube_0"}, names)
		require.NoError(t, client.Close())
	}

	require.NoError(t, srv.Close())
	require.Len(t, worlds, 2)
	for _, sb := range worlds {
		_, err := sb.EntityNames(ctx)
		assert.ErrorIs(t, err, world.ErrClosed)
	}
}

func TestSessionServerOpenFailure(t *testing.T) {
	srv := NewSessionServer(func(context.Context) (world.World, error) {
		return nil, errors.New("no capacity")
	}, nil)
	ts := httptest.NewServer(srv)
	defer func() {
		srv.Close()
		ts.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	assert.Error(t, err)
}

func TestServerCloseDropsClients(t *testing.T) {
	client, srv := serve(t)
	_, err := client.EntityNames(context.Background())
	require.NoError(t, err)

	require.NoError(t, srv.Close())
	_, err = client.EntityNames(context.Background())
	assert.Error(t, err)
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	sandbox := world.NewSandbox(world.DefaultSandboxConfig(), nil)
	defer sandbox.Close()
	srv := NewServer(sandbox, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestPoseEncoding(t *testing.T) {
	p := world.Pose{
		Position:    mgl64.Vec3{1, 2, 3},
		Orientation: mgl64.QuatRotate(0.5, mgl64.Vec3{0, 0, 1}),
	}
	got := encodePose(p).decode()
	assert.Equal(t, p.Position, got.Position)
	assert.True(t, p.Orientation.ApproxEqual(got.Orientation))

	var missing *WirePose
	assert.Equal(t, mgl64.QuatIdent(), missing.decode().Orientation)
}
