package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/san-kum/frictionlab/internal/world"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// OpenFunc creates the world one connection drives.
type OpenFunc func(ctx context.Context) (world.World, error)

// Server exposes worlds over websocket. Requests on one connection are
// handled in order.
type Server struct {
	shared   world.World
	open     OpenFunc
	upgrader websocket.Upgrader
	log      *zap.Logger

	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// NewServer serves w to every connection. The world outlives the server.
func NewServer(w world.World, log *zap.Logger) *Server {
	s := newServer(log)
	s.shared = w
	return s
}

// NewSessionServer gives each connection a fresh world from open and closes
// it when the connection ends, so clients never see each other's entities.
func NewSessionServer(open OpenFunc, log *zap.Logger) *Server {
	s := newServer(log)
	s.open = open
	return s
}

func newServer(log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log:   log.Named("server"),
		conns: make(map[*websocket.Conn]struct{}),
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		http.Error(w, "server closed", http.StatusServiceUnavailable)
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	ctx := r.Context()
	wld, err := s.connWorld(ctx)
	if err != nil {
		s.log.Warn("open world", zap.Error(err))
		http.Error(w, "open world: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if s.open != nil {
		defer func() {
			if err := wld.Close(); err != nil {
				s.log.Warn("close world", zap.Error(err))
			}
		}()
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	if !s.track(conn) {
		conn.Close()
		return
	}
	defer s.untrack(conn)

	s.log.Debug("client connected", zap.String("remote", conn.RemoteAddr().String()))
	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("connection ended", zap.Error(err))
			}
			return
		}
		resp := s.handle(ctx, wld, req)
		if err := conn.WriteJSON(resp); err != nil {
			s.log.Warn("write response", zap.String("id", req.ID), zap.Error(err))
			return
		}
	}
}

func (s *Server) connWorld(ctx context.Context) (world.World, error) {
	if s.open == nil {
		return s.shared, nil
	}
	return s.open(ctx)
}

func (s *Server) track(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	conn.Close()
}

func (s *Server) handle(ctx context.Context, w world.World, req Request) Response {
	resp := Response{ID: req.ID}
	err := s.dispatch(ctx, w, req, &resp)
	if err != nil {
		resp.Code = codeOf(err)
		resp.Error = err.Error()
		s.log.Debug("request failed",
			zap.String("op", string(req.Op)),
			zap.String("entity", req.Entity),
			zap.String("code", string(resp.Code)),
			zap.Error(err))
	}
	return resp
}

func (s *Server) dispatch(ctx context.Context, w world.World, req Request, resp *Response) error {
	switch req.Op {
	case OpRegister:
		return s.register(ctx, w, req)
	case OpNames:
		names, err := w.EntityNames(ctx)
		resp.Names = names
		return err
	case OpEntity:
		_, err := w.Entity(ctx, req.Entity)
		return err
	case OpLinks:
		e, err := w.Entity(ctx, req.Entity)
		if err != nil {
			return err
		}
		resp.Names, err = e.LinkNames(ctx)
		return err
	case OpLink:
		_, err := s.link(ctx, w, req)
		return err
	case OpForce:
		l, err := s.link(ctx, w, req)
		if err != nil {
			return err
		}
		return l.ApplyWorldForce(ctx, req.Force, req.Duration)
	case OpPosition:
		l, err := s.link(ctx, w, req)
		if err != nil {
			return err
		}
		resp.Vector, err = l.Position(ctx)
		return err
	case OpVelocity:
		l, err := s.link(ctx, w, req)
		if err != nil {
			return err
		}
		resp.Vector, err = l.LinearVelocity(ctx)
		return err
	case OpAdvance:
		return w.Advance(ctx, req.Steps)
	default:
		return fmt.Errorf("%w: unknown op %q", world.ErrInvalidArgument, req.Op)
	}
}

func (s *Server) link(ctx context.Context, w world.World, req Request) (world.Link, error) {
	e, err := w.Entity(ctx, req.Entity)
	if err != nil {
		return nil, err
	}
	return e.Link(ctx, req.Link)
}

func (s *Server) register(ctx context.Context, w world.World, req Request) error {
	pose := req.Pose.decode()
	if r, ok := w.(world.DescriptorRegistrar); ok {
		return r.RegisterDescriptor(ctx, req.Descriptor, pose, req.Entity)
	}

	f, err := os.CreateTemp("", "frictionlab-remote-*.urdf")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(req.Descriptor); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return w.RegisterEntity(ctx, f.Name(), pose, req.Entity)
}

// Close drops every open connection and waits for their handlers to return.
// A world passed to NewServer is left open.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle(Path, s)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("listening", zap.String("addr", addr), zap.String("path", Path))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.Close()
		s.log.Info("stopped", zap.Error(err))
		return err
	})
	return g.Wait()
}
