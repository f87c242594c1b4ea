package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"cherthat/internal/capture"
	"cherthat/internal/logging"
	"cherthat/internal/metrics"
	"cherthat/internal/relay"
)

// Handler is the relay behaviour exposed over the socket. *relay.Relay
// implements it.
type Handler interface {
	Submit(ctx context.Context, req capture.CaptureRequest) capture.Result
	LocalImages(ctx context.Context) ([]capture.CapturedImage, error)
	ClearLocalImages(ctx context.Context) error
	Handle(ctx context.Context, msg relay.Message) relay.Response
}

// Server exposes a Handler via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// NewServer binds the socket at path, replacing any stale socket file.
func NewServer(ctx context.Context, path string, h Handler, logger *slog.Logger, m *metrics.Metrics) (*Server, error) {
	if h == nil {
		return nil, errors.New("bridge server requires a handler")
	}
	logger = logging.NewComponentLogger(logger, "bridge")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	svc := &service{
		handler:   h,
		logger:    logger,
		metrics:   m,
		ctx:       serverCtx,
		socket:    path,
		startedAt: time.Now(),
	}
	if err := rpcServer.RegisterName(ServiceName, svc); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
		conns:     make(map[net.Conn]struct{}),
	}, nil
}

// Path returns the socket path.
func (s *Server) Path() string {
	return s.path
}

// Serve starts accepting RPC connections until the context is canceled or
// Close is called.
func (s *Server) Serve() {
	s.logger.Debug("bridge listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "bridge_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "capture controls may fail to reach the relay"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart cherthatd"))
				continue
			}
			s.track(conn, true)
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				defer s.track(c, false)
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

func (s *Server) track(conn net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[conn] = struct{}{}
		return
	}
	delete(s.conns, conn)
}

// Close stops the server, drops open connections, and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "bridge_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"))
	}
}

type service struct {
	handler   Handler
	logger    *slog.Logger
	metrics   *metrics.Metrics
	ctx       context.Context
	socket    string
	startedAt time.Time
}

func (s *service) SaveImage(req capture.CaptureRequest, resp *capture.Result) error {
	s.metrics.RecordBridgeCall(relay.MessageSaveImage)
	*resp = s.handler.Submit(s.ctx, req)
	return nil
}

func (s *service) GetLocalImages(_ Empty, resp *LocalImagesResponse) error {
	s.metrics.RecordBridgeCall(relay.MessageGetLocalImages)
	images, err := s.handler.LocalImages(s.ctx)
	if err != nil {
		return err
	}
	if images == nil {
		images = []capture.CapturedImage{}
	}
	resp.Images = images
	return nil
}

func (s *service) ClearLocalImages(_ Empty, resp *ClearResponse) error {
	s.metrics.RecordBridgeCall(relay.MessageClearLocalImages)
	if err := s.handler.ClearLocalImages(s.ctx); err != nil {
		return err
	}
	resp.Success = true
	return nil
}

func (s *service) Dispatch(msg relay.Message, resp *json.RawMessage) error {
	s.metrics.RecordBridgeCall(msg.Type)
	out := s.handler.Handle(s.ctx, msg)
	payload, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode %s response: %w", msg.Type, err)
	}
	*resp = payload
	return nil
}

func (s *service) Status(_ Empty, resp *StatusResponse) error {
	resp.PID = os.Getpid()
	resp.Socket = s.socket
	resp.StartedAt = s.startedAt
	images, err := s.handler.LocalImages(s.ctx)
	if err != nil {
		resp.LocalError = err.Error()
		return nil
	}
	resp.LocalCount = len(images)
	return nil
}
