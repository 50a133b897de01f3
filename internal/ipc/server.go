package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"strings"
	"sync"
	"time"

	"lectern/internal/api"
	"lectern/internal/daemon"
	"lectern/internal/logging"
	"lectern/internal/queue"
)

const (
	defaultTailLimit = 200
	maxTailWait      = 30 * time.Second
)

// Server answers JSON-RPC calls on a Unix socket. Each accepted connection
// gets its own codec goroutine.
type Server struct {
	path     string
	logger   *slog.Logger
	listener net.Listener
	rpc      *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// NewServer replaces any stale socket at path and registers the daemon's
// RPC methods.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With(logging.String(logging.FieldComponent, "ipc"))

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}
	srvCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName(serviceName, &service{daemon: d, logger: logger, ctx: srvCtx}); err != nil {
		cancel()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("listen on socket: %w", err)
	}
	return &Server{
		path:     path,
		logger:   logger,
		listener: listener,
		rpc:      rpcServer,
		ctx:      srvCtx,
		cancel:   cancel,
		conns:    make(map[net.Conn]struct{}),
	}, nil
}

// Serve accepts connections in the background until Close.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go s.acceptLoop()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		switch {
		case err == nil:
			s.handle(conn)
		case s.ctx.Err() != nil, errors.Is(err, net.ErrClosed):
			return
		default:
			s.logger.Warn("accept failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "ipc_accept_failed"),
				logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
				logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
		}
	}
}

func (s *Server) handle(conn net.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.rpc.ServeCodec(jsonrpc.NewServerCodec(conn))
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()
}

// Close stops accepting, hangs up on connected clients and removes the
// socket file.
func (s *Server) Close() {
	s.cancel()
	_ = s.listener.Close()

	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()

	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun lectern stop"))
	}
}

// service holds the exported RPC methods. Every method runs against the
// server context, not the caller's.
type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

// count runs a queue mutation and logs how many rows it touched.
func (s *service) count(eventType, field string, op func(context.Context) (int64, error)) (int64, error) {
	n, err := op(s.ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Info(strings.ReplaceAll(eventType, "_", " "),
		logging.String(logging.FieldEventType, eventType),
		logging.Int64(field+"_count", n))
	return n, nil
}

func (s *service) toDTO(item *queue.Item) QueueItem {
	dto := api.FromQueueItem(item)
	dto.ItemLogPath = s.daemon.ItemLogPath(item.ID)
	return dto
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	if err := s.daemon.Start(s.ctx); err != nil {
		resp.Message = err.Error()
		return nil
	}
	resp.Started, resp.Message = true, "daemon started"
	s.logger.Info("daemon started via IPC", logging.String(logging.FieldEventType, "ipc_start"))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.daemon.Stop()
	resp.Stopped = true
	s.logger.Info("daemon stopped via IPC", logging.String(logging.FieldEventType, "ipc_stop"))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	st := s.daemon.Status(s.ctx)
	wf := api.FromStatusSummary(st.Workflow)
	*resp = StatusResponse{
		Running:      st.Running,
		PID:          st.PID,
		QueueDBPath:  st.QueueDBPath,
		LockPath:     st.LockFilePath,
		InboxDir:     st.InboxDir,
		QueueStats:   wf.QueueStats,
		LastError:    wf.LastError,
		LastItem:     wf.LastItem,
		StageHealth:  wf.StageHealth,
		Dependencies: api.FromDependencies(st.Dependencies),
	}
	return nil
}

func (s *service) AddFile(req AddFileRequest, resp *AddFileResponse) error {
	item, existing, err := s.daemon.AddFile(s.ctx, daemon.AddFileRequest{
		Path:      req.Path,
		Title:     req.Title,
		Overrides: req.Overrides,
		Origin:    "cli",
	})
	if err != nil {
		return err
	}
	resp.Item, resp.Existing = s.toDTO(item), existing
	return nil
}

func (s *service) QueueList(req QueueListRequest, resp *QueueListResponse) error {
	var statuses []queue.Status
	for _, raw := range req.Statuses {
		status, ok := queue.ParseStatus(raw)
		if !ok {
			return fmt.Errorf("unknown status %q", raw)
		}
		statuses = append(statuses, status)
	}
	items, err := s.daemon.ListQueue(s.ctx, statuses)
	if err != nil {
		return err
	}
	resp.Items = make([]QueueItem, 0, len(items))
	for _, item := range items {
		if item != nil {
			resp.Items = append(resp.Items, s.toDTO(item))
		}
	}
	return nil
}

func (s *service) QueueDescribe(req QueueDescribeRequest, resp *QueueDescribeResponse) error {
	if req.ID <= 0 {
		return fmt.Errorf("invalid queue item id %d", req.ID)
	}
	item, err := s.daemon.GetQueueItem(s.ctx, req.ID)
	if err != nil || item == nil {
		return err
	}
	resp.Found, resp.Item = true, s.toDTO(item)
	return nil
}

func (s *service) QueueClear(_ QueueClearRequest, resp *QueueClearResponse) (err error) {
	resp.Removed, err = s.count("queue_clear", "removed", s.daemon.ClearQueue)
	return err
}

func (s *service) QueueClearCompleted(_ QueueClearCompletedRequest, resp *QueueClearResponse) (err error) {
	resp.Removed, err = s.count("queue_clear_completed", "removed", s.daemon.ClearCompleted)
	return err
}

func (s *service) QueueClearFailed(_ QueueClearFailedRequest, resp *QueueClearResponse) (err error) {
	resp.Removed, err = s.count("queue_clear_failed", "removed", s.daemon.ClearFailed)
	return err
}

func (s *service) QueueRemove(req QueueRemoveRequest, resp *QueueRemoveResponse) (err error) {
	if len(req.IDs) == 0 {
		return errors.New("queue remove requires at least one id")
	}
	resp.Removed, err = s.count("queue_remove", "removed", func(ctx context.Context) (int64, error) {
		return s.daemon.RemoveItems(ctx, req.IDs)
	})
	return err
}

func (s *service) QueueRetry(req QueueRetryRequest, resp *QueueUpdateResponse) (err error) {
	resp.Updated, err = s.count("queue_retry", "updated", func(ctx context.Context) (int64, error) {
		return s.daemon.RetryFailed(ctx, req.IDs)
	})
	return err
}

func (s *service) ResetStuck(_ ResetStuckRequest, resp *QueueUpdateResponse) (err error) {
	resp.Updated, err = s.count("queue_reset_stuck", "updated", s.daemon.ResetStuck)
	return err
}

func (s *service) QueueHealth(_ QueueHealthRequest, resp *QueueHealthResponse) (err error) {
	*resp, err = s.daemon.QueueHealth(s.ctx)
	return err
}

// DatabaseHealth reports diagnostics even when the probe failed part way;
// only failures not captured in the payload surface as RPC errors.
func (s *service) DatabaseHealth(_ DatabaseHealthRequest, resp *DatabaseHealthResponse) error {
	health, err := s.daemon.DatabaseHealth(s.ctx)
	*resp = health
	if err != nil && health.Error == "" {
		return err
	}
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) (err error) {
	resp.Sent, resp.Message, err = s.daemon.TestNotification(s.ctx)
	return err
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	hub := s.daemon.LogStream()
	limit := req.Limit
	if limit <= 0 {
		limit = defaultTailLimit
	}
	filter := logging.LogFilter{ItemID: req.ItemID}
	var events []logging.LogEvent
	switch {
	case req.Tail && req.Since == 0:
		events, resp.Next = hub.TailMatching(limit, filter)
	default:
		ctx := s.ctx
		if req.Follow {
			wait := time.Duration(req.WaitMillis) * time.Millisecond
			if wait <= 0 || wait > maxTailWait {
				wait = time.Second
			}
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, wait)
			defer cancel()
		}
		var err error
		events, resp.Next, err = hub.FetchMatching(ctx, req.Since, limit, req.Follow, filter)
		if err != nil && ctx.Err() == nil {
			return err
		}
	}
	resp.Events = api.FromLogEvents(events)
	return nil
}
