package socket

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"
)

// Backend serves the protocol's methods. Thread safety is the implementor's
// responsibility: requests from different connections arrive concurrently.
type Backend interface {
	Open(p DocumentParams) error
	Change(p DocumentParams) error
	Close(path string) error
	Cursor(p CursorParams) (CursorResult, error)
	Edits(editor string) (EditsResult, error)
	Apply(p ApplyParams) (ApplyResult, error)
	Events(editor string) EventsResult
	Health() HealthResult
	Reindex(force bool) (ReindexResult, error)
}

// Server is the daemon that listens on a Unix socket and serves editor
// requests.
type Server struct {
	backend  Backend
	listener net.Listener
	sockPath string
	started  time.Time
	log      *slog.Logger

	done         chan struct{}
	shutdownCh   chan struct{} // closed when a remote shutdown request is received
	shutdownOnce sync.Once
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

// NewServer creates a daemon server backed by backend. logger may be nil.
func NewServer(backend Backend, sockPath string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default().With("component", "socket")
	}
	return &Server{
		backend:    backend,
		sockPath:   sockPath,
		log:        logger,
		done:       make(chan struct{}),
		shutdownCh: make(chan struct{}),
	}
}

// Start begins listening on the Unix socket. It handles stale sockets by
// attempting a connection first; if the connection fails, the stale socket
// is removed before binding.
func (s *Server) Start() error {
	if _, err := os.Stat(s.sockPath); err == nil {
		conn, err := net.DialTimeout("unix", s.sockPath, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return fmt.Errorf("daemon already running at %s", s.sockPath)
		}
		// Stale socket
		os.Remove(s.sockPath)
	}

	ln, err := net.Listen("unix", s.sockPath)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = ln
	s.started = time.Now()

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop closes the listener, waits for open connections and removes the
// socket file. Idempotent. A server that never started leaves the path
// alone; it may belong to another daemon.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.listener == nil {
			return
		}
		s.listener.Close()
		s.wg.Wait()
		os.Remove(s.sockPath)
	})
	return nil
}

// ShutdownCh returns a channel that is closed when a remote shutdown request
// is received. The daemon's main goroutine should select on this alongside
// OS signals so the process actually exits after a remote stop.
func (s *Server) ShutdownCh() <-chan struct{} {
	return s.shutdownCh
}

// Addr returns the socket path the server is listening on.
func (s *Server) Addr() string {
	return s.sockPath
}

// Started returns when the server began listening.
func (s *Server) Started() time.Time {
	return s.started
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				continue
			}
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	// Documents travel whole, so the limit is generous.
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(conn, Response{Error: "invalid request JSON"})
			continue
		}

		resp := s.handleRequest(req)
		s.writeResponse(conn, resp)

		if req.Method == MethodShutdown {
			s.shutdownOnce.Do(func() { close(s.shutdownCh) })
			return
		}
	}
	if err := scanner.Err(); err != nil {
		s.log.Debug("connection closed", "err", err)
	}
}

func (s *Server) handleRequest(req Request) Response {
	switch req.Method {
	case MethodOpen:
		return s.handleDocument(req, s.backend.Open)
	case MethodChange:
		return s.handleDocument(req, s.backend.Change)
	case MethodClose:
		return s.handleClose(req)
	case MethodCursor:
		return s.handleCursor(req)
	case MethodEdits:
		return s.handleEdits(req)
	case MethodApply:
		return s.handleApply(req)
	case MethodEvents:
		return s.handleEvents(req)
	case MethodHealth:
		return Response{ID: req.ID, Result: s.backend.Health()}
	case MethodReindex:
		return s.handleReindex(req)
	case MethodShutdown:
		return Response{ID: req.ID, Result: struct{}{}}
	default:
		return Response{ID: req.ID, Error: fmt.Sprintf("unknown method: %s", req.Method)}
	}
}

// decodeParams re-marshals the generic params into the method's own type.
func decodeParams(req Request, v interface{}) error {
	if req.Params == nil {
		return nil
	}
	data, err := json.Marshal(req.Params)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (s *Server) handleDocument(req Request, fn func(DocumentParams) error) Response {
	var p DocumentParams
	if err := decodeParams(req, &p); err != nil || p.Path == "" {
		return Response{ID: req.ID, Error: "invalid " + req.Method + " params"}
	}
	if err := fn(p); err != nil {
		return Response{ID: req.ID, Error: err.Error()}
	}
	return Response{ID: req.ID, Result: struct{}{}}
}

func (s *Server) handleClose(req Request) Response {
	var p DocumentParams
	if err := decodeParams(req, &p); err != nil || p.Path == "" {
		return Response{ID: req.ID, Error: "invalid close params"}
	}
	if err := s.backend.Close(p.Path); err != nil {
		return Response{ID: req.ID, Error: err.Error()}
	}
	return Response{ID: req.ID, Result: struct{}{}}
}

func (s *Server) handleCursor(req Request) Response {
	var p CursorParams
	if err := decodeParams(req, &p); err != nil || p.Editor == "" || p.Path == "" {
		return Response{ID: req.ID, Error: "invalid cursor params"}
	}
	result, err := s.backend.Cursor(p)
	if err != nil {
		return Response{ID: req.ID, Error: err.Error()}
	}
	return Response{ID: req.ID, Result: result}
}

func (s *Server) handleEdits(req Request) Response {
	var p EditorParams
	if err := decodeParams(req, &p); err != nil || p.Editor == "" {
		return Response{ID: req.ID, Error: "invalid edits params"}
	}
	result, err := s.backend.Edits(p.Editor)
	if err != nil {
		return Response{ID: req.ID, Error: err.Error()}
	}
	return Response{ID: req.ID, Result: result}
}

func (s *Server) handleApply(req Request) Response {
	var p ApplyParams
	if err := decodeParams(req, &p); err != nil || p.Editor == "" {
		return Response{ID: req.ID, Error: "invalid apply params"}
	}
	result, err := s.backend.Apply(p)
	if err != nil {
		return Response{ID: req.ID, Error: err.Error()}
	}
	return Response{ID: req.ID, Result: result}
}

func (s *Server) handleEvents(req Request) Response {
	var p EditorParams
	if err := decodeParams(req, &p); err != nil || p.Editor == "" {
		return Response{ID: req.ID, Error: "invalid events params"}
	}
	return Response{ID: req.ID, Result: s.backend.Events(p.Editor)}
}

func (s *Server) handleReindex(req Request) Response {
	var p ReindexParams
	if err := decodeParams(req, &p); err != nil {
		return Response{ID: req.ID, Error: "invalid reindex params"}
	}
	result, err := s.backend.Reindex(p.Force)
	if err != nil {
		return Response{ID: req.ID, Error: err.Error()}
	}
	return Response{ID: req.ID, Result: result}
}

func (s *Server) writeResponse(conn net.Conn, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.log.Warn("marshal response", "id", resp.ID, "err", err)
		return
	}
	data = append(data, '\n')
	conn.Write(data)
}
