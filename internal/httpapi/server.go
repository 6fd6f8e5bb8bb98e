package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/netutil"

	"github.com/vmyazin/planner-mcp/internal/core"
	"github.com/vmyazin/planner-mcp/internal/services"
)

// TaskStore task reads and direct edits used by the REST handlers.
type TaskStore interface {
	ListTasks(ctx context.Context, includeArchived bool) ([]core.Task, error)
	GetTask(ctx context.Context, id string) (core.Task, error)
	SetCompleted(ctx context.Context, id string, completed bool) error
	SetTimeSlot(ctx context.Context, id string, slot core.TimeSlot) error
}

// Options HTTP surface settings
type Options struct {
	JWTSecret   string
	CORSOrigins []string
	MaxConns    int
}

// Server REST + chat API over the planner.
type Server struct {
	store  TaskStore
	interp *services.Interpreter
	auth   Middleware
	opts   Options
	log    *logrus.Logger
}

func NewServer(store TaskStore, interp *services.Interpreter, opts Options, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	if opts.MaxConns <= 0 {
		opts.MaxConns = 64
	}
	return &Server{
		store:  store,
		interp: interp,
		auth:   NewMiddleware([]byte(opts.JWTSecret)),
		opts:   opts,
		log:    logger,
	}
}

// Handler returns the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("GET /api/tasks", s.auth.Wrap(s.listTasks))
	mux.HandleFunc("POST /api/tasks", s.auth.Wrap(s.createTask))
	mux.HandleFunc("PATCH /api/tasks/{id}", s.auth.Wrap(s.updateTask))
	mux.HandleFunc("POST /api/tasks/archive", s.auth.Wrap(s.archiveCompleted))
	mux.HandleFunc("POST /api/chat", s.auth.Wrap(s.chat))

	c := cors.New(cors.Options{
		AllowedOrigins:   s.opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		// bearer header auth, no cookies
		AllowCredentials: false,
	})

	return c.Handler(s.logRequests(mux))
}

// Serve listens on addr until ctx is cancelled; at most MaxConns connections are accepted at once.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	ln = netutil.LimitListener(ln, s.opts.MaxConns)

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.log.WithFields(logrus.Fields{"addr": ln.Addr().String(), "max_conns": s.opts.MaxConns}).Info("HTTP API listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).Round(time.Microsecond),
		}).Debug("request")
	})
}
