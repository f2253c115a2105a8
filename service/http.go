package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
)

const DefaultListenAddr = "localhost:8020"

// Result is the JSON body returned by the prime endpoints.
type Result struct {
	Proc  string `json:"proc"`
	N     uint64 `json:"n"`
	Prime uint64 `json:"prime"`
}

type HTTP struct {
	Dispatcher Dispatcher
	Logger     *slog.Logger

	once         sync.Once
	ListenConfig *net.ListenConfig
	ListenAddr   string
	Handler      http.Handler
}

func (*HTTP) String() string {
	return "http"
}

func (h *HTTP) Log() *slog.Logger {
	log := h.Logger
	if log == nil {
		log = slog.Default()
	}

	return log.With(
		"service", h.String(),
		"addr", h.ListenAddr)
}

func (h *HTTP) Listen(ctx context.Context) (net.Listener, error) {
	h.Init()
	return h.ListenConfig.Listen(ctx, "tcp", h.ListenAddr)
}

func (h *HTTP) Init() {
	h.once.Do(func() {
		if h.ListenConfig == nil {
			h.ListenConfig = &net.ListenConfig{}
		}

		if h.ListenAddr == "" {
			h.ListenAddr = DefaultListenAddr
		}

		if h.Handler == nil {
			h.Handler = h.DefaultRouter()
		}
	})
}

func (h *HTTP) DefaultRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/status", h.status)
	r.Get("/version", h.version)
	r.Get("/proc", h.procs)
	r.Get("/prime/{n}", h.prime)
	r.Get("/proc/{proc}/prime/{n}", h.prime)

	// Versioned aliases, e.g. /primes/0.1.0/prime/{n}.
	root := Proto.Path()
	r.Get(path.Join(root, "prime/{n}"), h.prime)
	r.Get(path.Join(root, "proc/{proc}/prime/{n}"), h.prime)
	return r
}

func (h *HTTP) Serve(ctx context.Context) error {
	l, err := h.Listen(ctx)
	if errors.Is(err, syscall.EADDRINUSE) {
		// Another instance is serving the HTTP API on this address.
		// The supervisor restarts us with backoff, so we take over
		// once it goes away.  This isn't a failure.
		////
		h.Log().Info("disabled HTTP service",
			"reason", err)
		return nil

	} else if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer l.Close()

	s := &http.Server{
		Handler: h.Handler,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Shut the server down when the context expires.
	////
	cherr := make(chan error, 1)
	go func() {
		defer close(cherr)
		<-ctx.Done()

		// Supervisor defaults to 10s shutdown timeout.  Use half of
		// that.
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()

		cherr <- s.Shutdown(ctx)
	}()
	h.Log().DebugContext(ctx, "service started")

	// Serve over the listener.  This is a blocking call
	// that always returns a non-nil error.
	if err := s.Serve(l); err != http.ErrServerClosed {
		return err
	}
	cancel()

	return <-cherr
}

// status returns 204 No Content while the service is running.
func (h *HTTP) status(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTP) version(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	if n, err := io.Copy(w, strings.NewReader(Proto.String())); err != nil {
		h.Log().DebugContext(r.Context(), "failed to write response",
			"endpoint", "/version",
			"wrote", n,
			"reason", err)
	}
}

// procs lists the ids accepted by /proc/{proc}/prime/{n}.
func (h *HTTP) procs(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	ids, err := h.Dispatcher.Router.List()
	if err != nil {
		h.Log().ErrorContext(r.Context(), "failed to list procs",
			"reason", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, r, ids)
}

func (h *HTTP) prime(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	id := chi.URLParam(r, "proc")
	if id == "" {
		id = NativeID
	}

	n, err := strconv.ParseUint(chi.URLParam(r, "n"), 10, 64)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid n: %v", err), http.StatusBadRequest)
		return
	}

	p, err := h.Dispatcher.NthPrime(r.Context(), id, n)
	if err != nil {
		status := statusCode(err)
		if status == http.StatusInternalServerError {
			h.Log().ErrorContext(r.Context(), "call failed",
				"proc", id,
				"n", n,
				"reason", err)
		}

		http.Error(w, err.Error(), status)
		return
	}

	h.writeJSON(w, r, Result{
		Proc:  id,
		N:     n,
		Prime: p,
	})
}

func (h *HTTP) writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Log().ErrorContext(r.Context(), "failed to write response",
			"reason", err)
	}
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, ErrTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
