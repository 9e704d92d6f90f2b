package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	ds "github.com/starfederation/datastar-go/datastar"

	"scrollchart/web"
)

const (
	FRAME_BUFFER     = 16
	SHUTDOWN_TIMEOUT = 5 * time.Second
)

type Server struct {
	renderer Renderer
	charts   Charts
	handler  *http.ServeMux
	logger   *slog.Logger
}

func NewServer(renderer Renderer, charts Charts, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{
		renderer: renderer,
		charts:   charts,
		logger:   logger,
	}

	handler := http.NewServeMux()
	handler.HandleFunc("/", s.IndexHandler)
	handler.HandleFunc("/tick", s.TickHandler)
	handler.Handle("/static/", http.FileServer(http.FS(web.Static)))

	for path, uiHandler := range renderer.Handlers() {
		handler.HandleFunc(path, uiHandler)
	}

	s.handler = handler

	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		// cancelling ctx ends open /tick streams so Shutdown doesn't wait on them
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errs := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), SHUTDOWN_TIMEOUT)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errs; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// IndexHandler is the main entrypoint for the UI
func (s *Server) IndexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data, err := s.renderer.Data(r.Context(), getClientID(w, r))
	if err != nil {
		s.logger.Error("couldn't build index data", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	if err := s.renderer.Templates().ExecuteTemplate(w, "index", data); err != nil {
		s.logger.Error("couldn't execute template for index", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// TickHandler streams a patch for every chart frame the engine renders.
func (s *Server) TickHandler(w http.ResponseWriter, r *http.Request) {
	// the cookie has to be set before the SSE headers go out
	clientID := getClientID(w, r)
	ctx := r.Context()

	_, frames, cancel := s.charts.Frames().Subscribe(FRAME_BUFFER)
	defer cancel()

	sse := ds.NewSSE(w, r)

	snapshot, err := s.charts.Snapshot(ctx)
	if err != nil {
		s.logger.Warn("couldn't snapshot charts", "error", err)
		return
	}
	for _, frame := range snapshot {
		if err := s.renderer.OnFrame(sse, frame, clientID); err != nil {
			s.logger.Warn("error running renderer on frame", "chart", frame.ChartKey, "error", err)
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if err := s.renderer.OnFrame(sse, frame, clientID); err != nil {
				s.logger.Warn("error running renderer on frame", "chart", frame.ChartKey, "error", err)
				return
			}
		}
	}
}
