// Package viewer serves a live preview of the graph over HTTP: the
// Mermaid chart embedded in a page that reloads itself when a watched
// playbook or role file changes. The artifacts are rebuilt with the
// same options as the initial run; a failed rebuild keeps the last
// good artifacts in place.
package viewer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	grapher "github.com/haidaraM/ansible-playbook-grapher"
	"github.com/haidaraM/ansible-playbook-grapher/internal/renderer"
	"github.com/haidaraM/ansible-playbook-grapher/pkg/graph"
)

// debounce window for filesystem events: editors fire several events
// per save and a rebuild per event would race them.
const rebuildDelay = 250 * time.Millisecond

// Server rebuilds and serves the graph artifacts.
type Server struct {
	opts    grapher.Options
	mermaid renderer.MermaidOptions
	logger  *slog.Logger
	metrics *metrics

	mu        sync.RWMutex
	artifacts artifacts
	roots     []*graph.PlaybookNode

	subMu sync.Mutex
	subs  map[chan struct{}]struct{}
}

type artifacts struct {
	mermaid string
	dot     string
	json    []byte
}

// New creates a preview server for the given graphing options. The
// initial build happens in Run.
func New(opts grapher.Options, mermaidOpts renderer.MermaidOptions, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		opts:    opts,
		mermaid: mermaidOpts,
		logger:  logger,
		metrics: newMetrics(),
		subs:    map[chan struct{}]struct{}{},
	}
}

// Run builds once, then serves on addr until ctx is cancelled,
// rebuilding whenever a watched file changes. The initial build must
// succeed; later failures only log and keep the previous artifacts.
func (s *Server) Run(ctx context.Context, addr string) error {
	if err := s.rebuild(ctx); err != nil {
		return fmt.Errorf("initial build: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Close()
	for _, dir := range s.watchDirs() {
		if err := watcher.Add(dir); err != nil {
			s.logger.Warn("cannot watch directory", "dir", dir, "error", err)
		}
	}

	go s.watchLoop(ctx, watcher)

	httpServer := &http.Server{Addr: addr, Handler: s.Handler()}
	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("preview server listening", "addr", addr)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	}
}

// Handler returns the routes: the page, the raw artifacts, the reload
// stream, health and metrics.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/graph.mmd", s.handleText("text/plain; charset=utf-8", func(a artifacts) []byte { return []byte(a.mermaid) }))
	r.Get("/graph.dot", s.handleText("text/vnd.graphviz", func(a artifacts) []byte { return []byte(a.dot) }))
	r.Get("/graph.json", s.handleText("application/json", func(a artifacts) []byte { return a.json }))
	r.Get("/events", s.handleEvents)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.handler())
	return r
}

// rebuild regenerates every artifact and swaps them in atomically.
func (s *Server) rebuild(ctx context.Context) error {
	start := time.Now()
	result, err := grapher.Graph(ctx, s.opts)
	if err == nil {
		err = result.Err()
	}
	s.metrics.observeBuild(time.Since(start), err)
	if err != nil {
		return err
	}

	jsonDoc, err := renderer.JSON(result.Playbooks)
	if err != nil {
		return err
	}
	next := artifacts{
		mermaid: renderer.Mermaid(result.Playbooks, s.mermaid),
		dot:     renderer.DOT(result.Playbooks, renderer.GraphvizOptions{}),
		json:    jsonDoc,
	}

	s.mu.Lock()
	s.artifacts = next
	s.roots = result.Playbooks
	s.mu.Unlock()

	s.notifySubscribers()
	return nil
}

// watchDirs lists the directories to watch: each playbook's directory
// and every role directory the built graph references. The watcher is
// not recursive, so role task dirs are added individually.
func (s *Server) watchDirs() []string {
	seen := map[string]bool{}
	var dirs []string
	add := func(dir string) {
		if dir != "" && !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}

	for _, pb := range s.opts.Playbooks {
		add(filepath.Dir(pb))
	}

	s.mu.RLock()
	roots := s.roots
	s.mu.RUnlock()
	for _, pb := range roots {
		graph.Walk(pb, func(v graph.Visit) bool {
			if pos := v.Node.Position(); pos != nil {
				switch pos.Type {
				case "folder":
					add(pos.Path)
					add(filepath.Join(pos.Path, "tasks"))
					add(filepath.Join(pos.Path, "handlers"))
				case "file":
					add(filepath.Dir(pos.Path))
				}
			}
			return true
		})
	}
	return dirs
}

func (s *Server) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	var timer *time.Timer
	rebuild := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Remove) {
				continue
			}
			s.metrics.watchEvents.Inc()
			s.logger.Debug("change detected", "file", event.Name, "op", event.Op.String())
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(rebuildDelay, func() {
				select {
				case rebuild <- struct{}{}:
				default:
				}
			})
		case <-rebuild:
			if err := s.rebuild(ctx); err != nil {
				s.logger.Error("rebuild failed, keeping previous artifacts", "error", err)
			} else {
				s.logger.Info("graph rebuilt")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("watcher error", "error", err)
		}
	}
}

func (s *Server) handleText(contentType string, pick func(artifacts) []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.mu.RLock()
		body := pick(s.artifacts)
		s.mu.RUnlock()
		w.Header().Set("Content-Type", contentType)
		w.Write(body)
	}
}

// handleEvents streams a reload event after every successful rebuild.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan struct{}, 1)
	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()
	defer func() {
		s.subMu.Lock()
		delete(s.subs, ch)
		s.subMu.Unlock()
	}()

	fmt.Fprint(w, "event: ready\ndata: {}\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ch:
			fmt.Fprint(w, "event: reload\ndata: {}\n\n")
			flusher.Flush()
		}
	}
}

func (s *Server) notifySubscribers() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
