// Package server implements the Reef preview server: it compiles
// templates on demand, serves the static skeleton with its hydration
// payload, and pushes live-reload notifications over WebSocket when a
// watched template changes.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/coralpages/reef/internal/artifact"
	"github.com/coralpages/reef/internal/compiler"
	"github.com/coralpages/reef/internal/config"
	"github.com/coralpages/reef/internal/logging"
)

// PreviewServer serves compiled templates for browser preview.
type PreviewServer struct {
	config   *config.Config
	compiler *compiler.Compiler
	logger   logging.Logger
	hub      *hub

	mu        sync.RWMutex
	templates map[string]*artifact.CompiledTemplate
	failures  map[string]error

	httpServer *http.Server
}

// New creates a preview server. The compiler is shared with the watch
// loop so recompiles hit the same artifact cache.
func New(cfg *config.Config, comp *compiler.Compiler, logger logging.Logger) *PreviewServer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &PreviewServer{
		config:    cfg,
		compiler:  comp,
		logger:    logger.WithComponent("server"),
		hub:       newHub(logger),
		templates: make(map[string]*artifact.CompiledTemplate),
		failures:  make(map[string]error),
	}
}

// Addr returns the configured listen address.
func (s *PreviewServer) Addr() string {
	return net.JoinHostPort(s.config.Server.Host, fmt.Sprintf("%d", s.config.Server.Port))
}

// Handler returns the server's route table. Exposed so tests can mount
// it on httptest servers.
func (s *PreviewServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/preview/", s.handlePreview)
	mux.HandleFunc("/rendered/", s.handleRendered)
	mux.HandleFunc("/artifact/", s.handleArtifact)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Start serves until ctx is canceled.
func (s *PreviewServer) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.hub.run(ctx)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	s.logger.Info(ctx, "preview server listening", "addr", s.Addr())

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// LoadTemplates compiles every template found under the configured
// scan paths. Compile failures are recorded for the error overlay, not
// returned, so one broken template does not block the rest.
func (s *PreviewServer) LoadTemplates(ctx context.Context) error {
	found := 0
	for _, root := range s.config.Templates.ScanPaths {
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() || !s.config.IsTemplateFile(path) {
				return nil
			}
			found++
			s.CompileFile(ctx, path)
			return nil
		})
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("scanning %s: %w", root, err)
		}
	}
	s.logger.Info(ctx, "templates loaded", "count", found)
	return nil
}

// CompileFile compiles one template file and records the result under
// its base name. It returns the compile error, if any, after recording
// it for the overlay.
func (s *PreviewServer) CompileFile(ctx context.Context, path string) error {
	name := templateName(path)

	source, err := os.ReadFile(path)
	if err != nil {
		s.record(name, nil, err)
		return err
	}

	result, err := s.compiler.Compile(ctx, string(source))
	if err != nil {
		s.logger.Warn(ctx, err, "template failed to compile", "template", name)
		s.record(name, nil, err)
		return err
	}

	s.record(name, result.Template, nil)
	return nil
}

// NotifyChanged recompiles the given template files and broadcasts a
// reload message to connected browsers.
func (s *PreviewServer) NotifyChanged(ctx context.Context, paths []string) {
	for _, path := range paths {
		// Ignore the error: the overlay shows it on next load.
		_ = s.CompileFile(ctx, path)
	}
	s.hub.broadcast(reloadMessage(paths))
}

// Template returns the compiled artifact for name, if it compiled.
func (s *PreviewServer) Template(name string) (*artifact.CompiledTemplate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tpl, ok := s.templates[name]
	return tpl, ok
}

// TemplateNames returns the known template names, sorted.
func (s *PreviewServer) TemplateNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.templates)+len(s.failures))
	for name := range s.templates {
		names = append(names, name)
	}
	for name := range s.failures {
		if _, ok := s.templates[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (s *PreviewServer) record(name string, tpl *artifact.CompiledTemplate, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.failures[name] = err
		return
	}
	delete(s.failures, name)
	s.templates[name] = tpl
}

func (s *PreviewServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html><html><head><title>Reef Preview</title></head><body>")
	sb.WriteString("<h1>Templates</h1><ul>")
	for _, name := range s.TemplateNames() {
		fmt.Fprintf(&sb, `<li><a href="/preview/%s">%s</a></li>`, url.PathEscape(name), name)
	}
	sb.WriteString("</ul></body></html>")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(sb.String()))
}

func (s *PreviewServer) handlePreview(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/preview/")
	if name == "" {
		http.NotFound(w, r)
		return
	}

	s.mu.RLock()
	tpl := s.templates[name]
	failure := s.failures[name]
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if failure != nil {
		// Broken template: full-page overlay so the author sees every
		// batched error with its suggestion.
		_, _ = w.Write([]byte(renderOverlay(name, failure)))
		return
	}
	if tpl == nil {
		http.NotFound(w, r)
		return
	}

	page, err := buildPreviewPage(tpl, s.config.Development.LiveReload)
	if err != nil {
		s.logger.Error(r.Context(), err, "failed to render preview", "template", name)
		http.Error(w, "failed to render preview", http.StatusInternalServerError)
		return
	}
	_, _ = w.Write([]byte(page))
}

func (s *PreviewServer) handleArtifact(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/artifact/")
	name = strings.TrimSuffix(name, ".json")

	tpl, ok := s.Template(name)
	if !ok {
		http.NotFound(w, r)
		return
	}

	data, err := artifact.EncodeJSON(tpl)
	if err != nil {
		http.Error(w, "failed to encode artifact", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func reloadMessage(paths []string) []byte {
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		names = append(names, templateName(p))
	}
	sort.Strings(names)
	msg, _ := json.Marshal(map[string]any{
		"type":      "reload",
		"templates": names,
	})
	return msg
}

// templateName maps a source path to its preview name.
func templateName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
