// Package app wires together all adapters and domain logic.
// It provides lifecycle management for the sigsync daemon and the one-shot
// operations behind the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/corey/sigsync/internal/adapters/bbolt"
	fsw "github.com/corey/sigsync/internal/adapters/fsnotify"
	"github.com/corey/sigsync/internal/adapters/socket"
	"github.com/corey/sigsync/internal/adapters/treesitter"
	"github.com/corey/sigsync/internal/adapters/workspace"
	"github.com/corey/sigsync/internal/domain/astcache"
	"github.com/corey/sigsync/internal/domain/cppast"
	"github.com/corey/sigsync/internal/domain/link"
	"github.com/corey/sigsync/internal/domain/resolve"
	"github.com/corey/sigsync/internal/domain/rewrite"
	"github.com/corey/sigsync/internal/domain/symindex"
	"github.com/corey/sigsync/internal/ports"
)

// App is the top-level container wiring all components together.
type App struct {
	Config Config
	Paths  *Paths

	Parser    ports.Parser
	Store     *bbolt.Store
	Index     *symindex.Index
	Builder   *symindex.Builder
	Cache     *astcache.Cache
	Workspace *workspace.Workspace
	Resolver  *resolve.Resolver
	Watcher   *fsw.Watcher
	Server    *socket.Server
	Latency   *LatencyTracker

	log *slog.Logger

	mu         sync.Mutex
	sessions   map[string]*Session
	lastReveal workspace.Event
	started    time.Time
}

// New creates an App with all dependencies wired. Does not start services.
func New(cfg Config) (*App, error) {
	if cfg.ProjectRoot == "" {
		return nil, fmt.Errorf("project root required")
	}
	root, err := filepath.Abs(cfg.ProjectRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	cfg.ProjectRoot = root
	cfg.fill()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := slog.Default()

	parser := cfg.Parser
	if parser == nil {
		tp := treesitter.NewParser()
		tp.SetExtensions(cfg.Extensions)
		tp.SetGrammarPaths(cfg.GrammarPaths)
		parser = tp
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	store, err := bbolt.NewStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	idx := symindex.New()
	builder, err := symindex.NewBuilder(symindex.BuilderConfig{
		Root:      root,
		ProjectID: cfg.ProjectID,
		Workers:   cfg.Workers,
		Ignore:    cfg.Ignore,
		Logger:    logger.With("component", "symindex"),
	}, parser, store, idx)
	if err != nil {
		store.Close()
		return nil, err
	}
	if _, err := builder.Load(); err != nil {
		store.Close()
		return nil, err
	}

	watcher, err := fsw.NewWatcher(
		fsw.WithFilter(builder.Accepts),
		fsw.WithDebounce(cfg.Debounce),
		fsw.WithLogger(logger.With("component", "watcher")),
	)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	cache := astcache.New(parser, cfg.CacheBytes)
	ws := workspace.New(logger.With("component", "workspace"))

	a := &App{
		Config:    cfg,
		Paths:     NewPaths(root),
		Parser:    parser,
		Store:     store,
		Index:     idx,
		Builder:   builder,
		Cache:     cache,
		Workspace: ws,
		Resolver:  resolve.New(idx, cache, ws, logger.With("component", "resolve")),
		Watcher:   watcher,
		Latency:   NewLatencyTracker(10 * time.Minute),
		log:       logger.With("component", "app"),
		sessions:  make(map[string]*Session),
	}
	ws.Subscribe(a.onWorkspaceEvent)
	a.Server = socket.NewServer(a, cfg.SocketPath, logger.With("component", "socket"))
	return a, nil
}

// Start begins serving editors and watching the project.
func (a *App) Start() error {
	a.mu.Lock()
	a.started = time.Now()
	a.mu.Unlock()
	if err := a.Server.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	// Watcher failures are not fatal: the index just goes stale.
	if err := a.Watcher.Watch(a.Config.ProjectRoot, a.onFileChanged); err != nil {
		a.log.Warn("file watcher unavailable", "err", err)
	}
	return nil
}

// Stop shuts down all services. Safe to call on an App that never started.
func (a *App) Stop() error {
	a.Watcher.Stop()
	a.Server.Stop()

	a.mu.Lock()
	sessions := make([]*Session, 0, len(a.sessions))
	for _, s := range a.sessions {
		sessions = append(sessions, s)
	}
	a.sessions = make(map[string]*Session)
	a.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
	return a.Store.Close()
}

// Reindex refreshes the symbol index.
func (a *App) Reindex(force bool) (socket.ReindexResult, error) {
	return a.ReindexContext(context.Background(), force)
}

// ReindexContext is Reindex with cancellation.
func (a *App) ReindexContext(ctx context.Context, force bool) (socket.ReindexResult, error) {
	start := time.Now()
	stats, err := a.Builder.Build(ctx, force)
	if err != nil {
		return socket.ReindexResult{}, err
	}
	a.Cache.Clear()
	return socket.ReindexResult{
		Files:     stats.Files,
		Parsed:    stats.Parsed,
		Unchanged: stats.Unchanged,
		Removed:   stats.Removed,
		Functions: stats.Functions,
		ElapsedMs: time.Since(start).Milliseconds(),
	}, nil
}

// parseLive parses the current text of path: the open buffer if there is
// one, the disk otherwise.
func (a *App) parseLive(path string) (*cppast.File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	src, err := a.Workspace.Snapshot(abs)
	if err != nil {
		return nil, err
	}
	return a.Cache.Get(abs, src)
}

// onFileChanged handles a file create/modify/delete event from the watcher.
func (a *App) onFileChanged(path string) {
	a.Cache.Invalidate(path)
	if err := a.Builder.UpdateFile(path); err != nil {
		a.log.Debug("reindex file", "path", path, "err", err)
	}
}

// onWorkspaceEvent forwards commits and reveal requests to every editor.
// Committed disk files are reindexed right away instead of waiting for the
// watcher.
func (a *App) onWorkspaceEvent(ev workspace.Event) {
	out := socket.Event{Path: ev.Path, Version: ev.Version, Offset: ev.Offset, Line: ev.Line, Column: ev.Column}
	switch ev.Kind {
	case workspace.EventEdited:
		out.Kind = socket.EventEdited
		if ev.Version == 0 {
			a.onFileChanged(ev.Path)
		}
	case workspace.EventRevealed:
		out.Kind = socket.EventReveal
	default:
		return
	}

	a.mu.Lock()
	if ev.Kind == workspace.EventRevealed {
		a.lastReveal = ev
	}
	sessions := make([]*Session, 0, len(a.sessions))
	for _, s := range a.sessions {
		sessions = append(sessions, s)
	}
	a.mu.Unlock()
	for _, s := range sessions {
		s.push(out)
	}
}

// session returns the session for editor, creating it on first use.
func (a *App) session(editor string) *Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.sessions[editor]
	if !ok {
		s = NewSession(editor, a.Workspace, a.parseLive, a.Resolver, a.Latency, a.log.With("component", "session"))
		a.sessions[editor] = s
	}
	return s
}

// Open implements socket.Backend.
func (a *App) Open(p socket.DocumentParams) error {
	a.Workspace.Open(p.Path, p.Version, []byte(p.Text))
	return nil
}

// Change implements socket.Backend.
func (a *App) Change(p socket.DocumentParams) error {
	return a.Workspace.Change(p.Path, p.Version, []byte(p.Text))
}

// Close implements socket.Backend.
func (a *App) Close(path string) error {
	a.Workspace.Close(path)
	return nil
}

// Cursor implements socket.Backend.
func (a *App) Cursor(p socket.CursorParams) (socket.CursorResult, error) {
	st, err := a.session(p.Editor).Cursor(p.Path, p.Line, p.Column)
	if err != nil {
		return socket.CursorResult{}, err
	}
	return socket.CursorResult{Link: linkInfo(st)}, nil
}

// Edits implements socket.Backend. An editor without a usable link gets an
// empty result, not an error.
func (a *App) Edits(editor string) (socket.EditsResult, error) {
	st, edits, err := a.session(editor).Edits()
	if err != nil && !errors.Is(err, link.ErrNotLinked) && !errors.Is(err, link.ErrClosed) {
		return socket.EditsResult{}, err
	}
	return socket.EditsResult{Link: linkInfo(st), Edits: edits}, nil
}

// Apply implements socket.Backend.
func (a *App) Apply(p socket.ApplyParams) (socket.ApplyResult, error) {
	st, edits, err := a.session(p.Editor).Apply(p.Jump)
	var res socket.ApplyResult
	if st != nil && st.Target() != nil {
		res.Path = st.Target().Sig.File.Path
	}
	switch {
	case err == nil:
		res.Applied = true
		res.Edits = len(edits)
		return res, nil
	case errors.Is(err, link.ErrTargetChanged):
		res.Conflict = true
		return res, nil
	case errors.Is(err, link.ErrNotLinked), errors.Is(err, link.ErrClosed):
		return res, nil
	default:
		return res, err
	}
}

// Events implements socket.Backend.
func (a *App) Events(editor string) socket.EventsResult {
	evs := a.session(editor).Events()
	if evs == nil {
		evs = []socket.Event{}
	}
	return socket.EventsResult{Events: evs}
}

// Health implements socket.Backend.
func (a *App) Health() socket.HealthResult {
	files, funcs := a.Index.Stats()
	a.mu.Lock()
	editors := len(a.sessions)
	started := a.started
	a.mu.Unlock()
	uptime := ""
	if !started.IsZero() {
		uptime = time.Since(started).Round(time.Second).String()
	}
	links, err := LinkCounts(context.Background())
	if err != nil {
		a.log.Warn("link metrics unavailable", "err", err)
	}
	return socket.HealthResult{
		Status:    "ok",
		FileCount: files,
		Functions: funcs,
		Editors:   editors,
		Documents: len(a.Workspace.OpenPaths()),
		ResolveMs: a.Latency.Median().Milliseconds(),
		Uptime:    uptime,
		Links:     links,
	}
}

func linkInfo(st *link.State) *socket.LinkInfo {
	if st == nil {
		return nil
	}
	info := &socket.LinkInfo{
		ID:         st.ID,
		Generation: st.Generation,
		Phase:      st.Phase().String(),
		Reason:     st.Reason(),
		Function:   rewrite.Pretty(st.Source.QualifiedName()),
		Kind:       st.Source.Kind.String(),
		SourcePath: st.Source.File.Path,
	}
	if t := st.Target(); t != nil {
		info.TargetPath = t.Sig.File.Path
		info.TargetLine, info.TargetCol = t.Sig.File.Lines().Position(t.Sig.NameSpan().Start)
	}
	return info
}
