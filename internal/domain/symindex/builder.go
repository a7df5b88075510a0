package symindex

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	ignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/sync/errgroup"

	"github.com/corey/sigsync/internal/ports"
)

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	".git":                true,
	".sigsync":            true,
	".svn":                true,
	".hg":                 true,
	"node_modules":        true,
	"build":               true,
	"cmake-build-debug":   true,
	"cmake-build-release": true,
	"out":                 true,
}

// BuilderConfig configures a Builder.
type BuilderConfig struct {
	Root      string
	ProjectID string
	Workers   int      // parse parallelism; 0 means GOMAXPROCS
	Ignore    []string // extra gitignore-style patterns
	Logger    *slog.Logger
}

// BuildStats summarizes one Build run.
type BuildStats struct {
	Files     int // source files found
	Parsed    int // files (re)parsed
	Unchanged int // files skipped because their hash matched
	Removed   int // entries dropped for files that vanished
	Functions int
}

// Builder walks a project, parses its C/C++ sources and keeps the Index and
// its persisted copy current.
type Builder struct {
	root      string
	projectID string
	workers   int
	parser    ports.Parser
	store     ports.Storage
	index     *Index
	ignore    *ignore.GitIgnore
	log       *slog.Logger
}

// NewBuilder creates a builder. store may be nil for a purely in-memory index.
func NewBuilder(cfg BuilderConfig, parser ports.Parser, store ports.Storage, index *Index) (*Builder, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default().With("component", "symindex")
	}
	return &Builder{
		root:      root,
		projectID: cfg.ProjectID,
		workers:   workers,
		parser:    parser,
		store:     store,
		index:     index,
		ignore:    loadIgnore(root, cfg.Ignore),
		log:       log,
	}, nil
}

func loadIgnore(root string, extra []string) *ignore.GitIgnore {
	var lines []string
	if data, err := os.ReadFile(filepath.Join(root, ".gitignore")); err == nil {
		lines = strings.Split(string(data), "\n")
	}
	lines = append(lines, extra...)
	if len(lines) == 0 {
		return nil
	}
	return ignore.CompileIgnoreLines(lines...)
}

// Index returns the index the builder maintains.
func (b *Builder) Index() *Index { return b.index }

// Root returns the absolute project root.
func (b *Builder) Root() string { return b.root }

// Load fills the index from storage and returns the number of files loaded.
func (b *Builder) Load() (int, error) {
	if b.store == nil {
		return 0, nil
	}
	files, err := b.store.LoadFiles(b.projectID)
	if err != nil {
		return 0, fmt.Errorf("load index: %w", err)
	}
	b.index.UpdateAll(files)
	return len(files), nil
}

// Discover lists the absolute paths of every source file under the root.
func (b *Builder) Discover() ([]string, error) {
	var out []string
	err := filepath.WalkDir(b.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible paths
		}
		rel, relErr := filepath.Rel(b.root, path)
		if relErr != nil {
			return nil
		}
		if d.IsDir() {
			if path == b.root {
				return nil
			}
			if skipDirs[d.Name()] || (b.ignore != nil && b.ignore.MatchesPath(rel+"/")) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&os.ModeSymlink != 0 || !b.Accepts(path) {
			return nil
		}
		if b.ignore != nil && b.ignore.MatchesPath(rel) {
			return nil
		}
		out = append(out, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", b.root, err)
	}
	sort.Strings(out)
	return out, nil
}

// Accepts reports whether path is a source file the builder indexes.
func (b *Builder) Accepts(path string) bool {
	return b.parser.SupportsExtension(strings.ToLower(filepath.Ext(path)))
}

// Build indexes every source file. Files whose content hash matches the
// stored entry are skipped unless force is set.
func (b *Builder) Build(ctx context.Context, force bool) (BuildStats, error) {
	paths, err := b.Discover()
	if err != nil {
		return BuildStats{}, err
	}
	stats := BuildStats{Files: len(paths)}

	var (
		mu      sync.Mutex
		changed []*ports.FileSymbols
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for _, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fsyms, fresh, err := b.scan(path, force)
			if err != nil {
				b.log.Debug("skip file", "path", path, "err", err)
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			if fresh {
				changed = append(changed, fsyms)
			} else {
				stats.Unchanged++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		seen[p] = true
	}
	for _, p := range b.index.Paths() {
		if !seen[p] {
			if err := b.RemoveFile(p); err != nil {
				return stats, err
			}
			stats.Removed++
		}
	}

	if b.store != nil && len(changed) > 0 {
		if err := b.store.SaveFiles(b.projectID, changed); err != nil {
			return stats, fmt.Errorf("save index: %w", err)
		}
	}
	b.index.UpdateAll(changed)

	stats.Parsed = len(changed)
	_, stats.Functions = b.index.Stats()
	b.log.Info("index built", "files", stats.Files, "parsed", stats.Parsed,
		"unchanged", stats.Unchanged, "removed", stats.Removed, "functions", stats.Functions)
	return stats, nil
}

// UpdateFile re-indexes one file, typically after a watcher event. A file
// that no longer exists is removed.
func (b *Builder) UpdateFile(path string) error {
	if !b.Accepts(path) {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return b.RemoveFile(path)
	}
	fsyms, fresh, err := b.scan(path, false)
	if err != nil {
		return err
	}
	if !fresh {
		return nil
	}
	if err := b.save(fsyms); err != nil {
		return err
	}
	b.index.Update(fsyms)
	b.log.Debug("file reindexed", "path", path, "functions", len(fsyms.Functions))
	return nil
}

// RemoveFile drops a file from the index and storage.
func (b *Builder) RemoveFile(path string) error {
	b.index.Remove(path)
	if b.store == nil {
		return nil
	}
	if err := b.store.DeleteFile(b.projectID, path); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

// scan reads and, when its content changed, parses one file.
func (b *Builder) scan(path string, force bool) (*ports.FileSymbols, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, false, err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	hash := Hash(src)
	if prev, ok := b.index.File(path); ok && !force && prev.Hash == hash {
		return prev, false, nil
	}

	f, err := b.parser.Parse(path, src)
	if err != nil {
		return nil, false, fmt.Errorf("parse %s: %w", path, err)
	}
	funcs, types := Extract(f)
	return &ports.FileSymbols{
		Path:      path,
		Hash:      hash,
		ModTime:   info.ModTime().Unix(),
		Functions: funcs,
		Types:     types,
	}, true, nil
}

func (b *Builder) save(fsyms *ports.FileSymbols) error {
	if b.store == nil {
		return nil
	}
	if err := b.store.SaveFile(b.projectID, fsyms); err != nil {
		return fmt.Errorf("save %s: %w", fsyms.Path, err)
	}
	return nil
}

// Hash returns the hex sha256 of content.
func Hash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
