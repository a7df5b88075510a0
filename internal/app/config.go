package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/corey/sigsync/internal/adapters/socket"
	"github.com/corey/sigsync/internal/adapters/treesitter"
	"github.com/corey/sigsync/internal/ports"
)

// Config holds initialization parameters for the App. Zero fields are filled
// from DefaultConfig; LoadConfig overlays .sigsync/config.yaml.
type Config struct {
	ProjectRoot string `yaml:"-"`

	ProjectID    string        `yaml:"project_id"`
	DBPath       string        `yaml:"db_path"`
	SocketPath   string        `yaml:"socket_path"`
	Extensions   []string      `yaml:"extensions"`
	GrammarPaths []string      `yaml:"grammar_paths"`
	Ignore       []string      `yaml:"ignore"`
	Workers      int           `yaml:"workers"`
	CacheBytes   int64         `yaml:"cache_bytes"`
	Debounce     time.Duration `yaml:"debounce"`
	LogLevel     string        `yaml:"log_level"`

	// Parser overrides the tree-sitter parser, for tests.
	Parser ports.Parser `yaml:"-"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig(projectRoot string) Config {
	paths := NewPaths(projectRoot)
	return Config{
		ProjectRoot:  projectRoot,
		ProjectID:    filepath.Base(projectRoot),
		DBPath:       paths.DB,
		SocketPath:   socket.SocketPath(projectRoot),
		Extensions:   append([]string(nil), treesitter.DefaultExtensions...),
		GrammarPaths: treesitter.DefaultGrammarPaths(projectRoot),
		CacheBytes:   64 * 1024 * 1024,
		Debounce:     50 * time.Millisecond,
		LogLevel:     "info",
	}
}

// LoadConfig reads <root>/.sigsync/config.yaml over the defaults. A missing
// file is not an error.
func LoadConfig(projectRoot string) (Config, error) {
	root, err := filepath.Abs(projectRoot)
	if err != nil {
		return Config{}, fmt.Errorf("resolve root: %w", err)
	}
	cfg := DefaultConfig(root)

	path := NewPaths(root).Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return cfg, nil
	case err != nil:
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.ProjectRoot = root
	cfg.fill()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// fill resolves relative paths against the project root and restores
// defaults for fields the file blanked out.
func (c *Config) fill() {
	def := DefaultConfig(c.ProjectRoot)
	if c.ProjectID == "" {
		c.ProjectID = def.ProjectID
	}
	if c.DBPath == "" {
		c.DBPath = def.DBPath
	} else if !filepath.IsAbs(c.DBPath) {
		c.DBPath = filepath.Join(c.ProjectRoot, c.DBPath)
	}
	if c.SocketPath == "" {
		c.SocketPath = def.SocketPath
	}
	if len(c.Extensions) == 0 {
		c.Extensions = def.Extensions
	}
	for i, p := range c.GrammarPaths {
		if !filepath.IsAbs(p) {
			c.GrammarPaths[i] = filepath.Join(c.ProjectRoot, p)
		}
	}
	if c.CacheBytes <= 0 {
		c.CacheBytes = def.CacheBytes
	}
	if c.Debounce <= 0 {
		c.Debounce = def.Debounce
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.ProjectRoot == "" {
		return errors.New("project root required")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// YAML renders the configuration as it would be written to config.yaml.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// ParseLevel maps a config log level to slog.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", s, err)
	}
	return l, nil
}
