package app

import (
	"os"
	"path/filepath"
)

// Paths holds all resolved filesystem paths for the .sigsync/ project
// directory. All fields are pre-computed strings.
type Paths struct {
	Root   string // .sigsync/
	DB     string // .sigsync/sigsync.db
	Config string // .sigsync/config.yaml

	LogDir    string // .sigsync/log/
	DaemonLog string // .sigsync/log/daemon.log

	RunDir  string // .sigsync/run/
	PIDFile string // .sigsync/run/daemon.pid

	GrammarsDir string // .sigsync/grammars/
}

// NewPaths constructs all resolved paths from a project root directory.
func NewPaths(projectRoot string) *Paths {
	root := filepath.Join(projectRoot, ".sigsync")
	return &Paths{
		Root:   root,
		DB:     filepath.Join(root, "sigsync.db"),
		Config: filepath.Join(root, "config.yaml"),

		LogDir:    filepath.Join(root, "log"),
		DaemonLog: filepath.Join(root, "log", "daemon.log"),

		RunDir:  filepath.Join(root, "run"),
		PIDFile: filepath.Join(root, "run", "daemon.pid"),

		GrammarsDir: filepath.Join(root, "grammars"),
	}
}

// EnsureDirs creates all subdirectories under .sigsync/. Idempotent.
func (p *Paths) EnsureDirs() error {
	for _, d := range []string{p.Root, p.LogDir, p.RunDir, p.GrammarsDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}

// CleanEphemeral removes runtime files. Called on clean daemon shutdown.
func (p *Paths) CleanEphemeral() {
	os.Remove(p.PIDFile)
}
