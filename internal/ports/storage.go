// Package ports defines the interfaces (contracts) that adapters must implement.
// These are the boundaries of the hexagonal architecture. Domain logic depends
// only on these interfaces, never on concrete implementations.
package ports

// Storage persists the project symbol index. The backing store (bbolt) is
// project-scoped: each projectID gets its own namespace. Concurrent reads are
// safe; writes are serialized by the adapter.
//
// Crash safety: every write is transactional. A crash mid-write must not
// corrupt previously committed data.
type Storage interface {
	// SaveFile stores the symbols of one file, replacing any earlier entry
	// for the same path.
	SaveFile(projectID string, file *FileSymbols) error

	// SaveFiles stores several files in one transaction.
	SaveFiles(projectID string, files []*FileSymbols) error

	// DeleteFile drops the entry for path. Deleting a missing entry is not
	// an error.
	DeleteFile(projectID, path string) error

	// LoadFiles returns every stored file of a project. Returns nil, nil for
	// a project that was never indexed.
	LoadFiles(projectID string) ([]*FileSymbols, error)

	// DeleteProject removes all data for a project. Idempotent.
	DeleteProject(projectID string) error

	Close() error
}
