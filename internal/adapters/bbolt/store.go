// Package bbolt implements the ports.Storage interface using bbolt (embedded B+ tree).
// Each project gets its own top-level bucket. Within that bucket, a "files"
// sub-bucket maps each indexed path to its encoded symbols and a "meta"
// sub-bucket records the encoding version. Writes are transactional; a crash
// mid-write cannot corrupt previously committed data.
package bbolt

import (
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/corey/sigsync/internal/ports"
)

// Bucket keys
var (
	bucketFiles = []byte("files")
	bucketMeta  = []byte("meta")
	keySchema   = []byte("schema")
)

// Store implements ports.Storage backed by bbolt.
type Store struct {
	db *bolt.DB
}

// NewStore opens (or creates) a bbolt database at the given path.
func NewStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// projectBuckets returns the files bucket of a project, creating the
// project on first write and stamping the schema version.
func projectBuckets(tx *bolt.Tx, projectID string) (*bolt.Bucket, error) {
	proj, err := tx.CreateBucketIfNotExists([]byte(projectID))
	if err != nil {
		return nil, err
	}
	meta, err := proj.CreateBucketIfNotExists(bucketMeta)
	if err != nil {
		return nil, err
	}
	if err := meta.Put(keySchema, []byte{schemaVersion}); err != nil {
		return nil, err
	}
	return proj.CreateBucketIfNotExists(bucketFiles)
}

// SaveFile stores the symbols of one file, replacing any earlier entry.
func (s *Store) SaveFile(projectID string, file *ports.FileSymbols) error {
	if file == nil {
		return fmt.Errorf("nil file symbols")
	}
	data, err := encodeFile(file)
	if err != nil {
		return fmt.Errorf("encode %s: %w", file.Path, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		files, err := projectBuckets(tx, projectID)
		if err != nil {
			return err
		}
		return files.Put([]byte(file.Path), data)
	})
}

// SaveFiles stores several files in one transaction.
func (s *Store) SaveFiles(projectID string, batch []*ports.FileSymbols) error {
	encoded := make([][]byte, len(batch))
	for i, f := range batch {
		data, err := encodeFile(f)
		if err != nil {
			return fmt.Errorf("encode %s: %w", f.Path, err)
		}
		encoded[i] = data
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		files, err := projectBuckets(tx, projectID)
		if err != nil {
			return err
		}
		for i, f := range batch {
			if err := files.Put([]byte(f.Path), encoded[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteFile drops the entry for path. Missing entries are not an error.
func (s *Store) DeleteFile(projectID, path string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		proj := tx.Bucket([]byte(projectID))
		if proj == nil {
			return nil
		}
		files := proj.Bucket(bucketFiles)
		if files == nil {
			return nil
		}
		return files.Delete([]byte(path))
	})
}

// LoadFiles retrieves every stored file of a project.
// Returns nil, nil if the project was never indexed or was written with an
// older encoding (the caller reindexes).
func (s *Store) LoadFiles(projectID string) ([]*ports.FileSymbols, error) {
	var raw [][]byte

	err := s.db.View(func(tx *bolt.Tx) error {
		proj := tx.Bucket([]byte(projectID))
		if proj == nil {
			return nil
		}
		if meta := proj.Bucket(bucketMeta); meta == nil || !currentSchema(meta.Get(keySchema)) {
			return nil
		}
		files := proj.Bucket(bucketFiles)
		if files == nil {
			return nil
		}
		// Copy bytes out of the transaction (bbolt slices are only valid within tx)
		return files.ForEach(func(_, v []byte) error {
			buf := make([]byte, len(v))
			copy(buf, v)
			raw = append(raw, buf)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	out := make([]*ports.FileSymbols, 0, len(raw))
	for _, data := range raw {
		f, err := decodeFile(data)
		if err != nil {
			return nil, fmt.Errorf("decode file entry: %w", err)
		}
		out = append(out, f)
	}
	return out, nil
}

// DeleteProject removes all data for a project.
// Idempotent: deleting a nonexistent project is not an error.
func (s *Store) DeleteProject(projectID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(projectID)); errors.Is(err, bolt.ErrBucketNotFound) {
			return nil // idempotent
		} else {
			return err
		}
	})
}
