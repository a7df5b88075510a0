package bbolt

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/corey/sigsync/internal/ports"
)

// newTestStore creates a temporary bbolt store for testing.
func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	store, err := NewStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

// makeTestFile creates a realistic file entry: a class header with one
// member declaration and a free function.
func makeTestFile(path string) *ports.FileSymbols {
	return &ports.FileSymbols{
		Path:    path,
		Hash:    "9f2c",
		ModTime: 1700000000,
		Functions: []ports.FunctionSymbol{
			{
				Name:       "area",
				Scope:      []string{"geo", "Shape"},
				Lexical:    []string{"geo", "Shape"},
				Role:       ports.RoleDeclaration,
				ReturnType: "double",
				ParamTypes: []string{"const Size&", "int"},
				ParamNames: []string{"s", ""},
				Const:      true,
				Path:       path,
				Line:       4,
				Column:     10,
				Offset:     61,
			},
			{
				Name:       "distance",
				Scope:      []string{"geo"},
				Lexical:    []string{"geo"},
				Role:       ports.RoleDeclaration,
				ReturnType: "double",
				ParamTypes: []string{"Point", "Point"},
				ParamNames: []string{"a", "b"},
				Path:       path,
				Line:       7,
				Column:     8,
				Offset:     102,
			},
		},
		Types: []ports.TypeSymbol{
			{Name: "Shape", Scope: []string{"geo"}, Kind: "class"},
			{Name: "Size", Scope: []string{"geo", "Shape"}, Kind: "alias"},
		},
	}
}

func byPath(files []*ports.FileSymbols) map[string]*ports.FileSymbols {
	out := make(map[string]*ports.FileSymbols, len(files))
	for _, f := range files {
		out[f.Path] = f
	}
	return out
}

func TestStore_SaveLoadFile_Roundtrip(t *testing.T) {
	store, _ := newTestStore(t)
	original := makeTestFile("/src/geo/shape.h")

	require.NoError(t, store.SaveFile("proj-1", original))

	loaded, err := store.LoadFiles("proj-1")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, original, loaded[0])
}

func TestStore_SaveFileReplaces(t *testing.T) {
	store, _ := newTestStore(t)
	f := makeTestFile("/src/a.h")
	require.NoError(t, store.SaveFile("proj-1", f))

	f2 := makeTestFile("/src/a.h")
	f2.Hash = "beef"
	f2.Functions = f2.Functions[:1]
	require.NoError(t, store.SaveFile("proj-1", f2))

	loaded, err := store.LoadFiles("proj-1")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "beef", loaded[0].Hash)
	assert.Len(t, loaded[0].Functions, 1)
}

func TestStore_SaveFilesBatch(t *testing.T) {
	store, _ := newTestStore(t)
	batch := []*ports.FileSymbols{
		makeTestFile("/src/a.h"),
		makeTestFile("/src/b.h"),
		makeTestFile("/src/c.cpp"),
	}
	require.NoError(t, store.SaveFiles("proj-1", batch))

	loaded, err := store.LoadFiles("proj-1")
	require.NoError(t, err)
	got := byPath(loaded)
	assert.Len(t, got, 3)
	assert.Contains(t, got, "/src/c.cpp")
}

func TestStore_DeleteFile(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.SaveFiles("proj-1", []*ports.FileSymbols{
		makeTestFile("/src/a.h"),
		makeTestFile("/src/b.h"),
	}))

	require.NoError(t, store.DeleteFile("proj-1", "/src/a.h"))
	require.NoError(t, store.DeleteFile("proj-1", "/src/missing.h"))
	require.NoError(t, store.DeleteFile("proj-none", "/src/a.h"))

	loaded, err := store.LoadFiles("proj-1")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "/src/b.h", loaded[0].Path)
}

func TestStore_CrashRecovery(t *testing.T) {
	// Write data, close, reopen. Data from the last committed transaction is
	// intact; bbolt fsyncs on commit.
	dir := t.TempDir()
	path := filepath.Join(dir, "crash.db")

	store, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveFile("proj-1", makeTestFile("/src/a.h")))
	require.NoError(t, store.Close())

	store2, err := NewStore(path)
	require.NoError(t, err)
	defer store2.Close()

	loaded, err := store2.LoadFiles("proj-1")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Len(t, loaded[0].Functions, 2)

	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestStore_ProjectScoped(t *testing.T) {
	// Two projects stored in the same bbolt file use separate buckets.
	store, _ := newTestStore(t)

	require.NoError(t, store.SaveFile("proj-A", makeTestFile("/a/x.h")))
	require.NoError(t, store.SaveFiles("proj-B", []*ports.FileSymbols{
		makeTestFile("/b/x.h"),
		makeTestFile("/b/y.h"),
	}))

	a, err := store.LoadFiles("proj-A")
	require.NoError(t, err)
	assert.Len(t, a, 1)

	b, err := store.LoadFiles("proj-B")
	require.NoError(t, err)
	assert.Len(t, b, 2)
	assert.NotContains(t, byPath(b), "/a/x.h")

	// Nonexistent project: nil, nil
	c, err := store.LoadFiles("proj-C")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestStore_DeleteProject(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.SaveFile("proj-A", makeTestFile("/a/x.h")))
	require.NoError(t, store.SaveFile("proj-B", makeTestFile("/b/x.h")))

	require.NoError(t, store.DeleteProject("proj-A"))

	a, err := store.LoadFiles("proj-A")
	require.NoError(t, err)
	assert.Nil(t, a)

	b, err := store.LoadFiles("proj-B")
	require.NoError(t, err)
	assert.Len(t, b, 1)

	// Delete nonexistent is idempotent
	assert.NoError(t, store.DeleteProject("proj-C"))
}

func TestStore_OldSchemaLoadsEmpty(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.SaveFile("proj-1", makeTestFile("/src/a.h")))

	require.NoError(t, store.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte("proj-1")).Bucket(bucketMeta).Put(keySchema, []byte{0})
	}))

	loaded, err := store.LoadFiles("proj-1")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestStore_CorruptEntry(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.SaveFile("proj-1", makeTestFile("/src/a.h")))

	require.NoError(t, store.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte("proj-1")).Bucket(bucketFiles).Put([]byte("/src/bad.h"), []byte{schemaVersion, 0x05, 'x', 'y'})
	}))

	_, err := store.LoadFiles("proj-1")
	assert.Error(t, err)
}

func TestDecodeFile_RejectsShortAndForeign(t *testing.T) {
	_, err := decodeFile(nil)
	assert.Error(t, err)
	_, err = decodeFile([]byte{schemaVersion + 1, 0x01})
	assert.Error(t, err)
}

func TestStore_ConcurrentReadsAndWrites(t *testing.T) {
	// bbolt supports concurrent readers and a single writer.
	store, _ := newTestStore(t)
	require.NoError(t, store.SaveFile("proj-1", makeTestFile("/src/base.h")))

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			files, err := store.LoadFiles("proj-1")
			if err != nil {
				errs <- err
				return
			}
			if len(files) == 0 {
				errs <- fmt.Errorf("got no files")
			}
		}()
		go func() {
			defer wg.Done()
			if err := store.SaveFile("proj-1", makeTestFile(fmt.Sprintf("/src/f%d.h", i))); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent access error: %v", err)
	}

	files, err := store.LoadFiles("proj-1")
	require.NoError(t, err)
	assert.Len(t, files, 11)
}

func TestStore_LargeProject_Performance(t *testing.T) {
	store, _ := newTestStore(t)

	batch := make([]*ports.FileSymbols, 500)
	for i := range batch {
		batch[i] = makeTestFile(fmt.Sprintf("/src/module_%d/widget.h", i))
	}

	start := time.Now()
	require.NoError(t, store.SaveFiles("proj-1", batch))
	saveTime := time.Since(start)

	start = time.Now()
	loaded, err := store.LoadFiles("proj-1")
	loadTime := time.Since(start)
	require.NoError(t, err)

	assert.Len(t, loaded, 500)
	assert.Less(t, saveTime, 2*time.Second, "save took %v", saveTime) // generous for CI
	assert.Less(t, loadTime, 2*time.Second, "load took %v", loadTime)
	t.Logf("Performance: save=%v load=%v files=%d", saveTime, loadTime, len(loaded))
}

// =============================================================================
// Lock contention tests: verify the 1s timeout prevents hangs
// =============================================================================

func TestStore_OpenTimeout_DoesNotHang(t *testing.T) {
	// When another process/goroutine holds the bbolt exclusive lock,
	// a second open should timeout in ~1 second, not hang forever.
	dir := t.TempDir()
	path := filepath.Join(dir, "locked.db")

	store1, err := NewStore(path)
	require.NoError(t, err)
	defer store1.Close()

	start := time.Now()
	store2, err := NewStore(path)
	elapsed := time.Since(start)

	require.Error(t, err, "second open should fail with lock timeout")
	assert.Nil(t, store2, "store should be nil on timeout")
	assert.Contains(t, err.Error(), "bbolt open")
	assert.Contains(t, err.Error(), "timeout")
	assert.Less(t, elapsed, 3*time.Second, "should complete within 3s, not hang")
	assert.GreaterOrEqual(t, elapsed, 900*time.Millisecond, "should wait ~1s for the configured timeout")
}

func TestStore_OpenAfterClose_Succeeds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "released.db")

	store1, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store1.SaveFile("test", makeTestFile("/src/a.h")))
	store1.Close()

	start := time.Now()
	store2, err := NewStore(path)
	elapsed := time.Since(start)

	require.NoError(t, err, "open after close should succeed")
	require.NotNil(t, store2)
	assert.Less(t, elapsed, 500*time.Millisecond, "should open instantly after lock released")
	defer store2.Close()

	files, err := store2.LoadFiles("test")
	require.NoError(t, err)
	assert.Len(t, files, 1)
}
