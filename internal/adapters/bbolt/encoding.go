// Binary encoding for file symbol entries.
//
// Each value is a one-byte format version followed by the gob encoding of
// ports.FileSymbols. Gob keeps the entries about half the size of JSON for
// the repetitive scope and type slices and needs no schema of its own.
package bbolt

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/corey/sigsync/internal/ports"
)

// schemaVersion is bumped whenever ports.FileSymbols changes shape. A project
// stamped with another version loads as empty and is rebuilt.
const schemaVersion byte = 1

func currentSchema(v []byte) bool { return len(v) == 1 && v[0] == schemaVersion }

func encodeFile(f *ports.FileSymbols) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(schemaVersion)
	if err := gob.NewEncoder(&buf).Encode(f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeFile reverses encodeFile. Every read is checked so corrupt data
// yields an error rather than a panic.
func decodeFile(data []byte) (*ports.FileSymbols, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("entry too short: %d bytes", len(data))
	}
	if data[0] != schemaVersion {
		return nil, fmt.Errorf("entry version %d, want %d", data[0], schemaVersion)
	}
	var f ports.FileSymbols
	if err := gob.NewDecoder(bytes.NewReader(data[1:])).Decode(&f); err != nil {
		return nil, err
	}
	return &f, nil
}
