// Package socket implements a JSON-over-Unix-socket protocol between the
// sigsync daemon and editor plugins. The protocol uses newline-delimited
// JSON: each message is one JSON object + \n.
package socket

import (
	"crypto/sha256"
	"fmt"
	"path/filepath"

	"github.com/corey/sigsync/internal/domain/textedit"
)

// SocketPath returns the Unix socket path for a given project root.
// Format: /tmp/sigsync-{first12hex}.sock
func SocketPath(projectRoot string) string {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		abs = projectRoot
	}
	h := sha256.Sum256([]byte(abs))
	return fmt.Sprintf("/tmp/sigsync-%x.sock", h[:6])
}

// Method names for the protocol.
const (
	MethodOpen     = "open"
	MethodChange   = "change"
	MethodClose    = "close"
	MethodCursor   = "cursor"
	MethodEdits    = "edits"
	MethodApply    = "apply"
	MethodEvents   = "events"
	MethodHealth   = "health"
	MethodReindex  = "reindex"
	MethodShutdown = "shutdown"
)

// Request is the wire format for client-to-server messages.
type Request struct {
	ID     string      `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

// Response is the wire format for server-to-client messages.
type Response struct {
	ID     string      `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// DocumentParams carries an editor buffer for open and change. Text is the
// full buffer content; Version must grow with every change.
type DocumentParams struct {
	Path    string `json:"path"`
	Version int    `json:"version"`
	Text    string `json:"text,omitempty"`
}

// CursorParams reports where an editor's cursor is. Line and Column are
// 1-based; Column counts bytes.
type CursorParams struct {
	Editor string `json:"editor"`
	Path   string `json:"path"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// EditorParams names the editor a request acts for.
type EditorParams struct {
	Editor string `json:"editor"`
}

// ApplyParams asks for the current link's edits to be committed.
type ApplyParams struct {
	Editor string `json:"editor"`
	Jump   bool   `json:"jump,omitempty"`
}

// ReindexParams controls a reindex request.
type ReindexParams struct {
	Force bool `json:"force,omitempty"`
}

// LinkInfo describes an editor's current link.
type LinkInfo struct {
	ID         string `json:"id"`
	Generation uint64 `json:"generation"`
	Phase      string `json:"phase"`
	Reason     string `json:"reason,omitempty"`
	Function   string `json:"function"`
	Kind       string `json:"kind"`
	SourcePath string `json:"source_path"`
	TargetPath string `json:"target_path,omitempty"`
	TargetLine int    `json:"target_line,omitempty"`
	TargetCol  int    `json:"target_column,omitempty"`
}

// CursorResult is the result of a cursor request. Link is nil when the
// cursor is not on a function signature.
type CursorResult struct {
	Link *LinkInfo `json:"link,omitempty"`
}

// EditsResult is the result of an edits request.
type EditsResult struct {
	Link  *LinkInfo       `json:"link,omitempty"`
	Edits []textedit.Edit `json:"edits"`
}

// ApplyResult is the result of an apply request. Conflict is set when the
// target changed since resolution and nothing was written.
type ApplyResult struct {
	Applied  bool   `json:"applied"`
	Conflict bool   `json:"conflict,omitempty"`
	Edits    int    `json:"edits"`
	Path     string `json:"path,omitempty"`
}

// Event kinds delivered through the events method.
const (
	EventLinked      = "linked"
	EventInvalidated = "invalidated"
	EventNotice      = "notice"
	EventReveal      = "reveal"
	EventEdited      = "edited"
)

// Event is one pending notification for an editor.
type Event struct {
	Kind    string `json:"kind"`
	LinkID  string `json:"link_id,omitempty"`
	Path    string `json:"path,omitempty"`
	Offset  int    `json:"offset,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Version int    `json:"version,omitempty"`
	Message string `json:"message,omitempty"`
}

// EventsResult is the result of an events request.
type EventsResult struct {
	Events []Event `json:"events"`
}

// HealthResult is the result of a health request.
type HealthResult struct {
	Status    string `json:"status"`
	FileCount int    `json:"file_count"`
	Functions int    `json:"functions"`
	Editors   int    `json:"editors"`
	Documents int    `json:"documents"`
	ResolveMs int64  `json:"resolve_p50_ms"`
	Uptime    string `json:"uptime"`

	// Links counts ended links by outcome: applied, aborted, invalidated,
	// superseded or dormant.
	Links map[string]int64 `json:"links,omitempty"`
}

// ReindexResult is the result of a reindex request.
type ReindexResult struct {
	Files     int   `json:"files"`
	Parsed    int   `json:"parsed"`
	Unchanged int   `json:"unchanged"`
	Removed   int   `json:"removed"`
	Functions int   `json:"functions"`
	ElapsedMs int64 `json:"elapsed_ms"`
}
