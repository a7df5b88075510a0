package socket

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
)

// Client connects to the sigsync daemon over a Unix socket. Each call opens
// its own connection.
type Client struct {
	sockPath string
}

// NewClient creates a client that will connect to the given socket path.
func NewClient(sockPath string) *Client {
	return &Client{sockPath: sockPath}
}

// Open pushes a newly opened editor buffer.
func (c *Client) Open(path string, version int, text string) error {
	_, err := c.call(MethodOpen, DocumentParams{Path: path, Version: version, Text: text})
	return err
}

// Change replaces the text of an open buffer.
func (c *Client) Change(path string, version int, text string) error {
	_, err := c.call(MethodChange, DocumentParams{Path: path, Version: version, Text: text})
	return err
}

// Close drops an open buffer; the file is served from disk again.
func (c *Client) Close(path string) error {
	_, err := c.call(MethodClose, DocumentParams{Path: path})
	return err
}

// Cursor reports a cursor position for editor.
func (c *Client) Cursor(editor, path string, line, col int) (*CursorResult, error) {
	var result CursorResult
	if err := c.callInto(MethodCursor, CursorParams{Editor: editor, Path: path, Line: line, Column: col}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Edits returns the edits the editor's current link would apply.
func (c *Client) Edits(editor string) (*EditsResult, error) {
	var result EditsResult
	if err := c.callInto(MethodEdits, EditorParams{Editor: editor}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Apply commits the editor's current link.
func (c *Client) Apply(editor string, jump bool) (*ApplyResult, error) {
	var result ApplyResult
	if err := c.callInto(MethodApply, ApplyParams{Editor: editor, Jump: jump}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Events drains the editor's pending events.
func (c *Client) Events(editor string) (*EventsResult, error) {
	var result EventsResult
	if err := c.callInto(MethodEvents, EditorParams{Editor: editor}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Health sends a health check request.
func (c *Client) Health() (*HealthResult, error) {
	var result HealthResult
	if err := c.callInto(MethodHealth, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Reindex asks the daemon to refresh the symbol index. Large projects take a
// while, so the timeout is longer than for other calls.
func (c *Client) Reindex(force bool) (*ReindexResult, error) {
	resp, err := c.callWithTimeout(newRequest(MethodReindex, ReindexParams{Force: force}), 5*time.Minute)
	if err != nil {
		return nil, err
	}
	var result ReindexResult
	if err := decodeResult(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Shutdown sends a shutdown request to the daemon.
func (c *Client) Shutdown() error {
	_, err := c.call(MethodShutdown, nil)
	return err
}

// Ping checks if the daemon is reachable.
func (c *Client) Ping() bool {
	conn, err := net.DialTimeout("unix", c.sockPath, 500*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func newRequest(method string, params interface{}) Request {
	return Request{ID: uuid.NewString(), Method: method, Params: params}
}

func (c *Client) call(method string, params interface{}) (*Response, error) {
	return c.callWithTimeout(newRequest(method, params), 5*time.Second)
}

func (c *Client) callInto(method string, params, result interface{}) error {
	resp, err := c.call(method, params)
	if err != nil {
		return err
	}
	return decodeResult(resp, result)
}

func decodeResult(resp *Response, v interface{}) error {
	data, err := json.Marshal(resp.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal result: %w", err)
	}
	return nil
}

func (c *Client) callWithTimeout(req Request, timeout time.Duration) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.sockPath, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	// Set deadline for the whole request/response
	conn.SetDeadline(time.Now().Add(timeout))

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		return nil, fmt.Errorf("empty response")
	}

	var resp Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if resp.ID != req.ID {
		return nil, fmt.Errorf("response id %q does not match request %q", resp.ID, req.ID)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("server error: %s", resp.Error)
	}
	return &resp, nil
}
