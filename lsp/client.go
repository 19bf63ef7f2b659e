package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/jsonrpc2"

	"github.com/akiyosi/gonvim-hover/util"
)

// ErrClosed is returned by calls on a client whose server has exited.
var ErrClosed = errors.New("language server is closed")

const (
	initializeTimeout = 10 * time.Second
	shutdownTimeout   = 2 * time.Second
)

// Document is the editor side of a text document.
type Document struct {
	URI        string
	LanguageID string
	Text       string
}

// Session is a language server connection as seen by the hover command.
type Session interface {
	Name() string
	SupportsHover() bool
	Sync(ctx context.Context, doc Document) error
	CloseDocument(ctx context.Context, uri string) error
	Hover(ctx context.Context, params HoverParams) (*Hover, error)
	// Closed reports whether the server has exited or been shut down.
	Closed() bool
	Close() error
}

// Client manages communication with one language server process.
type Client struct {
	name   string
	cmd    *exec.Cmd
	conn   *jsonrpc2.Conn
	log    *logrus.Entry
	stderr *io.PipeWriter

	mu       sync.Mutex
	caps     ServerCapabilities
	versions map[string]int
	closed   bool
}

type stdio struct {
	io.ReadCloser
	io.WriteCloser
}

func (s stdio) Close() error {
	werr := s.WriteCloser.Close()
	rerr := s.ReadCloser.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

// Start launches the server described by cfg and runs the initialize
// handshake. A server that does not answer initialize in time is killed.
func Start(ctx context.Context, name string, cfg ServerConfig, rootURI string, log *logrus.Entry) (*Client, error) {
	log = log.WithField("session", name)

	cmd := exec.Command(cfg.Command, cfg.Args...)
	util.PrepareRunProc(cmd)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = stdin.Close()
		return nil, err
	}
	stderr := log.WriterLevel(logrus.DebugLevel)
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		_ = stdout.Close()
		_ = stderr.Close()
		return nil, fmt.Errorf("start %s: %w", cfg.Command, err)
	}

	c := &Client{
		name:     name,
		cmd:      cmd,
		log:      log,
		stderr:   stderr,
		versions: map[string]int{},
	}
	stream := jsonrpc2.NewBufferedStream(stdio{stdout, stdin}, jsonrpc2.VSCodeObjectCodec{})
	c.conn = jsonrpc2.NewConn(context.Background(), stream, jsonrpc2.HandlerWithError(c.handle))
	go func() {
		<-c.conn.DisconnectNotify()
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		log.Info("language server disconnected")
	}()

	ictx, cancel := context.WithTimeout(ctx, initializeTimeout)
	defer cancel()
	if err := c.initialize(ictx, rootURI); err != nil {
		_ = c.Close()
		return nil, err
	}
	log.WithField("hover", c.SupportsHover()).Info("language server initialized")

	return c, nil
}

func (c *Client) initialize(ctx context.Context, rootURI string) error {
	params := map[string]interface{}{
		"processId":    os.Getpid(),
		"rootUri":      rootURI,
		"capabilities": clientCapabilities(),
		"clientInfo": map[string]interface{}{
			"name": "gonvim-hover",
		},
	}
	if rootURI != "" {
		params["workspaceFolders"] = []map[string]interface{}{
			{"uri": rootURI, "name": rootURI},
		}
	}

	var result InitializeResult
	if err := c.conn.Call(ctx, "initialize", params, &result); err != nil {
		return fmt.Errorf("initialize %s: %w", c.name, err)
	}
	c.mu.Lock()
	c.caps = result.Capabilities
	c.mu.Unlock()

	return c.conn.Notify(ctx, "initialized", map[string]interface{}{})
}

// handle answers requests the server sends to the client.
func (c *Client) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	switch req.Method {
	case "window/logMessage", "window/showMessage":
		var msg struct {
			Type    int    `json:"type"`
			Message string `json:"message"`
		}
		if req.Params != nil {
			_ = json.Unmarshal(*req.Params, &msg)
		}
		c.log.WithField("type", msg.Type).Debug(msg.Message)
		return nil, nil

	case "workspace/configuration":
		var params struct {
			Items []json.RawMessage `json:"items"`
		}
		if req.Params != nil {
			_ = json.Unmarshal(*req.Params, &params)
		}
		return make([]interface{}, len(params.Items)), nil

	case "window/workDoneProgress/create", "client/registerCapability", "client/unregisterCapability":
		return nil, nil
	}

	if req.Notif {
		return nil, nil
	}
	return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: req.Method}
}

// Name is the configured server name.
func (c *Client) Name() string {
	return c.name
}

// SupportsHover reports whether the server advertised hoverProvider.
func (c *Client) SupportsHover() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.caps.SupportsHover()
}

// Closed reports whether the connection to the server is gone.
func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Sync opens doc on the server, or replaces its full text if it is already open.
func (c *Client) Sync(ctx context.Context, doc Document) error {
	if c.Closed() {
		return ErrClosed
	}

	c.mu.Lock()
	version, open := c.versions[doc.URI]
	version++
	c.versions[doc.URI] = version
	c.mu.Unlock()

	if !open {
		return c.conn.Notify(ctx, "textDocument/didOpen", map[string]interface{}{
			"textDocument": TextDocumentItem{
				URI:        doc.URI,
				LanguageID: doc.LanguageID,
				Version:    version,
				Text:       doc.Text,
			},
		})
	}
	return c.conn.Notify(ctx, "textDocument/didChange", map[string]interface{}{
		"textDocument": VersionedTextDocumentIdentifier{URI: doc.URI, Version: version},
		"contentChanges": []map[string]interface{}{
			{"text": doc.Text},
		},
	})
}

// CloseDocument tells the server the document is no longer open.
func (c *Client) CloseDocument(ctx context.Context, uri string) error {
	c.mu.Lock()
	_, open := c.versions[uri]
	delete(c.versions, uri)
	closed := c.closed
	c.mu.Unlock()
	if !open || closed {
		return nil
	}
	return c.conn.Notify(ctx, "textDocument/didClose", map[string]interface{}{
		"textDocument": TextDocumentIdentifier{URI: uri},
	})
}

// Hover requests hover information. A null result is returned as nil.
func (c *Client) Hover(ctx context.Context, params HoverParams) (*Hover, error) {
	if c.Closed() {
		return nil, ErrClosed
	}

	var raw json.RawMessage
	if err := c.conn.Call(ctx, "textDocument/hover", params, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var hover Hover
	if err := json.Unmarshal(raw, &hover); err != nil {
		return nil, fmt.Errorf("decode hover from %s: %w", c.name, err)
	}
	return &hover, nil
}

// Close shuts the server down and waits for the process to exit.
func (c *Client) Close() error {
	c.mu.Lock()
	wasClosed := c.closed
	c.closed = true
	c.mu.Unlock()

	if !wasClosed {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := c.conn.Call(ctx, "shutdown", nil, nil); err != nil {
			c.log.WithError(err).Debug("shutdown")
		}
		_ = c.conn.Notify(ctx, "exit", nil)
		cancel()
	}
	_ = c.conn.Close()

	done := make(chan error, 1)
	go func() {
		err := c.cmd.Wait()
		_ = c.stderr.Close()
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(shutdownTimeout):
		_ = c.cmd.Process.Kill()
		return <-done
	}
}
