package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/defkit/jsdef/internal/indexer"
	"github.com/defkit/jsdef/pkg/protocol"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// startDaemon indexes a two-file fixture (a.js imports helper from b.js)
// and serves it on a socket under a short temp dir.
func startDaemon(t *testing.T) (*Daemon, string) {
	t.Helper()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.js"),
		"const { helper } = require('./b')\n\nfunction local() {\n  return helper();\n}\n")
	writeFile(t, filepath.Join(root, "b.js"),
		"// b\n\n\n\n\nfunction helper() {\n  return 42;\n}\n")

	build := func() (*indexer.Indexer, error) {
		ix := indexer.New(root)
		if err := ix.Index(); err != nil {
			return nil, err
		}
		return ix, nil
	}

	ix, err := build()
	if err != nil {
		t.Fatalf("initial build: %v", err)
	}

	sockDir, err := os.MkdirTemp("", "jsdef")
	if err != nil {
		t.Fatalf("socket dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(sockDir) })

	d := New(filepath.Join(sockDir, "d.sock"), ix, build)
	if err := d.Start(); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	t.Cleanup(d.Shutdown)

	return d, root
}

func connect(t *testing.T, d *Daemon) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	c, err := Connect(ctx, d.SocketPath())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestDaemonPing(t *testing.T) {
	d, _ := startDaemon(t)
	c := connect(t, d)

	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestDaemonStats(t *testing.T) {
	d, root := startDaemon(t)
	c := connect(t, d)

	stats, err := c.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Root != root {
		t.Errorf("root = %q, want %q", stats.Root, root)
	}
	if stats.Files != 2 {
		t.Errorf("files = %d, want 2", stats.Files)
	}
	if stats.Version == "" {
		t.Error("version missing from stats")
	}
}

func TestDaemonFnContentViaImport(t *testing.T) {
	d, root := startDaemon(t)
	c := connect(t, d)

	result, err := c.FnContent(context.Background(), filepath.Join(root, "a.js"), "helper", "")
	if err != nil {
		t.Fatalf("fn/content: %v", err)
	}
	if !result.Found {
		t.Fatal("expected found=true")
	}
	if len(result.Lines) == 0 || result.Lines[0] != "function helper() {" {
		t.Errorf("first line = %q, want the helper signature", result.Lines[0])
	}
}

func TestDaemonFnContentMiss(t *testing.T) {
	d, root := startDaemon(t)
	c := connect(t, d)

	result, err := c.FnContent(context.Background(), filepath.Join(root, "a.js"), "missing", "")
	if err != nil {
		t.Fatalf("soft miss must not be an RPC error: %v", err)
	}
	if result.Found {
		t.Error("expected found=false")
	}
	if len(result.Lines) != 0 {
		t.Errorf("expected no lines, got %d", len(result.Lines))
	}
}

func TestDaemonFnContentNotIndexed(t *testing.T) {
	d, root := startDaemon(t)
	c := connect(t, d)

	_, err := c.FnContent(context.Background(), filepath.Join(root, "nope.js"), "helper", "")
	var rpcErr *jsonrpc2.Error
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected *jsonrpc2.Error, got %v", err)
	}
	if rpcErr.Code != protocol.CodeNotIndexed {
		t.Errorf("code = %d, want %d", rpcErr.Code, protocol.CodeNotIndexed)
	}
}

func TestDaemonUnknownMethod(t *testing.T) {
	d, _ := startDaemon(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := Dial(ctx, d.SocketPath())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var result any
	err = conn.Call(ctx, "no/such", nil, &result)
	var rpcErr *jsonrpc2.Error
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected *jsonrpc2.Error, got %v", err)
	}
	if rpcErr.Code != jsonrpc2.CodeMethodNotFound {
		t.Errorf("code = %d, want %d", rpcErr.Code, jsonrpc2.CodeMethodNotFound)
	}
}

func TestDaemonInvalidParams(t *testing.T) {
	d, _ := startDaemon(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := Dial(ctx, d.SocketPath())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var result protocol.FnContentResult
	err = conn.Call(ctx, protocol.MethodFnContent, protocol.FnContentParams{}, &result)
	var rpcErr *jsonrpc2.Error
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected *jsonrpc2.Error, got %v", err)
	}
	if rpcErr.Code != jsonrpc2.CodeInvalidParams {
		t.Errorf("code = %d, want %d", rpcErr.Code, jsonrpc2.CodeInvalidParams)
	}
}

func TestDaemonRebuildSwapsCatalog(t *testing.T) {
	d, root := startDaemon(t)
	c := connect(t, d)

	writeFile(t, filepath.Join(root, "c.js"), "function extra() {}\n")
	d.Rebuild()

	stats, err := c.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Files != 3 {
		t.Errorf("files after rebuild = %d, want 3", stats.Files)
	}
}
