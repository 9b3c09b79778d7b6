package daemon

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/defkit/jsdef/internal/indexer"
	"github.com/defkit/jsdef/internal/logger"
)

// BuildFunc constructs and fully indexes a fresh catalog. The daemon
// calls it on every rebuild so that a new catalog is complete before it
// becomes visible to queries.
type BuildFunc func() (*indexer.Indexer, error)

// Daemon answers catalog queries over a unix socket. The active indexer
// is swapped wholesale on rebuild; queries hold the read side of the
// swap lock and never observe a partial catalog.
type Daemon struct {
	socketPath string
	build      BuildFunc

	mu      sync.RWMutex
	ix      *indexer.Indexer
	builtAt time.Time

	rebuildMu sync.Mutex

	listener net.Listener
	conns    map[*jsonrpc2.Conn]bool
	connMu   sync.Mutex

	shutdown     chan struct{}
	shutdownOnce sync.Once
	startTime    time.Time

	log *slog.Logger
}

func New(socketPath string, ix *indexer.Indexer, build BuildFunc) *Daemon {
	return &Daemon{
		socketPath: socketPath,
		build:      build,
		ix:         ix,
		builtAt:    time.Now(),
		conns:      make(map[*jsonrpc2.Conn]bool),
		shutdown:   make(chan struct{}),
		startTime:  time.Now(),
		log:        logger.ForComponent("daemon"),
	}
}

// Start binds the socket and begins accepting connections. It does not
// block; pair with WaitForSignal or Shutdown.
func (d *Daemon) Start() error {
	listener, err := listenUnix(d.socketPath)
	if err != nil {
		return err
	}
	d.listener = listener

	d.log.Info("daemon listening", "socket", d.socketPath)
	go d.acceptConnections()
	return nil
}

// WaitForSignal blocks until SIGINT or SIGTERM, then shuts down.
func (d *Daemon) WaitForSignal() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		d.log.Info("signal received, shutting down", "signal", sig.String())
	case <-d.shutdown:
	}
	d.Shutdown()
}

func (d *Daemon) Shutdown() {
	d.shutdownOnce.Do(func() {
		close(d.shutdown)

		if d.listener != nil {
			d.listener.Close()
		}

		d.connMu.Lock()
		for conn := range d.conns {
			conn.Close()
		}
		d.connMu.Unlock()

		os.Remove(d.socketPath)
		d.log.Info("daemon stopped", "uptime", time.Since(d.startTime).String())
	})
}

// Rebuild constructs a fresh catalog and swaps it in, keeping the
// previous one when the build fails. Concurrent rebuild requests run
// one at a time.
func (d *Daemon) Rebuild() {
	d.rebuildMu.Lock()
	defer d.rebuildMu.Unlock()

	next, err := d.build()
	if err != nil {
		d.log.Error("rebuild failed, keeping previous catalog", "error", err)
		return
	}

	d.mu.Lock()
	d.ix = next
	d.builtAt = time.Now()
	d.mu.Unlock()

	s := next.Stats()
	d.log.Info("catalog rebuilt", "files", s.Files, "functions", s.Functions, "imports", s.Imports)
}

func (d *Daemon) acceptConnections() {
	for {
		conn, err := d.listener.Accept()
		if err != nil {
			select {
			case <-d.shutdown:
				return
			default:
				continue
			}
		}
		go d.handleConnection(conn)
	}
}

func (d *Daemon) handleConnection(conn net.Conn) {
	stream := jsonrpc2.NewBufferedStream(conn, jsonrpc2.VSCodeObjectCodec{})
	rpc := jsonrpc2.NewConn(context.Background(), stream, d)

	d.connMu.Lock()
	d.conns[rpc] = true
	d.connMu.Unlock()

	<-rpc.DisconnectNotify()

	d.connMu.Lock()
	delete(d.conns, rpc)
	d.connMu.Unlock()
}

// current returns the active catalog and its build time.
func (d *Daemon) current() (*indexer.Indexer, time.Time) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ix, d.builtAt
}

func (d *Daemon) SocketPath() string {
	return d.socketPath
}
