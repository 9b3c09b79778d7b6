package daemon

import (
	"context"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/defkit/jsdef/pkg/protocol"
)

// Client is a typed view over a daemon connection. One Client per
// socket connection; safe for concurrent calls.
type Client struct {
	conn *jsonrpc2.Conn
}

// Connect dials the daemon socket and wraps the connection.
func Connect(ctx context.Context, socketPath string) (*Client, error) {
	conn, err := Dial(ctx, socketPath)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	var result map[string]any
	return c.conn.Call(ctx, protocol.MethodPing, nil, &result)
}

func (c *Client) Stats(ctx context.Context) (protocol.StatsResult, error) {
	var result protocol.StatsResult
	err := c.conn.Call(ctx, protocol.MethodStats, nil, &result)
	return result, err
}

func (c *Client) FnContent(ctx context.Context, file, function, object string) (protocol.FnContentResult, error) {
	params := protocol.FnContentParams{File: file, Function: function, Object: object}
	var result protocol.FnContentResult
	err := c.conn.Call(ctx, protocol.MethodFnContent, params, &result)
	return result, err
}

func (c *Client) Close() error {
	return c.conn.Close()
}
