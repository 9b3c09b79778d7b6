package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/defkit/jsdef/internal/indexer"
	"github.com/defkit/jsdef/pkg/protocol"
	"github.com/defkit/jsdef/pkg/version"
)

// Handle dispatches one client request against the active catalog.
func (d *Daemon) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	if req.Notif {
		return
	}

	switch req.Method {
	case protocol.MethodPing:
		d.reply(ctx, conn, req, map[string]any{})

	case protocol.MethodStats:
		ix, builtAt := d.current()
		s := ix.Stats()
		d.reply(ctx, conn, req, protocol.StatsResult{
			Root:      ix.Root(),
			Files:     s.Files,
			Functions: s.Functions,
			Imports:   s.Imports,
			BuiltAt:   builtAt,
			Version:   version.Version,
		})

	case protocol.MethodFnContent:
		d.handleFnContent(ctx, conn, req)

	default:
		d.replyError(ctx, conn, req, jsonrpc2.CodeMethodNotFound,
			fmt.Sprintf("method not found: %s", req.Method))
	}
}

func (d *Daemon) handleFnContent(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params protocol.FnContentParams
	if req.Params == nil {
		d.replyError(ctx, conn, req, jsonrpc2.CodeInvalidParams, "missing params")
		return
	}
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		d.replyError(ctx, conn, req, jsonrpc2.CodeInvalidParams, err.Error())
		return
	}
	if params.File == "" || params.Function == "" {
		d.replyError(ctx, conn, req, jsonrpc2.CodeInvalidParams, "file and function are required")
		return
	}

	ix, _ := d.current()
	lines, err := ix.FnContent(params.File, params.Function, params.Object)
	if err != nil {
		switch {
		case errors.Is(err, indexer.ErrNotIndexed):
			d.replyError(ctx, conn, req, protocol.CodeNotIndexed, err.Error())
		case errors.Is(err, indexer.ErrNoDefinition):
			d.replyError(ctx, conn, req, protocol.CodeNoDefinition, err.Error())
		default:
			d.replyError(ctx, conn, req, jsonrpc2.CodeInternalError, err.Error())
		}
		return
	}

	result := protocol.FnContentResult{Lines: []string{}}
	for lines.Scan() {
		result.Lines = append(result.Lines, lines.Text())
	}
	result.Found = len(result.Lines) > 0

	d.reply(ctx, conn, req, result)
}

func (d *Daemon) reply(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request, result any) {
	if err := conn.Reply(ctx, req.ID, result); err != nil {
		d.log.Warn("failed to send reply", "method", req.Method, "error", err)
	}
}

func (d *Daemon) replyError(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request, code int64, msg string) {
	rpcErr := &jsonrpc2.Error{Code: code, Message: msg}
	if err := conn.ReplyWithError(ctx, req.ID, rpcErr); err != nil {
		d.log.Warn("failed to send error reply", "method", req.Method, "error", err)
	}
}
