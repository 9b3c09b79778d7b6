package protocol

import "time"

// Daemon methods.
const (
	MethodPing      = "ping"
	MethodStats     = "index/stats"
	MethodFnContent = "fn/content"
)

// Error codes beyond the standard JSON-RPC range: contract violations
// surfaced by the lookup path.
const (
	CodeNotIndexed   = -32001
	CodeNoDefinition = -32002
)

type FnContentParams struct {
	File     string `json:"file"`
	Function string `json:"function"`
	Object   string `json:"object,omitempty"`
}

// FnContentResult carries the lines from the definition to the end of
// its file. A resolution miss is Found=false with no lines, not an
// error.
type FnContentResult struct {
	Found bool     `json:"found"`
	Lines []string `json:"lines"`
}

type StatsResult struct {
	Root      string    `json:"root"`
	Files     int       `json:"files"`
	Functions int       `json:"functions"`
	Imports   int       `json:"imports"`
	BuiltAt   time.Time `json:"built_at"`
	Version   string    `json:"version"`
}
