package watcher

import (
	"os"
	"path/filepath"
	"time"

	"github.com/defkit/jsdef/internal/indexer"
)

type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
	EventRename
)

func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

type FileEvent struct {
	Path      string
	Type      EventType
	Timestamp time.Time
}

// relevant reports whether an event can change catalog contents. Events
// for files the indexing rule would never admit are noise; everything
// else, directories included, can alter import resolution and warrants
// a rebuild. A path that is already gone is assumed to have mattered.
func relevant(ev FileEvent) bool {
	info, err := os.Stat(ev.Path)
	if err != nil {
		return true
	}
	if info.IsDir() {
		return true
	}
	return indexer.EligibleName(filepath.Base(ev.Path))
}
