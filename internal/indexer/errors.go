package indexer

import "errors"

var (
	// ErrNotIndexed reports a lookup against a file the catalog has no
	// record for, either the query file itself or an import target.
	ErrNotIndexed = errors.New("file not indexed")

	// ErrNoDefinition reports an import that resolved to an indexed file
	// which does not define the requested function.
	ErrNoDefinition = errors.New("function not defined at import target")
)
