package indexer

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/defkit/jsdef/internal/logger"
	"github.com/defkit/jsdef/internal/pathutil"
)

// Indexer builds and queries a catalog of function definitions across a
// tree of CommonJS-style JavaScript files. Construction compiles the
// pattern matchers and performs no I/O; Index walks the tree once on a
// single goroutine; queries are read-only and safe to run concurrently
// once Index has returned.
type Indexer struct {
	root     string
	catalog  map[string]*FileIndex
	excludes []string

	fnRe     *regexp.Regexp
	assignRe *regexp.Regexp
	importRe *regexp.Regexp

	log *slog.Logger
}

type Option func(*Indexer)

// WithExcludes adds doublestar glob patterns, matched against
// slash-separated paths relative to the root, that drop files the default
// eligibility rule would keep.
func WithExcludes(globs []string) Option {
	return func(ix *Indexer) {
		ix.excludes = append(ix.excludes, globs...)
	}
}

func New(root string, opts ...Option) *Indexer {
	ix := &Indexer{
		root:     root,
		catalog:  make(map[string]*FileIndex),
		fnRe:     regexp.MustCompile(`^\s*function\s+(\w*)\s*\(`),
		assignRe: regexp.MustCompile(`^\s*(const|let|var)\s+(\w*)\s+=\s+\(`),
		importRe: regexp.MustCompile(`(const|let|var)\s*\{?([\s\w,]+)\}?\s*=\s*require\(['"]([\w./]+)['"]\)`),
		log:      logger.ForComponent("indexer"),
	}

	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Index walks the root sequentially and records every eligible file.
// Calling it again re-walks and overwrites entries per path; entries for
// files that vanished are not removed.
func (ix *Indexer) Index() error {
	if !pathutil.Exists(ix.root) {
		return fmt.Errorf("no such file or directory exists for %s", ix.root)
	}

	indexed := 0
	walkErr := filepath.WalkDir(ix.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries drop out of the walk without
			// failing the pass.
			return nil
		}

		name := d.Name()
		if strings.Contains(name, "node_modules") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}
		if !EligibleName(name) {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if ix.excluded(path) {
			return nil
		}

		abs, err := pathutil.Abs(path)
		if err != nil {
			return fmt.Errorf("failed to parse file %s: %w", path, err)
		}
		if err := ix.indexFile(abs); err != nil {
			return fmt.Errorf("failed to parse file %s: %w", path, err)
		}

		indexed++
		return nil
	})
	if walkErr != nil {
		return walkErr
	}

	if indexed == 0 {
		return fmt.Errorf("no files were found in %s", ix.root)
	}

	ix.log.Debug("index pass complete", "root", ix.root, "files", indexed)
	return nil
}

// EligibleName applies the plain-script rule to a base name: a file is
// indexable when it ends in .js, is not hidden, and is not a test file.
// Directories are never subject to this rule.
func EligibleName(name string) bool {
	return strings.HasSuffix(name, ".js") &&
		!strings.HasPrefix(name, ".") &&
		!strings.Contains(name, "test")
}

func (ix *Indexer) excluded(path string) bool {
	if len(ix.excludes) == 0 {
		return false
	}

	rel, err := filepath.Rel(ix.root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)

	for _, pattern := range ix.excludes {
		if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
			return true
		}
	}
	return false
}

func (ix *Indexer) indexFile(path string) error {
	content, _, err := ReadFileAsUTF8(path)
	if err != nil {
		return err
	}

	fi := newFileIndex(path, content)
	ix.scanFunctions(fi)
	ix.scanImports(fi)
	ix.catalog[path] = fi
	return nil
}

// scanFunctions records local definitions line by line. The declaration
// form is tried first; the assignment form only when it did not match,
// so a line registers at most one definition. Later definitions of the
// same name overwrite earlier ones.
func (ix *Indexer) scanFunctions(fi *FileIndex) {
	for offset, line := range fi.Content {
		if m := ix.fnRe.FindStringSubmatch(line); m != nil {
			fi.Functions[m[1]] = offset
		} else if m := ix.assignRe.FindStringSubmatch(line); m != nil {
			fi.Functions[m[2]] = offset
		}
	}
}

// scanImports maps every name bound by a require statement to the file
// presumed to define it: the module path joined to the importing file's
// directory with a .js suffix, cleaned lexically. The target is not
// required to exist, or even to be indexed, until query time.
func (ix *Indexer) scanImports(fi *FileIndex) {
	dir := filepath.Dir(fi.Path)
	joined := strings.Join(fi.Content, "\n")

	for _, m := range ix.importRe.FindAllStringSubmatch(joined, -1) {
		target := filepath.Join(dir, m[3]+".js")
		for _, name := range strings.Split(m[2], ",") {
			fi.Imports[strings.TrimSpace(name)] = target
		}
	}
}

// FnContent resolves funcName against filePath and returns the indexed
// lines from the definition onward, unbounded to the end of the file.
// Resolution tries the file's own definitions first, unless object names
// a qualifier, in which case the qualifier selects the import to follow.
// An unresolvable import is a soft miss: one warning and an empty Lines.
// Querying a file outside the catalog returns ErrNotIndexed; an import
// target that lacks the definition returns ErrNoDefinition.
func (ix *Indexer) FnContent(filePath, funcName, object string) (*Lines, error) {
	abs, err := pathutil.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", filePath, err)
	}

	fi, ok := ix.catalog[abs]
	if !ok {
		ix.log.Error("no index record for file", "path", filePath)
		return nil, fmt.Errorf("%w: %s", ErrNotIndexed, filePath)
	}

	if object == "" {
		if offset, ok := fi.localOffset(funcName); ok {
			return newLines(fi.Content, offset), nil
		}
	}

	importKey := object
	if importKey == "" {
		importKey = funcName
	}

	target, ok := fi.Imports[importKey]
	if !ok {
		ix.log.Warn("unable to find function reference", "function", funcName, "file", filePath)
		return &Lines{}, nil
	}

	tfi, ok := ix.catalog[target]
	if !ok {
		ix.log.Error("no index record for file", "path", target)
		return nil, fmt.Errorf("%w: %s", ErrNotIndexed, target)
	}

	offset, ok := tfi.localOffset(funcName)
	if !ok {
		ix.log.Error("function not defined at import target", "function", funcName, "path", target)
		return nil, fmt.Errorf("%w: %s in %s", ErrNoDefinition, funcName, target)
	}

	return newLines(tfi.Content, offset), nil
}

func (ix *Indexer) Root() string {
	return ix.root
}

// Files returns the catalog's paths in sorted order.
func (ix *Indexer) Files() []string {
	paths := make([]string, 0, len(ix.catalog))
	for path := range ix.catalog {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Lookup canonicalizes path and returns its catalog record.
func (ix *Indexer) Lookup(path string) (*FileIndex, bool) {
	abs, err := pathutil.Abs(path)
	if err != nil {
		return nil, false
	}
	fi, ok := ix.catalog[abs]
	return fi, ok
}

type Stats struct {
	Files     int
	Functions int
	Imports   int
}

func (ix *Indexer) Stats() Stats {
	s := Stats{Files: len(ix.catalog)}
	for _, fi := range ix.catalog {
		s.Functions += len(fi.Functions)
		s.Imports += len(fi.Imports)
	}
	return s
}
