package indexer

import "strings"

// FileIndex is the per-file record inside a catalog: the file's trimmed
// source lines, the starting offset of every local function, and the
// presumed defining file for every imported name. Records are populated
// during indexing and read-only afterward.
type FileIndex struct {
	Path      string
	Content   []string
	Functions map[string]int
	Imports   map[string]string
}

func newFileIndex(path, content string) *FileIndex {
	return &FileIndex{
		Path:      path,
		Content:   splitLines(content),
		Functions: make(map[string]int),
		Imports:   make(map[string]string),
	}
}

func (fi *FileIndex) localOffset(name string) (int, bool) {
	offset, ok := fi.Functions[name]
	return offset, ok
}

// splitLines splits normalized content into trimmed lines. A single
// trailing newline closes the last line instead of opening an empty one,
// so recorded offsets always land on real lines.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}

	content = strings.TrimSuffix(content, "\n")
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return lines
}

// Lines walks indexed content forward from a function's starting offset,
// one line per Scan call, through the end of the file. It is consumed by
// iteration and cannot be restarted; the zero value yields nothing. A
// lookup that soft-fails returns the empty Lines, so callers range over
// the result the same way on hit and miss.
type Lines struct {
	remaining []string
	current   string
}

func newLines(content []string, offset int) *Lines {
	if offset < 0 || offset > len(content) {
		return &Lines{}
	}
	return &Lines{remaining: content[offset:]}
}

// Scan advances to the next line, reporting false once the sequence is
// exhausted.
func (l *Lines) Scan() bool {
	if len(l.remaining) == 0 {
		return false
	}
	l.current = l.remaining[0]
	l.remaining = l.remaining[1:]
	return true
}

// Text returns the line most recently advanced to by Scan.
func (l *Lines) Text() string {
	return l.current
}

// Take consumes and returns up to n lines, or everything remaining when
// n <= 0.
func (l *Lines) Take(n int) []string {
	var out []string
	for l.Scan() {
		out = append(out, l.Text())
		if n > 0 && len(out) == n {
			break
		}
	}
	return out
}
