package main

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/defkit/jsdef/internal/indexer"
)

const (
	suggestThreshold = 0.7
	suggestLimit     = 3
)

// suggestions ranks the queried file's known names by Jaro-Winkler
// similarity to the missed one and keeps the closest few.
func suggestions(ix *indexer.Indexer, file, name string) []string {
	fi, ok := ix.Lookup(file)
	if !ok {
		return nil
	}

	type scored struct {
		name  string
		score float32
	}
	var candidates []scored

	seen := make(map[string]bool)
	consider := func(candidate string) {
		if candidate == "" || candidate == name || seen[candidate] {
			return
		}
		seen[candidate] = true

		score, err := edlib.StringsSimilarity(name, candidate, edlib.JaroWinkler)
		if err != nil || score < suggestThreshold {
			return
		}
		candidates = append(candidates, scored{name: candidate, score: score})
	}

	for fn := range fi.Functions {
		consider(fn)
	}
	for imp := range fi.Imports {
		consider(imp)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].name < candidates[j].name
	})

	if len(candidates) > suggestLimit {
		candidates = candidates[:suggestLimit]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.name
	}
	return out
}

func formatSuggestions(names []string) string {
	return strings.Join(names, ", ")
}
