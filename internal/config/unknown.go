package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown settings keys are detected.
const maxLevenshteinDistance = 3

// knownTuningKeys are the valid top-level keys in the tuning file.
var knownTuningKeys = map[string]bool{
	"log_level": true, "graph_base_url": true, "http_timeout": true,
	"page_load_delay": true, "element_wait": true, "redirect_wait": true,
	"browser_path": true, "token_cache": true, "bandwidth_limit": true,
}

// knownTuningKeysList is sorted for deterministic suggestions when two
// candidates have the same edit distance.
var knownTuningKeysList = func() []string {
	keys := make([]string, 0, len(knownTuningKeys))
	for k := range knownTuningKeys {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}()

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns
// an error with "did you mean?" suggestions for each unknown key.
func checkUnknownKeys(md *toml.MetaData) error {
	var errs []error

	for _, key := range md.Undecoded() {
		name := key[0]

		if suggestion := closestMatch(name, knownTuningKeysList); suggestion != "" {
			errs = append(errs, fmt.Errorf("unknown settings key %q, did you mean %q?", name, suggestion))

			continue
		}

		errs = append(errs, fmt.Errorf("unknown settings key %q", name))
	}

	return errors.Join(errs...)
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		d := levenshtein(unknown, k)
		if d < bestDist {
			bestDist = d
			best = k
		}
	}

	if bestDist <= maxLevenshteinDistance {
		return best
	}

	return ""
}

// levenshtein computes the edit distance between two strings.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := range len(a) {
		curr[0] = i + 1

		for j := range len(b) {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = min(prev[j+1]+1, curr[j]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}
