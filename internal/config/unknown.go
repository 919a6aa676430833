package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown config keys are detected.
const maxLevenshteinDistance = 3

// knownKeys lists the valid keys of each section.
var knownKeys = map[string][]string{
	"credentials": {"password", "username"},
	"service":     {"connect_url", "sso_url"},
	"network":     {"timeout", "user_agent"},
	"upload":      {"duplicate_code", "mutation_style", "skip_existing", "throttle_interval"},
	"logging":     {"log_format", "log_level"},
	"history":     {"enabled", "path"},
}

// knownSections is the sorted list of section names for Levenshtein matching.
var knownSections = func() []string {
	keys := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}()

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns
// an error with "did you mean?" suggestions for each unknown key.
func checkUnknownKeys(md *toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}

	var errs []error

	for _, key := range undecoded {
		if err := unknownKeyError(md, key); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func unknownKeyError(md *toml.MetaData, key toml.Key) error {
	if len(key) == 0 {
		return nil
	}

	section := key[0]

	fields, ok := knownKeys[section]
	if !ok {
		// Keys inside an unknown section are covered by the section's error.
		if len(key) > 1 {
			return nil
		}

		if md.Type(section) == "Hash" {
			return suggest(fmt.Sprintf("unknown config section %q", section), section, knownSections)
		}

		// A flat top-level key most likely belongs in a section.
		for _, name := range knownSections {
			for _, f := range knownKeys[name] {
				if f == section {
					return fmt.Errorf("config key %q must be inside the [%s] section", section, name)
				}
			}
		}

		return suggest(fmt.Sprintf("unknown config key %q", section), section, knownSections)
	}

	if len(key) < 2 {
		return fmt.Errorf("config key %q must be a section", section)
	}

	return suggest(fmt.Sprintf("unknown config key %q in [%s]", key[1], section), key[1], fields)
}

func suggest(msg, unknown string, known []string) error {
	if s := closestMatch(unknown, known); s != "" {
		return fmt.Errorf("%s; did you mean %q?", msg, s)
	}

	return errors.New(msg)
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		d := levenshtein(strings.ToLower(unknown), k)
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

	// Single-row optimization instead of a full matrix.
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

			curr[j+1] = min(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}
