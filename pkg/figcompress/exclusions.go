package figcompress

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/paulschiretz/pgl-figcompress/pkg/plog"
)

// exclusion is a pre-analyzed exclude pattern.
type exclusion struct {
	pattern string
	// dirPrefix is set for patterns like "drafts/" that exclude a whole subtree.
	dirPrefix bool
	// matchBasename is set for patterns without a slash, e.g. "*_draft.png".
	matchBasename bool
}

// exclusionSet holds the exclude patterns of a run.
type exclusionSet struct {
	basenameLiterals map[string]struct{}
	patterns         []exclusion
}

// makeExclusionSet categorizes patterns so plain names are checked with a map lookup.
func makeExclusionSet(patterns []string) exclusionSet {
	set := exclusionSet{basenameLiterals: make(map[string]struct{})}
	for _, p := range patterns {
		p = normalizeExclusionPattern(p)
		if p == "" {
			continue
		}
		switch {
		case strings.HasSuffix(p, "/"):
			set.patterns = append(set.patterns, exclusion{pattern: strings.TrimSuffix(p, "/"), dirPrefix: true})
		case !strings.Contains(p, "/") && !strings.ContainsAny(p, "*?["):
			set.basenameLiterals[p] = struct{}{}
		default:
			set.patterns = append(set.patterns, exclusion{pattern: p, matchBasename: !strings.Contains(p, "/")})
		}
	}
	return set
}

// matches reports whether the slash-separated relative path is excluded.
func (es *exclusionSet) matches(relPath string) bool {
	normalizedPath := normalizeExclusionPattern(relPath)
	normalizedBasename := path.Base(normalizedPath)

	if _, ok := es.basenameLiterals[normalizedBasename]; ok {
		return true
	}

	for _, p := range es.patterns {
		if p.dirPrefix {
			if normalizedPath == p.pattern || strings.HasPrefix(normalizedPath, p.pattern+"/") {
				return true
			}
			continue
		}
		pathToCheck := normalizedPath
		if p.matchBasename {
			pathToCheck = normalizedBasename
		}
		match, err := path.Match(p.pattern, pathToCheck)
		if err != nil {
			plog.Warn("Invalid exclusion pattern", "pattern", p.pattern, "error", err)
			continue
		}
		if match {
			return true
		}
	}
	return false
}

// normalizeExclusionPattern converts a path or pattern into a standardized,
// case-insensitive key format (forward slashes, lowercase).
func normalizeExclusionPattern(p string) string {
	return strings.ToLower(filepath.ToSlash(strings.TrimSpace(p)))
}

// ValidatePattern checks that an exclude pattern is a well-formed glob.
func ValidatePattern(p string) error {
	_, err := path.Match(strings.TrimSuffix(normalizeExclusionPattern(p), "/"), "")
	return err
}
