package jenkins

import (
	"fmt"
	"regexp"
	"strings"

	"ci-deployer/src/apperr"
)

// DefaultPatterns probe the WAR location across the build layouts the
// platform job has used.
var DefaultPatterns = []string{
	`zanata-war/.*/zanata.*\.war`,
	`^.*/zanata-([0-9.]+).*\.war$`,
}

// CompilePatterns compiles patterns in order.
func CompilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid artifact pattern %q: %v", apperr.ErrConfiguration, p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// Match returns every artifact whose relative path contains a match for
// pattern, in the order given.
func Match(artifacts []Artifact, pattern *regexp.Regexp) []Artifact {
	var matched []Artifact
	for _, a := range artifacts {
		if pattern.MatchString(a.RelativePath) {
			matched = append(matched, a)
		}
	}
	return matched
}

// MatchArtifacts tries patterns in order and returns the first non-empty
// match set.
func MatchArtifacts(artifacts []Artifact, patterns []*regexp.Regexp) ([]Artifact, error) {
	for _, p := range patterns {
		if matched := Match(artifacts, p); len(matched) > 0 {
			return matched, nil
		}
	}

	names := make([]string, 0, len(patterns))
	for _, p := range patterns {
		names = append(names, p.String())
	}
	return nil, fmt.Errorf("%w: [%s] among %d artifacts", apperr.ErrNoArtifactMatch, strings.Join(names, ", "), len(artifacts))
}
