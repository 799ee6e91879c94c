package teams

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/jhenk/nhl-dfs-model/pkg/config"
)

// Resolver maps raw team-name strings from provider files onto the canonical
// 32-team set. Pattern rules run first (in configured order, first match
// wins), then every name is transliterated to ASCII and trimmed. A table
// whose names do not land exactly on the canonical set is rejected whole.
type Resolver struct {
	canonical map[string]bool
	rules     []config.MappingRule
	logger    *logrus.Logger
}

// NewResolver builds a resolver for the given canonical set and ordered
// mapping rules. Malformed glob patterns are rejected up front.
func NewResolver(canonicalTeams []string, rules []config.MappingRule, logger *logrus.Logger) (*Resolver, error) {
	canonical := make(map[string]bool, len(canonicalTeams))
	for _, team := range canonicalTeams {
		canonical[team] = true
	}

	for _, rule := range rules {
		if _, err := path.Match(rule.Pattern, ""); err != nil {
			return nil, fmt.Errorf("invalid team name pattern %q: %w", rule.Pattern, err)
		}
	}

	return &Resolver{
		canonical: canonical,
		rules:     rules,
		logger:    logger,
	}, nil
}

// Resolve canonicalizes a full table's worth of raw team names. It returns
// the cleaned names in input order, or an error if any name falls outside
// the canonical set or the distinct count is not exactly the canonical size.
func (r *Resolver) Resolve(rawNames []string) ([]string, error) {
	resolved := make([]string, len(rawNames))

	for i, raw := range rawNames {
		name := raw
		for _, rule := range r.rules {
			matched, _ := path.Match(rule.Pattern, name)
			if matched {
				r.logger.Debugf("Mapped %q to %q via pattern %q", name, rule.Replacement, rule.Pattern)
				name = rule.Replacement
				break
			}
		}
		resolved[i] = normalizeName(name)
	}

	distinct := make(map[string]bool, len(resolved))
	var unknown []string
	for _, name := range resolved {
		distinct[name] = true
		if !r.canonical[name] {
			unknown = append(unknown, name)
		}
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("uncorrectable team names: %s", strings.Join(dedupe(unknown), ", "))
	}
	if len(distinct) != config.CanonicalTeamCount {
		return nil, fmt.Errorf("expected %d unique teams after correction, found %d", config.CanonicalTeamCount, len(distinct))
	}

	return resolved, nil
}

// normalizeName transliterates accented characters to their ASCII base form
// and strips surrounding whitespace.
func normalizeName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	cleaned, _, err := transform.String(t, name)
	if err != nil {
		// Transliteration never fails on valid UTF-8; fall back to the input.
		cleaned = name
	}
	return strings.TrimSpace(cleaned)
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || s != sorted[i-1] {
			out = append(out, s)
		}
	}
	return out
}
