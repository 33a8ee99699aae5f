package fuzzy

import (
	"fmt"
	"sort"
	"strings"

	"stopover-food/internal/apperr"
	"stopover-food/internal/romaji"

	"github.com/agnivade/levenshtein"
)

const DefaultLimit = 3

// Candidate is a name offered as a suggestion together with the romanized
// form used for edit-distance ranking.
type Candidate struct {
	Display   string
	Romanized string
}

type Matcher struct {
	romanizer romaji.Romanizer
}

func NewMatcher(r romaji.Romanizer) *Matcher {
	return &Matcher{romanizer: r}
}

// Suggest returns up to limit candidate display names close to query.
// Candidates whose display name contains query win outright, in candidate
// order. Otherwise candidates are ranked by Levenshtein distance between
// the first romanized token of query and each candidate's romanized form;
// ties keep candidate order.
func (m *Matcher) Suggest(query string, candidates []Candidate, limit int) ([]string, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("suggest %q: no candidates: %w", query, apperr.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	if query != "" {
		var hits []string
		for _, c := range candidates {
			if strings.Contains(c.Display, query) {
				hits = append(hits, c.Display)
				if len(hits) == limit {
					break
				}
			}
		}
		if len(hits) > 0 {
			return hits, nil
		}
	}

	tokens, err := m.romanizer.Romanize(query)
	if err != nil {
		return nil, fmt.Errorf("romanize %q: %w: %w", query, apperr.ErrUpstreamUnavailable, err)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("romanize %q: no tokens: %w", query, apperr.ErrUpstreamUnavailable)
	}
	key := tokens[0]

	type ranked struct {
		display string
		dist    int
	}
	all := make([]ranked, len(candidates))
	for i, c := range candidates {
		all[i] = ranked{display: c.Display, dist: levenshtein.ComputeDistance(key, c.Romanized)}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].dist < all[j].dist })

	if limit > len(all) {
		limit = len(all)
	}
	out := make([]string, 0, limit)
	for _, r := range all[:limit] {
		out = append(out, r.display)
	}
	return out, nil
}
