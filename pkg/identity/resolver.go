package identity

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"pathmind/pkg/common"
	"pathmind/pkg/logger"
)

// Provider is the external compound index. It returns one record per
// distinct canonical parent matching the query.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]common.CompoundIdentity, error)
}

// Cache stores resolved identities keyed by normalized query text. Writes
// are idempotent upserts; concurrent first-resolution races are safe because
// the value is a pure function of the input (last writer wins).
type Cache interface {
	Get(ctx context.Context, normalizedQuery string) (*common.CompoundIdentity, error)
	Put(ctx context.Context, normalizedQuery string, identity common.CompoundIdentity) error
}

const defaultMaxCandidates = 8

// Match rank classes, most specific first.
const (
	matchExactName = iota
	matchSynonym
	matchSubstring
	matchIndex
)

var matchReasons = map[int]string{
	matchExactName: "exact_name_match",
	matchSynonym:   "synonym_match",
	matchSubstring: "substring_match",
	matchIndex:     "index_match",
}

// Resolver canonicalizes free-text drug queries against the compound index.
// Resolution is a pure lookup plus cache fill; it never guesses between
// multiple canonical parents.
type Resolver struct {
	provider      Provider
	cache         Cache
	maxCandidates int
}

func NewResolver(provider Provider, cache Cache) *Resolver {
	return &Resolver{
		provider:      provider,
		cache:         cache,
		maxCandidates: defaultMaxCandidates,
	}
}

// Normalize folds case and collapses interior whitespace so lookups are
// insensitive to formatting.
func Normalize(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}

// Resolve canonicalizes query. When the index matches a single canonical
// parent the result is resolved; multiple parents yield an ambiguous result
// with a ranked candidate list unless choice names one of them. choice is
// validated against the candidate set, never trusted blindly.
func (r *Resolver) Resolve(ctx context.Context, query string, choice string) (common.Resolution, error) {
	normalized := Normalize(query)
	resolution := common.Resolution{Query: query, Status: common.ResolutionNotFound}
	if normalized == "" {
		return resolution, fmt.Errorf("%w: empty query", common.ErrValidation)
	}

	if choice == "" && r.cache != nil {
		cached, err := r.cache.Get(ctx, normalized)
		if err != nil {
			logger.Warn("[Identity] Resolution cache read failed", "query", normalized, "err", err)
		} else if cached != nil {
			resolution.Status = common.ResolutionResolved
			resolution.Identity = cached
			return resolution, nil
		}
	}

	matches, err := r.provider.Search(ctx, normalized, r.maxCandidates)
	if err != nil {
		if errors.Is(err, common.ErrUpstreamUnavailable) {
			return resolution, err
		}
		return resolution, common.NewUpstreamError("identity", err)
	}
	if len(matches) == 0 {
		return resolution, nil
	}

	ranked := rankCandidates(normalized, matches)
	resolution.Candidates = ranked

	var selected *common.CompoundIdentity
	if choice != "" {
		for i := range matches {
			if matches[i].CanonicalID == choice {
				selected = &matches[i]
				break
			}
		}
		if selected == nil {
			return resolution, fmt.Errorf("%w: resolution choice %q does not match any candidate for %q", common.ErrValidation, choice, query)
		}
	} else if len(matches) == 1 {
		selected = &matches[0]
	} else {
		resolution.Status = common.ResolutionAmbiguous
		return resolution, nil
	}

	resolution.Status = common.ResolutionResolved
	resolution.Identity = selected
	if r.cache != nil {
		if err := r.cache.Put(ctx, normalized, *selected); err != nil {
			logger.Warn("[Identity] Resolution cache write failed", "query", normalized, "err", err)
		}
	}
	return resolution, nil
}

// rankCandidates orders matches by specificity: exact name, then synonym,
// then substring; ties break by ascending canonical id so repeated queries
// rank identically.
func rankCandidates(normalized string, matches []common.CompoundIdentity) []common.ResolutionCandidate {
	type rankedMatch struct {
		class     int
		candidate common.ResolutionCandidate
	}

	ranked := make([]rankedMatch, 0, len(matches))
	for _, match := range matches {
		class := classify(normalized, match)
		ranked = append(ranked, rankedMatch{
			class: class,
			candidate: common.ResolutionCandidate{
				CanonicalID:  match.CanonicalID,
				DisplayName:  match.DisplayName,
				StructureKey: match.StructureKey,
				MatchReasons: []string{matchReasons[class]},
			},
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].class != ranked[j].class {
			return ranked[i].class < ranked[j].class
		}
		return ranked[i].candidate.CanonicalID < ranked[j].candidate.CanonicalID
	})

	out := make([]common.ResolutionCandidate, len(ranked))
	for i, item := range ranked {
		out[i] = item.candidate
	}
	return out
}

func classify(normalized string, identity common.CompoundIdentity) int {
	if Normalize(identity.DisplayName) == normalized {
		return matchExactName
	}
	for _, synonym := range identity.Synonyms {
		if Normalize(synonym) == normalized {
			return matchSynonym
		}
	}
	if strings.Contains(Normalize(identity.DisplayName), normalized) {
		return matchSubstring
	}
	for _, synonym := range identity.Synonyms {
		if strings.Contains(Normalize(synonym), normalized) {
			return matchSubstring
		}
	}
	return matchIndex
}
