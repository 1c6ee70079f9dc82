// Package matching resolves free-text partner preferences to participants.
package matching

import (
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"github.com/okian/cohort/internal/domain/model"
)

const (
	defaultThreshold = 0.5
	defaultNgramSize = 2
	scoreEpsilon     = 1e-9
)

// Resolver maps a typed name to at most one participant of pool.
// Low-confidence and ambiguous inputs resolve to no participant.
type Resolver interface {
	Resolve(name string, pool []model.Participant) (model.Participant, bool)
}

// FuzzyResolver scores candidates by Levenshtein similarity on normalised
// names. Candidates sharing no bigram with the input are skipped before the
// edit distance is computed.
type FuzzyResolver struct {
	threshold   float64
	levenshtein *metrics.Levenshtein
	dice        *metrics.SorensenDice
}

// NewFuzzyResolver creates a resolver with options applied.
func NewFuzzyResolver(opts ...Option) *FuzzyResolver {
	lev := metrics.NewLevenshtein()
	lev.CaseSensitive = false

	dice := metrics.NewSorensenDice()
	dice.CaseSensitive = false
	dice.NgramSize = defaultNgramSize

	r := &FuzzyResolver{
		threshold:   defaultThreshold,
		levenshtein: lev,
		dice:        dice,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Threshold returns the minimum score (exclusive) a match needs.
func (r *FuzzyResolver) Threshold() float64 { return r.threshold }

// Resolve returns the best scoring participant of pool whose score is
// strictly above the threshold. When two distinct participants share the
// best score the input is ambiguous and nothing is returned.
func (r *FuzzyResolver) Resolve(name string, pool []model.Participant) (model.Participant, bool) {
	query := normalize(name)
	if query == "" {
		return model.Participant{}, false
	}

	best, bestScore, ambiguous := -1, 0.0, false
	for i := range pool {
		score := r.score(query, pool[i])
		switch {
		case score > bestScore+scoreEpsilon:
			best, bestScore, ambiguous = i, score, false
		case best >= 0 && score > bestScore-scoreEpsilon && pool[i].ID != pool[best].ID:
			ambiguous = true
		}
	}
	if best < 0 || ambiguous || bestScore <= r.threshold {
		return model.Participant{}, false
	}
	return pool[best], true
}

func (r *FuzzyResolver) score(query string, p model.Participant) float64 {
	best := 0.0
	for _, candidate := range candidates(p) {
		if strutil.Similarity(query, candidate, r.dice) == 0 {
			continue
		}
		if s := strutil.Similarity(query, candidate, r.levenshtein); s > best {
			best = s
		}
	}
	return best
}

// candidates lists the spellings a participant may be referred to by.
func candidates(p model.Participant) []string {
	out := make([]string, 0, 3)
	if full := normalize(p.FirstName + " " + p.LastName); full != "" {
		out = append(out, full)
	}
	if reversed := normalize(p.LastName + " " + p.FirstName); reversed != "" && len(out) > 0 && reversed != out[0] {
		out = append(out, reversed)
	}
	if at := strings.IndexByte(p.Email, '@'); at > 0 {
		local := strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(p.Email[:at])
		if n := normalize(local); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Partners resolves every partner preference slot of who against pool.
// who itself is never a match. Unset slots are omitted.
func Partners(r Resolver, who model.Participant, pool []model.Participant) []model.PartnerMatch {
	others := make([]model.Participant, 0, len(pool))
	for _, p := range pool {
		if p.ID != who.ID {
			others = append(others, p)
		}
	}

	var out []model.PartnerMatch
	for slot, raw := range who.PartnerPrefs {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		m := model.PartnerMatch{Slot: slot, Raw: raw}
		if p, ok := r.Resolve(raw, others); ok {
			m.MatchedID = p.ID
		}
		out = append(out, m)
	}
	return out
}
