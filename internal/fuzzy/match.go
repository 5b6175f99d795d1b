// Package fuzzy scores short phrases against a candidate set with a
// sequence-matcher similarity ratio.
package fuzzy

import "sort"

// DefaultCutoff is the minimum ratio accepted for canned-answer triggers.
const DefaultCutoff = 0.6

type scored struct {
	candidate string
	ratio     float64
}

// Match returns up to maxResults candidates whose ratio against query is at
// least cutoff, best first. Equal ratios keep the candidates' input order.
func Match(query string, candidates []string, cutoff float64, maxResults int) []string {
	if maxResults <= 0 || cutoff < 0 || cutoff > 1 {
		return nil
	}

	hits := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		r := Ratio(c, query)
		if r >= cutoff {
			hits = append(hits, scored{candidate: c, ratio: r})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].ratio > hits[j].ratio
	})
	if len(hits) > maxResults {
		hits = hits[:maxResults]
	}

	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.candidate
	}
	return out
}

// Best returns the single closest candidate at or above cutoff.
func Best(query string, candidates []string, cutoff float64) (string, bool) {
	got := Match(query, candidates, cutoff, 1)
	if len(got) == 0 {
		return "", false
	}
	return got[0], true
}
