package analyzer

import (
	"strings"

	"github.com/FranksOps/newsprobe/internal/gnews"
)

// QueryTerms splits a free-text query into lowercase terms. Quoted phrases
// stay together; excluded terms ("-x") and operators ("site:x") are dropped.
func QueryTerms(query string) []string {
	var (
		terms []string
		seen  = map[string]bool{}
	)
	add := func(t string) {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] || strings.HasPrefix(t, "-") || strings.Contains(t, ":") {
			return
		}
		seen[t] = true
		terms = append(terms, t)
	}

	for i, part := range strings.Split(query, `"`) {
		if i%2 == 1 {
			add(part)
			continue
		}
		for _, f := range strings.Fields(part) {
			add(f)
		}
	}
	return terms
}

// TermCoverage is how one query term shows up across a result list.
type TermCoverage struct {
	Term string `json:"term"`
	// Results counts results whose title or snippet contain the term.
	Results     int `json:"results"`
	Occurrences int `json:"occurrences"`
}

// Coverage summarizes how well a result list matches its query.
type Coverage struct {
	Terms []TermCoverage `json:"terms"`
	// FullMatches counts results that contain every term.
	FullMatches int `json:"full_matches"`
	Total       int `json:"total"`
}

// Relevance is the share of results containing every term, in [0, 1].
func (c Coverage) Relevance() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.FullMatches) / float64(c.Total)
}

// Analyze computes term coverage of results for query.
func Analyze(query string, results []gnews.Result) Coverage {
	terms := QueryTerms(query)
	cov := Coverage{
		Terms: make([]TermCoverage, len(terms)),
		Total: len(results),
	}
	for i, t := range terms {
		cov.Terms[i].Term = t
	}
	if len(terms) == 0 {
		return cov
	}

	for _, r := range results {
		matches := FindTermMatches(r.Title+". "+r.Content, terms)
		for _, m := range matches {
			for i := range cov.Terms {
				if cov.Terms[i].Term == m.Term {
					cov.Terms[i].Results++
					cov.Terms[i].Occurrences += m.Count
				}
			}
		}
		if len(matches) == len(terms) {
			cov.FullMatches++
		}
	}
	return cov
}
