package main

import (
	"math"
	"sort"
	"strings"

	"github.com/jbrukh/bayesian"
)

const maxHints = 3

// suggester is a tf-idf classifier trained on the already-persisted store
// rows. Its top suggestions ride along in the oracle prompt as hints.
type suggester struct {
	classes []bayesian.Class
	cl      *bayesian.Classifier
	paths   map[string]string // account id -> full path
}

// classifyTerms prepares a description for classification: lowercase, drop
// the card-processor noise characters, split on whitespace.
func classifyTerms(desc string) []string {
	desc = strings.ToLower(desc)
	desc = strings.ReplaceAll(desc, "*", " ")
	return strings.Fields(desc)
}

// newSuggester trains on the given categorized transactions. Returns nil
// when there are fewer than two distinct accounts to learn from; bayesian
// needs at least two classes.
func newSuggester(txns []Txn, chart *Chart) *suggester {
	byAccount := make(map[string][]Txn)
	for _, t := range txns {
		if t.AccountID == "" {
			continue
		}
		byAccount[t.AccountID] = append(byAccount[t.AccountID], t)
	}
	if len(byAccount) < 2 {
		return nil
	}

	s := &suggester{paths: make(map[string]string)}
	ids := make([]string, 0, len(byAccount))
	for id := range byAccount {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		s.classes = append(s.classes, bayesian.Class(id))
		if path, ok := chart.FullPath(id); ok {
			s.paths[id] = path
		}
	}
	s.cl = bayesian.NewClassifierTfIdf(s.classes...)
	for _, id := range ids {
		for _, t := range byAccount[id] {
			if terms := classifyTerms(t.Desc()); len(terms) > 0 {
				s.cl.Learn(terms, bayesian.Class(id))
			}
		}
	}
	s.cl.ConvertTermsFreqToTfIdf()
	return s
}

// hints returns the top suggestions with softmax-normalized confidences.
func (s *suggester) hints(desc string) []Suggestion {
	if s == nil {
		return nil
	}
	terms := classifyTerms(desc)
	if len(terms) == 0 {
		return nil
	}
	scores, _, _ := s.cl.LogScores(terms)

	type pair struct {
		score float64
		pos   int
	}
	pairs := make([]pair, 0, len(scores))
	maxScore := scores[0]
	for pos, score := range scores {
		pairs = append(pairs, pair{score, pos})
		if score > maxScore {
			maxScore = score
		}
	}
	var sumExp float64
	for _, pr := range pairs {
		sumExp += math.Exp(pr.score - maxScore)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].score > pairs[j].score })

	out := make([]Suggestion, 0, maxHints)
	for i := 0; i < len(pairs) && i < maxHints; i++ {
		id := string(s.classes[pairs[i].pos])
		out = append(out, Suggestion{
			AccountID:  id,
			Account:    s.paths[id],
			Confidence: math.Exp(pairs[i].score-maxScore) / sumExp,
		})
	}
	return out
}
