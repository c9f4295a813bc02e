package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func trainedSuggester(t *testing.T) *suggester {
	t.Helper()
	mk := func(desc, id string) Txn {
		return Txn{
			Date:      mustDate(t, "2024-03-01"),
			Amount:    -100,
			AccountID: id,
			Extras:    []Field{{Name: "Description", Value: desc}},
		}
	}
	s := newSuggester([]Txn{
		mk("aws cloud hosting invoice", "5430"),
		mk("hetzner hosting bill", "5430"),
		mk("digitalocean hosting", "5430"),
		mk("staples paper and pens", "5310"),
		mk("staples office supplies", "5310"),
	}, defaultChart())
	require.NotNil(t, s)
	return s
}

func TestSuggesterHints(t *testing.T) {
	s := trainedSuggester(t)

	hints := s.hints("AWS*Hosting invoice")
	require.NotEmpty(t, hints)
	require.Equal(t, "5430", hints[0].AccountID)
	require.Equal(t, "Expenses > Technology > Servers and Hosting", hints[0].Account)

	var sum float64
	for _, h := range hints {
		require.GreaterOrEqual(t, h.Confidence, 0.0)
		require.LessOrEqual(t, h.Confidence, 1.0)
		sum += h.Confidence
	}
	require.LessOrEqual(t, sum, 1.0+1e-9)

	require.Equal(t, "5310", s.hints("staples supplies")[0].AccountID)
}

func TestSuggesterNeedsTwoAccounts(t *testing.T) {
	txns := []Txn{{
		Date:      mustDate(t, "2024-03-01"),
		Amount:    -100,
		AccountID: "5430",
		Extras:    []Field{{Name: "Description", Value: "hosting"}},
	}}
	require.Nil(t, newSuggester(txns, defaultChart()))
	require.Nil(t, newSuggester(nil, defaultChart()))

	// A nil suggester simply contributes no hints.
	var s *suggester
	require.Empty(t, s.hints("anything"))
}

func TestSuggesterEmptyDescription(t *testing.T) {
	s := trainedSuggester(t)
	require.Empty(t, s.hints("   "))
}
