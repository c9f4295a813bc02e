package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func statementTxns(t *testing.T) []Txn {
	t.Helper()
	mk := func(date, desc string, amount int64, id string) Txn {
		extras := []Field{{Name: "Description", Value: desc}}
		d := mustDate(t, date)
		return Txn{
			Key:       deriveKey(d, amount, extras),
			Date:      d,
			Amount:    amount,
			AccountID: id,
			Extras:    extras,
		}
	}
	return []Txn{
		mk("2024-03-01", "march donation drive", 500000, "4100"),
		mk("2024-03-10", "laptop for new hire", -120000, "5410"),
		mk("2024-03-22", "hosting invoice", -5000, "5430"),
		mk("2024-05-04", "spring gala donations", 300000, "4100"),
		mk("2024-05-18", "hosting invoice", -5000, "5430"),
	}
}

func findRow(st *Statement, kind RowKind, accountID string) *StatementRow {
	for i := range st.Rows {
		if st.Rows[i].Kind == kind && st.Rows[i].AccountID == accountID {
			return &st.Rows[i]
		}
	}
	return nil
}

func TestAggregateMonthsAreSortedAndSparse(t *testing.T) {
	st, err := Aggregate(statementTxns(t), defaultChart())
	require.NoError(t, err)

	// April has no postings anywhere, so it gets no column.
	require.Equal(t, []string{"2024-03", "2024-05"}, st.Months)
}

func TestAggregateGroupRollup(t *testing.T) {
	st, err := Aggregate(statementTxns(t), defaultChart())
	require.NoError(t, err)

	tech := findRow(st, RowAccountSummary, "5400")
	require.NotNil(t, tech)
	require.Equal(t, []int64{-125000, -5000}, tech.Values)
	require.Equal(t, 1, tech.Level)

	computers := findRow(st, RowAccountSummary, "5410")
	require.NotNil(t, computers)
	require.Equal(t, []int64{-120000, 0}, computers.Values)
	require.Equal(t, 2, computers.Level)
}

func TestAggregateSectionTotalsAndNet(t *testing.T) {
	st, err := Aggregate(statementTxns(t), defaultChart())
	require.NoError(t, err)

	income := findRow(st, RowTotal, "income")
	require.NotNil(t, income)
	require.Equal(t, "Total Income", income.Label)
	require.Equal(t, []int64{500000, 300000}, income.Values)

	expenses := findRow(st, RowTotal, "expenses")
	require.NotNil(t, expenses)
	require.Equal(t, []int64{-125000, -5000}, expenses.Values)

	last := st.Rows[len(st.Rows)-1]
	require.Equal(t, RowTotal, last.Kind)
	require.Equal(t, "Net", last.Label)
	require.Equal(t, []int64{375000, 295000}, last.Values)
}

func TestAggregateDetailRows(t *testing.T) {
	st, err := Aggregate(statementTxns(t), defaultChart())
	require.NoError(t, err)

	var details []StatementRow
	for _, r := range st.Rows {
		if r.Kind == RowTransactionDetail && r.AccountID == "5430" {
			details = append(details, r)
		}
	}
	require.Len(t, details, 2)
	require.Equal(t, "2024-03-22", details[0].Date)
	require.Equal(t, "2024-05-18", details[1].Date)
	for _, r := range details {
		require.True(t, r.Collapsed)
		require.Equal(t, "hosting invoice", r.Description)
	}
	// A detail posts into exactly its own month column.
	require.Equal(t, []int64{-5000, 0}, details[0].Values)
	require.Equal(t, []int64{0, -5000}, details[1].Values)
}

func TestAggregateRowOrder(t *testing.T) {
	st, err := Aggregate(statementTxns(t), defaultChart())
	require.NoError(t, err)

	require.Equal(t, RowHeader, st.Rows[0].Kind)
	require.Equal(t, "Income", st.Rows[0].Label)

	expensesAt := -1
	for i, r := range st.Rows {
		if r.Kind == RowHeader && r.Label == "Expenses" {
			expensesAt = i
		}
	}
	require.Greater(t, expensesAt, 0)
	// The income section is fully emitted, totaled and separated before the
	// expenses header.
	require.Equal(t, RowBlank, st.Rows[expensesAt-1].Kind)
	require.Equal(t, "Total Income", st.Rows[expensesAt-2].Label)
}

func TestAggregateDeterministic(t *testing.T) {
	a, err := Aggregate(statementTxns(t), defaultChart())
	require.NoError(t, err)
	b, err := Aggregate(statementTxns(t), defaultChart())
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestAggregateRejectsBadRecords(t *testing.T) {
	chart := defaultChart()

	_, err := Aggregate([]Txn{{Key: "k1", AccountID: "4100"}}, chart)
	require.Error(t, err)
	var mde *MalformedDateError
	require.ErrorAs(t, err, &mde)

	_, err = Aggregate([]Txn{{
		Key:       "k2",
		Date:      mustDate(t, "2024-03-01"),
		AccountID: "0000",
	}}, chart)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown account")
}

func TestAggregateEmpty(t *testing.T) {
	st, err := Aggregate(nil, defaultChart())
	require.NoError(t, err)
	require.Empty(t, st.Months)

	net := st.Rows[len(st.Rows)-1]
	require.Equal(t, "Net", net.Label)
	require.Empty(t, net.Values)
}
