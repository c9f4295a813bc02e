package main

import (
	"sort"

	"github.com/pkg/errors"
)

// RowKind discriminates the statement grid rows.
type RowKind int

const (
	RowHeader RowKind = iota
	RowAccountSummary
	RowTransactionDetail
	RowTotal
	RowBlank
)

// StatementRow is one ordered row of the statement grid. Values holds one
// entry per month column, minor units, aligned with Statement.Months.
type StatementRow struct {
	Kind        RowKind
	Label       string
	AccountID   string
	Date        string
	Description string
	Level       int
	Values      []int64
	Collapsed   bool
}

// Statement is the aggregation output: the ordered month columns and the
// ordered grid. Fully reconstructible from the categorized record set;
// identical input yields identical output.
type Statement struct {
	Months []string // "2006-01", ascending
	Rows   []StatementRow
}

const yearMonth = "2006-01"

type aggregation struct {
	chart   *Chart
	months  []string
	monthIx map[string]int
	sums    map[string]map[string]int64 // account id -> year-month -> minor units
	details map[string][]Txn            // account id -> postings, date order
}

// Aggregate buckets the categorized records by (account, calendar month)
// and emits the statement grid: per section a header, then depth-first
// summary rows with recursive rollups, detail rows under leaf accounts,
// section totals, and a final net row.
func Aggregate(txns []Txn, chart *Chart) (*Statement, error) {
	a := &aggregation{
		chart:   chart,
		monthIx: make(map[string]int),
		sums:    make(map[string]map[string]int64),
		details: make(map[string][]Txn),
	}
	if err := a.bucket(txns); err != nil {
		return nil, err
	}

	st := &Statement{Months: a.months}
	incomeTotal := a.section(st, chart.Income)
	expenseTotal := a.section(st, chart.Expenses)

	net := make([]int64, len(a.months))
	for i := range net {
		// Amounts are signed (income positive, expenses negative), so the
		// income-minus-expenses net is the plain sum of the two totals.
		net[i] = incomeTotal[i] + expenseTotal[i]
	}
	st.Rows = append(st.Rows, StatementRow{Kind: RowTotal, Label: "Net", Values: net})
	return st, nil
}

func (a *aggregation) bucket(txns []Txn) error {
	seen := make(map[string]bool)
	for _, t := range txns {
		if t.Date.IsZero() {
			return &MalformedDateError{Key: t.Key}
		}
		if _, ok := a.chart.ResolveByID(t.AccountID); !ok {
			return errors.Wrapf(errInput, "txn %s posted to unknown account %q", t.Key, t.AccountID)
		}
		ym := t.Date.Format(yearMonth)
		if !seen[ym] {
			seen[ym] = true
			a.months = append(a.months, ym)
		}
		if a.sums[t.AccountID] == nil {
			a.sums[t.AccountID] = make(map[string]int64)
		}
		a.sums[t.AccountID][ym] += t.Amount
		a.details[t.AccountID] = append(a.details[t.AccountID], t)
	}

	// Months with no records anywhere are simply absent as columns.
	sort.Strings(a.months)
	for i, ym := range a.months {
		a.monthIx[ym] = i
	}
	for id := range a.details {
		sort.Sort(byTime(a.details[id]))
	}
	return nil
}

func (a *aggregation) section(st *Statement, root *AccountNode) []int64 {
	st.Rows = append(st.Rows, StatementRow{Kind: RowHeader, Label: root.Name, AccountID: root.ID})
	for _, ch := range root.Children {
		a.emit(st, ch, 1)
	}
	total := a.rollup(root)
	st.Rows = append(st.Rows,
		StatementRow{Kind: RowTotal, Label: "Total " + root.Name, AccountID: root.ID, Values: total},
		StatementRow{Kind: RowBlank})
	return total
}

// emit writes the node's summary row, then its own detail rows if it is a
// leaf, then recurses. A node with children never shows direct postings:
// only leaves receive them.
func (a *aggregation) emit(st *Statement, n *AccountNode, level int) {
	st.Rows = append(st.Rows, StatementRow{
		Kind:      RowAccountSummary,
		Label:     n.Name,
		AccountID: n.ID,
		Level:     level,
		Values:    a.rollup(n),
	})
	if n.Leaf() {
		for _, t := range a.details[n.ID] {
			values := make([]int64, len(a.months))
			values[a.monthIx[t.Date.Format(yearMonth)]] = t.Amount
			st.Rows = append(st.Rows, StatementRow{
				Kind:        RowTransactionDetail,
				Label:       t.Desc(),
				AccountID:   n.ID,
				Date:        t.Date.Format(stamp),
				Description: t.Desc(),
				Level:       level + 1,
				Values:      values,
				Collapsed:   true,
			})
		}
	}
	for _, ch := range n.Children {
		a.emit(st, ch, level+1)
	}
}

// rollup sums the subtree's postings per month column, recursively.
func (a *aggregation) rollup(n *AccountNode) []int64 {
	values := make([]int64, len(a.months))
	var add func(n *AccountNode)
	add = func(n *AccountNode) {
		for ym, sum := range a.sums[n.ID] {
			values[a.monthIx[ym]] += sum
		}
		for _, ch := range n.Children {
			add(ch)
		}
	}
	add(n)
	return values
}
