package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

const pathSep = " > "

// AccountNode is one entry in the chart of accounts. The tree is built once
// at startup and never mutated.
type AccountNode struct {
	ID       string         `yaml:"id"`
	Name     string         `yaml:"name"`
	Children []*AccountNode `yaml:"children,omitempty"`
}

func (n *AccountNode) Leaf() bool { return len(n.Children) == 0 }

// Chart is the immutable forest of account nodes, rooted at income and
// expenses. Lookups go through an index built by a single pre-order walk
// that carries the ancestor names down, so FullPath never has to reconstruct
// parentage after the fact.
type Chart struct {
	Income   *AccountNode
	Expenses *AccountNode

	byID map[string]chartEntry
}

type chartEntry struct {
	node *AccountNode
	path []string // ancestor names from root to node, inclusive
}

// NewChart indexes the forest. A duplicate id anywhere across both roots is
// an integrity fault, not a silent first-match pick.
func NewChart(income, expenses *AccountNode) (*Chart, error) {
	c := &Chart{
		Income:   income,
		Expenses: expenses,
		byID:     make(map[string]chartEntry),
	}
	for _, root := range []*AccountNode{income, expenses} {
		if root == nil {
			return nil, errors.New("chart requires both income and expenses roots")
		}
		if err := c.index(root, nil); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Chart) index(n *AccountNode, ancestors []string) error {
	if n.ID == "" || n.Name == "" {
		return errors.Errorf("chart node missing id or name: %+v", n)
	}
	if _, dup := c.byID[n.ID]; dup {
		return errors.Errorf("duplicate account id %q in chart", n.ID)
	}
	path := append(append([]string{}, ancestors...), n.Name)
	c.byID[n.ID] = chartEntry{node: n, path: path}
	for _, ch := range n.Children {
		if err := c.index(ch, path); err != nil {
			return err
		}
	}
	return nil
}

func (c *Chart) Roots() []*AccountNode { return []*AccountNode{c.Income, c.Expenses} }

// ResolveByID finds the node with the given id, or reports not-found.
func (c *Chart) ResolveByID(id string) (*AccountNode, bool) {
	e, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return e.node, true
}

// PathNames returns the ancestor names from root to the node, inclusive.
func (c *Chart) PathNames(id string) ([]string, bool) {
	e, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return append([]string{}, e.path...), true
}

// FullPath joins PathNames with the standard separator.
func (c *Chart) FullPath(id string) (string, bool) {
	names, ok := c.PathNames(id)
	if !ok {
		return "", false
	}
	return strings.Join(names, pathSep), true
}

// Outline renders the chart as a readable, indented listing for the oracle
// prompt. Leaf nodes are marked since only they may receive postings.
func (c *Chart) Outline() string {
	var b strings.Builder
	for _, root := range c.Roots() {
		writeOutline(&b, root, 0)
	}
	return b.String()
}

func writeOutline(b *strings.Builder, n *AccountNode, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	if n.Leaf() {
		fmt.Fprintf(b, "- %s %s\n", n.ID, n.Name)
	} else {
		fmt.Fprintf(b, "- %s %s (group, not assignable)\n", n.ID, n.Name)
	}
	for _, ch := range n.Children {
		writeOutline(b, ch, depth+1)
	}
}

// chartFile is the YAML shape of an external chart of accounts.
type chartFile struct {
	Income   *AccountNode `yaml:"income"`
	Expenses *AccountNode `yaml:"expenses"`
}

// LoadChart reads a chart from a YAML file.
func LoadChart(path string) (*Chart, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read chart file %s", path)
	}
	var cf chartFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, errors.Wrapf(err, "unable to parse chart file %s", path)
	}
	return NewChart(cf.Income, cf.Expenses)
}

// defaultChart is the built-in chart used when no -chart file is given.
func defaultChart() *Chart {
	income := &AccountNode{ID: "income", Name: "Income", Children: []*AccountNode{
		{ID: "4100", Name: "Donations"},
		{ID: "4200", Name: "Grants"},
		{ID: "4300", Name: "Program Service Fees"},
		{ID: "4900", Name: "Other Income"},
	}}
	expenses := &AccountNode{ID: "expenses", Name: "Expenses", Children: []*AccountNode{
		{ID: "5100", Name: "Personnel Expenses", Children: []*AccountNode{
			{ID: "5110", Name: "Salaries and Wages"},
			{ID: "5120", Name: "Payroll Taxes"},
			{ID: "5130", Name: "Employee Benefits"},
		}},
		{ID: "5200", Name: "Facilities", Children: []*AccountNode{
			{ID: "5210", Name: "Rent"},
			{ID: "5220", Name: "Utilities"},
		}},
		{ID: "5300", Name: "Office and Administration", Children: []*AccountNode{
			{ID: "5310", Name: "Office Supplies"},
			{ID: "5320", Name: "Insurance"},
			{ID: "5330", Name: "Professional Fees"},
		}},
		{ID: "5400", Name: "Technology", Children: []*AccountNode{
			{ID: "5410", Name: "Staff Computers"},
			{ID: "5420", Name: "Software Subscriptions"},
			{ID: "5430", Name: "Servers and Hosting"},
		}},
		{ID: "5500", Name: "Travel and Meetings", Children: []*AccountNode{
			{ID: "5510", Name: "Transportation"},
			{ID: "5520", Name: "Lodging"},
			{ID: "5530", Name: "Meals"},
		}},
		{ID: "5900", Name: "Other Expenses"},
	}}
	chart, err := NewChart(income, expenses)
	checkf(err, "Unable to build default chart")
	return chart
}
