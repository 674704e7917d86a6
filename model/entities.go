package model

import "strings"

// IndexPair is an ordered (from, to) pair of state indices.
type IndexPair struct {
	From, To int
}

// Variable is a named scalar parameter defined by an expression over
// external stimuli and previously declared variables. Repeated names form
// variable sets (see doc.go). Min/Max bound the value during fitting when
// the variable is free (non-const and a pure number).
type Variable struct {
	Name        string
	Value       string
	Description string
	Const       bool
	Min, Max    float64

	repeatIndex int // zero-based position among same-named variables
	repeatCount int // total number of same-named variables
}

// RepeatIndex returns the variable's zero-based position within its name
// group. Valid after Init.
func (v *Variable) RepeatIndex() int { return v.repeatIndex }

// RepeatCount returns the size of the variable's name group. Valid after Init.
func (v *Variable) RepeatCount() int { return v.repeatCount }

// State is one node of a states-only kinetic scheme. Probability is the
// starting-probability expression; Attributes holds "name: expr" pairs;
// Position is purely presentational.
type State struct {
	Name        string
	Probability string
	Attributes  string
	Position    [3]float64

	index int
}

// Index returns the state's declaration-order index. Valid after Init.
func (s *State) Index() int { return s.index }

// Transition is a directed rate edge between two named States.
type Transition struct {
	FromName string
	ToName   string
	Rate     string
	Charge   string

	from, to int // resolved state indices, -1 when unresolved
}

// BinaryElement is a two-configuration sub-unit of a product-space model.
// Probability0 is the starting probability of configuration 0; rates and
// charges are per-direction expressions (0→1 and 1→0).
type BinaryElement struct {
	Name         string
	Probability0 string
	Rate01       string
	Rate10       string
	Charge01     string
	Charge10     string
	Position     [3]float64

	index   int
	pairs01 []IndexPair
	pairs10 []IndexPair
}

// Index returns the element's declaration-order index. Valid after Init.
func (e *BinaryElement) Index() int { return e.index }

// Pairs01 returns the ordered (from,to) state pairs in which this element
// switches 0→1. Valid after Init.
func (e *BinaryElement) Pairs01() []IndexPair { return e.pairs01 }

// Pairs10 returns the ordered (from,to) state pairs in which this element
// switches 1→0. Valid after Init.
func (e *BinaryElement) Pairs10() []IndexPair { return e.pairs10 }

// Interaction couples two BinaryElements: transition rates of one element
// are multiplied by a factor that depends on the other's configuration.
// The pair-set naming follows the "ab" configuration convention with the
// first element's bit written first: e.g. pairs0111 collects transitions
// 01→11 (A switches while B is 1).
type Interaction struct {
	AName    string
	BName    string
	Factor11 string
	FactorA1 string
	Factor1B string

	a, b      int
	pairs1101 []IndexPair
	pairs1110 []IndexPair
	pairs0111 []IndexPair
	pairs1011 []IndexPair
}

// StateGroup names a subset of states and carries attribute expressions
// applied to every member. The States spec is a comma-separated list of
// state names (states-only mode) or of configuration strings over
// {0,1,*} (binary-element mode).
type StateGroup struct {
	Name       string
	Active     bool
	States     string
	Attributes string

	indexes []int
}

// Indexes returns the group's sorted, deduplicated state indices. Valid
// after Init for active groups.
func (g *StateGroup) Indexes() []int { return g.indexes }

// AttrExpr is one parsed "name: expression" attribute pair.
type AttrExpr struct {
	Name string
	Expr string
}

// ParseAttributes splits an "a: expr, b: expr" attribute spec into ordered
// pairs. Malformed fields (no colon, empty name) are skipped; a repeated
// name keeps the last expression.
func ParseAttributes(s string) []AttrExpr {
	var out []AttrExpr
	seen := make(map[string]int)
	for _, field := range strings.Split(s, ",") {
		sub := strings.SplitN(field, ":", 2)
		if len(sub) != 2 {
			continue
		}
		name := strings.TrimSpace(sub[0])
		val := strings.TrimSpace(sub[1])
		if name == "" {
			continue
		}
		if at, ok := seen[name]; ok {
			out[at].Expr = val

			continue
		}
		seen[name] = len(out)
		out = append(out, AttrExpr{Name: name, Expr: val})
	}

	return out
}
