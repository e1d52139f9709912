/*
Copyright © 2024 the fiaestimate authors.
This file is part of fiaestimate.

fiaestimate is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

fiaestimate is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with fiaestimate.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package filter is the filter compiler (§2 L4). It parses the three
// user-supplied predicate strings (tree_domain, area_domain,
// plot_domain) into a validated, column-typed boolean expression.
//
// The dynamic predicate surface is, per spec.md §9, the one place
// where dynamism is intrinsic to the contract. Rather than evaluate
// user strings with a general-purpose host-language evaluator, this
// package translates the small SQL-like mini-language into
// github.com/Knetic/govaluate's grammar (the expression engine the
// teacher already uses for its own dynamic output-variable language
// in io.go) and gates every expression behind a validation pass that
// diffs its referenced identifiers against a static column catalog
// before a single row is ever evaluated. An expression referencing an
// unknown column never reaches Evaluate.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Knetic/govaluate"
)

// Entity names which of TREE, COND, or PLOT a predicate's identifiers
// are validated against.
type Entity int

const (
	TreeEntity Entity = iota
	CondEntity
	PlotEntity
)

func (e Entity) String() string {
	switch e {
	case TreeEntity:
		return "TREE"
	case CondEntity:
		return "COND"
	case PlotEntity:
		return "PLOT"
	default:
		return "UNKNOWN"
	}
}

// Columns is the static, validated catalog of identifiers a predicate
// against each entity may reference. It intentionally does not
// include every column in tbl.RequiredColumns — only the ones a user
// predicate may reasonably filter on; this is narrower by design.
var Columns = map[Entity]map[string]bool{
	TreeEntity: set("STATUSCD", "DIA", "SPCD", "TPA_UNADJ", "TREECLCD", "AGENTCD",
		"VOLCFNET", "VOLCFGRS", "VOLBFNET", "VOLCSNET", "DRYBIO_AG", "DRYBIO_BG",
		"CARBON_AG", "CARBON_BG", "CONDID"),
	CondEntity: set("COND_STATUS_CD", "SITECLCD", "RESERVCD", "FORTYPCD",
		"OWNGRPCD", "CONDPROP_UNADJ", "SICOND", "SIBASE", "CONDID"),
	PlotEntity: set("STATECD", "INVYR", "MACRO_BREAKPOINT_DIA"),
}

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// Expr is a compiled, validated predicate ready for row-by-row
// evaluation.
type Expr struct {
	Source   string
	Entity   Entity
	Deps     []string // validated column dependencies, feeds projection pushdown (§4.2 "Result")
	compiled *govaluate.EvaluableExpression
}

var (
	reWord      = regexp.MustCompile(`(?i)\bAND\b`)
	reOr        = regexp.MustCompile(`(?i)\bOR\b`)
	reNot       = regexp.MustCompile(`(?i)\bNOT\b`)
	reIsNotNull = regexp.MustCompile(`(?i)(\w+)\s+IS\s+NOT\s+NULL`)
	reIsNull    = regexp.MustCompile(`(?i)(\w+)\s+IS\s+NULL`)
	reNotIn     = regexp.MustCompile(`(?i)(\w+)\s+NOT\s+IN\s*\(([^)]*)\)`)
	reIn        = regexp.MustCompile(`(?i)(\w+)\s+IN\s*\(([^)]*)\)`)
)

// translate rewrites the SQL-like mini-language (§4.2) into
// govaluate's grammar: word operators become symbolic ones, null
// checks become calls to the isnull() function registered in Eval,
// and `COL IN (a, b, c)` becomes a call to the among() function
// (govaluate has no native membership operator). `COL NOT IN (...)`
// is rewritten before the bare IN/NOT passes run — otherwise reIn
// would match just the trailing "IN (...)" and leave a dangling NOT
// that reNot then turns into a stray "!", producing an expression
// govaluate can't parse.
func translate(source string) string {
	s := reIsNotNull.ReplaceAllString(source, "(!isnull($1))")
	s = reIsNull.ReplaceAllString(s, "isnull($1)")
	s = reNotIn.ReplaceAllString(s, "(!among($1, $2))")
	s = reIn.ReplaceAllString(s, "among($1, $2)")
	s = reNot.ReplaceAllString(s, "!")
	s = reWord.ReplaceAllString(s, "&&")
	s = reOr.ReplaceAllString(s, "||")
	return s
}

// UnknownColumn is returned when a predicate references an identifier
// outside the entity's validated catalog.
type UnknownColumn struct {
	Source string
	Entity Entity
	Column string
}

func (e *UnknownColumn) Error() string {
	return fmt.Sprintf("filter: %q references unknown %s column %q", e.Source, e.Entity, e.Column)
}

// ParseError wraps a govaluate parse failure with the offending
// expression text (§6.4).
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string { return fmt.Sprintf("filter: parse error in %q: %v", e.Source, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// Compile parses and validates source against entity's column
// catalog. An empty source compiles to a nil *Expr, which Eval
// (below) treats as an always-true predicate (no additional
// restriction), matching §4.2 "All: no additional restriction".
func Compile(source string, entity Entity) (*Expr, error) {
	if strings.TrimSpace(source) == "" {
		return nil, nil
	}
	translated := translate(source)
	compiled, err := govaluate.NewEvaluableExpressionWithFunctions(translated, builtinFuncs)
	if err != nil {
		return nil, &ParseError{Source: source, Err: err}
	}
	catalog := Columns[entity]
	deps := make([]string, 0, 4)
	for _, v := range compiled.Vars() {
		if !catalog[v] {
			return nil, &UnknownColumn{Source: source, Entity: entity, Column: v}
		}
		deps = append(deps, v)
	}
	return &Expr{Source: source, Entity: entity, Deps: deps, compiled: compiled}, nil
}

var builtinFuncs = map[string]govaluate.ExpressionFunction{
	"isnull": func(args ...interface{}) (interface{}, error) {
		// govaluate calls a function with no arguments at all when its
		// single argument evaluates to nil, so an empty call is a null.
		if len(args) == 0 {
			return true, nil
		}
		if len(args) != 1 {
			return nil, fmt.Errorf("isnull takes exactly one argument")
		}
		return args[0] == nil, nil
	},
	"among": func(args ...interface{}) (interface{}, error) {
		if len(args) < 1 {
			return nil, fmt.Errorf("among takes a value and at least one candidate")
		}
		v := args[0]
		if v == nil {
			return false, nil
		}
		for _, c := range args[1:] {
			if c == v {
				return true, nil
			}
			// govaluate parses bare numeric literals as float64; accept
			// an int column value matching a float64 literal candidate.
			if vf, ok := toFloat(v); ok {
				if cf, ok := toFloat(c); ok && vf == cf {
					return true, nil
				}
			}
		}
		return false, nil
	},
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Eval evaluates a (possibly nil) expression against one row's
// parameter values. A nil Expr (an empty predicate) is always true.
//
// A predicate is free to test nullity directly with IS NULL / IS NOT
// NULL (translated to isnull(), which answers a null operand
// directly). Any other operator applied to a null
// dependent — e.g. a direct comparison like DIA < 5.0 when DIA is
// null — is rejected by govaluate as a type mismatch; that rejection
// is exactly §4.3's "nulls in the source predicate bind to 0
// (conservative)", so it is caught here and turned into a false
// result rather than a propagated error.
func (e *Expr) Eval(row map[string]interface{}) (bool, error) {
	if e == nil {
		return true, nil
	}
	result, err := e.compiled.Evaluate(row)
	if err != nil {
		return false, nil
	}
	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("filter: %q did not evaluate to a boolean (got %T)", e.Source, result)
	}
	return b, nil
}
