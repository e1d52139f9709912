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

// Package evalid is the evaluation resolver (§2 L3): it selects the
// statistically valid set of (state, EVALID, type) triples a request
// should be computed against.
package evalid

import (
	"fmt"
	"sort"
)

// EvalType is the closed set of evaluation-purpose tags a POP_EVAL row
// carries via POP_EVAL_TYP (§3.1).
type EvalType string

const (
	Area      EvalType = "EXPCURR"
	Volume    EvalType = "EXPVOL"
	Growth    EvalType = "EXPGROW"
	Removal   EvalType = "EXPREMV"
	Mortality EvalType = "EXPMORT"
	Change    EvalType = "EXPCHNG"
	All       EvalType = "ALL"
)

// Row is one (state, EVALID, type) fact drawn from a POP_EVAL x
// POP_EVAL_TYP join. Building this join is the caller's job (it goes
// through the table access layer, L2); Resolve itself is a pure
// function over the facts so that its partition/tie-break logic can
// be tested without a database.
type Row struct {
	State      int
	EVALID     int
	Type       EvalType
	StartInvYr int
	EndInvYr   int
}

// Evaluation is one member of a resolved EvaluationSet.
type Evaluation struct {
	State      int
	EVALID     int
	Type       EvalType
	StartInvYr int
	EndInvYr   int
}

// EvaluationSet is the result of a successful Resolve: a set of
// evaluations with no two sharing a (state, type) key (§4.1 Failure).
type EvaluationSet struct {
	Evaluations []Evaluation
}

// EVALIDs returns the plain EVALID numbers in the set, in a stable
// order, for use as SQL IN-list parameters downstream.
func (s *EvaluationSet) EVALIDs() []int {
	out := make([]int, len(s.Evaluations))
	for i, e := range s.Evaluations {
		out[i] = e.EVALID
	}
	return out
}

// kind tags which selector variant a Selector holds.
type kind int

const (
	kindMostRecent kind = iota
	kindYear
	kindExplicit
)

// Selector chooses among the evaluations available for a (state,
// type) pair. Construct one with MostRecentSelector, YearSelector, or
// ExplicitSelector — Selector has no exported fields because the
// zero value (an uninitialized "most recent... of nothing") is not a
// meaningful selector.
type Selector struct {
	kind    kind
	year    int
	evalids []int
}

// MostRecentSelector selects, per (state, type), the evaluation with
// the maximum END_INVYR, breaking ties by maximum EVALID.
func MostRecentSelector() Selector { return Selector{kind: kindMostRecent} }

// YearSelector selects the evaluation whose END_INVYR equals year.
func YearSelector(year int) Selector { return Selector{kind: kindYear, year: year} }

// ExplicitSelector selects exactly the given EVALIDs, still subject to
// the one-per-(state,type) invariant (§C.5): explicit selection is
// not implicitly trusted to be internally consistent.
func ExplicitSelector(evalids ...int) Selector {
	return Selector{kind: kindExplicit, evalids: append([]int(nil), evalids...)}
}

// NoMatchingEvaluation is returned when a selector resolves to the
// empty set.
type NoMatchingEvaluation struct {
	States   []int
	EvalType EvalType
}

func (e *NoMatchingEvaluation) Error() string {
	return fmt.Sprintf("evalid: no evaluation matches states=%v type=%s", e.States, e.EvalType)
}

// InconsistentEvaluation is returned when the resolved set contains
// two evaluations sharing a (state, type) key.
type InconsistentEvaluation struct {
	State int
	Type  EvalType
	A, B  int // the two conflicting EVALIDs
}

func (e *InconsistentEvaluation) Error() string {
	return fmt.Sprintf("evalid: state %d type %s has two evaluations in the same resolution: %d and %d", e.State, e.Type, e.A, e.B)
}

// Resolve selects the evaluations satisfying (states, evalType, sel)
// from the available rows.
func Resolve(rows []Row, states []int, evalType EvalType, sel Selector) (*EvaluationSet, error) {
	wantStates := make(map[int]bool, len(states))
	for _, s := range states {
		wantStates[s] = true
	}

	filtered := make([]Row, 0, len(rows))
	for _, r := range rows {
		if len(wantStates) > 0 && !wantStates[r.State] {
			continue
		}
		if evalType != All && r.Type != evalType {
			continue
		}
		filtered = append(filtered, r)
	}

	var chosen []Row
	switch sel.kind {
	case kindMostRecent:
		chosen = mostRecent(filtered)
	case kindYear:
		for _, r := range filtered {
			if r.EndInvYr == sel.year {
				chosen = append(chosen, r)
			}
		}
	case kindExplicit:
		want := make(map[int]bool, len(sel.evalids))
		for _, id := range sel.evalids {
			want[id] = true
		}
		for _, r := range filtered {
			if want[r.EVALID] {
				chosen = append(chosen, r)
			}
		}
	}

	if len(chosen) == 0 {
		return nil, &NoMatchingEvaluation{States: states, EvalType: evalType}
	}

	if err := checkConsistent(chosen); err != nil {
		return nil, err
	}

	set := &EvaluationSet{Evaluations: make([]Evaluation, len(chosen))}
	for i, r := range chosen {
		set.Evaluations[i] = Evaluation{
			State: r.State, EVALID: r.EVALID, Type: r.Type,
			StartInvYr: r.StartInvYr, EndInvYr: r.EndInvYr,
		}
	}
	return set, nil
}

// mostRecent partitions by (state, type) and keeps, within each
// partition, the row with the maximum EndInvYr, tie-broken by the
// maximum EVALID (§4.1 Algorithm).
func mostRecent(rows []Row) []Row {
	type key struct {
		state int
		typ   EvalType
	}
	best := map[key]Row{}
	for _, r := range rows {
		k := key{r.State, r.Type}
		b, ok := best[k]
		if !ok || r.EndInvYr > b.EndInvYr || (r.EndInvYr == b.EndInvYr && r.EVALID > b.EVALID) {
			best[k] = r
		}
	}
	out := make([]Row, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	// best is keyed by a struct and ranged in Go's randomized map
	// order; sort by (state, type) so EVALIDs()/String() are
	// deterministic across runs for multi-state composition.
	sort.Slice(out, func(i, j int) bool {
		if out[i].State != out[j].State {
			return out[i].State < out[j].State
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// checkConsistent verifies no two rows share a (state, type) key.
func checkConsistent(rows []Row) error {
	type key struct {
		state int
		typ   EvalType
	}
	seen := map[key]int{}
	for _, r := range rows {
		k := key{r.State, r.Type}
		if other, ok := seen[k]; ok && other != r.EVALID {
			return &InconsistentEvaluation{State: r.State, Type: r.Type, A: other, B: r.EVALID}
		}
		seen[k] = r.EVALID
	}
	return nil
}
