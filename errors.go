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

package fiaestimate

import "fmt"

// EvaluationError wraps a failure to resolve a request's evaluation
// set (§4.1 Failure, §6.4): no matching evaluation, or an explicit
// EVALID selection that violates the one-per-(state,type) invariant.
type EvaluationError struct {
	States   []int
	EvalType string
	Err      error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("fiaestimate: evaluation resolution failed for states=%v type=%s: %v", e.States, e.EvalType, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// SchemaError reports a missing table or column in the opened
// database (§6.1, §7 tier 2). It wraps the table layer's own
// tbl.SchemaError rather than duplicating its fields, since the table
// layer is the only place that discovers this condition.
type SchemaError struct {
	Err error
}

func (e *SchemaError) Error() string { return fmt.Sprintf("fiaestimate: %v", e.Err) }
func (e *SchemaError) Unwrap() error { return e.Err }

// FilterParseError reports an unparseable or unvalidated predicate
// string supplied in a Request (tree_domain, area_domain,
// plot_domain), carrying the offending expression (§6.4).
type FilterParseError struct {
	Field string // "tree_domain", "area_domain" or "plot_domain"
	Err   error
}

func (e *FilterParseError) Error() string {
	return fmt.Sprintf("fiaestimate: %s: %v", e.Field, e.Err)
}

func (e *FilterParseError) Unwrap() error { return e.Err }

// InsufficientData reports a group whose domain contained no sampled
// plots at all — distinct from the numeric degeneracies in §7 tier 3
// (which still return a result with nulls). No estimator in this
// package returns it: an EVALID restriction that matches zero PPSA
// rows still yields a result row (a zero total, or a null ratio with
// a warning).
type InsufficientData struct {
	GroupKey string
	Reason   string
}

func (e *InsufficientData) Error() string {
	return fmt.Sprintf("fiaestimate: insufficient data for group %q: %s", e.GroupKey, e.Reason)
}

// NumericError reports a configuration-level numeric problem that
// cannot be resolved into a §7 tier-3 warning because it prevents the
// pipeline from running at all (e.g. a negative P1 point count, which
// is a referential-integrity failure in the population tables, not a
// per-group degeneracy).
type NumericError struct {
	GroupKey    string
	Description string
}

func (e *NumericError) Error() string {
	return fmt.Sprintf("fiaestimate: numeric error for group %q: %s", e.GroupKey, e.Description)
}
