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

package tbl

import (
	"context"
	"database/sql"
	"fmt"
)

// Kind is the runtime type a Frame column was observed to hold.
type Kind int

const (
	// KindUnknown marks a column every one of whose values was null;
	// it carries no usable type information yet.
	KindUnknown Kind = iota
	KindFloat
	KindString
)

// Column is one column of a Frame: a dense slice of values plus a
// parallel null mask, since FIA tables are full of legitimately
// missing (not zero) values and §4.3's domain composition depends on
// being able to tell the two apart.
type Column struct {
	Kind Kind
	F    []float64
	S    []string
	Null []bool
}

// Frame is the columnar, lazily-materialized row set the join planner
// (L6) produces and every downstream layer (L5, L7, L8, L9) consumes.
// A Frame is built once and collected exactly once (§9 "Lazy
// pipelines"); nothing in this package mutates a Frame's row count
// after construction.
type Frame struct {
	Columns []string
	NRows   int
	cols    map[string]*Column
}

// Float returns the numeric values of column name, or an all-false
// validity result if the column isn't present.
func (f *Frame) Float(name string) ([]float64, []bool, bool) {
	c, ok := f.cols[name]
	if !ok {
		return nil, nil, false
	}
	if c.Kind == KindFloat || c.Kind == KindUnknown {
		if c.F == nil {
			c.F = make([]float64, f.NRows)
		}
		return c.F, c.Null, true
	}
	return nil, nil, false
}

// String returns the string values of column name.
func (f *Frame) String(name string) ([]string, []bool, bool) {
	c, ok := f.cols[name]
	if !ok {
		return nil, nil, false
	}
	if c.Kind == KindString || c.Kind == KindUnknown {
		if c.S == nil {
			c.S = make([]string, f.NRows)
		}
		return c.S, c.Null, true
	}
	return nil, nil, false
}

// HasColumn reports whether name was returned by the query that built
// this Frame.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.cols[name]
	return ok
}

// newFrame allocates an empty Frame over the given column names.
func newFrame(columns []string) *Frame {
	f := &Frame{Columns: append([]string(nil), columns...), cols: make(map[string]*Column, len(columns))}
	for _, c := range columns {
		f.cols[c] = &Column{Kind: KindUnknown}
	}
	return f
}

func (f *Frame) appendNull(name string) {
	c := f.cols[name]
	c.Null = append(c.Null, true)
	switch c.Kind {
	case KindFloat:
		c.F = append(c.F, 0)
	case KindString:
		c.S = append(c.S, "")
	default:
		// Kind still unknown: record the placeholder position in both
		// and resolve lazily once a non-null value in this column
		// commits it to a concrete Kind (see appendValue).
		c.F = append(c.F, 0)
		c.S = append(c.S, "")
	}
}

func (f *Frame) appendValue(name string, v interface{}) error {
	c := f.cols[name]
	switch val := v.(type) {
	case nil:
		f.appendNull(name)
		return nil
	case float64:
		f.commitFloat(c, val)
	case int64:
		f.commitFloat(c, float64(val))
	case int:
		f.commitFloat(c, float64(val))
	case bool:
		if val {
			f.commitFloat(c, 1)
		} else {
			f.commitFloat(c, 0)
		}
	case []byte:
		f.commitString(c, string(val))
	case string:
		f.commitString(c, val)
	default:
		return fmt.Errorf("tbl: column %s: unsupported scan type %T", name, v)
	}
	c.Null = append(c.Null, false)
	return nil
}

func (f *Frame) commitFloat(c *Column, v float64) {
	if c.Kind == KindUnknown {
		c.Kind = KindFloat
		// Back-fill zeros for any nulls recorded before the column's
		// type was known.
		c.F = make([]float64, len(c.Null))
	}
	c.F = append(c.F, v)
}

func (f *Frame) commitString(c *Column, v string) {
	if c.Kind == KindUnknown {
		c.Kind = KindString
		c.S = make([]string, len(c.Null))
	}
	c.S = append(c.S, v)
}

// scanFrame executes a query and materializes its result set into a
// Frame, transposing the driver's row-major Scan into the column-major
// representation the rest of the engine expects.
func scanFrame(ctx context.Context, db *sql.DB, query string, args ...interface{}) (*Frame, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("tbl: query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	f := newFrame(columns)

	raw := make([]interface{}, len(columns))
	ptrs := make([]interface{}, len(columns))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("tbl: scanning row: %w", err)
		}
		for i, name := range columns {
			if err := f.appendValue(name, raw[i]); err != nil {
				return nil, err
			}
		}
		f.NRows++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return f, nil
}

// Query runs an arbitrary SQL query against the Store and returns the
// result as a Frame. Its callers are the join planner (L6) and the
// root package's population-metadata, GRM and area-change loaders.
func (s *Store) Query(ctx context.Context, query string, args ...interface{}) (*Frame, error) {
	return scanFrame(ctx, s.db, query, args...)
}
