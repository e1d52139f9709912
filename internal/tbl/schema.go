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
	"fmt"
	"sort"
	"strings"
)

// RequiredColumns is the exact set of columns (§3-§4) the engine reads
// from each table it depends on. A table missing any of these is a
// SchemaError raised at Open time, never discovered mid-query.
var RequiredColumns = map[string][]string{
	"PLOT": {
		"CN", "PREV_PLT_CN", "STATECD", "INVYR", "MACRO_BREAKPOINT_DIA",
	},
	"COND": {
		"PLT_CN", "CONDID", "CONDPROP_UNADJ", "PROP_BASIS", "COND_STATUS_CD",
		"SITECLCD", "RESERVCD", "FORTYPCD", "OWNGRPCD", "SICOND", "SIBASE",
		"PREV_CONDID",
	},
	"TREE": {
		"CN", "PLT_CN", "CONDID", "STATUSCD", "DIA", "SPCD", "TPA_UNADJ",
		"TREECLCD", "AGENTCD", "VOLCFNET", "VOLCFGRS", "VOLBFNET", "VOLCSNET",
		"DRYBIO_AG", "DRYBIO_BG", "CARBON_AG", "CARBON_BG", "PREV_TRE_CN",
	},
	"POP_EVAL": {
		"CN", "EVALID", "STATECD", "START_INVYR", "END_INVYR", "EVAL_DESCR",
	},
	"POP_EVAL_TYP": {
		"EVAL_CN", "EVAL_TYP",
	},
	"POP_ESTN_UNIT": {
		"CN", "EVAL_CN", "AREA_USED", "P1PNTCNT_EU",
	},
	"POP_STRATUM": {
		"CN", "ESTN_UNIT_CN", "EVALID", "EXPNS", "P1POINTCNT", "P2POINTCNT",
		"ADJ_FACTOR_MICR", "ADJ_FACTOR_SUBP", "ADJ_FACTOR_MACR",
	},
	"POP_PLOT_STRATUM_ASSGN": {
		"STRATUM_CN", "PLT_CN", "EVALID",
	},
	"TREE_GRM_COMPONENT": {
		"TRE_CN", "SUBPTYP_GRM", "COMPONENT", "TPAGROW_UNADJ", "TPAMORT_UNADJ", "TPAREMV_UNADJ",
	},
	"TREE_GRM_BEGIN": {
		"TRE_CN", "DIA", "VOLCFNET", "DRYBIO_AG", "DRYBIO_BG",
	},
	"TREE_GRM_MIDPT": {
		"TRE_CN", "DIA", "VOLCFNET", "DRYBIO_AG", "DRYBIO_BG",
	},
	"SUBP_COND_CHNG_MTRX": {
		"PLT_CN", "PREV_PLT_CN", "CONDID", "PREVCOND", "SUBPTYP_PROP_CHNG",
	},
	"BEGINEND": {
		"ONEORTWO",
	},
}

// validateSchema confirms that every table in RequiredColumns exists
// and carries every required column, failing fast with a SchemaError
// naming the first offending table/column found.
func (s *Store) validateSchema(ctx context.Context) error {
	// Sort table names for deterministic error ordering.
	tables := make([]string, 0, len(RequiredColumns))
	for t := range RequiredColumns {
		tables = append(tables, t)
	}
	sort.Strings(tables)

	for _, table := range tables {
		have, err := s.columns(ctx, table)
		if err != nil {
			return &SchemaError{Table: table, Err: err}
		}
		haveSet := make(map[string]bool, len(have))
		for _, c := range have {
			haveSet[strings.ToUpper(c)] = true
		}
		for _, want := range RequiredColumns[table] {
			if !haveSet[strings.ToUpper(want)] {
				return &SchemaError{Table: table, Column: want, Err: fmt.Errorf("required column missing")}
			}
		}
	}
	return nil
}

// columns returns the column names a table exposes, via a zero-row
// select so it works identically against both backends without
// relying on a backend-specific information-schema dialect.
func (s *Store) columns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s WHERE 1 = 0", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return rows.Columns()
}

// SchemaError reports a missing table or column, discovered at Open
// time rather than at query time (§6.1, §7 tier 2).
type SchemaError struct {
	Table  string
	Column string
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("tbl: schema error on table %s: %v", e.Table, e.Err)
	}
	return fmt.Sprintf("tbl: schema error on table %s column %s: %v", e.Table, e.Column, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }
