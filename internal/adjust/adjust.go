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

// Package adjust is the adjustment & domain engine (§2 L5, §4.3). It
// selects a tree's plot-design tier, picks the matching stratum
// adjustment factor, and composes the {0,1} domain indicator that a
// user's predicates project onto a row.
package adjust

import "math"

// Tier is one of the three FIA plot-design tiers. Exactly one applies
// to any tree (§8 "Tier exclusivity").
type Tier int

const (
	Micr Tier = iota
	Subp
	Macr
)

func (t Tier) String() string {
	switch t {
	case Micr:
		return "MICR"
	case Subp:
		return "SUBP"
	case Macr:
		return "MACR"
	default:
		return "UNKNOWN"
	}
}

// SelectTier is the single source of truth for tier selection (§4.3):
// duplicating this rule anywhere else in the engine is forbidden.
//
//	tier(DIA, MBP) =
//	  if DIA is null or DIA < 5.0   → MICR
//	  if MBP is null or DIA < MBP   → SUBP
//	  otherwise                     → MACR
//
// dia and mbp being "null" are represented by hasDIA/hasMBP false; a
// caller holding a nullable column from the table layer passes through
// whatever tbl.Frame reports for that cell.
func SelectTier(dia float64, hasDIA bool, mbp float64, hasMBP bool) Tier {
	if !hasDIA || dia < 5.0 {
		return Micr
	}
	if !hasMBP || dia < mbp {
		return Subp
	}
	return Macr
}

// StratumAdjustment is the triple of tier-specific adjustment factors
// carried by one POP_STRATUM row.
type StratumAdjustment struct {
	Micr float64
	Subp float64
	Macr float64
}

// Factor returns the adjustment factor for the named tier.
func (a StratumAdjustment) Factor(t Tier) float64 {
	switch t {
	case Micr:
		return a.Micr
	case Subp:
		return a.Subp
	case Macr:
		return a.Macr
	default:
		return 0
	}
}

// ConditionBasis names which adjustment factor a condition-level row
// uses (§1 "PROP_BASIS ∈ {SUBP, MACR}").
type ConditionBasis int

const (
	BasisSubp ConditionBasis = iota
	BasisMacr
)

// ParseConditionBasis maps the raw PROP_BASIS string to a
// ConditionBasis. ok is false for any value other than "SUBP" or
// "MACR" — an unrecognized basis must not silently fall back to a
// default, since that would misattribute area.
func ParseConditionBasis(propBasis string) (ConditionBasis, bool) {
	switch propBasis {
	case "SUBP":
		return BasisSubp, true
	case "MACR":
		return BasisMacr, true
	default:
		return 0, false
	}
}

func (b ConditionBasis) Factor(a StratumAdjustment) float64 {
	if b == BasisMacr {
		return a.Macr
	}
	return a.Subp
}

// Domain is the composed {0,1} indicator from §4.3: "Domain
// composition". It multiplies the land/area mask that applies to
// every row of a plot's condition against the tree-specific masks that
// apply only to tree-level rows.
type Domain struct {
	LandMask     bool
	AreaDomain   bool
	TreeTypeMask bool // ignored for condition-level rows
	TreeDomain   bool // ignored for condition-level rows
}

// Indicator composes the condition-level domain indicator:
// I = land_mask(c) · area_domain(c).
func (d Domain) Indicator() float64 {
	if d.LandMask && d.AreaDomain {
		return 1
	}
	return 0
}

// TreeIndicator composes the tree-level domain indicator:
// I = land_mask(c) · area_domain(c) · tree_type_mask(t) · tree_domain(t).
func (d Domain) TreeIndicator() float64 {
	if d.LandMask && d.AreaDomain && d.TreeTypeMask && d.TreeDomain {
		return 1
	}
	return 0
}

// TreeExpansion computes e_tree = TPA_UNADJ · ADJ_tier · EXPNS for a
// tree-level row, already multiplied by the row's domain indicator.
func TreeExpansion(tpaUnadj float64, tier Tier, strat StratumAdjustment, expns float64, domain Domain) float64 {
	if math.IsNaN(tpaUnadj) || math.IsNaN(expns) {
		return 0
	}
	return domain.TreeIndicator() * tpaUnadj * strat.Factor(tier) * expns
}

// CondExpansion computes e_cond = CONDPROP_UNADJ · ADJ_basis · EXPNS
// for a condition-level row, already multiplied by the row's domain
// indicator.
func CondExpansion(condpropUnadj float64, basis ConditionBasis, strat StratumAdjustment, expns float64, domain Domain) float64 {
	if math.IsNaN(condpropUnadj) || math.IsNaN(expns) {
		return 0
	}
	return domain.Indicator() * condpropUnadj * basis.Factor(strat) * expns
}
