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

// Package estimate is the ratio-of-means estimator (§2 L8, §4.4): the
// post-stratified estimator of Bechtold & Patterson (2005). It takes
// already-expanded per-plot-condition contributions and aggregates
// them through the plot → stratum → estimation-unit → population
// hierarchy, producing a point estimate, variance, and the derived
// reporting quantities.
package estimate

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Observation is one already-expanded row: a condition or tree
// contribution to the numerator/denominator of a ratio estimator,
// still tagged with its plot and stratum. The join/adjust/value layers
// produce these; this package never looks upstream of them.
type Observation struct {
	PlotCN    string
	StratumCN string
	YNum      float64
	YDen      float64
}

// StratumMeta is the population metadata for one stratum, independent
// of any particular request (§3.1 "Stratum").
type StratumMeta struct {
	CN         string
	EstnUnitCN string
	P1Count    float64
}

// EstnUnitMeta is the population metadata for one estimation unit
// (§3.1 "Estimation unit").
type EstnUnitMeta struct {
	CN       string
	AreaUsed float64
}

// plotTotal is the per-plot sum of an observation's contributions
// (§4.4 "Per-plot aggregation"): "A plot contributing nothing to the
// domain yields zero; it still counts toward n_h" — callers must
// include a zero-valued Observation for every assigned plot, not only
// the ones with a non-zero domain indicator.
type plotTotal struct {
	plotCN    string
	stratumCN string
	y, x      float64
}

func aggregatePlots(obs []Observation) []plotTotal {
	order := make([]string, 0)
	byPlot := make(map[string]*plotTotal)
	for _, o := range obs {
		pt, ok := byPlot[o.PlotCN]
		if !ok {
			pt = &plotTotal{plotCN: o.PlotCN, stratumCN: o.StratumCN}
			byPlot[o.PlotCN] = pt
			order = append(order, o.PlotCN)
		}
		pt.y += o.YNum
		pt.x += o.YDen
	}
	out := make([]plotTotal, len(order))
	for i, k := range order {
		out[i] = *byPlot[k]
	}
	return out
}

// stratumStats is the sample mean, variance, and covariance of Y and X
// across the n_h plots assigned to one stratum (§4.4 "Stratum
// statistics"), plus the population metadata (P1 count, estimation
// unit) needed to weight it during rollup.
type stratumStats struct {
	CN         string
	EstnUnitCN string
	P1Count    float64
	N          int
	MeanY      float64
	MeanX      float64
	VarY       float64
	VarX       float64
	CovYX      float64
}

// computeStratumStats partitions totals by stratum and computes the
// sample statistics. A stratum with n_h == 0, or one absent from
// strata entirely, is omitted (§4.4 edge case "silently dropped from
// that group"); a stratum with n_h == 1 is kept with variance and
// covariance forced to zero (§4.4 "Tie rule"). When withVariance is
// false the s²/covariance reductions are skipped entirely rather than
// merely left off the report (§C.4): only the means needed for the
// point estimate are computed.
func computeStratumStats(totals []plotTotal, strata map[string]StratumMeta, withVariance bool, warn *[]string) []stratumStats {
	type bucket struct {
		meta  StratumMeta
		plots []plotTotal
	}
	buckets := make(map[string]*bucket)
	order := make([]string, 0)
	for _, t := range totals {
		meta, ok := strata[t.stratumCN]
		if !ok {
			continue // stratum not in scope for this evaluation; ignore.
		}
		b, ok := buckets[t.stratumCN]
		if !ok {
			b = &bucket{meta: meta}
			buckets[t.stratumCN] = b
			order = append(order, t.stratumCN)
		}
		b.plots = append(b.plots, t)
	}

	sort.Strings(order)
	out := make([]stratumStats, 0, len(order))
	for _, cn := range order {
		b := buckets[cn]
		n := len(b.plots)
		if n == 0 {
			continue
		}
		y := make([]float64, n)
		x := make([]float64, n)
		for i, p := range b.plots {
			y[i] = p.y
			x[i] = p.x
		}
		// gonum/stat's Mean/Variance/Covariance apply the same n-1
		// (sample) normalization §4.4 "Stratum statistics" specifies;
		// using them here keeps the estimator's numeric core on the
		// same statistics library the rest of the corpus reaches for
		// rather than a hand-rolled reduction.
		var meanY, meanX, varY, varX float64
		if withVariance {
			meanY, varY = stat.MeanVariance(y, nil)
			meanX, varX = stat.MeanVariance(x, nil)
		} else {
			meanY, meanX = stat.Mean(y, nil), stat.Mean(x, nil)
		}

		stats := stratumStats{
			CN: cn, EstnUnitCN: b.meta.EstnUnitCN, P1Count: b.meta.P1Count,
			N: n, MeanY: meanY, MeanX: meanX,
		}
		if n > 1 && withVariance {
			stats.VarY = clampNonNegative(varY, warn, "stratum "+cn+" Var(Y)")
			stats.VarX = clampNonNegative(varX, warn, "stratum "+cn+" Var(X)")
			stats.CovYX = stat.Covariance(y, x, nil)
		}
		out = append(out, stats)
	}
	return out
}

func clampNonNegative(v float64, warn *[]string, label string) float64 {
	if v < 0 {
		if warn != nil {
			*warn = append(*warn, "negative variance clamped to zero: "+label)
		}
		return 0
	}
	return v
}

// unitEstimate is an estimation unit's numerator/denominator totals
// and their variances and covariance (§4.4 "Estimation-unit totals").
type unitEstimate struct {
	CN     string
	TotalY float64
	TotalX float64
	VarY   float64
	VarX   float64
	CovYX  float64
	NPlots int
}

// estimateUnits applies the post-stratified total and variance formula
// within each estimation unit:
//
//	T̂_Y,U = A_U · Σ_h w_h · Ȳ_h,  w_h = P1_h / Σ_h P1_h
//	V(T̂_Y,U) = A_U² · [ (1/n) Σ_h w_h s²_Y,h + (1/n²) Σ_h (1−w_h) s²_Y,h ]
//
// with the same structure applied to X and to the Y/X covariance.
func estimateUnits(stats []stratumStats, units map[string]EstnUnitMeta) []unitEstimate {
	byUnit := make(map[string][]stratumStats)
	order := make([]string, 0)
	for _, s := range stats {
		if _, ok := byUnit[s.EstnUnitCN]; !ok {
			order = append(order, s.EstnUnitCN)
		}
		byUnit[s.EstnUnitCN] = append(byUnit[s.EstnUnitCN], s)
	}
	sort.Strings(order)

	out := make([]unitEstimate, 0, len(order))
	for _, unitCN := range order {
		meta, ok := units[unitCN]
		if !ok {
			continue
		}
		strata := byUnit[unitCN]

		var sumP1 float64
		var n int
		for _, s := range strata {
			sumP1 += s.P1Count
			n += s.N
		}
		fN := float64(n)

		var meanY, meanX, varY, varX, covYX float64
		for _, s := range strata {
			wh := 0.0
			if sumP1 > 0 {
				wh = s.P1Count / sumP1
			}
			meanY += wh * s.MeanY
			meanX += wh * s.MeanX
		}
		if fN > 0 {
			for _, s := range strata {
				wh := 0.0
				if sumP1 > 0 {
					wh = s.P1Count / sumP1
				}
				varY += wh*s.VarY/fN + (1-wh)*s.VarY/(fN*fN)
				varX += wh*s.VarX/fN + (1-wh)*s.VarX/(fN*fN)
				covYX += wh*s.CovYX/fN + (1-wh)*s.CovYX/(fN*fN)
			}
		}

		out = append(out, unitEstimate{
			CN:     unitCN,
			TotalY: meta.AreaUsed * meanY,
			TotalX: meta.AreaUsed * meanX,
			VarY:   meta.AreaUsed * meta.AreaUsed * varY,
			VarX:   meta.AreaUsed * meta.AreaUsed * varX,
			CovYX:  meta.AreaUsed * meta.AreaUsed * covYX,
			NPlots: n,
		})
	}
	return out
}

// Result is the final reporting tuple for one group (§4.4 "Reported
// quantities", §6.2). Null fields are represented with a nil pointer
// rather than a sentinel float value, so a caller can distinguish
// "zero" from "undefined" when shaping output (§7 tier 3: "return the
// result with nulls for undefined cells").
type Result struct {
	Estimate *float64
	Variance *float64
	SE       *float64
	CV       *float64
	CILower  *float64
	CIUpper  *float64
	NPlots   int
	Warnings []string
}

func ptr(v float64) *float64 { return &v }

// finalize derives SE, CV, and the 95% CI from a point estimate and
// its variance (§4.4 "Reported quantities"). When withVariance is
// false the variance-derived fields stay null: they were never
// computed (§C.4), not merely omitted from the report.
func finalize(estimate, variance float64, nPlots int, withVariance bool, warnings []string) Result {
	r := Result{
		Estimate: ptr(estimate),
		NPlots:   nPlots,
		Warnings: warnings,
	}
	if !withVariance {
		return r
	}
	se := math.Sqrt(variance)
	r.Variance = ptr(variance)
	r.SE = ptr(se)
	r.CILower = ptr(estimate - 1.96*se)
	r.CIUpper = ptr(estimate + 1.96*se)
	if estimate != 0 {
		r.CV = ptr(100 * se / estimate)
	}
	return r
}

// EstimateTotal runs the full pipeline (§4.4) and returns the
// numerator total T̂_Y with its variance, skipping the denominator
// entirely — the "when the user requests only a total, the
// denominator path is skipped" case. withVariance false (§6.3's
// `variance` flag, §C.4) skips the s²/covariance reductions entirely
// rather than just their reporting.
func EstimateTotal(obs []Observation, strata map[string]StratumMeta, units map[string]EstnUnitMeta, withVariance bool) Result {
	totalY, varY, _, _, _, nPlots, warn := rollup(obs, strata, units, withVariance)
	return finalize(totalY, varY, nPlots, withVariance, warn)
}

// EstimateRatio runs the full pipeline and returns the per-acre ratio
// R̂ = T̂_Y / T̂_X with its variance by the standard ratio
// approximation (§4.4 "Per-acre ratio"). A zero denominator total
// yields a null estimate and null variance (§4.4 edge case "Division
// by zero in ratio"). withVariance false skips the variance-of-ratio
// computation (§C.4).
func EstimateRatio(obs []Observation, strata map[string]StratumMeta, units map[string]EstnUnitMeta, withVariance bool) Result {
	totalY, varY, totalX, varX, covYX, nPlots, warn := rollup(obs, strata, units, withVariance)
	if totalX == 0 {
		return Result{NPlots: nPlots, Warnings: append(warn, "zero denominator total: ratio is undefined")}
	}
	ratio := totalY / totalX
	if !withVariance {
		return finalize(ratio, 0, nPlots, false, warn)
	}
	variance := (varY + ratio*ratio*varX - 2*ratio*covYX) / (totalX * totalX)
	variance = clampNonNegative(variance, &warn, "population ratio variance")
	return finalize(ratio, variance, nPlots, true, warn)
}

// rollup performs per-plot aggregation, stratum statistics,
// estimation-unit totals, and the population rollup (sum across
// estimation units, §4.4 "Population rollup": "estimation units are
// sampled independently", so their variances simply add).
func rollup(obs []Observation, strata map[string]StratumMeta, units map[string]EstnUnitMeta, withVariance bool) (totalY, varY, totalX, varX, covYX float64, nPlots int, warn []string) {
	totals := aggregatePlots(obs)
	stats := computeStratumStats(totals, strata, withVariance, &warn)
	unitEstimates := estimateUnits(stats, units)
	for _, ue := range unitEstimates {
		totalY += ue.TotalY
		totalX += ue.TotalX
		varY += ue.VarY
		varX += ue.VarX
		covYX += ue.CovYX
		nPlots += ue.NPlots
	}
	return
}
