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

package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/usfs-fia/fiaestimate"
	"github.com/usfs-fia/fiaestimate/internal/evalid"
	"github.com/usfs-fia/fiaestimate/internal/filter"
	"github.com/usfs-fia/fiaestimate/internal/grm"
	"github.com/usfs-fia/fiaestimate/internal/output"
	"github.com/usfs-fia/fiaestimate/internal/value"
)

// commonFlags bundles the request-surface flags every estimator family
// shares (§6.3): evaluation selection, the three predicate strings,
// the land_type/tree_type presets, group-by, and the totals/variance/
// annual booleans.
type commonFlags struct {
	states     []string
	evalids    []string
	year       int
	treeDomain string
	areaDomain string
	plotDomain string
	landType   string
	treeType   string
	groupBy    []string
	totals     bool
	variance   bool
	annual     bool
}

func addCommonFlags(fs *pflag.FlagSet, c *commonFlags) {
	fs.StringSliceVar(&c.states, "states", nil, "FIPS state codes to restrict to (default: all states present in the evaluation facts)")
	fs.StringSliceVar(&c.evalids, "evalid", nil, "explicit EVALID set (overrides --year/most-recent)")
	fs.IntVar(&c.year, "year", 0, "select the evaluation whose END_INVYR equals this year (default: most recent)")
	fs.StringVar(&c.treeDomain, "tree-domain", "", "tree-level predicate expression")
	fs.StringVar(&c.areaDomain, "area-domain", "", "condition-level predicate expression")
	fs.StringVar(&c.plotDomain, "plot-domain", "", "plot-level predicate expression")
	fs.StringVar(&c.landType, "land-type", "forest", "land_type preset: all, forest, timber")
	fs.StringVar(&c.treeType, "tree-type", "live", "tree_type preset: all, live, dead, growing_stock, sawlog")
	fs.StringSliceVar(&c.groupBy, "group-by", nil, "group-by column(s): a literal column name, by_species, or by_size_class[:standard|descriptive|market]")
	fs.BoolVar(&c.totals, "totals", false, "report population totals instead of per-acre ratios")
	fs.BoolVar(&c.variance, "variance", true, "compute variance (disable for a faster point-estimate-only pass)")
	fs.BoolVar(&c.annual, "annual", true, "report an annualized rate rather than a REMPER total (GRM/area-change estimators only)")
}

func (c commonFlags) selector() (evalid.Selector, error) {
	switch {
	case len(c.evalids) > 0:
		ids := make([]int, len(c.evalids))
		for i, s := range c.evalids {
			n, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil {
				return evalid.Selector{}, fmt.Errorf("invalid --evalid %q: %w", s, err)
			}
			ids[i] = n
		}
		return evalid.ExplicitSelector(ids...), nil
	case c.year != 0:
		return evalid.YearSelector(c.year), nil
	default:
		return evalid.MostRecentSelector(), nil
	}
}

func (c commonFlags) stateCodes() ([]int, error) {
	out := make([]int, len(c.states))
	for i, s := range c.states {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("invalid --states %q: %w", s, err)
		}
		out[i] = n
	}
	return out, nil
}

func parseLandType(s string) (filter.LandType, error) {
	switch strings.ToLower(s) {
	case "all", "":
		return filter.LandAll, nil
	case "forest":
		return filter.LandForest, nil
	case "timber":
		return filter.LandTimber, nil
	default:
		return 0, fmt.Errorf("unknown land_type %q", s)
	}
}

func parseTreeType(s string) (filter.TreeType, error) {
	switch strings.ToLower(s) {
	case "all", "":
		return filter.TreeAll, nil
	case "live":
		return filter.TreeLive, nil
	case "dead":
		return filter.TreeDead, nil
	case "growing_stock", "growingstock":
		return filter.TreeGrowingStock, nil
	case "sawlog":
		return filter.TreeSawlog, nil
	default:
		return 0, fmt.Errorf("unknown tree_type %q", s)
	}
}

func parseGroupBy(specs []string) ([]output.GroupSpec, error) {
	out := make([]output.GroupSpec, len(specs))
	for i, s := range specs {
		parts := strings.SplitN(s, ":", 2)
		switch strings.ToLower(parts[0]) {
		case "by_species":
			out[i] = output.GroupSpec{Shortcut: output.ShortcutSpecies}
		case "by_size_class":
			variant := output.SizeClassStandard
			if len(parts) == 2 {
				switch strings.ToLower(parts[1]) {
				case "descriptive":
					variant = output.SizeClassDescriptive
				case "market":
					variant = output.SizeClassMarket
				case "standard", "":
				default:
					return nil, fmt.Errorf("unknown by_size_class variant %q", parts[1])
				}
			}
			out[i] = output.GroupSpec{Shortcut: output.ShortcutSizeClass, SizeClassVariant: variant}
		default:
			out[i] = output.GroupSpec{Column: s}
		}
	}
	return out, nil
}

func parseVolType(s string) (value.VolType, error) {
	switch strings.ToLower(s) {
	case "net", "":
		return value.VolNet, nil
	case "gross":
		return value.VolGross, nil
	case "sawlog_bf", "sawlogbf":
		return value.VolSawlogBoardFoot, nil
	case "sound":
		return value.VolSound, nil
	default:
		return 0, fmt.Errorf("unknown vol_type %q", s)
	}
}

func parseComponent(s string) (value.Component, error) {
	switch strings.ToLower(s) {
	case "ag", "":
		return value.ComponentAG, nil
	case "bg":
		return value.ComponentBG, nil
	case "total":
		return value.ComponentTotal, nil
	default:
		return 0, fmt.Errorf("unknown component %q", s)
	}
}

func parsePool(s string) (value.Pool, error) {
	switch strings.ToLower(s) {
	case "ag", "":
		return value.PoolAG, nil
	case "bg":
		return value.PoolBG, nil
	case "total":
		return value.PoolTotal, nil
	default:
		return 0, fmt.Errorf("unknown pool %q", s)
	}
}

func parseGRMMeasure(s string) (grm.Measure, output.GRMMeasure, error) {
	switch strings.ToLower(s) {
	case "volume", "":
		return grm.MeasureVolumeNet, output.GRMMeasureVolume, nil
	case "biomass":
		return grm.MeasureBiomassAG, output.GRMMeasureBiomass, nil
	case "basal_area", "basalarea":
		return grm.MeasureBasalArea, output.GRMMeasureBasalArea, nil
	case "count":
		return grm.MeasureCount, output.GRMMeasureCount, nil
	case "tpa":
		return grm.MeasureCount, output.GRMMeasureTPA, nil
	default:
		return 0, 0, fmt.Errorf("unknown measure %q", s)
	}
}

func parseChangeType(s string) (grm.ChangeType, error) {
	switch strings.ToLower(s) {
	case "net", "":
		return grm.ChangeNet, nil
	case "gross_gain", "grossgain":
		return grm.ChangeGrossGain, nil
	case "gross_loss", "grossloss":
		return grm.ChangeGrossLoss, nil
	default:
		return 0, fmt.Errorf("unknown change_type %q", s)
	}
}

// baseRequest translates the common flag surface into the shared
// portion of a fiaestimate.Request; each subcommand fills in its own
// estimator-specific fields afterward.
func (c commonFlags) baseRequest() (fiaestimate.Request, error) {
	sel, err := c.selector()
	if err != nil {
		return fiaestimate.Request{}, err
	}
	states, err := c.stateCodes()
	if err != nil {
		return fiaestimate.Request{}, err
	}
	landType, err := parseLandType(c.landType)
	if err != nil {
		return fiaestimate.Request{}, err
	}
	treeType, err := parseTreeType(c.treeType)
	if err != nil {
		return fiaestimate.Request{}, err
	}
	groupBy, err := parseGroupBy(c.groupBy)
	if err != nil {
		return fiaestimate.Request{}, err
	}
	return fiaestimate.Request{
		States:     states,
		Selector:   sel,
		TreeDomain: c.treeDomain,
		AreaDomain: c.areaDomain,
		PlotDomain: c.plotDomain,
		LandType:   landType,
		TreeType:   treeType,
		GroupBy:    groupBy,
		Totals:     c.totals,
		Variance:   c.variance,
		Annual:     c.annual,
	}, nil
}

// printRows renders a result frame (§6.2) as a tab-aligned table on
// stdout — the CLI's whole presentation layer, deliberately minimal
// per §1 ("pretty-printing... is not a core concern").
func printRows(rows []output.Row, includeNConditions bool) error {
	if len(rows) == 0 {
		fmt.Println("(no rows)")
		return nil
	}
	groupCols := make([]string, len(rows[0].GroupKeys))
	for i, gk := range rows[0].GroupKeys {
		groupCols[i] = gk.Column
	}
	valueColumn := rows[0].ValueColumn
	cols := output.Columns(groupCols, valueColumn, includeNConditions)

	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(cols, "\t"))
	for _, r := range rows {
		cells := make([]string, len(cols))
		for i, c := range cols {
			v, err := output.CellValue(r, c)
			if err != nil {
				return err
			}
			cells[i] = v
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	return w.Flush()
}

// wrapRunE adapts a cobra RunE-shaped body so every subcommand's flag
// and request errors surface uniformly, mirroring the teacher's own
// labelErr (inmap/cmd/cmd.go).
func wrapRunE(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return fmt.Errorf("fiaestimate: %w", err)
		}
		return nil
	}
}
