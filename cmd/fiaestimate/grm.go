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
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/usfs-fia/fiaestimate"
	"github.com/usfs-fia/fiaestimate/internal/output"
)

var (
	mortalityFlags, growthFlags, removalsFlags commonFlags
	mortalityMeasure, growthMeasure, removalsMeasure string
)

func addMeasureFlag(fs *pflag.FlagSet, measure *string) {
	fs.StringVar(measure, "measure", "volume", "volume, biomass, basal_area, tpa, or count")
}

// grmEntryPoint is the shape shared by Mortality, Growth, and Removals
// (§4.5); each subcommand below just binds its own flag set to one of
// these.
type grmEntryPoint func(ctx context.Context, req fiaestimate.Request) ([]output.Row, error)

func runGRMCommand(cmd *cobra.Command, flags commonFlags, measureFlag string, fn grmEntryPoint) error {
	req, err := flags.baseRequest()
	if err != nil {
		return err
	}
	req.Measure, req.GRMMeasure, err = parseGRMMeasure(measureFlag)
	if err != nil {
		return err
	}
	rows, err := fn(cmd.Context(), req)
	if err != nil {
		return err
	}
	return printRows(rows, false)
}

var mortalityCmd = &cobra.Command{
	Use:   "mortality",
	Short: "Estimate annual mortality (volume, biomass, basal area, or tree count)",
	RunE: wrapRunE(func(cmd *cobra.Command, args []string) error {
		return runGRMCommand(cmd, mortalityFlags, mortalityMeasure, db.Mortality)
	}),
}

var growthCmd = &cobra.Command{
	Use:   "growth",
	Short: "Estimate annual net growth (volume, biomass, basal area, or tree count)",
	RunE: wrapRunE(func(cmd *cobra.Command, args []string) error {
		return runGRMCommand(cmd, growthFlags, growthMeasure, db.Growth)
	}),
}

var removalsCmd = &cobra.Command{
	Use:   "removals",
	Short: "Estimate annual removals (volume, biomass, basal area, or tree count)",
	RunE: wrapRunE(func(cmd *cobra.Command, args []string) error {
		return runGRMCommand(cmd, removalsFlags, removalsMeasure, db.Removals)
	}),
}

func init() {
	addCommonFlags(mortalityCmd.Flags(), &mortalityFlags)
	addMeasureFlag(mortalityCmd.Flags(), &mortalityMeasure)
	RootCmd.AddCommand(mortalityCmd)

	addCommonFlags(growthCmd.Flags(), &growthFlags)
	addMeasureFlag(growthCmd.Flags(), &growthMeasure)
	RootCmd.AddCommand(growthCmd)

	addCommonFlags(removalsCmd.Flags(), &removalsFlags)
	addMeasureFlag(removalsCmd.Flags(), &removalsMeasure)
	RootCmd.AddCommand(removalsCmd)
}
