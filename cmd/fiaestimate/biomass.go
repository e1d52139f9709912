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
	"github.com/spf13/cobra"
)

var (
	biomassFlags commonFlags
	biomassPart  string
)

var biomassCmd = &cobra.Command{
	Use:   "biomass",
	Short: "Estimate dry biomass per acre (or total biomass)",
	RunE: wrapRunE(func(cmd *cobra.Command, args []string) error {
		req, err := biomassFlags.baseRequest()
		if err != nil {
			return err
		}
		req.BiomassComponent, err = parseComponent(biomassPart)
		if err != nil {
			return err
		}
		rows, err := db.Biomass(cmd.Context(), req)
		if err != nil {
			return err
		}
		return printRows(rows, false)
	}),
}

func init() {
	addCommonFlags(biomassCmd.Flags(), &biomassFlags)
	biomassCmd.Flags().StringVar(&biomassPart, "component", "ag", "ag, bg, or total")
	RootCmd.AddCommand(biomassCmd)
}
