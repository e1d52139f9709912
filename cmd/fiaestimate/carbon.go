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
	carbonFlags commonFlags
	carbonPool  string
)

var carbonCmd = &cobra.Command{
	Use:   "carbon",
	Short: "Estimate carbon stock per acre (or total carbon)",
	RunE: wrapRunE(func(cmd *cobra.Command, args []string) error {
		req, err := carbonFlags.baseRequest()
		if err != nil {
			return err
		}
		req.CarbonPool, err = parsePool(carbonPool)
		if err != nil {
			return err
		}
		rows, err := db.Carbon(cmd.Context(), req)
		if err != nil {
			return err
		}
		return printRows(rows, false)
	}),
}

func init() {
	addCommonFlags(carbonCmd.Flags(), &carbonFlags)
	carbonCmd.Flags().StringVar(&carbonPool, "pool", "ag", "ag, bg, or total")
	RootCmd.AddCommand(carbonCmd)
}
