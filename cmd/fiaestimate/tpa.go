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

var tpaFlags commonFlags

var tpaCmd = &cobra.Command{
	Use:   "tpa",
	Short: "Estimate trees per acre (or total tree count)",
	RunE: wrapRunE(func(cmd *cobra.Command, args []string) error {
		req, err := tpaFlags.baseRequest()
		if err != nil {
			return err
		}
		rows, err := db.TPA(cmd.Context(), req)
		if err != nil {
			return err
		}
		return printRows(rows, false)
	}),
}

func init() {
	addCommonFlags(tpaCmd.Flags(), &tpaFlags)
	RootCmd.AddCommand(tpaCmd)
}
