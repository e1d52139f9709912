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
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/usfs-fia/fiaestimate"
	"github.com/usfs-fia/fiaestimate/internal/refcat"
)

var (
	configFile string

	// cfg and db hold the process-wide state every subcommand shares,
	// mirroring the teacher's package-level Config variable
	// (inmap/cmd/root.go) — set once in PersistentPreRunE, read-only
	// thereafter.
	cfg *fiaestimate.Config
	db  *fiaestimate.Database
)

// RootCmd is the fiaestimate command-line entry point.
var RootCmd = &cobra.Command{
	Use:   "fiaestimate",
	Short: "Design-based statistical estimates from an FIA database extract.",
	Long: `fiaestimate computes population-level forest inventory estimates
(area, trees per acre, volume, biomass, carbon, mortality, growth,
removals, area change) from a stratified plot-condition-tree sample,
following the post-stratified estimator of Bechtold & Patterson (2005).`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		return startup(cmd.Context(), configFile)
	},
}

func startup(ctx context.Context, configFile string) error {
	var err error
	cfg, err = fiaestimate.LoadConfig(configFile)
	if err != nil {
		return err
	}
	if lvl, lerr := logrus.ParseLevel(cfg.LogLevel); lerr == nil {
		logrus.SetLevel(lvl)
	}
	// The reference catalog (L1) is a deployment concern per
	// refcat.NewCatalog's own doc comment: this thin CLI opens an
	// empty one, since species/forest-type ingestion lives outside the
	// core (§1). A deployment wrapper with access to the FIA reference
	// tables would construct catalog from them before calling Open.
	catalog := refcat.NewCatalog(nil, nil, nil)
	db, err = fiaestimate.Open(ctx, cfg, catalog)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	return nil
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configFile, "config", "./fiaestimate.toml", "configuration file location")
	RootCmd.AddCommand(versionCmd)
}

// version is set at build time via -ldflags; it is not itself part of
// the core's scope.
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fiaestimate v%s\n", version)
	},
}
