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

package fiaestimate

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds the deployment-level configuration for a fiaestimate
// database, mirroring the teacher's ConfigData/ReadConfigFile
// (inmap/cmd/config.go): a flat, TOML-decoded struct whose string
// fields may contain unexpanded environment variables.
type Config struct {
	// DatabasePath is the location of the columnar or SQLite FIA
	// extract. It may contain environment variables, exactly as the
	// teacher's InMAPData/VariableGridData fields do.
	DatabasePath string

	// CacheSize is the stratum-table and reference-catalog cache
	// capacity (§5 "cached stratum tables keyed by evaluation set").
	// Zero selects the default of 100, the same default internal/cache
	// falls back to for an unspecified size.
	CacheSize int

	// LogLevel is a logrus-parseable level name ("debug", "info",
	// "warn", "error"). Empty selects logrus's default ("info").
	LogLevel string
}

// LoadConfig reads and decodes a TOML configuration file at path,
// expanding environment variables in every string field the way the
// teacher's command layer expands them in OutputFile, InMAPData, and
// friends before they're used.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("fiaestimate: reading configuration file %q: %w", path, err)
	}
	cfg.DatabasePath = os.ExpandEnv(cfg.DatabasePath)
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 100
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return &cfg, nil
}
