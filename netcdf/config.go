/*
Copyright © 2018 the cfpipe authors.
This file is part of cfpipe.

cfpipe is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

cfpipe is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with cfpipe.  If not, see <http://www.gnu.org/licenses/>.
*/

package netcdf

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds a CFReader's settings: which files to read, and which
// variables to treat as the x/y/z/t axes. It can be built as a struct
// literal or decoded from a TOML file with LoadConfig.
type Config struct {
	// FilesRegex matches the files making up the dataset, e.g.
	// "/data/run01/out_.*\\.nc".
	FilesRegex string `toml:"files_regex"`
	// FileName names a single file directly; mutually exclusive with
	// FilesRegex, mainly useful for tests and single-file datasets.
	FileName string `toml:"file_name"`

	XAxisVariable string `toml:"x_axis_variable"`
	YAxisVariable string `toml:"y_axis_variable"`
	ZAxisVariable string `toml:"z_axis_variable"`
	TAxisVariable string `toml:"t_axis_variable"`

	// ThreadPoolSize bounds the number of files probed concurrently
	// during the catalog phase. <=0 uses hardware concurrency.
	ThreadPoolSize int `toml:"thread_pool_size"`
}

// DefaultConfig returns a Config with the conventional axis variable
// names ("lon", "lat", "time") and an empty z axis, matching the
// common case of a purely horizontal CF grid.
func DefaultConfig() Config {
	return Config{
		XAxisVariable: "lon",
		YAxisVariable: "lat",
		TAxisVariable: "time",
	}
}

// LoadConfig decodes a Config from the TOML file at path, filling in
// DefaultConfig's axis names for any left unset.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("cfpipe: netcdf: load config: %w", err)
	}
	defer f.Close()
	if _, err := toml.DecodeReader(f, &cfg); err != nil {
		return Config{}, fmt.Errorf("cfpipe: netcdf: load config: %w", err)
	}
	return cfg, nil
}
