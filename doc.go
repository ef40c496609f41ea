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

// Package cfpipe is a pull-based dataflow engine for streaming
// spatio-temporal sub-volumes of CF-conforming NetCDF datasets through
// a graph of transforms.
//
// A dataset is a collection of NetCDF files sharing a common Cartesian
// grid, each holding a contiguous block of time steps. Pipeline stages
// (Algorithm) are connected source-to-sink; a sink drives the graph by
// calling Update, which recursively gathers metadata reports, issues
// per-time-step requests upstream, and collects the resulting
// CartesianMesh payloads.
package cfpipe
