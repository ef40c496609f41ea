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

// Package mpi provides the minimal rank-aware communicator the CF
// NetCDF reader needs to broadcast its catalog from one rank to the
// rest of a run, without requiring a real MPI binding. The core
// pipeline must run correctly under Local (a single, un-networked
// rank); RPCComm is available when a run spans multiple processes.
package mpi

// Comm is a rank-aware communicator. Every method must be safe to
// call from a single goroutine per rank; cfpipe never calls a Comm
// concurrently from the same rank.
type Comm interface {
	// Rank returns this process's rank in [0, Size()).
	Rank() int
	// Size returns the number of ranks in the communicator.
	Size() int
	// Bcast distributes *payload from root to every other rank. On
	// the root, *payload is sent as-is; on every other rank, *payload
	// is replaced with what the root sent. root must be Size()-1, the
	// catalog root rank convention used throughout this package.
	Bcast(root int, payload *[]byte) error
	// Close releases any network resources the communicator holds.
	Close() error
}

// Root returns the catalog root rank for a communicator of size n:
// the highest-numbered rank, matching the upstream reader's
// convention of reserving the last rank to own the file catalog.
func Root(n int) int { return n - 1 }
