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

package mpi

// Partition returns the indices in [0, n) assigned to rank out of
// nRanks, round-robin: rank r gets indices r, r+nRanks, r+2*nRanks,
// and so on. This is the default executive's time-step distribution
// rule (component H).
func Partition(nRanks, rank, n int) []int {
	if nRanks <= 0 {
		nRanks = 1
	}
	var out []int
	for i := rank; i < n; i += nRanks {
		out = append(out, i)
	}
	return out
}
