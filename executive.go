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

package cfpipe

import (
	"fmt"

	"github.com/ctessum/cfpipe/mpi"
	"github.com/sirupsen/logrus"
)

// Executive drives a pipeline's sink: it decides what requests to
// issue, issues them against the sink's output port 0, and collects the
// resulting datasets.
type Executive struct {
	Comm mpi.Comm
	Log  *logrus.Entry

	// TimeSteps, if non-nil, overrides the report's
	// number_of_time_steps with an explicit list of time-step
	// indices to visit.
	TimeSteps []int

	// Errors accumulates one entry per time step that failed (either
	// the pull itself or the visit callback), in the order they were
	// encountered. Run never aborts because of them; it records and
	// moves on to the next time step.
	Errors []error
}

// NewExecutive returns an Executive using comm for rank-awareness. A
// nil comm defaults to mpi.NewLocal(), the single-rank communicator.
func NewExecutive(comm mpi.Comm) *Executive {
	if comm == nil {
		comm = mpi.NewLocal()
	}
	return &Executive{Comm: comm, Log: logrus.WithField("component", "cfpipe.Executive")}
}

func (e *Executive) log() *logrus.Entry {
	if e.Log == nil {
		return logrus.WithField("component", "cfpipe.Executive")
	}
	return e.Log
}

// Run pulls every time step assigned to this rank through sink's
// output port 0, in round-robin order across the communicator's ranks,
// calling visit with each resulting Dataset. The report's
// "number_of_time_steps" property determines the full time-step
// count unless TimeSteps is set.
func (e *Executive) Run(sink Algorithm, visit func(timeStep int, data Dataset) error) error {
	report, err := updateMetadataOf(sink, 0)
	if err != nil {
		return fmt.Errorf("cfpipe: executive: get report: %w", err)
	}

	steps := e.TimeSteps
	if steps == nil {
		n, err := report.GetInt("number_of_time_steps")
		if err != nil {
			return fmt.Errorf("cfpipe: executive: report has no number_of_time_steps: %w", err)
		}
		steps = make([]int, n)
		for i := range steps {
			steps[i] = i
		}
	}

	local := mpi.Partition(e.Comm.Size(), e.Comm.Rank(), len(steps))
	for _, i := range local {
		ts := steps[i]
		req := NewMetadata()
		req.Set("time_step", ts)
		data, err := updateOf(sink, 0, req)
		if err != nil {
			err = fmt.Errorf("cfpipe: executive: time_step=%d: %w", ts, err)
			e.log().WithField("time_step", ts).WithError(err).Error("time step failed, continuing with the next one")
			e.Errors = append(e.Errors, err)
			continue
		}
		if err := visit(ts, data); err != nil {
			err = fmt.Errorf("cfpipe: executive: time_step=%d: visit: %w", ts, err)
			e.log().WithField("time_step", ts).WithError(err).Error("visit failed, continuing with the next time step")
			e.Errors = append(e.Errors, err)
			continue
		}
	}
	return nil
}
