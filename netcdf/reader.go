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
	"io"
	"sync"

	"github.com/ctessum/cdf"
	"github.com/ctessum/cfpipe"
	"github.com/ctessum/cfpipe/mpi"
	"github.com/ctessum/cfpipe/threadpool"
	"github.com/sirupsen/logrus"
)

// CFReader is the zero-input-port Algorithm that reads a collection
// of CF-conforming NetCDF files as a time series of CartesianMesh
// datasets. Its report phase (catalog) only ever runs on the root
// rank (mpi.Root); every other rank receives the catalog over Comm.
// Its request phase opens and reads directly from whichever file
// holds the requested time step, on whatever rank executes it.
type CFReader struct {
	cfpipe.AlgorithmBase

	Config Config
	Comm   mpi.Comm
	Log    *logrus.Entry

	// explicitFiles, set via WithFiles, bypasses Config.FilesRegex /
	// Config.FileName. Mainly for tests and programmatic callers that
	// already know their file list.
	explicitFiles []string

	cacheOnce sync.Once
	handleCache *HandleCache
	openFunc    OpenFunc

	poolOnce sync.Once
	threadPool *threadpool.Pool
}

// NewCFReader returns a CFReader configured by cfg, using the local
// filesystem for file access and a single-rank communicator. Assign
// the Comm field or call SetOpenFunc to change either.
func NewCFReader(cfg Config) *CFReader {
	r := &CFReader{Config: cfg, Comm: mpi.NewLocal(), Log: logrus.WithField("component", "netcdf.CFReader")}
	r.Init(r)
	return r
}

// WithFiles overrides file discovery with an explicit file list,
// bypassing Config.FilesRegex and Config.FileName. Returns r so it
// can be chained onto NewCFReader.
func (r *CFReader) WithFiles(files []string) *CFReader {
	r.explicitFiles = append([]string(nil), files...)
	r.SetModified()
	return r
}

// SetXAxisVariable changes the configured x axis variable and marks
// the reader modified, forcing the next catalog/execute to re-probe.
func (r *CFReader) SetXAxisVariable(name string) *CFReader {
	r.Config.XAxisVariable = name
	r.SetModified()
	return r
}

// SetYAxisVariable changes the configured y axis variable and marks
// the reader modified, forcing the next catalog/execute to re-probe.
func (r *CFReader) SetYAxisVariable(name string) *CFReader {
	r.Config.YAxisVariable = name
	r.SetModified()
	return r
}

// SetZAxisVariable changes the configured z axis variable and marks
// the reader modified, forcing the next catalog/execute to re-probe.
func (r *CFReader) SetZAxisVariable(name string) *CFReader {
	r.Config.ZAxisVariable = name
	r.SetModified()
	return r
}

// SetTAxisVariable changes the configured time axis variable and
// marks the reader modified, forcing the next catalog/execute to
// re-probe.
func (r *CFReader) SetTAxisVariable(name string) *CFReader {
	r.Config.TAxisVariable = name
	r.SetModified()
	return r
}

// SetModified marks the reader stale. Beyond the embedded base's
// invalidation of the metadata/data caches, it also clears the
// handle cache: a changed axis variable or file list can make a
// cached file handle's already-read header stale.
func (r *CFReader) SetModified() {
	r.AlgorithmBase.SetModified()
	if r.handleCache != nil {
		r.handleCache.Clear()
	}
}

// SetOpenFunc overrides how backing storage for a path is opened; the
// default opens from the local filesystem. Must be called before the
// first catalog/execute call.
func (r *CFReader) SetOpenFunc(open OpenFunc) *CFReader {
	r.openFunc = open
	return r
}

func (r *CFReader) cache() *HandleCache {
	r.cacheOnce.Do(func() {
		r.handleCache = NewHandleCache(r.openFunc)
	})
	return r.handleCache
}

func (r *CFReader) pool() *threadpool.Pool {
	r.poolOnce.Do(func() {
		r.threadPool = threadpool.New(r.Config.ThreadPoolSize)
	})
	return r.threadPool
}

func (r *CFReader) comm() mpi.Comm {
	if r.Comm == nil {
		return mpi.NewLocal()
	}
	return r.Comm
}

// GetOutputMetadata runs the catalog phase: on the root rank it
// builds the report by probing every file, then broadcasts the
// serialized report to every other rank, which decode it instead of
// touching the filesystem themselves.
func (r *CFReader) GetOutputMetadata(port int, upstreamReports []cfpipe.Metadata) (cfpipe.Metadata, error) {
	root := mpi.Root(r.comm().Size())
	if r.comm().Rank() == root {
		report, err := r.buildCatalog()
		if err != nil {
			return cfpipe.Metadata{}, err
		}
		w := cfpipe.NewBWriter()
		if err := w.WriteMetadata(report); err != nil {
			return cfpipe.Metadata{}, fmt.Errorf("cfpipe: netcdf: encode catalog: %w", err)
		}
		payload := w.Bytes()
		if err := r.comm().Bcast(root, &payload); err != nil {
			return cfpipe.Metadata{}, fmt.Errorf("cfpipe: netcdf: broadcast catalog: %w", err)
		}
		files, _ := report.GetStringSlice("files")
		r.Log.WithField("files", len(files)).Debug("catalog built")
		return report, nil
	}

	var payload []byte
	if err := r.comm().Bcast(root, &payload); err != nil {
		return cfpipe.Metadata{}, fmt.Errorf("cfpipe: netcdf: receive catalog: %w", err)
	}
	br := cfpipe.NewBReader(payload)
	report, err := br.ReadMetadata()
	if err != nil {
		return cfpipe.Metadata{}, fmt.Errorf("cfpipe: netcdf: decode catalog: %w", err)
	}
	return report, nil
}

// GetUpstreamRequest always returns nil: CFReader has no input ports.
func (r *CFReader) GetUpstreamRequest(port int, upstreamReports []cfpipe.Metadata, request cfpipe.Metadata) ([]cfpipe.Metadata, error) {
	return nil, nil
}

// Execute reads the CartesianMesh for the requested time_step,
// clamped to the requested extent (or the whole extent if none is
// given) and limited to the requested arrays (or every non-axis
// variable the catalog found).
func (r *CFReader) Execute(port int, upstreamData []cfpipe.Dataset, request cfpipe.Metadata) (cfpipe.Dataset, error) {
	ts, err := request.GetInt("time_step")
	if err != nil {
		return nil, fmt.Errorf("cfpipe: netcdf: execute: %w", err)
	}

	report, err := r.UpdateMetadata(0)
	if err != nil {
		return nil, fmt.Errorf("cfpipe: netcdf: execute: %w", err)
	}

	steps, err := report.GetIntSlice("step_count")
	if err != nil {
		return nil, fmt.Errorf("cfpipe: netcdf: execute: %w", err)
	}
	files, err := report.GetStringSlice("files")
	if err != nil {
		return nil, fmt.Errorf("cfpipe: netcdf: execute: %w", err)
	}
	wholeExtent, err := report.GetExtent("whole_extent")
	if err != nil {
		return nil, fmt.Errorf("cfpipe: netcdf: execute: %w", err)
	}
	coords, err := report.GetMetadata("coordinates")
	if err != nil {
		return nil, fmt.Errorf("cfpipe: netcdf: execute: %w", err)
	}
	xVar, _ := coords.GetString("x_variable")
	yVar, _ := coords.GetString("y_variable")
	zVar, _ := coords.GetString("z_variable")
	tVar, _ := coords.GetString("t_variable")

	numSteps := 0
	for _, s := range steps {
		numSteps += s
	}
	if ts < 0 || ts >= numSteps {
		return nil, fmt.Errorf("cfpipe: netcdf: execute: time_step %d out of range [0,%d)", ts, numSteps)
	}

	fileIdx, offset := 0, ts
	for i, s := range steps {
		if offset < s {
			fileIdx = i
			break
		}
		offset -= s
	}
	path := files[fileIdx]

	extent := wholeExtent
	if e, err := request.GetExtent("extent"); err == nil {
		extent = e
	}
	clampPair(&extent[0], &extent[1], wholeExtent[0], wholeExtent[1])
	clampPair(&extent[2], &extent[3], wholeExtent[2], wholeExtent[3])
	clampPair(&extent[4], &extent[5], wholeExtent[4], wholeExtent[5])

	f, mu, err := r.cache().GetHandle(path)
	if err != nil {
		return nil, fmt.Errorf("cfpipe: netcdf: execute: %w", err)
	}
	mu.Lock()
	defer mu.Unlock()

	mesh := cfpipe.NewCartesianMesh()
	mesh.Metadata.Set("time_step", ts)
	mesh.Metadata.Set("extent", extent)
	mesh.Metadata.Set("whole_extent", wholeExtent)
	if cal, err := report.GetString("calendar"); err == nil {
		mesh.Metadata.Set("calendar", cal)
	}
	if units, err := report.GetString("time_units"); err == nil {
		mesh.Metadata.Set("time_units", units)
	}

	mesh.X, err = r.readCoordinate(f, xVar, extent[0], extent[1])
	if err != nil {
		return nil, fmt.Errorf("cfpipe: netcdf: execute: x axis: %w", err)
	}
	mesh.Y, err = r.readCoordinate(f, yVar, extent[2], extent[3])
	if err != nil {
		return nil, fmt.Errorf("cfpipe: netcdf: execute: y axis: %w", err)
	}
	if zVar != "" {
		mesh.Z, err = r.readCoordinate(f, zVar, extent[4], extent[5])
		if err != nil {
			return nil, fmt.Errorf("cfpipe: netcdf: execute: z axis: %w", err)
		}
	} else {
		mesh.Z = cfpipe.NewVariantArrayFromFloat64([]float64{0})
	}

	timeVars, err := report.GetStringSlice("time variables")
	if err != nil {
		timeVars = []string{tVar}
	}
	for _, name := range timeVars {
		val, err := r.readCoordinate(f, name, offset, offset)
		if err != nil {
			return nil, fmt.Errorf("cfpipe: netcdf: execute: time variable %s: %w", name, err)
		}
		mesh.InformationArrays.Set(name, val)
	}

	arrays, err := request.GetStringSlice("arrays")
	if err != nil {
		arrays, _ = report.GetStringSlice("variables")
	}
	for _, name := range arrays {
		if name == xVar || name == yVar || name == zVar || name == tVar {
			continue
		}
		dims := f.Header.Dimensions(name)
		if dims == nil {
			r.Log.WithField("variable", name).Warn("not a mesh variable, skipping")
			continue
		}
		arr, err := r.readArray(f, name, dims, tVar, zVar, yVar, xVar, offset, extent)
		if err != nil {
			return nil, fmt.Errorf("cfpipe: netcdf: execute: %s: %w", name, err)
		}
		mesh.PointArrays.Set(name, arr)
	}

	return mesh, nil
}

func clampPair(lo, hi *int, wlo, whi int) {
	if *lo < wlo {
		*lo = wlo
	}
	if *hi > whi {
		*hi = whi
	}
}

// readCoordinate reads the inclusive index range [lo,hi] of a 1-D
// axis variable.
func (r *CFReader) readCoordinate(f *cdf.File, name string, lo, hi int) (*cfpipe.VariantArray, error) {
	if name == "" {
		return nil, fmt.Errorf("no axis variable configured")
	}
	rdr := f.Reader(name, []int{lo}, []int{hi})
	if rdr == nil {
		return nil, fmt.Errorf("no such variable %q", name)
	}
	n := hi - lo + 1
	raw := rdr.Zero(n)
	if _, err := rdr.Read(raw); err != nil && err != io.EOF {
		return nil, err
	}
	return wrapVariantArray(raw)
}

// readArray reads a mesh variable's data window: for each of its
// dimensions, the window is the requested time step if the dimension
// is the time axis, the requested extent if it is the z, y or x
// axis, or the whole dimension otherwise.
func (r *CFReader) readArray(f *cdf.File, name string, dims []string, tVar, zVar, yVar, xVar string, offset int, extent cfpipe.Extent) (*cfpipe.VariantArray, error) {
	lengths := f.Header.Lengths(name)
	begin := make([]int, len(dims))
	end := make([]int, len(dims))
	for i, d := range dims {
		switch {
		case d == tVar:
			begin[i], end[i] = offset, offset
		case zVar != "" && d == zVar:
			begin[i], end[i] = extent[4], extent[5]
		case d == yVar:
			begin[i], end[i] = extent[2], extent[3]
		case d == xVar:
			begin[i], end[i] = extent[0], extent[1]
		default:
			begin[i], end[i] = 0, lengths[i]-1
		}
	}

	rdr := f.Reader(name, begin, end)
	if rdr == nil {
		return nil, fmt.Errorf("no such variable")
	}
	n := 1
	for i := range begin {
		n *= end[i] - begin[i] + 1
	}
	raw := rdr.Zero(n)
	if _, err := rdr.Read(raw); err != nil && err != io.EOF {
		return nil, err
	}
	return wrapVariantArray(raw)
}
