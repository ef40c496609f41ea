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
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/ctessum/cdf"
	"github.com/ctessum/cfpipe"
	"github.com/ctessum/cfpipe/threadpool"
)

// fileProbe is what the catalog phase learns about a single file:
// how many time steps it holds and what those steps' time-axis
// values are.
type fileProbe struct {
	path     string
	steps    int
	times    []float64
	variables []string
}

// listFiles resolves the set of files a CFReader should catalog, in a
// stable order: explicit files (set via WithFiles) take precedence
// over FileName, which takes precedence over FilesRegex.
func (r *CFReader) listFiles() ([]string, error) {
	if len(r.explicitFiles) > 0 {
		files := append([]string(nil), r.explicitFiles...)
		sort.Strings(files)
		return files, nil
	}
	if r.Config.FileName != "" {
		return []string{r.Config.FileName}, nil
	}
	if r.Config.FilesRegex == "" {
		return nil, fmt.Errorf("cfpipe: netcdf: reader config has no files_regex, file_name or explicit file list")
	}
	dir := filepath.Dir(r.Config.FilesRegex)
	re, err := regexp.Compile(r.Config.FilesRegex)
	if err != nil {
		return nil, fmt.Errorf("cfpipe: netcdf: compile files_regex: %w", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cfpipe: netcdf: list %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		full := filepath.Join(dir, e.Name())
		if re.MatchString(full) {
			files = append(files, full)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("cfpipe: netcdf: no files matched %q", r.Config.FilesRegex)
	}
	sort.Strings(files)
	return files, nil
}

// probeFile opens path, reads its time-axis values and variable
// list. It is safe to call concurrently for different paths.
func (r *CFReader) probeFile(path string) (fileProbe, error) {
	f, mu, err := r.cache().GetHandle(path)
	if err != nil {
		return fileProbe{}, err
	}
	mu.Lock()
	defer mu.Unlock()

	h := f.Header
	tVar := r.Config.TAxisVariable
	size, err := r.cache().FileSize(path)
	if err != nil {
		return fileProbe{}, err
	}
	steps := int(h.NumRecs(size))
	if steps < 0 {
		steps = 0
	}

	var times []float64
	if steps > 0 {
		rdr := f.Reader(tVar, nil, nil)
		raw := rdr.Zero(steps)
		if _, err := rdr.Read(raw); err != nil && err != io.EOF {
			return fileProbe{}, fmt.Errorf("cfpipe: netcdf: probe %s: read %s: %w", path, tVar, err)
		}
		times, err = toFloat64Slice(raw)
		if err != nil {
			return fileProbe{}, fmt.Errorf("cfpipe: netcdf: probe %s: %w", path, err)
		}
	}

	return fileProbe{path: path, steps: steps, times: times, variables: h.Variables()}, nil
}

// buildCatalog runs the catalog (report) phase: it lists and probes
// every file, in parallel via the reader's thread pool, then
// assembles a single report describing the whole dataset. Only the
// root rank calls this; every other rank receives the result over
// the reader's communicator (see CFReader.GetOutputMetadata).
func (r *CFReader) buildCatalog() (cfpipe.Metadata, error) {
	files, err := r.listFiles()
	if err != nil {
		return cfpipe.Metadata{}, err
	}

	pool := r.pool()
	futures := make([]*threadpool.Future, len(files))
	for i, path := range files {
		path := path
		futures[i] = pool.Submit(i, func() (interface{}, error) {
			return r.probeFile(path)
		})
	}
	values, errs := threadpool.WaitAll(futures)
	if len(errs) > 0 {
		return cfpipe.Metadata{}, fmt.Errorf("cfpipe: netcdf: catalog: %w", errs[0])
	}

	probes := make([]fileProbe, len(files))
	for i := range files {
		probes[i] = values[i].(fileProbe)
	}

	firstFile, mu, err := r.cache().GetHandle(files[0])
	if err != nil {
		return cfpipe.Metadata{}, err
	}
	mu.Lock()
	h := firstFile.Header
	wholeExtent, err := r.wholeExtentOf(h)
	mu.Unlock()
	if err != nil {
		return cfpipe.Metadata{}, err
	}

	var times []float64
	stepCount := make([]uint64, len(probes))
	for i, p := range probes {
		times = append(times, p.times...)
		stepCount[i] = uint64(p.steps)
	}

	mu.Lock()
	attributes, timeVars, err := r.attributesOf(h, probes[0].variables)
	mu.Unlock()
	if err != nil {
		return cfpipe.Metadata{}, err
	}

	coords := cfpipe.NewMetadata()
	coords.Set("x_variable", r.Config.XAxisVariable)
	// the y and z axis variable each report their own configured
	// name; an earlier revision of this mapping copied the z axis
	// name into both.
	coords.Set("y_variable", r.Config.YAxisVariable)
	coords.Set("z_variable", r.Config.ZAxisVariable)
	coords.Set("t_variable", r.Config.TAxisVariable)

	report := cfpipe.NewMetadata()
	report.Set("files", files)
	report.Set("step_count", stepCount)
	report.Set("number_of_time_steps", len(times))
	report.Set("whole_extent", wholeExtent)
	report.Set("variables", probes[0].variables)
	report.Set("attributes", attributes)
	report.Set("time variables", timeVars)
	report.Set("coordinates", coords)
	report.Set("time", cfpipe.NewVariantArrayFromFloat64(times))

	mu.Lock()
	if cal := trimText(h.GetAttribute(r.Config.TAxisVariable, "calendar")); cal != "" {
		report.Set("calendar", cal)
	}
	if units := trimText(h.GetAttribute(r.Config.TAxisVariable, "units")); units != "" {
		report.Set("time_units", units)
	}
	mu.Unlock()

	return report, nil
}

// wholeExtentOf computes the dataset's whole_extent from the lengths
// of the configured x, y and z axis variables. A missing (empty)
// z axis variable is treated as a single degenerate layer.
func (r *CFReader) wholeExtentOf(h *cdf.Header) (cfpipe.Extent, error) {
	nx, err := axisLength(h, r.Config.XAxisVariable)
	if err != nil {
		return cfpipe.Extent{}, err
	}
	ny, err := axisLength(h, r.Config.YAxisVariable)
	if err != nil {
		return cfpipe.Extent{}, err
	}
	nz := 1
	if r.Config.ZAxisVariable != "" {
		nz, err = axisLength(h, r.Config.ZAxisVariable)
		if err != nil {
			return cfpipe.Extent{}, err
		}
	}
	return cfpipe.Extent{0, nx - 1, 0, ny - 1, 0, nz - 1}, nil
}

func axisLength(h *cdf.Header, name string) (int, error) {
	lengths := h.Lengths(name)
	if len(lengths) == 0 {
		return 0, fmt.Errorf("cfpipe: netcdf: axis variable %q not found", name)
	}
	return lengths[0], nil
}

// attributesOf builds the nested "attributes" report property: for
// every variable, its id, dimension sizes and names, centering,
// element kind and trimmed attribute values. It also returns the
// subset of variables whose only dimension is the time axis — these
// are reported separately under "time variables" rather than treated
// as mesh arrays.
func (r *CFReader) attributesOf(h *cdf.Header, variables []string) (cfpipe.Metadata, []string, error) {
	out := cfpipe.NewMetadata()
	var timeVars []string
	tVar := r.Config.TAxisVariable
	for id, v := range variables {
		dimNames := h.Dimensions(v)
		varMeta := cfpipe.NewMetadata()
		varMeta.Set("id", id)
		varMeta.Set("dims", h.Lengths(v))
		varMeta.Set("dim_names", dimNames)
		varMeta.Set("centering", "point")
		kind, err := kindOf(h, v)
		if err != nil {
			return cfpipe.Metadata{}, nil, fmt.Errorf("cfpipe: netcdf: variable %q: %w", v, err)
		}
		varMeta.Set("type", kind.String())

		attrMeta := cfpipe.NewMetadata()
		for _, a := range h.Attributes(v) {
			if prop := attributeToProperty(h.GetAttribute(v, a)); prop != nil {
				attrMeta.Set(a, prop)
			}
		}
		varMeta.Set("attributes", attrMeta)
		out.Set(v, varMeta)

		if len(dimNames) == 1 && dimNames[0] == tVar {
			timeVars = append(timeVars, v)
		}
	}
	return out, timeVars, nil
}

// kindOf reports the cfpipe.Kind corresponding to variable v's
// NetCDF data type.
func kindOf(h *cdf.Header, name string) (cfpipe.Kind, error) {
	switch h.ZeroValue(name, 1).(type) {
	case []uint8:
		return cfpipe.KindUint8, nil
	case string:
		return cfpipe.KindBytes, nil
	case []int16:
		return cfpipe.KindInt16, nil
	case []int32:
		return cfpipe.KindInt32, nil
	case []float32:
		return cfpipe.KindFloat32, nil
	case []float64:
		return cfpipe.KindFloat64, nil
	}
	return 0, fmt.Errorf("unknown data type")
}

// attributeToProperty converts a raw cdf attribute value ([]uint8,
// string, []int16, []int32, []float32 or []float64) into a Metadata
// property: a trimmed string for CHAR attributes, a *VariantArray for
// every numeric kind.
func attributeToProperty(raw interface{}) interface{} {
	switch v := raw.(type) {
	case string:
		return strings.TrimRight(v, "\x00")
	case []uint8:
		return cfpipe.NewVariantArrayFromUint8(v)
	case []int16:
		return cfpipe.NewVariantArrayFromInt16(v)
	case []int32:
		return cfpipe.NewVariantArrayFromInt32(v)
	case []float32:
		return cfpipe.NewVariantArrayFromFloat32(v)
	case []float64:
		return cfpipe.NewVariantArrayFromFloat64(v)
	}
	return nil
}

func trimText(raw interface{}) string {
	if s, ok := raw.(string); ok {
		return strings.TrimRight(s, "\x00")
	}
	if b, ok := raw.([]uint8); ok {
		return strings.TrimRight(string(b), "\x00")
	}
	return ""
}

// toFloat64Slice coerces a slice returned by a cdf.Reader into
// []float64.
func toFloat64Slice(raw interface{}) ([]float64, error) {
	switch v := raw.(type) {
	case []uint8:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	case []int16:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	case []int32:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	case []float32:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	case []float64:
		return v, nil
	}
	return nil, fmt.Errorf("cannot coerce %T to []float64", raw)
}

// wrapVariantArray wraps a slice returned by a cdf.Reader into a
// *VariantArray of the matching Kind.
func wrapVariantArray(raw interface{}) (*cfpipe.VariantArray, error) {
	switch v := raw.(type) {
	case []uint8:
		return cfpipe.NewVariantArrayFromUint8(v), nil
	case []int16:
		return cfpipe.NewVariantArrayFromInt16(v), nil
	case []int32:
		return cfpipe.NewVariantArrayFromInt32(v), nil
	case []float32:
		return cfpipe.NewVariantArrayFromFloat32(v), nil
	case []float64:
		return cfpipe.NewVariantArrayFromFloat64(v), nil
	}
	return nil, fmt.Errorf("cannot wrap %T as a variant array", raw)
}
