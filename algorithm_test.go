package cfpipe

import "testing"

// countingSource is a zero-input-port test Algorithm that reports a
// fixed number of time steps and produces a 1-point CartesianMesh
// tagged with the requested time_step. It counts how many times
// Execute actually runs, so tests can assert on cache behavior.
type countingSource struct {
	AlgorithmBase
	numSteps     int
	executeCalls int
}

func newCountingSource(numSteps int) *countingSource {
	s := &countingSource{numSteps: numSteps}
	s.Init(s)
	return s
}

func (s *countingSource) GetOutputMetadata(port int, upstreamReports []Metadata) (Metadata, error) {
	m := NewMetadata()
	m.Set("number_of_time_steps", s.numSteps)
	return m, nil
}

func (s *countingSource) GetUpstreamRequest(port int, upstreamReports []Metadata, request Metadata) ([]Metadata, error) {
	return nil, nil
}

func (s *countingSource) Execute(port int, upstreamData []Dataset, request Metadata) (Dataset, error) {
	s.executeCalls++
	ts, _ := request.GetInt("time_step")
	mesh := NewCartesianMesh()
	mesh.Metadata.Set("time_step", ts)
	mesh.Metadata.Set("extent", Extent{0, 0, 0, 0, 0, 0})
	mesh.Metadata.Set("whole_extent", Extent{0, 0, 0, 0, 0, 0})
	mesh.X = NewVariantArrayFromFloat64([]float64{0})
	mesh.PointArrays.Set("v", NewVariantArrayFromFloat64([]float64{float64(ts)}))
	return mesh, nil
}

// passThrough forwards its single input to its single output
// unchanged, to exercise multi-stage Update chaining.
type passThrough struct {
	AlgorithmBase
}

func newPassThrough() *passThrough {
	p := &passThrough{}
	p.Init(p)
	return p
}

func (p *passThrough) GetOutputMetadata(port int, upstreamReports []Metadata) (Metadata, error) {
	if len(upstreamReports) == 0 {
		return NewMetadata(), nil
	}
	return upstreamReports[0], nil
}

func (p *passThrough) GetUpstreamRequest(port int, upstreamReports []Metadata, request Metadata) ([]Metadata, error) {
	return []Metadata{request}, nil
}

func (p *passThrough) Execute(port int, upstreamData []Dataset, request Metadata) (Dataset, error) {
	return upstreamData[0], nil
}

func TestAlgorithmUpdateProducesExpectedData(t *testing.T) {
	src := newCountingSource(4)
	req := NewMetadata()
	req.Set("time_step", 2)

	data, err := src.Update(0, req)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	mesh := data.(*CartesianMesh)
	ts, err := mesh.Metadata.GetInt("time_step")
	if err != nil || ts != 2 {
		t.Fatalf("time_step = %v, %v, want 2", ts, err)
	}
}

func TestAlgorithmUpdateCachesByRequestDigest(t *testing.T) {
	src := newCountingSource(4)

	req := NewMetadata()
	req.Set("time_step", 1)

	if _, err := src.Update(0, req); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := src.Update(0, req); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if src.executeCalls != 1 {
		t.Fatalf("executeCalls = %d, want 1 (second call should hit the cache)", src.executeCalls)
	}

	other := NewMetadata()
	other.Set("time_step", 2)
	if _, err := src.Update(0, other); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if src.executeCalls != 2 {
		t.Fatalf("executeCalls = %d, want 2 (different request should miss the cache)", src.executeCalls)
	}
}

func TestAlgorithmSetModifiedInvalidatesCache(t *testing.T) {
	src := newCountingSource(4)
	req := NewMetadata()
	req.Set("time_step", 0)

	if _, err := src.Update(0, req); err != nil {
		t.Fatalf("Update: %v", err)
	}
	src.SetModified()
	if _, err := src.Update(0, req); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if src.executeCalls != 2 {
		t.Fatalf("executeCalls = %d, want 2 (SetModified should force re-execution)", src.executeCalls)
	}
}

func TestAlgorithmModifiedPropagatesThroughDownstreamCache(t *testing.T) {
	src := newCountingSource(3)
	pt := newPassThrough()
	pt.SetInputConnection(0, src, 0)

	req := NewMetadata()
	req.Set("time_step", 1)

	if _, err := pt.Update(0, req); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if src.executeCalls != 1 {
		t.Fatalf("executeCalls = %d, want 1", src.executeCalls)
	}

	// SetModified on the upstream source alone, not on the downstream
	// pass-through. The pass-through's own dataCache/reportCache still
	// look fresh, but it must notice the upstream report carries
	// modified=true and refuse to serve its stale cache.
	src.SetModified()

	if _, err := pt.UpdateMetadata(0); err != nil {
		t.Fatalf("UpdateMetadata: %v", err)
	}
	if _, err := pt.Update(0, req); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if src.executeCalls != 2 {
		t.Fatalf("executeCalls = %d, want 2 (downstream cache should have been bypassed after upstream SetModified)", src.executeCalls)
	}
}

func TestAlgorithmChainedUpdate(t *testing.T) {
	src := newCountingSource(3)
	pt := newPassThrough()
	pt.SetInputConnection(0, src, 0)

	req := NewMetadata()
	req.Set("time_step", 1)
	data, err := pt.Update(0, req)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	mesh := data.(*CartesianMesh)
	ts, _ := mesh.Metadata.GetInt("time_step")
	if ts != 1 {
		t.Fatalf("time_step = %d, want 1", ts)
	}
}
