package netcdf

import (
	"testing"

	"github.com/ctessum/cdf"
)

func makeTestFile(t *testing.T, values []float64) *memRW {
	t.Helper()
	h := cdf.NewHeader([]string{"x"}, []int{len(values)})
	h.AddVariable("v", []string{"x"}, []float64{})
	h.Define()

	rw := newMemRW()
	f, err := cdf.Create(rw, h)
	if err != nil {
		t.Fatalf("cdf.Create: %v", err)
	}
	w := f.Writer("v", nil, nil)
	if _, err := w.Write(values); err != nil {
		t.Fatalf("write v: %v", err)
	}
	return rw
}

func TestHandleCacheOpensOnce(t *testing.T) {
	rw := makeTestFile(t, []float64{1, 2, 3})
	var opens int
	open := func(path string) (cdf.ReaderWriterAt, error) {
		opens++
		return rw, nil
	}
	c := NewHandleCache(open)

	for i := 0; i < 5; i++ {
		f, mu, err := c.GetHandle("a.nc")
		if err != nil {
			t.Fatalf("GetHandle: %v", err)
		}
		mu.Lock()
		if got := f.Header.Variables(); len(got) != 1 || got[0] != "v" {
			t.Fatalf("Variables() = %v", got)
		}
		mu.Unlock()
	}
	if opens != 1 {
		t.Fatalf("opens = %d, want 1 (lazy, cached open)", opens)
	}
	if c.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", c.Size())
	}
}

func TestHandleCacheDistinctPathsGetDistinctEntries(t *testing.T) {
	files := map[string]*memRW{
		"a.nc": makeTestFile(t, []float64{1, 2}),
		"b.nc": makeTestFile(t, []float64{3, 4, 5}),
	}
	c := NewHandleCache(memOpen(files))

	fa, mua, err := c.GetHandle("a.nc")
	if err != nil {
		t.Fatalf("GetHandle a.nc: %v", err)
	}
	fb, mub, err := c.GetHandle("b.nc")
	if err != nil {
		t.Fatalf("GetHandle b.nc: %v", err)
	}
	if mua == mub {
		t.Fatalf("a.nc and b.nc share a mutex")
	}
	if la, lb := fa.Header.Lengths("v")[0], fb.Header.Lengths("v")[0]; la != 2 || lb != 3 {
		t.Fatalf("lengths = %d, %d, want 2, 3", la, lb)
	}
	if c.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", c.Size())
	}
}

func TestHandleCacheMissingFileReturnsError(t *testing.T) {
	c := NewHandleCache(memOpen(map[string]*memRW{}))
	if _, _, err := c.GetHandle("missing.nc"); err == nil {
		t.Fatalf("GetHandle: want error for missing file")
	}
}

func TestHandleCacheClear(t *testing.T) {
	files := map[string]*memRW{"a.nc": makeTestFile(t, []float64{1})}
	c := NewHandleCache(memOpen(files))
	if _, _, err := c.GetHandle("a.nc"); err != nil {
		t.Fatalf("GetHandle: %v", err)
	}
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if c.Size() != 0 {
		t.Fatalf("Size() = %d, want 0 after Clear", c.Size())
	}
}
