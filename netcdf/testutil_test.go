package netcdf

import (
	"fmt"
	"sync"

	"github.com/ctessum/cdf"
)

// memRW is an in-memory cdf.ReaderWriterAt backed by a growable
// byte slice, so tests can build synthetic NetCDF fixtures with
// cdf.NewHeader/cdf.Create without touching the filesystem.
type memRW struct {
	mu   sync.Mutex
	data []byte
}

func newMemRW() *memRW { return &memRW{} }

// Size reports the in-memory file's current length, satisfying the
// sizer interface HandleCache.FileSize uses for non-*os.File storage.
func (m *memRW) Size() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.data))
}

func (m *memRW) ReadAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if off < 0 || off > int64(len(m.data)) {
		return 0, fmt.Errorf("memRW: ReadAt offset %d out of range", off)
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, fmt.Errorf("memRW: short read at %d", off)
	}
	return n, nil
}

func (m *memRW) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	end := off + int64(len(p))
	if end > int64(len(m.data)) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	return copy(m.data[off:end], p), nil
}

// memOpen returns an OpenFunc serving the given named in-memory
// files, so HandleCache.GetHandle("a.nc") resolves to files["a.nc"].
func memOpen(files map[string]*memRW) OpenFunc {
	return func(path string) (cdf.ReaderWriterAt, error) {
		f, ok := files[path]
		if !ok {
			return nil, fmt.Errorf("memRW: no such file %q", path)
		}
		return f, nil
	}
}
