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

// Package netcdf implements the CF-conforming multi-file NetCDF
// reader (component I) on top of github.com/ctessum/cdf, plus the
// path-keyed file-handle cache (component G) that serializes access
// to each open file.
package netcdf

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ctessum/cdf"
)

// OpenFunc opens the backing storage for a NetCDF file named path.
// The default, used by NewHandleCache(nil), opens path read-only from
// the local filesystem; tests substitute an in-memory
// cdf.ReaderWriterAt.
type OpenFunc func(path string) (cdf.ReaderWriterAt, error)

func defaultOpen(path string) (cdf.ReaderWriterAt, error) {
	return os.OpenFile(path, os.O_RDONLY, 0)
}

// handleEntry owns one lazily-opened file and the mutex callers must
// hold while reading from it.
type handleEntry struct {
	once sync.Once
	mu   sync.Mutex
	rw   cdf.ReaderWriterAt
	file *cdf.File
	err  error
}

// HandleCache is a path-keyed cache of open NetCDF files. Every
// distinct path maps to exactly one *cdf.File and one *sync.Mutex
// that every reader of that file must hold for the duration of each
// read, mirroring the reference reader's per-file locking around the
// (non-reentrant) NetCDF library.
type HandleCache struct {
	mu      sync.Mutex
	entries map[string]*handleEntry
	open    OpenFunc
}

// NewHandleCache returns an empty HandleCache. A nil open opens files
// from the local filesystem, read-only.
func NewHandleCache(open OpenFunc) *HandleCache {
	if open == nil {
		open = defaultOpen
	}
	return &HandleCache{entries: make(map[string]*handleEntry), open: open}
}

// GetHandle returns the *cdf.File for path, opening it on first use,
// and the mutex guarding access to it. The file is cached for the
// life of the HandleCache; callers must Lock the returned mutex
// before issuing reads against the file and Unlock it afterward.
func (c *HandleCache) GetHandle(path string) (*cdf.File, *sync.Mutex, error) {
	c.mu.Lock()
	e, ok := c.entries[path]
	if !ok {
		e = &handleEntry{}
		c.entries[path] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		rw, err := c.open(path)
		if err != nil {
			e.err = fmt.Errorf("cfpipe: netcdf: open %s: %w", path, err)
			return
		}
		f, err := cdf.Open(rw)
		if err != nil {
			e.err = fmt.Errorf("cfpipe: netcdf: read header %s: %w", path, err)
			return
		}
		e.rw, e.file = rw, f
	})
	if e.err != nil {
		return nil, nil, e.err
	}
	return e.file, &e.mu, nil
}

// Clear closes every cached handle whose backing storage implements
// io.Closer and empties the cache.
func (c *HandleCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for path, e := range c.entries {
		if closer, ok := e.rw.(io.Closer); ok && closer != nil {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("cfpipe: netcdf: close %s: %w", path, err)
			}
		}
		delete(c.entries, path)
	}
	return firstErr
}

// Size returns the number of distinct paths currently cached.
func (c *HandleCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// sizer is implemented by backing storage that can report its own
// size without a filesystem Stat call, e.g. test fixtures.
type sizer interface {
	Size() int64
}

// FileSize returns the size in bytes of the backing storage for path,
// opening it first if necessary. It is used to compute a record
// variable's actual length, since the NetCDF classic format leaves
// a record dimension's length field at zero.
func (c *HandleCache) FileSize(path string) (int64, error) {
	if _, _, err := c.GetHandle(path); err != nil {
		return 0, err
	}
	c.mu.Lock()
	e := c.entries[path]
	c.mu.Unlock()

	switch rw := e.rw.(type) {
	case *os.File:
		fi, err := rw.Stat()
		if err != nil {
			return 0, fmt.Errorf("cfpipe: netcdf: stat %s: %w", path, err)
		}
		return fi.Size(), nil
	case sizer:
		return rw.Size(), nil
	}
	return 0, fmt.Errorf("cfpipe: netcdf: %s: backing storage does not report its size", path)
}
