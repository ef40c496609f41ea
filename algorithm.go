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
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/golang/groupcache/lru"
)

// Algorithm is the contract every pipeline stage implements: report
// what it can produce, say what it needs from upstream to produce a
// request, and produce it.
type Algorithm interface {
	// GetOutputMetadata returns the report this algorithm would
	// produce on output port, given the reports its upstream
	// connections produced.
	GetOutputMetadata(port int, upstreamReports []Metadata) (Metadata, error)
	// GetUpstreamRequest turns a request on output port into the
	// requests this algorithm needs satisfied on each of its input
	// ports.
	GetUpstreamRequest(port int, upstreamReports []Metadata, request Metadata) ([]Metadata, error)
	// Execute produces the Dataset for output port, given the
	// datasets its inputs produced and the original request.
	Execute(port int, upstreamData []Dataset, request Metadata) (Dataset, error)
}

type portLink struct {
	alg  Algorithm
	port int
}

// AlgorithmBase is embedded by every concrete Algorithm. It owns
// input-port wiring, the bounded per-stage report/data caches keyed
// by a digest of (request, port), and the modified-protocol state: a
// setter on a concrete stage calls SetModified, which clears this
// stage's caches and stamps its next report "modified" so downstream
// stages invalidate their own caches in turn.
type AlgorithmBase struct {
	mu       sync.Mutex
	self     Algorithm
	inputs   []portLink
	modified bool

	reportCache *lru.Cache
	dataCache   *lru.Cache
}

// defaultCacheSize is the number of (request, port) entries retained
// per stage before the LRU starts evicting; it matches the default
// groupcache/lru.New behavior of "no cap unless told otherwise" being
// inappropriate for a long-running pipeline, so cfpipe picks a modest
// default in place of an uncapped cache.
const defaultCacheSize = 32

// Init wires self (the concrete Algorithm embedding this base) into
// the base so Update can dispatch to the concrete GetOutputMetadata,
// GetUpstreamRequest and Execute implementations. Concrete
// constructors must call Init before use.
func (b *AlgorithmBase) Init(self Algorithm) {
	b.self = self
	b.modified = true
	b.reportCache = lru.New(defaultCacheSize)
	b.dataCache = lru.New(defaultCacheSize)
}

// SetInputConnection wires input port inPort of this algorithm to
// output port upstreamPort of upstream.
func (b *AlgorithmBase) SetInputConnection(inPort int, upstream Algorithm, upstreamPort int) {
	for len(b.inputs) <= inPort {
		b.inputs = append(b.inputs, portLink{})
	}
	b.inputs[inPort] = portLink{alg: upstream, port: upstreamPort}
	b.SetModified()
}

// SetModified marks this stage's outputs stale: its caches are
// cleared, and the next report it produces carries modified=true so
// downstream stages clear their caches too.
func (b *AlgorithmBase) SetModified() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.modified = true
	if b.reportCache != nil {
		b.reportCache.Clear()
	}
	if b.dataCache != nil {
		b.dataCache.Clear()
	}
}

func digest(request Metadata, port int) string {
	w := NewBWriter()
	w.WriteUint32(uint32(port))
	_ = w.WriteMetadata(request) // writeProperty only fails on unsupported types, never hit here
	sum := sha256.Sum256(w.Bytes())
	return fmt.Sprintf("%x", sum)
}

// base returns the base of an upstream Algorithm if it embeds
// AlgorithmBase, so the modified protocol can be propagated without
// every Algorithm implementation exposing it explicitly.
type hasBase interface {
	base() *AlgorithmBase
}

func (b *AlgorithmBase) base() *AlgorithmBase { return b }

// UpdateMetadata runs the metadata (report) phase for output port:
// it recursively gathers upstream reports, calls the concrete
// GetOutputMetadata, and caches the result keyed on port alone (the
// report phase carries no request).
func (b *AlgorithmBase) UpdateMetadata(port int) (Metadata, error) {
	b.mu.Lock()
	wasModified := b.modified
	cache := b.reportCache
	b.mu.Unlock()

	// Upstream must always be asked, even when this stage's own cache
	// looks fresh: an upstream SetModified only shows up in the report
	// this call fetches, so skipping the ask would never notice it.
	upstreamReports := make([]Metadata, len(b.inputs))
	upstreamModified := false
	for i, link := range b.inputs {
		if link.alg == nil {
			upstreamReports[i] = NewMetadata()
			continue
		}
		r, err := updateMetadataOf(link.alg, link.port)
		if err != nil {
			return Metadata{}, fmt.Errorf("cfpipe: update metadata: input port %d: %w", i, err)
		}
		if v, ok := r.Get("modified"); ok {
			if m, _ := v.(bool); m {
				upstreamModified = true
			}
		}
		upstreamReports[i] = r
	}

	key := fmt.Sprintf("report:%d", port)
	if !wasModified && !upstreamModified {
		if v, ok := cache.Get(key); ok {
			return v.(Metadata), nil
		}
	}

	report, err := b.self.GetOutputMetadata(port, upstreamReports)
	if err != nil {
		return Metadata{}, fmt.Errorf("cfpipe: update metadata: port %d: %w", port, err)
	}

	b.mu.Lock()
	if wasModified || upstreamModified {
		report.Set("modified", true)
		b.modified = false
	}
	cache.Add(key, report)
	b.mu.Unlock()
	return report, nil
}

// updateMetadataOf calls UpdateMetadata on upstream, going through
// AlgorithmBase when upstream embeds it so the modified protocol
// still applies; otherwise it falls back to a direct
// GetOutputMetadata call with no upstream reports, which is correct
// for a zero-input-port upstream algorithm that doesn't embed
// AlgorithmBase at all.
func updateMetadataOf(alg Algorithm, port int) (Metadata, error) {
	if hb, ok := alg.(hasBase); ok {
		return hb.base().UpdateMetadata(port)
	}
	return alg.GetOutputMetadata(port, nil)
}

// Update runs the full pull: metadata phase, request phase, recursive
// upstream execution, then the concrete Execute, with the result
// cached by a digest of (request, port).
func (b *AlgorithmBase) Update(port int, request Metadata) (Dataset, error) {
	upstreamReports := make([]Metadata, len(b.inputs))
	upstreamModified := false
	for i, link := range b.inputs {
		if link.alg == nil {
			upstreamReports[i] = NewMetadata()
			continue
		}
		r, err := updateMetadataOf(link.alg, link.port)
		if err != nil {
			return nil, fmt.Errorf("cfpipe: update: input port %d metadata: %w", i, err)
		}
		if v, ok := r.Get("modified"); ok {
			if m, _ := v.(bool); m {
				upstreamModified = true
			}
		}
		upstreamReports[i] = r
	}

	key := digest(request, port)
	b.mu.Lock()
	dataCache := b.dataCache
	b.mu.Unlock()
	// SetModified clears this stage's own dataCache, so only an upstream
	// modification can leave a stale entry behind.
	if !upstreamModified {
		if v, ok := dataCache.Get(key); ok {
			return v.(Dataset), nil
		}
	}

	upstreamRequests, err := b.self.GetUpstreamRequest(port, upstreamReports, request)
	if err != nil {
		return nil, fmt.Errorf("cfpipe: update: port %d upstream request: %w", port, err)
	}

	upstreamData := make([]Dataset, len(b.inputs))
	for i, link := range b.inputs {
		if link.alg == nil {
			continue
		}
		var req Metadata
		if i < len(upstreamRequests) {
			req = upstreamRequests[i]
		} else {
			req = NewMetadata()
		}
		d, err := updateOf(link.alg, link.port, req)
		if err != nil {
			return nil, fmt.Errorf("cfpipe: update: input port %d execute: %w", i, err)
		}
		upstreamData[i] = d
	}

	data, err := b.self.Execute(port, upstreamData, request)
	if err != nil {
		return nil, fmt.Errorf("cfpipe: update: port %d execute: %w", port, err)
	}

	b.mu.Lock()
	dataCache.Add(key, data)
	b.mu.Unlock()
	return data, nil
}

func updateOf(alg Algorithm, port int, request Metadata) (Dataset, error) {
	if hb, ok := alg.(hasBase); ok {
		return hb.base().Update(port, request)
	}
	return alg.Execute(port, nil, request)
}
