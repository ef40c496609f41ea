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

import "fmt"

// Metadata is an ordered string-keyed map of properties. A property
// is a scalar, a fixed-length tuple of scalars, a *VariantArray, a
// list of strings, or a nested Metadata. Reports and requests
// exchanged between pipeline stages are Metadata values.
type Metadata struct {
	keys []string
	data map[string]interface{}
}

// NewMetadata returns an empty Metadata.
func NewMetadata() Metadata {
	return Metadata{data: make(map[string]interface{})}
}

// Empty reports whether m has zero keys.
func (m Metadata) Empty() bool { return len(m.keys) == 0 }

// Keys returns m's keys in insertion order.
func (m Metadata) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Set inserts or overwrites key with val, preserving the original
// insertion position on overwrite.
func (m *Metadata) Set(key string, val interface{}) {
	if m.data == nil {
		m.data = make(map[string]interface{})
	}
	if _, ok := m.data[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.data[key] = val
}

// Has reports whether key is present.
func (m Metadata) Has(key string) bool {
	_, ok := m.data[key]
	return ok
}

// Get returns the raw value stored under key.
func (m Metadata) Get(key string) (interface{}, bool) {
	v, ok := m.data[key]
	return v, ok
}

// GetString returns the string stored under key.
func (m Metadata) GetString(key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", fmt.Errorf("cfpipe: metadata missing key %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("cfpipe: metadata key %q is a %T, not a string", key, v)
	}
	return s, nil
}

// GetInt returns an int-valued scalar stored under key, coercing from
// any of the usual integer widths.
func (m Metadata) GetInt(key string) (int, error) {
	v, ok := m.data[key]
	if !ok {
		return 0, fmt.Errorf("cfpipe: metadata missing key %q", key)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case uint:
		return int(n), nil
	case uint32:
		return int(n), nil
	case uint64:
		return int(n), nil
	}
	return 0, fmt.Errorf("cfpipe: metadata key %q is a %T, not an integer", key, v)
}

// GetFloat64 returns a float64-valued scalar stored under key.
func (m Metadata) GetFloat64(key string) (float64, error) {
	v, ok := m.data[key]
	if !ok {
		return 0, fmt.Errorf("cfpipe: metadata missing key %q", key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	}
	return 0, fmt.Errorf("cfpipe: metadata key %q is a %T, not a float", key, v)
}

// GetStringSlice returns a []string stored under key.
func (m Metadata) GetStringSlice(key string) ([]string, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, fmt.Errorf("cfpipe: metadata missing key %q", key)
	}
	s, ok := v.([]string)
	if !ok {
		return nil, fmt.Errorf("cfpipe: metadata key %q is a %T, not []string", key, v)
	}
	return s, nil
}

// GetIntSlice returns a []int stored under key.
func (m Metadata) GetIntSlice(key string) ([]int, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, fmt.Errorf("cfpipe: metadata missing key %q", key)
	}
	switch s := v.(type) {
	case []int:
		return s, nil
	case []uint64:
		out := make([]int, len(s))
		for i, n := range s {
			out[i] = int(n)
		}
		return out, nil
	}
	return nil, fmt.Errorf("cfpipe: metadata key %q is a %T, not []int", key, v)
}

// Extent is the inclusive 6-tuple [i0,i1,j0,j1,k0,k1] index bounds
// used for "extent" and "whole_extent" metadata properties.
type Extent [6]int

// GetExtent returns the Extent stored under key.
func (m Metadata) GetExtent(key string) (Extent, error) {
	v, ok := m.data[key]
	if !ok {
		return Extent{}, fmt.Errorf("cfpipe: metadata missing key %q", key)
	}
	e, ok := v.(Extent)
	if !ok {
		return Extent{}, fmt.Errorf("cfpipe: metadata key %q is a %T, not an Extent", key, v)
	}
	return e, nil
}

// GetMetadata returns the nested Metadata stored under key.
func (m Metadata) GetMetadata(key string) (Metadata, error) {
	v, ok := m.data[key]
	if !ok {
		return Metadata{}, fmt.Errorf("cfpipe: metadata missing key %q", key)
	}
	n, ok := v.(Metadata)
	if !ok {
		return Metadata{}, fmt.Errorf("cfpipe: metadata key %q is a %T, not a nested Metadata", key, v)
	}
	return n, nil
}

// GetVariantArray returns the *VariantArray stored under key.
func (m Metadata) GetVariantArray(key string) (*VariantArray, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, fmt.Errorf("cfpipe: metadata missing key %q", key)
	}
	a, ok := v.(*VariantArray)
	if !ok {
		return nil, fmt.Errorf("cfpipe: metadata key %q is a %T, not a *VariantArray", key, v)
	}
	return a, nil
}

// Clone returns a deep copy of m: nested Metadata, *VariantArray and
// slice-valued properties are all duplicated rather than shared.
// Ownership rules (see spec §3) require metadata to always be
// deep-copied between stages.
func (m Metadata) Clone() Metadata {
	out := NewMetadata()
	for _, k := range m.keys {
		out.Set(k, cloneProperty(m.data[k]))
	}
	return out
}

func cloneProperty(v interface{}) interface{} {
	switch p := v.(type) {
	case Metadata:
		return p.Clone()
	case *VariantArray:
		if p == nil {
			return p
		}
		return p.NewCopy(0, p.Size()-1)
	case []string:
		return append([]string(nil), p...)
	case []int:
		return append([]int(nil), p...)
	case []uint64:
		return append([]uint64(nil), p...)
	default:
		return v
	}
}

// Equal reports whether m and other have identical keys, in the same
// order, with deeply-equal values.
func (m Metadata) Equal(other Metadata) bool {
	if len(m.keys) != len(other.keys) {
		return false
	}
	for i, k := range m.keys {
		if other.keys[i] != k {
			return false
		}
		if !propertyEqual(m.data[k], other.data[k]) {
			return false
		}
	}
	return true
}

func propertyEqual(a, b interface{}) bool {
	switch av := a.(type) {
	case Metadata:
		bv, ok := b.(Metadata)
		return ok && av.Equal(bv)
	case *VariantArray:
		bv, ok := b.(*VariantArray)
		return ok && av.Equal(bv)
	case []string:
		bv, ok := b.([]string)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case []int:
		bv, ok := b.([]int)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case []uint64:
		bv, ok := b.([]uint64)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
