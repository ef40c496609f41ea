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

// ArrayCollection is an ordered, name-keyed collection of VariantArray
// values. A CartesianMesh owns five of these: point, cell, edge, face
// and information centered data.
type ArrayCollection struct {
	names []string
	data  map[string]*VariantArray
}

// NewArrayCollection returns an empty ArrayCollection.
func NewArrayCollection() *ArrayCollection {
	return &ArrayCollection{data: make(map[string]*VariantArray)}
}

// Size returns the number of arrays in c.
func (c *ArrayCollection) Size() int { return len(c.names) }

// Names returns the array names in insertion order.
func (c *ArrayCollection) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Has reports whether an array named name is present.
func (c *ArrayCollection) Has(name string) bool {
	_, ok := c.data[name]
	return ok
}

// Append inserts arr under name. It is an error for name to already
// be present; use Set to overwrite.
func (c *ArrayCollection) Append(name string, arr *VariantArray) error {
	if _, ok := c.data[name]; ok {
		return fmt.Errorf("cfpipe: array collection already has an array named %q", name)
	}
	c.names = append(c.names, name)
	c.data[name] = arr
	return nil
}

// Set inserts or overwrites the array named name, preserving position
// on overwrite.
func (c *ArrayCollection) Set(name string, arr *VariantArray) {
	if _, ok := c.data[name]; !ok {
		c.names = append(c.names, name)
	}
	c.data[name] = arr
}

// Get returns the array named name.
func (c *ArrayCollection) Get(name string) (*VariantArray, bool) {
	a, ok := c.data[name]
	return a, ok
}

// GetAt returns the i'th array in insertion order, along with its
// name.
func (c *ArrayCollection) GetAt(i int) (string, *VariantArray) {
	name := c.names[i]
	return name, c.data[name]
}

// Remove deletes the array named name, if present.
func (c *ArrayCollection) Remove(name string) {
	if _, ok := c.data[name]; !ok {
		return
	}
	delete(c.data, name)
	for i, n := range c.names {
		if n == name {
			c.names = append(c.names[:i], c.names[i+1:]...)
			break
		}
	}
}

// Copy returns a deep copy of c: every contained array is duplicated.
func (c *ArrayCollection) Copy() *ArrayCollection {
	out := NewArrayCollection()
	for _, name := range c.names {
		a := c.data[name]
		if a == nil {
			out.Set(name, nil)
			continue
		}
		out.Set(name, a.NewCopy(0, a.Size()-1))
	}
	return out
}

// ShallowCopy returns a copy of c whose name ordering is independent
// of c's but whose arrays are shared by reference with c.
func (c *ArrayCollection) ShallowCopy() *ArrayCollection {
	out := NewArrayCollection()
	for _, name := range c.names {
		out.Set(name, c.data[name])
	}
	return out
}

// Equal reports whether c and other contain the same names, in the
// same order, with element-wise equal arrays.
func (c *ArrayCollection) Equal(other *ArrayCollection) bool {
	if c == nil || other == nil {
		return c == other
	}
	if len(c.names) != len(other.names) {
		return false
	}
	for i, name := range c.names {
		if other.names[i] != name {
			return false
		}
		if !c.data[name].Equal(other.data[name]) {
			return false
		}
	}
	return true
}
