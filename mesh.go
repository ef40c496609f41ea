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

// Dataset is the payload type exchanged between pipeline stages.
// CartesianMesh is the only concrete Dataset this package provides;
// algorithms that need other representations implement Dataset
// themselves.
type Dataset interface {
	// Copy returns a deep copy: no memory is shared with the receiver.
	Copy() Dataset
	// ShallowCopy returns a copy that shares its arrays with the
	// receiver by reference.
	ShallowCopy() Dataset
	// ToStream serializes the dataset onto w.
	ToStream(w *BWriter) error
	// FromStream replaces the receiver's contents with what was
	// written by a matching ToStream call.
	FromStream(r *BReader) error
	// Empty reports whether the dataset carries no data.
	Empty() bool
}

// cartesianMeshStreamTag identifies a CartesianMesh in a binary
// stream; FromStream rejects a stream that does not start with it.
const cartesianMeshStreamTag uint32 = 0x434d4553 // "CMES"

// CartesianMesh is a structured, axis-aligned grid: three 1-D
// coordinate arrays (x, y, z) plus point-, cell-, edge-, face- and
// information-centered array collections, and a Metadata map carrying
// time, calendar and extent bookkeeping.
type CartesianMesh struct {
	Metadata Metadata

	X *VariantArray
	Y *VariantArray
	Z *VariantArray

	PointArrays       *ArrayCollection
	CellArrays        *ArrayCollection
	EdgeArrays        *ArrayCollection
	FaceArrays        *ArrayCollection
	InformationArrays *ArrayCollection
}

// NewCartesianMesh returns an empty CartesianMesh with all array
// collections allocated.
func NewCartesianMesh() *CartesianMesh {
	return &CartesianMesh{
		Metadata:          NewMetadata(),
		PointArrays:       NewArrayCollection(),
		CellArrays:        NewArrayCollection(),
		EdgeArrays:        NewArrayCollection(),
		FaceArrays:        NewArrayCollection(),
		InformationArrays: NewArrayCollection(),
	}
}

// Empty reports whether m carries neither coordinates nor metadata.
func (m *CartesianMesh) Empty() bool {
	if m == nil {
		return true
	}
	return m.Metadata.Empty() && m.X == nil && m.Y == nil && m.Z == nil
}

// Extent returns the mesh's "extent" metadata property: the inclusive
// index bounds of the sub-volume this mesh instance actually holds.
func (m *CartesianMesh) Extent() (Extent, error) { return m.Metadata.GetExtent("extent") }

// WholeExtent returns the "whole_extent" metadata property: the
// inclusive index bounds of the entire dataset this mesh was cut from.
func (m *CartesianMesh) WholeExtent() (Extent, error) { return m.Metadata.GetExtent("whole_extent") }

// pointDims returns the number of points along x, y and z implied by
// the extent metadata. Used to validate point/cell array lengths.
func (m *CartesianMesh) pointDims() (int, int, int, error) {
	e, err := m.Extent()
	if err != nil {
		return 0, 0, 0, err
	}
	nx := e[1] - e[0] + 1
	ny := e[3] - e[2] + 1
	nz := e[5] - e[4] + 1
	return nx, ny, nz, nil
}

// Validate checks the invariants a CartesianMesh must satisfy: point
// array sizes equal to nx*ny*nz, cell array sizes equal to
// max(nx-1,1)*max(ny-1,1)*max(nz-1,1), and coordinate array sizes
// matching the extent.
func (m *CartesianMesh) Validate() error {
	nx, ny, nz, err := m.pointDims()
	if err != nil {
		return fmt.Errorf("cfpipe: mesh validate: %w", err)
	}
	if m.X != nil && m.X.Size() != nx {
		return fmt.Errorf("cfpipe: mesh validate: x coordinate has %d elements, extent implies %d", m.X.Size(), nx)
	}
	if m.Y != nil && m.Y.Size() != ny {
		return fmt.Errorf("cfpipe: mesh validate: y coordinate has %d elements, extent implies %d", m.Y.Size(), ny)
	}
	if m.Z != nil && m.Z.Size() != nz {
		return fmt.Errorf("cfpipe: mesh validate: z coordinate has %d elements, extent implies %d", m.Z.Size(), nz)
	}
	nPoints := nx * ny * nz
	for _, name := range m.PointArrays.Names() {
		a, _ := m.PointArrays.Get(name)
		if a.Size() != nPoints {
			return fmt.Errorf("cfpipe: mesh validate: point array %q has %d elements, want %d", name, a.Size(), nPoints)
		}
	}
	nCells := cellDim(nx) * cellDim(ny) * cellDim(nz)
	for _, name := range m.CellArrays.Names() {
		a, _ := m.CellArrays.Get(name)
		if a.Size() != nCells {
			return fmt.Errorf("cfpipe: mesh validate: cell array %q has %d elements, want %d", name, a.Size(), nCells)
		}
	}
	return nil
}

func cellDim(n int) int {
	if n <= 1 {
		return 1
	}
	return n - 1
}

// Copy returns a deep copy of m: metadata, coordinates and every
// array collection are duplicated.
func (m *CartesianMesh) Copy() Dataset {
	if m == nil {
		return (*CartesianMesh)(nil)
	}
	out := NewCartesianMesh()
	out.Metadata = m.Metadata.Clone()
	out.X = copyVariantArray(m.X)
	out.Y = copyVariantArray(m.Y)
	out.Z = copyVariantArray(m.Z)
	out.PointArrays = m.PointArrays.Copy()
	out.CellArrays = m.CellArrays.Copy()
	out.EdgeArrays = m.EdgeArrays.Copy()
	out.FaceArrays = m.FaceArrays.Copy()
	out.InformationArrays = m.InformationArrays.Copy()
	return out
}

// ShallowCopy returns a copy of m whose array collections share their
// underlying VariantArrays with m, per the reference-counted dataset
// ownership rule (see spec §3): cheap to produce, must not be mutated
// in place by the receiver.
func (m *CartesianMesh) ShallowCopy() Dataset {
	if m == nil {
		return (*CartesianMesh)(nil)
	}
	out := NewCartesianMesh()
	out.Metadata = m.Metadata.Clone()
	out.X, out.Y, out.Z = m.X, m.Y, m.Z
	out.PointArrays = m.PointArrays.ShallowCopy()
	out.CellArrays = m.CellArrays.ShallowCopy()
	out.EdgeArrays = m.EdgeArrays.ShallowCopy()
	out.FaceArrays = m.FaceArrays.ShallowCopy()
	out.InformationArrays = m.InformationArrays.ShallowCopy()
	return out
}

// Swap exchanges the contents of m and other in place.
func (m *CartesianMesh) Swap(other *CartesianMesh) {
	*m, *other = *other, *m
}

func copyVariantArray(a *VariantArray) *VariantArray {
	if a == nil {
		return nil
	}
	return a.NewCopy(0, a.Size()-1)
}

// ToStream serializes m onto w: a type tag, the metadata map, the
// three coordinate arrays, then the five array collections in a fixed
// order.
func (m *CartesianMesh) ToStream(w *BWriter) error {
	w.WriteUint32(cartesianMeshStreamTag)
	if err := w.WriteMetadata(m.Metadata); err != nil {
		return fmt.Errorf("cfpipe: mesh to stream: metadata: %w", err)
	}
	for _, a := range []*VariantArray{m.X, m.Y, m.Z} {
		if err := w.WriteVariantArray(a); err != nil {
			return fmt.Errorf("cfpipe: mesh to stream: coordinate: %w", err)
		}
	}
	for _, c := range m.collections() {
		if err := writeArrayCollection(w, c); err != nil {
			return fmt.Errorf("cfpipe: mesh to stream: arrays: %w", err)
		}
	}
	return nil
}

// FromStream replaces m's contents with a value written by ToStream.
func (m *CartesianMesh) FromStream(r *BReader) error {
	tag, err := r.ReadUint32()
	if err != nil {
		return fmt.Errorf("cfpipe: mesh from stream: %w", err)
	}
	if tag != cartesianMeshStreamTag {
		return fmt.Errorf("cfpipe: mesh from stream: unexpected type tag 0x%x", tag)
	}
	md, err := r.ReadMetadata()
	if err != nil {
		return fmt.Errorf("cfpipe: mesh from stream: metadata: %w", err)
	}
	m.Metadata = md
	coords := make([]*VariantArray, 3)
	for i := range coords {
		coords[i], err = r.ReadVariantArray()
		if err != nil {
			return fmt.Errorf("cfpipe: mesh from stream: coordinate: %w", err)
		}
	}
	m.X, m.Y, m.Z = coords[0], coords[1], coords[2]
	collections := m.collections()
	for _, c := range collections {
		if err := readArrayCollection(r, c); err != nil {
			return fmt.Errorf("cfpipe: mesh from stream: arrays: %w", err)
		}
	}
	return nil
}

func (m *CartesianMesh) collections() []*ArrayCollection {
	return []*ArrayCollection{
		m.PointArrays, m.CellArrays, m.EdgeArrays, m.FaceArrays,
		m.InformationArrays,
	}
}

func writeArrayCollection(w *BWriter, c *ArrayCollection) error {
	w.WriteUint64(uint64(c.Size()))
	for _, name := range c.Names() {
		a, _ := c.Get(name)
		w.WriteString(name)
		if err := w.WriteVariantArray(a); err != nil {
			return err
		}
	}
	return nil
}

func readArrayCollection(r *BReader, c *ArrayCollection) error {
	n, err := r.ReadUint64()
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		name, err := r.ReadString()
		if err != nil {
			return err
		}
		a, err := r.ReadVariantArray()
		if err != nil {
			return err
		}
		c.Set(name, a)
	}
	return nil
}

// Equal reports whether m and other carry the same metadata,
// coordinates and array collections.
func (m *CartesianMesh) Equal(other *CartesianMesh) bool {
	if m == nil || other == nil {
		return m == other
	}
	if !m.Metadata.Equal(other.Metadata) {
		return false
	}
	if !m.X.Equal(other.X) || !m.Y.Equal(other.Y) || !m.Z.Equal(other.Z) {
		return false
	}
	a, b := m.collections(), other.collections()
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
