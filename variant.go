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

// Kind identifies the element type carried by a VariantArray. The set
// is closed: every NetCDF numeric type cfpipe supports has exactly one
// Kind, and no caller can register a new one.
type Kind int

const (
	KindInt8 Kind = iota
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindBytes
)

func (k Kind) String() string {
	switch k {
	case KindInt8:
		return "int8"
	case KindInt16:
		return "int16"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindUint8:
		return "uint8"
	case KindUint16:
		return "uint16"
	case KindUint32:
		return "uint32"
	case KindUint64:
		return "uint64"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	case KindBytes:
		return "bytes"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// VariantArray is a homogeneous, type-tagged sequence of numeric
// values or byte strings. The element Kind is fixed at creation and
// never changes.
type VariantArray struct {
	kind Kind
	i8   []int8
	i16  []int16
	i32  []int32
	i64  []int64
	u8   []uint8
	u16  []uint16
	u32  []uint32
	u64  []uint64
	f32  []float32
	f64  []float64
	byt  [][]byte
}

// NewVariantArray allocates a zeroed VariantArray of the given kind
// and length.
func NewVariantArray(kind Kind, n int) *VariantArray {
	a := &VariantArray{kind: kind}
	switch kind {
	case KindInt8:
		a.i8 = make([]int8, n)
	case KindInt16:
		a.i16 = make([]int16, n)
	case KindInt32:
		a.i32 = make([]int32, n)
	case KindInt64:
		a.i64 = make([]int64, n)
	case KindUint8:
		a.u8 = make([]uint8, n)
	case KindUint16:
		a.u16 = make([]uint16, n)
	case KindUint32:
		a.u32 = make([]uint32, n)
	case KindUint64:
		a.u64 = make([]uint64, n)
	case KindFloat32:
		a.f32 = make([]float32, n)
	case KindFloat64:
		a.f64 = make([]float64, n)
	case KindBytes:
		a.byt = make([][]byte, n)
	default:
		panic(fmt.Sprintf("cfpipe: unknown variant array kind %d", int(kind)))
	}
	return a
}

// NewVariantArrayFromInt8 and its siblings wrap an existing Go slice
// without copying. The caller must not mutate the slice afterward
// except through the returned VariantArray.
func NewVariantArrayFromInt8(v []int8) *VariantArray       { return &VariantArray{kind: KindInt8, i8: v} }
func NewVariantArrayFromInt16(v []int16) *VariantArray      { return &VariantArray{kind: KindInt16, i16: v} }
func NewVariantArrayFromInt32(v []int32) *VariantArray      { return &VariantArray{kind: KindInt32, i32: v} }
func NewVariantArrayFromInt64(v []int64) *VariantArray      { return &VariantArray{kind: KindInt64, i64: v} }
func NewVariantArrayFromUint8(v []uint8) *VariantArray      { return &VariantArray{kind: KindUint8, u8: v} }
func NewVariantArrayFromUint16(v []uint16) *VariantArray    { return &VariantArray{kind: KindUint16, u16: v} }
func NewVariantArrayFromUint32(v []uint32) *VariantArray    { return &VariantArray{kind: KindUint32, u32: v} }
func NewVariantArrayFromUint64(v []uint64) *VariantArray    { return &VariantArray{kind: KindUint64, u64: v} }
func NewVariantArrayFromFloat32(v []float32) *VariantArray  { return &VariantArray{kind: KindFloat32, f32: v} }
func NewVariantArrayFromFloat64(v []float64) *VariantArray  { return &VariantArray{kind: KindFloat64, f64: v} }
func NewVariantArrayFromBytes(v [][]byte) *VariantArray     { return &VariantArray{kind: KindBytes, byt: v} }

// Kind returns the array's element kind.
func (a *VariantArray) Kind() Kind { return a.kind }

// TypeCode returns a stable integer tag for the array's kind, for use
// in serialized streams.
func (a *VariantArray) TypeCode() int { return int(a.kind) }

// Size returns the number of elements in a.
func (a *VariantArray) Size() int {
	switch a.kind {
	case KindInt8:
		return len(a.i8)
	case KindInt16:
		return len(a.i16)
	case KindInt32:
		return len(a.i32)
	case KindInt64:
		return len(a.i64)
	case KindUint8:
		return len(a.u8)
	case KindUint16:
		return len(a.u16)
	case KindUint32:
		return len(a.u32)
	case KindUint64:
		return len(a.u64)
	case KindFloat32:
		return len(a.f32)
	case KindFloat64:
		return len(a.f64)
	case KindBytes:
		return len(a.byt)
	}
	return 0
}

// Resize grows or shrinks a in place, zero-filling any newly added
// elements.
func (a *VariantArray) Resize(n int) {
	switch a.kind {
	case KindInt8:
		a.i8 = resize(a.i8, n)
	case KindInt16:
		a.i16 = resize(a.i16, n)
	case KindInt32:
		a.i32 = resize(a.i32, n)
	case KindInt64:
		a.i64 = resize(a.i64, n)
	case KindUint8:
		a.u8 = resize(a.u8, n)
	case KindUint16:
		a.u16 = resize(a.u16, n)
	case KindUint32:
		a.u32 = resize(a.u32, n)
	case KindUint64:
		a.u64 = resize(a.u64, n)
	case KindFloat32:
		a.f32 = resize(a.f32, n)
	case KindFloat64:
		a.f64 = resize(a.f64, n)
	case KindBytes:
		a.byt = resize(a.byt, n)
	}
}

func resize[T any](s []T, n int) []T {
	if n <= len(s) {
		return s[:n]
	}
	out := make([]T, n)
	copy(out, s)
	return out
}

// Append adds the contents of other to the end of a. It is an error
// for the two arrays to have different kinds.
func (a *VariantArray) Append(other *VariantArray) error {
	if a.kind != other.kind {
		return fmt.Errorf("cfpipe: variant array append: kind mismatch %v != %v", a.kind, other.kind)
	}
	switch a.kind {
	case KindInt8:
		a.i8 = append(a.i8, other.i8...)
	case KindInt16:
		a.i16 = append(a.i16, other.i16...)
	case KindInt32:
		a.i32 = append(a.i32, other.i32...)
	case KindInt64:
		a.i64 = append(a.i64, other.i64...)
	case KindUint8:
		a.u8 = append(a.u8, other.u8...)
	case KindUint16:
		a.u16 = append(a.u16, other.u16...)
	case KindUint32:
		a.u32 = append(a.u32, other.u32...)
	case KindUint64:
		a.u64 = append(a.u64, other.u64...)
	case KindFloat32:
		a.f32 = append(a.f32, other.f32...)
	case KindFloat64:
		a.f64 = append(a.f64, other.f64...)
	case KindBytes:
		a.byt = append(a.byt, other.byt...)
	}
	return nil
}

// Get returns the value at index i as its native Go type (one of the
// int/uint/float families, or []byte for KindBytes).
func (a *VariantArray) Get(i int) interface{} {
	switch a.kind {
	case KindInt8:
		return a.i8[i]
	case KindInt16:
		return a.i16[i]
	case KindInt32:
		return a.i32[i]
	case KindInt64:
		return a.i64[i]
	case KindUint8:
		return a.u8[i]
	case KindUint16:
		return a.u16[i]
	case KindUint32:
		return a.u32[i]
	case KindUint64:
		return a.u64[i]
	case KindFloat32:
		return a.f32[i]
	case KindFloat64:
		return a.f64[i]
	case KindBytes:
		return a.byt[i]
	}
	return nil
}

// GetFloat64 returns the value at index i coerced to float64. It
// panics for KindBytes.
func (a *VariantArray) GetFloat64(i int) float64 {
	switch a.kind {
	case KindInt8:
		return float64(a.i8[i])
	case KindInt16:
		return float64(a.i16[i])
	case KindInt32:
		return float64(a.i32[i])
	case KindInt64:
		return float64(a.i64[i])
	case KindUint8:
		return float64(a.u8[i])
	case KindUint16:
		return float64(a.u16[i])
	case KindUint32:
		return float64(a.u32[i])
	case KindUint64:
		return float64(a.u64[i])
	case KindFloat32:
		return float64(a.f32[i])
	case KindFloat64:
		return a.f64[i]
	}
	panic("cfpipe: GetFloat64 called on a bytes-kind variant array")
}

// Set assigns val to index i, numerically coercing val (which may be
// any Go int/uint/float type, or []byte/string for KindBytes) to a's
// kind.
func (a *VariantArray) Set(i int, val interface{}) error {
	if a.kind == KindBytes {
		switch v := val.(type) {
		case []byte:
			a.byt[i] = v
		case string:
			a.byt[i] = []byte(v)
		default:
			return fmt.Errorf("cfpipe: variant array set: cannot assign %T to a bytes array", val)
		}
		return nil
	}
	f, err := toFloat64(val)
	if err != nil {
		return err
	}
	switch a.kind {
	case KindInt8:
		a.i8[i] = int8(f)
	case KindInt16:
		a.i16[i] = int16(f)
	case KindInt32:
		a.i32[i] = int32(f)
	case KindInt64:
		a.i64[i] = int64(f)
	case KindUint8:
		a.u8[i] = uint8(f)
	case KindUint16:
		a.u16[i] = uint16(f)
	case KindUint32:
		a.u32[i] = uint32(f)
	case KindUint64:
		a.u64[i] = uint64(f)
	case KindFloat32:
		a.f32[i] = float32(f)
	case KindFloat64:
		a.f64[i] = f
	}
	return nil
}

func toFloat64(val interface{}) (float64, error) {
	switch v := val.(type) {
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	}
	return 0, fmt.Errorf("cfpipe: variant array set: cannot coerce %T to a numeric kind", val)
}

// NewCopy returns a new VariantArray containing the elements of a in
// the inclusive range [lo, hi], preserving a's kind.
func (a *VariantArray) NewCopy(lo, hi int) *VariantArray {
	n := hi - lo + 1
	out := NewVariantArray(a.kind, n)
	switch a.kind {
	case KindInt8:
		copy(out.i8, a.i8[lo:hi+1])
	case KindInt16:
		copy(out.i16, a.i16[lo:hi+1])
	case KindInt32:
		copy(out.i32, a.i32[lo:hi+1])
	case KindInt64:
		copy(out.i64, a.i64[lo:hi+1])
	case KindUint8:
		copy(out.u8, a.u8[lo:hi+1])
	case KindUint16:
		copy(out.u16, a.u16[lo:hi+1])
	case KindUint32:
		copy(out.u32, a.u32[lo:hi+1])
	case KindUint64:
		copy(out.u64, a.u64[lo:hi+1])
	case KindFloat32:
		copy(out.f32, a.f32[lo:hi+1])
	case KindFloat64:
		copy(out.f64, a.f64[lo:hi+1])
	case KindBytes:
		copy(out.byt, a.byt[lo:hi+1])
	}
	return out
}

// Equal reports whether a and b have the same kind and elements.
func (a *VariantArray) Equal(b *VariantArray) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.kind != b.kind || a.Size() != b.Size() {
		return false
	}
	switch a.kind {
	case KindBytes:
		for i := range a.byt {
			if string(a.byt[i]) != string(b.byt[i]) {
				return false
			}
		}
		return true
	default:
		for i := 0; i < a.Size(); i++ {
			if a.GetFloat64(i) != b.GetFloat64(i) {
				return false
			}
		}
		return true
	}
}
