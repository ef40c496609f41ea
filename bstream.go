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
	"encoding/binary"
	"fmt"
	"math"
)

// BStream is a length-prefixed little-endian binary encoding for
// Metadata, VariantArray and Dataset values. It is used to broadcast
// catalog reports between MPI ranks (component J) and is intentionally
// not encoding/gob: every field is fixed-width or explicitly
// length-prefixed so the wire format is stable across Go versions.

// propertyTag identifies the encoding of a Metadata property value.
type propertyTag uint8

const (
	tagString propertyTag = iota
	tagInt64
	tagFloat64
	tagBool
	tagStringSlice
	tagIntSlice
	tagUint64Slice
	tagExtent
	tagVariantArray
	tagMetadata
)

// BWriter is an append-only write cursor over an in-memory byte
// buffer.
type BWriter struct {
	buf []byte
}

// NewBWriter returns an empty BWriter.
func NewBWriter() *BWriter { return &BWriter{} }

// Bytes returns the bytes written so far. The returned slice aliases
// the writer's internal buffer.
func (w *BWriter) Bytes() []byte { return w.buf }

func (w *BWriter) WriteUint8(v uint8) { w.buf = append(w.buf, v) }

func (w *BWriter) WriteUint16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *BWriter) WriteUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *BWriter) WriteUint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *BWriter) WriteInt64(v int64)     { w.WriteUint64(uint64(v)) }
func (w *BWriter) WriteFloat32(v float32) { w.WriteUint32(math.Float32bits(v)) }
func (w *BWriter) WriteFloat64(v float64) { w.WriteUint64(math.Float64bits(v)) }

// WriteBytes writes a u64 length prefix followed by the raw bytes.
func (w *BWriter) WriteBytes(v []byte) {
	w.WriteUint64(uint64(len(v)))
	w.buf = append(w.buf, v...)
}

// WriteString writes a u64 length prefix followed by the raw string
// bytes.
func (w *BWriter) WriteString(s string) { w.WriteBytes([]byte(s)) }

// WriteVariantArray writes a u8 kind tag, a u64 element count, then
// the raw elements: fixed-width for numeric kinds, length-prefixed
// for KindBytes.
func (w *BWriter) WriteVariantArray(a *VariantArray) error {
	if a == nil {
		w.WriteUint8(uint8(KindBytes))
		w.WriteUint64(0)
		return nil
	}
	w.WriteUint8(uint8(a.kind))
	n := a.Size()
	w.WriteUint64(uint64(n))
	switch a.kind {
	case KindInt8:
		for _, v := range a.i8 {
			w.WriteUint8(uint8(v))
		}
	case KindInt16:
		for _, v := range a.i16 {
			w.WriteUint16(uint16(v))
		}
	case KindInt32:
		for _, v := range a.i32 {
			w.WriteUint32(uint32(v))
		}
	case KindInt64:
		for _, v := range a.i64 {
			w.WriteInt64(v)
		}
	case KindUint8:
		for _, v := range a.u8 {
			w.WriteUint8(v)
		}
	case KindUint16:
		for _, v := range a.u16 {
			w.WriteUint16(v)
		}
	case KindUint32:
		for _, v := range a.u32 {
			w.WriteUint32(v)
		}
	case KindUint64:
		for _, v := range a.u64 {
			w.WriteUint64(v)
		}
	case KindFloat32:
		for _, v := range a.f32 {
			w.WriteFloat32(v)
		}
	case KindFloat64:
		for _, v := range a.f64 {
			w.WriteFloat64(v)
		}
	case KindBytes:
		for _, v := range a.byt {
			w.WriteBytes(v)
		}
	default:
		return fmt.Errorf("cfpipe: bstream: unknown variant array kind %d", int(a.kind))
	}
	return nil
}

// WriteMetadata writes a u64 key count followed by (key, tagged
// value) pairs in insertion order.
func (w *BWriter) WriteMetadata(m Metadata) error {
	w.WriteUint64(uint64(len(m.keys)))
	for _, k := range m.keys {
		w.WriteString(k)
		if err := w.writeProperty(m.data[k]); err != nil {
			return fmt.Errorf("cfpipe: bstream: key %q: %w", k, err)
		}
	}
	return nil
}

func (w *BWriter) writeProperty(v interface{}) error {
	switch p := v.(type) {
	case string:
		w.WriteUint8(uint8(tagString))
		w.WriteString(p)
	case int:
		w.WriteUint8(uint8(tagInt64))
		w.WriteInt64(int64(p))
	case int64:
		w.WriteUint8(uint8(tagInt64))
		w.WriteInt64(p)
	case float64:
		w.WriteUint8(uint8(tagFloat64))
		w.WriteFloat64(p)
	case bool:
		w.WriteUint8(uint8(tagBool))
		if p {
			w.WriteUint8(1)
		} else {
			w.WriteUint8(0)
		}
	case []string:
		w.WriteUint8(uint8(tagStringSlice))
		w.WriteUint64(uint64(len(p)))
		for _, s := range p {
			w.WriteString(s)
		}
	case []int:
		w.WriteUint8(uint8(tagIntSlice))
		w.WriteUint64(uint64(len(p)))
		for _, n := range p {
			w.WriteInt64(int64(n))
		}
	case []uint64:
		w.WriteUint8(uint8(tagUint64Slice))
		w.WriteUint64(uint64(len(p)))
		for _, n := range p {
			w.WriteUint64(n)
		}
	case Extent:
		w.WriteUint8(uint8(tagExtent))
		for _, n := range p {
			w.WriteInt64(int64(n))
		}
	case *VariantArray:
		w.WriteUint8(uint8(tagVariantArray))
		return w.WriteVariantArray(p)
	case Metadata:
		w.WriteUint8(uint8(tagMetadata))
		return w.WriteMetadata(p)
	default:
		return fmt.Errorf("cfpipe: bstream: cannot encode property of type %T", v)
	}
	return nil
}

// BReader is a sequential read cursor over an in-memory byte buffer
// produced by a BWriter.
type BReader struct {
	buf []byte
	pos int
}

// NewBReader returns a BReader positioned at the start of buf.
func NewBReader(buf []byte) *BReader { return &BReader{buf: buf} }

// Rewind resets the read position to the start of the buffer.
func (r *BReader) Rewind() { r.pos = 0 }

func (r *BReader) need(n int) error {
	if r.pos+n > len(r.buf) {
		return fmt.Errorf("cfpipe: bstream: short read: need %d bytes at offset %d, have %d", n, r.pos, len(r.buf))
	}
	return nil
}

func (r *BReader) ReadUint8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *BReader) ReadUint16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *BReader) ReadUint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *BReader) ReadUint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *BReader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

func (r *BReader) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func (r *BReader) ReadFloat64() (float64, error) {
	v, err := r.ReadUint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

func (r *BReader) ReadBytes() ([]byte, error) {
	n, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	if err := r.need(int(n)); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, r.buf[r.pos:r.pos+int(n)])
	r.pos += int(n)
	return out, nil
}

func (r *BReader) ReadString() (string, error) {
	b, err := r.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadVariantArray reads a value written by WriteVariantArray.
func (r *BReader) ReadVariantArray() (*VariantArray, error) {
	kindByte, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	kind := Kind(kindByte)
	n64, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	n := int(n64)
	a := NewVariantArray(kind, n)
	switch kind {
	case KindInt8:
		for i := 0; i < n; i++ {
			v, err := r.ReadUint8()
			if err != nil {
				return nil, err
			}
			a.i8[i] = int8(v)
		}
	case KindInt16:
		for i := 0; i < n; i++ {
			v, err := r.ReadUint16()
			if err != nil {
				return nil, err
			}
			a.i16[i] = int16(v)
		}
	case KindInt32:
		for i := 0; i < n; i++ {
			v, err := r.ReadUint32()
			if err != nil {
				return nil, err
			}
			a.i32[i] = int32(v)
		}
	case KindInt64:
		for i := 0; i < n; i++ {
			v, err := r.ReadInt64()
			if err != nil {
				return nil, err
			}
			a.i64[i] = v
		}
	case KindUint8:
		for i := 0; i < n; i++ {
			v, err := r.ReadUint8()
			if err != nil {
				return nil, err
			}
			a.u8[i] = v
		}
	case KindUint16:
		for i := 0; i < n; i++ {
			v, err := r.ReadUint16()
			if err != nil {
				return nil, err
			}
			a.u16[i] = v
		}
	case KindUint32:
		for i := 0; i < n; i++ {
			v, err := r.ReadUint32()
			if err != nil {
				return nil, err
			}
			a.u32[i] = v
		}
	case KindUint64:
		for i := 0; i < n; i++ {
			v, err := r.ReadUint64()
			if err != nil {
				return nil, err
			}
			a.u64[i] = v
		}
	case KindFloat32:
		for i := 0; i < n; i++ {
			v, err := r.ReadFloat32()
			if err != nil {
				return nil, err
			}
			a.f32[i] = v
		}
	case KindFloat64:
		for i := 0; i < n; i++ {
			v, err := r.ReadFloat64()
			if err != nil {
				return nil, err
			}
			a.f64[i] = v
		}
	case KindBytes:
		for i := 0; i < n; i++ {
			v, err := r.ReadBytes()
			if err != nil {
				return nil, err
			}
			a.byt[i] = v
		}
	default:
		return nil, fmt.Errorf("cfpipe: bstream: unknown variant array kind %d", int(kind))
	}
	return a, nil
}

// ReadMetadata reads a value written by WriteMetadata.
func (r *BReader) ReadMetadata() (Metadata, error) {
	m := NewMetadata()
	nkeys, err := r.ReadUint64()
	if err != nil {
		return Metadata{}, err
	}
	for i := uint64(0); i < nkeys; i++ {
		key, err := r.ReadString()
		if err != nil {
			return Metadata{}, err
		}
		val, err := r.readProperty()
		if err != nil {
			return Metadata{}, fmt.Errorf("cfpipe: bstream: key %q: %w", key, err)
		}
		m.Set(key, val)
	}
	return m, nil
}

func (r *BReader) readProperty() (interface{}, error) {
	tagByte, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	switch propertyTag(tagByte) {
	case tagString:
		return r.ReadString()
	case tagInt64:
		v, err := r.ReadInt64()
		return int(v), err
	case tagFloat64:
		return r.ReadFloat64()
	case tagBool:
		v, err := r.ReadUint8()
		return v != 0, err
	case tagStringSlice:
		n, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}
		out := make([]string, n)
		for i := range out {
			out[i], err = r.ReadString()
			if err != nil {
				return nil, err
			}
		}
		return out, nil
	case tagIntSlice:
		n, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}
		out := make([]int, n)
		for i := range out {
			v, err := r.ReadInt64()
			if err != nil {
				return nil, err
			}
			out[i] = int(v)
		}
		return out, nil
	case tagUint64Slice:
		n, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}
		out := make([]uint64, n)
		for i := range out {
			out[i], err = r.ReadUint64()
			if err != nil {
				return nil, err
			}
		}
		return out, nil
	case tagExtent:
		var e Extent
		for i := range e {
			v, err := r.ReadInt64()
			if err != nil {
				return nil, err
			}
			e[i] = int(v)
		}
		return e, nil
	case tagVariantArray:
		return r.ReadVariantArray()
	case tagMetadata:
		return r.ReadMetadata()
	}
	return nil, fmt.Errorf("cfpipe: bstream: unknown property tag %d", tagByte)
}
