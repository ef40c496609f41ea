package cfpipe

import (
	"testing"

	"gonum.org/v1/gonum/floats"
)

func TestBStreamPrimitivesRoundTrip(t *testing.T) {
	w := NewBWriter()
	w.WriteUint8(7)
	w.WriteUint16(1000)
	w.WriteUint32(100000)
	w.WriteUint64(1 << 40)
	w.WriteInt64(-42)
	w.WriteFloat32(3.5)
	w.WriteFloat64(2.718281828)
	w.WriteString("cfpipe")

	r := NewBReader(w.Bytes())
	if v, err := r.ReadUint8(); err != nil || v != 7 {
		t.Fatalf("ReadUint8 = %v, %v", v, err)
	}
	if v, err := r.ReadUint16(); err != nil || v != 1000 {
		t.Fatalf("ReadUint16 = %v, %v", v, err)
	}
	if v, err := r.ReadUint32(); err != nil || v != 100000 {
		t.Fatalf("ReadUint32 = %v, %v", v, err)
	}
	if v, err := r.ReadUint64(); err != nil || v != 1<<40 {
		t.Fatalf("ReadUint64 = %v, %v", v, err)
	}
	if v, err := r.ReadInt64(); err != nil || v != -42 {
		t.Fatalf("ReadInt64 = %v, %v", v, err)
	}
	if v, err := r.ReadFloat32(); err != nil || v != 3.5 {
		t.Fatalf("ReadFloat32 = %v, %v", v, err)
	}
	if v, err := r.ReadFloat64(); err != nil || v != 2.718281828 {
		t.Fatalf("ReadFloat64 = %v, %v", v, err)
	}
	if v, err := r.ReadString(); err != nil || v != "cfpipe" {
		t.Fatalf("ReadString = %q, %v", v, err)
	}
}

func TestBStreamShortReadErrors(t *testing.T) {
	r := NewBReader([]byte{1, 2})
	if _, err := r.ReadUint64(); err == nil {
		t.Fatalf("ReadUint64 on a 2-byte buffer should error")
	}
}

func TestBStreamVariantArrayRoundTrip(t *testing.T) {
	cases := []*VariantArray{
		NewVariantArrayFromInt8([]int8{-1, 0, 1}),
		NewVariantArrayFromUint32([]uint32{1, 2, 3, 4}),
		NewVariantArrayFromFloat64([]float64{1.5, -2.5, 3.25}),
		NewVariantArrayFromBytes([][]byte{[]byte("lon"), []byte("lat")}),
	}
	for _, a := range cases {
		w := NewBWriter()
		if err := w.WriteVariantArray(a); err != nil {
			t.Fatalf("WriteVariantArray(%v): %v", a.Kind(), err)
		}
		r := NewBReader(w.Bytes())
		got, err := r.ReadVariantArray()
		if err != nil {
			t.Fatalf("ReadVariantArray(%v): %v", a.Kind(), err)
		}
		if !a.Equal(got) {
			t.Fatalf("round trip mismatch for kind %v: %v != %v", a.Kind(), a, got)
		}
	}
}

func TestBStreamMetadataRoundTrip(t *testing.T) {
	inner := NewMetadata()
	inner.Set("units", "degrees_east")
	inner.Set("axis", "X")

	m := NewMetadata()
	m.Set("time_step", 5)
	m.Set("calendar", "standard")
	m.Set("whole_extent", Extent{0, 99, 0, 49, 0, 0})
	m.Set("variables", []string{"O3", "NOx", "time"})
	m.Set("step_count", []uint64{10, 10, 5})
	m.Set("coordinates", inner)
	m.Set("x", NewVariantArrayFromFloat64([]float64{1, 2, 3}))
	m.Set("finalized", true)

	w := NewBWriter()
	if err := w.WriteMetadata(m); err != nil {
		t.Fatalf("WriteMetadata: %v", err)
	}
	r := NewBReader(w.Bytes())
	got, err := r.ReadMetadata()
	if err != nil {
		t.Fatalf("ReadMetadata: %v", err)
	}
	if !got.Equal(m) {
		t.Fatalf("round-tripped metadata does not equal the original:\nwant %+v\ngot  %+v", m, got)
	}
}

func TestBStreamFloatArrayRoundTripPreservesValues(t *testing.T) {
	want := []float64{0.1, 1.0 / 3.0, -2.5, 1e10, 1e-10}
	a := NewVariantArrayFromFloat64(want)

	w := NewBWriter()
	if err := w.WriteVariantArray(a); err != nil {
		t.Fatalf("WriteVariantArray: %v", err)
	}
	r := NewBReader(w.Bytes())
	got, err := r.ReadVariantArray()
	if err != nil {
		t.Fatalf("ReadVariantArray: %v", err)
	}

	gotValues := make([]float64, got.Size())
	for i := range gotValues {
		gotValues[i] = got.GetFloat64(i)
	}
	if !floats.EqualApprox(want, gotValues, 1e-12) {
		t.Fatalf("round trip drifted beyond tolerance: want %v, got %v", want, gotValues)
	}
}

func TestBStreamRewind(t *testing.T) {
	w := NewBWriter()
	w.WriteUint32(123)
	r := NewBReader(w.Bytes())
	v1, _ := r.ReadUint32()
	r.Rewind()
	v2, _ := r.ReadUint32()
	if v1 != v2 || v1 != 123 {
		t.Fatalf("Rewind did not reset to the same value: %v, %v", v1, v2)
	}
}
