package cfpipe

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
)

func TestMetadataEmpty(t *testing.T) {
	m := NewMetadata()
	if !m.Empty() {
		t.Fatalf("new metadata should be empty")
	}
	m.Set("time_step", 3)
	if m.Empty() {
		t.Fatalf("metadata with a key should not be empty")
	}
}

func TestMetadataInsertionOrderPreserved(t *testing.T) {
	m := NewMetadata()
	m.Set("b", 1)
	m.Set("a", 2)
	m.Set("c", 3)
	m.Set("a", 20) // overwrite should not move position

	want := []string{"b", "a", "c"}
	got := m.Keys()
	if len(got) != len(want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("keys[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	v, err := m.GetInt("a")
	if err != nil || v != 20 {
		t.Fatalf("GetInt(a) = %d, %v, want 20, nil", v, err)
	}
}

func TestMetadataTypedGetters(t *testing.T) {
	m := NewMetadata()
	m.Set("name", "lon")
	m.Set("count", 42)
	m.Set("vars", []string{"lon", "lat", "time"})
	m.Set("extent", Extent{0, 9, 0, 4, 0, 0})

	if s, err := m.GetString("name"); err != nil || s != "lon" {
		t.Fatalf("GetString = %q, %v", s, err)
	}
	if n, err := m.GetInt("count"); err != nil || n != 42 {
		t.Fatalf("GetInt = %d, %v", n, err)
	}
	if vs, err := m.GetStringSlice("vars"); err != nil || len(vs) != 3 {
		t.Fatalf("GetStringSlice = %v, %v", vs, err)
	}
	if e, err := m.GetExtent("extent"); err != nil || e != (Extent{0, 9, 0, 4, 0, 0}) {
		t.Fatalf("GetExtent = %v, %v", e, err)
	}
	if _, err := m.GetString("count"); err == nil {
		t.Fatalf("GetString on an int should error")
	}
	if _, err := m.GetInt("missing"); err == nil {
		t.Fatalf("GetInt on a missing key should error")
	}
}

func TestMetadataNestedAndClone(t *testing.T) {
	inner := NewMetadata()
	inner.Set("units", "degrees_east")
	arr := NewVariantArrayFromFloat64([]float64{1, 2, 3})

	m := NewMetadata()
	m.Set("coordinates", inner)
	m.Set("x", arr)

	clone := m.Clone()
	if !clone.Equal(m) {
		t.Fatalf("clone should equal original:\noriginal: %s\nclone:    %s", spew.Sdump(m), spew.Sdump(clone))
	}

	// mutating the clone's nested pieces must not affect the original.
	clonedInner, err := clone.GetMetadata("coordinates")
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	clonedInner.Set("units", "degrees_north")

	origInner, err := m.GetMetadata("coordinates")
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	u, _ := origInner.GetString("units")
	if u != "degrees_east" {
		t.Fatalf("clone mutation leaked into original: units = %q", u)
	}

	clonedArr, err := clone.GetVariantArray("x")
	if err != nil {
		t.Fatalf("GetVariantArray: %v", err)
	}
	clonedArr.Set(0, 99.0)
	origArr, _ := m.GetVariantArray("x")
	if origArr.GetFloat64(0) != 1 {
		t.Fatalf("clone array mutation leaked into original")
	}
}

func TestMetadataEqual(t *testing.T) {
	a := NewMetadata()
	a.Set("k1", "v1")
	a.Set("k2", 7)

	b := NewMetadata()
	b.Set("k1", "v1")
	b.Set("k2", 7)

	if !a.Equal(b) {
		t.Fatalf("a and b should be equal")
	}

	b.Set("k3", true)
	if a.Equal(b) {
		t.Fatalf("a and b should not be equal after b gained a key")
	}

	c := NewMetadata()
	c.Set("k2", 7)
	c.Set("k1", "v1")
	if a.Equal(c) {
		t.Fatalf("a and c should not be equal: key order differs")
	}
}
