package cfpipe

import "testing"

func TestArrayCollectionAppendAndGet(t *testing.T) {
	c := NewArrayCollection()
	if c.Size() != 0 {
		t.Fatalf("new collection should be empty")
	}
	if err := c.Append("T", NewVariantArrayFromFloat64([]float64{1, 2, 3})); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := c.Append("T", NewVariantArrayFromFloat64([]float64{4})); err == nil {
		t.Fatalf("Append should reject a duplicate name")
	}
	a, ok := c.Get("T")
	if !ok || a.Size() != 3 {
		t.Fatalf("Get(T) = %v, %v", a, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatalf("Get should report missing names as absent")
	}
}

func TestArrayCollectionOrderPreserved(t *testing.T) {
	c := NewArrayCollection()
	c.Set("O3", NewVariantArrayFromFloat32([]float32{1}))
	c.Set("NOx", NewVariantArrayFromFloat32([]float32{2}))
	c.Set("O3", NewVariantArrayFromFloat32([]float32{9})) // overwrite keeps position

	want := []string{"O3", "NOx"}
	got := c.Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	a, _ := c.Get("O3")
	if a.GetFloat64(0) != 9 {
		t.Fatalf("overwrite should replace the array value")
	}
}

func TestArrayCollectionRemove(t *testing.T) {
	c := NewArrayCollection()
	c.Set("a", NewVariantArrayFromInt32([]int32{1}))
	c.Set("b", NewVariantArrayFromInt32([]int32{2}))
	c.Set("c", NewVariantArrayFromInt32([]int32{3}))
	c.Remove("b")
	if c.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", c.Size())
	}
	want := []string{"a", "c"}
	got := c.Names()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestArrayCollectionCopyIsDeep(t *testing.T) {
	c := NewArrayCollection()
	c.Set("x", NewVariantArrayFromFloat64([]float64{1, 2, 3}))

	deep := c.Copy()
	a, _ := deep.Get("x")
	a.Set(0, 100.0)

	orig, _ := c.Get("x")
	if orig.GetFloat64(0) != 1 {
		t.Fatalf("Copy mutation leaked into original")
	}
	if !deep.Equal(deep) {
		t.Fatalf("a collection should equal itself")
	}
}

func TestArrayCollectionShallowCopySharesArrays(t *testing.T) {
	c := NewArrayCollection()
	c.Set("x", NewVariantArrayFromFloat64([]float64{1, 2, 3}))

	shallow := c.ShallowCopy()
	a, _ := shallow.Get("x")
	a.Set(0, 100.0)

	orig, _ := c.Get("x")
	if orig.GetFloat64(0) != 100 {
		t.Fatalf("ShallowCopy should share the underlying arrays")
	}
}

func TestArrayCollectionEqual(t *testing.T) {
	a := NewArrayCollection()
	a.Set("x", NewVariantArrayFromInt32([]int32{1, 2}))
	b := NewArrayCollection()
	b.Set("x", NewVariantArrayFromInt32([]int32{1, 2}))
	if !a.Equal(b) {
		t.Fatalf("a should equal b")
	}
	b.Set("y", NewVariantArrayFromInt32([]int32{3}))
	if a.Equal(b) {
		t.Fatalf("a should not equal b after b gained an array")
	}
}
