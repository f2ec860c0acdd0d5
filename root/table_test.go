package root

import (
	"testing"

	"github.com/wippyai/camlbridge/value"
)

func TestTable_Basic(t *testing.T) {
	tb := NewTable()

	handle, err := tb.Create(value.OfInt(5))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if handle == 0 {
		t.Fatal("Expected non-zero handle")
	}

	v, ok := tb.Get(handle)
	if !ok || v != value.OfInt(5) {
		t.Fatalf("Get = %v, %v", v, ok)
	}

	if !tb.Modify(handle, value.OfInt(6)) {
		t.Fatal("Modify failed")
	}
	if v, _ := tb.Get(handle); v != value.OfInt(6) {
		t.Fatalf("Expected 6 after Modify, got %v", v)
	}

	if !tb.Release(handle) {
		t.Fatal("Release failed")
	}
	if _, ok := tb.Get(handle); ok {
		t.Fatal("Expected Get to fail after Release")
	}
	if tb.Release(handle) {
		t.Fatal("Expected second Release to fail")
	}
	if tb.Modify(handle, value.Unit) {
		t.Fatal("Expected Modify to fail after Release")
	}
}

func TestTable_InvalidHandle(t *testing.T) {
	tb := NewTable()
	if _, ok := tb.Get(0); ok {
		t.Error("handle 0 must be invalid")
	}
	if _, ok := tb.Get(99); ok {
		t.Error("unknown handle must be invalid")
	}
	if tb.Release(0) {
		t.Error("releasing handle 0 must fail")
	}
}

func TestTable_HandleReuse(t *testing.T) {
	tb := NewTable()

	h1, _ := tb.Create(value.OfInt(1))
	tb.Release(h1)
	h2, _ := tb.Create(value.OfInt(2))

	if h1 != h2 {
		t.Errorf("Expected released handle %d to be reused, got %d", h1, h2)
	}
	if v, _ := tb.Get(h2); v != value.OfInt(2) {
		t.Errorf("reused handle holds %v", v)
	}
}

func TestTable_Len(t *testing.T) {
	tb := NewTable()
	h1, _ := tb.Create(value.Unit)
	tb.Create(value.Unit)
	if tb.Len() != 2 {
		t.Errorf("Len = %d, want 2", tb.Len())
	}
	tb.Release(h1)
	if tb.Len() != 1 {
		t.Errorf("Len = %d, want 1", tb.Len())
	}
}

func TestTable_ScanRoots(t *testing.T) {
	tb := NewTable()
	h1, _ := tb.Create(value.OfInt(1))
	h2, _ := tb.Create(value.OfInt(2))
	tb.Release(h2)
	h3, _ := tb.Create(value.OfInt(3))

	visited := 0
	tb.ScanRoots(func(p *value.Raw) {
		visited++
		*p = value.OfInt(p.Int() * 10)
	})
	if visited != 2 {
		t.Errorf("visited %d slots, want 2", visited)
	}
	if v, _ := tb.Get(h1); v.Int() != 10 {
		t.Errorf("h1 = %d, want 10", v.Int())
	}
	if v, _ := tb.Get(h3); v.Int() != 30 {
		t.Errorf("h3 = %d, want 30", v.Int())
	}
}

func TestTable_Close(t *testing.T) {
	tb := NewTable()
	h, _ := tb.Create(value.Unit)
	if err := tb.Close(); err != nil {
		t.Fatal(err)
	}
	if _, ok := tb.Get(h); ok {
		t.Error("handles must be gone after Close")
	}
	if _, err := tb.Create(value.Unit); err == nil {
		t.Error("Create after Close should fail")
	}
	if err := tb.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

func TestRoot_Lifecycle(t *testing.T) {
	tb := NewTable()
	r, err := tb.New(value.OfInt(7))
	if err != nil {
		t.Fatal(err)
	}
	if !r.Valid() || r.Get() != value.OfInt(7) {
		t.Fatalf("fresh root = %v", r.Get())
	}
	r.Set(value.OfInt(8))
	if r.Get() != value.OfInt(8) {
		t.Errorf("after Set = %v", r.Get())
	}

	r.Release()
	if r.Valid() {
		t.Error("released root reports valid")
	}
	r.Release()
	if tb.Len() != 0 {
		t.Errorf("Len = %d after release", tb.Len())
	}

	defer func() {
		if recover() == nil {
			t.Error("Get on released root should panic")
		}
	}()
	r.Get()
}
