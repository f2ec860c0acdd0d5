package heap

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/camlbridge/errors"
	"github.com/wippyai/camlbridge/value"
)

type slots []value.Raw

func (s *slots) ScanRoots(visit func(*value.Raw)) {
	for i := range *s {
		visit(&(*s)[i])
	}
}

func mustAlloc(t *testing.T, h *Heap, size int, tag value.Tag) value.Raw {
	t.Helper()
	v, err := h.Alloc(size, tag)
	if err != nil {
		t.Fatalf("Alloc(%d, %d): %v", size, tag, err)
	}
	return v
}

func expectPanic(t *testing.T, kind errors.Kind, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatalf("expected panic of kind %s", kind)
		}
		err, ok := r.(*errors.Error)
		if !ok {
			t.Fatalf("panic value %T, want *errors.Error", r)
		}
		if err.Kind != kind {
			t.Fatalf("panic kind = %s, want %s (%v)", err.Kind, kind, err)
		}
	}()
	fn()
}

func TestAllocFields(t *testing.T) {
	h := New(Config{})
	v := mustAlloc(t, h, 3, 5)

	if !v.IsBlock() {
		t.Fatalf("allocated value %v is not a block", v)
	}
	if h.Tag(v) != 5 || h.Size(v) != 3 {
		t.Fatalf("header = %v, want size 3 tag 5", h.Header(v))
	}
	for i := 0; i < 3; i++ {
		if got := h.Field(v, i); got != value.Unit {
			t.Errorf("field %d = %v, want unit", i, got)
		}
	}

	h.SetField(v, 1, value.OfInt(42))
	if got := h.Field(v, 1).Int(); got != 42 {
		t.Errorf("field 1 = %d, want 42", got)
	}
}

func TestAtoms(t *testing.T) {
	h := New(Config{})
	a := mustAlloc(t, h, 0, 3)
	if a != h.Atom(3) {
		t.Errorf("Alloc(0, 3) = %v, want atom %v", a, h.Atom(3))
	}
	if !h.Contains(a) {
		t.Error("atom should always be contained")
	}
	if h.Size(a) != 0 || h.Tag(a) != 3 {
		t.Errorf("atom header = %v", h.Header(a))
	}
	if h.Atom(0) == h.Atom(1) {
		t.Error("atoms for distinct tags must differ")
	}
	if err := h.Collect(); err != nil {
		t.Fatal(err)
	}
	if h.Atom(3) != a {
		t.Error("atoms must not move")
	}
	expectPanic(t, errors.KindOutOfBounds, func() { h.Field(a, 0) })
}

func TestStrings(t *testing.T) {
	h := New(Config{})
	for n := 0; n <= 17; n++ {
		s := strings.Repeat("x", n)
		if n > 0 {
			s = s[:n-1] + "\x00"
		}
		v, err := h.AllocString(s)
		if err != nil {
			t.Fatal(err)
		}
		if got := h.Size(v); got != n/8+1 {
			t.Errorf("len %d: size = %d, want %d", n, got, n/8+1)
		}
		if got := h.StringLength(v); got != n {
			t.Errorf("len %d: StringLength = %d", n, got)
		}
		if got := h.StringOf(v); got != s {
			t.Errorf("len %d: StringOf = %q, want %q", n, got, s)
		}
	}

	b := []byte{0, 1, 2, 255, 254}
	v, err := h.AllocBytes(b)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(b, h.BytesOf(v)); diff != "" {
		t.Errorf("BytesOf mismatch (-want +got):\n%s", diff)
	}
	expectPanic(t, errors.KindShape, func() { h.Field(v, 0) })
}

func TestDoubles(t *testing.T) {
	h := New(Config{})
	d, err := h.AllocDouble(3.25)
	if err != nil {
		t.Fatal(err)
	}
	if h.Tag(d) != value.TagDouble {
		t.Errorf("tag = %v", h.Tag(d))
	}
	if got := h.DoubleOf(d); got != 3.25 {
		t.Errorf("DoubleOf = %v", got)
	}

	fs := []float64{1.5, -2, 0}
	a, err := h.AllocDoubleArray(fs)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(fs, h.DoubleArrayOf(a)); diff != "" {
		t.Errorf("DoubleArrayOf mismatch (-want +got):\n%s", diff)
	}

	empty, err := h.AllocDoubleArray(nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := h.DoubleArrayOf(empty); len(got) != 0 {
		t.Errorf("empty array decoded to %v", got)
	}
	expectPanic(t, errors.KindShape, func() { h.DoubleOf(a) })
}

func TestBoxedIntegers(t *testing.T) {
	h := New(Config{})
	v, err := h.AllocInt64(-1 << 62)
	if err != nil {
		t.Fatal(err)
	}
	if got := h.Int64Of(v); got != -1<<62 {
		t.Errorf("Int64Of = %d", got)
	}
	w, err := h.AllocInt32(-5)
	if err != nil {
		t.Fatal(err)
	}
	if got := h.Int32Of(w); got != -5 {
		t.Errorf("Int32Of = %d", got)
	}
	expectPanic(t, errors.KindShape, func() { h.Int64Of(w) })
}

func TestCollectMovesRootedBlocks(t *testing.T) {
	h := New(Config{InitialWords: 64})
	roots := &slots{}
	h.AddScanner(roots)

	inner := mustAlloc(t, h, 1, 0)
	h.SetField(inner, 0, value.OfInt(7))
	outer := mustAlloc(t, h, 2, 1)
	h.SetField(outer, 0, inner)
	h.SetField(outer, 1, value.OfInt(8))
	*roots = append(*roots, outer)
	garbage := mustAlloc(t, h, 4, 0)

	if err := h.Collect(); err != nil {
		t.Fatal(err)
	}

	moved := (*roots)[0]
	if moved == outer {
		t.Fatal("rooted block did not move")
	}
	if h.Contains(outer) || h.Contains(inner) || h.Contains(garbage) {
		t.Error("stale addresses must not be contained after collection")
	}
	if got := h.Field(h.Field(moved, 0), 0).Int(); got != 7 {
		t.Errorf("inner field = %d, want 7", got)
	}
	if got := h.Field(moved, 1).Int(); got != 8 {
		t.Errorf("outer field = %d, want 8", got)
	}
	if got := h.Stats().LiveWords; got != 5 {
		t.Errorf("live words = %d, want 5", got)
	}
	expectPanic(t, errors.KindStale, func() { h.Field(outer, 0) })
}

func TestCollectPreservesSharing(t *testing.T) {
	h := New(Config{InitialWords: 64})
	roots := &slots{}
	h.AddScanner(roots)

	shared := mustAlloc(t, h, 1, 0)
	a := mustAlloc(t, h, 1, 0)
	h.SetField(a, 0, shared)
	*roots = append(*roots, a, shared)

	if err := h.Collect(); err != nil {
		t.Fatal(err)
	}
	if h.Field((*roots)[0], 0) != (*roots)[1] {
		t.Error("shared block was duplicated")
	}
}

func TestCollectCycle(t *testing.T) {
	h := New(Config{InitialWords: 64})
	roots := &slots{}
	h.AddScanner(roots)

	a := mustAlloc(t, h, 1, 0)
	*roots = append(*roots, a)
	b := mustAlloc(t, h, 1, 0)
	a = (*roots)[0]
	h.SetField(a, 0, b)
	h.SetField(b, 0, a)

	if err := h.Collect(); err != nil {
		t.Fatal(err)
	}
	na := (*roots)[0]
	if h.Field(h.Field(na, 0), 0) != na {
		t.Error("cycle not preserved")
	}
}

func TestStressCollectsEveryAllocation(t *testing.T) {
	h := New(Config{InitialWords: 64, Stress: true})
	roots := &slots{}
	h.AddScanner(roots)

	first := mustAlloc(t, h, 1, 0)
	*roots = append(*roots, first)
	mustAlloc(t, h, 1, 0)
	if (*roots)[0] == first {
		t.Error("stress mode must move rooted blocks on every allocation")
	}
	if got := h.Stats().Collections; got != 2 {
		t.Errorf("collections = %d, want 2", got)
	}
}

func TestCollectEvery(t *testing.T) {
	h := New(Config{InitialWords: 64, CollectEvery: 3})
	for i := 0; i < 9; i++ {
		mustAlloc(t, h, 1, 0)
	}
	if got := h.Stats().Collections; got != 3 {
		t.Errorf("collections = %d, want 3", got)
	}
}

func TestGrowth(t *testing.T) {
	h := New(Config{InitialWords: 16})
	roots := &slots{}
	h.AddScanner(roots)
	for i := 0; i < 100; i++ {
		v := mustAlloc(t, h, 3, 0)
		h.SetField(v, 0, value.OfInt(int64(i)))
		*roots = append(*roots, v)
	}
	for i, v := range *roots {
		if got := h.Field(v, 0).Int(); got != int64(i) {
			t.Fatalf("root %d field = %d", i, got)
		}
	}
}

func TestHeapLimit(t *testing.T) {
	h := New(Config{InitialWords: 16, MaxWords: 32})
	roots := &slots{}
	h.AddScanner(roots)

	var err error
	for i := 0; i < 20 && err == nil; i++ {
		var v value.Raw
		v, err = h.Alloc(3, 0)
		if err == nil {
			*roots = append(*roots, v)
		}
	}
	if err == nil {
		t.Fatal("expected allocation failure once the heap limit is reached")
	}
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindAllocation {
		t.Errorf("error = %v, want allocation failure", err)
	}
}

func TestInvalidSize(t *testing.T) {
	h := New(Config{})
	if _, err := h.Alloc(-1, 0); err == nil {
		t.Error("negative size should fail")
	}
}

func TestCustomFinalizer(t *testing.T) {
	h := New(Config{InitialWords: 64})
	roots := &slots{}
	h.AddScanner(roots)

	var finalized []uint64
	id := h.RegisterCustom(CustomOps{
		Identifier: "test.handle",
		Finalize:   func(payload []uint64) { finalized = append(finalized, payload[0]) },
	})
	if again := h.RegisterCustom(CustomOps{Identifier: "test.handle"}); again != id {
		t.Errorf("re-registration returned %d, want %d", again, id)
	}

	keep, err := h.AllocCustom(id, 1)
	if err != nil {
		t.Fatal(err)
	}
	*roots = append(*roots, keep)
	if _, err := h.AllocCustom(id, 2); err != nil {
		t.Fatal(err)
	}

	if err := h.Collect(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]uint64{2}, finalized); diff != "" {
		t.Errorf("finalized mismatch (-want +got):\n%s", diff)
	}
	ops, payload := h.Custom((*roots)[0])
	if ops.Identifier != "test.handle" || payload[0] != 1 {
		t.Errorf("custom block = %s %v", ops.Identifier, payload)
	}
	if h.Stats().Finalized != 1 {
		t.Errorf("finalized count = %d", h.Stats().Finalized)
	}
}

func TestDebugBounds(t *testing.T) {
	h := New(Config{Debug: true})
	v := mustAlloc(t, h, 2, 0)
	expectPanic(t, errors.KindOutOfBounds, func() { h.Field(v, 2) })
}

func TestRawFields(t *testing.T) {
	h := New(Config{})
	v := mustAlloc(t, h, 2, value.TagAbstract)
	h.SetRawField(v, 1, 0xdeadbeef)
	if got := h.RawField(v, 1); got != 0xdeadbeef {
		t.Errorf("RawField = %#x", got)
	}
	s := mustAlloc(t, h, 1, 0)
	expectPanic(t, errors.KindShape, func() { h.SetRawField(s, 0, 1) })
}
