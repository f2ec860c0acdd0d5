package wasmcode

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/camlbridge/callout"
	"github.com/wippyai/camlbridge/errors"
	"github.com/wippyai/camlbridge/runtime"
	"github.com/wippyai/camlbridge/value"
)

const (
	i32 = 0x7f
	i64 = 0x7e
)

type fn struct {
	name   string
	params []byte
	body   []byte
}

// module encodes a binary module with one exported function per fn, each
// returning an i64. Every section stays below 128 bytes.
func module(fns ...fn) []byte {
	section := func(id byte, content []byte) []byte {
		return append([]byte{id, byte(len(content))}, content...)
	}
	types := []byte{byte(len(fns))}
	funcs := []byte{byte(len(fns))}
	exports := []byte{byte(len(fns))}
	code := []byte{byte(len(fns))}
	for i, f := range fns {
		types = append(types, 0x60, byte(len(f.params)))
		types = append(types, f.params...)
		types = append(types, 1, i64)
		funcs = append(funcs, byte(i))
		exports = append(exports, byte(len(f.name)))
		exports = append(exports, f.name...)
		exports = append(exports, 0x00, byte(i))
		body := append([]byte{0x00}, f.body...)
		body = append(body, 0x0b)
		code = append(code, byte(len(body)))
		code = append(code, body...)
	}
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	out = append(out, section(1, types)...)
	out = append(out, section(3, funcs)...)
	out = append(out, section(7, exports)...)
	out = append(out, section(10, code)...)
	return out
}

// Bodies work on tagged words: 2n+1 + 2 is the tagged n+1.
var testModule = module(
	fn{"succ", []byte{i64}, []byte{0x20, 0x00, 0x42, 0x02, 0x7c}},
	fn{"add", []byte{i64, i64}, []byte{0x20, 0x00, 0x20, 0x01, 0x7c, 0x42, 0x01, 0x7d}},
	fn{"untag", []byte{i64}, []byte{0x20, 0x00, 0x42, 0x01, 0x7d}},
	fn{"trap", []byte{i64}, []byte{0x00}},
	fn{"narrow", []byte{i32}, []byte{0x20, 0x00, 0xad}},
	fn{"const", nil, []byte{0x42, 0x01}},
)

func load(t *testing.T) (*runtime.Runtime, *runtime.Handle, *Module) {
	t.Helper()
	ctx := context.Background()
	rt, err := runtime.New(runtime.WithStressGC())
	if err != nil {
		t.Fatal(err)
	}
	m, err := Load(ctx, rt, testModule, &Config{MemoryLimitPages: 1})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	h := rt.Acquire()
	t.Cleanup(func() {
		h.Release()
		if err := m.Close(ctx); err != nil {
			t.Errorf("Close module: %v", err)
		}
		if err := rt.Close(); err != nil {
			t.Errorf("Close runtime: %v", err)
		}
	})
	return rt, h, m
}

func TestExports(t *testing.T) {
	_, _, m := load(t)
	want := []string{"add", "const", "narrow", "succ", "trap", "untag"}
	if diff := cmp.Diff(want, m.Exports()); diff != "" {
		t.Errorf("exports mismatch (-want +got):\n%s", diff)
	}
}

func TestClosure_Apply(t *testing.T) {
	_, h, m := load(t)

	succ, err := m.Closure(h, "succ")
	if err != nil {
		t.Fatal(err)
	}
	if got := h.Arity(succ); got != 1 {
		t.Errorf("succ arity = %d", got)
	}

	tests := []struct {
		in   int64
		want int64
	}{
		{41, 42},
		{-1, 0},
		{0, 1},
		{value.MaxInt - 1, value.MaxInt},
	}
	for _, tt := range tests {
		succ, _ := m.Closure(h, "succ")
		if got := h.Apply(succ, value.OfInt(tt.in)).Int(); got != tt.want {
			t.Errorf("succ(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestClosure_PartialApplication(t *testing.T) {
	_, h, m := load(t)

	add, err := m.Closure(h, "add")
	if err != nil {
		t.Fatal(err)
	}
	partial := h.Root(h.Apply(add, value.OfInt(40)))
	defer partial.Release()
	if got := h.Arity(partial.Get()); got != 1 {
		t.Fatalf("partial arity = %d", got)
	}
	if got := h.Apply(partial.Get(), value.OfInt(2)).Int(); got != 42 {
		t.Errorf("add 40 2 = %d", got)
	}
}

func TestRegister_Callout(t *testing.T) {
	rt, h, m := load(t)
	if err := m.Register(h, "add", "wasm_add"); err != nil {
		t.Fatal(err)
	}
	res, err := callout.New(rt, "wasm_add").Call2(h, value.OfInt(-7), value.OfInt(10))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsException() || res.Value().Int() != 3 {
		t.Errorf("wasm_add = %v", res)
	}
}

func TestClosure_Failures(t *testing.T) {
	rt, h, m := load(t)
	failure, _ := rt.Exn(runtime.Failure)
	invalid, _ := rt.Exn(runtime.InvalidArgument)

	tests := []struct {
		name    string
		export  string
		arg     func() value.Raw
		exn     *runtime.Exn
		message string
	}{
		{"block argument", "succ", func() value.Raw { return h.AllocString("x") }, invalid, "block argument"},
		{"even result", "untag", func() value.Raw { return value.OfInt(3) }, failure, "not an immediate"},
		{"trap", "trap", func() value.Raw { return value.OfInt(3) }, failure, "unreachable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := m.Closure(h, tt.export)
			if err != nil {
				t.Fatal(err)
			}
			fr := h.Enter(1)
			defer fr.Leave()
			slot := fr.Push(f)
			arg := tt.arg()
			res := h.Try(func() value.Raw { return h.Apply(fr.Get(slot), arg) })
			if !res.IsException() {
				t.Fatalf("result %v is not an exception", res)
			}
			if !h.Is(res.Exception(), tt.exn) {
				t.Fatalf("exception = %v", h.DecodeException(res.Exception()))
			}
			if msg := h.DecodeException(res.Exception()).Message(); !strings.Contains(msg, tt.message) {
				t.Errorf("message = %q, want it to contain %q", msg, tt.message)
			}
		})
	}
}

func TestClosure_Rejected(t *testing.T) {
	_, h, m := load(t)
	tests := []struct {
		export string
		kind   errors.Kind
	}{
		{"missing", errors.KindNotFound},
		{"narrow", errors.KindUnsupported},
		{"const", errors.KindUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.export, func(t *testing.T) {
			_, err := m.Closure(h, tt.export)
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Kind != tt.kind {
				t.Errorf("error = %v, want kind %s", err, tt.kind)
			}
		})
	}
}

func TestClosure_SharesCode(t *testing.T) {
	_, h, m := load(t)
	a, _ := m.Closure(h, "succ")
	first := h.Field(a, 0)
	b, _ := m.Closure(h, "succ")
	if h.Field(b, 0) != first {
		t.Error("closures over one export should share a code id")
	}
}

func TestLoad_Invalid(t *testing.T) {
	rt, err := runtime.New()
	if err != nil {
		t.Fatal(err)
	}
	defer rt.Close()

	_, err = Load(context.Background(), rt, []byte{0x00, 0x61, 0x73}, nil)
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Phase != errors.PhaseLoad {
		t.Errorf("error = %v, want a load error", err)
	}
}
