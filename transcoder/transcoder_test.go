package transcoder

import (
	stderrors "errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/camlbridge/describe"
	"github.com/wippyai/camlbridge/errors"
	"github.com/wippyai/camlbridge/runtime"
	"github.com/wippyai/camlbridge/value"
)

type Person struct {
	Name string
	Age  int
}

type Sample struct {
	Count  int
	Small  uint8
	Big    int64
	Boxed  int32 `caml:",boxed"`
	Ratio  float64
	Flag   bool
	Label  string
	Blob   []byte
	Tags   []string
	Grid   [2]int
	Scores []float64 `caml:",array"`
	Items  []int     `caml:",array"`
	Parent *Person
	Word   value.Raw
}

type Tree struct {
	Value    int
	Children []Tree
}

type Command interface{ isCommand() }

type Start struct{}
type Stop struct{}
type SetSpeed struct{ Speed int }
type Move struct{ X, Y int }

func (Start) isCommand()    {}
func (Stop) isCommand()     {}
func (SetSpeed) isCommand() {}
func (*Move) isCommand()    {}

type Shape interface{ isShape() }

type Dot struct{}
type Circle struct{ R float64 }
type Origin struct{}
type Rect struct{ W, H int }
type Line struct{ Len int }

func (Dot) isShape()    {}
func (Circle) isShape() {}
func (Origin) isShape() {}
func (Rect) isShape()   {}
func (Line) isShape()   {}

func newHandle(t *testing.T, opts ...runtime.Option) *runtime.Handle {
	t.Helper()
	rt, err := runtime.New(opts...)
	if err != nil {
		t.Fatalf("runtime.New: %v", err)
	}
	h := rt.Acquire()
	t.Cleanup(func() {
		h.Release()
		if err := rt.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return h
}

func commandUnion(t *testing.T, opts ...describe.Option) *describe.Type {
	t.Helper()
	all := append([]describe.Option{
		describe.Open(),
		describe.Case[Start](),
		describe.Case[Stop](),
		describe.Case[SetSpeed](),
		describe.Case[Move](),
	}, opts...)
	d, err := describe.Union[Command]("command", all...)
	if err != nil {
		t.Fatalf("Union: %v", err)
	}
	return d
}

func shapeUnion(t *testing.T) *describe.Type {
	t.Helper()
	d, err := describe.Union[Shape]("shape",
		describe.Case[Dot](),
		describe.Case[Circle](),
		describe.Case[Origin](),
		describe.Case[Rect](),
		describe.Case[Line](),
	)
	if err != nil {
		t.Fatalf("Union: %v", err)
	}
	return d
}

func errorKind(t *testing.T, err error) errors.Kind {
	t.Helper()
	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("error %v (%T) is not an *errors.Error", err, err)
	}
	return e.Kind
}

func TestPersonScenario(t *testing.T) {
	h := newHandle(t, runtime.WithStressGC(), runtime.WithDebug())
	c := NewCompiler()

	raw, err := Encode(c, h, Person{Name: "Ada", Age: 37})
	if err != nil {
		t.Fatal(err)
	}
	if value.Classify(raw) != value.Block {
		t.Fatalf("record encoded as %v", value.Classify(raw))
	}
	if h.Tag(raw) != 0 || h.Size(raw) != 2 {
		t.Fatalf("header = %v, want tag 0 size 2", h.Header(raw))
	}
	if got := h.StringOf(h.Field(raw, 0)); got != "Ada" {
		t.Errorf("field 0 = %q, want Ada", got)
	}
	if got := h.Field(raw, 1).Int(); got != 37 {
		t.Errorf("field 1 = %d, want 37", got)
	}

	got, err := Decode[Person](c, h, raw)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Person{Name: "Ada", Age: 37}, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenUnionScenario(t *testing.T) {
	h := newHandle(t, runtime.WithStressGC())
	c := NewCompiler()
	if err := c.Register(commandUnion(t)); err != nil {
		t.Fatal(err)
	}

	start, err := Encode[Command](c, h, Start{})
	if err != nil {
		t.Fatal(err)
	}
	if start != value.PolyTag("Start") {
		t.Errorf("Start = %v, want hash %v", start, value.PolyTag("Start"))
	}
	if value.Classify(start) != value.Immediate {
		t.Error("constant open constructor must be immediate")
	}

	speed, err := Encode[Command](c, h, SetSpeed{Speed: 100})
	if err != nil {
		t.Fatal(err)
	}
	if h.Tag(speed) != value.TagPolymorphic || h.Size(speed) != 2 {
		t.Fatalf("SetSpeed header = %v", h.Header(speed))
	}
	if h.Field(speed, 0) != value.PolyTag("SetSpeed") {
		t.Errorf("field 0 = %v, want hash of SetSpeed", h.Field(speed, 0))
	}
	if h.Field(speed, 1).Int() != 100 {
		t.Errorf("field 1 = %v, want 100", h.Field(speed, 1))
	}
	got, err := Decode[Command](c, h, speed)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Command(SetSpeed{Speed: 100}), got); diff != "" {
		t.Errorf("decode mismatch (-want +got):\n%s", diff)
	}

	back, err := Decode[Command](c, h, start)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := back.(Start); !ok {
		t.Errorf("decoded %T, want Start", back)
	}
}

func TestOpenUnionTuplePayload(t *testing.T) {
	h := newHandle(t, runtime.WithStressGC())
	c := NewCompiler()
	if err := c.Register(commandUnion(t)); err != nil {
		t.Fatal(err)
	}

	raw, err := Encode[Command](c, h, &Move{X: 3, Y: -4})
	if err != nil {
		t.Fatal(err)
	}
	payload := h.Field(raw, 1)
	if h.Tag(payload) != 0 || h.Size(payload) != 2 {
		t.Fatalf("payload header = %v, want a 2-field tuple", h.Header(payload))
	}
	if h.Field(payload, 0).Int() != 3 || h.Field(payload, 1).Int() != -4 {
		t.Error("tuple fields mismatch")
	}

	got, err := Decode[Command](c, h, raw)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Command(&Move{X: 3, Y: -4}), got); diff != "" {
		t.Errorf("decode mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenUnionTagOverride(t *testing.T) {
	h := newHandle(t)
	d, err := describe.Union[Command]("command",
		describe.Open(),
		describe.Case[Start](describe.WithTag("go")),
		describe.Case[SetSpeed](describe.WithTag("speed")),
	)
	if err != nil {
		t.Fatal(err)
	}
	c := NewCompiler()
	if err := c.Register(d); err != nil {
		t.Fatal(err)
	}

	raw, err := Encode[Command](c, h, Start{})
	if err != nil {
		t.Fatal(err)
	}
	if raw != value.PolyTag("go") {
		t.Errorf("Start = %v, want hash of override", raw)
	}
	raw, err = Encode[Command](c, h, SetSpeed{Speed: 1})
	if err != nil {
		t.Fatal(err)
	}
	if h.Field(raw, 0) != value.PolyTag("speed") {
		t.Errorf("SetSpeed hash = %v, want hash of override", h.Field(raw, 0))
	}
}

func TestOpenUnionDecodeErrors(t *testing.T) {
	h := newHandle(t)
	c := NewCompiler()
	if err := c.Register(commandUnion(t)); err != nil {
		t.Fatal(err)
	}

	payloadOnly, err := describe.Union[Shape]("payload_only",
		describe.Open(),
		describe.Case[Circle](),
		describe.Case[Rect](),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Register(payloadOnly); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		raw  func() value.Raw
		dec  func(value.Raw) error
	}{
		{
			name: "unknown constant hash",
			raw:  func() value.Raw { return value.PolyTag("Jump") },
			dec:  func(r value.Raw) error { _, err := Decode[Command](c, h, r); return err },
		},
		{
			name: "unknown payload hash",
			raw:  func() value.Raw { return h.Tuple(value.PolyTag("Jump"), value.OfInt(1)) },
			dec:  func(r value.Raw) error { _, err := Decode[Command](c, h, r); return err },
		},
		{
			name: "wrong block size",
			raw:  func() value.Raw { return h.Tuple(value.PolyTag("SetSpeed")) },
			dec:  func(r value.Raw) error { _, err := Decode[Command](c, h, r); return err },
		},
		{
			name: "wrong block tag",
			raw:  func() value.Raw { return h.Block(3, value.PolyTag("SetSpeed"), value.OfInt(1)) },
			dec:  func(r value.Raw) error { _, err := Decode[Command](c, h, r); return err },
		},
		{
			name: "immediate for payload-only union",
			raw:  func() value.Raw { return value.PolyTag("Circle") },
			dec:  func(r value.Raw) error { _, err := Decode[Shape](c, h, r); return err },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.dec(tt.raw())
			if err == nil {
				t.Fatal("expected decode error")
			}
			if errorKind(t, err) != errors.KindShape {
				t.Errorf("kind = %s", errorKind(t, err))
			}
			if !strings.Contains(err.Error(), "expected a polymorphic variant") {
				t.Errorf("error %q does not mention a polymorphic variant", err)
			}
		})
	}
}

func TestClosedUnionLayout(t *testing.T) {
	d := shapeUnion(t)
	want := []Placement{
		{Variant: "Dot", Index: 0},
		{Variant: "Circle", Index: 0, Arity: 1},
		{Variant: "Origin", Index: 1},
		{Variant: "Rect", Index: 1, Arity: 2},
		{Variant: "Line", Index: 2, Arity: 1},
	}
	if diff := cmp.Diff(want, Layout(d)); diff != "" {
		t.Errorf("Layout mismatch (-want +got):\n%s", diff)
	}
}

func TestClosedUnionEncoding(t *testing.T) {
	h := newHandle(t, runtime.WithStressGC())
	c := NewCompiler()
	if err := c.Register(shapeUnion(t)); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		in    Shape
		imm   int64
		tag   value.Tag
		size  int
		block bool
	}{
		{name: "Dot", in: Dot{}, imm: 0},
		{name: "Origin", in: Origin{}, imm: 1},
		{name: "Circle", in: Circle{R: 1.5}, block: true, tag: 0, size: 1},
		{name: "Rect", in: Rect{W: 2, H: 3}, block: true, tag: 1, size: 2},
		{name: "Line", in: Line{Len: 9}, block: true, tag: 2, size: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := Encode(c, h, tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if !tt.block {
				if raw != value.OfInt(tt.imm) {
					t.Errorf("encoded %v, want immediate %d", raw, tt.imm)
				}
			} else if h.Tag(raw) != tt.tag || h.Size(raw) != tt.size {
				t.Errorf("header = %v, want tag %d size %d", h.Header(raw), tt.tag, tt.size)
			}

			got, err := Decode[Shape](c, h, raw)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.in, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClosedUnionDecodeErrors(t *testing.T) {
	h := newHandle(t)
	c := NewCompiler()
	if err := c.Register(shapeUnion(t)); err != nil {
		t.Fatal(err)
	}

	_, err := Decode[Shape](c, h, value.OfInt(7))
	if err == nil || errorKind(t, err) != errors.KindInvalidVariant {
		t.Errorf("unknown constant: %v", err)
	}
	if !strings.Contains(err.Error(), "shape") {
		t.Errorf("error %q does not name the type", err)
	}

	_, err = Decode[Shape](c, h, h.Block(9, value.OfInt(1)))
	if err == nil || errorKind(t, err) != errors.KindInvalidVariant {
		t.Errorf("unknown tag: %v", err)
	}

	_, err = Decode[Shape](c, h, h.Block(1, value.OfInt(1)))
	if err == nil || errorKind(t, err) != errors.KindShape {
		t.Errorf("wrong size for Rect: %v", err)
	}
}

func TestUnregisteredUnion(t *testing.T) {
	c := NewCompiler()
	_, err := c.Compile(reflect.TypeFor[Shape]())
	if err == nil || errorKind(t, err) != errors.KindNotFound {
		t.Errorf("Compile of unregistered union: %v", err)
	}
}

func TestRegisterConflict(t *testing.T) {
	c := NewCompiler()
	d := shapeUnion(t)
	if err := c.Register(d); err != nil {
		t.Fatal(err)
	}
	if err := c.Register(d); err != nil {
		t.Errorf("re-registering the same description: %v", err)
	}
	if err := c.Register(shapeUnion(t)); err == nil {
		t.Error("registering a second description for the same type should fail")
	}
}

func TestSampleRoundTrip(t *testing.T) {
	h := newHandle(t, runtime.WithStressGC(), runtime.WithDebug())
	c := NewCompiler()

	in := Sample{
		Count:  -12,
		Small:  200,
		Big:    math.MaxInt64,
		Boxed:  math.MinInt32,
		Ratio:  0.25,
		Flag:   true,
		Label:  "label",
		Blob:   []byte{0, 1, 2},
		Tags:   []string{"a", "bb", "ccc"},
		Grid:   [2]int{4, 5},
		Scores: []float64{1.5, 2.5},
		Items:  []int{7, 8, 9},
		Parent: &Person{Name: "Grace", Age: 85},
		Word:   value.OfInt(9),
	}
	raw, err := Encode(c, h, in)
	if err != nil {
		t.Fatal(err)
	}
	if h.Size(raw) != 14 {
		t.Fatalf("size = %d, want 14", h.Size(raw))
	}
	if h.Tag(h.Field(raw, 10)) != value.TagDoubleArray {
		t.Errorf("Scores tag = %v, want double array", h.Tag(h.Field(raw, 10)))
	}
	if h.Field(raw, 5) != value.True {
		t.Errorf("Flag = %v, want true", h.Field(raw, 5))
	}

	got, err := Decode[Sample](c, h, raw)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(in, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyValues(t *testing.T) {
	h := newHandle(t)
	c := NewCompiler()

	in := Sample{Ratio: 0, Label: "", Blob: []byte{}}
	raw, err := Encode(c, h, in)
	if err != nil {
		t.Fatal(err)
	}
	if h.Field(raw, 8) != value.EmptyList {
		t.Errorf("empty list = %v", h.Field(raw, 8))
	}
	if h.Field(raw, 12) != value.None {
		t.Errorf("nil pointer = %v, want None", h.Field(raw, 12))
	}
	if h.Size(h.Field(raw, 11)) != 0 {
		t.Error("empty array must be the atom")
	}

	got, err := Decode[Sample](c, h, raw)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(in, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRecursiveRecord(t *testing.T) {
	h := newHandle(t, runtime.WithStressGC())
	c := NewCompiler()

	in := Tree{Value: 1, Children: []Tree{
		{Value: 2},
		{Value: 3, Children: []Tree{{Value: 4}}},
	}}
	raw, err := Encode(c, h, in)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode[Tree](c, h, raw)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(in, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRootingSafetyLongList(t *testing.T) {
	h := newHandle(t, runtime.WithStressGC())
	c := NewCompiler()

	in := make([]Person, 40)
	for i := range in {
		in[i] = Person{Name: strings.Repeat("n", i), Age: i}
	}
	raw, err := Encode(c, h, in)
	if err != nil {
		t.Fatal(err)
	}
	collections := h.Stats().Collections
	if collections < 120 {
		t.Errorf("collections = %d, want one per allocation", collections)
	}
	got, err := Decode[[]Person](c, h, raw)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(in, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSharedZeroEncoding(t *testing.T) {
	h := newHandle(t)
	c := NewCompiler()

	for _, tc := range []struct {
		name string
		raw  func() (value.Raw, error)
	}{
		{"false", func() (value.Raw, error) { return Encode(c, h, false) }},
		{"empty list", func() (value.Raw, error) { return Encode[[]int](c, h, nil) }},
		{"none", func() (value.Raw, error) { return Encode[*int](c, h, nil) }},
		{"zero", func() (value.Raw, error) { return Encode(c, h, 0) }},
	} {
		raw, err := tc.raw()
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if raw != value.Unit {
			t.Errorf("%s = %v, want the shared zero immediate", tc.name, raw)
		}
	}

	b, err := Decode[bool](c, h, value.Unit)
	if err != nil || b {
		t.Errorf("bool from zero = %v, %v", b, err)
	}
	p, err := Decode[*int](c, h, value.Unit)
	if err != nil || p != nil {
		t.Errorf("option from zero = %v, %v", p, err)
	}
	l, err := Decode[[]int](c, h, value.Unit)
	if err != nil || l != nil {
		t.Errorf("list from zero = %v, %v", l, err)
	}
}

func TestOptions(t *testing.T) {
	h := newHandle(t, runtime.WithStressGC())
	c := NewCompiler()

	five := 5
	raw, err := Encode(c, h, &five)
	if err != nil {
		t.Fatal(err)
	}
	if h.Tag(raw) != 0 || h.Size(raw) != 1 || h.Field(raw, 0).Int() != 5 {
		t.Errorf("Some 5 = %v", h.Header(raw))
	}
	got, err := Decode[*int](c, h, raw)
	if err != nil || got == nil || *got != 5 {
		t.Errorf("decode Some 5 = %v, %v", got, err)
	}
}

func TestOverflow(t *testing.T) {
	h := newHandle(t)
	c := NewCompiler()

	_, err := Encode(c, h, Person{Age: math.MaxInt64})
	if err == nil || errorKind(t, err) != errors.KindOverflow {
		t.Fatalf("encode overflow: %v", err)
	}
	var e *errors.Error
	stderrors.As(err, &e)
	if diff := cmp.Diff([]string{"age"}, e.Path); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}

	_, err = Encode[uint](c, h, math.MaxUint64)
	if err == nil || errorKind(t, err) != errors.KindOverflow {
		t.Errorf("uint overflow: %v", err)
	}

	_, err = Decode[int8](c, h, value.OfInt(300))
	if err == nil || errorKind(t, err) != errors.KindOverflow {
		t.Errorf("int8 overflow: %v", err)
	}
	_, err = Decode[uint16](c, h, value.OfInt(-1))
	if err == nil || errorKind(t, err) != errors.KindOverflow {
		t.Errorf("negative into unsigned: %v", err)
	}
}

func TestDecodeShapeErrors(t *testing.T) {
	h := newHandle(t)
	c := NewCompiler()

	tests := []struct {
		name string
		dec  func() error
		path []string
	}{
		{
			name: "bool from 2",
			dec:  func() error { _, err := Decode[bool](c, h, value.OfInt(2)); return err },
		},
		{
			name: "int from block",
			dec:  func() error { _, err := Decode[int](c, h, h.AllocString("x")); return err },
		},
		{
			name: "string from immediate",
			dec:  func() error { _, err := Decode[string](c, h, value.OfInt(1)); return err },
		},
		{
			name: "record of wrong size",
			dec:  func() error { _, err := Decode[Person](c, h, h.Tuple(value.OfInt(1))); return err },
		},
		{
			name: "string field holding an int",
			dec: func() error {
				_, err := Decode[Person](c, h, h.Tuple(value.OfInt(1), value.OfInt(2)))
				return err
			},
			path: []string{"name"},
		},
		{
			name: "string field holding a double",
			dec: func() error {
				d := h.AllocDouble(1)
				f := h.Enter(1)
				defer f.Leave()
				s := f.Push(d)
				_, err := Decode[Person](c, h, h.Tuple(f.Get(s), value.OfInt(2)))
				return err
			},
		},
		{
			name: "fixed array of wrong length",
			dec: func() error {
				_, err := Decode[[3]int](c, h, h.Tuple(value.OfInt(1), value.OfInt(2)))
				return err
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.dec()
			if err == nil {
				t.Fatal("expected decode error")
			}
			if errorKind(t, err) != errors.KindShape {
				t.Errorf("kind = %s (%v)", errorKind(t, err), err)
			}
			if tt.path != nil {
				var e *errors.Error
				stderrors.As(err, &e)
				if diff := cmp.Diff(tt.path, e.Path); diff != "" {
					t.Errorf("path mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestDecodeFailureLeavesNoPartialValue(t *testing.T) {
	h := newHandle(t)
	c := NewCompiler()

	f := h.Enter(2)
	defer f.Leave()
	name := f.Push(h.AllocString("Ada"))
	age := f.Push(h.AllocString("x"))
	raw := h.Tuple(f.Get(name), f.Get(age))

	got, err := Decode[Person](c, h, raw)
	if err == nil {
		t.Fatal("expected decode error for a string age")
	}
	if diff := cmp.Diff(Person{}, got); diff != "" {
		t.Errorf("partial value returned (-want +got):\n%s", diff)
	}

	ct, err := c.Compile(reflect.TypeFor[Person]())
	if err != nil {
		t.Fatal(err)
	}
	dst := Person{Name: "kept", Age: 1}
	if err := ct.DecodeInto(h, raw, reflect.ValueOf(&dst).Elem()); err == nil {
		t.Fatal("expected decode error from DecodeInto")
	}
	if diff := cmp.Diff(Person{Name: "kept", Age: 1}, dst); diff != "" {
		t.Errorf("DecodeInto modified dst on failure (-want +got):\n%s", diff)
	}
}

func TestDecodeCyclicList(t *testing.T) {
	h := newHandle(t)
	c := NewCompiler()

	tests := []struct {
		name  string
		cells int
	}{
		{"self loop", 1},
		{"two cells", 2},
		{"five cells", 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := h.Enter(2)
			defer f.Leave()
			first := f.Push(h.Tuple(value.OfInt(0), value.EmptyList))
			last := f.Push(f.Get(first))
			for i := 1; i < tt.cells; i++ {
				cell := h.Tuple(value.OfInt(int64(i)), value.EmptyList)
				h.SetField(f.Get(last), 1, cell)
				f.Set(last, cell)
			}
			h.SetField(f.Get(last), 1, f.Get(first))

			_, err := Decode[[]int](c, h, f.Get(first))
			if err == nil {
				t.Fatal("expected an error for a cyclic list")
			}
			if errorKind(t, err) != errors.KindShape || !strings.Contains(err.Error(), "cyclic list") {
				t.Errorf("error = %v, want cyclic list shape error", err)
			}
		})
	}
}

func TestEncodeTypeErrors(t *testing.T) {
	h := newHandle(t)
	c := NewCompiler()
	if err := c.Register(commandUnion(t)); err != nil {
		t.Fatal(err)
	}

	ct, err := c.Compile(reflect.TypeFor[Person]())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ct.Encode(h, 42); err == nil || errorKind(t, err) != errors.KindTypeMismatch {
		t.Errorf("Encode(42) as person: %v", err)
	}
	if _, err := ct.Encode(h, nil); err == nil || errorKind(t, err) != errors.KindNilPointer {
		t.Errorf("Encode(nil) as person: %v", err)
	}

	if _, err := Encode[Command](c, h, nil); err == nil || errorKind(t, err) != errors.KindNilPointer {
		t.Errorf("nil union: %v", err)
	}
	if _, err := Encode[Command](c, h, (*Move)(nil)); err == nil || errorKind(t, err) != errors.KindNilPointer {
		t.Errorf("nil pointer case: %v", err)
	}
}

func TestCompileCache(t *testing.T) {
	c := NewCompiler()
	a, err := c.Compile(reflect.TypeFor[Person]())
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.Compile(reflect.TypeFor[Person]())
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("Compile must return the cached procedure pair")
	}
	if a.Foreign() != "person" || a.Kind != KindRecord {
		t.Errorf("compiled = %s %v", a.Foreign(), a.Kind)
	}

	l, err := c.Compile(reflect.TypeFor[[]Person]())
	if err != nil {
		t.Fatal(err)
	}
	if l.Elem != a {
		t.Error("list element must reuse the cached record")
	}
}

func TestDecodeRepanicsForeignPanics(t *testing.T) {
	c := NewCompiler()
	ct, err := c.Compile(reflect.TypeFor[string]())
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if r := recover(); r != "reader failure" {
			t.Errorf("recovered %v", r)
		}
	}()
	_, _ = ct.Decode(panicReader{}, value.Raw(8))
}

type panicReader struct{}

func (panicReader) Header(value.Raw) value.Header     { panic("reader failure") }
func (panicReader) Field(value.Raw, int) value.Raw    { panic("reader failure") }
func (panicReader) StringOf(value.Raw) string         { panic("reader failure") }
func (panicReader) BytesOf(value.Raw) []byte          { panic("reader failure") }
func (panicReader) DoubleOf(value.Raw) float64        { panic("reader failure") }
func (panicReader) DoubleArrayOf(value.Raw) []float64 { panic("reader failure") }
func (panicReader) Int64Of(value.Raw) int64           { panic("reader failure") }
func (panicReader) Int32Of(value.Raw) int32           { panic("reader failure") }
