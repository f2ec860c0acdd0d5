package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:       PhaseEncode,
				Kind:        KindTypeMismatch,
				Path:        []string{"person", "address", "zip"},
				GoType:      "string",
				ForeignType: "int",
				Detail:      "cannot convert",
			},
			contains: []string{"[encode]", "type_mismatch", "person.address.zip", "string", "int", "cannot convert"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDecode,
				Kind:  KindShape,
			},
			contains: []string{"[decode]", "shape"},
		},
		{
			name: "error with location",
			err: &Error{
				Phase:    PhaseDescribe,
				Kind:     KindInvalidDescription,
				Location: "example.Command.Start",
				Detail:   "tag override on closed union",
			},
			contains: []string{"[describe]", "invalid_description", "(example.Command.Start)"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseHeap,
				Kind:   KindAllocation,
				Detail: "heap full",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[heap]", "allocation", "heap full", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestCauseChain(t *testing.T) {
	cause := errors.New("wazero: module closed")
	err := Load("instantiate module", cause)

	if !errors.Is(err, cause) {
		t.Error("cause not reachable through errors.Is")
	}
	var e *Error
	wrapped := fmt.Errorf("camlgen: %w", err)
	if !errors.As(wrapped, &e) || e.Phase != PhaseLoad {
		t.Errorf("errors.As through fmt wrapping = %v", e)
	}
}

func TestMatchByPhaseAndKind(t *testing.T) {
	got := Shape([]string{"shape", "radius"}, "float", "expected a boxed float")
	tests := []struct {
		target *Error
		want   bool
	}{
		{&Error{Phase: PhaseDecode, Kind: KindShape}, true},
		{&Error{Phase: PhaseDecode, Kind: KindOverflow}, false},
		{&Error{Phase: PhaseEncode, Kind: KindShape}, false},
	}
	for _, tt := range tests {
		if errors.Is(got, tt.target) != tt.want {
			t.Errorf("Is(%s/%s) = %v, want %v", tt.target.Phase, tt.target.Kind, !tt.want, tt.want)
		}
	}
}

func TestBuilderFields(t *testing.T) {
	err := New(PhaseDecode, KindInvalidVariant).
		Path("event", "payload").
		GoType("Event").
		ForeignType("event").
		Location("example.Event").
		Value(uint64(0x1d)).
		Detail("no constructor with hash %#x", 0x1d).
		Build()

	want := Error{
		Phase:       PhaseDecode,
		Kind:        KindInvalidVariant,
		Path:        []string{"event", "payload"},
		GoType:      "Event",
		ForeignType: "event",
		Location:    "example.Event",
		Value:       uint64(0x1d),
		Detail:      "no constructor with hash 0x1d",
	}
	if diff := cmp.Diff(want, *err); diff != "" {
		t.Errorf("built error mismatch (-want +got):\n%s", diff)
	}
	if msg := err.Error(); !strings.HasPrefix(msg, "[decode] invalid_variant at event.payload: Go type Event, foreign type event - ") {
		t.Errorf("message = %q", msg)
	}
}

func TestShorthands(t *testing.T) {
	tests := []struct {
		name   string
		err    *Error
		phase  Phase
		kind   Kind
		detail string
	}{
		{"type mismatch", TypeMismatch(PhaseEncode, []string{"x"}, "chan int", "int"), PhaseEncode, KindTypeMismatch, ""},
		{"description", InvalidDescription("example.Shape", "%s: union has no variants", "shape"), PhaseDescribe, KindInvalidDescription, "shape: union has no variants"},
		{"shape", Shape(nil, "int", "expected an integer, got a block"), PhaseDecode, KindShape, "expected an integer, got a block"},
		{"allocation", AllocationFailed(PhaseHeap, 12, "heap limit reached"), PhaseHeap, KindAllocation, "failed to allocate 12 words: heap limit reached"},
		{"field missing", FieldMissing(PhaseDecode, nil, "age"), PhaseDecode, KindFieldMissing, `required field "age" not found`},
		{"discriminant", InvalidDiscriminant(PhaseDecode, nil, "shape", 5, 2), PhaseDecode, KindInvalidVariant, "discriminant 5 out of range (max 2)"},
		{"unsupported", Unsupported(PhaseDescribe, "Go type chan int"), PhaseDescribe, KindUnsupported, "Go type chan int"},
		{"bounds", OutOfBounds(PhaseHeap, nil, 3, 2), PhaseHeap, KindOutOfBounds, "index 3 out of bounds (length 2)"},
		{"nil", NilPointer(PhaseEncode, nil, "*Point"), PhaseEncode, KindNilPointer, "nil pointer"},
		{"overflow", Overflow(PhaseEncode, nil, uint64(1)<<63, "int"), PhaseEncode, KindOverflow, "value 9223372036854775808 overflows int"},
		{"arity", Arity(PhaseExport, "add", 2, 3), PhaseExport, KindArity, "add: expected 2 arguments, got 3"},
		{"root order", RootOrder("leave frame %d of %d", 1, 2), PhaseRoot, KindRootOrder, "leave frame 1 of 2"},
		{"not initialized", NotInitialized(PhaseRuntime, "runtime"), PhaseRuntime, KindNotInitialized, "runtime not initialized"},
		{"not found", NotFound(PhaseCallout, "closure", "on_tick"), PhaseCallout, KindNotFound, `closure "on_tick" not found`},
		{"input", InvalidInput(PhaseExport, "prefix cannot be empty"), PhaseExport, KindInvalidInput, "prefix cannot be empty"},
		{"registration", Registration(PhaseRuntime, "add", nil), PhaseRuntime, KindRegistration, "register add"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Phase != tt.phase || tt.err.Kind != tt.kind {
				t.Errorf("got %s/%s, want %s/%s", tt.err.Phase, tt.err.Kind, tt.phase, tt.kind)
			}
			if tt.err.Detail != tt.detail {
				t.Errorf("Detail = %q, want %q", tt.err.Detail, tt.detail)
			}
		})
	}
}

func TestRecovered(t *testing.T) {
	t.Run("error passes through", func(t *testing.T) {
		orig := Shape(nil, "int", "bad")
		if got := Recovered(PhaseExport, orig); got != error(orig) {
			t.Errorf("Recovered = %v, want original", got)
		}
	})

	t.Run("string wraps", func(t *testing.T) {
		got := Recovered(PhaseExport, "boom")
		var e *Error
		if !errors.As(got, &e) {
			t.Fatalf("Recovered returned %T", got)
		}
		if e.Detail != "boom" || e.Phase != PhaseExport {
			t.Errorf("got %+v", e)
		}
	})
}
