package errors

import (
	"errors"
	"strings"
	"testing"
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
				Phase:  PhaseDecode,
				Kind:   KindFieldMissing,
				Path:   []string{"changes", "3"},
				Op:     "SetAttribute",
				Detail: `required field "name" not found`,
			},
			contains: []string{"[decode]", "field_missing", "changes.3", "op SetAttribute", `"name"`},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseApply,
				Kind:  KindInvalidState,
			},
			contains: []string{"[apply]", "invalid_state"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseDispatch,
				Kind:   KindInvalidData,
				Detail: "event rejected",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[dispatch]", "invalid_data", "event rejected", "caused by", "underlying error"},
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

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseEncode,
		Kind:  KindInvalidData,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseApply,
		Kind:  KindNotFound,
		Path:  []string{"changes", "1"},
	}

	if !err.Is(&Error{Phase: PhaseApply, Kind: KindNotFound}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseDecode, Kind: KindNotFound}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseApply, Kind: KindOutOfBounds}) {
		t.Error("Is should not match different kind")
	}

	target := &Error{Phase: PhaseApply, Kind: KindNotFound}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match")
	}
}

func TestError_WithPath(t *testing.T) {
	orig := FieldMissing(PhaseDecode, []string{"InsertText"}, "data")
	wrapped := orig.WithPath("changes", "7")

	want := []string{"changes", "7", "InsertText"}
	if strings.Join(wrapped.Path, ".") != strings.Join(want, ".") {
		t.Errorf("Path = %v, want %v", wrapped.Path, want)
	}
	if len(orig.Path) != 1 {
		t.Errorf("WithPath mutated the original: %v", orig.Path)
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseDecode, KindFieldMissing).
		Path("changes", "0").
		Op("InsertText").
		Value(42).
		Cause(cause).
		Detail("required field %q not found", "data").
		Build()

	if err.Phase != PhaseDecode {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseDecode)
	}
	if err.Kind != KindFieldMissing {
		t.Errorf("Kind = %v, want %v", err.Kind, KindFieldMissing)
	}
	if len(err.Path) != 2 || err.Path[0] != "changes" || err.Path[1] != "0" {
		t.Errorf("Path = %v, want [changes 0]", err.Path)
	}
	if err.Op != "InsertText" {
		t.Errorf("Op = %v, want 'InsertText'", err.Op)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != `required field "data" not found` {
		t.Errorf("Detail = %v", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("UnknownOpType", func(t *testing.T) {
		err := UnknownOpType([]string{"changes", "2"}, 99)
		if err.Kind != KindUnknownOp || err.Phase != PhaseDecode {
			t.Errorf("Kind = %v Phase = %v", err.Kind, err.Phase)
		}
		if !strings.Contains(err.Detail, "99") {
			t.Errorf("Detail = %v, should contain tag", err.Detail)
		}
	})

	t.Run("OpMissing", func(t *testing.T) {
		err := OpMissing([]string{"changes", "0"}, "InsertText")
		if err.Kind != KindOpMissing {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOpMissing)
		}
	})

	t.Run("FieldMissing", func(t *testing.T) {
		err := FieldMissing(PhaseDecode, []string{"SetAttribute"}, "name")
		if err.Kind != KindFieldMissing {
			t.Errorf("Kind = %v, want %v", err.Kind, KindFieldMissing)
		}
		if !strings.Contains(err.Error(), `"name"`) {
			t.Errorf("error should name the field: %v", err)
		}
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(PhaseDecode, []string{"table"}, 10, 5)
		if err.Kind != KindOutOfBounds {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOutOfBounds)
		}
		if err.Value != 10 {
			t.Errorf("Value = %v, want 10", err.Value)
		}
	})

	t.Run("InvalidState", func(t *testing.T) {
		err := InvalidState("SelectChildren", "children already selected")
		if err.Kind != KindInvalidState || err.Phase != PhaseApply {
			t.Errorf("Kind = %v Phase = %v", err.Kind, err.Phase)
		}
		if !strings.Contains(err.Error(), "op SelectChildren - children already selected") {
			t.Errorf("unexpected message: %v", err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		err := NotFound(PhaseApply, "stashed node", 5)
		if err.Kind != KindNotFound {
			t.Errorf("Kind = %v, want %v", err.Kind, KindNotFound)
		}
		if err.Detail != "stashed node 5 does not exist" {
			t.Errorf("Detail = %v", err.Detail)
		}
	})

	t.Run("LimitExceeded", func(t *testing.T) {
		err := LimitExceeded(PhaseDecode, "changes", 10, 4)
		if err.Kind != KindLimitExceeded || err.Value != 10 {
			t.Errorf("Kind = %v Value = %v", err.Kind, err.Value)
		}
	})

	t.Run("Nesting", func(t *testing.T) {
		err := Nesting("object must not be nested")
		if err.Phase != PhaseBuild || err.Kind != KindNesting {
			t.Errorf("Phase = %v Kind = %v", err.Phase, err.Kind)
		}
	})
}
