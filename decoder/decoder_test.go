package decoder_test

import (
	"testing"

	"github.com/wippyai/treepatch/decoder"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		d    decoder.Decoder
		want string
	}{
		{decoder.Integer(), "integer()"},
		{decoder.Field("detail", decoder.Either(decoder.Integer(), decoder.Null(nil))), `field("detail", either(integer(), null(null)))`},
		{decoder.Optional(decoder.Accessor("now", decoder.Float())), `optional(accessor("now", float()))`},
		{decoder.Maybe(decoder.Index(0, decoder.String())), `maybe(index(0, string()))`},
		{decoder.Record(decoder.Fields{"b": decoder.Boolean(), "a": decoder.Ok(1)}), `record({"a": ok(1), "b": boolean()})`},
		{decoder.Form(decoder.Fields{"s": decoder.Match("x")}), `form({"s": match("x")})`},
		{decoder.And(decoder.Error("no"), decoder.Undefined(nil)), `and(error("no"), undefined(null))`},
		{decoder.Array(decoder.Dictionary(decoder.String())), `array(dictionary(string()))`},
	}
	for _, tt := range tests {
		if got := decoder.Describe(tt.d); got != tt.want {
			t.Errorf("Describe = %s, want %s", got, tt.want)
		}
		if got := tt.d.String(); got != tt.want {
			t.Errorf("String = %s, want %s", got, tt.want)
		}
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b decoder.Decoder
		want bool
	}{
		{"same primitive", decoder.String(), decoder.String(), true},
		{"different primitive", decoder.String(), decoder.Integer(), false},
		{"optional vs maybe", decoder.Optional(decoder.String()), decoder.Maybe(decoder.String()), false},
		{"record vs form", decoder.Record(decoder.Fields{"a": decoder.String()}), decoder.Form(decoder.Fields{"a": decoder.String()}), false},
		{"numeric literal widening", decoder.Ok(1), decoder.Ok(1.0), true},
		{"nested literal", decoder.Match(map[string]any{"k": []any{1}}), decoder.Match(map[string]any{"k": []any{1.0}}), true},
		{"different literal", decoder.Match("a"), decoder.Match("b"), false},
		{"either order", decoder.Either(decoder.String(), decoder.Integer()), decoder.Either(decoder.Integer(), decoder.String()), false},
		{"field name", decoder.Field("a", decoder.String()), decoder.Field("b", decoder.String()), false},
		{"index", decoder.Index(1, decoder.String()), decoder.Index(1, decoder.String()), true},
		{"nil", nil, nil, true},
		{"nil vs decoder", nil, decoder.String(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decoder.Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKind(t *testing.T) {
	for k := decoder.KindAccessor; k <= decoder.KindMax; k++ {
		got, ok := decoder.ParseKind(k.String())
		if !ok || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, ok)
		}
	}
	if _, ok := decoder.ParseKind("none"); ok {
		t.Errorf("none must not parse")
	}
	if decoder.Maybe(decoder.String()).Kind() != decoder.KindMaybe {
		t.Errorf("maybe kind")
	}
	if decoder.Optional(decoder.String()).Kind() != decoder.KindOptional {
		t.Errorf("optional kind")
	}
}
