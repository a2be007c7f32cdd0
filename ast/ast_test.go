package ast

import "testing"

func TestType_String(t *testing.T) {
	tests := []struct {
		t    Type
		want string
	}{
		{TypeInteger, "integer"},
		{TypeFloat, "float"},
		{TypeBytes, "string"},
		{TypeRegex, "regex"},
		{TypeBoolean, "boolean"},
		{TypeUnknown, "unknown"},
		{Type(99), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.t.String(); got != tt.want {
				t.Errorf("Type(%d).String() = %q, want %q", tt.t, got, tt.want)
			}
		})
	}
}

func TestSpanof(t *testing.T) {
	e := &IntLit{exprBase: exprBase{Span: Span{Start: 3, End: 7}}, Value: 42}
	got := Spanof(e)
	if got.Start != 3 || got.End != 7 {
		t.Errorf("Spanof() = %+v, want {3 7}", got)
	}
}
